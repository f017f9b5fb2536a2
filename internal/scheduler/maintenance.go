// Package scheduler runs periodic maintenance on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/readowl/readowl/internal/logging"
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateSchedule checks a standard five-field cron expression.
func ValidateSchedule(schedule string) error {
	_, err := parser.Parse(schedule)
	return err
}

// Job is one maintenance step.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// Enqueuer adds tasks to the background queue.
type Enqueuer interface {
	Add(tasks ...backlite.Task) *backlite.TaskAddOp
}

// TaskJob returns a job that enqueues task instead of running it inline.
func TaskJob(q Enqueuer, task backlite.Task) Job {
	return Job{
		Name: task.Config().Name,
		Run: func(ctx context.Context) error {
			_, err := q.Add(task).Ctx(ctx).Save()
			return err
		},
	}
}

// MaintenanceScheduler runs its jobs in order every time the schedule fires.
type MaintenanceScheduler struct {
	schedule string
	jobs     []Job
	log      zerolog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	entryID cron.EntryID
}

func NewMaintenanceScheduler(schedule string, jobs ...Job) *MaintenanceScheduler {
	return &MaintenanceScheduler{
		schedule: schedule,
		jobs:     jobs,
		log:      logging.WithComponent("maintenance"),
	}
}

// Start registers the schedule and starts the cron runner. ctx is passed
// to every job run; cancelling it does not stop the scheduler, Stop does.
func (s *MaintenanceScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return nil
	}

	if err := ValidateSchedule(s.schedule); err != nil {
		return fmt.Errorf("invalid maintenance schedule %q: %w", s.schedule, err)
	}

	c := cron.New(cron.WithParser(parser))
	id, err := c.AddFunc(s.schedule, func() {
		if err := s.RunNow(ctx); err != nil {
			s.log.Error().Err(err).Msg("maintenance run failed")
		}
	})
	if err != nil {
		return fmt.Errorf("schedule maintenance: %w", err)
	}
	c.Start()

	s.cron, s.entryID = c, id
	s.log.Info().
		Str("schedule", s.schedule).
		Int("jobs", len(s.jobs)).
		Time("next_run", c.Entry(id).Next).
		Msg("maintenance scheduler started")
	return nil
}

// Stop waits for a running maintenance pass to finish.
func (s *MaintenanceScheduler) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()

	if c == nil {
		return
	}
	<-c.Stop().Done()
	s.log.Info().Msg("maintenance scheduler stopped")
}

// RunNow runs every job once. A failing job does not prevent the others
// from running; all failures are returned together.
func (s *MaintenanceScheduler) RunNow(ctx context.Context) error {
	var errs []error
	for _, job := range s.jobs {
		start := time.Now()
		if err := job.Run(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", job.Name, err))
			continue
		}
		s.log.Debug().Str("job", job.Name).Dur("took", time.Since(start)).Msg("maintenance job done")
	}
	return errors.Join(errs...)
}

// NextRun returns the next scheduled time, or the zero time when stopped.
func (s *MaintenanceScheduler) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron == nil {
		return time.Time{}
	}
	return s.cron.Entry(s.entryID).Next
}

func (s *MaintenanceScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cron != nil
}
