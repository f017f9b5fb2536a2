package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/readowl/readowl/internal/logging"
)

// SlugBackfiller assigns slugs to books stored without one.
type SlugBackfiller interface {
	BackfillSlugs() (int, error)
}

type BackfillSlugsTask struct{}

func (t BackfillSlugsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "backfill_slugs",
		MaxAttempts: 1,
		Backoff:     time.Minute,
		Timeout:     30 * time.Minute,
		Retention:   retention(),
	}
}

func BackfillSlugsProcessor(backfiller SlugBackfiller) backlite.QueueProcessor[BackfillSlugsTask] {
	return func(ctx context.Context, _ BackfillSlugsTask) error {
		if backfiller == nil {
			return fmt.Errorf("slug backfiller not configured")
		}
		n, err := backfiller.BackfillSlugs()
		if err != nil {
			return fmt.Errorf("backfill slugs: %w", err)
		}
		logging.WithComponent("tasks").Info().Int("updated", n).Msg("book slugs backfilled")
		return nil
	}
}

func NewBackfillSlugsQueue(backfiller SlugBackfiller) backlite.Queue {
	return backlite.NewQueue(BackfillSlugsProcessor(backfiller))
}
