// Package tasks runs background work on a backlite queue stored in its own
// SQLite file next to the main database.
package tasks

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mikestefanello/backlite"
	"github.com/rs/zerolog"

	"github.com/readowl/readowl/internal/config"
	"github.com/readowl/readowl/internal/logging"
)

// Client owns the backlite client and its database handle.
type Client struct {
	client *backlite.Client
	db     *sql.DB
	config config.Tasks
	log    zerolog.Logger

	mu      sync.RWMutex
	started bool
}

// TasksDBPath returns the queue database path for a main database path:
// readowl.db becomes readowl-tasks.db.
func TasksDBPath(mainDBPath string) string {
	dir, base := filepath.Split(mainDBPath)
	ext := filepath.Ext(base)
	return filepath.Join(dir, strings.TrimSuffix(base, ext)+"-tasks"+ext)
}

// NewClient opens the queue database and installs the backlite schema.
func NewClient(mainDBPath string, cfg config.Tasks) (*Client, error) {
	cfg = withDefaults(cfg)
	log := logging.WithComponent("tasks")

	db, err := sql.Open("sqlite3", TasksDBPath(mainDBPath)+"?_journal=WAL&_timeout=5000&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open tasks database: %w", err)
	}
	db.SetMaxOpenConns(cfg.Workers + 5)
	db.SetMaxIdleConns(cfg.Workers + 2)
	db.SetConnMaxLifetime(time.Hour)

	client, err := backlite.NewClient(backlite.ClientConfig{
		DB:              db,
		NumWorkers:      cfg.Workers,
		ReleaseAfter:    cfg.ReleaseAfter,
		CleanupInterval: cfg.CleanupInterval,
		Logger:          logging.TaskLogger{Logger: log},
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create backlite client: %w", err)
	}
	if err := client.Install(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("install backlite schema: %w", err)
	}

	return &Client{client: client, db: db, config: cfg, log: log}, nil
}

// Register adds queues. It must be called before Start.
func (c *Client) Register(queues ...backlite.Queue) {
	for _, q := range queues {
		c.client.Register(q)
	}
}

// Start begins processing. It does not block.
func (c *Client) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return
	}
	c.started = true

	c.log.Info().Int("workers", c.config.Workers).Msg("task queue started")
	c.client.Start(ctx)
}

// Stop waits for running tasks until ctx expires. It reports whether every
// worker finished in time.
func (c *Client) Stop(ctx context.Context) bool {
	c.mu.RLock()
	started := c.started
	c.mu.RUnlock()
	if !started {
		return true
	}

	ok := c.client.Stop(ctx)
	if ok {
		c.log.Info().Msg("task queue stopped")
	} else {
		c.log.Warn().Msg("task queue stop timed out, some tasks may not have completed")
	}
	return ok
}

// Close releases the database handle. Call it after Stop.
func (c *Client) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

func (c *Client) Add(tasks ...backlite.Task) *backlite.TaskAddOp {
	return c.client.Add(tasks...)
}

func (c *Client) Status(ctx context.Context, taskID string) (backlite.TaskStatus, error) {
	return c.client.Status(ctx, taskID)
}

// StatusName is the lower-case label used in API responses.
func StatusName(status backlite.TaskStatus) string {
	switch status {
	case backlite.TaskStatusPending:
		return "pending"
	case backlite.TaskStatusRunning:
		return "running"
	case backlite.TaskStatusSuccess:
		return "success"
	case backlite.TaskStatusFailure:
		return "failure"
	case backlite.TaskStatusNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}
