package tasks

import (
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/readowl/readowl/internal/config"
)

// DefaultConfig returns the queue settings used when the environment leaves
// them unset.
func DefaultConfig() config.Tasks {
	return config.Tasks{
		Enabled:           true,
		Workers:           2,
		MaxRetries:        3,
		RetryDelay:        time.Minute,
		TaskTimeout:       5 * time.Minute,
		ReleaseAfter:      15 * time.Minute,
		CleanupInterval:   time.Hour,
		RetentionDuration: 24 * time.Hour,
	}
}

func withDefaults(cfg config.Tasks) config.Tasks {
	def := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.ReleaseAfter <= 0 {
		cfg.ReleaseAfter = def.ReleaseAfter
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}
	return cfg
}

// retention keeps finished tasks for a day and payloads of failed ones only.
func retention() *backlite.Retention {
	return &backlite.Retention{
		Duration:   24 * time.Hour,
		OnlyFailed: false,
		Data:       &backlite.RetainData{OnlyFailed: true},
	}
}
