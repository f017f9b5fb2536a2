package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/readowl/readowl/internal/logging"
)

const defaultNotificationRetentionDays = 30

// ResetTokenCleaner removes used and expired password reset tokens.
type ResetTokenCleaner interface {
	DeleteExpiredResetTokens() (int64, error)
}

type CleanupResetTokensTask struct{}

func (t CleanupResetTokensTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "cleanup_reset_tokens",
		MaxAttempts: 3,
		Backoff:     5 * time.Minute,
		Timeout:     time.Minute,
		Retention:   retention(),
	}
}

func CleanupResetTokensProcessor(cleaner ResetTokenCleaner) backlite.QueueProcessor[CleanupResetTokensTask] {
	return func(ctx context.Context, _ CleanupResetTokensTask) error {
		if cleaner == nil {
			return fmt.Errorf("reset token cleaner not configured")
		}
		deleted, err := cleaner.DeleteExpiredResetTokens()
		if err != nil {
			return fmt.Errorf("cleanup reset tokens: %w", err)
		}
		logging.WithComponent("tasks").Info().Int64("deleted", deleted).Msg("reset tokens cleaned up")
		return nil
	}
}

func NewCleanupResetTokensQueue(cleaner ResetTokenCleaner) backlite.Queue {
	return backlite.NewQueue(CleanupResetTokensProcessor(cleaner))
}

// NotificationCleaner removes read notifications past their retention.
type NotificationCleaner interface {
	DeleteReadOlderThan(age time.Duration) (int64, error)
}

// CleanupNotificationsTask deletes read notifications older than
// RetentionDays. Unread notifications are never removed.
type CleanupNotificationsTask struct {
	RetentionDays int `json:"retention_days"`
}

func (t CleanupNotificationsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "cleanup_notifications",
		MaxAttempts: 3,
		Backoff:     5 * time.Minute,
		Timeout:     2 * time.Minute,
		Retention:   retention(),
	}
}

func CleanupNotificationsProcessor(cleaner NotificationCleaner) backlite.QueueProcessor[CleanupNotificationsTask] {
	return func(ctx context.Context, task CleanupNotificationsTask) error {
		if cleaner == nil {
			return fmt.Errorf("notification cleaner not configured")
		}
		days := task.RetentionDays
		if days <= 0 {
			days = defaultNotificationRetentionDays
		}
		deleted, err := cleaner.DeleteReadOlderThan(time.Duration(days) * 24 * time.Hour)
		if err != nil {
			return fmt.Errorf("cleanup notifications: %w", err)
		}
		logging.WithComponent("tasks").Info().
			Int64("deleted", deleted).
			Int("retention_days", days).
			Msg("read notifications cleaned up")
		return nil
	}
}

func NewCleanupNotificationsQueue(cleaner NotificationCleaner) backlite.Queue {
	return backlite.NewQueue(CleanupNotificationsProcessor(cleaner))
}
