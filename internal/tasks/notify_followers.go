package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/readowl/readowl/internal/logging"
)

// FollowerNotifier creates new-chapter notifications for a book's followers.
type FollowerNotifier interface {
	NotifyFollowers(ctx context.Context, bookID, chapterID uint) (int, error)
}

// NotifyFollowersTask fans out a newly published chapter to followers.
type NotifyFollowersTask struct {
	BookID    uint `json:"book_id"`
	ChapterID uint `json:"chapter_id"`
}

func (t NotifyFollowersTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "notify_followers",
		MaxAttempts: 3,
		Backoff:     30 * time.Second,
		Timeout:     2 * time.Minute,
		Retention:   retention(),
	}
}

func NotifyFollowersProcessor(notifier FollowerNotifier) backlite.QueueProcessor[NotifyFollowersTask] {
	return func(ctx context.Context, task NotifyFollowersTask) error {
		if notifier == nil {
			return fmt.Errorf("follower notifier not configured")
		}
		n, err := notifier.NotifyFollowers(ctx, task.BookID, task.ChapterID)
		if err != nil {
			return fmt.Errorf("notify followers of chapter %d: %w", task.ChapterID, err)
		}
		logging.WithComponent("tasks").Info().
			Uint("book_id", task.BookID).
			Uint("chapter_id", task.ChapterID).
			Int("notified", n).
			Msg("notify_followers done")
		return nil
	}
}

func NewNotifyFollowersQueue(notifier FollowerNotifier) backlite.Queue {
	return backlite.NewQueue(NotifyFollowersProcessor(notifier))
}

// Dispatcher enqueues follower notification for the publishing service.
type Dispatcher struct {
	client *Client
}

func NewDispatcher(client *Client) *Dispatcher {
	return &Dispatcher{client: client}
}

func (d *Dispatcher) DispatchNewChapter(ctx context.Context, bookID, chapterID uint) error {
	_, err := d.client.Add(NotifyFollowersTask{BookID: bookID, ChapterID: chapterID}).Ctx(ctx).Save()
	return err
}
