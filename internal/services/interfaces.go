// Package services holds workflows that span several repositories.
package services

import (
	"context"

	"github.com/readowl/readowl/internal/entities"
)

// BookReader loads books.
type BookReader interface {
	GetBookByID(id uint) (*entities.Book, error)
}

// ChapterPublisher publishes chapters. PublishChapter reports true only for
// the call that moved the chapter out of draft.
type ChapterPublisher interface {
	GetChapterByID(id uint) (*entities.Chapter, error)
	PublishChapter(id uint) (*entities.Chapter, bool, error)
}

// FollowerLister lists the readers following a book.
type FollowerLister interface {
	ListFollowerIDs(bookID uint) ([]uint, error)
}

// NotificationWriter stores notifications.
type NotificationWriter interface {
	CreateNotifications(items []entities.Notification) error
}

// NotificationDispatcher hands new-chapter fan-out to a background queue.
type NotificationDispatcher interface {
	DispatchNewChapter(ctx context.Context, bookID, chapterID uint) error
}
