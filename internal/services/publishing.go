package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/readowl/readowl/internal/entities"
	"github.com/readowl/readowl/internal/logging"
	"github.com/readowl/readowl/internal/metrics"
)

// ErrChapterMismatch is returned when a chapter does not belong to the book
// it was published under.
var ErrChapterMismatch = errors.New("chapter does not belong to book")

// PublishingService publishes chapters and notifies the book's followers.
type PublishingService struct {
	books         BookReader
	chapters      ChapterPublisher
	followers     FollowerLister
	notifications NotificationWriter
	dispatcher    NotificationDispatcher
}

func NewPublishingService(books BookReader, chapters ChapterPublisher, followers FollowerLister, notifications NotificationWriter) *PublishingService {
	return &PublishingService{
		books:         books,
		chapters:      chapters,
		followers:     followers,
		notifications: notifications,
	}
}

// SetDispatcher routes follower notification through d. Without a
// dispatcher, notifications are created during the publish request.
func (s *PublishingService) SetDispatcher(d NotificationDispatcher) {
	s.dispatcher = d
}

// PublishChapter publishes a draft and notifies followers the first time.
// Publishing an already published chapter is a no-op. A notification
// failure is logged and does not undo the publish.
func (s *PublishingService) PublishChapter(ctx context.Context, chapterID uint) (*entities.Chapter, error) {
	ch, first, err := s.chapters.PublishChapter(chapterID)
	if err != nil {
		return nil, err
	}
	if !first {
		return ch, nil
	}

	log := logging.FromContext(ctx).With().Uint("book_id", ch.BookID).Uint("chapter_id", ch.ID).Logger()

	if s.dispatcher != nil {
		err := s.dispatcher.DispatchNewChapter(ctx, ch.BookID, ch.ID)
		if err == nil {
			return ch, nil
		}
		log.Warn().Err(err).Msg("enqueue follower notification failed, notifying inline")
	}

	if _, err := s.NotifyFollowers(ctx, ch.BookID, ch.ID); err != nil {
		log.Error().Err(err).Msg("notify followers")
	}
	return ch, nil
}

// NotifyFollowers creates one new_chapter notification per follower of the
// book, skipping the book's author. It returns how many were created.
// Drafts produce no notifications.
func (s *PublishingService) NotifyFollowers(ctx context.Context, bookID, chapterID uint) (int, error) {
	book, err := s.books.GetBookByID(bookID)
	if err != nil {
		return 0, fmt.Errorf("load book: %w", err)
	}
	ch, err := s.chapters.GetChapterByID(chapterID)
	if err != nil {
		return 0, fmt.Errorf("load chapter: %w", err)
	}
	if ch.BookID != book.ID {
		return 0, ErrChapterMismatch
	}
	if !ch.IsPublished() {
		return 0, nil
	}

	followerIDs, err := s.followers.ListFollowerIDs(book.ID)
	if err != nil {
		return 0, fmt.Errorf("list followers: %w", err)
	}

	message := fmt.Sprintf("New chapter in %s: %s", book.Title, ch.Title)
	link := "/books/" + book.URLSlug() + "/" + ch.URLSlug()
	items := make([]entities.Notification, 0, len(followerIDs))
	for _, userID := range followerIDs {
		if userID == book.AuthorID {
			continue
		}
		items = append(items, entities.Notification{
			UserID:    userID,
			BookID:    &book.ID,
			ChapterID: &ch.ID,
			Type:      entities.NotificationTypeNewChapter,
			Message:   message,
			Link:      link,
		})
	}

	if err := s.notifications.CreateNotifications(items); err != nil {
		return 0, err
	}
	metrics.NotificationsCreatedTotal.Add(float64(len(items)))

	logging.FromContext(ctx).Info().
		Uint("book_id", book.ID).
		Uint("chapter_id", ch.ID).
		Int("notified", len(items)).
		Msg("followers notified")
	return len(items), nil
}
