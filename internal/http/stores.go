package http

import (
	"context"
	"time"

	"github.com/readowl/readowl/internal/entities"
	"github.com/readowl/readowl/internal/settingsstore"
)

// Controllers depend on these narrow interfaces; the database repositories
// implement them.

type BookStore interface {
	CreateBook(book *entities.Book) error
	UpdateBook(book *entities.Book) error
	GetBookByID(id uint) (*entities.Book, error)
	GetBookBySlug(slug string) (*entities.Book, error)
	ListBooks(limit, offset int) ([]entities.Book, int64, error)
	ListBooksByAuthor(authorID uint) ([]entities.Book, error)
	SearchBooks(query string, limit int) ([]entities.Book, error)
	DeleteBook(id uint) error
	IncrementViews(id uint) error
	BackfillSlugs() (int, error)
}

type ChapterStore interface {
	CreateChapter(ch *entities.Chapter) error
	UpdateChapter(ch *entities.Chapter) error
	GetChapterBySlug(bookID uint, slug string) (*entities.Chapter, error)
	ListChapters(bookID uint, includeDrafts bool) ([]entities.Chapter, error)
	DeleteChapter(id uint) error
	AdjacentChapters(ch *entities.Chapter) (prev, next *entities.Chapter, err error)
}

// ChapterPublisher publishes a chapter and notifies followers.
type ChapterPublisher interface {
	PublishChapter(ctx context.Context, chapterID uint) (*entities.Chapter, error)
}

type FollowStore interface {
	Follow(userID, bookID uint) error
	Unfollow(userID, bookID uint) error
	IsFollowing(userID, bookID uint) (bool, error)
	CountFollowers(bookID uint) (int64, error)
	ListFollowedBooks(userID uint) ([]entities.Book, error)
}

type NotificationStore interface {
	ListNotifications(userID uint, unreadOnly bool, limit, offset int) ([]entities.Notification, int64, error)
	GetNotification(userID, id uint) (*entities.Notification, error)
	UnreadCount(userID uint) (int64, error)
	MarkRead(userID, id uint) error
	MarkAllRead(userID uint) (int64, error)
}

// BotSettings exposes the runtime bot keyword configuration.
type BotSettings interface {
	IsLikelyBot(userAgent string) bool
	GetBotKeywordsInfo() settingsstore.BotKeywordsInfo
	SetBotKeywords(keywords []string) error
	ClearBotKeywords() error
}

// UserAdmin is the part of the auth service used by admin endpoints.
type UserAdmin interface {
	PromoteToAuthor(userID uint) (*entities.User, error)
	SetRole(userID uint, role entities.UserRole) error
}

// UserDirectory lists accounts for the admin user list.
type UserDirectory interface {
	ListUsers() ([]entities.User, error)
}

// HealthChecker pings the database.
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

const healthCheckTimeout = 2 * time.Second
