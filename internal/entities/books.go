package entities

import (
	"time"

	"gorm.io/gorm"

	"github.com/readowl/readowl/internal/slug"
)

type BookStatus string

const (
	BookStatusOngoing   BookStatus = "ongoing"
	BookStatusCompleted BookStatus = "completed"
	BookStatusHiatus    BookStatus = "hiatus"
)

func (s BookStatus) Valid() bool {
	switch s {
	case BookStatusOngoing, BookStatusCompleted, BookStatusHiatus:
		return true
	}
	return false
}

type Book struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	AuthorID  uint           `gorm:"index;not null" json:"author_id"`
	Author    User           `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Title     string         `gorm:"index;size:512;not null" json:"title"`
	Slug      string         `gorm:"size:512;index:idx_books_slug,unique,where:slug <> ''" json:"slug"` // empty on rows created before slugs were persisted
	Synopsis  string         `gorm:"type:text" json:"synopsis"`
	Genre     string         `gorm:"index;size:100" json:"genre,omitempty"`
	Status    BookStatus     `gorm:"size:20;default:ongoing" json:"status"`
	CoverURL  string         `gorm:"size:2048" json:"cover_url,omitempty"`
	Views     int64          `gorm:"default:0" json:"views"`
	Chapters  []Chapter      `gorm:"foreignKey:BookID" json:"chapters,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Book) TableName() string {
	return "books"
}

// URLSlug is the path segment links use. A book stored without a slug links
// to the slug its title resolves under.
func (b Book) URLSlug() string {
	if b.Slug != "" {
		return b.Slug
	}
	return slug.Slugify(b.Title)
}

type Chapter struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	BookID      uint           `gorm:"not null;index:idx_chapters_book_slug,unique,priority:1" json:"book_id"`
	Title       string         `gorm:"size:512;not null" json:"title"`
	Slug        string         `gorm:"size:512;index:idx_chapters_book_slug,unique,priority:2,where:slug <> ''" json:"slug"`
	Content     string         `gorm:"type:text" json:"content"`
	Position    int            `gorm:"index" json:"position"`
	PublishedAt *time.Time     `gorm:"index" json:"published_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Chapter) TableName() string {
	return "chapters"
}

func (c Chapter) URLSlug() string {
	if c.Slug != "" {
		return c.Slug
	}
	return slug.Slugify(c.Title)
}

func (c *Chapter) IsPublished() bool {
	return c.PublishedAt != nil
}

type BookFollow struct {
	UserID    uint      `gorm:"primaryKey" json:"user_id"`
	BookID    uint      `gorm:"primaryKey;index" json:"book_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (BookFollow) TableName() string {
	return "book_follows"
}

type NotificationType string

const (
	NotificationTypeNewChapter NotificationType = "new_chapter"
	NotificationTypeSystem     NotificationType = "system"
)

type Notification struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	UserID    uint             `gorm:"index;not null" json:"user_id"`
	BookID    *uint            `gorm:"index" json:"book_id,omitempty"`
	ChapterID *uint            `json:"chapter_id,omitempty"`
	Type      NotificationType `gorm:"size:30;not null" json:"type"`
	Message   string           `gorm:"size:1024" json:"message"`
	Link      string           `gorm:"size:2048" json:"link,omitempty"`
	ReadAt    *time.Time       `gorm:"index" json:"read_at,omitempty"`
	CreatedAt time.Time        `gorm:"index" json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}
