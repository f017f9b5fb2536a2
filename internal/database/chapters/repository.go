// Package chapters provides database operations for book chapters.
//
// Chapter slugs are unique within their book, not globally.
package chapters

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/readowl/readowl/internal/entities"
	"github.com/readowl/readowl/internal/metrics"
	"github.com/readowl/readowl/internal/slug"
)

const insertAttempts = 3

// Repository handles all chapter database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new chapters repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// SlugTaken reports whether another chapter of bookID uses s.
func (r *Repository) SlugTaken(bookID uint, s string, excludeID uint) (bool, error) {
	var count int64
	q := r.db.Unscoped().Model(&entities.Chapter{}).Where("book_id = ? AND slug = ?", bookID, s)
	if excludeID > 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *Repository) assignSlug(bookID uint, title string, excludeID uint) (string, error) {
	base := slug.Slugify(title)
	s, err := slug.Unique(base, func(candidate string) (bool, error) {
		return r.SlugTaken(bookID, candidate, excludeID)
	})
	if err != nil {
		return "", err
	}
	if base != "" && s != base {
		metrics.SlugCollisionsTotal.Inc()
	}
	return s, nil
}

// CreateChapter inserts a draft chapter. A zero Position appends it after
// the last chapter of the book.
func (r *Repository) CreateChapter(ch *entities.Chapter) error {
	ch.Title = strings.TrimSpace(ch.Title)

	if ch.Position == 0 {
		var maxPos sql.NullInt64
		err := r.db.Model(&entities.Chapter{}).Where("book_id = ?", ch.BookID).
			Select("MAX(position)").Row().Scan(&maxPos)
		if err != nil {
			return fmt.Errorf("find last position: %w", err)
		}
		ch.Position = int(maxPos.Int64) + 1
	}

	var err error
	for attempt := 0; attempt < insertAttempts; attempt++ {
		ch.Slug, err = r.assignSlug(ch.BookID, ch.Title, 0)
		if err != nil {
			return fmt.Errorf("assign slug: %w", err)
		}
		err = r.db.Create(ch).Error
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			break
		}
		ch.ID = 0
	}
	if err != nil {
		return fmt.Errorf("create chapter: %w", err)
	}
	return nil
}

// UpdateChapter saves title, content and position. The slug follows the title.
func (r *Repository) UpdateChapter(ch *entities.Chapter) error {
	var current entities.Chapter
	if err := r.db.Select("id", "book_id", "title", "slug").First(&current, ch.ID).Error; err != nil {
		return fmt.Errorf("load chapter %d: %w", ch.ID, err)
	}

	ch.BookID = current.BookID
	ch.Title = strings.TrimSpace(ch.Title)
	ch.Slug = current.Slug
	if current.Slug == "" || slug.Slugify(ch.Title) != slug.Slugify(current.Title) {
		s, err := r.assignSlug(current.BookID, ch.Title, ch.ID)
		if err != nil {
			return fmt.Errorf("assign slug: %w", err)
		}
		ch.Slug = s
	}

	err := r.db.Model(&entities.Chapter{ID: ch.ID}).
		Select("title", "slug", "content", "position").
		Updates(ch).Error
	if err != nil {
		return fmt.Errorf("update chapter %d: %w", ch.ID, err)
	}
	return nil
}

// PublishChapter marks a chapter published. The boolean is true only for the
// call that actually published it, so followers are notified once.
func (r *Repository) PublishChapter(id uint) (*entities.Chapter, bool, error) {
	now := time.Now()
	res := r.db.Model(&entities.Chapter{}).
		Where("id = ? AND published_at IS NULL", id).
		Update("published_at", now)
	if res.Error != nil {
		return nil, false, fmt.Errorf("publish chapter %d: %w", id, res.Error)
	}

	ch, err := r.GetChapterByID(id)
	if err != nil {
		return nil, false, err
	}
	return ch, res.RowsAffected > 0, nil
}

// GetChapterByID retrieves a chapter by its ID.
func (r *Repository) GetChapterByID(id uint) (*entities.Chapter, error) {
	var ch entities.Chapter
	if err := r.db.First(&ch, id).Error; err != nil {
		return nil, fmt.Errorf("chapter %d: %w", id, err)
	}
	return &ch, nil
}

// GetChapterBySlug resolves a chapter slug within a book. Chapters stored
// without a slug are matched by title, lowest id first.
func (r *Repository) GetChapterBySlug(bookID uint, s string) (*entities.Chapter, error) {
	if !slug.IsValid(s) {
		return nil, fmt.Errorf("chapter %q: %w", s, gorm.ErrRecordNotFound)
	}

	var ch entities.Chapter
	err := r.db.Where("book_id = ? AND slug = ?", bookID, s).First(&ch).Error
	if err == nil {
		return &ch, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("chapter %q: %w", s, err)
	}

	var legacy []entities.Chapter
	err = r.db.Where("book_id = ? AND slug = ''", bookID).Order("id ASC").Find(&legacy).Error
	if err != nil {
		return nil, fmt.Errorf("chapter %q: %w", s, err)
	}
	match, ok := slug.Match(legacy, s, func(c entities.Chapter) string { return c.Title })
	if !ok {
		return nil, fmt.Errorf("chapter %q: %w", s, gorm.ErrRecordNotFound)
	}

	if stored, err := r.storeResolvedSlug(match, s); err == nil {
		match.Slug = stored
	}
	return &match, nil
}

// storeResolvedSlug saves s on a legacy chapter, or the next free suffix when
// a deleted chapter of the same book still holds s.
func (r *Repository) storeResolvedSlug(ch entities.Chapter, s string) (string, error) {
	taken, err := r.SlugTaken(ch.BookID, s, ch.ID)
	if err != nil {
		return "", err
	}
	if taken {
		if s, err = r.assignSlug(ch.BookID, ch.Title, ch.ID); err != nil {
			return "", err
		}
	}
	err = r.db.Model(&entities.Chapter{}).Where("id = ? AND slug = ''", ch.ID).Update("slug", s).Error
	return s, err
}

// ListChapters returns the chapters of a book in reading order.
func (r *Repository) ListChapters(bookID uint, includeDrafts bool) ([]entities.Chapter, error) {
	var chapters []entities.Chapter
	q := r.db.Where("book_id = ?", bookID)
	if !includeDrafts {
		q = q.Where("published_at IS NOT NULL")
	}
	err := q.Order("position ASC, id ASC").Find(&chapters).Error
	return chapters, err
}

// DeleteChapter soft-deletes a chapter.
func (r *Repository) DeleteChapter(id uint) error {
	res := r.db.Delete(&entities.Chapter{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("chapter %d: %w", id, gorm.ErrRecordNotFound)
	}
	return nil
}

// AdjacentChapters returns the published chapters immediately before and
// after ch in reading order. Either may be nil.
func (r *Repository) AdjacentChapters(ch *entities.Chapter) (prev, next *entities.Chapter, err error) {
	published := r.db.Where("book_id = ? AND published_at IS NOT NULL AND id <> ?", ch.BookID, ch.ID).
		Session(&gorm.Session{})

	var before entities.Chapter
	err = published.
		Where("position < ? OR (position = ? AND id < ?)", ch.Position, ch.Position, ch.ID).
		Order("position DESC, id DESC").Take(&before).Error
	switch {
	case err == nil:
		prev = &before
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil, err
	}

	var after entities.Chapter
	err = published.
		Where("position > ? OR (position = ? AND id > ?)", ch.Position, ch.Position, ch.ID).
		Order("position ASC, id ASC").Take(&after).Error
	switch {
	case err == nil:
		next = &after
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil, err
	}

	return prev, next, nil
}
