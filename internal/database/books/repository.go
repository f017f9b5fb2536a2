// Package books provides database operations for books.
//
// Every book carries a persisted, unique slug assigned through slug.Unique
// when the book is created or renamed. Rows written before the slug column
// existed have an empty slug; GetBookBySlug resolves those by recomputing
// slugs over their titles (lowest id wins) and stores the result, and
// BackfillSlugs assigns them all in one pass.
//
// # Usage
//
//	repo := books.NewRepository(db)
//	book, err := repo.GetBookBySlug("o-monarca-do-ceu")
package books

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/readowl/readowl/internal/entities"
	"github.com/readowl/readowl/internal/logging"
	"github.com/readowl/readowl/internal/metrics"
	"github.com/readowl/readowl/internal/slug"
)

// insertAttempts bounds retries when a concurrent insert claims the slug
// between the availability check and the insert.
const insertAttempts = 3

// Repository handles all book database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// SlugTaken reports whether another book (soft-deleted ones included, they
// still hold the unique index) uses s. excludeID skips the book being renamed.
func (r *Repository) SlugTaken(s string, excludeID uint) (bool, error) {
	var count int64
	q := r.db.Unscoped().Model(&entities.Book{}).Where("slug = ?", s)
	if excludeID > 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *Repository) assignSlug(title string, excludeID uint) (string, error) {
	base := slug.Slugify(title)
	s, err := slug.Unique(base, func(candidate string) (bool, error) {
		return r.SlugTaken(candidate, excludeID)
	})
	if err != nil {
		return "", err
	}
	if base != "" && s != base {
		metrics.SlugCollisionsTotal.Inc()
	}
	return s, nil
}

// CreateBook inserts book with a freshly assigned unique slug.
func (r *Repository) CreateBook(book *entities.Book) error {
	book.Title = strings.TrimSpace(book.Title)
	if book.Status == "" {
		book.Status = entities.BookStatusOngoing
	}

	var err error
	for attempt := 0; attempt < insertAttempts; attempt++ {
		book.Slug, err = r.assignSlug(book.Title, 0)
		if err != nil {
			return fmt.Errorf("assign slug: %w", err)
		}

		err = r.db.Omit("Author", "Chapters").Create(book).Error
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			break
		}
		book.ID = 0
	}
	if err != nil {
		return fmt.Errorf("create book: %w", err)
	}
	return nil
}

// UpdateBook saves the editable fields of book. A changed title gets a new
// slug; the old slug stops resolving.
func (r *Repository) UpdateBook(book *entities.Book) error {
	var current entities.Book
	if err := r.db.Select("id", "title", "slug").First(&current, book.ID).Error; err != nil {
		return fmt.Errorf("load book %d: %w", book.ID, err)
	}

	book.Title = strings.TrimSpace(book.Title)
	book.Slug = current.Slug
	if current.Slug == "" || slug.Slugify(book.Title) != slug.Slugify(current.Title) {
		s, err := r.assignSlug(book.Title, book.ID)
		if err != nil {
			return fmt.Errorf("assign slug: %w", err)
		}
		book.Slug = s
	}

	err := r.db.Model(&entities.Book{ID: book.ID}).
		Select("title", "slug", "synopsis", "genre", "status", "cover_url").
		Updates(book).Error
	if err != nil {
		return fmt.Errorf("update book %d: %w", book.ID, err)
	}
	return nil
}

// GetBookByID retrieves a book by its ID with its author.
func (r *Repository) GetBookByID(id uint) (*entities.Book, error) {
	var book entities.Book
	err := r.db.Preload("Author").First(&book, id).Error
	if err != nil {
		return nil, fmt.Errorf("book %d: %w", id, err)
	}
	return &book, nil
}

// GetBookBySlug resolves a slug through the indexed column, falling back to
// legacy rows without a stored slug.
func (r *Repository) GetBookBySlug(s string) (*entities.Book, error) {
	if !slug.IsValid(s) {
		return nil, fmt.Errorf("book %q: %w", s, gorm.ErrRecordNotFound)
	}

	var book entities.Book
	err := r.db.Preload("Author").Where("slug = ?", s).First(&book).Error
	if err == nil {
		return &book, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("book %q: %w", s, err)
	}

	return r.resolveLegacy(s)
}

func (r *Repository) resolveLegacy(s string) (*entities.Book, error) {
	var legacy []entities.Book
	err := r.db.Select("id", "title").Where("slug = ''").Order("id ASC").Find(&legacy).Error
	if err != nil {
		return nil, fmt.Errorf("book %q: %w", s, err)
	}

	match, ok := slug.Match(legacy, s, func(b entities.Book) string { return b.Title })
	if !ok {
		return nil, fmt.Errorf("book %q: %w", s, gorm.ErrRecordNotFound)
	}

	if err := r.storeResolvedSlug(match, s); err != nil {
		// The book still resolves; the slug is stored on a later request.
		logging.WithComponent("books").Warn().Err(err).
			Uint("book_id", match.ID).Msg("failed to persist resolved slug")
	}

	return r.GetBookByID(match.ID)
}

// storeResolvedSlug saves s on a legacy book. When a soft-deleted book still
// holds s, the book gets the suffixed slug BackfillSlugs would give it.
func (r *Repository) storeResolvedSlug(b entities.Book, s string) error {
	taken, err := r.SlugTaken(s, b.ID)
	if err != nil {
		return err
	}
	if taken {
		if s, err = r.assignSlug(b.Title, b.ID); err != nil {
			return err
		}
	}
	return r.db.Model(&entities.Book{}).
		Where("id = ? AND slug = ''", b.ID).
		Update("slug", s).Error
}

// ListBooks returns a page of books, most recently updated first, plus the total count.
func (r *Repository) ListBooks(limit, offset int) ([]entities.Book, int64, error) {
	var total int64
	if err := r.db.Model(&entities.Book{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var books []entities.Book
	query := r.db.Preload("Author").Order("updated_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	if err := query.Find(&books).Error; err != nil {
		return nil, 0, err
	}
	return books, total, nil
}

// ListBooksByAuthor returns every book written by authorID.
func (r *Repository) ListBooksByAuthor(authorID uint) ([]entities.Book, error) {
	var books []entities.Book
	err := r.db.Where("author_id = ?", authorID).Order("title ASC").Find(&books).Error
	return books, err
}

// SearchBooks matches query against titles and genres.
func (r *Repository) SearchBooks(query string, limit int) ([]entities.Book, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []entities.Book{}, nil
	}
	if limit <= 0 {
		limit = 20
	}

	pattern := "%" + strings.ToLower(query) + "%"
	var books []entities.Book
	err := r.db.Preload("Author").
		Where("LOWER(title) LIKE ? OR LOWER(genre) LIKE ?", pattern, pattern).
		Order("views DESC, id ASC").
		Limit(limit).
		Find(&books).Error
	return books, err
}

// DeleteBook soft-deletes a book with its chapters and drops its followers.
func (r *Repository) DeleteBook(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&entities.Book{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("book %d: %w", id, gorm.ErrRecordNotFound)
		}
		if err := tx.Where("book_id = ?", id).Delete(&entities.Chapter{}).Error; err != nil {
			return err
		}
		return tx.Where("book_id = ?", id).Delete(&entities.BookFollow{}).Error
	})
}

// IncrementViews adds one to the stored view counter without touching updated_at.
func (r *Repository) IncrementViews(id uint) error {
	return r.db.Model(&entities.Book{}).Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + ?", 1)).Error
}

// BackfillSlugs assigns slugs to every book without one, in id order, and
// returns how many were updated.
func (r *Repository) BackfillSlugs() (int, error) {
	var legacy []entities.Book
	if err := r.db.Select("id", "title").Where("slug = ''").Order("id ASC").Find(&legacy).Error; err != nil {
		return 0, fmt.Errorf("list books without slug: %w", err)
	}

	updated := 0
	for _, b := range legacy {
		s, err := r.assignSlug(b.Title, b.ID)
		if err != nil {
			return updated, fmt.Errorf("assign slug to book %d: %w", b.ID, err)
		}
		res := r.db.Model(&entities.Book{}).Where("id = ? AND slug = ''", b.ID).Update("slug", s)
		if res.Error != nil {
			return updated, fmt.Errorf("store slug for book %d: %w", b.ID, res.Error)
		}
		updated += int(res.RowsAffected)
	}
	return updated, nil
}
