// Package follows stores which readers follow which books.
package follows

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/readowl/readowl/internal/entities"
)

// Repository handles book follow operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new follows repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Follow subscribes userID to bookID. Following twice is a no-op.
func (r *Repository) Follow(userID, bookID uint) error {
	return r.db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&entities.BookFollow{UserID: userID, BookID: bookID}).Error
}

// Unfollow removes the subscription if present.
func (r *Repository) Unfollow(userID, bookID uint) error {
	return r.db.Where("user_id = ? AND book_id = ?", userID, bookID).
		Delete(&entities.BookFollow{}).Error
}

func (r *Repository) IsFollowing(userID, bookID uint) (bool, error) {
	var count int64
	err := r.db.Model(&entities.BookFollow{}).
		Where("user_id = ? AND book_id = ?", userID, bookID).
		Count(&count).Error
	return count > 0, err
}

// ListFollowerIDs returns the IDs of every user following bookID.
func (r *Repository) ListFollowerIDs(bookID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&entities.BookFollow{}).
		Where("book_id = ?", bookID).
		Order("user_id ASC").
		Pluck("user_id", &ids).Error
	return ids, err
}

func (r *Repository) CountFollowers(bookID uint) (int64, error) {
	var count int64
	err := r.db.Model(&entities.BookFollow{}).Where("book_id = ?", bookID).Count(&count).Error
	return count, err
}

// ListFollowedBooks returns the books userID follows, most recently followed first.
func (r *Repository) ListFollowedBooks(userID uint) ([]entities.Book, error) {
	var books []entities.Book
	err := r.db.Joins("JOIN book_follows ON book_follows.book_id = books.id").
		Where("book_follows.user_id = ?", userID).
		Order("book_follows.created_at DESC").
		Find(&books).Error
	return books, err
}
