// Package notifications stores per-user notifications.
package notifications

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/readowl/readowl/internal/entities"
)

const batchSize = 100

// Repository handles notification operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new notifications repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateNotifications inserts notifications in batches.
func (r *Repository) CreateNotifications(items []entities.Notification) error {
	if len(items) == 0 {
		return nil
	}
	if err := r.db.CreateInBatches(items, batchSize).Error; err != nil {
		return fmt.Errorf("create notifications: %w", err)
	}
	return nil
}

// ListNotifications returns a page of a user's notifications, newest first,
// along with the total matching count.
func (r *Repository) ListNotifications(userID uint, unreadOnly bool, limit, offset int) ([]entities.Notification, int64, error) {
	query := r.db.Model(&entities.Notification{}).Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("read_at IS NULL")
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var items []entities.Notification
	err := query.Order("created_at DESC, id DESC").Find(&items).Error
	return items, total, err
}

func (r *Repository) UnreadCount(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&entities.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Count(&count).Error
	return count, err
}

// GetNotification returns one of the user's notifications. Notifications
// owned by someone else are reported as not found.
func (r *Repository) GetNotification(userID, id uint) (*entities.Notification, error) {
	var n entities.Notification
	if err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&n).Error; err != nil {
		return nil, fmt.Errorf("notification %d: %w", id, err)
	}
	return &n, nil
}

// MarkRead marks one of the user's notifications read. Notifications owned
// by someone else are reported as not found.
func (r *Repository) MarkRead(userID, id uint) error {
	n, err := r.GetNotification(userID, id)
	if err != nil {
		return err
	}
	if n.ReadAt != nil {
		return nil
	}
	return r.db.Model(n).Update("read_at", time.Now()).Error
}

// MarkAllRead marks every unread notification of the user and returns how many changed.
func (r *Repository) MarkAllRead(userID uint) (int64, error) {
	res := r.db.Model(&entities.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Update("read_at", time.Now())
	return res.RowsAffected, res.Error
}

// DeleteReadOlderThan removes read notifications created before now-age.
func (r *Repository) DeleteReadOlderThan(age time.Duration) (int64, error) {
	cutoff := time.Now().Add(-age)
	res := r.db.Where("read_at IS NOT NULL AND created_at < ?", cutoff).
		Delete(&entities.Notification{})
	return res.RowsAffected, res.Error
}
