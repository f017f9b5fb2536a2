// Package settings provides database operations for runtime settings.
//
// # Usage
//
//	repo := settings.NewRepository(db)
//	setting, err := repo.GetSetting(entities.SettingKeyBotKeywords)
package settings

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/readowl/readowl/internal/entities"
)

// Repository handles all settings database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new settings repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetSetting retrieves a setting by key.
func (r *Repository) GetSetting(key string) (*entities.Setting, error) {
	var setting entities.Setting
	if err := r.db.Where("key = ?", key).First(&setting).Error; err != nil {
		return nil, fmt.Errorf("setting %q: %w", key, err)
	}
	return &setting, nil
}

// SetSetting creates or updates a setting.
func (r *Repository) SetSetting(key, value string) error {
	setting := entities.Setting{Key: key, Value: value}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&setting).Error
}

// DeleteSetting removes a setting by key. Deleting a missing key is not an error.
func (r *Repository) DeleteSetting(key string) error {
	return r.db.Where("key = ?", key).Delete(&entities.Setting{}).Error
}
