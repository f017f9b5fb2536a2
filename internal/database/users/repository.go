// Package users provides read access to user accounts. Account creation and
// credentials live in the auth service.
//
// # Usage
//
//	repo := users.NewRepository(db)
//	user, err := repo.GetUserByUsername("ana")
package users

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/readowl/readowl/internal/entities"
)

// Repository handles all user database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new users repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetUserByID retrieves a user by ID.
func (r *Repository) GetUserByID(id uint) (*entities.User, error) {
	var user entities.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, fmt.Errorf("user %d: %w", id, err)
	}
	return &user, nil
}

// GetUserByUsername retrieves a user by username.
func (r *Repository) GetUserByUsername(username string) (*entities.User, error) {
	var user entities.User
	if err := r.db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, fmt.Errorf("user %q: %w", username, err)
	}
	return &user, nil
}

// GetUserByEmail retrieves a user by email, ignoring case.
func (r *Repository) GetUserByEmail(email string) (*entities.User, error) {
	var user entities.User
	err := r.db.Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		return nil, fmt.Errorf("user with email: %w", err)
	}
	return &user, nil
}

// ListUsers returns all users ordered by username.
func (r *Repository) ListUsers() ([]entities.User, error) {
	var users []entities.User
	err := r.db.Order("username ASC").Find(&users).Error
	return users, err
}
