package entities

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string

const (
	UserRoleReader UserRole = "reader"
	UserRoleAuthor UserRole = "author"
	UserRoleAdmin  UserRole = "admin"
)

var roleRank = map[UserRole]int{
	UserRoleReader: 1,
	UserRoleAuthor: 2,
	UserRoleAdmin:  3,
}

// Valid reports whether r is a known role.
func (r UserRole) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether r grants everything min grants.
func (r UserRole) AtLeast(min UserRole) bool {
	return roleRank[r] >= roleRank[min] && roleRank[r] > 0
}

type User struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	Username         string         `gorm:"uniqueIndex;size:100" json:"username"`
	Email            string         `gorm:"uniqueIndex;size:255" json:"email"`
	PasswordHash     string         `gorm:"size:255" json:"-"`
	Role             UserRole       `gorm:"size:20;default:reader" json:"role"`
	TokenHash        string         `gorm:"index;size:64" json:"-"`
	TokenCreatedAt   *time.Time     `json:"-"`
	FailedLoginCount int            `gorm:"default:0" json:"-"`
	LockedUntil      *time.Time     `json:"-"`
	LastLoginAt      *time.Time     `json:"last_login_at,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == UserRoleAdmin
}

// CanWrite reports whether the user may create books and chapters.
func (u *User) CanWrite() bool {
	return u != nil && u.Role.AtLeast(UserRoleAuthor)
}

// PasswordResetToken is a single-use credential for resetting a password.
// Only the SHA-256 hash of the token is stored.
type PasswordResetToken struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"index;not null"`
	TokenHash string    `gorm:"uniqueIndex;size:64;not null"`
	ExpiresAt time.Time `gorm:"index"`
	UsedAt    *time.Time
	CreatedAt time.Time
}

func (PasswordResetToken) TableName() string {
	return "password_reset_tokens"
}
