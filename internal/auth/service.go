package auth

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/readowl/readowl/internal/config"
	"github.com/readowl/readowl/internal/entities"
	"github.com/readowl/readowl/internal/logging"
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,64}$`)
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrUserExists       = errors.New("user already exists")
	ErrInvalidToken     = errors.New("invalid token")
	ErrTokenExpired     = errors.New("token expired")
	ErrInvalidRole      = errors.New("invalid role")
	ErrUsernameRequired = errors.New("username is required")
	ErrEmailRequired    = errors.New("email is required")
	ErrPasswordRequired = errors.New("password is required")
	ErrAccountLocked    = errors.New("account is locked due to too many failed login attempts")
	ErrUsernameInvalid  = errors.New("username must be 3-64 characters, alphanumeric and underscore/hyphen only")
	ErrEmailInvalid     = errors.New("invalid email format")
)

// Service handles accounts, credentials and API tokens.
type Service struct {
	db     *gorm.DB
	config config.Auth

	resetSender  ResetLinkSender
	resetBaseURL string
}

func NewService(db *gorm.DB, cfg config.Auth) *Service {
	return &Service{
		db:          db,
		config:      cfg,
		resetSender: LogResetLinkSender{Logger: logging.WithComponent("auth")},
	}
}

// Register creates a reader account through public sign-up.
func (s *Service) Register(username, email, password string) (*entities.User, error) {
	return s.CreateUser(username, email, password, entities.UserRoleReader)
}

// CreateUser validates input and stores a new account with a bcrypt password hash.
func (s *Service) CreateUser(username, email, password string, role entities.UserRole) (*entities.User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))

	switch {
	case username == "":
		return nil, ErrUsernameRequired
	case email == "":
		return nil, ErrEmailRequired
	case password == "":
		return nil, ErrPasswordRequired
	case !usernamePattern.MatchString(username):
		return nil, ErrUsernameInvalid
	case len(email) > 254 || !emailPattern.MatchString(email):
		return nil, ErrEmailInvalid
	case !role.Valid():
		return nil, ErrInvalidRole
	}

	var existing entities.User
	err := s.db.Unscoped().Where("username = ? OR LOWER(email) = ?", username, email).First(&existing).Error
	if err == nil {
		return nil, ErrUserExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	passwordHash, err := HashPassword(password, s.config.BcryptCost)
	if err != nil {
		return nil, err
	}

	user := &entities.User{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
	}
	if err := s.db.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Authenticate checks credentials by username or email. Repeated failures
// lock the account for the configured lockout duration.
func (s *Service) Authenticate(login, password string) (*entities.User, error) {
	login = strings.TrimSpace(login)

	var user entities.User
	err := s.db.Where("username = ? OR LOWER(email) = ?", login, strings.ToLower(login)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if user.LockedUntil != nil && time.Now().Before(*user.LockedUntil) {
		return nil, ErrAccountLocked
	}

	if err := CheckPassword(password, user.PasswordHash); err != nil {
		s.recordFailedLogin(&user)
		return nil, err
	}

	now := time.Now()
	s.db.Model(&user).Updates(map[string]any{
		"last_login_at":      now,
		"failed_login_count": 0,
		"locked_until":       nil,
	})
	user.LastLoginAt = &now

	return &user, nil
}

func (s *Service) recordFailedLogin(user *entities.User) {
	user.FailedLoginCount++
	updates := map[string]any{"failed_login_count": user.FailedLoginCount}

	threshold := s.config.MaxLoginAttempts
	if threshold <= 0 {
		threshold = 5
	}
	if user.FailedLoginCount >= threshold {
		lockout := s.config.LockoutDuration
		if lockout <= 0 {
			lockout = 30 * time.Minute
		}
		updates["locked_until"] = time.Now().Add(lockout)
		logging.WithComponent("auth").Warn().Uint("user_id", user.ID).Msg("account locked after failed logins")
	}

	s.db.Model(user).Updates(updates)
}

func (s *Service) GetUserByID(id uint) (*entities.User, error) {
	var user entities.User
	if err := s.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// ValidateToken resolves a plaintext API token to its user.
func (s *Service) ValidateToken(token string) (*entities.User, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	var user entities.User
	err := s.db.Where("token_hash = ?", HashToken(token)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	if s.config.TokenExpiry > 0 && user.TokenCreatedAt != nil &&
		time.Since(*user.TokenCreatedAt) > s.config.TokenExpiry {
		return nil, ErrTokenExpired
	}

	return &user, nil
}

// GenerateToken replaces the user's API token and returns the plaintext,
// which is never stored.
func (s *Service) GenerateToken(userID uint) (string, error) {
	plaintext, err := randomToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	res := s.db.Model(&entities.User{}).Where("id = ?", userID).Updates(map[string]any{
		"token_hash":       HashToken(plaintext),
		"token_created_at": time.Now(),
	})
	if res.Error != nil {
		return "", fmt.Errorf("failed to save token: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return "", ErrUserNotFound
	}

	return plaintext, nil
}

func (s *Service) RevokeToken(userID uint) error {
	err := s.db.Model(&entities.User{}).Where("id = ?", userID).Updates(map[string]any{
		"token_hash":       "",
		"token_created_at": nil,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// ChangePassword verifies the old password before storing the new one.
func (s *Service) ChangePassword(userID uint, oldPassword, newPassword string) error {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return err
	}
	if err := CheckPassword(oldPassword, user.PasswordHash); err != nil {
		return err
	}

	newHash, err := HashPassword(newPassword, s.config.BcryptCost)
	if err != nil {
		return err
	}
	return s.db.Model(user).Update("password_hash", newHash).Error
}

// SetRole changes a user's role.
func (s *Service) SetRole(userID uint, role entities.UserRole) error {
	if !role.Valid() {
		return ErrInvalidRole
	}
	res := s.db.Model(&entities.User{}).Where("id = ?", userID).Update("role", role)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// PromoteToAuthor lets a reader publish books. Authors and admins are left unchanged.
func (s *Service) PromoteToAuthor(userID uint) (*entities.User, error) {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return nil, err
	}
	if user.Role.AtLeast(entities.UserRoleAuthor) {
		return user, nil
	}
	if err := s.SetRole(userID, entities.UserRoleAuthor); err != nil {
		return nil, err
	}
	user.Role = entities.UserRoleAuthor
	return user, nil
}

func (s *Service) HasUsers() (bool, error) {
	var count int64
	if err := s.db.Model(&entities.User{}).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Service) IsAuthEnabled() bool {
	return s.config.Mode == config.AuthModeLocal
}

func (s *Service) AuthMode() config.AuthMode {
	return s.config.Mode
}
