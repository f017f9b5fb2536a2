package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/readowl/readowl/internal/entities"
)

const defaultResetTokenTTL = time.Hour

// ResetLinkSender delivers a password reset link to a user.
type ResetLinkSender interface {
	SendResetLink(ctx context.Context, user *entities.User, link string) error
}

// LogResetLinkSender writes reset links to the log instead of mailing them.
type LogResetLinkSender struct {
	Logger zerolog.Logger
}

func (l LogResetLinkSender) SendResetLink(_ context.Context, user *entities.User, link string) error {
	l.Logger.Info().
		Uint("user_id", user.ID).
		Str("email", user.Email).
		Str("link", link).
		Msg("password reset requested")
	return nil
}

// SetResetLinkSender replaces the delivery channel for reset links. baseURL
// is the public origin prefixed to /reset-password.
func (s *Service) SetResetLinkSender(sender ResetLinkSender, baseURL string) {
	if sender != nil {
		s.resetSender = sender
	}
	s.resetBaseURL = strings.TrimRight(baseURL, "/")
}

func (s *Service) resetTTL() time.Duration {
	if s.config.ResetTokenTTL > 0 {
		return s.config.ResetTokenTTL
	}
	return defaultResetTokenTTL
}

// RequestPasswordReset issues a single-use reset token for the account
// registered under email and hands the link to the ResetLinkSender. Unknown
// addresses return an empty token and no error so callers cannot probe for
// accounts. Earlier unused tokens of the user are revoked.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", ErrEmailRequired
	}

	var user entities.User
	if err := s.db.Where("LOWER(email) = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("find user for reset: %w", err)
	}

	token, err := randomToken()
	if err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND used_at IS NULL", user.ID).
			Delete(&entities.PasswordResetToken{}).Error; err != nil {
			return err
		}
		return tx.Create(&entities.PasswordResetToken{
			UserID:    user.ID,
			TokenHash: HashToken(token),
			ExpiresAt: time.Now().Add(s.resetTTL()),
		}).Error
	})
	if err != nil {
		return "", fmt.Errorf("store reset token: %w", err)
	}

	link := s.resetBaseURL + "/reset-password?token=" + url.QueryEscape(token)
	if err := s.resetSender.SendResetLink(ctx, &user, link); err != nil {
		return "", fmt.Errorf("send reset link: %w", err)
	}

	return token, nil
}

// ResetPassword consumes a reset token and sets a new password. It also
// clears any login lockout on the account.
func (s *Service) ResetPassword(token, newPassword string) error {
	if token == "" {
		return ErrInvalidToken
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var rt entities.PasswordResetToken
		if err := tx.Where("token_hash = ?", HashToken(token)).First(&rt).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvalidToken
			}
			return err
		}
		if rt.UsedAt != nil {
			return ErrInvalidToken
		}
		if time.Now().After(rt.ExpiresAt) {
			return ErrTokenExpired
		}

		hash, err := HashPassword(newPassword, s.config.BcryptCost)
		if err != nil {
			return err
		}

		res := tx.Model(&entities.User{}).Where("id = ?", rt.UserID).Updates(map[string]any{
			"password_hash":      hash,
			"failed_login_count": 0,
			"locked_until":       nil,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrUserNotFound
		}

		return tx.Model(&rt).Update("used_at", time.Now()).Error
	})
}

// DeleteExpiredResetTokens removes used and expired reset tokens.
func (s *Service) DeleteExpiredResetTokens() (int64, error) {
	res := s.db.Where("used_at IS NOT NULL OR expires_at < ?", time.Now()).
		Delete(&entities.PasswordResetToken{})
	return res.RowsAffected, res.Error
}
