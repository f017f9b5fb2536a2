package auth

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/readowl/readowl/internal/config"
	"github.com/readowl/readowl/internal/entities"
)

// Context keys for user data
const (
	ContextKeyUser     = "auth_user"
	ContextKeyUserID   = "auth_user_id"
	ContextKeyUsername = "auth_username"
	ContextKeyRole     = "auth_role"
	ContextKeyAuthType = "auth_type"
)

// AuthType indicates how the user was authenticated
type AuthType string

const (
	AuthTypeNone    AuthType = "none"
	AuthTypeSession AuthType = "session"
	AuthTypeBearer  AuthType = "bearer"
)

// DefaultUserID is used for anonymous readers and when authentication is disabled
const DefaultUserID = uint(0)

// Middleware identifies the caller. Catalog and reading pages are public, so
// the handler never rejects a request by itself; RequireAuth and RequireRole
// guard the routes that need an account.
type Middleware struct {
	service        *Service
	sessionManager *SessionManager
	config         config.Auth
}

func NewMiddleware(service *Service, sessionManager *SessionManager, cfg config.Auth) *Middleware {
	return &Middleware{
		service:        service,
		sessionManager: sessionManager,
		config:         cfg,
	}
}

// Handler returns the identifying middleware.
func (m *Middleware) Handler() gin.HandlerFunc {
	if m.config.Mode == config.AuthModeNone {
		return func(c *gin.Context) {
			c.Set(ContextKeyUserID, DefaultUserID)
			c.Set(ContextKeyRole, entities.UserRoleAdmin)
			c.Set(ContextKeyAuthType, AuthTypeNone)
			c.Next()
		}
	}

	return func(c *gin.Context) {
		if token, ok := bearerToken(c); ok {
			user, err := m.service.ValidateToken(token)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
				return
			}
			setUserContext(c, user, AuthTypeBearer)
			c.Next()
			return
		}

		if m.sessionManager != nil {
			if userID := m.sessionManager.GetUserID(c.Request); userID != 0 {
				if user, err := m.service.GetUserByID(userID); err == nil {
					setUserContext(c, user, AuthTypeSession)
				}
			}
		}

		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	scheme, token, found := strings.Cut(c.GetHeader("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

func setUserContext(c *gin.Context, user *entities.User, authType AuthType) {
	c.Set(ContextKeyUser, user)
	c.Set(ContextKeyUserID, user.ID)
	c.Set(ContextKeyUsername, user.Username)
	c.Set(ContextKeyRole, user.Role)
	c.Set(ContextKeyAuthType, authType)
}

// IsAPIRequest reports whether the caller expects JSON rather than HTML.
func IsAPIRequest(c *gin.Context) bool {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		return true
	}
	if strings.Contains(c.GetHeader("Accept"), "application/json") {
		return true
	}
	return c.GetHeader("Authorization") != ""
}

func (m *Middleware) unauthenticated(c *gin.Context) {
	if IsAPIRequest(c) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	c.Redirect(http.StatusFound, "/login?next="+url.QueryEscape(c.Request.URL.RequestURI()))
	c.Abort()
}

// RequireAuth rejects anonymous callers.
func (m *Middleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.config.Mode == config.AuthModeLocal && GetUserID(c) == DefaultUserID {
			m.unauthenticated(c)
			return
		}
		c.Next()
	}
}

// RequireRole rejects callers whose role ranks below min.
func (m *Middleware) RequireRole(min entities.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.config.Mode == config.AuthModeNone {
			c.Next()
			return
		}
		if GetUserID(c) == DefaultUserID {
			m.unauthenticated(c)
			return
		}
		if !GetUserRole(c).AtLeast(min) {
			if IsAPIRequest(c) {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
			} else {
				c.AbortWithStatus(http.StatusForbidden)
			}
			return
		}
		c.Next()
	}
}

// GetUserID returns the authenticated user's ID, or DefaultUserID.
func GetUserID(c *gin.Context) uint {
	if id, ok := c.Get(ContextKeyUserID); ok {
		if userID, ok := id.(uint); ok {
			return userID
		}
	}
	return DefaultUserID
}

// CurrentUser returns the authenticated user, or nil for anonymous requests
// and when authentication is disabled.
func CurrentUser(c *gin.Context) *entities.User {
	if v, ok := c.Get(ContextKeyUser); ok {
		if user, ok := v.(*entities.User); ok {
			return user
		}
	}
	return nil
}

func GetUsername(c *gin.Context) string {
	return c.GetString(ContextKeyUsername)
}

func GetUserRole(c *gin.Context) entities.UserRole {
	if r, ok := c.Get(ContextKeyRole); ok {
		if role, ok := r.(entities.UserRole); ok {
			return role
		}
	}
	return ""
}

func GetAuthType(c *gin.Context) AuthType {
	if t, ok := c.Get(ContextKeyAuthType); ok {
		if authType, ok := t.(AuthType); ok {
			return authType
		}
	}
	return AuthTypeNone
}

// IsAuthenticated is true for logged-in users and for every request when
// authentication is disabled.
func IsAuthenticated(c *gin.Context) bool {
	if GetUserID(c) != DefaultUserID {
		return true
	}
	_, disabled := c.Get(ContextKeyRole)
	return disabled && GetAuthType(c) == AuthTypeNone
}
