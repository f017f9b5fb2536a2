package auth

import (
	"database/sql"
	"encoding/gob"
	"fmt"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"

	"github.com/readowl/readowl/internal/config"
	"github.com/readowl/readowl/internal/entities"
)

const (
	SessionKeyUserID  = "user_id"
	SessionKeyLoginAt = "login_at"
	// SessionKeyFlash carries a one-shot message across a redirect.
	SessionKeyFlash = "flash"
)

const sessionCookieName = "readowl_session"

func init() {
	gob.Register(time.Time{})
}

// SessionManager stores browser sessions in the application database.
// Only the user ID is kept in the session; the user row is reloaded on
// every request so role changes and deletions apply immediately.
type SessionManager struct {
	*scs.SessionManager
}

// NewSessionManager creates the sessions table if needed and returns a
// manager backed by it. sqlDB is the handle underneath GORM.
func NewSessionManager(sqlDB *sql.DB, cfg config.Auth) (*SessionManager, error) {
	_, err := sqlDB.Exec(`CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		expiry REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS sessions_expiry_idx ON sessions(expiry);`)
	if err != nil {
		return nil, fmt.Errorf("create sessions table: %w", err)
	}

	sm := scs.New()
	sm.Store = sqlite3store.New(sqlDB)
	sm.Lifetime = cfg.SessionLifetime
	sm.IdleTimeout = cfg.SessionLifetime / 2
	sm.Cookie.Name = sessionCookieName
	sm.Cookie.HttpOnly = true
	sm.Cookie.Secure = cfg.SecureCookies
	// Lax so that links from notification emails and other sites keep the
	// reader logged in.
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Path = "/"

	return &SessionManager{SessionManager: sm}, nil
}

// CreateSession logs the user in on this request's session. The token is
// renewed first to prevent session fixation.
func (sm *SessionManager) CreateSession(r *http.Request, user *entities.User) error {
	if err := sm.RenewToken(r.Context()); err != nil {
		return err
	}
	sm.Put(r.Context(), SessionKeyUserID, int(user.ID))
	sm.Put(r.Context(), SessionKeyLoginAt, time.Now())
	return nil
}

func (sm *SessionManager) DestroySession(r *http.Request) error {
	return sm.Destroy(r.Context())
}

// GetUserID returns the logged-in user's ID, or 0.
func (sm *SessionManager) GetUserID(r *http.Request) uint {
	id := sm.GetInt(r.Context(), SessionKeyUserID)
	if id <= 0 {
		return 0
	}
	return uint(id)
}

func (sm *SessionManager) SetFlash(r *http.Request, msg string) {
	sm.Put(r.Context(), SessionKeyFlash, msg)
}

// PopFlash returns and clears the pending flash message.
func (sm *SessionManager) PopFlash(r *http.Request) string {
	return sm.PopString(r.Context(), SessionKeyFlash)
}
