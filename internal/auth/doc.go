// Package auth manages accounts, sessions, API tokens and access control.
//
// Reading is public: the middleware identifies the caller from a bearer
// token or session cookie when one is present and lets anonymous requests
// through. Routes that need an account or a role are wrapped with
// RequireAuth and RequireRole. Roles are ordered reader < author < admin.
//
// # Modes
//
//	AUTH_MODE=local  # default; accounts, sessions and API tokens
//	AUTH_MODE=none   # development; every request acts as an administrator
//
// Further settings for local mode:
//
//	AUTH_SESSION_SECRET=<base64-32-bytes>  # generated and logged if empty
//	AUTH_SESSION_LIFETIME=24h
//	AUTH_TOKEN_EXPIRY=720h
//	AUTH_ALLOW_SIGNUP=true                 # public reader registration
//	AUTH_RESET_TOKEN_TTL=1h
//
// # Usage
//
//	svc := auth.NewService(db, cfg.Auth)
//	mw := auth.NewMiddleware(svc, sessions, cfg.Auth)
//	router.Use(sessions.LoadAndSave(), mw.Handler())
//	writers := router.Group("/api/books", mw.RequireRole(entities.UserRoleAuthor))
package auth
