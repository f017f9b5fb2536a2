package auth

import (
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/readowl/readowl/internal/config"
	"github.com/readowl/readowl/internal/entities"
	"github.com/readowl/readowl/internal/logging"
)

// setupMu serializes first-admin creation so two concurrent requests cannot
// both pass the HasUsers check.
var setupMu sync.Mutex

// safeRedirect keeps post-login redirects on this site.
func safeRedirect(path string) string {
	if !strings.HasPrefix(path, "/") ||
		strings.HasPrefix(path, "//") ||
		strings.Contains(path, "://") ||
		strings.Contains(path, `\`) {
		return "/"
	}
	return path
}

// describeError maps account errors to messages fit for a form.
func describeError(err error) string {
	switch {
	case errors.Is(err, ErrPasswordTooShort):
		return "Password must be at least 12 characters"
	case errors.Is(err, ErrPasswordTooLong):
		return "Password exceeds maximum length of 72 characters"
	case errors.Is(err, ErrUsernameRequired):
		return "Username is required"
	case errors.Is(err, ErrUsernameInvalid):
		return "Username must be 3-64 characters: letters, digits, underscore or hyphen"
	case errors.Is(err, ErrEmailRequired):
		return "Email is required"
	case errors.Is(err, ErrEmailInvalid):
		return "Invalid email format"
	case errors.Is(err, ErrUserExists):
		return "That username or email is already taken"
	case errors.Is(err, ErrInvalidToken):
		return "This reset link is invalid or was already used"
	case errors.Is(err, ErrTokenExpired):
		return "This reset link has expired"
	default:
		return "Something went wrong. Please try again."
	}
}

// AuthController serves the login, sign-up, setup and password reset pages.
type AuthController struct {
	service        *Service
	sessionManager *SessionManager
	templates      *template.Template
	config         config.Auth
	limiter        *RateLimiter
	log            zerolog.Logger
}

// NewAuthController parses auth/*.html together with partials.html from
// templates. With a nil templates FS the pages answer with their data as
// JSON.
func NewAuthController(service *Service, sessionManager *SessionManager, templates fs.FS, cfg config.Auth) *AuthController {
	log := logging.WithComponent("auth")

	var tmpl *template.Template
	if templates != nil {
		parsed, err := template.ParseFS(templates, "partials.html", "auth/*.html")
		if err != nil {
			log.Warn().Err(err).Msg("auth templates not loaded")
		} else {
			tmpl = parsed
		}
	}

	return &AuthController{
		service:        service,
		sessionManager: sessionManager,
		templates:      tmpl,
		config:         cfg,
		limiter:        NewRateLimiter(cfg.MaxLoginAttempts, cfg.RateLimitWindow, cfg.LockoutDuration),
		log:            log,
	}
}

// Limiter exposes the login rate limiter so maintenance can prune it.
func (ac *AuthController) Limiter() *RateLimiter {
	return ac.limiter
}

func (ac *AuthController) RegisterRoutes(router gin.IRouter) {
	router.GET("/login", ac.LoginPage)
	router.POST("/login", ac.Login)
	router.POST("/logout", ac.Logout)
	router.GET("/register", ac.RegisterPage)
	router.POST("/register", ac.Register)
	router.GET("/setup", ac.SetupPage)
	router.POST("/setup", ac.Setup)
	router.GET("/forgot-password", ac.ForgotPasswordPage)
	router.POST("/forgot-password", ac.limiter.Middleware("email"), ac.ForgotPassword)
	router.GET("/reset-password", ac.ResetPasswordPage)
	router.POST("/reset-password", ac.ResetPassword)
}

func (ac *AuthController) page(c *gin.Context, title string, data gin.H) gin.H {
	out := gin.H{
		"Title":     title,
		"CSRFToken": GetCSRFToken(c),
		"CSRFField": CSRFField(c),
		"Error":     c.Query("error"),
	}
	if ac.sessionManager != nil {
		out["Flash"] = ac.sessionManager.PopFlash(c.Request)
	}
	for k, v := range data {
		out[k] = v
	}
	return out
}

func (ac *AuthController) LoginPage(c *gin.Context) {
	if ac.sessionManager != nil && ac.sessionManager.GetUserID(c.Request) != 0 {
		c.Redirect(http.StatusFound, "/")
		return
	}
	if hasUsers, err := ac.service.HasUsers(); err == nil && !hasUsers {
		c.Redirect(http.StatusFound, "/setup")
		return
	}

	ac.render(c, http.StatusOK, "login.html", ac.page(c, "Log in", gin.H{
		"Next":        safeRedirect(c.Query("next")),
		"AllowSignup": ac.config.AllowSignup,
	}))
}

// Login accepts a username or email with a password.
func (ac *AuthController) Login(c *gin.Context) {
	login := strings.TrimSpace(c.PostForm("username"))
	password := c.PostForm("password")
	next := safeRedirect(c.PostForm("next"))
	ip := c.ClientIP()

	fail := func(status int, msg string) {
		ac.render(c, status, "login.html", ac.page(c, "Log in", gin.H{
			"Next":        next,
			"Username":    login,
			"Error":       msg,
			"AllowSignup": ac.config.AllowSignup,
		}))
	}

	if ok, retryAfter := ac.limiter.Allow(ip, login); !ok {
		c.Header("Retry-After", retryAfter.Round(time.Second).String())
		fail(http.StatusTooManyRequests, "Too many login attempts. Please try again later.")
		return
	}

	user, err := ac.service.Authenticate(login, password)
	if err != nil {
		ac.limiter.RecordFailure(ip, login)
		msg := "Invalid username or password"
		if errors.Is(err, ErrAccountLocked) {
			msg = "Account is locked. Please try again later."
		}
		ac.log.Info().Str("login", login).Str("ip", ip).Msg("login failed")
		fail(http.StatusUnauthorized, msg)
		return
	}
	ac.limiter.RecordSuccess(ip, login)

	if err := ac.sessionManager.CreateSession(c.Request, user); err != nil {
		ac.log.Error().Err(err).Uint("user_id", user.ID).Msg("failed to create session")
		fail(http.StatusInternalServerError, "Failed to create session")
		return
	}

	c.Redirect(http.StatusFound, next)
}

func (ac *AuthController) Logout(c *gin.Context) {
	if ac.sessionManager != nil {
		if err := ac.sessionManager.DestroySession(c.Request); err != nil {
			ac.log.Warn().Err(err).Msg("failed to destroy session")
		}
	}
	c.Redirect(http.StatusFound, "/")
}

func (ac *AuthController) RegisterPage(c *gin.Context) {
	if !ac.config.AllowSignup {
		c.Redirect(http.StatusFound, "/login")
		return
	}
	ac.render(c, http.StatusOK, "register.html", ac.page(c, "Create an account", nil))
}

// Register creates a reader account and logs it in.
func (ac *AuthController) Register(c *gin.Context) {
	if !ac.config.AllowSignup {
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	username := c.PostForm("username")
	email := c.PostForm("email")
	password := c.PostForm("password")

	fail := func(msg string) {
		ac.render(c, http.StatusBadRequest, "register.html", ac.page(c, "Create an account", gin.H{
			"Username": username,
			"Email":    email,
			"Error":    msg,
		}))
	}

	if password != c.PostForm("confirm_password") {
		fail("Passwords do not match")
		return
	}

	user, err := ac.service.Register(username, email, password)
	if err != nil {
		fail(describeError(err))
		return
	}
	ac.log.Info().Uint("user_id", user.ID).Str("username", user.Username).Msg("account registered")

	if err := ac.sessionManager.CreateSession(c.Request, user); err != nil {
		ac.log.Error().Err(err).Msg("failed to create session after registration")
		c.Redirect(http.StatusFound, "/login")
		return
	}
	c.Redirect(http.StatusFound, "/")
}

func (ac *AuthController) SetupPage(c *gin.Context) {
	hasUsers, err := ac.service.HasUsers()
	if err != nil {
		ac.render(c, http.StatusInternalServerError, "setup.html", ac.page(c, "Initial setup", gin.H{
			"Error": "Database error. Please try again.",
		}))
		return
	}
	if hasUsers {
		c.Redirect(http.StatusFound, "/login")
		return
	}
	ac.render(c, http.StatusOK, "setup.html", ac.page(c, "Initial setup", nil))
}

// Setup creates the first administrator. It is refused once any account
// exists.
func (ac *AuthController) Setup(c *gin.Context) {
	setupMu.Lock()
	defer setupMu.Unlock()

	hasUsers, err := ac.service.HasUsers()
	if err != nil {
		ac.render(c, http.StatusInternalServerError, "setup.html", ac.page(c, "Initial setup", gin.H{
			"Error": "Database error. Please try again.",
		}))
		return
	}
	if hasUsers {
		c.Redirect(http.StatusFound, "/login")
		return
	}

	username := c.PostForm("username")
	email := c.PostForm("email")
	password := c.PostForm("password")

	fail := func(msg string) {
		ac.render(c, http.StatusBadRequest, "setup.html", ac.page(c, "Initial setup", gin.H{
			"Username": username,
			"Email":    email,
			"Error":    msg,
		}))
	}

	if password != c.PostForm("confirm_password") {
		fail("Passwords do not match")
		return
	}

	user, err := ac.service.CreateUser(username, email, password, entities.UserRoleAdmin)
	if err != nil {
		fail(describeError(err))
		return
	}
	ac.log.Info().Uint("user_id", user.ID).Msg("initial admin created")

	if ac.sessionManager != nil {
		_ = ac.sessionManager.CreateSession(c.Request, user)
	}
	c.Redirect(http.StatusFound, "/")
}

func (ac *AuthController) ForgotPasswordPage(c *gin.Context) {
	ac.render(c, http.StatusOK, "forgot_password.html", ac.page(c, "Reset your password", nil))
}

// ForgotPassword always answers with the same confirmation so the form
// cannot be used to discover which emails have accounts.
func (ac *AuthController) ForgotPassword(c *gin.Context) {
	email := c.PostForm("email")
	if _, err := ac.service.RequestPasswordReset(c.Request.Context(), email); err != nil {
		if errors.Is(err, ErrEmailRequired) {
			ac.render(c, http.StatusBadRequest, "forgot_password.html", ac.page(c, "Reset your password", gin.H{
				"Error": describeError(err),
			}))
			return
		}
		ac.log.Error().Err(err).Msg("password reset request failed")
	}
	// Count every request so one IP cannot flood reset emails.
	ac.limiter.RecordFailure(c.ClientIP(), email)

	ac.render(c, http.StatusOK, "forgot_password.html", ac.page(c, "Reset your password", gin.H{
		"Sent": true,
	}))
}

func (ac *AuthController) ResetPasswordPage(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.Redirect(http.StatusFound, "/forgot-password")
		return
	}
	ac.render(c, http.StatusOK, "reset_password.html", ac.page(c, "Choose a new password", gin.H{
		"Token": token,
	}))
}

func (ac *AuthController) ResetPassword(c *gin.Context) {
	token := c.PostForm("token")
	password := c.PostForm("password")

	fail := func(msg string) {
		ac.render(c, http.StatusBadRequest, "reset_password.html", ac.page(c, "Choose a new password", gin.H{
			"Token": token,
			"Error": msg,
		}))
	}

	if password != c.PostForm("confirm_password") {
		fail("Passwords do not match")
		return
	}
	if err := ac.service.ResetPassword(token, password); err != nil {
		fail(describeError(err))
		return
	}

	if ac.sessionManager != nil {
		ac.sessionManager.SetFlash(c.Request, "Password updated. Please log in.")
	}
	c.Redirect(http.StatusFound, "/login")
}

// render executes an auth template, or writes data as JSON when templates
// are not loaded.
func (ac *AuthController) render(c *gin.Context, status int, name string, data gin.H) {
	if ac.templates == nil {
		delete(data, "CSRFField")
		c.JSON(status, data)
		return
	}

	c.Status(status)
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := ac.templates.ExecuteTemplate(c.Writer, name, data); err != nil {
		ac.log.Error().Err(err).Str("template", name).Msg("failed to render template")
	}
}

// PasswordRequest is the body of POST /api/auth/password.
type PasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

// ChangePassword lets a logged-in user replace their password.
func (tc *APITokenController) ChangePassword(c *gin.Context) {
	var req PasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "current_password and new_password are required"})
		return
	}

	err := tc.service.ChangePassword(GetUserID(c), req.CurrentPassword, req.NewPassword)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"message": "password updated"})
	case errors.Is(err, ErrInvalidPassword):
		c.JSON(http.StatusForbidden, gin.H{"error": "current password is incorrect"})
	case errors.Is(err, ErrPasswordTooShort), errors.Is(err, ErrPasswordTooLong):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update password"})
	}
}

// APITokenController issues and revokes personal API tokens.
type APITokenController struct {
	service *Service
}

func NewAPITokenController(service *Service) *APITokenController {
	return &APITokenController{service: service}
}

// GenerateToken replaces the caller's API token. The plaintext is returned
// once and only its hash is stored.
func (tc *APITokenController) GenerateToken(c *gin.Context) {
	userID := GetUserID(c)
	if userID == DefaultUserID {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	token, err := tc.service.GenerateToken(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":   token,
		"message": "Store this token securely - it will not be shown again",
	})
}

func (tc *APITokenController) RevokeToken(c *gin.Context) {
	userID := GetUserID(c)
	if userID == DefaultUserID {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	if err := tc.service.RevokeToken(userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to revoke token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "token revoked"})
}
