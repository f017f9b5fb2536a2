package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readowl/readowl/internal/entities"
)

type authHarness struct {
	svc    *Service
	router *gin.Engine
	sender *capturingSender
}

func newAuthHarness(t *testing.T, signup bool) *authHarness {
	t.Helper()
	cfg := testAuthConfig()
	cfg.AllowSignup = signup
	cfg.SessionLifetime = time.Hour

	db := setupTestDB(t)
	svc := NewService(db, cfg)
	sender := &capturingSender{}
	svc.SetResetLinkSender(sender, "http://localhost")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sessions, err := NewSessionManager(sqlDB, cfg)
	require.NoError(t, err)

	mw := NewMiddleware(svc, sessions, cfg)
	router := gin.New()
	router.Use(sessions.LoadAndSave(), mw.Handler())
	NewAuthController(svc, sessions, nil, cfg).RegisterRoutes(router)

	tokens := NewAPITokenController(svc)
	api := router.Group("/api", mw.RequireAuth())
	api.POST("/auth/token", tokens.GenerateToken)
	api.DELETE("/auth/token", tokens.RevokeToken)
	api.POST("/auth/password", tokens.ChangePassword)
	api.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"username": CurrentUser(c).Username})
	})

	return &authHarness{svc: svc, router: router, sender: sender}
}

func (h *authHarness) postForm(path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func (h *authHarness) get(path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == sessionCookieName {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func TestLogin_Flow(t *testing.T) {
	h := newAuthHarness(t, true)
	mustCreateUser(t, h.svc, "ana", entities.UserRoleReader)

	w := h.postForm("/login", url.Values{"username": {"ana"}, "password": {testPassword}, "next": {"/books/o-monarca"}})
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/books/o-monarca", w.Header().Get("Location"))
	cookie := sessionCookie(t, w)

	me := h.get("/api/me", cookie)
	require.Equal(t, http.StatusOK, me.Code)
	assert.Contains(t, me.Body.String(), `"username":"ana"`)

	out := h.postForm("/logout", nil, cookie)
	assert.Equal(t, http.StatusFound, out.Code)
	assert.Equal(t, http.StatusUnauthorized, h.get("/api/me", cookie).Code)
}

func TestLogin_Failures(t *testing.T) {
	h := newAuthHarness(t, true)
	mustCreateUser(t, h.svc, "ana", entities.UserRoleReader)

	w := h.postForm("/login", url.Values{"username": {"ana"}, "password": {"wrong password!"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid username or password")

	t.Run("open redirect is neutralized", func(t *testing.T) {
		w := h.postForm("/login", url.Values{"username": {"ana"}, "password": {testPassword}, "next": {"//evil.example"}})
		assert.Equal(t, "/", w.Header().Get("Location"))
	})
}

func TestSafeRedirect(t *testing.T) {
	assert.Equal(t, "/books/a", safeRedirect("/books/a"))
	assert.Equal(t, "/", safeRedirect(""))
	assert.Equal(t, "/", safeRedirect("https://evil.example"))
	assert.Equal(t, "/", safeRedirect("//evil.example"))
	assert.Equal(t, "/", safeRedirect(`/\evil.example`))
}

func TestRegister(t *testing.T) {
	h := newAuthHarness(t, true)

	w := h.postForm("/register", url.Values{
		"username": {"leitora"}, "email": {"leitora@example.com"},
		"password": {testPassword}, "confirm_password": {testPassword},
	})
	require.Equal(t, http.StatusFound, w.Code)
	sessionCookie(t, w)

	mismatch := h.postForm("/register", url.Values{
		"username": {"outra"}, "email": {"outra@example.com"},
		"password": {testPassword}, "confirm_password": {"different value"},
	})
	assert.Equal(t, http.StatusBadRequest, mismatch.Code)
	assert.Contains(t, mismatch.Body.String(), "Passwords do not match")

	dup := h.postForm("/register", url.Values{
		"username": {"leitora"}, "email": {"x@example.com"},
		"password": {testPassword}, "confirm_password": {testPassword},
	})
	assert.Contains(t, dup.Body.String(), "already taken")
}

func TestRegister_Disabled(t *testing.T) {
	h := newAuthHarness(t, false)

	assert.Equal(t, http.StatusFound, h.get("/register").Code)
	w := h.postForm("/register", url.Values{
		"username": {"leitora"}, "email": {"leitora@example.com"},
		"password": {testPassword}, "confirm_password": {testPassword},
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestSetup(t *testing.T) {
	h := newAuthHarness(t, true)

	assert.Equal(t, http.StatusFound, h.get("/login").Code, "login redirects to setup while no account exists")

	w := h.postForm("/setup", url.Values{
		"username": {"root"}, "email": {"root@example.com"},
		"password": {testPassword}, "confirm_password": {testPassword},
	})
	require.Equal(t, http.StatusFound, w.Code)

	user, err := h.svc.Authenticate("root", testPassword)
	require.NoError(t, err)
	assert.Equal(t, entities.UserRoleAdmin, user.Role)

	again := h.postForm("/setup", url.Values{
		"username": {"second"}, "email": {"second@example.com"},
		"password": {testPassword}, "confirm_password": {testPassword},
	})
	assert.Equal(t, "/login", again.Header().Get("Location"))
}

func TestPasswordResetFlow(t *testing.T) {
	h := newAuthHarness(t, true)
	mustCreateUser(t, h.svc, "ana", entities.UserRoleReader)

	for _, email := range []string{"ana@example.com", "ghost@example.com"} {
		w := h.postForm("/forgot-password", url.Values{"email": {email}})
		require.Equal(t, http.StatusOK, w.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, true, body["Sent"], "the answer does not reveal whether %s exists", email)
	}
	require.Len(t, h.sender.links, 1)

	link, err := url.Parse(h.sender.links[0])
	require.NoError(t, err)
	token := link.Query().Get("token")

	assert.Equal(t, http.StatusOK, h.get("/reset-password?token="+token).Code)

	w := h.postForm("/reset-password", url.Values{
		"token": {token}, "password": {"a brand new password"}, "confirm_password": {"a brand new password"},
	})
	require.Equal(t, http.StatusFound, w.Code)

	_, err = h.svc.Authenticate("ana", "a brand new password")
	assert.NoError(t, err)

	reused := h.postForm("/reset-password", url.Values{
		"token": {token}, "password": {"another new password"}, "confirm_password": {"another new password"},
	})
	assert.Equal(t, http.StatusBadRequest, reused.Code)
}

func TestAPITokenController(t *testing.T) {
	h := newAuthHarness(t, true)
	user := mustCreateUser(t, h.svc, "ana", entities.UserRoleReader)

	login := h.postForm("/login", url.Values{"username": {"ana"}, "password": {testPassword}})
	cookie := sessionCookie(t, login)

	w := h.postForm("/api/auth/token", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	got, err := h.svc.ValidateToken(body.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	req := httptest.NewRequest(http.MethodDelete, "/api/auth/token", nil)
	req.Header.Set("Authorization", "Bearer "+body.Token)
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	_, err = h.svc.ValidateToken(body.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestResetPassword_Flow(t *testing.T) {
	h := newAuthHarness(t, true)
	mustCreateUser(t, h.svc, "ana", entities.UserRoleReader)

	w := h.postForm("/forgot-password", url.Values{"email": {"ana@example.com"}})
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, h.sender.links, 1)

	link, err := url.Parse(h.sender.links[0])
	require.NoError(t, err)
	token := link.Query().Get("token")
	require.NotEmpty(t, token)

	newPassword := "a brand new passphrase"
	w = h.postForm("/reset-password", url.Values{
		"token": {token}, "password": {newPassword}, "confirm_password": {newPassword},
	})
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))

	page := h.get("/login", sessionCookie(t, w))
	require.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), "Password updated. Please log in.")

	login := h.postForm("/login", url.Values{"username": {"ana"}, "password": {newPassword}})
	assert.Equal(t, http.StatusFound, login.Code)

	t.Run("token cannot be reused", func(t *testing.T) {
		w := h.postForm("/reset-password", url.Values{
			"token": {token}, "password": {newPassword}, "confirm_password": {newPassword},
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestChangePassword_API(t *testing.T) {
	h := newAuthHarness(t, true)
	user := mustCreateUser(t, h.svc, "ana", entities.UserRoleReader)
	token, err := h.svc.GenerateToken(user.ID)
	require.NoError(t, err)

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/password", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		h.router.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusBadRequest, post(`{}`).Code)
	assert.Equal(t, http.StatusForbidden, post(`{"current_password":"not the password","new_password":"another long passphrase"}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(`{"current_password":"`+testPassword+`","new_password":"short"}`).Code)

	w := post(`{"current_password":"` + testPassword + `","new_password":"another long passphrase"}`)
	require.Equal(t, http.StatusOK, w.Code)

	_, err = h.svc.Authenticate("ana", "another long passphrase")
	assert.NoError(t, err)
}
