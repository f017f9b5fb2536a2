package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readowl/readowl/internal/config"
	"github.com/readowl/readowl/internal/entities"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newMiddlewareRouter(mw *Middleware) *gin.Engine {
	router := gin.New()
	router.Use(mw.Handler())

	whoami := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id":   GetUserID(c),
			"role":      GetUserRole(c),
			"auth_type": GetAuthType(c),
			"authed":    IsAuthenticated(c),
		})
	}
	router.GET("/books", whoami)
	router.GET("/api/me", mw.RequireAuth(), whoami)
	router.GET("/library", mw.RequireAuth(), whoami)
	router.POST("/api/books", mw.RequireRole(entities.UserRoleAuthor), whoami)
	router.GET("/api/admin/settings", mw.RequireRole(entities.UserRoleAdmin), whoami)
	return router
}

func serve(router http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestMiddleware_Anonymous(t *testing.T) {
	svc := setupService(t)
	router := newMiddlewareRouter(NewMiddleware(svc, nil, testAuthConfig()))

	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/books", "").Code, "public pages stay public")
	assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodGet, "/api/me", "").Code)

	w := serve(router, http.MethodGet, "/library?tab=unread", "")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login?next=%2Flibrary%3Ftab%3Dunread", w.Header().Get("Location"))
}

func TestMiddleware_Bearer(t *testing.T) {
	svc := setupService(t)
	router := newMiddlewareRouter(NewMiddleware(svc, nil, testAuthConfig()))

	reader := mustCreateUser(t, svc, "ana", entities.UserRoleReader)
	author := mustCreateUser(t, svc, "escritor", entities.UserRoleAuthor)
	admin := mustCreateUser(t, svc, "root", entities.UserRoleAdmin)
	tokens := map[uint]string{}
	for _, u := range []*entities.User{reader, author, admin} {
		tok, err := svc.GenerateToken(u.ID)
		require.NoError(t, err)
		tokens[u.ID] = tok
	}

	w := serve(router, http.MethodGet, "/api/me", tokens[reader.ID])
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"auth_type":"bearer"`)

	assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodGet, "/books", "bogus").Code,
		"a bad token is rejected rather than treated as anonymous")

	tests := []struct {
		name   string
		userID uint
		path   string
		method string
		want   int
	}{
		{"reader cannot publish", reader.ID, "/api/books", http.MethodPost, http.StatusForbidden},
		{"author can publish", author.ID, "/api/books", http.MethodPost, http.StatusOK},
		{"admin can publish", admin.ID, "/api/books", http.MethodPost, http.StatusOK},
		{"author is not admin", author.ID, "/api/admin/settings", http.MethodGet, http.StatusForbidden},
		{"admin settings", admin.ID, "/api/admin/settings", http.MethodGet, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, serve(router, tt.method, tt.path, tokens[tt.userID]).Code)
		})
	}
}

func TestMiddleware_AuthDisabled(t *testing.T) {
	svc := setupService(t)
	cfg := testAuthConfig()
	cfg.Mode = config.AuthModeNone
	router := newMiddlewareRouter(NewMiddleware(svc, nil, cfg))

	w := serve(router, http.MethodGet, "/api/admin/settings", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"role":"admin"`)
	assert.Contains(t, w.Body.String(), `"authed":true`)
	assert.Equal(t, http.StatusOK, serve(router, http.MethodPost, "/api/books", "").Code)
}

func TestIsAPIRequest(t *testing.T) {
	tests := []struct {
		path   string
		accept string
		want   bool
	}{
		{"/api/books", "", true},
		{"/books", "application/json", true},
		{"/books", "text/html", false},
	}
	for _, tt := range tests {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, tt.path, nil)
		c.Request.Header.Set("Accept", tt.accept)
		assert.Equal(t, tt.want, IsAPIRequest(c), tt.path)
	}
}

func TestSecurityHeaders(t *testing.T) {
	router := gin.New()
	router.Use(SecurityHeadersMiddleware())
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(router, http.MethodGet, "/", "")
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "img-src 'self' data: https:")
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
}
