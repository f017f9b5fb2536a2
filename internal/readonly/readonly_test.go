package readonly

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(enabled bool) *gin.Engine {
	router := gin.New()
	router.Use(NewMiddleware(enabled).Handler())
	ok := func(c *gin.Context) { c.String(http.StatusOK, "OK") }
	router.GET("/books/:slug", ok)
	router.POST("/api/books", ok)
	router.POST("/books/:slug/follow", ok)
	router.POST("/login", ok)
	router.POST("/logout", ok)
	router.POST("/login-as", ok)
	router.DELETE("/api/books/:slug", ok)
	router.OPTIONS("/api/books", ok)
	return router
}

func TestHandler(t *testing.T) {
	tests := []struct {
		name    string
		enabled bool
		method  string
		path    string
		want    int
	}{
		{"disabled allows writes", false, http.MethodPost, "/api/books", http.StatusOK},
		{"reading", true, http.MethodGet, "/books/o-monarca", http.StatusOK},
		{"preflight", true, http.MethodOptions, "/api/books", http.StatusOK},
		{"create book", true, http.MethodPost, "/api/books", http.StatusForbidden},
		{"delete book", true, http.MethodDelete, "/api/books/o-monarca", http.StatusForbidden},
		{"follow form", true, http.MethodPost, "/books/o-monarca/follow", http.StatusForbidden},
		{"login", true, http.MethodPost, "/login", http.StatusOK},
		{"logout", true, http.MethodPost, "/logout", http.StatusOK},
		{"prefix is not enough", true, http.MethodPost, "/login-as", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			newRouter(tt.enabled).ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestHandler_ResponseFormats(t *testing.T) {
	router := newRouter(true)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/books", nil))
	assert.JSONEq(t, `{"error":"This site is in read-only mode","read_only":true}`, w.Body.String())

	req := httptest.NewRequest(http.MethodPost, "/books/o-monarca/follow", nil)
	req.Header.Set("HX-Request", "true")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "none", w.Header().Get("HX-Reswap"))
	assert.Contains(t, w.Header().Get("HX-Trigger"), "read-only")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/books/o-monarca/follow", nil))
	assert.Equal(t, blockedMessage, w.Body.String())
}

func TestHandler_SetsContextFlag(t *testing.T) {
	router := gin.New()
	router.Use(NewMiddleware(true).Handler())
	router.GET("/", func(c *gin.Context) {
		assert.True(t, c.GetBool(ContextKey))
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
