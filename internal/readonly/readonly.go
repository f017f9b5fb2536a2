// Package readonly turns the site into a read-only mirror: reading, search
// and login keep working while every write is refused.
package readonly

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ContextKey holds the read-only flag for templates.
const ContextKey = "read_only"

const blockedMessage = "This site is in read-only mode"

// writeAllowlist holds path prefixes that may be posted to in read-only
// mode. Logging in only touches the session store.
var writeAllowlist = []string{
	"/login",
	"/logout",
}

type Middleware struct {
	enabled bool
}

func NewMiddleware(enabled bool) *Middleware {
	return &Middleware{enabled: enabled}
}

func (m *Middleware) Enabled() bool {
	return m.enabled
}

// Handler refuses unsafe methods outside the allowlist with 403 and exposes
// the flag to templates.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextKey, m.enabled)

		if !m.enabled || isSafeMethod(c.Request.Method) || allowed(c.Request.URL.Path) {
			c.Next()
			return
		}
		block(c)
	}
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

func allowed(path string) bool {
	for _, prefix := range writeAllowlist {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

func block(c *gin.Context) {
	if c.GetHeader("HX-Request") == "true" {
		c.Header("HX-Reswap", "none")
		c.Header("HX-Trigger", `{"showToast": {"message": "`+blockedMessage+`", "type": "warning"}}`)
		c.String(http.StatusForbidden, blockedMessage)
		c.Abort()
		return
	}

	if strings.HasPrefix(c.Request.URL.Path, "/api/") || strings.Contains(c.GetHeader("Accept"), "application/json") {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":     blockedMessage,
			"read_only": true,
		})
		return
	}

	c.String(http.StatusForbidden, blockedMessage)
	c.Abort()
}
