package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/readowl/readowl/internal/auth"
	"github.com/readowl/readowl/internal/config"
	"github.com/readowl/readowl/internal/entities"
	"github.com/readowl/readowl/internal/logging"
	"github.com/readowl/readowl/internal/metrics"
	"github.com/readowl/readowl/internal/readonly"
)

const (
	requestIDHeader    = "X-Request-ID"
	maxRequestIDLength = 128

	contextKeyIsBot        = "is_bot"
	contextKeyTemplateAuth = "auth_template_data"
)

// RequestLogger tags each request with an ID, logs it once it completes
// and counts it in the HTTP metrics.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(requestIDHeader)
		if !validRequestID(requestID) {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)
		c.Request = c.Request.WithContext(logging.ContextWithRequestID(c.Request.Context(), requestID))

		c.Next()

		status := c.Writer.Status()
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, strconv.Itoa(status)).Inc()

		log := logging.FromContext(c.Request.Context())
		var event *zerolog.Event
		switch {
		case status >= http.StatusInternalServerError:
			event = log.Error()
		case status >= http.StatusBadRequest:
			event = log.Warn()
		default:
			event = log.Info()
		}
		if len(c.Errors) > 0 {
			event = event.Str("errors", c.Errors.String())
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Int("size", c.Writer.Size()).
			Msg("http request")
	}
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for _, r := range id {
		if r < 0x21 || r > 0x7e {
			return false
		}
	}
	return true
}

// Recovery turns a panic into a 500 and logs it with the request ID.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logging.FromContext(c.Request.Context()).Error().
			Interface("panic", recovered).
			Str("path", c.Request.URL.Path).
			Msg("handler panicked")
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	})
}

// BotClassification flags requests whose User-Agent matches a bot keyword.
func BotClassification(bots BotSettings) gin.HandlerFunc {
	return func(c *gin.Context) {
		isBot := false
		if bots != nil {
			isBot = bots.IsLikelyBot(c.Request.UserAgent())
		}
		c.Set(contextKeyIsBot, isBot)
		c.Next()
	}
}

// IsBot reports whether the request was classified as automated.
func IsBot(c *gin.Context) bool {
	return c.GetBool(contextKeyIsBot)
}

// AuthTemplateData holds authentication info for templates.
type AuthTemplateData struct {
	Enabled   bool
	LoggedIn  bool
	Username  string
	Role      string
	CanWrite  bool
	IsAdmin   bool
	CSRFToken string
}

// AuthContextMiddleware injects authentication data for templates, which
// read it as .Auth.
func AuthContextMiddleware(authMode config.AuthMode) gin.HandlerFunc {
	enabled := authMode == config.AuthModeLocal

	return func(c *gin.Context) {
		role := auth.GetUserRole(c)
		data := AuthTemplateData{
			Enabled:   enabled,
			Role:      string(role),
			CanWrite:  role.AtLeast(entities.UserRoleAuthor),
			IsAdmin:   role == entities.UserRoleAdmin,
			CSRFToken: auth.GetCSRFToken(c),
		}
		if enabled && auth.GetUserID(c) != auth.DefaultUserID {
			data.LoggedIn = true
			data.Username = auth.GetUsername(c)
		}

		c.Set(contextKeyTemplateAuth, data)
		c.Next()
	}
}

// GetAuthTemplateData retrieves the data stored by AuthContextMiddleware.
func GetAuthTemplateData(c *gin.Context) AuthTemplateData {
	if data, exists := c.Get(contextKeyTemplateAuth); exists {
		if authData, ok := data.(AuthTemplateData); ok {
			return authData
		}
	}
	return AuthTemplateData{}
}

func isReadOnly(c *gin.Context) bool {
	return c.GetBool(readonly.ContextKey)
}
