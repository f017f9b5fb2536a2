package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HealthResponse struct {
	Status   string            `json:"status"`
	Time     string            `json:"time"`
	Version  string            `json:"version,omitempty"`
	ReadOnly bool              `json:"read_only"`
	Checks   map[string]string `json:"checks"`
}

type HealthController struct {
	db       HealthChecker
	version  string
	readOnly bool
}

func NewHealthController(db HealthChecker, version string, readOnly bool) *HealthController {
	return &HealthController{
		db:       db,
		version:  version,
		readOnly: readOnly,
	}
}

func (h *HealthController) Status(c *gin.Context) {
	checks := make(map[string]string)
	status := "healthy"

	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			checks["database"] = "error: " + err.Error()
			status = "unhealthy"
		} else {
			checks["database"] = "ok"
		}
	} else {
		checks["database"] = "not configured"
	}

	health := HealthResponse{
		Status:   status,
		Time:     time.Now().Format(time.RFC3339),
		Version:  h.version,
		ReadOnly: h.readOnly,
		Checks:   checks,
	}

	statusCode := http.StatusOK
	if status != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.IndentedJSON(statusCode, health)
}

func (h *HealthController) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}

// Metrics serves the Prometheus registry.
func (h *HealthController) Metrics() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
