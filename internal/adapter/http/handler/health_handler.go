package handler

import (
	"net/http"
	"time"

	"game-economy-service/internal/core/ports"

	"github.com/gin-gonic/gin"
)

// HealthHandler reports liveness and dependency readiness.
type HealthHandler struct {
	checkers []ports.HealthChecker
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(checkers ...ports.HealthChecker) *HealthHandler {
	return &HealthHandler{checkers: checkers}
}

// Live handles GET /health/live. Always 200 while the process runs.
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready handles GET /health/ready. 503 if any dependency fails its ping.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx := c.Request.Context()

	status := http.StatusOK
	deps := make(map[string]string, len(h.checkers))
	for _, checker := range h.checkers {
		if err := checker.Ping(ctx); err != nil {
			deps[checker.Name()] = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		deps[checker.Name()] = "ok"
	}

	c.JSON(status, gin.H{
		"status":       statusWord(status),
		"dependencies": deps,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	})
}

func statusWord(status int) string {
	if status == http.StatusOK {
		return "ok"
	}
	return "degraded"
}
