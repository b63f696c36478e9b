// Package handlers provides HTTP request handlers.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"feedvalidator/internal/derive"
)

// Version is reported by /health/info.
const Version = "0.1.0"

// HealthHandler provides health check endpoints.
type HealthHandler struct {
	plan    *derive.FeedPlan
	workers int
	started time.Time
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(plan *derive.FeedPlan, workers int) *HealthHandler {
	return &HealthHandler{plan: plan, workers: workers, started: time.Now()}
}

// Live handles liveness probe (is the process alive?).
// GET /health/live
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// Ready handles readiness probe. The service is ready once a plan is loaded.
// GET /health/ready
func (h *HealthHandler) Ready(c *gin.Context) {
	if h.plan == nil || len(h.plan.Tables) == 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "error",
			"checks": map[string]string{
				"schema": "not loaded",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"checks": map[string]string{
			"schema": "loaded",
		},
	})
}

// Info returns application information.
// GET /health/info
func (h *HealthHandler) Info(c *gin.Context) {
	info := gin.H{
		"app":            "feedvalidator",
		"version":        Version,
		"workers":        h.workers,
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
	}
	if h.plan != nil {
		info["schema"] = map[string]any{
			"tables":       len(h.plan.Tables),
			"foreign_keys": len(h.plan.ForeignKeys),
			"warnings":     h.plan.Schema.Warnings(),
		}
	}
	c.JSON(http.StatusOK, info)
}
