package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"webprobe/internal/broker"
	"webprobe/internal/database"
	"webprobe/internal/middleware"

	"github.com/gin-gonic/gin"
)

type BrokerStatus interface {
	Status(ctx context.Context) string
}

type HealthHandler struct {
	service string
	broker  BrokerStatus
}

// NewHealthHandler reports broker reachability as extra information only;
// a nil broker is reported as not configured.
func NewHealthHandler(service string, b BrokerStatus) *HealthHandler {
	return &HealthHandler{service: service, broker: b}
}

func (h *HealthHandler) Health(c *gin.Context) {
	db, ok := middleware.GetDB(c)
	if !ok {
		slog.Error("database session missing from request context", "path", c.FullPath())
		unhealthy(c)
		return
	}

	if err := database.Ping(c.Request.Context(), db); err != nil {
		slog.Error("health check failed", "error", err)
		unhealthy(c)
		return
	}

	brokerStatus := broker.StatusNotConfigured
	if h.broker != nil {
		brokerStatus = h.broker.Status(c.Request.Context())
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"service":  h.service,
		"database": "connected",
		"broker":   brokerStatus,
	})
}

func unhealthy(c *gin.Context) {
	c.JSON(http.StatusServiceUnavailable, gin.H{
		"detail":   "Service unhealthy",
		"database": "disconnected",
	})
}

// Root describes where the API lives.
func Root(appName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Welcome to " + appName + " API",
			"docs":    "/docs",
			"health":  "/api/v1/health",
		})
	}
}
