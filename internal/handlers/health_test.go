package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"webprobe/internal/broker"
	"webprobe/internal/handlers"
	"webprobe/internal/middleware"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type staticBroker string

func (s staticBroker) Status(context.Context) string { return string(s) }

func setupHealthRouter(db *gorm.DB, b handlers.BrokerStatus) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	if db != nil {
		router.Use(middleware.DBSession(db))
	}
	router.GET("/", handlers.Root("WebProbe"))
	router.GET("/api/v1/health", handlers.NewHealthHandler("WebProbe", b).Health)
	return router
}

func TestHealth_Healthy(t *testing.T) {
	tests := []struct {
		name   string
		broker handlers.BrokerStatus
		want   string
	}{
		{"no broker", nil, broker.StatusNotConfigured},
		{"broker reachable", staticBroker(broker.StatusConnected), broker.StatusConnected},
		{"broker down", staticBroker(broker.StatusUnavailable), broker.StatusUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupHealthRouter(setupTestDB(t), tt.broker)

			w := get(router, "/api/v1/health")
			require.Equal(t, http.StatusOK, w.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, "healthy", body["status"])
			assert.Equal(t, "WebProbe", body["service"])
			assert.Equal(t, "connected", body["database"])
			assert.Equal(t, tt.want, body["broker"])
		})
	}
}

func TestHealth_WithRedisProbe(t *testing.T) {
	mr := miniredis.RunT(t)
	config := broker.DefaultProbeConfig()
	config.Addr = mr.Addr()
	config.StatusTTL = 0
	probe, err := broker.NewRedisProbe(config)
	require.NoError(t, err)
	defer probe.Close()

	router := setupHealthRouter(setupTestDB(t), probe)

	w := get(router, "/api/v1/health")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"broker":"connected"`)

	mr.Close()

	w = get(router, "/api/v1/health")
	assert.Equal(t, http.StatusOK, w.Code, "broker outage must not fail the health check")
	assert.Contains(t, w.Body.String(), `"broker":"unavailable"`)
}

func TestHealth_DatabaseDown(t *testing.T) {
	db := setupTestDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	router := setupHealthRouter(db, staticBroker(broker.StatusConnected))

	w := get(router, "/api/v1/health")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"detail":"Service unhealthy","database":"disconnected"}`, w.Body.String())
}

func TestHealth_MissingSession(t *testing.T) {
	router := setupHealthRouter(nil, nil)

	w := get(router, "/api/v1/health")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRoot(t *testing.T) {
	router := setupHealthRouter(nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Welcome to WebProbe API","docs":"/docs","health":"/api/v1/health"}`, w.Body.String())
}
