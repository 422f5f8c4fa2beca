package common_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/camroute/fare-engine/pkg/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func performHealthRequest(t *testing.T, handler gin.HandlerFunc) (*httptest.ResponseRecorder, common.HealthResponse) {
	t.Helper()

	router := gin.New()
	router.GET("/health", handler)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(w, req)

	var resp common.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func TestHealthCheck(t *testing.T) {
	w, resp := performHealthRequest(t, common.HealthCheck("fare-engine", "1.2.0"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "fare-engine", resp.Service)
	assert.Equal(t, "1.2.0", resp.Version)
	assert.NotEmpty(t, resp.Uptime)
}

func TestLivenessProbe(t *testing.T) {
	w, resp := performHealthRequest(t, common.LivenessProbe("fare-engine", "1.2.0"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alive", resp.Status)
}

func TestReadinessProbe(t *testing.T) {
	t.Run("all checks pass", func(t *testing.T) {
		checks := map[string]func() error{
			"postgres": func() error { return nil },
			"redis":    func() error { return nil },
		}

		w, resp := performHealthRequest(t, common.ReadinessProbe("fare-engine", "1.2.0", checks))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ready", resp.Status)
		require.Len(t, resp.Checks, 2)
		assert.Equal(t, "healthy", resp.Checks["postgres"].Status)
		assert.Equal(t, "healthy", resp.Checks["redis"].Status)
	})

	t.Run("failing dependency flips to not ready", func(t *testing.T) {
		checks := map[string]func() error{
			"postgres": func() error { return nil },
			"redis":    func() error { return errors.New("connection refused") },
		}

		w, resp := performHealthRequest(t, common.ReadinessProbe("fare-engine", "1.2.0", checks))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "not ready", resp.Status)
		assert.Equal(t, "healthy", resp.Checks["postgres"].Status)
		assert.Equal(t, "unhealthy", resp.Checks["redis"].Status)
		assert.Equal(t, "connection refused", resp.Checks["redis"].Message)
	})
}
