package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, h *HealthHandler, path string) (int, HealthResponse) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h.RegisterRoutes(router)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return rr.Code, resp
}

func TestHealthCheck(t *testing.T) {
	code, resp := serve(t, NewHealthHandler("test-service", "1.0.0", nil), "/health")

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "test-service", resp.Service)
	assert.Equal(t, "1.0.0", resp.Version)
}

func TestHealthCheck_WithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	h := NewHealthHandler("svc", "v", map[string]Check{
		"redis": func(ctx context.Context) error { return client.Ping(ctx).Err() },
	})

	code, resp := serve(t, h, "/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]string{"redis": "up"}, resp.Checks)

	mr.Close()
	code, resp = serve(t, h, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "down", resp.Checks["redis"])
}

func TestHealthCheck_LivenessIgnoresDependencies(t *testing.T) {
	h := NewHealthHandler("svc", "v", map[string]Check{
		"postgres": func(context.Context) error { return errors.New("refused") },
	})

	code, resp := serve(t, h, "/health")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "degraded", resp.Status)
}
