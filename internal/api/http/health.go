package http

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Service   string            `json:"service"`
	Version   string            `json:"version"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// Check pings one dependency.
type Check func(ctx context.Context) error

type HealthHandler struct {
	serviceName string
	version     string
	checks      map[string]Check
	timeout     time.Duration
}

func NewHealthHandler(serviceName, version string, checks map[string]Check) *HealthHandler {
	return &HealthHandler{
		serviceName: serviceName,
		version:     version,
		checks:      checks,
		timeout:     time.Second,
	}
}

func (h *HealthHandler) run(ctx context.Context) (map[string]string, bool) {
	if len(h.checks) == 0 {
		return nil, true
	}
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]error, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = h.checks[name](ctx)
		}()
	}
	wg.Wait()

	out := make(map[string]string, len(names))
	healthy := true
	for i, name := range names {
		if results[i] != nil {
			out[name] = "down"
			healthy = false
		} else {
			out[name] = "up"
		}
	}
	return out, healthy
}

// HealthCheck reports liveness; dependency state is informational.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	checks, healthy := h.run(c.Request.Context())
	c.JSON(http.StatusOK, h.response(checks, healthy))
}

// Ready answers 503 while any dependency is down.
func (h *HealthHandler) Ready(c *gin.Context) {
	checks, healthy := h.run(c.Request.Context())
	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, h.response(checks, healthy))
}

func (h *HealthHandler) response(checks map[string]string, healthy bool) HealthResponse {
	status := "healthy"
	if !healthy {
		status = "degraded"
	}
	return HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Service:   h.serviceName,
		Version:   h.version,
		Checks:    checks,
	}
}

func (h *HealthHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.HealthCheck)
	r.GET("/healthz", h.Ready)
}
