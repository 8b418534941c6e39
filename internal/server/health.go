package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Health statuses.
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// healthCheckTimeout bounds all checks for one health request.
const healthCheckTimeout = 5 * time.Second

// HealthChecker probes a single dependency.
type HealthChecker func(ctx context.Context) error

// CheckResult is the outcome of one dependency check.
type CheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency"`
}

// HealthHandler aggregates named dependency checks into a health endpoint.
type HealthHandler struct {
	mu      sync.RWMutex
	checks  map[string]HealthChecker
	service string
	version string
	started time.Time
}

// NewHealthHandler creates a health handler reporting the given service
// name and version. Uptime is measured from this call.
func NewHealthHandler(service, version string) *HealthHandler {
	return &HealthHandler{
		checks:  make(map[string]HealthChecker),
		service: service,
		version: version,
		started: time.Now(),
	}
}

// Register adds a named dependency check.
func (h *HealthHandler) Register(name string, check HealthChecker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

// RegisterRoutes mounts GET and HEAD /health.
func (h *HealthHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", h.handle)
	router.HEAD("/health", h.handle)
}

func (h *HealthHandler) handle(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	h.mu.RLock()
	checks := make(map[string]HealthChecker, len(h.checks))
	for name, check := range h.checks {
		checks[name] = check
	}
	h.mu.RUnlock()

	results := make(map[string]CheckResult, len(checks))
	overall := StatusHealthy

	for name, check := range checks {
		start := time.Now()
		err := check(ctx)
		result := CheckResult{
			Status:  StatusHealthy,
			Latency: time.Since(start).String(),
		}
		if err != nil {
			result.Status = StatusUnhealthy
			result.Message = err.Error()
			overall = StatusUnhealthy
		}
		results[name] = result
	}

	statusCode := http.StatusOK
	if overall == StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	if c.Request.Method == http.MethodHead {
		c.Status(statusCode)
		return
	}

	c.JSON(statusCode, gin.H{
		"status":    overall,
		"service":   h.service,
		"version":   h.version,
		"uptime":    time.Since(h.started).Round(time.Second).String(),
		"checks":    results,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
