package health

import (
	"context"
	"net/http"
	"runtime"
	"sort"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string           `json:"status"`
	Timestamp string           `json:"timestamp"`
	Version   string           `json:"version,omitempty"`
	Checks    map[string]Check `json:"checks,omitempty"`
}

// Check represents an individual health check result
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// StatsResponse represents system statistics
type StatsResponse struct {
	GoVersion    string `json:"go_version"`
	NumCPU       int    `json:"num_cpu"`
	NumGoroutine int    `json:"num_goroutine"`
	MemAlloc     uint64 `json:"mem_alloc_bytes"`
	MemSys       uint64 `json:"mem_sys_bytes"`
	Uptime       string `json:"uptime,omitempty"`
}

// Pinger is anything that can report its own reachability. *sqlx.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) PingContext(ctx context.Context) error { return f(ctx) }

// RedisPinger checks a redis client.
func RedisPinger(client *redis.Client) Pinger {
	return PingFunc(func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
}

type dependency struct {
	name    string
	pinger  Pinger
	message string
}

type Handler struct {
	version string
	started time.Time
	timeout time.Duration
	deps    []dependency
}

func NewHandler(version string) *Handler {
	return &Handler{version: version, started: time.Now(), timeout: 3 * time.Second}
}

// Register adds a dependency checked by readiness and health. A nil pinger is ignored.
func (h *Handler) Register(name string, p Pinger, failureMessage string) *Handler {
	if p != nil {
		h.deps = append(h.deps, dependency{name: name, pinger: p, message: failureMessage})
		sort.Slice(h.deps, func(i, j int) bool { return h.deps[i].name < h.deps[j].name })
	}
	return h
}

// LivenessHandler handles the /health/live endpoint
// Returns 200 if the process is running
func (h *Handler) LivenessHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// ReadinessHandler handles the /health/ready endpoint
func (h *Handler) ReadinessHandler(c echo.Context) error {
	return h.respond(c, "unhealthy", "")
}

// HealthHandler handles the /health endpoint
func (h *Handler) HealthHandler(c echo.Context) error {
	return h.respond(c, "degraded", h.version)
}

func (h *Handler) respond(c echo.Context, failStatus, version string) error {
	checks, healthy := h.runChecks(c.Request().Context())

	status := "ok"
	httpStatus := http.StatusOK
	if !healthy {
		status = failStatus
		httpStatus = http.StatusServiceUnavailable
	}
	return c.JSON(httpStatus, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   version,
		Checks:    checks,
	})
}

// StatsHandler handles the /health/stats endpoint
func (h *Handler) StatsHandler(c echo.Context) error {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return c.JSON(http.StatusOK, StatsResponse{
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
		MemAlloc:     m.Alloc,
		MemSys:       m.Sys,
		Uptime:       time.Since(h.started).Round(time.Second).String(),
	})
}

func (h *Handler) runChecks(ctx context.Context) (map[string]Check, bool) {
	checks := make(map[string]Check, len(h.deps))
	healthy := true
	for _, d := range h.deps {
		check := h.ping(ctx, d)
		if check.Status != "ok" {
			healthy = false
		}
		checks[d.name] = check
	}
	return checks, healthy
}

func (h *Handler) ping(ctx context.Context, d dependency) Check {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	err := d.pinger.PingContext(ctx)
	latency := time.Since(start)

	if err != nil {
		return Check{
			Status:  "error",
			Message: d.message,
			Latency: latency.String(),
		}
	}
	return Check{
		Status:  "ok",
		Latency: latency.String(),
	}
}
