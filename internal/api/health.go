package api

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/offer-diagnostics/internal/pkg/httputil"
)

// Version is reported by the health endpoint; set at link time.
var Version = "dev"

// HealthStatus represents the overall health of the system.
type HealthStatus struct {
	Status  string                    `json:"status"` // "healthy", "degraded", "unhealthy"
	Version string                    `json:"version"`
	Uptime  string                    `json:"uptime"`
	Checks  map[string]ComponentCheck `json:"checks"`
}

// ComponentCheck represents the health of a single component.
type ComponentCheck struct {
	Status  string `json:"status"` // "up", "down", "degraded"
	Latency string `json:"latency,omitempty"`
	Message string `json:"message,omitempty"`
}

// Probe reports whether one dependency is reachable.
type Probe func(ctx context.Context) error

type check struct {
	name     string
	critical bool
	timeout  time.Duration
	slow     time.Duration
	probe    Probe
}

// HealthChecker runs the registered dependency probes. With no probes the
// service is healthy: every dependency is optional.
type HealthChecker struct {
	checks    []check
	startTime time.Time
}

// NewHealthChecker creates a HealthChecker with no probes.
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{startTime: time.Now()}
}

// Add registers a probe. A failing critical probe makes the service unhealthy;
// any other failure only degrades it.
func (hc *HealthChecker) Add(name string, critical bool, timeout time.Duration, probe Probe) *HealthChecker {
	hc.checks = append(hc.checks, check{name: name, critical: critical, timeout: timeout, slow: timeout / 3, probe: probe})
	return hc
}

// AddDatabase pings PostgreSQL with a 3-second timeout.
func (hc *HealthChecker) AddDatabase(db *sql.DB) *HealthChecker {
	if db == nil {
		return hc
	}
	return hc.Add("database", false, 3*time.Second, db.PingContext)
}

// AddRedis pings Redis with a 2-second timeout.
func (hc *HealthChecker) AddRedis(client *redis.Client) *HealthChecker {
	if client == nil {
		return hc
	}
	return hc.Add("redis", false, 2*time.Second, func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
}

// HandleHealth returns the health of all components. Always 200; the status
// field in the body conveys health.
//
//	GET /health
func (hc *HealthChecker) HandleHealth(w http.ResponseWriter, r *http.Request) {
	checks := hc.runAllChecks(r.Context())
	httputil.OK(w, HealthStatus{
		Status:  hc.overall(checks),
		Version: Version,
		Uptime:  formatUptime(time.Since(hc.startTime)),
		Checks:  checks,
	})
}

// HandleLiveness always returns 200 while the process runs.
//
//	GET /health/live
func (hc *HealthChecker) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]any{
		"status": "alive",
		"uptime": formatUptime(time.Since(hc.startTime)),
	})
}

// HandleReadiness returns 503 when a critical dependency is down.
//
//	GET /health/ready
func (hc *HealthChecker) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	checks := hc.runAllChecks(r.Context())
	overall := hc.overall(checks)

	ready := overall != "unhealthy"
	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	httputil.JSON(w, status, map[string]any{
		"ready":  ready,
		"status": overall,
		"checks": checks,
	})
}

func (hc *HealthChecker) runAllChecks(ctx context.Context) map[string]ComponentCheck {
	out := make(map[string]ComponentCheck, len(hc.checks))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, c := range hc.checks {
		wg.Add(1)
		go func(c check) {
			defer wg.Done()
			res := c.run(ctx)
			mu.Lock()
			out[c.name] = res
			mu.Unlock()
		}(c)
	}
	wg.Wait()
	return out
}

func (c check) run(ctx context.Context) ComponentCheck {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	err := c.probe(ctx)
	latency := time.Since(start)

	if err != nil {
		return ComponentCheck{Status: "down", Latency: latency.String(), Message: fmt.Sprintf("ping failed: %v", err)}
	}
	if c.slow > 0 && latency > c.slow {
		return ComponentCheck{Status: "degraded", Latency: latency.String(), Message: fmt.Sprintf("slow response (%s)", latency)}
	}
	return ComponentCheck{Status: "up", Latency: latency.String(), Message: "connected"}
}

func (hc *HealthChecker) overall(checks map[string]ComponentCheck) string {
	status := "healthy"
	for _, c := range hc.checks {
		res := checks[c.name]
		switch {
		case res.Status == "down" && c.critical:
			return "unhealthy"
		case res.Status != "up":
			status = "degraded"
		}
	}
	return status
}

func formatUptime(d time.Duration) string {
	d = d.Round(time.Second)
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	mins := int(d.Minutes()) % 60
	secs := int(d.Seconds()) % 60
	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, mins, secs)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, mins, secs)
	}
	return fmt.Sprintf("%dm %ds", mins, secs)
}
