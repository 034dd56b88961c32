package middleware

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"time"
)

// HealthChecker defines interface for health checking
type HealthChecker interface {
	Check(ctx context.Context) error
}

// HealthCheckFunc adapts a function to HealthChecker
type HealthCheckFunc func(ctx context.Context) error

func (f HealthCheckFunc) Check(ctx context.Context) error { return f(ctx) }

// DatabaseHealthChecker checks database health
type DatabaseHealthChecker struct {
	DB *sql.DB
}

func (d *DatabaseHealthChecker) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return d.DB.PingContext(ctx)
}

// CredentialHealthChecker reports whether a default provider key is configured.
// Requests may still bring their own key, so it is registered as optional.
type CredentialHealthChecker struct {
	Source interface {
		Lookup(name string) (string, bool)
	}
	Name string
}

func (c *CredentialHealthChecker) Check(context.Context) error {
	if c.Source == nil {
		return errors.New("no credential source")
	}
	if _, ok := c.Source.Lookup(c.Name); !ok {
		return errors.New(c.Name + " not configured")
	}
	return nil
}

// Check is one named health check. Optional failures degrade, required ones fail.
type Check struct {
	Name     string
	Checker  HealthChecker
	Optional bool
}

// HealthStatus represents the health status
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckStatus `json:"checks"`
}

// CheckStatus represents individual check status
type CheckStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// RunChecks evaluates every check and aggregates the status
func RunChecks(ctx context.Context, checks []Check) HealthStatus {
	health := HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Checks:    make(map[string]CheckStatus, len(checks)),
	}
	sorted := append([]Check(nil), checks...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	for _, c := range sorted {
		if err := c.Checker.Check(ctx); err != nil {
			st := "unhealthy"
			if c.Optional {
				st = "degraded"
				if health.Status == "healthy" {
					health.Status = "degraded"
				}
			} else {
				health.Status = "unhealthy"
			}
			health.Checks[c.Name] = CheckStatus{Status: st, Message: err.Error()}
			continue
		}
		health.Checks[c.Name] = CheckStatus{Status: "healthy"}
	}
	return health
}

// HealthHandler creates a health check handler
func HealthHandler(checks []Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := RunChecks(ctx, checks)

		statusCode := http.StatusOK
		if health.Status == "unhealthy" {
			statusCode = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		json.NewEncoder(w).Encode(health)
	}
}

// ReadinessHandler creates a readiness check handler (simpler than health)
func ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    "ready",
		"timestamp": time.Now().UTC(),
	})
}

// LivenessHandler creates a liveness check handler (simplest check)
func LivenessHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
