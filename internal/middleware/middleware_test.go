package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte(GetClientFromContext(r.Context())))
})

func TestAPIKeyAuth(t *testing.T) {
	h := APIKeyAuth(map[string]string{"web": "secret-1"})(okHandler)

	tests := []struct {
		name   string
		path   string
		header string
		code   int
		body   string
	}{
		{"health is open", "/health", "", http.StatusOK, ""},
		{"missing header", "/v1/triage/analyze", "", http.StatusUnauthorized, "missing Authorization"},
		{"bad key", "/v1/triage/analyze", "Bearer nope", http.StatusUnauthorized, "invalid API key"},
		{"bearer key", "/v1/triage/analyze", "Bearer secret-1", http.StatusOK, "web"},
		{"raw key", "/v1/triage/analyze", "secret-1", http.StatusOK, "web"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.code, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.body)
		})
	}
}

func TestAPIKeyAuthDisabled(t *testing.T) {
	h := APIKeyAuth(nil)(okHandler)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/triage/analyze", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimiterRefill(t *testing.T) {
	limiter := NewRateLimiter(2, 1)
	defer limiter.Stop()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	assert.True(t, limiter.Allow("k"))
	assert.True(t, limiter.Allow("k"))
	assert.False(t, limiter.Allow("k"))
	assert.Equal(t, 2, limiter.retryAfter("k"))

	now = now.Add(1500 * time.Millisecond)
	assert.True(t, limiter.Allow("k"))
	assert.False(t, limiter.Allow("k"))
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := NewRateLimiter(1, 0)
	defer limiter.Stop()
	h := RateLimitMiddleware(limiter)(okHandler)

	call := func(path, addr string) int {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, call("/v1/triage/analyze", "10.0.0.1:1234"))
	assert.Equal(t, http.StatusTooManyRequests, call("/v1/triage/analyze", "10.0.0.1:5678"))
	assert.Equal(t, http.StatusOK, call("/v1/triage/analyze", "10.0.0.2:1234"))
	assert.Equal(t, http.StatusOK, call("/health", "10.0.0.1:1234"))
}

func TestRateLimiterEvict(t *testing.T) {
	limiter := NewRateLimiter(1, 1)
	defer limiter.Stop()
	limiter.Allow("a")
	limiter.evict(time.Now().Add(time.Hour), 10*time.Minute)
	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	assert.Empty(t, limiter.buckets)
}

func TestValidators(t *testing.T) {
	assert.Equal(t, "chest pain\nfever", SanitizeString(" chest\x00 pain\nfever\x07 "))
	assert.NoError(t, ValidateSymptoms("headache"))
	assert.Error(t, ValidateSymptoms(strings.Repeat("a", MaxSymptomsLength+1)))
	assert.NoError(t, ValidateAnalysisID("4f0e7a3c-2b1d-4c5e-9f8a-1b2c3d4e5f60"))
	assert.Error(t, ValidateAnalysisID("../etc"))
	assert.Error(t, ValidateAnalysisID(""))
	assert.Equal(t, 1, ValidatePage(-3))
	assert.Equal(t, 20, ValidateLimit(0))
	assert.Equal(t, 100, ValidateLimit(1000))
}

type staticSource map[string]string

func (s staticSource) Lookup(name string) (string, bool) {
	v, ok := s[name]
	return v, ok
}

func TestRunChecks(t *testing.T) {
	ok := HealthCheckFunc(func(context.Context) error { return nil })
	bad := HealthCheckFunc(func(context.Context) error { return errors.New("down") })

	h := RunChecks(context.Background(), []Check{{Name: "db", Checker: ok}})
	assert.Equal(t, "healthy", h.Status)

	h = RunChecks(context.Background(), []Check{
		{Name: "db", Checker: ok},
		{Name: "credential", Checker: &CredentialHealthChecker{Source: staticSource{}, Name: "XAI_API_KEY"}, Optional: true},
	})
	assert.Equal(t, "degraded", h.Status)
	assert.Equal(t, "XAI_API_KEY not configured", h.Checks["credential"].Message)

	h = RunChecks(context.Background(), []Check{
		{Name: "credential", Checker: bad, Optional: true},
		{Name: "storage", Checker: bad},
	})
	assert.Equal(t, "unhealthy", h.Status)
}

func TestHealthHandlerStatusCode(t *testing.T) {
	bad := HealthCheckFunc(func(context.Context) error { return errors.New("down") })
	rec := httptest.NewRecorder()
	HealthHandler([]Check{{Name: "db", Checker: bad}})(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body HealthStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "unhealthy", body.Checks["db"].Status)
}

func TestMetricsMiddleware(t *testing.T) {
	before := GetMetrics()
	h := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

	after := GetMetrics()
	assert.Equal(t, before.RequestsFailed+1, after.RequestsFailed)
	assert.Equal(t, before.RequestsTotal+1, after.RequestsTotal)
	assert.Zero(t, after.RequestsInProgress)
}

func TestRecordAnalysis(t *testing.T) {
	before := GetMetrics()
	RecordAnalysis("agents", OutcomeCritical)
	RecordAnalysis("", OutcomeFailed)

	after := GetMetrics()
	assert.Equal(t, before.AnalysesByOutcome[OutcomeCritical]+1, after.AnalysesByOutcome[OutcomeCritical])
	assert.Equal(t, before.AnalysesByOutcome[OutcomeFailed]+1, after.AnalysesByOutcome[OutcomeFailed])
	assert.Equal(t, before.AnalysesByMode["agents"]+1, after.AnalysesByMode["agents"])
	assert.Equal(t, before.AnalysesByMode["default"]+1, after.AnalysesByMode["default"])
}

func TestLoggingPassesThrough(t *testing.T) {
	h := Logging(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestLoggingNamesAuthenticatedClient(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := Logging(zap.New(core))(APIKeyAuth(map[string]string{"web": "k1"})(okHandler))

	req := httptest.NewRequest(http.MethodPost, "/v1/triage/analyze", nil)
	req.Header.Set("Authorization", "Bearer k1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	req = httptest.NewRequest(http.MethodPost, "/v1/triage/analyze", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	h.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "web", entries[0].ContextMap()["client"])
	assert.Equal(t, int64(http.StatusOK), entries[0].ContextMap()["status"])
	assert.Equal(t, "", entries[1].ContextMap()["client"])
	assert.Equal(t, int64(http.StatusUnauthorized), entries[1].ContextMap()["status"])
}

func TestRecordAnalysisBoundsModeLabels(t *testing.T) {
	for i := 0; i < 50; i++ {
		RecordAnalysis(fmt.Sprintf("mode-%d", i), OutcomeFailed)
	}
	assert.LessOrEqual(t, len(GetMetrics().AnalysesByMode), maxModeLabels+1)
}
