package middleware

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// Outcome labels for RecordAnalysis.
const (
	OutcomeCritical = "critical"
	OutcomeNormal   = "normal"
	OutcomeFailed   = "failed"
)

// maxModeLabels bounds the per-mode counter map; further labels share "other".
const maxModeLabels = 8

type requestCounters struct {
	total      atomic.Uint64
	inProgress atomic.Int64
	failed     atomic.Uint64
}

type analysisCounters struct {
	mu        sync.Mutex
	byOutcome map[string]uint64
	byMode    map[string]uint64
}

var (
	startTime = time.Now()
	requests  requestCounters
	analyses  = analysisCounters{byOutcome: map[string]uint64{}, byMode: map[string]uint64{}}
)

// RecordAnalysis counts one finished analysis under its pipeline mode and outcome.
func RecordAnalysis(mode, outcome string) {
	analyses.mu.Lock()
	defer analyses.mu.Unlock()
	if mode == "" {
		mode = "default"
	}
	if _, seen := analyses.byMode[mode]; !seen && len(analyses.byMode) >= maxModeLabels {
		mode = "other"
	}
	analyses.byMode[mode]++
	analyses.byOutcome[outcome]++
}

// Snapshot is the JSON document served on /metrics.
type Snapshot struct {
	RequestsTotal      uint64            `json:"requests_total"`
	RequestsInProgress int64             `json:"requests_in_progress"`
	RequestsFailed     uint64            `json:"requests_failed"`
	AnalysesByOutcome  map[string]uint64 `json:"analyses_by_outcome"`
	AnalysesByMode     map[string]uint64 `json:"analyses_by_mode"`
	UptimeSeconds      float64           `json:"uptime_seconds"`
	Goroutines         int               `json:"goroutines"`
	HeapAllocBytes     uint64            `json:"heap_alloc_bytes"`
}

func GetMetrics() Snapshot {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	analyses.mu.Lock()
	outcomes := make(map[string]uint64, len(analyses.byOutcome))
	for k, v := range analyses.byOutcome {
		outcomes[k] = v
	}
	modes := make(map[string]uint64, len(analyses.byMode))
	for k, v := range analyses.byMode {
		modes[k] = v
	}
	analyses.mu.Unlock()

	return Snapshot{
		RequestsTotal:      requests.total.Load(),
		RequestsInProgress: requests.inProgress.Load(),
		RequestsFailed:     requests.failed.Load(),
		AnalysesByOutcome:  outcomes,
		AnalysesByMode:     modes,
		UptimeSeconds:      time.Since(startTime).Seconds(),
		Goroutines:         runtime.NumGoroutine(),
		HeapAllocBytes:     mem.HeapAlloc,
	}
}

// MetricsMiddleware counts requests; 4xx/5xx responses count as failed.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.total.Add(1)
		requests.inProgress.Add(1)
		defer requests.inProgress.Add(-1)

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		if wrapped.statusCode >= http.StatusBadRequest {
			requests.failed.Add(1)
		}
	})
}

func MetricsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(GetMetrics())
}
