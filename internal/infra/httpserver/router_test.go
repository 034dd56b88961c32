package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/vaidyamitra/internal/application"
	apptriage "github.com/bryanwahyu/vaidyamitra/internal/application/triage"
	"github.com/bryanwahyu/vaidyamitra/internal/domain/ai"
	"github.com/bryanwahyu/vaidyamitra/internal/domain/history"
	domain "github.com/bryanwahyu/vaidyamitra/internal/domain/triage"
	"github.com/bryanwahyu/vaidyamitra/internal/infra/secrets"
	"github.com/bryanwahyu/vaidyamitra/internal/middleware"
)

type stubModel struct {
	reply string
	err   error
	calls int
	keys  []string
	temps []float32
}

func (m *stubModel) Name() string { return "stub" }

func (m *stubModel) Complete(_ context.Context, in domain.Instruction) (string, error) {
	m.calls++
	m.temps = append(m.temps, in.Temperature)
	return m.reply, m.err
}

type memRepo struct {
	mu   sync.Mutex
	recs map[domain.AnalysisID]*history.Record
}

func (r *memRepo) Save(_ context.Context, rec *history.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recs[rec.ID] = rec
	return nil
}

func (r *memRepo) Get(_ context.Context, id domain.AnalysisID) (*history.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.recs[id]; ok {
		return rec, nil
	}
	return nil, history.ErrNotFound
}

func (r *memRepo) Paginate(context.Context, int, int) ([]*history.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*history.Record, 0, len(r.recs))
	for _, rec := range r.recs {
		out = append(out, rec)
	}
	return out, nil
}

func newTestRouter(m *stubModel, creds secrets.Static, repo history.Repository) http.Handler {
	svc := &apptriage.Service{
		Models: func(key string) (domain.Model, error) {
			m.keys = append(m.keys, key)
			return m, nil
		},
		Credentials: creds,
		Repo:        repo,
		Clock:       application.SystemClock{},
	}
	return NewRouter(svc, Options{})
}

func post(t *testing.T, h http.Handler, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/triage/analyze", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAnalyzeCritical(t *testing.T) {
	m := &stubModel{reply: "this requires IMMEDIATE medical attention"}
	h := newTestRouter(m, secrets.Static{"XAI_API_KEY": "k"}, nil)

	rec := post(t, h, `{"symptoms":"severe chest pain and difficulty breathing"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var res domain.AnalysisResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.Equal(t, domain.UrgencyCritical, res.Urgency)
	assert.Equal(t, domain.ModeDirect, res.Mode)
	assert.Equal(t, 1, m.calls)
}

func TestAnalyzeMissingCredential(t *testing.T) {
	m := &stubModel{reply: "x"}
	h := newTestRouter(m, secrets.Static{}, nil)

	rec := post(t, h, `{"symptoms":"cough"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error":"missing_credential"`)
	assert.Equal(t, 0, m.calls)
}

func TestAnalyzeProviderKeyHeader(t *testing.T) {
	m := &stubModel{reply: "Urgency: LOW"}
	h := newTestRouter(m, secrets.Static{}, nil)

	rec := post(t, h, `{"symptoms":"cough"}`, map[string]string{ProviderKeyHeader: "xai-user"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"xai-user"}, m.keys)
}

func TestAnalyzeBadRequests(t *testing.T) {
	m := &stubModel{reply: "x"}
	h := newTestRouter(m, secrets.Static{"XAI_API_KEY": "k"}, nil)

	tests := []struct {
		body string
		code string
	}{
		{`{"symptoms":"  "}`, "empty_symptoms"},
		{`{"symptoms":"cough","mode":"crew"}`, "invalid_request"},
		{`{"symptoms":"cough","temperature":2}`, "invalid_request"},
		{`not json`, "invalid_request"},
		{fmt.Sprintf(`{"symptoms":%q}`, strings.Repeat("a", 5000)), "invalid_request"},
	}
	for _, tt := range tests {
		rec := post(t, h, tt.body, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, tt.body)
		assert.Contains(t, rec.Body.String(), tt.code)
	}
	assert.Equal(t, 0, m.calls)
}

func TestAnalyzeInvocationFailures(t *testing.T) {
	m := &stubModel{err: fmt.Errorf("failed to create chat completion: %w", ai.ErrQuotaExceeded)}
	h := newTestRouter(m, secrets.Static{"XAI_API_KEY": "k"}, nil)
	rec := post(t, h, `{"symptoms":"cough"}`, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	m.err = fmt.Errorf("dial tcp: connection refused")
	rec = post(t, h, `{"symptoms":"cough"}`, nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	var body errorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "invocation_failed", body.Error)
	assert.Contains(t, body.Message, "connection refused")
}

func TestHistoryEndpoints(t *testing.T) {
	m := &stubModel{reply: "Urgency: LOW"}
	repo := &memRepo{recs: map[domain.AnalysisID]*history.Record{}}
	h := newTestRouter(m, secrets.Static{"XAI_API_KEY": "k"}, repo)

	rec := post(t, h, `{"symptoms":"cough"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var res domain.AnalysisResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))

	get := httptest.NewRecorder()
	h.ServeHTTP(get, httptest.NewRequest(http.MethodGet, "/v1/triage/history/"+string(res.ID), nil))
	require.Equal(t, http.StatusOK, get.Code)
	var stored history.Record
	require.NoError(t, json.NewDecoder(get.Body).Decode(&stored))
	assert.Equal(t, "cough", stored.Symptoms)
	assert.Equal(t, history.StatusSuccess, stored.Status)

	list := httptest.NewRecorder()
	h.ServeHTTP(list, httptest.NewRequest(http.MethodGet, "/v1/triage/history?page=1&page_size=5", nil))
	require.Equal(t, http.StatusOK, list.Code)
	var page history.Page
	require.NoError(t, json.NewDecoder(list.Body).Decode(&page))
	assert.Equal(t, 5, page.PageSize)
	assert.Len(t, page.Data, 1)

	missing := httptest.NewRecorder()
	h.ServeHTTP(missing, httptest.NewRequest(http.MethodGet, "/v1/triage/history/4f0e7a3c-2b1d-4c5e-9f8a-1b2c3d4e5f60", nil))
	assert.Equal(t, http.StatusNotFound, missing.Code)

	bad := httptest.NewRecorder()
	h.ServeHTTP(bad, httptest.NewRequest(http.MethodGet, "/v1/triage/history/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, bad.Code)
}

func TestHistoryDisabled(t *testing.T) {
	h := newTestRouter(&stubModel{}, nil, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/triage/history", nil))
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestOperationalEndpoints(t *testing.T) {
	h := newTestRouter(&stubModel{}, nil, nil)
	for _, path := range []string{"/health", "/ready", "/live", "/metrics"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestAnalyzeUnknownModesAddNoMetricLabels(t *testing.T) {
	m := &stubModel{reply: "x"}
	h := newTestRouter(m, secrets.Static{}, nil)

	allowed := map[string]bool{"invalid": true}
	for mode := range middleware.GetMetrics().AnalysesByMode {
		allowed[mode] = true
	}
	for i := 0; i < 50; i++ {
		rec := post(t, h, fmt.Sprintf(`{"symptoms":"cough","mode":"junk-%d"}`, i), nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	for mode := range middleware.GetMetrics().AnalysesByMode {
		assert.True(t, allowed[mode], "unexpected mode label %q", mode)
	}
	assert.Equal(t, 0, m.calls)
}

func TestModeLabel(t *testing.T) {
	assert.Equal(t, "default", modeLabel(""))
	assert.Equal(t, "direct", modeLabel("direct"))
	assert.Equal(t, "agents", modeLabel("agents"))
	assert.Equal(t, "invalid", modeLabel("junk"))
}

func TestAnalyzeTemperature(t *testing.T) {
	m := &stubModel{reply: "Urgency: LOW"}
	h := newTestRouter(m, secrets.Static{"XAI_API_KEY": "k"}, nil)

	require.Equal(t, http.StatusOK, post(t, h, `{"symptoms":"cough","temperature":0}`, nil).Code)
	require.Equal(t, http.StatusOK, post(t, h, `{"symptoms":"cough"}`, nil).Code)
	require.Len(t, m.temps, 2)
	assert.Zero(t, m.temps[0])
	assert.InDelta(t, apptriage.DefaultTemperature, m.temps[1], 0.0001)
}
