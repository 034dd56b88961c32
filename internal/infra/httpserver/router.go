package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	apptriage "github.com/bryanwahyu/vaidyamitra/internal/application/triage"
	"github.com/bryanwahyu/vaidyamitra/internal/domain/ai"
	"github.com/bryanwahyu/vaidyamitra/internal/domain/history"
	domain "github.com/bryanwahyu/vaidyamitra/internal/domain/triage"
	"github.com/bryanwahyu/vaidyamitra/internal/middleware"
	"github.com/bryanwahyu/vaidyamitra/internal/render"
)

// ProviderKeyHeader carries a caller supplied AI provider key for one request
const ProviderKeyHeader = "X-Provider-Key"

type Options struct {
	Logger         *zap.Logger
	AuthKeys       map[string]string
	Limiter        *middleware.RateLimiter
	AllowedOrigins []string
	HealthChecks   []middleware.Check
}

type Router struct {
	triageSvc *apptriage.Service
	log       *zap.Logger
}

func NewRouter(triageSvc *apptriage.Service, opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	r := &Router{triageSvc: triageSvc, log: log}
	mux := chi.NewRouter()

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", ProviderKeyHeader},
		MaxAge:         300,
	}))
	mux.Use(middleware.Logging(log))
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(middleware.APIKeyAuth(opts.AuthKeys))
	if opts.Limiter != nil {
		mux.Use(middleware.RateLimitMiddleware(opts.Limiter))
	}

	mux.Get("/health", middleware.HealthHandler(opts.HealthChecks))
	mux.Get("/ready", middleware.ReadinessHandler)
	mux.Get("/live", middleware.LivenessHandler)
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Route("/v1/triage", func(rt chi.Router) {
		rt.Post("/analyze", r.wrap(r.handleAnalyze))
		rt.Get("/history", r.wrap(r.handleHistory))
		rt.Get("/history/{id}", r.wrap(r.handleGet))
	})

	return mux
}

// badRequest marks request decoding/validation errors
type badRequest struct{ err error }

func (b badRequest) Error() string { return b.err.Error() }
func (b badRequest) Unwrap() error { return b.err }

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		status, code := classify(err)
		if status >= http.StatusInternalServerError {
			r.log.Warn("request failed", zap.String("path", req.URL.Path), zap.Error(err))
		}
		writeJSON(w, status, errorBody{Error: code, Message: err.Error(), Hint: render.ErrorHint(err)})
	}
}

func classify(err error) (int, string) {
	var br badRequest
	switch {
	case errors.Is(err, domain.ErrMissingCredential):
		return http.StatusUnauthorized, "missing_credential"
	case errors.Is(err, domain.ErrEmptySymptoms):
		return http.StatusBadRequest, "empty_symptoms"
	case errors.Is(err, domain.ErrInvalidMode), errors.Is(err, domain.ErrInvalidTemperature), errors.As(err, &br):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, history.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apptriage.ErrHistoryDisabled):
		return http.StatusNotImplemented, "history_disabled"
	case errors.Is(err, ai.ErrQuotaExceeded):
		return http.StatusTooManyRequests, "quota_exceeded"
	default:
		return http.StatusBadGateway, "invocation_failed"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// POST /v1/triage/analyze
// Body: {"symptoms": "...", "mode": "direct|agents", "temperature": 0.3}
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	var body domain.AnalysisRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, req.Body, 64<<10)).Decode(&body); err != nil {
		return badRequest{fmt.Errorf("invalid JSON body: %w", err)}
	}
	symptoms := middleware.SanitizeString(body.Symptoms)
	if err := middleware.ValidateSymptoms(symptoms); err != nil {
		return badRequest{err}
	}

	res, err := r.triageSvc.Analyze(req.Context(), apptriage.AnalyzeCommand{
		Symptoms:    symptoms,
		APIKey:      req.Header.Get(ProviderKeyHeader),
		Mode:        body.Mode,
		Temperature: body.Temperature,
	})
	if err != nil {
		middleware.RecordAnalysis(modeLabel(body.Mode), middleware.OutcomeFailed)
		return err
	}
	outcome := middleware.OutcomeNormal
	if res.Urgency == domain.UrgencyCritical {
		outcome = middleware.OutcomeCritical
	}
	middleware.RecordAnalysis(string(res.Mode), outcome)
	return writeJSON(w, http.StatusOK, res)
}

// modeLabel maps a caller supplied mode onto a fixed metrics label set.
func modeLabel(raw string) string {
	m, err := domain.ParseMode(raw, "")
	switch {
	case err != nil:
		return "invalid"
	case m == "":
		return "default"
	default:
		return string(m)
	}
}

// GET /v1/triage/history?page=&page_size=
func (r *Router) handleHistory(w http.ResponseWriter, req *http.Request) error {
	page, _ := strconv.Atoi(req.URL.Query().Get("page"))
	size, _ := strconv.Atoi(req.URL.Query().Get("page_size"))

	list, err := r.triageSvc.History(req.Context(), middleware.ValidatePage(page), middleware.ValidateLimit(size))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// GET /v1/triage/history/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateAnalysisID(id); err != nil {
		return badRequest{err}
	}
	rec, err := r.triageSvc.Get(req.Context(), domain.AnalysisID(id))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, rec)
}
