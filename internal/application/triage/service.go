package triage

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryanwahyu/vaidyamitra/internal/application"
	"github.com/bryanwahyu/vaidyamitra/internal/domain/history"
	domain "github.com/bryanwahyu/vaidyamitra/internal/domain/triage"
)

// DefaultSecretName is the credential looked up when a request carries no key.
const DefaultSecretName = "XAI_API_KEY"

// DefaultTemperature keeps answers mostly deterministic.
const DefaultTemperature float32 = 0.3

// ErrHistoryDisabled is returned by history queries when no repository is configured.
var ErrHistoryDisabled = errors.New("analysis history is not configured")

// Service implements the symptom analysis use-cases.
// Each Analyze call is independent; Service holds no per-request state.
type Service struct {
	Models      domain.ModelFactory
	Credentials domain.CredentialSource
	SecretName  string
	Repo        history.Repository // optional
	Reports     domain.ReportStore // optional
	Clock       application.Clock
	Logger      *zap.Logger

	DefaultMode domain.Mode
	// Temperature is the configured default; nil means DefaultTemperature.
	Temperature *float32
	Language    string
}

// AnalyzeCommand is one analysis request. APIKey, when set, takes precedence
// over the credential source. A nil Temperature selects the configured default;
// an explicit zero is honoured.
type AnalyzeCommand struct {
	Symptoms    string
	APIKey      string
	Mode        string
	Temperature *float32
}

// SecretName returns name, or DefaultSecretName when name is blank.
func SecretName(name string) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	return DefaultSecretName
}

// Analyze resolves the credential, runs the pipeline and classifies the output.
func (s *Service) Analyze(ctx context.Context, cmd AnalyzeCommand) (*domain.AnalysisResult, error) {
	log := s.logger()

	apiKey, ok := s.credential(cmd.APIKey)
	if !ok {
		log.Info("analysis rejected", zap.Error(domain.ErrMissingCredential))
		return nil, domain.ErrMissingCredential
	}
	symptoms := strings.TrimSpace(cmd.Symptoms)
	if symptoms == "" {
		return nil, domain.ErrEmptySymptoms
	}
	temp, err := s.temperature(cmd.Temperature)
	if err != nil {
		return nil, err
	}
	mode, err := domain.ParseMode(cmd.Mode, s.defaultMode())
	if err != nil {
		return nil, err
	}
	pipe, err := NewPipeline(mode, s.Language, temp)
	if err != nil {
		return nil, err
	}

	model, err := s.Models(apiKey)
	if err != nil {
		return nil, err
	}

	id := domain.AnalysisID(uuid.New().String())
	log = log.With(zap.String("analysis_id", string(id)), zap.String("mode", string(mode)), zap.String("model", model.Name()))
	log.Info("analysis started")

	steps, err := pipe.Run(ctx, model, symptoms)
	if err != nil {
		log.Warn("analysis failed", zap.Error(err))
		s.saveFailure(id, symptoms, mode, model.Name(), err)
		return nil, err
	}

	res := domain.NewResult(id, Combine(steps), mode, model.Name(), steps, s.now())
	log.Info("analysis finished", zap.Stringer("urgency", res.Urgency))

	if s.Reports != nil {
		url, err := s.Reports.PutReport(ctx, res)
		if err != nil {
			log.Warn("report upload failed", zap.Error(err))
		} else {
			res.ReportURL = url
		}
	}
	if s.Repo != nil {
		if err := s.Repo.Save(ctx, history.FromResult(symptoms, res)); err != nil {
			log.Warn("history save failed", zap.Error(err))
		}
	}
	return res, nil
}

// History returns a page of past analyses, newest first.
func (s *Service) History(ctx context.Context, page, pageSize int) (*history.Page, error) {
	if s.Repo == nil {
		return nil, ErrHistoryDisabled
	}
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	list, err := s.Repo.Paginate(ctx, page, pageSize)
	if err != nil {
		return nil, err
	}
	return &history.Page{Data: list, Page: page, PageSize: pageSize}, nil
}

// Get returns one past analysis.
func (s *Service) Get(ctx context.Context, id domain.AnalysisID) (*history.Record, error) {
	if s.Repo == nil {
		return nil, ErrHistoryDisabled
	}
	return s.Repo.Get(ctx, id)
}

func (s *Service) credential(explicit string) (string, bool) {
	if k := strings.TrimSpace(explicit); k != "" {
		return k, true
	}
	if s.Credentials == nil {
		return "", false
	}
	return s.Credentials.Lookup(SecretName(s.SecretName))
}

func (s *Service) temperature(t *float32) (float32, error) {
	if t == nil {
		t = s.Temperature
	}
	if t == nil {
		return DefaultTemperature, nil
	}
	if *t < 0 || *t > 1 {
		return 0, domain.ErrInvalidTemperature
	}
	return *t, nil
}

func (s *Service) defaultMode() domain.Mode {
	if s.DefaultMode == "" {
		return domain.ModeDirect
	}
	return s.DefaultMode
}

// saveFailure records a failed analysis; it must not mask the invocation error.
func (s *Service) saveFailure(id domain.AnalysisID, symptoms string, mode domain.Mode, model string, cause error) {
	if s.Repo == nil {
		return
	}
	rec := &history.Record{
		ID:        id,
		Symptoms:  symptoms,
		Mode:      mode,
		Model:     model,
		Status:    history.StatusFailed,
		Error:     cause.Error(),
		CreatedAt: s.now(),
	}
	// the request context may already be cancelled
	if err := s.Repo.Save(context.Background(), rec); err != nil {
		s.logger().Warn("history save failed", zap.String("analysis_id", string(id)), zap.Error(err))
	}
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return application.SystemClock{}.Now()
	}
	return s.Clock.Now()
}

func (s *Service) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}
