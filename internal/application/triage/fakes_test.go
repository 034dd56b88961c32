package triage

import (
	"context"
	"errors"
	"sync"

	"github.com/bryanwahyu/vaidyamitra/internal/domain/history"
	domain "github.com/bryanwahyu/vaidyamitra/internal/domain/triage"
)

type fakeModel struct {
	mu      sync.Mutex
	replies []string
	errAt   int // 1-based call that fails; 0 never
	err     error
	calls   []domain.Instruction
}

func (m *fakeModel) Name() string { return "fake-model" }

func (m *fakeModel) Complete(_ context.Context, in domain.Instruction) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, in)
	n := len(m.calls)
	if m.errAt == n {
		return "", m.err
	}
	if n <= len(m.replies) {
		return m.replies[n-1], nil
	}
	return "", nil
}

func (m *fakeModel) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

type factoryRecorder struct {
	model *fakeModel
	keys  []string
}

func (f *factoryRecorder) build(apiKey string) (domain.Model, error) {
	f.keys = append(f.keys, apiKey)
	return f.model, nil
}

type memRepo struct {
	mu      sync.Mutex
	records []*history.Record
	saveErr error
}

func (r *memRepo) Save(_ context.Context, rec *history.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.records = append(r.records, rec)
	return nil
}

func (r *memRepo) Get(_ context.Context, id domain.AnalysisID) (*history.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.ID == id {
			return rec, nil
		}
	}
	return nil, history.ErrNotFound
}

func (r *memRepo) Paginate(_ context.Context, page, pageSize int) ([]*history.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	start := (page - 1) * pageSize
	if start >= len(r.records) {
		return nil, nil
	}
	end := start + pageSize
	if end > len(r.records) {
		end = len(r.records)
	}
	return r.records[start:end], nil
}

type fakeReports struct {
	url string
	err error
	got []*domain.AnalysisResult
}

func (f *fakeReports) PutReport(_ context.Context, r *domain.AnalysisResult) (string, error) {
	f.got = append(f.got, r)
	if f.err != nil {
		return "", f.err
	}
	return f.url, nil
}

var errTransport = errors.New("dial tcp: connection refused")

func f32(v float32) *float32 { return &v }
