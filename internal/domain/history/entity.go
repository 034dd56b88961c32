package history

import (
	"time"

	"github.com/bryanwahyu/vaidyamitra/internal/domain/triage"
)

// Status of a recorded analysis
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Record is an analysis kept for auditing and retrieval
type Record struct {
	ID        triage.AnalysisID `json:"id"`
	Symptoms  string            `json:"symptoms"`
	Analysis  string            `json:"analysis"`
	Urgency   triage.Urgency    `json:"urgency"`
	Mode      triage.Mode       `json:"mode"`
	Model     string            `json:"model"`
	Status    Status            `json:"status"`
	Error     string            `json:"error,omitempty"`
	ReportURL string            `json:"report_url,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// FromResult builds a success record
func FromResult(symptoms string, r *triage.AnalysisResult) *Record {
	return &Record{
		ID:        r.ID,
		Symptoms:  symptoms,
		Analysis:  r.Analysis,
		Urgency:   r.Urgency,
		Mode:      r.Mode,
		Model:     r.Model,
		Status:    StatusSuccess,
		ReportURL: r.ReportURL,
		CreatedAt: r.CreatedAt,
	}
}

// Result converts a record back into an AnalysisResult
func (r *Record) Result() *triage.AnalysisResult {
	return &triage.AnalysisResult{
		ID:        r.ID,
		Analysis:  r.Analysis,
		Urgency:   r.Urgency,
		Mode:      r.Mode,
		Model:     r.Model,
		ReportURL: r.ReportURL,
		CreatedAt: r.CreatedAt,
	}
}

// Page is a paginated list of records
type Page struct {
	Data     []*Record `json:"data"`
	Page     int       `json:"page"`
	PageSize int       `json:"pageSize"`
}
