package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/bryanwahyu/vaidyamitra/internal/domain/history"
	"github.com/bryanwahyu/vaidyamitra/internal/domain/triage"
)

const schema = `
CREATE TABLE IF NOT EXISTS triage_analyses (
  id         TEXT        PRIMARY KEY,
  symptoms   TEXT        NOT NULL,
  analysis   TEXT        NOT NULL,
  urgency    TEXT        NOT NULL,
  mode       TEXT        NOT NULL,
  model      TEXT        NOT NULL,
  status     TEXT        NOT NULL,
  error      TEXT        NOT NULL,
  report_url TEXT        NOT NULL,
  created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_triage_created ON triage_analyses (created_at)`

type HistoryRepository struct {
	db *sql.DB
}

func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Migrate creates the history table when missing
func (r *HistoryRepository) Migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

// Save inserts or replaces an analysis record
func (r *HistoryRepository) Save(ctx context.Context, rec *history.Record) error {
	const q = `
INSERT INTO triage_analyses
  (id, symptoms, analysis, urgency, mode, model, status, error, report_url, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO UPDATE SET
  analysis=EXCLUDED.analysis,
  urgency=EXCLUDED.urgency,
  status=EXCLUDED.status,
  error=EXCLUDED.error,
  report_url=EXCLUDED.report_url;
`
	_, err := r.db.ExecContext(ctx, q, recordArgs(rec, time.Now().UTC())...)
	return err
}

// recordArgs lists rec in column order; a zero CreatedAt becomes now.
func recordArgs(rec *history.Record, now time.Time) []any {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	return []any{
		string(rec.ID), rec.Symptoms, rec.Analysis, string(rec.Urgency), string(rec.Mode),
		rec.Model, string(rec.Status), rec.Error, rec.ReportURL, createdAt,
	}
}

// Get returns a single record or history.ErrNotFound
func (r *HistoryRepository) Get(ctx context.Context, id triage.AnalysisID) (*history.Record, error) {
	const q = `
SELECT id, symptoms, analysis, urgency, mode, model, status, error, report_url, created_at
FROM triage_analyses
WHERE id=$1;`
	rec, err := scanRecord(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, history.ErrNotFound
	}
	return rec, err
}

// Paginate returns a page of records ordered by created_at desc
func (r *HistoryRepository) Paginate(ctx context.Context, page, pageSize int) ([]*history.Record, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	const q = `
SELECT id, symptoms, analysis, urgency, mode, model, status, error, report_url, created_at
FROM triage_analyses
ORDER BY created_at DESC, id DESC
LIMIT $1 OFFSET $2;
`
	rows, err := r.db.QueryContext(ctx, q, pageSize, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*history.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*history.Record, error) {
	var rec history.Record
	var urgency, mode, status string
	if err := row.Scan(&rec.ID, &rec.Symptoms, &rec.Analysis, &urgency, &mode, &rec.Model,
		&status, &rec.Error, &rec.ReportURL, &rec.CreatedAt); err != nil {
		return nil, err
	}
	rec.Urgency = triage.Urgency(urgency)
	rec.Mode = triage.Mode(mode)
	rec.Status = history.Status(status)
	return &rec, nil
}
