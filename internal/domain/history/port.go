package history

import (
	"context"
	"errors"

	"github.com/bryanwahyu/vaidyamitra/internal/domain/triage"
)

// ErrNotFound is returned when no record matches an id
var ErrNotFound = errors.New("analysis not found")

// Repository port for persisting and querying analyses
type Repository interface {
	Save(ctx context.Context, r *Record) error
	Get(ctx context.Context, id triage.AnalysisID) (*Record, error)
	Paginate(ctx context.Context, page, pageSize int) ([]*Record, error)
}
