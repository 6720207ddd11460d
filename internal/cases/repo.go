package cases

import (
	"context"
	"errors"
	"time"

	"precedent-backend/internal/analysis"
	"precedent-backend/internal/precedents"
)

var ErrNotFound = errors.New("case not found")

// Repo defines persistence operations for cases.
type Repo interface {
	Create(ctx context.Context, c Case) error
	GetByID(ctx context.Context, id string) (Case, error)
	List(ctx context.Context, limit, offset int) ([]Case, error)

	// SetAnalysis writes back the analysis result and the denormalized match
	// list, replacing whatever a previous run stored. The analysis status
	// moves to completed.
	SetAnalysis(ctx context.Context, id string, result analysis.Result, matches []precedents.Match, analyzedAt time.Time) error

	// SetAnalysisStatus updates only the async analysis status.
	SetAnalysisStatus(ctx context.Context, id, status string) error
}
