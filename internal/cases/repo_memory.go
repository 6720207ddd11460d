package cases

import (
	"context"
	"sync"
	"time"

	"precedent-backend/internal/analysis"
	"precedent-backend/internal/precedents"
)

// MemoryRepo stores cases in memory, safe for concurrent use.
type MemoryRepo struct {
	mu    sync.RWMutex
	byID  map[string]int
	items []Case
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]int)}
}

// Create stores the case.
func (r *MemoryRepo) Create(ctx context.Context, c Case) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[c.ID] = len(r.items)
	r.items = append(r.items, c)
	return nil
}

// GetByID returns a case by ID.
func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Case, error) {
	if err := ctx.Err(); err != nil {
		return Case{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.byID[id]
	if !ok {
		return Case{}, ErrNotFound
	}
	return r.items[idx], nil
}

// List returns cases newest-first, matching the Postgres repo.
func (r *MemoryRepo) List(ctx context.Context, limit, offset int) ([]Case, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	reversed := make([]Case, 0, len(r.items))
	for i := len(r.items) - 1; i >= 0; i-- {
		reversed = append(reversed, r.items[i])
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(reversed) {
		return []Case{}, nil
	}
	out := reversed[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// SetAnalysis writes back the analysis result and match list.
func (r *MemoryRepo) SetAnalysis(ctx context.Context, id string, result analysis.Result, matches []precedents.Match, analyzedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	idx, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	r.items[idx].Analysis = &result
	r.items[idx].RetrievedMatches = matches
	r.items[idx].AnalyzedAt = &analyzedAt
	r.items[idx].CaseType = result.CaseType
	r.items[idx].AnalysisStatus = AnalysisStatusCompleted
	r.items[idx].UpdatedAt = time.Now().UTC()
	return nil
}

// SetAnalysisStatus updates the async analysis status.
func (r *MemoryRepo) SetAnalysisStatus(ctx context.Context, id, status string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	idx, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	r.items[idx].AnalysisStatus = status
	r.items[idx].UpdatedAt = time.Now().UTC()
	return nil
}

var _ Repo = (*MemoryRepo)(nil)
