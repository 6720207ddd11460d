package precedents

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryRepo stores precedents in memory and is safe for concurrent use.
// Insertion order is preserved so similarity-search tie-breaks stay stable.
type MemoryRepo struct {
	mu    sync.RWMutex
	byID  map[string]int
	items []PrecedentCase
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]int)}
}

// Create stores the precedent.
func (r *MemoryRepo) Create(ctx context.Context, p PrecedentCase) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[p.ID] = len(r.items)
	r.items = append(r.items, p)
	return nil
}

// GetByID returns a precedent by its ID.
func (r *MemoryRepo) GetByID(ctx context.Context, id string) (PrecedentCase, error) {
	if err := ctx.Err(); err != nil {
		return PrecedentCase{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.byID[id]
	if !ok {
		return PrecedentCase{}, ErrNotFound
	}
	return r.items[idx], nil
}

// GetBySourceID returns a precedent by its external source ID.
func (r *MemoryRepo) GetBySourceID(ctx context.Context, sourceID string) (PrecedentCase, error) {
	if err := ctx.Err(); err != nil {
		return PrecedentCase{}, err
	}
	if sourceID == "" {
		return PrecedentCase{}, ErrNotFound
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.items {
		if p.SourceID == sourceID {
			return p, nil
		}
	}
	return PrecedentCase{}, ErrNotFound
}

// List returns precedents matching the filter in insertion order.
func (r *MemoryRepo) List(ctx context.Context, filter Filter) ([]PrecedentCase, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]PrecedentCase, 0)
	for _, p := range r.items {
		if !matchesFilter(p, filter) {
			continue
		}
		out = append(out, p)
	}

	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(out) {
		return []PrecedentCase{}, nil
	}
	out = out[offset:]
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func matchesFilter(p PrecedentCase, filter Filter) bool {
	if filter.Court != "" && !strings.EqualFold(p.Court, filter.Court) {
		return false
	}
	if filter.Year != 0 && p.Year != filter.Year {
		return false
	}
	if filter.Keyword != "" {
		found := false
		needle := strings.ToLower(filter.Keyword)
		for _, kw := range p.Keywords {
			if strings.ToLower(kw) == needle {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// ListUnembedded returns precedents without an embedding, in insertion order.
func (r *MemoryRepo) ListUnembedded(ctx context.Context) ([]PrecedentCase, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]PrecedentCase, 0)
	for _, p := range r.items {
		if p.Embedding == nil {
			out = append(out, p)
		}
	}
	return out, nil
}

// ListEmbedded returns precedents carrying an embedding, in insertion order.
func (r *MemoryRepo) ListEmbedded(ctx context.Context) ([]PrecedentCase, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]PrecedentCase, 0)
	for _, p := range r.items {
		if p.Embedding != nil {
			out = append(out, p)
		}
	}
	return out, nil
}

// UpsertByExternalID inserts p unless a record with the same SourceID or
// SourceURL exists; the first match wins and the existing record is returned
// unmodified.
func (r *MemoryRepo) UpsertByExternalID(ctx context.Context, p PrecedentCase) (PrecedentCase, bool, error) {
	if err := ctx.Err(); err != nil {
		return PrecedentCase{}, false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.items {
		if p.SourceID != "" && existing.SourceID == p.SourceID {
			return existing, false, nil
		}
		if p.SourceURL != "" && existing.SourceURL == p.SourceURL {
			return existing, false, nil
		}
	}
	r.byID[p.ID] = len(r.items)
	r.items = append(r.items, p)
	return p, true, nil
}

// SetEmbedding writes the embedding and marks the record indexed.
func (r *MemoryRepo) SetEmbedding(ctx context.Context, id string, vec []float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	idx, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	r.items[idx].Embedding = vec
	r.items[idx].Indexed = true
	r.items[idx].UpdatedAt = time.Now().UTC()
	return nil
}

// ClearEmbedding removes the embedding so the record can be re-indexed.
func (r *MemoryRepo) ClearEmbedding(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	idx, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	r.items[idx].Embedding = nil
	r.items[idx].Indexed = false
	r.items[idx].UpdatedAt = time.Now().UTC()
	return nil
}

var _ Repo = (*MemoryRepo)(nil)
