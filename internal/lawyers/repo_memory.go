package lawyers

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryRepo stores lawyers in memory, safe for concurrent use.
type MemoryRepo struct {
	mu    sync.RWMutex
	items []Lawyer
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{}
}

// Create stores the lawyer.
func (r *MemoryRepo) Create(ctx context.Context, l Lawyer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, l)
	return nil
}

// GetByID returns a lawyer by ID.
func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Lawyer, error) {
	if err := ctx.Err(); err != nil {
		return Lawyer{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, l := range r.items {
		if l.ID == id {
			return l, nil
		}
	}
	return Lawyer{}, ErrNotFound
}

// ListVerifiedBySpecialization returns verified lawyers in the given
// specialization, ranked by rating then wins.
func (r *MemoryRepo) ListVerifiedBySpecialization(ctx context.Context, specialization string, limit int) ([]Lawyer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Lawyer, 0)
	for _, l := range r.items {
		if l.Verified && strings.EqualFold(l.Specialization, specialization) {
			out = append(out, l)
		}
	}
	rankLawyers(out)
	return truncate(out, limit), nil
}

// ListTopVerified returns the best verified lawyers regardless of
// specialization.
func (r *MemoryRepo) ListTopVerified(ctx context.Context, limit int) ([]Lawyer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Lawyer, 0)
	for _, l := range r.items {
		if l.Verified {
			out = append(out, l)
		}
	}
	rankLawyers(out)
	return truncate(out, limit), nil
}

func rankLawyers(list []Lawyer) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Rating != list[j].Rating {
			return list[i].Rating > list[j].Rating
		}
		return list[i].CasesWon > list[j].CasesWon
	})
}

func truncate(list []Lawyer, limit int) []Lawyer {
	if limit > 0 && limit < len(list) {
		return list[:limit]
	}
	return list
}

var _ Repo = (*MemoryRepo)(nil)
