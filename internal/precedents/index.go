package precedents

import (
	"context"
	"sort"

	"precedent-backend/internal/embedding"
)

// NearestNeighborIndex ranks stored precedents against a query vector.
// Implementations may be swapped for an approximate index without touching
// the analysis orchestrator.
type NearestNeighborIndex interface {
	TopK(ctx context.Context, query []float64, k int) ([]Match, error)
}

// BruteForceIndex scans every embedded precedent on each query. The corpus is
// small and bounded, so a full scan beats maintaining an approximate index.
type BruteForceIndex struct {
	Repo Repo
}

// NewBruteForceIndex constructs a BruteForceIndex over the given repo.
func NewBruteForceIndex(repo Repo) *BruteForceIndex {
	return &BruteForceIndex{Repo: repo}
}

// TopK returns up to k matches sorted by descending cosine similarity.
// Ties keep retrieval order (stable sort), and an empty corpus yields an
// empty slice, not an error.
func (idx *BruteForceIndex) TopK(ctx context.Context, query []float64, k int) ([]Match, error) {
	if k <= 0 {
		return []Match{}, nil
	}

	embedded, err := idx.Repo.ListEmbedded(ctx)
	if err != nil {
		return nil, err
	}
	if len(embedded) == 0 {
		return []Match{}, nil
	}

	matches := make([]Match, 0, len(embedded))
	for _, p := range embedded {
		matches = append(matches, Match{
			Precedent:  p,
			Similarity: embedding.Cosine(query, p.Embedding),
			Source:     SourceLocalVector,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})

	if k < len(matches) {
		matches = matches[:k]
	}
	return matches, nil
}

var _ NearestNeighborIndex = (*BruteForceIndex)(nil)
