package embedding

import (
	"context"
	"errors"
	"math"
)

// MaxInputChars bounds text sent to the embedding provider. Longer inputs are
// truncated rather than rejected to respect upstream token limits.
const MaxInputChars = 8000

// Client abstracts text embedding providers.
type Client interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
}

// ErrUpstreamUnavailable signals the embedding provider errored or timed out.
// Callers decide whether to retry; this package never retries internally.
var ErrUpstreamUnavailable = errors.New("embedding service unavailable")

// Truncate caps text at MaxInputChars.
func Truncate(text string) string {
	if len(text) > MaxInputChars {
		return text[:MaxInputChars]
	}
	return text
}

// Cosine computes cosine similarity between two vectors. It returns exactly 0
// when either vector is empty, all-zero, or the lengths differ; ranking code
// treats 0 as "no signal".
func Cosine(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
