package precedents

import "context"

// Filter narrows List results. Zero values mean "no constraint".
type Filter struct {
	Court    string
	Year     int
	Keyword  string
	CaseType string
	Limit    int
	Offset   int
}

// Repo defines persistence operations for precedent cases.
type Repo interface {
	Create(ctx context.Context, p PrecedentCase) error
	GetByID(ctx context.Context, id string) (PrecedentCase, error)
	GetBySourceID(ctx context.Context, sourceID string) (PrecedentCase, error)
	List(ctx context.Context, filter Filter) ([]PrecedentCase, error)
	ListUnembedded(ctx context.Context) ([]PrecedentCase, error)
	ListEmbedded(ctx context.Context) ([]PrecedentCase, error)

	// UpsertByExternalID inserts p unless a record with the same SourceID or
	// SourceURL already exists. The existing record wins and is returned
	// unmodified; inserted reports whether a new row was written.
	UpsertByExternalID(ctx context.Context, p PrecedentCase) (stored PrecedentCase, inserted bool, err error)

	// SetEmbedding writes only the embedding (and the indexed mirror flag)
	// without rewriting the rest of the record.
	SetEmbedding(ctx context.Context, id string, vec []float64) error
	ClearEmbedding(ctx context.Context, id string) error
}
