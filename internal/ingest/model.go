package ingest

import "time"

const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

const (
	KindSync    = "sync"
	KindReindex = "reindex"
)

// failurePreviewLimit bounds how many failure records are surfaced to API
// callers; the full list stays on the stored report.
const failurePreviewLimit = 5

// FailureRecord describes one item that failed during a batch run.
type FailureRecord struct {
	Query string `json:"query,omitempty"`
	DocID string `json:"docId,omitempty"`
	Error string `json:"error"`
}

// Report aggregates the outcome of one sync or reindex run. Partial batches
// are normal; the counts and failures describe what actually happened.
type Report struct {
	QueriesProcessed int             `json:"queriesProcessed"`
	HitsFound        int             `json:"hitsFound"`
	Fetched          int             `json:"fetched"`
	Indexed          int             `json:"indexed"`
	Failed           int             `json:"failed"`
	Failures         []FailureRecord `json:"failures,omitempty"`
}

func (r *Report) recordFailure(query, docID string, err error) {
	r.Failed++
	r.Failures = append(r.Failures, FailureRecord{
		Query: query,
		DocID: docID,
		Error: err.Error(),
	})
}

// FailurePreview returns at most the first failurePreviewLimit failures.
func (r Report) FailurePreview() []FailureRecord {
	if len(r.Failures) <= failurePreviewLimit {
		return r.Failures
	}
	return r.Failures[:failurePreviewLimit]
}

// SyncJob is a queued or running ingestion job.
type SyncJob struct {
	ID            string     `json:"id"`
	Kind          string     `json:"kind"`
	Status        string     `json:"status"`
	Queries       []string   `json:"queries,omitempty"`
	PerQueryLimit int        `json:"perQueryLimit,omitempty"`
	Report        *Report    `json:"report,omitempty"`
	ErrorMessage  string     `json:"errorMessage,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	StartedAt     *time.Time `json:"startedAt,omitempty"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
}
