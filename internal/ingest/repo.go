package ingest

import (
	"context"
	"time"
)

// JobsRepo persists sync/reindex job state.
type JobsRepo interface {
	Create(ctx context.Context, job SyncJob) error
	GetByID(ctx context.Context, id string) (SyncJob, error)
	MarkProcessing(ctx context.Context, id string, startedAt time.Time) error

	// MarkFinished records the terminal status. The report is stored even on
	// failure so partial progress stays visible.
	MarkFinished(ctx context.Context, id, status string, report *Report, errMsg string, completedAt time.Time) error
}
