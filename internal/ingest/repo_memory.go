package ingest

import (
	"context"
	"sync"
	"time"
)

// MemoryJobsRepo keeps job state in memory, safe for concurrent use.
type MemoryJobsRepo struct {
	mu   sync.RWMutex
	jobs map[string]SyncJob
}

// NewMemoryJobsRepo constructs a MemoryJobsRepo.
func NewMemoryJobsRepo() *MemoryJobsRepo {
	return &MemoryJobsRepo{jobs: make(map[string]SyncJob)}
}

// Create stores the job.
func (r *MemoryJobsRepo) Create(ctx context.Context, job SyncJob) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = job
	return nil
}

// GetByID returns a job by its ID.
func (r *MemoryJobsRepo) GetByID(ctx context.Context, id string) (SyncJob, error) {
	if err := ctx.Err(); err != nil {
		return SyncJob{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok {
		return SyncJob{}, ErrJobNotFound
	}
	return job, nil
}

// MarkProcessing moves the job into the processing state.
func (r *MemoryJobsRepo) MarkProcessing(ctx context.Context, id string, startedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	job.Status = StatusProcessing
	job.StartedAt = &startedAt
	r.jobs[id] = job
	return nil
}

// MarkFinished records the terminal status and report.
func (r *MemoryJobsRepo) MarkFinished(ctx context.Context, id, status string, report *Report, errMsg string, completedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	job.Status = status
	job.Report = report
	job.ErrorMessage = errMsg
	job.CompletedAt = &completedAt
	r.jobs[id] = job
	return nil
}

var _ JobsRepo = (*MemoryJobsRepo)(nil)
