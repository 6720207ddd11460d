package ingest

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PGJobsRepo implements JobsRepo using Postgres.
type PGJobsRepo struct {
	DB *sql.DB
}

// Create inserts a new job row.
func (r *PGJobsRepo) Create(ctx context.Context, job SyncJob) error {
	const query = `
INSERT INTO sync_jobs (id, kind, status, queries, per_query_limit, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`

	queries := job.Queries
	if queries == nil {
		queries = []string{}
	}
	queriesJSON, err := json.Marshal(queries)
	if err != nil {
		return fmt.Errorf("marshal queries: %w", err)
	}

	createdAt := job.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err = r.DB.ExecContext(ctx, query, job.ID, job.Kind, job.Status, queriesJSON, job.PerQueryLimit, createdAt)
	return err
}

// GetByID fetches a job by ID.
func (r *PGJobsRepo) GetByID(ctx context.Context, id string) (SyncJob, error) {
	const query = `
SELECT id, kind, status, queries, per_query_limit, report, error_message, started_at, completed_at, created_at
FROM sync_jobs WHERE id = $1 LIMIT 1`

	var job SyncJob
	var queriesJSON, reportJSON []byte
	var errMsg sql.NullString
	var startedAt, completedAt sql.NullTime

	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&job.ID,
		&job.Kind,
		&job.Status,
		&queriesJSON,
		&job.PerQueryLimit,
		&reportJSON,
		&errMsg,
		&startedAt,
		&completedAt,
		&job.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return SyncJob{}, ErrJobNotFound
		}
		return SyncJob{}, err
	}

	if err := json.Unmarshal(queriesJSON, &job.Queries); err != nil {
		return SyncJob{}, fmt.Errorf("unmarshal queries: %w", err)
	}
	if len(reportJSON) > 0 {
		var report Report
		if err := json.Unmarshal(reportJSON, &report); err != nil {
			return SyncJob{}, fmt.Errorf("unmarshal report: %w", err)
		}
		job.Report = &report
	}
	job.ErrorMessage = errMsg.String
	if startedAt.Valid {
		t := startedAt.Time
		job.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		job.CompletedAt = &t
	}
	return job, nil
}

// MarkProcessing moves the job into the processing state.
func (r *PGJobsRepo) MarkProcessing(ctx context.Context, id string, startedAt time.Time) error {
	const query = `UPDATE sync_jobs SET status = $1, started_at = $2 WHERE id = $3`
	res, err := r.DB.ExecContext(ctx, query, StatusProcessing, startedAt, id)
	if err != nil {
		return err
	}
	return requireJobRow(res)
}

// MarkFinished records the terminal status and report.
func (r *PGJobsRepo) MarkFinished(ctx context.Context, id, status string, report *Report, errMsg string, completedAt time.Time) error {
	var reportJSON any
	if report != nil {
		data, err := json.Marshal(report)
		if err != nil {
			return fmt.Errorf("marshal report: %w", err)
		}
		reportJSON = data
	}

	var errVal sql.NullString
	if errMsg != "" {
		errVal = sql.NullString{String: errMsg, Valid: true}
	}

	const query = `
UPDATE sync_jobs SET status = $1, report = $2, error_message = $3, completed_at = $4 WHERE id = $5`
	res, err := r.DB.ExecContext(ctx, query, status, reportJSON, errVal, completedAt, id)
	if err != nil {
		return err
	}
	return requireJobRow(res)
}

func requireJobRow(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrJobNotFound
	}
	return nil
}

var _ JobsRepo = (*PGJobsRepo)(nil)
