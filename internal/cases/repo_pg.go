package cases

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"precedent-backend/internal/analysis"
	"precedent-backend/internal/precedents"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const caseColumns = `id, description, case_type, analysis_status, analysis, retrieved_matches, analyzed_at, created_at, updated_at`

// Create inserts a new case.
func (r *PGRepo) Create(ctx context.Context, c Case) error {
	const query = `
INSERT INTO cases (id, description, case_type, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5)`

	caseType := c.CaseType
	if caseType == "" {
		caseType = analysis.DefaultCaseType
	}
	now := time.Now().UTC()
	createdAt := c.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	_, err := r.DB.ExecContext(ctx, query, c.ID, c.Description, caseType, createdAt, now)
	return err
}

// GetByID fetches a case by ID.
func (r *PGRepo) GetByID(ctx context.Context, id string) (Case, error) {
	query := `SELECT ` + caseColumns + ` FROM cases WHERE id = $1 LIMIT 1`
	return r.scanOne(r.DB.QueryRowContext(ctx, query, id))
}

// List returns cases newest-first.
func (r *PGRepo) List(ctx context.Context, limit, offset int) ([]Case, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + caseColumns + ` FROM cases ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Case
	for rows.Next() {
		c, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SetAnalysis writes back the analysis result and match list.
func (r *PGRepo) SetAnalysis(ctx context.Context, id string, result analysis.Result, matches []precedents.Match, analyzedAt time.Time) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}
	if matches == nil {
		matches = []precedents.Match{}
	}
	matchesJSON, err := json.Marshal(matches)
	if err != nil {
		return fmt.Errorf("marshal matches: %w", err)
	}

	const query = `
UPDATE cases
SET analysis = $1, retrieved_matches = $2, case_type = $3, analysis_status = $4, analyzed_at = $5, updated_at = $6
WHERE id = $7`
	res, err := r.DB.ExecContext(ctx, query, resultJSON, matchesJSON, result.CaseType, AnalysisStatusCompleted, analyzedAt, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetAnalysisStatus updates the async analysis status.
func (r *PGRepo) SetAnalysisStatus(ctx context.Context, id, status string) error {
	const query = `UPDATE cases SET analysis_status = $1, updated_at = $2 WHERE id = $3`
	res, err := r.DB.ExecContext(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PGRepo) scanOne(row rowScanner) (Case, error) {
	var c Case
	var analysisJSON, matchesJSON []byte
	var analyzedAt sql.NullTime

	err := row.Scan(
		&c.ID,
		&c.Description,
		&c.CaseType,
		&c.AnalysisStatus,
		&analysisJSON,
		&matchesJSON,
		&analyzedAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Case{}, ErrNotFound
		}
		return Case{}, err
	}

	if len(analysisJSON) > 0 {
		var result analysis.Result
		if err := json.Unmarshal(analysisJSON, &result); err != nil {
			return Case{}, fmt.Errorf("unmarshal analysis: %w", err)
		}
		c.Analysis = &result
	}
	if len(matchesJSON) > 0 {
		if err := json.Unmarshal(matchesJSON, &c.RetrievedMatches); err != nil {
			return Case{}, fmt.Errorf("unmarshal matches: %w", err)
		}
	}
	if analyzedAt.Valid {
		t := analyzedAt.Time
		c.AnalyzedAt = &t
	}
	return c, nil
}

var _ Repo = (*PGRepo)(nil)
