package lawyers

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const lawyerColumns = `id, name, specialization, rating, cases_won, verified, created_at`

// Create inserts a new lawyer.
func (r *PGRepo) Create(ctx context.Context, l Lawyer) error {
	const query = `
INSERT INTO lawyers (id, name, specialization, rating, cases_won, verified, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	createdAt := l.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.DB.ExecContext(ctx, query, l.ID, l.Name, l.Specialization, l.Rating, l.CasesWon, l.Verified, createdAt)
	return err
}

// GetByID fetches a lawyer by ID.
func (r *PGRepo) GetByID(ctx context.Context, id string) (Lawyer, error) {
	query := `SELECT ` + lawyerColumns + ` FROM lawyers WHERE id = $1 LIMIT 1`
	var l Lawyer
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&l.ID, &l.Name, &l.Specialization, &l.Rating, &l.CasesWon, &l.Verified, &l.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Lawyer{}, ErrNotFound
		}
		return Lawyer{}, err
	}
	return l, nil
}

// ListVerifiedBySpecialization returns verified lawyers in the given
// specialization, ranked by rating then wins.
func (r *PGRepo) ListVerifiedBySpecialization(ctx context.Context, specialization string, limit int) ([]Lawyer, error) {
	query := `
SELECT ` + lawyerColumns + `
FROM lawyers
WHERE verified AND LOWER(specialization) = LOWER($1)
ORDER BY rating DESC, cases_won DESC
LIMIT $2`
	return r.queryMany(ctx, query, specialization, normalizeLimit(limit))
}

// ListTopVerified returns the best verified lawyers regardless of
// specialization.
func (r *PGRepo) ListTopVerified(ctx context.Context, limit int) ([]Lawyer, error) {
	query := `
SELECT ` + lawyerColumns + `
FROM lawyers
WHERE verified
ORDER BY rating DESC, cases_won DESC
LIMIT $1`
	return r.queryMany(ctx, query, normalizeLimit(limit))
}

func (r *PGRepo) queryMany(ctx context.Context, query string, args ...any) ([]Lawyer, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Lawyer
	for rows.Next() {
		var l Lawyer
		if err := rows.Scan(&l.ID, &l.Name, &l.Specialization, &l.Rating, &l.CasesWon, &l.Verified, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	return limit
}

var _ Repo = (*PGRepo)(nil)
