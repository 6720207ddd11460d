package precedents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const precedentColumns = `id, case_number, source_id, source_url, title, year, court, judges, plaintiff, defendant, facts, decision, summary, verdict, ipc_sections, keywords, embedding, indexed, raw_payload_key, created_at, updated_at`

// Create inserts a new precedent.
func (r *PGRepo) Create(ctx context.Context, p PrecedentCase) error {
	const query = `
INSERT INTO precedents (
    id, case_number, source_id, source_url, title, year, court, judges,
    plaintiff, defendant, facts, decision, summary, verdict, ipc_sections,
    keywords, embedding, indexed, raw_payload_key, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`

	judges, err := json.Marshal(orEmpty(p.Judges))
	if err != nil {
		return fmt.Errorf("marshal judges: %w", err)
	}
	sections, err := json.Marshal(orEmpty(p.IPCSections))
	if err != nil {
		return fmt.Errorf("marshal ipc sections: %w", err)
	}
	keywords, err := json.Marshal(orEmpty(p.Keywords))
	if err != nil {
		return fmt.Errorf("marshal keywords: %w", err)
	}
	embeddingJSON, err := marshalEmbedding(p.Embedding)
	if err != nil {
		return err
	}

	verdict := p.Verdict
	if verdict == "" {
		verdict = VerdictUnknown
	}
	now := time.Now().UTC()
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	_, err = r.DB.ExecContext(
		ctx,
		query,
		p.ID,
		p.CaseNumber,
		nullString(p.SourceID),
		nullString(p.SourceURL),
		p.Title,
		p.Year,
		p.Court,
		judges,
		nullString(p.Plaintiff),
		nullString(p.Defendant),
		p.Facts,
		p.Decision,
		p.Summary,
		string(verdict),
		sections,
		keywords,
		embeddingJSON,
		p.Embedding != nil,
		nullString(p.RawPayloadKey),
		createdAt,
		now,
	)
	return err
}

// GetByID fetches a precedent by ID.
func (r *PGRepo) GetByID(ctx context.Context, id string) (PrecedentCase, error) {
	query := `SELECT ` + precedentColumns + ` FROM precedents WHERE id = $1 LIMIT 1`
	return r.scanOne(r.DB.QueryRowContext(ctx, query, id))
}

// GetBySourceID fetches a precedent by its external source ID.
func (r *PGRepo) GetBySourceID(ctx context.Context, sourceID string) (PrecedentCase, error) {
	if sourceID == "" {
		return PrecedentCase{}, ErrNotFound
	}
	query := `SELECT ` + precedentColumns + ` FROM precedents WHERE source_id = $1 LIMIT 1`
	return r.scanOne(r.DB.QueryRowContext(ctx, query, sourceID))
}

// List returns precedents matching the filter, oldest-first so retrieval
// order stays stable across calls.
func (r *PGRepo) List(ctx context.Context, filter Filter) ([]PrecedentCase, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	conditions := []string{"TRUE"}
	args := []any{}
	if filter.Court != "" {
		args = append(args, filter.Court)
		conditions = append(conditions, fmt.Sprintf("LOWER(court) = LOWER($%d)", len(args)))
	}
	if filter.Year != 0 {
		args = append(args, filter.Year)
		conditions = append(conditions, fmt.Sprintf("year = $%d", len(args)))
	}
	if filter.Keyword != "" {
		args = append(args, strings.ToLower(filter.Keyword))
		conditions = append(conditions, fmt.Sprintf("keywords @> to_jsonb(ARRAY[$%d]::text[])", len(args)))
	}
	args = append(args, limit, offset)

	query := fmt.Sprintf(`SELECT %s FROM precedents WHERE %s ORDER BY created_at ASC LIMIT $%d OFFSET $%d`,
		precedentColumns, strings.Join(conditions, " AND "), len(args)-1, len(args))

	return r.queryMany(ctx, query, args...)
}

// ListUnembedded returns precedents without an embedding, oldest-first.
func (r *PGRepo) ListUnembedded(ctx context.Context) ([]PrecedentCase, error) {
	query := `SELECT ` + precedentColumns + ` FROM precedents WHERE embedding IS NULL ORDER BY created_at ASC`
	return r.queryMany(ctx, query)
}

// ListEmbedded returns precedents carrying an embedding, oldest-first.
func (r *PGRepo) ListEmbedded(ctx context.Context) ([]PrecedentCase, error) {
	query := `SELECT ` + precedentColumns + ` FROM precedents WHERE embedding IS NOT NULL ORDER BY created_at ASC`
	return r.queryMany(ctx, query)
}

// UpsertByExternalID inserts p unless a record with the same source_id or
// source_url exists. The existing record is returned unmodified.
func (r *PGRepo) UpsertByExternalID(ctx context.Context, p PrecedentCase) (PrecedentCase, bool, error) {
	if p.SourceID != "" {
		existing, err := r.GetBySourceID(ctx, p.SourceID)
		if err == nil {
			return existing, false, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return PrecedentCase{}, false, err
		}
	}
	if p.SourceURL != "" {
		query := `SELECT ` + precedentColumns + ` FROM precedents WHERE source_url = $1 LIMIT 1`
		existing, err := r.scanOne(r.DB.QueryRowContext(ctx, query, p.SourceURL))
		if err == nil {
			return existing, false, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return PrecedentCase{}, false, err
		}
	}
	if err := r.Create(ctx, p); err != nil {
		return PrecedentCase{}, false, err
	}
	return p, true, nil
}

// SetEmbedding writes only the embedding and the indexed mirror flag.
func (r *PGRepo) SetEmbedding(ctx context.Context, id string, vec []float64) error {
	embeddingJSON, err := marshalEmbedding(vec)
	if err != nil {
		return err
	}
	const query = `
UPDATE precedents
SET embedding = $1, indexed = TRUE, updated_at = $2
WHERE id = $3`
	res, err := r.DB.ExecContext(ctx, query, embeddingJSON, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// ClearEmbedding removes the embedding so the record can be re-indexed.
func (r *PGRepo) ClearEmbedding(ctx context.Context, id string) error {
	const query = `
UPDATE precedents
SET embedding = NULL, indexed = FALSE, updated_at = $1
WHERE id = $2`
	res, err := r.DB.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PGRepo) scanOne(row rowScanner) (PrecedentCase, error) {
	var p PrecedentCase
	var sourceID, sourceURL, plaintiff, defendant, rawKey sql.NullString
	var judges, sections, keywords []byte
	var embeddingJSON []byte
	var verdict string

	err := row.Scan(
		&p.ID,
		&p.CaseNumber,
		&sourceID,
		&sourceURL,
		&p.Title,
		&p.Year,
		&p.Court,
		&judges,
		&plaintiff,
		&defendant,
		&p.Facts,
		&p.Decision,
		&p.Summary,
		&verdict,
		&sections,
		&keywords,
		&embeddingJSON,
		&p.Indexed,
		&rawKey,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return PrecedentCase{}, ErrNotFound
		}
		return PrecedentCase{}, err
	}

	p.SourceID = sourceID.String
	p.SourceURL = sourceURL.String
	p.Plaintiff = plaintiff.String
	p.Defendant = defendant.String
	p.RawPayloadKey = rawKey.String
	p.Verdict = NormalizeVerdict(verdict)

	if err := json.Unmarshal(judges, &p.Judges); err != nil {
		return PrecedentCase{}, fmt.Errorf("unmarshal judges: %w", err)
	}
	if err := json.Unmarshal(sections, &p.IPCSections); err != nil {
		return PrecedentCase{}, fmt.Errorf("unmarshal ipc sections: %w", err)
	}
	if err := json.Unmarshal(keywords, &p.Keywords); err != nil {
		return PrecedentCase{}, fmt.Errorf("unmarshal keywords: %w", err)
	}
	if len(embeddingJSON) > 0 {
		if err := json.Unmarshal(embeddingJSON, &p.Embedding); err != nil {
			return PrecedentCase{}, fmt.Errorf("unmarshal embedding: %w", err)
		}
	}
	return p, nil
}

func (r *PGRepo) queryMany(ctx context.Context, query string, args ...any) ([]PrecedentCase, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PrecedentCase
	for rows.Next() {
		p, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func marshalEmbedding(vec []float64) (any, error) {
	if vec == nil {
		return nil, nil
	}
	data, err := json.Marshal(vec)
	if err != nil {
		return nil, fmt.Errorf("marshal embedding: %w", err)
	}
	return data, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func orEmpty(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

func requireRow(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

var _ Repo = (*PGRepo)(nil)
