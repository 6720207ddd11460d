package precedents

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

var pgColumns = []string{
	"id", "case_number", "source_id", "source_url", "title", "year", "court",
	"judges", "plaintiff", "defendant", "facts", "decision", "summary",
	"verdict", "ipc_sections", "keywords", "embedding", "indexed",
	"raw_payload_key", "created_at", "updated_at",
}

func TestPGRepoCreateMarshalsListFields(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	p := PrecedentCase{
		ID:          "p-1",
		CaseNumber:  "CRL 42/2019",
		SourceID:    "1234567",
		SourceURL:   "https://indiankanoon.org/doc/1234567/",
		Title:       "State v. Sharma",
		Year:        2019,
		Court:       "Delhi High Court",
		Judges:      []string{"J. Mehta"},
		Facts:       "facts",
		Decision:    "decision",
		Summary:     "summary",
		Verdict:     VerdictGuilty,
		IPCSections: []string{"IPC Section 379"},
		Keywords:    []string{"theft"},
		CreatedAt:   time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO precedents").
		WithArgs(
			p.ID,
			p.CaseNumber,
			sqlmock.AnyArg(), // source_id
			sqlmock.AnyArg(), // source_url
			p.Title,
			p.Year,
			p.Court,
			[]byte(`["J. Mehta"]`),
			sqlmock.AnyArg(), // plaintiff
			sqlmock.AnyArg(), // defendant
			p.Facts,
			p.Decision,
			p.Summary,
			string(VerdictGuilty),
			[]byte(`["IPC Section 379"]`),
			[]byte(`["theft"]`),
			nil,   // embedding
			false, // indexed
			sqlmock.AnyArg(),
			sqlmock.AnyArg(),
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), p); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetByIDScansRecord(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	now := time.Now().UTC()
	rows := sqlmock.NewRows(pgColumns).AddRow(
		"p-1", "CRL 42/2019", "1234567", "https://indiankanoon.org/doc/1234567/",
		"State v. Sharma", 2019, "Delhi High Court",
		[]byte(`["J. Mehta"]`), "State", "Sharma", "facts", "decision", "summary",
		"guilty", []byte(`["IPC Section 379"]`), []byte(`["theft"]`),
		[]byte(`[0.1,0.2]`), true, "kanoon/raw/1234567.json", now, now,
	)
	mock.ExpectQuery("SELECT (.+) FROM precedents WHERE id").
		WithArgs("p-1").
		WillReturnRows(rows)

	repo := &PGRepo{DB: db}
	p, err := repo.GetByID(context.Background(), "p-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if p.Verdict != VerdictGuilty {
		t.Fatalf("verdict = %q, want guilty", p.Verdict)
	}
	if len(p.Judges) != 1 || p.Judges[0] != "J. Mehta" {
		t.Fatalf("judges = %v", p.Judges)
	}
	if len(p.Embedding) != 2 || p.Embedding[0] != 0.1 {
		t.Fatalf("embedding = %v", p.Embedding)
	}
	if !p.Indexed {
		t.Fatal("expected indexed record")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectQuery("SELECT (.+) FROM precedents WHERE id").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(pgColumns))

	repo := &PGRepo{DB: db}
	if _, err := repo.GetByID(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetByID = %v, want ErrNotFound", err)
	}
}

func TestPGRepoSetEmbeddingRequiresRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectExec("UPDATE precedents").
		WithArgs([]byte(`[0.5]`), sqlmock.AnyArg(), "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := &PGRepo{DB: db}
	if err := repo.SetEmbedding(context.Background(), "missing", []float64{0.5}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("SetEmbedding = %v, want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoUpsertSkipsExistingSourceID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	now := time.Now().UTC()
	rows := sqlmock.NewRows(pgColumns).AddRow(
		"existing", "", "1234567", nil, "Existing title", 2018, "Supreme Court",
		[]byte(`[]`), nil, nil, "", "", "", "unknown", []byte(`[]`), []byte(`[]`),
		nil, false, nil, now, now,
	)
	mock.ExpectQuery("SELECT (.+) FROM precedents WHERE source_id").
		WithArgs("1234567").
		WillReturnRows(rows)

	repo := &PGRepo{DB: db}
	stored, inserted, err := repo.UpsertByExternalID(context.Background(), PrecedentCase{
		ID:       "new",
		SourceID: "1234567",
		Title:    "New title",
	})
	if err != nil {
		t.Fatalf("UpsertByExternalID: %v", err)
	}
	if inserted {
		t.Fatal("expected duplicate sourceId to be skipped")
	}
	if stored.ID != "existing" || stored.Title != "Existing title" {
		t.Fatalf("stored = %+v, want the existing record", stored)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
