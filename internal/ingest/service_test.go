package ingest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"precedent-backend/internal/kanoon"
	"precedent-backend/internal/precedents"
	"precedent-backend/internal/shared/ratelimit"
)

type fakeSearchClient struct {
	searchResults map[string]kanoon.SearchResult
	searchErrs    map[string]error
	fetchErrs     map[string]error
	fetchCalls    int
}

func (f *fakeSearchClient) Search(ctx context.Context, query string, opts kanoon.SearchOptions) (kanoon.SearchResult, error) {
	if err := f.searchErrs[query]; err != nil {
		return kanoon.SearchResult{}, err
	}
	return f.searchResults[query], nil
}

func (f *fakeSearchClient) FetchDetails(ctx context.Context, idOrURL string) (precedents.PrecedentCase, []byte, error) {
	f.fetchCalls++
	if err := f.fetchErrs[idOrURL]; err != nil {
		return precedents.PrecedentCase{}, nil, err
	}
	return precedents.PrecedentCase{
		ID:        "p-" + idOrURL,
		SourceID:  idOrURL,
		SourceURL: "https://indiankanoon.org/doc/" + idOrURL + "/",
		Title:     "Case " + idOrURL,
	}, []byte(`{"tid": ` + idOrURL + `}`), nil
}

type fakeEmbedder struct {
	err   error
	calls int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []float64{0.1, 0.2}, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, 0, len(texts))
	for range texts {
		vec, err := f.Embed(ctx, "")
		if err != nil {
			return nil, err
		}
		out = append(out, vec)
	}
	return out, nil
}

func hits(ids ...string) kanoon.SearchResult {
	res := kanoon.SearchResult{Found: len(ids)}
	for _, id := range ids {
		res.Docs = append(res.Docs, kanoon.SearchHit{DocID: id})
	}
	return res
}

func newTestService(client SearchClient, embedder *fakeEmbedder) (*Service, *precedents.MemoryRepo, *MemoryJobsRepo) {
	repo := precedents.NewMemoryRepo()
	jobs := NewMemoryJobsRepo()
	svc := NewService(jobs, repo, client, embedder, nil, ratelimit.Nop{})
	svc.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return svc, repo, jobs
}

func TestSyncBatchOneFailedQueryNeverAbortsTheBatch(t *testing.T) {
	client := &fakeSearchClient{
		searchResults: map[string]kanoon.SearchResult{
			"theft":  hits("1"),
			"murder": hits("3"),
		},
		searchErrs: map[string]error{
			"fraud": errors.New("upstream exploded"),
		},
	}
	embedder := &fakeEmbedder{}
	svc, repo, _ := newTestService(client, embedder)

	report, err := svc.SyncBatch(context.Background(), []string{"theft", "fraud", "murder"}, 5)
	if err != nil {
		t.Fatalf("SyncBatch: %v", err)
	}
	if report.QueriesProcessed != 3 {
		t.Fatalf("QueriesProcessed = %d, want 3", report.QueriesProcessed)
	}
	if report.Failed != 1 {
		t.Fatalf("Failed = %d, want 1", report.Failed)
	}
	if len(report.Failures) != 1 || report.Failures[0].Query != "fraud" {
		t.Fatalf("Failures = %+v, want one record for fraud", report.Failures)
	}
	if report.Fetched != 2 || report.Indexed != 2 {
		t.Fatalf("Fetched=%d Indexed=%d, want 2/2", report.Fetched, report.Indexed)
	}

	stored, err := repo.List(context.Background(), precedents.Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("store holds %d records, want 2", len(stored))
	}
}

func TestSyncBatchRecordsPerItemFetchFailures(t *testing.T) {
	client := &fakeSearchClient{
		searchResults: map[string]kanoon.SearchResult{
			"theft": hits("1", "2", "3"),
		},
		fetchErrs: map[string]error{
			"2": kanoon.ErrNotFound,
		},
	}
	embedder := &fakeEmbedder{}
	svc, _, _ := newTestService(client, embedder)

	report, err := svc.SyncBatch(context.Background(), []string{"theft"}, 5)
	if err != nil {
		t.Fatalf("SyncBatch: %v", err)
	}
	if report.HitsFound != 3 || report.Fetched != 2 || report.Failed != 1 {
		t.Fatalf("report = %+v, want hits=3 fetched=2 failed=1", report)
	}
	if report.Failures[0].DocID != "2" {
		t.Fatalf("failure DocID = %q, want 2", report.Failures[0].DocID)
	}
}

func TestSyncBatchHonorsPerQueryLimit(t *testing.T) {
	client := &fakeSearchClient{
		searchResults: map[string]kanoon.SearchResult{
			"theft": hits("1", "2", "3", "4"),
		},
	}
	svc, _, _ := newTestService(client, &fakeEmbedder{})

	report, err := svc.SyncBatch(context.Background(), []string{"theft"}, 2)
	if err != nil {
		t.Fatalf("SyncBatch: %v", err)
	}
	if client.fetchCalls != 2 {
		t.Fatalf("fetchCalls = %d, want 2", client.fetchCalls)
	}
	if report.HitsFound != 4 || report.Fetched != 2 {
		t.Fatalf("report = %+v, want hits=4 fetched=2", report)
	}
}

func TestSyncBatchSkipsDuplicatesWithoutReembedding(t *testing.T) {
	client := &fakeSearchClient{
		searchResults: map[string]kanoon.SearchResult{
			"theft": hits("1"),
		},
	}
	embedder := &fakeEmbedder{}
	svc, repo, _ := newTestService(client, embedder)

	if err := repo.Create(context.Background(), precedents.PrecedentCase{ID: "existing", SourceID: "1"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	report, err := svc.SyncBatch(context.Background(), []string{"theft"}, 5)
	if err != nil {
		t.Fatalf("SyncBatch: %v", err)
	}
	if report.Fetched != 1 || report.Indexed != 0 {
		t.Fatalf("report = %+v, want fetched=1 indexed=0", report)
	}
	if embedder.calls != 0 {
		t.Fatalf("embedder called %d times for a duplicate, want 0", embedder.calls)
	}
}

func TestSyncBatchEmbedFailureLeavesRecordUnembedded(t *testing.T) {
	client := &fakeSearchClient{
		searchResults: map[string]kanoon.SearchResult{
			"theft": hits("1"),
		},
	}
	embedder := &fakeEmbedder{err: errors.New("embedding down")}
	svc, repo, _ := newTestService(client, embedder)

	report, err := svc.SyncBatch(context.Background(), []string{"theft"}, 5)
	if err != nil {
		t.Fatalf("SyncBatch: %v", err)
	}
	// The record is persisted even though embedding failed.
	if report.Fetched != 1 || report.Indexed != 0 || report.Failed != 0 {
		t.Fatalf("report = %+v, want fetched=1 indexed=0 failed=0", report)
	}
	pending, err := repo.ListUnembedded(context.Background())
	if err != nil {
		t.Fatalf("ListUnembedded: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("unembedded = %d, want 1", len(pending))
	}
}

func TestSyncBatchCancellationKeepsPersistedWork(t *testing.T) {
	client := &fakeSearchClient{
		searchResults: map[string]kanoon.SearchResult{
			"theft":  hits("1"),
			"murder": hits("2"),
		},
	}
	svc, repo, _ := newTestService(client, &fakeEmbedder{})

	ctx, cancel := context.WithCancel(context.Background())
	callCount := 0
	svc.Pacer = pacerFunc(func(ctx context.Context) error {
		callCount++
		if callCount == 2 {
			cancel()
		}
		return ctx.Err()
	})

	report, err := svc.SyncBatch(ctx, []string{"theft", "murder"}, 5)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if report.Fetched != 1 {
		t.Fatalf("Fetched = %d, want 1", report.Fetched)
	}
	stored, listErr := repo.List(context.Background(), precedents.Filter{})
	if listErr != nil {
		t.Fatalf("List: %v", listErr)
	}
	if len(stored) != 1 {
		t.Fatalf("store holds %d records after cancel, want 1", len(stored))
	}
}

type pacerFunc func(ctx context.Context) error

func (f pacerFunc) Pace(ctx context.Context) error { return f(ctx) }

func TestReindexAllPausesBetweenBatches(t *testing.T) {
	repo := precedents.NewMemoryRepo()
	for i := 0; i < 12; i++ {
		if err := repo.Create(context.Background(), precedents.PrecedentCase{ID: fmt.Sprintf("p-%d", i), Title: "t"}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	embedder := &fakeEmbedder{}
	svc := NewService(NewMemoryJobsRepo(), repo, &fakeSearchClient{}, embedder, nil, ratelimit.Nop{})
	pauses := 0
	svc.sleep = func(ctx context.Context, d time.Duration) error {
		pauses++
		if d != reindexPause {
			t.Errorf("pause duration = %v, want %v", d, reindexPause)
		}
		return nil
	}

	report, err := svc.ReindexAll(context.Background())
	if err != nil {
		t.Fatalf("ReindexAll: %v", err)
	}
	if report.Indexed != 12 {
		t.Fatalf("Indexed = %d, want 12", report.Indexed)
	}
	// 12 items in batches of 5 pause after items 5 and 10.
	if pauses != 2 {
		t.Fatalf("pauses = %d, want 2", pauses)
	}

	pending, err := repo.ListUnembedded(context.Background())
	if err != nil {
		t.Fatalf("ListUnembedded: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("unembedded = %d, want 0", len(pending))
	}
}

func TestReindexAllSkipsFailedItems(t *testing.T) {
	repo := precedents.NewMemoryRepo()
	for i := 0; i < 3; i++ {
		if err := repo.Create(context.Background(), precedents.PrecedentCase{ID: fmt.Sprintf("p-%d", i), Title: "t"}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	embedder := &flakyEmbedder{failOn: 2}
	svc := NewService(NewMemoryJobsRepo(), repo, &fakeSearchClient{}, embedder, nil, ratelimit.Nop{})
	svc.sleep = func(ctx context.Context, d time.Duration) error { return nil }

	report, err := svc.ReindexAll(context.Background())
	if err != nil {
		t.Fatalf("ReindexAll: %v", err)
	}
	if report.Indexed != 2 || report.Failed != 1 {
		t.Fatalf("report = %+v, want indexed=2 failed=1", report)
	}
}

type flakyEmbedder struct {
	calls  int
	failOn int
}

func (f *flakyEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	f.calls++
	if f.calls == f.failOn {
		return nil, errors.New("transient embedding failure")
	}
	return []float64{1}, nil
}

func (f *flakyEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	return nil, errors.New("not used")
}

func TestStartSyncRunsJobToCompletion(t *testing.T) {
	client := &fakeSearchClient{
		searchResults: map[string]kanoon.SearchResult{
			"theft": hits("1"),
		},
	}
	svc, _, jobs := newTestService(client, &fakeEmbedder{})

	job, err := svc.StartSync(context.Background(), []string{"theft"}, 5)
	if err != nil {
		t.Fatalf("StartSync: %v", err)
	}
	if job.Status != StatusQueued {
		t.Fatalf("initial status = %q, want queued", job.Status)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		got, err := jobs.GetByID(context.Background(), job.ID)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if got.Status == StatusCompleted {
			if got.Report == nil || got.Report.Fetched != 1 {
				t.Fatalf("completed job report = %+v", got.Report)
			}
			break
		}
		if got.Status == StatusFailed {
			t.Fatalf("job failed: %s", got.ErrorMessage)
		}
		if time.Now().After(deadline) {
			t.Fatalf("job stuck in status %q", got.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
