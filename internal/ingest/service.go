package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"precedent-backend/internal/embedding"
	"precedent-backend/internal/kanoon"
	"precedent-backend/internal/precedents"
	"precedent-backend/internal/shared/metrics"
	"precedent-backend/internal/shared/ratelimit"
	"precedent-backend/internal/shared/storage/object"
	"precedent-backend/internal/shared/telemetry"
)

const (
	defaultPerQueryLimit = 5
	reindexBatchSize     = 5
	reindexPause         = time.Second
)

// SearchClient is the slice of the external search API the orchestrator
// needs; satisfied by *kanoon.Client.
type SearchClient interface {
	Search(ctx context.Context, query string, opts kanoon.SearchOptions) (kanoon.SearchResult, error)
	FetchDetails(ctx context.Context, idOrURL string) (precedents.PrecedentCase, []byte, error)
}

// Service drives bulk ingestion and reindexing.
type Service struct {
	Jobs     JobsRepo
	Repo     precedents.Repo
	Client   SearchClient
	Embedder embedding.Client
	Store    object.ObjectStore
	Pacer    ratelimit.Pacer

	// sleep is replaceable in tests so reindex pauses run without real delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewService constructs a Service. Store may be nil (raw payloads then go
// unarchived) and Pacer defaults to a 1s interval.
func NewService(jobs JobsRepo, repo precedents.Repo, client SearchClient, embedder embedding.Client, store object.ObjectStore, pacer ratelimit.Pacer) *Service {
	if pacer == nil {
		pacer = ratelimit.NewIntervalPacer(time.Second)
	}
	return &Service{
		Jobs:     jobs,
		Repo:     repo,
		Client:   client,
		Embedder: embedder,
		Store:    store,
		Pacer:    pacer,
		sleep:    sleepContext,
	}
}

// StartSync enqueues a sync job and runs it asynchronously.
func (s *Service) StartSync(ctx context.Context, queries []string, perQueryLimit int) (SyncJob, error) {
	if len(queries) == 0 {
		return SyncJob{}, errors.New("at least one query is required")
	}
	if perQueryLimit <= 0 {
		perQueryLimit = defaultPerQueryLimit
	}

	job := SyncJob{
		ID:            uuid.NewString(),
		Kind:          KindSync,
		Status:        StatusQueued,
		Queries:       queries,
		PerQueryLimit: perQueryLimit,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.Jobs.Create(ctx, job); err != nil {
		return SyncJob{}, err
	}

	go s.runJob(backgroundWithRequestID(ctx), job.ID, func(jobCtx context.Context) (Report, error) {
		return s.SyncBatch(jobCtx, queries, perQueryLimit)
	})
	return job, nil
}

// StartReindex enqueues a reindex job and runs it asynchronously.
func (s *Service) StartReindex(ctx context.Context) (SyncJob, error) {
	job := SyncJob{
		ID:        uuid.NewString(),
		Kind:      KindReindex,
		Status:    StatusQueued,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.Jobs.Create(ctx, job); err != nil {
		return SyncJob{}, err
	}

	go s.runJob(backgroundWithRequestID(ctx), job.ID, s.ReindexAll)
	return job, nil
}

// GetJob returns a job by ID.
func (s *Service) GetJob(ctx context.Context, id string) (SyncJob, error) {
	return s.Jobs.GetByID(ctx, id)
}

func (s *Service) runJob(ctx context.Context, jobID string, run func(context.Context) (Report, error)) {
	defer func() {
		if r := recover(); r != nil {
			s.finishJob(ctx, jobID, StatusFailed, nil, fmt.Sprintf("panic: %v", r))
		}
	}()

	if err := s.Jobs.MarkProcessing(ctx, jobID, time.Now().UTC()); err != nil {
		s.finishJob(ctx, jobID, StatusFailed, nil, fmt.Sprintf("set processing failed: %v", err))
		return
	}

	report, err := run(ctx)
	if err != nil {
		// Partial progress is already persisted in the store; the report
		// says how far the run got before the error.
		s.finishJob(ctx, jobID, StatusFailed, &report, err.Error())
		return
	}
	s.finishJob(ctx, jobID, StatusCompleted, &report, "")
}

func (s *Service) finishJob(ctx context.Context, jobID, status string, report *Report, errMsg string) {
	// Job bookkeeping must outlive the request context.
	if err := s.Jobs.MarkFinished(context.Background(), jobID, status, report, errMsg, time.Now().UTC()); err != nil {
		telemetry.Error("ingest.job.finish_failed", map[string]any{
			"job_id": jobID,
			"status": status,
			"err":    err.Error(),
		})
	}
	fields := map[string]any{
		"request_id": requestIDFromContext(ctx),
		"job_id":     jobID,
		"status":     status,
	}
	if report != nil {
		fields["fetched"] = report.Fetched
		fields["indexed"] = report.Indexed
		fields["failed"] = report.Failed
		metrics.IncPrecedentsFetched(uint64(report.Fetched))
		metrics.IncPrecedentsIndexed(uint64(report.Indexed))
		metrics.IncIngestFailures(uint64(report.Failed))
	}
	if errMsg != "" {
		fields["err"] = errMsg
	}
	telemetry.Info("ingest.job.finished", fields)
}

// SyncBatch runs the queries sequentially against the external search
// client, persisting and embedding new precedents. One failed item never
// aborts the batch; cancellation stops new external calls but keeps what was
// already written.
func (s *Service) SyncBatch(ctx context.Context, queries []string, perQueryLimit int) (Report, error) {
	if perQueryLimit <= 0 {
		perQueryLimit = defaultPerQueryLimit
	}

	var report Report
	for _, query := range queries {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		res, err := s.Client.Search(ctx, query, kanoon.SearchOptions{MaxPages: 1})
		if err != nil {
			report.recordFailure(query, "", err)
			telemetry.Warn("ingest.sync.search_failed", map[string]any{
				"request_id": requestIDFromContext(ctx),
				"query":      query,
				"err":        err.Error(),
			})
			report.QueriesProcessed++
			continue
		}
		report.HitsFound += len(res.Docs)

		hits := res.Docs
		if len(hits) > perQueryLimit {
			hits = hits[:perQueryLimit]
		}
		for _, hit := range hits {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			if err := s.Pacer.Pace(ctx); err != nil {
				return report, err
			}
			s.ingestHit(ctx, query, hit, &report)
		}
		report.QueriesProcessed++
	}
	return report, nil
}

func (s *Service) ingestHit(ctx context.Context, query string, hit kanoon.SearchHit, report *Report) {
	p, raw, err := s.Client.FetchDetails(ctx, hit.DocID)
	if err != nil {
		report.recordFailure(query, hit.DocID, err)
		telemetry.Warn("ingest.sync.fetch_failed", map[string]any{
			"request_id": requestIDFromContext(ctx),
			"query":      query,
			"doc_id":     hit.DocID,
			"err":        err.Error(),
		})
		return
	}
	report.Fetched++

	p.RawPayloadKey = s.archiveRaw(ctx, p.SourceID, raw)

	stored, inserted, err := s.Repo.UpsertByExternalID(ctx, p)
	if err != nil {
		report.recordFailure(query, hit.DocID, err)
		return
	}
	if !inserted {
		return
	}

	if s.Embedder == nil {
		return
	}
	vec, err := s.Embedder.Embed(ctx, stored.IndexText())
	if err != nil {
		telemetry.Warn("ingest.sync.embed_failed", map[string]any{
			"request_id":   requestIDFromContext(ctx),
			"precedent_id": stored.ID,
			"err":          err.Error(),
		})
		return
	}
	if err := s.Repo.SetEmbedding(ctx, stored.ID, vec); err != nil {
		telemetry.Warn("ingest.sync.set_embedding_failed", map[string]any{
			"request_id":   requestIDFromContext(ctx),
			"precedent_id": stored.ID,
			"err":          err.Error(),
		})
		return
	}
	report.Indexed++
}

// archiveRaw stores the upstream payload for replay/debugging. Best-effort:
// an archive failure never fails the item.
func (s *Service) archiveRaw(ctx context.Context, sourceID string, raw []byte) string {
	if s.Store == nil || len(raw) == 0 || sourceID == "" {
		return ""
	}
	key := "kanoon/raw/" + sourceID + ".json"
	if _, err := s.Store.SaveWithKey(ctx, key, "application/json", bytes.NewReader(raw)); err != nil {
		telemetry.Warn("ingest.sync.archive_failed", map[string]any{
			"request_id": requestIDFromContext(ctx),
			"source_id":  sourceID,
			"err":        err.Error(),
		})
		return ""
	}
	return key
}

// ReindexAll embeds every precedent that lacks an embedding, pausing every
// few items to respect embedding API rate limits. Per-item failures are
// logged and skipped, never fatal to the run.
func (s *Service) ReindexAll(ctx context.Context) (Report, error) {
	pending, err := s.Repo.ListUnembedded(ctx)
	if err != nil {
		return Report{}, err
	}
	if s.Embedder == nil {
		return Report{}, errors.New("embedding client is not configured")
	}

	var report Report
	for i, p := range pending {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if i > 0 && i%reindexBatchSize == 0 {
			if err := s.sleep(ctx, reindexPause); err != nil {
				return report, err
			}
		}

		vec, err := s.Embedder.Embed(ctx, p.IndexText())
		if err != nil {
			report.recordFailure("", p.ID, err)
			telemetry.Warn("ingest.reindex.embed_failed", map[string]any{
				"request_id":   requestIDFromContext(ctx),
				"precedent_id": p.ID,
				"err":          err.Error(),
			})
			continue
		}
		if err := s.Repo.SetEmbedding(ctx, p.ID, vec); err != nil {
			report.recordFailure("", p.ID, err)
			continue
		}
		report.Indexed++
	}
	return report, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
