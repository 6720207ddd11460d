package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"precedent-backend/internal/embedding"
	"precedent-backend/internal/kanoon"
	"precedent-backend/internal/llm"
	"precedent-backend/internal/precedents"
	"precedent-backend/internal/shared/metrics"
	"precedent-backend/internal/shared/telemetry"
)

const (
	defaultTopK       = 3
	maxLiveQueries    = 2
	maxLiveHits       = 2
	minQueryLength    = 10
	retrievalTimeout  = 30 * time.Second
	completionTimeout = 60 * time.Second

	classifyTemperature = 0.0
	queryTemperature    = 0.2
	analysisTemperature = 0.3
)

// SearchClient is the slice of the external search API the orchestrator
// needs; satisfied by *kanoon.Client.
type SearchClient interface {
	Search(ctx context.Context, query string, opts kanoon.SearchOptions) (kanoon.SearchResult, error)
	FetchDetails(ctx context.Context, idOrURL string) (precedents.PrecedentCase, []byte, error)
}

// Service orchestrates retrieval-augmented case analysis.
type Service struct {
	LLM       llm.Client
	Embedder  embedding.Client
	Index     precedents.NearestNeighborIndex
	Search    SearchClient
	Extractor Extractor
	TopK      int
}

// NewService constructs a Service. Search may be nil; live retrieval is
// then skipped entirely.
func NewService(llmClient llm.Client, embedder embedding.Client, index precedents.NearestNeighborIndex, search SearchClient) *Service {
	return &Service{
		LLM:       llmClient,
		Embedder:  embedder,
		Index:     index,
		Search:    search,
		Extractor: RegexExtractor{},
		TopK:      defaultTopK,
	}
}

// Analyze runs the retrieval-augmented analysis flow: classification and
// both retrieval steps are best-effort, only the final LLM call is fatal.
func (s *Service) Analyze(ctx context.Context, description, caseTypeHint string) (Result, error) {
	started := time.Now()
	metrics.IncAnalysisStarted()

	requestID := requestIDFromContext(ctx)
	llmClient := newRetryingLLM(s.LLM, requestID)

	caseType := s.classify(ctx, llmClient, description, caseTypeHint)

	local := s.retrieveLocal(ctx, caseType, description)
	live := s.retrieveLive(ctx, llmClient, description)

	// Merged list order is local-first then live-appended, not re-ranked
	// across sources.
	matches := make([]precedents.Match, 0, len(local)+len(live))
	matches = append(matches, local...)
	matches = append(matches, live...)

	raw, err := s.completeAnalysis(ctx, llmClient, caseType, description, matches)
	if err != nil {
		metrics.IncAnalysisFailed()
		return Result{}, fmt.Errorf("%w: %v", ErrAnalysisFailed, err)
	}

	result := s.Extractor.Extract(raw)
	result.CaseType = caseType
	result.RetrievedMatches = matches
	result.AnalyzedAt = time.Now().UTC()

	metrics.IncAnalysisCompleted()
	metrics.ObserveAnalysisDurationMs(float64(time.Since(started)) / float64(time.Millisecond))

	telemetry.Info("analysis.completed", map[string]any{
		"request_id": requestID,
		"case_type":  caseType,
		"matches":    len(matches),
		"confidence": result.Confidence,
	})
	return result, nil
}

// classify resolves the case type. A usable hint short-circuits the LLM;
// any classification failure silently falls back to the default category.
func (s *Service) classify(ctx context.Context, llmClient llm.Client, description, hint string) string {
	hint = strings.TrimSpace(hint)
	if hint != "" && hint != DefaultCaseType && IsKnownCaseType(hint) {
		return hint
	}
	if llmClient == nil {
		return DefaultCaseType
	}

	callCtx, cancel := context.WithTimeout(ctx, completionTimeout)
	defer cancel()
	resp, err := llmClient.Complete(callCtx, llm.CompletionRequest{
		User:        fmt.Sprintf(llm.ClassifyPrompt(), description),
		Temperature: classifyTemperature,
		MaxTokens:   10,
	})
	if err != nil {
		telemetry.Warn("analysis.classify_failed", map[string]any{
			"request_id": requestIDFromContext(ctx),
			"err":        err.Error(),
		})
		return DefaultCaseType
	}

	category := strings.Trim(strings.TrimSpace(resp), `"'.,!`)
	if !IsKnownCaseType(category) {
		return DefaultCaseType
	}
	return category
}

// retrieveLocal embeds "{caseType}: {description}" and ranks the store.
// Non-fatal: any failure yields an empty result set.
func (s *Service) retrieveLocal(ctx context.Context, caseType, description string) []precedents.Match {
	if s.Embedder == nil || s.Index == nil {
		return nil
	}
	k := s.TopK
	if k <= 0 {
		k = defaultTopK
	}

	callCtx, cancel := context.WithTimeout(ctx, retrievalTimeout)
	defer cancel()
	vec, err := s.Embedder.Embed(callCtx, caseType+": "+description)
	if err != nil {
		telemetry.Warn("analysis.local_retrieval_failed", map[string]any{
			"request_id": requestIDFromContext(ctx),
			"stage":      "embed",
			"err":        err.Error(),
		})
		return nil
	}
	matches, err := s.Index.TopK(callCtx, vec, k)
	if err != nil {
		telemetry.Warn("analysis.local_retrieval_failed", map[string]any{
			"request_id": requestIDFromContext(ctx),
			"stage":      "topk",
			"err":        err.Error(),
		})
		return nil
	}
	return matches
}

// retrieveLive asks the LLM for search queries and runs the first against
// the external search client. Every failure in here is swallowed; the step
// then contributes nothing.
func (s *Service) retrieveLive(ctx context.Context, llmClient llm.Client, description string) []precedents.Match {
	if s.Search == nil || llmClient == nil {
		return nil
	}

	queries := s.generateQueries(ctx, llmClient, description)
	if len(queries) == 0 {
		return nil
	}

	callCtx, cancel := context.WithTimeout(ctx, retrievalTimeout)
	defer cancel()
	res, err := s.Search.Search(callCtx, queries[0], kanoon.SearchOptions{MaxPages: 1})
	if err != nil {
		telemetry.Warn("analysis.live_retrieval_failed", map[string]any{
			"request_id": requestIDFromContext(ctx),
			"query":      queries[0],
			"err":        err.Error(),
		})
		return nil
	}

	hits := res.Docs
	if len(hits) > maxLiveHits {
		hits = hits[:maxLiveHits]
	}

	matches := make([]precedents.Match, 0, len(hits))
	for i, hit := range hits {
		p := precedents.PrecedentCase{
			SourceID:  hit.DocID,
			SourceURL: hit.URL,
			Title:     hit.Title,
			Court:     hit.Court,
			Summary:   hit.Headline,
		}
		// Enrich only the first hit; a failed enrichment keeps the shallow one.
		if i == 0 {
			if full, _, err := s.Search.FetchDetails(callCtx, hit.DocID); err == nil {
				p = full
			} else {
				telemetry.Warn("analysis.live_enrich_failed", map[string]any{
					"request_id": requestIDFromContext(ctx),
					"doc_id":     hit.DocID,
					"err":        err.Error(),
				})
			}
		}
		matches = append(matches, precedents.Match{
			Precedent: p,
			Source:    precedents.SourceLiveExternal,
		})
	}
	return matches
}

func (s *Service) generateQueries(ctx context.Context, llmClient llm.Client, description string) []string {
	callCtx, cancel := context.WithTimeout(ctx, completionTimeout)
	defer cancel()
	resp, err := llmClient.Complete(callCtx, llm.CompletionRequest{
		User:        fmt.Sprintf(llm.SearchQueriesPrompt(), description),
		Temperature: queryTemperature,
		MaxTokens:   100,
	})
	if err != nil {
		telemetry.Warn("analysis.query_generation_failed", map[string]any{
			"request_id": requestIDFromContext(ctx),
			"err":        err.Error(),
		})
		return nil
	}

	var queries []string
	for _, part := range strings.Split(resp, "|") {
		q := strings.TrimSpace(part)
		if len(q) > minQueryLength {
			queries = append(queries, q)
		}
		if len(queries) == maxLiveQueries {
			break
		}
	}
	return queries
}

func (s *Service) completeAnalysis(ctx context.Context, llmClient llm.Client, caseType, description string, matches []precedents.Match) (string, error) {
	if llmClient == nil {
		return "", fmt.Errorf("llm client is not configured")
	}
	callCtx, cancel := context.WithTimeout(ctx, completionTimeout)
	defer cancel()
	return llmClient.Complete(callCtx, llm.CompletionRequest{
		System:      llm.AnalysisSystemPrompt(),
		User:        buildAnalysisPrompt(caseType, description, matches),
		Temperature: analysisTemperature,
	})
}

// buildAnalysisPrompt assembles the user prompt: case type, description and
// an enumerated precedent context block.
func buildAnalysisPrompt(caseType, description string, matches []precedents.Match) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Case type: %s\n\nCase description:\n%s\n\n", caseType, description)

	if len(matches) == 0 {
		sb.WriteString("No precedent context is available; analyze from the description alone.\n")
		return sb.String()
	}

	sb.WriteString("Precedent context:\n")
	for i, m := range matches {
		p := m.Precedent
		title := p.Title
		if p.CaseNumber != "" {
			title = p.CaseNumber + " - " + title
		}
		content := p.Summary
		if content == "" {
			content = p.Facts
		}
		fmt.Fprintf(&sb, "%d. %s [%s]\n%s\nVerdict: %s\n\n", i+1, title, m.Source, content, p.Verdict)
	}
	return sb.String()
}
