package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"precedent-backend/internal/kanoon"
	"precedent-backend/internal/llm"
	"precedent-backend/internal/precedents"
)

// scriptedLLM routes completions on prompt shape: classification, query
// generation, or the final analysis call.
type scriptedLLM struct {
	classifyResp string
	classifyErr  error
	queriesResp  string
	queriesErr   error
	analysisResp string
	analysisErr  error

	classifyCalls int
	analysisCalls int
}

func (s *scriptedLLM) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	switch {
	case strings.HasPrefix(req.User, "Classify"):
		s.classifyCalls++
		return s.classifyResp, s.classifyErr
	case strings.Contains(req.User, "search queries"):
		return s.queriesResp, s.queriesErr
	default:
		s.analysisCalls++
		return s.analysisResp, s.analysisErr
	}
}

type stubEmbedder struct {
	vec []float64
	err error
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	return s.vec, s.err
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i := range texts {
		out[i] = s.vec
	}
	return out, s.err
}

type stubSearch struct {
	result    kanoon.SearchResult
	searchErr error
	detail    precedents.PrecedentCase
	detailErr error
}

func (s *stubSearch) Search(ctx context.Context, query string, opts kanoon.SearchOptions) (kanoon.SearchResult, error) {
	return s.result, s.searchErr
}

func (s *stubSearch) FetchDetails(ctx context.Context, idOrURL string) (precedents.PrecedentCase, []byte, error) {
	return s.detail, nil, s.detailErr
}

func seedLocalCorpus(t *testing.T) *precedents.MemoryRepo {
	t.Helper()
	repo := precedents.NewMemoryRepo()
	if err := repo.Create(context.Background(), precedents.PrecedentCase{
		ID:      "local-1",
		Title:   "State v. Sharma",
		Summary: "Breach of trust conviction",
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.SetEmbedding(context.Background(), "local-1", []float64{1, 0}); err != nil {
		t.Fatalf("SetEmbedding: %v", err)
	}
	return repo
}

func TestAnalyzeEndToEnd(t *testing.T) {
	repo := seedLocalCorpus(t)
	llmClient := &scriptedLLM{
		classifyResp: `"Criminal"`,
		queriesResp:  "criminal breach of trust section 405 | misappropriation of entrusted property",
		analysisResp: "Applicable Sections: Section 405 applies.\n\nRisk Assessment: Medium - contested evidence.\n\nVerdict Prediction: Conviction is plausible.",
	}
	search := &stubSearch{
		result: kanoon.SearchResult{
			Found: 1,
			Docs: []kanoon.SearchHit{
				{DocID: "777", Title: "Rao v. State", URL: "https://indiankanoon.org/doc/777/"},
			},
		},
		detail: precedents.PrecedentCase{
			SourceID: "777",
			Title:    "Rao v. State",
			Summary:  "Full text of the enriched precedent",
		},
	}
	svc := NewService(llmClient, &stubEmbedder{vec: []float64{1, 0}}, precedents.NewBruteForceIndex(repo), search)

	result, err := svc.Analyze(context.Background(), "My business partner misused funds I entrusted to him", "")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if result.CaseType != "Criminal" {
		t.Fatalf("CaseType = %q, want Criminal", result.CaseType)
	}
	if len(result.SuggestedSections) != 1 || result.SuggestedSections[0] != "IPC Section 405" {
		t.Fatalf("SuggestedSections = %v, want [IPC Section 405]", result.SuggestedSections)
	}
	if result.RiskLevel != "Medium" {
		t.Fatalf("RiskLevel = %q, want Medium", result.RiskLevel)
	}
	if result.Confidence != 0.90 {
		t.Fatalf("Confidence = %v, want 0.90", result.Confidence)
	}

	// Merged matches keep local-first order and the live hit is enriched.
	if len(result.RetrievedMatches) != 2 {
		t.Fatalf("RetrievedMatches = %d, want 2", len(result.RetrievedMatches))
	}
	if result.RetrievedMatches[0].Source != precedents.SourceLocalVector {
		t.Fatalf("first match source = %q, want local", result.RetrievedMatches[0].Source)
	}
	if result.RetrievedMatches[1].Source != precedents.SourceLiveExternal {
		t.Fatalf("second match source = %q, want live", result.RetrievedMatches[1].Source)
	}
	if result.RetrievedMatches[1].Precedent.Summary != "Full text of the enriched precedent" {
		t.Fatalf("live match not enriched: %+v", result.RetrievedMatches[1].Precedent)
	}
}

func TestAnalyzeClassificationFailureFallsBackToGeneral(t *testing.T) {
	llmClient := &scriptedLLM{
		classifyErr:  errors.New("classifier down"),
		queriesErr:   errors.New("also down"),
		analysisResp: "Section 420 applies. Risk Assessment: Low.",
	}
	svc := NewService(llmClient, nil, nil, nil)

	result, err := svc.Analyze(context.Background(), "description", "")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if result.CaseType != "General" {
		t.Fatalf("CaseType = %q, want General", result.CaseType)
	}
}

func TestAnalyzeKnownHintSkipsClassification(t *testing.T) {
	llmClient := &scriptedLLM{
		analysisResp: "Section 4 of some act applies.",
	}
	svc := NewService(llmClient, nil, nil, nil)

	result, err := svc.Analyze(context.Background(), "description", "Tax")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if result.CaseType != "Tax" {
		t.Fatalf("CaseType = %q, want Tax", result.CaseType)
	}
	if llmClient.classifyCalls != 0 {
		t.Fatalf("classify called %d times with a usable hint, want 0", llmClient.classifyCalls)
	}
}

func TestAnalyzeUnknownClassificationResponseFallsBack(t *testing.T) {
	llmClient := &scriptedLLM{
		classifyResp: "Maritime Law, obviously",
		analysisResp: "Section 1 applies.",
	}
	svc := NewService(llmClient, nil, nil, nil)

	result, err := svc.Analyze(context.Background(), "description", "")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if result.CaseType != "General" {
		t.Fatalf("CaseType = %q, want General", result.CaseType)
	}
}

func TestAnalyzeLLMFailureIsFatal(t *testing.T) {
	llmClient := &scriptedLLM{
		classifyResp: "Criminal",
		analysisErr:  errors.New("model overloaded"),
	}
	svc := NewService(llmClient, nil, nil, nil)

	_, err := svc.Analyze(context.Background(), "description", "Criminal")
	if !errors.Is(err, ErrAnalysisFailed) {
		t.Fatalf("err = %v, want ErrAnalysisFailed", err)
	}
	if !strings.Contains(err.Error(), "model overloaded") {
		t.Fatalf("err %q missing upstream message", err)
	}
}

func TestAnalyzeLocalRetrievalFailureIsNonFatal(t *testing.T) {
	repo := precedents.NewMemoryRepo()
	llmClient := &scriptedLLM{
		classifyResp: "Criminal",
		queriesResp:  "short",
		analysisResp: "Section 302 applies. Risk Assessment: High.",
	}
	svc := NewService(llmClient, &stubEmbedder{err: errors.New("embedding down")}, precedents.NewBruteForceIndex(repo), nil)

	result, err := svc.Analyze(context.Background(), "description", "Criminal")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(result.RetrievedMatches) != 0 {
		t.Fatalf("RetrievedMatches = %v, want empty", result.RetrievedMatches)
	}
	if result.Confidence != 0.90 {
		t.Fatalf("Confidence = %v, want 0.90", result.Confidence)
	}
}

func TestAnalyzeLiveSearchFailureIsNonFatal(t *testing.T) {
	llmClient := &scriptedLLM{
		classifyResp: "Criminal",
		queriesResp:  "criminal breach of trust precedent",
		analysisResp: "Section 405 applies.",
	}
	search := &stubSearch{searchErr: errors.New("search down")}
	svc := NewService(llmClient, nil, nil, search)

	result, err := svc.Analyze(context.Background(), "description", "Criminal")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(result.RetrievedMatches) != 0 {
		t.Fatalf("RetrievedMatches = %v, want empty", result.RetrievedMatches)
	}
}

func TestAnalyzeEnrichmentFailureKeepsShallowHit(t *testing.T) {
	llmClient := &scriptedLLM{
		classifyResp: "Criminal",
		queriesResp:  "criminal breach of trust precedent",
		analysisResp: "Section 405 applies.",
	}
	search := &stubSearch{
		result: kanoon.SearchResult{
			Found: 1,
			Docs: []kanoon.SearchHit{
				{DocID: "777", Title: "Rao v. State", Headline: "shallow headline"},
			},
		},
		detailErr: kanoon.ErrNotFound,
	}
	svc := NewService(llmClient, nil, nil, search)

	result, err := svc.Analyze(context.Background(), "description", "Criminal")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(result.RetrievedMatches) != 1 {
		t.Fatalf("RetrievedMatches = %d, want 1", len(result.RetrievedMatches))
	}
	if result.RetrievedMatches[0].Precedent.Summary != "shallow headline" {
		t.Fatalf("shallow hit not kept: %+v", result.RetrievedMatches[0].Precedent)
	}
}

func TestGenerateQueriesFiltersTrivialEntries(t *testing.T) {
	llmClient := &scriptedLLM{
		queriesResp: "ok | criminal breach of trust section 405 | misappropriation of entrusted property | a fourth long query here",
	}
	svc := NewService(llmClient, nil, nil, &stubSearch{})

	queries := svc.generateQueries(context.Background(), llmClient, "description")
	if len(queries) != 2 {
		t.Fatalf("queries = %v, want 2 entries", queries)
	}
	if queries[0] != "criminal breach of trust section 405" {
		t.Fatalf("queries[0] = %q", queries[0])
	}
}
