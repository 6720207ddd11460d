package cases

import (
	"time"

	"precedent-backend/internal/analysis"
	"precedent-backend/internal/precedents"
)

// Analysis status values for the async re-analysis flow.
const (
	AnalysisStatusProcessing = "processing"
	AnalysisStatusCompleted  = "completed"
	AnalysisStatusFailed     = "failed"
)

// Case is a client matter submitted for analysis. Analysis and
// RetrievedMatches are written back after each analyze call, overwriting
// earlier results.
type Case struct {
	ID               string             `json:"id"`
	Description      string             `json:"description"`
	CaseType         string             `json:"caseType"`
	AnalysisStatus   string             `json:"analysisStatus,omitempty"`
	Analysis         *analysis.Result   `json:"analysis,omitempty"`
	RetrievedMatches []precedents.Match `json:"retrievedMatches,omitempty"`
	AnalyzedAt       *time.Time         `json:"analyzedAt,omitempty"`
	CreatedAt        time.Time          `json:"createdAt"`
	UpdatedAt        time.Time          `json:"updatedAt"`
}
