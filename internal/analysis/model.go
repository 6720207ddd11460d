package analysis

import (
	"time"

	"precedent-backend/internal/precedents"
)

// CaseTypes is the closed category set used by classification. "General" is
// both the fallback and the sentinel meaning "classify for me".
var CaseTypes = []string{
	"Criminal", "Civil", "Corporate", "Family", "Property",
	"Labour", "Constitutional", "Tax", "Consumer", "General",
}

const DefaultCaseType = "General"

// Result is the structured outcome of one analyze call.
type Result struct {
	CaseType          string             `json:"caseType"`
	SuggestedSections []string           `json:"suggestedSections"`
	Summary           string             `json:"summary"`
	KeyArguments      []string           `json:"keyArguments"`
	RiskLevel         string             `json:"riskLevel"`
	Recommendations   []string           `json:"recommendations"`
	Confidence        float64            `json:"confidence"`
	RetrievedMatches  []precedents.Match `json:"retrievedMatches"`
	AnalyzedAt        time.Time          `json:"analyzedAt"`
}

// IsKnownCaseType reports whether t is in the closed category set.
func IsKnownCaseType(t string) bool {
	for _, known := range CaseTypes {
		if known == t {
			return true
		}
	}
	return false
}
