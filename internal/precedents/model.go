package precedents

import (
	"strings"
	"time"
)

// Verdict is the outcome recorded on a precedent case.
type Verdict string

const (
	VerdictGuilty    Verdict = "guilty"
	VerdictNotGuilty Verdict = "not_guilty"
	VerdictPartial   Verdict = "partial"
	VerdictDismissed Verdict = "dismissed"
	VerdictAcquitted Verdict = "acquitted"
	VerdictUnknown   Verdict = "unknown"
)

// NormalizeVerdict maps free-form verdict text onto the known enum, defaulting
// to VerdictUnknown.
func NormalizeVerdict(raw string) Verdict {
	switch Verdict(raw) {
	case VerdictGuilty, VerdictNotGuilty, VerdictPartial, VerdictDismissed, VerdictAcquitted:
		return Verdict(raw)
	default:
		return VerdictUnknown
	}
}

// PrecedentCase is a stored legal case record used as retrieval context.
// Embedding is nil until the indexing pipeline computes it; Indexed mirrors
// that state but Embedding presence is the authoritative signal.
type PrecedentCase struct {
	ID            string    `json:"id"`
	CaseNumber    string    `json:"caseNumber"`
	SourceID      string    `json:"sourceId,omitempty"`
	SourceURL     string    `json:"sourceUrl,omitempty"`
	Title         string    `json:"title"`
	Year          int       `json:"year"`
	Court         string    `json:"court"`
	Judges        []string  `json:"judges,omitempty"`
	Plaintiff     string    `json:"plaintiff,omitempty"`
	Defendant     string    `json:"defendant,omitempty"`
	Facts         string    `json:"facts,omitempty"`
	Decision      string    `json:"decision,omitempty"`
	Summary       string    `json:"summary,omitempty"`
	Verdict       Verdict   `json:"verdict"`
	IPCSections   []string  `json:"ipcSections,omitempty"`
	Keywords      []string  `json:"keywords,omitempty"`
	Embedding     []float64 `json:"-"`
	Indexed       bool      `json:"indexed"`
	RawPayloadKey string    `json:"-"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// IndexText builds the text a precedent is embedded under: the descriptive
// fields joined in a fixed order so recomputed embeddings stay comparable.
func (p PrecedentCase) IndexText() string {
	parts := make([]string, 0, 5)
	for _, s := range []string{p.Title, p.Facts, p.Decision, p.Summary} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	if len(p.IPCSections) > 0 {
		parts = append(parts, strings.Join(p.IPCSections, ", "))
	}
	return strings.Join(parts, "\n")
}

// MatchSource identifies which retrieval path produced a match.
type MatchSource string

const (
	SourceLocalVector  MatchSource = "local-vector"
	SourceLiveExternal MatchSource = "live-external"
)

// Match is a ranked retrieval result, ephemeral to one analysis call.
type Match struct {
	Precedent  PrecedentCase `json:"precedent"`
	Similarity float64       `json:"similarity"`
	Source     MatchSource   `json:"source"`
}
