package analysis

import (
	"regexp"
	"strings"
)

// Fallback values when a field cannot be extracted from the LLM response.
const (
	fallbackText = "Analysis required"
	fallbackRisk = "Medium"
)

// Confidence is a two-level heuristic, not a calibrated probability: high
// when sections were extracted, low when parsing fell back to defaults,
// floor when parsing blew up entirely.
const (
	confidenceParsed   = 0.90
	confidenceDegraded = 0.60
	confidenceFloor    = 0.50
)

// Extractor turns a free-text LLM analysis into structured fields.
type Extractor interface {
	Extract(raw string) Result
}

// RegexExtractor scans the response with targeted patterns. Any field that
// fails to match gets an explicit default rather than an error.
type RegexExtractor struct{}

var (
	parseSectionPattern = regexp.MustCompile(`(?i)\bsection\s+(\d+[A-Za-z]?)`)
	riskPattern         = regexp.MustCompile(`(?i)risk\s+assessment\s*:?\s*(low|medium|high)`)
	verdictPattern      = regexp.MustCompile(`(?im)^\s*(?:verdict(?:\s+prediction)?|outcome)\s*:?\s*(.*)$`)
	headingPattern      = regexp.MustCompile(`(?m)^[A-Z][A-Za-z ]{2,40}:`)
)

// Extract parses raw into a Result. A panic during parsing degrades to
// all-default fields at the floor confidence instead of propagating.
func (RegexExtractor) Extract(raw string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{
				SuggestedSections: []string{fallbackText},
				Summary:           fallbackText,
				KeyArguments:      []string{},
				RiskLevel:         fallbackRisk,
				Recommendations:   []string{},
				Confidence:        confidenceFloor,
			}
		}
	}()

	sections := extractParsedSections(raw)
	res = Result{
		SuggestedSections: sections,
		Summary:           extractVerdict(raw),
		KeyArguments:      extractBlock(raw, "Key Arguments"),
		RiskLevel:         extractRisk(raw),
		Recommendations:   extractRecommendations(raw),
		Confidence:        confidenceDegraded,
	}
	if len(sections) > 0 {
		res.Confidence = confidenceParsed
	} else {
		res.SuggestedSections = []string{fallbackText}
	}
	return res
}

func extractParsedSections(raw string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, m := range parseSectionPattern.FindAllStringSubmatch(raw, -1) {
		label := "IPC Section " + strings.ToUpper(m[1])
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, label)
	}
	return out
}

// extractVerdict takes the text after a "Verdict"/"Outcome" label up to the
// next blank line or heading.
func extractVerdict(raw string) string {
	m := verdictPattern.FindStringSubmatchIndex(raw)
	if m == nil {
		return fallbackText
	}
	inline := strings.TrimSpace(raw[m[2]:m[3]])
	rest := raw[m[1]:]

	block := blockUntilBreak(rest)
	verdict := strings.TrimSpace(strings.TrimSpace(inline + " " + block))
	if verdict == "" {
		return fallbackText
	}
	return verdict
}

func extractRisk(raw string) string {
	if m := riskPattern.FindStringSubmatch(raw); m != nil {
		word := strings.ToLower(m[1])
		return strings.ToUpper(word[:1]) + word[1:]
	}
	return fallbackRisk
}

func extractRecommendations(raw string) []string {
	if block := extractBlock(raw, "Strategic Roadmap"); len(block) > 0 {
		return block
	}
	return extractBlock(raw, "Recommendations")
}

// extractBlock returns the non-empty lines following the given heading, up
// to the next heading or blank line, stripped of list markers.
func extractBlock(raw, heading string) []string {
	pattern := regexp.MustCompile(`(?im)^\s*` + regexp.QuoteMeta(heading) + `\s*:?\s*$|(?i)` + regexp.QuoteMeta(heading) + `\s*:`)
	loc := pattern.FindStringIndex(raw)
	if loc == nil {
		return []string{}
	}
	rest := raw[loc[1]:]
	block := blockUntilBreak(rest)

	var out []string
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*•0123456789. )")
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	if out == nil {
		return []string{}
	}
	return out
}

// blockUntilBreak returns text up to the first blank line or next heading.
func blockUntilBreak(rest string) string {
	end := len(rest)
	if idx := strings.Index(rest, "\n\n"); idx >= 0 {
		end = idx
	}
	if loc := headingPattern.FindStringIndex(rest); loc != nil && loc[0] < end {
		end = loc[0]
	}
	return rest[:end]
}

var _ Extractor = RegexExtractor{}
