package kanoon

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"precedent-backend/internal/precedents"
)

const (
	maxSections  = 20
	maxKeywords  = 15
	factsChars   = 2000
	summaryChars = 500
)

var sectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bipc\s+section\s+(\d+[A-Za-z]?)`),
	regexp.MustCompile(`(?i)\bsection\s+(\d+[A-Za-z]?)`),
	regexp.MustCompile(`(?i)\bs\.\s*(\d+[A-Za-z]?)`),
	regexp.MustCompile(`(?i)\barticle\s+(\d+[A-Za-z]?)`),
}

// legalVocabulary is matched by substring against title+summary when
// building keywords.
var legalVocabulary = []string{
	"murder", "theft", "fraud", "assault", "kidnapping", "dowry",
	"cheating", "forgery", "defamation", "negligence", "bribery",
	"trespass", "extortion",
}

var yearPattern = regexp.MustCompile(`\b(19|20)\d{2}\b`)

var tagPattern = regexp.MustCompile(`<[^>]*>`)

func stripTags(s string) string {
	s = tagPattern.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// normalizeDocument turns a raw upstream document into a PrecedentCase.
func normalizeDocument(docID, docURL string, d apiDetailResponse) precedents.PrecedentCase {
	title := strings.TrimSpace(d.Title)
	text := stripTags(d.Doc)

	facts := text
	if len(facts) > factsChars {
		facts = facts[:factsChars]
	}
	decision := tailText(text, factsChars)
	summary := text
	if len(summary) > summaryChars {
		summary = summary[:summaryChars]
	}

	sections := extractSections(d.Sections, title+" "+decision+" "+facts+" "+summary)
	court := strings.TrimSpace(d.DocSource)
	now := time.Now().UTC()

	return precedents.PrecedentCase{
		ID:          uuid.NewString(),
		CaseNumber:  strings.TrimSpace(d.CaseNumber),
		SourceID:    docID,
		SourceURL:   docURL,
		Title:       title,
		Year:        resolveYear(d.Year, d.PublishDate, d.CaseNumber),
		Court:       court,
		Judges:      splitJudges(d.Author, d.Bench),
		Facts:       facts,
		Decision:    decision,
		Summary:     summary,
		Verdict:     inferVerdict(text),
		IPCSections: sections,
		Keywords:    buildKeywords(sections, "", court, title+" "+summary),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// resolveYear picks the year from an explicit field, else the first 4-digit
// run in the publish date, else in the case number, else the current year.
func resolveYear(explicit int, date, caseNumber string) int {
	if explicit > 0 {
		return explicit
	}
	for _, source := range []string{date, caseNumber} {
		if m := yearPattern.FindString(source); m != "" {
			year := 0
			for _, r := range m {
				year = year*10 + int(r-'0')
			}
			return year
		}
	}
	return time.Now().UTC().Year()
}

// extractSections unions a structured section list with regex matches over
// the document text, capped at maxSections unique entries.
func extractSections(structured []string, text string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, maxSections)

	add := func(num string) {
		num = strings.TrimSpace(num)
		if num == "" {
			return
		}
		label := "IPC Section " + strings.ToUpper(num)
		key := strings.ToLower(label)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		out = append(out, label)
	}

	for _, s := range structured {
		if len(out) >= maxSections {
			return out
		}
		add(strings.TrimPrefix(strings.TrimSpace(s), "IPC Section "))
	}
	for _, pattern := range sectionPatterns {
		for _, m := range pattern.FindAllStringSubmatch(text, -1) {
			if len(out) >= maxSections {
				return out
			}
			add(m[1])
		}
	}
	return out
}

// buildKeywords assembles retrieval tags: IPC sections, case-type and
// court-name tokens, and fixed legal vocabulary found in the text, capped
// at maxKeywords.
func buildKeywords(sections []string, caseType, court, text string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, maxKeywords)

	add := func(kw string) {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			return
		}
		if _, ok := seen[kw]; ok {
			return
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
	}

	for _, s := range sections {
		if len(out) >= maxKeywords {
			return out
		}
		add("ipc-" + strings.ToLower(strings.TrimPrefix(s, "IPC Section ")))
	}
	if caseType != "" && len(out) < maxKeywords {
		add(caseType)
	}
	for _, token := range strings.Fields(court) {
		if len(out) >= maxKeywords {
			return out
		}
		if len(token) > 3 {
			add(token)
		}
	}
	lowered := strings.ToLower(text)
	for _, term := range legalVocabulary {
		if len(out) >= maxKeywords {
			return out
		}
		if strings.Contains(lowered, term) {
			add(term)
		}
	}
	return out
}

func splitJudges(author, bench string) []string {
	source := bench
	if strings.TrimSpace(source) == "" {
		source = author
	}
	if strings.TrimSpace(source) == "" {
		return nil
	}
	parts := strings.Split(source, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if name := strings.TrimSpace(p); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// inferVerdict scans the document tail for common disposal phrasing. The
// tail is where Indian judgments state the operative order.
func inferVerdict(text string) precedents.Verdict {
	tail := strings.ToLower(tailText(text, 1500))
	switch {
	case strings.Contains(tail, "acquitted"):
		return precedents.VerdictAcquitted
	case strings.Contains(tail, "appeal is dismissed") || strings.Contains(tail, "petition is dismissed"):
		return precedents.VerdictDismissed
	case strings.Contains(tail, "partly allowed") || strings.Contains(tail, "partially allowed"):
		return precedents.VerdictPartial
	case strings.Contains(tail, "not guilty"):
		return precedents.VerdictNotGuilty
	case strings.Contains(tail, "convicted") || strings.Contains(tail, "guilty"):
		return precedents.VerdictGuilty
	default:
		return precedents.VerdictUnknown
	}
}

func tailText(text string, n int) string {
	if len(text) <= n {
		return text
	}
	return text[len(text)-n:]
}
