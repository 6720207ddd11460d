package llm

import _ "embed"

var (
	//go:embed prompts/classify.txt
	classifyPrompt string
	//go:embed prompts/search_queries.txt
	searchQueriesPrompt string
	//go:embed prompts/analysis_system.txt
	analysisSystemPrompt string
)

// ClassifyPrompt returns the closed-set case-type classification prompt.
func ClassifyPrompt() string { return classifyPrompt }

// SearchQueriesPrompt returns the search-query generation prompt.
func SearchQueriesPrompt() string { return searchQueriesPrompt }

// AnalysisSystemPrompt returns the system prompt for full legal analysis.
func AnalysisSystemPrompt() string { return analysisSystemPrompt }
