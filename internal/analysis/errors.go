package analysis

import "errors"

// ErrAnalysisFailed means the mandatory LLM analysis call errored. Unlike
// the best-effort retrieval steps there is no fallback content without it.
var ErrAnalysisFailed = errors.New("analysis failed")
