package kanoon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"precedent-backend/internal/precedents"
)

const (
	defaultTimeout     = 30 * time.Second
	defaultMaxAttempts = 2
)

// Client talks to the Indian Kanoon search API.
type Client struct {
	baseURL     string
	token       string
	maxAttempts int
	httpClient  *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithMaxAttempts sets how many times a transient failure is retried before
// it surfaces as ErrUpstreamUnavailable.
func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// NewClient constructs a Client. token may be empty; requests then go out
// unauthenticated and the upstream's 403 maps to ErrAuthentication.
func NewClient(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:       strings.TrimSpace(token),
		maxAttempts: defaultMaxAttempts,
		httpClient:  &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SearchOptions narrow a search call. Zero values mean upstream defaults.
type SearchOptions struct {
	Page         int
	MaxPages     int
	CourtFilter  string
	DateFrom     string
	DateTo       string
	TitleOnly    bool
	Citation     string
	AuthorFilter string
	MaxCitations int
}

// SearchHit is one shallow result row from a search call.
type SearchHit struct {
	DocID    string `json:"docId"`
	Title    string `json:"title"`
	Headline string `json:"headline"`
	Court    string `json:"court"`
	Date     string `json:"date"`
	URL      string `json:"url"`
}

// SearchResult is the outcome of one search call.
type SearchResult struct {
	Found int         `json:"found"`
	Docs  []SearchHit `json:"docs"`
}

type apiSearchResponse struct {
	Found json.Number    `json:"found"`
	Docs  []apiSearchDoc `json:"docs"`
	Error string         `json:"errmsg"`
}

type apiSearchDoc struct {
	TID         json.Number `json:"tid"`
	Title       string      `json:"title"`
	Headline    string      `json:"headline"`
	DocSource   string      `json:"docsource"`
	PublishDate string      `json:"publishdate"`
}

// Search runs the query against the upstream search endpoint, walking up to
// opts.MaxPages result pages.
func (c *Client) Search(ctx context.Context, query string, opts SearchOptions) (SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return SearchResult{}, fmt.Errorf("search query is required")
	}

	page := opts.Page
	if page < 0 {
		page = 0
	}
	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = 1
	}

	result := SearchResult{Docs: []SearchHit{}}
	for i := 0; i < maxPages; i++ {
		params := url.Values{}
		params.Set("formInput", query)
		params.Set("pagenum", strconv.Itoa(page+i))
		if opts.CourtFilter != "" {
			params.Set("doctypes", opts.CourtFilter)
		}
		if opts.DateFrom != "" {
			params.Set("fromdate", opts.DateFrom)
		}
		if opts.DateTo != "" {
			params.Set("todate", opts.DateTo)
		}
		if opts.TitleOnly {
			params.Set("title", query)
		}
		if opts.Citation != "" {
			params.Set("cite", opts.Citation)
		}
		if opts.AuthorFilter != "" {
			params.Set("author", opts.AuthorFilter)
		}
		params.Set("maxcites", strconv.Itoa(clampCitations(opts.MaxCitations)))

		body, err := c.post(ctx, "/search/?"+params.Encode())
		if err != nil {
			return SearchResult{}, err
		}

		var parsed apiSearchResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return SearchResult{}, fmt.Errorf("kanoon search parse: %w", err)
		}
		if parsed.Error != "" {
			return SearchResult{}, fmt.Errorf("kanoon search: %s", parsed.Error)
		}

		if found, err := parsed.Found.Int64(); err == nil {
			result.Found = int(found)
		}
		for _, doc := range parsed.Docs {
			id := doc.TID.String()
			result.Docs = append(result.Docs, SearchHit{
				DocID:    id,
				Title:    strings.TrimSpace(doc.Title),
				Headline: stripTags(doc.Headline),
				Court:    strings.TrimSpace(doc.DocSource),
				Date:     strings.TrimSpace(doc.PublishDate),
				URL:      c.docURL(id),
			})
		}
		if len(parsed.Docs) == 0 {
			break
		}
	}
	if result.Found == 0 {
		result.Found = len(result.Docs)
	}
	return result, nil
}

type apiDetailResponse struct {
	TID         json.Number `json:"tid"`
	Title       string      `json:"title"`
	Doc         string      `json:"doc"`
	DocSource   string      `json:"docsource"`
	PublishDate string      `json:"publishdate"`
	CaseNumber  string      `json:"caseno"`
	Year        int         `json:"year"`
	Author      string      `json:"author"`
	Bench       string      `json:"bench"`
	Sections    []string    `json:"sections"`
	Error       string      `json:"errmsg"`
}

// FetchDetails resolves idOrURL to a document ID, fetches the full document
// and normalizes it into a PrecedentCase. The raw upstream payload is
// returned alongside so callers can archive it.
func (c *Client) FetchDetails(ctx context.Context, idOrURL string) (precedents.PrecedentCase, []byte, error) {
	docID := ExtractDocID(idOrURL)
	if strings.TrimSpace(docID) == "" {
		return precedents.PrecedentCase{}, nil, fmt.Errorf("document id is required")
	}

	body, err := c.post(ctx, "/doc/"+url.PathEscape(docID)+"/")
	if err != nil {
		return precedents.PrecedentCase{}, nil, err
	}

	var parsed apiDetailResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return precedents.PrecedentCase{}, nil, fmt.Errorf("kanoon detail parse: %w", err)
	}
	if parsed.Error != "" {
		return precedents.PrecedentCase{}, nil, fmt.Errorf("kanoon detail: %s", parsed.Error)
	}

	p := normalizeDocument(docID, c.docURL(docID), parsed)
	return p, body, nil
}

// post issues an authenticated POST (the upstream API uses POST for reads)
// and retries transient failures before giving up.
func (c *Client) post(ctx context.Context, path string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		body, retryable, err := c.postOnce(ctx, path)
		if err == nil {
			return body, nil
		}
		if !retryable {
			return nil, err
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, lastErr)
}

func (c *Client) postOnce(ctx context.Context, path string) (body []byte, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, nil)
	if err != nil {
		return nil, false, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Token "+c.token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, false, err
		}
		return nil, true, err
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, err
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, false, ErrAuthentication
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, ErrNotFound
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, true, fmt.Errorf("kanoon http status %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, false, fmt.Errorf("kanoon http status %d", resp.StatusCode)
	}
	return body, false, nil
}

func (c *Client) docURL(id string) string {
	return c.baseURL + "/doc/" + id + "/"
}

func clampCitations(n int) int {
	if n < 1 {
		return 1
	}
	if n > 50 {
		return 50
	}
	return n
}

var docIDPattern = regexp.MustCompile(`/doc/(\d+)/`)

// ExtractDocID pulls the numeric document ID out of a URL-shaped input.
// Plain numeric IDs pass through, and anything else is returned unchanged so
// callers can hand the upstream whatever identifier they were given.
func ExtractDocID(idOrURL string) string {
	s := strings.TrimSpace(idOrURL)
	if s == "" {
		return s
	}
	if isDigits(s) {
		return s
	}
	if m := docIDPattern.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
