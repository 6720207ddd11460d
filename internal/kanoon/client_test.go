package kanoon

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestExtractDocID(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"numeric id passes through", "1234567", "1234567"},
		{"full url", "https://indiankanoon.org/doc/1234567/", "1234567"},
		{"relative path", "/doc/42/", "42"},
		{"url with query", "https://indiankanoon.org/doc/99/?type=print", "99"},
		{"non-numeric non-url passes through", "some-handle", "some-handle"},
		{"whitespace trimmed", "  314  ", "314"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExtractDocID(tc.input); got != tc.want {
				t.Fatalf("ExtractDocID(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestSearchParsesResults(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.String()
		if got := r.Header.Get("Authorization"); got != "Token test-token" {
			t.Errorf("Authorization = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"found": 2,
			"docs": [
				{"tid": 111, "title": "State v. Sharma", "headline": "<b>theft</b> conviction", "docsource": "Delhi High Court", "publishdate": "2019-05-21"},
				{"tid": 222, "title": "Rao v. State", "docsource": "Supreme Court of India"}
			]
		}`))
	}))
	t.Cleanup(srv.Close)

	client := NewClient(srv.URL, "test-token")
	res, err := client.Search(context.Background(), "theft conviction", SearchOptions{MaxCitations: 500})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.Found != 2 {
		t.Fatalf("Found = %d, want 2", res.Found)
	}
	if len(res.Docs) != 2 {
		t.Fatalf("Docs = %d, want 2", len(res.Docs))
	}
	if res.Docs[0].DocID != "111" {
		t.Fatalf("DocID = %q, want 111", res.Docs[0].DocID)
	}
	if res.Docs[0].Headline != "theft conviction" {
		t.Fatalf("Headline = %q, want tags stripped", res.Docs[0].Headline)
	}
	if !strings.HasSuffix(res.Docs[0].URL, "/doc/111/") {
		t.Fatalf("URL = %q", res.Docs[0].URL)
	}
	// maxcites must be clamped into [1,50].
	if !strings.Contains(gotPath, "maxcites=50") {
		t.Fatalf("request path %q missing clamped maxcites", gotPath)
	}
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	client := NewClient("http://example.invalid", "")
	if _, err := client.Search(context.Background(), "   ", SearchOptions{}); err == nil {
		t.Fatal("expected error for empty query")
	}
}

func TestAuthFailureIsTerminal(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	client := NewClient(srv.URL, "bad-token")
	_, err := client.Search(context.Background(), "theft", SearchOptions{})
	if !errors.Is(err, ErrAuthentication) {
		t.Fatalf("err = %v, want ErrAuthentication", err)
	}
	if attempts != 1 {
		t.Fatalf("auth failure retried %d times, want 1 attempt", attempts)
	}
	if !strings.Contains(err.Error(), "KANOON_API_TOKEN") {
		t.Fatalf("error %q missing remediation hint", err)
	}
}

func TestFetchDetailsNotFoundIsTerminal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	client := NewClient(srv.URL, "test-token")
	_, _, err := client.FetchDetails(context.Background(), "999")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestTransientFailureRetriesThenUnavailable(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	client := NewClient(srv.URL, "test-token", WithMaxAttempts(3))
	_, err := client.Search(context.Background(), "theft", SearchOptions{})
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("err = %v, want ErrUpstreamUnavailable", err)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

func TestTransientRecoversWithinAttempts(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"found": 0, "docs": []}`))
	}))
	t.Cleanup(srv.Close)

	client := NewClient(srv.URL, "test-token", WithMaxAttempts(2))
	res, err := client.Search(context.Background(), "theft", SearchOptions{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Docs) != 0 {
		t.Fatalf("Docs = %d, want 0", len(res.Docs))
	}
}

func TestFetchDetailsNormalizesAndReturnsRaw(t *testing.T) {
	payload := `{
		"tid": 1234567,
		"title": "State v. Sharma",
		"doc": "<p>The accused committed theft under Section 379 of the IPC.</p><p>The accused is hereby convicted.</p>",
		"docsource": "Delhi High Court",
		"publishdate": "2019-05-21",
		"caseno": "CRL 42/2019",
		"bench": "J. Mehta, J. Rao"
	}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/doc/1234567/") {
			t.Errorf("path = %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(payload))
	}))
	t.Cleanup(srv.Close)

	client := NewClient(srv.URL, "test-token")
	p, raw, err := client.FetchDetails(context.Background(), "https://indiankanoon.org/doc/1234567/")
	if err != nil {
		t.Fatalf("FetchDetails: %v", err)
	}
	if len(raw) == 0 {
		t.Fatal("expected raw payload")
	}
	if p.SourceID != "1234567" {
		t.Fatalf("SourceID = %q", p.SourceID)
	}
	if p.Year != 2019 {
		t.Fatalf("Year = %d, want 2019", p.Year)
	}
	if p.Court != "Delhi High Court" {
		t.Fatalf("Court = %q", p.Court)
	}
	if len(p.Judges) != 2 {
		t.Fatalf("Judges = %v", p.Judges)
	}
	found := false
	for _, s := range p.IPCSections {
		if s == "IPC Section 379" {
			found = true
		}
	}
	if !found {
		t.Fatalf("IPCSections = %v, want IPC Section 379", p.IPCSections)
	}
}
