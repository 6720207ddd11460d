package kanoon

import "errors"

var (
	// ErrAuthentication means the upstream rejected our credentials.
	ErrAuthentication = errors.New("kanoon authentication rejected: check KANOON_API_TOKEN")

	// ErrNotFound means the upstream has no such document. Stale IDs are a
	// normal outcome for batch callers and must not abort a run.
	ErrNotFound = errors.New("kanoon document not found")

	// ErrUpstreamUnavailable covers timeouts and 5xx responses after retries
	// are exhausted.
	ErrUpstreamUnavailable = errors.New("kanoon upstream unavailable")
)
