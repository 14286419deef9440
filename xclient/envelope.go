package xclient

import (
	"net/http"
	"time"
)

// Envelope is one outbound request: method, URL, headers, optional body,
// and the retry-relevant Idempotent flag. A request is idempotent if its
// method is GET, or if it is a POST carrying a read-only GraphQL
// operation; mutations are non-idempotent and must never be retried on an
// ambiguous failure.
type Envelope struct {
	Method     string
	URL        string
	Headers    map[string]string
	Body       []byte
	Idempotent bool
	// Timeout overrides the client's default per-request timeout when > 0.
	Timeout time.Duration
}

// Response is the result of sending an Envelope.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}
