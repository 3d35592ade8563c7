package backend

import (
	"fmt"
	"net/http"
)

// APIError classifies a backend HTTP failure. Any APIError is terminal
// for the current orchestration run; messages already appended to the
// log are retained.
type APIError struct {
	Backend string
	Status  int
	Kind    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s error (status %d): %s", e.Backend, e.Kind, e.Status, e.Message)
}

// classifyAPIError maps an HTTP status to an error kind without echoing
// the raw response body, which can contain request fragments.
func classifyAPIError(backend string, status int, body []byte) error {
	kind := "api"
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = "authentication"
	case status == http.StatusTooManyRequests:
		kind = "rate_limit"
	case status >= 500:
		kind = "server"
	case status >= 400:
		kind = "request"
	}

	msg := http.StatusText(status)
	if len(body) > 0 && len(body) <= 512 {
		msg = string(body)
	}
	return &APIError{Backend: backend, Status: status, Kind: kind, Message: msg}
}
