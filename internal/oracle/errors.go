package oracle

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrAuth indicates the oracle rejected our credentials. Never retried;
// surfaced immediately to the caller.
var ErrAuth = errors.New("oracle authentication failed")

// ErrParse indicates a structured payload could not be recovered from the
// oracle's response after both invocation paths were exhausted. Callers must
// catch this and degrade the affected field to empty rather than aborting.
var ErrParse = errors.New("oracle response could not be parsed as structured data")

// statusError carries an HTTP status so retry logic can classify it.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("API request failed with status %d: %s", e.code, e.body)
}

// newStatusError maps auth statuses onto ErrAuth so callers can errors.Is it.
func newStatusError(code int, body string) error {
	if code == http.StatusUnauthorized || code == http.StatusForbidden {
		return fmt.Errorf("status %d: %s: %w", code, body, ErrAuth)
	}
	return &statusError{code: code, body: body}
}

// isTransient reports whether an error is worth retrying: rate limits,
// server errors, and network failures. Auth errors and context cancellation
// are not transient.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrAuth) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= 500
	}
	// Network-level failures (connection reset, DNS, timeouts surfaced by
	// net/http) arrive as plain wrapped errors.
	return true
}
