package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Kind is the closed taxonomy of externally visible failure classes.
type Kind string

const (
	KindNetwork        Kind = "network"
	KindAuthentication Kind = "authentication"
	KindRateLimit      Kind = "rate_limit"
	KindAPIError       Kind = "api_error"
	KindParseError     Kind = "parse_error"
)

// Error codes attached to classified failures.
const (
	CodeTimeout       = "TIMEOUT"
	CodeInvalidAPIKey = "INVALID_API_KEY"
	CodeRateLimit     = "RATE_LIMIT"
)

// defaultRetryAfter is the advisory delay attached to rate-limit errors when
// the provider supplied no Retry-After hint.
const defaultRetryAfter = 60

// ExternalError is the typed failure the resilience layer hands to callers.
// It is produced exclusively by Classify; nothing else constructs the kinds
// ad hoc, so callers can branch on Kind with confidence.
type ExternalError struct {
	Kind    Kind
	Message string
	Code    string

	// RetryAfter is an advisory delay in seconds, set only for rate-limit
	// errors.
	RetryAfter int

	// Details preserves the underlying error for diagnostics.
	Details error
}

func (e *ExternalError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s): %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying error to errors.Is/As chains.
func (e *ExternalError) Unwrap() error {
	return e.Details
}

// Retryable reports whether a caller may reasonably re-invoke after seeing
// this error. Authentication failures and parse exhaustion are permanent.
func (e *ExternalError) Retryable() bool {
	switch e.Kind {
	case KindNetwork, KindRateLimit:
		return true
	default:
		return false
	}
}

// Classify maps any raw failure onto exactly one ExternalError. It is total:
// there is no unclassified outcome.
//
//   - aborts and timeouts become network/TIMEOUT
//   - HTTP 401 (by status or message) becomes authentication/INVALID_API_KEY
//   - HTTP 429 becomes rate_limit/RATE_LIMIT, honoring a provider
//     Retry-After hint when the transport captured one and falling back to
//     a fixed 60 seconds otherwise
//   - everything else becomes api_error with the raw error preserved
func Classify(err error) *ExternalError {
	if err == nil {
		return nil
	}

	// Already classified errors pass through unchanged.
	var ext *ExternalError
	if errors.As(err, &ext) {
		return ext
	}

	if isTimeout(err) {
		return &ExternalError{
			Kind:    KindNetwork,
			Code:    CodeTimeout,
			Message: "request timed out or was aborted",
			Details: err,
		}
	}

	// Transports surface HTTP failures as *statusError so classification
	// can use the exact status and any Retry-After header.
	var se *statusError
	if errors.As(err, &se) {
		switch se.status {
		case 401:
			return &ExternalError{
				Kind:    KindAuthentication,
				Code:    CodeInvalidAPIKey,
				Message: "invalid or missing API credential",
				Details: err,
			}
		case 429:
			retryAfter := se.retryAfter
			if retryAfter <= 0 {
				retryAfter = defaultRetryAfter
			}
			return &ExternalError{
				Kind:       KindRateLimit,
				Code:       CodeRateLimit,
				Message:    "provider rate limit exceeded",
				RetryAfter: retryAfter,
				Details:    err,
			}
		}
	}

	// Fall back to message inspection for transports that cannot attach a
	// structured status (SDK-wrapped errors and the like).
	msg := err.Error()
	switch {
	case strings.Contains(msg, "401"):
		return &ExternalError{
			Kind:    KindAuthentication,
			Code:    CodeInvalidAPIKey,
			Message: "invalid or missing API credential",
			Details: err,
		}
	case strings.Contains(msg, "429"):
		return &ExternalError{
			Kind:       KindRateLimit,
			Code:       CodeRateLimit,
			Message:    "provider rate limit exceeded",
			RetryAfter: defaultRetryAfter,
			Details:    err,
		}
	}

	return &ExternalError{
		Kind:    KindAPIError,
		Message: msg,
		Details: err,
	}
}

// isTimeout reports whether err represents a cancelled or timed-out call.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
