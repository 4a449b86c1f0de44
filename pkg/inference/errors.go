package inference

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for the failure taxonomy.
var (
	// ErrNoCredentials is returned before any network call when the pool is empty.
	ErrNoCredentials = errors.New("inference: no API credentials configured")

	// ErrQuotaExceeded marks HTTP 429 responses.
	ErrQuotaExceeded = errors.New("inference: quota exceeded")

	// ErrAuthRejected marks HTTP 402 and 403 responses.
	ErrAuthRejected = errors.New("inference: credential rejected")

	// ErrServerError marks any other non-2xx response.
	ErrServerError = errors.New("inference: server error")

	// ErrEmptyResponse marks a 2xx response without a usable text part.
	ErrEmptyResponse = errors.New("inference: empty response")

	// ErrTransport marks network failures.
	ErrTransport = errors.New("inference: transport error")

	// ErrServiceBusy is returned once every key has been tried.
	ErrServiceBusy = errors.New("inference: service busy")
)

// APIError is a non-2xx response from the generation endpoint.
type APIError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Message is the error message from the API body, or the raw body.
	Message string

	// Status is the API's status string (e.g. RESOURCE_EXHAUSTED), if any.
	Status string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("inference: API error %d (%s): %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("inference: API error %d: %s", e.StatusCode, e.Message)
}

// Is maps the status code onto the taxonomy sentinels so callers can use
// errors.Is(err, ErrQuotaExceeded) and friends.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrQuotaExceeded:
		return e.IsRateLimited()
	case ErrAuthRejected:
		return e.IsAuthRejected()
	case ErrServerError:
		return !e.IsRateLimited() && !e.IsAuthRejected()
	}
	return false
}

// IsRateLimited returns true for HTTP 429.
func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// IsAuthRejected returns true for HTTP 402 and 403.
func (e *APIError) IsAuthRejected() bool {
	return e.StatusCode == http.StatusPaymentRequired || e.StatusCode == http.StatusForbidden
}

// BusyError reports that all keys were tried. It unwraps to both
// ErrServiceBusy and the last underlying failure.
type BusyError struct {
	Attempts int
	Last     error
}

// Error implements the error interface.
func (e *BusyError) Error() string {
	if e.Last == nil {
		return fmt.Sprintf("inference: service busy after %d attempts", e.Attempts)
	}
	return fmt.Sprintf("inference: service busy after %d attempts, last error: %v", e.Attempts, e.Last)
}

// Unwrap returns ErrServiceBusy and the last failure.
func (e *BusyError) Unwrap() []error {
	if e.Last == nil {
		return []error{ErrServiceBusy}
	}
	return []error{ErrServiceBusy, e.Last}
}

// Failure classifies an attempt outcome.
type Failure int

const (
	FailureNone Failure = iota
	FailureQuota
	FailureAuth
	FailureServer
	FailureEmpty
	FailureTransport
	FailureCanceled
)

// String returns the taxonomy name.
func (f Failure) String() string {
	switch f {
	case FailureNone:
		return "none"
	case FailureQuota:
		return "quota_exceeded"
	case FailureAuth:
		return "auth_rejected"
	case FailureServer:
		return "server_error"
	case FailureEmpty:
		return "empty_response"
	case FailureTransport:
		return "transport_error"
	case FailureCanceled:
		return "canceled"
	}
	return "unknown"
}

// Rotates reports whether the failure is a quota/auth condition that always
// moves to the next key.
func (f Failure) Rotates() bool {
	return f == FailureQuota || f == FailureAuth
}

// Classify maps an error from a Generator onto the taxonomy.
// Errors that match nothing known are treated as transport failures.
func Classify(err error) Failure {
	switch {
	case err == nil:
		return FailureNone
	case !errors.Is(err, ErrTransport) &&
		(errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)):
		return FailureCanceled
	case errors.Is(err, ErrQuotaExceeded):
		return FailureQuota
	case errors.Is(err, ErrAuthRejected):
		return FailureAuth
	case errors.Is(err, ErrEmptyResponse):
		return FailureEmpty
	case errors.Is(err, ErrServerError):
		return FailureServer
	default:
		return FailureTransport
	}
}

// User-facing messages for terminal failures.
const (
	MsgUnavailable = "عذراً، الخدمة غير متوفرة حالياً. يرجى المحاولة لاحقاً."
	MsgBusy        = "عذراً، الخدمة مشغولة حالياً. يرجى المحاولة بعد قليل."
	MsgFailed      = "عذراً، لم أتمكن من معالجة طلبك. يرجى المحاولة مرة أخرى."
)

// UserMessage returns the text shown in the transcript for err.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoCredentials):
		return MsgUnavailable
	case errors.Is(err, ErrServiceBusy):
		return MsgBusy
	default:
		return MsgFailed
	}
}
