package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Unified error codes aligning HTTP status, retryability and user-facing
// messages across backends.
type ErrorCode string

const (
	ErrInvalidRequest ErrorCode = "LLM_INVALID_REQUEST" // empty prompt/conversation, detected before dispatch
	ErrAuthFailed     ErrorCode = "LLM_AUTH_FAILED"     // 401, bad or expired API key
	ErrRateLimited    ErrorCode = "LLM_RATE_LIMITED"    // 429
	ErrBadRequest     ErrorCode = "LLM_BAD_REQUEST"     // 400, remote rejected the parameters
	ErrRemoteServer   ErrorCode = "LLM_REMOTE_SERVER"   // 500
	ErrRemote         ErrorCode = "LLM_REMOTE"          // any other remote failure
	ErrLocal          ErrorCode = "LLM_LOCAL"           // transport or other non-remote fault
)

// Error is a classified completion failure. HTTPStatus is zero for failures
// that never carried a remote status. Retryable is advisory only: the adapter
// itself performs no retries.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
}

func (e *Error) Error() string { return e.Message }

// MapHTTPError maps a remote HTTP status to a classified *Error.
// Exact status matches win; anything unmatched falls to the generic
// remote category with the raw message embedded.
func MapHTTPError(status int, msg string) *Error {
	switch status {
	case http.StatusUnauthorized:
		return &Error{
			Code:       ErrAuthFailed,
			Message:    "Authentication failed. Check the API key.",
			HTTPStatus: status,
		}
	case http.StatusTooManyRequests:
		return &Error{
			Code:       ErrRateLimited,
			Message:    "Rate limit exceeded. Retry later.",
			HTTPStatus: status,
			Retryable:  true,
		}
	case http.StatusBadRequest:
		return &Error{
			Code:       ErrBadRequest,
			Message:    fmt.Sprintf("Bad request: %s", msg),
			HTTPStatus: status,
		}
	case http.StatusInternalServerError:
		return &Error{
			Code:       ErrRemoteServer,
			Message:    "Remote service error. Retry later.",
			HTTPStatus: status,
			Retryable:  true,
		}
	default:
		return &Error{
			Code:       ErrRemote,
			Message:    fmt.Sprintf("Remote API error: %s", msg),
			HTTPStatus: status,
			Retryable:  status >= 500,
		}
	}
}

// Classify reduces any failure to a stable code and user-facing message.
// Already-classified *Error values pass through unchanged; everything else
// (transport faults, context errors) becomes ErrLocal with the raw message.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var le *Error
	if errors.As(err, &le) {
		return le
	}
	return &Error{
		Code:      ErrLocal,
		Message:   err.Error(),
		Retryable: errors.Is(err, context.DeadlineExceeded),
	}
}

// invalidRequest builds the pre-dispatch validation failure used by the
// request builder. These never reach the wire.
func invalidRequest(format string, args ...any) *Error {
	return &Error{
		Code:    ErrInvalidRequest,
		Message: fmt.Sprintf(format, args...),
	}
}
