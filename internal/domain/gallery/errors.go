package gallery

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrItemNotFound       = errors.New("item not found")
	ErrViewNotFound       = errors.New("view not found")
	ErrNothingToOperate   = errors.New("nothing to operate on")
	ErrInvalidAction      = errors.New("invalid action")
	ErrCatalogUnavailable = errors.New("catalog unavailable")
	ErrCacheMiss          = errors.New("key not found in cache")
)

// UnknownErrorMessage is used when the server gives no reason for a failure
const UnknownErrorMessage = "unknown error"

// NetworkError is returned when the request never produced a response
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network failure: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// HTTPStatusError is returned for a non-2xx reply on the single-item call
type HTTPStatusError struct {
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("HTTP error! status: %d", e.StatusCode)
}

// ApplicationError carries a failure reported by the server itself: either
// success=false or an error payload on a failed batch call
type ApplicationError struct {
	StatusCode int
	Message    string
	Payload    map[string]any
}

func (e *ApplicationError) Error() string {
	if e.Message == "" {
		return UnknownErrorMessage
	}
	return e.Message
}

// NewApplicationError builds an ApplicationError from a decoded error body,
// picking up its "message" or "error" field when present
func NewApplicationError(status int, payload map[string]any) *ApplicationError {
	appErr := &ApplicationError{StatusCode: status, Payload: payload}
	for _, key := range []string{"message", "error"} {
		if msg, ok := payload[key].(string); ok && msg != "" {
			appErr.Message = msg
			break
		}
	}
	return appErr
}

// MalformedResponseError is returned when the reply body is not the expected JSON
type MalformedResponseError struct {
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// AlertMessage picks the best-effort message to show the user for err
func AlertMessage(err error) string {
	if err == nil {
		return ""
	}
	var appErr *ApplicationError
	if errors.As(err, &appErr) {
		return appErr.Error()
	}
	return err.Error()
}

// FailureAlert formats the alert text for a failed mutation
func FailureAlert(err error) string {
	return "Operation failed: " + AlertMessage(err)
}
