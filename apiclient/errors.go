package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	shoperrors "github.com/jrsteele09/go-shop-client/internal/errors"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Kind classifies an APIError.
type Kind int

const (
	KindUnknown Kind = iota
	KindNetworkUnreachable
	KindAuthRequired
	KindForbidden
	KindNotFound
	KindValidation
	KindRateLimited
	KindServerError
	// KindSessionInvalid covers local failures: no token, malformed or
	// expired token, missing refresh token.
	KindSessionInvalid
)

func (k Kind) String() string {
	switch k {
	case KindNetworkUnreachable:
		return "NetworkUnreachable"
	case KindAuthRequired:
		return "AuthRequired"
	case KindForbidden:
		return "Forbidden"
	case KindNotFound:
		return "NotFound"
	case KindValidation:
		return "Validation"
	case KindRateLimited:
		return "RateLimited"
	case KindServerError:
		return "ServerError"
	case KindSessionInvalid:
		return "SessionInvalid"
	default:
		return "Unknown"
	}
}

const networkMessage = "Unable to connect to the server. Please check your internet connection."

// APIError is the normalized error shape handed to callers for display.
type APIError struct {
	Success    bool      `json:"success"`
	Message    string    `json:"message"`
	StatusCode int       `json:"statusCode"`
	Err        string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`

	Kind    Kind   `json:"-"`
	Context string `json:"-"`

	serverMessage bool
	cause         error
}

func (e *APIError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s: %s (%d)", e.Context, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s (%d)", e.Message, e.StatusCode)
}

func (e *APIError) Unwrap() error {
	return e.cause
}

// KindForStatus maps an HTTP status to its Kind. Status 0 means the server was
// never reached.
func KindForStatus(status int) Kind {
	switch {
	case status == 0:
		return KindNetworkUnreachable
	case status == http.StatusUnauthorized:
		return KindAuthRequired
	case status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return KindValidation
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status >= 500 && status <= 599:
		return KindServerError
	default:
		return KindUnknown
	}
}

// DefaultMessage returns the user-facing message for status. subject
// qualifies 404 messages, e.g. "Customer not found.".
func DefaultMessage(status int, subject string) string {
	switch status {
	case 0:
		return networkMessage
	case http.StatusBadRequest:
		return "Invalid request. Please check your input and try again."
	case http.StatusUnauthorized:
		return "Authentication required. Please log in again."
	case http.StatusForbidden:
		return "You do not have permission to perform this action."
	case http.StatusNotFound:
		if subject != "" {
			return subject + " not found."
		}
		return "The requested resource was not found."
	case http.StatusUnprocessableEntity:
		return "The provided data is invalid. Please check and try again."
	case http.StatusTooManyRequests:
		return "Too many requests. Please wait a moment and try again."
	case http.StatusInternalServerError:
		return "Internal server error. Please try again later."
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return "Server is temporarily unavailable. Please try again later."
	default:
		return fmt.Sprintf("An unexpected error occurred (%d). Please try again.", status)
	}
}

// errorBody is the subset of an error response the client understands.
type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// FromResponse builds an APIError from a non-2xx response. A message supplied
// by the server wins over the default one.
func FromResponse(status int, body []byte, subject string) *APIError {
	e := &APIError{
		StatusCode: status,
		Kind:       KindForStatus(status),
		Context:    subject,
		Err:        http.StatusText(status),
		Timestamp:  NowTimeFunc().UTC(),
	}
	var parsed errorBody
	if len(body) > 0 && json.Unmarshal(body, &parsed) == nil {
		if parsed.Error != "" {
			e.Err = parsed.Error
		}
		if strings.TrimSpace(parsed.Message) != "" {
			e.Message = parsed.Message
			e.serverMessage = true
		}
	}
	if e.Message == "" {
		e.Message = DefaultMessage(status, subject)
	}
	return e
}

// NewNetworkError wraps a transport failure. The status code is reported as
// 500 because no response was received.
func NewNetworkError(err error, subject string) *APIError {
	return &APIError{
		Message:    networkMessage,
		StatusCode: http.StatusInternalServerError,
		Err:        errName(err),
		Timestamp:  NowTimeFunc().UTC(),
		Kind:       KindNetworkUnreachable,
		Context:    subject,
		cause:      err,
	}
}

// NewSessionInvalid wraps a local authentication failure.
func NewSessionInvalid(err error) *APIError {
	return &APIError{
		Message:    DefaultMessage(http.StatusUnauthorized, ""),
		StatusCode: http.StatusUnauthorized,
		Err:        errName(err),
		Timestamp:  NowTimeFunc().UTC(),
		Kind:       KindSessionInvalid,
		cause:      err,
	}
}

// Handle normalizes any error returned by the client, the session manager or
// the transport into an APIError qualified with subject. It returns nil for a
// nil error.
func Handle(err error, subject string) *APIError {
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if subject == "" || apiErr.Context == subject {
			return apiErr
		}
		qualified := *apiErr
		qualified.Context = subject
		if !qualified.serverMessage && qualified.Kind != KindNetworkUnreachable && qualified.Kind != KindSessionInvalid {
			qualified.Message = DefaultMessage(qualified.StatusCode, subject)
		}
		return &qualified
	}

	switch {
	case isSessionError(err):
		e := NewSessionInvalid(err)
		e.Context = subject
		return e
	case errors.Is(err, context.Canceled):
		return &APIError{
			Message:    "The request was cancelled.",
			StatusCode: http.StatusInternalServerError,
			Err:        errName(err),
			Timestamp:  NowTimeFunc().UTC(),
			Kind:       KindUnknown,
			Context:    subject,
			cause:      err,
		}
	default:
		return NewNetworkError(err, subject)
	}
}

func isSessionError(err error) bool {
	for _, target := range []error{
		shoperrors.ErrNoToken,
		shoperrors.ErrNoRefreshToken,
		shoperrors.ErrMalformedToken,
		shoperrors.ErrNotAuthenticated,
		shoperrors.ErrSessionReset,
		shoperrors.ErrEmptyProfile,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func errName(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func kindOf(err error) Kind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindUnknown
}

func IsNetworkError(err error) bool {
	return kindOf(err) == KindNetworkUnreachable
}

// IsAuthError reports a 401 from the server or a local session failure.
func IsAuthError(err error) bool {
	k := kindOf(err)
	return k == KindAuthRequired || k == KindSessionInvalid
}

func IsPermissionError(err error) bool {
	return kindOf(err) == KindForbidden
}

func IsValidationError(err error) bool {
	return kindOf(err) == KindValidation
}

func IsServerError(err error) bool {
	return kindOf(err) == KindServerError
}
