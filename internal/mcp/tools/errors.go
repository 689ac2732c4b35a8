package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/usestring/netquery-mcp/internal/aggregate"
	"github.com/usestring/netquery-mcp/internal/composer"
	"github.com/usestring/netquery-mcp/pkg/client"
)

// Error codes for MCP tool responses.
const (
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeNetqueryError = "NETQUERY_ERROR"
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeTimeout       = "TIMEOUT"
)

// CodedError is an error with an associated error code.
type CodedError struct {
	Code    string
	Message string
	Cause   error
}

func (e *CodedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CodedError) Unwrap() error {
	return e.Cause
}

// WrapNetqueryError converts a store, selection or group chart error to a
// coded error.
func WrapNetqueryError(err error) error {
	if err == nil {
		return nil
	}

	var (
		apiErr   *client.APIError
		fieldErr *composer.FieldError
		netErr   net.Error
		coded    *CodedError
	)

	switch {
	case errors.As(err, &coded):
		return coded
	case errors.As(err, &fieldErr):
		return &CodedError{Code: ErrCodeInvalidInput, Message: fieldErr.Error()}
	case errors.Is(err, aggregate.ErrUnknownGroup), errors.Is(err, aggregate.ErrStaleGroup):
		coded = &CodedError{Code: ErrCodeNotFound, Message: "group chart unavailable", Cause: err}
	case errors.As(err, &apiErr):
		code := ErrCodeNetqueryError
		if apiErr.StatusCode == http.StatusNotFound {
			code = ErrCodeNotFound
		}
		coded = &CodedError{Code: code, Message: apiErr.Message, Cause: err}
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		coded = &CodedError{Code: ErrCodeTimeout, Message: "request timed out", Cause: err}
	default:
		coded = &CodedError{Code: ErrCodeNetqueryError, Message: err.Error(), Cause: err}
	}

	slog.Warn("netquery error",
		slog.String("code", coded.Code),
		slog.String("message", coded.Message),
	)

	return coded
}

// ErrNotFound creates a not found error.
func ErrNotFound(resource, id string) error {
	return &CodedError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found: %s", resource, id),
	}
}

// ErrInvalidInput creates an invalid input error.
func ErrInvalidInput(message string) error {
	return &CodedError{
		Code:    ErrCodeInvalidInput,
		Message: message,
	}
}
