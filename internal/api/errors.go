package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrorCode represents a machine-readable error code.
type ErrorCode string

const (
	CodeInvalidArgument   ErrorCode = "invalid_argument"
	CodeNotFound          ErrorCode = "not_found"
	CodeMethodNotAllowed  ErrorCode = "method_not_allowed"
	CodeConflict          ErrorCode = "conflict"
	CodeRequestTooLarge   ErrorCode = "request_too_large"
	CodeUnsupportedMedia  ErrorCode = "unsupported_media_type"
	CodeCanceled          ErrorCode = "canceled"
	CodeDeadlineExceeded  ErrorCode = "deadline_exceeded"
	CodeInternal          ErrorCode = "internal"
	CodeUnavailable       ErrorCode = "unavailable"
	CodeResourceExhausted ErrorCode = "resource_exhausted"
)

// Error is the JSON error body returned to clients.
//
// The message is serialized under "error" so that clients reading
// body.error get a displayable string.
type Error struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"error"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewError creates a new API error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Errorf creates a new API error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// WithDetail returns a new Error with the key-value pair added to details.
func (e *Error) WithDetail(key string, value any) *Error {
	details := make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
	}
}

// ErrorTransformer maps an application error to an API error.
// If it returns nil, DefaultErrorTransformer is applied.
type ErrorTransformer func(error) *Error

// DefaultErrorTransformer maps standard Go errors to API errors.
func DefaultErrorTransformer(err error) *Error {
	if err == nil {
		return nil
	}

	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(CodeDeadlineExceeded, "request timeout")
	}

	if errors.Is(err, context.Canceled) {
		return NewError(CodeCanceled, "context canceled")
	}

	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return Errorf(CodeRequestTooLarge, "request body exceeds %d bytes", maxBytesErr.Limit)
	}

	var valErrs validator.ValidationErrors
	if errors.As(err, &valErrs) {
		details := make(map[string]any, len(valErrs))
		messages := make([]string, 0, len(valErrs))
		for _, ve := range valErrs {
			msg := formatValidationError(ve)
			details[ve.Field()] = msg
			messages = append(messages, msg)
		}
		return &Error{
			Code:    CodeInvalidArgument,
			Message: strings.Join(messages, "; "),
			Details: details,
		}
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return Errorf(CodeInvalidArgument, "malformed request body: %v", err)
	}

	return NewError(CodeInternal, err.Error())
}

// HTTPStatus maps an ErrorCode to an HTTP status code.
func (c ErrorCode) HTTPStatus() int {
	switch c {
	case CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case CodeConflict:
		return http.StatusConflict
	case CodeRequestTooLarge:
		return http.StatusRequestEntityTooLarge
	case CodeUnsupportedMedia:
		return http.StatusUnsupportedMediaType
	case CodeResourceExhausted:
		return http.StatusTooManyRequests
	case CodeCanceled:
		return 499 // Client Closed Request
	case CodeDeadlineExceeded:
		return http.StatusGatewayTimeout
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// formatValidationError converts a validator.FieldError to a sentence naming
// the field, e.g. "Title is required".
func formatValidationError(ve validator.FieldError) string {
	name := ve.StructField()
	switch ve.Tag() {
	case "required", "notblank":
		return name + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", name, ve.Param())
	case "max":
		return fmt.Sprintf("%s must be less than %s characters", name, ve.Param())
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters", name, ve.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", name, ve.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", name, ve.Param())
	case "lt":
		return fmt.Sprintf("%s must be less than %s", name, ve.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", name, ve.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", name, ve.Param())
	default:
		if ve.Param() != "" {
			return fmt.Sprintf("%s failed %s=%s validation", name, ve.Tag(), ve.Param())
		}
		return fmt.Sprintf("%s failed %s validation", name, ve.Tag())
	}
}

// handleError transforms err, masks internal messages if configured, logs
// server-side failures and writes the error body.
func handleError(w http.ResponseWriter, r *http.Request, err error, config HandlerConfig) {
	var apiErr *Error
	if config.ErrorTransformer != nil {
		apiErr = config.ErrorTransformer(err)
	}
	if apiErr == nil {
		apiErr = DefaultErrorTransformer(err)
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if apiErr.Code.HTTPStatus() >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "unhandled error",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
	}

	if config.MaskInternalErrors && apiErr.Code == CodeInternal {
		apiErr = &Error{Code: CodeInternal, Message: "internal server error"}
	}
	writeError(w, apiErr, logger)
}

func writeError(w http.ResponseWriter, apiErr *Error, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.Code.HTTPStatus())
	if err := json.NewEncoder(w).Encode(apiErr); err != nil {
		// Headers already sent, nothing we can do. Log for debugging.
		logger.Error("failed to encode error response",
			slog.String("code", string(apiErr.Code)),
			slog.String("message", apiErr.Message),
			slog.Any("error", err))
	}
}
