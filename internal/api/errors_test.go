package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestErrorf(t *testing.T) {
	err := Errorf(CodeNotFound, "task %d not found", 7)
	if err.Code != CodeNotFound {
		t.Errorf("expected code %s, got %s", CodeNotFound, err.Code)
	}
	if err.Message != "task 7 not found" {
		t.Errorf("expected formatted message, got %s", err.Message)
	}
	if got := err.Error(); got != "not_found: task 7 not found" {
		t.Errorf("unexpected Error(): %q", got)
	}
}

func TestWithDetail_DoesNotMutate(t *testing.T) {
	base := NewError(CodeInvalidArgument, "bad")
	withA := base.WithDetail("a", 1)
	withB := withA.WithDetail("b", 2)

	if base.Details != nil {
		t.Errorf("expected base details to stay nil, got %v", base.Details)
	}
	if len(withA.Details) != 1 {
		t.Errorf("expected 1 detail, got %v", withA.Details)
	}
	if len(withB.Details) != 2 || withB.Details["a"] != 1 || withB.Details["b"] != 2 {
		t.Errorf("unexpected details: %v", withB.Details)
	}
}

func TestDefaultErrorTransformer(t *testing.T) {
	tests := []struct {
		name     string
		input    error
		wantCode ErrorCode
		wantMsg  string
	}{
		{
			name:     "api error passthrough",
			input:    NewError(CodeNotFound, "not found"),
			wantCode: CodeNotFound,
			wantMsg:  "not found",
		},
		{
			name:     "wrapped api error",
			input:    fmt.Errorf("lookup: %w", NewError(CodeConflict, "taken")),
			wantCode: CodeConflict,
			wantMsg:  "taken",
		},
		{
			name:     "context deadline exceeded",
			input:    fmt.Errorf("query: %w", context.DeadlineExceeded),
			wantCode: CodeDeadlineExceeded,
			wantMsg:  "request timeout",
		},
		{
			name:     "context canceled",
			input:    context.Canceled,
			wantCode: CodeCanceled,
			wantMsg:  "context canceled",
		},
		{
			name:     "body too large",
			input:    &http.MaxBytesError{Limit: 10},
			wantCode: CodeRequestTooLarge,
			wantMsg:  "request body exceeds 10 bytes",
		},
		{
			name:     "generic error",
			input:    errors.New("something failed"),
			wantCode: CodeInternal,
			wantMsg:  "something failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := DefaultErrorTransformer(tt.input)
			if result.Code != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, result.Code)
			}
			if result.Message != tt.wantMsg {
				t.Errorf("expected message %q, got %q", tt.wantMsg, result.Message)
			}
		})
	}

	if DefaultErrorTransformer(nil) != nil {
		t.Error("expected nil for nil input")
	}
}

func TestDefaultErrorTransformer_ValidationErrors(t *testing.T) {
	type payload struct {
		Title       string  `json:"title" validate:"notblank,max=100"`
		Description *string `json:"description" validate:"omitempty,max=500"`
	}

	long := strings.Repeat("d", 501)
	err := validate.Struct(payload{Title: "   ", Description: &long})

	result := DefaultErrorTransformer(err)
	if result.Code != CodeInvalidArgument {
		t.Errorf("expected code %s, got %s", CodeInvalidArgument, result.Code)
	}
	if got := result.Details["title"]; got != "Title is required" {
		t.Errorf("expected title detail 'Title is required', got %v", got)
	}
	if got := result.Details["description"]; got != "Description must be less than 500 characters" {
		t.Errorf("unexpected description detail: %v", got)
	}
	if result.Message != "Title is required; Description must be less than 500 characters" {
		t.Errorf("unexpected message %q", result.Message)
	}
}

func TestErrorCode_HTTPStatus(t *testing.T) {
	tests := []struct {
		code       ErrorCode
		wantStatus int
	}{
		{CodeInvalidArgument, http.StatusBadRequest},
		{CodeNotFound, http.StatusNotFound},
		{CodeMethodNotAllowed, http.StatusMethodNotAllowed},
		{CodeConflict, http.StatusConflict},
		{CodeRequestTooLarge, http.StatusRequestEntityTooLarge},
		{CodeUnsupportedMedia, http.StatusUnsupportedMediaType},
		{CodeResourceExhausted, http.StatusTooManyRequests},
		{CodeUnavailable, http.StatusServiceUnavailable},
		{CodeDeadlineExceeded, http.StatusGatewayTimeout},
		{CodeCanceled, 499},
		{CodeInternal, http.StatusInternalServerError},
		{ErrorCode("unknown"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if status := tt.code.HTTPStatus(); status != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, status)
			}
		})
	}
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	writeError(w, NewError(CodeNotFound, "task 3 not found").WithDetail("id", 3), nil)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, w.Code)
	}
	if w.Header().Get("Content-Type") != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", w.Header().Get("Content-Type"))
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["error"] != "task 3 not found" {
		t.Errorf("expected message under \"error\", got %v", body)
	}
	if body["code"] != "not_found" {
		t.Errorf("expected code not_found, got %v", body["code"])
	}
}

func TestHandleError_MasksAndLogs(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	r := httptest.NewRequest("GET", "/tasks", nil)
	w := httptest.NewRecorder()
	handleError(w, r, errors.New("db password leaked"), HandlerConfig{MaskInternalErrors: true, Logger: logger})

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "password") {
		t.Errorf("internal message leaked: %s", w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "internal server error") {
		t.Errorf("expected generic message, got %s", w.Body.String())
	}
	if !strings.Contains(logs.String(), "db password leaked") {
		t.Errorf("expected original error in logs, got %s", logs.String())
	}
}

func TestHandleError_CustomTransformer(t *testing.T) {
	sentinel := errors.New("gone")
	transformer := func(err error) *Error {
		if errors.Is(err, sentinel) {
			return NewError(CodeNotFound, "custom")
		}
		return nil
	}

	r := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()
	handleError(w, r, sentinel, HandlerConfig{ErrorTransformer: transformer})
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}

	// Falls back to the default transformer when the custom one returns nil.
	w = httptest.NewRecorder()
	handleError(w, r, NewError(CodeConflict, "dup"), HandlerConfig{ErrorTransformer: transformer})
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
}
