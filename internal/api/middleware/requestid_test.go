package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := RequestIDFromContext(r.Context())
		if !ok {
			t.Error("expected request id in context")
		}
		seen = id
	}))

	t.Run("generates", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

		if _, err := uuid.Parse(seen); err != nil {
			t.Errorf("expected UUID, got %q", seen)
		}
		if got := w.Header().Get(RequestIDHeader); got != seen {
			t.Errorf("expected response header %q, got %q", seen, got)
		}
	})

	t.Run("reuses valid id", func(t *testing.T) {
		id := uuid.NewString()
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set(RequestIDHeader, id)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		if seen != id {
			t.Errorf("expected %q, got %q", id, seen)
		}
	})

	t.Run("replaces garbage", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set(RequestIDHeader, "<script>")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		if seen == "<script>" {
			t.Error("malformed id must not be propagated")
		}
		if _, err := uuid.Parse(seen); err != nil {
			t.Errorf("expected UUID, got %q", seen)
		}
	})
}
