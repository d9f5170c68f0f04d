package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Empty represents a response without a body.
// The zero value is nil; handlers return it with a nil error to signal
// success with only a status code.
//
// Example:
//
//	func DeleteUser(ctx context.Context, req DeleteUserRequest) (api.Empty, error) {
//	    // ... delete user
//	    return nil, nil
//	}
type Empty *struct{}

// writeResponse writes a successful response. Results of type Empty produce
// a status line with no body.
func writeResponse(w http.ResponseWriter, status int, result any, logger *slog.Logger) {
	if _, ok := result.(Empty); ok || result == nil {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(result); err != nil {
		// Response may be partially written, nothing we can do. Log for debugging.
		if logger == nil {
			logger = slog.Default()
		}
		logger.Error("failed to encode response", slog.Any("error", err))
	}
}
