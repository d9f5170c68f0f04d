// Package middleware provides interceptors and HTTP middleware for api.App.
package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/broady/taskapi/internal/api"
)

// LoggingInterceptor creates an interceptor that logs handler calls using slog.
// It logs the start and end of each call, including duration and error status.
// Requests rejected by decoding or validation never reach interceptors.
func LoggingInterceptor(logger *slog.Logger) api.UnaryInterceptor {
	if logger == nil {
		logger = slog.Default()
	}

	return func(ctx context.Context, req any, info *api.RouteInfo, handler api.HandlerFunc) (any, error) {
		start := time.Now()
		attrs := []any{slog.String("route", info.String())}
		if id, ok := RequestIDFromContext(ctx); ok {
			attrs = append(attrs, slog.String("request_id", id))
		}

		logger.DebugContext(ctx, "request started", attrs...)

		res, err := handler(ctx, req)
		attrs = append(attrs, slog.Duration("duration", time.Since(start)))

		if err != nil {
			logger.WarnContext(ctx, "request failed", append(attrs, slog.Any("error", err))...)
		} else {
			logger.InfoContext(ctx, "request completed", attrs...)
		}

		return res, err
	}
}
