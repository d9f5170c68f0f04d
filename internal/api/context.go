package api

import (
	"context"
	"net/http"
)

// RouteInfo describes the route serving the current request.
type RouteInfo struct {
	// Method is the HTTP method the route was registered for.
	Method string
	// Pattern is the route pattern relative to the app base path, e.g. "/tasks/{id}".
	Pattern string
}

// String returns "METHOD pattern".
func (i *RouteInfo) String() string {
	return i.Method + " " + i.Pattern
}

type contextKey struct {
	name string
}

var (
	requestKey   = &contextKey{"request"}
	writerKey    = &contextKey{"writer"}
	routeInfoKey = &contextKey{"route_info"}
)

// RequestFromContext returns the HTTP request from the context.
func RequestFromContext(ctx context.Context) *http.Request {
	if r, ok := ctx.Value(requestKey).(*http.Request); ok {
		return r
	}
	return nil
}

// SetHeader sets an HTTP response header.
// It has no effect unless the handler was called through an App.
func SetHeader(ctx context.Context, key, value string) {
	if w, ok := ctx.Value(writerKey).(http.ResponseWriter); ok {
		w.Header().Set(key, value)
	}
}

// RouteFromContext returns the route serving the current request.
func RouteFromContext(ctx context.Context) (*RouteInfo, bool) {
	info, ok := ctx.Value(routeInfoKey).(*RouteInfo)
	return info, ok
}

func newContext(ctx context.Context, w http.ResponseWriter, r *http.Request, info *RouteInfo) context.Context {
	ctx = context.WithValue(ctx, writerKey, w)
	ctx = context.WithValue(ctx, requestKey, r)
	ctx = context.WithValue(ctx, routeInfoKey, info)
	return ctx
}
