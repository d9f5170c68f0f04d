// Package api is a small typed JSON layer over net/http and chi.
//
// Handlers are plain functions of the form
//
//	func(ctx context.Context, req Req) (Res, error)
//
// registered on an App under an HTTP method and a chi route pattern. The App
// decodes and validates requests, runs interceptors, and maps returned errors
// to a JSON error body with a matching status code.
package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/go-chi/chi/v5"
)

// App is the router for API handlers.
// It manages route registration, middleware, interceptors, and error handling.
// Use Handler() to get an http.Handler for use with http.ListenAndServe.
type App struct {
	mux                *chi.Mux
	basePath           string
	routes             []RouteInfo
	errorTransformer   ErrorTransformer
	maskInternalErrors bool
	interceptors       []UnaryInterceptor
	middlewares        []func(http.Handler) http.Handler
	logger             *slog.Logger
	maxRequestBodySize int64
}

// NewApp creates an App with a 1MB request body limit.
func NewApp() *App {
	a := &App{
		mux:                chi.NewRouter(),
		maxRequestBodySize: 1 << 20,
	}
	a.mux.NotFound(a.notFound)
	a.mux.MethodNotAllowed(a.methodNotAllowed)
	return a
}

// WithBasePath mounts every route under prefix, e.g. "/api".
func (a *App) WithBasePath(prefix string) *App {
	prefix = strings.TrimRight(prefix, "/")
	if prefix != "" && !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	a.basePath = prefix
	return a
}

// WithErrorTransformer adds a custom error transformer.
func (a *App) WithErrorTransformer(fn ErrorTransformer) *App {
	a.errorTransformer = fn
	return a
}

// WithMaskInternalErrors replaces the message of internal errors with a
// generic one. The original error is still logged.
func (a *App) WithMaskInternalErrors() *App {
	a.maskInternalErrors = true
	return a
}

// WithUnaryInterceptor adds a global interceptor.
// Global interceptors run before handler-level interceptors, in the order
// they were added.
func (a *App) WithUnaryInterceptor(i UnaryInterceptor) *App {
	a.interceptors = append(a.interceptors, i)
	return a
}

// WithMiddleware adds an HTTP middleware to wrap the app.
// Middleware is applied in the order added (first added is outermost).
func (a *App) WithMiddleware(mw func(http.Handler) http.Handler) *App {
	a.middlewares = append(a.middlewares, mw)
	return a
}

// WithLogger sets a custom logger for the app.
// If not set, slog.Default() will be used.
func (a *App) WithLogger(logger *slog.Logger) *App {
	a.logger = logger
	return a
}

// WithMaxRequestBodySize sets the maximum JSON body size. 0 means no limit.
func (a *App) WithMaxRequestBodySize(size int64) *App {
	a.maxRequestBodySize = size
	return a
}

// Handle registers an endpoint for method and pattern.
// Patterns use chi syntax, e.g. "/tasks/{id}".
func (a *App) Handle(method, pattern string, e Endpoint) {
	info := &RouteInfo{Method: method, Pattern: pattern}
	a.routes = append(a.routes, *info)
	a.mux.Method(method, pattern, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		e.serveHTTP(w, r, info, a.handlerConfig())
	}))
}

// Get registers e for GET requests on pattern.
func (a *App) Get(pattern string, e Endpoint) { a.Handle(http.MethodGet, pattern, e) }

// Post registers e for POST requests on pattern.
func (a *App) Post(pattern string, e Endpoint) { a.Handle(http.MethodPost, pattern, e) }

// Put registers e for PUT requests on pattern.
func (a *App) Put(pattern string, e Endpoint) { a.Handle(http.MethodPut, pattern, e) }

// Patch registers e for PATCH requests on pattern.
func (a *App) Patch(pattern string, e Endpoint) { a.Handle(http.MethodPatch, pattern, e) }

// Delete registers e for DELETE requests on pattern.
func (a *App) Delete(pattern string, e Endpoint) { a.Handle(http.MethodDelete, pattern, e) }

// Routes returns the registered routes in registration order.
func (a *App) Routes() []RouteInfo {
	return append([]RouteInfo(nil), a.routes...)
}

// BasePath returns the prefix routes are mounted under.
func (a *App) BasePath() string {
	return a.basePath
}

// Handler returns an http.Handler for use with http.ListenAndServe or other
// HTTP servers. The returned handler includes all configured middleware.
//
// Example:
//
//	app := api.NewApp().WithMiddleware(cors)
//	http.ListenAndServe(":8080", app.Handler())
func (a *App) Handler() http.Handler {
	var h http.Handler = a.mux
	if a.basePath != "" {
		root := chi.NewRouter()
		root.NotFound(a.notFound)
		root.MethodNotAllowed(a.methodNotAllowed)
		root.Mount(a.basePath, a.mux)
		h = root
	}
	h = a.recoverer(h)
	// Apply middleware in reverse order so first added is outermost
	for i := len(a.middlewares) - 1; i >= 0; i-- {
		h = a.middlewares[i](h)
	}
	return h
}

func (a *App) handlerConfig() HandlerConfig {
	return HandlerConfig{
		ErrorTransformer:   a.errorTransformer,
		MaskInternalErrors: a.maskInternalErrors,
		Interceptors:       a.interceptors,
		Logger:             a.getLogger(),
		MaxRequestBodySize: a.maxRequestBodySize,
	}
}

func (a *App) getLogger() *slog.Logger {
	if a.logger == nil {
		return slog.Default()
	}
	return a.logger
}

func (a *App) notFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, NewError(CodeNotFound, "route not found"), a.logger)
}

func (a *App) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, Errorf(CodeMethodNotAllowed, "method %s not allowed", r.Method), a.logger)
}

// recoverer turns handler panics into 500 responses.
func (a *App) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			a.getLogger().ErrorContext(r.Context(), "PANIC recovered",
				slog.Any("panic", rec),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("stack", string(debug.Stack())))
			msg := "internal server error"
			if !a.maskInternalErrors {
				msg = fmt.Sprintf("internal server error (panic): %v", rec)
			}
			writeError(w, NewError(CodeInternal, msg), a.logger)
		}()
		next.ServeHTTP(w, r)
	})
}
