package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
)

// CORSConfig holds the configuration for CORS middleware.
type CORSConfig struct {
	// AllowOrigins is a list of origins a cross-domain request can be executed from.
	// If the list contains "*", all origins are allowed.
	AllowOrigins []string

	// AllowMethods is a list of methods the client is allowed to use.
	AllowMethods []string

	// AllowHeaders is a list of headers the client is allowed to use.
	AllowHeaders []string

	// ExposeHeaders indicates which headers are safe to expose.
	ExposeHeaders []string

	// AllowCredentials indicates whether the request can include credentials.
	AllowCredentials bool

	// MaxAge indicates how long (in seconds) the results of a preflight request can be cached.
	// Zero leaves the header unset.
	MaxAge int
}

// DefaultCORSConfig allows every origin and the methods used by the task API.
func DefaultCORSConfig() *CORSConfig {
	return &CORSConfig{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Content-Type", "Authorization", RequestIDHeader},
		ExposeHeaders: []string{RequestIDHeader},
	}
}

// CORS returns an HTTP middleware that handles CORS preflight requests and sets CORS headers.
func CORS(cfg *CORSConfig) func(http.Handler) http.Handler {
	if cfg == nil {
		cfg = DefaultCORSConfig()
	}
	def := DefaultCORSConfig()

	allowedOrigins := cfg.AllowOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = def.AllowOrigins
	}
	allowedMethods := cfg.AllowMethods
	if len(allowedMethods) == 0 {
		allowedMethods = def.AllowMethods
	}
	allowedHeaders := cfg.AllowHeaders
	if len(allowedHeaders) == 0 {
		allowedHeaders = def.AllowHeaders
	}

	wildcard := slices.Contains(allowedOrigins, "*")
	allowedMethodsStr := strings.Join(allowedMethods, ", ")
	allowedHeadersStr := strings.Join(allowedHeaders, ", ")
	exposedHeadersStr := strings.Join(cfg.ExposeHeaders, ", ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			allowed := wildcard || (origin != "" && slices.Contains(allowedOrigins, origin))

			if allowed {
				// Access-Control-Allow-Origin: * is forbidden together with
				// credentials, so echo the origin in that case.
				if origin != "" && (!wildcard || cfg.AllowCredentials) {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Add("Vary", "Origin")
				} else {
					w.Header().Set("Access-Control-Allow-Origin", "*")
				}
				if cfg.AllowCredentials {
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				}
				if exposedHeadersStr != "" {
					w.Header().Set("Access-Control-Expose-Headers", exposedHeadersStr)
				}
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.Header().Set("Access-Control-Allow-Methods", allowedMethodsStr)
				w.Header().Set("Access-Control-Allow-Headers", allowedHeadersStr)
				if cfg.MaxAge > 0 {
					w.Header().Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
