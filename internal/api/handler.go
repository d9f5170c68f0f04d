package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"maps"
	"mime"
	"net/http"
	"net/url"
	"reflect"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/gorilla/schema"
)

var (
	validate      = newValidator()
	schemaDecoder = schema.NewDecoder()
)

func init() {
	schemaDecoder.IgnoreUnknownKeys(true)
}

// newValidator returns a validator that reports fields by their wire name
// and understands the "notblank" tag.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			name, _, _ = strings.Cut(f.Tag.Get("schema"), ",")
		}
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	return v
}

// HandlerConfig contains configuration passed from the App to handlers.
type HandlerConfig struct {
	ErrorTransformer   ErrorTransformer
	MaskInternalErrors bool
	Interceptors       []UnaryInterceptor
	Logger             *slog.Logger
	// MaxRequestBodySize limits JSON bodies. Zero means no limit.
	MaxRequestBodySize int64
}

// Endpoint is a handler that can be registered on an App.
// It is sealed; create one with NewHandler.
type Endpoint interface {
	serveHTTP(w http.ResponseWriter, r *http.Request, info *RouteInfo, config HandlerConfig)
}

// Handler adapts a typed function to an HTTP endpoint.
//
// Requests are decoded in three steps: path parameters and the query string
// into fields tagged `schema:"..."`, the JSON body (for methods that carry
// one), then struct validation using `validate:"..."` tags.
type Handler[Req any, Res any] struct {
	fn           func(context.Context, Req) (Res, error)
	status       int
	interceptors []UnaryInterceptor
}

// NewHandler creates a new handler from a generic function.
// The default success status is 200.
func NewHandler[Req any, Res any](fn func(context.Context, Req) (Res, error)) *Handler[Req, Res] {
	return &Handler[Req, Res]{
		fn:     fn,
		status: http.StatusOK,
	}
}

// WithStatus sets the HTTP status written on success.
func (h *Handler[Req, Res]) WithStatus(code int) *Handler[Req, Res] {
	h.status = code
	return h
}

// WithUnaryInterceptor adds an interceptor to this handler.
// Handler interceptors run after the App's interceptors.
func (h *Handler[Req, Res]) WithUnaryInterceptor(i UnaryInterceptor) *Handler[Req, Res] {
	h.interceptors = append(h.interceptors, i)
	return h
}

func (h *Handler[Req, Res]) serveHTTP(w http.ResponseWriter, r *http.Request, info *RouteInfo, config HandlerConfig) {
	ctx := newContext(r.Context(), w, r, info)
	r = r.WithContext(ctx)

	var req Req
	if err := decodeRequest(w, r, &req, config.MaxRequestBodySize); err != nil {
		handleError(w, r, err, config)
		return
	}

	all := make([]UnaryInterceptor, 0, len(config.Interceptors)+len(h.interceptors))
	all = append(all, config.Interceptors...)
	all = append(all, h.interceptors...)
	chain := chainInterceptors(all)

	finalHandler := func(ctx context.Context, reqAny any) (any, error) {
		reqTyped, ok := reqAny.(Req)
		if !ok {
			return nil, Errorf(CodeInternal, "interceptor modified request type incorrectly")
		}
		return h.fn(ctx, reqTyped)
	}

	var res any
	var err error
	if chain != nil {
		res, err = chain(ctx, req, info, finalHandler)
	} else {
		res, err = finalHandler(ctx, req)
	}

	if err != nil {
		handleError(w, r, err, config)
		return
	}
	writeResponse(w, h.status, res, config.Logger)
}

// decodeRequest fills dst, which must be a pointer, from the request.
func decodeRequest(w http.ResponseWriter, r *http.Request, dst any, maxBody int64) error {
	isStruct := reflect.TypeOf(dst).Elem().Kind() == reflect.Struct
	withBody := hasBody(r)

	if isStruct {
		// Query parameters only fill requests without a body; URL params
		// always apply.
		values := url.Values{}
		if !withBody {
			values = r.URL.Query()
		}
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			for i, key := range rctx.URLParams.Keys {
				if key == "*" {
					continue
				}
				values.Set(key, rctx.URLParams.Values[i])
			}
		}
		if len(values) > 0 {
			if err := schemaDecoder.Decode(dst, values); err != nil {
				return paramError(reflect.TypeOf(dst).Elem(), err)
			}
		}
	}

	if withBody {
		if ct := r.Header.Get("Content-Type"); ct != "" {
			mt, _, err := mime.ParseMediaType(ct)
			if err != nil || mt != "application/json" {
				return Errorf(CodeUnsupportedMedia, "unsupported content type %q", ct)
			}
		}
		body := r.Body
		if maxBody > 0 {
			body = http.MaxBytesReader(w, r.Body, maxBody)
		}
		if err := json.NewDecoder(body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
			var maxBytesErr *http.MaxBytesError
			if errors.As(err, &maxBytesErr) {
				return err
			}
			return Errorf(CodeInvalidArgument, "failed to decode body: %v", err)
		}
	}

	if isStruct {
		if err := validate.Struct(dst); err != nil {
			return err
		}
	}
	return nil
}

// paramError reports path and query decoding failures keyed by parameter
// name, e.g. details.id = "ID must be an integer".
func paramError(t reflect.Type, err error) *Error {
	var multi schema.MultiError
	if !errors.As(err, &multi) || len(multi) == 0 {
		return Errorf(CodeInvalidArgument, "invalid parameters: %v", err)
	}
	keys := slices.Sorted(maps.Keys(multi))
	details := make(map[string]any, len(keys))
	messages := make([]string, 0, len(keys))
	for _, key := range keys {
		msg := paramFieldName(t, key) + " is invalid"
		var conv schema.ConversionError
		if errors.As(multi[key], &conv) && conv.Type != nil {
			msg = paramFieldName(t, key) + " must be " + describeKind(conv.Type)
		}
		details[key] = msg
		messages = append(messages, msg)
	}
	return &Error{
		Code:    CodeInvalidArgument,
		Message: strings.Join(messages, "; "),
		Details: details,
	}
}

// paramFieldName returns the Go field name tagged schema:"key" in t.
func paramFieldName(t reflect.Type, key string) string {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if name, _, _ := strings.Cut(f.Tag.Get("schema"), ","); name == key {
			return f.Name
		}
	}
	return key
}

func describeKind(t reflect.Type) string {
	for t.Kind() == reflect.Pointer || t.Kind() == reflect.Slice {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return "an integer"
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "a non-negative integer"
	case reflect.Float32, reflect.Float64:
		return "a number"
	case reflect.Bool:
		return "true or false"
	default:
		return "a valid " + t.Kind().String()
	}
}

func hasBody(r *http.Request) bool {
	if r.Body == nil || r.Body == http.NoBody {
		return false
	}
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	default:
		return false
	}
}
