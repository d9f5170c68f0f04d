// Package client is a Go client for the task REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/broady/taskapi/internal/task"
)

// Error is a non-2xx response from the server.
type Error struct {
	Status  int            `json:"-"`
	Code    string         `json:"code"`
	Message string         `json:"error"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *Error) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("http %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is reports 404 responses as task.ErrNotFound.
func (e *Error) Is(target error) bool {
	return target == task.ErrNotFound && e.Status == http.StatusNotFound
}

// Client calls a task API rooted at a base URL, e.g. "http://localhost:8080/api".
type Client struct {
	base string
	hc   *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = hc }
}

// New returns a Client for baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimSuffix(baseURL, "/"),
		hc:   http.DefaultClient,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// List returns all tasks, optionally only those whose completed flag
// equals *completed.
func (c *Client) List(ctx context.Context, completed *bool) ([]task.DTO, error) {
	path := "/tasks"
	if completed != nil {
		path += "?" + url.Values{"completed": {strconv.FormatBool(*completed)}}.Encode()
	}
	var out []task.DTO
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get fetches one task. A missing task yields an error matching task.ErrNotFound.
func (c *Client) Get(ctx context.Context, id int64) (task.DTO, error) {
	var out task.DTO
	err := c.do(ctx, http.MethodGet, taskPath(id), nil, &out)
	return out, err
}

// Create stores a new task and returns it with its assigned id.
func (c *Client) Create(ctx context.Context, d task.DTO) (task.DTO, error) {
	var out task.DTO
	err := c.do(ctx, http.MethodPost, "/tasks", d, &out)
	return out, err
}

// Update replaces the title, description and completed flag of a task.
func (c *Client) Update(ctx context.Context, id int64, d task.DTO) (task.DTO, error) {
	var out task.DTO
	err := c.do(ctx, http.MethodPut, taskPath(id), d, &out)
	return out, err
}

// Delete removes a task.
func (c *Client) Delete(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, taskPath(id), nil, nil)
}

// Toggle flips the completed flag of a task.
func (c *Client) Toggle(ctx context.Context, id int64) (task.DTO, error) {
	var out task.DTO
	err := c.do(ctx, http.MethodPatch, taskPath(id)+"/toggle", nil, &out)
	return out, err
}

// Health calls the health endpoint. It is rooted at the same base URL.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil)
}

func taskPath(id int64) string {
	return "/tasks/" + strconv.FormatInt(id, 10)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &Error{Status: resp.StatusCode}
	if err := json.Unmarshal(data, apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(data))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
	}
	return apiErr
}

// IsValidation reports whether err is a 400 response from the server.
func IsValidation(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusBadRequest
}
