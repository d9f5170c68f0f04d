package client

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/broady/taskapi/internal/api"
	"github.com/broady/taskapi/internal/store/memstore"
	"github.com/broady/taskapi/internal/task"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	app := api.NewApp().WithBasePath("/api").WithLogger(logger).WithMaskInternalErrors()
	task.Routes(app, task.NewService(memstore.New(), logger))

	srv := httptest.NewServer(app.Handler())
	t.Cleanup(srv.Close)
	return New(srv.URL+"/api/", WithHTTPClient(srv.Client()))
}

func ptr[T any](v T) *T { return &v }

func TestClient_Lifecycle(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	created, err := c.Create(ctx, task.DTO{
		Title:       "Test Task",
		Description: ptr("Test Description"),
	})
	require.NoError(t, err)
	require.NotNil(t, created.ID)
	id := *created.ID
	assert.Equal(t, "Test Task", created.Title)
	assert.Equal(t, "Test Description", *created.Description)
	assert.False(t, created.Completed)

	toggled, err := c.Toggle(ctx, id)
	require.NoError(t, err)
	assert.True(t, toggled.Completed)

	toggled, err = c.Toggle(ctx, id)
	require.NoError(t, err)
	assert.False(t, toggled.Completed)

	require.NoError(t, c.Delete(ctx, id))

	_, err = c.Get(ctx, id)
	require.Error(t, err)
	assert.ErrorIs(t, err, task.ErrNotFound)
}

func TestClient_ListAndFilter(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	all, err := c.List(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, all)

	a, err := c.Create(ctx, task.DTO{Title: "a"})
	require.NoError(t, err)
	_, err = c.Create(ctx, task.DTO{Title: "b", Completed: true})
	require.NoError(t, err)

	all, err = c.List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].Title)
	assert.Equal(t, "b", all[1].Title)

	open, err := c.List(ctx, ptr(false))
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, *a.ID, *open[0].ID)
}

func TestClient_Update(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	created, err := c.Create(ctx, task.DTO{Title: "draft", Description: ptr("x")})
	require.NoError(t, err)

	updated, err := c.Update(ctx, *created.ID, task.DTO{Title: "final", Completed: true})
	require.NoError(t, err)
	assert.Equal(t, *created.ID, *updated.ID)
	assert.Equal(t, "final", updated.Title)
	assert.Nil(t, updated.Description)
	assert.True(t, updated.Completed)

	got, err := c.Get(ctx, *created.ID)
	require.NoError(t, err)
	assert.Equal(t, "final", got.Title)

	_, err = c.Update(ctx, 9999, task.DTO{Title: "ghost"})
	assert.ErrorIs(t, err, task.ErrNotFound)
}

func TestClient_ValidationError(t *testing.T) {
	c := newTestClient(t)

	_, err := c.Create(context.Background(), task.DTO{Title: strings.Repeat("x", 101)})
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "invalid_argument", apiErr.Code)
	assert.Equal(t, "Title must be less than 100 characters", apiErr.Message)
	assert.Contains(t, apiErr.Details, "title")
	assert.NotErrorIs(t, err, task.ErrNotFound)
}

func TestClient_NotFoundOperations(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	_, err := c.Toggle(ctx, 42)
	assert.ErrorIs(t, err, task.ErrNotFound)
	assert.ErrorIs(t, c.Delete(ctx, 42), task.ErrNotFound)
}

func TestClient_Health(t *testing.T) {
	c := newTestClient(t)
	assert.NoError(t, c.Health(context.Background()))
}

func TestClient_NonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	_, err := New(srv.URL).Get(context.Background(), 1)
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "upstream down", apiErr.Message)
	assert.Equal(t, "http 502: upstream down", err.Error())
}
