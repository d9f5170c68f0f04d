package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/broady/taskapi/internal/api/middleware"
	"github.com/broady/taskapi/internal/config"
	"github.com/broady/taskapi/internal/store/memstore"
	"github.com/broady/taskapi/internal/task"
	"github.com/broady/taskapi/internal/testutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewApp(t *testing.T) {
	cfg := config.Default().HTTP
	cfg.BasePath = "/api"
	cfg.CORSOrigins = []string{"http://localhost:5173"}

	app := newApp(cfg, task.NewService(memstore.New(), quietLogger()), quietLogger())
	h := app.Handler()

	w := testutil.NewRequest().POST("/api/tasks").
		WithJSON(map[string]any{"title": "wired"}).
		WithHeader("Origin", "http://localhost:5173").
		Serve(h)
	testutil.AssertStatus(t, w, http.StatusOK)
	testutil.AssertHeader(t, w, "Access-Control-Allow-Origin", "http://localhost:5173")

	_, err := uuid.Parse(w.Header().Get(middleware.RequestIDHeader))
	assert.NoError(t, err, "expected generated request id")

	w = testutil.NewRequest().GET("/api/tasks/1").Serve(h)
	testutil.AssertStatus(t, w, http.StatusOK)

	w = testutil.NewRequest().GET("/tasks/1").Serve(h)
	testutil.AssertStatus(t, w, http.StatusNotFound)

	w = testutil.NewRequest().OPTIONS("/api/tasks/1").
		WithHeader("Origin", "http://localhost:5173").
		WithHeader("Access-Control-Request-Method", "DELETE").
		Serve(h)
	testutil.AssertStatus(t, w, http.StatusNoContent)

	var patterns []string
	for _, r := range app.Routes() {
		patterns = append(patterns, r.String())
	}
	assert.Contains(t, patterns, "PATCH /tasks/{id}/toggle")
	assert.Contains(t, patterns, "GET /healthz")
}

func TestNewApp_BodyLimit(t *testing.T) {
	cfg := config.Default().HTTP
	cfg.MaxBodyBytes = 32

	h := newApp(cfg, task.NewService(memstore.New(), quietLogger()), quietLogger()).Handler()
	w := testutil.NewRequest().POST("/tasks").
		WithJSON(map[string]any{"title": "this title is comfortably longer than thirty two bytes"}).
		Serve(h)
	testutil.AssertStatus(t, w, http.StatusRequestEntityTooLarge)
}

func TestOpenRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		repo, closeFn, err := openRepository(ctx, config.DatabaseSection{Driver: "memory"}, quietLogger())
		require.NoError(t, err)
		defer closeFn()
		assert.IsType(t, &memstore.Store{}, repo)
	})

	t.Run("sqlite with migrate", func(t *testing.T) {
		dsn := "file:" + filepath.Join(t.TempDir(), "tasks.db") + "?_pragma=busy_timeout(5000)&_time_format=sqlite"
		repo, closeFn, err := openRepository(ctx, config.DatabaseSection{
			Driver:       "sqlite",
			DSN:          dsn,
			MaxOpenConns: 1,
			Migrate:      true,
		}, quietLogger())
		require.NoError(t, err)
		defer closeFn()

		svc := task.NewService(repo, quietLogger())
		created, err := svc.CreateTask(ctx, task.DTO{Title: "persisted"})
		require.NoError(t, err)
		got, ok, err := svc.GetTask(ctx, *created.ID)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "persisted", got.Title)
	})

	t.Run("unknown driver", func(t *testing.T) {
		_, _, err := openRepository(ctx, config.DatabaseSection{Driver: "oracle", DSN: "x"}, quietLogger())
		assert.Error(t, err)
	})
}

func TestServeCmd_Apply(t *testing.T) {
	const pgDSN = "postgres://db/tasks?sslmode=disable"
	postgres := func() config.Config {
		cfg := config.Default()
		cfg.Database.Driver = "pgx"
		cfg.Database.DSN = pgDSN
		return cfg
	}
	memory := func() config.Config {
		cfg := config.Default()
		cfg.Database.Driver = "memory"
		cfg.Database.DSN = ""
		return cfg
	}

	tests := []struct {
		name       string
		cmd        ServeCmd
		base       config.Config
		wantAddr   string
		wantDriver string
		wantDSN    string
	}{
		{"no flags", ServeCmd{Store: "config"}, postgres(), ":8080", "pgx", pgDSN},
		{"addr", ServeCmd{Addr: "127.0.0.1:9000", Store: "config"}, postgres(), "127.0.0.1:9000", "pgx", pgDSN},
		{"store memory", ServeCmd{Store: "memory"}, postgres(), ":8080", "memory", pgDSN},
		{"store sql keeps configured database", ServeCmd{Store: "sql"}, postgres(), ":8080", "pgx", pgDSN},
		{"store sql on memory config", ServeCmd{Store: "sql"}, memory(), ":8080", "sqlite", config.Default().Database.DSN},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.base
			tt.cmd.apply(&cfg)
			assert.Equal(t, tt.wantAddr, cfg.HTTP.Addr)
			assert.Equal(t, tt.wantDriver, cfg.Database.Driver)
			assert.Equal(t, tt.wantDSN, cfg.Database.DSN)
			assert.NoError(t, cfg.Validate())
		})
	}
}

func TestServeCmd_Precedence(t *testing.T) {
	for _, key := range []string{"PORT", "TASKAPI_BASE_PATH", "TASKAPI_DB_DRIVER", "TASKAPI_DB_DSN", "TASKAPI_LOG_LEVEL", "TASKAPI_LOG_FORMAT"} {
		t.Setenv(key, "")
	}
	path := filepath.Join(t.TempDir(), "taskapi.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http:\n  addr: \":7000\"\n  base_path: /api\ndatabase:\n  driver: memory\n"), 0o600))

	parse := func(args ...string) *CLI {
		t.Helper()
		var cli CLI
		_, err := kong.Must(&cli, kong.Name("taskapi")).Parse(args)
		require.NoError(t, err)
		return &cli
	}
	load := func(cli *CLI) config.Config {
		t.Helper()
		cfg, err := config.Load(cli.Config)
		require.NoError(t, err)
		cli.Serve.apply(&cfg)
		return cfg
	}

	t.Setenv("TASKAPI_HTTP_ADDR", "")
	cfg := load(parse("--config", path, "serve"))
	assert.Equal(t, ":7000", cfg.HTTP.Addr, "file over defaults")
	assert.Equal(t, "/api", cfg.HTTP.BasePath)
	assert.Equal(t, "memory", cfg.Database.Driver)

	t.Setenv("TASKAPI_HTTP_ADDR", ":7100")
	cfg = load(parse("--config", path, "serve"))
	assert.Equal(t, ":7100", cfg.HTTP.Addr, "env over file")

	cfg = load(parse("--config", path, "serve", "--addr", ":7200", "--store", "sql"))
	assert.Equal(t, ":7200", cfg.HTTP.Addr, "flag over env")
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/api", cfg.HTTP.BasePath)

	var cli CLI
	_, err := kong.Must(&cli, kong.Name("taskapi")).Parse([]string{"serve", "--store", "redis"})
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	assert.NotEmpty(t, Version())
}
