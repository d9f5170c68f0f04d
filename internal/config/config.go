// Package config loads taskapi settings from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"
)

// HTTPSection configures the HTTP listener and API behavior.
type HTTPSection struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string `yaml:"addr"`
	// BasePath prefixes every route, e.g. "/api". Empty mounts at the root.
	BasePath          string        `yaml:"base_path"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
	// MaxBodyBytes limits JSON request bodies. Zero disables the limit.
	MaxBodyBytes int64    `yaml:"max_body_bytes"`
	CORSOrigins  []string `yaml:"cors_origins"`
	// MaskInternalErrors hides the message of 500 responses from clients.
	MaskInternalErrors bool `yaml:"mask_internal_errors"`
}

// DatabaseSection selects and tunes the task store.
type DatabaseSection struct {
	// Driver is one of memory, sqlite, pgx or postgres.
	Driver          string        `yaml:"driver"`
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	// Migrate applies the embedded schema on startup.
	Migrate bool `yaml:"migrate"`
}

// LogSection configures the process logger.
type LogSection struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the full taskapi configuration file.
type Config struct {
	HTTP     HTTPSection     `yaml:"http"`
	Database DatabaseSection `yaml:"database"`
	Log      LogSection      `yaml:"log"`
}

// Drivers lists the accepted values of database.driver.
var Drivers = []string{"memory", "sqlite", "pgx", "postgres"}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		HTTP: HTTPSection{
			Addr:               ":8080",
			ReadHeaderTimeout:  10 * time.Second,
			ShutdownTimeout:    5 * time.Second,
			MaxBodyBytes:       1 << 20,
			CORSOrigins:        []string{"*"},
			MaskInternalErrors: true,
		},
		Database: DatabaseSection{
			Driver:       "sqlite",
			DSN:          "file:tasks.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_time_format=sqlite",
			MaxOpenConns: 10,
			Migrate:      true,
		},
		Log: LogSection{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	if c.HTTP.Addr == "" {
		errs = append(errs, errors.New("http.addr is required"))
	}
	if c.HTTP.BasePath != "" && !strings.HasPrefix(c.HTTP.BasePath, "/") {
		errs = append(errs, fmt.Errorf("http.base_path %q must start with /", c.HTTP.BasePath))
	}
	if c.HTTP.ShutdownTimeout < 0 {
		errs = append(errs, errors.New("http.shutdown_timeout must not be negative"))
	}
	if c.HTTP.MaxBodyBytes < 0 {
		errs = append(errs, errors.New("http.max_body_bytes must not be negative"))
	}
	if !slices.Contains(Drivers, c.Database.Driver) {
		errs = append(errs, fmt.Errorf("database.driver %q must be one of %s", c.Database.Driver, strings.Join(Drivers, ", ")))
	}
	if c.Database.Driver != "memory" && c.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}
	if err := c.Database.checkDSN(); err != nil {
		errs = append(errs, err)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format %q must be text or json", c.Log.Format))
	}
	return errors.Join(errs...)
}

// checkDSN rejects a DSN written for the other database family, such as the
// default SQLite file DSN left in place after switching the driver to pgx.
func (d DatabaseSection) checkDSN() error {
	dsn := strings.ToLower(d.DSN)
	switch d.Driver {
	case "pgx", "postgres":
		if strings.HasPrefix(dsn, "file:") || strings.HasSuffix(dsn, ".db") || dsn == ":memory:" {
			return fmt.Errorf("database.dsn %q is a SQLite DSN; driver %s needs a PostgreSQL DSN", d.DSN, d.Driver)
		}
	case "sqlite":
		if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
			return fmt.Errorf("database.dsn %q is a PostgreSQL DSN; driver sqlite needs a file DSN", d.DSN)
		}
	}
	return nil
}

// NewLogger builds a slog.Logger writing to w.
func (l LogSection) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(l.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	switch l.Format {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("log.format %q must be text or json", l.Format)
	}
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log.level %q must be debug, info, warn or error", s)
	}
	return level, nil
}
