package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty), and TASKAPI_* environment variables, then validates it.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		// Clean the path to prevent directory traversal attacks
		cleanPath := filepath.Clean(path)
		f, err := os.Open(cleanPath) // #nosec G304 - Config file path is trusted (from admin/user)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		defer f.Close()
		if err := Decode(f, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file %s: %w", cleanPath, err)
		}
	}

	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Decode merges YAML from r over cfg. Unknown keys are rejected.
func Decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv overrides cfg with environment variables.
//
//	PORT                 http.addr = ":" + PORT
//	TASKAPI_HTTP_ADDR    http.addr (wins over PORT)
//	TASKAPI_BASE_PATH    http.base_path
//	TASKAPI_DB_DRIVER    database.driver
//	TASKAPI_DB_DSN       database.dsn
//	TASKAPI_LOG_LEVEL    log.level
//	TASKAPI_LOG_FORMAT   log.format
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup("PORT"); ok && v != "" {
		c.HTTP.Addr = ":" + strings.TrimPrefix(v, ":")
	}
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set("TASKAPI_HTTP_ADDR", &c.HTTP.Addr)
	set("TASKAPI_BASE_PATH", &c.HTTP.BasePath)
	set("TASKAPI_DB_DRIVER", &c.Database.Driver)
	set("TASKAPI_DB_DSN", &c.Database.DSN)
	set("TASKAPI_LOG_LEVEL", &c.Log.Level)
	set("TASKAPI_LOG_FORMAT", &c.Log.Format)
}
