// Package config loads pgbridge settings from an optional YAML file with
// environment-variable overrides. The environment always wins, so a
// misplaced config file cannot pin a stale credential.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"go.yaml.in/yaml/v3"
)

// Environment variable names. POSTGRES_CONNECTION_STRING is the canonical
// way to supply the DSN; the rest are optional overrides.
const (
	EnvConnString = "POSTGRES_CONNECTION_STRING"
	EnvMinConns   = "POSTGRES_POOL_MIN_CONNS"
	EnvMaxConns   = "POSTGRES_POOL_MAX_CONNS"
	EnvAccessKey  = "ARTIFACT_ACCESS_KEY"
	EnvSecretKey  = "ARTIFACT_SECRET_KEY"
)

// Config is the root configuration for the gateway.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	MCP      MCPConfig      `yaml:"mcp"`
	Artifact ArtifactConfig `yaml:"artifact"`
	Log      LogConfig      `yaml:"log"`
}

// DatabaseConfig holds connection-string and pool settings.
type DatabaseConfig struct {
	// ConnString is the full Postgres DSN. Usually supplied via
	// POSTGRES_CONNECTION_STRING rather than the config file.
	ConnString string `yaml:"conn_string"`

	// Pool bounds.
	MinConns int32 `yaml:"min_conns"`
	MaxConns int32 `yaml:"max_conns"`

	// Timeouts, in seconds.
	AcquireTimeoutSec int `yaml:"acquire_timeout_sec"`
	QueryTimeoutSec   int `yaml:"query_timeout_sec"`
	ConnectTimeoutSec int `yaml:"connect_timeout_sec"`
}

// AcquireTimeout bounds how long a caller may wait for a pooled connection.
func (d DatabaseConfig) AcquireTimeout() time.Duration {
	return time.Duration(d.AcquireTimeoutSec) * time.Second
}

// QueryTimeout is the per-query deadline applied by the executor.
func (d DatabaseConfig) QueryTimeout() time.Duration {
	return time.Duration(d.QueryTimeoutSec) * time.Second
}

// ConnectTimeout is the limit for establishing a new connection.
func (d DatabaseConfig) ConnectTimeout() time.Duration {
	return time.Duration(d.ConnectTimeoutSec) * time.Second
}

// ServerConfig holds the HTTP tool surface settings.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// MCPConfig holds the MCP transport settings.
type MCPConfig struct {
	// Addr is the listen address for the SSE transport. Empty disables it.
	Addr string `yaml:"addr"`
}

// ArtifactConfig holds the optional result-artifact sink settings.
type ArtifactConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the gateway defaults: a 1/20 pool, 30s timeouts, and the
// HTTP surface on :8080.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			MinConns:          1,
			MaxConns:          20,
			AcquireTimeoutSec: 30,
			QueryTimeoutSec:   30,
			ConnectTimeoutSec: 10,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Artifact: ArtifactConfig{
			Bucket: "pgbridge-results",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the config from defaults, then the YAML file at path (if any),
// then environment overrides. A missing file at an explicitly given path is
// an error; path == "" skips the file layer.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

// applyEnv overlays environment variables onto cfg.
func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvConnString); v != "" {
		cfg.Database.ConnString = v
	}
	if n, ok := envInt32(EnvMinConns); ok {
		cfg.Database.MinConns = n
	}
	if n, ok := envInt32(EnvMaxConns); ok {
		cfg.Database.MaxConns = n
	}
	if v := os.Getenv(EnvAccessKey); v != "" {
		cfg.Artifact.AccessKey = v
	}
	if v := os.Getenv(EnvSecretKey); v != "" {
		cfg.Artifact.SecretKey = v
	}
}

func envInt32(name string) (int32, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 32)
	if err != nil {
		return 0, false
	}
	return int32(n), true
}
