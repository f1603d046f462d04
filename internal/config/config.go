// Package config handles TOML configuration loading and validation.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// configSearchPaths lists paths checked in order when no explicit config is given.
var configSearchPaths = []string{
	"/etc/api-proxy/config.toml",
	"configs/config.toml",
}

// CLI holds command-line arguments parsed by Kong.
type CLI struct {
	Config         string `kong:"short='c',help='Path to TOML config file.',env='CONFIG_PATH'"`
	Host           string `kong:"short='H',help='Listen host (overrides config).',env='PROXY_HOST'"`
	Port           int    `kong:"short='p',help='Listen port (overrides config).',env='PROXY_PORT'"`
	Workers        int    `kong:"short='w',help='Concurrent worker count (overrides config).',env='PROXY_WORKERS'"`
	MaxBodySizeMB  int    `kong:"help='Maximum request body size in MB (overrides config).',env='MAX_BODY_SIZE_MB'"`
	RequestTimeout int    `kong:"help='End-to-end request timeout in seconds (overrides config).',env='REQUEST_TIMEOUT'"`
	ConnectTimeout int    `kong:"help='Upstream connect timeout in seconds (overrides config).',env='CONNECT_TIMEOUT'"`
	LogLevel       string `kong:"help='Log level: debug|info|warn|error (overrides config).',env='LOG_LEVEL'"`
}

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig      `toml:"server"`
	Limits   LimitsConfig      `toml:"limits"`
	Upstream UpstreamConfig    `toml:"upstream"`
	Routes   map[string]string `toml:"routes"`
	Log      LogConfig         `toml:"log"`
	Metrics  MetricsConfig     `toml:"metrics"`

	filePath string // resolved config file path (unexported)
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host      string          `toml:"host"`
	Port      int             `toml:"port"` // 0 means "use default" (8080); TOML cannot distinguish 0 from unset
	Workers   int             `toml:"workers"`
	Backlog   int             `toml:"backlog"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
}

// RateLimitConfig controls per-IP request rate limiting.
type RateLimitConfig struct {
	Enabled           bool    `toml:"enabled"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// LimitsConfig holds request admission limits.
type LimitsConfig struct {
	MaxBodySizeMB int64 `toml:"max_body_size_mb"`
}

// UpstreamConfig holds upstream connection settings.
//
// A timeout of -1 disables that bound entirely. 0 means "use default"
// because TOML cannot distinguish an explicit 0 from an omitted key.
type UpstreamConfig struct {
	RequestTimeoutSeconds int      `toml:"request_timeout_seconds"`
	ConnectTimeoutSeconds int      `toml:"connect_timeout_seconds"`
	IdleConnections       int      `toml:"idle_connections"`
	ExtraAllowedHeaders   []string `toml:"extra_allowed_headers"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Load reads the TOML config file (when one exists) and applies CLI overrides.
// When no explicit path is given (via --config or CONFIG_PATH), it searches
// /etc/api-proxy/config.toml then configs/config.toml; if none is found the
// built-in defaults apply, so the proxy can run from flags and environment
// variables alone.
func Load(cli *CLI) (*Config, error) {
	var cfg Config

	path := cli.Config
	if path == "" {
		path = findConfig()
	} else if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config: stat %s: %w", path, err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		cfg.filePath = path
	}

	cfg.applyCLI(cli)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}

	cfg.setDefaults()
	return &cfg, nil
}

// applyCLI overrides config values with non-zero CLI flags.
func (c *Config) applyCLI(cli *CLI) {
	if cli.Host != "" {
		c.Server.Host = cli.Host
	}
	if cli.Port != 0 {
		c.Server.Port = cli.Port
	}
	if cli.Workers != 0 {
		c.Server.Workers = cli.Workers
	}
	if cli.MaxBodySizeMB != 0 {
		c.Limits.MaxBodySizeMB = int64(cli.MaxBodySizeMB)
	}
	if cli.RequestTimeout != 0 {
		c.Upstream.RequestTimeoutSeconds = cli.RequestTimeout
	}
	if cli.ConnectTimeout != 0 {
		c.Upstream.ConnectTimeoutSeconds = cli.ConnectTimeout
	}
	if cli.LogLevel != "" {
		c.Log.Level = cli.LogLevel
	}
}

func (c *Config) validate() error {
	// Numeric bounds.
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 0–65535; got %d", c.Server.Port)
	}
	if c.Server.Workers < 0 {
		return fmt.Errorf("server.workers must be at least 1; got %d", c.Server.Workers)
	}
	if c.Server.Backlog < 0 {
		return fmt.Errorf("server.backlog must be non-negative; got %d", c.Server.Backlog)
	}
	if c.Limits.MaxBodySizeMB < 0 {
		return fmt.Errorf("limits.max_body_size_mb must be non-negative; got %d", c.Limits.MaxBodySizeMB)
	}
	if c.Upstream.RequestTimeoutSeconds < -1 {
		return fmt.Errorf("upstream.request_timeout_seconds must be -1 (disabled) or positive; got %d", c.Upstream.RequestTimeoutSeconds)
	}
	if c.Upstream.ConnectTimeoutSeconds < -1 {
		return fmt.Errorf("upstream.connect_timeout_seconds must be -1 (disabled) or positive; got %d", c.Upstream.ConnectTimeoutSeconds)
	}
	if c.Upstream.IdleConnections < 0 {
		return fmt.Errorf("upstream.idle_connections must be non-negative; got %d", c.Upstream.IdleConnections)
	}
	if c.Server.RateLimit.Enabled && c.Server.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("server.rate_limit.requests_per_second must be > 0 when rate limiting is enabled; got %v", c.Server.RateLimit.RequestsPerSecond)
	}

	// Route table: prefixes must be absolute paths, targets valid HTTP(S) URLs.
	for prefix, target := range c.Routes {
		if prefix == "" || prefix[0] != '/' {
			return fmt.Errorf("routes: prefix %q must start with '/'", prefix)
		}
		u, err := url.Parse(target)
		if err != nil {
			return fmt.Errorf("routes: target for %q is not a valid URL: %w", prefix, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("routes: target for %q must use http or https; got %q", prefix, target)
		}
		if u.Host == "" {
			return fmt.Errorf("routes: target for %q is missing a host: %q", prefix, target)
		}
	}

	// Log fields.
	level := strings.ToLower(c.Log.Level)
	switch level {
	case "debug", "info", "warn", "error", "":
		// valid
	default:
		return fmt.Errorf("log.level must be one of: debug, info, warn, error; got %q", c.Log.Level)
	}
	format := strings.ToLower(c.Log.Format)
	switch format {
	case "json", "text", "":
		// valid
	default:
		return fmt.Errorf("log.format must be one of: json, text; got %q", c.Log.Format)
	}

	// Metrics path validation (only when metrics are enabled).
	if c.Metrics.Enabled && c.Metrics.Path != "" {
		p := c.Metrics.Path
		if p[0] != '/' {
			return fmt.Errorf("metrics.path must start with '/'; got %q", p)
		}
		for _, reserved := range []string{"/health", "/proxy/status", "/robots.txt", "/index.html"} {
			if p == reserved || strings.HasPrefix(p, reserved+"/") {
				return fmt.Errorf("metrics.path %q conflicts with reserved route %q", p, reserved)
			}
		}
	}

	return nil
}

// setDefaults fills zero-valued fields with sensible defaults.
// For integer fields (Port, Workers, etc.), zero means "unset" because TOML
// cannot distinguish between an explicit 0 and an omitted key. Setting port=0
// in the config file therefore results in the default port (8080).
func (c *Config) setDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Workers == 0 {
		c.Server.Workers = 4
	}
	if c.Server.Backlog == 0 {
		c.Server.Backlog = 1024
	}
	if c.Limits.MaxBodySizeMB == 0 {
		c.Limits.MaxBodySizeMB = 10
	}
	if c.Upstream.RequestTimeoutSeconds == 0 {
		c.Upstream.RequestTimeoutSeconds = 3600
	}
	if c.Upstream.ConnectTimeoutSeconds == 0 {
		c.Upstream.ConnectTimeoutSeconds = 10
	}
	if c.Upstream.IdleConnections == 0 {
		c.Upstream.IdleConnections = 20
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

// findConfig returns the first config path that exists, or empty string.
func findConfig() string {
	return findConfigInPaths(configSearchPaths)
}

// findConfigInPaths returns the first path that exists on disk, or empty string.
func findConfigInPaths(paths []string) string {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Addr returns the server listen address as host:port.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// MaxBodyBytes returns the request body limit in bytes.
func (c *Config) MaxBodyBytes() int64 {
	return c.Limits.MaxBodySizeMB * 1024 * 1024
}

// RequestTimeout returns the end-to-end request deadline.
// A zero or negative value means the bound is disabled.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Upstream.RequestTimeoutSeconds) * time.Second
}

// ConnectTimeout returns the upstream connection-establishment deadline.
// A zero or negative value means the bound is disabled.
func (c *Config) ConnectTimeout() time.Duration {
	return time.Duration(c.Upstream.ConnectTimeoutSeconds) * time.Second
}

// WarnPermissions logs a warning if the config file is readable by group or others.
func (c *Config) WarnPermissions(logger *slog.Logger) {
	if c.filePath == "" {
		return
	}
	info, err := os.Stat(c.filePath)
	if err != nil {
		return
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		logger.Warn("config file is readable by group/others; consider chmod 600",
			"path", c.filePath,
			"mode", fmt.Sprintf("%04o", perm),
		)
	}
}
