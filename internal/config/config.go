// Package config loads bookworm configuration from flags, environment variables,
// an optional .env file, an optional YAML/TOML config file, and defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Read-pages policies applied when recorded progress exceeds the page count.
const (
	ReadPagesClamp  = "clamp"
	ReadPagesReject = "reject"
)

// Config holds the application configuration.
type Config struct {
	App        AppConfig
	Logger     LoggerConfig
	Data       DataConfig
	Server     ServerConfig
	Auth       AuthConfig
	Catalog    CatalogConfig
	Collection CollectionConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level      string
	File       string // Optional rotated JSON log file
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// DataConfig holds on-disk locations.
type DataConfig struct {
	Path string // Database, search index, catalog cache and auth key live here
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	CORSOrigins  []string
	RequestRate  float64 // Inbound requests per second per client
	RequestBurst int
}

// AuthConfig holds token configuration.
type AuthConfig struct {
	// KeyHex is a 64 character hex PASETO v4 key. When empty the key file in
	// the data directory is used (and created on first start).
	KeyHex              string
	AccessTokenDuration time.Duration
}

// CatalogConfig configures the external bibliographic catalog.
type CatalogConfig struct {
	BaseURL        string
	APIKey         string
	PageSize       int
	RPS            float64
	Burst          int
	Timeout        time.Duration
	SearchCacheTTL time.Duration // 0 disables the search cache
}

// CollectionConfig holds collection behavior settings.
type CollectionConfig struct {
	ReadPagesPolicy string        // clamp or reject
	SweepInterval   time.Duration // 0 disables the orphan sweeper
}

// setting binds one viper key to its flag, environment variable and default.
type setting struct {
	key   string
	flag  string
	env   string
	def   any
	usage string
}

var settings = []setting{
	{"app.env", "env", "ENV", "development", "Environment (development, staging, production)"},
	{"log.level", "log-level", "LOG_LEVEL", "info", "Log level (debug, info, warn, error)"},
	{"log.file", "log-file", "LOG_FILE", "", "Rotated JSON log file (disabled when empty)"},
	{"log.max_size_mb", "log-max-size", "LOG_MAX_SIZE_MB", 20, "Log file size before rotation, in MB"},
	{"log.max_backups", "log-max-backups", "LOG_MAX_BACKUPS", 3, "Rotated log files to keep"},
	{"log.max_age_days", "log-max-age", "LOG_MAX_AGE_DAYS", 28, "Days to keep rotated log files"},
	{"log.compress", "log-compress", "LOG_COMPRESS", false, "Gzip rotated log files"},
	{"data.path", "data-path", "DATA_PATH", "", "Data directory (default: ~/.bookworm)"},
	{"server.port", "port", "SERVER_PORT", "8080", "Server port"},
	{"server.read_timeout", "read-timeout", "SERVER_READ_TIMEOUT", "15s", "HTTP read timeout"},
	{"server.write_timeout", "write-timeout", "SERVER_WRITE_TIMEOUT", "30s", "HTTP write timeout"},
	{"server.idle_timeout", "idle-timeout", "SERVER_IDLE_TIMEOUT", "60s", "HTTP idle timeout"},
	{"server.cors_origins", "cors-origins", "SERVER_CORS_ORIGINS", "*", "Comma separated allowed CORS origins"},
	{"server.request_rate", "request-rate", "SERVER_REQUEST_RATE", 20.0, "Inbound requests per second per client"},
	{"server.request_burst", "request-burst", "SERVER_REQUEST_BURST", 40, "Inbound request burst per client"},
	{"auth.key", "auth-key", "AUTH_KEY", "", "Hex encoded PASETO v4 key (default: key file in data dir)"},
	{"auth.access_token_duration", "access-token-duration", "ACCESS_TOKEN_DURATION", "720h", "Access token lifetime"},
	{"catalog.base_url", "catalog-url", "CATALOG_BASE_URL", "https://www.goodreads.com", "Catalog base URL"},
	{"catalog.api_key", "catalog-key", "CATALOG_API_KEY", "", "Catalog developer key"},
	{"catalog.page_size", "catalog-page-size", "CATALOG_PAGE_SIZE", 20, "Maximum results returned per search page"},
	{"catalog.rps", "catalog-rps", "CATALOG_RPS", 1.0, "Outbound catalog requests per second"},
	{"catalog.burst", "catalog-burst", "CATALOG_BURST", 3, "Outbound catalog request burst"},
	{"catalog.timeout", "catalog-timeout", "CATALOG_TIMEOUT", "10s", "Catalog request timeout"},
	{"catalog.search_cache_ttl", "catalog-cache-ttl", "CATALOG_SEARCH_CACHE_TTL", "5m", "Catalog search cache TTL (0 disables)"},
	{"collection.read_pages_policy", "read-pages-policy", "READ_PAGES_POLICY", ReadPagesClamp, "Progress beyond page count: clamp or reject"},
	{"collection.sweep_interval", "sweep-interval", "SWEEP_INTERVAL", "10m", "Orphaned book sweep interval (0 disables)"},
}

// Load builds the configuration from args (usually os.Args[1:]) with precedence:
//  1. Command-line flags.
//  2. Environment variables.
//  3. .env file.
//  4. Config file (--config or CONFIG_FILE).
//  5. Defaults.
func Load(args []string) (*Config, error) {
	fs := pflag.NewFlagSet("bookworm", pflag.ContinueOnError)
	envFile := fs.String("env-file", ".env", "Path to .env file")
	configFile := fs.String("config", "", "Path to a YAML or TOML config file")
	for _, s := range settings {
		fs.String(s.flag, "", s.usage)
	}
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	// Missing .env files are fine.
	_ = loadEnvFile(*envFile)

	v := viper.New()
	for _, s := range settings {
		v.SetDefault(s.key, s.def)
		if err := v.BindEnv(s.key, s.env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", s.env, err)
		}
		if err := v.BindPFlag(s.key, fs.Lookup(s.flag)); err != nil {
			return nil, fmt.Errorf("bind flag %s: %w", s.flag, err)
		}
	}

	path := *configFile
	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %q: %w", path, err)
		}
	}

	cfg, err := fromViper(v)
	if err != nil {
		return nil, err
	}

	dataPath, err := expandPath(cfg.Data.Path, defaultDataPath())
	if err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}
	cfg.Data.Path = dataPath

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Environment: v.GetString("app.env"),
		},
		Logger: LoggerConfig{
			Level:      v.GetString("log.level"),
			File:       v.GetString("log.file"),
			MaxSizeMB:  v.GetInt("log.max_size_mb"),
			MaxBackups: v.GetInt("log.max_backups"),
			MaxAgeDays: v.GetInt("log.max_age_days"),
			Compress:   v.GetBool("log.compress"),
		},
		Data: DataConfig{
			Path: v.GetString("data.path"),
		},
		Server: ServerConfig{
			Port:         v.GetString("server.port"),
			CORSOrigins:  stringList(v.Get("server.cors_origins")),
			RequestRate:  v.GetFloat64("server.request_rate"),
			RequestBurst: v.GetInt("server.request_burst"),
		},
		Auth: AuthConfig{
			KeyHex: strings.TrimSpace(v.GetString("auth.key")),
		},
		Catalog: CatalogConfig{
			BaseURL:  strings.TrimRight(v.GetString("catalog.base_url"), "/"),
			APIKey:   v.GetString("catalog.api_key"),
			PageSize: v.GetInt("catalog.page_size"),
			RPS:      v.GetFloat64("catalog.rps"),
			Burst:    v.GetInt("catalog.burst"),
		},
		Collection: CollectionConfig{
			ReadPagesPolicy: strings.ToLower(v.GetString("collection.read_pages_policy")),
		},
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"server.read_timeout", &cfg.Server.ReadTimeout},
		{"server.write_timeout", &cfg.Server.WriteTimeout},
		{"server.idle_timeout", &cfg.Server.IdleTimeout},
		{"auth.access_token_duration", &cfg.Auth.AccessTokenDuration},
		{"catalog.timeout", &cfg.Catalog.Timeout},
		{"catalog.search_cache_ttl", &cfg.Catalog.SearchCacheTTL},
		{"collection.sweep_interval", &cfg.Collection.SweepInterval},
	}
	for _, d := range durations {
		parsed, err := parseDuration(v.Get(d.key))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.dst = parsed
	}

	return cfg, nil
}

// Validate checks that all config values are present and valid.
func (c *Config) Validate() error {
	validEnvs := map[string]bool{"development": true, "staging": true, "production": true}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %q (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %q (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Data.Path == "" {
		return errors.New("data path cannot be empty")
	}

	switch c.Collection.ReadPagesPolicy {
	case ReadPagesClamp, ReadPagesReject:
	default:
		return fmt.Errorf("invalid read pages policy: %q (must be clamp or reject)", c.Collection.ReadPagesPolicy)
	}

	if c.Catalog.BaseURL == "" {
		return errors.New("catalog base URL is required")
	}
	if c.Catalog.PageSize <= 0 {
		return fmt.Errorf("catalog page size must be positive, got %d", c.Catalog.PageSize)
	}
	if c.Catalog.RPS <= 0 || c.Catalog.Burst <= 0 {
		return errors.New("catalog rate limit must be positive")
	}
	if c.App.Environment == "production" && c.Catalog.APIKey == "" {
		return errors.New("CATALOG_API_KEY is required in production")
	}
	if c.Catalog.SearchCacheTTL < 0 || c.Collection.SweepInterval < 0 {
		return errors.New("durations cannot be negative")
	}

	if c.Auth.AccessTokenDuration <= 0 {
		return errors.New("access token duration must be positive")
	}
	return nil
}

func defaultDataPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".bookworm"
	}
	return filepath.Join(home, ".bookworm")
}

// expandPath expands ~ and makes the path absolute.
// An empty path resolves to defaultPath.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		path = defaultPath
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	if !filepath.IsAbs(path) {
		abs, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = abs
	}
	return filepath.Clean(path), nil
}

// parseDuration accepts "15s" style strings, and bare numbers as seconds.
func parseDuration(raw any) (time.Duration, error) {
	switch v := raw.(type) {
	case time.Duration:
		return v, nil
	case int:
		return time.Duration(v) * time.Second, nil
	case int64:
		return time.Duration(v) * time.Second, nil
	case float64:
		return time.Duration(v * float64(time.Second)), nil
	case string:
		s := strings.TrimSpace(v)
		if s == "0" || s == "" {
			return 0, nil
		}
		return time.ParseDuration(s)
	default:
		return 0, fmt.Errorf("unsupported duration value %v", raw)
	}
}

// stringList accepts a comma separated string or a YAML/TOML list.
func stringList(raw any) []string {
	var parts []string
	switch v := raw.(type) {
	case string:
		parts = strings.Split(v, ",")
	case []string:
		parts = v
	case []any:
		for _, item := range v {
			parts = append(parts, fmt.Sprint(item))
		}
	}

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
