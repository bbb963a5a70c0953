package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration.
type Config struct {
	Environment   string              `toml:"environment"`
	Server        ServerConfig        `toml:"server"`
	Storage       StorageConfig       `toml:"storage"`
	Auth          AuthConfig          `toml:"auth"`
	Notifications NotificationsConfig `toml:"notifications"`
	Web           WebConfig           `toml:"web"`
	Logging       LoggingConfig       `toml:"logging"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

// StorageConfig selects the document store backend.
// Backend is "badger" (embedded, default) or "mongo".
type StorageConfig struct {
	Backend string       `toml:"backend"`
	Badger  BadgerConfig `toml:"badger"`
	Mongo   MongoConfig  `toml:"mongo"`
}

// BadgerConfig contains BadgerDB-specific settings.
type BadgerConfig struct {
	Path string `toml:"path"`
}

// MongoConfig contains MongoDB settings. Live subscriptions use change
// streams, so the server must run as a replica set.
type MongoConfig struct {
	URI      string `toml:"uri"`
	Database string `toml:"database"`
}

// AuthConfig contains session and login settings.
type AuthConfig struct {
	JWTSecret         string `toml:"jwt_secret"`
	SessionTTL        string `toml:"session_ttl"`
	MaxFailedAttempts int    `toml:"max_failed_attempts"`
	LockoutWindow     string `toml:"lockout_window"`
}

// GetSessionTTL parses SessionTTL, falling back to 24h.
func (c *AuthConfig) GetSessionTTL() time.Duration {
	return parseDuration(c.SessionTTL, 24*time.Hour)
}

// GetLockoutWindow parses LockoutWindow, falling back to 15m.
func (c *AuthConfig) GetLockoutWindow() time.Duration {
	return parseDuration(c.LockoutWindow, 15*time.Minute)
}

// NotificationsConfig controls desktop-notification dedup.
type NotificationsConfig struct {
	Retention    string `toml:"retention"`
	MaxRecords   int    `toml:"max_records"`
	DismissAfter string `toml:"dismiss_after"`
}

// GetRetention parses Retention, falling back to 7 days.
func (c *NotificationsConfig) GetRetention() time.Duration {
	return parseDuration(c.Retention, 7*24*time.Hour)
}

// GetDismissAfter parses DismissAfter, falling back to 5s.
func (c *NotificationsConfig) GetDismissAfter() time.Duration {
	return parseDuration(c.DismissAfter, 5*time.Second)
}

// WebConfig points at the built single-page app served behind the route gate.
type WebConfig struct {
	StaticDir string `toml:"static_dir"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level      string   `toml:"level"`
	Format     string   `toml:"format"`
	Outputs    []string `toml:"outputs"`
	FilePath   string   `toml:"file_path"`
	MaxSizeMB  int      `toml:"max_size_mb"`
	MaxBackups int      `toml:"max_backups"`
}

// IsDevMode reports whether the portal runs with dev conveniences (seed data,
// relaxed secret checks).
func (c *Config) IsDevMode() bool {
	return c.Environment == "dev"
}

// BaseURL returns the externally visible base URL of the portal.
func (c *Config) BaseURL() string {
	return fmt.Sprintf("http://%s:%d", c.Server.Host, c.Server.Port)
}

// Validate returns a list of configuration problems. An empty list means the
// configuration is usable.
func (c *Config) Validate() []string {
	var issues []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		issues = append(issues, fmt.Sprintf("server.port must be between 1 and 65535 (got %d)", c.Server.Port))
	}

	switch c.Storage.Backend {
	case "badger":
		if c.Storage.Badger.Path == "" {
			issues = append(issues, "storage.badger.path is required when storage.backend is \"badger\"")
		}
	case "mongo":
		if c.Storage.Mongo.URI == "" {
			issues = append(issues, "storage.mongo.uri is required when storage.backend is \"mongo\" (or set PORTAL_MONGO_URI)")
		}
		if c.Storage.Mongo.Database == "" {
			issues = append(issues, "storage.mongo.database is required when storage.backend is \"mongo\"")
		}
	default:
		issues = append(issues, fmt.Sprintf("storage.backend must be \"badger\" or \"mongo\" (got %q)", c.Storage.Backend))
	}

	if !c.IsDevMode() && c.Auth.JWTSecret == "" {
		issues = append(issues, "auth.jwt_secret is required outside dev mode (or set PORTAL_JWT_SECRET)")
	}

	return issues
}

// LoadFromFile loads configuration with priority: defaults -> file -> env.
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files with priority:
// defaults -> file1 -> file2 -> ... -> env.
// Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)
	config.Environment = normalizeEnvironment(config.Environment)

	return config, nil
}

// applyEnvOverrides applies PORTAL_* environment variable overrides to config.
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("PORTAL_ENV"); env != "" {
		config.Environment = env
	}
	if port := os.Getenv("PORTAL_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("PORTAL_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if backend := os.Getenv("PORTAL_STORAGE_BACKEND"); backend != "" {
		config.Storage.Backend = backend
	}
	if badgerPath := os.Getenv("PORTAL_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}
	if uri := os.Getenv("PORTAL_MONGO_URI"); uri != "" {
		config.Storage.Mongo.URI = uri
	}
	if db := os.Getenv("PORTAL_MONGO_DATABASE"); db != "" {
		config.Storage.Mongo.Database = db
	}
	if secret := os.Getenv("PORTAL_JWT_SECRET"); secret != "" {
		config.Auth.JWTSecret = secret
	}
	if dir := os.Getenv("PORTAL_STATIC_DIR"); dir != "" {
		config.Web.StaticDir = dir
	}
	if level := os.Getenv("PORTAL_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("PORTAL_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config.
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// normalizeEnvironment maps aliases (development, production) to dev/prod.
func normalizeEnvironment(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "development", "local":
		return "dev"
	default:
		return "prod"
	}
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
