package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alnah/go-contentrender/internal/fileutil"
	"github.com/alnah/go-contentrender/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrInvalidValue    = errors.New("invalid config value")
)

// Field length limits.
const (
	MaxStyleLength    = 50
	MaxFallbackLength = 4096
	MaxPathLength     = 4096
	MaxAddrLength     = 255
	MaxSecretLength   = 512
	MaxPrefixLength   = 100
	MaxTOCTitleLength = 100
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// appDir is the directory under os.UserConfigDir searched for named configs.
const appDir = "go-contentrender"

// Config holds all configuration for the CLI and HTTP server.
type Config struct {
	Render  RenderConfig  `yaml:"render"`
	Store   StoreConfig   `yaml:"store"`
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
	Preview PreviewConfig `yaml:"preview"`
}

// RenderConfig configures the content renderer.
type RenderConfig struct {
	HighlightStyle string `yaml:"highlightStyle"` // chroma style name
	SoftBreaks     bool   `yaml:"softBreaks"`     // markup newlines stay soft
	FallbackHTML   string `yaml:"fallbackHTML"`   // empty = built-in notice
}

// StoreConfig selects and configures the document store.
type StoreConfig struct {
	Backend       string `yaml:"backend"` // "memory", "sqlite", "redis"
	SQLitePath    string `yaml:"sqlitePath"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`
	RedisDB       int    `yaml:"redisDB"`
	RedisPrefix   string `yaml:"redisPrefix"`
	RedisTTL      string `yaml:"redisTTL"` // Go duration, empty = no expiry
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr         string   `yaml:"addr"`
	Mode         string   `yaml:"mode"` // gin mode: "debug", "release", "test"
	MaxBodyBytes int64    `yaml:"maxBodyBytes"`
	CORSOrigins  []string `yaml:"corsOrigins"` // empty disables CORS, "*" allows any origin
}

// LogConfig configures the process logger.
type LogConfig struct {
	Mode  string `yaml:"mode"`  // "development", "production", "silent"
	Level string `yaml:"level"` // "debug", "info", "warn", "error"
}

// PreviewConfig configures preview pages.
type PreviewConfig struct {
	TOCTitle    string `yaml:"tocTitle"`
	TOCMinDepth int    `yaml:"tocMinDepth"` // 1-6
	TOCMaxDepth int    `yaml:"tocMaxDepth"` // 1-6
	Stylesheet  string `yaml:"stylesheet"`  // style name or CSS file path, empty = "default"
	AssetPath   string `yaml:"assetPath"`   // directory with styles/{name}.css overrides
}

// Validate checks lengths, enumerations and numeric ranges.
// Called automatically by LoadConfig, but available for consumers
// who construct Config manually.
func (c *Config) Validate() error {
	lengths := []struct {
		field string
		value string
		max   int
	}{
		{"render.highlightStyle", c.Render.HighlightStyle, MaxStyleLength},
		{"render.fallbackHTML", c.Render.FallbackHTML, MaxFallbackLength},
		{"store.sqlitePath", c.Store.SQLitePath, MaxPathLength},
		{"store.redisAddr", c.Store.RedisAddr, MaxAddrLength},
		{"store.redisPassword", c.Store.RedisPassword, MaxSecretLength},
		{"store.redisPrefix", c.Store.RedisPrefix, MaxPrefixLength},
		{"server.addr", c.Server.Addr, MaxAddrLength},
		{"preview.tocTitle", c.Preview.TOCTitle, MaxTOCTitleLength},
		{"preview.stylesheet", c.Preview.Stylesheet, MaxPathLength},
		{"preview.assetPath", c.Preview.AssetPath, MaxPathLength},
	}
	for _, l := range lengths {
		if err := validateFieldLength(l.field, l.value, l.max); err != nil {
			return err
		}
	}

	if err := validateOneOf("store.backend", c.Store.Backend,
		BackendMemory, BackendSQLite, BackendRedis); err != nil {
		return err
	}
	if c.Store.Backend == BackendSQLite && c.Store.SQLitePath == "" {
		return fmt.Errorf("%w: store.sqlitePath: required for the sqlite backend", ErrInvalidValue)
	}
	if c.Store.Backend == BackendRedis && c.Store.RedisAddr == "" {
		return fmt.Errorf("%w: store.redisAddr: required for the redis backend", ErrInvalidValue)
	}
	if c.Store.RedisDB < 0 {
		return fmt.Errorf("%w: store.redisDB: must not be negative, got %d", ErrInvalidValue, c.Store.RedisDB)
	}
	if _, err := c.Store.TTL(); err != nil {
		return err
	}

	if err := validateOneOf("server.mode", c.Server.Mode, "debug", "release", "test"); err != nil {
		return err
	}
	if c.Server.MaxBodyBytes < 0 {
		return fmt.Errorf("%w: server.maxBodyBytes: must not be negative, got %d", ErrInvalidValue, c.Server.MaxBodyBytes)
	}
	for _, origin := range c.Server.CORSOrigins {
		if err := validateOrigin(origin); err != nil {
			return err
		}
	}

	if err := validateOneOf("log.mode", c.Log.Mode, "development", "production", "silent"); err != nil {
		return err
	}
	if err := validateOneOf("log.level", c.Log.Level, "debug", "info", "warn", "error"); err != nil {
		return err
	}

	minDepth, maxDepth := c.Preview.TOCMinDepth, c.Preview.TOCMaxDepth
	if minDepth != 0 && (minDepth < 1 || minDepth > 6) {
		return fmt.Errorf("%w: preview.tocMinDepth: must be between 1 and 6, got %d", ErrInvalidValue, minDepth)
	}
	if maxDepth != 0 && (maxDepth < 1 || maxDepth > 6) {
		return fmt.Errorf("%w: preview.tocMaxDepth: must be between 1 and 6, got %d", ErrInvalidValue, maxDepth)
	}
	if minDepth != 0 && maxDepth != 0 && minDepth > maxDepth {
		return fmt.Errorf("%w: preview.tocMinDepth (%d) exceeds preview.tocMaxDepth (%d)", ErrInvalidValue, minDepth, maxDepth)
	}

	return nil
}

// TTL parses RedisTTL. Empty means no expiry.
func (s StoreConfig) TTL() (time.Duration, error) {
	if s.RedisTTL == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s.RedisTTL)
	if err != nil {
		return 0, fmt.Errorf("%w: store.redisTTL: %v", ErrInvalidValue, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%w: store.redisTTL: must not be negative, got %s", ErrInvalidValue, s.RedisTTL)
	}
	return d, nil
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

// validateOneOf accepts an empty value, which means the default applies.
func validateOneOf(fieldName, value string, allowed ...string) error {
	if value == "" {
		return nil
	}
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%w: %s: %q (must be one of %s)", ErrInvalidValue, fieldName, value, strings.Join(allowed, ", "))
}

// validateOrigin accepts "*" or an http(s) origin.
func validateOrigin(origin string) error {
	if origin == "*" || strings.HasPrefix(origin, "http://") || strings.HasPrefix(origin, "https://") {
		return validateFieldLength("server.corsOrigins", origin, MaxAddrLength)
	}
	return fmt.Errorf("%w: server.corsOrigins: %q must be \"*\" or start with http:// or https://", ErrInvalidValue, origin)
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Render: RenderConfig{
			HighlightStyle: "github",
		},
		Store: StoreConfig{
			Backend:     BackendMemory,
			SQLitePath:  "contentrender.db",
			RedisAddr:   "localhost:6379",
			RedisPrefix: "contentrender:doc:",
		},
		Server: ServerConfig{
			Addr:         ":8080",
			Mode:         "release",
			MaxBodyBytes: 4 << 20,
		},
		Log: LogConfig{
			Mode:  "development",
			Level: "info",
		},
		Preview: PreviewConfig{
			TOCTitle:    "Contents",
			TOCMinDepth: 1,
			TOCMaxDepth: 3,
		},
	}
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's treated as a config name and searched in standard locations.
// Keys absent from the file keep their DefaultConfig values.
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	configPath := nameOrPath
	if !fileutil.IsFilePath(nameOrPath) {
		var err error
		if configPath, err = resolveConfigPath(nameOrPath); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yamlutil.UnmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConfigParse, configPath, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// resolveConfigPath searches for a config file by name.
// Tries .yaml then .yml, first in the current directory, then in
// the user config directory.
func resolveConfigPath(name string) (string, error) {
	extensions := []string{".yaml", ".yml"}
	dirs := []string{""}
	if userDir, err := UserDir(); err == nil {
		dirs = append(dirs, userDir)
	}

	tried := make([]string, 0, len(extensions)*len(dirs))
	for _, dir := range dirs {
		for _, ext := range extensions {
			candidate := filepath.Join(dir, name+ext)
			if fileutil.FileExists(candidate) {
				return candidate, nil
			}
			tried = append(tried, candidate)
		}
	}

	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(tried, ", "))
}

// UserDir returns the per-user directory searched for named configs.
func UserDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, appDir), nil
}
