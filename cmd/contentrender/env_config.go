package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/alnah/go-contentrender/internal/config"
)

const envPrefix = "CONTENTRENDER_"

// envConfig holds configuration from environment variables.
// Provides container-friendly overrides without requiring YAML files.
type envConfig struct {
	ConfigPath     string   // CONTENTRENDER_CONFIG: config name or path
	HighlightStyle string   // CONTENTRENDER_HIGHLIGHT_STYLE: chroma style
	Store          string   // CONTENTRENDER_STORE: memory, sqlite, redis
	SQLitePath     string   // CONTENTRENDER_SQLITE_PATH
	RedisAddr      string   // CONTENTRENDER_REDIS_ADDR
	RedisPassword  string   // CONTENTRENDER_REDIS_PASSWORD
	RedisDB        int      // CONTENTRENDER_REDIS_DB
	RedisTTL       string   // CONTENTRENDER_REDIS_TTL: Go duration
	Addr           string   // CONTENTRENDER_ADDR: HTTP listen address
	CORSOrigins    []string // CONTENTRENDER_CORS_ORIGINS: comma-separated
	LogMode        string   // CONTENTRENDER_LOG_MODE
	LogLevel       string   // CONTENTRENDER_LOG_LEVEL
	Workers        int      // CONTENTRENDER_WORKERS: batch workers
}

// knownEnvVars lists valid CONTENTRENDER_* environment variables.
// Used to detect typos and warn users about unknown variables.
var knownEnvVars = map[string]bool{
	"CONTENTRENDER_CONFIG":          true,
	"CONTENTRENDER_HIGHLIGHT_STYLE": true,
	"CONTENTRENDER_STORE":           true,
	"CONTENTRENDER_SQLITE_PATH":     true,
	"CONTENTRENDER_REDIS_ADDR":      true,
	"CONTENTRENDER_REDIS_PASSWORD":  true,
	"CONTENTRENDER_REDIS_DB":        true,
	"CONTENTRENDER_REDIS_TTL":       true,
	"CONTENTRENDER_ADDR":            true,
	"CONTENTRENDER_CORS_ORIGINS":    true,
	"CONTENTRENDER_LOG_MODE":        true,
	"CONTENTRENDER_LOG_LEVEL":       true,
	"CONTENTRENDER_WORKERS":         true,
}

// loadEnvConfig reads configuration from environment variables.
// Malformed integers are ignored.
func loadEnvConfig(getenv func(string) string) *envConfig {
	cfg := &envConfig{
		ConfigPath:     getenv("CONTENTRENDER_CONFIG"),
		HighlightStyle: getenv("CONTENTRENDER_HIGHLIGHT_STYLE"),
		Store:          getenv("CONTENTRENDER_STORE"),
		SQLitePath:     getenv("CONTENTRENDER_SQLITE_PATH"),
		RedisAddr:      getenv("CONTENTRENDER_REDIS_ADDR"),
		RedisPassword:  getenv("CONTENTRENDER_REDIS_PASSWORD"),
		RedisTTL:       getenv("CONTENTRENDER_REDIS_TTL"),
		Addr:           getenv("CONTENTRENDER_ADDR"),
		LogMode:        getenv("CONTENTRENDER_LOG_MODE"),
		LogLevel:       getenv("CONTENTRENDER_LOG_LEVEL"),
	}

	if db := getenv("CONTENTRENDER_REDIS_DB"); db != "" {
		if n, err := strconv.Atoi(db); err == nil && n >= 0 {
			cfg.RedisDB = n
		}
	}
	if origins := getenv("CONTENTRENDER_CORS_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, o)
			}
		}
	}
	if workers := getenv("CONTENTRENDER_WORKERS"); workers != "" {
		if w, err := strconv.Atoi(workers); err == nil && w > 0 {
			cfg.Workers = w
		}
	}

	return cfg
}

// warnUnknownEnvVars warns about unrecognized CONTENTRENDER_* variables.
// Helps catch typos like CONTENTRENDER_REDIS_ADR.
func warnUnknownEnvVars(w io.Writer, environ []string) {
	for _, kv := range environ {
		if !strings.HasPrefix(kv, envPrefix) {
			continue
		}
		name, _, _ := strings.Cut(kv, "=")
		if !knownEnvVars[name] {
			fmt.Fprintf(w, "warning: unknown environment variable %s (typo?)\n", name)
		}
	}
}

// applyEnvConfig overlays set environment variables onto cfg.
// Precedence: CLI flags > env vars > config file > defaults
// (CLI flags are applied afterwards by each command).
func applyEnvConfig(env *envConfig, cfg *config.Config) {
	if env.HighlightStyle != "" {
		cfg.Render.HighlightStyle = env.HighlightStyle
	}

	if env.Store != "" {
		cfg.Store.Backend = env.Store
	}
	if env.SQLitePath != "" {
		cfg.Store.SQLitePath = env.SQLitePath
	}
	if env.RedisAddr != "" {
		cfg.Store.RedisAddr = env.RedisAddr
	}
	if env.RedisPassword != "" {
		cfg.Store.RedisPassword = env.RedisPassword
	}
	if env.RedisDB != 0 {
		cfg.Store.RedisDB = env.RedisDB
	}
	if env.RedisTTL != "" {
		cfg.Store.RedisTTL = env.RedisTTL
	}

	if env.Addr != "" {
		cfg.Server.Addr = env.Addr
	}
	if len(env.CORSOrigins) > 0 {
		cfg.Server.CORSOrigins = env.CORSOrigins
	}

	if env.LogMode != "" {
		cfg.Log.Mode = env.LogMode
	}
	if env.LogLevel != "" {
		cfg.Log.Level = env.LogLevel
	}
}
