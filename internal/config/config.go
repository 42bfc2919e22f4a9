// Package config resolves server configuration from, in increasing
// precedence: built-in defaults, an optional YAML file, environment
// variables, and command-line flags.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds everything the serve command needs to start the HTTP
// server against a sealed index.
type Config struct {
	IndexDir           string   `yaml:"index_dir"`
	Port               int      `yaml:"port"`
	AdminToken         string   `yaml:"admin_token"`
	PostingsCacheSize  int      `yaml:"postings_cache_size"`
	TextCacheSize      int      `yaml:"text_cache_size"`
	MaxInFlight        int      `yaml:"max_in_flight"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	LogLevel           string   `yaml:"log_level"`
	MetricsStdout      bool     `yaml:"metrics_stdout"`
}

// Default returns the built-in baseline configuration.
func Default() Config {
	return Config{
		IndexDir:           "./index",
		Port:               8080,
		AdminToken:         "",
		PostingsCacheSize:  4096,
		TextCacheSize:      1024,
		MaxInFlight:        64,
		CORSAllowedOrigins: []string{"*"},
		LogLevel:           "info",
		MetricsStdout:      false,
	}
}

// LoadFile merges a YAML config file on top of base. A missing file is
// not an error: it just means no overrides are present.
func LoadFile(path string, base Config) (Config, error) {
	if path == "" {
		return base, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return base, nil
		}
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	cfg := base
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overlays environment variables onto cfg, for whichever
// variables are set. IndexDir, Port, and AdminToken honor both the
// bare variable name and the SEARCHCORE_-prefixed form, with the
// prefixed form winning if both are set; every other field is
// SEARCHCORE_-prefixed only.
func ApplyEnv(cfg Config) Config {
	if v := os.Getenv("INDEX_DIR"); v != "" {
		cfg.IndexDir = v
	}
	if v := os.Getenv("SEARCHCORE_INDEX_DIR"); v != "" {
		cfg.IndexDir = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Port = n
		}
	}
	if v := os.Getenv("SEARCHCORE_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Port = n
		}
	}
	if v := os.Getenv("ADMIN_TOKEN"); v != "" {
		cfg.AdminToken = v
	}
	if v := os.Getenv("SEARCHCORE_ADMIN_TOKEN"); v != "" {
		cfg.AdminToken = v
	}
	if v := os.Getenv("SEARCHCORE_POSTINGS_CACHE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.PostingsCacheSize = n
		}
	}
	if v := os.Getenv("SEARCHCORE_TEXT_CACHE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.TextCacheSize = n
		}
	}
	if v := os.Getenv("SEARCHCORE_MAX_IN_FLIGHT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxInFlight = n
		}
	}
	if v := os.Getenv("SEARCHCORE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("SEARCHCORE_CORS_ORIGINS"); v != "" {
		cfg.CORSAllowedOrigins = strings.Split(v, ",")
	}
	if v := os.Getenv("SEARCHCORE_METRICS_STDOUT"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.MetricsStdout = b
		}
	}
	return cfg
}

// Validate rejects a configuration that cannot start a server.
func (c Config) Validate() error {
	if c.IndexDir == "" {
		return fmt.Errorf("index_dir must not be empty")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.PostingsCacheSize <= 0 {
		return fmt.Errorf("postings_cache_size must be positive")
	}
	if c.TextCacheSize <= 0 {
		return fmt.Errorf("text_cache_size must be positive")
	}
	if c.MaxInFlight <= 0 {
		return fmt.Errorf("max_in_flight must be positive")
	}
	return nil
}
