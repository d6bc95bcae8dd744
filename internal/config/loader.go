package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the dashboard service and CLI.
// Zero values mean "unspecified" and are filled from Defaults by Resolve.
type Config struct {
	Addr      string `json:"addr" yaml:"addr" toml:"addr" env:"OLLAMADASH_ADDR"`
	ServerURL string `json:"server_url" yaml:"server_url" toml:"server_url" env:"OLLAMA_SERVER_URL"`
	APIKey    string `json:"api_key" yaml:"api_key" toml:"api_key" env:"OLLAMA_API_KEY"`

	TimeoutSeconds       int `json:"timeout_seconds" yaml:"timeout_seconds" toml:"timeout_seconds" env:"OLLAMADASH_TIMEOUT_SECONDS" validate:"gte=0"`
	StreamTimeoutSeconds int `json:"stream_timeout_seconds" yaml:"stream_timeout_seconds" toml:"stream_timeout_seconds" env:"OLLAMADASH_STREAM_TIMEOUT_SECONDS" validate:"gte=0"`
	MaxAttempts          int `json:"max_attempts" yaml:"max_attempts" toml:"max_attempts" env:"OLLAMADASH_MAX_ATTEMPTS" validate:"gte=0,lte=10"`
	RetryDelayMS         int `json:"retry_delay_ms" yaml:"retry_delay_ms" toml:"retry_delay_ms" env:"OLLAMADASH_RETRY_DELAY_MS" validate:"gte=0"`
	PoolSize             int `json:"pool_size" yaml:"pool_size" toml:"pool_size" env:"OLLAMADASH_POOL_SIZE" validate:"gte=0"`

	LogLevel  string `json:"log_level" yaml:"log_level" toml:"log_level" env:"OLLAMADASH_LOG_LEVEL" validate:"omitempty,oneof=trace debug info warn error off"`
	LogFormat string `json:"log_format" yaml:"log_format" toml:"log_format" env:"OLLAMADASH_LOG_FORMAT" validate:"omitempty,oneof=json console"`

	CORSEnabled bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled" env:"OLLAMADASH_CORS_ENABLED"`
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins" env:"OLLAMADASH_CORS_ORIGINS" envSeparator:","`

	LibraryURL   string `json:"library_url" yaml:"library_url" toml:"library_url" env:"OLLAMADASH_LIBRARY_URL"`
	MaxBodyBytes int64  `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes" env:"OLLAMADASH_MAX_BODY_BYTES" validate:"gte=0"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
