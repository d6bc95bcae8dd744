package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"ollamadash/internal/common/fsutil"
	"ollamadash/internal/daemon"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Addr:                 ":8080",
		ServerURL:            daemon.DefaultBaseURL,
		TimeoutSeconds:       30,
		StreamTimeoutSeconds: 7200,
		MaxAttempts:          3,
		RetryDelayMS:         1000,
		PoolSize:             32,
		LogLevel:             "info",
		LogFormat:            "console",
		MaxBodyBytes:         1 << 20,
	}
}

// Resolve layers Defaults, the optional file at path and the process
// environment, in that order, and validates the result.
func Resolve(path string) (Config, error) {
	cfg := Defaults()
	if path != "" {
		p, err := fsutil.ExpandHome(path)
		if err != nil {
			return cfg, err
		}
		file, err := Load(p)
		if err != nil {
			return cfg, err
		}
		cfg = Merge(cfg, file)
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Merge returns base with every non-zero field of over applied on top.
func Merge(base, over Config) Config {
	if over.Addr != "" {
		base.Addr = over.Addr
	}
	if over.ServerURL != "" {
		base.ServerURL = over.ServerURL
	}
	if over.APIKey != "" {
		base.APIKey = over.APIKey
	}
	if over.TimeoutSeconds != 0 {
		base.TimeoutSeconds = over.TimeoutSeconds
	}
	if over.StreamTimeoutSeconds != 0 {
		base.StreamTimeoutSeconds = over.StreamTimeoutSeconds
	}
	if over.MaxAttempts != 0 {
		base.MaxAttempts = over.MaxAttempts
	}
	if over.RetryDelayMS != 0 {
		base.RetryDelayMS = over.RetryDelayMS
	}
	if over.PoolSize != 0 {
		base.PoolSize = over.PoolSize
	}
	if over.LogLevel != "" {
		base.LogLevel = over.LogLevel
	}
	if over.LogFormat != "" {
		base.LogFormat = over.LogFormat
	}
	if over.CORSEnabled {
		base.CORSEnabled = true
	}
	if len(over.CORSOrigins) > 0 {
		base.CORSOrigins = over.CORSOrigins
	}
	if over.LibraryURL != "" {
		base.LibraryURL = over.LibraryURL
	}
	if over.MaxBodyBytes != 0 {
		base.MaxBodyBytes = over.MaxBodyBytes
	}
	return base
}

// Validate checks field ranges and enumerations.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Daemon converts c into gateway settings. log may be nil.
func (c Config) Daemon(log *zerolog.Logger) daemon.Config {
	return daemon.Config{
		BaseURL:       c.ServerURL,
		APIKey:        c.APIKey,
		Timeout:       time.Duration(c.TimeoutSeconds) * time.Second,
		StreamTimeout: time.Duration(c.StreamTimeoutSeconds) * time.Second,
		MaxAttempts:   c.MaxAttempts,
		RetryDelay:    time.Duration(c.RetryDelayMS) * time.Millisecond,
		Logger:        log,
	}
}
