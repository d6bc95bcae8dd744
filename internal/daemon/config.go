package daemon

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// DefaultBaseURL is used when neither the caller nor the environment names a daemon.
const DefaultBaseURL = "http://localhost:11434"

// Defaults applied when corresponding Config fields are unset.
const (
	defaultTimeout           = 30 * time.Second
	defaultStreamTimeout     = 2 * time.Hour
	defaultLivenessTimeout   = 5 * time.Second
	defaultLivenessWindow    = 5 * time.Second
	defaultMaxAttempts       = 3
	defaultRetryDelay        = 1 * time.Second
	defaultStopSettle        = 1 * time.Second
	defaultEnrichConcurrency = 4
)

// Config holds everything a Gateway needs. It is a plain value: build a new
// Gateway (or ask a Pool) when any field changes.
type Config struct {
	BaseURL string
	APIKey  string

	// Timeout bounds each non-streaming attempt.
	Timeout time.Duration
	// StreamTimeout bounds a whole pull/create stream.
	StreamTimeout time.Duration
	// LivenessTimeout bounds the reachability probe.
	LivenessTimeout time.Duration
	// LivenessWindow is how long a probe result is reused.
	LivenessWindow time.Duration

	MaxAttempts int
	RetryDelay  time.Duration
	// StopSettle is the pause between an unload request and re-checking ps.
	StopSettle time.Duration

	EnrichConcurrency int

	// Stats answers GetModelStats; nil yields empty statistics.
	Stats StatsSource

	HTTPClient *http.Client
	Logger     *zerolog.Logger
}

func (c Config) withDefaults() Config {
	c.BaseURL = NormalizeBaseURL(c.BaseURL)
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.StreamTimeout <= 0 {
		c.StreamTimeout = defaultStreamTimeout
	}
	if c.LivenessTimeout <= 0 {
		c.LivenessTimeout = defaultLivenessTimeout
	}
	if c.LivenessWindow <= 0 {
		c.LivenessWindow = defaultLivenessWindow
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = defaultRetryDelay
	}
	if c.StopSettle <= 0 {
		c.StopSettle = defaultStopSettle
	}
	if c.EnrichConcurrency <= 0 {
		c.EnrichConcurrency = defaultEnrichConcurrency
	}
	if c.HTTPClient == nil {
		c.HTTPClient = newHTTPClient()
	}
	if c.Logger == nil {
		nop := zerolog.Nop()
		c.Logger = &nop
	}
	return c
}
