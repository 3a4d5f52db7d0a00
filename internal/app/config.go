package app

import (
	"errors"
	"fmt"
	"time"
)

// DefaultFeedTimeout bounds how long Run waits for the feed connection.
const DefaultFeedTimeout = 10 * time.Second

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	GraphPath string // hcl file or directory

	LogFormat       string
	LogLevel        string
	HealthcheckPort int

	FeedURL       string // socket.io server, empty disables the feed
	FeedNamespace string
	FeedTimeout   time.Duration
	FeedInsecure  bool // skip TLS verification for https feeds

	ReentrantWalk bool
	SilentBind    bool
}

// NewConfig validates cfg and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.GraphPath == "" {
		return nil, errors.New("GraphPath is a required configuration field and cannot be empty")
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, fmt.Errorf("HealthcheckPort %d is out of range", cfg.HealthcheckPort)
	}
	if cfg.FeedNamespace != "" && cfg.FeedURL == "" {
		return nil, errors.New("FeedNamespace requires FeedURL")
	}
	if cfg.FeedInsecure && cfg.FeedURL == "" {
		return nil, errors.New("FeedInsecure requires FeedURL")
	}
	if cfg.FeedTimeout <= 0 {
		cfg.FeedTimeout = DefaultFeedTimeout
	}

	return &cfg, nil
}
