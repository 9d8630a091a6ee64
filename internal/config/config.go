package config

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/vertwheel/pacman-p2/internal/engine"
	"github.com/vertwheel/pacman-p2/internal/policy"
)

// Config holds all pacman agent configuration
type Config struct {
	// Policy settings
	Policy string `mapstructure:"policy"`
	Layout string `mapstructure:"layout"`
	Seed   int64  `mapstructure:"seed"`

	// Episode management
	MaxEpisodes    int           `mapstructure:"max-episodes"`
	MaxSteps       int           `mapstructure:"max-steps"`
	EpisodeTimeout time.Duration `mapstructure:"episode-timeout"`

	// Batch settings
	BatchSize int `mapstructure:"batch-size"`

	// Policy server
	Addr               string        `mapstructure:"addr"`
	SessionIdleTimeout time.Duration `mapstructure:"session-idle-timeout"`
	ReapInterval       time.Duration `mapstructure:"reap-interval"`
	RateLimit          float64       `mapstructure:"rate-limit"`
	RateBurst          int           `mapstructure:"rate-burst"`

	// Storage and events
	DatabaseURL    string `mapstructure:"database-url"`
	MaxTransitions int    `mapstructure:"max-transitions"`
	NATSURL        string `mapstructure:"nats-url"`
	NATSSubject    string `mapstructure:"nats-subject"`

	// Logging
	LogLevel string `mapstructure:"log-level"`
}

// Default returns a config with sensible defaults
func Default() *Config {
	return &Config{
		Policy:             "hungry",
		Layout:             "small",
		Seed:               0, // time based
		MaxEpisodes:        1,
		MaxSteps:           500,
		EpisodeTimeout:     30 * time.Second,
		BatchSize:          32,
		Addr:               ":8080",
		SessionIdleTimeout: 10 * time.Minute,
		ReapInterval:       time.Minute,
		RateLimit:          50,
		RateBurst:          100,
		MaxTransitions:     100000,
		NATSSubject:        "pacman",
		LogLevel:           "info",
	}
}

// SetDefaults registers every key with v so environment overrides are
// picked up by Unmarshal.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("policy", d.Policy)
	v.SetDefault("layout", d.Layout)
	v.SetDefault("seed", d.Seed)
	v.SetDefault("max-episodes", d.MaxEpisodes)
	v.SetDefault("max-steps", d.MaxSteps)
	v.SetDefault("episode-timeout", d.EpisodeTimeout)
	v.SetDefault("batch-size", d.BatchSize)
	v.SetDefault("addr", d.Addr)
	v.SetDefault("session-idle-timeout", d.SessionIdleTimeout)
	v.SetDefault("reap-interval", d.ReapInterval)
	v.SetDefault("rate-limit", d.RateLimit)
	v.SetDefault("rate-burst", d.RateBurst)
	v.SetDefault("database-url", d.DatabaseURL)
	v.SetDefault("max-transitions", d.MaxTransitions)
	v.SetDefault("nats-url", d.NATSURL)
	v.SetDefault("nats-subject", d.NATSSubject)
	v.SetDefault("log-level", d.LogLevel)
}

// Load decodes v over the defaults and validates the result.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)
	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if !policy.Known(c.Policy) {
		return fmt.Errorf("policy: %w: %q", policy.ErrUnknownPolicy, c.Policy)
	}
	if c.Layout == "" {
		return fmt.Errorf("layout is required")
	}
	if c.MaxEpisodes == 0 || c.MaxEpisodes < -1 {
		return fmt.Errorf("max-episodes must be positive or -1 for unlimited")
	}
	if c.MaxSteps <= 0 {
		return fmt.Errorf("max-steps must be positive")
	}
	if c.EpisodeTimeout <= 0 {
		return fmt.Errorf("episode-timeout must be positive")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be positive")
	}
	if c.Addr == "" {
		return fmt.Errorf("addr is required")
	}
	if c.SessionIdleTimeout <= 0 {
		return fmt.Errorf("session-idle-timeout must be positive")
	}
	if c.ReapInterval <= 0 {
		return fmt.Errorf("reap-interval must be positive")
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate-limit must not be negative")
	}
	if c.RateLimit > 0 && c.RateBurst <= 0 {
		return fmt.Errorf("rate-burst must be positive when rate-limit is set")
	}
	if c.NATSURL != "" && c.NATSSubject == "" {
		return fmt.Errorf("nats-subject is required when nats-url is set")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel.
func (c *Config) Level() (zerolog.Level, error) {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("log-level: %w", err)
	}
	return level, nil
}

// LoadLayout resolves the configured layout.
func (c *Config) LoadLayout() (*engine.Layout, error) {
	return engine.LoadLayout(c.Layout)
}
