package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New)
//  2. file (YAML) if PULSE_CONFIG is set
//  3. env (prefix PULSE_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("PULSE_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadConfig, path, err)
		}
	}

	// PULSE_QUEUE_SIZE -> queue_size. Underscores are kept to match the flat koanf tags.
	envProvider := env.Provider("PULSE_", ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), "pulse_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %v", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.DBPath == "":
		return fmt.Errorf("%w: db_path must not be empty", ErrInvalidConfig)
	case c.TrendLookbackDays < 1:
		return fmt.Errorf("%w: trend_lookback_days must be positive", ErrInvalidConfig)
	case c.TrendFullConfidencePoints < 1:
		return fmt.Errorf("%w: trend_full_confidence_points must be positive", ErrInvalidConfig)
	case c.TrendSparseConfidence < 0 || c.TrendMaxConfidence > 1 || c.TrendSparseConfidence > c.TrendMaxConfidence:
		return fmt.Errorf("%w: trend confidences must satisfy 0 <= sparse <= max <= 1", ErrInvalidConfig)
	case c.BaseSystems < 0:
		return fmt.Errorf("%w: base_systems must not be negative", ErrInvalidConfig)
	}

	switch c.MetricsSource {
	case "sqlite":
	case "http":
		if c.MetricsSourceURL == "" {
			return fmt.Errorf("%w: metrics_source_url is required for the http source", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown metrics_source %q", ErrInvalidConfig, c.MetricsSource)
	}
	return nil
}
