package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment knobs.
const (
	EnvPrefix     = "FORMCHECK_"
	EnvConfigFile = EnvPrefix + "CONFIG"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if FORMCHECK_CONFIG is set
//  3. env (prefix FORMCHECK_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// FORMCHECK_QUEUE_SIZE -> queue_size. Underscores are kept to match the
	// flat koanf tags on the struct.
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every invalid field, each wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	if strings.TrimSpace(c.Addr) == "" {
		add("addr must not be empty")
	}
	if c.QueueSize < 1 {
		add("queue_size must be positive, got %d", c.QueueSize)
	}
	if c.DedupeSize < 1 {
		add("dedupe_size must be positive, got %d", c.DedupeSize)
	}
	if c.WorkerCount < 0 {
		add("worker_count must not be negative, got %d", c.WorkerCount)
	}
	if c.MaxListLimit < 1 {
		add("max_list_limit must be positive, got %d", c.MaxListLimit)
	}
	switch c.Store {
	case StoreMemory:
	case StoreSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			add("sqlite_path must not be empty when store is %s", StoreSQLite)
		}
	default:
		add("store must be %s or %s, got %q", StoreMemory, StoreSQLite, c.Store)
	}
	if c.TorsoRangeThreshold <= 0 {
		add("torso_range_threshold must be positive, got %g", c.TorsoRangeThreshold)
	}
	if c.ForearmMinThreshold <= 0 {
		add("forearm_min_threshold must be positive, got %g", c.ForearmMinThreshold)
	}
	return errors.Join(errs...)
}
