// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide a New() initializer that builds a Config with defaults.
// - Loaders accept context.Context as the first parameter.
// - External errors are wrapped with this package's sentinel kinds.
package config

import (
	"runtime"

	"github.com/okian/formcheck/internal/domain/evaluation"
)

// Store backends accepted by the store key.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory attempt queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of evaluation workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the attempt-id deduplication cache.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxListLimit caps GET /attempts?limit.
	MaxListLimit int `koanf:"max_list_limit"`

	// Store selects the outcome store: memory or sqlite.
	Store string `koanf:"store"`

	// SQLitePath is the database file used when Store is sqlite.
	SQLitePath string `koanf:"sqlite_path"`

	// TorsoRangeThreshold is the upper-arm/torso angle range, in degrees,
	// above which shoulder rotation is reported.
	TorsoRangeThreshold float64 `koanf:"torso_range_threshold"`

	// ForearmMinThreshold is the smallest upper-arm/forearm angle, in
	// degrees, that still counts as an incomplete curl when exceeded.
	ForearmMinThreshold float64 `koanf:"forearm_min_threshold"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":9080",
		QueueSize:           10_000,
		WorkerCount:         runtime.NumCPU() * 2,
		DedupeSize:          50_000,
		MaxListLimit:        100,
		Store:               StoreMemory,
		SQLitePath:          "formcheck.db",
		TorsoRangeThreshold: evaluation.DefaultTorsoRangeThreshold,
		ForearmMinThreshold: evaluation.DefaultForearmMinThreshold,
	}
}

// Thresholds returns the evaluator thresholds carried by c.
func (c *Config) Thresholds() evaluation.Thresholds {
	return evaluation.Thresholds{
		TorsoRange: c.TorsoRangeThreshold,
		ForearmMin: c.ForearmMinThreshold,
	}
}
