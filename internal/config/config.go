// Package config defines service configuration and how it is loaded.
package config

import (
	"runtime"
	"time"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreFile   = "file"
	StoreBadger = "badger"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn warning error"`
	// LogFormat selects text or json output.
	LogFormat string `koanf:"log_format" validate:"oneof=text json"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr" validate:"required"`

	// EventQueueSize bounds the in-memory ingestion queue.
	EventQueueSize int `koanf:"queue_size" validate:"gt=0"`
	// WorkerCount sets the number of ingestion workers.
	WorkerCount int `koanf:"worker_count" validate:"gt=0"`
	// DedupeSize bounds the event id dedupe cache.
	DedupeSize int `koanf:"dedupe_size" validate:"gt=0"`

	// WindowDays is the length of the recent window in days.
	WindowDays int `koanf:"window_days" validate:"gt=0"`

	// Personality model.
	ClusterCount        int      `koanf:"cluster_count" validate:"gte=2"`
	PCAComponents       int      `koanf:"pca_components" validate:"gte=1"`
	RandomSeed          int64    `koanf:"random_seed"`
	MinTrainingSubjects int      `koanf:"min_training_subjects" validate:"gte=2"`
	ClusterArchetypes   []string `koanf:"cluster_archetypes"`

	// Outlier model.
	ForestTrees      int     `koanf:"forest_trees" validate:"gt=0"`
	ForestSampleSize int     `koanf:"forest_sample_size" validate:"gte=2"`
	Contamination    float64 `koanf:"contamination" validate:"gt=0,lt=0.5"`

	// Output caps.
	MaxFindings int `koanf:"max_findings" validate:"gt=0"`
	MaxAlerts   int `koanf:"max_alerts" validate:"gt=0"`

	// SensitiveCategory feeds the emotional shopping composite.
	SensitiveCategory string `koanf:"sensitive_category" validate:"required"`

	// EventStore is memory or sqlite; SQLitePath is used by the latter.
	EventStore string `koanf:"event_store" validate:"oneof=memory sqlite"`
	SQLitePath string `koanf:"sqlite_path" validate:"required_if=EventStore sqlite"`

	// ModelStore is memory, file or badger; ModelDir is used by the latter two.
	ModelStore string `koanf:"model_store" validate:"oneof=memory file badger"`
	ModelDir   string `koanf:"model_dir"`

	// Metrics.
	MetricsEnabled         bool          `koanf:"metrics_enabled"`
	MetricsRefreshInterval time.Duration `koanf:"metrics_refresh_interval" validate:"gt=0"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		EventQueueSize:      10_000,
		WorkerCount:         runtime.NumCPU(),
		DedupeSize:          100_000,
		WindowDays:          7,
		ClusterCount:        4,
		PCAComponents:       3,
		RandomSeed:          42,
		MinTrainingSubjects: 5,
		ClusterArchetypes: []string{
			"learning_oriented",
			"active_explorer",
			"creative_expressive",
			"stability_seeking",
			"balanced",
		},
		ForestTrees:       100,
		ForestSampleSize:  256,
		Contamination:     0.1,
		MaxFindings:       5,
		MaxAlerts:         8,
		SensitiveCategory: "snack",
		EventStore:        StoreMemory,
		SQLitePath:        "spendlens.db",
		ModelStore:        StoreFile,
		ModelDir:          "models",

		MetricsEnabled:         true,
		MetricsRefreshInterval: 10 * time.Second,
	}
}
