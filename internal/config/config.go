// Package config provides structures and utilities for loading and managing the
// pipeline configuration from embedded YAML and environment variables.
package config

import "strings"

// EmbeddedConfig holds the content of the configuration file, typically passed from main.go.
// This is used when loading configuration from an embedded source (e.g., a compiled binary).
type EmbeddedConfig []byte

// APIConfig holds the weather provider client settings.
type APIConfig struct {
	// Endpoint is the provider's current-conditions endpoint.
	Endpoint string `yaml:"endpoint" validate:"required,url"`
	// Key is the provider API key. Supplied via WEATHERPIPE_API_KEY in deployments.
	Key string `yaml:"key" validate:"required"`
	// TimeoutSeconds bounds a single city fetch.
	TimeoutSeconds int `yaml:"timeout_seconds" validate:"min=1"`
}

// CityConfig identifies one tracked city by name and coordinates.
type CityConfig struct {
	Name      string  `yaml:"name" validate:"required"`
	Latitude  float64 `yaml:"latitude" validate:"min=-90,max=90"`
	Longitude float64 `yaml:"longitude" validate:"min=-180,max=180"`
}

// Slug returns the city name in file-system form (lowercase, spaces replaced by underscores).
func (c CityConfig) Slug() string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(c.Name)), " ", "_")
}

// StorageConfig holds the directories for the pipeline's data areas.
type StorageConfig struct {
	// DataDir is the root of the raw and processed areas.
	DataDir string `yaml:"data_dir"`
	// ReportsDir receives quality reports and the dq_pass.flag marker.
	ReportsDir string `yaml:"reports_dir"`
	// LogsDir receives per-stage run logs.
	LogsDir string `yaml:"logs_dir"`
}

// DQConfig holds data-quality thresholds.
type DQConfig struct {
	// MaxClockSkewHours is how far a local observation timestamp may run ahead of the
	// batch time before the timestamp rule rejects it. Provider localtime can be ahead
	// of UTC, so this defaults to 48.
	MaxClockSkewHours int `yaml:"max_clock_skew_hours" validate:"min=1"`
}

// ScheduleConfig holds the scheduler-mode settings.
type ScheduleConfig struct {
	// Cron is the cron expression driving orchestrated runs in schedule mode.
	Cron string `yaml:"cron"`
}

// MetricsConfig holds the metrics exposition settings.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	// ListenAddress is where the Prometheus handler is served in schedule mode.
	ListenAddress string `yaml:"listen_address"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the logging level (e.g., "INFO", "DEBUG").
	Level string `yaml:"level"`
}

// SystemConfig holds system-wide settings.
type SystemConfig struct {
	// Timezone is the application timezone (e.g., "UTC").
	Timezone string `yaml:"timezone"`
	// Logging is the logging configuration.
	Logging LoggingConfig `yaml:"logging"`
}

// PipelineConfig holds all configuration under the "weatherpipe" top-level key.
type PipelineConfig struct {
	API      APIConfig      `yaml:"api"`
	Cities   []CityConfig   `yaml:"cities" validate:"min=1,dive"`
	System   SystemConfig   `yaml:"system"`
	Storage  StorageConfig  `yaml:"storage"`
	DQ       DQConfig       `yaml:"dq"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	// DatabaseRef is the name of the connection (key into AdapterConfigs) used for the
	// warehouse and metadata tables.
	DatabaseRef string `yaml:"database_ref"`
	// AdapterConfigs holds configurations for database connections, keyed by connection name.
	// Entries are decoded with mapstructure by the database adapter.
	AdapterConfigs map[string]interface{} `yaml:"database"`
}

// Config is the root structure for the entire application configuration.
type Config struct {
	Weatherpipe PipelineConfig `yaml:"weatherpipe"`
}

// NewConfig returns a new instance of Config with default values.
func NewConfig() *Config {
	cfg := &Config{
		Weatherpipe: PipelineConfig{
			API: APIConfig{
				Endpoint:       "https://api.weatherapi.com/v1/current.json",
				TimeoutSeconds: 10,
			},
			System: SystemConfig{
				Timezone: "UTC",
				Logging:  LoggingConfig{Level: "INFO"},
			},
			Storage: StorageConfig{
				DataDir:    "data",
				ReportsDir: "reports",
				LogsDir:    "logs",
			},
			DQ: DQConfig{
				MaxClockSkewHours: 48,
			},
			Metrics: MetricsConfig{
				ListenAddress: ":9090",
			},
			DatabaseRef: "warehouse",
		},
	}
	cfg.Weatherpipe.AdapterConfigs = map[string]interface{}{}
	return cfg
}
