// Package config loads application configuration for the corekit
// utilities. Configuration is constructed explicitly by the caller at
// startup via Load and passed down; there is no lazily-initialized
// global, which keeps "load once" semantics without hidden mutable
// state.
package config

// Config holds all settings for the corekit utilities, grouped by the
// consuming package.
type Config struct {
	Logging  LoggingConfig  `mapstructure:"logging"  validate:"required"`
	TaskPool TaskPoolConfig `mapstructure:"task_pool" validate:"required"`
	Retry    RetryConfig    `mapstructure:"retry"    validate:"required"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

// TaskPoolConfig controls the sequential task pool.
type TaskPoolConfig struct {
	MaxHistorySize int `mapstructure:"max_history_size" validate:"required,gt=0"`
}

// RetryConfig controls the default retry policy.
type RetryConfig struct {
	MaxRetries       int `mapstructure:"max_retries"        validate:"gte=0,lte=100"`
	InitialBackoffMs int `mapstructure:"initial_backoff_ms" validate:"required,gt=0"`
	MaxBackoffMs     int `mapstructure:"max_backoff_ms"     validate:"gte=0"`
}
