package infrastructure

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Events   EventsConfig   `mapstructure:"events"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Batcher  BatcherConfig  `mapstructure:"batcher"`
	Outbox   OutboxTuning   `mapstructure:"outbox"`
}

// EventsConfig holds event system configuration
type EventsConfig struct {
	Publisher string `mapstructure:"publisher"` // channel, pubsub
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error, fatal
	Format string `mapstructure:"format"` // json, text
}

// OutboxTuning holds the outbox processor's operator-tunable knobs.
type OutboxTuning struct {
	LeaseDurationMs int    `mapstructure:"lease_duration_ms"`
	MaxAttempts     int    `mapstructure:"max_attempts"`
	BackoffBaseMs   int    `mapstructure:"backoff_base_ms"`
	WorkerCount     int    `mapstructure:"worker_count"`
	BatchSize       int    `mapstructure:"batch_size"`
	PollIntervalMs  int    `mapstructure:"poll_interval_ms"`
	// WebhookURL selects the HTTP webhook publisher when set; empty falls
	// back to the in-process Watermill publisher (see fx.go's
	// OutboxPublisherProvider), which is what every test and the `demo`
	// subcommand run against.
	WebhookURL string `mapstructure:"webhook_url"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("./config")

	// Environment variable support
	viper.AutomaticEnv()
	viper.SetEnvPrefix("CORE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set defaults
	setDefaults()

	// Read config file (optional)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Database defaults
	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.dsn", "file:events.db?cache=shared&mode=rwc")

	// Events defaults
	viper.SetDefault("events.publisher", "channel")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")

	// Batcher defaults, mirroring DefaultBatcherConfig
	viper.SetDefault("batcher.flush_interval_ms", 10)
	viper.SetDefault("batcher.batch_size_threshold", 50)
	viper.SetDefault("batcher.max_queue_depth", 1000)

	// Outbox defaults
	viper.SetDefault("outbox.lease_duration_ms", 30000)
	viper.SetDefault("outbox.max_attempts", 8)
	viper.SetDefault("outbox.backoff_base_ms", 500)
	viper.SetDefault("outbox.worker_count", 4)
	viper.SetDefault("outbox.batch_size", 20)
	viper.SetDefault("outbox.poll_interval_ms", 200)
	viper.SetDefault("outbox.webhook_url", "")
}

// validateConfig validates the configuration values
func validateConfig(config *Config) error {
	// Validate database driver
	switch config.Database.Driver {
	case "sqlite", "postgres":
		// Valid drivers
	default:
		return fmt.Errorf("unsupported database driver: %s (supported: sqlite, postgres)", config.Database.Driver)
	}

	// Validate DSN is not empty
	if config.Database.DSN == "" {
		return fmt.Errorf("database DSN cannot be empty")
	}

	// Validate events publisher
	switch config.Events.Publisher {
	case "channel", "pubsub":
		// Valid publishers
	default:
		return fmt.Errorf("unsupported events publisher: %s (supported: channel, pubsub)", config.Events.Publisher)
	}

	// Validate logging level
	switch config.Logging.Level {
	case "debug", "info", "warn", "error", "fatal":
		// Valid levels
	default:
		return fmt.Errorf("unsupported logging level: %s (supported: debug, info, warn, error, fatal)", config.Logging.Level)
	}

	// Validate logging format
	switch config.Logging.Format {
	case "json", "text":
		// Valid formats
	default:
		return fmt.Errorf("unsupported logging format: %s (supported: json, text)", config.Logging.Format)
	}

	if config.Batcher.FlushIntervalMs <= 0 {
		return fmt.Errorf("batcher flush interval must be positive")
	}
	if config.Batcher.BatchSizeThreshold <= 0 {
		return fmt.Errorf("batcher batch size threshold must be positive")
	}
	if config.Batcher.MaxQueueDepth <= 0 {
		return fmt.Errorf("batcher max queue depth must be positive")
	}

	if config.Outbox.LeaseDurationMs <= 0 {
		return fmt.Errorf("outbox lease duration must be positive")
	}
	if config.Outbox.MaxAttempts <= 0 {
		return fmt.Errorf("outbox max attempts must be positive")
	}
	if config.Outbox.WorkerCount <= 0 {
		return fmt.Errorf("outbox worker count must be positive")
	}

	return nil
}

// GetSQLiteDSN returns a SQLite DSN for the given database file
func GetSQLiteDSN(dbFile string) string {
	return fmt.Sprintf("file:%s?cache=shared&mode=rwc", dbFile)
}

// GetPostgresDSN returns a PostgreSQL DSN with the given parameters
func GetPostgresDSN(host, user, password, dbname string, port int, sslmode string) string {
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
		host, user, password, dbname, port, sslmode)
}