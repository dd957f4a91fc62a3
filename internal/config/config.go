package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the reconciler
type Config struct {
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"logLevel"`
	Server      struct {
		Port int `mapstructure:"port"`
	} `mapstructure:"server"`
	Database struct {
		PostgresDSN         string `mapstructure:"postgresDSN"`
		PostgresAutoMigrate bool   `mapstructure:"postgresAutoMigrate"`
	} `mapstructure:"database"`
	NATS struct {
		Enabled              bool   `mapstructure:"enabled"`
		URL                  string `mapstructure:"url"`
		OutcomeStream        string `mapstructure:"outcomeStream"`
		OutcomeSubjectPrefix string `mapstructure:"outcomeSubjectPrefix"`
		OutcomeMaxAgeDays    int    `mapstructure:"outcomeMaxAgeDays"`
	} `mapstructure:"nats"`
	Metrics struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"metrics"`
	Matching MatchingConfig   `mapstructure:"matching"`
	Batch    BatchConfig      `mapstructure:"batch"`
	Worker   WorkerPoolConfig `mapstructure:"worker"`
}

// MatchingConfig holds the tunables of the transfer-matching engine
type MatchingConfig struct {
	// WindowMillis is the primary-pass time window around the anchor.
	WindowMillis int64 `mapstructure:"windowMillis"`
	// QueueCallees maps a queue extension to the callee identifier expected
	// on the matching inbound call. Empty means use the built-in table.
	QueueCallees map[string]string `mapstructure:"queueCallees"`
	// QueueDefaults maps a queue extension to the agent extension stamped
	// when no inbound match is found at all. Empty by default.
	QueueDefaults map[string]string `mapstructure:"queueDefaults"`
}

// BatchConfig bounds the record sets fetched for one reconciliation pass
type BatchConfig struct {
	SourceLookback    time.Duration `mapstructure:"sourceLookback"`    // how far back to fetch source calls
	CandidateLookback time.Duration `mapstructure:"candidateLookback"` // how far back to fetch inbound candidates
	Limit             int           `mapstructure:"limit"`             // max records per fetch, 0 = unbounded
}

// WorkerPoolConfig holds configuration for the reconciliation worker pool
type WorkerPoolConfig struct {
	PoolSize   int           `mapstructure:"poolSize"`   // Number of workers
	QueueSize  int           `mapstructure:"queueSize"`  // Task queue buffer size
	MaxBlock   time.Duration `mapstructure:"maxBlock"`   // Max time to wait for in-flight tasks on shutdown
	ExpiryTime time.Duration `mapstructure:"expiryTime"` // Idle worker expiry time
}

// LoadConfig reads configuration from file or environment variables
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("environment", "development")
	v.SetDefault("logLevel", "info")
	v.SetDefault("server.port", 8080)
	v.SetDefault("metrics.enabled", true)

	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.outcomeStream", "reconcile_outcomes")
	v.SetDefault("nats.outcomeSubjectPrefix", "v1.reconcile.outcome")
	v.SetDefault("nats.outcomeMaxAgeDays", 7)

	v.SetDefault("matching.windowMillis", 120_000)

	v.SetDefault("batch.sourceLookback", 24*time.Hour)
	v.SetDefault("batch.candidateLookback", 24*time.Hour)
	v.SetDefault("batch.limit", 0)

	v.SetDefault("worker.poolSize", 10)
	v.SetDefault("worker.queueSize", 10000)
	v.SetDefault("worker.maxBlock", time.Second)
	v.SetDefault("worker.expiryTime", time.Minute)

	// Config file settings
	v.SetConfigName("default")
	v.SetConfigType("yaml")

	// Add lookup paths
	if path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath("$HOME/.call-transfer-reconciler")
	v.AddConfigPath("/etc/call-transfer-reconciler")

	// Try to read from config file
	if err := v.ReadInConfig(); err != nil {
		// It's ok if config file is not found, we'll use env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Override with environment variables
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Map environment variables to config fields
	bindEnvs(v, Config{})

	// Read directly from ENV for critical values
	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		v.Set("database.postgresDSN", dsn)
	}
	if lgLevel := os.Getenv("LOG_LEVEL"); lgLevel != "" {
		v.Set("logLevel", lgLevel)
	}
	if url := os.Getenv("NATS_URL"); url != "" {
		v.Set("nats.url", url)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	return &config, nil
}

// bindEnvs recursively binds environment variables to config struct fields
func bindEnvs(v *viper.Viper, cfg interface{}, parts ...string) {
	ifv := reflect.ValueOf(cfg)
	ift := reflect.TypeOf(cfg)
	for i := 0; i < ift.NumField(); i++ {
		fieldVal := ifv.Field(i)
		fieldType := ift.Field(i)

		tag := fieldType.Tag.Get("mapstructure")
		if tag == "" || tag == "-" {
			continue
		}

		path := append(parts, tag)
		key := strings.Join(path, ".")

		// If it's a struct, recursively bind its fields
		if fieldType.Type.Kind() == reflect.Struct {
			bindEnvs(v, fieldVal.Interface(), path...)
			continue
		}

		_ = v.BindEnv(key)
	}
}
