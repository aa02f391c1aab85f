// Package config holds process configuration for the tracker service.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"`
	Addr      string `koanf:"addr"`

	PostgresDSN string `koanf:"postgres_dsn"`
	ElasticURL  string `koanf:"elastic_url"`

	CodeforcesBaseURL string        `koanf:"codeforces_base_url"`
	HTTPTimeout       time.Duration `koanf:"http_timeout"`
	// SubmissionCount bounds user.status to the most recent N submissions.
	SubmissionCount int `koanf:"submission_count"`

	// Nightly batch: first firing at SyncHour:SyncMinute in SyncTimezone, then every SyncInterval.
	SyncHour        int           `koanf:"sync_hour"`
	SyncMinute      int           `koanf:"sync_minute"`
	SyncInterval    time.Duration `koanf:"sync_interval"`
	SyncTimezone    string        `koanf:"sync_timezone"`
	SyncConcurrency int           `koanf:"sync_concurrency"`
	RunOnStart      bool          `koanf:"run_on_start"`

	OutboxPollInterval time.Duration `koanf:"outbox_poll_interval"`
	OutboxBatchSize    int           `koanf:"outbox_batch_size"`
	DLQRetryInterval   time.Duration `koanf:"dlq_retry_interval"`

	StatsExcludeUnrated bool `koanf:"stats_exclude_unrated"`
	ActivityDays        int  `koanf:"activity_days"`

	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`
	SeedHandles        []string `koanf:"seed_handles"`
}

func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "json",
		Addr:                ":8080",
		CodeforcesBaseURL:   "https://codeforces.com/api",
		HTTPTimeout:         30 * time.Second,
		SubmissionCount:     1000,
		SyncHour:            2,
		SyncMinute:          0,
		SyncInterval:        24 * time.Hour,
		SyncTimezone:        "UTC",
		SyncConcurrency:     4,
		OutboxPollInterval:  time.Second,
		OutboxBatchSize:     200,
		DLQRetryInterval:    30 * time.Second,
		ActivityDays:        365,
		CORSAllowedOrigins:  []string{"http://localhost:3000", "http://localhost:5173"},
	}
}

// Load layers defaults, an optional YAML file (TRACKER_CONFIG) and TRACKER_* env vars.
// A .env file in the working directory is applied to the environment first.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")

	if path := os.Getenv("TRACKER_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider("TRACKER_", ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), "tracker_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := *New()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.PostgresDSN == "":
		return fmt.Errorf("%w: postgres_dsn must not be empty", ErrInvalidConfig)
	case c.SyncHour < 0 || c.SyncHour > 23:
		return fmt.Errorf("%w: sync_hour %d out of range", ErrInvalidConfig, c.SyncHour)
	case c.SyncMinute < 0 || c.SyncMinute > 59:
		return fmt.Errorf("%w: sync_minute %d out of range", ErrInvalidConfig, c.SyncMinute)
	case c.SyncInterval <= 0:
		return fmt.Errorf("%w: sync_interval must be positive", ErrInvalidConfig)
	case c.SyncConcurrency <= 0:
		return fmt.Errorf("%w: sync_concurrency must be positive", ErrInvalidConfig)
	case c.SubmissionCount <= 0:
		return fmt.Errorf("%w: submission_count must be positive", ErrInvalidConfig)
	case c.ActivityDays <= 0:
		return fmt.Errorf("%w: activity_days must be positive", ErrInvalidConfig)
	}
	if _, err := time.LoadLocation(c.SyncTimezone); err != nil {
		return fmt.Errorf("%w: sync_timezone: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Location returns the scheduler time zone. Validate has already checked it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.SyncTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
