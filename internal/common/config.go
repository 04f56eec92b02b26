package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration for the scrape & cascade engine.
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Session     SessionConfig   `toml:"session"`
	Fetcher     FetcherConfig   `toml:"fetcher"`
	Taxa        TaxaConfig      `toml:"taxa"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
	Logging     LoggingConfig   `toml:"logging"`
	Workers     WorkersConfig   `toml:"workers"`
}

// ServerConfig configures the optional admin/telemetry endpoint.
type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

// StorageConfig selects and configures the pluggable repository backend.
type StorageConfig struct {
	Backend string       `toml:"backend"` // "badger" (only backend wired in this module)
	Badger  BadgerConfig `toml:"badger"`
}

// BadgerConfig holds BadgerDB-specific settings for the LRT/LAT/cascade repository.
type BadgerConfig struct {
	Path           string `toml:"path"`
	ResetOnStartup bool   `toml:"reset_on_startup"`
}

// SessionConfig configures the on-disk session scratchpad.
type SessionConfig struct {
	RootDir string `toml:"root_dir"`
}

// FetcherConfig configures the HTTP fetcher's retry/backoff and rate limiting.
type FetcherConfig struct {
	BaseURL           string        `toml:"base_url"`
	UserAgent         string        `toml:"user_agent"`
	RequestTimeout    time.Duration `toml:"request_timeout"`
	RequestsPerSecond float64       `toml:"requests_per_second"` // per-domain throttle
	RetryInitialDelay time.Duration `toml:"retry_initial_delay"`
	RetryFactor       float64       `toml:"retry_factor"`
	RetryMaxAttempts  int           `toml:"retry_max_attempts"`
	RetryMaxDelay     time.Duration `toml:"retry_max_delay"`
}

// TaxaConfig configures the taxa classifier's chunking threshold.
type TaxaConfig struct {
	LargeTextThreshold int `toml:"large_text_threshold"` // default 200000 characters
}

// SchedulerConfig configures the daily scrape session trigger.
type SchedulerConfig struct {
	Enabled      bool   `toml:"enabled"`
	Schedule     string `toml:"schedule"` // cron expression, e.g. "0 5 * * *"
	LookbackDays int    `toml:"lookback_days"`
}

// LoggingConfig configures the arbor-backed structured logger.
type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // default: "15:04:05.000"
}

// WorkersConfig configures the per-law outer worker pool.
type WorkersConfig struct {
	Concurrency int `toml:"concurrency"` // number of laws parsed concurrently
}

// NewDefaultConfig returns a configuration with production-sane defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Backend: "badger",
			Badger: BadgerConfig{
				Path: "./data/lrt",
			},
		},
		Session: SessionConfig{
			RootDir: "./data/sessions",
		},
		Fetcher: FetcherConfig{
			BaseURL:           "https://www.legislation.gov.uk",
			UserAgent:         "lrt-engine/1.0 (+https://www.legislation.gov.uk)",
			RequestTimeout:    30 * time.Second,
			RequestsPerSecond: 2,
			RetryInitialDelay: 250 * time.Millisecond,
			RetryFactor:       2,
			RetryMaxAttempts:  4,
			RetryMaxDelay:     4 * time.Second,
		},
		Taxa: TaxaConfig{
			LargeTextThreshold: 200000,
		},
		Scheduler: SchedulerConfig{
			Enabled:      true,
			Schedule:     "0 5 * * *", // daily at 05:00
			LookbackDays: 1,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout", "file"},
			TimeFormat: "15:04:05.000",
		},
		Workers: WorkersConfig{
			Concurrency: 4,
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> environment.
// path may be empty, in which case only defaults and environment overrides apply.
func LoadFromFile(path string) (*Config, error) {
	config := NewDefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)
	return config, nil
}

func applyEnvOverrides(config *Config) {
	if env := os.Getenv("LRT_ENV"); env != "" {
		config.Environment = env
	}
	if port := os.Getenv("LRT_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if path := os.Getenv("LRT_BADGER_PATH"); path != "" {
		config.Storage.Badger.Path = path
	}
	if dir := os.Getenv("LRT_SESSION_ROOT_DIR"); dir != "" {
		config.Session.RootDir = dir
	}
	if baseURL := os.Getenv("LRT_FETCHER_BASE_URL"); baseURL != "" {
		config.Fetcher.BaseURL = baseURL
	}
	if level := os.Getenv("LRT_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if schedule := os.Getenv("LRT_SCHEDULER_SCHEDULE"); schedule != "" {
		config.Scheduler.Schedule = schedule
	}
	if concurrency := os.Getenv("LRT_WORKERS_CONCURRENCY"); concurrency != "" {
		if c, err := strconv.Atoi(concurrency); err == nil {
			config.Workers.Concurrency = c
		}
	}
}

// ValidateSchedule validates a cron schedule expression.
func ValidateSchedule(schedule string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	return nil
}

// IsProduction returns true if the environment is set to production.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
