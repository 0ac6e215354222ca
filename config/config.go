package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Vendor    VendorConfig    `yaml:"vendor"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Notifier  NotifierConfig  `yaml:"notifier"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// DatabaseConfig holds the database connection configuration. An empty DSN
// selects the in-memory backend.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// VendorConfig holds the Hik-Connect portal client configuration.
type VendorConfig struct {
	// BaseURL overrides the built-in portal URL; used by tests.
	BaseURL        string        `yaml:"base_url"`
	TimeoutSeconds int           `yaml:"timeout_seconds"`
	Timeout        time.Duration `yaml:"-"`
	// LoginPublicKey is an optional PEM-encoded RSA key. When set, the
	// password in the ticket login payload is encrypted with it.
	LoginPublicKey string `yaml:"login_public_key"`
	HTTPProxy      string `yaml:"http_proxy"`
}

// SchedulerConfig holds the background status-check configuration.
type SchedulerConfig struct {
	Enabled         bool          `yaml:"enabled"`
	IntervalMinutes int           `yaml:"interval_minutes"`
	Interval        time.Duration `yaml:"-"`
}

// NotifierConfig holds the email alert configuration.
type NotifierConfig struct {
	SMTPHost       string `yaml:"smtp_host"`
	SMTPPort       int    `yaml:"smtp_port"`
	From           string `yaml:"from"`
	Username       string `yaml:"username"`
	Password       string `yaml:"password"`
	WorkerPoolSize int    `yaml:"worker_pool_size"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}

	if cfg.Vendor.TimeoutSeconds <= 0 {
		cfg.Vendor.TimeoutSeconds = 30
	}
	cfg.Vendor.Timeout = time.Duration(cfg.Vendor.TimeoutSeconds) * time.Second

	if cfg.Scheduler.IntervalMinutes <= 0 {
		cfg.Scheduler.IntervalMinutes = 15
	}
	cfg.Scheduler.Interval = time.Duration(cfg.Scheduler.IntervalMinutes) * time.Minute

	if cfg.Notifier.WorkerPoolSize <= 0 {
		cfg.Notifier.WorkerPoolSize = 1
	}
	if cfg.Notifier.SMTPPort <= 0 {
		cfg.Notifier.SMTPPort = 587
	}

	return &cfg, nil
}
