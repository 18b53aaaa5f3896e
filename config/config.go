package config

import (
	"os"
	"time"

	"github.com/caarlos0/env/v6"
	logger "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Backend    BackendConfig    `yaml:"backend"`
	Channel    ChannelConfig    `yaml:"channel"`
	Board      BoardConfig      `yaml:"board"`
	Database   DatabaseConfig   `yaml:"database"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
}

// ServerConfig holds the staff-screen API configuration.
type ServerConfig struct {
	Port            int     `yaml:"port" env:"SERVER_PORT"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec" env:"RATE_LIMIT_PER_SEC"`
	RateLimitBurst  int     `yaml:"rate_limit_burst" env:"RATE_LIMIT_BURST"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds" env:"CACHE_TTL_SECONDS"`
}

// BackendConfig holds the connection settings for the cafe backend REST API.
type BackendConfig struct {
	BaseURL        string        `yaml:"base_url" env:"BACKEND_BASE_URL"`
	Token          string        `yaml:"token" env:"BACKEND_TOKEN"`
	TimeoutSeconds int           `yaml:"timeout_seconds" env:"BACKEND_TIMEOUT_SECONDS"`
	Timeout        time.Duration `yaml:"-" env:"-"`
}

// ChannelConfig holds the live update channel (WebSocket) settings.
type ChannelConfig struct {
	URL                 string        `yaml:"url" env:"CHANNEL_URL"`
	ReconnectSeconds    int           `yaml:"reconnect_seconds" env:"CHANNEL_RECONNECT_SECONDS"`
	ReconnectMaxSeconds int           `yaml:"reconnect_max_seconds" env:"CHANNEL_RECONNECT_MAX_SECONDS"`
	Reconnect           time.Duration `yaml:"-" env:"-"`
	ReconnectMax        time.Duration `yaml:"-" env:"-"`
}

// BoardConfig holds the order board behaviour settings.
type BoardConfig struct {
	PageSize       int           `yaml:"page_size" env:"BOARD_PAGE_SIZE"`
	RemovalDelayMS int           `yaml:"removal_delay_ms" env:"BOARD_REMOVAL_DELAY_MS"`
	ResetDelayMS   int           `yaml:"reset_delay_ms" env:"BOARD_RESET_DELAY_MS"`
	PrepTTLMinutes int           `yaml:"prep_ttl_minutes" env:"BOARD_PREP_TTL_MINUTES"`
	RemovalDelay   time.Duration `yaml:"-" env:"-"`
	ResetDelay     time.Duration `yaml:"-" env:"-"`
	PrepTTL        time.Duration `yaml:"-" env:"-"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver" env:"DATABASE_DRIVER"`
	DSN                    string `yaml:"dsn" env:"DATABASE_DSN"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key" env:"VAPID_PUBLIC_KEY"`
	PrivateKey string `yaml:"vapid_private_key" env:"VAPID_PRIVATE_KEY"`
	Subject    string `yaml:"subject" env:"VAPID_SUBJECT"`
	TTL        int    `yaml:"ttl"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size" env:"WORKER_POOL_SIZE"`
}

// Load reads the configuration from the given path, then applies environment
// variable overrides on top of the file values.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, err
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8090
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 300
	}

	if cfg.Backend.TimeoutSeconds <= 0 {
		cfg.Backend.TimeoutSeconds = 30
	}
	cfg.Backend.Timeout = time.Duration(cfg.Backend.TimeoutSeconds) * time.Second

	if cfg.Channel.ReconnectSeconds <= 0 {
		cfg.Channel.ReconnectSeconds = 1
	}
	if cfg.Channel.ReconnectMaxSeconds <= 0 {
		cfg.Channel.ReconnectMaxSeconds = 30
	}
	cfg.Channel.Reconnect = time.Duration(cfg.Channel.ReconnectSeconds) * time.Second
	cfg.Channel.ReconnectMax = time.Duration(cfg.Channel.ReconnectMaxSeconds) * time.Second

	if cfg.Board.PageSize <= 0 {
		cfg.Board.PageSize = 20
	}
	if cfg.Board.RemovalDelayMS <= 0 {
		cfg.Board.RemovalDelayMS = 300
	}
	if cfg.Board.ResetDelayMS <= 0 {
		cfg.Board.ResetDelayMS = 200
	}
	if cfg.Board.PrepTTLMinutes <= 0 {
		// Preparation flags are advisory; keep them around for a shift.
		cfg.Board.PrepTTLMinutes = 12 * 60
	}
	cfg.Board.RemovalDelay = time.Duration(cfg.Board.RemovalDelayMS) * time.Millisecond
	cfg.Board.ResetDelay = time.Duration(cfg.Board.ResetDelayMS) * time.Millisecond
	cfg.Board.PrepTTL = time.Duration(cfg.Board.PrepTTLMinutes) * time.Minute

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "boardd.db"
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		logger.Warning("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}
}
