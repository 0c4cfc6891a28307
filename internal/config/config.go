package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Env  string `env:"ENV" envDefault:"development"`
	Host string `env:"BRIDGE_HOST" envDefault:"0.0.0.0"`
	// Port overrides the port stored in the settings file when non-zero.
	Port int `env:"BRIDGE_PORT" envDefault:"0"`

	DatabaseDriver string `env:"DATABASE_DRIVER" envDefault:"sqlite"`
	DatabaseDSN    string `env:"DATABASE_DSN" envDefault:"bridge.db"`
	BlobPath       string `env:"BLOB_PATH" envDefault:"blobs"`
	SettingsPath   string `env:"SETTINGS_PATH" envDefault:"settings.yaml"`
	CloudBaseURL   string `env:"CLOUD_BASE_URL"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	PageDefaultLimit int `env:"PAGE_DEFAULT_LIMIT" envDefault:"100"`
	PageMaxLimit     int `env:"PAGE_MAX_LIMIT" envDefault:"500"`

	AssetRetryAfter  time.Duration `env:"ASSET_RETRY_AFTER" envDefault:"5s"`
	AssetWaitTimeout time.Duration `env:"ASSET_WAIT_TIMEOUT" envDefault:"60s"`
	AssetSweepAfter  time.Duration `env:"ASSET_SWEEP_AFTER" envDefault:"10m"`

	SettingsReloadSchedule string `env:"SETTINGS_RELOAD_SCHEDULE" envDefault:"@every 30s"`

	RateLimitRPS   float64  `env:"RATE_LIMIT_RPS" envDefault:"20"`
	RateLimitBurst int      `env:"RATE_LIMIT_BURST" envDefault:"40"`
	AssetPollLimit int      `env:"ASSET_POLL_LIMIT" envDefault:"120"`
	CORSOrigins    []string `env:"CORS_ORIGINS" envSeparator:","`
}

var (
	ErrInvalidDriver = errors.New("DATABASE_DRIVER must be sqlite or mysql")
	ErrInvalidLimits = errors.New("PAGE_DEFAULT_LIMIT must be positive and not above PAGE_MAX_LIMIT")
	ErrInvalidPort   = errors.New("BRIDGE_PORT must be between 0 and 65535")
	ErrMemoryInProd  = errors.New("an in-memory database cannot be used in production")
)

// Load reads the configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.DatabaseDriver != "sqlite" && c.DatabaseDriver != "mysql" {
		return fmt.Errorf("%w: %q", ErrInvalidDriver, c.DatabaseDriver)
	}
	if c.PageDefaultLimit <= 0 || c.PageMaxLimit < c.PageDefaultLimit {
		return ErrInvalidLimits
	}
	if c.Port < 0 || c.Port > 65535 {
		return ErrInvalidPort
	}
	if c.IsProduction() && c.DatabaseDriver == "sqlite" && c.DatabaseDSN == ":memory:" {
		return ErrMemoryInProd
	}
	return nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// ListenPort picks the configured override or the port from the settings file.
func (c Config) ListenPort(settingsPort int) int {
	if c.Port > 0 {
		return c.Port
	}
	return settingsPort
}
