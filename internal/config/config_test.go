package config

import (
	"errors"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	if cfg.Env != "development" || cfg.Host != "0.0.0.0" || cfg.Port != 0 {
		t.Errorf("server defaults = %q %q %d", cfg.Env, cfg.Host, cfg.Port)
	}
	if cfg.DatabaseDriver != "sqlite" || cfg.DatabaseDSN != "bridge.db" {
		t.Errorf("database defaults = %q %q", cfg.DatabaseDriver, cfg.DatabaseDSN)
	}
	if cfg.PageDefaultLimit != 100 || cfg.PageMaxLimit != 500 {
		t.Errorf("page defaults = %d %d", cfg.PageDefaultLimit, cfg.PageMaxLimit)
	}
	if cfg.AssetRetryAfter != 5*time.Second || cfg.AssetWaitTimeout != time.Minute || cfg.AssetSweepAfter != 10*time.Minute {
		t.Errorf("asset defaults = %v %v %v", cfg.AssetRetryAfter, cfg.AssetWaitTimeout, cfg.AssetSweepAfter)
	}
	if cfg.SettingsReloadSchedule != "@every 30s" {
		t.Errorf("SettingsReloadSchedule = %q", cfg.SettingsReloadSchedule)
	}
	if len(cfg.CORSOrigins) != 0 {
		t.Errorf("CORSOrigins = %v, want none", cfg.CORSOrigins)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("BRIDGE_PORT", "8443")
	t.Setenv("DATABASE_DRIVER", "mysql")
	t.Setenv("ASSET_RETRY_AFTER", "2s")
	t.Setenv("CORS_ORIGINS", "http://localhost:3000,https://app.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.Port != 8443 || cfg.DatabaseDriver != "mysql" || cfg.AssetRetryAfter != 2*time.Second {
		t.Errorf("Load() = %+v", cfg)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://app.example.com" {
		t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
	}
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want error
	}{
		{"driver", map[string]string{"DATABASE_DRIVER": "postgres"}, ErrInvalidDriver},
		{"limits", map[string]string{"PAGE_DEFAULT_LIMIT": "600"}, ErrInvalidLimits},
		{"port", map[string]string{"BRIDGE_PORT": "70000"}, ErrInvalidPort},
		{"memory in production", map[string]string{"ENV": "production", "DATABASE_DSN": ":memory:"}, ErrMemoryInProd},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); !errors.Is(err, tt.want) {
				t.Errorf("Load() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLoadRejectsMalformedDuration(t *testing.T) {
	t.Setenv("ASSET_WAIT_TIMEOUT", "soon")
	if _, err := Load(); err == nil {
		t.Fatal("Load() expected error for malformed duration")
	}
}

func TestListenPort(t *testing.T) {
	if got := (Config{}).ListenPort(31337); got != 31337 {
		t.Errorf("ListenPort() = %d, want settings port", got)
	}
	if got := (Config{Port: 8080}).ListenPort(31337); got != 8080 {
		t.Errorf("ListenPort() = %d, want override", got)
	}
}
