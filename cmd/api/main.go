package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/icloudbridge/bridge/internal/asset"
	"github.com/icloudbridge/bridge/internal/auth"
	"github.com/icloudbridge/bridge/internal/config"
	"github.com/icloudbridge/bridge/internal/handler"
	"github.com/icloudbridge/bridge/internal/logging"
	"github.com/icloudbridge/bridge/internal/metrics"
	"github.com/icloudbridge/bridge/internal/pagination"
	"github.com/icloudbridge/bridge/internal/repository"
	"github.com/icloudbridge/bridge/internal/service"
	"github.com/icloudbridge/bridge/internal/settings"
)

func main() {
	if err := run(); err != nil {
		slog.Error("bridge failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if envErr != nil {
		slog.Warn("no .env file found, using environment variables")
	}

	mgr, err := settings.NewManager(cfg.SettingsPath)
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}

	db, err := repository.NewDB(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	blobs, err := repository.OpenBlobStore(cfg.BlobPath)
	if err != nil {
		return err
	}
	defer blobs.Close()

	if cfg.CloudBaseURL == "" {
		slog.Warn("CLOUD_BASE_URL not set, only resident assets can be served")
	}
	lib := repository.NewLibrary(db, blobs, repository.NewCloudClient(cfg.CloudBaseURL, nil))
	fetcher := asset.NewFetcher(lib, cfg.AssetRetryAfter)

	limits := pagination.Limits{Default: cfg.PageDefaultLimit, Max: cfg.PageMaxLimit}
	handlers := handler.Handlers{
		Reminders: handler.NewReminderHandler(service.NewReminderService(lib, mgr)),
		Calendars: handler.NewCalendarHandler(service.NewCalendarService(lib, mgr)),
		Photos:    handler.NewPhotoHandler(service.NewPhotoService(lib, fetcher, mgr, limits, cfg.AssetWaitTimeout)),
	}
	router := handler.NewRouter(handlers, handler.RouterConfig{
		Authorizer:     auth.NewAuthorizer(mgr),
		CORSOrigins:    cfg.CORSOrigins,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		AssetPollLimit: cfg.AssetPollLimit,
	})

	jobs := cron.New()
	_, err = jobs.AddFunc(cfg.SettingsReloadSchedule, func() {
		changed, err := mgr.ReloadIfChanged()
		if changed || err != nil {
			metrics.RecordSettingsReload(err)
		}
		if err != nil {
			slog.Error("settings reload failed", "error", err)
		}
		if n := fetcher.Sweep(cfg.AssetSweepAfter); n > 0 {
			slog.Info("swept unclaimed asset failures", "count", n)
		}
		if err := blobs.CollectGarbage(); err != nil {
			slog.Warn("blob garbage collection failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("scheduling settings reload: %w", err)
	}
	jobs.Start()

	port := cfg.ListenPort(mgr.Snapshot().Port)
	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, strconv.Itoa(port)),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", srv.Addr, "env", cfg.Env,
			"remote_access", mgr.Snapshot().RemoteAccess)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

loop:
	for {
		select {
		case <-hup:
			err := mgr.Reload()
			metrics.RecordSettingsReload(err)
			if err != nil {
				slog.Error("settings reload failed", "error", err)
			}
		case err := <-serveErr:
			return fmt.Errorf("server error: %w", err)
		case <-quit:
			break loop
		}
	}

	slog.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	<-jobs.Stop().Done()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced shutdown: %w", err)
	}
	if err := fetcher.Drain(ctx); err != nil {
		slog.Warn("asset downloads still running at exit", "error", err)
	}

	slog.Info("server stopped")
	return nil
}
