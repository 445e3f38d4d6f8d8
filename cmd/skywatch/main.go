package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/skywatch/skywatch/internal/api"
	"github.com/skywatch/skywatch/internal/auth"
	"github.com/skywatch/skywatch/internal/bus"
	"github.com/skywatch/skywatch/internal/clock"
	"github.com/skywatch/skywatch/internal/control"
	"github.com/skywatch/skywatch/internal/metrics"
	"github.com/skywatch/skywatch/internal/stream"
	"github.com/skywatch/skywatch/internal/track"
	"github.com/skywatch/skywatch/web"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	addr := os.Getenv("SKYWATCH_HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	authCfg, err := loadAuthConfig(logger)
	if err != nil {
		logger.Error("invalid auth configuration", "error", err)
		os.Exit(1)
	}

	clockCfg := loadClockConfig(logger)
	streamCfg := loadStreamConfig(logger)

	// Notification bus: the engine publishes through it, the WebSocket
	// hub and metrics subscriptions consume from it.
	notifier := bus.New()
	notifier.Subscribe(clock.TopicSeekPointsChanged, func(_ clock.Topic, payload any) {
		if p, ok := payload.(clock.SeekPointsChanged); ok {
			metrics.SetSeekPointCount(len(p.SeekPoints))
		}
	})

	model := clock.NewModel(notifier)
	seekPoints := clock.NewSeekPointRegistry(model, notifier)
	engine := control.NewEngine(model, seekPoints, control.NewTickerScheduler(), logger)

	if err := model.InitializeWindow(clockCfg.Window); err != nil {
		logger.Error("failed to initialize time window", "error", err)
		os.Exit(1)
	}

	catalog := track.NewCatalog()
	if clockCfg.TLEFile != "" {
		if err := catalog.LoadFile(clockCfg.TLEFile, logger); err != nil {
			logger.Warn("failed to load TLE catalog, starting without satellites", "path", clockCfg.TLEFile, "error", err)
		} else {
			metrics.SetCatalogSize(catalog.Len())
			logger.Info("loaded TLE catalog", "path", clockCfg.TLEFile, "count", catalog.Len())
		}
	}

	hub := stream.NewHub(model, catalog, notifier, streamCfg, logger)
	srv := api.NewServer(addr, logger, authCfg, engine, catalog, hub, web.Content)

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The clock starts in real-time tracking; everything else is
	// user-driven.
	engine.RealTime.Start()

	go func() {
		logger.Info("starting server",
			"addr", addr,
			"auth_enabled", authCfg.Enabled,
			"window_hours", clockCfg.Window.Hours(),
			"satellites", catalog.Len(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server listen error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	engine.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func loadAuthConfig(logger *slog.Logger) (auth.Config, error) {
	cfg := auth.Config{}

	enabledStr := os.Getenv("SKYWATCH_AUTH_ENABLED")
	if enabledStr != "" {
		enabled, err := strconv.ParseBool(enabledStr)
		if err != nil {
			return cfg, errors.New("SKYWATCH_AUTH_ENABLED must be a boolean value (true/false/1/0)")
		}
		cfg.Enabled = enabled
	}

	if cfg.Enabled {
		cfg.Token = os.Getenv("SKYWATCH_AUTH_TOKEN")
		if cfg.Token == "" {
			return cfg, errors.New("SKYWATCH_AUTH_TOKEN is required when auth is enabled")
		}
		logger.Info("auth enabled")
	}

	return cfg, nil
}

type clockConfig struct {
	Window  time.Duration
	TLEFile string
}

func loadClockConfig(logger *slog.Logger) clockConfig {
	cfg := clockConfig{
		Window: 24 * time.Hour,
	}

	if v := os.Getenv("SKYWATCH_WINDOW_HOURS"); v != "" {
		n, err := strconv.ParseFloat(v, 64)
		if err != nil || n <= 0 {
			logger.Warn("invalid SKYWATCH_WINDOW_HOURS value, using default", "value", v, "default", 24)
		} else {
			cfg.Window = time.Duration(n * float64(time.Hour))
		}
	}

	cfg.TLEFile = os.Getenv("SKYWATCH_TLE_FILE")

	logger.Info("clock config",
		"window_hours", cfg.Window.Hours(),
		"tle_file", cfg.TLEFile,
	)

	return cfg
}

func loadStreamConfig(logger *slog.Logger) stream.Config {
	cfg := stream.Config{
		MaxConcurrentPerIP: 10,
		UpdateInterval:     time.Second,
	}

	if v := os.Getenv("SKYWATCH_WS_MAX_CONCURRENT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid SKYWATCH_WS_MAX_CONCURRENT value, using default", "value", v, "default", 10)
		} else {
			cfg.MaxConcurrentPerIP = n
		}
	}

	if v := os.Getenv("SKYWATCH_WS_UPDATE_INTERVAL"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 100 {
			logger.Warn("invalid SKYWATCH_WS_UPDATE_INTERVAL value, using default", "value", v, "default", 1000)
		} else {
			cfg.UpdateInterval = time.Duration(n) * time.Millisecond
		}
	}

	if v := os.Getenv("SKYWATCH_TRUST_PROXY"); v != "" {
		trust, err := strconv.ParseBool(v)
		if err != nil {
			logger.Warn("invalid SKYWATCH_TRUST_PROXY value, defaulting to false", "value", v)
		} else {
			cfg.TrustProxy = trust
		}
	}

	logger.Info("stream config",
		"max_concurrent_per_ip", cfg.MaxConcurrentPerIP,
		"update_interval_ms", cfg.UpdateInterval.Milliseconds(),
		"trust_proxy", cfg.TrustProxy,
	)

	return cfg
}
