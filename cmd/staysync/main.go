// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Command staysync runs the client synchronization daemon: it keeps the
// stream to the active tenant open, reconciles notifications and serves the
// local status API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/staysync/internal/api"
	"github.com/ManuGH/staysync/internal/api/middleware"
	"github.com/ManuGH/staysync/internal/bus"
	"github.com/ManuGH/staysync/internal/config"
	"github.com/ManuGH/staysync/internal/core"
	"github.com/ManuGH/staysync/internal/health"
	sslog "github.com/ManuGH/staysync/internal/log"
	"github.com/ManuGH/staysync/internal/notifications"
	"github.com/ManuGH/staysync/internal/platform/httpx"
	platformnet "github.com/ManuGH/staysync/internal/platform/net"
	"github.com/ManuGH/staysync/internal/requests"
	"github.com/ManuGH/staysync/internal/stream"
	"github.com/ManuGH/staysync/internal/telemetry"
	"github.com/ManuGH/staysync/internal/tenant"
)

var (
	version   = "v0.1.0"
	commit    = "none"
	buildDate = "unknown"
)

const serviceName = "staysync"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// Safe defaults until config is loaded
	sslog.Configure(sslog.Config{Level: "info", Service: serviceName, Version: version})
	logger := sslog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	path := strings.TrimSpace(*configPath)
	loader := config.NewLoader(path, version)
	cfg, err := loader.Load()
	if err != nil {
		logger.Fatal().
			Err(err).
			Str(sslog.FieldEvent, "config.load_failed").
			Str("config_path", path).
			Msg("failed to load configuration")
	}

	sslog.Configure(sslog.Config{Level: cfg.Log.Level, Service: serviceName, Version: cfg.Version})
	logger = sslog.WithComponent("daemon")

	for _, key := range loader.UnknownEnvKeys(os.Environ()) {
		logger.Warn().Str("key", key).Msg("ignoring unknown environment variable")
	}

	logger.Info().
		Str(sslog.FieldEvent, "startup").
		Str("version", version).
		Str("commit", commit).
		Str("build_date", buildDate).
		Str(sslog.FieldBaseURL, platformnet.SanitizeURL(cfg.BaseURL)).
		Str("addr", cfg.API.Listen).
		Str("store", cfg.Store.Backend).
		Msg("starting staysync")

	if err := run(ctx, cfg); err != nil {
		logger.Fatal().
			Err(err).
			Str(sslog.FieldEvent, "daemon.failed").
			Msg("daemon failed")
	}
	logger.Info().Msg("daemon exiting")
}

// run wires the components and blocks until ctx is done or a component fails.
func run(ctx context.Context, cfg config.AppConfig) error {
	logger := sslog.WithComponent("daemon")

	tp, err := telemetry.NewProvider(ctx, telemetryConfig(cfg))
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("tracer shutdown failed")
		}
	}()

	store, err := tenant.Open(ctx, tenantConfig(cfg))
	if err != nil {
		return fmt.Errorf("tenant store: %w", err)
	}

	c, sc, err := buildCore(cfg, store, bus.Default())
	if err != nil {
		_ = store.Close()
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.Warn().Err(err).Msg("core close failed")
		}
	}()

	if err := c.Restore(ctx, cfg.Tenant); err != nil {
		// The stream keeps reconnecting and the next signal refetches.
		logger.Warn().Err(err).Msg("initial tenant restore incomplete")
	}

	hm := health.NewManager(version)
	hm.RegisterChecker(health.NewStreamChecker(sc))
	hm.RegisterChecker(health.NewStoreChecker(store))

	srv, err := api.New(api.Config{Core: c, Stack: stackConfig(cfg), Health: hm})
	if err != nil {
		return err
	}
	httpSrv := srv.HTTPServer(cfg.API.Listen)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.Run(gctx) })
	g.Go(func() error {
		logger.Info().Str("addr", cfg.API.Listen).Msg("status API listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("status API: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.API.ShutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// buildCore constructs the stream client, the reconcilers and the core.
// The API client and the stream share one cookie jar.
func buildCore(cfg config.AppConfig, store tenant.Store, registry *bus.Registry) (*core.Core, *stream.Client, error) {
	jar := httpx.NewJar()
	apiClient := httpx.NewAPIClient(cfg.Notifications.RequestTimeout, jar)

	streamLogger := sslog.WithComponent("stream")
	sc, err := stream.New(stream.Config{
		BaseURL:        cfg.BaseURL,
		PathTemplate:   cfg.Stream.PathTemplate,
		HTTPClient:     httpx.NewStreamClient(jar),
		Publisher:      registry,
		InitialBackoff: cfg.Stream.InitialBackoff,
		MaxBackoff:     cfg.Stream.MaxBackoff,
		Logger:         &streamLogger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("stream client: %w", err)
	}

	notifLogger := sslog.WithComponent("notifications")
	notif, err := notifications.New(notifications.Config{
		API:                notifications.NewHTTPClient(cfg.BaseURL, apiClient),
		Filter:             notifications.Filter(cfg.Notifications.Filter),
		PollInterval:       cfg.Notifications.PollInterval,
		MinRefreshInterval: cfg.Notifications.MinRefreshInterval,
		Logger:             &notifLogger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("notifications: %w", err)
	}

	feedLogger := sslog.WithComponent("requests")
	feed, err := requests.NewFeed(requests.NewHTTPLister(cfg.BaseURL, apiClient), &feedLogger)
	if err != nil {
		return nil, nil, fmt.Errorf("request feed: %w", err)
	}

	coreLogger := sslog.WithComponent("core")
	c, err := core.New(core.Config{
		Store:         store,
		Stream:        sc,
		Notifications: notif,
		Feed:          feed,
		Bus:           registry,
		Logger:        &coreLogger,
	})
	if err != nil {
		return nil, nil, err
	}
	return c, sc, nil
}

func tenantConfig(cfg config.AppConfig) tenant.Config {
	return tenant.Config{
		Backend: cfg.Store.Backend,
		Dir:     cfg.DataDir,
		Redis: tenant.RedisConfig{
			Addr:     cfg.Store.RedisAddr,
			Password: cfg.Store.RedisPassword,
			DB:       cfg.Store.RedisDB,
			Prefix:   cfg.Store.RedisPrefix,
		},
	}
}

func telemetryConfig(cfg config.AppConfig) telemetry.Config {
	return telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    serviceName,
		ServiceVersion: cfg.Version,
		Environment:    cfg.Telemetry.Environment,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	}
}

func stackConfig(cfg config.AppConfig) middleware.StackConfig {
	sc := middleware.StackConfig{
		EnableSecurityHeaders: true,
		EnableMetrics:         true,
		EnableLogging:         true,
		RateLimit:             cfg.API.RateLimit,
		AllowedOrigins:        cfg.API.AllowedOrigins,
	}
	if cfg.Telemetry.Enabled {
		sc.TracingService = serviceName
	}
	return sc
}
