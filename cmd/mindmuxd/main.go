// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Command mindmuxd is the MindMux orchestration daemon: it loads
// configuration, wires the store, cache, event bus, scheduler, and
// metrics together, and serves the HTTP surface until signaled to stop.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/khuongdo/mindmux/internal/auth"
	"github.com/khuongdo/mindmux/internal/cache"
	"github.com/khuongdo/mindmux/internal/cliadapter"
	"github.com/khuongdo/mindmux/internal/config"
	"github.com/khuongdo/mindmux/internal/events"
	"github.com/khuongdo/mindmux/internal/httpapi"
	"github.com/khuongdo/mindmux/internal/metrics"
	"github.com/khuongdo/mindmux/internal/model"
	"github.com/khuongdo/mindmux/internal/multiplexer"
	"github.com/khuongdo/mindmux/internal/ratelimit"
	"github.com/khuongdo/mindmux/internal/scheduler"
	"github.com/khuongdo/mindmux/internal/store"
	"github.com/khuongdo/mindmux/internal/termproxy"
	"github.com/khuongdo/mindmux/internal/watcher"
)

// watchedAdapterTools lists the CLI adapter binaries the daemon watches
// for on-disk changes; not every operator has every tool installed, so
// missing ones are skipped rather than treated as an error.
var watchedAdapterTools = []string{"claude", "gemini", "opencode"}

var version = "0.1.0"

func main() {
	var (
		configPath  string
		host        string
		port        int
		showVersion bool
		debug       bool
	)

	flag.StringVar(&configPath, "config", "", "Path to config file (default: auto-detect)")
	flag.StringVar(&configPath, "c", "", "Path to config file (short)")
	flag.StringVar(&host, "host", "", "HTTP server host (overrides config)")
	flag.IntVar(&port, "port", 0, "HTTP server port (overrides config)")
	flag.BoolVar(&showVersion, "version", false, "Show version")
	flag.BoolVar(&showVersion, "v", false, "Show version (short)")
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")
	flag.Parse()

	if showVersion {
		fmt.Printf("mindmuxd %s\n", version)
		os.Exit(0)
	}

	log := newLogger(debug)

	if configPath == "" {
		found, err := config.FindConfig()
		if err != nil {
			log.Fatal().Err(err).Msg("locating config")
		}
		configPath = found
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", configPath).Msg("loading config")
	}
	if host != "" {
		cfg.Server.Host = host
	}
	if port != 0 {
		cfg.Server.Port = port
	}

	log.Info().Str("config", configPath).Msg("using config")

	if err := run(context.Background(), cfg, configPath, log); err != nil {
		log.Fatal().Err(err).Msg("mindmuxd exited with error")
	}
}

func newLogger(debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).With().Timestamp().Logger()
}

// run wires every singleton together, starts the HTTP server in the
// background, and blocks until a shutdown signal arrives.
func run(ctx context.Context, cfg *config.Config, configPath string, log zerolog.Logger) error {
	st, err := store.Open(cfg.Store.Path, log)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	c := cache.New()
	if err := c.RebuildFromStore(st); err != nil {
		return fmt.Errorf("rebuild cache from store: %w", err)
	}

	bus := events.NewMemoryEventBus(events.MemoryBusConfig{})
	defer bus.Close()

	driver := multiplexer.NewTmuxDriver()
	adapterFor := func(agentType model.AgentType) cliadapter.Adapter {
		return cliadapter.ForType(string(agentType), driver, log)
	}

	sched := scheduler.New(st, c, bus, adapterFor, log)
	sched.Start(ctx, cfg.SchedulerPollDuration())
	defer sched.Stop()

	validator := auth.NewValidator(cfg.Auth.JWTSecret)
	authz := auth.NewAuthorizer(st)
	limiter := ratelimit.New(ratelimit.Config{Max: cfg.RateLimit.Max, Window: cfg.RateLimitWindowDuration()})

	reg := metrics.New()
	checker := metrics.NewChecker()
	checker.Register("database", true, func(ctx context.Context) error {
		_, err := st.ListAgents()
		return err
	})
	checker.Register("agents", false, func(ctx context.Context) error {
		if len(c.GetAllAgents()) == 0 {
			return fmt.Errorf("no agents registered")
		}
		return nil
	})

	termManager := termproxy.New(log)

	adapterWatcher, err := watcher.NewAdapterWatcher(bus, 2*time.Second)
	if err != nil {
		return fmt.Errorf("start adapter watcher: %w", err)
	}
	defer adapterWatcher.Close()
	if err := adapterWatcher.WatchConfig(configPath); err != nil {
		log.Warn().Err(err).Str("path", configPath).Msg("adapter watcher: could not watch config file")
	}
	adapterWatcher.WatchAdapterBinaries(watchedAdapterTools)

	router := httpapi.NewRouter(httpapi.Dependencies{
		Scheduler:   sched,
		Store:       st,
		Cache:       c,
		Bus:         bus,
		Driver:      driver,
		AdapterFor:  adapterFor,
		Authz:       authz,
		Validator:   validator,
		RateLimiter: limiter,
		Metrics:     reg,
		Checker:     checker,
		Config:      cfg,
		ConfigPath:  configPath,
		Version:     version,
		Log:         log,
		Terminal:    termManager,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		log.Info().Msg("context cancelled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error shutting down HTTP server")
	}

	log.Info().Msg("shutdown complete")
	return nil
}
