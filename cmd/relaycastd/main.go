// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/relaycast/relaycast/internal/api"
	"github.com/relaycast/relaycast/internal/cache"
	"github.com/relaycast/relaycast/internal/catalog"
	"github.com/relaycast/relaycast/internal/config"
	"github.com/relaycast/relaycast/internal/core"
	"github.com/relaycast/relaycast/internal/fetch"
	"github.com/relaycast/relaycast/internal/log"
	"github.com/relaycast/relaycast/internal/refresh"
	"github.com/relaycast/relaycast/internal/session"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("relaycastd %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// Safe defaults until the config is loaded.
	log.Configure(log.Config{Level: "info", Service: "relaycast", Version: version})
	logger := log.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Config path: explicit flag, else ${RELAY_DATA}/config.yaml if it
	// exists.
	effectivePath := strings.TrimSpace(*configPath)
	if effectivePath == "" {
		dataDir := strings.TrimSpace(config.ParseString("RELAY_DATA", "/var/lib/relaycast"))
		autoPath := filepath.Join(dataDir, "config.yaml")
		if _, err := os.Stat(autoPath); err == nil {
			effectivePath = autoPath
		}
	}

	loader := config.NewLoader(effectivePath)
	cfg, err := loader.Load()
	if err != nil {
		logger.Fatal().Err(err).Str("event", "config.load_failed").
			Str("config_path", effectivePath).Msg("failed to load configuration")
	}

	level := cfg.LogLevel
	if cfg.Debug {
		level = "debug"
	}
	log.Configure(log.Config{Level: level, Service: "relaycast", Version: version})
	logger.Info().Str("event", "config.loaded").Str("path", effectivePath).
		Str("cache_mode", cfg.Cache.Mode).Dur("refresh_interval", cfg.RefreshInterval).
		Msg("configuration loaded")

	if err := run(ctx, loader, cfg); err != nil {
		logger.Fatal().Err(err).Str("event", "daemon.failed").Msg("daemon exited with error")
	}
	logger.Info().Str("event", "daemon.stopped").Msg("shutdown complete")
}

func run(ctx context.Context, loader *config.Loader, cfg *config.Config) error {
	logger := log.WithComponent("daemon")

	blobs, err := newBlobStore(cfg)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}

	store, err := catalog.Open(filepath.Join(cfg.DataDir, "catalog"))
	if err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn().Err(err).Msg("catalog close failed")
		}
	}()

	fetcher := fetch.New(blobs)
	runner := refresh.NewRunner(refresh.Config{
		PlaylistURL:     cfg.PlaylistURL,
		GuideURL:        cfg.GuideURL,
		RefreshInterval: cfg.RefreshInterval,
		ExportPath:      filepath.Join(cfg.DataDir, "catalog.m3u"),
	}, fetcher, store, blobs)

	scheduler := refresh.NewScheduler(runner)
	scheduler.Arm(ctx, cfg.RefreshInterval)
	defer scheduler.Stop()

	manager := session.NewManager(session.Config{
		Stream: session.StreamConfig{
			FFmpegPath:  cfg.Stream.FFmpegPath,
			Transcode:   cfg.Stream.Transcode,
			BitrateKbps: cfg.Stream.BitrateKbps,
			LowLatency:  cfg.Stream.LowLatency,
		},
		SelfID:      cfg.Voice.SelfID,
		IdleTimeout: cfg.IdleTimeout,
	}, unboundVoice{})
	defer func() {
		if err := manager.Leave(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("session leave on shutdown failed")
		}
	}()

	g, gctx := errgroup.WithContext(ctx)

	// Config edits re-arm the scheduler with the new interval. Other
	// settings need a restart. Watch blocks until the context is
	// cancelled, so it runs alongside the server in the group.
	g.Go(func() error {
		armedInterval := cfg.RefreshInterval
		if err := loader.Watch(gctx, func(next *config.Config) {
			if next.RefreshInterval != armedInterval {
				logger.Info().Str("event", "config.reload").
					Dur("refresh_interval", next.RefreshInterval).
					Msg("re-arming refresh timer")
				scheduler.Arm(ctx, next.RefreshInterval)
				armedInterval = next.RefreshInterval
			}
		}); err != nil {
			logger.Warn().Err(err).Str("event", "config.watch_failed").
				Msg("config hot-reload disabled")
		}
		return nil
	})

	g.Go(func() error {
		// Startup fetch honours staleness; periodic ticks always run.
		if err := runner.RunIfStale(gctx); err != nil {
			logger.Error().Err(err).Str("event", "refresh.startup_failed").
				Msg("startup refresh failed, continuing with cached catalog")
		}
		return nil
	})

	commands := core.New(store, runner, manager)
	server := api.New(cfg.ListenAddr, runner, manager, commands)
	g.Go(func() error { return server.Start(gctx) })

	return g.Wait()
}

func newBlobStore(cfg *config.Config) (cache.Store, error) {
	switch cfg.Cache.Mode {
	case "disk":
		return cache.NewDiskStore(cfg.Cache.Dir)
	case "redis":
		return cache.NewRedisStore(cache.RedisConfig{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		}, log.WithComponent("cache"))
	default:
		return cache.NewMemoryStore(), nil
	}
}
