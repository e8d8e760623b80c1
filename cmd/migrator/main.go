// Command migrator rewrites room documents left by the previous release into
// the current room layout. It is safe to run repeatedly.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"hotelops/internal/adapters/observability"
	redisad "hotelops/internal/adapters/redis"
	"hotelops/internal/app"
	"hotelops/internal/shared"
	"hotelops/internal/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := shared.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	workers := flag.Int("workers", cfg.MigrateWorkers, "concurrent room migrations")
	flag.Parse()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	log.Info().
		Str("store", cfg.StoreDriver).
		Int("workers", *workers).
		Msg("migrator starting")

	store, closeStore, err := storage.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("open store failed")
	}
	defer func() { _ = closeStore() }()

	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer func() { _ = cache.Close() }()

	rep, err := app.NewMigrationService(store, cache).MigrateRooms(ctx, *workers)
	if err != nil {
		log.Error().Err(err).Msg("migration aborted")
		os.Exit(1)
	}
	log.Info().
		Int("scanned", rep.Scanned).
		Int("migrated", rep.Migrated).
		Int("skipped", rep.Skipped).
		Int("failed", rep.Failed).
		Msg("migration completed")
	if rep.Failed > 0 {
		os.Exit(2)
	}
}
