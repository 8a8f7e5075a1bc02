package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"jukebox/internal/config"
	"jukebox/internal/discord"
	"jukebox/internal/logging"
	"jukebox/internal/metastore"
	"jukebox/internal/storage"
)

func main() {
	cfg, err := config.New()
	if err != nil {
		fallback := logging.Setup("info", "")
		fallback.Fatal().Err(err).Msg("configuration error")
	}

	log := logging.Setup(cfg.LogLevel, cfg.LogFile)
	log.Info().Msg("starting jukebox")

	store, err := storage.New(cfg.StoragePath)
	if err != nil {
		log.Fatal().Err(err).Msg("open storage")
	}
	defer store.Close()

	meta, err := metastore.Open(cfg.SongCachePath, log)
	if err != nil {
		log.Fatal().Err(err).Msg("open song cache")
	}
	defer meta.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := discord.StartBot(ctx, cfg, store, meta, log); err != nil {
		log.Fatal().Err(err).Msg("bot stopped")
	}
	log.Info().Msg("shutdown complete")
}
