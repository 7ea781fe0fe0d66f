package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("could not load .env file")
	}

	configPath := flag.String("config", getEnv("BINGO_CONFIG", ""), "path to config.yaml")
	frontend := flag.String("frontend", "", "web or terminal, overrides the config file")
	flag.Parse()

	cfg, err := loadConfig(*configPath, *frontend)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	closeLog, err := setupLogging(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up logging")
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := setupApp(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up bingo drawer")
	}

	log.Info().
		Str("frontend", cfg.Frontend).
		Int("max_draw_count", cfg.Draw.MaxDrawCount).
		Bool("outbox", cfg.OutboxEnabled()).
		Msg("starting bingo drawer")

	if err := app.Run(ctx); err != nil {
		log.Error().Err(err).Msg("bingo drawer stopped with error")
		closeLog()
		os.Exit(1)
	}

	log.Info().Msg("bingo drawer shutdown complete")
}
