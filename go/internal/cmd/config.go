package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/bingo/go/internal/config"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func loadConfig(path, frontend string) (*config.Config, error) {
	if frontend != "" {
		// flags beat the environment, which beats the file
		if err := os.Setenv("BINGO_FRONTEND", frontend); err != nil {
			return nil, fmt.Errorf("set frontend: %w", err)
		}
	}
	return config.Load(path)
}

// setupLogging points the global zerolog logger at the console or, when
// configured, a log file. The terminal frontend owns the screen so it never
// logs to stderr.
func setupLogging(cfg *config.Config) (func(), error) {
	zerolog.SetGlobalLevel(cfg.LogLevel())

	var out io.Writer = zerolog.ConsoleWriter{Out: os.Stderr}
	closeFn := func() {}

	switch {
	case cfg.Log.File != "":
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		out = zerolog.ConsoleWriter{Out: f, NoColor: true}
		closeFn = func() { f.Close() }
	case cfg.Frontend == config.FrontendTerminal:
		out = io.Discard
	}

	log.Logger = log.Output(out)
	return closeFn, nil
}
