package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mcdev12/bingo/go/internal/config"
	"github.com/mcdev12/bingo/go/internal/draw/gateway"
	"github.com/mcdev12/bingo/go/internal/draw/outbox"
)

const version = "1.0.0"

func setupServer(cfg *config.Config, svc *gateway.Service, relay *outbox.Relay) *http.Server {
	r := chi.NewRouter()

	setupHealthCheck(r)

	r.Get("/info", func(w http.ResponseWriter, r *http.Request) {
		info := svc.GetStats()
		info["version"] = version
		if relay != nil {
			info["outbox"] = relay.Health()
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(info); err != nil {
			log.Error().Err(err).Msg("failed to write info response")
		}
	})

	r.Mount("/", svc.Handler())

	// Setup HTTP/2 server
	return &http.Server{
		Addr:        cfg.Addr(),
		Handler:     h2c.NewHandler(r, &http2.Server{}),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 120 * time.Second,
	}
}

func setupHealthCheck(r chi.Router) {
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})
}

// runServer serves the gateway until ctx is cancelled
func runServer(ctx context.Context, cfg *config.Config, svc *gateway.Service, relay *outbox.Relay) error {
	server := setupServer(cfg, svc, relay)

	gatewayDone := make(chan struct{})
	go func() {
		defer close(gatewayDone)
		if err := svc.Start(ctx); err != nil {
			log.Error().Err(err).Msg("gateway service failed")
		}
	}()

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var err error
	select {
	case <-ctx.Done():
		log.Info().Msg("received shutdown signal")
	case err = <-serveErr:
		log.Error().Err(err).Msg("HTTP server failed")
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Error().Err(shutdownErr).Msg("HTTP server shutdown failed")
	}
	if err != nil {
		return err
	}

	<-gatewayDone
	return nil
}
