package main

import (
	"context"
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/bingo/go/internal/config"
	"github.com/mcdev12/bingo/go/internal/draw"
	"github.com/mcdev12/bingo/go/internal/draw/gateway"
	"github.com/mcdev12/bingo/go/internal/draw/outbox"
	"github.com/mcdev12/bingo/go/internal/draw/terminal"
)

// App is the wired drawer: one controller behind one frontend
type App struct {
	cfg        *config.Config
	controller *draw.Controller
	gateway    *gateway.Service
	ui         *terminal.UI
	relay      *outbox.Relay
	publisher  *outbox.JetStreamPublisher
}

func setupApp(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{cfg: cfg}
	clock := clockwork.NewRealClock()

	var opts []draw.Option
	opts = append(opts, draw.WithClock(clock))

	if cfg.OutboxEnabled() {
		publisher, err := outbox.NewJetStreamPublisher(ctx, cfg.JetStreamSettings())
		if err != nil {
			return nil, fmt.Errorf("setup outbox publisher: %w", err)
		}
		app.publisher = publisher
		app.relay = outbox.NewRelay(publisher, cfg.OutboxSettings(), clock)
		opts = append(opts, draw.WithEventSink(app.relay))
	}

	var presenter draw.Presenter
	switch cfg.Frontend {
	case config.FrontendTerminal:
		screen, err := tcell.NewScreen()
		if err != nil {
			app.close()
			return nil, fmt.Errorf("create screen: %w", err)
		}
		ui, err := terminal.New(screen)
		if err != nil {
			app.close()
			return nil, err
		}
		app.ui = ui
		presenter = ui
	default:
		gc := cfg.GatewaySettings()
		gc.Clock = clock
		app.gateway = gateway.NewService(gc)
		presenter = app.gateway.Presenter()
	}

	controller, err := draw.NewController(cfg.DrawSettings(), presenter, opts...)
	if err != nil {
		app.close()
		return nil, err
	}
	app.controller = controller
	if app.gateway != nil {
		app.gateway.Attach(controller)
	}
	return app, nil
}

// Run blocks until ctx is cancelled or the terminal operator quits
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer a.close()

	if a.relay != nil {
		if err := a.relay.Start(ctx); err != nil {
			return err
		}
		defer a.relay.Wait()
	}

	controllerDone := make(chan error, 1)
	go func() {
		controllerDone <- a.controller.Run(ctx)
	}()
	defer func() {
		cancel()
		if err := <-controllerDone; err != nil {
			log.Error().Err(err).Msg("draw controller failed")
		}
	}()

	if a.ui != nil {
		return a.ui.Run(ctx, a.controller)
	}
	return runServer(ctx, a.cfg, a.gateway, a.relay)
}

func (a *App) close() {
	if a.ui != nil {
		a.ui.Close()
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close NATS connection")
		}
	}
}
