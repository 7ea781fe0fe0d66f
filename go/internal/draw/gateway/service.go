package gateway

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jonboulle/clockwork"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/bingo/go/internal/draw"
)

//go:embed static
var staticFiles embed.FS

// Service is the browser gateway: it serves the page, keeps the WebSocket
// connections and relays commands to the draw controller
type Service struct {
	config            Config
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	presenter         *Presenter

	mu        sync.RWMutex
	commander Commander
	baseCtx   context.Context
}

// Config holds configuration for the gateway
type Config struct {
	ConnectionConfig ConnectionConfig
	ConfirmTimeout   time.Duration
	// CommandTimeout bounds a command received over the WebSocket,
	// including the time spent waiting for a reset confirmation
	CommandTimeout time.Duration
	AllowedOrigins []string
	Clock          clockwork.Clock
}

// DefaultConfig returns default configuration for the gateway
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
		ConfirmTimeout:   30 * time.Second,
		CommandTimeout:   45 * time.Second,
		AllowedOrigins:   []string{"*"},
	}
}

// NewService creates a new gateway service. Attach a Commander before serving.
func NewService(config Config) *Service {
	defaults := DefaultConfig()
	if config.ConfirmTimeout <= 0 {
		config.ConfirmTimeout = defaults.ConfirmTimeout
	}
	if config.CommandTimeout <= 0 {
		config.CommandTimeout = defaults.CommandTimeout
	}
	if config.ConnectionConfig.PingInterval <= 0 {
		config.ConnectionConfig = defaults.ConnectionConfig
	}
	if len(config.AllowedOrigins) == 0 {
		config.AllowedOrigins = defaults.AllowedOrigins
	}

	cm := NewConnectionManager(config.ConnectionConfig)

	s := &Service{
		config:            config,
		connectionManager: cm,
		wsHandler:         NewWebSocketHandler(cm),
		presenter:         NewPresenter(cm, config.Clock, config.ConfirmTimeout),
		baseCtx:           context.Background(),
	}
	cm.onConnect = s.syncState
	cm.onMessage = s.handleClientMessage
	return s
}

// Presenter is the draw.Presenter backed by the connected browsers
func (s *Service) Presenter() *Presenter {
	return s.presenter
}

// Attach wires the controller that executes browser commands
func (s *Service) Attach(commander Commander) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commander = commander
}

func (s *Service) getCommander() Commander {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.commander
}

// Start runs the connection manager until ctx is cancelled
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting bingo gateway service")

	s.mu.Lock()
	s.baseCtx = ctx
	s.mu.Unlock()

	s.connectionManager.Start(ctx)

	log.Info().Msg("bingo gateway service stopped")
	return nil
}

// Handler builds the HTTP routes
func (s *Service) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: s.config.AllowedOrigins,
		AllowedHeaders: []string{"*"},
	})
	r.Use(c.Handler)

	static, err := fs.Sub(staticFiles, "static")
	if err != nil {
		// embedded at build time, cannot be missing
		panic(err)
	}
	r.Handle("/", http.FileServer(http.FS(static)))
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	r.Get("/ws", s.wsHandler.HandleConnection)

	r.Route("/api", func(r chi.Router) {
		r.Get("/stats", s.wsHandler.HandleConnectionStats)
		state := NewStateHandler(attached{s})
		r.Get("/state", state.HandleGetState)
		r.Post("/draw", state.HandleDraw)
		r.Post("/reset", state.HandleReset)
	})

	log.Info().Msg("bingo gateway routes registered")
	return r
}

// attached forwards to the controller given to Attach, so routes can be
// built before the controller exists
type attached struct {
	s *Service
}

func (a attached) Draw(ctx context.Context) error {
	commander := a.s.getCommander()
	if commander == nil {
		return draw.ErrNotRunning
	}
	return commander.Draw(ctx)
}

func (a attached) Reset(ctx context.Context) error {
	commander := a.s.getCommander()
	if commander == nil {
		return draw.ErrNotRunning
	}
	return commander.Reset(ctx)
}

func (a attached) Snapshot(ctx context.Context) (draw.Snapshot, error) {
	commander := a.s.getCommander()
	if commander == nil {
		return draw.Snapshot{}, draw.ErrNotRunning
	}
	return commander.Snapshot(ctx)
}

// GetStats returns statistics about the gateway service
func (s *Service) GetStats() map[string]interface{} {
	stats := s.connectionManager.GetConnectionStats()
	stats["service"] = "bingo_gateway"
	stats["pending_confirmations"] = s.presenter.PendingConfirmations()
	return stats
}

// syncState sends the full board to a browser that just connected
func (s *Service) syncState(conn *Connection) {
	commander := s.getCommander()
	if commander == nil {
		return
	}

	ctx, cancel := context.WithTimeout(s.context(), 5*time.Second)
	defer cancel()

	snap, err := commander.Snapshot(ctx)
	if err != nil {
		log.Error().Err(err).Str("connection_id", conn.ID).Msg("failed to snapshot board for new connection")
		return
	}

	msg, err := NewMessage(MessageState, StatePayload{Snapshot: snap, Blank: draw.BlankNumber})
	if err != nil {
		log.Error().Err(err).Msg("failed to build state message")
		return
	}
	if err := s.connectionManager.SendTo(conn, msg); err != nil {
		log.Warn().Err(err).Str("connection_id", conn.ID).Msg("failed to send state")
	}
}

func (s *Service) context() context.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.baseCtx
}

// handleClientMessage runs browser commands off the read pump: a reset waits
// for a confirm_reply that arrives through the same pump.
func (s *Service) handleClientMessage(conn *Connection, msg ClientMessage) {
	switch msg.Type {
	case ClientConfirmReply:
		var reply ConfirmReplyPayload
		if err := json.Unmarshal(msg.Data, &reply); err != nil {
			log.Warn().Err(err).Str("connection_id", conn.ID).Msg("malformed confirm reply")
			return
		}
		if !s.presenter.Resolve(reply.ConfirmID, reply.Accepted) {
			log.Debug().Str("confirm_id", reply.ConfirmID).Msg("confirm reply for a settled question")
		}

	case ClientDraw, ClientReset:
		commander := s.getCommander()
		if commander == nil {
			log.Warn().Str("connection_id", conn.ID).Msg("command received before controller attached")
			return
		}
		go s.runCommand(conn, commander, msg.Type)

	default:
		log.Warn().
			Str("connection_id", conn.ID).
			Str("client_message_type", string(msg.Type)).
			Msg("unknown client message type")
	}
}

func (s *Service) runCommand(conn *Connection, commander Commander, typ ClientMessageType) {
	ctx, cancel := context.WithTimeout(s.context(), s.config.CommandTimeout)
	defer cancel()

	var err error
	if typ == ClientDraw {
		err = commander.Draw(ctx)
	} else {
		err = commander.Reset(ctx)
	}

	switch {
	case err == nil:
	case errors.Is(err, draw.ErrBusy), errors.Is(err, draw.ErrResetDeclined), errors.Is(err, draw.ErrPoolExhausted):
		log.Debug().
			Err(err).
			Str("connection_id", conn.ID).
			Str("command", string(typ)).
			Msg("command refused")
	default:
		log.Error().
			Err(err).
			Str("connection_id", conn.ID).
			Str("command", string(typ)).
			Msg("command failed")
	}
}
