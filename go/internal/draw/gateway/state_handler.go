package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/bingo/go/internal/draw"
)

// Commander is what the gateway needs from the draw controller
type Commander interface {
	Draw(ctx context.Context) error
	Reset(ctx context.Context) error
	Snapshot(ctx context.Context) (draw.Snapshot, error)
}

// StateHandler handles the REST side of the board
type StateHandler struct {
	commander Commander
}

// NewStateHandler creates a new state handler
func NewStateHandler(commander Commander) *StateHandler {
	return &StateHandler{
		commander: commander,
	}
}

// CommandResponse is returned by the draw and reset endpoints
type CommandResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// HandleGetState handles GET /api/state
func (h *StateHandler) HandleGetState(w http.ResponseWriter, r *http.Request) {
	snap, err := h.commander.Snapshot(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to get board state")
		http.Error(w, "Failed to get board state", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// HandleDraw handles POST /api/draw
func (h *StateHandler) HandleDraw(w http.ResponseWriter, r *http.Request) {
	status, body := commandOutcome(h.commander.Draw(r.Context()), "drawing")
	writeJSON(w, status, body)
}

// HandleReset handles POST /api/reset. The confirmation is asked of the
// connected browsers like any other reset.
func (h *StateHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	err := h.commander.Reset(r.Context())
	status, body := commandOutcome(err, "reset")
	if status == http.StatusAccepted {
		status = http.StatusOK
	}
	writeJSON(w, status, body)
}

func commandOutcome(err error, okStatus string) (int, CommandResponse) {
	switch {
	case err == nil:
		return http.StatusAccepted, CommandResponse{Status: okStatus}
	case errors.Is(err, draw.ErrBusy):
		return http.StatusConflict, CommandResponse{Status: "busy", Error: err.Error()}
	case errors.Is(err, draw.ErrResetDeclined):
		return http.StatusConflict, CommandResponse{Status: "declined", Error: err.Error()}
	case errors.Is(err, draw.ErrPoolExhausted):
		return http.StatusGone, CommandResponse{Status: "exhausted", Error: err.Error()}
	case errors.Is(err, draw.ErrNotRunning):
		return http.StatusServiceUnavailable, CommandResponse{Status: "stopped", Error: err.Error()}
	default:
		log.Error().Err(err).Msg("board command failed")
		return http.StatusInternalServerError, CommandResponse{Status: "error", Error: err.Error()}
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
