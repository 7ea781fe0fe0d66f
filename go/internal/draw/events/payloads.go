package events

import (
	"time"
)

// Event payload types shared between the draw controller, the gateway and the outbox

// NumberDrawnPayload is the payload for a NumberDrawn event
type NumberDrawnPayload struct {
	Number    int       `json:"number"`
	DrawCount int       `json:"draw_count"`
	Remaining int       `json:"remaining"`
	DrawnAt   time.Time `json:"drawn_at"`
}

// DrawLimitReachedPayload is the payload for a DrawLimitReached event
type DrawLimitReachedPayload struct {
	DrawCount    int `json:"draw_count"`
	MaxDrawCount int `json:"max_draw_count"`
}

// PoolExhaustedPayload is the payload for a PoolExhausted event
type PoolExhaustedPayload struct {
	DrawCount int `json:"draw_count"`
}

// SessionResetPayload is the payload for a SessionReset event
type SessionResetPayload struct {
	Reason          ResetReason `json:"reason"`
	PreviousSession string      `json:"previous_session_id"`
	PreviousDrawn   int         `json:"previous_draw_count"`
	ResetAt         time.Time   `json:"reset_at"`
}

// ResetReason says who asked for a reset
type ResetReason string

const (
	ResetReasonManual ResetReason = "manual"
	ResetReasonAuto   ResetReason = "auto"
)
