package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type represents the type of a draw event
type Type string

const (
	TypeNumberDrawn      Type = "NumberDrawn"
	TypeDrawLimitReached Type = "DrawLimitReached"
	TypePoolExhausted    Type = "PoolExhausted"
	TypeSessionReset     Type = "SessionReset"
)

// Event is the envelope for everything the controller emits.
type Event struct {
	ID        uuid.UUID       `json:"id"`
	SessionID uuid.UUID       `json:"session_id"`
	Type      Type            `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// New marshals payload into a fresh envelope.
func New(sessionID uuid.UUID, typ Type, at time.Time, payload interface{}) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", typ, err)
	}
	return Event{
		ID:        uuid.New(),
		SessionID: sessionID,
		Type:      typ,
		Timestamp: at.UTC(),
		Data:      data,
	}, nil
}

// ParsePayload parses event data into the appropriate payload struct
func ParsePayload(event Event) (interface{}, error) {
	switch event.Type {
	case TypeNumberDrawn:
		var payload NumberDrawnPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case TypeDrawLimitReached:
		var payload DrawLimitReachedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case TypePoolExhausted:
		var payload PoolExhaustedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case TypeSessionReset:
		var payload SessionResetPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	default:
		return nil, fmt.Errorf("unknown event type %q", event.Type)
	}
}
