package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mcdev12/bingo/go/internal/draw"
)

// Message is the envelope for everything sent to browsers
type Message struct {
	ID        string          `json:"id"`        // Message UUID
	Type      MessageType     `json:"type"`      // Message type
	Timestamp time.Time       `json:"timestamp"` // Creation time
	Data      json.RawMessage `json:"data,omitempty"`
}

// MessageType represents the type of a server to browser message
type MessageType string

const (
	MessageCurrentNumber  MessageType = "current_number"
	MessageCurrentCleared MessageType = "current_cleared"
	MessageRemaining      MessageType = "remaining"
	MessageHistoryAdded   MessageType = "history_added"
	MessageMarked         MessageType = "marked"
	MessageBoardCleared   MessageType = "board_cleared"
	MessageControls       MessageType = "controls"
	MessageNotice         MessageType = "notice"
	MessageConfirmRequest MessageType = "confirm_request"
	MessageConfirmClosed  MessageType = "confirm_closed"
	MessageState          MessageType = "state"
)

// CurrentNumberPayload is sent for every roulette frame
type CurrentNumberPayload struct {
	Number   int  `json:"number"`
	Spinning bool `json:"spinning"`
}

// CountPayload carries the remaining count
type CountPayload struct {
	Count int `json:"count"`
}

// NumberPayload carries a single drawn number
type NumberPayload struct {
	Number int `json:"number"`
}

// ControlsPayload mirrors which buttons are enabled
type ControlsPayload struct {
	Draw  bool `json:"draw"`
	Reset bool `json:"reset"`
}

// NoticePayload is a user facing notification
type NoticePayload struct {
	Message string `json:"message"`
}

// ConfirmRequestPayload asks browsers a yes/no question
type ConfirmRequestPayload struct {
	ConfirmID  string `json:"confirm_id"`
	Prompt     string `json:"prompt"`
	TimeoutSec int    `json:"timeout_sec"`
}

// ConfirmClosedPayload tells the other browsers the question is settled
type ConfirmClosedPayload struct {
	ConfirmID string `json:"confirm_id"`
	Accepted  bool   `json:"accepted"`
}

// StatePayload is the full resync sent on connect
type StatePayload struct {
	draw.Snapshot
	Blank string `json:"blank"`
}

// NewMessage marshals payload into a fresh envelope. payload may be nil.
func NewMessage(typ MessageType, payload interface{}) (*Message, error) {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      typ,
		Timestamp: time.Now().UTC(),
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", typ, err)
		}
		msg.Data = data
	}
	return msg, nil
}

// ClientMessageType represents what a browser may ask for
type ClientMessageType string

const (
	ClientDraw         ClientMessageType = "draw"
	ClientReset        ClientMessageType = "reset"
	ClientConfirmReply ClientMessageType = "confirm_reply"
)

// ClientMessage is a command received over the WebSocket
type ClientMessage struct {
	Type ClientMessageType `json:"type"`
	Data json.RawMessage   `json:"data,omitempty"`
}

// ConfirmReplyPayload answers a confirm_request
type ConfirmReplyPayload struct {
	ConfirmID string `json:"confirm_id"`
	Accepted  bool   `json:"accepted"`
}
