package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Presenter renders the board in every connected browser. It implements
// draw.Presenter by turning each call into a broadcast message.
type Presenter struct {
	cm             *ConnectionManager
	clock          clockwork.Clock
	confirmTimeout time.Duration

	mu      sync.Mutex
	pending map[string]chan bool
}

// NewPresenter creates a browser presenter on top of cm
func NewPresenter(cm *ConnectionManager, clock clockwork.Clock, confirmTimeout time.Duration) *Presenter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Presenter{
		cm:             cm,
		clock:          clock,
		confirmTimeout: confirmTimeout,
		pending:        make(map[string]chan bool),
	}
}

func (p *Presenter) broadcast(typ MessageType, payload interface{}) {
	msg, err := NewMessage(typ, payload)
	if err != nil {
		log.Error().Err(err).Str("message_type", string(typ)).Msg("failed to build message")
		return
	}
	p.cm.Broadcast(msg)
}

func (p *Presenter) ShowCurrentNumber(n int, spinning bool) {
	p.broadcast(MessageCurrentNumber, CurrentNumberPayload{Number: n, Spinning: spinning})
}

func (p *Presenter) ClearCurrentNumber() {
	p.broadcast(MessageCurrentCleared, nil)
}

func (p *Presenter) SetRemainingCount(n int) {
	p.broadcast(MessageRemaining, CountPayload{Count: n})
}

func (p *Presenter) AppendHistoryEntry(n int) {
	p.broadcast(MessageHistoryAdded, NumberPayload{Number: n})
}

func (p *Presenter) MarkDrawn(n int) {
	p.broadcast(MessageMarked, NumberPayload{Number: n})
}

func (p *Presenter) ClearBoard() {
	p.broadcast(MessageBoardCleared, nil)
}

func (p *Presenter) SetControlsEnabled(draw, reset bool) {
	p.broadcast(MessageControls, ControlsPayload{Draw: draw, Reset: reset})
}

func (p *Presenter) Notify(message string) {
	p.broadcast(MessageNotice, NoticePayload{Message: message})
}

// Confirm asks every connected browser and takes the first answer. Nobody
// watching, or nobody answering within the confirm timeout, counts as no.
func (p *Presenter) Confirm(ctx context.Context, prompt string) (bool, error) {
	if p.cm.ConnectionCount() == 0 {
		log.Debug().Msg("confirm requested with no browsers connected")
		return false, nil
	}

	id := uuid.New().String()
	answer := make(chan bool, 1)

	p.mu.Lock()
	p.pending[id] = answer
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		delete(p.pending, id)
		p.mu.Unlock()
	}()

	p.broadcast(MessageConfirmRequest, ConfirmRequestPayload{
		ConfirmID:  id,
		Prompt:     prompt,
		TimeoutSec: int(p.confirmTimeout.Seconds()),
	})

	select {
	case accepted := <-answer:
		p.broadcast(MessageConfirmClosed, ConfirmClosedPayload{ConfirmID: id, Accepted: accepted})
		return accepted, nil
	case <-p.clock.After(p.confirmTimeout):
		log.Info().Str("confirm_id", id).Msg("confirmation timed out")
		p.broadcast(MessageConfirmClosed, ConfirmClosedPayload{ConfirmID: id})
		return false, nil
	case <-ctx.Done():
		p.broadcast(MessageConfirmClosed, ConfirmClosedPayload{ConfirmID: id})
		return false, ctx.Err()
	}
}

// Resolve delivers a browser's answer. It reports false for unknown or
// already settled questions.
func (p *Presenter) Resolve(confirmID string, accepted bool) bool {
	p.mu.Lock()
	answer, ok := p.pending[confirmID]
	if ok {
		delete(p.pending, confirmID)
	}
	p.mu.Unlock()

	if !ok {
		return false
	}
	answer <- accepted
	return true
}

// PendingConfirmations is the number of unanswered questions
func (p *Presenter) PendingConfirmations() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}
