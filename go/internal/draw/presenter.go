package draw

import (
	"context"
	"fmt"

	"github.com/mcdev12/bingo/go/internal/draw/events"
)

// Presenter is the rendering surface the controller drives. Every method
// except Confirm is called from the controller loop and must return quickly.
type Presenter interface {
	// ShowCurrentNumber displays n; spinning is true for roulette decoys.
	ShowCurrentNumber(n int, spinning bool)
	// ClearCurrentNumber puts the current number display back to its blank state.
	ClearCurrentNumber()
	SetRemainingCount(n int)
	// AppendHistoryEntry adds n as the most recent entry of the history.
	AppendHistoryEntry(n int)
	// MarkDrawn flags n as called on the full-pool board.
	MarkDrawn(n int)
	// ClearBoard empties the history and unmarks every number.
	ClearBoard()
	SetControlsEnabled(draw, reset bool)
	// Confirm asks a yes/no question and blocks until it is answered.
	Confirm(ctx context.Context, prompt string) (bool, error)
	Notify(message string)
}

// EventSink receives domain events. Emit must not block.
type EventSink interface {
	Emit(event events.Event)
}

type nopSink struct{}

func (nopSink) Emit(events.Event) {}

// User facing messages.
const (
	MessageConfirmReset  = "Reset the board? All drawn numbers will be cleared."
	MessagePoolExhausted = "All numbers have been drawn!"
	MessageAutoResetDone = "The board has been reset automatically."
	MessageNoDraws       = "No numbers drawn yet"

	// BlankNumber is what presenters show when no number is on display.
	BlankNumber = "--"
)

// DrawLimitMessage is the notice shown once maxDraws numbers have been drawn.
func DrawLimitMessage(maxDraws int) string {
	return fmt.Sprintf("%d draws completed! The board will reset automatically.", maxDraws)
}
