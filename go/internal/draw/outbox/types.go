package outbox

import (
	"context"

	"github.com/mcdev12/bingo/go/internal/draw/events"
)

// EventPublisher delivers one event to the outside world
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}
