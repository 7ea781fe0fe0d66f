package outbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/bingo/go/internal/draw/events"
)

// Config tunes the relay between the controller and the publisher
type Config struct {
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	// PublishTimeout bounds a single publish attempt
	PublishTimeout time.Duration
}

// DefaultConfig returns default relay settings
func DefaultConfig() Config {
	return Config{
		BufferSize:     256,
		MaxRetries:     3,
		RetryDelay:     time.Second,
		PublishTimeout: 5 * time.Second,
	}
}

// Relay buffers controller events and hands them to a publisher on its own
// goroutine, so the controller loop never waits on the network. It
// implements draw.EventSink.
type Relay struct {
	publisher EventPublisher
	config    Config
	clock     clockwork.Clock

	queue chan events.Event

	mu      sync.Mutex
	running bool
	wg      sync.WaitGroup

	statsMu       sync.Mutex
	published     int
	dropped       int
	failed        int
	lastPublished time.Time
}

// NewRelay creates a relay in front of publisher
func NewRelay(publisher EventPublisher, cfg Config, clock clockwork.Clock) *Relay {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultConfig().BufferSize
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Relay{
		publisher: publisher,
		config:    cfg,
		clock:     clock,
		queue:     make(chan events.Event, cfg.BufferSize),
	}
}

// Emit queues an event without blocking; a full queue drops the event.
func (r *Relay) Emit(event events.Event) {
	select {
	case r.queue <- event:
	default:
		r.statsMu.Lock()
		r.dropped++
		r.statsMu.Unlock()
		log.Warn().
			Str("event_id", event.ID.String()).
			Str("event_type", string(event.Type)).
			Msg("outbox queue full, dropping event")
	}
}

// Start runs the publishing goroutine until ctx is cancelled. Events still
// queued at that point are flushed before Wait returns.
func (r *Relay) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("outbox relay already running")
	}
	r.running = true
	r.mu.Unlock()

	r.wg.Add(1)
	go r.run(ctx)

	log.Info().
		Int("buffer_size", r.config.BufferSize).
		Int("max_retries", r.config.MaxRetries).
		Msg("outbox relay started")
	return nil
}

// Wait blocks until the relay goroutine has exited
func (r *Relay) Wait() {
	r.wg.Wait()
}

func (r *Relay) run(ctx context.Context) {
	defer r.wg.Done()

	for {
		select {
		case <-ctx.Done():
			r.flush()
			log.Info().Msg("outbox relay stopped")
			return
		case event := <-r.queue:
			r.deliver(ctx, event)
		}
	}
}

// flush publishes whatever is still queued with a fresh context
func (r *Relay) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.PublishTimeout)
	defer cancel()

	for {
		select {
		case event := <-r.queue:
			if err := r.publishOnce(ctx, event); err != nil {
				r.recordFailure(event, err)
			}
		default:
			return
		}
	}
}

func (r *Relay) deliver(ctx context.Context, event events.Event) {
	var err error
	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-r.clock.After(r.config.RetryDelay):
			case <-ctx.Done():
				r.recordFailure(event, ctx.Err())
				return
			}
		}

		if err = r.publishOnce(ctx, event); err == nil {
			return
		}

		log.Warn().
			Err(err).
			Str("event_id", event.ID.String()).
			Int("attempt", attempt+1).
			Msg("failed to publish event")
	}
	r.recordFailure(event, err)
}

func (r *Relay) publishOnce(ctx context.Context, event events.Event) error {
	if r.config.PublishTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.PublishTimeout)
		defer cancel()
	}

	if err := r.publisher.Publish(ctx, event); err != nil {
		return err
	}

	r.statsMu.Lock()
	r.published++
	r.lastPublished = r.clock.Now()
	r.statsMu.Unlock()
	return nil
}

func (r *Relay) recordFailure(event events.Event, err error) {
	r.statsMu.Lock()
	r.failed++
	r.statsMu.Unlock()

	log.Error().
		Err(err).
		Str("event_id", event.ID.String()).
		Str("event_type", string(event.Type)).
		Msg("giving up on event")
}

// Stats reports delivery counters
func (r *Relay) Stats() map[string]interface{} {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()
	return map[string]interface{}{
		"published": r.published,
		"dropped":   r.dropped,
		"failed":    r.failed,
		"queued":    len(r.queue),
	}
}
