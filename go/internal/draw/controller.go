package draw

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/bingo/go/internal/draw/events"
)

// Clock is the interface we use for time operations.
// In production, use clockwork.NewRealClock(). In tests, a FakeClock.
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) clockwork.Timer
}

// Config holds the draw policy and animation timing.
type Config struct {
	// MaxDrawCount triggers an automatic reset once that many numbers have
	// been drawn. Zero disables the cap.
	MaxDrawCount int

	Roulette RouletteConfig

	LimitNoticeDelay     time.Duration
	AutoResetDelay       time.Duration
	ExhaustedNoticeDelay time.Duration
}

// DefaultConfig returns the stock draw policy.
func DefaultConfig() Config {
	return Config{
		MaxDrawCount:         30,
		Roulette:             DefaultRouletteConfig(),
		LimitNoticeDelay:     500 * time.Millisecond,
		AutoResetDelay:       time.Second,
		ExhaustedNoticeDelay: 500 * time.Millisecond,
	}
}

// Validate rejects settings the controller cannot honor.
func (c Config) Validate() error {
	if c.MaxDrawCount < 0 || c.MaxDrawCount > PoolSize {
		return fmt.Errorf("max draw count %d outside [0,%d]", c.MaxDrawCount, PoolSize)
	}
	if c.Roulette.TotalSpins < 0 {
		return fmt.Errorf("roulette total spins must not be negative, got %d", c.Roulette.TotalSpins)
	}
	if c.Roulette.InitialDelay < 0 || c.Roulette.MediumStep < 0 || c.Roulette.SlowStep < 0 {
		return fmt.Errorf("roulette delays must not be negative")
	}
	if c.Roulette.MediumFraction < 0 || c.Roulette.MediumFraction > 1 ||
		c.Roulette.SlowFraction < 0 || c.Roulette.SlowFraction > 1 {
		return fmt.Errorf("roulette fractions must be within [0,1]")
	}
	if c.LimitNoticeDelay < 0 || c.AutoResetDelay < 0 || c.ExhaustedNoticeDelay < 0 {
		return fmt.Errorf("notice delays must not be negative")
	}
	return nil
}

// State is the controller's position in the draw state machine.
type State int

const (
	StateIdle State = iota
	StateDrawing
	StateAutoResetting
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDrawing:
		return "drawing"
	case StateAutoResetting:
		return "auto_resetting"
	case StateExhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText renders the state by name in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Busy reports whether draw and reset requests are currently refused.
func (s State) Busy() bool {
	return s == StateDrawing || s == StateAutoResetting
}

// Snapshot is a point-in-time copy of the controller state.
type Snapshot struct {
	SessionID    uuid.UUID `json:"session_id"`
	State        State     `json:"state"`
	Current      int       `json:"current"` // 0 while nothing is displayed
	Spinning     bool      `json:"spinning"`
	Available    []int     `json:"available"`
	Drawn        []int     `json:"drawn"`
	Remaining    int       `json:"remaining"`
	MaxDrawCount int       `json:"max_draw_count"`
	DrawEnabled  bool      `json:"draw_enabled"`
	ResetEnabled bool      `json:"reset_enabled"`
}

// Option customizes a Controller.
type Option func(*Controller)

// WithClock replaces the real clock, mostly for tests.
func WithClock(clock Clock) Option {
	return func(c *Controller) { c.clock = clock }
}

// WithRand replaces the random source used for picks and decoys.
func WithRand(rng *rand.Rand) Option {
	return func(c *Controller) { c.rng = rng }
}

// WithEventSink sends domain events to sink.
func WithEventSink(sink EventSink) Option {
	return func(c *Controller) {
		if sink != nil {
			c.sink = sink
		}
	}
}

type commandKind int

const (
	commandDraw commandKind = iota
	commandReset
	commandSnapshot
)

type command struct {
	kind  commandKind
	reply chan commandResult
}

type commandResult struct {
	err      error
	snapshot Snapshot
}

// Controller owns the number pool and sequences draws. All state lives on
// the goroutine running Run; the exported methods talk to it over a channel.
type Controller struct {
	cfg       Config
	presenter Presenter
	sink      EventSink
	clock     Clock
	rng       *rand.Rand

	commands chan command
	done     chan struct{}

	// loop owned
	session  *Session
	state    State
	current  int
	spinning bool
	drawOn   bool
	resetOn  bool
	steps    []step
	timer    clockwork.Timer
}

// NewController creates a controller. Call Run to start it.
func NewController(cfg Config, presenter Presenter, opts ...Option) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid draw config: %w", err)
	}
	if presenter == nil {
		return nil, fmt.Errorf("presenter is required")
	}

	c := &Controller{
		cfg:       cfg,
		presenter: presenter,
		sink:      nopSink{},
		clock:     clockwork.NewRealClock(),
		rng:       rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		commands:  make(chan command),
		done:      make(chan struct{}),
		session:   NewSession(),
		state:     StateIdle,
		drawOn:    true,
		resetOn:   true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Run processes commands and animation steps until ctx is cancelled. It must
// be called exactly once.
func (c *Controller) Run(ctx context.Context) error {
	defer close(c.done)
	defer func() {
		if c.timer != nil {
			stopAndDrainTimer(c.timer)
			c.timer = nil
		}
	}()

	log.Info().
		Str("session_id", c.session.ID.String()).
		Int("max_draw_count", c.cfg.MaxDrawCount).
		Dur("roulette", c.cfg.Roulette.Duration()).
		Msg("draw controller started")

	c.renderFresh()

	for {
		var fired <-chan time.Time
		if c.timer != nil {
			fired = c.timer.Chan()
		}

		select {
		case <-ctx.Done():
			log.Info().Str("state", c.state.String()).Msg("draw controller shutting down")
			return nil
		case cmd := <-c.commands:
			cmd.reply <- c.handle(cmd.kind)
		case <-fired:
			c.fire()
		}
	}
}

// Draw starts a draw. It returns as soon as the animation is scheduled;
// ErrBusy and ErrPoolExhausted mean nothing changed.
func (c *Controller) Draw(ctx context.Context) error {
	res, err := c.send(ctx, commandDraw)
	if err != nil {
		return err
	}
	return res.err
}

// Reset asks the presenter for confirmation and then restores the full pool.
func (c *Controller) Reset(ctx context.Context) error {
	snap, err := c.Snapshot(ctx)
	if err != nil {
		return err
	}
	if snap.State.Busy() {
		return ErrBusy
	}

	ok, err := c.presenter.Confirm(ctx, MessageConfirmReset)
	if err != nil {
		return fmt.Errorf("confirm reset: %w", err)
	}
	if !ok {
		log.Debug().Str("session_id", snap.SessionID.String()).Msg("manual reset declined")
		return ErrResetDeclined
	}

	res, err := c.send(ctx, commandReset)
	if err != nil {
		return err
	}
	return res.err
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot(ctx context.Context) (Snapshot, error) {
	res, err := c.send(ctx, commandSnapshot)
	if err != nil {
		return Snapshot{}, err
	}
	return res.snapshot, nil
}

func (c *Controller) send(ctx context.Context, kind commandKind) (commandResult, error) {
	cmd := command{kind: kind, reply: make(chan commandResult, 1)}

	select {
	case c.commands <- cmd:
	case <-c.done:
		return commandResult{}, ErrNotRunning
	case <-ctx.Done():
		return commandResult{}, ctx.Err()
	}

	select {
	case res := <-cmd.reply:
		return res, nil
	case <-c.done:
		return commandResult{}, ErrNotRunning
	case <-ctx.Done():
		return commandResult{}, ctx.Err()
	}
}

func (c *Controller) handle(kind commandKind) commandResult {
	switch kind {
	case commandDraw:
		return commandResult{err: c.startDraw()}
	case commandReset:
		if c.state.Busy() {
			return commandResult{err: ErrBusy}
		}
		c.performReset(events.ResetReasonManual)
		return commandResult{}
	case commandSnapshot:
		return commandResult{snapshot: c.snapshot()}
	default:
		return commandResult{err: fmt.Errorf("unknown command %d", kind)}
	}
}

func (c *Controller) startDraw() error {
	if c.state.Busy() {
		log.Debug().Str("state", c.state.String()).Msg("draw rejected while busy")
		return ErrBusy
	}

	index, number, ok := c.session.Pick(c.rng)
	if !ok {
		c.presenter.Notify(MessagePoolExhausted)
		return ErrPoolExhausted
	}

	c.state = StateDrawing
	c.setControls(false, false)

	log.Debug().
		Str("session_id", c.session.ID.String()).
		Int("draw", c.session.DrawCount()+1).
		Msg("draw started")

	schedule := RouletteSchedule(c.cfg.Roulette)
	for _, delay := range schedule[:len(schedule)-1] {
		c.enqueue(delay, func() {
			c.show(c.rng.IntN(PoolSize)+1, true)
		})
	}
	c.enqueue(schedule[len(schedule)-1], func() {
		c.show(number, false)
		c.commit(index, number)
	})

	c.armNext()
	return nil
}

func (c *Controller) commit(index, number int) {
	if err := c.session.Commit(index, number); err != nil {
		log.Error().Err(err).Str("session_id", c.session.ID.String()).Msg("failed to commit draw")
		c.state = StateIdle
		c.setControls(true, true)
		return
	}

	drawCount := c.session.DrawCount()
	remaining := c.session.Remaining()

	c.presenter.SetRemainingCount(remaining)
	c.presenter.AppendHistoryEntry(number)
	c.presenter.MarkDrawn(number)

	log.Info().
		Str("session_id", c.session.ID.String()).
		Int("number", number).
		Int("draw_count", drawCount).
		Int("remaining", remaining).
		Msg("number drawn")

	c.emit(events.TypeNumberDrawn, events.NumberDrawnPayload{
		Number:    number,
		DrawCount: drawCount,
		Remaining: remaining,
		DrawnAt:   c.clock.Now().UTC(),
	})

	switch {
	case c.cfg.MaxDrawCount > 0 && drawCount >= c.cfg.MaxDrawCount:
		c.state = StateAutoResetting

		log.Info().
			Str("session_id", c.session.ID.String()).
			Int("draw_count", drawCount).
			Msg("draw limit reached, auto-reset scheduled")

		c.emit(events.TypeDrawLimitReached, events.DrawLimitReachedPayload{
			DrawCount:    drawCount,
			MaxDrawCount: c.cfg.MaxDrawCount,
		})
		c.enqueue(c.cfg.LimitNoticeDelay, func() {
			c.presenter.Notify(DrawLimitMessage(c.cfg.MaxDrawCount))
		})
		c.enqueue(c.cfg.AutoResetDelay, func() {
			c.performReset(events.ResetReasonAuto)
			c.presenter.Notify(MessageAutoResetDone)
		})

	case remaining == 0:
		c.state = StateExhausted
		c.setControls(false, true)

		log.Info().Str("session_id", c.session.ID.String()).Msg("pool exhausted")

		c.emit(events.TypePoolExhausted, events.PoolExhaustedPayload{DrawCount: drawCount})
		c.enqueue(c.cfg.ExhaustedNoticeDelay, func() {
			c.presenter.Notify(MessagePoolExhausted)
		})

	default:
		c.state = StateIdle
		c.setControls(true, true)
	}
}

// performReset starts a fresh session. Steps still queued for the old
// session are discarded.
func (c *Controller) performReset(reason events.ResetReason) {
	if c.timer != nil {
		stopAndDrainTimer(c.timer)
		c.timer = nil
	}
	c.steps = nil

	previous := c.session
	c.session = NewSession()
	c.state = StateIdle

	c.renderFresh()

	log.Info().
		Str("session_id", c.session.ID.String()).
		Str("previous_session_id", previous.ID.String()).
		Str("reason", string(reason)).
		Int("previous_draw_count", previous.DrawCount()).
		Msg("board reset")

	c.emit(events.TypeSessionReset, events.SessionResetPayload{
		Reason:          reason,
		PreviousSession: previous.ID.String(),
		PreviousDrawn:   previous.DrawCount(),
		ResetAt:         c.clock.Now().UTC(),
	})
}

func (c *Controller) renderFresh() {
	c.current, c.spinning = 0, false
	c.presenter.ClearCurrentNumber()
	c.presenter.SetRemainingCount(c.session.Remaining())
	c.presenter.ClearBoard()
	c.setControls(true, true)
}

func (c *Controller) show(n int, spinning bool) {
	c.current, c.spinning = n, spinning
	c.presenter.ShowCurrentNumber(n, spinning)
}

func (c *Controller) setControls(draw, reset bool) {
	c.drawOn, c.resetOn = draw, reset
	c.presenter.SetControlsEnabled(draw, reset)
}

func (c *Controller) snapshot() Snapshot {
	return Snapshot{
		SessionID:    c.session.ID,
		State:        c.state,
		Current:      c.current,
		Spinning:     c.spinning,
		Available:    c.session.Available(),
		Drawn:        c.session.Drawn(),
		Remaining:    c.session.Remaining(),
		MaxDrawCount: c.cfg.MaxDrawCount,
		DrawEnabled:  c.drawOn,
		ResetEnabled: c.resetOn,
	}
}

func (c *Controller) emit(typ events.Type, payload interface{}) {
	event, err := events.New(c.session.ID, typ, c.clock.Now(), payload)
	if err != nil {
		log.Error().Err(err).Str("event_type", string(typ)).Msg("failed to build event")
		return
	}
	c.sink.Emit(event)
}
