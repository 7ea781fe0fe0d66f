package draw

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mcdev12/bingo/go/internal/draw/events"
)

type shownNumber struct {
	n        int
	spinning bool
}

type recordingPresenter struct {
	mu sync.Mutex

	shown     []shownNumber
	cleared   int
	remaining int
	history   []int
	marked    map[int]bool
	boards    int
	drawOn    bool
	resetOn   bool
	notices   []string
	prompts   []string

	answer     bool
	confirmErr error
}

func newRecordingPresenter() *recordingPresenter {
	return &recordingPresenter{marked: make(map[int]bool)}
}

func (p *recordingPresenter) ShowCurrentNumber(n int, spinning bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shown = append(p.shown, shownNumber{n: n, spinning: spinning})
}

func (p *recordingPresenter) ClearCurrentNumber() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cleared++
}

func (p *recordingPresenter) SetRemainingCount(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.remaining = n
}

func (p *recordingPresenter) AppendHistoryEntry(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.history = append([]int{n}, p.history...)
}

func (p *recordingPresenter) MarkDrawn(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.marked[n] = true
}

func (p *recordingPresenter) ClearBoard() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.boards++
	p.history = nil
	p.marked = make(map[int]bool)
}

func (p *recordingPresenter) SetControlsEnabled(draw, reset bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.drawOn, p.resetOn = draw, reset
}

func (p *recordingPresenter) Confirm(ctx context.Context, prompt string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prompts = append(p.prompts, prompt)
	return p.answer, p.confirmErr
}

func (p *recordingPresenter) Notify(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notices = append(p.notices, message)
}

func (p *recordingPresenter) setAnswer(answer bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.answer = answer
}

func (p *recordingPresenter) noticeCount(message string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	count := 0
	for _, n := range p.notices {
		if n == message {
			count++
		}
	}
	return count
}

type recordingSink struct {
	mu     sync.Mutex
	events []events.Event
}

func (s *recordingSink) Emit(event events.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *recordingSink) ofType(typ events.Type) []events.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []events.Event
	for _, e := range s.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

type harness struct {
	ctrl      *Controller
	clock     *clockwork.FakeClock
	presenter *recordingPresenter
	sink      *recordingSink
}

func startController(t *testing.T, cfg Config, seed uint64) *harness {
	t.Helper()

	h := &harness{
		clock:     clockwork.NewFakeClock(),
		presenter: newRecordingPresenter(),
		sink:      &recordingSink{},
	}

	ctrl, err := NewController(cfg, h.presenter,
		WithClock(h.clock),
		WithRand(rand.New(rand.NewPCG(seed, seed+1))),
		WithEventSink(h.sink),
	)
	if err != nil {
		t.Fatalf("NewController failed: %v", err)
	}
	h.ctrl = ctrl

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		ctrl.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return h
}

// instantConfig completes every draw inside the Draw call.
func instantConfig() Config {
	cfg := DefaultConfig()
	cfg.Roulette.TotalSpins = 0
	cfg.LimitNoticeDelay = 0
	cfg.AutoResetDelay = 0
	cfg.ExhaustedNoticeDelay = 0
	return cfg
}

func (h *harness) snapshot(t *testing.T) Snapshot {
	t.Helper()
	snap, err := h.ctrl.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	return snap
}

func (h *harness) draw(t *testing.T) {
	t.Helper()
	if err := h.ctrl.Draw(context.Background()); err != nil {
		t.Fatalf("Draw failed: %v", err)
	}
}

// advanceUntil moves the fake clock one pending timer at a time until done
// reports true.
func (h *harness) advanceUntil(t *testing.T, done func(Snapshot) bool) Snapshot {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		snap := h.snapshot(t)
		if done(snap) {
			return snap
		}

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		err := h.clock.BlockUntilContext(ctx, 1)
		cancel()
		if err == nil {
			h.clock.Advance(time.Second)
		}
	}
	t.Fatalf("Timed out waiting for controller state")
	return Snapshot{}
}

func idle(s Snapshot) bool { return s.State == StateIdle }

func TestNewControllerValidatesConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxDrawCount = PoolSize + 1

	if _, err := NewController(cfg, newRecordingPresenter()); err == nil {
		t.Error("Expected an error for a max draw count above the pool size")
	}
	if _, err := NewController(DefaultConfig(), nil); err == nil {
		t.Error("Expected an error without a presenter")
	}
}

func TestInitialState(t *testing.T) {
	h := startController(t, DefaultConfig(), 1)
	snap := h.snapshot(t)

	if snap.State != StateIdle {
		t.Errorf("Expected idle, got %s", snap.State)
	}
	if snap.Remaining != PoolSize || len(snap.Drawn) != 0 {
		t.Errorf("Expected a full pool, got %d remaining %d drawn", snap.Remaining, len(snap.Drawn))
	}
	if !snap.DrawEnabled || !snap.ResetEnabled {
		t.Error("Expected both controls enabled")
	}
	assertPartition(t, snap.Available, snap.Drawn)
}

func TestDrawAnimatesThenCommits(t *testing.T) {
	cfg := DefaultConfig()
	h := startController(t, cfg, 2)

	h.draw(t)

	snap := h.snapshot(t)
	if snap.State != StateDrawing {
		t.Fatalf("Expected drawing right after Draw, got %s", snap.State)
	}
	if snap.Remaining != PoolSize || len(snap.Drawn) != 0 {
		t.Fatalf("Expected no commit before the animation ends, got %d remaining", snap.Remaining)
	}
	if snap.DrawEnabled || snap.ResetEnabled {
		t.Error("Expected controls disabled while drawing")
	}

	snap = h.advanceUntil(t, idle)

	if len(snap.Drawn) != 1 || snap.Remaining != PoolSize-1 {
		t.Fatalf("Expected one committed draw, got %d drawn %d remaining", len(snap.Drawn), snap.Remaining)
	}
	if !snap.DrawEnabled || !snap.ResetEnabled {
		t.Error("Expected controls enabled after the draw")
	}

	h.presenter.mu.Lock()
	defer h.presenter.mu.Unlock()

	if len(h.presenter.shown) != cfg.Roulette.TotalSpins+1 {
		t.Fatalf("Expected %d frames, got %d", cfg.Roulette.TotalSpins+1, len(h.presenter.shown))
	}
	for i, s := range h.presenter.shown[:cfg.Roulette.TotalSpins] {
		if !s.spinning || s.n < 1 || s.n > PoolSize {
			t.Errorf("frame %d: expected a spinning decoy in range, got %+v", i, s)
		}
	}
	last := h.presenter.shown[len(h.presenter.shown)-1]
	if last.spinning || last.n != snap.Drawn[0] {
		t.Errorf("Expected the final frame to show %d, got %+v", snap.Drawn[0], last)
	}
	if h.presenter.remaining != PoolSize-1 || !h.presenter.marked[snap.Drawn[0]] || h.presenter.history[0] != snap.Drawn[0] {
		t.Error("Expected remaining, board and history to reflect the draw")
	}
}

func TestDrawRejectedWhileAnimating(t *testing.T) {
	h := startController(t, DefaultConfig(), 3)

	h.draw(t)
	if err := h.ctrl.Draw(context.Background()); !errors.Is(err, ErrBusy) {
		t.Fatalf("Expected ErrBusy for an overlapping draw, got %v", err)
	}

	snap := h.advanceUntil(t, idle)
	if len(snap.Drawn) != 1 || snap.Remaining != PoolSize-1 {
		t.Errorf("Expected exactly one number consumed, got %d drawn %d remaining", len(snap.Drawn), snap.Remaining)
	}
}

func TestDecoysDoNotChangeOutcome(t *testing.T) {
	quick := startController(t, instantConfig(), 42)
	quick.draw(t)
	want := quick.snapshot(t).Drawn[0]

	slow := startController(t, DefaultConfig(), 42)
	slow.draw(t)
	got := slow.advanceUntil(t, idle).Drawn[0]

	if got != want {
		t.Errorf("Expected the same number regardless of animation, got %d and %d", want, got)
	}
}

func TestDrawsBelowLimit(t *testing.T) {
	h := startController(t, instantConfig(), 4)

	for n := 1; n < 30; n++ {
		h.draw(t)
		snap := h.snapshot(t)

		if len(snap.Drawn) != n || snap.Remaining != PoolSize-n {
			t.Fatalf("After %d draws expected %d drawn %d remaining, got %d and %d",
				n, n, PoolSize-n, len(snap.Drawn), snap.Remaining)
		}
		assertPartition(t, snap.Available, snap.Drawn)
	}

	if got := len(h.sink.ofType(events.TypeNumberDrawn)); got != 29 {
		t.Errorf("Expected 29 NumberDrawn events, got %d", got)
	}
}

func TestDrawLimitTriggersAutoReset(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Roulette.TotalSpins = 2
	h := startController(t, cfg, 5)

	var firstSession string
	for n := 1; n <= 29; n++ {
		h.draw(t)
		snap := h.advanceUntil(t, idle)
		firstSession = snap.SessionID.String()
	}

	h.draw(t)
	snap := h.advanceUntil(t, func(s Snapshot) bool { return s.State == StateAutoResetting })

	if len(snap.Drawn) != 30 || snap.Remaining != PoolSize-30 {
		t.Fatalf("Expected 30 drawn with numbers still available, got %d drawn %d remaining", len(snap.Drawn), snap.Remaining)
	}
	if err := h.ctrl.Draw(context.Background()); !errors.Is(err, ErrBusy) {
		t.Errorf("Expected ErrBusy during auto-reset, got %v", err)
	}
	if err := h.ctrl.Reset(context.Background()); !errors.Is(err, ErrBusy) {
		t.Errorf("Expected manual reset to be refused during auto-reset, got %v", err)
	}

	snap = h.advanceUntil(t, idle)

	if len(snap.Drawn) != 0 || snap.Remaining != PoolSize {
		t.Fatalf("Expected a fresh board after auto-reset, got %d drawn %d remaining", len(snap.Drawn), snap.Remaining)
	}
	if snap.SessionID.String() == firstSession {
		t.Error("Expected a new session after auto-reset")
	}
	if h.presenter.noticeCount(DrawLimitMessage(30)) != 1 || h.presenter.noticeCount(MessageAutoResetDone) != 1 {
		t.Error("Expected the limit notice followed by the auto-reset notice")
	}

	h.presenter.mu.Lock()
	prompts := len(h.presenter.prompts)
	h.presenter.mu.Unlock()
	if prompts != 0 {
		t.Errorf("Expected auto-reset without confirmation, got %d prompts", prompts)
	}

	if got := h.sink.ofType(events.TypeDrawLimitReached); len(got) != 1 {
		t.Errorf("Expected one DrawLimitReached event, got %d", len(got))
	}
	resets := h.sink.ofType(events.TypeSessionReset)
	if len(resets) != 1 {
		t.Fatalf("Expected one SessionReset event, got %d", len(resets))
	}
	payload, err := events.ParsePayload(resets[0])
	if err != nil {
		t.Fatalf("ParsePayload failed: %v", err)
	}
	if p := payload.(events.SessionResetPayload); p.Reason != events.ResetReasonAuto || p.PreviousDrawn != 30 {
		t.Errorf("Expected an auto reset after 30 draws, got %+v", p)
	}
}

func TestThirtiethDrawAlwaysResets(t *testing.T) {
	h := startController(t, instantConfig(), 6)

	for n := 1; n <= 30; n++ {
		h.draw(t)
	}

	snap := h.snapshot(t)
	if snap.State != StateIdle || len(snap.Drawn) != 0 || snap.Remaining != PoolSize {
		t.Errorf("Expected an immediate auto-reset, got state %s with %d drawn", snap.State, len(snap.Drawn))
	}
}

func TestPoolExhaustion(t *testing.T) {
	cfg := instantConfig()
	cfg.MaxDrawCount = 0
	h := startController(t, cfg, 8)

	for n := 1; n <= PoolSize; n++ {
		h.draw(t)
	}

	snap := h.snapshot(t)
	if snap.State != StateExhausted || snap.Remaining != 0 || len(snap.Drawn) != PoolSize {
		t.Fatalf("Expected exhausted with every number drawn, got %s with %d remaining", snap.State, snap.Remaining)
	}
	if snap.DrawEnabled || !snap.ResetEnabled {
		t.Error("Expected draw disabled and reset enabled once exhausted")
	}
	assertPartition(t, snap.Available, snap.Drawn)

	for i := 0; i < 2; i++ {
		if err := h.ctrl.Draw(context.Background()); !errors.Is(err, ErrPoolExhausted) {
			t.Fatalf("Expected ErrPoolExhausted, got %v", err)
		}
	}
	after := h.snapshot(t)
	if after.Remaining != 0 || len(after.Drawn) != PoolSize || after.State != StateExhausted {
		t.Error("Expected draws on an empty pool to change nothing")
	}
	if got := h.presenter.noticeCount(MessagePoolExhausted); got != 3 {
		t.Errorf("Expected 3 exhausted notices (one on exhaustion, two on rejected draws), got %d", got)
	}
	if got := len(h.sink.ofType(events.TypePoolExhausted)); got != 1 {
		t.Errorf("Expected one PoolExhausted event, got %d", got)
	}

	h.presenter.setAnswer(true)
	if err := h.ctrl.Reset(context.Background()); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	snap = h.snapshot(t)
	if snap.State != StateIdle || snap.Remaining != PoolSize {
		t.Errorf("Expected reset to leave exhaustion, got %s with %d remaining", snap.State, snap.Remaining)
	}
}

func TestResetDiscardsPendingNotice(t *testing.T) {
	cfg := instantConfig()
	cfg.MaxDrawCount = 0
	cfg.ExhaustedNoticeDelay = 500 * time.Millisecond
	h := startController(t, cfg, 12)

	for n := 1; n <= PoolSize; n++ {
		h.draw(t)
	}
	if snap := h.snapshot(t); snap.State != StateExhausted {
		t.Fatalf("Expected exhausted, got %s", snap.State)
	}

	// reset before the exhausted notice is due
	h.presenter.setAnswer(true)
	if err := h.ctrl.Reset(context.Background()); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	h.draw(t)
	snap := h.snapshot(t)
	if snap.State != StateIdle || len(snap.Drawn) != 1 || snap.Remaining != PoolSize-1 {
		t.Fatalf("Expected the first draw of the new session to commit, got %s with %d drawn", snap.State, len(snap.Drawn))
	}

	h.clock.Advance(time.Second)
	h.snapshot(t)
	if got := h.presenter.noticeCount(MessagePoolExhausted); got != 0 {
		t.Errorf("Expected no exhausted notice after the reset, got %d", got)
	}
}

func TestManualReset(t *testing.T) {
	h := startController(t, instantConfig(), 9)

	for n := 0; n < 5; n++ {
		h.draw(t)
	}
	before := h.snapshot(t)

	h.presenter.setAnswer(false)
	if err := h.ctrl.Reset(context.Background()); !errors.Is(err, ErrResetDeclined) {
		t.Fatalf("Expected ErrResetDeclined, got %v", err)
	}
	after := h.snapshot(t)
	if after.SessionID != before.SessionID || len(after.Drawn) != 5 || after.Remaining != PoolSize-5 {
		t.Fatal("Expected a declined reset to leave state unchanged")
	}

	h.presenter.setAnswer(true)
	if err := h.ctrl.Reset(context.Background()); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	after = h.snapshot(t)
	if len(after.Drawn) != 0 || after.Remaining != PoolSize || after.Current != 0 {
		t.Errorf("Expected a cleared board, got %d drawn %d remaining current %d", len(after.Drawn), after.Remaining, after.Current)
	}
	assertPartition(t, after.Available, after.Drawn)

	h.presenter.mu.Lock()
	defer h.presenter.mu.Unlock()
	if len(h.presenter.prompts) != 2 || h.presenter.prompts[0] != MessageConfirmReset {
		t.Errorf("Expected the confirmation prompt twice, got %v", h.presenter.prompts)
	}
	if len(h.presenter.history) != 0 || len(h.presenter.marked) != 0 || h.presenter.remaining != PoolSize {
		t.Error("Expected the presenter board to be cleared")
	}
}

func TestResetRefusedWhileDrawing(t *testing.T) {
	h := startController(t, DefaultConfig(), 10)
	h.presenter.setAnswer(true)

	h.draw(t)
	if err := h.ctrl.Reset(context.Background()); !errors.Is(err, ErrBusy) {
		t.Fatalf("Expected ErrBusy, got %v", err)
	}

	h.presenter.mu.Lock()
	prompts := len(h.presenter.prompts)
	h.presenter.mu.Unlock()
	if prompts != 0 {
		t.Errorf("Expected no prompt while drawing, got %d", prompts)
	}
}

func TestResetConfirmError(t *testing.T) {
	h := startController(t, instantConfig(), 11)
	h.presenter.mu.Lock()
	h.presenter.confirmErr = context.DeadlineExceeded
	h.presenter.mu.Unlock()

	if err := h.ctrl.Reset(context.Background()); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected the confirm error to be wrapped, got %v", err)
	}
}

func TestCommandsAfterStop(t *testing.T) {
	ctrl, err := NewController(instantConfig(), newRecordingPresenter(), WithClock(clockwork.NewFakeClock()))
	if err != nil {
		t.Fatalf("NewController failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		ctrl.Run(ctx)
	}()
	cancel()
	<-done

	if err := ctrl.Draw(context.Background()); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Expected ErrNotRunning, got %v", err)
	}
}

func TestStateString(t *testing.T) {
	tests := map[State]string{
		StateIdle:          "idle",
		StateDrawing:       "drawing",
		StateAutoResetting: "auto_resetting",
		StateExhausted:     "exhausted",
	}
	for state, want := range tests {
		if state.String() != want {
			t.Errorf("Expected %q, got %q", want, state.String())
		}
	}
	if !StateDrawing.Busy() || !StateAutoResetting.Busy() || StateIdle.Busy() || StateExhausted.Busy() {
		t.Error("Expected only drawing and auto-resetting to be busy")
	}
}
