package terminal

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/bingo/go/internal/draw"
)

const (
	letters      = "BINGO"
	perLetter    = draw.PoolSize / len(letters)
	cellWidth    = 3
	gridTop      = 6
	commandLimit = time.Minute
)

var (
	styleTitle    = tcell.StyleDefault.Bold(true)
	styleCurrent  = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleSpinning = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleMarked   = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorGreen)
	styleNotice   = tcell.StyleDefault.Foreground(tcell.ColorAqua)
	stylePrompt   = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
	styleDisabled = tcell.StyleDefault.Dim(true)
)

// Commander is what the key loop drives
type Commander interface {
	Draw(ctx context.Context) error
	Reset(ctx context.Context) error
}

// view is everything the screen shows. Guarded by UI.mu.
type view struct {
	current   int
	spinning  bool
	remaining int
	history   []int
	marked    [draw.PoolSize + 1]bool
	drawOn    bool
	resetOn   bool
	notice    string
	prompt    string
}

// redrawEvent asks the UI goroutine to paint the view
type redrawEvent struct {
	tcell.EventTime
}

// UI is a tcell presenter for the draw controller
type UI struct {
	screen tcell.Screen

	mu     sync.Mutex
	view   view
	answer chan bool

	cmdCtx context.Context
	cmd    Commander
	wg     sync.WaitGroup
}

// New initializes screen and returns a UI drawing on it
func New(screen tcell.Screen) (*UI, error) {
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("init screen: %w", err)
	}
	screen.HideCursor()

	return &UI{
		screen: screen,
		view: view{
			remaining: draw.PoolSize,
			drawOn:    true,
			resetOn:   true,
		},
	}, nil
}

// Close restores the terminal
func (u *UI) Close() {
	u.screen.Fini()
}

func (u *UI) update(fn func(v *view)) {
	u.mu.Lock()
	fn(&u.view)
	u.mu.Unlock()
	u.redraw()
}

func (u *UI) redraw() {
	ev := &redrawEvent{}
	ev.SetEventNow()
	if err := u.screen.PostEvent(ev); err != nil {
		log.Debug().Err(err).Msg("redraw dropped")
	}
}

func (u *UI) ShowCurrentNumber(n int, spinning bool) {
	u.update(func(v *view) {
		v.current = n
		v.spinning = spinning
	})
}

func (u *UI) ClearCurrentNumber() {
	u.update(func(v *view) {
		v.current = 0
		v.spinning = false
	})
}

func (u *UI) SetRemainingCount(n int) {
	u.update(func(v *view) { v.remaining = n })
}

func (u *UI) AppendHistoryEntry(n int) {
	u.update(func(v *view) {
		v.history = append([]int{n}, v.history...)
	})
}

func (u *UI) MarkDrawn(n int) {
	if n < 1 || n > draw.PoolSize {
		return
	}
	u.update(func(v *view) { v.marked[n] = true })
}

func (u *UI) ClearBoard() {
	u.update(func(v *view) {
		v.history = nil
		v.marked = [draw.PoolSize + 1]bool{}
		v.notice = ""
	})
}

func (u *UI) SetControlsEnabled(drawOn, resetOn bool) {
	u.update(func(v *view) {
		v.drawOn = drawOn
		v.resetOn = resetOn
	})
}

func (u *UI) Notify(message string) {
	u.update(func(v *view) { v.notice = message })
}

// Confirm shows prompt until the operator answers with y or n
func (u *UI) Confirm(ctx context.Context, prompt string) (bool, error) {
	answer := make(chan bool, 1)

	u.mu.Lock()
	if u.answer != nil {
		u.mu.Unlock()
		return false, fmt.Errorf("a confirmation is already pending")
	}
	u.answer = answer
	u.view.prompt = prompt
	u.mu.Unlock()
	u.redraw()

	defer u.update(func(v *view) { v.prompt = "" })

	select {
	case ok := <-answer:
		return ok, nil
	case <-ctx.Done():
		u.mu.Lock()
		u.answer = nil
		u.mu.Unlock()
		return false, ctx.Err()
	}
}

// answerPrompt settles the pending confirmation, if any
func (u *UI) answerPrompt(ok bool) bool {
	u.mu.Lock()
	answer := u.answer
	u.answer = nil
	u.mu.Unlock()

	if answer == nil {
		return false
	}
	answer <- ok
	return true
}

func (u *UI) pending() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.answer != nil
}

// Run paints the board and handles keys until ctx is done or the operator
// quits. Commands run on their own goroutines because a reset waits on a
// key this loop has to read.
func (u *UI) Run(ctx context.Context, cmd Commander) error {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		u.wg.Wait()
	}()
	u.cmdCtx = ctx
	u.cmd = cmd

	eventChan := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := u.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case eventChan <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	u.render()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-eventChan:
			if !u.handleEvent(ev) {
				log.Info().Msg("operator quit")
				return nil
			}
		}
	}
}

// handleEvent reacts to one screen event and reports whether to keep running
func (u *UI) handleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *redrawEvent:
		u.render()
	case *tcell.EventResize:
		u.screen.Sync()
		u.render()
	case *tcell.EventKey:
		return u.handleKey(ev)
	}
	return true
}

func (u *UI) handleKey(ev *tcell.EventKey) bool {
	if ev.Key() == tcell.KeyCtrlC {
		return false
	}

	if u.pending() {
		switch {
		case ev.Key() == tcell.KeyRune && (ev.Rune() == 'y' || ev.Rune() == 'Y'):
			u.answerPrompt(true)
		case ev.Key() == tcell.KeyRune && (ev.Rune() == 'n' || ev.Rune() == 'N'),
			ev.Key() == tcell.KeyEscape:
			u.answerPrompt(false)
		}
		return true
	}

	switch {
	case ev.Key() == tcell.KeyEnter, ev.Key() == tcell.KeyRune && ev.Rune() == ' ':
		u.exec("draw", func(ctx context.Context) error { return u.cmd.Draw(ctx) })
	case ev.Key() == tcell.KeyRune && (ev.Rune() == 'r' || ev.Rune() == 'R'):
		u.exec("reset", func(ctx context.Context) error { return u.cmd.Reset(ctx) })
	case ev.Key() == tcell.KeyRune && (ev.Rune() == 'q' || ev.Rune() == 'Q'):
		return false
	}
	return true
}

func (u *UI) exec(name string, fn func(ctx context.Context) error) {
	if u.cmd == nil {
		return
	}
	parent := u.cmdCtx
	if parent == nil {
		parent = context.Background()
	}

	u.wg.Add(1)
	go func() {
		defer u.wg.Done()
		ctx, cancel := context.WithTimeout(parent, commandLimit)
		defer cancel()

		err := fn(ctx)
		switch {
		case err == nil:
		case errors.Is(err, draw.ErrResetDeclined):
			u.Notify("Reset cancelled.")
		case errors.Is(err, draw.ErrBusy), errors.Is(err, draw.ErrPoolExhausted):
			// the controls already say so
		case errors.Is(err, context.Canceled), errors.Is(err, draw.ErrNotRunning):
		default:
			log.Error().Err(err).Str("command", name).Msg("command failed")
			u.Notify(fmt.Sprintf("%s failed: %v", name, err))
		}
	}()
}

func (u *UI) render() {
	u.mu.Lock()
	v := u.view
	v.history = append([]int(nil), u.view.history...)
	u.mu.Unlock()

	s := u.screen
	s.Clear()
	width, height := s.Size()

	drawText(s, 0, 0, styleTitle, "BINGO DRAWER")

	current := draw.BlankNumber
	style := styleCurrent
	if v.current > 0 {
		current = fmt.Sprintf("%c-%d", columnLetter(v.current), v.current)
		if v.spinning {
			style = styleSpinning
		}
	}
	drawText(s, 0, 2, tcell.StyleDefault, "Current:")
	drawText(s, 10, 2, style, current)
	drawText(s, 0, 3, tcell.StyleDefault, fmt.Sprintf("Remaining: %d", v.remaining))

	history := make([]string, len(v.history))
	for i, n := range v.history {
		history[i] = strconv.Itoa(n)
	}
	if len(history) == 0 {
		history = []string{draw.MessageNoDraws}
	}
	drawText(s, 0, 4, tcell.StyleDefault, clip("History: "+strings.Join(history, " "), width))

	for row := 0; row < len(letters); row++ {
		y := gridTop + row
		drawText(s, 0, y, styleTitle, string(letters[row]))
		for col := 0; col < perLetter; col++ {
			n := row*perLetter + col + 1
			cellStyle := tcell.StyleDefault
			if v.marked[n] {
				cellStyle = styleMarked
			}
			drawText(s, 2+col*cellWidth, y, cellStyle, fmt.Sprintf("%2d", n))
		}
	}

	statusRow := gridTop + len(letters) + 1
	if v.prompt != "" {
		drawText(s, 0, statusRow, stylePrompt, clip(v.prompt+" [y/n]", width))
	} else if v.notice != "" {
		drawText(s, 0, statusRow, styleNotice, clip(v.notice, width))
	}

	hints := statusRow + 2
	if height > hints+1 {
		hints = height - 1
	}
	x := drawText(s, 0, hints, enabledStyle(v.drawOn), "[Enter] draw")
	x = drawText(s, x+2, hints, enabledStyle(v.resetOn), "[r] reset")
	drawText(s, x+2, hints, tcell.StyleDefault, "[q] quit")

	s.Show()
}

func enabledStyle(on bool) tcell.Style {
	if on {
		return tcell.StyleDefault
	}
	return styleDisabled
}

// columnLetter is the B-I-N-G-O column n belongs to
func columnLetter(n int) byte {
	return letters[(n-1)/perLetter]
}

func clip(text string, width int) string {
	if width > 0 && len(text) > width {
		return text[:width]
	}
	return text
}

// drawText writes ASCII text at x,y and returns the column after it
func drawText(s tcell.Screen, x, y int, style tcell.Style, text string) int {
	for _, r := range text {
		s.SetContent(x, y, r, nil, style)
		x++
	}
	return x
}
