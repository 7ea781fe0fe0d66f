package draw

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// step is one timed action of a draw sequence. delay is measured from the
// moment the previous step ran.
type step struct {
	delay time.Duration
	run   func()
}

// enqueue appends a step. It does not arm the timer; callers outside a
// running step must follow up with armNext.
func (c *Controller) enqueue(delay time.Duration, run func()) {
	c.steps = append(c.steps, step{delay: delay, run: run})
}

// armNext runs every due step at the head of the queue and starts a one-shot
// timer for the first one that has to wait. At most one timer exists at a time.
func (c *Controller) armNext() {
	for c.timer == nil && len(c.steps) > 0 {
		next := c.steps[0]
		if next.delay > 0 {
			c.timer = c.clock.NewTimer(next.delay)
			return
		}
		c.steps = c.steps[1:]
		next.run()
	}
}

// fire runs the step whose timer just expired and arms the following one.
func (c *Controller) fire() {
	c.timer = nil
	if len(c.steps) == 0 {
		return
	}
	next := c.steps[0]
	c.steps = c.steps[1:]
	next.run()
	c.armNext()
}

// stopAndDrainTimer safely stops a timer and drains its channel.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
