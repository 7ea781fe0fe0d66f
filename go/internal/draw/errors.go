package draw

import "errors"

var (
	// ErrBusy is returned when a draw or reset arrives while a draw is
	// animating or an auto-reset is pending.
	ErrBusy = errors.New("draw in progress")

	// ErrPoolExhausted is returned when every number has been drawn.
	ErrPoolExhausted = errors.New("all numbers have been drawn")

	// ErrResetDeclined is returned when the user answers no to the reset prompt.
	ErrResetDeclined = errors.New("reset declined")

	// ErrNotRunning is returned once the controller loop has stopped.
	ErrNotRunning = errors.New("controller is not running")
)
