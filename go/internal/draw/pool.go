package draw

import (
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"
)

// PoolSize is the number of balls in a 75-ball bingo game.
const PoolSize = 75

// Pool returns a fresh copy of the numbers 1..PoolSize in order.
func Pool() []int {
	pool := make([]int, PoolSize)
	for i := range pool {
		pool[i] = i + 1
	}
	return pool
}

// Session holds the numbers still in the drum and the ones already called
// for one game. It is not safe for concurrent use; the Controller loop owns it.
type Session struct {
	ID        uuid.UUID
	available []int
	drawn     []int // most recent first
}

// NewSession creates a session with the full pool available.
func NewSession() *Session {
	return &Session{
		ID:        uuid.New(),
		available: Pool(),
		drawn:     make([]int, 0, PoolSize),
	}
}

// Pick chooses a uniform-random position in the available numbers without
// removing it. ok is false when nothing is left.
func (s *Session) Pick(rng *rand.Rand) (index, number int, ok bool) {
	if len(s.available) == 0 {
		return 0, 0, false
	}
	index = rng.IntN(len(s.available))
	return index, s.available[index], true
}

// Commit removes the number at index from the available numbers and records
// it as the most recent draw. number must be the value returned by Pick.
func (s *Session) Commit(index, number int) error {
	if index < 0 || index >= len(s.available) {
		return fmt.Errorf("commit index %d out of range [0,%d)", index, len(s.available))
	}
	if s.available[index] != number {
		return fmt.Errorf("commit index %d holds %d, not %d", index, s.available[index], number)
	}
	s.available = append(s.available[:index], s.available[index+1:]...)
	s.drawn = append([]int{number}, s.drawn...)
	return nil
}

// Remaining is the count of numbers still available.
func (s *Session) Remaining() int {
	return len(s.available)
}

// DrawCount is the count of numbers drawn so far.
func (s *Session) DrawCount() int {
	return len(s.drawn)
}

// Available returns a copy of the available numbers.
func (s *Session) Available() []int {
	return append([]int(nil), s.available...)
}

// Drawn returns a copy of the drawn numbers, most recent first.
func (s *Session) Drawn() []int {
	return append([]int(nil), s.drawn...)
}
