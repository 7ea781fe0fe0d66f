package draw

import (
	"testing"
	"time"
)

func TestRouletteScheduleDefault(t *testing.T) {
	delays := RouletteSchedule(DefaultRouletteConfig())

	if len(delays) != 31 {
		t.Fatalf("Expected 31 delays (30 decoys + final), got %d", len(delays))
	}

	tests := []struct {
		index int
		want  time.Duration
	}{
		{0, 0},
		{1, 30 * time.Millisecond},
		{9, 30 * time.Millisecond},
		{10, 35 * time.Millisecond},
		{18, 75 * time.Millisecond},
		{19, 90 * time.Millisecond},
		{30, 255 * time.Millisecond},
	}
	for _, tt := range tests {
		if delays[tt.index] != tt.want {
			t.Errorf("delay[%d]: expected %v, got %v", tt.index, tt.want, delays[tt.index])
		}
	}

	if got := DefaultRouletteConfig().Duration(); got != 2835*time.Millisecond {
		t.Errorf("Expected total roulette duration 2.835s, got %v", got)
	}
}

func TestRouletteScheduleSlowsDown(t *testing.T) {
	delays := RouletteSchedule(DefaultRouletteConfig())
	for i := 2; i < len(delays); i++ {
		if delays[i] < delays[i-1] {
			t.Fatalf("Expected non-decreasing delays, delay[%d]=%v < delay[%d]=%v", i, delays[i], i-1, delays[i-1])
		}
	}
}

func TestRouletteScheduleNoSpins(t *testing.T) {
	cfg := DefaultRouletteConfig()
	cfg.TotalSpins = 0

	delays := RouletteSchedule(cfg)
	if len(delays) != 1 || delays[0] != 0 {
		t.Errorf("Expected a single immediate frame, got %v", delays)
	}
}
