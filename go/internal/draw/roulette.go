package draw

import "time"

// RouletteConfig shapes the decoy animation played before a number is revealed.
type RouletteConfig struct {
	TotalSpins   int
	InitialDelay time.Duration

	// Past TotalSpins*MediumFraction decoys the delay grows by MediumStep per
	// decoy, past TotalSpins*SlowFraction by SlowStep.
	MediumFraction float64
	MediumStep     time.Duration
	SlowFraction   float64
	SlowStep       time.Duration
}

// DefaultRouletteConfig returns the stock slot-machine timing.
func DefaultRouletteConfig() RouletteConfig {
	return RouletteConfig{
		TotalSpins:     30,
		InitialDelay:   30 * time.Millisecond,
		MediumFraction: 0.3,
		MediumStep:     5 * time.Millisecond,
		SlowFraction:   0.6,
		SlowStep:       15 * time.Millisecond,
	}
}

// RouletteSchedule returns TotalSpins+1 delays. Entry i is how long to wait
// before frame i; frames 0..TotalSpins-1 are decoys and the last frame is the
// real number. The first decoy is shown without waiting.
func RouletteSchedule(cfg RouletteConfig) []time.Duration {
	spins := cfg.TotalSpins
	if spins < 0 {
		spins = 0
	}

	delays := make([]time.Duration, 0, spins+1)
	delays = append(delays, 0)

	speed := cfg.InitialDelay
	for counter := 1; counter <= spins; counter++ {
		switch {
		case float64(counter) > float64(spins)*cfg.SlowFraction:
			speed += cfg.SlowStep
		case float64(counter) > float64(spins)*cfg.MediumFraction:
			speed += cfg.MediumStep
		}
		delays = append(delays, speed)
	}
	return delays
}

// Duration is the total wall time of one roulette run.
func (cfg RouletteConfig) Duration() time.Duration {
	var total time.Duration
	for _, d := range RouletteSchedule(cfg) {
		total += d
	}
	return total
}
