package playback

import (
	"context"
	"time"
)

const (
	DefaultCountdownSteps = 3
	DefaultCountdownStep  = 800 * time.Millisecond
)

// TimedCountdown waits Steps*Step, calling OnStep with the remaining count (3, 2, 1) at
// the start of each step.
type TimedCountdown struct {
	Steps  int
	Step   time.Duration
	OnStep func(ctx context.Context, remaining int)
}

func (t TimedCountdown) Countdown(ctx context.Context) error {
	steps, step := t.Steps, t.Step
	if steps <= 0 {
		steps = DefaultCountdownSteps
	}
	if step <= 0 {
		step = DefaultCountdownStep
	}

	timer := time.NewTimer(step)
	defer timer.Stop()
	for remaining := steps; remaining > 0; remaining-- {
		if t.OnStep != nil {
			t.OnStep(ctx, remaining)
		}
		if remaining < steps {
			timer.Reset(step)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return nil
}
