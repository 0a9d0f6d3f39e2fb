package playback

import (
	"context"
	"sync"
	"time"

	"github.com/lox/horserace/internal/game"
)

// StepClock is a manual clock for fast-forward playback. It satisfies
// game.Clock. quartz.Mock needs a testing.TB, so production fast-forward uses
// this instead.
type StepClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewStepClock starts the clock at start.
func NewStepClock(start time.Time) *StepClock {
	return &StepClock{now: start}
}

func (c *StepClock) Now(tags ...string) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *StepClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// FastForward ticks engine, advancing clock by frame before each tick, until
// the engine stops racing. With auto-advance on that is the end of the
// tournament; otherwise the end of the current round. It returns the number
// of frames ticked.
func FastForward(ctx context.Context, engine *game.Engine, clock *StepClock, frame time.Duration) (int, error) {
	if frame <= 0 {
		frame = DefaultFrameInterval
	}

	frames := 0
	for engine.IsRacing() {
		if err := ctx.Err(); err != nil {
			return frames, err
		}
		clock.Advance(frame)
		engine.Tick()
		frames++
	}
	return frames, nil
}
