// Package playback hosts the engine's frame loop outside of a UI: a real-time
// Driver paced by a clock ticker, and a fast-forward mode that steps a manual
// clock as quickly as the CPU allows.
package playback

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/horserace/internal/game"
)

// DefaultFrameInterval approximates a 60Hz display refresh.
const DefaultFrameInterval = 16 * time.Millisecond

// Command is a user command routed onto the driver's goroutine.
type Command int

const (
	CommandGenerate Command = iota
	CommandStart
	CommandPause
	CommandReset
)

func (c Command) String() string {
	switch c {
	case CommandGenerate:
		return "generate"
	case CommandStart:
		return "start"
	case CommandPause:
		return "pause"
	case CommandReset:
		return "reset"
	default:
		return fmt.Sprintf("command(%d)", int(c))
	}
}

// Driver owns an engine and is its single writer: commands and frames are
// processed on the goroutine running Run.
type Driver struct {
	engine   *game.Engine
	clock    quartz.Clock
	frame    time.Duration
	logger   *log.Logger
	commands chan Command

	onFrame          func(game.Snapshot, game.TickOutcome)
	stopWhenComplete bool
	frames           int
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

// WithFrameInterval sets the ticker period.
func WithFrameInterval(d time.Duration) DriverOption {
	return func(dr *Driver) {
		if d > 0 {
			dr.frame = d
		}
	}
}

// WithFrameObserver is called after every racing frame and every command with
// a fresh snapshot. It runs on the driver goroutine and must not block.
func WithFrameObserver(fn func(game.Snapshot, game.TickOutcome)) DriverOption {
	return func(dr *Driver) { dr.onFrame = fn }
}

// WithStopWhenComplete makes Run return once the tournament completes.
func WithStopWhenComplete(stop bool) DriverOption {
	return func(dr *Driver) { dr.stopWhenComplete = stop }
}

// NewDriver creates a driver for engine. The clock must be the same one the
// engine reads.
func NewDriver(engine *game.Engine, clock quartz.Clock, logger *log.Logger, opts ...DriverOption) *Driver {
	d := &Driver{
		engine:   engine,
		clock:    clock,
		frame:    DefaultFrameInterval,
		logger:   logger.WithPrefix("playback"),
		commands: make(chan Command, 16),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Send queues a command for the driver goroutine.
func (d *Driver) Send(ctx context.Context, cmd Command) error {
	select {
	case d.commands <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Frames returns how many racing frames have been ticked. Only meaningful
// after Run has returned.
func (d *Driver) Frames() int {
	return d.frames
}

// Run processes commands and frames until ctx is cancelled, or until the
// tournament completes when WithStopWhenComplete is set.
func (d *Driver) Run(ctx context.Context) error {
	ticker := d.clock.NewTicker(d.frame, "playback", "frame")
	defer ticker.Stop()

	d.logger.Debug("Frame loop started", "interval", d.frame)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case cmd := <-d.commands:
			d.apply(cmd)
			d.notify(game.TickStopped)

		case <-ticker.C:
			if !d.engine.IsRacing() {
				continue
			}
			outcome := d.engine.Tick()
			d.frames++
			d.notify(outcome)
		}

		if d.stopWhenComplete && d.engine.Status() == game.StatusCompleted {
			d.logger.Debug("Tournament complete, leaving frame loop", "frames", d.frames)
			return nil
		}
	}
}

func (d *Driver) apply(cmd Command) {
	d.logger.Debug("Applying command", "command", cmd, "status", d.engine.Status())
	switch cmd {
	case CommandGenerate:
		d.engine.GenerateProgram()
	case CommandStart:
		d.engine.StartRace()
	case CommandPause:
		d.engine.PauseRace()
	case CommandReset:
		d.engine.ResetGame()
	default:
		d.logger.Warn("Unknown command", "command", cmd)
	}
}

func (d *Driver) notify(outcome game.TickOutcome) {
	if d.onFrame != nil {
		d.onFrame(d.engine.Snapshot(), outcome)
	}
}
