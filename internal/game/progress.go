package game

import (
	"math"
	"time"

	"github.com/lox/horserace/internal/race"
)

// ProgressComplete is the position of a horse that has crossed the line.
const ProgressComplete = 100.0

// TickOutcome tells a host loop whether to schedule another frame.
type TickOutcome int

const (
	// TickStopped means the engine was not racing; nothing was written.
	TickStopped TickOutcome = iota
	// TickRunning means at least one horse is still short of the line.
	TickRunning
	// TickFinished means the race completed during this tick.
	TickFinished
)

func (o TickOutcome) String() string {
	switch o {
	case TickStopped:
		return "stopped"
	case TickRunning:
		return "running"
	case TickFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Advance recomputes every simulated horse's position from the state's timing
// fields and now, writes them into the active race and reports whether all of
// them have reached ProgressComplete. It keeps no state between calls.
func Advance(s *State, now time.Time) bool {
	if len(s.Simulation) == 0 || s.StartedAt.IsZero() {
		return false
	}

	total := s.ElapsedBeforePause + now.Sub(s.StartedAt)
	totalMs := float64(total) / float64(time.Millisecond)
	slowest := race.SlowestFinishTime(s.Simulation)

	allFinished := true
	for _, h := range s.Simulation {
		progress := Progress(totalMs, h.FinishTime, slowest)
		s.SetHorsePosition(s.RoundIndex, h.ID, progress)
		if progress < ProgressComplete {
			allFinished = false
		}
	}
	return allFinished
}

// Progress converts elapsed milliseconds into a 0-100 position. An unset
// finish time falls back to the slowest one in the field.
func Progress(elapsedMs, finishTime, slowest float64) float64 {
	if finishTime <= 0 {
		finishTime = slowest
	}
	if finishTime <= 0 {
		return ProgressComplete
	}
	p := elapsedMs / finishTime * ProgressComplete
	return math.Max(0, math.Min(p, ProgressComplete))
}

// FinishPositions snaps every simulated horse to exactly ProgressComplete.
func FinishPositions(s *State) {
	for _, h := range s.Simulation {
		s.SetHorsePosition(s.RoundIndex, h.ID, ProgressComplete)
	}
}
