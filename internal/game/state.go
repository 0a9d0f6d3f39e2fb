package game

import (
	"fmt"
	"time"

	"github.com/lox/horserace/internal/race"
)

// Status drives which commands the engine accepts.
type Status int

const (
	StatusIdle Status = iota
	StatusProgramGenerated
	StatusRacing
	StatusPaused
	StatusCompleted
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusProgramGenerated:
		return "program_generated"
	case StatusRacing:
		return "racing"
	case StatusPaused:
		return "paused"
	case StatusCompleted:
		return "completed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// MarshalText encodes the status by name for JSON snapshots.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// State is the single aggregate for one session. It is owned by an Engine and
// is not safe for concurrent use.
type State struct {
	Horses     []race.Horse
	Program    []*race.Race
	RoundIndex int
	Status     Status
	Completed  []race.Race

	// Simulation is the fastest-first ordering for the active race.
	Simulation []race.Horse

	// StartedAt and PausedAt are zero when unset.
	StartedAt          time.Time
	PausedAt           time.Time
	ElapsedBeforePause time.Duration
}

// NewState returns an idle state with no roster.
func NewState() *State {
	return &State{
		Status:    StatusIdle,
		Program:   []*race.Race{},
		Completed: []race.Race{},
	}
}

// CurrentRace is the program entry at the round index, or nil when out of range.
func (s *State) CurrentRace() *race.Race {
	if s.RoundIndex < 0 || s.RoundIndex >= len(s.Program) {
		return nil
	}
	return s.Program[s.RoundIndex]
}

func (s *State) CanGenerate() bool {
	return s.Status == StatusIdle || s.Status == StatusCompleted
}

func (s *State) CanStart() bool {
	return s.Status == StatusProgramGenerated || s.Status == StatusPaused || s.Status == StatusRacing
}

// SetHorsePosition writes a participant's progress. Unknown rounds or horse
// ids are ignored and reported as false.
func (s *State) SetHorsePosition(round, horseID int, position float64) bool {
	if round < 0 || round >= len(s.Program) {
		return false
	}
	h := s.Program[round].Horse(horseID)
	if h == nil {
		return false
	}
	h.Position = position
	return true
}

// RecordResults marks the race at round completed and appends a snapshot of it
// to the history. Unknown rounds are ignored and reported as false.
func (s *State) RecordResults(round int, results []race.Result) bool {
	if round < 0 || round >= len(s.Program) {
		return false
	}
	r := s.Program[round]
	r.Status = race.StatusCompleted
	r.Results = results
	s.Completed = append(s.Completed, r.Clone())
	return true
}

// ResetTiming clears everything scoped to the active race's clock.
func (s *State) ResetTiming() {
	s.Simulation = nil
	s.StartedAt = time.Time{}
	s.PausedAt = time.Time{}
	s.ElapsedBeforePause = 0
}

// Elapsed is the active racing time at now, excluding paused intervals.
func (s *State) Elapsed(now time.Time) time.Duration {
	switch {
	case s.StartedAt.IsZero():
		return s.ElapsedBeforePause
	case s.Status == StatusPaused && !s.PausedAt.IsZero():
		return s.ElapsedBeforePause + s.PausedAt.Sub(s.StartedAt)
	default:
		return s.ElapsedBeforePause + now.Sub(s.StartedAt)
	}
}
