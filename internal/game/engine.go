package game

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/horserace/internal/gameid"
	"github.com/lox/horserace/internal/race"
	"github.com/lox/horserace/internal/randutil"
)

// Clock is the engine's wall-clock source. quartz.Clock satisfies it.
type Clock interface {
	Now(tags ...string) time.Time
}

// Engine owns one session's State and is the only thing that mutates it.
// It is not safe for concurrent use: hosts call commands and Tick from a
// single goroutine.
type Engine struct {
	state        *State
	clock        Clock
	rng          randutil.Source
	logger       *log.Logger
	eventBus     EventBus
	ids          *gameid.Generator
	advancer     *AutoAdvancer
	tournamentID string
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the real wall clock.
func WithClock(clock Clock) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithAutoAdvance controls whether the next round starts on its own after a
// round completes. It defaults to true.
func WithAutoAdvance(enabled bool) Option {
	return func(e *Engine) { e.advancer.SetEnabled(enabled) }
}

// WithEventBus shares an existing bus instead of creating one.
func WithEventBus(bus EventBus) Option {
	return func(e *Engine) { e.eventBus = bus }
}

// NewEngine creates an idle engine with an empty roster. Call Initialize to
// create the roster.
func NewEngine(rng randutil.Source, logger *log.Logger, opts ...Option) *Engine {
	e := &Engine{
		state:    NewState(),
		clock:    quartz.NewReal(),
		rng:      rng,
		logger:   logger.WithPrefix("engine"),
		eventBus: NewEventBus(),
		ids:      gameid.NewGenerator(rng),
	}
	e.advancer = NewAutoAdvancer(e)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Events returns the bus for subscribing to engine events.
func (e *Engine) Events() EventBus {
	return e.eventBus
}

// AutoAdvancer returns the subscriber that chains rounds together.
func (e *Engine) AutoAdvancer() *AutoAdvancer {
	return e.advancer
}

// Initialize creates the roster once per session. Later calls keep it.
func (e *Engine) Initialize() {
	if len(e.state.Horses) > 0 {
		return
	}
	e.state.Horses = race.GenerateRoster(e.rng)
	e.logger.Debug("Roster created", "horses", len(e.state.Horses))
}

// GenerateProgram builds a fresh program, discarding any previous program and
// history. Valid from Idle and Completed with a non-empty roster.
func (e *Engine) GenerateProgram() {
	s := e.state
	if !s.CanGenerate() {
		e.logger.Debug("Ignoring generate", "status", s.Status)
		return
	}
	if len(s.Horses) == 0 {
		e.logger.Warn("Ignoring generate with empty roster")
		return
	}

	now := e.clock.Now("engine", "generate")
	s.Program = race.BuildProgram(s.Horses, e.rng)
	s.RoundIndex = 0
	s.Completed = []race.Race{}
	s.ResetTiming()
	s.Status = StatusProgramGenerated
	e.tournamentID = e.ids.GenerateAt(now)

	e.logger.Info("Program generated", "tournament", e.tournamentID, "races", len(s.Program))
	e.eventBus.Publish(ProgramGeneratedEvent{
		TournamentID: e.tournamentID,
		Program:      e.Program(),
		timestamp:    now,
	})
}

// StartRace starts the current race, resumes a paused one, or does nothing
// when already racing.
func (e *Engine) StartRace() {
	s := e.state
	switch s.Status {
	case StatusProgramGenerated:
		e.startCurrentRace()
	case StatusPaused:
		e.resume()
	case StatusRacing:
		e.logger.Debug("Start while racing, nothing to do", "round", s.RoundIndex+1)
	default:
		e.logger.Debug("Ignoring start", "status", s.Status)
	}
}

func (e *Engine) startCurrentRace() {
	s := e.state
	current := s.CurrentRace()
	if current == nil {
		e.logger.Debug("Ignoring start, no race at round index", "round_index", s.RoundIndex)
		return
	}

	ordering := race.Simulate(current, e.rng)
	now := e.clock.Now("engine", "start")

	current.Status = race.StatusRunning
	s.Simulation = ordering
	s.StartedAt = now
	s.PausedAt = time.Time{}
	s.ElapsedBeforePause = 0
	s.Status = StatusRacing

	e.logger.Info("Race started",
		"tournament", e.tournamentID,
		"round", current.Round,
		"distance", current.Distance,
		"favourite", ordering[0].Name)
	e.eventBus.Publish(RaceStartEvent{
		TournamentID: e.tournamentID,
		Round:        current.Round,
		Distance:     current.Distance,
		Ordering:     append([]race.Horse(nil), ordering...),
		timestamp:    now,
	})
}

func (e *Engine) resume() {
	s := e.state
	now := e.clock.Now("engine", "resume")
	if !s.PausedAt.IsZero() && !s.StartedAt.IsZero() {
		s.ElapsedBeforePause += s.PausedAt.Sub(s.StartedAt)
	}
	s.StartedAt = now
	s.PausedAt = time.Time{}
	s.Status = StatusRacing

	e.logger.Info("Race resumed", "round", s.RoundIndex+1, "elapsed_before_pause", s.ElapsedBeforePause)
	e.eventBus.Publish(RaceResumeEvent{
		TournamentID:       e.tournamentID,
		Round:              s.RoundIndex + 1,
		ElapsedBeforePause: s.ElapsedBeforePause,
		timestamp:          now,
	})
}

// PauseRace records the pause time. Valid only while racing.
func (e *Engine) PauseRace() {
	s := e.state
	if s.Status != StatusRacing {
		e.logger.Debug("Ignoring pause", "status", s.Status)
		return
	}

	now := e.clock.Now("engine", "pause")
	s.PausedAt = now
	s.Status = StatusPaused

	elapsed := s.Elapsed(now)
	e.logger.Info("Race paused", "round", s.RoundIndex+1, "elapsed", elapsed)
	e.eventBus.Publish(RacePauseEvent{
		TournamentID: e.tournamentID,
		Round:        s.RoundIndex + 1,
		Elapsed:      elapsed,
		timestamp:    now,
	})
}

// ResetGame returns to Idle, keeping the roster.
func (e *Engine) ResetGame() {
	s := e.state
	s.Program = []*race.Race{}
	s.RoundIndex = 0
	s.Completed = []race.Race{}
	s.ResetTiming()
	s.Status = StatusIdle
	e.tournamentID = ""

	e.logger.Info("Game reset")
	e.eventBus.Publish(GameResetEvent{timestamp: e.clock.Now("engine", "reset")})
}

// Tick is one frame of the progress driver. Hosts keep scheduling frames while
// IsRacing reports true.
func (e *Engine) Tick() TickOutcome {
	s := e.state
	if s.Status != StatusRacing {
		return TickStopped
	}

	if !Advance(s, e.clock.Now("engine", "tick")) {
		return TickRunning
	}

	FinishPositions(s)
	e.completeRace()
	return TickFinished
}

func (e *Engine) completeRace() {
	s := e.state
	round := s.RoundIndex
	if !s.RecordResults(round, race.RankResults(s.Simulation)) {
		return
	}
	finished := s.Completed[len(s.Completed)-1]
	now := e.clock.Now("engine", "complete")

	s.RoundIndex++
	s.ResetTiming()
	hasNext := s.RoundIndex < len(s.Program)
	if hasNext {
		s.Status = StatusProgramGenerated
	} else {
		s.Status = StatusCompleted
	}

	e.logger.Info("Race completed",
		"tournament", e.tournamentID,
		"round", finished.Round,
		"winner", finished.Results[0].HorseName,
		"time_ms", int(finished.Results[0].Time))

	event := RoundCompletedEvent{
		TournamentID: e.tournamentID,
		Race:         finished,
		HasNext:      hasNext,
		timestamp:    now,
	}
	e.eventBus.Publish(event)

	if !hasNext {
		e.logger.Info("Tournament completed", "tournament", e.tournamentID, "races", len(s.Completed))
		e.eventBus.Publish(TournamentCompletedEvent{
			TournamentID: e.tournamentID,
			Races:        e.CompletedRaces(),
			timestamp:    now,
		})
	}

	// Chaining runs after every subscriber has seen the completed round.
	e.advancer.OnEvent(event)
}

// Status returns the current game status.
func (e *Engine) Status() Status { return e.state.Status }

// RoundIndex returns the zero-based index of the current round.
func (e *Engine) RoundIndex() int { return e.state.RoundIndex }

// TournamentID is empty until a program is generated.
func (e *Engine) TournamentID() string { return e.tournamentID }

func (e *Engine) CanGenerate() bool { return e.state.CanGenerate() }
func (e *Engine) CanStart() bool    { return e.state.CanStart() }
func (e *Engine) IsRacing() bool    { return e.state.Status == StatusRacing }
func (e *Engine) IsPaused() bool    { return e.state.Status == StatusPaused }

// Horses returns a copy of the roster.
func (e *Engine) Horses() []race.Horse {
	return append([]race.Horse(nil), e.state.Horses...)
}

// Program returns deep copies of every race in the program.
func (e *Engine) Program() []race.Race {
	program := make([]race.Race, len(e.state.Program))
	for i, r := range e.state.Program {
		program[i] = r.Clone()
	}
	return program
}

// CompletedRaces returns copies of the history snapshots.
func (e *Engine) CompletedRaces() []race.Race {
	completed := make([]race.Race, len(e.state.Completed))
	for i := range e.state.Completed {
		completed[i] = e.state.Completed[i].Clone()
	}
	return completed
}

// CurrentRace returns a copy of the race at the round index.
func (e *Engine) CurrentRace() (race.Race, bool) {
	current := e.state.CurrentRace()
	if current == nil {
		return race.Race{}, false
	}
	return current.Clone(), true
}

// Simulation returns the fastest-first ordering of the active race.
func (e *Engine) Simulation() []race.Horse {
	return append([]race.Horse(nil), e.state.Simulation...)
}

// Elapsed is the active racing time of the current round.
func (e *Engine) Elapsed() time.Duration {
	return e.state.Elapsed(e.clock.Now("engine", "elapsed"))
}

// Snapshot captures the read model at the current clock time.
func (e *Engine) Snapshot() Snapshot {
	now := e.clock.Now("engine", "snapshot")
	return Snapshot{
		TournamentID: e.tournamentID,
		Status:       e.state.Status,
		RoundIndex:   e.state.RoundIndex,
		Horses:       e.Horses(),
		Program:      e.Program(),
		Completed:    e.CompletedRaces(),
		ElapsedMs:    float64(e.state.Elapsed(now)) / float64(time.Millisecond),
		CapturedAt:   now,
	}
}
