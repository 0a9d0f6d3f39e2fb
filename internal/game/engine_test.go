package game

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/horserace/internal/gameid"
	"github.com/lox/horserace/internal/race"
	"github.com/lox/horserace/internal/randutil"
)

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *quartz.Mock) {
	t.Helper()
	mClock := quartz.NewMock(t)
	e := NewEngine(randutil.New(42), testLogger(), append([]Option{WithClock(mClock)}, opts...)...)
	e.Initialize()
	return e, mClock
}

func advance(t *testing.T, mClock *quartz.Mock, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	mClock.Advance(d).MustWait(ctx)
}

func msDuration(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}

// finishCurrentRace moves the clock past the slowest horse and ticks once.
func finishCurrentRace(t *testing.T, e *Engine, mClock *quartz.Mock) TickOutcome {
	t.Helper()
	slowest := race.SlowestFinishTime(e.Simulation())
	require.Greater(t, slowest, 0.0)
	advance(t, mClock, msDuration(slowest)+time.Millisecond)
	return e.Tick()
}

type recorder struct {
	events []GameEvent
}

func (r *recorder) OnEvent(event GameEvent) {
	r.events = append(r.events, event)
}

func (r *recorder) count(eventType EventType) int {
	n := 0
	for _, ev := range r.events {
		if ev.EventType() == eventType {
			n++
		}
	}
	return n
}

func TestEngineInitialState(t *testing.T) {
	e, _ := newTestEngine(t)

	assert.Equal(t, StatusIdle, e.Status())
	assert.True(t, e.CanGenerate())
	assert.False(t, e.CanStart())
	assert.Len(t, e.Horses(), race.RosterSize)
	assert.Empty(t, e.Program())
	_, ok := e.CurrentRace()
	assert.False(t, ok)

	roster := e.Horses()
	e.Initialize()
	assert.Equal(t, roster, e.Horses(), "roster is created once per session")
}

func TestGenerateProgram(t *testing.T) {
	e, _ := newTestEngine(t)
	rec := &recorder{}
	e.Events().Subscribe(rec)

	e.GenerateProgram()

	assert.Equal(t, StatusProgramGenerated, e.Status())
	assert.Equal(t, 0, e.RoundIndex())
	assert.Empty(t, e.CompletedRaces())
	assert.NoError(t, gameid.Validate(e.TournamentID()))

	program := e.Program()
	require.Len(t, program, 6)
	for i, r := range program {
		assert.Equal(t, []int{1200, 1400, 1600, 1800, 2000, 2200}[i], r.Distance)
		assert.Equal(t, i+1, r.Round)
		assert.Equal(t, race.StatusPending, r.Status)
		assert.Len(t, r.Horses, race.FieldSize)
	}

	current, ok := e.CurrentRace()
	require.True(t, ok)
	assert.Equal(t, 1, current.Round)
	assert.Equal(t, 1, rec.count(EventTypeProgramGenerated))
}

func TestGenerateProgramRequiresRoster(t *testing.T) {
	mClock := quartz.NewMock(t)
	e := NewEngine(randutil.New(1), testLogger(), WithClock(mClock))

	e.GenerateProgram()

	assert.Equal(t, StatusIdle, e.Status())
	assert.Empty(t, e.Program())
}

func TestGenerateProgramIgnoredOutsideGuard(t *testing.T) {
	e, _ := newTestEngine(t)
	e.GenerateProgram()
	first := e.Program()
	id := e.TournamentID()

	e.GenerateProgram()
	assert.Equal(t, first, e.Program(), "generate is only valid from idle or completed")

	e.StartRace()
	e.GenerateProgram()
	assert.Equal(t, StatusRacing, e.Status())
	assert.Equal(t, id, e.TournamentID())
}

func TestStartRace(t *testing.T) {
	e, mClock := newTestEngine(t)
	rec := &recorder{}
	e.Events().Subscribe(rec)
	e.GenerateProgram()

	e.StartRace()

	assert.Equal(t, StatusRacing, e.Status())
	assert.True(t, e.IsRacing())
	assert.True(t, e.CanStart())
	assert.False(t, e.CanGenerate())

	current, ok := e.CurrentRace()
	require.True(t, ok)
	assert.Equal(t, race.StatusRunning, current.Status)

	sim := e.Simulation()
	require.Len(t, sim, race.FieldSize)
	for i := 1; i < len(sim); i++ {
		assert.LessOrEqual(t, sim[i-1].FinishTime, sim[i].FinishTime)
	}

	assert.Equal(t, mClock.Now(), e.state.StartedAt)
	assert.Zero(t, e.state.ElapsedBeforePause)
	assert.Zero(t, e.Elapsed())
	assert.Equal(t, 1, rec.count(EventTypeRaceStart))

	// Only one race runs at a time and it is the current one.
	for i, r := range e.Program() {
		if i == 0 {
			continue
		}
		assert.Equal(t, race.StatusPending, r.Status)
	}
}

func TestStartRaceWhileRacingIsNoop(t *testing.T) {
	e, mClock := newTestEngine(t)
	e.GenerateProgram()
	e.StartRace()
	started := e.state.StartedAt
	sim := e.Simulation()

	advance(t, mClock, 750*time.Millisecond)
	e.StartRace()

	assert.Equal(t, StatusRacing, e.Status())
	assert.Equal(t, started, e.state.StartedAt)
	assert.Zero(t, e.state.ElapsedBeforePause)
	assert.Equal(t, sim, e.Simulation(), "no resimulation")
	assert.Equal(t, 750*time.Millisecond, e.Elapsed())
}

func TestStartRaceIgnoredWhenIdle(t *testing.T) {
	e, _ := newTestEngine(t)
	e.StartRace()
	assert.Equal(t, StatusIdle, e.Status())
}

func TestPauseAndResume(t *testing.T) {
	e, mClock := newTestEngine(t)
	rec := &recorder{}
	e.Events().Subscribe(rec)
	e.GenerateProgram()
	e.StartRace()

	advance(t, mClock, 2*time.Second)
	startAtPause := e.state.StartedAt
	e.PauseRace()

	assert.Equal(t, StatusPaused, e.Status())
	assert.True(t, e.IsPaused())
	assert.True(t, e.CanStart())
	assert.Equal(t, mClock.Now(), e.state.PausedAt)
	pausedAt := e.state.PausedAt

	// Wall clock keeps moving while paused.
	advance(t, mClock, 10*time.Second)
	assert.Equal(t, 2*time.Second, e.Elapsed())

	e.StartRace()
	assert.Equal(t, StatusRacing, e.Status())
	assert.Equal(t, pausedAt.Sub(startAtPause), e.state.ElapsedBeforePause)
	assert.Equal(t, 2*time.Second, e.state.ElapsedBeforePause)
	assert.Equal(t, mClock.Now(), e.state.StartedAt)
	assert.True(t, e.state.PausedAt.IsZero())

	advance(t, mClock, time.Second)
	assert.Equal(t, 3*time.Second, e.Elapsed())

	// A second cycle accumulates on top of the first.
	e.PauseRace()
	advance(t, mClock, 5*time.Second)
	e.StartRace()
	assert.Equal(t, 3*time.Second, e.state.ElapsedBeforePause)

	assert.Equal(t, 2, rec.count(EventTypeRacePause))
	assert.Equal(t, 2, rec.count(EventTypeRaceResume))
}

func TestPauseIgnoredOutsideRacing(t *testing.T) {
	e, mClock := newTestEngine(t)
	e.PauseRace()
	assert.Equal(t, StatusIdle, e.Status())

	e.GenerateProgram()
	e.PauseRace()
	assert.Equal(t, StatusProgramGenerated, e.Status())

	e.StartRace()
	e.PauseRace()
	pausedAt := e.state.PausedAt
	advance(t, mClock, time.Second)
	e.PauseRace()
	assert.Equal(t, pausedAt, e.state.PausedAt, "pausing twice keeps the first pause time")
}

func TestTickProgress(t *testing.T) {
	e, mClock := newTestEngine(t)
	e.GenerateProgram()
	e.StartRace()

	sim := e.Simulation()
	fastest := sim[0]
	advance(t, mClock, msDuration(fastest.FinishTime/2))

	assert.Equal(t, TickRunning, e.Tick())

	current, _ := e.CurrentRace()
	assert.InDelta(t, 50.0, current.Horse(fastest.ID).Position, 0.01)
	for _, h := range current.Horses {
		assert.Greater(t, h.Position, 0.0)
		assert.Less(t, h.Position, ProgressComplete)
	}
}

func TestTickAfterPauseIsSoftCancelled(t *testing.T) {
	e, mClock := newTestEngine(t)
	e.GenerateProgram()
	e.StartRace()

	advance(t, mClock, time.Second)
	require.Equal(t, TickRunning, e.Tick())
	before, _ := e.CurrentRace()

	e.PauseRace()
	advance(t, mClock, time.Second)

	// The frame that was already queued when the pause landed.
	assert.Equal(t, TickStopped, e.Tick())
	after, _ := e.CurrentRace()
	assert.Equal(t, before.Horses, after.Horses)
	assert.Equal(t, StatusPaused, e.Status())
}

func TestTickResumesFromAccumulatedTime(t *testing.T) {
	e, mClock := newTestEngine(t)
	e.GenerateProgram()
	e.StartRace()
	fastest := e.Simulation()[0]
	quarter := msDuration(fastest.FinishTime / 4)

	advance(t, mClock, quarter)
	e.PauseRace()
	advance(t, mClock, 30*time.Second)
	e.StartRace()
	advance(t, mClock, quarter)

	require.Equal(t, TickRunning, e.Tick())
	current, _ := e.CurrentRace()
	assert.InDelta(t, 50.0, current.Horse(fastest.ID).Position, 0.01)
}

func TestRaceCompletionWithoutAutoAdvance(t *testing.T) {
	e, mClock := newTestEngine(t, WithAutoAdvance(false))
	rec := &recorder{}
	e.Events().Subscribe(rec)
	e.GenerateProgram()
	e.StartRace()
	sim := e.Simulation()

	assert.Equal(t, TickFinished, finishCurrentRace(t, e, mClock))

	assert.Equal(t, StatusProgramGenerated, e.Status())
	assert.Equal(t, 1, e.RoundIndex())
	assert.True(t, e.state.StartedAt.IsZero())
	assert.Zero(t, e.state.ElapsedBeforePause)
	assert.Empty(t, e.Simulation())

	first := e.Program()[0]
	assert.Equal(t, race.StatusCompleted, first.Status)
	require.Len(t, first.Results, len(first.Horses))
	for i, result := range first.Results {
		assert.Equal(t, i+1, result.Rank)
		assert.Equal(t, sim[i].ID, result.HorseID)
		assert.Equal(t, sim[i].Name, result.HorseName)
		assert.Equal(t, sim[i].FinishTime, result.Time)
		if i > 0 {
			assert.LessOrEqual(t, first.Results[i-1].Time, result.Time)
		}
	}
	for _, h := range first.Horses {
		assert.Equal(t, ProgressComplete, h.Position)
	}

	completed := e.CompletedRaces()
	require.Len(t, completed, 1)
	assert.Equal(t, first, completed[0])

	next, ok := e.CurrentRace()
	require.True(t, ok)
	assert.Equal(t, race.StatusPending, next.Status)
	assert.Equal(t, 1, rec.count(EventTypeRoundComplete))

	// Ticking again must not move anything or complete twice.
	advance(t, mClock, time.Second)
	assert.Equal(t, TickStopped, e.Tick())
	assert.Equal(t, first, e.Program()[0])
	assert.Len(t, e.CompletedRaces(), 1)
	assert.Equal(t, 1, rec.count(EventTypeRoundComplete))
}

func TestRaceCompletionAutoAdvances(t *testing.T) {
	e, mClock := newTestEngine(t)
	e.GenerateProgram()
	e.StartRace()

	require.Equal(t, TickFinished, finishCurrentRace(t, e, mClock))

	assert.Equal(t, StatusRacing, e.Status())
	assert.Equal(t, 1, e.RoundIndex())
	current, ok := e.CurrentRace()
	require.True(t, ok)
	assert.Equal(t, race.StatusRunning, current.Status)
	assert.Equal(t, mClock.Now(), e.state.StartedAt)
	assert.Zero(t, e.state.ElapsedBeforePause)
	assert.Len(t, e.Simulation(), race.FieldSize)
}

func TestAutoAdvanceToggle(t *testing.T) {
	e, mClock := newTestEngine(t)
	e.AutoAdvancer().SetEnabled(false)
	e.GenerateProgram()
	e.StartRace()

	require.Equal(t, TickFinished, finishCurrentRace(t, e, mClock))
	assert.Equal(t, StatusProgramGenerated, e.Status())

	e.AutoAdvancer().SetEnabled(true)
	e.StartRace()
	require.Equal(t, TickFinished, finishCurrentRace(t, e, mClock))
	assert.Equal(t, StatusRacing, e.Status())
	assert.Equal(t, 2, e.RoundIndex())
}

func TestFullTournament(t *testing.T) {
	e, mClock := newTestEngine(t)
	rec := &recorder{}
	e.Events().Subscribe(rec)
	e.GenerateProgram()
	e.StartRace()

	for rounds := 0; e.Status() != StatusCompleted; rounds++ {
		require.Less(t, rounds, 6, "tournament should finish in six rounds")
		require.Equal(t, TickFinished, finishCurrentRace(t, e, mClock))
	}

	assert.Equal(t, 6, e.RoundIndex())
	_, ok := e.CurrentRace()
	assert.False(t, ok)
	assert.True(t, e.CanGenerate())
	assert.False(t, e.CanStart())

	completed := e.CompletedRaces()
	require.Len(t, completed, 6)
	for i, r := range completed {
		assert.Equal(t, i+1, r.Round)
		assert.True(t, r.IsCompleted())
		assert.Len(t, r.Results, race.FieldSize)
	}

	assert.Equal(t, 6, rec.count(EventTypeRaceStart))
	assert.Equal(t, 6, rec.count(EventTypeRoundComplete))
	assert.Equal(t, 1, rec.count(EventTypeTournamentComplete))

	// Idempotent once everything has finished.
	advance(t, mClock, time.Minute)
	assert.Equal(t, TickStopped, e.Tick())
	assert.Equal(t, completed, e.CompletedRaces())
	assert.Equal(t, 6, rec.count(EventTypeRoundComplete))

	// A new program starts over.
	e.GenerateProgram()
	assert.Equal(t, StatusProgramGenerated, e.Status())
	assert.Equal(t, 0, e.RoundIndex())
	assert.Empty(t, e.CompletedRaces())
}

func TestRoundCompletedDeliveredBeforeNextStart(t *testing.T) {
	e, mClock := newTestEngine(t)
	rec := &recorder{}
	e.Events().Subscribe(rec)
	e.GenerateProgram()
	e.StartRace()
	require.Equal(t, TickFinished, finishCurrentRace(t, e, mClock))

	var types []EventType
	for _, ev := range rec.events {
		types = append(types, ev.EventType())
	}
	assert.Equal(t, []EventType{
		EventTypeProgramGenerated,
		EventTypeRaceStart,
		EventTypeRoundComplete,
		EventTypeRaceStart,
	}, types)

	completed := rec.events[2].(RoundCompletedEvent)
	assert.True(t, completed.HasNext)
	assert.Equal(t, 1, completed.Race.Round)
	assert.Equal(t, e.TournamentID(), completed.TournamentID)
}

func TestResetGame(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, e *Engine, mClock *quartz.Mock)
	}{
		{name: "idle", setup: func(t *testing.T, e *Engine, mClock *quartz.Mock) {}},
		{name: "program generated", setup: func(t *testing.T, e *Engine, mClock *quartz.Mock) {
			e.GenerateProgram()
		}},
		{name: "racing", setup: func(t *testing.T, e *Engine, mClock *quartz.Mock) {
			e.GenerateProgram()
			e.StartRace()
			advance(t, mClock, time.Second)
			e.Tick()
		}},
		{name: "paused", setup: func(t *testing.T, e *Engine, mClock *quartz.Mock) {
			e.GenerateProgram()
			e.StartRace()
			advance(t, mClock, time.Second)
			e.PauseRace()
			advance(t, mClock, time.Second)
			e.StartRace()
			e.PauseRace()
		}},
		{name: "completed", setup: func(t *testing.T, e *Engine, mClock *quartz.Mock) {
			e.GenerateProgram()
			e.StartRace()
			for e.Status() != StatusCompleted {
				finishCurrentRace(t, e, mClock)
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, mClock := newTestEngine(t)
			roster := e.Horses()
			tt.setup(t, e, mClock)

			e.ResetGame()

			assert.Equal(t, StatusIdle, e.Status())
			assert.Empty(t, e.Program())
			assert.Equal(t, 0, e.RoundIndex())
			assert.Empty(t, e.CompletedRaces())
			assert.Empty(t, e.Simulation())
			assert.True(t, e.state.StartedAt.IsZero())
			assert.True(t, e.state.PausedAt.IsZero())
			assert.Zero(t, e.state.ElapsedBeforePause)
			assert.Empty(t, e.TournamentID())
			assert.Equal(t, roster, e.Horses())
			assert.Equal(t, TickStopped, e.Tick())
		})
	}
}

func TestSnapshot(t *testing.T) {
	e, mClock := newTestEngine(t)
	e.GenerateProgram()
	e.StartRace()
	advance(t, mClock, 1500*time.Millisecond)
	e.Tick()

	snap := e.Snapshot()
	assert.Equal(t, StatusRacing, snap.Status)
	assert.Equal(t, e.TournamentID(), snap.TournamentID)
	assert.InDelta(t, 1500.0, snap.ElapsedMs, 0.001)
	current, ok := snap.CurrentRace()
	require.True(t, ok)
	assert.Equal(t, race.StatusRunning, current.Status)

	// Snapshots are copies.
	snap.Program[0].Horses[0].Position = -1
	live, _ := e.CurrentRace()
	assert.NotEqual(t, -1.0, live.Horses[0].Position)
}
