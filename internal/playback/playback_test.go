package playback

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/horserace/internal/game"
	"github.com/lox/horserace/internal/race"
	"github.com/lox/horserace/internal/randutil"
	"github.com/lox/horserace/internal/statistics"
)

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

func TestDriverPlaysTournament(t *testing.T) {
	mClock := quartz.NewMock(t)
	engine := game.NewEngine(randutil.New(5), testLogger(), game.WithClock(mClock))
	engine.Initialize()

	driver := NewDriver(engine, mClock, testLogger(),
		WithFrameInterval(time.Second),
		WithStopWhenComplete(true))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	require.NoError(t, driver.Send(ctx, CommandGenerate))
	require.NoError(t, driver.Send(ctx, CommandStart))

	done := make(chan error, 1)
	go func() { done <- driver.Run(ctx) }()

	for {
		select {
		case err := <-done:
			require.NoError(t, err)
			assert.Equal(t, game.StatusCompleted, engine.Status())
			assert.Len(t, engine.CompletedRaces(), len(race.Distances))
			assert.Greater(t, driver.Frames(), 0)
			return
		case <-ctx.Done():
			t.Fatal("driver did not finish the tournament")
		default:
			mClock.Advance(time.Second).MustWait(ctx)
		}
	}
}

func TestDriverCommandsAndCancel(t *testing.T) {
	mClock := quartz.NewMock(t)
	engine := game.NewEngine(randutil.New(6), testLogger(), game.WithClock(mClock))
	engine.Initialize()

	snapshots := make(chan game.Snapshot, 8)
	driver := NewDriver(engine, mClock, testLogger(),
		WithFrameObserver(func(s game.Snapshot, _ game.TickOutcome) { snapshots <- s }))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- driver.Run(ctx) }()

	for _, cmd := range []Command{CommandGenerate, CommandStart, CommandPause} {
		require.NoError(t, driver.Send(ctx, cmd))
	}

	var statuses []game.Status
	for i := 0; i < 3; i++ {
		select {
		case s := <-snapshots:
			statuses = append(statuses, s.Status)
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for snapshot")
		}
	}
	assert.Equal(t, []game.Status{game.StatusProgramGenerated, game.StatusRacing, game.StatusPaused}, statuses)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, game.StatusPaused, engine.Status())
}

func TestCommandString(t *testing.T) {
	assert.Equal(t, "generate", CommandGenerate.String())
	assert.Equal(t, "pause", CommandPause.String())
	assert.Equal(t, "command(42)", Command(42).String())
}

func TestFastForwardSingleRound(t *testing.T) {
	clock := NewStepClock(time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC))
	engine := game.NewEngine(randutil.New(8), testLogger(), game.WithClock(clock), game.WithAutoAdvance(false))
	engine.Initialize()
	engine.GenerateProgram()
	engine.StartRace()
	slowest := race.SlowestFinishTime(engine.Simulation())

	frames, err := FastForward(context.Background(), engine, clock, 10*time.Millisecond)
	require.NoError(t, err)

	assert.Equal(t, game.StatusProgramGenerated, engine.Status())
	assert.Equal(t, 1, engine.RoundIndex())
	assert.InDelta(t, slowest/10, float64(frames), 1)
}

func TestFastForwardStopsOnCancel(t *testing.T) {
	clock := NewStepClock(time.Now())
	engine := game.NewEngine(randutil.New(8), testLogger(), game.WithClock(clock))
	engine.Initialize()
	engine.GenerateProgram()
	engine.StartRace()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	frames, err := FastForward(ctx, engine, clock, 0)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, frames)
	assert.True(t, engine.IsRacing())
}

func TestRunBatch(t *testing.T) {
	cfg := BatchConfig{
		Tournaments: 4,
		Concurrency: 2,
		Seed:        100,
		Frame:       50 * time.Millisecond,
		Logger:      testLogger(),
	}

	tally := statistics.NewTally()
	cfg.OnTournament = func(r TournamentResult) { tally.AddTournament(r.Races) }

	results, err := RunBatch(context.Background(), cfg)
	require.NoError(t, err)
	require.Len(t, results, 4)
	assert.Equal(t, 4, tally.Tournaments)
	assert.Equal(t, 4*len(race.Distances), tally.Races)
	require.NoError(t, tally.Validate())
	cfg.OnTournament = nil

	for i, result := range results {
		assert.Equal(t, i, result.Index)
		assert.Equal(t, int64(100+i), result.Seed)
		assert.Len(t, result.Roster, race.RosterSize)
		require.Len(t, result.Races, len(race.Distances))
		for _, r := range result.Races {
			assert.True(t, r.IsCompleted())
		}
	}

	again, err := RunBatch(context.Background(), cfg)
	require.NoError(t, err)
	for i := range results {
		assert.Equal(t, results[i].Races, again[i].Races, "same seeds replay the same races")
	}
}

func TestRunBatchRejectsEmpty(t *testing.T) {
	_, err := RunBatch(context.Background(), BatchConfig{Logger: testLogger()})
	assert.Error(t, err)
}
