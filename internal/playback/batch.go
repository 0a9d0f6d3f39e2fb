package playback

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/lox/horserace/internal/game"
	"github.com/lox/horserace/internal/race"
	"github.com/lox/horserace/internal/randutil"
)

// BatchConfig describes a run of independent fast-forwarded tournaments.
type BatchConfig struct {
	Tournaments int
	Concurrency int // defaults to GOMAXPROCS
	Seed        int64
	Frame       time.Duration
	Logger      *log.Logger

	// OnTournament is called from worker goroutines as each tournament
	// finishes, so it must be safe for concurrent use.
	OnTournament func(TournamentResult)
}

// TournamentResult is the outcome of one session in a batch.
type TournamentResult struct {
	Index        int
	Seed         int64
	TournamentID string
	Roster       []race.Horse
	Races        []race.Race
	Frames       int
}

// RunBatch plays cfg.Tournaments sessions concurrently. Every session owns its
// engine, clock and generator (seeded from cfg.Seed plus its index), so they
// share nothing while running.
func RunBatch(ctx context.Context, cfg BatchConfig) ([]TournamentResult, error) {
	if cfg.Tournaments <= 0 {
		return nil, fmt.Errorf("tournaments must be positive, got %d", cfg.Tournaments)
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = runtime.GOMAXPROCS(0)
	}

	results := make([]TournamentResult, cfg.Tournaments)
	start := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Concurrency)
	for i := 0; i < cfg.Tournaments; i++ {
		g.Go(func() error {
			result, err := runTournament(ctx, cfg, i, start)
			if err != nil {
				return fmt.Errorf("tournament %d: %w", i+1, err)
			}
			results[i] = result
			if cfg.OnTournament != nil {
				cfg.OnTournament(result)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	cfg.Logger.Debug("Batch finished", "tournaments", cfg.Tournaments, "duration", time.Since(start))
	return results, nil
}

func runTournament(ctx context.Context, cfg BatchConfig, index int, start time.Time) (TournamentResult, error) {
	seed := cfg.Seed + int64(index)
	clock := NewStepClock(start)
	engine := game.NewEngine(randutil.New(seed), cfg.Logger, game.WithClock(clock))

	engine.Initialize()
	engine.GenerateProgram()
	engine.StartRace()

	frames, err := FastForward(ctx, engine, clock, cfg.Frame)
	if err != nil {
		return TournamentResult{}, err
	}
	if engine.Status() != game.StatusCompleted {
		return TournamentResult{}, fmt.Errorf("stopped in status %s after %d frames", engine.Status(), frames)
	}

	return TournamentResult{
		Index:        index,
		Seed:         seed,
		TournamentID: engine.TournamentID(),
		Roster:       engine.Horses(),
		Races:        engine.CompletedRaces(),
		Frames:       frames,
	}, nil
}
