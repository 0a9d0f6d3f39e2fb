package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/horserace/cmd/horserace/shared"
	"github.com/lox/horserace/internal/config"
	"github.com/lox/horserace/internal/game"
	"github.com/lox/horserace/internal/history"
	"github.com/lox/horserace/internal/playback"
	"github.com/lox/horserace/internal/randutil"
	"github.com/lox/horserace/internal/statistics"
)

// SimulateCmd runs tournaments without a UI
type SimulateCmd struct {
	Tournaments   int           `short:"n" default:"1" help:"Number of tournaments to run"`
	Fast          bool          `help:"Step a manual clock instead of racing in real time"`
	Concurrency   int           `help:"Tournaments run in parallel with --fast (0 for GOMAXPROCS)"`
	Seed          int64         `help:"RNG seed (0 for random); tournament i uses seed+i"`
	FrameInterval time.Duration `help:"Frame interval, overrides the config file"`
	JSON          bool          `help:"Print the report as JSON"`
	Quiet         bool          `short:"q" help:"Only print the final report"`
}

func (c *SimulateCmd) override(cfg *config.Config) {
	if c.FrameInterval > 0 {
		cfg.Session.FrameIntervalMS = int(c.FrameInterval.Milliseconds())
	}
}

func (c *SimulateCmd) Run(globals *Globals) error {
	if c.Tournaments <= 0 {
		return fmt.Errorf("--tournaments must be positive, got %d", c.Tournaments)
	}

	cfg, err := globals.loadConfig(c.override)
	if err != nil {
		return err
	}
	logger, err := shared.SetupLogger(os.Stderr, shared.LogOptions{
		Level:   cfg.Logging.Level,
		Debug:   globals.Debug,
		NoColor: globals.NoColor,
	})
	if err != nil {
		return err
	}

	ctx, cancel := shared.SetupSignalHandler(context.Background(), logger)
	defer cancel()

	// Resolve the base seed once so the whole run can be replayed.
	_, seed := randutil.FromOptionalSeed(seedOverride(c.Seed, cfg))

	var writer *history.Writer
	if cfg.History.Dir != "" {
		writer = history.NewWriter(cfg.History.Dir, logger)
	}

	tally := statistics.NewTally()
	out := io.Writer(os.Stdout)
	if c.Quiet || c.JSON {
		out = io.Discard
	}

	start := time.Now()
	if c.Fast {
		err = c.runFast(ctx, cfg, seed, logger, tally, writer)
	} else {
		err = c.runRealtime(ctx, cfg, seed, logger, tally, writer, out)
	}
	if err != nil {
		return err
	}
	if err := tally.Validate(); err != nil {
		return fmt.Errorf("inconsistent results: %w", err)
	}
	logger.Info("Simulation complete", "tournaments", tally.Tournaments, "races", tally.Races, "seed", seed, "duration", time.Since(start))

	r := buildReport(tally, seed)
	if c.JSON {
		return r.writeJSON(os.Stdout)
	}
	r.render(os.Stdout)
	return nil
}

func (c *SimulateCmd) runFast(ctx context.Context, cfg *config.Config, seed int64, logger *log.Logger, tally *statistics.Tally, writer *history.Writer) error {
	_, err := playback.RunBatch(ctx, playback.BatchConfig{
		Tournaments: c.Tournaments,
		Concurrency: c.Concurrency,
		Seed:        seed,
		Frame:       cfg.FrameInterval(),
		Logger:      logger,
		OnTournament: func(result playback.TournamentResult) {
			tally.AddTournament(result.Races)
			if writer == nil {
				return
			}
			if err := writer.Write(history.Record{
				TournamentID: result.TournamentID,
				CompletedAt:  time.Now().UTC(),
				Races:        result.Races,
			}); err != nil {
				logger.Error("Failed to write history", "tournament", result.TournamentID, "error", err)
			}
		},
	})
	return err
}

// runRealtime plays tournaments one after another on the wall clock, printing
// each round as it finishes.
func (c *SimulateCmd) runRealtime(ctx context.Context, cfg *config.Config, seed int64, logger *log.Logger, tally *statistics.Tally, writer *history.Writer, out io.Writer) error {
	clock := quartz.NewReal()

	for i := 0; i < c.Tournaments; i++ {
		engine := game.NewEngine(randutil.New(seed+int64(i)), logger,
			game.WithClock(clock),
			game.WithAutoAdvance(true))
		engine.Events().Subscribe(game.EventSubscriberFunc(func(event game.GameEvent) {
			switch e := event.(type) {
			case game.RoundCompletedEvent:
				printRound(out, e)
			case game.TournamentCompletedEvent:
				tally.AddTournament(e.Races)
			}
		}))
		if writer != nil {
			engine.Events().Subscribe(writer)
		}
		engine.Initialize()

		driver := playback.NewDriver(engine, clock, logger,
			playback.WithFrameInterval(cfg.FrameInterval()),
			playback.WithStopWhenComplete(true))
		if err := driver.Send(ctx, playback.CommandGenerate); err != nil {
			return err
		}
		if err := driver.Send(ctx, playback.CommandStart); err != nil {
			return err
		}

		fmt.Fprintf(out, "Tournament %d/%d\n", i+1, c.Tournaments)
		if err := driver.Run(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				logger.Warn("Simulation interrupted", "completed", tally.Tournaments)
			}
			return err
		}
		fmt.Fprintln(out)
	}
	return nil
}

func printRound(w io.Writer, e game.RoundCompletedEvent) {
	r := e.Race
	fmt.Fprintf(w, "Round %d - %dm\n", r.Round, r.Distance)
	for _, result := range r.Results {
		if result.Rank > statistics.PodiumPlaces {
			break
		}
		fmt.Fprintf(w, "  %d. %-20s %s\n", result.Rank, result.HorseName, history.FormatTime(result.Time))
	}
}
