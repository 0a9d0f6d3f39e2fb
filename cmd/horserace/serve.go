package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"github.com/lox/horserace/cmd/horserace/shared"
	"github.com/lox/horserace/internal/config"
	"github.com/lox/horserace/internal/game"
	"github.com/lox/horserace/internal/playback"
)

// ServeCmd runs tournaments back to back and broadcasts them to spectators
type ServeCmd struct {
	Address       string        `help:"Listen host, overrides the config file"`
	Port          int           `help:"Listen port, overrides the config file"`
	Tournaments   int           `help:"Stop after this many tournaments (0 runs until interrupted)"`
	Interval      time.Duration `default:"10s" help:"Pause between tournaments"`
	Seed          int64         `help:"RNG seed (0 for random)"`
	FrameInterval time.Duration `help:"Frame interval, overrides the config file"`
	JSONLogs      bool          `name:"json-logs" help:"Log as JSON"`
}

func (c *ServeCmd) override(cfg *config.Config) {
	if c.Address != "" {
		cfg.Spectate.Address = c.Address
	}
	if c.Port != 0 {
		cfg.Spectate.Port = c.Port
	}
	if c.FrameInterval > 0 {
		cfg.Session.FrameIntervalMS = int(c.FrameInterval.Milliseconds())
	}
}

func (c *ServeCmd) Run(globals *Globals) error {
	cfg, err := globals.loadConfig(c.override)
	if err != nil {
		return err
	}
	logger, err := shared.SetupLogger(os.Stderr, shared.LogOptions{
		Level:   cfg.Logging.Level,
		Debug:   globals.Debug,
		JSON:    c.JSONLogs,
		NoColor: globals.NoColor,
	})
	if err != nil {
		return err
	}

	ctx, cancel := shared.SetupSignalHandler(context.Background(), logger)
	defer cancel()

	clock := quartz.NewReal()
	engine, seed := newEngine(cfg, seedOverride(c.Seed, cfg), clock, logger)
	// Spectators watch whole tournaments, rounds always chain.
	engine.AutoAdvancer().SetEnabled(true)

	server, collector := attachSpectate(engine, cfg.SpectateAddress(), logger)
	attachHistory(engine, cfg, logger)

	driver := playback.NewDriver(engine, clock, logger,
		playback.WithFrameInterval(cfg.FrameInterval()),
		playback.WithFrameObserver(publishFrames(server, collector)))
	engine.Events().Subscribe(newTournamentLoop(ctx, driver, clock, c.Interval, c.Tournaments, cancel, logger))

	engine.Initialize()
	logger.Info("Serving tournaments", "version", version, "seed", seed, "addr", cfg.SpectateAddress())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Run(gctx) })
	g.Go(func() error {
		if err := driver.Send(gctx, playback.CommandGenerate); err != nil {
			return ignoreCanceled(err)
		}
		if err := driver.Send(gctx, playback.CommandStart); err != nil {
			return ignoreCanceled(err)
		}
		return ignoreCanceled(driver.Run(gctx))
	})
	return g.Wait()
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// tournamentLoop starts a fresh tournament a fixed interval after each one
// completes, and stops the server once the limit is reached.
type tournamentLoop struct {
	ctx      context.Context
	driver   *playback.Driver
	clock    quartz.Clock
	interval time.Duration
	limit    int
	stop     context.CancelFunc
	logger   *log.Logger

	played int // only touched on the driver goroutine
}

func newTournamentLoop(ctx context.Context, driver *playback.Driver, clock quartz.Clock, interval time.Duration, limit int, stop context.CancelFunc, logger *log.Logger) *tournamentLoop {
	return &tournamentLoop{
		ctx:      ctx,
		driver:   driver,
		clock:    clock,
		interval: interval,
		limit:    limit,
		stop:     stop,
		logger:   logger.WithPrefix("serve"),
	}
}

// OnEvent implements game.EventSubscriber.
func (l *tournamentLoop) OnEvent(event game.GameEvent) {
	e, ok := event.(game.TournamentCompletedEvent)
	if !ok {
		return
	}
	l.played++
	if l.limit > 0 && l.played >= l.limit {
		l.logger.Info("Tournament limit reached", "played", l.played)
		l.stop()
		return
	}

	l.logger.Info("Next tournament scheduled", "completed", e.TournamentID, "in", l.interval)
	// The subscriber runs on the driver goroutine, so commands are sent from
	// the timer instead of blocking here.
	l.clock.AfterFunc(l.interval, func() {
		if err := l.driver.Send(l.ctx, playback.CommandGenerate); err != nil {
			return
		}
		_ = l.driver.Send(l.ctx, playback.CommandStart)
	}, "serve", "next")
}
