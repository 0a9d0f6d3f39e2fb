package main

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"github.com/lox/horserace/cmd/horserace/shared"
	"github.com/lox/horserace/internal/config"
	"github.com/lox/horserace/internal/tui"
)

// PlayCmd runs the interactive terminal UI
type PlayCmd struct {
	Seed          int64         `help:"RNG seed (0 for random)"`
	FrameInterval time.Duration `help:"Frame interval, overrides the config file"`
	NoAutoAdvance bool          `help:"Stop after each round instead of starting the next"`
	LogFile       string        `help:"Log file, the terminal belongs to the UI (default horserace.log)"`
	Spectate      bool          `help:"Also serve the websocket spectator feed"`
}

func (c *PlayCmd) override(cfg *config.Config) {
	if c.FrameInterval > 0 {
		cfg.Session.FrameIntervalMS = int(c.FrameInterval.Milliseconds())
	}
	if c.NoAutoAdvance {
		enabled := false
		cfg.Session.AutoAdvance = &enabled
	}
	if c.LogFile != "" {
		cfg.Logging.File = c.LogFile
	}
}

func (c *PlayCmd) Run(globals *Globals) error {
	cfg, err := globals.loadConfig(c.override)
	if err != nil {
		return err
	}

	logPath := cfg.Logging.File
	if logPath == "" {
		logPath = defaultLogFile
	}
	logFile, err := shared.OpenLogFile(logPath)
	if err != nil {
		return err
	}
	defer logFile.Close()

	logger, err := shared.SetupLogger(logFile, shared.LogOptions{
		Level:   cfg.Logging.Level,
		Debug:   globals.Debug,
		NoColor: true,
	})
	if err != nil {
		return err
	}

	clock := quartz.NewReal()
	engine, seed := newEngine(cfg, seedOverride(c.Seed, cfg), clock, logger)
	logger.Info("Starting session", "version", version, "seed", seed, "auto_advance", cfg.AutoAdvance())
	attachHistory(engine, cfg, logger)

	ctx, cancel := shared.SetupSignalHandler(context.Background(), logger)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	opts := []tui.Option{tui.WithFrameInterval(cfg.FrameInterval())}
	if c.Spectate {
		server, collector := attachSpectate(engine, cfg.SpectateAddress(), logger)
		opts = append(opts, tui.WithFrameObserver(publishFrames(server, collector)))
		g.Go(func() error { return server.Run(ctx) })
	}

	model := tui.NewModel(engine, logger, opts...)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	g.Go(func() error {
		defer cancel()
		if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return err
		}
		return nil
	})

	err = g.Wait()
	logger.Info("Session ended", "status", engine.Status(), "rounds", len(engine.CompletedRaces()))
	return err
}
