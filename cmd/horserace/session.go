package main

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"

	"github.com/lox/horserace/internal/config"
	"github.com/lox/horserace/internal/game"
	"github.com/lox/horserace/internal/history"
	"github.com/lox/horserace/internal/metrics"
	"github.com/lox/horserace/internal/randutil"
	"github.com/lox/horserace/internal/spectate"
)

const defaultLogFile = "horserace.log"

// loadConfig reads the config file and environment, then applies the
// command's flag overrides before validating.
func (g *Globals) loadConfig(override func(*config.Config)) (*config.Config, error) {
	cfg, err := config.LoadConfig(g.Config)
	if err != nil {
		return nil, err
	}
	if override != nil {
		override(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if g.NoColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
	return cfg, nil
}

// seedOverride returns the seed a command should use: the flag when non-zero,
// otherwise whatever the config holds.
func seedOverride(flag int64, cfg *config.Config) *int64 {
	if flag != 0 {
		return &flag
	}
	return cfg.Session.Seed
}

// newEngine builds a session engine from config and reports the seed in use.
func newEngine(cfg *config.Config, seed *int64, clock game.Clock, logger *log.Logger) (*game.Engine, int64) {
	rng, used := randutil.FromOptionalSeed(seed)
	engine := game.NewEngine(rng, logger,
		game.WithClock(clock),
		game.WithAutoAdvance(cfg.AutoAdvance()))
	return engine, used
}

// attachHistory subscribes a history writer when a directory is configured.
func attachHistory(engine *game.Engine, cfg *config.Config, logger *log.Logger) *history.Writer {
	if cfg.History.Dir == "" {
		return nil
	}
	w := history.NewWriter(cfg.History.Dir, logger)
	engine.Events().Subscribe(w)
	logger.Info("Writing tournament history", "dir", cfg.History.Dir)
	return w
}

// attachSpectate wires a spectator server and its metrics to engine events.
func attachSpectate(engine *game.Engine, addr string, logger *log.Logger) (*spectate.Server, *metrics.Collector) {
	collector := metrics.New()
	server := spectate.NewServer(addr, logger, spectate.WithMetrics(collector))
	engine.Events().Subscribe(collector)
	engine.Events().Subscribe(server)
	return server, collector
}

// publishFrames feeds every snapshot to the spectator feed and frame metrics.
func publishFrames(server *spectate.Server, collector *metrics.Collector) func(game.Snapshot, game.TickOutcome) {
	return func(snap game.Snapshot, outcome game.TickOutcome) {
		server.Publish(snap, outcome)
		collector.ObserveFrame(outcome)
	}
}
