// Package metrics exposes Prometheus collectors fed by engine events.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lox/horserace/internal/game"
)

const namespace = "horserace"

// Collector owns a private registry so several can coexist in one process
// (tests, batch runs).
type Collector struct {
	registry *prometheus.Registry

	ProgramsGenerated    prometheus.Counter
	RacesStarted         prometheus.Counter
	RacesCompleted       prometheus.Counter
	Pauses               prometheus.Counter
	Resumes              prometheus.Counter
	TournamentsCompleted prometheus.Counter
	Resets               prometheus.Counter
	Frames               *prometheus.CounterVec
	CurrentRound         prometheus.Gauge
	Racing               prometheus.Gauge
	Spectators           prometheus.Gauge
	WinningTime          *prometheus.HistogramVec
}

// New creates a collector with every metric registered.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		ProgramsGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "programs_generated_total",
			Help:      "Total number of race programs generated",
		}),
		RacesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "races_started_total",
			Help:      "Total number of races started",
		}),
		RacesCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "races_completed_total",
			Help:      "Total number of races completed",
		}),
		Pauses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "race_pauses_total",
			Help:      "Total number of times a race was paused",
		}),
		Resumes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "race_resumes_total",
			Help:      "Total number of times a paused race resumed",
		}),
		TournamentsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tournaments_completed_total",
			Help:      "Total number of tournaments run to completion",
		}),
		Resets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resets_total",
			Help:      "Total number of game resets",
		}),
		Frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Progress frames ticked, by outcome",
		}, []string{"outcome"}),
		CurrentRound: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "current_round",
			Help:      "One-based round of the race being run, 0 when idle",
		}),
		Racing: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "racing",
			Help:      "1 while a race is animating, otherwise 0",
		}),
		Spectators: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "spectators",
			Help:      "Connected spectator websockets",
		}),
		WinningTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "winning_time_seconds",
			Help:      "Winning finish time by race distance",
			Buckets:   []float64{8, 9, 10, 11, 12, 14, 16, 18, 20, 22},
		}, []string{"distance"}),
	}

	c.registry.MustRegister(
		c.ProgramsGenerated,
		c.RacesStarted,
		c.RacesCompleted,
		c.Pauses,
		c.Resumes,
		c.TournamentsCompleted,
		c.Resets,
		c.Frames,
		c.CurrentRound,
		c.Racing,
		c.Spectators,
		c.WinningTime,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// OnEvent implements game.EventSubscriber.
func (c *Collector) OnEvent(event game.GameEvent) {
	switch e := event.(type) {
	case game.ProgramGeneratedEvent:
		c.ProgramsGenerated.Inc()
		c.CurrentRound.Set(0)
	case game.RaceStartEvent:
		c.RacesStarted.Inc()
		c.CurrentRound.Set(float64(e.Round))
		c.Racing.Set(1)
	case game.RacePauseEvent:
		c.Pauses.Inc()
		c.Racing.Set(0)
	case game.RaceResumeEvent:
		c.Resumes.Inc()
		c.Racing.Set(1)
	case game.RoundCompletedEvent:
		c.RacesCompleted.Inc()
		c.Racing.Set(0)
		if len(e.Race.Results) > 0 {
			c.WinningTime.WithLabelValues(strconv.Itoa(e.Race.Distance)).Observe(e.Race.Results[0].Time / 1000)
		}
	case game.TournamentCompletedEvent:
		c.TournamentsCompleted.Inc()
	case game.GameResetEvent:
		c.Resets.Inc()
		c.CurrentRound.Set(0)
		c.Racing.Set(0)
	}
}

// ObserveFrame counts one tick of the progress driver.
func (c *Collector) ObserveFrame(outcome game.TickOutcome) {
	c.Frames.WithLabelValues(outcome.String()).Inc()
}
