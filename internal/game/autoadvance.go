package game

// AutoAdvancer starts the next race when a round completes and another one is
// waiting, giving uninterrupted multi-round playback. Disable it to step
// through rounds manually.
type AutoAdvancer struct {
	engine  *Engine
	enabled bool
}

// NewAutoAdvancer returns an enabled advancer for engine.
func NewAutoAdvancer(engine *Engine) *AutoAdvancer {
	return &AutoAdvancer{engine: engine, enabled: true}
}

func (a *AutoAdvancer) Enabled() bool { return a.enabled }

func (a *AutoAdvancer) SetEnabled(enabled bool) { a.enabled = enabled }

// OnEvent implements EventSubscriber.
func (a *AutoAdvancer) OnEvent(event GameEvent) {
	if !a.enabled {
		return
	}
	completed, ok := event.(RoundCompletedEvent)
	if !ok || !completed.HasNext {
		return
	}
	if a.engine.Status() != StatusProgramGenerated {
		return
	}
	a.engine.logger.Debug("Auto-starting next round", "round", a.engine.RoundIndex()+1)
	a.engine.StartRace()
}
