// Package game runs a horse racing tournament session.
//
// The main type is Engine, which owns the session State and is the only
// thing that mutates it. Hosts (the terminal UI, the playback driver, the
// spectator server) issue commands and drive frames from a single goroutine.
//
// # Basic Usage
//
//	engine := game.NewEngine(randutil.New(42), logger)
//	engine.Initialize()      // 20-horse roster
//	engine.GenerateProgram() // six rounds, ten runners each
//	engine.StartRace()
//	for engine.IsRacing() {
//	    engine.Tick() // once per frame
//	}
//
// # Events
//
// Every state change publishes a GameEvent on the engine's bus. Subscribers
// run synchronously on the engine goroutine and must not block. The
// AutoAdvancer runs after the bus, so observers see a RoundCompletedEvent
// before the next RaceStartEvent.
//
// # Deterministic Testing
//
// Inject a quartz.Mock (or any Clock) with WithClock and a seeded generator
// from randutil.New to make a session fully reproducible.
package game
