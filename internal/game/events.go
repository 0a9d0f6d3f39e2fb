package game

import (
	"time"

	"github.com/lox/horserace/internal/race"
)

// EventType represents a game event type with type safety
type EventType string

// EventType constants for tournament events
const (
	EventTypeProgramGenerated   EventType = "program_generated"
	EventTypeRaceStart          EventType = "race_start"
	EventTypeRacePause          EventType = "race_pause"
	EventTypeRaceResume         EventType = "race_resume"
	EventTypeRoundComplete      EventType = "round_complete"
	EventTypeTournamentComplete EventType = "tournament_complete"
	EventTypeGameReset          EventType = "game_reset"
)

// String returns the string representation of the event type
func (et EventType) String() string {
	return string(et)
}

// GameEvent represents anything the engine announces after a transition
type GameEvent interface {
	EventType() EventType
	Timestamp() time.Time
}

// ProgramGeneratedEvent is published when a new program replaces the old one
type ProgramGeneratedEvent struct {
	TournamentID string
	Program      []race.Race
	timestamp    time.Time
}

func (e ProgramGeneratedEvent) EventType() EventType { return EventTypeProgramGenerated }
func (e ProgramGeneratedEvent) Timestamp() time.Time { return e.timestamp }

// RaceStartEvent is published when a pending race begins timing
type RaceStartEvent struct {
	TournamentID string
	Round        int
	Distance     int
	Ordering     []race.Horse
	timestamp    time.Time
}

func (e RaceStartEvent) EventType() EventType { return EventTypeRaceStart }
func (e RaceStartEvent) Timestamp() time.Time { return e.timestamp }

// RacePauseEvent is published when the running race is paused
type RacePauseEvent struct {
	TournamentID string
	Round        int
	Elapsed      time.Duration
	timestamp    time.Time
}

func (e RacePauseEvent) EventType() EventType { return EventTypeRacePause }
func (e RacePauseEvent) Timestamp() time.Time { return e.timestamp }

// RaceResumeEvent is published when a paused race resumes
type RaceResumeEvent struct {
	TournamentID       string
	Round              int
	ElapsedBeforePause time.Duration
	timestamp          time.Time
}

func (e RaceResumeEvent) EventType() EventType { return EventTypeRaceResume }
func (e RaceResumeEvent) Timestamp() time.Time { return e.timestamp }

// RoundCompletedEvent is published after a race's results are recorded and the
// round index has advanced. HasNext is true when another race is waiting.
type RoundCompletedEvent struct {
	TournamentID string
	Race         race.Race
	HasNext      bool
	timestamp    time.Time
}

func (e RoundCompletedEvent) EventType() EventType { return EventTypeRoundComplete }
func (e RoundCompletedEvent) Timestamp() time.Time { return e.timestamp }

// TournamentCompletedEvent is published after the last round completes
type TournamentCompletedEvent struct {
	TournamentID string
	Races        []race.Race
	timestamp    time.Time
}

func (e TournamentCompletedEvent) EventType() EventType { return EventTypeTournamentComplete }
func (e TournamentCompletedEvent) Timestamp() time.Time { return e.timestamp }

// GameResetEvent is published when the session returns to idle
type GameResetEvent struct {
	timestamp time.Time
}

func (e GameResetEvent) EventType() EventType { return EventTypeGameReset }
func (e GameResetEvent) Timestamp() time.Time { return e.timestamp }

// EventSubscriber can subscribe to game events
type EventSubscriber interface {
	OnEvent(event GameEvent)
}

// EventSubscriberFunc adapts a function to EventSubscriber. Function values
// are not comparable, so they cannot be passed to Unsubscribe.
type EventSubscriberFunc func(event GameEvent)

func (f EventSubscriberFunc) OnEvent(event GameEvent) { f(event) }

// EventBus manages event publishing and subscription
type EventBus interface {
	Subscribe(subscriber EventSubscriber)
	Unsubscribe(subscriber EventSubscriber)
	Publish(event GameEvent)
}

// SimpleEventBus is a synchronous in-memory event bus. Subscribers run on the
// publisher's goroutine, in subscription order.
type SimpleEventBus struct {
	subscribers []EventSubscriber
}

// NewEventBus creates a new event bus
func NewEventBus() EventBus {
	return &SimpleEventBus{
		subscribers: make([]EventSubscriber, 0),
	}
}

// Subscribe adds a subscriber to receive events
func (bus *SimpleEventBus) Subscribe(subscriber EventSubscriber) {
	bus.subscribers = append(bus.subscribers, subscriber)
}

// Unsubscribe removes a subscriber from receiving events
func (bus *SimpleEventBus) Unsubscribe(subscriber EventSubscriber) {
	for i, sub := range bus.subscribers {
		if sub == subscriber {
			bus.subscribers = append(bus.subscribers[:i:i], bus.subscribers[i+1:]...)
			break
		}
	}
}

// Publish sends an event to all subscribers. A subscriber may publish again
// from inside OnEvent; the nested event is delivered before Publish returns.
func (bus *SimpleEventBus) Publish(event GameEvent) {
	subscribers := append([]EventSubscriber(nil), bus.subscribers...)
	for _, subscriber := range subscribers {
		subscriber.OnEvent(event)
	}
}
