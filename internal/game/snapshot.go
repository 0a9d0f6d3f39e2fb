package game

import (
	"time"

	"github.com/lox/horserace/internal/race"
)

// Snapshot is an immutable copy of the read model, safe to hand to other
// goroutines (renderers, the spectator feed, history writers).
type Snapshot struct {
	TournamentID string       `json:"tournament_id,omitempty"`
	Status       Status       `json:"status"`
	RoundIndex   int          `json:"round_index"`
	Horses       []race.Horse `json:"horses"`
	Program      []race.Race  `json:"program"`
	Completed    []race.Race  `json:"completed"`
	ElapsedMs    float64      `json:"elapsed_ms"`
	CapturedAt   time.Time    `json:"captured_at"`
}

// CurrentRace returns the program entry at the round index.
func (s Snapshot) CurrentRace() (race.Race, bool) {
	if s.RoundIndex < 0 || s.RoundIndex >= len(s.Program) {
		return race.Race{}, false
	}
	return s.Program[s.RoundIndex], true
}
