// Package history writes completed tournaments to disk as a plain-text
// summary and a JSON record.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lox/horserace/internal/fileutil"
	"github.com/lox/horserace/internal/game"
	"github.com/lox/horserace/internal/race"
)

// Record is the JSON document written for one tournament.
type Record struct {
	TournamentID string      `json:"tournament_id"`
	CompletedAt  time.Time   `json:"completed_at"`
	Races        []race.Race `json:"races"`
}

// Writer persists tournaments as they complete. It subscribes to the engine's
// event bus and runs on the engine's goroutine.
type Writer struct {
	dir    string
	logger *log.Logger
}

// NewWriter creates a writer that puts files in dir. The directory is
// created on first write.
func NewWriter(dir string, logger *log.Logger) *Writer {
	return &Writer{
		dir:    dir,
		logger: logger.WithPrefix("history"),
	}
}

// OnEvent writes the tournament when it completes. Errors are logged, the
// game carries on.
func (w *Writer) OnEvent(event game.GameEvent) {
	done, ok := event.(game.TournamentCompletedEvent)
	if !ok {
		return
	}
	record := Record{
		TournamentID: done.TournamentID,
		CompletedAt:  done.Timestamp(),
		Races:        done.Races,
	}
	if err := w.Write(record); err != nil {
		w.logger.Error("Failed to write tournament history", "tournament", done.TournamentID, "error", err)
	}
}

// Write stores <id>.json and <id>.txt in the writer's directory.
func (w *Writer) Write(record Record) error {
	if record.TournamentID == "" {
		return fmt.Errorf("tournament id is required")
	}
	if err := fileutil.EnsureDir(w.dir); err != nil {
		return err
	}

	jsonPath := filepath.Join(w.dir, record.TournamentID+".json")
	if err := fileutil.WriteJSONAtomic(jsonPath, record, 0o644); err != nil {
		return err
	}

	textPath := filepath.Join(w.dir, record.TournamentID+".txt")
	if err := fileutil.WriteFileAtomic(textPath, []byte(FormatSummary(record)), 0o644); err != nil {
		return err
	}

	w.logger.Info("Tournament history written", "tournament", record.TournamentID, "path", jsonPath)
	return nil
}

// Load reads a JSON record written by Write.
func Load(path string) (Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Record{}, fmt.Errorf("failed to read history: %w", err)
	}
	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return Record{}, fmt.Errorf("failed to parse history %s: %w", filepath.Base(path), err)
	}
	return record, nil
}

// FormatSummary renders the ranked results of every race.
func FormatSummary(record Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Tournament %s\n", record.TournamentID)
	if !record.CompletedAt.IsZero() {
		fmt.Fprintf(&b, "Completed %s\n", record.CompletedAt.UTC().Format(time.RFC3339))
	}

	for _, r := range record.Races {
		fmt.Fprintf(&b, "\nRound %d - %dm\n", r.Round, r.Distance)
		if len(r.Results) == 0 {
			b.WriteString("  no results\n")
			continue
		}
		for _, result := range r.Results {
			fmt.Fprintf(&b, "  %2d. %-20s %s\n", result.Rank, result.HorseName, FormatTime(result.Time))
		}
	}
	return b.String()
}

// FormatTime renders a finish time in milliseconds as seconds.
func FormatTime(ms float64) string {
	return fmt.Sprintf("%.3fs", ms/1000)
}
