package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lox/horserace/internal/game"
	"github.com/lox/horserace/internal/history"
	"github.com/lox/horserace/internal/race"
)

const nameWidth = 20

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	snap := m.engine.Snapshot()

	trackStyle := PaneStyle
	if snap.Status == game.StatusRacing {
		trackStyle = ActivePaneStyle
	}
	track := trackStyle.Render(m.renderTrack(snap))
	sidebar := PaneStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		m.renderProgram(snap),
		"",
		m.renderLastResults(snap),
	))

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(snap),
		lipgloss.JoinHorizontal(lipgloss.Top, track, sidebar),
		PaneStyle.Render(m.logView.View()),
		m.help.View(m.keys),
	)
}

func (m *Model) renderHeader(snap game.Snapshot) string {
	status := StatusStyle.Render(snap.Status.String())
	if snap.Status == game.StatusPaused {
		status = PausedStyle.Render(snap.Status.String())
	}

	parts := []string{HeaderStyle.Render("Horse Race"), status}
	if len(snap.Program) > 0 {
		round := snap.RoundIndex + 1
		if round > len(snap.Program) {
			round = len(snap.Program)
		}
		parts = append(parts, fmt.Sprintf("round %d/%d", round, len(snap.Program)))
	}
	parts = append(parts, InfoStyle.Render("auto-advance "+onOff(m.engine.AutoAdvancer().Enabled())))
	if snap.TournamentID != "" {
		parts = append(parts, InfoStyle.Render(snap.TournamentID))
	}
	return strings.Join(parts, "  ")
}

// renderTrack shows the race being run, or the roster before a program
// exists.
func (m *Model) renderTrack(snap game.Snapshot) string {
	current, ok := snap.CurrentRace()
	if !ok {
		if len(snap.Completed) > 0 {
			return m.renderLanes(snap.Completed[len(snap.Completed)-1])
		}
		return m.renderRoster(snap.Horses)
	}
	return m.renderLanes(current)
}

func (m *Model) renderLanes(r race.Race) string {
	var b strings.Builder
	b.WriteString(SectionStyle.Render(fmt.Sprintf("Round %d - %dm", r.Round, r.Distance)))
	b.WriteString("  ")
	b.WriteString(InfoStyle.Render(r.Status.String()))
	b.WriteString("\n\n")

	ranks := make(map[int]int, len(r.Results))
	for _, result := range r.Results {
		ranks[result.HorseID] = result.Rank
	}

	for _, h := range r.Horses {
		bar := m.bar
		bar.FullColor = h.Color
		b.WriteString(horseStyle(h.Color).Render(padRight(h.Name, nameWidth)))
		b.WriteString(" ")
		b.WriteString(bar.ViewAs(h.Position / game.ProgressComplete))
		if rank, ok := ranks[h.ID]; ok {
			label := fmt.Sprintf(" %2d", rank)
			if rank == 1 {
				label = WinnerStyle.Render(label)
			}
			b.WriteString(label)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m *Model) renderRoster(horses []race.Horse) string {
	var b strings.Builder
	b.WriteString(SectionStyle.Render("Roster"))
	b.WriteString("\n\n")
	for _, h := range horses {
		b.WriteString(horseStyle(h.Color).Render(padRight(h.Name, nameWidth)))
		b.WriteString(InfoStyle.Render(fmt.Sprintf(" condition %3d", h.Condition)))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m *Model) renderProgram(snap game.Snapshot) string {
	var b strings.Builder
	b.WriteString(SectionStyle.Render("Program"))
	if len(snap.Program) == 0 {
		b.WriteString("\n")
		b.WriteString(InfoStyle.Render("press g to generate"))
		return b.String()
	}

	for i, r := range snap.Program {
		line := fmt.Sprintf("%d. %dm", r.Round, r.Distance)
		switch {
		case r.IsCompleted():
			line = CompletedRoundStyle.Render(line)
		case i == snap.RoundIndex:
			line = CurrentRoundStyle.Render("> " + line)
		}
		b.WriteString("\n")
		b.WriteString(line)
	}
	return b.String()
}

func (m *Model) renderLastResults(snap game.Snapshot) string {
	var b strings.Builder
	b.WriteString(SectionStyle.Render("Results"))
	if len(snap.Completed) == 0 {
		b.WriteString("\n")
		b.WriteString(InfoStyle.Render("no races run yet"))
		return b.String()
	}

	last := snap.Completed[len(snap.Completed)-1]
	b.WriteString(InfoStyle.Render(fmt.Sprintf(" round %d", last.Round)))
	for _, result := range last.Results {
		line := fmt.Sprintf("%2d. %s %s", result.Rank, padRight(result.HorseName, nameWidth), history.FormatTime(result.Time))
		if result.Rank == 1 {
			line = WinnerStyle.Render(line)
		}
		b.WriteString("\n")
		b.WriteString(line)
	}
	return b.String()
}

func padRight(s string, width int) string {
	if w := lipgloss.Width(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

func joinLines(lines []string) string {
	return strings.Join(lines, "\n")
}
