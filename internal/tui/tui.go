// Package tui is the interactive terminal host for a race session. Bubble Tea
// owns the frame loop: while the engine is racing, a tick message is
// scheduled every frame and each one calls Engine.Tick.
package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/lox/horserace/internal/game"
	"github.com/lox/horserace/internal/history"
)

// maxLogLines bounds the event log pane.
const maxLogLines = 200

// frameMsg is delivered once per scheduled frame.
type frameMsg time.Time

// Model is the Bubble Tea model for a session
type Model struct {
	engine *game.Engine
	logger *log.Logger
	frame  time.Duration

	keys     keyMap
	help     help.Model
	bar      progress.Model
	logView  viewport.Model
	eventLog []string

	// Called after every frame and command, on the Update goroutine.
	onFrame func(game.Snapshot, game.TickOutcome)

	frameScheduled bool
	quitting       bool
	width          int
	height         int
}

// Option configures a Model.
type Option func(*Model)

// WithFrameInterval sets the frame period.
func WithFrameInterval(d time.Duration) Option {
	return func(m *Model) {
		if d > 0 {
			m.frame = d
		}
	}
}

// WithFrameObserver is called after every frame and every command with a
// fresh snapshot. It must not block.
func WithFrameObserver(fn func(game.Snapshot, game.TickOutcome)) Option {
	return func(m *Model) { m.onFrame = fn }
}

// NewModel creates the TUI for engine. The engine's roster is initialised if
// it has not been already.
func NewModel(engine *game.Engine, logger *log.Logger, opts ...Option) *Model {
	vp := viewport.New(40, 8)
	vp.SetContent("")

	m := &Model{
		engine:  engine,
		logger:  logger.WithPrefix("tui"),
		frame:   16 * time.Millisecond,
		keys:    newKeyMap(),
		help:    help.New(),
		bar:     progress.New(progress.WithoutPercentage(), progress.WithWidth(40)),
		logView: vp,
	}
	for _, opt := range opts {
		opt(m)
	}

	engine.Events().Subscribe(game.EventSubscriberFunc(m.recordEvent))
	engine.Initialize()
	m.keys.sync(engine)
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	m.notify(game.TickStopped)
	return m.scheduleFrame()
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.resize()
		m.logger.Debug("Updating dimensions", "width", m.width, "height", m.height)

	case frameMsg:
		m.frameScheduled = false
		outcome := m.engine.Tick()
		m.notify(outcome)
		cmds = append(cmds, m.scheduleFrame())

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		case key.Matches(msg, m.keys.Generate):
			m.engine.GenerateProgram()
		case key.Matches(msg, m.keys.Start):
			m.engine.StartRace()
		case key.Matches(msg, m.keys.Pause):
			m.engine.PauseRace()
		case key.Matches(msg, m.keys.Reset):
			m.engine.ResetGame()
		case key.Matches(msg, m.keys.AutoAdvance):
			advancer := m.engine.AutoAdvancer()
			advancer.SetEnabled(!advancer.Enabled())
			m.appendLog(fmt.Sprintf("Auto-advance %s", onOff(advancer.Enabled())))
		default:
			var cmd tea.Cmd
			m.logView, cmd = m.logView.Update(msg)
			return m, cmd
		}
		m.notify(game.TickStopped)
		cmds = append(cmds, m.scheduleFrame())

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.logView, cmd = m.logView.Update(msg)
		cmds = append(cmds, cmd)
	}

	m.keys.sync(m.engine)
	return m, tea.Batch(cmds...)
}

// scheduleFrame requests the next frame while racing. At most one frame is
// ever in flight.
func (m *Model) scheduleFrame() tea.Cmd {
	if m.frameScheduled || !m.engine.IsRacing() {
		return nil
	}
	m.frameScheduled = true
	return tea.Tick(m.frame, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

func (m *Model) notify(outcome game.TickOutcome) {
	if m.onFrame != nil {
		m.onFrame(m.engine.Snapshot(), outcome)
	}
}

func (m *Model) recordEvent(event game.GameEvent) {
	switch e := event.(type) {
	case game.ProgramGeneratedEvent:
		m.appendLog(fmt.Sprintf("Program %s generated with %d races", e.TournamentID, len(e.Program)))
	case game.RaceStartEvent:
		m.appendLog(fmt.Sprintf("Round %d (%dm) is off", e.Round, e.Distance))
	case game.RacePauseEvent:
		m.appendLog(fmt.Sprintf("Round %d paused at %s", e.Round, e.Elapsed.Round(time.Millisecond)))
	case game.RaceResumeEvent:
		m.appendLog(fmt.Sprintf("Round %d resumed", e.Round))
	case game.RoundCompletedEvent:
		if len(e.Race.Results) > 0 {
			winner := e.Race.Results[0]
			m.appendLog(fmt.Sprintf("Round %d won by %s in %s", e.Race.Round, winner.HorseName, history.FormatTime(winner.Time)))
		}
	case game.TournamentCompletedEvent:
		m.appendLog("Tournament complete, press g for a new program")
	case game.GameResetEvent:
		m.appendLog("Game reset")
	}
}

func (m *Model) appendLog(line string) {
	m.eventLog = append(m.eventLog, line)
	if len(m.eventLog) > maxLogLines {
		m.eventLog = m.eventLog[len(m.eventLog)-maxLogLines:]
	}
	m.logView.SetContent(joinLines(m.eventLog))
	m.logView.GotoBottom()
}

// EventLog returns the lines shown in the log pane.
func (m *Model) EventLog() []string {
	return append([]string(nil), m.eventLog...)
}

func (m *Model) resize() {
	laneWidth := m.width - 60
	if laneWidth < 10 {
		laneWidth = 10
	}
	m.bar.Width = laneWidth

	logHeight := m.height - 24
	if logHeight < 3 {
		logHeight = 3
	}
	m.logView.Width = m.width - 4
	m.logView.Height = logHeight
}

func onOff(enabled bool) string {
	if enabled {
		return "on"
	}
	return "off"
}
