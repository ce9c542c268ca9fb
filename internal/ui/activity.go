package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/Risclover/toby/internal/logtail"
)

// activityState holds the activity log view state.
type activityState struct {
	entries  []logtail.Entry
	minLevel zerolog.Level
	follow   bool
	err      error
}

func newActivityState() activityState {
	return activityState{minLevel: zerolog.InfoLevel, follow: true}
}

// activityLevels is the cycle of the level filter.
var activityLevels = []zerolog.Level{
	zerolog.DebugLevel,
	zerolog.InfoLevel,
	zerolog.WarnLevel,
	zerolog.ErrorLevel,
}

func nextLevel(l zerolog.Level) zerolog.Level {
	for i, lvl := range activityLevels {
		if lvl == l {
			return activityLevels[(i+1)%len(activityLevels)]
		}
	}
	return zerolog.InfoLevel
}

type activityMsg struct {
	entries []logtail.Entry
	err     error
}

// loadActivity re-reads the tail of the client's own log file.
func (m Model) loadActivity() tea.Cmd {
	path := m.config.LogFile
	if path == "" {
		return nil
	}
	return func() tea.Msg {
		entries, err := logtail.Tail(path, ActivityLineLimit)
		return activityMsg{entries: entries, err: err}
	}
}

func (m *Model) handleActivity(msg activityMsg) {
	m.activity.err = msg.err
	if msg.err == nil {
		m.activity.entries = msg.entries
	}
	m.updateActivityViewport()
}

// updateActivityViewport sizes the viewport and refreshes its content.
func (m *Model) updateActivityViewport() {
	// Box inner = content height - 2 borders
	m.activityViewport.Width = max(m.width-2, 1)
	m.activityViewport.Height = max(m.contentHeight()-2, 1)
	m.activityViewport.Style = lipgloss.NewStyle().Background(lipgloss.Color(m.theme.FocusBg))
	m.activityViewport.SetContent(m.renderActivityContent())
	if m.activity.follow {
		m.activityViewport.GotoBottom()
	}
}

// renderActivityContent renders filtered entries, one per line, colored by level.
func (m Model) renderActivityContent() string {
	styles := m.theme.Styles()
	bg := NewBgStyle(m.theme.FocusBg)
	entries := logtail.Filter(m.activity.entries, m.activity.minLevel, "")
	if len(entries) == 0 {
		return bg.Render("No activity yet", styles.MutedText)
	}

	lines := make([]string, 0, len(entries))
	width := max(m.width-2, 10)
	for _, e := range entries {
		line := truncate(logtail.Format(e), width)
		lines = append(lines, bg.FillLine(bg.Render(line, m.levelStyle(e.Level, styles)), width))
	}
	return strings.Join(lines, "\n")
}

// levelStyle returns the style for a log level.
func (m Model) levelStyle(level zerolog.Level, styles Styles) lipgloss.Style {
	switch level {
	case zerolog.WarnLevel:
		return styles.WarningText
	case zerolog.ErrorLevel, zerolog.FatalLevel, zerolog.PanicLevel:
		return styles.DangerText
	case zerolog.DebugLevel, zerolog.TraceLevel:
		return styles.FaintText
	default:
		return styles.Text
	}
}

// renderActivity renders the activity log view.
func (m Model) renderActivity() string {
	title := "Activity " + m.activity.minLevel.String() + "+ " + truncateMiddle(m.config.LogFile, 40)
	if !m.activity.follow {
		title += " (paused)"
	}
	if m.activity.err != nil {
		title += " (unreadable)"
	}
	return m.renderTitledBox(title, m.activityViewport.View(), m.width, m.contentHeight(), true)
}

// handleActivityKey processes keyboard input for the activity view.
func (m Model) handleActivityKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Toggle):
		m.activity.follow = !m.activity.follow
		if m.activity.follow {
			m.activityViewport.GotoBottom()
		}
	case key.Matches(msg, m.keys.CycleLevel):
		m.activity.minLevel = nextLevel(m.activity.minLevel)
		m.updateActivityViewport()
	case key.Matches(msg, m.keys.Top):
		m.activityViewport.GotoTop()
		m.activity.follow = false
	case key.Matches(msg, m.keys.Bottom):
		m.activityViewport.GotoBottom()
		m.activity.follow = true
	case key.Matches(msg, m.keys.Down):
		m.activityViewport.ScrollDown(1)
		m.activity.follow = false
	case key.Matches(msg, m.keys.Up):
		m.activityViewport.ScrollUp(1)
		m.activity.follow = false
	}
	return m, nil
}
