package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/Risclover/toby/internal/household"
)

// renderHeader renders the status bar with all information.
func (m Model) renderHeader() string {
	// Header uses Surface background
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	if !m.board.HasHousehold {
		return m.renderConnectingHeader(styles, bg)
	}

	return lipgloss.NewStyle().
		Background(lipgloss.Color(m.theme.Surface)).
		Foreground(lipgloss.Color(m.theme.Text)).
		Width(m.width).
		Render(m.buildStatusContent(styles, bg))
}

// renderConnectingHeader shows the state before the household has loaded.
func (m Model) renderConnectingHeader(styles Styles, bg BgStyle) string {
	sep := bg.Spaces(2)

	if m.board.LastError != nil {
		last := "soon"
		if !m.board.LastUpdated.IsZero() {
			last = m.board.LastUpdated.Format("15:04:05")
		}
		parts := []string{
			bg.Render("toby", styles.Logo),
			bg.Render(classifyConnectionError(m.board.LastError), styles.DangerText.Bold(true)),
			bg.Render("Retrying...", styles.WarningText.Bold(true)),
			bg.Render(last, styles.MutedText),
		}
		if m.config.LogFile != "" {
			parts = append(parts,
				bg.Pair("logs", truncateMiddle(m.config.LogFile, 50), styles.FaintText, styles.MutedText))
		}
		return styles.Header.Width(m.width).Render(bg.Join(parts, sep))
	}

	return styles.Header.Width(m.width).Render(
		bg.Render("toby", styles.Logo) + sep +
			bg.Render("Loading household...", styles.WarningText.Bold(true)),
	)
}

// buildStatusContent builds the status bar content string.
func (m Model) buildStatusContent(styles Styles, bg BgStyle) string {
	compact := m.width < LayoutCompactWidth
	var parts []string

	parts = append(parts, bg.Render("toby", styles.Logo))

	name := m.board.Household.Name
	if compact {
		name = truncate(name, 16)
	}
	parts = append(parts,
		bg.Pair(name, fmt.Sprintf("(%d)", len(m.board.Household.Members)), styles.Text, styles.MutedText))

	// Connection indicator
	switch {
	case m.board.IsOffline():
		parts = append(parts, bg.Render("● OFFLINE", styles.DangerText.Bold(true)))
	case m.board.LastError != nil:
		parts = append(parts, bg.Render("● RETRYING", styles.WarningText))
	default:
		parts = append(parts, bg.Render("● ON", styles.SuccessText))
	}

	open := 0
	for _, l := range m.board.TodoLists {
		open += openCount(l)
	}
	label := ternary(compact, "T:", "Open:")
	parts = append(parts, bg.Pair(label, fmt.Sprintf("%d", open), styles.MutedText, styles.Text))

	if m.board.Pending > 0 {
		parts = append(parts, bg.Render(fmt.Sprintf("⟳ %d saving", m.board.Pending), styles.WarningText))
	}
	switch {
	case m.board.Loading:
		parts = append(parts, bg.Render("loading", styles.InfoText))
	case m.board.Stale:
		parts = append(parts, bg.Render("syncing", styles.FaintText))
	}

	if ts := formatTimestamp(m.board.LastUpdated, time.Now()); ts != "" {
		parts = append(parts, bg.Render(ts, styles.MutedText))
	}

	if m.board.LastError != nil {
		limit := 80
		if compact {
			limit = 40
		}
		text := truncate(m.board.LastError.Error(), limit)
		if m.board.ConsecutiveFailures > 1 {
			text = fmt.Sprintf("%s (x%d)", text, m.board.ConsecutiveFailures)
		}
		parts = append(parts, bg.Pair("ERROR", text, styles.DangerText.Bold(true), styles.DangerText))
	}

	return bg.Join(parts, "  ")
}

// formatTimestamp formats the last update time with a relative indicator.
func formatTimestamp(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	since := now.Sub(t)
	s := t.Format("15:04:05")
	switch {
	case since < time.Minute:
		s += " (now)"
	case since < time.Hour:
		s += fmt.Sprintf(" (%dm ago)", int(since.Minutes()))
	case since < 24*time.Hour:
		s += fmt.Sprintf(" (%dh ago)", int(since.Hours()))
	}
	return s
}

// classifyConnectionError returns a short description of the connection error.
func classifyConnectionError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"):
		return "OFFLINE"
	case strings.Contains(msg, "no such host"):
		return "HOST NOT FOUND"
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"):
		return "TIMEOUT"
	default:
		return "ERROR"
	}
}

// renderCommandBar renders the key hints for the current view.
func (m Model) renderCommandBar() string {
	// Command bar uses Surface background
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	type cmd struct{ key, desc string }
	var commands []cmd

	switch m.currentView {
	case ViewActivity:
		commands = []cmd{
			{"Space", ternary(m.activity.follow, "Pause", "Follow")},
			{"f", "Level " + m.activity.minLevel.String()},
			{"j/k", "Scroll"},
			{"b", "Board"},
			{"s", "Shopping"},
			{"?", "More"},
		}
	case ViewShopping:
		commands = []cmd{
			{"Space", "Bought"},
			{"a", "Add"},
			{"+/-", "Qty"},
			{"e", "Rename"},
			{"d", "Remove"},
			{"b", "Board"},
			{"l", "Activity"},
			{"Tab", "Focus"},
			{"?", "More"},
		}
	default: // ViewBoard
		commands = []cmd{
			{"Space", "Done"},
			{"a", "Add"},
			{"e", "Edit"},
			{"p", "Priority"},
			{"J/K", "Move"},
			{"s", "Shopping"},
			{"l", "Activity"},
			{"Tab", "Focus"},
			{"?", "More"},
		}
	}

	colon := bg.Sep(":")
	sep := bg.Spaces(2)

	segments := make([]string, 0, len(commands)+1)
	for _, c := range commands {
		segments = append(segments,
			bg.Render(c.key, styles.AccentText)+colon+bg.Render(c.desc, styles.MutedText))
	}
	segments = append(segments,
		bg.Render("T", styles.AccentText)+colon+bg.Render(m.theme.Name, styles.FaintText))

	return styles.Header.Width(m.width).Render(strings.Join(segments, sep))
}

// renderFooter shows the caller's mood, the newest announcement and the
// outcome of the last action.
func (m Model) renderFooter() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	var parts []string

	mood := "none"
	moodStyle := styles.FaintText
	if m.board.Mood.Mood != nil {
		mood = string(*m.board.Mood.Mood)
		moodStyle = styles.AccentText
	}
	parts = append(parts, bg.Pair("mood", mood, styles.MutedText, moodStyle))

	if a, ok := headlineAnnouncement(m.board.Announcements); ok {
		icon := ternary(a.IsPinned, "📌", "»")
		parts = append(parts, bg.Pair(icon, truncate(a.Text, max(m.width/3, 20)), styles.InfoText, styles.Text))
	}

	if m.flash != "" {
		if m.flashErr {
			parts = append(parts, bg.Pair("!", m.flash, styles.DangerText.Bold(true), styles.DangerText))
		} else {
			parts = append(parts, bg.Render(m.flash, styles.SuccessText))
		}
	}

	return styles.Footer.Width(m.width).Render(bg.Join(parts, bg.Spaces(2)))
}

// headlineAnnouncement picks the first pinned announcement, falling back to
// the first one the server returned.
func headlineAnnouncement(list []household.Announcement) (household.Announcement, bool) {
	if len(list) == 0 {
		return household.Announcement{}, false
	}
	for _, a := range list {
		if a.IsPinned {
			return a, true
		}
	}
	return list[0], true
}
