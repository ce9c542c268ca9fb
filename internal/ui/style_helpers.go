package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// BgStyle renders segments that all carry the same background. lipgloss
// resets the background between separately rendered segments, so every
// space and separator between them is rendered with the background too.
type BgStyle struct {
	base  lipgloss.Style
	space string
}

// NewBgStyle returns a renderer for the given background color.
func NewBgStyle(bgColor string) BgStyle {
	base := lipgloss.NewStyle().Background(lipgloss.Color(bgColor))
	return BgStyle{base: base, space: base.Render(" ")}
}

// Render applies style on the background. Runs of spaces inside text are
// rendered one by one so none of them lose the background.
func (b BgStyle) Render(text string, style lipgloss.Style) string {
	if text == "" {
		return ""
	}
	styled := style.Background(b.base.GetBackground())
	words := strings.Split(text, " ")
	for i, w := range words {
		if w != "" {
			words[i] = styled.Render(w)
		}
	}
	return strings.Join(words, b.space)
}

// Pair renders "label value" with one styled space between.
func (b BgStyle) Pair(label, value string, labelStyle, valueStyle lipgloss.Style) string {
	return b.Render(label, labelStyle) + b.space + b.Render(value, valueStyle)
}

// Space returns a single styled space.
func (b BgStyle) Space() string {
	return b.space
}

// Spaces returns n styled spaces.
func (b BgStyle) Spaces(n int) string {
	return b.base.Render(strings.Repeat(" ", max(n, 0)))
}

// Sep returns sep on the background.
func (b BgStyle) Sep(sep string) string {
	return b.base.Render(sep)
}

// Join joins parts with a styled separator.
func (b BgStyle) Join(parts []string, sep string) string {
	return strings.Join(parts, b.Sep(sep))
}

// FillLine pads content to width so the row background spans the pane.
func (b BgStyle) FillLine(content string, width int) string {
	return b.base.Width(width).Render(content)
}
