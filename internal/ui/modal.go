package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Modal is the interface for modal dialogs.
// The Update method returns the updated modal, a command, and a bool indicating if the modal should close.
type Modal interface {
	Init() tea.Cmd
	Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool)
	View(theme Theme, width, height int) string
}

// promptModal asks for one line of text and hands it to submit on enter.
type promptModal struct {
	title  string
	input  textinput.Model
	submit func(string) tea.Cmd
}

func newPrompt(title, value string, submit func(string) tea.Cmd) *promptModal {
	in := textinput.New()
	in.Prompt = "> "
	in.CharLimit = 200
	in.Width = 40
	in.SetValue(value)
	in.CursorEnd()
	in.Focus()
	return &promptModal{title: title, input: in, submit: submit}
}

func (p *promptModal) Init() tea.Cmd {
	return textinput.Blink
}

func (p *promptModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(km, keys.Escape):
			return p, nil, true
		case key.Matches(km, keys.Confirm):
			value := strings.TrimSpace(p.input.Value())
			if value == "" {
				return p, nil, true
			}
			return p, p.submit(value), true
		}
	}
	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	return p, cmd, false
}

func (p *promptModal) View(theme Theme, width, height int) string {
	styles := theme.Styles()
	content := styles.AccentText.Bold(true).Render(p.title) + "\n\n" +
		p.input.View() + "\n\n" +
		styles.FaintText.Render("enter to save, esc to cancel")

	modal := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(theme.Accent)).
		Padding(1, 2).
		Width(50).
		Render(content)

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, modal,
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(theme.Background)),
	)
}

// openPrompt shows a text prompt over the current view.
func (m *Model) openPrompt(title, value string, submit func(string) tea.Cmd) {
	m.modal = newPrompt(title, value, submit)
}
