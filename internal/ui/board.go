package ui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Risclover/toby/internal/household"
	"github.com/Risclover/toby/internal/state"
)

func todoListID(l household.TodoList) int64         { return l.ID }
func todoID(t household.Todo) int64                 { return t.ID }
func shoppingListID(l household.ShoppingList) int64 { return l.ID }
func itemID(it household.ShoppingItem) int64        { return it.ID }

// keepSelection returns selected when it is still in next. Otherwise it
// picks the entry at the position selected had in prev, clamped to next.
func keepSelection[T any](prev, next []T, id func(T) int64, selected int64) int64 {
	if len(next) == 0 {
		return 0
	}
	if slices.ContainsFunc(next, func(v T) bool { return id(v) == selected }) {
		return selected
	}
	idx := slices.IndexFunc(prev, func(v T) bool { return id(v) == selected })
	idx = min(max(idx, 0), len(next)-1)
	return id(next[idx])
}

// step moves the selection by delta rows, stopping at either end.
func step[T any](items []T, id func(T) int64, selected int64, delta int) int64 {
	if len(items) == 0 {
		return 0
	}
	idx := slices.IndexFunc(items, func(v T) bool { return id(v) == selected })
	idx = min(max(idx+delta, 0), len(items)-1)
	return id(items[idx])
}

// clampSelection re-resolves every selection against the new board.
func (m *Model) clampSelection(prev state.Board) {
	prevList, _ := prev.FindList(m.listID)
	m.listID = keepSelection(prev.TodoLists, m.board.TodoLists, todoListID, m.listID)
	if list, ok := m.currentList(); ok {
		if prevList.ID != list.ID {
			prevList = household.TodoList{}
		}
		m.todoID = keepSelection(prevList.Todos, list.Todos, todoID, m.todoID)
	} else {
		m.todoID = 0
	}

	m.shopListID = keepSelection(prev.ShoppingLists, m.board.ShoppingLists, shoppingListID, m.shopListID)
	if m.board.ShoppingListID == m.shopListID {
		var prevItems []household.ShoppingItem
		if prev.ShoppingListID == m.shopListID {
			prevItems = prev.Items
		}
		m.itemID = keepSelection(prevItems, m.board.Items, itemID, m.itemID)
	}
}

// currentList returns the selected todo list.
func (m Model) currentList() (household.TodoList, bool) {
	return m.board.FindList(m.listID)
}

// currentTodo returns the selected todo and its list.
func (m Model) currentTodo() (household.Todo, household.TodoList, bool) {
	list, ok := m.currentList()
	if !ok {
		return household.Todo{}, list, false
	}
	t := list.FindTodo(m.todoID)
	if t == nil {
		return household.Todo{}, list, false
	}
	return *t, list, true
}

// handleBoardKey processes keyboard input for the board view.
func (m Model) handleBoardKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	list, hasList := m.currentList()

	if delta, ok := m.navDelta(msg); ok {
		if m.focusedPane == 0 {
			next := step(m.board.TodoLists, todoListID, m.listID, delta)
			if next != m.listID {
				m.listID = next
				m.todoID = 0
				if l, ok := m.currentList(); ok && len(l.Todos) > 0 {
					m.todoID = l.Todos[0].ID
				}
			}
		} else if hasList {
			m.todoID = step(list.Todos, todoID, m.todoID, delta)
		}
		return m, nil
	}

	if key.Matches(msg, m.keys.Add) {
		if !hasList {
			return m, nil
		}
		m.openPrompt("New todo in "+list.Title, "", m.addTodo(list))
		return m, m.modal.Init()
	}

	todo, _, ok := m.currentTodo()
	if !ok || m.focusedPane == 0 {
		return m, nil
	}
	if todo.ID < 0 {
		m.setFlash("still saving "+todo.Title, false)
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Toggle):
		return m, m.toggleTodo(list, todo)
	case key.Matches(msg, m.keys.Edit):
		m.openPrompt("Rename todo", todo.Title, m.renameTodo(list, todo))
		return m, m.modal.Init()
	case key.Matches(msg, m.keys.Delete):
		return m, m.deleteTodo(list, todo)
	case key.Matches(msg, m.keys.MoveUp):
		return m, m.moveTodo(list, todo, -1)
	case key.Matches(msg, m.keys.MoveDown):
		return m, m.moveTodo(list, todo, 1)
	case key.Matches(msg, m.keys.Priority):
		return m, m.cyclePriority(list, todo)
	}
	return m, nil
}

// navDelta maps navigation keys to a row delta.
func (m Model) navDelta(msg tea.KeyMsg) (int, bool) {
	switch {
	case key.Matches(msg, m.keys.Up):
		return -1, true
	case key.Matches(msg, m.keys.Down):
		return 1, true
	case key.Matches(msg, m.keys.Top):
		return -1 << 20, true
	case key.Matches(msg, m.keys.Bottom):
		return 1 << 20, true
	}
	return 0, false
}

// renderBoard renders the todo board with split layout (lists + todos).
func (m Model) renderBoard() string {
	styles := m.theme.Styles()
	contentHeight := m.contentHeight()

	if len(m.board.TodoLists) == 0 {
		msg := "No todo lists in this household"
		if m.board.Loading {
			msg = "Loading lists..."
		}
		return lipgloss.Place(m.width, contentHeight, lipgloss.Center, lipgloss.Center, styles.MutedText.Render(msg))
	}

	listWidth := listPaneWidth(m.width)
	todoWidth := m.width - listWidth

	// === Lists Pane ===
	listsFocused := m.focusedPane == 0
	listBg := paneBg(m.theme, listsFocused)
	rows := make([]string, 0, len(m.board.TodoLists))
	selectedList := 0
	for i, l := range m.board.TodoLists {
		if l.ID == m.listID {
			selectedList = i
		}
		rows = append(rows, m.renderListRow(l.Title, fmt.Sprintf("%d", openCount(l)), l.ID == m.listID, listWidth-2, listBg))
	}
	rows = visibleRows(rows, selectedList, contentHeight-2)
	listPane := m.renderTitledBox(fmt.Sprintf("Lists (%d)", len(m.board.TodoLists)), strings.Join(rows, "\n"), listWidth, contentHeight, listsFocused)

	// === Todos Pane ===
	todosFocused := m.focusedPane == 1
	todoBg := paneBg(m.theme, todosFocused)
	list, _ := m.currentList()
	title := list.Title
	var content string
	if len(list.Todos) == 0 {
		content = lipgloss.NewStyle().
			Foreground(lipgloss.Color(m.theme.Muted)).
			Background(lipgloss.Color(todoBg)).
			Render("Nothing to do. Press a to add a todo")
	} else {
		done, selected := 0, 0
		lines := make([]string, 0, len(list.Todos))
		for i, t := range list.Todos {
			if t.Completed() {
				done++
			}
			if t.ID == m.todoID {
				selected = i
			}
			lines = append(lines, m.renderTodoRow(t, t.ID == m.todoID && todosFocused, todoWidth-2, todoBg))
		}
		title = fmt.Sprintf("%s (%d/%d)", list.Title, done, len(list.Todos))
		content = strings.Join(visibleRows(lines, selected, contentHeight-2), "\n")
	}
	todoPane := m.renderTitledBox(title, content, todoWidth, contentHeight, todosFocused)

	return lipgloss.JoinHorizontal(lipgloss.Top, listPane, todoPane)
}

// visibleRows keeps the selected row inside a window of height rows.
func visibleRows(rows []string, selected, height int) []string {
	if height <= 0 || len(rows) <= height {
		return rows
	}
	start := min(max(selected-height/2, 0), len(rows)-height)
	return rows[start : start+height]
}

func paneBg(t Theme, focused bool) string {
	if focused {
		return t.FocusBg
	}
	return t.SurfaceAlt
}

// renderListRow renders a list name with a right-aligned count.
func (m Model) renderListRow(title, count string, selected bool, width int, bgColor string) string {
	if selected {
		bgColor = m.theme.SelectionBg
	}
	bg := NewBgStyle(bgColor)
	styles := m.theme.Styles()
	titleStyle, countStyle := styles.Text, styles.MutedText
	if selected {
		sel := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.SelectionText))
		titleStyle, countStyle = sel, sel
	}
	titleWidth := max(width-len(count)-2, 4)
	line := bg.Render(padRight(truncate(title, titleWidth), titleWidth), titleStyle) + bg.Space() +
		bg.Render(count, countStyle)
	return bg.FillLine(line, width)
}

// renderTodoRow formats one todo.
// Format: "[x] Title · priority · due 2025-05-01 ~"
// The trailing ~ marks a row that exists only locally until the server answers.
// When selected is true, uses SelectionText color for all text to ensure contrast.
func (m Model) renderTodoRow(t household.Todo, selected bool, width int, bgColor string) string {
	if selected {
		bgColor = m.theme.SelectionBg
	}
	bg := NewBgStyle(bgColor)

	check := "[ ]"
	switch t.Status {
	case household.StatusCompleted:
		check = "[x]"
	case household.StatusInProgress:
		check = "[~]"
	}

	var meta []string
	if t.Status == household.StatusInProgress {
		meta = append(meta, titleCase(string(t.Status)))
	}
	if t.Priority != "" && t.Priority != household.PriorityNormal {
		meta = append(meta, string(t.Priority))
	}
	if t.DueDate != nil && *t.DueDate != "" {
		meta = append(meta, "due "+*t.DueDate)
	}
	metaStr := strings.Join(meta, " · ")

	var checkStyle, titleStyle, metaStyle lipgloss.Style
	if selected {
		selText := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.SelectionText))
		checkStyle, titleStyle, metaStyle = selText, selText, selText
	} else {
		styles := m.theme.Styles()
		checkStyle = m.theme.Styles().StatusText(string(t.Status))
		titleStyle = styles.Text
		if t.Completed() {
			titleStyle = styles.FaintText.Strikethrough(true)
		}
		metaStyle = m.theme.Styles().StatusText(string(t.Priority))
	}

	titleWidth := max(width-len(check)-len(metaStr)-6, 10)
	line := bg.Render(check, checkStyle) + bg.Space() + bg.Render(truncate(t.Title, titleWidth), titleStyle)
	if metaStr != "" {
		line += bg.Render(" · ", m.theme.Styles().FaintText) + bg.Render(metaStr, metaStyle)
	}
	if t.ID < 0 {
		line += bg.Space() + bg.Render("~", m.theme.Styles().StatusText("unsynced"))
	}
	return bg.FillLine(line, width)
}

// renderTitledBox renders content in a box with the title embedded in the top border.
// Frame style: ┌─── Title ───┐
// When focused is true, uses BorderFocus color and FocusBg background.
func (m Model) renderTitledBox(title, content string, width, height int, focused bool) string {
	var borderColorStr, bgColorStr string
	if focused {
		borderColorStr = m.theme.BorderFocus
		bgColorStr = m.theme.FocusBg
	} else {
		borderColorStr = m.theme.Border
		bgColorStr = m.theme.SurfaceAlt
	}
	bg := NewBgStyle(bgColorStr)
	borderColor := lipgloss.Color(borderColorStr)
	bgColor := lipgloss.Color(bgColorStr)
	borderStyle := lipgloss.NewStyle().Foreground(borderColor)
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(m.theme.Text))

	// Build the top border with embedded title
	innerWidth := width - 2 // Account for left and right border chars
	title = truncate(title, max(innerWidth-4, 1))
	titleLen := lipgloss.Width(title)
	leftPad := max((innerWidth-titleLen-2)/2, 0) // -2 for spaces around title
	rightPad := max(innerWidth-titleLen-2-leftPad, 0)

	topBorder := bg.Render("┌", borderStyle) +
		bg.Render(strings.Repeat("─", leftPad), borderStyle) +
		bg.Render(" "+title+" ", titleStyle) +
		bg.Render(strings.Repeat("─", rightPad), borderStyle) +
		bg.Render("┐", borderStyle)

	bottomBorder := bg.Render("└", borderStyle) +
		bg.Render(strings.Repeat("─", max(innerWidth, 0)), borderStyle) +
		bg.Render("┘", borderStyle)

	contentStyle := lipgloss.NewStyle().Width(innerWidth).Background(bgColor)

	// Pad or truncate content lines to fill the box
	contentLines := strings.Split(content, "\n")
	boxHeight := height - 2

	paddedLines := make([]string, 0, boxHeight)
	for i := 0; i < boxHeight; i++ {
		var line string
		if i < len(contentLines) {
			line = contentLines[i]
		}
		paddedLines = append(paddedLines,
			bg.Render("│", borderStyle)+
				contentStyle.Render(line)+
				bg.Render("│", borderStyle))
	}

	return topBorder + "\n" + strings.Join(paddedLines, "\n") + "\n" + bottomBorder
}

// openCount returns the number of unfinished todos in l.
func openCount(l household.TodoList) int {
	n := 0
	for _, t := range l.Todos {
		if !t.Completed() {
			n++
		}
	}
	return n
}
