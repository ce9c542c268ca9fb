package ui

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Risclover/toby/internal/household"
)

// currentShoppingList returns the selected shopping list.
func (m Model) currentShoppingList() (household.ShoppingList, bool) {
	for _, l := range m.board.ShoppingLists {
		if l.ID == m.shopListID {
			return l, true
		}
	}
	return household.ShoppingList{}, false
}

// currentItems returns the items of the selected list once the binding has
// moved its subscription there.
func (m Model) currentItems() []household.ShoppingItem {
	if m.shopListID == 0 || m.board.ShoppingListID != m.shopListID {
		return nil
	}
	return m.board.Items
}

func (m Model) currentItem() (household.ShoppingItem, bool) {
	for _, it := range m.currentItems() {
		if it.ID == m.itemID {
			return it, true
		}
	}
	return household.ShoppingItem{}, false
}

// syncShoppingList points the binding's item subscription at the selected
// list.
func (m Model) syncShoppingList() tea.Cmd {
	if m.source == nil || m.shopListID == 0 || m.board.ShoppingListID == m.shopListID {
		return nil
	}
	src, id := m.source, m.shopListID
	return func() tea.Msg {
		src.SelectShoppingList(id)
		return nil
	}
}

// handleShoppingKey processes keyboard input for the shopping view.
func (m Model) handleShoppingKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	list, hasList := m.currentShoppingList()

	if delta, ok := m.navDelta(msg); ok {
		if m.focusedPane == 0 {
			next := step(m.board.ShoppingLists, shoppingListID, m.shopListID, delta)
			if next != m.shopListID {
				m.shopListID = next
				m.itemID = 0
				return m, m.syncShoppingList()
			}
		} else {
			m.itemID = step(m.currentItems(), itemID, m.itemID, delta)
		}
		return m, nil
	}

	if key.Matches(msg, m.keys.Add) {
		if !hasList {
			return m, nil
		}
		m.openPrompt("Add to "+list.Title+` (e.g. "milk x2")`, "", m.addItem(list))
		return m, m.modal.Init()
	}

	item, ok := m.currentItem()
	if !ok || m.focusedPane == 0 {
		return m, nil
	}
	if item.ID < 0 {
		m.setFlash("still saving "+item.Name, false)
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Toggle):
		return m, m.toggleItem(list, item)
	case key.Matches(msg, m.keys.Edit):
		m.openPrompt("Rename item", item.Name, m.renameItem(list, item))
		return m, m.modal.Init()
	case key.Matches(msg, m.keys.Delete):
		return m, m.deleteItem(list, item)
	case key.Matches(msg, m.keys.QuantityUp):
		return m, m.changeQuantity(list, item, 1)
	case key.Matches(msg, m.keys.QuantityDown):
		return m, m.changeQuantity(list, item, -1)
	}
	return m, nil
}

var quantitySuffix = regexp.MustCompile(`^(.*?)\s+[xX](\d+)$`)

// parseItemInput splits "milk x2" into its name and quantity.
func parseItemInput(input string) (string, int) {
	input = strings.TrimSpace(input)
	if match := quantitySuffix.FindStringSubmatch(input); match != nil {
		if qty, err := strconv.Atoi(match[2]); err == nil && qty > 0 {
			return strings.TrimSpace(match[1]), qty
		}
	}
	return input, 1
}

// renderShopping renders shopping lists on the left and the selected list's
// items on the right.
func (m Model) renderShopping() string {
	styles := m.theme.Styles()
	contentHeight := m.contentHeight()

	if len(m.board.ShoppingLists) == 0 {
		msg := "No shopping lists in this household"
		if m.board.Loading {
			msg = "Loading shopping lists..."
		}
		return lipgloss.Place(m.width, contentHeight, lipgloss.Center, lipgloss.Center, styles.MutedText.Render(msg))
	}

	listWidth := listPaneWidth(m.width)
	itemWidth := m.width - listWidth

	// === Lists Pane ===
	listsFocused := m.focusedPane == 0
	listBg := paneBg(m.theme, listsFocused)
	rows := make([]string, 0, len(m.board.ShoppingLists))
	selectedList := 0
	for i, l := range m.board.ShoppingLists {
		if l.ID == m.shopListID {
			selectedList = i
		}
		rows = append(rows, m.renderListRow(l.Title, fmt.Sprintf("%d", len(l.Items)), l.ID == m.shopListID, listWidth-2, listBg))
	}
	rows = visibleRows(rows, selectedList, contentHeight-2)
	listPane := m.renderTitledBox(fmt.Sprintf("Shopping (%d)", len(m.board.ShoppingLists)), strings.Join(rows, "\n"), listWidth, contentHeight, listsFocused)

	// === Items Pane ===
	itemsFocused := m.focusedPane == 1
	itemBg := paneBg(m.theme, itemsFocused)
	list, _ := m.currentShoppingList()
	items := m.currentItems()
	title := list.Title
	var content string
	switch {
	case m.board.ShoppingListID != m.shopListID:
		content = m.paneMessage("Loading items...", itemBg)
	case len(items) == 0:
		content = m.paneMessage("List is empty. Press a to add an item", itemBg)
	default:
		bought, selected := 0, 0
		lines := make([]string, 0, len(items))
		for i, it := range items {
			if it.Purchased {
				bought++
			}
			if it.ID == m.itemID {
				selected = i
			}
			lines = append(lines, m.renderItemRow(it, it.ID == m.itemID && itemsFocused, itemWidth-2, itemBg))
		}
		title = fmt.Sprintf("%s (%d/%d)", list.Title, bought, len(items))
		content = strings.Join(visibleRows(lines, selected, contentHeight-2), "\n")
	}
	itemPane := m.renderTitledBox(title, content, itemWidth, contentHeight, itemsFocused)

	return lipgloss.JoinHorizontal(lipgloss.Top, listPane, itemPane)
}

func (m Model) paneMessage(text, bgColor string) string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(m.theme.Muted)).
		Background(lipgloss.Color(bgColor)).
		Render(text)
}

// renderItemRow formats one item.
// Format: "[x] 2 × Milk · Dairy"
func (m Model) renderItemRow(it household.ShoppingItem, selected bool, width int, bgColor string) string {
	if selected {
		bgColor = m.theme.SelectionBg
	}
	bg := NewBgStyle(bgColor)
	styles := m.theme.Styles()

	check := ternary(it.Purchased, "[x]", "[ ]")
	qty := fmt.Sprintf("%d ×", it.Quantity)
	category := ""
	if it.Category != nil {
		category = *it.Category
	}

	checkStyle := m.theme.Styles().StatusText(ternary(it.Purchased, "purchased", "pending"))
	qtyStyle, nameStyle, catStyle := styles.AccentText, styles.Text, styles.MutedText
	if it.Purchased {
		nameStyle = styles.FaintText.Strikethrough(true)
	}
	if selected {
		selText := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.SelectionText))
		checkStyle, qtyStyle, nameStyle, catStyle = selText, selText, selText, selText
	}

	nameWidth := max(width-len(check)-len(qty)-len(category)-8, 10)
	line := bg.Render(check, checkStyle) + bg.Space() +
		bg.Render(qty, qtyStyle) + bg.Space() +
		bg.Render(truncate(it.Name, nameWidth), nameStyle)
	if category != "" {
		line += bg.Render(" · ", styles.FaintText) + bg.Render(category, catStyle)
	}
	if it.ID < 0 {
		line += bg.Space() + bg.Render("~", m.theme.Styles().StatusText("unsynced"))
	}
	return bg.FillLine(line, width)
}
