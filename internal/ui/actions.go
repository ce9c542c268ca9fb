package ui

import (
	"context"
	"errors"
	"slices"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Risclover/toby/internal/household"
	"github.com/Risclover/toby/internal/mutations"
)

// actionMsg reports a settled mutation. The board already shows the
// optimistic result or its rollback; this only feeds the status line.
type actionMsg struct {
	label string
	err   error
}

// run executes fn off the update loop with a bounded context.
func (m Model) run(label string, fn func(ctx context.Context, svc Service) error) tea.Cmd {
	if m.svc == nil {
		return nil
	}
	ctx, svc := m.ctx, m.svc
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, actionTimeout)
		defer cancel()
		return actionMsg{label: label, err: fn(ctx, svc)}
	}
}

func (m *Model) handleAction(msg actionMsg) {
	if msg.err != nil {
		m.log.Warn().Err(msg.err).Str("action", msg.label).Msg("action failed")
		m.setFlash(msg.label+" failed: "+describeError(msg.err), true)
		return
	}
	m.log.Debug().Str("action", msg.label).Msg("action done")
	m.setFlash(msg.label, false)
}

// describeError shortens well-known failures for the status line.
func describeError(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timed out"
	case errors.Is(err, household.ErrNetwork):
		return "server unreachable"
	default:
		return err.Error()
	}
}

func (m Model) todoRef(list household.TodoList, t household.Todo) mutations.TodoRef {
	return mutations.TodoRef{TodoID: t.ID, ListID: list.ID, HouseholdID: m.board.HouseholdID}
}

func (m Model) toggleTodo(list household.TodoList, t household.Todo) tea.Cmd {
	ref, done := m.todoRef(list, t), !t.Completed()
	label := ternary(done, "completed ", "reopened ") + truncate(t.Title, 30)
	return m.run(label, func(ctx context.Context, svc Service) error {
		_, err := svc.CompleteTodo(ctx, ref, done)
		return err
	})
}

func (m Model) addTodo(list household.TodoList) func(string) tea.Cmd {
	return func(title string) tea.Cmd {
		return m.run("added "+truncate(title, 30), func(ctx context.Context, svc Service) error {
			_, err := svc.AddTodo(ctx, mutations.NewTodo{ListID: list.ID, Title: title})
			return err
		})
	}
}

func (m Model) renameTodo(list household.TodoList, t household.Todo) func(string) tea.Cmd {
	ref := m.todoRef(list, t)
	return func(title string) tea.Cmd {
		if title == t.Title {
			return nil
		}
		return m.run("renamed to "+truncate(title, 30), func(ctx context.Context, svc Service) error {
			_, err := svc.UpdateTodo(ctx, ref, household.TodoPatch{Title: household.Set(title)})
			return err
		})
	}
}

func (m Model) deleteTodo(list household.TodoList, t household.Todo) tea.Cmd {
	ref := m.todoRef(list, t)
	return m.run("deleted "+truncate(t.Title, 30), func(ctx context.Context, svc Service) error {
		return svc.DeleteTodo(ctx, ref)
	})
}

// moveTodo swaps t with its neighbour and sends the full new order.
func (m Model) moveTodo(list household.TodoList, t household.Todo, delta int) tea.Cmd {
	ids := make([]int64, 0, len(list.Todos))
	for _, x := range list.Todos {
		ids = append(ids, x.ID)
	}
	i := slices.Index(ids, t.ID)
	j := i + delta
	if i < 0 || j < 0 || j >= len(ids) {
		return nil
	}
	if ids[j] < 0 {
		return nil
	}
	ids[i], ids[j] = ids[j], ids[i]
	listID, hid := list.ID, m.board.HouseholdID
	return m.run("moved "+truncate(t.Title, 30), func(ctx context.Context, svc Service) error {
		return svc.ReorderTodos(ctx, listID, hid, ids)
	})
}

var priorityCycle = []household.Priority{
	household.PriorityLow,
	household.PriorityNormal,
	household.PriorityHigh,
}

func nextPriority(p household.Priority) household.Priority {
	i := slices.Index(priorityCycle, p)
	if i < 0 {
		return household.PriorityHigh
	}
	return priorityCycle[(i+1)%len(priorityCycle)]
}

func (m Model) cyclePriority(list household.TodoList, t household.Todo) tea.Cmd {
	ref, next := m.todoRef(list, t), nextPriority(t.Priority)
	return m.run("priority "+string(next), func(ctx context.Context, svc Service) error {
		_, err := svc.UpdateTodo(ctx, ref, household.TodoPatch{Priority: household.Set(next)})
		return err
	})
}

func (m Model) itemRef(list household.ShoppingList, it household.ShoppingItem) mutations.ItemRef {
	return mutations.ItemRef{ItemID: it.ID, ListID: list.ID, HouseholdID: m.board.HouseholdID}
}

func (m Model) addItem(list household.ShoppingList) func(string) tea.Cmd {
	return func(input string) tea.Cmd {
		name, qty := parseItemInput(input)
		if name == "" {
			return nil
		}
		n := mutations.NewShoppingItem{ListID: list.ID, HouseholdID: m.board.HouseholdID, Name: name, Quantity: qty}
		return m.run("added "+truncate(name, 30), func(ctx context.Context, svc Service) error {
			_, err := svc.AddShoppingItem(ctx, n)
			return err
		})
	}
}

func (m Model) toggleItem(list household.ShoppingList, it household.ShoppingItem) tea.Cmd {
	ref := m.itemRef(list, it)
	label := ternary(it.Purchased, "unchecked ", "bought ") + truncate(it.Name, 30)
	return m.run(label, func(ctx context.Context, svc Service) error {
		return svc.ToggleShoppingItem(ctx, ref)
	})
}

func (m Model) renameItem(list household.ShoppingList, it household.ShoppingItem) func(string) tea.Cmd {
	ref := m.itemRef(list, it)
	return func(name string) tea.Cmd {
		if name == it.Name {
			return nil
		}
		return m.run("renamed to "+truncate(name, 30), func(ctx context.Context, svc Service) error {
			return svc.UpdateShoppingItem(ctx, ref, household.ShoppingItemPatch{Name: household.Set(name)})
		})
	}
}

func (m Model) changeQuantity(list household.ShoppingList, it household.ShoppingItem, delta int) tea.Cmd {
	qty := it.Quantity + delta
	if qty < 1 {
		return nil
	}
	ref := m.itemRef(list, it)
	return m.run(truncate(it.Name, 30)+" × "+strconv.Itoa(qty), func(ctx context.Context, svc Service) error {
		return svc.UpdateShoppingItem(ctx, ref, household.ShoppingItemPatch{Quantity: household.Set(qty)})
	})
}

func (m Model) deleteItem(list household.ShoppingList, it household.ShoppingItem) tea.Cmd {
	ref := m.itemRef(list, it)
	return m.run("removed "+truncate(it.Name, 30), func(ctx context.Context, svc Service) error {
		return svc.DeleteShoppingItem(ctx, ref)
	})
}

func (m Model) announce(text string) tea.Cmd {
	hid := m.board.HouseholdID
	return m.run("announced", func(ctx context.Context, svc Service) error {
		_, err := svc.CreateAnnouncement(ctx, hid, text, false)
		return err
	})
}

// nextMood steps through household.Moods, starting over after the last.
func nextMood(current *household.MoodKey) household.MoodKey {
	if current == nil {
		return household.Moods[0]
	}
	i := slices.Index(household.Moods, *current)
	return household.Moods[(i+1)%len(household.Moods)]
}

func (m Model) cycleMood() tea.Cmd {
	mood := nextMood(m.board.Mood.Mood)
	return m.run("mood "+string(mood), func(ctx context.Context, svc Service) error {
		_, err := svc.SetMyMood(ctx, mood)
		return err
	})
}

func (m Model) clearMood() tea.Cmd {
	if m.board.Mood.Mood == nil {
		return nil
	}
	return m.run("mood cleared", func(ctx context.Context, svc Service) error {
		return svc.ClearMyMood(ctx)
	})
}

func (m Model) checkIn() tea.Cmd {
	uid := m.config.UserID
	if uid <= 0 {
		return nil
	}
	return m.run("checked in", func(ctx context.Context, svc Service) error {
		_, err := svc.CheckInToday(ctx, uid)
		return err
	})
}
