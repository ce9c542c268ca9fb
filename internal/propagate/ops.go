package propagate

import (
	"slices"

	"github.com/Risclover/toby/internal/household"
)

// ReorderTodos returns todos ordered by orderedIDs with sortIndex rewritten to
// 0..n-1. Todos missing from orderedIDs keep their relative order and sort
// ahead of the listed ones, as the backend does. Applying the same ids twice
// gives the same result as applying them once.
func ReorderTodos(todos []household.Todo, orderedIDs []int64) []household.Todo {
	pos := make(map[int64]int, len(orderedIDs))
	for i, id := range orderedIDs {
		if _, dup := pos[id]; !dup {
			pos[id] = i
		}
	}
	rank := func(t household.Todo) int {
		if i, ok := pos[t.ID]; ok {
			return i
		}
		return -1
	}
	out := slices.Clone(todos)
	slices.SortStableFunc(out, func(a, b household.Todo) int {
		return rank(a) - rank(b)
	})
	for i := range out {
		out[i].SortIndex = i
	}
	return out
}

// RemoveTodo drops todoID and closes the gap in sortIndex.
func RemoveTodo(todos []household.Todo, todoID int64) []household.Todo {
	out := slices.DeleteFunc(slices.Clone(todos), func(t household.Todo) bool {
		return t.ID == todoID
	})
	for i := range out {
		out[i].SortIndex = i
	}
	return out
}

// findList returns a pointer to the list with id inside lists.
func findList(lists []household.TodoList, id int64) *household.TodoList {
	for i := range lists {
		if lists[i].ID == id {
			return &lists[i]
		}
	}
	return nil
}

func findShoppingList(lists []household.ShoppingList, id int64) *household.ShoppingList {
	for i := range lists {
		if lists[i].ID == id {
			return &lists[i]
		}
	}
	return nil
}

func findItem(items []household.ShoppingItem, id int64) *household.ShoppingItem {
	for i := range items {
		if items[i].ID == id {
			return &items[i]
		}
	}
	return nil
}

func removeItem(items []household.ShoppingItem, id int64) []household.ShoppingItem {
	return slices.DeleteFunc(slices.Clone(items), func(it household.ShoppingItem) bool {
		return it.ID == id
	})
}

// replaceItem swaps the row with id old for item. A row already carrying
// item's id is dropped so the item appears once; when old is gone item is
// appended.
func replaceItem(items []household.ShoppingItem, old int64, item household.ShoppingItem) []household.ShoppingItem {
	out := slices.DeleteFunc(slices.Clone(items), func(it household.ShoppingItem) bool {
		return it.ID == item.ID && item.ID != old
	})
	if idx := slices.IndexFunc(out, func(it household.ShoppingItem) bool { return it.ID == old }); idx >= 0 {
		out[idx] = item
		return out
	}
	return append(out, item)
}
