package propagate

import (
	"github.com/rs/zerolog"

	"github.com/Risclover/toby/internal/endpoints"
	"github.com/Risclover/toby/internal/household"
	"github.com/Risclover/toby/internal/querycache"
)

const (
	KindReorderTodos           Kind = "reorderTodos"
	KindUpdateTodo             Kind = "updateTodo"
	KindCompleteTodo           Kind = "completeTodo"
	KindDeleteTodo             Kind = "deleteTodo"
	KindClearList              Kind = "clearList"
	KindRenameList             Kind = "updateTodoList"
	KindUpdateShoppingItem     Kind = "updateShoppingItem"
	KindDeleteShoppingItem     Kind = "deleteShoppingItem"
	KindAddShoppingItem        Kind = "addShoppingItem"
	KindConfirmShoppingItem    Kind = "confirmShoppingItem"
	KindAddShoppingCategory    Kind = "createShoppingCategory"
	KindConfirmCategory        Kind = "confirmShoppingCategory"
	KindDeleteShoppingCategory Kind = "deleteShoppingCategory"
	KindUpdateAnnouncement     Kind = "updateAnnouncement"
	KindDeleteAnnouncement     Kind = "deleteAnnouncement"
	KindSetMood                Kind = "setMyMood"
)

// TodoReorder is the input of KindReorderTodos. HouseholdID is optional.
type TodoReorder struct {
	ListID      int64
	HouseholdID int64
	OrderedIDs  []int64
}

// TodoChange is the input of KindUpdateTodo and KindCompleteTodo.
type TodoChange struct {
	TodoID      int64
	ListID      int64
	HouseholdID int64
	Patch       household.TodoPatch
	UpdatedAt   string
}

// TodoRemoval is the input of KindDeleteTodo.
type TodoRemoval struct {
	TodoID      int64
	ListID      int64
	HouseholdID int64
}

// ListChange is the input of KindClearList and KindRenameList. Title is
// ignored when clearing.
type ListChange struct {
	ListID      int64
	HouseholdID int64
	Title       string
}

// ItemChange is the input of KindUpdateShoppingItem. Toggle flips Purchased
// after Patch is applied.
type ItemChange struct {
	ItemID      int64
	ListID      int64
	HouseholdID int64
	Patch       household.ShoppingItemPatch
	Toggle      bool
}

// ItemRemoval is the input of KindDeleteShoppingItem.
type ItemRemoval struct {
	ItemID      int64
	ListID      int64
	HouseholdID int64
}

// ItemAddition is the input of KindAddShoppingItem and KindConfirmShoppingItem.
// TempID is the negative placeholder id shown until the server answers.
type ItemAddition struct {
	ListID      int64
	HouseholdID int64
	TempID      int64
	Item        household.ShoppingItem
}

// CategoryChange is the input of the shopping category kinds.
type CategoryChange struct {
	ListID   int64
	TempID   int64
	Category household.ShoppingCategory
}

// AnnouncementChange is the input of the announcement kinds. Removal ignores
// Patch.
type AnnouncementChange struct {
	ID          int64
	HouseholdID int64
	Patch       household.AnnouncementPatch
}

// MoodChange is the input of KindSetMood. A nil Mood clears it.
type MoodChange struct {
	Mood *household.MoodKey
}

// HouseholdOfList returns the household owning a todo list: explicit when
// positive, otherwise read from the cached getTodoList entry.
func HouseholdOfList(s *querycache.Store, listID, explicit int64) (int64, bool) {
	if explicit > 0 {
		return explicit, true
	}
	list, ok := endpoints.Peek(s, endpoints.GetTodoList(listID))
	if !ok || list.HouseholdID == nil || *list.HouseholdID <= 0 {
		return 0, false
	}
	return *list.HouseholdID, true
}

// HouseholdOfShoppingList is HouseholdOfList for shopping lists.
func HouseholdOfShoppingList(s *querycache.Store, listID, explicit int64) (int64, bool) {
	if explicit > 0 {
		return explicit, true
	}
	list, ok := endpoints.Peek(s, endpoints.GetShoppingList(listID))
	if !ok || list.HouseholdID <= 0 {
		return 0, false
	}
	return list.HouseholdID, true
}

// Default returns the table used by the client.
func Default(log zerolog.Logger) *Registry {
	r := NewRegistry(log)
	registerTodoRules(r)
	registerShoppingRules(r)
	registerBoardRules(r)
	return r
}

// listTargets builds the two views holding a whole todo list: its detail
// entry and its row in the household's list-of-lists.
func listTargets[In any](ids func(In) (listID, householdID int64), edit func(in In, l *household.TodoList)) []Target[In] {
	return []Target[In]{
		{
			Name: endpoints.NameTodoList,
			Key: func(_ *querycache.Store, in In) (querycache.Key, bool) {
				listID, _ := ids(in)
				return endpoints.GetTodoList(listID).Key(), true
			},
			Apply: func(in In) func(any) any {
				return querycache.PatchOf[household.TodoList](querycache.Key{}, func(l *household.TodoList) {
					edit(in, l)
				}).Fn
			},
		},
		{
			Name: endpoints.NameHouseholdTodoLists,
			Key: func(s *querycache.Store, in In) (querycache.Key, bool) {
				listID, explicit := ids(in)
				hid, ok := HouseholdOfList(s, listID, explicit)
				if !ok {
					return querycache.Key{}, false
				}
				return endpoints.GetHouseholdTodoLists(hid).Key(), true
			},
			Apply: func(in In) func(any) any {
				listID, _ := ids(in)
				return querycache.PatchOf[[]household.TodoList](querycache.Key{}, func(lists *[]household.TodoList) {
					if l := findList(*lists, listID); l != nil {
						edit(in, l)
					}
				}).Fn
			},
		},
	}
}

func registerTodoRules(r *Registry) {
	Register(r, KindReorderTodos, listTargets(
		func(in TodoReorder) (int64, int64) { return in.ListID, in.HouseholdID },
		func(in TodoReorder, l *household.TodoList) { l.Todos = ReorderTodos(l.Todos, in.OrderedIDs) },
	)...)

	changeTodo := func(in TodoChange, t *household.Todo) {
		in.Patch.ApplyTo(t)
		if in.UpdatedAt != "" {
			t.UpdatedAt = in.UpdatedAt
		}
	}
	todoTargets := append([]Target[TodoChange]{{
		Name: endpoints.NameTodo,
		Key: func(_ *querycache.Store, in TodoChange) (querycache.Key, bool) {
			return endpoints.GetTodo(in.TodoID).Key(), true
		},
		Apply: func(in TodoChange) func(any) any {
			return querycache.PatchOf[household.Todo](querycache.Key{}, func(t *household.Todo) {
				if t.ID == in.TodoID {
					changeTodo(in, t)
				}
			}).Fn
		},
	}}, listTargets(
		func(in TodoChange) (int64, int64) { return in.ListID, in.HouseholdID },
		func(in TodoChange, l *household.TodoList) {
			if t := l.FindTodo(in.TodoID); t != nil {
				changeTodo(in, t)
			}
		},
	)...)
	Register(r, KindUpdateTodo, todoTargets...)
	Register(r, KindCompleteTodo, todoTargets...)

	Register(r, KindDeleteTodo, listTargets(
		func(in TodoRemoval) (int64, int64) { return in.ListID, in.HouseholdID },
		func(in TodoRemoval, l *household.TodoList) { l.Todos = RemoveTodo(l.Todos, in.TodoID) },
	)...)

	Register(r, KindClearList, listTargets(
		func(in ListChange) (int64, int64) { return in.ListID, in.HouseholdID },
		func(_ ListChange, l *household.TodoList) { l.Todos = []household.Todo{} },
	)...)

	Register(r, KindRenameList, listTargets(
		func(in ListChange) (int64, int64) { return in.ListID, in.HouseholdID },
		func(in ListChange, l *household.TodoList) { l.Title = in.Title },
	)...)
}

// itemTargets builds the three views holding a shopping list's items: the
// items entry, the list detail and the household's shopping lists.
func itemTargets[In any](ids func(In) (listID, householdID int64), edit func(in In, items []household.ShoppingItem) []household.ShoppingItem) []Target[In] {
	return []Target[In]{
		{
			Name: endpoints.NameShoppingItems,
			Key: func(_ *querycache.Store, in In) (querycache.Key, bool) {
				listID, _ := ids(in)
				return endpoints.GetShoppingItems(listID).Key(), true
			},
			Apply: func(in In) func(any) any {
				return querycache.PatchOf[[]household.ShoppingItem](querycache.Key{}, func(items *[]household.ShoppingItem) {
					*items = edit(in, *items)
				}).Fn
			},
		},
		{
			Name: endpoints.NameShoppingList,
			Key: func(_ *querycache.Store, in In) (querycache.Key, bool) {
				listID, _ := ids(in)
				return endpoints.GetShoppingList(listID).Key(), true
			},
			Apply: func(in In) func(any) any {
				return querycache.PatchOf[household.ShoppingList](querycache.Key{}, func(l *household.ShoppingList) {
					l.Items = edit(in, l.Items)
				}).Fn
			},
		},
		{
			Name: endpoints.NameHouseholdShoppingLists,
			Key: func(s *querycache.Store, in In) (querycache.Key, bool) {
				listID, explicit := ids(in)
				hid, ok := HouseholdOfShoppingList(s, listID, explicit)
				if !ok {
					return querycache.Key{}, false
				}
				return endpoints.GetHouseholdShoppingLists(hid).Key(), true
			},
			Apply: func(in In) func(any) any {
				listID, _ := ids(in)
				return querycache.PatchOf[[]household.ShoppingList](querycache.Key{}, func(lists *[]household.ShoppingList) {
					if l := findShoppingList(*lists, listID); l != nil {
						l.Items = edit(in, l.Items)
					}
				}).Fn
			},
		},
	}
}

func registerShoppingRules(r *Registry) {
	Register(r, KindUpdateShoppingItem, itemTargets(
		func(in ItemChange) (int64, int64) { return in.ListID, in.HouseholdID },
		func(in ItemChange, items []household.ShoppingItem) []household.ShoppingItem {
			if it := findItem(items, in.ItemID); it != nil {
				in.Patch.ApplyTo(it)
				if in.Toggle {
					it.Purchased = !it.Purchased
				}
			}
			return items
		},
	)...)

	Register(r, KindDeleteShoppingItem, itemTargets(
		func(in ItemRemoval) (int64, int64) { return in.ListID, in.HouseholdID },
		func(in ItemRemoval, items []household.ShoppingItem) []household.ShoppingItem {
			return removeItem(items, in.ItemID)
		},
	)...)

	Register(r, KindAddShoppingItem, itemTargets(
		func(in ItemAddition) (int64, int64) { return in.ListID, in.HouseholdID },
		func(in ItemAddition, items []household.ShoppingItem) []household.ShoppingItem {
			row := in.Item
			row.ID = in.TempID
			row.ShoppingListID = in.ListID
			return append(items, row)
		},
	)...)

	Register(r, KindConfirmShoppingItem, itemTargets(
		func(in ItemAddition) (int64, int64) { return in.ListID, in.HouseholdID },
		func(in ItemAddition, items []household.ShoppingItem) []household.ShoppingItem {
			return replaceItem(items, in.TempID, in.Item)
		},
	)...)

	categoryTargets := func(edit func(in CategoryChange, cats []household.ShoppingCategory) []household.ShoppingCategory, names func(in CategoryChange, names []string) []string) []Target[CategoryChange] {
		return []Target[CategoryChange]{
			{
				Name: endpoints.NameShoppingListCategories,
				Key: func(_ *querycache.Store, in CategoryChange) (querycache.Key, bool) {
					return endpoints.GetShoppingListCategories(in.ListID).Key(), true
				},
				Apply: func(in CategoryChange) func(any) any {
					return querycache.PatchOf[[]household.ShoppingCategory](querycache.Key{}, func(cats *[]household.ShoppingCategory) {
						*cats = edit(in, *cats)
					}).Fn
				},
			},
			{
				Name: endpoints.NameShoppingList,
				Key: func(_ *querycache.Store, in CategoryChange) (querycache.Key, bool) {
					return endpoints.GetShoppingList(in.ListID).Key(), true
				},
				Apply: func(in CategoryChange) func(any) any {
					return querycache.PatchOf[household.ShoppingList](querycache.Key{}, func(l *household.ShoppingList) {
						l.Categories = names(in, l.Categories)
					}).Fn
				},
			},
		}
	}

	Register(r, KindAddShoppingCategory, categoryTargets(
		func(in CategoryChange, cats []household.ShoppingCategory) []household.ShoppingCategory {
			row := in.Category
			row.ID = in.TempID
			row.ListID = in.ListID
			return append(cats, row)
		},
		addName,
	)...)

	Register(r, KindConfirmCategory, categoryTargets(
		func(in CategoryChange, cats []household.ShoppingCategory) []household.ShoppingCategory {
			for i := range cats {
				if cats[i].ID == in.TempID {
					cats[i] = in.Category
					return cats
				}
			}
			return append(cats, in.Category)
		},
		addName,
	)...)

	Register(r, KindDeleteShoppingCategory, categoryTargets(
		func(in CategoryChange, cats []household.ShoppingCategory) []household.ShoppingCategory {
			out := cats[:0]
			for _, c := range cats {
				if c.ID != in.Category.ID {
					out = append(out, c)
				}
			}
			return out
		},
		func(in CategoryChange, names []string) []string {
			out := names[:0]
			for _, n := range names {
				if n != in.Category.Name {
					out = append(out, n)
				}
			}
			return out
		},
	)...)
}

func addName(in CategoryChange, names []string) []string {
	for _, n := range names {
		if n == in.Category.Name {
			return names
		}
	}
	return append(names, in.Category.Name)
}

func registerBoardRules(r *Registry) {
	announcements := func(edit func(in AnnouncementChange, list []household.Announcement) []household.Announcement) Target[AnnouncementChange] {
		return Target[AnnouncementChange]{
			Name: endpoints.NameAnnouncements,
			Key: func(_ *querycache.Store, in AnnouncementChange) (querycache.Key, bool) {
				if in.HouseholdID <= 0 {
					return querycache.Key{}, false
				}
				return endpoints.GetAnnouncements(in.HouseholdID).Key(), true
			},
			Apply: func(in AnnouncementChange) func(any) any {
				return querycache.PatchOf[[]household.Announcement](querycache.Key{}, func(list *[]household.Announcement) {
					*list = edit(in, *list)
				}).Fn
			},
		}
	}

	Register(r, KindUpdateAnnouncement, announcements(
		func(in AnnouncementChange, list []household.Announcement) []household.Announcement {
			for i := range list {
				if list[i].ID == in.ID {
					in.Patch.ApplyTo(&list[i])
				}
			}
			return list
		},
	))

	Register(r, KindDeleteAnnouncement, announcements(
		func(in AnnouncementChange, list []household.Announcement) []household.Announcement {
			out := list[:0]
			for _, a := range list {
				if a.ID != in.ID {
					out = append(out, a)
				}
			}
			return out
		},
	))

	Register(r, KindSetMood, Target[MoodChange]{
		Name: endpoints.NameMyMood,
		Key: func(*querycache.Store, MoodChange) (querycache.Key, bool) {
			return endpoints.GetMyMood().Key(), true
		},
		Apply: func(in MoodChange) func(any) any {
			return querycache.PatchOf[household.Mood](querycache.Key{}, func(m *household.Mood) {
				if in.Mood == nil {
					m.Mood = nil
					return
				}
				mood := *in.Mood
				m.Mood = &mood
			}).Fn
		},
	})
}
