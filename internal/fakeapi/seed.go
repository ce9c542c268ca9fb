package fakeapi

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Risclover/toby/internal/household"
)

// Seeded ids, exported so tests and the dev server can refer to them.
const (
	SeedHouseholdID    int64 = 7
	SeedUserID         int64 = 1
	SeedChoresListID   int64 = 1
	SeedErrandsListID  int64 = 2
	SeedShoppingListID int64 = 4
)

type dataset struct {
	nextID        int64
	users         []household.User
	households    []household.Household
	todoLists     []*household.TodoList
	shoppingLists []*household.ShoppingList
	categories    []household.ShoppingCategory
	events        []household.CalendarEvent
	announcements []household.Announcement
	moods         map[int64]household.MoodKey
	checkins      map[int64][]string
	habits        []household.Habit
	habitLogs     []household.HabitLog
}

func (d *dataset) id() int64 {
	d.nextID++
	return d.nextID
}

func ptr[T any](v T) *T { return &v }

func seed(now time.Time) *dataset {
	ts := now.UTC().Format(time.RFC3339)
	hid := SeedHouseholdID
	d := &dataset{
		nextID:   100,
		moods:    make(map[int64]household.MoodKey),
		checkins: make(map[int64][]string),
	}
	d.users = []household.User{
		{ID: 1, Name: "alex", Email: "alex@example.com", DisplayName: "Alex", HouseholdID: ptr(hid), CreatedAt: ts},
		{ID: 2, Name: "sam", Email: "sam@example.com", DisplayName: "Sam", HouseholdID: ptr(hid), CreatedAt: ts},
	}
	d.households = []household.Household{{
		ID:         hid,
		Name:       "Maple Street",
		InviteCode: strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8]),
		CreatorID:  1,
		Members:    append([]household.User(nil), d.users...),
		CreatedAt:  ts,
	}}

	todo := func(id, list int64, title string, idx int) household.Todo {
		return household.Todo{
			ID: id, ListID: list, Title: title, Status: household.StatusPending,
			Priority: household.PriorityNormal, SortIndex: idx, CreatedAt: ts, UpdatedAt: ts,
		}
	}
	d.todoLists = []*household.TodoList{
		{
			ID: SeedChoresListID, Title: "Chores", HouseholdID: ptr(hid), Scope: "household", AllMembers: true,
			Todos: []household.Todo{
				todo(10, SeedChoresListID, "Vacuum", 0),
				todo(11, SeedChoresListID, "Dishes", 1),
				todo(12, SeedChoresListID, "Laundry", 2),
			},
			CreatedAt: ts, UpdatedAt: ts,
		},
		{
			ID: SeedErrandsListID, Title: "Errands", HouseholdID: ptr(hid), Scope: "household", AllMembers: true,
			Todos:     []household.Todo{todo(20, SeedErrandsListID, "Post office", 0)},
			CreatedAt: ts, UpdatedAt: ts,
		},
	}

	d.categories = []household.ShoppingCategory{
		{ID: 1, ListID: SeedShoppingListID, Name: "Dairy", CreatedAt: ts, UpdatedAt: ts},
		{ID: 2, ListID: SeedShoppingListID, Name: "Bakery", CreatedAt: ts, UpdatedAt: ts},
	}
	d.shoppingLists = []*household.ShoppingList{{
		ID: SeedShoppingListID, HouseholdID: hid, Title: "Groceries", CreatedAt: ts,
		Categories: []string{"Dairy", "Bakery"},
		Items: []household.ShoppingItem{
			{ID: 40, ShoppingListID: SeedShoppingListID, Name: "Milk", Quantity: 2, Category: ptr("Dairy"), CategoryID: ptr(int64(1)), CreatedAt: ts, UpdatedAt: ts},
			{ID: 41, ShoppingListID: SeedShoppingListID, Name: "Bread", Quantity: 1, Category: ptr("Bakery"), CategoryID: ptr(int64(2)), CreatedAt: ts, UpdatedAt: ts},
		},
	}}

	day := now.UTC().Truncate(24 * time.Hour)
	d.events = []household.CalendarEvent{{
		ID: 60, HouseholdID: hid, Title: "Bin day",
		StartUTC: day.Add(7 * time.Hour).Format(time.RFC3339),
		EndUTC:   day.Add(8 * time.Hour).Format(time.RFC3339),
		TZID:     "UTC", CreatedAt: ts,
	}}

	d.announcements = []household.Announcement{
		{ID: 70, UserID: 1, HouseholdID: hid, Text: "Rent due Friday", IsPinned: true, CreatedAt: ptr(ts), UpdatedAt: ptr(ts)},
		{ID: 71, UserID: 2, HouseholdID: hid, Text: "Plumber on Tuesday", CreatedAt: ptr(ts), UpdatedAt: ptr(ts)},
	}
	return d
}

func (d *dataset) todoList(id int64) *household.TodoList {
	for _, l := range d.todoLists {
		if l.ID == id {
			return l
		}
	}
	return nil
}

// todo returns the todo and the list holding it.
func (d *dataset) todo(id int64) (*household.Todo, *household.TodoList) {
	for _, l := range d.todoLists {
		if t := l.FindTodo(id); t != nil {
			return t, l
		}
	}
	return nil, nil
}

func (d *dataset) shoppingList(id int64) *household.ShoppingList {
	for _, l := range d.shoppingLists {
		if l.ID == id {
			return l
		}
	}
	return nil
}

func (d *dataset) item(id int64) (*household.ShoppingItem, *household.ShoppingList) {
	for _, l := range d.shoppingLists {
		for i := range l.Items {
			if l.Items[i].ID == id {
				return &l.Items[i], l
			}
		}
	}
	return nil, nil
}

func (d *dataset) household(id int64) *household.Household {
	for i := range d.households {
		if d.households[i].ID == id {
			return &d.households[i]
		}
	}
	return nil
}

func (d *dataset) user(id int64) *household.User {
	for i := range d.users {
		if d.users[i].ID == id {
			return &d.users[i]
		}
	}
	return nil
}

func (d *dataset) habit(id int64) *household.Habit {
	for i := range d.habits {
		if d.habits[i].ID == id {
			return &d.habits[i]
		}
	}
	return nil
}
