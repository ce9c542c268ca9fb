package endpoints

import (
	"context"
	"fmt"
	"net/url"
	"sort"

	"github.com/Risclover/toby/internal/household"
	"github.com/Risclover/toby/internal/querycache"
)

// Tag types.
const (
	TagTodo             querycache.EntityType = "Todo"
	TagTodoList         querycache.EntityType = "TodoList"
	TagHousehold        querycache.EntityType = "Household"
	TagShoppingList     querycache.EntityType = "ShoppingList"
	TagShoppingItem     querycache.EntityType = "ShoppingItem"
	TagShoppingCategory querycache.EntityType = "ShoppingCategory"
	TagCalendar         querycache.EntityType = "Calendar"
	TagAnnouncement     querycache.EntityType = "Announcement"
	TagMood             querycache.EntityType = "Mood"
	TagCheckins         querycache.EntityType = "Checkins"
	TagUser             querycache.EntityType = "User"
)

// Endpoint names.
const (
	NameTodo                   = "getTodo"
	NameTodoList               = "getTodoList"
	NameHouseholdTodoLists     = "getHouseholdTodoLists"
	NameHousehold              = "getHousehold"
	NameHouseholdShoppingLists = "getHouseholdShoppingLists"
	NameShoppingList           = "getShoppingList"
	NameShoppingItems          = "getShoppingItems"
	NameShoppingListCategories = "getShoppingListCategories"
	NameHouseholdEvents        = "getHouseholdEvents"
	NameAnnouncements          = "getAnnouncements"
	NameMyMood                 = "getMyMood"
	NameUserCheckins           = "getUserCheckins"
	NameUser                   = "getUser"
	NameAllUsers               = "getAllUsers"
)

const (
	shoppingListBucketPrefix    = "LIST_"
	calendarRangeBucketTemplate = "RANGE_%d|%s|%s"
)

// Query is a typed read endpoint bound to its arguments.
type Query[T any] struct {
	Name      string
	Args      any
	Request   household.Request
	provides  func(v T, ok bool) []querycache.Tag
	normalize func(T) T
}

// Key returns the cache key for the query.
func (q Query[T]) Key() querycache.Key {
	return querycache.NewKey(q.Name, q.Args)
}

// Def binds the query to exec for the cache.
func (q Query[T]) Def(exec household.Executor) querycache.Def {
	return querycache.Def{
		Key: q.Key(),
		Load: func(ctx context.Context) (any, error) {
			var v T
			if err := exec.Do(ctx, q.Request, &v); err != nil {
				return nil, err
			}
			if q.normalize != nil {
				v = q.normalize(v)
			}
			return v, nil
		},
		Provides: func(value any) []querycache.Tag {
			if q.provides == nil {
				return nil
			}
			v, ok := value.(T)
			return q.provides(v, ok)
		},
	}
}

// Read returns the cached value of q, starting a background fetch when it is
// missing or stale.
func Read[T any](s *querycache.Store, exec household.Executor, q Query[T]) (T, querycache.Snapshot) {
	snap := s.Read(q.Def(exec))
	v, _ := querycache.Value[T](snap)
	return v, snap
}

// Fetch loads q and waits for it.
func Fetch[T any](ctx context.Context, s *querycache.Store, exec household.Executor, q Query[T]) (T, error) {
	snap, err := s.Fetch(ctx, q.Def(exec))
	v, _ := querycache.Value[T](snap)
	return v, err
}

// Peek returns the cached value of q without fetching.
func Peek[T any](s *querycache.Store, q Query[T]) (T, bool) {
	snap, ok := s.Peek(q.Key())
	if !ok {
		var zero T
		return zero, false
	}
	return querycache.Value[T](snap)
}

// GetTodo reads a single todo.
func GetTodo(todoID int64) Query[household.Todo] {
	return Query[household.Todo]{
		Name:    NameTodo,
		Args:    todoID,
		Request: household.Get(fmt.Sprintf("/todos/%d", todoID)),
		provides: func(household.Todo, bool) []querycache.Tag {
			return []querycache.Tag{querycache.EntityTag(TagTodo, todoID)}
		},
	}
}

// GetTodoList reads one list with its todos.
func GetTodoList(listID int64) Query[household.TodoList] {
	return Query[household.TodoList]{
		Name:    NameTodoList,
		Args:    listID,
		Request: household.Get(fmt.Sprintf("/todo_lists/%d", listID)),
		provides: func(household.TodoList, bool) []querycache.Tag {
			return []querycache.Tag{querycache.EntityTag(TagTodoList, listID)}
		},
		normalize: func(l household.TodoList) household.TodoList {
			sortTodos(l.Todos)
			return l
		},
	}
}

// GetHouseholdTodoLists reads every list of a household with their todos.
func GetHouseholdTodoLists(householdID int64) Query[[]household.TodoList] {
	return Query[[]household.TodoList]{
		Name:    NameHouseholdTodoLists,
		Args:    householdID,
		Request: household.Get(fmt.Sprintf("/households/%d/todo_lists", householdID)),
		provides: func(lists []household.TodoList, _ bool) []querycache.Tag {
			tags := make([]querycache.Tag, 0, len(lists)+2)
			for _, l := range lists {
				tags = append(tags, querycache.EntityTag(TagTodoList, l.ID))
			}
			return append(tags,
				querycache.HouseholdTag(TagTodoList, householdID),
				querycache.ListTag(TagTodoList),
			)
		},
		normalize: func(lists []household.TodoList) []household.TodoList {
			for i := range lists {
				sortTodos(lists[i].Todos)
			}
			return lists
		},
	}
}

// GetHousehold reads a household with its members.
func GetHousehold(householdID int64) Query[household.Household] {
	return Query[household.Household]{
		Name:    NameHousehold,
		Args:    householdID,
		Request: household.Get(fmt.Sprintf("/households/%d", householdID)),
		provides: func(household.Household, bool) []querycache.Tag {
			return []querycache.Tag{querycache.EntityTag(TagHousehold, householdID)}
		},
	}
}

// GetHouseholdShoppingLists reads every shopping list of a household.
func GetHouseholdShoppingLists(householdID int64) Query[[]household.ShoppingList] {
	return Query[[]household.ShoppingList]{
		Name:    NameHouseholdShoppingLists,
		Args:    householdID,
		Request: household.Get(fmt.Sprintf("/households/%d/shopping", householdID)),
		provides: func(lists []household.ShoppingList, _ bool) []querycache.Tag {
			tags := make([]querycache.Tag, 0, len(lists)+1)
			for _, l := range lists {
				tags = append(tags, querycache.EntityTag(TagShoppingList, l.ID))
			}
			return append(tags, querycache.HouseholdTag(TagShoppingList, householdID))
		},
	}
}

// GetShoppingList reads one shopping list.
func GetShoppingList(listID int64) Query[household.ShoppingList] {
	return Query[household.ShoppingList]{
		Name:    NameShoppingList,
		Args:    listID,
		Request: household.Get(fmt.Sprintf("/shopping_lists/%d", listID)),
		provides: func(household.ShoppingList, bool) []querycache.Tag {
			return []querycache.Tag{querycache.EntityTag(TagShoppingList, listID)}
		},
	}
}

// ShoppingListBucket is the "LIST_<id>" marker shared by item and category
// views of one shopping list.
func ShoppingListBucket(typ querycache.EntityType, listID int64) querycache.Tag {
	return querycache.BucketTag(typ, fmt.Sprintf("%s%d", shoppingListBucketPrefix, listID))
}

// GetShoppingItems reads the items of a shopping list.
func GetShoppingItems(listID int64) Query[[]household.ShoppingItem] {
	return Query[[]household.ShoppingItem]{
		Name:    NameShoppingItems,
		Args:    listID,
		Request: household.Get(fmt.Sprintf("/shopping_lists/%d/items", listID)),
		provides: func(items []household.ShoppingItem, _ bool) []querycache.Tag {
			tags := []querycache.Tag{ShoppingListBucket(TagShoppingItem, listID)}
			for _, it := range items {
				tags = append(tags, querycache.EntityTag(TagShoppingItem, it.ID))
			}
			return tags
		},
	}
}

// GetShoppingListCategories reads the categories of a shopping list.
func GetShoppingListCategories(listID int64) Query[[]household.ShoppingCategory] {
	return Query[[]household.ShoppingCategory]{
		Name:    NameShoppingListCategories,
		Args:    listID,
		Request: household.Get(fmt.Sprintf("/shopping_lists/%d/categories", listID)),
		provides: func([]household.ShoppingCategory, bool) []querycache.Tag {
			return []querycache.Tag{ShoppingListBucket(TagShoppingCategory, listID)}
		},
	}
}

// EventRange selects a household's events overlapping [Start, End).
// Start and End are ISO timestamps passed through verbatim.
type EventRange struct {
	HouseholdID int64  `json:"householdId"`
	Start       string `json:"start"`
	End         string `json:"end"`
}

// GetHouseholdEvents reads calendar events in a range.
func GetHouseholdEvents(r EventRange) Query[[]household.CalendarEvent] {
	q := url.Values{}
	q.Set("start", r.Start)
	q.Set("end", r.End)
	req := household.Get(fmt.Sprintf("/events/households/%d/events", r.HouseholdID))
	req.Query = q
	return Query[[]household.CalendarEvent]{
		Name:    NameHouseholdEvents,
		Args:    r,
		Request: req,
		provides: func([]household.CalendarEvent, bool) []querycache.Tag {
			return []querycache.Tag{
				querycache.BucketTag(TagCalendar, fmt.Sprintf(calendarRangeBucketTemplate, r.HouseholdID, r.Start, r.End)),
				querycache.HouseholdTag(TagCalendar, r.HouseholdID),
			}
		},
	}
}

// GetAnnouncements reads a household's announcement board.
func GetAnnouncements(householdID int64) Query[[]household.Announcement] {
	req := household.Get("/announcements")
	req.Query = url.Values{"householdId": {fmt.Sprint(householdID)}}
	return Query[[]household.Announcement]{
		Name:    NameAnnouncements,
		Args:    householdID,
		Request: req,
		provides: func(list []household.Announcement, _ bool) []querycache.Tag {
			tags := make([]querycache.Tag, 0, len(list)+1)
			for _, a := range list {
				tags = append(tags, querycache.EntityTag(TagAnnouncement, a.ID))
			}
			return append(tags, querycache.ListTag(TagAnnouncement))
		},
	}
}

// NoMoodUserID marks the placeholder returned when the server has no mood row.
const NoMoodUserID = -1

// GetMyMood reads the caller's mood. A null body becomes
// Mood{UserID: NoMoodUserID}.
func GetMyMood() Query[household.Mood] {
	return Query[household.Mood]{
		Name:    NameMyMood,
		Request: household.Get("/moods/me"),
		provides: func(household.Mood, bool) []querycache.Tag {
			return []querycache.Tag{querycache.TypeTag(TagMood)}
		},
		normalize: func(m household.Mood) household.Mood {
			if m.UserID == 0 && m.Mood == nil {
				m.UserID = NoMoodUserID
			}
			return m
		},
	}
}

// CheckinRange selects a user's check-ins. From and To are optional
// YYYY-MM-DD dates.
type CheckinRange struct {
	UserID int64  `json:"userId"`
	From   string `json:"from,omitempty"`
	To     string `json:"to,omitempty"`
}

// GetUserCheckins reads a user's check-in dates.
func GetUserCheckins(r CheckinRange) Query[household.Checkins] {
	req := household.Get(fmt.Sprintf("/users/%d/checkins", r.UserID))
	q := url.Values{}
	if r.From != "" {
		q.Set("from", r.From)
	}
	if r.To != "" {
		q.Set("to", r.To)
	}
	if len(q) > 0 {
		req.Query = q
	}
	return Query[household.Checkins]{
		Name:    NameUserCheckins,
		Args:    r,
		Request: req,
		provides: func(household.Checkins, bool) []querycache.Tag {
			return []querycache.Tag{querycache.UserTag(TagCheckins, r.UserID)}
		},
	}
}

// GetUser reads one user.
func GetUser(userID int64) Query[household.User] {
	return Query[household.User]{
		Name:    NameUser,
		Args:    userID,
		Request: household.Get(fmt.Sprintf("/users/%d", userID)),
		provides: func(household.User, bool) []querycache.Tag {
			return []querycache.Tag{querycache.EntityTag(TagUser, userID)}
		},
	}
}

// GetAllUsers reads every user.
func GetAllUsers() Query[[]household.User] {
	return Query[[]household.User]{
		Name:    NameAllUsers,
		Request: household.Get("/users/"),
		provides: func(users []household.User, _ bool) []querycache.Tag {
			tags := make([]querycache.Tag, 0, len(users)+1)
			for _, u := range users {
				tags = append(tags, querycache.EntityTag(TagUser, u.ID))
			}
			return append(tags, querycache.ListTag(TagUser))
		},
	}
}

func sortTodos(todos []household.Todo) {
	sort.SliceStable(todos, func(i, j int) bool {
		return todos[i].SortIndex < todos[j].SortIndex
	})
}
