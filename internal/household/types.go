package household

import (
	"time"
)

const backendTimestampLayout = "2006-01-02 15:04:05"

// TodoStatus is the lifecycle state of a todo.
type TodoStatus string

const (
	StatusPending    TodoStatus = "pending"
	StatusInProgress TodoStatus = "in_progress"
	StatusCompleted  TodoStatus = "completed"
)

// Priority ranks a todo inside its list.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// Todo mirrors the payload returned by /todos/{id} and embedded in lists.
type Todo struct {
	ID           int64      `json:"id"`
	ListID       int64      `json:"listId"`
	Title        string     `json:"title"`
	Description  *string    `json:"description"`
	Status       TodoStatus `json:"status"`
	Priority     Priority   `json:"priority"`
	DueDate      *string    `json:"dueDate"`
	AssignedToID *int64     `json:"assignedToId"`
	Notes        *string    `json:"notes"`
	SortIndex    int        `json:"sortIndex"`
	CreatedAt    string     `json:"createdAt"`
	UpdatedAt    string     `json:"updatedAt"`
}

// Completed reports whether the todo is checked off.
func (t Todo) Completed() bool {
	return t.Status == StatusCompleted
}

// ParsedUpdatedAt returns the parsed UpdatedAt timestamp.
func (t Todo) ParsedUpdatedAt() time.Time {
	return parseTime(t.UpdatedAt)
}

// TodoList is a titled, ordered collection of todos owned by a user or a household.
type TodoList struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Icon        *string `json:"icon"`
	UserID      *int64  `json:"userId"`
	HouseholdID *int64  `json:"householdId"`
	Scope       string  `json:"scope"`
	AllMembers  bool    `json:"allMembers"`
	MemberIDs   []int64 `json:"memberIds"`
	Todos       []Todo  `json:"todos"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   string  `json:"updatedAt"`
}

// FindTodo returns a pointer into l.Todos for the given id, or nil.
func (l *TodoList) FindTodo(id int64) *Todo {
	if l == nil {
		return nil
	}
	for i := range l.Todos {
		if l.Todos[i].ID == id {
			return &l.Todos[i]
		}
	}
	return nil
}

// User is a household member.
type User struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	Email        string  `json:"email"`
	DisplayName  string  `json:"displayName"`
	Tagline      *string `json:"tagline"`
	Points       int     `json:"points"`
	DailyCheckin bool    `json:"dailyCheckin"`
	LastCheckin  *string `json:"lastCheckin"`
	HouseholdID  *int64  `json:"householdId"`
	CreatedAt    string  `json:"createdAt"`
}

// Label returns the display name, falling back to the account name.
func (u User) Label() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Name
}

// Household groups members and their shared lists.
type Household struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	InviteCode string `json:"inviteCode"`
	CreatorID  int64  `json:"creatorId"`
	Members    []User `json:"members"`
	CreatedAt  string `json:"createdAt"`
}

// ShoppingList is a household shopping list with its items.
type ShoppingList struct {
	ID          int64          `json:"id"`
	HouseholdID int64          `json:"householdId"`
	Title       string         `json:"title"`
	CreatedAt   string         `json:"createdAt"`
	Items       []ShoppingItem `json:"items"`
	Categories  []string       `json:"categories"`
}

// ShoppingItem is a single line on a shopping list.
type ShoppingItem struct {
	ID             int64   `json:"id"`
	ShoppingListID int64   `json:"shoppingListId"`
	Name           string  `json:"name"`
	Quantity       int     `json:"quantity"`
	Purchased      bool    `json:"purchased"`
	Category       *string `json:"category"`
	CategoryID     *int64  `json:"categoryId"`
	Notes          *string `json:"notes"`
	CreatedAt      string  `json:"createdAt"`
	UpdatedAt      string  `json:"updatedAt"`
}

// ShoppingCategory groups items within a shopping list.
type ShoppingCategory struct {
	ID        int64  `json:"id"`
	ListID    int64  `json:"listId"`
	Name      string `json:"name"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// CalendarEvent mirrors /events/households/{id}/events entries.
type CalendarEvent struct {
	ID          int64  `json:"id"`
	HouseholdID int64  `json:"householdId"`
	Title       string `json:"title"`
	StartUTC    string `json:"startUtc"`
	EndUTC      string `json:"endUtc"`
	TZID        string `json:"tzid"`
	CreatedAt   string `json:"createdAt"`
}

// Start returns the parsed start instant.
func (e CalendarEvent) Start() time.Time {
	return parseTime(e.StartUTC)
}

// End returns the parsed end instant.
func (e CalendarEvent) End() time.Time {
	return parseTime(e.EndUTC)
}

// Announcement is a message posted to the household board.
type Announcement struct {
	ID          int64   `json:"id"`
	UserID      int64   `json:"userId"`
	HouseholdID int64   `json:"householdId"`
	Text        string  `json:"text"`
	IsPinned    bool    `json:"isPinned"`
	CreatedAt   *string `json:"createdAt"`
	UpdatedAt   *string `json:"updatedAt"`
	PublishedAt *string `json:"publishedAt"`
	ExpiresAt   *string `json:"expiresAt"`
}

// MoodKey names one of the moods a member can set.
type MoodKey string

// Moods lists every accepted MoodKey in display order.
var Moods = []MoodKey{
	"happy", "content", "neutral", "tired", "stressed", "sick", "busy", "bored",
	"accomplished", "proud", "excited", "productive", "overwhelmed", "motivated",
	"cozy", "inspired",
}

// Valid reports whether k is one of Moods.
func (k MoodKey) Valid() bool {
	for _, m := range Moods {
		if m == k {
			return true
		}
	}
	return false
}

// Mood is the caller's current mood. A nil Mood means none is set.
type Mood struct {
	UserID int64    `json:"userId"`
	Mood   *MoodKey `json:"mood"`
}

// Checkins lists the local dates a user checked in within [From, To].
type Checkins struct {
	UserID int64    `json:"userId"`
	From   string   `json:"from"`
	To     string   `json:"to"`
	Dates  []string `json:"dates"`
}

// CheckInToday is the response of a daily check-in.
type CheckInToday struct {
	CheckedInToday bool   `json:"checkedInToday"`
	LocalDate      string `json:"localDate"`
}

// Message is the generic {"message": ...} acknowledgement body.
type Message struct {
	Message string `json:"message"`
}

// HabitFrequency is how often a habit is meant to be kept.
type HabitFrequency string

const (
	FrequencyDaily  HabitFrequency = "daily"
	FrequencyWeekly HabitFrequency = "weekly"
)

// Valid reports whether f is a frequency the backend accepts.
func (f HabitFrequency) Valid() bool {
	return f == FrequencyDaily || f == FrequencyWeekly
}

// Habit is a recurring personal goal.
type Habit struct {
	ID        int64          `json:"id"`
	UserID    int64          `json:"userId"`
	Name      string         `json:"habitName"`
	Frequency HabitFrequency `json:"frequency"`
	CreatedAt string         `json:"createdAt"`
}

// HabitLog records one day a habit was kept or skipped.
type HabitLog struct {
	ID        int64  `json:"id"`
	HabitID   int64  `json:"habitId"`
	UserID    int64  `json:"userId"`
	Completed bool   `json:"completed"`
	Date      string `json:"date"`
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	if t, err := time.ParseInLocation(backendTimestampLayout, value, time.UTC); err == nil {
		return t
	}
	return time.Time{}
}
