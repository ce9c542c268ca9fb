package household

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	dateLayout      = "2006-01-02"
	wallClockLayout = "2006-01-02T15:04"
)

// ErrInvalidInput is returned when a creation payload fails local validation
// and no request is sent.
var ErrInvalidInput = errors.New("invalid input")

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// ListOwner decides who a new todo list belongs to. It is one of
// OwnedByUser, SharedWithHousehold or SharedWithMembers.
type ListOwner interface {
	isListOwner()
}

// OwnedByUser is a private list.
type OwnedByUser struct {
	UserID int64
}

// SharedWithHousehold is visible to every household member.
type SharedWithHousehold struct {
	HouseholdID int64
}

// SharedWithMembers is visible to a subset of household members.
type SharedWithMembers struct {
	HouseholdID int64
	MemberIDs   []int64
}

func (OwnedByUser) isListOwner()         {}
func (SharedWithHousehold) isListOwner() {}
func (SharedWithMembers) isListOwner()   {}

// NewTodoList describes a list to create.
type NewTodoList struct {
	Title string
	Owner ListOwner
}

// Request builds the creation request for the owner variant.
func (n NewTodoList) Request() (Request, error) {
	title := strings.TrimSpace(n.Title)
	if title == "" {
		return Request{}, invalidf("title is required")
	}
	switch owner := n.Owner.(type) {
	case OwnedByUser:
		return Request{
			Method: http.MethodPost,
			Path:   "/todo_lists",
			Body:   map[string]any{"title": title, "user_id": owner.UserID},
		}, nil
	case SharedWithHousehold:
		return Request{
			Method: http.MethodPost,
			Path:   fmt.Sprintf("/households/%d/todo_lists", owner.HouseholdID),
			Body:   map[string]any{"title": title, "allMembers": true},
		}, nil
	case SharedWithMembers:
		if len(owner.MemberIDs) == 0 {
			return Request{}, invalidf("memberIds required when not shared with all members")
		}
		return Request{
			Method: http.MethodPost,
			Path:   fmt.Sprintf("/households/%d/todo_lists", owner.HouseholdID),
			Body:   map[string]any{"title": title, "allMembers": false, "memberIds": owner.MemberIDs},
		}, nil
	case nil:
		return Request{}, invalidf("list owner is required")
	default:
		return Request{}, invalidf("unsupported list owner %T", owner)
	}
}

// EventTiming is one of TimedEvent, DateOnlyEvent or FloatingEvent.
type EventTiming interface {
	isEventTiming()
}

// TimedEvent is anchored to absolute instants.
type TimedEvent struct {
	Start time.Time
	End   time.Time
}

// DateOnlyEvent spans a whole local day.
type DateOnlyEvent struct {
	Date string // YYYY-MM-DD
}

// FloatingEvent keeps its wall-clock times regardless of the viewer's zone.
// The location of Start and End is ignored.
type FloatingEvent struct {
	Start time.Time
	End   time.Time
}

func (TimedEvent) isEventTiming()    {}
func (DateOnlyEvent) isEventTiming() {}
func (FloatingEvent) isEventTiming() {}

// NewEvent describes a calendar event to create.
type NewEvent struct {
	HouseholdID int64
	Title       string
	TZID        string
	Timing      EventTiming
}

// Request builds the creation request for the timing variant.
func (n NewEvent) Request() (Request, error) {
	title := strings.TrimSpace(n.Title)
	if title == "" {
		return Request{}, invalidf("title is required")
	}
	tzid := strings.TrimSpace(n.TZID)
	if tzid == "" {
		tzid = "UTC"
	}
	body := map[string]any{"title": title, "tzid": tzid}

	switch timing := n.Timing.(type) {
	case TimedEvent:
		if !timing.End.After(timing.Start) {
			return Request{}, invalidf("end must be after start")
		}
		body["startUtc"] = timing.Start.UTC().Format(time.RFC3339)
		body["endUtc"] = timing.End.UTC().Format(time.RFC3339)
	case DateOnlyEvent:
		if _, err := time.Parse(dateLayout, timing.Date); err != nil {
			return Request{}, invalidf("date %q is not YYYY-MM-DD", timing.Date)
		}
		body["date"] = timing.Date
	case FloatingEvent:
		start := wallClock(timing.Start)
		end := wallClock(timing.End)
		if !end.After(start) {
			return Request{}, invalidf("end must be after start")
		}
		body["startLocal"] = start.Format(wallClockLayout)
		body["endLocal"] = end.Format(wallClockLayout)
		delete(body, "tzid")
	case nil:
		return Request{}, invalidf("event timing is required")
	default:
		return Request{}, invalidf("unsupported event timing %T", timing)
	}

	return Request{
		Method: http.MethodPost,
		Path:   fmt.Sprintf("/events/households/%d/events", n.HouseholdID),
		Body:   body,
	}, nil
}

// wallClock drops the zone, keeping the displayed date and time.
func wallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC)
}
