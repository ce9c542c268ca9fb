package household

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"
)

func strp(s string) *string { return &s }

func TestTodoPatch_ApplyToMergesOnlyProvidedFields(t *testing.T) {
	todo := Todo{ID: 1, Title: "a", Notes: strp("b"), DueDate: strp("2025-01-01")}

	TodoPatch{Title: Set("x")}.ApplyTo(&todo)
	if todo.Title != "x" {
		t.Fatalf("Title = %q, want x", todo.Title)
	}
	if todo.Notes == nil || *todo.Notes != "b" {
		t.Fatalf("Notes = %v, want unchanged b", todo.Notes)
	}

	TodoPatch{DueDate: Null[string]()}.ApplyTo(&todo)
	if todo.DueDate != nil {
		t.Fatalf("DueDate = %v, want cleared", *todo.DueDate)
	}
	if todo.Title != "x" || todo.Notes == nil {
		t.Fatalf("unrelated fields changed: %#v", todo)
	}
}

func TestTodoPatch_JSONRoundTripKeepsNullsAndOmissions(t *testing.T) {
	patch := TodoPatch{Title: Set("x"), AssignedToID: Null[int64]()}
	raw, err := json.Marshal(patch)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var wire map[string]any
	if err := json.Unmarshal(raw, &wire); err != nil {
		t.Fatalf("Unmarshal wire: %v", err)
	}
	if len(wire) != 2 {
		t.Fatalf("wire = %v, want title and assignedToId only", wire)
	}
	if v, ok := wire["assignedToId"]; !ok || v != nil {
		t.Fatalf("assignedToId = %v (present %v), want explicit null", v, ok)
	}

	var decoded TodoPatch
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("Unmarshal patch: %v", err)
	}
	if v, ok := decoded.Title.Value(); !ok || v != "x" {
		t.Fatalf("Title = %q/%v", v, ok)
	}
	if !decoded.AssignedToID.IsNull() {
		t.Fatalf("AssignedToID should be null")
	}
	if decoded.Notes.IsSet() {
		t.Fatalf("Notes should be unset")
	}
}

func TestShoppingItemPatch_ApplyTo(t *testing.T) {
	item := ShoppingItem{ID: 3, Name: "eggs", Quantity: 1, Category: strp("dairy")}
	ShoppingItemPatch{Quantity: Set(12), Category: Null[string]()}.ApplyTo(&item)
	if item.Quantity != 12 || item.Category != nil || item.Name != "eggs" {
		t.Fatalf("item = %#v", item)
	}
}

func TestNewTodoList_RequestPerOwnerVariant(t *testing.T) {
	tests := []struct {
		name     string
		owner    ListOwner
		wantPath string
		wantKeys []string
	}{
		{"user", OwnedByUser{UserID: 4}, "/todo_lists", []string{"title", "user_id"}},
		{"household", SharedWithHousehold{HouseholdID: 7}, "/households/7/todo_lists", []string{"title", "allMembers"}},
		{"members", SharedWithMembers{HouseholdID: 7, MemberIDs: []int64{1, 2}}, "/households/7/todo_lists", []string{"title", "allMembers", "memberIds"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := NewTodoList{Title: " Chores ", Owner: tt.owner}.Request()
			if err != nil {
				t.Fatalf("Request returned error: %v", err)
			}
			if req.Method != http.MethodPost || req.Path != tt.wantPath {
				t.Fatalf("request = %s", req)
			}
			body := req.Body.(map[string]any)
			if len(body) != len(tt.wantKeys) {
				t.Fatalf("body = %v, want keys %v", body, tt.wantKeys)
			}
			for _, k := range tt.wantKeys {
				if _, ok := body[k]; !ok {
					t.Fatalf("body missing %q: %v", k, body)
				}
			}
			if body["title"] != "Chores" {
				t.Fatalf("title = %v, want trimmed", body["title"])
			}
		})
	}

	if _, err := (NewTodoList{Title: "x", Owner: SharedWithMembers{HouseholdID: 1}}).Request(); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("empty members error = %v, want invalid input", err)
	}
	if _, err := (NewTodoList{Title: "x"}).Request(); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("nil owner error = %v, want invalid input", err)
	}
}

func TestNewEvent_RequestPerTimingVariant(t *testing.T) {
	loc := time.FixedZone("X", 2*3600)
	start := time.Date(2025, 3, 4, 10, 0, 0, 0, loc)
	end := start.Add(time.Hour)

	req, err := NewEvent{HouseholdID: 7, Title: "Dentist", TZID: "Europe/Berlin", Timing: TimedEvent{Start: start, End: end}}.Request()
	if err != nil {
		t.Fatalf("timed: %v", err)
	}
	body := req.Body.(map[string]any)
	if body["startUtc"] != "2025-03-04T08:00:00Z" || body["endUtc"] != "2025-03-04T09:00:00Z" {
		t.Fatalf("timed body = %v", body)
	}
	if req.Path != "/events/households/7/events" {
		t.Fatalf("path = %q", req.Path)
	}

	req, err = NewEvent{HouseholdID: 7, Title: "Trash", Timing: DateOnlyEvent{Date: "2025-03-04"}}.Request()
	if err != nil {
		t.Fatalf("date-only: %v", err)
	}
	body = req.Body.(map[string]any)
	if body["date"] != "2025-03-04" || body["tzid"] != "UTC" {
		t.Fatalf("date-only body = %v", body)
	}
	if _, ok := body["startUtc"]; ok {
		t.Fatalf("date-only body carries startUtc: %v", body)
	}

	req, err = NewEvent{HouseholdID: 7, Title: "Standup", Timing: FloatingEvent{Start: start, End: end}}.Request()
	if err != nil {
		t.Fatalf("floating: %v", err)
	}
	body = req.Body.(map[string]any)
	if body["startLocal"] != "2025-03-04T10:00" || body["endLocal"] != "2025-03-04T11:00" {
		t.Fatalf("floating body = %v", body)
	}
	if _, ok := body["tzid"]; ok {
		t.Fatalf("floating body carries tzid: %v", body)
	}

	bad := []NewEvent{
		{Title: "", Timing: DateOnlyEvent{Date: "2025-03-04"}},
		{Title: "x", Timing: DateOnlyEvent{Date: "03/04/2025"}},
		{Title: "x", Timing: TimedEvent{Start: end, End: start}},
		{Title: "x"},
	}
	for i, ev := range bad {
		if _, err := ev.Request(); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("bad[%d] error = %v, want invalid input", i, err)
		}
	}
}
