package state

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Risclover/toby/internal/endpoints"
	"github.com/Risclover/toby/internal/fakeapi"
	"github.com/Risclover/toby/internal/household"
	"github.com/Risclover/toby/internal/querycache"
)

var _ querycache.Observer = (*HealthTracker)(nil)

func TestHealthTracker_ConsecutiveFailures(t *testing.T) {
	h := NewHealthTracker(nil)

	if snap := h.Snapshot(); snap.ConsecutiveFailures != 0 || snap.IsOffline() {
		t.Fatalf("initial health = %+v, want zero", snap)
	}

	h.Fetched("getTodo", errors.New("fail 1"))
	if snap := h.Snapshot(); snap.ConsecutiveFailures != 1 || snap.IsOffline() {
		t.Fatalf("after one failure = %+v, want 1 and online", snap)
	}

	h.Fetched("getTodo", errors.New("fail 2"))
	snap := h.Snapshot()
	if !snap.IsOffline() {
		t.Fatal("IsOffline() = false, want true with 2 failures")
	}
	if snap.LastError == nil || snap.LastError.Error() != "fail 2" {
		t.Fatalf("LastError = %v, want fail 2", snap.LastError)
	}

	h.Fetched("getTodo", context.Canceled)
	if got := h.Snapshot().ConsecutiveFailures; got != 2 {
		t.Fatalf("cancellation counted: failures = %d, want 2", got)
	}

	h.Fetched("getTodo", nil)
	snap = h.Snapshot()
	if snap.ConsecutiveFailures != 0 || snap.LastError != nil || snap.IsOffline() {
		t.Fatalf("after success = %+v, want reset", snap)
	}
}

func TestHealthTracker_SnapshotWrapsError(t *testing.T) {
	h := NewHealthTracker(nil)
	orig := errors.New("boom")
	h.Update(orig)
	snap := h.Snapshot()
	if !errors.Is(snap.LastError, orig) {
		t.Fatalf("LastError = %v, want it to wrap boom", snap.LastError)
	}
	if snap.LastError == orig {
		t.Fatal("Snapshot should not hand out the stored error instance")
	}
}

type bindingHarness struct {
	api     *fakeapi.Server
	store   *querycache.Store
	health  *HealthTracker
	binding *Binding
	cancel  context.CancelFunc
}

func newBindingHarness(t *testing.T) *bindingHarness {
	t.Helper()
	api := fakeapi.New()
	ts := httptest.NewServer(api)
	t.Cleanup(ts.Close)

	exec, err := household.NewClient(ts.URL + fakeapi.Prefix)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	health := NewHealthTracker(nil)
	store := querycache.New(querycache.Options{Observer: health})
	t.Cleanup(store.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	b := NewBinding(store, exec, fakeapi.SeedHouseholdID, WithHealth(health))
	b.Start(ctx)
	return &bindingHarness{api: api, store: store, health: health, binding: b, cancel: cancel}
}

func waitFor(t *testing.T, b *Binding, what string, ok func(Board) bool) Board {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if board := b.Snapshot(); ok(board) {
			return board
		}
		select {
		case <-b.Changes():
		case <-time.After(20 * time.Millisecond):
		case <-deadline:
			t.Fatalf("timed out waiting for %s; board = %+v", what, b.Snapshot())
		}
	}
}

func TestBinding_LoadsBoard(t *testing.T) {
	h := newBindingHarness(t)

	board := waitFor(t, h.binding, "board loaded", func(b Board) bool {
		return b.HasHousehold && len(b.TodoLists) == 2 && len(b.ShoppingLists) == 1 &&
			len(b.Announcements) == 2 && b.Mood.UserID != 0
	})
	if board.Household.Name != "Maple Street" {
		t.Fatalf("household = %q, want Maple Street", board.Household.Name)
	}
	if board.Mood.UserID != endpoints.NoMoodUserID {
		t.Fatalf("mood user = %d, want placeholder %d", board.Mood.UserID, endpoints.NoMoodUserID)
	}
	if board.Loading {
		t.Fatal("Loading = true after every entry resolved")
	}
	if board.IsOffline() {
		t.Fatal("IsOffline() = true with a healthy backend")
	}
	if len(board.Items) != 0 {
		t.Fatalf("Items = %d before a shopping list is selected", len(board.Items))
	}
}

func TestBinding_SelectShoppingList(t *testing.T) {
	h := newBindingHarness(t)

	h.binding.SelectShoppingList(fakeapi.SeedShoppingListID)
	board := waitFor(t, h.binding, "items loaded", func(b Board) bool { return len(b.Items) == 2 })
	if board.ShoppingListID != fakeapi.SeedShoppingListID {
		t.Fatalf("ShoppingListID = %d", board.ShoppingListID)
	}
	key := endpoints.GetShoppingItems(fakeapi.SeedShoppingListID).Key()
	if snap, _ := h.store.Peek(key); snap.Subscribers != 1 {
		t.Fatalf("Subscribers = %d, want 1", snap.Subscribers)
	}

	h.binding.SelectShoppingList(0)
	waitFor(t, h.binding, "items cleared", func(b Board) bool { return len(b.Items) == 0 })
	if snap, _ := h.store.Peek(key); snap.Subscribers != 0 {
		t.Fatalf("Subscribers = %d after deselect, want 0", snap.Subscribers)
	}
}

func TestBinding_ShowsOptimisticPatchAndRollback(t *testing.T) {
	h := newBindingHarness(t)
	waitFor(t, h.binding, "lists", func(b Board) bool { return len(b.TodoLists) == 2 })

	key := endpoints.GetHouseholdTodoLists(fakeapi.SeedHouseholdID).Key()
	set := h.store.ApplyPatches(querycache.PatchOf[[]household.TodoList](key, func(lists *[]household.TodoList) {
		(*lists)[0].Title = "Renamed"
	}))

	board := waitFor(t, h.binding, "patched title", func(b Board) bool {
		return len(b.TodoLists) > 0 && b.TodoLists[0].Title == "Renamed"
	})
	if board.Pending != 1 {
		t.Fatalf("Pending = %d, want 1", board.Pending)
	}

	set.Rollback()
	waitFor(t, h.binding, "restored title", func(b Board) bool {
		return len(b.TodoLists) > 0 && b.TodoLists[0].Title == "Chores" && b.Pending == 0
	})
}

func TestBinding_InvalidationRefetches(t *testing.T) {
	h := newBindingHarness(t)
	waitFor(t, h.binding, "announcements", func(b Board) bool { return len(b.Announcements) == 2 })
	before := h.api.Count("GET", "/announcements")

	h.store.Invalidate(querycache.ListTag(endpoints.TagAnnouncement))
	waitFor(t, h.binding, "refetch", func(Board) bool {
		return h.api.Count("GET", "/announcements") > before
	})
}

func TestBinding_FailedRefetchKeepsDataAndCountsFailures(t *testing.T) {
	h := newBindingHarness(t)
	waitFor(t, h.binding, "board loaded", func(b Board) bool {
		return b.HasHousehold && len(b.TodoLists) == 2 && len(b.ShoppingLists) == 1 &&
			len(b.Announcements) == 2 && b.Mood.UserID != 0 && !b.Loading
	})

	path := "/households/7/todo_lists"
	tag := querycache.HouseholdTag(endpoints.TagTodoList, fakeapi.SeedHouseholdID)
	for i := 0; i < 2; i++ {
		h.api.FailNext("GET", path, 503)
		before := h.api.Count("GET", path)
		h.store.Invalidate(tag)
		waitFor(t, h.binding, "failed refetch", func(b Board) bool {
			return h.api.Count("GET", path) > before && b.ConsecutiveFailures >= i+1
		})
	}

	board := h.binding.Snapshot()
	if !board.IsOffline() {
		t.Fatalf("IsOffline() = false after two failures; health = %+v", board.Health)
	}
	if len(board.TodoLists) != 2 {
		t.Fatalf("TodoLists = %d, want previous data kept", len(board.TodoLists))
	}
}
