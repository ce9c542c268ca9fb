package mutations

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Risclover/toby/internal/endpoints"
	"github.com/Risclover/toby/internal/fakeapi"
	"github.com/Risclover/toby/internal/household"
	"github.com/Risclover/toby/internal/mutation"
	"github.com/Risclover/toby/internal/querycache"
)

type harness struct {
	api   *fakeapi.Server
	exec  *household.Client
	store *querycache.Store
	svc   *Service
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	api := fakeapi.New()
	ts := httptest.NewServer(api)
	t.Cleanup(ts.Close)

	exec, err := household.NewClient(ts.URL + fakeapi.Prefix)
	require.NoError(t, err)
	store := querycache.New(querycache.Options{})
	t.Cleanup(store.Close)

	now := time.Date(2025, 5, 2, 10, 0, 0, 0, time.UTC)
	svc := New(exec, mutation.New(store), WithClock(func() time.Time { return now }))
	return &harness{api: api, exec: exec, store: store, svc: svc}
}

func load[T any](t *testing.T, h *harness, q endpoints.Query[T]) T {
	t.Helper()
	v, err := endpoints.Fetch(context.Background(), h.store, h.exec, q)
	require.NoError(t, err)
	return v
}

func peek[T any](t *testing.T, h *harness, q endpoints.Query[T]) T {
	t.Helper()
	v, ok := endpoints.Peek(h.store, q)
	require.True(t, ok, "%s not cached", q.Name)
	return v
}

func loadTodoViews(t *testing.T, h *harness) {
	t.Helper()
	load(t, h, endpoints.GetTodoList(fakeapi.SeedChoresListID))
	load(t, h, endpoints.GetHouseholdTodoLists(fakeapi.SeedHouseholdID))
	load(t, h, endpoints.GetTodo(12))
}

func todoIDs(todos []household.Todo) []int64 {
	out := make([]int64, len(todos))
	for i, td := range todos {
		out[i] = td.ID
	}
	return out
}

func TestCompleteTodo_FailureRevertsEveryView(t *testing.T) {
	h := newHarness(t)
	loadTodoViews(t, h)
	before := peek(t, h, endpoints.GetHouseholdTodoLists(fakeapi.SeedHouseholdID))

	h.api.FailNext(http.MethodPut, "/todos/12/completed", http.StatusInternalServerError)
	release := h.api.Hold("/todos/12/completed")

	errc := make(chan error, 1)
	go func() {
		_, err := h.svc.CompleteTodo(context.Background(), TodoRef{TodoID: 12, ListID: fakeapi.SeedChoresListID}, true)
		errc <- err
	}()

	require.Eventually(t, func() bool {
		todo, ok := endpoints.Peek(h.store, endpoints.GetTodo(12))
		return ok && todo.Completed()
	}, 2*time.Second, 5*time.Millisecond, "optimistic check visible before the server answers")
	lists := peek(t, h, endpoints.GetHouseholdTodoLists(fakeapi.SeedHouseholdID))
	assert.True(t, lists[0].FindTodo(12).Completed())

	release()
	err := <-errc
	require.Error(t, err)
	assert.True(t, errors.Is(err, household.ErrServer))

	assert.False(t, peek(t, h, endpoints.GetTodo(12)).Completed())
	choresList := peek(t, h, endpoints.GetTodoList(fakeapi.SeedChoresListID))
	assert.False(t, choresList.FindTodo(12).Completed())
	assert.Equal(t, before, peek(t, h, endpoints.GetHouseholdTodoLists(fakeapi.SeedHouseholdID)))

	snap, _ := h.store.Peek(endpoints.GetTodo(12).Key())
	assert.False(t, snap.Stale, "failed mutations invalidate nothing")
}

func TestReorderTodos_BothViewsAndServer(t *testing.T) {
	h := newHarness(t)
	loadTodoViews(t, h)

	err := h.svc.ReorderTodos(context.Background(), fakeapi.SeedChoresListID, 0, []int64{12, 10, 11})
	require.NoError(t, err)

	detail := peek(t, h, endpoints.GetTodoList(fakeapi.SeedChoresListID))
	assert.Equal(t, []int64{12, 10, 11}, todoIDs(detail.Todos))
	assert.Equal(t, 0, detail.Todos[0].SortIndex)
	lists := peek(t, h, endpoints.GetHouseholdTodoLists(fakeapi.SeedHouseholdID))
	assert.Equal(t, []int64{12, 10, 11}, todoIDs(lists[0].Todos))

	server, _ := h.api.TodoList(fakeapi.SeedChoresListID)
	assert.Equal(t, []int64{12, 10, 11}, todoIDs(server.Todos))

	snap, _ := h.store.Peek(endpoints.GetTodoList(fakeapi.SeedChoresListID).Key())
	assert.False(t, snap.Stale)
	assert.Equal(t, 0, snap.Pending)
}

func TestReorderTodos_FailureRestoresOrder(t *testing.T) {
	h := newHarness(t)
	loadTodoViews(t, h)
	detail := peek(t, h, endpoints.GetTodoList(fakeapi.SeedChoresListID))
	lists := peek(t, h, endpoints.GetHouseholdTodoLists(fakeapi.SeedHouseholdID))

	h.api.FailNext(http.MethodPatch, "/todo_lists/1/reorder", http.StatusBadGateway)
	err := h.svc.ReorderTodos(context.Background(), fakeapi.SeedChoresListID, 0, []int64{12, 10, 11})
	require.Error(t, err)

	assert.Equal(t, detail, peek(t, h, endpoints.GetTodoList(fakeapi.SeedChoresListID)))
	assert.Equal(t, lists, peek(t, h, endpoints.GetHouseholdTodoLists(fakeapi.SeedHouseholdID)))
}

func TestUpdateTodo_ConvergesAndRefetchAgrees(t *testing.T) {
	h := newHarness(t)
	loadTodoViews(t, h)

	_, err := h.svc.UpdateTodo(context.Background(), TodoRef{TodoID: 12, ListID: fakeapi.SeedChoresListID},
		household.TodoPatch{Title: household.Set("Fold laundry"), Notes: household.Set("whites")})
	require.NoError(t, err)

	single := peek(t, h, endpoints.GetTodo(12))
	detailList := peek(t, h, endpoints.GetTodoList(fakeapi.SeedChoresListID))
	inDetail := detailList.FindTodo(12)
	inLists := peek(t, h, endpoints.GetHouseholdTodoLists(fakeapi.SeedHouseholdID))[0].FindTodo(12)
	for _, td := range []household.Todo{single, *inDetail, *inLists} {
		assert.Equal(t, "Fold laundry", td.Title)
		require.NotNil(t, td.Notes)
		assert.Equal(t, "whites", *td.Notes)
		assert.Equal(t, household.StatusPending, td.Status)
	}

	for _, key := range []querycache.Key{
		endpoints.GetTodo(12).Key(),
		endpoints.GetTodoList(fakeapi.SeedChoresListID).Key(),
		endpoints.GetHouseholdTodoLists(fakeapi.SeedHouseholdID).Key(),
	} {
		snap, _ := h.store.Peek(key)
		assert.True(t, snap.Stale, "%s invalidated", key)
	}

	refetched := load(t, h, endpoints.GetTodoList(fakeapi.SeedChoresListID))
	assert.Equal(t, "Fold laundry", refetched.FindTodo(12).Title)
}

func TestUpdateTodo_LocalValidationSendsNothing(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.UpdateTodo(context.Background(), TodoRef{TodoID: 12, ListID: 1}, household.TodoPatch{})
	assert.ErrorIs(t, err, household.ErrInvalidInput)
	_, err = h.svc.UpdateTodo(context.Background(), TodoRef{TodoID: 12, ListID: 1}, household.TodoPatch{Title: household.Set("  ")})
	assert.ErrorIs(t, err, household.ErrInvalidInput)
	assert.Equal(t, 0, h.api.Count(http.MethodPatch, "/todos/12"))
}

func TestUnsavedIDs_AreRejectedBeforeSending(t *testing.T) {
	h := newHarness(t)
	loadTodoViews(t, h)
	lists := endpoints.GetHouseholdTodoLists(fakeapi.SeedHouseholdID)

	err := h.svc.DeleteList(context.Background(), 0)
	assert.ErrorIs(t, err, household.ErrInvalidInput)
	assert.Equal(t, 0, h.api.Count(http.MethodDelete, "/todo_lists/0"))

	_, err = h.svc.CompleteTodo(context.Background(), TodoRef{TodoID: -1, ListID: fakeapi.SeedChoresListID}, true)
	assert.ErrorIs(t, err, household.ErrInvalidInput)
	assert.ErrorIs(t, h.svc.DeleteShoppingList(context.Background(), 0), household.ErrInvalidInput)
	assert.ErrorIs(t, h.svc.ToggleShoppingItem(context.Background(), ItemRef{ItemID: 40}), household.ErrInvalidInput)

	// No TodoList entry was invalidated as a side effect.
	for _, key := range []querycache.Key{lists.Key(), endpoints.GetTodoList(fakeapi.SeedChoresListID).Key()} {
		snap, ok := h.store.Peek(key)
		require.True(t, ok)
		assert.False(t, snap.Stale, key.String())
	}
	assert.Equal(t, 0, h.api.Count(http.MethodPut, "/todos/-1/completed"))
}

func TestServerValidationFailure_IsUserFacing(t *testing.T) {
	h := newHarness(t)
	load(t, h, endpoints.GetMyMood())

	h.api.FailNext(http.MethodPut, "/moods/me", http.StatusBadRequest)
	_, err := h.svc.SetMyMood(context.Background(), "happy")
	require.Error(t, err)
	assert.ErrorIs(t, err, household.ErrValidation)
	assert.Equal(t, "injected failure", household.UserMessage(err))
	assert.Nil(t, peek(t, h, endpoints.GetMyMood()).Mood)
}

func TestSubscribedViewRefetchesAfterCommit(t *testing.T) {
	h := newHarness(t)
	q := endpoints.GetHouseholdTodoLists(fakeapi.SeedHouseholdID)
	sub := h.store.Subscribe(q.Def(h.exec), nil)
	defer sub.Unsubscribe()
	require.Eventually(t, func() bool {
		snap, _ := h.store.Peek(q.Key())
		return snap.Status == querycache.StatusSuccess
	}, 2*time.Second, 5*time.Millisecond)

	_, err := h.svc.AddTodo(context.Background(), NewTodo{ListID: fakeapi.SeedChoresListID, Title: "Mop"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		lists, ok := endpoints.Peek(h.store, q)
		return ok && len(lists[0].Todos) == 4
	}, 2*time.Second, 5*time.Millisecond)
}

func TestAddShoppingItem_TempRowThenServerRow(t *testing.T) {
	h := newHarness(t)
	items := endpoints.GetShoppingItems(fakeapi.SeedShoppingListID)
	load(t, h, items)

	release := h.api.Hold("/shopping_lists/4/items")
	done := make(chan household.ShoppingItem, 1)
	go func() {
		it, err := h.svc.AddShoppingItem(context.Background(), NewShoppingItem{ListID: fakeapi.SeedShoppingListID, Name: "Eggs"})
		assert.NoError(t, err)
		done <- it
	}()

	require.Eventually(t, func() bool {
		rows, ok := endpoints.Peek(h.store, items)
		return ok && len(rows) == 3 && rows[2].ID < 0
	}, 2*time.Second, 5*time.Millisecond)

	release()
	created := <-done
	rows := peek(t, h, items)
	require.Len(t, rows, 3)
	assert.Equal(t, created.ID, rows[2].ID)
	assert.Equal(t, 1, rows[2].Quantity)
}

func TestToggleShoppingItem_FailureReverts(t *testing.T) {
	h := newHarness(t)
	items := endpoints.GetShoppingItems(fakeapi.SeedShoppingListID)
	load(t, h, items)

	h.api.FailNext(http.MethodPut, "/shopping_items/40/toggle", http.StatusInternalServerError)
	err := h.svc.ToggleShoppingItem(context.Background(), ItemRef{ItemID: 40, ListID: fakeapi.SeedShoppingListID})
	require.Error(t, err)
	assert.False(t, peek(t, h, items)[0].Purchased)

	require.NoError(t, h.svc.ToggleShoppingItem(context.Background(), ItemRef{ItemID: 40, ListID: fakeapi.SeedShoppingListID}))
	assert.True(t, peek(t, h, items)[0].Purchased)
	assert.True(t, h.api.Items(fakeapi.SeedShoppingListID)[0].Purchased)
}

func TestUpdateShoppingItem_OneRequestPerField(t *testing.T) {
	h := newHarness(t)
	items := endpoints.GetShoppingItems(fakeapi.SeedShoppingListID)
	load(t, h, items)

	err := h.svc.UpdateShoppingItem(context.Background(), ItemRef{ItemID: 41, ListID: fakeapi.SeedShoppingListID},
		household.ShoppingItemPatch{Name: household.Set("Rye bread"), Quantity: household.Set(2), Category: household.Set("Pantry")})
	require.NoError(t, err)

	assert.Equal(t, 1, h.api.Count(http.MethodPut, "/shopping_items/41/name"))
	assert.Equal(t, 1, h.api.Count(http.MethodPut, "/shopping_items/41/quantity"))
	assert.Equal(t, 1, h.api.Count(http.MethodPut, "/shopping_items/41/category"))
	assert.Equal(t, 0, h.api.Count(http.MethodPut, "/shopping_items/41/notes"))

	row := peek(t, h, items)[1]
	assert.Equal(t, "Rye bread", row.Name)
	assert.Equal(t, 2, row.Quantity)
	require.NotNil(t, row.CategoryID)
	assert.NotEqual(t, int64(2), *row.CategoryID, "category id reconciled from the server response")
}

func TestCreateShoppingCategory_Reconciled(t *testing.T) {
	h := newHarness(t)
	cats := endpoints.GetShoppingListCategories(fakeapi.SeedShoppingListID)
	load(t, h, cats)

	created, err := h.svc.CreateShoppingCategory(context.Background(), fakeapi.SeedShoppingListID, "Frozen")
	require.NoError(t, err)
	rows := peek(t, h, cats)
	require.Len(t, rows, 3)
	assert.Equal(t, created.ID, rows[2].ID)
	assert.Positive(t, rows[2].ID)
}

func TestCreateEvent_InvalidVariantSendsNothing(t *testing.T) {
	h := newHarness(t)
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	_, err := h.svc.CreateEvent(context.Background(), household.NewEvent{
		HouseholdID: fakeapi.SeedHouseholdID,
		Title:       "Picnic",
		Timing:      household.TimedEvent{Start: start, End: start},
	})
	assert.ErrorIs(t, err, household.ErrInvalidInput)
	assert.Equal(t, 0, h.api.Count(http.MethodPost, "/events/households/7/events"))

	ev, err := h.svc.CreateEvent(context.Background(), household.NewEvent{
		HouseholdID: fakeapi.SeedHouseholdID,
		Title:       "Picnic",
		Timing:      household.TimedEvent{Start: start, End: start.Add(2 * time.Hour)},
	})
	require.NoError(t, err)
	assert.Equal(t, "2025-06-01T10:00:00Z", ev.StartUTC)
}

func TestDeleteAnnouncement_OptimisticRemoval(t *testing.T) {
	h := newHarness(t)
	q := endpoints.GetAnnouncements(fakeapi.SeedHouseholdID)
	load(t, h, q)

	require.NoError(t, h.svc.DeleteAnnouncement(context.Background(), fakeapi.SeedHouseholdID, 70))
	rows := peek(t, h, q)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(71), rows[0].ID)
}

func TestCheckInToday_InvalidatesUserCheckins(t *testing.T) {
	h := newHarness(t)
	q := endpoints.GetUserCheckins(endpoints.CheckinRange{UserID: fakeapi.SeedUserID})
	assert.Empty(t, load(t, h, q).Dates)

	res, err := h.svc.CheckInToday(context.Background(), fakeapi.SeedUserID)
	require.NoError(t, err)
	assert.True(t, res.CheckedInToday)

	snap, _ := h.store.Peek(q.Key())
	assert.True(t, snap.Stale)
	assert.Len(t, load(t, h, q).Dates, 1)
}
