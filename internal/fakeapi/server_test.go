package fakeapi

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Risclover/toby/internal/household"
)

func newServer(t *testing.T, opts ...Option) (*Server, *httptest.Server) {
	t.Helper()
	s := New(opts...)
	ts := httptest.NewServer(s)
	t.Cleanup(ts.Close)
	return s, ts
}

func do(t *testing.T, ts *httptest.Server, method, path string, body any) (int, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, ts.URL+Prefix+path, rd)
	require.NoError(t, err)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

func TestSeededHouseholdLists(t *testing.T) {
	_, ts := newServer(t)
	status, raw := do(t, ts, http.MethodGet, "/households/7/todo_lists", nil)
	require.Equal(t, http.StatusOK, status)

	var lists []household.TodoList
	require.NoError(t, json.Unmarshal(raw, &lists))
	require.Len(t, lists, 2)
	assert.Equal(t, "Chores", lists[0].Title)
	assert.Len(t, lists[0].Todos, 3)
}

func TestReorder_NoContentAndValidation(t *testing.T) {
	s, ts := newServer(t)

	status, raw := do(t, ts, http.MethodPatch, "/todo_lists/1/reorder", map[string]any{"orderedIds": []int64{12, 10, 11}})
	assert.Equal(t, http.StatusNoContent, status)
	assert.Empty(t, raw)

	l, ok := s.TodoList(1)
	require.True(t, ok)
	assert.Equal(t, []int64{12, 10, 11}, []int64{l.Todos[0].ID, l.Todos[1].ID, l.Todos[2].ID})
	assert.Equal(t, 2, l.Todos[2].SortIndex)

	status, _ = do(t, ts, http.MethodPatch, "/todo_lists/1/reorder", map[string]any{"orderedIds": []int64{20}})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestPatchTodo_IsSparse(t *testing.T) {
	now := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	_, ts := newServer(t, WithClock(func() time.Time { return now }))

	status, _ := do(t, ts, http.MethodPatch, "/todos/10", map[string]any{"notes": "behind sofa"})
	require.Equal(t, http.StatusOK, status)
	status, raw := do(t, ts, http.MethodPatch, "/todos/10", map[string]any{"title": "Hoover", "dueDate": nil})
	require.Equal(t, http.StatusOK, status)

	var todo household.Todo
	require.NoError(t, json.Unmarshal(raw, &todo))
	assert.Equal(t, "Hoover", todo.Title)
	require.NotNil(t, todo.Notes)
	assert.Equal(t, "behind sofa", *todo.Notes)
	assert.Nil(t, todo.DueDate)
	assert.Equal(t, "2025-05-01T09:00:00Z", todo.UpdatedAt)

	status, _ = do(t, ts, http.MethodPatch, "/todos/10", map[string]any{"title": ""})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestFailNext_FailsOnce(t *testing.T) {
	s, ts := newServer(t)
	s.FailNext(http.MethodPut, "/todos/12/completed", http.StatusInternalServerError)

	status, raw := do(t, ts, http.MethodPut, "/todos/12/completed", map[string]any{"completed": true})
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Contains(t, string(raw), "injected failure")

	status, _ = do(t, ts, http.MethodPut, "/todos/12/completed", map[string]any{"completed": true})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 2, s.Count(http.MethodPut, "/todos/12/completed"))
}

func TestHold_BlocksUntilRelease(t *testing.T) {
	s, ts := newServer(t)
	release := s.Hold("/todo_lists/1")

	done := make(chan int, 1)
	go func() {
		resp, err := ts.Client().Get(ts.URL + Prefix + "/todo_lists/1")
		if err != nil {
			done <- 0
			return
		}
		resp.Body.Close()
		done <- resp.StatusCode
	}()

	select {
	case <-done:
		t.Fatal("request finished while held")
	case <-time.After(50 * time.Millisecond):
	}
	release()
	release()
	select {
	case status := <-done:
		assert.Equal(t, http.StatusOK, status)
	case <-time.After(2 * time.Second):
		t.Fatal("request still blocked after release")
	}
}

func TestMood_NullUntilSet(t *testing.T) {
	_, ts := newServer(t)
	status, raw := do(t, ts, http.MethodGet, "/moods/me", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "null", string(raw))

	status, _ = do(t, ts, http.MethodPut, "/moods/me", map[string]any{"mood": "grumpy"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = do(t, ts, http.MethodPut, "/moods/me", map[string]any{"mood": "cozy"})
	require.Equal(t, http.StatusOK, status)
	_, raw = do(t, ts, http.MethodGet, "/moods/me", nil)
	var mood household.Mood
	require.NoError(t, json.Unmarshal(raw, &mood))
	require.NotNil(t, mood.Mood)
	assert.Equal(t, household.MoodKey("cozy"), *mood.Mood)
}

func TestShoppingItemFields(t *testing.T) {
	s, ts := newServer(t)

	status, _ := do(t, ts, http.MethodPut, "/shopping_items/41/quantity", map[string]any{"quantity": 3})
	require.Equal(t, http.StatusOK, status)
	status, raw := do(t, ts, http.MethodPut, "/shopping_items/41/category", map[string]any{"category": "Pantry"})
	require.Equal(t, http.StatusOK, status)

	var item household.ShoppingItem
	require.NoError(t, json.Unmarshal(raw, &item))
	assert.Equal(t, 3, item.Quantity)
	require.NotNil(t, item.Category)
	assert.Equal(t, "Pantry", *item.Category)

	status, _ = do(t, ts, http.MethodPut, "/shopping_items/41/toggle", nil)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, s.Items(SeedShoppingListID)[1].Purchased)

	status, _ = do(t, ts, http.MethodPut, "/shopping_items/41/quantity", map[string]any{"quantity": 0})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestCreateEvent_Variants(t *testing.T) {
	_, ts := newServer(t)

	status, raw := do(t, ts, http.MethodPost, "/events/households/7/events", map[string]any{"title": "Holiday", "date": "2025-12-25"})
	require.Equal(t, http.StatusCreated, status)
	var ev household.CalendarEvent
	require.NoError(t, json.Unmarshal(raw, &ev))
	assert.Equal(t, "2025-12-25T00:00:00Z", ev.StartUTC)
	assert.Equal(t, "2025-12-26T00:00:00Z", ev.EndUTC)

	status, _ = do(t, ts, http.MethodPost, "/events/households/7/events", map[string]any{
		"title": "Backwards", "startUtc": "2025-01-02T00:00:00Z", "endUtc": "2025-01-01T00:00:00Z",
	})
	assert.Equal(t, http.StatusBadRequest, status)
}
