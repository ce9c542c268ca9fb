package fakeapi

import (
	"net/http"
	"slices"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/Risclover/toby/internal/household"
)

func (s *Server) handleGetTodo(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, _ := s.data.todo(pathID(r, "id"))
	if t == nil {
		notFound(w, "todo")
		return
	}
	respondJSON(w, http.StatusOK, t)
}

func (s *Server) handlePatchTodo(w http.ResponseWriter, r *http.Request) {
	var patch household.TodoPatch
	if err := decode(r, &patch); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if patch.Empty() {
		respondError(w, http.StatusBadRequest, "no fields to update")
		return
	}
	if title, ok := patch.Title.Value(); (ok && strings.TrimSpace(title) == "") || patch.Title.IsNull() {
		respondError(w, http.StatusBadRequest, "title cannot be empty")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	t, _ := s.data.todo(pathID(r, "id"))
	if t == nil {
		notFound(w, "todo")
		return
	}
	patch.ApplyTo(t)
	t.UpdatedAt = s.stamp()
	respondJSON(w, http.StatusOK, t)
}

func (s *Server) handleCompleteTodo(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Completed *bool `json:"completed"`
	}
	if err := decode(r, &body); err != nil || body.Completed == nil {
		respondError(w, http.StatusBadRequest, "completed is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	t, _ := s.data.todo(pathID(r, "id"))
	if t == nil {
		notFound(w, "todo")
		return
	}
	t.Status = household.StatusPending
	if *body.Completed {
		t.Status = household.StatusCompleted
	}
	t.UpdatedAt = s.stamp()
	respondJSON(w, http.StatusOK, t)
}

func (s *Server) handleGetTodoList(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.data.todoList(pathID(r, "id"))
	if l == nil {
		notFound(w, "todo list")
		return
	}
	respondJSON(w, http.StatusOK, l)
}

type newListBody struct {
	Title      string  `json:"title"`
	UserID     int64   `json:"user_id"`
	AllMembers *bool   `json:"allMembers"`
	MemberIDs  []int64 `json:"memberIds"`
}

func (s *Server) createList(w http.ResponseWriter, body newListBody, householdID int64) {
	title := strings.TrimSpace(body.Title)
	if title == "" {
		respondError(w, http.StatusBadRequest, "title is required")
		return
	}
	ts := s.stamp()
	l := &household.TodoList{ID: s.data.id(), Title: title, Todos: []household.Todo{}, CreatedAt: ts, UpdatedAt: ts}
	if householdID > 0 {
		if s.data.household(householdID) == nil {
			notFound(w, "household")
			return
		}
		l.HouseholdID = ptr(householdID)
		l.Scope = "household"
		l.AllMembers = body.AllMembers == nil || *body.AllMembers
		if !l.AllMembers {
			if len(body.MemberIDs) == 0 {
				respondError(w, http.StatusBadRequest, "memberIds required when not shared with all members")
				return
			}
			l.MemberIDs = body.MemberIDs
		}
	} else {
		uid := body.UserID
		if uid == 0 {
			uid = s.userID
		}
		l.UserID = ptr(uid)
		l.Scope = "user"
	}
	s.data.todoLists = append(s.data.todoLists, l)
	respondJSON(w, http.StatusCreated, l)
}

func (s *Server) handleCreateUserList(w http.ResponseWriter, r *http.Request) {
	var body newListBody
	if err := decode(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createList(w, body, 0)
}

func (s *Server) handleCreateHouseholdList(w http.ResponseWriter, r *http.Request) {
	var body newListBody
	if err := decode(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createList(w, body, pathID(r, "id"))
}

func (s *Server) handleRenameTodoList(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title string `json:"title"`
	}
	if err := decode(r, &body); err != nil || strings.TrimSpace(body.Title) == "" {
		respondError(w, http.StatusBadRequest, "title is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.data.todoList(pathID(r, "id"))
	if l == nil {
		notFound(w, "todo list")
		return
	}
	l.Title = strings.TrimSpace(body.Title)
	l.UpdatedAt = s.stamp()
	respondJSON(w, http.StatusOK, l)
}

func (s *Server) handleDeleteTodoList(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := pathID(r, "id")
	before := len(s.data.todoLists)
	s.data.todoLists = slices.DeleteFunc(s.data.todoLists, func(l *household.TodoList) bool { return l.ID == id })
	if len(s.data.todoLists) == before {
		notFound(w, "todo list")
		return
	}
	respondJSON(w, http.StatusOK, household.Message{Message: "list deleted"})
}

func (s *Server) handleAddTodo(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title        string               `json:"title"`
		Description  *string              `json:"description"`
		Status       household.TodoStatus `json:"status"`
		Priority     household.Priority   `json:"priority"`
		DueDate      *string              `json:"due_date"`
		AssignedToID *int64               `json:"assigned_to_id"`
	}
	if err := decode(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(body.Title) == "" {
		respondError(w, http.StatusBadRequest, "title is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.data.todoList(pathID(r, "id"))
	if l == nil {
		notFound(w, "todo list")
		return
	}
	ts := s.stamp()
	t := household.Todo{
		ID:           s.data.id(),
		ListID:       l.ID,
		Title:        strings.TrimSpace(body.Title),
		Status:       body.Status,
		Priority:     body.Priority,
		DueDate:      body.DueDate,
		AssignedToID: body.AssignedToID,
		SortIndex:    len(l.Todos),
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}
	if body.Description != nil && *body.Description != "" {
		t.Description = body.Description
	}
	if t.Status == "" {
		t.Status = household.StatusPending
	}
	if t.Priority == "" {
		t.Priority = household.PriorityNormal
	}
	l.Todos = append(l.Todos, t)
	respondJSON(w, http.StatusCreated, t)
}

func (s *Server) handleClearTodoList(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.data.todoList(pathID(r, "id"))
	if l == nil {
		notFound(w, "todo list")
		return
	}
	l.Todos = []household.Todo{}
	respondJSON(w, http.StatusOK, household.Message{Message: "list cleared"})
}

func (s *Server) handleDeleteTodo(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.data.todoList(pathID(r, "id"))
	todoID := pathID(r, "todoId")
	if l == nil || l.FindTodo(todoID) == nil {
		notFound(w, "todo")
		return
	}
	l.Todos = slices.DeleteFunc(l.Todos, func(t household.Todo) bool { return t.ID == todoID })
	for i := range l.Todos {
		l.Todos[i].SortIndex = i
	}
	respondJSON(w, http.StatusOK, household.Message{Message: "todo deleted"})
}

// handleReorder rewrites sortIndex from orderedIds and answers 204. Ids must
// belong to the list; todos left out keep their relative order ahead of the
// listed ones.
func (s *Server) handleReorder(w http.ResponseWriter, r *http.Request) {
	var body struct {
		OrderedIDs []int64 `json:"orderedIds"`
	}
	if err := decode(r, &body); err != nil || len(body.OrderedIDs) == 0 {
		respondError(w, http.StatusBadRequest, "orderedIds is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.data.todoList(pathID(r, "id"))
	if l == nil {
		notFound(w, "todo list")
		return
	}
	pos := make(map[int64]int, len(body.OrderedIDs))
	for i, id := range body.OrderedIDs {
		if l.FindTodo(id) == nil {
			respondError(w, http.StatusBadRequest, "todo does not belong to this list")
			return
		}
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
	slices.SortStableFunc(l.Todos, func(a, b household.Todo) int { return rank(a) - rank(b) })
	for i := range l.Todos {
		l.Todos[i].SortIndex = i
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// householdLists returns every todo list of a household.
func (s *Server) householdLists(hid int64) []household.TodoList {
	out := []household.TodoList{}
	for _, l := range s.data.todoLists {
		if l.HouseholdID != nil && *l.HouseholdID == hid {
			out = append(out, *l)
		}
	}
	return out
}

func (s *Server) handleHouseholdTodoLists(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hid := pathID(r, "id")
	if s.data.household(hid) == nil {
		notFound(w, "household")
		return
	}
	respondJSON(w, http.StatusOK, s.householdLists(hid))
}

// TodoList returns a copy of the stored list, for tests.
func (s *Server) TodoList(id int64) (household.TodoList, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.data.todoList(id)
	if l == nil {
		return household.TodoList{}, false
	}
	raw, _ := json.Marshal(l)
	var out household.TodoList
	_ = json.Unmarshal(raw, &out)
	return out, true
}
