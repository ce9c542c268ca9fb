package mutations

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/Risclover/toby/internal/endpoints"
	"github.com/Risclover/toby/internal/household"
	"github.com/Risclover/toby/internal/mutation"
	"github.com/Risclover/toby/internal/propagate"
	"github.com/Risclover/toby/internal/querycache"
)

// TodoRef locates a todo. HouseholdID may be zero; it is then inferred from
// the cached list detail when needed.
type TodoRef struct {
	TodoID      int64
	ListID      int64
	HouseholdID int64
}

// NewTodo is the payload of AddTodo.
type NewTodo struct {
	ListID       int64
	Title        string
	Description  string
	Status       household.TodoStatus
	Priority     household.Priority
	DueDate      *string
	AssignedToID *int64
}

// listTags returns TodoList:listID, the household bucket when the household
// is known, and any extra tags.
func (s *Service) listTags(listID, householdID int64, extra ...querycache.Tag) []querycache.Tag {
	tags := []querycache.Tag{querycache.EntityTag(endpoints.TagTodoList, listID)}
	if hid, ok := propagate.HouseholdOfList(s.Store(), listID, householdID); ok {
		tags = append(tags, querycache.HouseholdTag(endpoints.TagTodoList, hid))
	}
	return append(tags, extra...)
}

// CreateTodoList creates a list for the owner variant in n.
func (s *Service) CreateTodoList(ctx context.Context, n household.NewTodoList) (household.TodoList, error) {
	req, err := n.Request()
	if err != nil {
		return household.TodoList{}, err
	}
	list, _, err := mutation.Run(ctx, s.orch, mutation.Spec[household.TodoList]{
		Name:    "createTodoList",
		Request: call[household.TodoList](s, req),
		Invalidates: func(l household.TodoList) []querycache.Tag {
			tags := []querycache.Tag{querycache.EntityTag(endpoints.TagTodoList, l.ID)}
			switch owner := n.Owner.(type) {
			case household.OwnedByUser:
				tags = append(tags, querycache.UserTag(endpoints.TagTodoList, owner.UserID))
			case household.SharedWithHousehold:
				tags = append(tags, querycache.HouseholdTag(endpoints.TagTodoList, owner.HouseholdID))
			case household.SharedWithMembers:
				tags = append(tags, querycache.HouseholdTag(endpoints.TagTodoList, owner.HouseholdID))
			}
			return tags
		},
	})
	return list, err
}

// UpdateTodoList renames a list in its detail view and in the household's
// lists.
func (s *Service) UpdateTodoList(ctx context.Context, listID, householdID int64, title string) (household.TodoList, error) {
	if err := requireIDs(map[string]int64{"listId": listID}); err != nil {
		return household.TodoList{}, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return household.TodoList{}, fmt.Errorf("%w: title is required", household.ErrInvalidInput)
	}
	tags := s.listTags(listID, householdID, querycache.ListTag(endpoints.TagTodoList))
	list, _, err := mutation.Run(ctx, s.orch, mutation.Spec[household.TodoList]{
		Name:    "updateTodoList",
		Patches: patches(s, propagate.KindRenameList, propagate.ListChange{ListID: listID, HouseholdID: householdID, Title: title}),
		Request: call[household.TodoList](s, household.Request{
			Method: http.MethodPut,
			Path:   fmt.Sprintf("/todo_lists/%d", listID),
			Body:   map[string]any{"title": title},
		}),
		Invalidates: fixed[household.TodoList](tags...),
	})
	return list, err
}

// DeleteList removes a list and everything in it.
func (s *Service) DeleteList(ctx context.Context, listID int64) error {
	if err := requireIDs(map[string]int64{"listId": listID}); err != nil {
		return err
	}
	_, _, err := mutation.Run(ctx, s.orch, mutation.Spec[struct{}]{
		Name:    "deleteList",
		Request: s.send(household.Request{Method: http.MethodDelete, Path: fmt.Sprintf("/todo_lists/%d", listID)}),
		Invalidates: fixed[struct{}](
			querycache.EntityTag(endpoints.TagTodoList, listID),
			querycache.ListTag(endpoints.TagTodoList),
		),
	})
	return err
}

// ClearList deletes every todo of a list.
func (s *Service) ClearList(ctx context.Context, listID, householdID int64) error {
	if err := requireIDs(map[string]int64{"listId": listID}); err != nil {
		return err
	}
	_, _, err := mutation.Run(ctx, s.orch, mutation.Spec[struct{}]{
		Name:        "clearList",
		Patches:     patches(s, propagate.KindClearList, propagate.ListChange{ListID: listID, HouseholdID: householdID}),
		Request:     s.send(household.Request{Method: http.MethodDelete, Path: fmt.Sprintf("/todo_lists/%d/todos", listID)}),
		Invalidates: fixed[struct{}](querycache.EntityTag(endpoints.TagTodoList, listID)),
	})
	return err
}

// AddTodo appends a todo to a list.
func (s *Service) AddTodo(ctx context.Context, n NewTodo) (household.Todo, error) {
	if err := requireIDs(map[string]int64{"listId": n.ListID}); err != nil {
		return household.Todo{}, err
	}
	title := strings.TrimSpace(n.Title)
	if title == "" {
		return household.Todo{}, fmt.Errorf("%w: title is required", household.ErrInvalidInput)
	}
	status := n.Status
	if status == "" {
		status = household.StatusPending
	}
	priority := n.Priority
	if priority == "" {
		priority = household.PriorityNormal
	}
	todo, _, err := mutation.Run(ctx, s.orch, mutation.Spec[household.Todo]{
		Name: "addTodo",
		Request: call[household.Todo](s, household.Request{
			Method: http.MethodPost,
			Path:   fmt.Sprintf("/todo_lists/%d/todos", n.ListID),
			Body: map[string]any{
				"title":          title,
				"description":    n.Description,
				"status":         status,
				"priority":       priority,
				"due_date":       n.DueDate,
				"assigned_to_id": n.AssignedToID,
				"list_id":        n.ListID,
			},
		}),
		Invalidates: fixed[household.Todo](querycache.EntityTag(endpoints.TagTodoList, n.ListID)),
	})
	return todo, err
}

// DeleteTodo removes a todo from its list views.
func (s *Service) DeleteTodo(ctx context.Context, ref TodoRef) error {
	if err := requireIDs(map[string]int64{"todoId": ref.TodoID, "listId": ref.ListID}); err != nil {
		return err
	}
	_, _, err := mutation.Run(ctx, s.orch, mutation.Spec[struct{}]{
		Name:    "deleteTodo",
		Patches: patches(s, propagate.KindDeleteTodo, propagate.TodoRemoval(ref)),
		Request: s.send(household.Request{
			Method: http.MethodDelete,
			Path:   fmt.Sprintf("/todo_lists/%d/todos/%d", ref.ListID, ref.TodoID),
		}),
		Invalidates: fixed[struct{}](querycache.EntityTag(endpoints.TagTodoList, ref.ListID)),
	})
	return err
}

// CompleteTodo checks or unchecks a todo everywhere it is shown.
func (s *Service) CompleteTodo(ctx context.Context, ref TodoRef, completed bool) (household.Todo, error) {
	if err := requireIDs(map[string]int64{"todoId": ref.TodoID, "listId": ref.ListID}); err != nil {
		return household.Todo{}, err
	}
	status := household.StatusPending
	if completed {
		status = household.StatusCompleted
	}
	change := propagate.TodoChange{
		TodoID:      ref.TodoID,
		ListID:      ref.ListID,
		HouseholdID: ref.HouseholdID,
		Patch:       household.TodoPatch{Status: household.Set(status)},
		UpdatedAt:   s.timestamp(),
	}
	tags := s.listTags(ref.ListID, ref.HouseholdID, querycache.ListTag(endpoints.TagTodoList))
	todo, _, err := mutation.Run(ctx, s.orch, mutation.Spec[household.Todo]{
		Name:    "completeTodo",
		Patches: patches(s, propagate.KindCompleteTodo, change),
		Request: call[household.Todo](s, household.Request{
			Method: http.MethodPut,
			Path:   fmt.Sprintf("/todos/%d/completed", ref.TodoID),
			Body:   map[string]any{"completed": completed},
		}),
		Invalidates: fixed[household.Todo](tags...),
	})
	return todo, err
}

// UpdateTodo applies a sparse patch. Only set fields are sent; null fields
// are cleared.
func (s *Service) UpdateTodo(ctx context.Context, ref TodoRef, patch household.TodoPatch) (household.Todo, error) {
	if err := requireIDs(map[string]int64{"todoId": ref.TodoID, "listId": ref.ListID}); err != nil {
		return household.Todo{}, err
	}
	if patch.Empty() {
		return household.Todo{}, fmt.Errorf("%w: nothing to update", household.ErrInvalidInput)
	}
	if title, ok := patch.Title.Value(); ok && strings.TrimSpace(title) == "" {
		return household.Todo{}, fmt.Errorf("%w: title cannot be empty", household.ErrInvalidInput)
	}
	change := propagate.TodoChange{
		TodoID:      ref.TodoID,
		ListID:      ref.ListID,
		HouseholdID: ref.HouseholdID,
		Patch:       patch,
		UpdatedAt:   s.timestamp(),
	}
	tags := s.listTags(ref.ListID, ref.HouseholdID,
		querycache.ListTag(endpoints.TagTodoList),
		querycache.EntityTag(endpoints.TagTodo, ref.TodoID),
	)
	todo, _, err := mutation.Run(ctx, s.orch, mutation.Spec[household.Todo]{
		Name:    "updateTodo",
		Patches: patches(s, propagate.KindUpdateTodo, change),
		Request: call[household.Todo](s, household.Request{
			Method: http.MethodPatch,
			Path:   fmt.Sprintf("/todos/%d", ref.TodoID),
			Body:   patch,
		}),
		Invalidates: fixed[household.Todo](tags...),
	})
	return todo, err
}

// ReorderTodos persists a new order for a list. The detail view and the
// household's lists are reordered immediately. Nothing is invalidated: the
// server answers with no body and the patched order is already final.
func (s *Service) ReorderTodos(ctx context.Context, listID, householdID int64, orderedIDs []int64) error {
	if err := requireIDs(map[string]int64{"listId": listID}); err != nil {
		return err
	}
	if len(orderedIDs) == 0 {
		return fmt.Errorf("%w: orderedIds is empty", household.ErrInvalidInput)
	}
	_, _, err := mutation.Run(ctx, s.orch, mutation.Spec[struct{}]{
		Name: "reorderTodos",
		Patches: patches(s, propagate.KindReorderTodos, propagate.TodoReorder{
			ListID:      listID,
			HouseholdID: householdID,
			OrderedIDs:  orderedIDs,
		}),
		Request: s.send(household.Request{
			Method: http.MethodPatch,
			Path:   fmt.Sprintf("/todo_lists/%d/reorder", listID),
			Body:   map[string]any{"orderedIds": orderedIDs},
		}),
	})
	return err
}
