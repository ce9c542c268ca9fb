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

// ItemRef locates a shopping item.
type ItemRef struct {
	ItemID      int64
	ListID      int64
	HouseholdID int64
}

// NewShoppingItem is the payload of AddShoppingItem.
type NewShoppingItem struct {
	ListID      int64
	HouseholdID int64
	Name        string
	Category    *string
	Quantity    int
}

func itemTags(listID int64) []querycache.Tag {
	return []querycache.Tag{endpoints.ShoppingListBucket(endpoints.TagShoppingItem, listID)}
}

// CreateShoppingList adds a list to a household.
func (s *Service) CreateShoppingList(ctx context.Context, householdID int64, title string) (household.ShoppingList, error) {
	if err := requireIDs(map[string]int64{"householdId": householdID}); err != nil {
		return household.ShoppingList{}, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return household.ShoppingList{}, fmt.Errorf("%w: title is required", household.ErrInvalidInput)
	}
	list, _, err := mutation.Run(ctx, s.orch, mutation.Spec[household.ShoppingList]{
		Name: "createShoppingList",
		Request: call[household.ShoppingList](s, household.Request{
			Method: http.MethodPost,
			Path:   "/shopping_lists/",
			Body:   map[string]any{"title": title, "householdId": householdID},
		}),
		Invalidates: fixed[household.ShoppingList](
			querycache.ListTag(endpoints.TagShoppingList),
			querycache.HouseholdTag(endpoints.TagShoppingList, householdID),
		),
	})
	return list, err
}

// EditShoppingList renames a list.
func (s *Service) EditShoppingList(ctx context.Context, listID int64, title string) (household.ShoppingList, error) {
	if err := requireIDs(map[string]int64{"listId": listID}); err != nil {
		return household.ShoppingList{}, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return household.ShoppingList{}, fmt.Errorf("%w: title is required", household.ErrInvalidInput)
	}
	list, _, err := mutation.Run(ctx, s.orch, mutation.Spec[household.ShoppingList]{
		Name: "editShoppingList",
		Request: call[household.ShoppingList](s, household.Request{
			Method: http.MethodPut,
			Path:   fmt.Sprintf("/shopping_lists/%d", listID),
			Body:   map[string]any{"title": title},
		}),
		Invalidates: fixed[household.ShoppingList](querycache.EntityTag(endpoints.TagShoppingList, listID)),
	})
	return list, err
}

// DeleteShoppingList removes a list.
func (s *Service) DeleteShoppingList(ctx context.Context, listID int64) error {
	if err := requireIDs(map[string]int64{"listId": listID}); err != nil {
		return err
	}
	_, _, err := mutation.Run(ctx, s.orch, mutation.Spec[struct{}]{
		Name:    "deleteShoppingList",
		Request: s.send(household.Request{Method: http.MethodDelete, Path: fmt.Sprintf("/shopping_lists/%d", listID)}),
		Invalidates: fixed[struct{}](
			querycache.EntityTag(endpoints.TagShoppingList, listID),
			querycache.ListTag(endpoints.TagShoppingList),
		),
	})
	return err
}

// AddShoppingItem shows the item at once under a temporary negative id and
// swaps in the created item when the server answers.
func (s *Service) AddShoppingItem(ctx context.Context, n NewShoppingItem) (household.ShoppingItem, error) {
	if err := requireIDs(map[string]int64{"listId": n.ListID}); err != nil {
		return household.ShoppingItem{}, err
	}
	name := strings.TrimSpace(n.Name)
	if name == "" {
		return household.ShoppingItem{}, fmt.Errorf("%w: name is required", household.ErrInvalidInput)
	}
	qty := n.Quantity
	if qty <= 0 {
		qty = 1
	}
	add := propagate.ItemAddition{
		ListID:      n.ListID,
		HouseholdID: n.HouseholdID,
		TempID:      s.nextTempID(),
		Item: household.ShoppingItem{
			ShoppingListID: n.ListID,
			Name:           name,
			Quantity:       qty,
			Category:       n.Category,
			CreatedAt:      s.timestamp(),
		},
	}
	item, _, err := mutation.Run(ctx, s.orch, mutation.Spec[household.ShoppingItem]{
		Name:    "addShoppingItem",
		Patches: patches(s, propagate.KindAddShoppingItem, add),
		Request: call[household.ShoppingItem](s, household.Request{
			Method: http.MethodPost,
			Path:   fmt.Sprintf("/shopping_lists/%d/items", n.ListID),
			Body: map[string]any{
				"name":      name,
				"category":  n.Category,
				"quantity":  qty,
				"purchased": false,
			},
		}),
		Reconcile: func(created household.ShoppingItem) []querycache.Patch {
			confirm := add
			confirm.Item = created
			return patches(s, propagate.KindConfirmShoppingItem, confirm)
		},
		Invalidates: fixed[household.ShoppingItem](itemTags(n.ListID)...),
	})
	return item, err
}

// ToggleShoppingItem flips the purchased flag.
func (s *Service) ToggleShoppingItem(ctx context.Context, ref ItemRef) error {
	if err := requireIDs(map[string]int64{"itemId": ref.ItemID, "listId": ref.ListID}); err != nil {
		return err
	}
	_, _, err := mutation.Run(ctx, s.orch, mutation.Spec[struct{}]{
		Name: "toggleShoppingItem",
		Patches: patches(s, propagate.KindUpdateShoppingItem, propagate.ItemChange{
			ItemID: ref.ItemID, ListID: ref.ListID, HouseholdID: ref.HouseholdID, Toggle: true,
		}),
		Request:     s.send(household.Request{Method: http.MethodPut, Path: fmt.Sprintf("/shopping_items/%d/toggle", ref.ItemID)}),
		Invalidates: fixed[struct{}](itemTags(ref.ListID)...),
	})
	return err
}

// SetShoppingItemPurchased sets the purchased flag explicitly.
func (s *Service) SetShoppingItemPurchased(ctx context.Context, ref ItemRef, purchased bool) error {
	return s.UpdateShoppingItem(ctx, ref, household.ShoppingItemPatch{Purchased: household.Set(purchased)})
}

// DeleteShoppingItem removes an item.
func (s *Service) DeleteShoppingItem(ctx context.Context, ref ItemRef) error {
	if err := requireIDs(map[string]int64{"itemId": ref.ItemID, "listId": ref.ListID}); err != nil {
		return err
	}
	_, _, err := mutation.Run(ctx, s.orch, mutation.Spec[struct{}]{
		Name:        "deleteShoppingItem",
		Patches:     patches(s, propagate.KindDeleteShoppingItem, propagate.ItemRemoval(ref)),
		Request:     s.send(household.Request{Method: http.MethodDelete, Path: fmt.Sprintf("/shopping_items/%d", ref.ItemID)}),
		Invalidates: fixed[struct{}](itemTags(ref.ListID)...),
	})
	return err
}

// itemFieldRequests splits patch into the backend's per-field endpoints.
func itemFieldRequests(itemID int64, patch household.ShoppingItemPatch) ([]household.Request, error) {
	var reqs []household.Request
	put := func(suffix, key string, v any) {
		reqs = append(reqs, household.Request{
			Method: http.MethodPut,
			Path:   fmt.Sprintf("/shopping_items/%d%s", itemID, suffix),
			Body:   map[string]any{key: v},
		})
	}
	if name, ok := patch.Name.Value(); ok {
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", household.ErrInvalidInput)
		}
		put("/name", "name", name)
	} else if patch.Name.IsNull() {
		return nil, fmt.Errorf("%w: name cannot be cleared", household.ErrInvalidInput)
	}
	if qty, ok := patch.Quantity.Value(); ok {
		if qty <= 0 {
			return nil, fmt.Errorf("%w: quantity must be positive", household.ErrInvalidInput)
		}
		put("/quantity", "quantity", qty)
	}
	if patch.Notes.IsSet() {
		notes, _ := patch.Notes.Value()
		if patch.Notes.IsNull() {
			put("/notes", "notes", nil)
		} else {
			put("/notes", "notes", notes)
		}
	}
	if patch.Purchased.IsSet() {
		purchased, _ := patch.Purchased.Value()
		put("", "purchased", purchased)
	}
	// Category goes last so its response, the full item, reflects every
	// earlier field.
	if patch.Category.IsSet() {
		if category, ok := patch.Category.Value(); ok {
			put("/category", "category", category)
		} else {
			put("/category", "category", nil)
		}
	}
	if len(reqs) == 0 {
		return nil, fmt.Errorf("%w: nothing to update", household.ErrInvalidInput)
	}
	return reqs, nil
}

// UpdateShoppingItem applies a sparse patch through the per-field endpoints.
// All fields are patched optimistically as one mutation; if any request
// fails the whole patch is rolled back.
func (s *Service) UpdateShoppingItem(ctx context.Context, ref ItemRef, patch household.ShoppingItemPatch) error {
	if err := requireIDs(map[string]int64{"itemId": ref.ItemID, "listId": ref.ListID}); err != nil {
		return err
	}
	reqs, err := itemFieldRequests(ref.ItemID, patch)
	if err != nil {
		return err
	}
	_, _, err = mutation.Run(ctx, s.orch, mutation.Spec[household.ShoppingItem]{
		Name: "updateShoppingItem",
		Patches: patches(s, propagate.KindUpdateShoppingItem, propagate.ItemChange{
			ItemID: ref.ItemID, ListID: ref.ListID, HouseholdID: ref.HouseholdID, Patch: patch,
		}),
		Request: func(ctx context.Context) (household.ShoppingItem, error) {
			var last household.ShoppingItem
			for _, req := range reqs {
				var item household.ShoppingItem
				if err := s.exec.Do(ctx, req, &item); err != nil {
					return household.ShoppingItem{}, err
				}
				if item.ID != 0 {
					last = item
				}
			}
			return last, nil
		},
		Reconcile: func(item household.ShoppingItem) []querycache.Patch {
			if item.ID != ref.ItemID {
				return nil
			}
			return patches(s, propagate.KindConfirmShoppingItem, propagate.ItemAddition{
				ListID: ref.ListID, HouseholdID: ref.HouseholdID, TempID: ref.ItemID, Item: item,
			})
		},
		Invalidates: fixed[household.ShoppingItem](itemTags(ref.ListID)...),
	})
	return err
}

// CreateShoppingCategory adds a category, shown at once under a temporary id.
func (s *Service) CreateShoppingCategory(ctx context.Context, listID int64, name string) (household.ShoppingCategory, error) {
	if err := requireIDs(map[string]int64{"listId": listID}); err != nil {
		return household.ShoppingCategory{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return household.ShoppingCategory{}, fmt.Errorf("%w: name is required", household.ErrInvalidInput)
	}
	change := propagate.CategoryChange{
		ListID:   listID,
		TempID:   s.nextTempID(),
		Category: household.ShoppingCategory{ListID: listID, Name: name, CreatedAt: s.timestamp()},
	}
	cat, _, err := mutation.Run(ctx, s.orch, mutation.Spec[household.ShoppingCategory]{
		Name:    "createShoppingCategory",
		Patches: patches(s, propagate.KindAddShoppingCategory, change),
		Request: call[household.ShoppingCategory](s, household.Request{
			Method: http.MethodPost,
			Path:   fmt.Sprintf("/shopping_lists/%d/categories", listID),
			Body:   map[string]any{"name": name},
		}),
		Reconcile: func(created household.ShoppingCategory) []querycache.Patch {
			confirm := change
			confirm.Category = created
			return patches(s, propagate.KindConfirmCategory, confirm)
		},
		Invalidates: fixed[household.ShoppingCategory](
			endpoints.ShoppingListBucket(endpoints.TagShoppingCategory, listID),
		),
	})
	return cat, err
}

// DeleteShoppingCategory removes a category.
func (s *Service) DeleteShoppingCategory(ctx context.Context, listID int64, category household.ShoppingCategory) error {
	if err := requireIDs(map[string]int64{"listId": listID, "categoryId": category.ID}); err != nil {
		return err
	}
	_, _, err := mutation.Run(ctx, s.orch, mutation.Spec[struct{}]{
		Name:    "deleteShoppingCategory",
		Patches: patches(s, propagate.KindDeleteShoppingCategory, propagate.CategoryChange{ListID: listID, Category: category}),
		Request: s.send(household.Request{
			Method: http.MethodDelete,
			Path:   fmt.Sprintf("/shopping_lists/%d/categories/%d", listID, category.ID),
		}),
		Invalidates: fixed[struct{}](
			endpoints.ShoppingListBucket(endpoints.TagShoppingCategory, listID),
		),
	})
	return err
}
