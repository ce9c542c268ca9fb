package fakeapi

import (
	"net/http"
	"slices"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/gorilla/mux"

	"github.com/Risclover/toby/internal/household"
)

func (s *Server) handleHouseholdShopping(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hid := pathID(r, "id")
	if s.data.household(hid) == nil {
		notFound(w, "household")
		return
	}
	out := []household.ShoppingList{}
	for _, l := range s.data.shoppingLists {
		if l.HouseholdID == hid {
			out = append(out, *l)
		}
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateShoppingList(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title       string `json:"title"`
		HouseholdID int64  `json:"householdId"`
	}
	if err := decode(r, &body); err != nil || strings.TrimSpace(body.Title) == "" {
		respondError(w, http.StatusBadRequest, "title is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data.household(body.HouseholdID) == nil {
		respondError(w, http.StatusBadRequest, "unknown household")
		return
	}
	l := &household.ShoppingList{
		ID:          s.data.id(),
		HouseholdID: body.HouseholdID,
		Title:       strings.TrimSpace(body.Title),
		CreatedAt:   s.stamp(),
		Items:       []household.ShoppingItem{},
		Categories:  []string{},
	}
	s.data.shoppingLists = append(s.data.shoppingLists, l)
	respondJSON(w, http.StatusCreated, l)
}

func (s *Server) handleGetShoppingList(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.data.shoppingList(pathID(r, "id"))
	if l == nil {
		notFound(w, "shopping list")
		return
	}
	respondJSON(w, http.StatusOK, l)
}

func (s *Server) handleRenameShoppingList(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title string `json:"title"`
	}
	if err := decode(r, &body); err != nil || strings.TrimSpace(body.Title) == "" {
		respondError(w, http.StatusBadRequest, "title is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.data.shoppingList(pathID(r, "id"))
	if l == nil {
		notFound(w, "shopping list")
		return
	}
	l.Title = strings.TrimSpace(body.Title)
	respondJSON(w, http.StatusOK, l)
}

func (s *Server) handleDeleteShoppingList(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := pathID(r, "id")
	before := len(s.data.shoppingLists)
	s.data.shoppingLists = slices.DeleteFunc(s.data.shoppingLists, func(l *household.ShoppingList) bool { return l.ID == id })
	if len(s.data.shoppingLists) == before {
		notFound(w, "shopping list")
		return
	}
	respondJSON(w, http.StatusOK, household.Message{Message: "shopping list deleted"})
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.data.shoppingList(pathID(r, "id"))
	if l == nil {
		notFound(w, "shopping list")
		return
	}
	respondJSON(w, http.StatusOK, l.Items)
}

// categoryID resolves a category name within a list, creating the category
// when it is new.
func (s *Server) categoryID(listID int64, name string) *int64 {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	for _, c := range s.data.categories {
		if c.ListID == listID && strings.EqualFold(c.Name, name) {
			return ptr(c.ID)
		}
	}
	c := household.ShoppingCategory{ID: s.data.id(), ListID: listID, Name: name, CreatedAt: s.stamp(), UpdatedAt: s.stamp()}
	s.data.categories = append(s.data.categories, c)
	if l := s.data.shoppingList(listID); l != nil {
		l.Categories = append(l.Categories, name)
	}
	return ptr(c.ID)
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name      string  `json:"name"`
		Category  *string `json:"category"`
		Quantity  int     `json:"quantity"`
		Purchased bool    `json:"purchased"`
	}
	if err := decode(r, &body); err != nil || strings.TrimSpace(body.Name) == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	if body.Quantity <= 0 {
		body.Quantity = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.data.shoppingList(pathID(r, "id"))
	if l == nil {
		notFound(w, "shopping list")
		return
	}
	ts := s.stamp()
	it := household.ShoppingItem{
		ID:             s.data.id(),
		ShoppingListID: l.ID,
		Name:           strings.TrimSpace(body.Name),
		Quantity:       body.Quantity,
		Purchased:      body.Purchased,
		CreatedAt:      ts,
		UpdatedAt:      ts,
	}
	if body.Category != nil {
		if cid := s.categoryID(l.ID, *body.Category); cid != nil {
			it.Category = ptr(strings.TrimSpace(*body.Category))
			it.CategoryID = cid
		}
	}
	l.Items = append(l.Items, it)
	respondJSON(w, http.StatusCreated, it)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	listID := pathID(r, "id")
	if s.data.shoppingList(listID) == nil {
		notFound(w, "shopping list")
		return
	}
	out := []household.ShoppingCategory{}
	for _, c := range s.data.categories {
		if c.ListID == listID {
			out = append(out, c)
		}
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := decode(r, &body); err != nil || strings.TrimSpace(body.Name) == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	listID := pathID(r, "id")
	if s.data.shoppingList(listID) == nil {
		notFound(w, "shopping list")
		return
	}
	for _, c := range s.data.categories {
		if c.ListID == listID && strings.EqualFold(c.Name, strings.TrimSpace(body.Name)) {
			respondError(w, http.StatusBadRequest, "category already exists")
			return
		}
	}
	id := s.categoryID(listID, body.Name)
	for _, c := range s.data.categories {
		if c.ID == *id {
			respondJSON(w, http.StatusCreated, c)
			return
		}
	}
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	listID := pathID(r, "id")
	catID := pathID(r, "categoryId")
	idx := slices.IndexFunc(s.data.categories, func(c household.ShoppingCategory) bool {
		return c.ID == catID && c.ListID == listID
	})
	if idx < 0 {
		notFound(w, "category")
		return
	}
	name := s.data.categories[idx].Name
	s.data.categories = slices.Delete(s.data.categories, idx, idx+1)
	if l := s.data.shoppingList(listID); l != nil {
		l.Categories = slices.DeleteFunc(l.Categories, func(n string) bool { return n == name })
		for i := range l.Items {
			if l.Items[i].CategoryID != nil && *l.Items[i].CategoryID == catID {
				l.Items[i].Category = nil
				l.Items[i].CategoryID = nil
			}
		}
	}
	respondJSON(w, http.StatusOK, household.Message{Message: "category deleted"})
}

func (s *Server) handleToggleItem(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, _ := s.data.item(pathID(r, "id"))
	if it == nil {
		notFound(w, "shopping item")
		return
	}
	it.Purchased = !it.Purchased
	it.UpdatedAt = s.stamp()
	respondJSON(w, http.StatusOK, it)
}

func (s *Server) handleSetPurchased(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Purchased *bool `json:"purchased"`
	}
	if err := decode(r, &body); err != nil || body.Purchased == nil {
		respondError(w, http.StatusBadRequest, "purchased is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	it, _ := s.data.item(pathID(r, "id"))
	if it == nil {
		notFound(w, "shopping item")
		return
	}
	it.Purchased = *body.Purchased
	it.UpdatedAt = s.stamp()
	respondJSON(w, http.StatusOK, it)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := pathID(r, "id")
	it, l := s.data.item(id)
	if it == nil {
		notFound(w, "shopping item")
		return
	}
	l.Items = slices.DeleteFunc(l.Items, func(x household.ShoppingItem) bool { return x.ID == id })
	respondJSON(w, http.StatusOK, household.Message{Message: "item deleted"})
}

// handleItemField serves PUT /shopping_items/{id}/{name|quantity|notes|category}.
// Each endpoint takes a single-key body; the category endpoint answers with
// the full item.
func (s *Server) handleItemField(w http.ResponseWriter, r *http.Request) {
	var body map[string]json.RawMessage
	if err := decode(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	field := mux.Vars(r)["field"]
	raw, ok := body[field]
	if !ok {
		respondError(w, http.StatusBadRequest, field+" is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	it, l := s.data.item(pathID(r, "id"))
	if it == nil {
		notFound(w, "shopping item")
		return
	}
	switch field {
	case "name":
		var name string
		if json.Unmarshal(raw, &name) != nil || strings.TrimSpace(name) == "" {
			respondError(w, http.StatusBadRequest, "name cannot be empty")
			return
		}
		it.Name = strings.TrimSpace(name)
	case "quantity":
		var qty int
		if json.Unmarshal(raw, &qty) != nil || qty <= 0 {
			respondError(w, http.StatusBadRequest, "quantity must be a positive integer")
			return
		}
		it.Quantity = qty
	case "notes":
		var notes *string
		if json.Unmarshal(raw, &notes) != nil {
			respondError(w, http.StatusBadRequest, "notes must be a string")
			return
		}
		it.Notes = notes
	case "category":
		var name *string
		if json.Unmarshal(raw, &name) != nil {
			respondError(w, http.StatusBadRequest, "category must be a string")
			return
		}
		it.Category, it.CategoryID = nil, nil
		if name != nil {
			if cid := s.categoryID(l.ID, *name); cid != nil {
				it.Category = ptr(strings.TrimSpace(*name))
				it.CategoryID = cid
			}
		}
	}
	it.UpdatedAt = s.stamp()
	respondJSON(w, http.StatusOK, it)
}

// Items returns a copy of a shopping list's items, for tests.
func (s *Server) Items(listID int64) []household.ShoppingItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.data.shoppingList(listID)
	if l == nil {
		return nil
	}
	return slices.Clone(l.Items)
}
