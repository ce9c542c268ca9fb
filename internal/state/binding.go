package state

import (
	"context"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Risclover/toby/internal/endpoints"
	"github.com/Risclover/toby/internal/household"
	"github.com/Risclover/toby/internal/querycache"
)

// Board is everything the views render, read from the cache at one instant.
type Board struct {
	HouseholdID    int64
	Household      household.Household
	HasHousehold   bool
	TodoLists      []household.TodoList
	ShoppingLists  []household.ShoppingList
	ShoppingListID int64
	Items          []household.ShoppingItem
	Announcements  []household.Announcement
	Mood           household.Mood

	Loading  bool // an entry is fetching and has no value yet
	Stale    bool // an entry is waiting for a refetch
	Pending  int  // optimistic patches not yet settled
	Revision uint64

	Health
}

// FindList returns the household todo list with id.
func (b Board) FindList(id int64) (household.TodoList, bool) {
	for _, l := range b.TodoLists {
		if l.ID == id {
			return l, true
		}
	}
	return household.TodoList{}, false
}

// Binding subscribes to the household's cache entries and rebuilds a Board
// whenever one of them changes.
type Binding struct {
	store       *querycache.Store
	exec        household.Executor
	householdID int64
	health      *HealthTracker
	log         zerolog.Logger

	notify  chan struct{}
	changes chan struct{}

	mu       sync.RWMutex
	subs     []*querycache.Subscription
	items    *querycache.Subscription
	itemsFor int64
	board    Board
	started  bool
}

// Option customizes a Binding.
type Option func(*Binding)

// WithHealth shares a tracker that is also registered as the store observer.
func WithHealth(t *HealthTracker) Option {
	return func(b *Binding) {
		if t != nil {
			b.health = t
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(b *Binding) {
		b.log = l.With().Str("component", "binding").Logger()
	}
}

// NewBinding prepares a binding for one household. Call Start to subscribe.
func NewBinding(store *querycache.Store, exec household.Executor, householdID int64, opts ...Option) *Binding {
	b := &Binding{
		store:       store,
		exec:        exec,
		householdID: householdID,
		health:      NewHealthTracker(nil),
		log:         zerolog.Nop(),
		notify:      make(chan struct{}, 1),
		changes:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.board.HouseholdID = householdID
	return b
}

func (b *Binding) defs() []querycache.Def {
	hid := b.householdID
	return []querycache.Def{
		endpoints.GetHousehold(hid).Def(b.exec),
		endpoints.GetHouseholdTodoLists(hid).Def(b.exec),
		endpoints.GetHouseholdShoppingLists(hid).Def(b.exec),
		endpoints.GetAnnouncements(hid).Def(b.exec),
		endpoints.GetMyMood().Def(b.exec),
	}
}

// Start subscribes to the board's entries and keeps the Board current until
// ctx is done, then releases every subscription.
func (b *Binding) Start(ctx context.Context) {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return
	}
	b.started = true
	for _, def := range b.defs() {
		b.subs = append(b.subs, b.store.Subscribe(def, b.notify))
	}
	b.mu.Unlock()

	b.refresh()
	go b.run(ctx)
}

func (b *Binding) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			b.stop()
			return
		case <-b.notify:
			b.refresh()
		}
	}
}

func (b *Binding) stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs {
		sub.Unsubscribe()
	}
	b.subs = nil
	b.items.Unsubscribe()
	b.items = nil
}

// SelectShoppingList moves the item subscription to listID. Zero clears it.
func (b *Binding) SelectShoppingList(listID int64) {
	b.mu.Lock()
	if listID == b.itemsFor {
		b.mu.Unlock()
		return
	}
	prev := b.items
	b.items = nil
	b.itemsFor = listID
	if listID > 0 {
		b.items = b.store.Subscribe(endpoints.GetShoppingItems(listID).Def(b.exec), b.notify)
	}
	b.mu.Unlock()

	// Unsubscribing after the new subscription keeps a shared entry alive.
	prev.Unsubscribe()
	b.log.Debug().Int64("shopping_list_id", listID).Msg("item subscription moved")
	b.refresh()
}

// Changes delivers one signal per batch of Board updates.
func (b *Binding) Changes() <-chan struct{} {
	return b.changes
}

// Snapshot returns the latest Board. Slices are copies; the records inside
// share memory with the cache and must not be modified.
func (b *Binding) Snapshot() Board {
	b.mu.RLock()
	board := b.board
	b.mu.RUnlock()

	board.TodoLists = slices.Clone(board.TodoLists)
	board.ShoppingLists = slices.Clone(board.ShoppingLists)
	board.Items = slices.Clone(board.Items)
	board.Announcements = slices.Clone(board.Announcements)
	board.Health = b.health.Snapshot()
	return board
}

// Health returns the fetch health alone.
func (b *Binding) Health() Health {
	return b.health.Snapshot()
}

// refresh rebuilds the Board from the cache. It never holds b.mu while
// reading the store.
func (b *Binding) refresh() {
	b.mu.RLock()
	itemsFor := b.itemsFor
	b.mu.RUnlock()

	hid := b.householdID
	next := Board{HouseholdID: hid, ShoppingListID: itemsFor}
	track := func(snap querycache.Snapshot) {
		if snap.Fetching && snap.Value == nil {
			next.Loading = true
		}
		if snap.Stale {
			next.Stale = true
		}
		next.Pending += snap.Pending
	}

	next.Household, next.HasHousehold = read(b.store, endpoints.GetHousehold(hid), track)
	next.TodoLists, _ = read(b.store, endpoints.GetHouseholdTodoLists(hid), track)
	next.ShoppingLists, _ = read(b.store, endpoints.GetHouseholdShoppingLists(hid), track)
	next.Announcements, _ = read(b.store, endpoints.GetAnnouncements(hid), track)
	next.Mood, _ = read(b.store, endpoints.GetMyMood(), track)
	if itemsFor > 0 {
		next.Items, _ = read(b.store, endpoints.GetShoppingItems(itemsFor), track)
	}

	b.mu.Lock()
	next.Revision = b.board.Revision + 1
	b.board = next
	b.mu.Unlock()

	select {
	case b.changes <- struct{}{}:
	default:
	}
}

func read[T any](s *querycache.Store, q endpoints.Query[T], track func(querycache.Snapshot)) (T, bool) {
	snap, ok := s.Peek(q.Key())
	if !ok {
		var zero T
		return zero, false
	}
	track(snap)
	return querycache.Value[T](snap)
}
