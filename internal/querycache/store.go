package querycache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultGCDelay is how long an unsubscribed entry is kept.
	DefaultGCDelay = 60 * time.Second
	// DefaultMaxIdle bounds the number of unsubscribed entries kept.
	DefaultMaxIdle = 256

	defaultFetchTimeout = 30 * time.Second
	minSweepInterval    = 100 * time.Millisecond
)

var errEvicted = errors.New("entry evicted before fetch")

// Def describes one query: its key, how to load it and which tags a result
// provides. Provides receives nil when the load failed.
type Def struct {
	Key      Key
	Load     func(ctx context.Context) (any, error)
	Provides func(value any) []Tag
}

func (d Def) tags(value any) []Tag {
	if d.Provides == nil {
		return nil
	}
	return d.Provides(value)
}

// Options configures a Store. Zero values select defaults.
type Options struct {
	GCDelay      time.Duration
	MaxIdle      int
	FetchTimeout time.Duration
	Now          func() time.Time
	Logger       *zerolog.Logger
	Observer     Observer
}

type entry struct {
	key       Key
	def       Def
	base      any
	value     any
	status    Status
	err       error
	fetchedAt time.Time
	subs      map[uint64]chan struct{}
	fetching  bool
	stale     bool
	epoch     uint64
	idleSince time.Time
	layers    []*layer
}

func (e *entry) notify() {
	for _, ch := range e.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// missing reports a failed load that left nothing to show.
func (e *entry) missing() bool {
	return e.status == StatusError && e.value == nil
}

func (e *entry) snapshot() Snapshot {
	pending := 0
	for _, l := range e.layers {
		if !l.committed {
			pending++
		}
	}
	return Snapshot{
		Key:           e.key,
		Value:         e.value,
		Status:        e.status,
		Err:           e.err,
		LastFetchedAt: e.fetchedAt,
		Subscribers:   len(e.subs),
		Fetching:      e.fetching,
		Stale:         e.stale,
		Pending:       pending,
	}
}

// Store is the process-wide query cache. It is safe for concurrent use; all
// reads and writes of entries happen under one mutex, network loads happen
// outside it.
type Store struct {
	mu        sync.Mutex
	entries   map[Key]*entry
	tags      *tagIndex
	idle      *simplelru.LRU[Key, struct{}]
	flight    singleflight.Group
	nextSub   uint64
	nextLayer uint64

	ctx          context.Context
	cancel       context.CancelFunc
	gcDelay      time.Duration
	fetchTimeout time.Duration
	now          func() time.Time
	log          zerolog.Logger
	obs          Observer
}

// New builds a Store. Call Close to stop background work.
func New(opts Options) *Store {
	s := &Store{
		entries:      make(map[Key]*entry),
		tags:         newTagIndex(),
		gcDelay:      opts.GCDelay,
		fetchTimeout: opts.FetchTimeout,
		now:          opts.Now,
		obs:          opts.Observer,
	}
	if s.gcDelay <= 0 {
		s.gcDelay = DefaultGCDelay
	}
	if s.fetchTimeout <= 0 {
		s.fetchTimeout = defaultFetchTimeout
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.obs == nil {
		s.obs = NoopObserver{}
	}
	if opts.Logger != nil {
		s.log = opts.Logger.With().Str("component", "querycache").Logger()
	} else {
		s.log = zerolog.Nop()
	}
	maxIdle := opts.MaxIdle
	if maxIdle <= 0 {
		maxIdle = DefaultMaxIdle
	}
	// The eviction callback runs synchronously inside idle.Add/Remove, which
	// are only called with s.mu held.
	idle, err := simplelru.NewLRU[Key, struct{}](maxIdle, s.onIdleEvicted)
	if err != nil {
		panic(err) // only fails for a non-positive size
	}
	s.idle = idle
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s
}

// Close cancels background fetches and stops the janitor.
func (s *Store) Close() {
	s.cancel()
}

// Read returns the current state of def's entry without blocking. A missing
// or stale entry starts a background fetch; concurrent reads share it.
func (s *Store) Read(def Def) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.ensure(def)
	s.maybeFetch(e)
	return e.snapshot()
}

// Peek returns the entry for key without creating it or fetching.
func (s *Store) Peek(key Key) (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return Snapshot{Key: key}, false
	}
	return e.snapshot(), true
}

// Fetch loads def and waits for the result. It joins an in-flight load for
// the same key instead of issuing a second request. Cancelling ctx stops the
// wait, not the load.
func (s *Store) Fetch(ctx context.Context, def Def) (Snapshot, error) {
	if s.ctx.Err() != nil {
		return Snapshot{Key: def.Key}, ErrClosed
	}
	s.mu.Lock()
	e := s.ensure(def)
	s.markFetching(e)
	s.mu.Unlock()

	ch := s.flight.DoChan(def.Key.String(), func() (any, error) {
		return s.load(def.Key)
	})
	select {
	case <-ctx.Done():
		snap, _ := s.Peek(def.Key)
		return snap, ctx.Err()
	case res := <-ch:
		again, _ := res.Val.(bool)
		if again {
			s.refetchIfWanted(def.Key)
		}
		snap, ok := s.Peek(def.Key)
		if res.Err != nil {
			if ok && snap.Err != nil {
				return snap, snap.Err
			}
			return snap, res.Err
		}
		return snap, nil
	}
}

// Write replaces the confirmed value of key with fn applied to a copy of it.
// Pending optimistic patches are re-applied on top. It reports false when the
// entry holds no value.
func (s *Store) Write(key Key, fn func(any) any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok || e.base == nil {
		return false
	}
	c, err := clone(e.base)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key.String()).Msg("write skipped")
		return false
	}
	e.base = fn(c)
	s.replay(e, e.base, false)
	e.notify()
	return true
}

// Provide replaces the tag set attached to key.
func (s *Store) Provide(key Key, tags []Tag) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[key]; !ok {
		return
	}
	s.tags.provide(key, tags)
}

// Tags returns the tags currently attached to key.
func (s *Store) Tags(key Key) []Tag {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tags.tagsOf(key)
}

// Invalidate marks every entry carrying any of tags as stale and refetches
// the subscribed ones in the background. Unsubscribed entries refetch on
// their next read. It returns the affected keys.
func (s *Store) Invalidate(tags ...Tag) []Key {
	if len(tags) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := s.tags.match(tags)
	for _, k := range keys {
		e := s.entries[k]
		if e == nil {
			continue
		}
		e.stale = true
		e.epoch++
		s.obs.Invalidated(k.Endpoint)
		if len(e.subs) > 0 {
			s.maybeFetch(e)
		}
		e.notify()
	}
	if len(keys) > 0 {
		s.log.Debug().Int("entries", len(keys)).Strs("tags", tagStrings(tags)).Msg("invalidated")
	}
	return keys
}

// Subscription keeps an entry alive and delivers change notifications on C.
// Notifications coalesce: one pending signal stands for any number of changes.
type Subscription struct {
	C     <-chan struct{}
	key   Key
	id    uint64
	store *Store
	once  sync.Once
}

// Key returns the subscribed entry's key.
func (sub *Subscription) Key() Key { return sub.key }

// Subscribe registers interest in def and starts a fetch if needed. Pass a
// shared buffered channel as notify to fan several subscriptions into one
// signal, or nil to get a fresh one.
func (s *Store) Subscribe(def Def, notify chan struct{}) *Subscription {
	if notify == nil {
		notify = make(chan struct{}, 1)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.ensure(def)
	s.nextSub++
	id := s.nextSub
	e.subs[id] = notify
	if len(e.subs) == 1 {
		e.idleSince = time.Time{}
		s.idle.Remove(e.key)
	}
	s.maybeFetch(e)
	return &Subscription{C: notify, key: def.Key, id: id, store: s}
}

// Unsubscribe releases the subscription. The entry is collected once it has
// been idle for the GC delay. Safe to call more than once.
func (sub *Subscription) Unsubscribe() {
	if sub == nil {
		return
	}
	sub.once.Do(func() {
		s := sub.store
		s.mu.Lock()
		defer s.mu.Unlock()
		e, ok := s.entries[sub.key]
		if !ok {
			return
		}
		delete(e.subs, sub.id)
		if len(e.subs) == 0 {
			s.markIdle(e)
		}
	})
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep removes entries that have had no subscribers for the GC delay and no
// pending patches. It returns the number removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for _, k := range s.idle.Keys() {
		e := s.entries[k]
		if e == nil {
			s.idle.Remove(k)
			continue
		}
		if !s.collectable(e) || now.Sub(e.idleSince) < s.gcDelay {
			continue
		}
		s.remove(k, EvictExpired)
		removed++
	}
	if removed > 0 {
		s.log.Debug().Int("removed", removed).Int("remaining", len(s.entries)).Msg("gc sweep")
	}
	return removed
}

// StartJanitor sweeps idle entries until ctx is done or the store is closed.
func (s *Store) StartJanitor(ctx context.Context) {
	interval := s.gcDelay / 2
	if interval < minSweepInterval {
		interval = minSweepInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.Sweep()
			}
		}
	}()
}

// ensure returns def's entry, creating it idle. Callers hold s.mu.
func (s *Store) ensure(def Def) *entry {
	e, ok := s.entries[def.Key]
	if ok {
		if def.Load != nil {
			e.def = def
		}
		s.obs.Hit(def.Key.Endpoint)
		return e
	}
	e = &entry{
		key:  def.Key,
		def:  def,
		subs: make(map[uint64]chan struct{}),
	}
	s.entries[def.Key] = e
	s.obs.Miss(def.Key.Endpoint)
	s.markIdle(e)
	return e
}

func (s *Store) maybeFetch(e *entry) {
	if e.fetching || e.def.Load == nil {
		return
	}
	if e.status != StatusUninitialized && !e.stale && !e.missing() {
		return
	}
	s.markFetching(e)
	go s.runFetch(e.key)
}

func (s *Store) markFetching(e *entry) {
	if e.fetching {
		return
	}
	e.fetching = true
	if e.value == nil {
		e.status = StatusLoading
	}
	e.notify()
}

func (s *Store) runFetch(key Key) {
	res, _, _ := s.flight.Do(key.String(), func() (any, error) {
		return s.load(key)
	})
	if again, _ := res.(bool); again {
		s.refetchIfWanted(key)
	}
}

// refetchIfWanted restarts a fetch for an entry invalidated while its
// previous load was in flight.
func (s *Store) refetchIfWanted(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok || len(e.subs) == 0 {
		return
	}
	s.maybeFetch(e)
}

// load runs the entry's loader outside the lock and stores the result. The
// returned bool asks the caller to fetch again.
func (s *Store) load(key Key) (any, error) {
	s.mu.Lock()
	e, ok := s.entries[key]
	if !ok {
		s.mu.Unlock()
		return false, errEvicted
	}
	def := e.def
	epoch := e.epoch
	e.fetching = true
	s.mu.Unlock()

	if def.Load == nil {
		return false, errors.New("query " + key.Endpoint + " has no loader")
	}
	ctx, cancel := context.WithTimeout(s.ctx, s.fetchTimeout)
	defer cancel()
	value, err := def.Load(ctx)
	again := s.complete(key, def, epoch, value, err)
	return again, err
}

func (s *Store) complete(key Key, def Def, epoch uint64, value any, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.obs.Fetched(key.Endpoint, err)
	e, ok := s.entries[key]
	if !ok {
		return false
	}
	e.fetching = false
	defer e.notify()
	defer s.trackIdle(e)

	if err != nil {
		e.status = StatusError
		if e.value != nil {
			e.err = &StaleReadError{Key: key, Err: err}
		} else {
			e.err = err
		}
		if _, tagged := s.tags.byKey[key]; !tagged {
			s.tags.provide(key, def.tags(nil))
		}
		s.log.Warn().Err(err).Str("key", key.String()).Bool("has_value", e.value != nil).Msg("fetch failed")
		if e.epoch != epoch {
			e.stale = true
			return len(e.subs) > 0
		}
		return false
	}

	e.status = StatusSuccess
	e.err = nil
	e.fetchedAt = s.now()
	s.tags.provide(key, def.tags(value))
	e.base = value
	s.replay(e, value, true)
	if e.epoch != epoch {
		e.stale = true
		return len(e.subs) > 0
	}
	e.stale = false
	return false
}

// markIdle records when e lost its last subscriber. Callers hold s.mu.
func (s *Store) markIdle(e *entry) {
	e.idleSince = s.now()
	s.idle.Add(e.key, struct{}{})
}

// trackIdle puts an unsubscribed entry back under GC once whatever kept it
// alive has settled.
func (s *Store) trackIdle(e *entry) {
	if len(e.subs) > 0 || s.idle.Contains(e.key) {
		return
	}
	if e.idleSince.IsZero() {
		e.idleSince = s.now()
	}
	s.idle.Add(e.key, struct{}{})
}

func (s *Store) collectable(e *entry) bool {
	return len(e.subs) == 0 && len(e.layers) == 0 && !e.fetching
}

// onIdleEvicted runs inside idle.Add/Remove with s.mu held; it must not lock.
func (s *Store) onIdleEvicted(key Key, _ struct{}) {
	e, ok := s.entries[key]
	if !ok || !s.collectable(e) {
		return
	}
	s.remove(key, EvictCapacity)
}

func (s *Store) remove(key Key, reason string) {
	delete(s.entries, key)
	s.tags.drop(key)
	s.idle.Remove(key)
	s.obs.Evicted(key.Endpoint, reason)
	s.log.Debug().Str("key", key.String()).Str("reason", reason).Msg("entry removed")
}

func tagStrings(tags []Tag) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = t.String()
	}
	return out
}
