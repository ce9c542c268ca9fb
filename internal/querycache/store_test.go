package querycache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const itemType EntityType = "Item"

type testList struct {
	ID    int64    `json:"id"`
	Items []string `json:"items"`
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// loader serves queued responses and counts calls. A non-nil gate blocks
// every call until it is closed.
type loader struct {
	mu        sync.Mutex
	calls     atomic.Int32
	responses []response
	gate      chan struct{}
}

type response struct {
	value any
	err   error
}

func (l *loader) push(value any, err error) {
	l.mu.Lock()
	l.responses = append(l.responses, response{value: value, err: err})
	l.mu.Unlock()
}

func (l *loader) load(ctx context.Context) (any, error) {
	l.calls.Add(1)
	l.mu.Lock()
	gate := l.gate
	l.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.responses) == 0 {
		return nil, errors.New("no response queued")
	}
	r := l.responses[0]
	if len(l.responses) > 1 {
		l.responses = l.responses[1:]
	}
	return r.value, r.err
}

func listDef(id int64, l *loader) Def {
	return Def{
		Key:  NewKey("getList", id),
		Load: l.load,
		Provides: func(v any) []Tag {
			tags := []Tag{EntityTag(itemType, id)}
			if list, ok := v.(testList); ok {
				for i := range list.Items {
					tags = append(tags, BucketTag(itemType, list.Items[i]))
				}
			}
			return tags
		},
	}
}

func newTestStore(t *testing.T, opts Options) *Store {
	t.Helper()
	s := New(opts)
	t.Cleanup(s.Close)
	return s
}

func TestStore_ConcurrentReadsShareOneRequest(t *testing.T) {
	s := newTestStore(t, Options{})
	l := &loader{gate: make(chan struct{})}
	l.push(testList{ID: 1, Items: []string{"a"}}, nil)
	def := listDef(1, l)

	first := s.Read(def)
	second := s.Read(def)
	sub := s.Subscribe(def, nil)
	t.Cleanup(sub.Unsubscribe)
	assert.Equal(t, StatusLoading, first.Status)
	assert.True(t, second.Fetching)

	close(l.gate)
	require.Eventually(t, func() bool {
		snap, _ := s.Peek(def.Key)
		return snap.Status == StatusSuccess
	}, time.Second, 5*time.Millisecond)

	snap := s.Read(def)
	assert.Equal(t, testList{ID: 1, Items: []string{"a"}}, snap.Value)
	assert.False(t, snap.Fetching, "fresh entry is not refetched on read")
	assert.EqualValues(t, 1, l.calls.Load())
}

func TestStore_FetchJoinsInFlightLoad(t *testing.T) {
	s := newTestStore(t, Options{})
	l := &loader{gate: make(chan struct{})}
	l.push(testList{ID: 1}, nil)
	def := listDef(1, l)

	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := s.Fetch(context.Background(), def)
			results <- err
		}()
	}
	// Both waiters are parked on the same flight before the gate opens.
	require.Eventually(t, func() bool { return l.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(l.gate)

	require.NoError(t, <-results)
	require.NoError(t, <-results)
	assert.EqualValues(t, 1, l.calls.Load())
}

func TestStore_FailedRefetchKeepsLastValue(t *testing.T) {
	s := newTestStore(t, Options{})
	l := &loader{}
	l.push(testList{ID: 1, Items: []string{"a"}}, nil)
	def := listDef(1, l)

	_, err := s.Fetch(context.Background(), def)
	require.NoError(t, err)

	l.mu.Lock()
	l.responses = []response{{err: errors.New("connection refused")}}
	l.mu.Unlock()

	snap, err := s.Fetch(context.Background(), def)
	require.Error(t, err)
	assert.True(t, IsStale(err))
	assert.Equal(t, StatusError, snap.Status)
	assert.Equal(t, testList{ID: 1, Items: []string{"a"}}, snap.Value)
	assert.True(t, IsStale(snap.Err))
}

func TestStore_FirstFailureIsNotStale(t *testing.T) {
	s := newTestStore(t, Options{})
	l := &loader{}
	l.push(nil, errors.New("boom"))

	snap, err := s.Fetch(context.Background(), listDef(1, l))
	require.Error(t, err)
	assert.False(t, IsStale(err))
	assert.False(t, snap.HasValue())
	assert.Equal(t, []Tag{EntityTag(itemType, 1)}, s.Tags(snap.Key))
}

func TestStore_MissingValueIsFetchedAgain(t *testing.T) {
	s := newTestStore(t, Options{})
	l := &loader{}
	l.push(nil, errors.New("connection refused"))
	l.push(testList{ID: 1, Items: []string{"a"}}, nil)
	def := listDef(1, l)

	s.Read(def)
	require.Eventually(t, func() bool {
		snap, _ := s.Peek(def.Key)
		return snap.Status == StatusError && !snap.Fetching
	}, time.Second, 5*time.Millisecond)
	assert.EqualValues(t, 1, l.calls.Load())

	sub := s.Subscribe(def, nil)
	t.Cleanup(sub.Unsubscribe)

	require.Eventually(t, func() bool {
		snap, _ := s.Peek(def.Key)
		return snap.Status == StatusSuccess && snap.HasValue()
	}, time.Second, 5*time.Millisecond)
	assert.EqualValues(t, 2, l.calls.Load())

	// A settled value is not fetched again by a plain read.
	s.Read(def)
	assert.EqualValues(t, 2, l.calls.Load())
}

func TestStore_TagsAreRecomputedOnEachFetch(t *testing.T) {
	s := newTestStore(t, Options{})
	l := &loader{}
	l.push(testList{ID: 1, Items: []string{"a", "b"}}, nil)
	def := listDef(1, l)

	_, err := s.Fetch(context.Background(), def)
	require.NoError(t, err)
	assert.ElementsMatch(t, []Tag{EntityTag(itemType, 1), BucketTag(itemType, "a"), BucketTag(itemType, "b")}, s.Tags(def.Key))

	l.mu.Lock()
	l.responses = []response{{value: testList{ID: 1, Items: []string{"c"}}}}
	l.mu.Unlock()
	_, err = s.Fetch(context.Background(), def)
	require.NoError(t, err)

	assert.ElementsMatch(t, []Tag{EntityTag(itemType, 1), BucketTag(itemType, "c")}, s.Tags(def.Key))
	assert.Empty(t, s.Invalidate(BucketTag(itemType, "a")))
	assert.Equal(t, []Key{def.Key}, s.Invalidate(BucketTag(itemType, "c")))
}

func TestStore_InvalidateRefetchesOnlySubscribedEntries(t *testing.T) {
	s := newTestStore(t, Options{})
	watched := &loader{}
	watched.push(testList{ID: 1}, nil)
	idle := &loader{}
	idle.push(testList{ID: 2}, nil)

	sub := s.Subscribe(listDef(1, watched), nil)
	t.Cleanup(sub.Unsubscribe)
	_, err := s.Fetch(context.Background(), listDef(2, idle))
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		snap, _ := s.Peek(sub.Key())
		return snap.Status == StatusSuccess
	}, time.Second, 5*time.Millisecond)
	before := watched.calls.Load()

	keys := s.Invalidate(TypeTag(itemType))
	assert.Len(t, keys, 2)

	require.Eventually(t, func() bool { return watched.calls.Load() == before+1 }, time.Second, 5*time.Millisecond)
	assert.EqualValues(t, 1, idle.calls.Load())

	snap, ok := s.Peek(listDef(2, idle).Key)
	require.True(t, ok)
	assert.True(t, snap.Stale)

	// The next read of a stale idle entry refetches it.
	s.Read(listDef(2, idle))
	require.Eventually(t, func() bool { return idle.calls.Load() == 2 }, time.Second, 5*time.Millisecond)
}

func TestStore_InvalidateDuringFetchFetchesAgain(t *testing.T) {
	s := newTestStore(t, Options{})
	l := &loader{gate: make(chan struct{})}
	l.push(testList{ID: 1}, nil)
	def := listDef(1, l)

	// Tags exist only after a first fetch, so seed them.
	s.Read(Def{Key: def.Key})
	s.Provide(def.Key, []Tag{EntityTag(itemType, 1)})

	sub := s.Subscribe(def, nil)
	t.Cleanup(sub.Unsubscribe)
	require.Eventually(t, func() bool { return l.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	s.Invalidate(EntityTag(itemType, 1))
	close(l.gate)

	require.Eventually(t, func() bool { return l.calls.Load() == 2 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		snap, _ := s.Peek(def.Key)
		return snap.Status == StatusSuccess && !snap.Stale && !snap.Fetching
	}, time.Second, 5*time.Millisecond)
}

func TestStore_FailedFetchAfterInvalidateFetchesAgain(t *testing.T) {
	s := newTestStore(t, Options{})
	l := &loader{}
	l.push(testList{ID: 1, Items: []string{"a"}}, nil)
	def := listDef(1, l)
	_, err := s.Fetch(context.Background(), def)
	require.NoError(t, err)

	gate := make(chan struct{})
	l.mu.Lock()
	l.gate = gate
	l.responses = []response{{err: errors.New("timeout")}, {value: testList{ID: 1, Items: []string{"b"}}}}
	l.mu.Unlock()

	sub := s.Subscribe(def, nil)
	t.Cleanup(sub.Unsubscribe)
	s.Invalidate(EntityTag(itemType, 1))
	require.Eventually(t, func() bool { return l.calls.Load() == 2 }, time.Second, 5*time.Millisecond)

	// The in-flight load predates this invalidation and then fails.
	s.Invalidate(EntityTag(itemType, 1))
	close(gate)

	require.Eventually(t, func() bool { return l.calls.Load() == 3 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		snap, _ := s.Peek(def.Key)
		return snap.Status == StatusSuccess && !snap.Stale && !snap.Fetching
	}, time.Second, 5*time.Millisecond)
	snap, _ := s.Peek(def.Key)
	assert.Equal(t, testList{ID: 1, Items: []string{"b"}}, snap.Value)
}

func TestStore_SubscribersAreNotified(t *testing.T) {
	s := newTestStore(t, Options{})
	l := &loader{}
	l.push(testList{ID: 1}, nil)

	sub := s.Subscribe(listDef(1, l), nil)
	t.Cleanup(sub.Unsubscribe)

	deadline := time.After(time.Second)
	for {
		select {
		case <-sub.C:
			snap, _ := s.Peek(sub.Key())
			if snap.Status == StatusSuccess {
				return
			}
		case <-deadline:
			t.Fatal("no notification for completed fetch")
		}
	}
}

func TestStore_SweepCollectsIdleEntriesAfterDelay(t *testing.T) {
	clock := newFakeClock()
	s := newTestStore(t, Options{GCDelay: time.Minute, Now: clock.Now})
	l := &loader{}
	l.push(testList{ID: 1}, nil)

	_, err := s.Fetch(context.Background(), listDef(1, l))
	require.NoError(t, err)

	sub := s.Subscribe(listDef(2, l), nil)
	require.Eventually(t, func() bool {
		snap, _ := s.Peek(sub.Key())
		return !snap.Fetching
	}, time.Second, 5*time.Millisecond)

	clock.Advance(30 * time.Second)
	assert.Equal(t, 0, s.Sweep())

	clock.Advance(31 * time.Second)
	assert.Equal(t, 1, s.Sweep())
	assert.Equal(t, 1, s.Len(), "subscribed entry survives")

	sub.Unsubscribe()
	sub.Unsubscribe()
	assert.Equal(t, 0, s.Sweep(), "delay restarts on unsubscribe")
	clock.Advance(time.Minute)
	assert.Equal(t, 1, s.Sweep())
	assert.Equal(t, 0, s.Len())
}

func TestStore_PendingPatchesBlockCollection(t *testing.T) {
	clock := newFakeClock()
	s := newTestStore(t, Options{GCDelay: time.Minute, Now: clock.Now})
	l := &loader{}
	l.push(testList{ID: 1}, nil)
	def := listDef(1, l)
	_, err := s.Fetch(context.Background(), def)
	require.NoError(t, err)

	ps := s.ApplyPatches(PatchOf[testList](def.Key, func(v *testList) { v.Items = append(v.Items, "x") }))
	clock.Advance(2 * time.Minute)
	assert.Equal(t, 0, s.Sweep())

	ps.Commit()
	assert.Equal(t, 1, s.Sweep())
}

func TestStore_IdleEntriesAreBounded(t *testing.T) {
	s := newTestStore(t, Options{MaxIdle: 2})
	l := &loader{}
	l.push(testList{ID: 1}, nil)

	for id := int64(1); id <= 3; id++ {
		_, err := s.Fetch(context.Background(), listDef(id, l))
		require.NoError(t, err)
	}
	assert.Equal(t, 2, s.Len())
	_, ok := s.Peek(listDef(1, l).Key)
	assert.False(t, ok, "oldest idle entry evicted")
}

func TestStore_WriteKeepsPendingPatchesOnTop(t *testing.T) {
	s := newTestStore(t, Options{})
	l := &loader{}
	l.push(testList{ID: 1, Items: []string{"a"}}, nil)
	def := listDef(1, l)
	_, err := s.Fetch(context.Background(), def)
	require.NoError(t, err)

	ps := s.ApplyPatches(PatchOf[testList](def.Key, func(v *testList) { v.Items = append(v.Items, "opt") }))
	require.True(t, Update[testList](s, def.Key, func(v *testList) { v.Items = append([]string{"first"}, v.Items...) }))

	snap, _ := s.Peek(def.Key)
	assert.Equal(t, []string{"first", "a", "opt"}, snap.Value.(testList).Items)

	ps.Rollback()
	snap, _ = s.Peek(def.Key)
	assert.Equal(t, []string{"first", "a"}, snap.Value.(testList).Items)

	assert.False(t, Update[testList](s, NewKey("missing", nil), func(*testList) {}))
}

func TestNewKey_SerializesArgs(t *testing.T) {
	assert.Equal(t, "getMyMood", NewKey("getMyMood", nil).String())
	assert.Equal(t, `getTodoList(12)`, NewKey("getTodoList", int64(12)).String())
	assert.Equal(t, NewKey("x", map[string]int{"b": 2, "a": 1}), NewKey("x", map[string]int{"a": 1, "b": 2}))
}
