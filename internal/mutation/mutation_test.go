package mutation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Risclover/toby/internal/querycache"
)

const noteType querycache.EntityType = "Note"

type note struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
	Done bool   `json:"done"`
}

type recorder struct {
	mu      sync.Mutex
	settled []State
}

func (r *recorder) Settled(_ string, s State, _ time.Duration) {
	r.mu.Lock()
	r.settled = append(r.settled, s)
	r.mu.Unlock()
}

func seededStore(t *testing.T, n note) (*querycache.Store, querycache.Key, *int) {
	t.Helper()
	s := querycache.New(querycache.Options{})
	t.Cleanup(s.Close)
	loads := 0
	var mu sync.Mutex
	def := querycache.Def{
		Key: querycache.NewKey("getNote", n.ID),
		Load: func(context.Context) (any, error) {
			mu.Lock()
			loads++
			mu.Unlock()
			return n, nil
		},
		Provides: func(any) []querycache.Tag { return []querycache.Tag{querycache.EntityTag(noteType, n.ID)} },
	}
	_, err := s.Fetch(context.Background(), def)
	require.NoError(t, err)
	return s, def.Key, &loads
}

func current(t *testing.T, s *querycache.Store, key querycache.Key) note {
	t.Helper()
	snap, ok := s.Peek(key)
	require.True(t, ok)
	v, ok := querycache.Value[note](snap)
	require.True(t, ok)
	return v
}

func markDone(key querycache.Key) querycache.Patch {
	return querycache.PatchOf[note](key, func(n *note) { n.Done = true })
}

func TestRun_PatchIsVisibleBeforeRequestResolves(t *testing.T) {
	s, key, _ := seededStore(t, note{ID: 1, Text: "a"})
	o := New(s)

	_, out, err := Run(context.Background(), o, Spec[struct{}]{
		Name:    "complete",
		Patches: []querycache.Patch{markDone(key)},
		Request: func(context.Context) (struct{}, error) {
			assert.True(t, current(t, s, key).Done, "optimistic value visible during request")
			assert.Equal(t, 1, o.InFlight())
			return struct{}{}, nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, Committed, out.State)
	assert.Equal(t, 1, out.Patched)
	assert.NotEmpty(t, out.ID)
	assert.Equal(t, 0, o.InFlight())
	assert.True(t, current(t, s, key).Done)
}

func TestRun_FailureRollsBackAndSkipsInvalidation(t *testing.T) {
	s, key, _ := seededStore(t, note{ID: 1, Text: "a"})
	obs := &recorder{}
	o := New(s, WithObserver(obs))
	boom := errors.New("connection refused")
	invalidated := false

	_, out, err := Run(context.Background(), o, Spec[struct{}]{
		Name:    "complete",
		Patches: []querycache.Patch{markDone(key)},
		Request: func(context.Context) (struct{}, error) { return struct{}{}, boom },
		Invalidates: func(struct{}) []querycache.Tag {
			invalidated = true
			return nil
		},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "complete")
	assert.Equal(t, RolledBack, out.State)
	assert.False(t, invalidated)
	assert.Equal(t, note{ID: 1, Text: "a"}, current(t, s, key))
	assert.Equal(t, []State{RolledBack}, obs.settled)
}

func TestRun_CommitInvalidatesReturnedTags(t *testing.T) {
	s, key, _ := seededStore(t, note{ID: 1, Text: "a"})
	o := New(s)

	_, out, err := Run(context.Background(), o, Spec[int64]{
		Name:    "rename",
		Request: func(context.Context) (int64, error) { return 1, nil },
		Invalidates: func(id int64) []querycache.Tag {
			return []querycache.Tag{querycache.EntityTag(noteType, id)}
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Invalidated)
	snap, _ := s.Peek(key)
	assert.True(t, snap.Stale)
}

func TestRun_ReconcileWritesConfirmedValue(t *testing.T) {
	s, key, _ := seededStore(t, note{ID: 1, Text: "a"})
	o := New(s)

	_, _, err := Run(context.Background(), o, Spec[note]{
		Name: "rename",
		Patches: []querycache.Patch{
			querycache.PatchOf[note](key, func(n *note) { n.Text = "optimistic" }),
		},
		Request: func(context.Context) (note, error) { return note{ID: 1, Text: "server"}, nil },
		Reconcile: func(n note) []querycache.Patch {
			return []querycache.Patch{querycache.PatchOf[note](key, func(cur *note) { cur.Text = n.Text })}
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "server", current(t, s, key).Text)
	snap, _ := s.Peek(key)
	assert.Equal(t, 0, snap.Pending)
}

func TestRun_MissingEntryPatchIsNoop(t *testing.T) {
	s, _, _ := seededStore(t, note{ID: 1})
	o := New(s)

	_, out, err := Run(context.Background(), o, Spec[struct{}]{
		Name:    "complete",
		Patches: []querycache.Patch{markDone(querycache.NewKey("getNote", 99))},
		Request: func(context.Context) (struct{}, error) { return struct{}{}, errors.New("nope") },
	})
	require.Error(t, err)
	assert.Equal(t, 0, out.Patched)
	assert.Equal(t, 1, s.Len())
}

func TestRun_ConcurrentMutationFailureLeavesOtherPatch(t *testing.T) {
	s, key, _ := seededStore(t, note{ID: 1, Text: "a"})
	o := New(s)

	release := make(chan struct{})
	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, _, err := Run(context.Background(), o, Spec[struct{}]{
			Name:    "rename",
			Patches: []querycache.Patch{querycache.PatchOf[note](key, func(n *note) { n.Text = "b" })},
			Request: func(context.Context) (struct{}, error) {
				close(started)
				<-release
				return struct{}{}, nil
			},
		})
		done <- err
	}()
	<-started

	_, _, err := Run(context.Background(), o, Spec[struct{}]{
		Name:    "complete",
		Patches: []querycache.Patch{markDone(key)},
		Request: func(context.Context) (struct{}, error) { return struct{}{}, errors.New("rejected") },
	})
	require.Error(t, err)
	assert.Equal(t, note{ID: 1, Text: "b"}, current(t, s, key))

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, note{ID: 1, Text: "b"}, current(t, s, key))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "pending", Pending.String())
	assert.Equal(t, "committed", Committed.String())
	assert.Equal(t, "rolled_back", RolledBack.String())
}
