package querycache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seeded(t *testing.T, items ...string) (*Store, *loader, Key) {
	t.Helper()
	s := newTestStore(t, Options{})
	l := &loader{}
	l.push(testList{ID: 1, Items: items}, nil)
	def := listDef(1, l)
	_, err := s.Fetch(context.Background(), def)
	require.NoError(t, err)
	return s, l, def.Key
}

func appendItem(key Key, item string) Patch {
	return PatchOf[testList](key, func(v *testList) { v.Items = append(v.Items, item) })
}

func items(t *testing.T, s *Store, key Key) []string {
	t.Helper()
	snap, ok := s.Peek(key)
	require.True(t, ok)
	v, ok := Value[testList](snap)
	require.True(t, ok)
	return v.Items
}

func TestPatchSet_RollbackRestoresExactValue(t *testing.T) {
	s, _, key := seeded(t, "a", "b")
	before, _ := s.Peek(key)

	ps := s.ApplyPatches(
		PatchOf[testList](key, func(v *testList) { v.Items[0], v.Items[1] = v.Items[1], v.Items[0] }),
		appendItem(key, "c"),
	)
	assert.Equal(t, 2, ps.Len())
	assert.Equal(t, []string{"b", "a", "c"}, items(t, s, key))
	assert.Equal(t, []string{"a", "b"}, before.Value.(testList).Items, "held snapshot is never written in place")

	ps.Rollback()
	after, _ := s.Peek(key)
	assert.Equal(t, before.Value, after.Value)
	assert.Equal(t, 0, after.Pending)

	ps.Rollback()
	ps.Commit()
	assert.Equal(t, []string{"a", "b"}, items(t, s, key), "settling twice is a no-op")
}

func TestPatchSet_CommitKeepsValue(t *testing.T) {
	s, _, key := seeded(t, "a")
	ps := s.ApplyPatches(appendItem(key, "b"))
	snap, _ := s.Peek(key)
	assert.Equal(t, 1, snap.Pending)

	ps.Commit()
	snap, _ = s.Peek(key)
	assert.Equal(t, 0, snap.Pending)
	assert.Equal(t, []string{"a", "b"}, items(t, s, key))
}

func TestPatchSet_MissingEntryIsNoop(t *testing.T) {
	s := newTestStore(t, Options{})
	missing := NewKey("getList", 99)

	ps := s.ApplyPatches(appendItem(missing, "x"))
	assert.Equal(t, 0, ps.Len())
	assert.Equal(t, 0, s.Len())
	ps.Rollback()
	assert.Equal(t, 0, s.Len())
}

func TestPatchSet_RacingMutationsUndoInReverseOrder(t *testing.T) {
	s, _, key := seeded(t, "a")

	first := s.ApplyPatches(appendItem(key, "1"))
	second := s.ApplyPatches(appendItem(key, "2"))
	assert.Equal(t, []string{"a", "1", "2"}, items(t, s, key))

	second.Rollback()
	assert.Equal(t, []string{"a", "1"}, items(t, s, key))
	first.Rollback()
	assert.Equal(t, []string{"a"}, items(t, s, key))
}

func TestPatchSet_RollbackOfEarlierMutationKeepsLaterOne(t *testing.T) {
	s, _, key := seeded(t, "a")

	first := s.ApplyPatches(appendItem(key, "1"))
	second := s.ApplyPatches(appendItem(key, "2"))

	first.Rollback()
	assert.Equal(t, []string{"a", "2"}, items(t, s, key))

	second.Commit()
	assert.Equal(t, []string{"a", "2"}, items(t, s, key))
	snap, _ := s.Peek(key)
	assert.Equal(t, 0, snap.Pending)
}

func TestPatchSet_CommittedLayerSurvivesRollbackBelowIt(t *testing.T) {
	s, _, key := seeded(t, "a")

	first := s.ApplyPatches(appendItem(key, "1"))
	second := s.ApplyPatches(appendItem(key, "2"))
	second.Commit()

	first.Rollback()
	assert.Equal(t, []string{"a", "2"}, items(t, s, key))
}

func TestPatchSet_RefetchBecomesNewBase(t *testing.T) {
	s, l, key := seeded(t, "a")

	ps := s.ApplyPatches(appendItem(key, "opt"))

	l.mu.Lock()
	l.responses = []response{{value: testList{ID: 1, Items: []string{"a", "server"}}}}
	l.mu.Unlock()
	_, err := s.Fetch(context.Background(), listDef(1, l))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "server", "opt"}, items(t, s, key))

	ps.Rollback()
	assert.Equal(t, []string{"a", "server"}, items(t, s, key))
}

func TestPatchSet_RefetchDropsCommittedLayers(t *testing.T) {
	s, l, key := seeded(t, "a")

	pending := s.ApplyPatches(appendItem(key, "p"))
	committed := s.ApplyPatches(appendItem(key, "c"))
	committed.Commit()

	l.mu.Lock()
	l.responses = []response{{value: testList{ID: 1, Items: []string{"a", "c"}}}}
	l.mu.Unlock()
	_, err := s.Fetch(context.Background(), listDef(1, l))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c", "p"}, items(t, s, key))

	pending.Rollback()
	assert.Equal(t, []string{"a", "c"}, items(t, s, key))
}

func TestPatchSet_NotifiesSubscribersOnApplyAndRollback(t *testing.T) {
	s, l, key := seeded(t, "a")
	sub := s.Subscribe(listDef(1, l), nil)
	t.Cleanup(sub.Unsubscribe)
	drain(sub)

	ps := s.ApplyPatches(appendItem(key, "x"))
	assertSignalled(t, sub)
	ps.Rollback()
	assertSignalled(t, sub)
}

func drain(sub *Subscription) {
	for {
		select {
		case <-sub.C:
		default:
			return
		}
	}
}

func assertSignalled(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case <-sub.C:
	default:
		t.Fatal("expected a notification")
	}
}
