package querycache

// Patch is one optimistic change to one entry. Fn receives a private copy of
// the current value and returns the patched value.
type Patch struct {
	Key Key
	Fn  func(any) any
}

// layer is an applied patch. before is the exact value the patch was applied
// to; values are never modified in place, so holding the reference is a
// snapshot.
type layer struct {
	id        uint64
	fn        func(any) any
	before    any
	after     any
	committed bool
}

type appliedPatch struct {
	key     Key
	layerID uint64
}

// PatchSet is the group of patches applied by one mutation. Settle it exactly
// once with Commit or Rollback.
type PatchSet struct {
	store   *Store
	applied []appliedPatch
	settled bool
}

// Keys returns the entries that actually received a patch.
func (ps *PatchSet) Keys() []Key {
	out := make([]Key, len(ps.applied))
	for i, a := range ps.applied {
		out[i] = a.key
	}
	return out
}

// Len returns the number of applied patches.
func (ps *PatchSet) Len() int { return len(ps.applied) }

// ApplyPatches applies patches in order under a single lock, so readers see
// either none or all of them. A patch whose entry is missing or has no value
// is skipped; there is nothing to roll back for it.
func (s *Store) ApplyPatches(patches ...Patch) *PatchSet {
	ps := &PatchSet{store: s}
	s.mu.Lock()
	defer s.mu.Unlock()

	touched := make(map[*entry]struct{})
	for _, p := range patches {
		e, ok := s.entries[p.Key]
		if !ok || e.value == nil || p.Fn == nil {
			continue
		}
		next, ok := s.applyFn(p.Fn, e.value, p.Key)
		if !ok {
			continue
		}
		s.nextLayer++
		l := &layer{id: s.nextLayer, fn: p.Fn, before: e.value, after: next}
		e.layers = append(e.layers, l)
		e.value = next
		ps.applied = append(ps.applied, appliedPatch{key: p.Key, layerID: l.id})
		touched[e] = struct{}{}
	}
	for e := range touched {
		e.notify()
	}
	return ps
}

// Commit keeps the patched values. They stay until the next fetch replaces
// them with the server's version.
func (ps *PatchSet) Commit() {
	s := ps.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if ps.settled {
		return
	}
	ps.settled = true
	for _, a := range ps.applied {
		e, ok := s.entries[a.key]
		if !ok {
			continue
		}
		if l := findLayer(e.layers, a.layerID); l >= 0 {
			e.layers[l].committed = true
		}
		s.settle(e)
	}
}

// Rollback undoes the patches in reverse application order. An entry patched
// only by this set returns to its exact pre-patch value.
func (ps *PatchSet) Rollback() {
	s := ps.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if ps.settled {
		return
	}
	ps.settled = true
	touched := make(map[*entry]struct{})
	for i := len(ps.applied) - 1; i >= 0; i-- {
		a := ps.applied[i]
		e, ok := s.entries[a.key]
		if !ok {
			continue
		}
		idx := findLayer(e.layers, a.layerID)
		if idx < 0 {
			continue
		}
		s.dropLayer(e, idx)
		s.settle(e)
		touched[e] = struct{}{}
	}
	for e := range touched {
		e.notify()
	}
}

// dropLayer removes layer idx. The top layer restores its snapshot; a lower
// layer is removed and every later layer is re-applied on its snapshot.
func (s *Store) dropLayer(e *entry, idx int) {
	removed := e.layers[idx]
	rest := append(e.layers[:idx:idx], e.layers[idx+1:]...)
	e.layers = rest
	if idx == len(rest) {
		e.value = removed.before
		return
	}
	cur := removed.before
	for _, l := range rest[idx:] {
		l.before = cur
		if next, ok := s.applyFn(l.fn, cur, e.key); ok {
			cur = next
		}
		l.after = cur
	}
	e.value = cur
}

// settle folds committed layers at the bottom of the stack into the base.
func (s *Store) settle(e *entry) {
	for len(e.layers) > 0 && e.layers[0].committed {
		e.base = e.layers[0].after
		e.layers = e.layers[1:]
	}
	if len(e.layers) == 0 {
		e.layers = nil
		s.trackIdle(e)
	}
}

// replay rebuilds the visible value from base. After a fetch, committed
// layers are dropped because the server value already contains them.
func (s *Store) replay(e *entry, base any, fromServer bool) {
	if fromServer {
		kept := e.layers[:0]
		for _, l := range e.layers {
			if !l.committed {
				kept = append(kept, l)
			}
		}
		e.layers = kept
	}
	cur := base
	for _, l := range e.layers {
		l.before = cur
		if next, ok := s.applyFn(l.fn, cur, e.key); ok {
			cur = next
		}
		l.after = cur
	}
	e.value = cur
	s.settle(e)
}

func (s *Store) applyFn(fn func(any) any, v any, key Key) (any, bool) {
	c, err := clone(v)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key.String()).Msg("patch skipped")
		return nil, false
	}
	return fn(c), true
}

func findLayer(layers []*layer, id uint64) int {
	for i, l := range layers {
		if l.id == id {
			return i
		}
	}
	return -1
}
