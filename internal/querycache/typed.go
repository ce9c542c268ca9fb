package querycache

// Value returns the snapshot's value as T. The result shares memory with the
// cache; copy slices before modifying them.
func Value[T any](snap Snapshot) (T, bool) {
	v, ok := snap.Value.(T)
	return v, ok
}

// PatchOf builds a Patch that edits a T in place. Entries holding another
// type are left unchanged.
func PatchOf[T any](key Key, fn func(*T)) Patch {
	return Patch{Key: key, Fn: func(v any) any {
		t, ok := v.(T)
		if !ok {
			return v
		}
		fn(&t)
		return t
	}}
}

// Update applies fn to a copy of key's confirmed value, as Store.Write.
func Update[T any](s *Store, key Key, fn func(*T)) bool {
	return s.Write(key, PatchOf[T](key, fn).Fn)
}
