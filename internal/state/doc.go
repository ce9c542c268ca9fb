// Package state binds the query cache to the terminal views.
//
// # Overview
//
// A Binding subscribes to the entries the board shows for one household:
// the household itself, its todo lists, its shopping lists, its
// announcements, the session user's mood and the items of the selected
// shopping list. Every cache notification rebuilds a Board snapshot that the
// UI renders.
//
//	Cache (fetches, patches, invalidations)     UI
//	┌────────────────────────────┐             ┌──────────────────┐
//	│ entry changes              │             │                  │
//	│      ↓                     │             │                  │
//	│ Subscription.C ──→ refresh │──Changes()─→│ Snapshot()       │
//	│                   (mutex)  │             │      ↓           │
//	│                            │             │  render          │
//	└────────────────────────────┘             └──────────────────┘
//
// Optimistic patches flow through the same path: a mutation patches the
// cache, the cache notifies, the Board shows the patched value. A rollback
// notifies again and the Board shows the restored value.
//
// # Health
//
// HealthTracker is registered as a querycache.Observer and sees every load,
// including background refetches started by invalidation. A failed load
// keeps the previous data in the cache and only bumps ConsecutiveFailures;
// after two in a row the footer reports the client offline. Any successful
// load resets the count.
//
// # Concurrency
//
// The Board is replaced whole under a readers-writer lock. refresh reads the
// store before taking that lock, so store callbacks and binding readers never
// wait on each other. Snapshot copies the top-level slices; the records inside
// are shared with the cache, which never mutates a value in place.
package state
