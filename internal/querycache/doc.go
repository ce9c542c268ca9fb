// Package querycache is the client-side response cache shared by every view.
//
// # Overview
//
// The Store keeps the latest known value per (endpoint, arguments) pair.
// Views read and subscribe; the mutation orchestrator patches entries
// optimistically and invalidates tags; the fetch-completion handler stores
// server results. Nothing else writes.
//
// # Entries
//
// An entry is created by the first Read, Fetch or Subscribe of its Key and
// moves through the statuses uninitialized, loading, success and error.
// Read never blocks: a missing or stale entry starts a background load and
// the caller gets whatever is cached now. Concurrent loads of the same key
// share one request through a singleflight group.
//
// A failed refetch keeps the previous value and records a *StaleReadError,
// so views can keep showing the last known value marked as possibly
// outdated.
//
// # Tags
//
// Every successful load replaces the entry's tag set with Def.Provides(value).
// Invalidate marks the entries carrying any of the given tags stale and
// refetches the ones with subscribers. A tag with neither id nor bucket
// matches every entry of its type:
//
//	store.Invalidate(querycache.EntityTag("TodoList", 12))
//	store.Invalidate(querycache.HouseholdTag("TodoList", 7))
//	store.Invalidate(querycache.TypeTag("Mood"))
//
// An entry invalidated while its load is in flight is loaded again once the
// first load lands.
//
// # Optimistic Patches
//
// ApplyPatches applies a mutation's patches under one lock. Each patch runs on
// a structural copy of the entry value and the result is swapped in, so a
// reader sees either the old value or the fully patched one. The pre-patch
// value is kept as the rollback snapshot.
//
// Patches on one entry stack as layers in call order:
//
//   - Rollback of the top layer restores its snapshot exactly.
//   - Rollback of a lower layer re-applies the later layers on its snapshot.
//   - A fetch that lands while layers are pending becomes the new base and
//     the pending layers are re-applied on top.
//   - Committed layers are folded into the base, or dropped when the next
//     fetch brings the server's version.
//
// # Garbage Collection
//
// Entries without subscribers are tracked in an LRU list bounded by
// Options.MaxIdle. Sweep removes those idle for longer than Options.GCDelay;
// StartJanitor runs it periodically. Entries with pending patches or an
// in-flight load are never removed.
//
// # Notifications
//
// Subscription.C receives a signal after any change to the entry. Signals
// coalesce, so receivers re-read the entry instead of counting signals.
// Several subscriptions may share one channel.
package querycache
