// Package mutation runs writes against the household API with optimistic
// cache patches.
//
// Every call to Run is one mutation instance with a uuid and a small state
// machine:
//
//	Pending -> Committed    request succeeded; patches kept, reconcile
//	                        patches written, tags invalidated
//	Pending -> RolledBack   request failed; patches undone in reverse order,
//	                        error returned to the caller
//
// Both end states are terminal. Nothing is retried; the caller decides
// whether to resubmit.
//
// Which entries to patch is decided by the caller, normally
// internal/mutations through the propagation table in internal/propagate.
// Failures of one mutation only touch the entries it patched.
package mutation
