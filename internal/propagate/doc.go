// Package propagate holds the table of cache entries that must change
// together when a mutation touches an entity shown in more than one view.
//
// A todo lives in its own getTodo entry, inside its list's getTodoList entry
// and inside the household's getHouseholdTodoLists entry. Each Kind lists
// those targets once; internal/mutations asks the table for patches instead
// of reaching into other endpoints itself. Adding a derived view means
// registering one more Target.
//
// Targets that need a household id use the one supplied by the caller and
// otherwise read it from the cached detail view. When neither is available
// the target is skipped.
package propagate
