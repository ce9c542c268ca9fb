// Package household provides the domain types and HTTP client for the
// household organizer REST API.
//
// # Overview
//
// The package defines the entities the API returns (todo lists, todos,
// shopping lists and items, calendar events, announcements, moods and
// check-ins), the sparse patch types sent by update mutations, and the
// Executor used by the query cache and the mutation orchestrator to reach
// the server.
//
// # Architecture
//
//   - types.go: Entities mirroring the API schema
//   - patch.go: Field[T] tri-state values and sparse patch payloads
//   - variants.go: Creation payloads for list ownership and event timing
//   - client.go: Executor interface and the HTTP Client
//   - errors.go: Failure classes and typed errors
//
// # Client Usage
//
//	client, err := household.NewClient("http://localhost:5000/api")
//	if err != nil {
//		return err
//	}
//	var list household.TodoList
//	if err := client.Do(ctx, household.Get("/todo_lists/12"), &list); err != nil {
//		return err
//	}
//
// The client keeps session cookies in a cookie jar, tags each request with
// an X-Request-ID header and never caches or retries. Caching belongs to
// package querycache; retry policy belongs to the caller.
//
// # Sparse Patches
//
// Update payloads distinguish three states per field:
//
//   - unset: the key is omitted and the server keeps its value
//   - Null[T](): the key is sent as null and the server clears the value
//   - Set(v): the key is sent with v
//
// ApplyTo merges a patch into a cached entity using the same rules, so the
// optimistic view matches what the server will store.
//
// # Error Handling
//
// Failures are classified for errors.Is:
//
//   - ErrNetwork: transport errors and undecodable responses (*NetworkError)
//   - ErrValidation: 4xx responses (*StatusError)
//   - ErrServer: 5xx responses (*StatusError)
//   - ErrInvalidInput: creation payloads rejected before sending
//
// Example error messages:
//   - "execute request: dial tcp 127.0.0.1:5000: connect: connection refused"
//   - "api PATCH /todo_lists/3/reorder returned status 400: orderedIds (non-empty array) required"
//   - "decode response: unexpected end of JSON input"
//
// UserMessage turns any of these into a short line for the status bar.
package household
