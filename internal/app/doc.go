// Package app is the composition root of the toby client.
//
// # Overview
//
// Run wires configuration, logging, metrics, the query cache, the mutation
// layer, the board binding, the poller and the UI, then blocks in the TUI
// until the user quits or the context is cancelled.
//
// # Start-up
//
//  1. Load config.toml, apply TOBY_* environment overrides and the -poll flag
//  2. Open the zerolog file logger at the configured level
//  3. Start the /metrics listener when metrics_addr is set
//  4. Build the household REST client
//  5. Create the query cache with the metrics and health observers attached
//  6. Build the mutation orchestrator and the mutations service on top of it
//  7. Start the board binding, which subscribes to the household's entries
//  8. Start the poller and hand everything to ui.Run
//
// # Data Flow
//
//	┌──────────────┐  subscribe   ┌──────────────────┐  GET   ┌─────────┐
//	│ state.Binding│─────────────>│ querycache.Store │───────>│   API   │
//	└──────┬───────┘  notify      └───────┬──────────┘        └─────────┘
//	       │ Changes()                    ▲ patches / invalidate
//	       ▼                              │
//	┌──────────────┐   actions    ┌───────┴──────────┐
//	│    ui.Model  │─────────────>│ mutations.Service│
//	└──────────────┘              └──────────────────┘
//
// # Polling
//
// The poller never fetches directly. Each tick it invalidates the household's
// TodoList, ShoppingList and Announcement tags; the cache refetches whatever
// the binding is subscribed to and keeps serving the old values meanwhile.
// While fetches keep failing, the wait between ticks doubles per consecutive
// failure up to 30 seconds.
//
// # Errors
//
// Run returns an error for an unreadable or incomplete config, a log file
// that cannot be opened, or an unusable API URL. Fetch and mutation failures
// after start-up are shown in the UI and never end the program.
package app
