// Package ui provides the terminal interface for toby.
//
// # Architecture Overview
//
// The UI is a Bubble Tea program. It never talks to the API directly: it
// renders state.Board snapshots from a BoardSource and issues every write
// through the mutations Service, whose optimistic patches land in the query
// cache and come back as a new Board before the server has answered.
//
// # Package Structure
//
//   - app.go: Model, Update loop, view switching and Run
//   - board.go: todo lists and todos
//   - shopping.go: shopping lists and items
//   - activity.go: the client's own log, read through logtail
//   - actions.go: mutation commands and their status line feedback
//   - header.go: header, command bar and footer
//   - modal.go: text prompt used for adding and renaming
//   - keys.go, help.go: key bindings and the help overlay
//   - theme.go, style_helpers.go: color themes and background-safe rendering
//
// # Views
//
//   - Board: todo lists on the left, the selected list's todos on the right
//   - Shopping: shopping lists and the items of the selected one
//   - Activity: level-filtered tail of the log file
//
// # Event Flow
//
//  1. Init loads the current Board and waits on BoardSource.Changes
//  2. Each change reloads the Board and keeps the selection by id
//  3. Keys run a Service call in a command with a bounded context
//  4. The settled result arrives as an actionMsg for the footer
//
// Rows with a negative id are optimistic inserts still waiting for the
// server. They render with a "~" marker and reject further edits.
//
// # Key Bindings
//
//   - b/s/l: Board, Shopping and Activity views
//   - Tab: switch pane
//   - Space: complete a todo, mark an item bought, pause the activity log
//   - a/e/d: add, edit, delete
//   - m/M: cycle or clear mood
//   - c: check in for today
//   - n: post an announcement
//   - r: refresh everything on screen
//   - T: cycle theme
//   - ?: help
package ui
