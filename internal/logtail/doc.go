// Package logtail reads toby's own log file for the activity view.
//
// The client logs JSON lines with zerolog. Read returns the last N raw lines
// using a ring buffer, so memory stays O(N) however large the file grows.
// Parse turns a line into an Entry (time, level, component, message, extra
// fields); lines that are not JSON, such as a panic trace, are kept as plain
// messages with no level. Filter keeps entries at or above a level and
// optionally from one component, and Format renders an entry as
//
//	15:04:05 WRN [mutation] rolled back mutation=completeTodo
package logtail
