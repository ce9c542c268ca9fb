package ui

import "time"

// Terminal width thresholds for responsive layouts.
const (
	// LayoutCompactWidth is the threshold below which compact mode is used.
	LayoutCompactWidth = 100

	// LayoutExtraWideWidth is the threshold for extra-wide layouts.
	LayoutExtraWideWidth = 160
)

// Activity log limits.
const (
	// ActivityLineLimit is the number of log lines read from the end of the file.
	ActivityLineLimit = 2000
)

// Timing constants.
const (
	// activityRefresh is how often the activity view re-reads the log file.
	activityRefresh = 2 * time.Second

	// actionTimeout bounds one mutation started from the UI.
	actionTimeout = 15 * time.Second
)

// listPaneWidth splits width between the list pane and the entries pane.
func listPaneWidth(width int) int {
	if width >= LayoutExtraWideWidth {
		return width * 25 / 100
	}
	return width * 35 / 100
}
