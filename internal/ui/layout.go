package ui

import "time"

// Terminal width thresholds for responsive layouts.
const (
	// LayoutCompactWidth is the width below which headers drop detail.
	LayoutCompactWidth = 100

	// LayoutSplitWidth is the minimum width for side-by-side panes.
	LayoutSplitWidth = 120
)

// Rows taken by the header, command bar and footer around the content.
const chromeHeight = 3

// Log view limits.
const (
	// LogBufferLimit is the number of log lines kept in memory.
	LogBufferLimit = 2000

	// LogRefreshInterval is how often a following log view re-reads the file.
	LogRefreshInterval = 2 * time.Second
)

// Timing constants.
const (
	// DefaultUIInterval is the default UI refresh interval.
	DefaultUIInterval = time.Second
)

// Suggestion list size requested from /stocks/search.
const suggestionLimit = 10
