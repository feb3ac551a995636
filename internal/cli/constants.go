package cli

// Default values for CLI flags and output.
const (
	// DefaultHistoryLimit is the number of units history list shows.
	DefaultHistoryLimit = 20
	// MaxSummaryLength is the maximum length of a package summary to display.
	MaxSummaryLength = 50
	// TabWidth is the width of tabs in formatted output.
	TabWidth = 2
)
