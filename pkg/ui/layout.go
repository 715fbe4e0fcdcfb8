package ui

// Layout breakpoints for responsive design.
const (
	// BreakpointNarrow is the width below which the table drops its label
	// columns.
	BreakpointNarrow = 80

	// BreakpointMedium is the width above which the roles tab shows the
	// role list and its people side by side.
	BreakpointMedium = 100
)

// Fixed chrome around the table body, in terminal lines.
const (
	// tabBarLines is the tab bar plus its divider.
	tabBarLines = 2

	// searchLines is the search input row on the rankings tab.
	searchLines = 1

	// tableHeaderLines is the column header row.
	tableHeaderLines = 1

	// footerLines is the status line plus the stats line.
	footerLines = 2

	// MinContentHeight is the minimum height for scrollable content areas.
	MinContentHeight = 3
)

// rankingsBodyHeight is how many table rows fit on the rankings tab.
func rankingsBodyHeight(height int) int {
	return max(height-tabBarLines-searchLines-tableHeaderLines-footerLines, MinContentHeight)
}

// rankingsBodyTop is the screen line of the first table row.
func rankingsBodyTop() int {
	return tabBarLines + searchLines + tableHeaderLines
}

// rankingsHeaderLine is the screen line of the column header.
func rankingsHeaderLine() int {
	return tabBarLines + searchLines
}
