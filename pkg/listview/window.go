package listview

// Geometry is everything needed to place the visible rows. All lengths
// use the same unit (terminal lines in the TUI).
type Geometry struct {
	ScrollOffset int
	HeaderHeight int
	RowHeight    int
	RowBudget    int
	Total        int
}

// Window is the slice of rows to draw plus the space above and below it
// that stands in for rows that are not drawn.
type Window struct {
	Start        int // first visible row
	End          int // one past the last visible row
	TopSpacer    int
	BottomSpacer int
}

// Len returns the number of rows in the window.
func (w Window) Len() int { return w.End - w.Start }

// Empty reports whether the window holds no rows.
func (w Window) Empty() bool { return w.End <= w.Start }

// Compute maps a scroll position onto a window of rows. It is a pure
// function. When scrolled past the last row it backs off so a non-empty
// result set never yields an empty window.
func Compute(g Geometry) Window {
	rowHeight := max(g.RowHeight, 1)
	budget := max(g.RowBudget, 1)
	total := max(g.Total, 0)
	if total == 0 {
		return Window{}
	}

	bodyOffset := max(0, g.ScrollOffset-g.HeaderHeight)
	start := bodyOffset / rowHeight
	if start >= total {
		start = max(0, total-budget)
	}
	end := min(total, start+budget)

	return Window{
		Start:        start,
		End:          end,
		TopSpacer:    start * rowHeight,
		BottomSpacer: max(0, (total-end)*rowHeight),
	}
}

// MaxScrollOffset is the largest offset that still shows a full budget of
// rows, or zero when everything fits.
func MaxScrollOffset(headerHeight, rowHeight, rowBudget, rows int) int {
	rowHeight = max(rowHeight, 1)
	hidden := rows - max(rowBudget, 1)
	if hidden <= 0 {
		return 0
	}
	return headerHeight + hidden*rowHeight
}
