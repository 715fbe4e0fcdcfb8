package ui

import (
	"math"

	"github.com/castrank/castrank/pkg/listview"
)

// scrollbarThumb places the thumb for a window on a track of height cells.
// The spacers stand in for the rows above and below the window, so the
// thumb reflects the full result set, loaded or not.
func scrollbarThumb(w listview.Window, rowHeight, height int) (start, size int) {
	if height <= 0 {
		return 0, 0
	}
	rowHeight = max(rowHeight, 1)
	visible := w.Len() * rowHeight
	content := w.TopSpacer + visible + w.BottomSpacer
	if content <= 0 || visible >= content {
		return 0, height
	}
	size = max(int(math.Round(float64(visible)/float64(content)*float64(height))), 1)
	start = int(math.Round(float64(w.TopSpacer) / float64(content) * float64(height)))
	start = min(start, height-size)
	return start, size
}

// renderScrollbar returns one cell per track line.
func renderScrollbar(w listview.Window, rowHeight, height int, t Theme) []string {
	start, size := scrollbarThumb(w, rowHeight, height)
	track := t.Renderer.NewStyle().Foreground(t.Border).Render("│")
	thumb := t.Renderer.NewStyle().Foreground(t.Primary).Render("┃")
	cells := make([]string, height)
	for i := range cells {
		if i >= start && i < start+size {
			cells[i] = thumb
		} else {
			cells[i] = track
		}
	}
	return cells
}
