package listview

import (
	"fmt"
	"strings"
)

// Mode selects a Renderer.
type Mode string

const (
	ModeVirtual Mode = "virtual"
	ModeSimple  Mode = "simple"
)

// DefaultSimpleThreshold is how many rows from the bottom of the loaded
// content the simple renderer starts fetching the next page.
const DefaultSimpleThreshold = 10

// Viewport is the scroll state of the table body.
type Viewport struct {
	ScrollOffset int
	HeaderHeight int
	RowHeight    int
	RowBudget    int
}

// Renderer decides what must be loaded and what gets drawn for a viewport.
type Renderer interface {
	Mode() Mode
	// Rows is how many rows the scrollable content spans.
	Rows(p *Prefix) int
	// Demand is the inclusive row range that should be loaded.
	Demand(v Viewport, w Window, p *Prefix) (start, end int)
	// Visible is the half-open range of loaded rows to draw.
	Visible(w Window, p *Prefix) (start, end int)
	// Spacers reports whether the renderer reserves space for unloaded rows.
	Spacers() bool
}

// NewRenderer returns the renderer for mode. threshold only applies to
// simple mode; zero means DefaultSimpleThreshold.
func NewRenderer(mode Mode, threshold int) (Renderer, error) {
	switch Mode(strings.ToLower(string(mode))) {
	case ModeVirtual, "":
		return virtualRenderer{}, nil
	case ModeSimple:
		if threshold <= 0 {
			threshold = DefaultSimpleThreshold
		}
		return simpleRenderer{threshold: threshold}, nil
	}
	return nil, fmt.Errorf("unknown render mode %q", mode)
}

// virtualRenderer draws only the window and sizes the scrollbar for the
// full result set. It prefetches half a viewport past the window.
type virtualRenderer struct{}

func (virtualRenderer) Mode() Mode { return ModeVirtual }

func (virtualRenderer) Rows(p *Prefix) int {
	if p.TotalKnown() {
		return p.Total()
	}
	return p.Len()
}

func (virtualRenderer) Demand(v Viewport, w Window, p *Prefix) (int, int) {
	if w.Empty() {
		return 0, max(v.RowBudget, 1) - 1
	}
	return w.Start, w.End + max(v.RowBudget/2, 1)
}

func (virtualRenderer) Visible(w Window, p *Prefix) (int, int) {
	return w.Start, min(w.End, p.Len())
}

func (virtualRenderer) Spacers() bool { return true }

// simpleRenderer draws the whole prefix and grows it while the viewport is
// near the bottom of what is loaded.
type simpleRenderer struct {
	threshold int
}

func (simpleRenderer) Mode() Mode { return ModeSimple }

func (simpleRenderer) Rows(p *Prefix) int { return p.Len() }

func (s simpleRenderer) Demand(v Viewport, w Window, p *Prefix) (int, int) {
	loaded := p.Len()
	bottom := w.Start + max(v.RowBudget, 1)
	if loaded-bottom <= s.threshold {
		// One row past the prefix: the next page.
		return loaded, loaded
	}
	return 0, loaded - 1
}

func (simpleRenderer) Visible(_ Window, p *Prefix) (int, int) {
	return 0, p.Len()
}

func (simpleRenderer) Spacers() bool { return false }
