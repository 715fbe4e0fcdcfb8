package listview

import (
	"errors"

	"github.com/castrank/castrank/pkg/model"
)

// ErrStaleResult is returned by Settle for a result from an abandoned
// query. The result has been discarded.
var ErrStaleResult = errors.New("stale fetch result discarded")

// State is the reconciler's lifecycle state.
type State int

const (
	Idle State = iota
	Loading
	Ready
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	}
	return "unknown"
}

// FetchTask asks the caller to fetch one page for one query epoch.
type FetchTask struct {
	Epoch   uint64
	Query   model.QuerySpec
	Page    int
	PerPage int
}

// FetchResult is the outcome of a FetchTask.
type FetchResult struct {
	Task FetchTask
	Page model.Page
	Err  error
}

// Config configures a Reconciler.
type Config struct {
	PageSize     int
	InitialTotal int // UnknownTotal if the host does not know it
	Query        model.QuerySpec
	Renderer     Renderer
	Viewport     Viewport
}

// Reconciler owns the prefix, the viewport and the query epoch. Every
// mutation goes through it so results from an old epoch can be refused.
type Reconciler struct {
	prefix   *Prefix
	coord    *Coordinator
	renderer Renderer
	throttle FrameThrottle

	initialTotal int
	query        model.QuerySpec
	viewport     Viewport
	epoch        uint64
	state        State
	lastErr      error
	recomputes   int
}

// NewReconciler builds an idle reconciler. Call Start to load.
func NewReconciler(cfg Config) *Reconciler {
	if cfg.PageSize < 1 {
		cfg.PageSize = 100
	}
	if cfg.Renderer == nil {
		cfg.Renderer = virtualRenderer{}
	}
	if cfg.Viewport.RowHeight < 1 {
		cfg.Viewport.RowHeight = 1
	}
	if cfg.Viewport.RowBudget < 1 {
		cfg.Viewport.RowBudget = 1
	}
	prefix := NewPrefix(cfg.PageSize, cfg.InitialTotal)
	return &Reconciler{
		prefix:       prefix,
		coord:        NewCoordinator(prefix),
		renderer:     cfg.Renderer,
		initialTotal: cfg.InitialTotal,
		query:        cfg.Query.Normalized(),
		viewport:     cfg.Viewport,
		state:        Idle,
	}
}

// Start activates the configured query. The host's initial total is used
// until the first page reports the real one, so a total of zero shows the
// empty state without any request.
func (r *Reconciler) Start() *FetchTask {
	r.begin()
	r.prefix.Reset(r.initialTotal)
	return r.demand()
}

// SetQuery switches to q. An unchanged query is a no-op once started.
func (r *Reconciler) SetQuery(q model.QuerySpec) *FetchTask {
	q = q.Normalized()
	if q == r.query && r.state != Idle {
		return nil
	}
	r.query = q
	r.begin()
	r.prefix.Clear()
	return r.demand()
}

// Refresh reloads the active query from page 1 under a new epoch, for
// when the data behind it has changed.
func (r *Reconciler) Refresh() *FetchTask {
	r.begin()
	r.prefix.Clear()
	return r.demand()
}

// SetSearch changes the search text.
func (r *Reconciler) SetSearch(search string) *FetchTask {
	q := r.query
	q.Search = search
	return r.SetQuery(q)
}

// ToggleActiveOnly flips the active-only filter.
func (r *Reconciler) ToggleActiveOnly() *FetchTask {
	q := r.query
	q.ActiveOnly = !q.ActiveOnly
	return r.SetQuery(q)
}

// ActivateSort applies a click on a column header.
func (r *Reconciler) ActivateSort(col model.SortColumn) *FetchTask {
	if !col.IsValid() {
		return nil
	}
	return r.SetQuery(r.query.WithSort(col))
}

// begin opens a new epoch: older results and pending work are abandoned
// and the viewport returns to the top.
func (r *Reconciler) begin() {
	r.epoch++
	r.coord.Reset()
	r.throttle.Cancel()
	r.viewport.ScrollOffset = 0
	r.lastErr = nil
	r.state = Loading
}

// Scroll records a new scroll offset. It returns true when the caller
// must schedule a Frame; further scrolls before that frame only replace
// the pending offset.
func (r *Reconciler) Scroll(offset int) bool {
	return r.throttle.Request(r.clampOffset(offset))
}

// ScrollBy scrolls relative to the latest requested offset.
func (r *Reconciler) ScrollBy(delta int) bool {
	return r.Scroll(r.TargetOffset() + delta)
}

// TargetOffset is the offset the next frame will apply, or the applied
// one when no frame is pending.
func (r *Reconciler) TargetOffset() int {
	if r.throttle.Pending() {
		return r.throttle.offset
	}
	return r.viewport.ScrollOffset
}

// Frame applies the pending scroll offset, if any, and recomputes.
func (r *Reconciler) Frame() *FetchTask {
	offset, ok := r.throttle.Frame()
	if !ok {
		return nil
	}
	// The budget may have changed since the offset was requested.
	r.viewport.ScrollOffset = r.clampOffset(offset)
	return r.recompute()
}

// Resize changes the number of rows that fit and recomputes immediately.
func (r *Reconciler) Resize(rowBudget, headerHeight int) *FetchTask {
	r.viewport.RowBudget = max(rowBudget, 1)
	r.viewport.HeaderHeight = max(headerHeight, 0)
	r.viewport.ScrollOffset = r.clampOffset(r.viewport.ScrollOffset)
	return r.recompute()
}

// Retry asks again for whatever the viewport needs, typically after a
// failed fetch.
func (r *Reconciler) Retry() *FetchTask {
	if r.state == Idle {
		return r.Start()
	}
	return r.demand()
}

// Settle applies a finished fetch. Results from another epoch return
// ErrStaleResult and change nothing. A failed fetch leaves the prefix as
// it was and returns the fetch error; the next demand retries. After a
// successful append the returned task, if any, continues the chain.
func (r *Reconciler) Settle(res FetchResult) (*FetchTask, error) {
	if res.Task.Epoch != r.epoch {
		return nil, ErrStaleResult
	}
	r.coord.Settle()

	if res.Err != nil {
		r.lastErr = res.Err
		r.state = Ready
		return nil, res.Err
	}
	if err := r.prefix.Append(res.Task.Page, res.Page); err != nil {
		r.lastErr = err
		r.state = Ready
		return nil, err
	}
	r.lastErr = nil
	return r.recompute(), nil
}

func (r *Reconciler) recompute() *FetchTask {
	r.recomputes++
	return r.demand()
}

// demand asks the coordinator for the rows the renderer needs and turns
// its answer into a task.
func (r *Reconciler) demand() *FetchTask {
	w := r.Window()
	start, end := r.renderer.Demand(r.viewport, w, r.prefix)
	page, ok := r.coord.EnsureRange(start, end)
	if !ok {
		if !r.coord.InFlight() {
			r.state = Ready
		}
		return nil
	}
	r.state = Loading
	return &FetchTask{
		Epoch:   r.epoch,
		Query:   r.query,
		Page:    page,
		PerPage: r.prefix.PageSize(),
	}
}

func (r *Reconciler) clampOffset(offset int) int {
	v := r.viewport
	limit := MaxScrollOffset(v.HeaderHeight, v.RowHeight, v.RowBudget, r.renderer.Rows(r.prefix))
	return min(max(offset, 0), limit)
}

// Window returns the current visible window.
func (r *Reconciler) Window() Window {
	return Compute(Geometry{
		ScrollOffset: r.viewport.ScrollOffset,
		HeaderHeight: r.viewport.HeaderHeight,
		RowHeight:    r.viewport.RowHeight,
		RowBudget:    r.viewport.RowBudget,
		Total:        r.renderer.Rows(r.prefix),
	})
}

// Visible returns the index of the first drawn row and the rows to draw.
func (r *Reconciler) Visible() (int, []model.Person) {
	start, end := r.renderer.Visible(r.Window(), r.prefix)
	return start, r.prefix.Slice(start, end)
}

// Query returns the active query.
func (r *Reconciler) Query() model.QuerySpec { return r.query }

// Epoch returns the current render epoch.
func (r *Reconciler) Epoch() uint64 { return r.epoch }

// State returns the lifecycle state.
func (r *Reconciler) State() State { return r.state }

// Prefix exposes the loaded records for read-only use.
func (r *Reconciler) Prefix() *Prefix { return r.prefix }

// Viewport returns the applied viewport.
func (r *Reconciler) Viewport() Viewport { return r.viewport }

// Renderer returns the configured renderer.
func (r *Reconciler) Renderer() Renderer { return r.renderer }

// LastError returns the error from the most recent settlement, if it failed.
func (r *Reconciler) LastError() error { return r.lastErr }

// Recomputations counts window recomputations caused by scrolling,
// resizing and settled pages.
func (r *Reconciler) Recomputations() int { return r.recomputes }

// Empty reports a settled query with no matching rows.
func (r *Reconciler) Empty() bool {
	return r.prefix.TotalKnown() && r.prefix.Total() == 0 && !r.coord.InFlight()
}
