package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/castrank/castrank/pkg/config"
	"github.com/castrank/castrank/pkg/listview"
	"github.com/castrank/castrank/pkg/logging"
	"github.com/castrank/castrank/pkg/model"
	"github.com/castrank/castrank/pkg/remote"
	"github.com/castrank/castrank/pkg/stats"
)

// scrollbarWidth is the column reserved for the virtual-mode scrollbar.
const scrollbarWidth = 1

// wheelStep is how many rows one mouse wheel notch scrolls.
const wheelStep = 3

// rankingsView is the paged people table. The reconciler owns every piece
// of list state; this type turns its fetch tasks into commands and draws
// what it exposes.
type rankingsView struct {
	rec    *listview.Reconciler
	source remote.DataSource
	log    *logging.Logger
	theme  Theme

	search   textinput.Model
	debounce *listview.Debouncer[string]
	spinner  spinner.Model
	spinning bool
	body     viewport.Model // simple mode only

	cols   []column
	cursor int
	width  int
	height int

	summary     stats.Summary
	knownPeople int
}

func newRankingsView(src remote.DataSource, cfg *config.Config, log *logging.Logger, theme Theme) (rankingsView, error) {
	renderer, err := listview.NewRenderer(listview.Mode(cfg.RenderMode), cfg.SimpleThreshold)
	if err != nil {
		return rankingsView{}, err
	}

	ti := textinput.New()
	ti.Placeholder = "Search people..."
	ti.Prompt = "/ "
	ti.CharLimit = 80
	ti.Width = 40

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.Renderer.NewStyle().Foreground(theme.Primary)

	v := rankingsView{
		rec: listview.NewReconciler(listview.Config{
			PageSize:     cfg.PageSize,
			InitialTotal: cfg.InitialTotal,
			Query:        cfg.DefaultQuery(),
			Renderer:     renderer,
			Viewport:     listview.Viewport{RowHeight: 1, RowBudget: rankingsBodyHeight(24)},
		}),
		source:   src,
		log:      log,
		theme:    theme,
		search:   ti,
		debounce: listview.NewDebouncer[string](cfg.SearchDebounce),
		spinner:  sp,
		body:     viewport.New(80, rankingsBodyHeight(24)),
		cols:     layoutColumns(80 - scrollbarWidth),
		width:    80,
		height:   24,
	}
	return v, nil
}

// run turns a fetch task into a command.
func (v *rankingsView) run(task *listview.FetchTask) tea.Cmd {
	if task == nil {
		return nil
	}
	v.log.Debug().
		Uint64("epoch", task.Epoch).
		Int("page", task.Page).
		Str("search", task.Query.Search).
		Str("sort", string(task.Query.SortColumn)+" "+string(task.Query.SortDir)).
		Msg("fetch page")
	return tea.Batch(fetchPageCmd(v.source, *task), v.startSpinner())
}

func (v *rankingsView) startSpinner() tea.Cmd {
	if v.spinning {
		return nil
	}
	v.spinning = true
	return v.spinner.Tick
}

func (v *rankingsView) onSpinnerTick(msg spinner.TickMsg) tea.Cmd {
	if v.rec.State() != listview.Loading {
		v.spinning = false
		return nil
	}
	var cmd tea.Cmd
	v.spinner, cmd = v.spinner.Update(msg)
	return cmd
}

func (v *rankingsView) start() tea.Cmd {
	return v.run(v.rec.Start())
}

// onPage settles a fetched page. Stale pages are dropped silently; other
// failures are returned for the footer and leave the table as it was.
func (v *rankingsView) onPage(msg pageLoadedMsg) (tea.Cmd, error) {
	res := msg.result
	next, err := v.rec.Settle(res)
	if errors.Is(err, listview.ErrStaleResult) {
		v.log.Debug().
			Uint64("epoch", res.Task.Epoch).
			Uint64("current", v.rec.Epoch()).
			Int("page", res.Task.Page).
			Msg("discarded stale page")
		return nil, nil
	}
	if err != nil {
		var seqErr *listview.SequencingError
		if errors.As(err, &seqErr) {
			v.log.Error().Err(err).Int("page", res.Task.Page).Str("reason", seqErr.Reason).Msg("page out of sequence")
		} else {
			v.log.Warn().Err(err).Int("page", res.Task.Page).Msg("page fetch failed")
		}
		return nil, err
	}
	p := v.rec.Prefix()
	v.summary = stats.Summarize(p.Slice(0, p.Len()))
	v.log.Debug().Int("page", res.Task.Page).Int("loaded", p.Len()).Int("total", p.Total()).Msg("page settled")
	return v.run(next), nil
}

// updateSearch feeds a key to the search box and debounces the query.
func (v *rankingsView) updateSearch(msg tea.Msg) tea.Cmd {
	before := v.search.Value()
	var cmd tea.Cmd
	v.search, cmd = v.search.Update(msg)
	if v.search.Value() == before {
		return cmd
	}
	id := v.debounce.Bump(v.search.Value())
	return tea.Batch(cmd, debounceCmd(v.debounce.Quiet(), id))
}

func (v *rankingsView) onDebounce(msg searchDebounceMsg) tea.Cmd {
	text, ok := v.debounce.Fire(msg.id)
	if !ok {
		return nil
	}
	return v.setQuery(v.rec.SetSearch(text))
}

// setQuery runs the first task of a new query and puts the cursor back on
// the first row.
func (v *rankingsView) setQuery(task *listview.FetchTask) tea.Cmd {
	v.cursor = 0
	v.summary = stats.Summary{}
	return v.run(task)
}

func (v *rankingsView) toggleActive() tea.Cmd {
	return v.setQuery(v.rec.ToggleActiveOnly())
}

func (v *rankingsView) sortBy(col model.SortColumn) tea.Cmd {
	return v.setQuery(v.rec.ActivateSort(col))
}

func (v *rankingsView) retry() tea.Cmd {
	return v.run(v.rec.Retry())
}

func (v *rankingsView) refresh() tea.Cmd {
	return v.setQuery(v.rec.Refresh())
}

// scrollTo requests an offset; only the first request of a frame
// schedules one.
func (v *rankingsView) scrollTo(offset int) tea.Cmd {
	if v.rec.Scroll(offset) {
		return frameCmd()
	}
	return nil
}

func (v *rankingsView) onFrame() tea.Cmd {
	task := v.rec.Frame()
	v.clampCursor()
	return v.run(task)
}

func (v *rankingsView) rows() int {
	return v.rec.Renderer().Rows(v.rec.Prefix())
}

func (v *rankingsView) budget() int {
	return v.rec.Viewport().RowBudget
}

func (v *rankingsView) moveCursor(delta int) tea.Cmd {
	rows := v.rows()
	if rows == 0 {
		return nil
	}
	v.cursor = min(max(v.cursor+delta, 0), rows-1)
	return v.follow()
}

func (v *rankingsView) pageBy(delta int) tea.Cmd {
	rows := v.rows()
	if rows == 0 {
		return nil
	}
	v.cursor = min(max(v.cursor+delta, 0), rows-1)
	return tea.Batch(v.scrollTo(v.rec.TargetOffset()+delta), v.follow())
}

func (v *rankingsView) home() tea.Cmd {
	v.cursor = 0
	return v.scrollTo(0)
}

func (v *rankingsView) end() tea.Cmd {
	rows := v.rows()
	if rows == 0 {
		return nil
	}
	v.cursor = rows - 1
	return v.follow()
}

func (v *rankingsView) wheel(delta int) tea.Cmd {
	return v.scrollTo(v.rec.TargetOffset() + delta)
}

// follow scrolls so the cursor row is inside the viewport.
func (v *rankingsView) follow() tea.Cmd {
	top := v.rec.TargetOffset()
	budget := v.budget()
	switch {
	case v.cursor < top:
		return v.scrollTo(v.cursor)
	case v.cursor >= top+budget:
		return v.scrollTo(v.cursor - budget + 1)
	}
	return nil
}

// clampCursor keeps the cursor inside the applied window after a scroll
// that did not come from moving it.
func (v *rankingsView) clampCursor() {
	w := v.rec.Window()
	if w.Empty() {
		v.cursor = 0
		return
	}
	v.cursor = min(max(v.cursor, w.Start), w.End-1)
}

// clickHeader sorts by the column under x.
func (v *rankingsView) clickHeader(x int) tea.Cmd {
	col, ok := columnAt(v.cols, x)
	if !ok {
		return nil
	}
	return v.sortBy(col)
}

// clickRow moves the cursor to body line y.
func (v *rankingsView) clickRow(y int) {
	row := v.rec.Viewport().ScrollOffset + y
	if row >= 0 && row < v.rows() {
		v.cursor = row
	}
}

func (v *rankingsView) resize(width, height int) tea.Cmd {
	v.width, v.height = width, height
	v.cols = layoutColumns(width - scrollbarWidth)
	v.search.Width = max(width-20, 10)
	body := rankingsBodyHeight(height)
	v.body.Width = width
	v.body.Height = body
	task := v.rec.Resize(body, 0)
	return tea.Batch(v.run(task), v.follow())
}

// selected returns the loaded row under the cursor.
func (v *rankingsView) selected() (model.Person, bool) {
	return v.rec.Prefix().At(v.cursor)
}

func (v rankingsView) view() string {
	lines := []string{
		v.searchLine(),
		renderHeader(v.cols, v.rec.Query(), v.theme),
		v.bodyView(),
	}
	return strings.Join(lines, "\n")
}

func (v rankingsView) searchLine() string {
	if v.search.Focused() {
		return v.search.View()
	}
	t := v.theme
	muted := t.Renderer.NewStyle().Foreground(t.Subtext)
	q := v.rec.Query()
	text := "/ search"
	if q.Search != "" {
		text = "/ " + q.Search
	}
	line := muted.Render(text)
	if q.ActiveOnly {
		line += "  " + t.Renderer.NewStyle().Foreground(t.Success).Bold(true).Render("[active only]")
	}
	return line
}

func (v rankingsView) bodyView() string {
	t := v.theme
	height := v.budget()
	muted := t.Renderer.NewStyle().Foreground(t.Subtext).Italic(true)
	w := v.rec.Window()

	var lines []string
	switch {
	case v.rec.Empty():
		lines = append(lines, muted.Render("  no eligible data"))
	case w.Empty():
		if err := v.rec.LastError(); err != nil {
			lines = append(lines, t.Renderer.NewStyle().Foreground(t.Danger).Render("  could not load rankings (r to retry)"))
		} else {
			lines = append(lines, muted.Render("  "+v.spinner.View()+" loading…"))
		}
	case v.rec.Renderer().Mode() == listview.ModeSimple:
		return v.simpleBody()
	default:
		start, rows := v.rec.Visible()
		for i := w.Start; i < w.End; i++ {
			if j := i - start; j >= 0 && j < len(rows) {
				lines = append(lines, renderRow(v.cols, i, rows[j], i == v.cursor, t))
			} else {
				lines = append(lines, renderPlaceholder(v.cols, i, i == v.cursor, t))
			}
		}
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	block := lipgloss.NewStyle().Width(max(v.width-scrollbarWidth, 1)).Render(strings.Join(lines, "\n"))
	bar := strings.Join(renderScrollbar(w, 1, height, t), "\n")
	return lipgloss.JoinHorizontal(lipgloss.Top, block, bar)
}

// simpleBody renders every loaded row into the viewport and lets it clip.
func (v rankingsView) simpleBody() string {
	start, rows := v.rec.Visible()
	lines := make([]string, len(rows))
	for i, p := range rows {
		lines[i] = renderRow(v.cols, start+i, p, start+i == v.cursor, v.theme)
	}
	body := v.body
	body.SetContent(strings.Join(lines, "\n"))
	body.SetYOffset(v.rec.Viewport().ScrollOffset)
	return body.View()
}

// statusLine describes the load state and the active query.
func (v rankingsView) statusLine() string {
	t := v.theme
	p := v.rec.Prefix()
	total := "?"
	if p.TotalKnown() {
		total = fmt.Sprint(p.Total())
	}

	var state string
	switch v.rec.State() {
	case listview.Loading:
		state = v.spinner.View() + " loading"
	case listview.Idle:
		state = "idle"
	default:
		if v.rec.LastError() != nil {
			state = t.Renderer.NewStyle().Foreground(t.Danger).Render("fetch failed")
		} else {
			state = t.Renderer.NewStyle().Foreground(t.Success).Render("ready")
		}
	}

	q := v.rec.Query()
	parts := []string{
		state,
		fmt.Sprintf("%d/%s loaded", p.Len(), total),
		fmt.Sprintf("sort %s %s", q.SortColumn.Label(), q.SortDir.Arrow()),
		string(v.rec.Renderer().Mode()),
	}
	if v.rows() > 0 {
		parts = append(parts, fmt.Sprintf("row %d", v.cursor+1))
	}
	return strings.Join(parts, " · ")
}

func (v rankingsView) statsLine() string {
	line := v.summary.String()
	if v.knownPeople > 0 {
		line += fmt.Sprintf(" · %d people ranked", v.knownPeople)
	}
	return v.theme.Renderer.NewStyle().Foreground(v.theme.Subtext).Render(line)
}
