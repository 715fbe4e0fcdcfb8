package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"github.com/castrank/castrank/pkg/listview"
	"github.com/castrank/castrank/pkg/logging"
	"github.com/castrank/castrank/pkg/model"
	"github.com/castrank/castrank/pkg/remote"
)

// rolesPane is which list of the roles tab has the cursor.
type rolesPane int

const (
	paneRoles rolesPane = iota
	panePeople
)

// rolesView is the "by role" tab: a filterable role list and the ranked
// people of the highlighted role. The role list is populated in batches
// that belong to the payload's epoch, so a reload abandons the old ones.
type rolesView struct {
	source remote.RoleSource
	log    *logging.Logger
	theme  Theme

	query   model.RolesQuery
	epoch   uint64
	loading bool
	err     error

	payload   model.RolesPayload
	chunker   *listview.Chunker[model.RoleMeta]
	populated []model.RoleMeta
	filtered  []int // indexes into populated

	filter    textinput.Model
	cursor    int
	pane      rolesPane
	personIdx int

	width  int
	height int
}

func newRolesView(src remote.RoleSource, log *logging.Logger, theme Theme) rolesView {
	ti := textinput.New()
	ti.Placeholder = "Filter roles..."
	ti.Prompt = "/ "
	ti.CharLimit = 64
	ti.Width = 30
	return rolesView{source: src, log: log, theme: theme, filter: ti, width: 80, height: 24}
}

// loaded reports whether a payload has been requested for this tab.
func (v *rolesView) loaded() bool {
	return v.epoch > 0
}

// load requests the payload for the current toggles under a new epoch.
func (v *rolesView) load() tea.Cmd {
	v.epoch++
	v.loading = true
	v.err = nil
	v.chunker = nil
	v.log.Debug().Uint64("epoch", v.epoch).
		Bool("include_count1", v.query.IncludeCount1).
		Bool("active_only", v.query.ActiveOnly).
		Msg("fetch roles")
	return fetchRolesCmd(v.source, v.query, v.epoch)
}

// seed installs the default payload from the bootstrap response when the
// tab has not asked for anything else yet.
func (v *rolesView) seed(boot model.Bootstrap) tea.Cmd {
	if v.loaded() || v.query != (model.RolesQuery{}) {
		return nil
	}
	v.epoch++
	return v.install(model.RolesPayload{Roles: boot.Roles, ByRole: boot.ByRole})
}

func (v *rolesView) onLoaded(msg rolesLoadedMsg) tea.Cmd {
	if msg.epoch != v.epoch {
		v.log.Debug().Uint64("epoch", msg.epoch).Uint64("current", v.epoch).Msg("discarded stale roles")
		return nil
	}
	v.loading = false
	if msg.err != nil {
		v.err = msg.err
		v.log.Warn().Err(msg.err).Msg("roles fetch failed")
		return nil
	}
	return v.install(msg.payload)
}

// install replaces the payload and starts populating the role list.
func (v *rolesView) install(payload model.RolesPayload) tea.Cmd {
	v.payload = payload
	v.populated = v.populated[:0]
	v.filtered = nil
	v.cursor = 0
	v.personIdx = 0
	v.chunker = listview.NewChunker(payload.Roles, v.epoch, listview.DefaultChunkSize)
	return v.nextChunk()
}

func (v *rolesView) onChunk(msg chunkMsg) tea.Cmd {
	if msg.epoch != v.epoch || v.chunker == nil {
		return nil
	}
	return v.nextChunk()
}

// nextChunk appends one batch and yields to the event loop before the next.
func (v *rolesView) nextChunk() tea.Cmd {
	batch, ok := v.chunker.Next(v.epoch)
	if !ok {
		return nil
	}
	v.populated = append(v.populated, batch...)
	v.applyFilter()
	if v.chunker.Done() {
		v.log.Debug().Int("roles", len(v.populated)).Msg("roles populated")
		return nil
	}
	return chunkCmd(v.epoch)
}

func (v *rolesView) toggleCount1() tea.Cmd {
	v.query.IncludeCount1 = !v.query.IncludeCount1
	return v.load()
}

func (v *rolesView) toggleActive() tea.Cmd {
	v.query.ActiveOnly = !v.query.ActiveOnly
	return v.load()
}

// applyFilter fuzzy-matches the filter text against the populated roles,
// keeping the highlighted role where it still matches.
func (v *rolesView) applyFilter() {
	current, hadCurrent := v.currentRole()
	query := strings.TrimSpace(v.filter.Value())

	v.filtered = v.filtered[:0]
	if query == "" {
		for i := range v.populated {
			v.filtered = append(v.filtered, i)
		}
	} else {
		names := make([]string, len(v.populated))
		for i, r := range v.populated {
			names[i] = r.Name + " " + r.Category
		}
		for _, match := range fuzzy.Find(query, names) {
			v.filtered = append(v.filtered, match.Index)
		}
	}

	v.cursor = 0
	if hadCurrent {
		for i, idx := range v.filtered {
			if v.populated[idx].Name == current.Name {
				v.cursor = i
				return
			}
		}
	}
	v.personIdx = 0
}

func (v *rolesView) updateFilter(msg tea.Msg) tea.Cmd {
	before := v.filter.Value()
	var cmd tea.Cmd
	v.filter, cmd = v.filter.Update(msg)
	if v.filter.Value() != before {
		v.applyFilter()
	}
	return cmd
}

func (v *rolesView) currentRole() (model.RoleMeta, bool) {
	if v.cursor < 0 || v.cursor >= len(v.filtered) {
		return model.RoleMeta{}, false
	}
	return v.populated[v.filtered[v.cursor]], true
}

// people returns the ranked people of the highlighted role.
func (v *rolesView) people() []model.RankedPerson {
	role, ok := v.currentRole()
	if !ok {
		return nil
	}
	return v.payload.ByRole[role.Name]
}

// selectedPerson is the person under the cursor of the people pane.
func (v *rolesView) selectedPerson() (model.RankedPerson, bool) {
	people := v.people()
	if v.pane != panePeople || v.personIdx < 0 || v.personIdx >= len(people) {
		return model.RankedPerson{}, false
	}
	return people[v.personIdx], true
}

func (v *rolesView) move(delta int) {
	switch v.pane {
	case paneRoles:
		if len(v.filtered) == 0 {
			return
		}
		v.cursor = min(max(v.cursor+delta, 0), len(v.filtered)-1)
		v.personIdx = 0
	case panePeople:
		n := len(v.people())
		if n == 0 {
			return
		}
		v.personIdx = min(max(v.personIdx+delta, 0), n-1)
	}
}

func (v *rolesView) setPane(p rolesPane) {
	if p == panePeople && len(v.people()) == 0 {
		return
	}
	v.pane = p
}

func (v *rolesView) resize(width, height int) {
	v.width, v.height = width, height
	v.filter.Width = max(min(width/2-6, 40), 10)
}

func (v rolesView) listHeight() int {
	return max(v.height-tabBarLines-searchLines-footerLines-1, MinContentHeight)
}

func (v rolesView) view() string {
	t := v.theme
	muted := t.Renderer.NewStyle().Foreground(t.Subtext).Italic(true)

	head := v.filter.View()
	if !v.filter.Focused() {
		text := "/ filter roles"
		if f := v.filter.Value(); f != "" {
			text = "/ " + f
		}
		head = t.Renderer.NewStyle().Foreground(t.Subtext).Render(text)
	}
	var flags []string
	if v.query.IncludeCount1 {
		flags = append(flags, "[single credits]")
	}
	if v.query.ActiveOnly {
		flags = append(flags, "[active only]")
	}
	if len(flags) > 0 {
		head += "  " + t.Renderer.NewStyle().Foreground(t.Success).Bold(true).Render(strings.Join(flags, " "))
	}

	var body string
	switch {
	case v.err != nil:
		body = t.Renderer.NewStyle().Foreground(t.Danger).Render("  could not load roles (r to retry)")
	case v.loading && len(v.populated) == 0:
		body = muted.Render("  loading roles…")
	case len(v.filtered) == 0 && v.chunker != nil && v.chunker.Done():
		body = muted.Render("  no matching roles")
	default:
		body = v.panes()
	}
	return head + "\n" + body
}

// panes lays the role list and the people list side by side on wide
// terminals and stacked otherwise.
func (v rolesView) panes() string {
	height := v.listHeight()
	if v.width >= BreakpointMedium {
		leftWidth := v.width * 2 / 5
		left := v.roleList(leftWidth-4, height-2)
		right := v.peopleList(v.width-leftWidth-4, height-2)
		ls, rs := v.theme.PanelStyle(), v.theme.PanelStyle()
		if v.pane == paneRoles {
			ls = v.theme.FocusedPanelStyle()
		} else {
			rs = v.theme.FocusedPanelStyle()
		}
		return lipgloss.JoinHorizontal(lipgloss.Top,
			ls.Width(leftWidth-2).Height(height-2).Render(left),
			rs.Width(v.width-leftWidth-2).Height(height-2).Render(right),
		)
	}
	top := max(height/2, MinContentHeight)
	return v.roleList(v.width, top) + "\n" + RenderDivider(v.width, v.theme) + "\n" + v.peopleList(v.width, max(height-top-1, 1))
}

// scrollStart keeps cursor visible in a list of n items shown height at a time.
func scrollStart(cursor, n, height int) int {
	if n <= height {
		return 0
	}
	return min(max(cursor-height/2, 0), n-height)
}

func (v rolesView) roleList(width, height int) string {
	t := v.theme
	var lines []string
	start := scrollStart(v.cursor, len(v.filtered), height)
	for i := start; i < len(v.filtered) && len(lines) < height; i++ {
		role := v.populated[v.filtered[i]]
		prefix := "  "
		nameStyle := t.Base
		if i == v.cursor {
			prefix = "▸ "
			nameStyle = t.Renderer.NewStyle().Foreground(t.Primary).Bold(true)
		}
		count := strconv.Itoa(role.NumPeople)
		name := fitCell(role.Name, max(width-len(prefix)-5-len(count)-1, 4), false)
		lines = append(lines, prefix+RenderGroupBadge(role.MainGroup, t)+" "+nameStyle.Render(name)+" "+
			t.Renderer.NewStyle().Foreground(t.Subtext).Render(count))
	}
	if v.chunker != nil && !v.chunker.Done() {
		lines = append(lines, t.Renderer.NewStyle().Foreground(t.Subtext).Italic(true).
			Render(fmt.Sprintf("  … %d of %d roles", len(v.populated), len(v.payload.Roles))))
	}
	return strings.Join(lines, "\n")
}

func (v rolesView) peopleList(width, height int) string {
	t := v.theme
	role, ok := v.currentRole()
	if !ok {
		return ""
	}
	people := v.payload.ByRole[role.Name]
	ranks := model.DenseRanks(people)
	distinct := 0
	if len(ranks) > 0 {
		distinct = ranks[len(ranks)-1]
	}

	title := role.Name
	if role.Category != "" {
		title += " · " + role.Category
	}
	lines := []string{t.Renderer.NewStyle().Bold(true).Foreground(t.Primary).Render(fitCell(title, width, false))}

	selected := -1
	if v.pane == panePeople {
		selected = v.personIdx
	}
	top := 0
	for _, p := range people {
		top = max(top, p.Count)
	}
	barWidth := 0
	if width >= 50 {
		barWidth = 10
	}
	start := scrollStart(max(selected, 0), len(people), height-1)
	for i := start; i < len(people) && len(lines) < height; i++ {
		p := people[i]
		rank := RenderRankBadge(ranks[i], distinct, t)
		count := strconv.Itoa(p.Count)
		name := fitCell(p.Name, max(width-6-len(count)-2-barWidth, 4), false)
		style := t.Base
		if i == selected {
			style = t.Renderer.NewStyle().Background(t.Highlight).Foreground(t.Primary).Bold(true)
		}
		pad := strings.Repeat(" ", max(5-lipgloss.Width(rank), 0))
		line := fmt.Sprintf("%s%s %s %s", pad, rank, style.Render(name), count)
		if barWidth > 0 && top > 0 {
			line = fmt.Sprintf("%s%s %s %s %s", pad, rank, style.Render(name),
				RenderMiniBar(float64(p.Count)/float64(top), barWidth-1, t), count)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (v rolesView) statusLine() string {
	parts := []string{fmt.Sprintf("%d roles", len(v.payload.Roles))}
	if role, ok := v.currentRole(); ok {
		parts = append(parts, fmt.Sprintf("%s: %d people", role.Name, len(v.payload.ByRole[role.Name])))
	}
	if v.loading {
		parts = append(parts, "loading")
	}
	return strings.Join(parts, " · ")
}
