// Package ui is the castrank terminal interface: a virtualized ranking
// table fed page by page from a remote source, and a per-role view.
package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/castrank/castrank/pkg/config"
	"github.com/castrank/castrank/pkg/export"
	"github.com/castrank/castrank/pkg/logging"
	"github.com/castrank/castrank/pkg/model"
	"github.com/castrank/castrank/pkg/remote"
)

// Options configures the program.
type Options struct {
	Source remote.Source
	Config *config.Config
	Logger *logging.Logger

	// Changes and Reload are set in offline mode: a value on Changes
	// means the snapshot was rewritten and Reload re-imports it.
	Changes <-chan struct{}
	Reload  func(context.Context) error

	// Copy and Open default to the system clipboard and browser.
	Copy func(string) error
	Open func(string) error
}

type tab int

const (
	tabRankings tab = iota
	tabRoles
)

var tabTitles = []string{"Rankings", "By role"}

// Model is the root Bubble Tea model.
type Model struct {
	opts  Options
	cfg   *config.Config
	log   *logging.Logger
	theme Theme

	tab      tab
	rankings rankingsView
	roles    rolesView
	help     HelpOverlayModel

	width  int
	height int

	flash    string
	flashErr bool
	flashID  int

	initCmds []tea.Cmd
	quitting bool
}

// New builds the model and queues the first page, the bootstrap payload
// and the snapshot subscription for Init.
func New(opts Options) (Model, error) {
	if opts.Source == nil {
		return Model{}, errors.New("ui: no data source")
	}
	if opts.Config == nil {
		cfg := config.Default()
		opts.Config = &cfg
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	if opts.Copy == nil {
		opts.Copy = clipboard.WriteAll
	}
	if opts.Open == nil {
		opts.Open = export.OpenInBrowser
	}

	theme := DefaultTheme()
	rankings, err := newRankingsView(opts.Source, opts.Config, opts.Logger, theme)
	if err != nil {
		return Model{}, err
	}
	m := Model{
		opts:     opts,
		cfg:      opts.Config,
		log:      opts.Logger,
		theme:    theme,
		rankings: rankings,
		roles:    newRolesView(opts.Source, opts.Logger, theme),
		help:     NewHelpOverlayModel(theme),
		width:    80,
		height:   24,
	}
	m.initCmds = []tea.Cmd{
		m.rankings.start(),
		bootstrapCmd(opts.Source),
		waitForChange(opts.Changes),
	}
	return m, nil
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.initCmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmd := m.update(msg)
	if m.quitting {
		return m, tea.Quit
	}
	return m, cmd
}

func (m *Model) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleWindowSize(msg)
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.MouseMsg:
		return m.handleMouse(msg)

	case pageLoadedMsg:
		cmd, err := m.rankings.onPage(msg)
		if err != nil {
			return tea.Batch(cmd, m.setFlash(fetchErrorText(err), true))
		}
		return cmd
	case searchDebounceMsg:
		return m.rankings.onDebounce(msg)
	case frameMsg:
		return m.rankings.onFrame()
	case spinner.TickMsg:
		return m.rankings.onSpinnerTick(msg)

	case rolesLoadedMsg:
		cmd := m.roles.onLoaded(msg)
		if msg.epoch == m.roles.epoch && msg.err != nil {
			return tea.Batch(cmd, m.setFlash(fetchErrorText(msg.err), true))
		}
		return cmd
	case chunkMsg:
		return m.roles.onChunk(msg)
	case bootstrapLoadedMsg:
		return m.handleBootstrap(msg)

	case snapshotChangedMsg:
		m.log.Info().Msg("snapshot changed, reloading")
		if m.opts.Reload == nil {
			return waitForChange(m.opts.Changes)
		}
		return reloadCmd(m.opts.Reload)
	case snapshotReloadedMsg:
		return m.handleReloaded(msg)

	case flashClearMsg:
		if msg.id == m.flashID {
			m.flash = ""
		}
	}
	return nil
}

func (m *Model) handleWindowSize(msg tea.WindowSizeMsg) tea.Cmd {
	m.width = max(msg.Width, 20)
	m.height = max(msg.Height, tabBarLines+footerLines+MinContentHeight+2)
	m.help.SetSize(m.width, m.height)
	m.roles.resize(m.width, m.height)
	return m.rankings.resize(m.width, m.height)
}

func (m *Model) handleBootstrap(msg bootstrapLoadedMsg) tea.Cmd {
	if msg.err != nil {
		// The table does not need it; the roles tab fetches its own.
		m.log.Warn().Err(msg.err).Msg("bootstrap failed")
		return nil
	}
	m.rankings.knownPeople = msg.boot.TotalPeople
	m.log.Debug().Int("people", msg.boot.TotalPeople).Int("roles", len(msg.boot.Roles)).Msg("bootstrap loaded")
	return m.roles.seed(msg.boot)
}

func (m *Model) handleReloaded(msg snapshotReloadedMsg) tea.Cmd {
	next := waitForChange(m.opts.Changes)
	if msg.err != nil {
		m.log.Error().Err(msg.err).Msg("snapshot reload failed")
		return tea.Batch(next, m.setFlash("snapshot reload failed: "+msg.err.Error(), true))
	}
	cmds := []tea.Cmd{next, m.rankings.refresh(), bootstrapCmd(m.opts.Source), m.setFlash("snapshot reloaded", false)}
	if m.roles.loaded() {
		cmds = append(cmds, m.roles.load())
	}
	return tea.Batch(cmds...)
}

func fetchErrorText(err error) string {
	if remote.IsFetchFailed(err) {
		return "fetch failed (r to retry)"
	}
	return err.Error()
}

// setFlash shows text in the footer until it times out or is replaced.
func (m *Model) setFlash(text string, isErr bool) tea.Cmd {
	m.flashID++
	m.flash = text
	m.flashErr = isErr
	return flashClearCmd(m.flashID)
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	key := msg.String()
	if key == "ctrl+c" {
		m.quitting = true
		return nil
	}
	if m.help.IsVisible() {
		m.help, _ = m.help.Update(msg)
		return nil
	}

	if m.tab == tabRankings && m.rankings.search.Focused() {
		if key == "esc" || key == "enter" {
			m.rankings.search.Blur()
			return nil
		}
		return m.rankings.updateSearch(msg)
	}
	if m.tab == tabRoles && m.roles.filter.Focused() {
		if key == "esc" || key == "enter" {
			m.roles.filter.Blur()
			return nil
		}
		return m.roles.updateFilter(msg)
	}

	switch key {
	case "q":
		m.quitting = true
		return nil
	case "?":
		m.help.Toggle()
		return nil
	case "tab", "shift+tab":
		return m.switchTab()
	case "y":
		return m.copyLink()
	case "o":
		return m.openLink()
	}

	if m.tab == tabRankings {
		return m.handleRankingsKey(key)
	}
	return m.handleRolesKey(key)
}

func (m *Model) handleRankingsKey(key string) tea.Cmd {
	v := &m.rankings
	switch key {
	case "/":
		return v.search.Focus()
	case "j", "down":
		return v.moveCursor(1)
	case "k", "up":
		return v.moveCursor(-1)
	case "pgdown", " ", "ctrl+f":
		return v.pageBy(v.budget())
	case "pgup", "ctrl+b":
		return v.pageBy(-v.budget())
	case "g", "home":
		return v.home()
	case "G", "end":
		return v.end()
	case "a":
		return v.toggleActive()
	case "r":
		return v.retry()
	case "R":
		return v.refresh()
	}
	if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
		cols := sortableColumns()
		if i := int(key[0] - '1'); i < len(cols) {
			return v.sortBy(cols[i])
		}
	}
	return nil
}

// sortableColumns lists the sortable columns in header order.
func sortableColumns() []model.SortColumn {
	var out []model.SortColumn
	for _, c := range baseColumns {
		if c.Sort != "" {
			out = append(out, c.Sort)
		}
	}
	return out
}

func (m *Model) handleRolesKey(key string) tea.Cmd {
	v := &m.roles
	switch key {
	case "/":
		v.setPane(paneRoles)
		return v.filter.Focus()
	case "j", "down":
		v.move(1)
	case "k", "up":
		v.move(-1)
	case "h", "left":
		v.setPane(paneRoles)
	case "l", "right", "enter":
		v.setPane(panePeople)
	case "c":
		return v.toggleCount1()
	case "a":
		return v.toggleActive()
	case "r":
		return v.load()
	}
	return nil
}

func (m *Model) switchTab() tea.Cmd {
	if m.tab == tabRankings {
		m.tab = tabRoles
		if !m.roles.loaded() {
			return m.roles.load()
		}
		return nil
	}
	m.tab = tabRankings
	return nil
}

func (m *Model) handleMouse(msg tea.MouseMsg) tea.Cmd {
	if m.help.IsVisible() {
		return nil
	}
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		if m.tab == tabRankings {
			return m.rankings.wheel(-wheelStep)
		}
		m.roles.move(-1)
	case tea.MouseButtonWheelDown:
		if m.tab == tabRankings {
			return m.rankings.wheel(wheelStep)
		}
		m.roles.move(1)
	case tea.MouseButtonLeft:
		if msg.Action != tea.MouseActionPress || m.tab != tabRankings {
			return nil
		}
		if msg.Y == rankingsHeaderLine() {
			return m.rankings.clickHeader(msg.X)
		}
		if y := msg.Y - rankingsBodyTop(); y >= 0 && y < m.rankings.budget() {
			m.rankings.clickRow(y)
		}
	}
	return nil
}

// selectedPerson is the person the link actions apply to on the current tab.
func (m *Model) selectedPerson() (model.RankedPerson, bool) {
	if m.tab == tabRoles {
		return m.roles.selectedPerson()
	}
	p, ok := m.rankings.selected()
	if !ok {
		return model.RankedPerson{}, false
	}
	return model.RankedPerson{PID: p.PID, Name: p.Name, Slug: p.Slug, Count: p.Count}, true
}

func (m *Model) selectedLink() (string, error) {
	p, ok := m.selectedPerson()
	if !ok {
		return "", errors.New("no person selected")
	}
	link := m.cfg.ProfileLink(p)
	if link == "" {
		return "", errors.New("no profile_url_template configured")
	}
	return link, nil
}

func (m *Model) copyLink() tea.Cmd {
	link, err := m.selectedLink()
	if err != nil {
		return m.setFlash(err.Error(), true)
	}
	if err := m.opts.Copy(link); err != nil {
		m.log.Warn().Err(err).Str("link", link).Msg("clipboard write failed")
		return m.setFlash("copy failed: "+err.Error(), true)
	}
	return m.setFlash("copied "+link, false)
}

func (m *Model) openLink() tea.Cmd {
	link, err := m.selectedLink()
	if err != nil {
		return m.setFlash(err.Error(), true)
	}
	if err := m.opts.Open(link); err != nil {
		m.log.Warn().Err(err).Str("link", link).Msg("open link failed")
		return m.setFlash("open failed: "+err.Error(), true)
	}
	return m.setFlash("opened "+link, false)
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.help.IsVisible() {
		return m.help.View()
	}

	bodyHeight := max(m.height-tabBarLines-footerLines, MinContentHeight)
	var body, status, detail string
	switch m.tab {
	case tabRoles:
		body = m.roles.view()
		status = m.roles.statusLine()
		detail = m.theme.Renderer.NewStyle().Foreground(m.theme.Subtext).
			Render("c single-credit roles · a active only · h/l switch list · ? help")
	default:
		body = m.rankings.view()
		status = m.rankings.statusLine()
		detail = m.rankings.statsLine()
	}
	body = lipgloss.NewStyle().Height(bodyHeight).MaxHeight(bodyHeight).Render(body)

	return strings.Join([]string{
		m.tabBar(),
		RenderDivider(m.width, m.theme),
		body,
		m.footer(status),
		detail,
	}, "\n")
}

func (m Model) tabBar() string {
	t := m.theme
	var cells []string
	for i, title := range tabTitles {
		style := t.Renderer.NewStyle().Padding(0, 1).Foreground(t.Subtext)
		if tab(i) == m.tab {
			style = style.Foreground(t.Primary).Bold(true).Underline(true)
		}
		cells = append(cells, style.Render(title))
	}
	return strings.Join(cells, " ")
}

// footer puts the flash message, if any, at the right end of the status line.
func (m Model) footer(status string) string {
	if m.flash == "" {
		return status
	}
	color := m.theme.Success
	if m.flashErr {
		color = m.theme.Danger
	}
	flash := m.theme.Renderer.NewStyle().Foreground(color).Render(m.flash)
	gap := m.width - lipgloss.Width(status) - lipgloss.Width(flash)
	if gap < 2 {
		return status + "  " + flash
	}
	return status + strings.Repeat(" ", gap) + flash
}

// String summarises the model for debug logging.
func (m Model) String() string {
	return fmt.Sprintf("tab=%s epoch=%d state=%s loaded=%d",
		tabTitles[m.tab], m.rankings.rec.Epoch(), m.rankings.rec.State(), m.rankings.rec.Prefix().Len())
}
