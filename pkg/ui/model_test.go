package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/castrank/castrank/pkg/config"
	"github.com/castrank/castrank/pkg/listview"
	"github.com/castrank/castrank/pkg/model"
	"github.com/castrank/castrank/pkg/remote"
)

type testEnv struct {
	src    *remote.Memory
	copied []string
	opened []string
}

func newTestModel(t *testing.T, mutate func(*config.Config)) (Model, *testEnv) {
	t.Helper()
	people, roles := remote.DemoData(250, 7)
	env := &testEnv{src: remote.NewMemory(people, roles)}
	cfg := config.Default()
	if mutate != nil {
		mutate(&cfg)
	}
	m, err := New(Options{
		Source: env.src,
		Config: &cfg,
		Copy:   func(s string) error { env.copied = append(env.copied, s); return nil },
		Open:   func(s string) error { env.opened = append(env.opened, s); return nil },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m, env
}

func sendMsg(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func keys(t *testing.T, m Model, ks ...string) Model {
	t.Helper()
	for _, k := range ks {
		var msg tea.KeyMsg
		switch k {
		case "tab":
			msg = tea.KeyMsg{Type: tea.KeyTab}
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		m, _ = sendMsg(t, m, msg)
	}
	return m
}

// answer serves the page the table is waiting for, in the current epoch.
func answer(t *testing.T, m Model, env *testEnv, page int) Model {
	t.Helper()
	rec := m.rankings.rec
	task := listview.FetchTask{Epoch: rec.Epoch(), Query: rec.Query(), Page: page, PerPage: rec.Prefix().PageSize()}
	p, err := env.src.FetchPage(context.Background(), task.Query, task.Page, task.PerPage)
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	m, _ = sendMsg(t, m, pageLoadedMsg{result: listview.FetchResult{Task: task, Page: p}})
	return m
}

func TestInitialPageLoads(t *testing.T) {
	m, env := newTestModel(t, nil)
	if m.rankings.rec.State() != listview.Loading {
		t.Fatalf("state = %s, want loading", m.rankings.rec.State())
	}
	m = answer(t, m, env, 1)
	if got := m.rankings.rec.Prefix().Len(); got != 100 {
		t.Fatalf("loaded %d rows, want 100", got)
	}
	if m.rankings.summary.N != 100 {
		t.Errorf("stats cover %d rows", m.rankings.summary.N)
	}
	if !strings.Contains(m.View(), "100/250 loaded") {
		t.Errorf("status line missing load count:\n%s", m.View())
	}
}

func TestStalePagesIgnoredAfterSearch(t *testing.T) {
	m, env := newTestModel(t, nil)
	m = answer(t, m, env, 1)
	oldEpoch := m.rankings.rec.Epoch()

	m = keys(t, m, "/", "b", "o", "b")
	if m.rankings.rec.Query().Search != "" {
		t.Fatal("query changed before the debounce fired")
	}

	// Only the newest debounce timer changes the query.
	m, _ = sendMsg(t, m, searchDebounceMsg{id: 1})
	if m.rankings.rec.Epoch() != oldEpoch {
		t.Fatal("superseded debounce timer changed the query")
	}
	m, _ = sendMsg(t, m, searchDebounceMsg{id: 3})
	if got := m.rankings.rec.Query().Search; got != "bob" {
		t.Fatalf("search = %q, want bob", got)
	}
	if m.rankings.rec.Prefix().Len() != 0 {
		t.Fatal("new query should start from an empty prefix")
	}

	stale := pageLoadedMsg{result: listview.FetchResult{
		Task: listview.FetchTask{Epoch: oldEpoch, Query: model.DefaultQuery(), Page: 2, PerPage: 100},
		Page: model.Page{Records: make([]model.Person, 100), Total: 250},
	}}
	m, _ = sendMsg(t, m, stale)
	if m.rankings.rec.Prefix().Len() != 0 {
		t.Fatal("stale page reached the new query's prefix")
	}
	if m.flash != "" {
		t.Errorf("stale page should not flash, got %q", m.flash)
	}

	m = answer(t, m, env, 1)
	want, _ := env.src.FetchPage(context.Background(), m.rankings.rec.Query(), 1, 100)
	if got := m.rankings.rec.Prefix().Len(); got != len(want.Records) {
		t.Fatalf("loaded %d rows, want %d", got, len(want.Records))
	}
}

func TestWheelEventsCollapseIntoOneFrame(t *testing.T) {
	m, env := newTestModel(t, nil)
	m = answer(t, m, env, 1)
	before := m.rankings.rec.Recomputations()

	wheel := tea.MouseMsg{Button: tea.MouseButtonWheelDown, Action: tea.MouseActionPress}
	m, first := sendMsg(t, m, wheel)
	m, second := sendMsg(t, m, wheel)
	if first == nil {
		t.Fatal("first wheel event should schedule a frame")
	}
	if second != nil {
		t.Fatal("second wheel event in the same frame should not schedule another")
	}

	m, _ = sendMsg(t, m, frameMsg{})
	if got := m.rankings.rec.Recomputations() - before; got != 1 {
		t.Fatalf("recomputed %d times, want 1", got)
	}
	if got := m.rankings.rec.Viewport().ScrollOffset; got != 2*wheelStep {
		t.Fatalf("offset = %d, want %d", got, 2*wheelStep)
	}
	w := m.rankings.rec.Window()
	if m.rankings.cursor < w.Start || m.rankings.cursor >= w.End {
		t.Errorf("cursor %d outside window %d..%d", m.rankings.cursor, w.Start, w.End)
	}
}

func TestZeroTotalShowsEmptyState(t *testing.T) {
	m, _ := newTestModel(t, func(c *config.Config) { c.InitialTotal = 0 })
	rec := m.rankings.rec
	if rec.State() != listview.Ready || !rec.Empty() {
		t.Fatalf("state = %s empty = %v", rec.State(), rec.Empty())
	}
	w := rec.Window()
	if w.TopSpacer != 0 || w.BottomSpacer != 0 {
		t.Fatalf("spacers = %d/%d, want 0/0", w.TopSpacer, w.BottomSpacer)
	}
	if !strings.Contains(m.View(), "no eligible data") {
		t.Error("empty state not rendered")
	}
}

func TestSortKeysAndHeaderClick(t *testing.T) {
	m, env := newTestModel(t, nil)
	m = answer(t, m, env, 1)

	// "2" is Credits, already the active column: it flips direction.
	m = keys(t, m, "2")
	if q := m.rankings.rec.Query(); q.SortColumn != model.SortCount || q.SortDir != model.SortAsc {
		t.Fatalf("after 2: %+v", q)
	}

	nameX := baseColumns[0].Width + 2
	click := tea.MouseMsg{X: nameX, Y: rankingsHeaderLine(), Button: tea.MouseButtonLeft, Action: tea.MouseActionPress}
	m, cmd := sendMsg(t, m, click)
	if q := m.rankings.rec.Query(); q.SortColumn != model.SortName || q.SortDir != model.SortAsc {
		t.Fatalf("after header click: %+v", q)
	}
	if cmd == nil {
		t.Error("sort change should fetch page 1")
	}
}

func TestFailedFetchFlashesAndRetries(t *testing.T) {
	m, _ := newTestModel(t, nil)
	rec := m.rankings.rec
	failed := pageLoadedMsg{result: listview.FetchResult{
		Task: listview.FetchTask{Epoch: rec.Epoch(), Query: rec.Query(), Page: 1, PerPage: 100},
		Err:  fmt.Errorf("%w: boom", remote.ErrFetchFailed),
	}}
	m, _ = sendMsg(t, m, failed)
	if m.flash != "fetch failed (r to retry)" || !m.flashErr {
		t.Fatalf("flash = %q err=%v", m.flash, m.flashErr)
	}
	if m.rankings.rec.State() != listview.Ready || m.rankings.rec.Prefix().Len() != 0 {
		t.Fatal("failed fetch should settle without rows")
	}

	m, cmd := sendMsg(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	if cmd == nil || m.rankings.rec.State() != listview.Loading {
		t.Fatal("r should retry page 1")
	}
}

func TestCopyAndOpenProfileLink(t *testing.T) {
	m, env := newTestModel(t, func(c *config.Config) { c.ProfileURL = "https://example.org/people/{slug}" })
	m = answer(t, m, env, 1)
	first, _ := m.rankings.rec.Prefix().At(0)

	m = keys(t, m, "y", "o")
	want := "https://example.org/people/" + first.Slug
	if len(env.copied) != 1 || env.copied[0] != want {
		t.Fatalf("copied %v, want %s", env.copied, want)
	}
	if len(env.opened) != 1 || env.opened[0] != want {
		t.Fatalf("opened %v, want %s", env.opened, want)
	}
}

func TestCopyWithoutSelection(t *testing.T) {
	m, env := newTestModel(t, nil)
	m = keys(t, m, "y")
	if len(env.copied) != 0 || !m.flashErr {
		t.Fatalf("copy with nothing loaded: copied=%v flash=%q", env.copied, m.flash)
	}
}

func rolesPayload(n int) model.RolesPayload {
	p := model.RolesPayload{ByRole: map[string][]model.RankedPerson{}}
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("Role %03d", i)
		p.Roles = append(p.Roles, model.RoleMeta{Name: name, NumPeople: 6, MainGroup: "Tech"})
		p.ByRole[name] = []model.RankedPerson{
			{PID: 1, Name: "Ann", Slug: "ann", Count: 5},
			{PID: 2, Name: "Ben", Slug: "ben", Count: 5},
			{PID: 3, Name: "Cy", Slug: "cy", Count: 2},
		}
	}
	return p
}

func TestRolesPopulateInChunksAndDropStaleWork(t *testing.T) {
	m, _ := newTestModel(t, nil)
	m, cmd := sendMsg(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if cmd == nil || m.tab != tabRoles || m.roles.epoch != 1 {
		t.Fatalf("switching tab should load roles, epoch=%d", m.roles.epoch)
	}

	m, cmd = sendMsg(t, m, rolesLoadedMsg{epoch: 1, payload: rolesPayload(100)})
	if got := len(m.roles.populated); got != listview.DefaultChunkSize {
		t.Fatalf("first batch populated %d roles", got)
	}
	if cmd == nil {
		t.Fatal("more batches should be scheduled")
	}
	m, _ = sendMsg(t, m, chunkMsg{epoch: 1})
	if got := len(m.roles.populated); got != 2*listview.DefaultChunkSize {
		t.Fatalf("second batch populated %d roles", got)
	}

	// A toggle starts a new epoch; the old job's batches are abandoned.
	m = keys(t, m, "c")
	if m.roles.epoch != 2 || !m.roles.query.IncludeCount1 {
		t.Fatalf("toggle: epoch=%d query=%+v", m.roles.epoch, m.roles.query)
	}
	m, cmd = sendMsg(t, m, chunkMsg{epoch: 1})
	if cmd != nil || len(m.roles.populated) != 2*listview.DefaultChunkSize {
		t.Fatal("stale batch was applied")
	}
	m, _ = sendMsg(t, m, rolesLoadedMsg{epoch: 1, payload: rolesPayload(7)})
	if len(m.roles.payload.Roles) != 100 {
		t.Fatal("stale payload was installed")
	}

	m, cmd = sendMsg(t, m, rolesLoadedMsg{epoch: 2, payload: rolesPayload(3)})
	if cmd != nil || len(m.roles.populated) != 3 || !m.roles.chunker.Done() {
		t.Fatalf("short payload should populate at once, got %d", len(m.roles.populated))
	}
}

func TestRolesFilterAndRanks(t *testing.T) {
	m, _ := newTestModel(t, nil)
	payload := model.RolesPayload{
		Roles: []model.RoleMeta{
			{Name: "Director", NumPeople: 9, MainGroup: "Prod"},
			{Name: "Lighting Designer", NumPeople: 7, MainGroup: "Tech"},
			{Name: "Sound Designer", NumPeople: 6, MainGroup: "Tech"},
		},
		ByRole: map[string][]model.RankedPerson{
			"Lighting Designer": {
				{PID: 4, Name: "Dee", Slug: "dee", Count: 8},
				{PID: 5, Name: "Eli", Slug: "eli", Count: 8},
				{PID: 6, Name: "Flo", Slug: "flo", Count: 3},
			},
		},
	}
	m = keys(t, m, "tab")
	m, _ = sendMsg(t, m, rolesLoadedMsg{epoch: m.roles.epoch, payload: payload})

	m = keys(t, m, "/", "l", "i", "g", "h", "t", "enter")
	if len(m.roles.filtered) != 1 {
		t.Fatalf("filter matched %d roles", len(m.roles.filtered))
	}
	role, _ := m.roles.currentRole()
	if role.Name != "Lighting Designer" {
		t.Fatalf("current role = %q", role.Name)
	}

	m = keys(t, m, "l", "j")
	p, ok := m.roles.selectedPerson()
	if !ok || p.Name != "Eli" {
		t.Fatalf("selected person = %+v, %v", p, ok)
	}
	if view := m.View(); !strings.Contains(view, "#1") || !strings.Contains(view, "#2") {
		t.Errorf("dense ranks not rendered:\n%s", view)
	}
}

func TestBootstrapSeedsRolesAndTotal(t *testing.T) {
	m, _ := newTestModel(t, nil)
	payload := rolesPayload(2)
	m, _ = sendMsg(t, m, bootstrapLoadedMsg{boot: model.Bootstrap{TotalPeople: 1234, Roles: payload.Roles, ByRole: payload.ByRole}})
	if m.rankings.knownPeople != 1234 {
		t.Errorf("knownPeople = %d", m.rankings.knownPeople)
	}
	if !m.roles.loaded() || len(m.roles.populated) != 2 {
		t.Fatalf("bootstrap did not seed roles: %d", len(m.roles.populated))
	}
	m, cmd := sendMsg(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if cmd != nil {
		t.Error("seeded roles tab should not refetch")
	}
	_ = m
}

func TestSnapshotReloadRefreshes(t *testing.T) {
	m, env := newTestModel(t, nil)
	reloads := 0
	m.opts.Reload = func(context.Context) error { reloads++; return nil }
	m = answer(t, m, env, 1)
	epoch := m.rankings.rec.Epoch()

	m, cmd := sendMsg(t, m, snapshotChangedMsg{})
	if cmd == nil {
		t.Fatal("change should trigger a reload")
	}
	m, _ = sendMsg(t, m, snapshotReloadedMsg{})
	if m.rankings.rec.Epoch() == epoch || m.rankings.rec.Prefix().Len() != 0 {
		t.Fatal("reload should restart the table in a new epoch")
	}
	if m.flash != "snapshot reloaded" {
		t.Errorf("flash = %q", m.flash)
	}

	m, _ = sendMsg(t, m, snapshotReloadedMsg{err: errors.New("bad file")})
	if !m.flashErr {
		t.Error("failed reload should flash an error")
	}
}

func TestHelpOverlay(t *testing.T) {
	m, _ := newTestModel(t, nil)
	m, _ = sendMsg(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})
	m = keys(t, m, "?")
	if !m.help.IsVisible() || m.View() == "" {
		t.Fatal("help should be visible")
	}
	m = keys(t, m, "j")
	if m.help.IsVisible() {
		t.Fatal("any key should close help")
	}
	if m.rankings.cursor != 0 {
		t.Error("key that closed help should not move the cursor")
	}
}

func TestQuit(t *testing.T) {
	m, _ := newTestModel(t, nil)
	m, cmd := sendMsg(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil || m.View() != "" {
		t.Fatal("q should quit")
	}
}

type panickySource struct{ remote.Source }

func (panickySource) FetchPage(context.Context, model.QuerySpec, int, int) (model.Page, error) {
	panic("boom")
}

func TestFetchPageCmdRecoversPanic(t *testing.T) {
	task := listview.FetchTask{Epoch: 3, Page: 2, PerPage: 100}
	msg := fetchPageCmd(panickySource{}, task)()
	res, ok := msg.(pageLoadedMsg)
	if !ok {
		t.Fatalf("msg = %T", msg)
	}
	if res.result.Task != task || !remote.IsFetchFailed(res.result.Err) {
		t.Fatalf("result = %+v", res.result)
	}
}
