package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/castrank/castrank/pkg/model"
)

// serve exposes src on the three service endpoints.
func serve(t *testing.T, src *Memory) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var hits atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/api/rankings", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		q, page, perPage := ParseRankingsParams(r.URL.Query())
		out, err := src.FetchPage(r.Context(), q, page, perPage)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(out)
	})
	mux.HandleFunc("/api/roles", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		out, _ := src.Roles(r.Context(), model.RolesQuery{
			IncludeCount1: ParseBool(r.URL.Query().Get("include_count1")),
			ActiveOnly:    ParseBool(r.URL.Query().Get("active_only")),
		})
		_ = json.NewEncoder(w).Encode(out)
	})
	mux.HandleFunc("/api/bootstrap", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		out, _ := src.Bootstrap(r.Context())
		_ = json.NewEncoder(w).Encode(out)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &hits
}

func newTestClient(t *testing.T, base string) *Client {
	t.Helper()
	c, err := NewClient(Options{
		RankingsURL:  base + "/api/rankings",
		RolesURL:     base + "/api/roles",
		BootstrapURL: base + "/api/bootstrap",
		Timeout:      2 * time.Second,
		RetryMax:     0,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestRankingsParams(t *testing.T) {
	q := model.QuerySpec{Search: " bob ", ActiveOnly: true, SortColumn: model.SortName, SortDir: model.SortAsc}
	v := RankingsParams(q, 2, 100)
	want := map[string]string{
		"page":        "2",
		"per_page":    "100",
		"search":      "bob",
		"active_only": "1",
		"sort_col":    "name",
		"sort_dir":    "asc",
	}
	for k, w := range want {
		if got := v.Get(k); got != w {
			t.Errorf("%s = %q, want %q", k, got, w)
		}
	}

	back, page, perPage := ParseRankingsParams(v)
	if back != q.Normalized() || page != 2 || perPage != 100 {
		t.Errorf("round trip = %+v %d %d", back, page, perPage)
	}

	v = RankingsParams(model.QuerySpec{}, 1, 50)
	if v.Has("search") || v.Get("active_only") != "0" || v.Get("sort_col") != "count" || v.Get("sort_dir") != "desc" {
		t.Errorf("defaults encoded as %v", v.Encode())
	}
}

func TestParseRankingsParamsClamps(t *testing.T) {
	v := RankingsParams(model.QuerySpec{}, 1, 1)
	v.Set("page", "-3")
	v.Set("per_page", "9999")
	v.Set("sort_col", "height")
	v.Set("sort_dir", "sideways")
	q, page, perPage := ParseRankingsParams(v)
	if page != 1 || perPage != 500 || q.SortColumn != model.SortCount || q.SortDir != model.SortDesc {
		t.Errorf("got %+v page=%d perPage=%d", q, page, perPage)
	}
}

func TestClientFetchPage(t *testing.T) {
	people, roles := DemoData(250, 7)
	srv, _ := serve(t, NewMemory(people, roles))
	c := newTestClient(t, srv.URL)

	page, err := c.FetchPage(context.Background(), model.DefaultQuery(), 3, 100)
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if page.Total != 250 || len(page.Records) != 50 || page.Number != 3 {
		t.Fatalf("page = number %d, %d rows, total %d", page.Number, len(page.Records), page.Total)
	}
	first, err := c.FetchPage(context.Background(), model.DefaultQuery(), 1, 100)
	if err != nil {
		t.Fatal(err)
	}
	if first.Records[0].Count < page.Records[0].Count {
		t.Error("default query should be ordered by descending count")
	}
	if m := c.Metrics(); m.Requests != 2 || m.Failures != 0 {
		t.Errorf("metrics = %+v", m)
	}
}

func TestClientFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"not found", func(w http.ResponseWriter, r *http.Request) { http.NotFound(w, r) }},
		{"server error", func(w http.ResponseWriter, r *http.Request) { http.Error(w, "boom", http.StatusInternalServerError) }},
		{"malformed json", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`{"people": [`)) }},
		{"negative total", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`{"people": [], "total": -1}`)) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()
			c := newTestClient(t, srv.URL)
			_, err := c.FetchPage(context.Background(), model.DefaultQuery(), 1, 100)
			if !IsFetchFailed(err) {
				t.Fatalf("err = %v, want ErrFetchFailed", err)
			}
		})
	}
}

func TestClientUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c := newTestClient(t, base)
	if _, err := c.FetchPage(context.Background(), model.DefaultQuery(), 1, 100); !IsFetchFailed(err) {
		t.Fatalf("err = %v, want ErrFetchFailed", err)
	}
	if m := c.Metrics(); m.Failures != 1 {
		t.Errorf("Failures = %d, want 1", m.Failures)
	}
}

func TestClientRolesAndBootstrap(t *testing.T) {
	people, roles := DemoData(400, 3)
	srv, _ := serve(t, NewMemory(people, roles))
	c := newTestClient(t, srv.URL)

	payload, err := c.Roles(context.Background(), model.RolesQuery{IncludeCount1: true})
	if err != nil {
		t.Fatalf("Roles: %v", err)
	}
	if len(payload.Roles) == 0 {
		t.Fatal("expected some roles")
	}
	for _, r := range payload.Roles {
		if len(payload.ByRole[r.Name]) != r.NumPeople {
			t.Errorf("role %s lists %d people, meta says %d", r.Name, len(payload.ByRole[r.Name]), r.NumPeople)
		}
	}

	boot, err := c.Bootstrap(context.Background())
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if boot.TotalPeople != 400 {
		t.Errorf("TotalPeople = %d, want 400", boot.TotalPeople)
	}
}

func TestClientRolesShareInFlight(t *testing.T) {
	release := make(chan struct{})
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		_, _ = w.Write([]byte(`{"roles": [], "by_role": {}}`))
	}))
	defer srv.Close()
	c := newTestClient(t, srv.URL)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Roles(context.Background(), model.RolesQuery{}); err != nil {
				t.Errorf("Roles: %v", err)
			}
		}()
	}
	// Let every caller join the flight before the server answers.
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	if hits.Load() != 1 {
		t.Errorf("server saw %d requests, want 1", hits.Load())
	}
}

func TestNewClientRequiresURL(t *testing.T) {
	if _, err := NewClient(Options{}); err == nil {
		t.Fatal("expected error without rankings URL")
	}
}

func TestMemoryFiltersAndFails(t *testing.T) {
	people := []model.Person{
		{PID: 1, Name: "Bob Smith", Count: 3, Active: true},
		{PID: 2, Name: "Alice", Count: 9},
		{PID: 3, Name: "bobby", Count: 5},
	}
	m := NewMemory(people, model.RolesPayload{})

	page, err := m.FetchPage(context.Background(), model.QuerySpec{Search: "BOB"}, 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 2 || page.Records[0].Name != "bobby" {
		t.Errorf("search page = %+v", page)
	}

	page, _ = m.FetchPage(context.Background(), model.QuerySpec{ActiveOnly: true}, 1, 10)
	if page.Total != 1 || page.Records[0].PID != 1 {
		t.Errorf("active page = %+v", page)
	}

	m.SetFailing(true)
	if _, err := m.FetchPage(context.Background(), model.DefaultQuery(), 1, 10); !IsFetchFailed(err) {
		t.Errorf("err = %v, want ErrFetchFailed", err)
	}
	if got := m.Calls(); len(got) != 3 {
		t.Errorf("Calls = %v", got)
	}
}

func TestMemoryLatencyHonoursContext(t *testing.T) {
	m := NewMemory(nil, model.RolesPayload{})
	m.SetLatency(time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := m.FetchPage(ctx, model.DefaultQuery(), 1, 10); !IsFetchFailed(err) {
		t.Fatalf("err = %v, want ErrFetchFailed", err)
	}
}

func TestDemoDataDeterministic(t *testing.T) {
	a, _ := DemoData(50, 11)
	b, _ := DemoData(50, 11)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("row %d differs between runs", i)
		}
		if err := a[i].Validate(); err != nil {
			t.Fatalf("row %d invalid: %v", i, err)
		}
	}
}

func TestMemoryRejectsUnservablePageSize(t *testing.T) {
	people, roles := DemoData(600, 4)
	m := NewMemory(people, roles)
	tests := []struct {
		perPage int
		wantErr bool
	}{
		{0, true},
		{1, false},
		{model.MaxPerPage, false},
		{model.MaxPerPage + 1, true},
	}
	for _, tt := range tests {
		page, err := m.FetchPage(context.Background(), model.DefaultQuery(), 1, tt.perPage)
		if tt.wantErr {
			if !IsFetchFailed(err) {
				t.Errorf("perPage %d: err = %v, want ErrFetchFailed", tt.perPage, err)
			}
			continue
		}
		if err != nil || len(page.Records) != tt.perPage {
			t.Errorf("perPage %d: %d records, err %v", tt.perPage, len(page.Records), err)
		}
	}
}
