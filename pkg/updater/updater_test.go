package updater

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		v1, v2 string
		want   int
	}{
		{"v0.1.0", "v0.1.0", 0},
		{"0.1.0", "v0.1.0", 0},
		{"v0.1.1", "v0.1.0", 1},
		{"v0.10.0", "v0.2.0", 1},
		{"v0.2.0", "v0.10.0", -1},
		{"v1.0", "v1.0.0", 0},
		{"v0.3.0", "v0.3.0-dev", 1},
		{"v0.3.0-dev", "v0.3.0", -1},
		{"v0.3.0-rc2", "v0.3.0-rc1", 1},
	}
	for _, tt := range tests {
		if got := CompareVersions(tt.v1, tt.v2); got != tt.want {
			t.Errorf("CompareVersions(%q, %q) = %d, want %d", tt.v1, tt.v2, got, tt.want)
		}
	}
}

func TestCheckForUpdates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/latest":
			w.Write([]byte(`{"tag_name":"v0.4.0","html_url":"https://example.org/r/v0.4.0"}`))
		case "/notag":
			w.Write([]byte(`{}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	ctx := context.Background()

	rel, newer, err := CheckForUpdates(ctx, srv.URL+"/latest", "v0.3.0-dev")
	if err != nil {
		t.Fatal(err)
	}
	if !newer || rel.TagName != "v0.4.0" || rel.HTMLURL == "" {
		t.Errorf("got %+v newer=%v", rel, newer)
	}

	if _, newer, err := CheckForUpdates(ctx, srv.URL+"/latest", "v0.4.0"); err != nil || newer {
		t.Errorf("same version: newer=%v err=%v", newer, err)
	}
	if _, _, err := CheckForUpdates(ctx, srv.URL+"/notag", "v0.1.0"); err == nil {
		t.Error("release without a tag should fail")
	}
	if _, _, err := CheckForUpdates(ctx, srv.URL+"/missing", "v0.1.0"); err == nil {
		t.Error("404 should fail")
	}
}
