package ui

import (
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"

	"github.com/castrank/castrank/pkg/listview"
	"github.com/castrank/castrank/pkg/model"
)

func TestLayoutColumns(t *testing.T) {
	tests := []struct {
		name      string
		width     int
		wantCols  int
		wantLabel bool
		nameWidth int
	}{
		{"wide", 120, 9, true, 17},
		{"narrow drops labels", 79, 6, false, 23},
		{"tiny keeps a usable name", 30, 6, false, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cols := layoutColumns(tt.width)
			if len(cols) != tt.wantCols {
				t.Fatalf("got %d columns, want %d", len(cols), tt.wantCols)
			}
			hasLabel := false
			for _, c := range cols {
				hasLabel = hasLabel || c.Label
				if c.Flex && c.Width != tt.nameWidth {
					t.Errorf("name width = %d, want %d", c.Width, tt.nameWidth)
				}
			}
			if hasLabel != tt.wantLabel {
				t.Errorf("label columns present = %v, want %v", hasLabel, tt.wantLabel)
			}
		})
	}
}

func TestColumnAt(t *testing.T) {
	cols := layoutColumns(120)
	tests := []struct {
		x    int
		want model.SortColumn
		ok   bool
	}{
		{0, "", false}, // rank column is not sortable
		{6, "", false}, // separator
		{7, model.SortName, true},
		{7 + 17 + 1, model.SortCount, true},
		{500, "", false},
	}
	for _, tt := range tests {
		got, ok := columnAt(cols, tt.x)
		if got != tt.want || ok != tt.ok {
			t.Errorf("columnAt(%d) = %q, %v; want %q, %v", tt.x, got, ok, tt.want, tt.ok)
		}
	}
}

func TestFitCell(t *testing.T) {
	tests := []struct {
		in    string
		width int
		right bool
		want  string
	}{
		{"abcdef", 4, false, "abc…"},
		{"ab", 4, false, "ab  "},
		{"ab", 4, true, "  ab"},
		{"ab", 0, false, ""},
	}
	for _, tt := range tests {
		if got := fitCell(tt.in, tt.width, tt.right); got != tt.want {
			t.Errorf("fitCell(%q, %d, %v) = %q, want %q", tt.in, tt.width, tt.right, got, tt.want)
		}
	}
	if w := runewidth.StringWidth(fitCell("Zoë Ångström-Ødegaard", 10, false)); w != 10 {
		t.Errorf("wide runes fitted to %d cells", w)
	}
}

func TestRenderRowAndHeader(t *testing.T) {
	theme := DefaultTheme()
	cols := layoutColumns(120)
	p := model.Person{Name: "Ada Lovelace", Count: 42, NumShows: 30, TopRole: "Director", TopRoleCount: 12}

	row := renderRow(cols, 4, p, false, theme)
	for _, want := range []string{"5", "Ada Lovelace", "42", "Director (12)"} {
		if !strings.Contains(row, want) {
			t.Errorf("row %q missing %q", row, want)
		}
	}

	q := model.QuerySpec{SortColumn: model.SortName, SortDir: model.SortAsc}
	header := renderHeader(cols, q, theme)
	if !strings.Contains(header, "Name "+model.SortAsc.Arrow()) {
		t.Errorf("header %q has no arrow on the sorted column", header)
	}

	if ph := renderPlaceholder(cols, 9, false, theme); !strings.Contains(ph, "10") || !strings.Contains(ph, "loading") {
		t.Errorf("placeholder = %q", ph)
	}
}

func TestScrollbarThumb(t *testing.T) {
	tests := []struct {
		name      string
		w         listview.Window
		height    int
		wantStart int
		wantSize  int
	}{
		{"everything visible", listview.Window{Start: 0, End: 5}, 10, 0, 10},
		{"empty", listview.Window{}, 10, 0, 10},
		{"top of a long list", listview.Window{Start: 0, End: 10, BottomSpacer: 90}, 10, 0, 1},
		{"bottom of a long list", listview.Window{Start: 90, End: 100, TopSpacer: 90}, 10, 9, 1},
		{"middle", listview.Window{Start: 40, End: 60, TopSpacer: 40, BottomSpacer: 40}, 10, 4, 2},
		{"no track", listview.Window{Start: 0, End: 10, BottomSpacer: 90}, 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, size := scrollbarThumb(tt.w, 1, tt.height)
			if start != tt.wantStart || size != tt.wantSize {
				t.Errorf("thumb = %d+%d, want %d+%d", start, size, tt.wantStart, tt.wantSize)
			}
		})
	}

	cells := renderScrollbar(listview.Window{Start: 0, End: 10, BottomSpacer: 90}, 1, 10, DefaultTheme())
	if len(cells) != 10 || !strings.Contains(cells[0], "┃") || !strings.Contains(cells[9], "│") {
		t.Errorf("scrollbar cells = %q", cells)
	}
}

func TestScrollStart(t *testing.T) {
	tests := []struct{ cursor, n, height, want int }{
		{0, 5, 10, 0},
		{0, 50, 10, 0},
		{25, 50, 10, 20},
		{49, 50, 10, 40},
	}
	for _, tt := range tests {
		if got := scrollStart(tt.cursor, tt.n, tt.height); got != tt.want {
			t.Errorf("scrollStart(%d, %d, %d) = %d, want %d", tt.cursor, tt.n, tt.height, got, tt.want)
		}
	}
}
