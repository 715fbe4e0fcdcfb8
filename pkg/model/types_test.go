package model

import "testing"

func TestWithSort(t *testing.T) {
	tests := []struct {
		name    string
		start   QuerySpec
		col     SortColumn
		wantCol SortColumn
		wantDir SortDirection
	}{
		{"same column flips", DefaultQuery(), SortCount, SortCount, SortAsc},
		{"same column flips back", QuerySpec{SortColumn: SortName, SortDir: SortDesc}, SortName, SortName, SortAsc},
		{"new numeric column desc", QuerySpec{SortColumn: SortName, SortDir: SortAsc}, SortNumShows, SortNumShows, SortDesc},
		{"new text column asc", DefaultQuery(), SortName, SortName, SortAsc},
		{"dates default newest first", DefaultQuery(), SortLastCredit, SortLastCredit, SortDesc},
		{"label column asc", DefaultQuery(), SortTopCategory, SortTopCategory, SortAsc},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.start.WithSort(tt.col)
			if got.SortColumn != tt.wantCol || got.SortDir != tt.wantDir {
				t.Errorf("WithSort(%s) = %s/%s, want %s/%s", tt.col, got.SortColumn, got.SortDir, tt.wantCol, tt.wantDir)
			}
		})
	}
}

func TestNormalized(t *testing.T) {
	q := QuerySpec{Search: "  bob ", SortColumn: "bogus"}.Normalized()
	if q.Search != "bob" {
		t.Errorf("Search = %q, want %q", q.Search, "bob")
	}
	if q.SortColumn != SortCount || q.SortDir != SortDesc {
		t.Errorf("sort = %s/%s, want count/desc", q.SortColumn, q.SortDir)
	}

	q = QuerySpec{SortColumn: SortName}.Normalized()
	if q.SortDir != SortAsc {
		t.Errorf("name default dir = %s, want asc", q.SortDir)
	}
}

func TestParseSortDirection(t *testing.T) {
	for in, want := range map[string]SortDirection{
		"asc":  SortAsc,
		"ASC ": SortAsc,
		"desc": SortDesc,
		"":     SortDesc,
		"up":   SortDesc,
	} {
		if got := ParseSortDirection(in); got != want {
			t.Errorf("ParseSortDirection(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestFormatDateRange(t *testing.T) {
	tests := []struct {
		first, last, want string
	}{
		{"2019-01-01", "2019-01-01", "2019-01-01"},
		{"2018-02-01", "2021-06-30", "2018-02-01 - 2021-06-30"},
		{"2018-02-01", "", "2018-02-01"},
		{"", "2021-06-30", "2021-06-30"},
		{"", "", "—"},
	}
	for _, tt := range tests {
		if got := FormatDateRange(tt.first, tt.last); got != tt.want {
			t.Errorf("FormatDateRange(%q, %q) = %q, want %q", tt.first, tt.last, got, tt.want)
		}
	}

	p := Person{CreditDateRange: "given"}
	if p.DateRange() != "given" {
		t.Errorf("DateRange should prefer the server string, got %q", p.DateRange())
	}
}

func TestDenseRanks(t *testing.T) {
	people := []RankedPerson{{Count: 9}, {Count: 9}, {Count: 7}, {Count: 3}, {Count: 3}, {Count: 1}}
	want := []int{1, 1, 2, 3, 3, 4}
	got := DenseRanks(people)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("DenseRanks = %v, want %v", got, want)
		}
	}
	if len(DenseRanks(nil)) != 0 {
		t.Error("DenseRanks(nil) should be empty")
	}
}

func TestPersonValidate(t *testing.T) {
	tests := []struct {
		name    string
		p       Person
		wantErr bool
	}{
		{"ok", Person{PID: 1, Name: "Ann"}, false},
		{"zero pid", Person{Name: "Ann"}, true},
		{"blank name", Person{PID: 2, Name: "  "}, true},
		{"negative count", Person{PID: 3, Name: "Bo", Count: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
