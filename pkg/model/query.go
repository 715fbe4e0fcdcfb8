package model

import "strings"

// MaxPerPage is the largest page the query endpoint serves.
const MaxPerPage = 500

// SortColumn is a column the ranking can be ordered by.
type SortColumn string

const (
	SortCount          SortColumn = "count"
	SortNumShows       SortColumn = "num_shows"
	SortNumTitles      SortColumn = "num_titles"
	SortName           SortColumn = "name"
	SortLastCredit     SortColumn = "last_credit_date"
	SortTopRole        SortColumn = "top_role"
	SortTopSubcategory SortColumn = "top_subcategory"
	SortTopCategory    SortColumn = "top_category"
)

// SortColumns lists the sortable columns in header order.
var SortColumns = []SortColumn{
	SortCount,
	SortName,
	SortNumShows,
	SortNumTitles,
	SortTopRole,
	SortTopSubcategory,
	SortTopCategory,
	SortLastCredit,
}

// IsValid returns true if the column is one the query endpoint accepts.
func (c SortColumn) IsValid() bool {
	switch c {
	case SortCount, SortNumShows, SortNumTitles, SortName, SortLastCredit,
		SortTopRole, SortTopSubcategory, SortTopCategory:
		return true
	}
	return false
}

// Numeric reports whether the column sorts by magnitude rather than text.
// Dates count as numeric: the most recent comes first by default.
func (c SortColumn) Numeric() bool {
	switch c {
	case SortCount, SortNumShows, SortNumTitles, SortLastCredit:
		return true
	}
	return false
}

// DefaultDirection is the direction a column starts in when newly selected.
func (c SortColumn) DefaultDirection() SortDirection {
	if c.Numeric() {
		return SortDesc
	}
	return SortAsc
}

// Label is the column header text.
func (c SortColumn) Label() string {
	switch c {
	case SortCount:
		return "Credits"
	case SortNumShows:
		return "Shows"
	case SortNumTitles:
		return "Titles"
	case SortName:
		return "Name"
	case SortLastCredit:
		return "Dates"
	case SortTopRole:
		return "Top role"
	case SortTopSubcategory:
		return "Subcategory"
	case SortTopCategory:
		return "Category"
	}
	return string(c)
}

// SortDirection is asc or desc.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// IsValid returns true for asc and desc.
func (d SortDirection) IsValid() bool {
	return d == SortAsc || d == SortDesc
}

// Flip returns the opposite direction.
func (d SortDirection) Flip() SortDirection {
	if d == SortAsc {
		return SortDesc
	}
	return SortAsc
}

// Arrow is the glyph shown next to the active sort header.
func (d SortDirection) Arrow() string {
	if d == SortAsc {
		return "▲"
	}
	return "▼"
}

// ParseSortDirection follows the server: anything but "asc" is descending.
func ParseSortDirection(s string) SortDirection {
	if strings.EqualFold(strings.TrimSpace(s), "asc") {
		return SortAsc
	}
	return SortDesc
}

// QuerySpec is the full set of inputs that select and order the ranking.
// Two specs are the same query exactly when they compare equal.
type QuerySpec struct {
	Search     string
	ActiveOnly bool
	SortColumn SortColumn
	SortDir    SortDirection
}

// DefaultQuery is the unfiltered ranking ordered by credit count.
func DefaultQuery() QuerySpec {
	return QuerySpec{SortColumn: SortCount, SortDir: SortDesc}
}

// Normalized trims the search text and fills unset or unknown sort fields.
func (q QuerySpec) Normalized() QuerySpec {
	q.Search = strings.TrimSpace(q.Search)
	if !q.SortColumn.IsValid() {
		q.SortColumn = SortCount
	}
	if !q.SortDir.IsValid() {
		q.SortDir = q.SortColumn.DefaultDirection()
	}
	return q
}

// WithSort applies a header activation: the active column flips direction,
// any other column becomes active in its default direction.
func (q QuerySpec) WithSort(col SortColumn) QuerySpec {
	if q.SortColumn == col {
		q.SortDir = q.SortDir.Flip()
		return q
	}
	q.SortColumn = col
	q.SortDir = col.DefaultDirection()
	return q
}
