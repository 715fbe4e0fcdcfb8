package ui

import (
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/castrank/castrank/pkg/model"
)

// column is one table column. Sort is empty for columns that cannot be
// sorted on.
type column struct {
	Sort  model.SortColumn
	Title string
	Width int
	Right bool
	Label bool // dropped on narrow terminals
	Flex  bool // takes the remaining width
}

var baseColumns = []column{
	{Title: "#", Width: 6, Right: true},
	{Sort: model.SortName, Title: "Name", Width: 16, Flex: true},
	{Sort: model.SortCount, Title: "Credits", Width: 8, Right: true},
	{Sort: model.SortNumShows, Title: "Shows", Width: 6, Right: true},
	{Sort: model.SortNumTitles, Title: "Titles", Width: 7, Right: true},
	{Sort: model.SortTopRole, Title: "Top role", Width: 20, Label: true},
	{Sort: model.SortTopSubcategory, Title: "Subcategory", Width: 14, Label: true},
	{Sort: model.SortTopCategory, Title: "Category", Width: 10, Label: true},
	{Sort: model.SortLastCredit, Title: "Active", Width: 23},
}

// layoutColumns fits the columns into width. The flexible column absorbs
// whatever is left after one space between columns.
func layoutColumns(width int) []column {
	var cols []column
	for _, c := range baseColumns {
		if c.Label && width < BreakpointNarrow {
			continue
		}
		cols = append(cols, c)
	}
	used := 0
	for _, c := range cols {
		used += c.Width + 1
	}
	for i := range cols {
		if cols[i].Flex {
			cols[i].Width = max(cols[i].Width+width-used, 8)
		}
	}
	return cols
}

// columnAt returns the sortable column under screen column x.
func columnAt(cols []column, x int) (model.SortColumn, bool) {
	pos := 0
	for _, c := range cols {
		if x >= pos && x < pos+c.Width {
			return c.Sort, c.Sort != ""
		}
		pos += c.Width + 1
	}
	return "", false
}

// fitCell truncates or pads s to exactly width cells.
func fitCell(s string, width int, right bool) string {
	if width <= 0 {
		return ""
	}
	s = runewidth.Truncate(s, width, "…")
	if right {
		return runewidth.FillLeft(s, width)
	}
	return runewidth.FillRight(s, width)
}

// renderHeader draws the column titles with the active sort's arrow.
func renderHeader(cols []column, q model.QuerySpec, t Theme) string {
	cells := make([]string, len(cols))
	for i, c := range cols {
		title := c.Title
		if c.Sort != "" && c.Sort == q.SortColumn {
			title += " " + q.SortDir.Arrow()
		}
		cells[i] = fitCell(title, c.Width, c.Right)
	}
	return t.Renderer.NewStyle().Bold(true).Foreground(t.Primary).Render(strings.Join(cells, " "))
}

// cellValue is the text of column c for the row at index.
func cellValue(c column, index int, p model.Person) string {
	switch c.Sort {
	case "":
		return strconv.Itoa(index + 1)
	case model.SortName:
		return p.Name
	case model.SortCount:
		return strconv.Itoa(p.Count)
	case model.SortNumShows:
		return strconv.Itoa(p.NumShows)
	case model.SortNumTitles:
		return strconv.Itoa(p.NumTitles)
	case model.SortTopRole:
		if p.TopRole == "" {
			return ""
		}
		return p.TopRole + " (" + strconv.Itoa(p.TopRoleCount) + ")"
	case model.SortTopSubcategory:
		return p.TopSubcategory
	case model.SortTopCategory:
		return p.TopCategory
	case model.SortLastCredit:
		return p.DateRange()
	}
	return ""
}

// renderRow draws one loaded row.
func renderRow(cols []column, index int, p model.Person, selected bool, t Theme) string {
	cells := make([]string, len(cols))
	for i, c := range cols {
		cells[i] = fitCell(cellValue(c, index, p), c.Width, c.Right)
	}
	row := strings.Join(cells, " ")
	style := t.Base
	if selected {
		style = t.Renderer.NewStyle().Background(t.Highlight).Foreground(t.Primary).Bold(true)
	}
	return style.Render(row)
}

// renderPlaceholder draws a row that is inside the result set but not
// loaded yet.
func renderPlaceholder(cols []column, index int, selected bool, t Theme) string {
	if len(cols) == 0 {
		return ""
	}
	first := fitCell(strconv.Itoa(index+1), cols[0].Width, cols[0].Right)
	style := t.Renderer.NewStyle().Foreground(t.Subtext).Faint(true)
	if selected {
		style = style.Background(t.Highlight)
	}
	return style.Render(first + " loading…")
}
