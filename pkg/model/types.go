package model

import (
	"fmt"
	"strings"
)

// Person is one row of the ranking as served by the query endpoint.
type Person struct {
	PID                 int64   `json:"pid"`
	Name                string  `json:"name"`
	Slug                string  `json:"slug"`
	Count               int     `json:"count"`
	NumShows            int     `json:"num_shows"`
	NumTitles           int     `json:"num_titles"`
	TopRole             string  `json:"top_role,omitempty"`
	TopRoleCount        int     `json:"top_role_count"`
	TopPct              float64 `json:"top_pct"`
	TopSubcategory      string  `json:"top_subcategory,omitempty"`
	TopSubcategoryCount int     `json:"top_subcategory_count"`
	TopCategory         string  `json:"top_category,omitempty"`
	TopCategoryCount    int     `json:"top_category_count"`
	FirstCreditDate     string  `json:"first_credit_date,omitempty"`
	LastCreditDate      string  `json:"last_credit_date,omitempty"`
	CreditDateRange     string  `json:"credit_date_range,omitempty"`
	Active              bool    `json:"active,omitempty"`
}

// Validate checks the fields the client relies on.
func (p *Person) Validate() error {
	if p.PID == 0 {
		return fmt.Errorf("person pid cannot be zero")
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("person %d has an empty name", p.PID)
	}
	if p.Count < 0 {
		return fmt.Errorf("person %d has negative count %d", p.PID, p.Count)
	}
	return nil
}

// DateRange returns the server's range string, or builds one from the
// first and last credit dates.
func (p *Person) DateRange() string {
	if p.CreditDateRange != "" {
		return p.CreditDateRange
	}
	return FormatDateRange(p.FirstCreditDate, p.LastCreditDate)
}

// FormatDateRange joins two ISO dates the way the ranking page shows them.
func FormatDateRange(first, last string) string {
	switch {
	case first != "" && last != "" && first == last:
		return first
	case first != "" && last != "":
		return first + " - " + last
	case first != "":
		return first
	case last != "":
		return last
	default:
		return "—"
	}
}

// Page is one slice of the ranking for a query.
type Page struct {
	Number  int      `json:"page"`
	PerPage int      `json:"per_page"`
	Records []Person `json:"people"`
	Total   int      `json:"total"`
}

// RoleMeta describes one role in the role-detail payload.
type RoleMeta struct {
	Name      string `json:"name"`
	NumPeople int    `json:"num_people"`
	Category  string `json:"category,omitempty"`
	MainGroup string `json:"main_group,omitempty"`
}

// RankedPerson is a person's credit count within a single role.
type RankedPerson struct {
	PID   int64  `json:"pid"`
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Count int    `json:"count"`
}

// RolesPayload is the role-detail endpoint response.
type RolesPayload struct {
	Roles  []RoleMeta                `json:"roles"`
	ByRole map[string][]RankedPerson `json:"by_role"`
}

// Bootstrap is the first payload a client may load: the unfiltered total
// and the default role detail.
type Bootstrap struct {
	TotalPeople int                       `json:"totalPeople"`
	Roles       []RoleMeta                `json:"roles"`
	ByRole      map[string][]RankedPerson `json:"byRole"`
}

// RolesQuery selects what the role-detail endpoint returns.
type RolesQuery struct {
	IncludeCount1 bool
	ActiveOnly    bool
}

// DenseRanks assigns ranks to people already ordered by descending count.
// Equal counts share a rank and the next distinct count takes the next
// integer (1, 1, 2, ...).
func DenseRanks(people []RankedPerson) []int {
	ranks := make([]int, len(people))
	rank := 0
	for i, p := range people {
		if i == 0 || p.Count != people[i-1].Count {
			rank++
		}
		ranks[i] = rank
	}
	return ranks
}
