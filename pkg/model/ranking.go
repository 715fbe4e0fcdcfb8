package model

import (
	"cmp"
	"slices"
	"strings"
)

// MinRolePeople is the fewest people a role needs to be listed.
const MinRolePeople = 6

var mainGroupOrder = map[string]int{"Tech": 0, "Prod": 1, "Cast": 2, "Band": 3}

// MatchesSearch reports whether name contains search, ignoring case.
// Blank search matches everyone.
func MatchesSearch(name, search string) bool {
	search = strings.TrimSpace(search)
	if search == "" {
		return true
	}
	return strings.Contains(strings.ToLower(name), strings.ToLower(search))
}

// SortPeople orders people the way the query endpoint does. Every column
// falls back to lower-cased name then pid so paging is deterministic.
// rolePopularity maps a role to how many people hold it and is only used
// for the top_role column.
func SortPeople(people []Person, col SortColumn, dir SortDirection, rolePopularity map[string]int) {
	if !col.IsValid() {
		col = SortCount
	}
	desc := dir != SortAsc

	base := func(a, b Person) int {
		return cmp.Or(
			strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)),
			cmp.Compare(a.PID, b.PID),
		)
	}
	directed := func(c int) int {
		if desc {
			return -c
		}
		return c
	}

	switch col {
	case SortName:
		slices.SortStableFunc(people, func(a, b Person) int { return directed(base(a, b)) })
	case SortLastCredit:
		slices.SortStableFunc(people, func(a, b Person) int {
			// Undated rows always go last, in name order.
			aDated, bDated := a.LastCreditDate != "", b.LastCreditDate != ""
			if aDated != bDated {
				if aDated {
					return -1
				}
				return 1
			}
			if !aDated {
				return base(a, b)
			}
			return directed(cmp.Or(
				strings.Compare(a.LastCreditDate, b.LastCreditDate),
				strings.Compare(a.FirstCreditDate, b.FirstCreditDate),
				base(a, b),
			))
		})
	case SortTopRole:
		slices.SortStableFunc(people, func(a, b Person) int {
			return directed(cmp.Or(
				cmp.Compare(rolePopularity[a.TopRole], rolePopularity[b.TopRole]),
				cmp.Compare(a.TopRoleCount, b.TopRoleCount),
				strings.Compare(strings.ToLower(a.TopRole), strings.ToLower(b.TopRole)),
				base(a, b),
			))
		})
	case SortTopSubcategory:
		slices.SortStableFunc(people, func(a, b Person) int {
			return directed(cmp.Or(
				cmp.Compare(a.TopSubcategoryCount, b.TopSubcategoryCount),
				strings.Compare(strings.ToLower(a.TopSubcategory), strings.ToLower(b.TopSubcategory)),
				base(a, b),
			))
		})
	case SortTopCategory:
		slices.SortStableFunc(people, func(a, b Person) int {
			return directed(cmp.Or(
				cmp.Compare(a.TopCategoryCount, b.TopCategoryCount),
				strings.Compare(strings.ToLower(a.TopCategory), strings.ToLower(b.TopCategory)),
				base(a, b),
			))
		})
	default:
		// Counters: only the value follows the direction, ties stay in
		// name order.
		value := func(p Person) int {
			switch col {
			case SortNumShows:
				return p.NumShows
			case SortNumTitles:
				return p.NumTitles
			}
			return p.Count
		}
		slices.SortStableFunc(people, func(a, b Person) int {
			return cmp.Or(directed(cmp.Compare(value(a), value(b))), base(a, b))
		})
	}
}

// PagePeople returns page number of size perPage from an already sorted
// and filtered list. Out of range pages are empty but still carry the total.
func PagePeople(people []Person, number, perPage int) Page {
	number = max(number, 1)
	perPage = max(perPage, 1)
	start := min((number-1)*perPage, len(people))
	end := min(start+perPage, len(people))
	return Page{
		Number:  number,
		PerPage: perPage,
		Records: slices.Clone(people[start:end]),
		Total:   len(people),
	}
}

// FilterRoles applies the listing rules to a full role payload: inactive
// people are dropped when asked, roles with fewer than MinRolePeople are
// hidden, and roles nobody has done twice are hidden unless IncludeCount1.
// Roles are ordered by main group, category, popularity and name.
func FilterRoles(all RolesPayload, q RolesQuery, active func(pid int64) bool) RolesPayload {
	out := RolesPayload{ByRole: make(map[string][]RankedPerson)}
	for _, role := range all.Roles {
		ranked := all.ByRole[role.Name]
		if q.ActiveOnly && active != nil {
			ranked = slices.DeleteFunc(slices.Clone(ranked), func(p RankedPerson) bool { return !active(p.PID) })
		}
		if len(ranked) < MinRolePeople {
			continue
		}
		if !q.IncludeCount1 && maxCount(ranked) <= 1 {
			continue
		}
		role.NumPeople = len(ranked)
		out.Roles = append(out.Roles, role)
		out.ByRole[role.Name] = ranked
	}

	slices.SortStableFunc(out.Roles, func(a, b RoleMeta) int {
		return cmp.Or(
			cmp.Compare(groupRank(a.MainGroup), groupRank(b.MainGroup)),
			strings.Compare(a.Category, b.Category),
			cmp.Compare(b.NumPeople, a.NumPeople),
			strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)),
		)
	})
	return out
}

// SortRanked orders people within a role by descending count, then name.
func SortRanked(people []RankedPerson) {
	slices.SortStableFunc(people, func(a, b RankedPerson) int {
		return cmp.Or(
			cmp.Compare(b.Count, a.Count),
			strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)),
			cmp.Compare(a.PID, b.PID),
		)
	})
}

// RolePopularity maps each role to its number of people.
func RolePopularity(roles []RoleMeta) map[string]int {
	out := make(map[string]int, len(roles))
	for _, r := range roles {
		out[r.Name] = r.NumPeople
	}
	return out
}

func groupRank(group string) int {
	if rank, ok := mainGroupOrder[group]; ok {
		return rank
	}
	return 99
}

func maxCount(people []RankedPerson) int {
	best := 0
	for _, p := range people {
		best = max(best, p.Count)
	}
	return best
}
