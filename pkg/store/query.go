package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/castrank/castrank/pkg/model"
	"github.com/castrank/castrank/pkg/remote"
)

const personColumns = `
	p.pid, p.name, p.slug, p.count, p.num_shows, p.num_titles,
	p.top_role, p.top_role_count, p.top_pct,
	p.top_subcategory, p.top_subcategory_count,
	p.top_category, p.top_category_count,
	p.first_credit_date, p.last_credit_date, p.credit_date_range, p.active`

// orderBy returns the ORDER BY clause matching model.SortPeople.
func orderBy(col model.SortColumn, dir model.SortDirection) string {
	d := "DESC"
	if dir == model.SortAsc {
		d = "ASC"
	}
	tail := fmt.Sprintf("p.name_lower %s, p.pid %s", d, d)

	switch col {
	case model.SortName:
		return tail
	case model.SortLastCredit:
		// Undated rows go last in name order whatever the direction.
		return fmt.Sprintf(`(p.last_credit_date = '') ASC,
			p.last_credit_date %[1]s,
			CASE WHEN p.last_credit_date = '' THEN NULL ELSE p.first_credit_date END %[1]s,
			CASE WHEN p.last_credit_date = '' THEN NULL ELSE p.name_lower END %[1]s,
			CASE WHEN p.last_credit_date = '' THEN NULL ELSE p.pid END %[1]s,
			p.name_lower ASC, p.pid ASC`, d)
	case model.SortTopRole:
		return fmt.Sprintf("COALESCE(r.num_people, 0) %[1]s, p.top_role_count %[1]s, p.top_role_lower %[1]s, %[2]s", d, tail)
	case model.SortTopSubcategory:
		return fmt.Sprintf("p.top_subcategory_count %[1]s, p.top_subcategory_lower %[1]s, %[2]s", d, tail)
	case model.SortTopCategory:
		return fmt.Sprintf("p.top_category_count %[1]s, p.top_category_lower %[1]s, %[2]s", d, tail)
	case model.SortNumShows:
		return fmt.Sprintf("p.num_shows %s, p.name_lower ASC, p.pid ASC", d)
	case model.SortNumTitles:
		return fmt.Sprintf("p.num_titles %s, p.name_lower ASC, p.pid ASC", d)
	}
	return fmt.Sprintf("p.count %s, p.name_lower ASC, p.pid ASC", d)
}

// where builds the filter shared by the page and count queries.
func where(q model.QuerySpec) (string, []any) {
	var clauses []string
	var args []any
	if q.ActiveOnly {
		clauses = append(clauses, "p.active = 1")
	}
	if q.Search != "" {
		clauses = append(clauses, "instr(p.name_lower, ?) > 0")
		args = append(args, strings.ToLower(q.Search))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// FetchPage implements remote.DataSource.
func (s *Store) FetchPage(ctx context.Context, q model.QuerySpec, page, perPage int) (model.Page, error) {
	q = q.Normalized()
	page = max(page, 1)
	if err := remote.CheckPerPage(perPage); err != nil {
		return model.Page{}, err
	}
	filter, args := where(q)

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM people p"+filter, args...).Scan(&total); err != nil {
		return model.Page{}, fmt.Errorf("%w: count: %w", remote.ErrFetchFailed, err)
	}

	query := "SELECT " + personColumns + `
		FROM people p LEFT JOIN roles r ON r.name = p.top_role` + filter + `
		ORDER BY ` + orderBy(q.SortColumn, q.SortDir) + `
		LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, query, append(args, perPage, (page-1)*perPage)...)
	if err != nil {
		return model.Page{}, fmt.Errorf("%w: page %d: %w", remote.ErrFetchFailed, page, err)
	}
	defer rows.Close()

	out := model.Page{Number: page, PerPage: perPage, Total: total}
	for rows.Next() {
		var p model.Person
		if err := rows.Scan(
			&p.PID, &p.Name, &p.Slug, &p.Count, &p.NumShows, &p.NumTitles,
			&p.TopRole, &p.TopRoleCount, &p.TopPct,
			&p.TopSubcategory, &p.TopSubcategoryCount,
			&p.TopCategory, &p.TopCategoryCount,
			&p.FirstCreditDate, &p.LastCreditDate, &p.CreditDateRange, &p.Active,
		); err != nil {
			return model.Page{}, fmt.Errorf("%w: scan: %w", remote.ErrFetchFailed, err)
		}
		out.Records = append(out.Records, p)
	}
	if err := rows.Err(); err != nil {
		return model.Page{}, fmt.Errorf("%w: page %d: %w", remote.ErrFetchFailed, page, err)
	}
	return out, nil
}

// Roles implements remote.RoleSource.
func (s *Store) Roles(ctx context.Context, q model.RolesQuery) (model.RolesPayload, error) {
	all, err := s.allRoles(ctx)
	if err != nil {
		return model.RolesPayload{}, fmt.Errorf("%w: roles: %w", remote.ErrFetchFailed, err)
	}
	var active func(int64) bool
	if q.ActiveOnly {
		set, err := s.activeSet(ctx)
		if err != nil {
			return model.RolesPayload{}, fmt.Errorf("%w: roles: %w", remote.ErrFetchFailed, err)
		}
		active = func(pid int64) bool { return set[pid] }
	}
	return model.FilterRoles(all, q, active), nil
}

// Bootstrap implements remote.Source.
func (s *Store) Bootstrap(ctx context.Context) (model.Bootstrap, error) {
	total, err := s.Count(ctx)
	if err != nil {
		return model.Bootstrap{}, fmt.Errorf("%w: bootstrap: %w", remote.ErrFetchFailed, err)
	}
	roles, err := s.Roles(ctx, model.RolesQuery{})
	if err != nil {
		return model.Bootstrap{}, err
	}
	return model.Bootstrap{TotalPeople: total, Roles: roles.Roles, ByRole: roles.ByRole}, nil
}

func (s *Store) allRoles(ctx context.Context) (model.RolesPayload, error) {
	out := model.RolesPayload{ByRole: make(map[string][]model.RankedPerson)}

	rows, err := s.db.QueryContext(ctx, `
		SELECT name, num_people, category, main_group
		FROM roles
		ORDER BY position
	`)
	if err != nil {
		return out, err
	}
	for rows.Next() {
		var r model.RoleMeta
		if err := rows.Scan(&r.Name, &r.NumPeople, &r.Category, &r.MainGroup); err != nil {
			rows.Close()
			return out, err
		}
		out.Roles = append(out.Roles, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return out, err
	}

	rows, err = s.db.QueryContext(ctx, `
		SELECT role, pid, name, slug, count
		FROM role_people
		ORDER BY role, position
	`)
	if err != nil {
		return out, err
	}
	defer rows.Close()
	for rows.Next() {
		var role string
		var p model.RankedPerson
		if err := rows.Scan(&role, &p.PID, &p.Name, &p.Slug, &p.Count); err != nil {
			return out, err
		}
		out.ByRole[role] = append(out.ByRole[role], p)
	}
	return out, rows.Err()
}

func (s *Store) activeSet(ctx context.Context) (map[int64]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT pid FROM people WHERE active = 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	set := make(map[int64]bool)
	for rows.Next() {
		var pid int64
		if err := rows.Scan(&pid); err != nil {
			return nil, err
		}
		set[pid] = true
	}
	return set, rows.Err()
}
