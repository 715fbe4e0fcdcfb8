// Package remote fetches ranking pages and role detail from the ranking
// service, or from anything else that answers the same questions.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/castrank/castrank/pkg/model"
)

// ErrFetchFailed wraps every failure to obtain a page or payload. A failed
// fetch never means "no more data".
var ErrFetchFailed = errors.New("fetch failed")

// IsFetchFailed reports whether err came from a failed fetch.
func IsFetchFailed(err error) bool {
	return errors.Is(err, ErrFetchFailed)
}

// CheckPerPage rejects a page size the query endpoint would not honour.
// Local sources use it instead of clamping, since a page of a different
// size than requested cannot be sequenced by the caller.
func CheckPerPage(perPage int) error {
	if perPage < 1 || perPage > model.MaxPerPage {
		return fmt.Errorf("%w: per_page %d outside 1..%d", ErrFetchFailed, perPage, model.MaxPerPage)
	}
	return nil
}

// DataSource serves pages of the ranking for a query. Pages for one query
// must come from one stable ordering.
type DataSource interface {
	FetchPage(ctx context.Context, q model.QuerySpec, page, perPage int) (model.Page, error)
}

// RoleSource serves the role-detail payload.
type RoleSource interface {
	Roles(ctx context.Context, q model.RolesQuery) (model.RolesPayload, error)
}

// Source is everything the viewer reads.
type Source interface {
	DataSource
	RoleSource
	Bootstrap(ctx context.Context) (model.Bootstrap, error)
}

// RankingsParams encodes a page request the way the query endpoint
// expects.
func RankingsParams(q model.QuerySpec, page, perPage int) url.Values {
	q = q.Normalized()
	v := url.Values{}
	v.Set("page", strconv.Itoa(max(page, 1)))
	v.Set("per_page", strconv.Itoa(max(perPage, 1)))
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	v.Set("active_only", boolParam(q.ActiveOnly))
	v.Set("sort_col", string(q.SortColumn))
	v.Set("sort_dir", string(q.SortDir))
	return v
}

// RolesParams encodes a role-detail request.
func RolesParams(q model.RolesQuery) url.Values {
	v := url.Values{}
	v.Set("include_count1", boolParam(q.IncludeCount1))
	v.Set("active_only", boolParam(q.ActiveOnly))
	return v
}

// ParseBool accepts the truthy spellings the service accepts.
func ParseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// ParseRankingsParams decodes a page request, applying the service's
// defaults and clamps.
func ParseRankingsParams(v url.Values) (q model.QuerySpec, page, perPage int) {
	page, err := strconv.Atoi(v.Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	perPage, err = strconv.Atoi(v.Get("per_page"))
	if err != nil {
		perPage = 100
	}
	perPage = min(max(perPage, 1), model.MaxPerPage)

	col := model.SortColumn(strings.TrimSpace(v.Get("sort_col")))
	if !col.IsValid() {
		col = model.SortCount
	}
	q = model.QuerySpec{
		Search:     strings.TrimSpace(v.Get("search")),
		ActiveOnly: ParseBool(v.Get("active_only")),
		SortColumn: col,
		SortDir:    model.ParseSortDirection(v.Get("sort_dir")),
	}
	return q, page, perPage
}

func boolParam(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
