package main

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/castrank/castrank/pkg/config"
	"github.com/castrank/castrank/pkg/model"
	"github.com/castrank/castrank/pkg/remote"
)

// maxParallelPages bounds concurrent page requests in batch commands.
const maxParallelPages = 4

// fetchRows returns the first limit rows of q, or all of them when limit
// is not positive, along with the total the source reported. Page 1
// supplies the total; the remaining pages are fetched concurrently and
// joined in page order.
func fetchRows(ctx context.Context, src remote.DataSource, q model.QuerySpec, limit, perPage int) ([]model.Person, int, error) {
	first, err := src.FetchPage(ctx, q, 1, perPage)
	if err != nil {
		return nil, 0, err
	}
	total := first.Total
	want := total
	if limit > 0 && limit < want {
		want = limit
	}
	pages := (want + perPage - 1) / perPage
	if pages <= 1 || len(first.Records) < perPage {
		return first.Records[:min(want, len(first.Records))], total, nil
	}

	results := make([][]model.Person, pages)
	results[0] = first.Records
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelPages)
	for number := 2; number <= pages; number++ {
		g.Go(func() error {
			page, err := src.FetchPage(gctx, q, number, perPage)
			if err != nil {
				return err
			}
			results[number-1] = page.Records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	rows := make([]model.Person, 0, want)
	for _, records := range results {
		rows = append(rows, records...)
	}
	return rows[:min(want, len(rows))], total, nil
}

// buildQuery applies command-line query flags to the configured default.
func buildQuery(cfg *config.Config, search, sortCol, sortDir string, activeOnly bool) (model.QuerySpec, error) {
	q := cfg.DefaultQuery()
	q.Search = search
	q.ActiveOnly = activeOnly
	if sortCol != "" {
		col := model.SortColumn(sortCol)
		if !col.IsValid() {
			return q, fmt.Errorf("unknown sort column %q", sortCol)
		}
		q.SortColumn = col
		q.SortDir = col.DefaultDirection()
	}
	if sortDir != "" {
		q.SortDir = model.ParseSortDirection(sortDir)
	}
	return q.Normalized(), nil
}
