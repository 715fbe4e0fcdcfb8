// Package listview keeps a gap-free, page-at-a-time prefix of a remote
// ranking in step with a scrolling viewport and a changing query.
//
// Nothing in this package blocks or starts goroutines. Operations return
// FetchTask values that the caller executes and hands back to
// Reconciler.Settle, so all state is owned by whichever single goroutine
// drives the UI.
package listview

import (
	"fmt"

	"github.com/castrank/castrank/pkg/model"
)

// UnknownTotal marks a prefix whose query has not reported a total yet.
const UnknownTotal = -1

// SequencingError reports a page that cannot extend the prefix: one
// appended out of order, or one whose size breaks page alignment. Reason
// is set when the page number itself was acceptable.
type SequencingError struct {
	Expected int
	Got      int
	Reason   string
}

func (e *SequencingError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("page %d rejected: %s", e.Got, e.Reason)
	}
	return fmt.Sprintf("page %d appended out of order: expected page %d", e.Got, e.Expected)
}

// Prefix holds the records loaded so far for one query, in server order.
type Prefix struct {
	pageSize int
	records  []model.Person
	total    int
}

// NewPrefix creates an empty prefix. total may be UnknownTotal.
func NewPrefix(pageSize, total int) *Prefix {
	if pageSize < 1 {
		pageSize = 1
	}
	if total < 0 {
		total = UnknownTotal
	}
	return &Prefix{pageSize: pageSize, total: total}
}

// PageSize returns the number of records per full page.
func (p *Prefix) PageSize() int { return p.pageSize }

// Len returns the number of loaded records.
func (p *Prefix) Len() int { return len(p.records) }

// Total returns the latest total reported by the server, or UnknownTotal.
func (p *Prefix) Total() int { return p.total }

// TotalKnown reports whether a total has been received for this query.
func (p *Prefix) TotalKnown() bool { return p.total != UnknownTotal }

// Complete reports whether every record of the query is loaded.
func (p *Prefix) Complete() bool {
	return p.TotalKnown() && len(p.records) >= p.total
}

// NextPage is the only page number Append will accept.
func (p *Prefix) NextPage() int {
	return len(p.records)/p.pageSize + 1
}

// Append adds page pageNumber to the end of the prefix. Any page other
// than NextPage, a page holding more than PageSize records, or any page
// after a short one is rejected with a *SequencingError and the prefix is
// left unchanged.
func (p *Prefix) Append(pageNumber int, page model.Page) error {
	if pageNumber != p.NextPage() {
		return &SequencingError{Expected: p.NextPage(), Got: pageNumber}
	}
	if len(p.records)%p.pageSize != 0 {
		return &SequencingError{Expected: p.NextPage(), Got: pageNumber, Reason: "prefix already ended with a short page"}
	}
	if len(page.Records) > p.pageSize {
		return &SequencingError{
			Expected: p.NextPage(),
			Got:      pageNumber,
			Reason:   fmt.Sprintf("page holds %d records, page size is %d", len(page.Records), p.pageSize),
		}
	}

	p.records = append(p.records, page.Records...)
	p.total = page.Total
	if p.total < 0 {
		p.total = 0
	}

	// A short page ends the result set even if the server's total says
	// otherwise (rows were removed between calls). Trust what arrived.
	if len(page.Records) < p.pageSize && len(p.records) < p.total {
		p.total = len(p.records)
	}
	if len(p.records) > p.total {
		p.total = len(p.records)
	}
	return nil
}

// Clear drops every record and forgets the total.
func (p *Prefix) Clear() {
	p.records = nil
	p.total = UnknownTotal
}

// Reset drops every record and seeds the total, used on first load when
// the host already knows how many rows exist.
func (p *Prefix) Reset(total int) {
	p.Clear()
	if total >= 0 {
		p.total = total
	}
}

// At returns the record at index i.
func (p *Prefix) At(i int) (model.Person, bool) {
	if i < 0 || i >= len(p.records) {
		return model.Person{}, false
	}
	return p.records[i], true
}

// Slice returns loaded records in [start, end), clamped to what is loaded.
// The returned slice must not be modified.
func (p *Prefix) Slice(start, end int) []model.Person {
	if start < 0 {
		start = 0
	}
	if end > len(p.records) {
		end = len(p.records)
	}
	if start >= end {
		return nil
	}
	return p.records[start:end]
}
