package remote

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/castrank/castrank/pkg/model"
)

// Memory is an in-process Source over a fixed ranking. It filters, sorts
// and pages exactly like the service, and can be told to stall or fail to
// exercise the viewer.
type Memory struct {
	mu      sync.Mutex
	people  []model.Person
	roles   model.RolesPayload
	latency time.Duration
	failing bool
	calls   []int
}

// NewMemory builds a source over people and the full role payload.
func NewMemory(people []model.Person, roles model.RolesPayload) *Memory {
	return &Memory{people: slices.Clone(people), roles: roles}
}

// SetLatency delays every call by d, honouring context cancellation.
func (m *Memory) SetLatency(d time.Duration) {
	m.mu.Lock()
	m.latency = d
	m.mu.Unlock()
}

// SetFailing makes every call fail until reset.
func (m *Memory) SetFailing(failing bool) {
	m.mu.Lock()
	m.failing = failing
	m.mu.Unlock()
}

// Calls returns the page numbers requested so far, in order.
func (m *Memory) Calls() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.calls)
}

// Replace swaps the ranking, as a rebuilt cache would.
func (m *Memory) Replace(people []model.Person, roles model.RolesPayload) {
	m.mu.Lock()
	m.people = slices.Clone(people)
	m.roles = roles
	m.mu.Unlock()
}

func (m *Memory) wait(ctx context.Context) error {
	m.mu.Lock()
	latency, failing := m.latency, m.failing
	m.mu.Unlock()

	if latency > 0 {
		select {
		case <-time.After(latency):
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ErrFetchFailed, ctx.Err())
		}
	}
	if failing {
		return fmt.Errorf("%w: source unavailable", ErrFetchFailed)
	}
	return nil
}

// FetchPage implements DataSource.
func (m *Memory) FetchPage(ctx context.Context, q model.QuerySpec, page, perPage int) (model.Page, error) {
	m.mu.Lock()
	m.calls = append(m.calls, page)
	m.mu.Unlock()

	if err := CheckPerPage(perPage); err != nil {
		return model.Page{}, err
	}
	if err := m.wait(ctx); err != nil {
		return model.Page{}, err
	}

	m.mu.Lock()
	people := m.people
	popularity := model.RolePopularity(m.roles.Roles)
	m.mu.Unlock()

	q = q.Normalized()
	matched := make([]model.Person, 0, len(people))
	for _, p := range people {
		if q.ActiveOnly && !p.Active {
			continue
		}
		if !model.MatchesSearch(p.Name, q.Search) {
			continue
		}
		matched = append(matched, p)
	}
	model.SortPeople(matched, q.SortColumn, q.SortDir, popularity)
	return model.PagePeople(matched, page, perPage), nil
}

// Roles implements RoleSource.
func (m *Memory) Roles(ctx context.Context, q model.RolesQuery) (model.RolesPayload, error) {
	if err := m.wait(ctx); err != nil {
		return model.RolesPayload{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return model.FilterRoles(m.roles, q, m.activeLocked()), nil
}

// Bootstrap implements Source.
func (m *Memory) Bootstrap(ctx context.Context) (model.Bootstrap, error) {
	roles, err := m.Roles(ctx, model.RolesQuery{})
	if err != nil {
		return model.Bootstrap{}, err
	}
	m.mu.Lock()
	total := len(m.people)
	m.mu.Unlock()
	return model.Bootstrap{TotalPeople: total, Roles: roles.Roles, ByRole: roles.ByRole}, nil
}

func (m *Memory) activeLocked() func(int64) bool {
	active := make(map[int64]bool, len(m.people))
	for _, p := range m.people {
		if p.Active {
			active[p.PID] = true
		}
	}
	return func(pid int64) bool { return active[pid] }
}
