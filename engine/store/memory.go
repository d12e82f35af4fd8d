// Package store provides in-memory implementations of the engine's store
// interfaces, for tests and development.
package store

import (
	"context"
	"sync"

	"github.com/warp/vacation-engine/engine"
)

// =============================================================================
// MEMORY STORE - Implements every engine store interface in one struct
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	policies  map[engine.PolicyID]engine.Policy
	balances  map[balanceKey]engine.Balance
	requests  map[engine.RequestID]engine.Request
	employees map[engine.EmployeeID]engine.Employee
	holidays  map[string]engine.Holiday // keyed by ISO date
}

type balanceKey struct {
	EmployeeID engine.EmployeeID
	Year       int
}

func NewMemory() *Memory {
	return &Memory{
		policies:  make(map[engine.PolicyID]engine.Policy),
		balances:  make(map[balanceKey]engine.Balance),
		requests:  make(map[engine.RequestID]engine.Request),
		employees: make(map[engine.EmployeeID]engine.Employee),
		holidays:  make(map[string]engine.Holiday),
	}
}

// Interface checks
var (
	_ engine.PolicyStore       = (*Memory)(nil)
	_ engine.BalanceStore      = (*Memory)(nil)
	_ engine.RequestStore      = (*Memory)(nil)
	_ engine.EmployeeDirectory = (*Memory)(nil)
	_ engine.HolidayCalendar   = (*Memory)(nil)
)

// =============================================================================
// POLICY STORE
// =============================================================================

func (m *Memory) SavePolicy(_ context.Context, p engine.Policy) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.policies[p.ID] = p
	return nil
}

func (m *Memory) UpdatePolicy(ctx context.Context, p engine.Policy) error {
	return m.SavePolicy(ctx, p)
}

func (m *Memory) GetPolicy(_ context.Context, id engine.PolicyID) (*engine.Policy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.policies[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *Memory) ListPolicies(_ context.Context, year int) ([]engine.Policy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []engine.Policy
	for _, p := range m.policies {
		if year == 0 || p.Year == year {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *Memory) DeletePolicy(_ context.Context, id engine.PolicyID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.policies, id)
	return nil
}

// =============================================================================
// BALANCE STORE
// =============================================================================

func (m *Memory) GetBalance(_ context.Context, employeeID engine.EmployeeID, year int) (*engine.Balance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.balances[balanceKey{EmployeeID: employeeID, Year: year}]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (m *Memory) SaveBalance(_ context.Context, b engine.Balance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[balanceKey{EmployeeID: b.EmployeeID, Year: b.Year}] = b
	return nil
}

func (m *Memory) UpdateBalance(ctx context.Context, b engine.Balance) error {
	return m.SaveBalance(ctx, b)
}

func (m *Memory) ListBalances(_ context.Context, year int) ([]engine.Balance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []engine.Balance
	for _, b := range m.balances {
		if b.Year == year {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *Memory) CountByPolicy(_ context.Context, id engine.PolicyID) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, b := range m.balances {
		if b.PolicyID == id {
			n++
		}
	}
	return n, nil
}

// =============================================================================
// REQUEST STORE
// =============================================================================

func (m *Memory) SaveRequest(_ context.Context, r engine.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[r.ID] = r
	return nil
}

func (m *Memory) UpdateRequest(ctx context.Context, r engine.Request) error {
	return m.SaveRequest(ctx, r)
}

func (m *Memory) GetRequest(_ context.Context, id engine.RequestID) (*engine.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.requests[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *Memory) ListByEmployee(_ context.Context, employeeID engine.EmployeeID) ([]engine.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []engine.Request
	for _, r := range m.requests {
		if r.EmployeeID == employeeID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *Memory) ListActiveOverlapping(_ context.Context, employeeID engine.EmployeeID, start, end engine.Date) ([]engine.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []engine.Request
	for _, r := range m.requests {
		if r.EmployeeID != employeeID {
			continue
		}
		if r.Status != engine.StatusSubmitted && r.Status != engine.StatusApproved {
			continue
		}
		// Inclusive interval intersection.
		if r.StartDate.BeforeOrEqual(end) && start.BeforeOrEqual(r.EndDate) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *Memory) ListPending(_ context.Context, filter engine.PendingFilter) ([]engine.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []engine.Request
	for _, r := range m.requests {
		if filter.Status != nil && r.Status != *filter.Status {
			continue
		}
		if filter.EmployeeID != nil && r.EmployeeID != *filter.EmployeeID {
			continue
		}
		if filter.DateFrom != nil && r.EndDate.Before(*filter.DateFrom) {
			continue
		}
		if filter.DateTo != nil && r.StartDate.After(*filter.DateTo) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// =============================================================================
// EMPLOYEE DIRECTORY
// =============================================================================

func (m *Memory) SaveEmployee(_ context.Context, e engine.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.employees[e.ID] = e
	return nil
}

func (m *Memory) GetEmployee(_ context.Context, id engine.EmployeeID) (*engine.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.employees[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (m *Memory) ListActive(_ context.Context) ([]engine.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []engine.Employee
	for _, e := range m.employees {
		if e.Active {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *Memory) ListByDepartment(_ context.Context, department string) ([]engine.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []engine.Employee
	for _, e := range m.employees {
		if e.Department == department {
			out = append(out, e)
		}
	}
	return out, nil
}

// =============================================================================
// HOLIDAY CALENDAR
// =============================================================================

func (m *Memory) AddHoliday(h engine.Holiday) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.holidays[h.Date.String()] = h
}

func (m *Memory) IsHoliday(date engine.Date) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.holidays[date.String()]
	return ok
}

func (m *Memory) Holidays(year int) []engine.Holiday {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []engine.Holiday
	for _, h := range m.holidays {
		if h.Date.Year() == year {
			out = append(out, h)
		}
	}
	return out
}
