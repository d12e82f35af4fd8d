/*
balance.go - Balance ledger

PURPOSE:
  Tracks allocated vs. used vacation days per (employee, year) and owns the
  only two mutations that touch them: Reserve (at request submission) and
  Release (on rejection/cancellation). BulkAssign creates the yearly
  records, applying carry-over from the prior year capped by policy.

INVARIANT:
  0 ≤ used ≤ allocated after every mutation. A reservation that would break
  the upper bound fails with InsufficientBalanceError; it is never clamped.

CONCURRENCY:
  All mutations on one (employee, year) key are serialized through a keyed
  lock so two concurrent reservations cannot both pass the balance check
  against a stale read. Balances for different keys mutate in parallel.
  Lock acquisition times out and surfaces ErrBusy rather than hang.
*/
package engine

import (
	"context"
	"fmt"
	"time"
)

// =============================================================================
// BALANCE - Per employee-per-year record
// =============================================================================

type Balance struct {
	EmployeeID EmployeeID
	Year       int
	PolicyID   PolicyID
	Allocated  Days
	Used       Days
	UpdatedAt  time.Time
}

// Remaining derives the days still available. Never stored.
func (b Balance) Remaining() Days { return b.Allocated.Sub(b.Used) }

// TeamBalance pairs an employee with their balance for presentation.
// Balance is nil when the employee has no allocation for the year.
type TeamBalance struct {
	Employee Employee
	Balance  *Balance
}

// balanceKey identifies the serialization unit for ledger mutations.
type balanceKey struct {
	EmployeeID EmployeeID
	Year       int
}

// =============================================================================
// LEDGER - Balance operations
// =============================================================================

type Ledger struct {
	Policies  PolicyStore
	Balances  BalanceStore
	Directory EmployeeDirectory

	// LockTimeout bounds how long a mutation waits for its balance key.
	LockTimeout time.Duration
	Clock       func() time.Time

	locks *keyedLocks[balanceKey]
}

func NewLedger(policies PolicyStore, balances BalanceStore, directory EmployeeDirectory) *Ledger {
	return &Ledger{
		Policies:    policies,
		Balances:    balances,
		Directory:   directory,
		LockTimeout: 2 * time.Second,
		Clock:       time.Now,
		locks:       newKeyedLocks[balanceKey](),
	}
}

// BulkAssign creates a balance for every active employee lacking one for
// the year. Allocation = policy days + min(prior year's remaining, carry
// cap). Idempotent: employees with an existing balance are skipped, never
// overwritten. Returns the count of balances created.
func (l *Ledger) BulkAssign(ctx context.Context, policyID PolicyID, year int) (int, error) {
	policy, err := l.Policies.GetPolicy(ctx, policyID)
	if err != nil {
		return 0, fmt.Errorf("failed to get policy: %w", err)
	}
	if policy == nil {
		return 0, &NotFoundError{Kind: "policy", Key: string(policyID)}
	}
	if policy.Year != year {
		return 0, fmt.Errorf("policy %s applies to year %d, not %d: %w",
			policyID, policy.Year, year, ErrInvalidRange)
	}

	employees, err := l.Directory.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list active employees: %w", err)
	}

	created := 0
	for _, emp := range employees {
		ok, err := l.assignOne(ctx, emp.ID, *policy, year)
		if err != nil {
			return created, err
		}
		if ok {
			created++
		}
	}
	return created, nil
}

func (l *Ledger) assignOne(ctx context.Context, employeeID EmployeeID, policy Policy, year int) (bool, error) {
	release, err := l.locks.acquire(ctx, balanceKey{EmployeeID: employeeID, Year: year}, l.LockTimeout)
	if err != nil {
		return false, err
	}
	defer release()

	existing, err := l.Balances.GetBalance(ctx, employeeID, year)
	if err != nil {
		return false, fmt.Errorf("failed to get balance: %w", err)
	}
	if existing != nil {
		return false, nil // already assigned, skip
	}

	carry := ZeroDays()
	prev, err := l.Balances.GetBalance(ctx, employeeID, year-1)
	if err != nil {
		return false, fmt.Errorf("failed to get prior balance: %w", err)
	}
	if prev != nil {
		remaining := prev.Remaining().Max(ZeroDays())
		carry = remaining.Min(policy.CarryOverMax)
	}

	b := Balance{
		EmployeeID: employeeID,
		Year:       year,
		PolicyID:   policy.ID,
		Allocated:  policy.DaysPerYear.Add(carry),
		Used:       ZeroDays(),
		UpdatedAt:  l.Clock().UTC(),
	}
	if err := l.Balances.SaveBalance(ctx, b); err != nil {
		return false, fmt.Errorf("failed to save balance: %w", err)
	}
	return true, nil
}

// Balance returns the record for (employee, year) or NotFoundError.
func (l *Ledger) Balance(ctx context.Context, employeeID EmployeeID, year int) (*Balance, error) {
	b, err := l.Balances.GetBalance(ctx, employeeID, year)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	if b == nil {
		return nil, &NotFoundError{Kind: "balance", Key: fmt.Sprintf("%s/%d", employeeID, year)}
	}
	return b, nil
}

// TeamBalances returns every employee of a department with their balance
// for the year. Employees without an allocation appear with a nil balance.
func (l *Ledger) TeamBalances(ctx context.Context, department string, year int) ([]TeamBalance, error) {
	employees, err := l.Directory.ListByDepartment(ctx, department)
	if err != nil {
		return nil, fmt.Errorf("failed to list department: %w", err)
	}

	out := make([]TeamBalance, 0, len(employees))
	for _, emp := range employees {
		b, err := l.Balances.GetBalance(ctx, emp.ID, year)
		if err != nil {
			return nil, fmt.Errorf("failed to get balance: %w", err)
		}
		out = append(out, TeamBalance{Employee: emp, Balance: b})
	}
	return out, nil
}

// Reserve increments used by days. Fails with InsufficientBalanceError if
// the mutation would drive used above allocated.
func (l *Ledger) Reserve(ctx context.Context, employeeID EmployeeID, year int, days Days) error {
	if days.IsNegative() {
		return fmt.Errorf("cannot reserve negative days: %w", ErrInvalidRange)
	}

	release, err := l.locks.acquire(ctx, balanceKey{EmployeeID: employeeID, Year: year}, l.LockTimeout)
	if err != nil {
		return err
	}
	defer release()

	b, err := l.Balance(ctx, employeeID, year)
	if err != nil {
		return err
	}

	newUsed := b.Used.Add(days)
	if newUsed.GreaterThan(b.Allocated) {
		return &InsufficientBalanceError{
			EmployeeID: employeeID,
			Year:       year,
			Available:  b.Remaining(),
			Requested:  days,
		}
	}

	b.Used = newUsed
	b.UpdatedAt = l.Clock().UTC()
	if err := l.Balances.UpdateBalance(ctx, *b); err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}
	return nil
}

// Release decrements used by days, floored at zero. Used when a request is
// rejected or cancelled after having reserved balance.
func (l *Ledger) Release(ctx context.Context, employeeID EmployeeID, year int, days Days) error {
	if days.IsNegative() {
		return fmt.Errorf("cannot release negative days: %w", ErrInvalidRange)
	}

	release, err := l.locks.acquire(ctx, balanceKey{EmployeeID: employeeID, Year: year}, l.LockTimeout)
	if err != nil {
		return err
	}
	defer release()

	b, err := l.Balance(ctx, employeeID, year)
	if err != nil {
		return err
	}

	b.Used = b.Used.Sub(days).Max(ZeroDays())
	b.UpdatedAt = l.Clock().UTC()
	if err := l.Balances.UpdateBalance(ctx, *b); err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}
	return nil
}
