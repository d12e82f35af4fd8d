/*
store.go - Persistence and collaborator interfaces

PURPOSE:
  Defines the boundary between the engine and its surroundings. The engine
  is stateless computation over these stores; implementations live in
  engine/store (in-memory) and store/sqlite (production).

KEY INTERFACES:
  PolicyStore:       Vacation policy records
  BalanceStore:      Per employee-per-year balance records
  RequestStore:      Vacation requests and pending-queue queries
  EmployeeDirectory: External employee collaborator (read-only here)
  Authorizer:        External capability check for approval decisions

MISSING ROWS:
  Get* methods return (nil, nil) when the row doesn't exist. Services wrap
  that into NotFoundError; stores stay free of domain error types.

SEE ALSO:
  - engine/store/memory.go: In-memory implementation for tests/dev
  - store/sqlite/sqlite.go: SQLite implementation
*/
package engine

import "context"

// =============================================================================
// POLICY STORE
// =============================================================================

type PolicyStore interface {
	// SavePolicy inserts a new policy record.
	SavePolicy(ctx context.Context, p Policy) error

	// UpdatePolicy replaces an existing policy record.
	UpdatePolicy(ctx context.Context, p Policy) error

	// GetPolicy returns a policy, or (nil, nil) when missing.
	GetPolicy(ctx context.Context, id PolicyID) (*Policy, error)

	// ListPolicies returns policies for a year; year 0 means all years.
	ListPolicies(ctx context.Context, year int) ([]Policy, error)

	// DeletePolicy removes a policy record.
	DeletePolicy(ctx context.Context, id PolicyID) error
}

// =============================================================================
// BALANCE STORE
// =============================================================================

type BalanceStore interface {
	// GetBalance returns the balance for (employee, year), or (nil, nil).
	GetBalance(ctx context.Context, employeeID EmployeeID, year int) (*Balance, error)

	// SaveBalance inserts a new balance. (employeeID, year) is unique.
	SaveBalance(ctx context.Context, b Balance) error

	// UpdateBalance persists a mutated balance (used days, timestamp).
	UpdateBalance(ctx context.Context, b Balance) error

	// ListBalances returns all balances for a year.
	ListBalances(ctx context.Context, year int) ([]Balance, error)

	// CountByPolicy returns how many balances reference a policy.
	CountByPolicy(ctx context.Context, id PolicyID) (int, error)
}

// =============================================================================
// REQUEST STORE
// =============================================================================

type RequestStore interface {
	// SaveRequest inserts a new request.
	SaveRequest(ctx context.Context, r Request) error

	// UpdateRequest persists status/comment/timestamp changes.
	UpdateRequest(ctx context.Context, r Request) error

	// GetRequest returns a request, or (nil, nil) when missing.
	GetRequest(ctx context.Context, id RequestID) (*Request, error)

	// ListByEmployee returns all requests for an employee.
	ListByEmployee(ctx context.Context, employeeID EmployeeID) ([]Request, error)

	// ListActiveOverlapping returns SUBMITTED or APPROVED requests for the
	// employee whose [start, end] intersects the given range.
	ListActiveOverlapping(ctx context.Context, employeeID EmployeeID, start, end Date) ([]Request, error)

	// ListPending returns requests matching the filter. Department
	// filtering happens in the workflow, which owns the directory join.
	ListPending(ctx context.Context, filter PendingFilter) ([]Request, error)
}

// PendingFilter narrows the approval queue. Nil fields match everything.
// Status defaults to SUBMITTED when unset.
type PendingFilter struct {
	EmployeeID *EmployeeID
	Department *string
	DateFrom   *Date
	DateTo     *Date
	Status     *RequestStatus
}

// =============================================================================
// EXTERNAL COLLABORATORS
// =============================================================================

// EmployeeDirectory is the employee collaborator: id → name, department,
// active flag.
type EmployeeDirectory interface {
	GetEmployee(ctx context.Context, id EmployeeID) (*Employee, error)
	ListActive(ctx context.Context) ([]Employee, error)
	ListByDepartment(ctx context.Context, department string) ([]Employee, error)
}

// Authorizer answers whether an actor may decide requests for a department.
// Role mechanics live outside the engine; this is consumed as a boolean
// capability check.
type Authorizer interface {
	CanDecide(ctx context.Context, actorID EmployeeID, department string) (bool, error)
}

// AllowAll authorizes every actor. For development and tests.
type AllowAll struct{}

func (AllowAll) CanDecide(context.Context, EmployeeID, string) (bool, error) { return true, nil }
