/*
Package engine provides the vacation balance and request lifecycle engine.

PURPOSE:
  This package contains the core domain logic for vacation tracking:
  balance allocation (with carry-over), working-day calculation, request
  validation, and the draft→submit→approve/reject state machine. The HTTP
  layer, persistence, and authorization are collaborators injected through
  the interfaces in store.go.

KEY CONCEPTS IN THIS FILE (types.go):
  - Days: A day quantity backed by decimal.Decimal (half-days stay exact)
  - Employee: Directory record consumed from the employee collaborator
  - Typed identifiers: EmployeeID, PolicyID, RequestID
  - Enumerations: RequestStatus, RequestType, AccrualType

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal for all day math, never float64
  2. Type Safety: Strong typing for IDs prevents mixing employee/policy IDs
  3. Keyed references: Requests and balances reference each other by id,
     never by embedded object graphs

SEE ALSO:
  - balance.go: Balance ledger and reservation rules
  - lifecycle.go: Request state machine
  - validate.go: Request validation rules
*/
package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DAYS - Day quantity (decimal-backed)
// =============================================================================

// Days is a quantity of vacation days. Current policies always produce whole
// numbers, but the decimal representation leaves room for half-day requests.
type Days struct {
	Value decimal.Decimal
}

func NewDays(value float64) Days   { return Days{Value: decimal.NewFromFloat(value)} }
func DaysFromInt(value int) Days   { return Days{Value: decimal.NewFromInt(int64(value))} }
func ZeroDays() Days               { return Days{Value: decimal.Zero} }

func MustParseDays(s string) Days {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return ZeroDays()
	}
	return Days{Value: d}
}

func (d Days) Add(o Days) Days          { return Days{Value: d.Value.Add(o.Value)} }
func (d Days) Sub(o Days) Days          { return Days{Value: d.Value.Sub(o.Value)} }
func (d Days) IsZero() bool             { return d.Value.IsZero() }
func (d Days) IsNegative() bool         { return d.Value.IsNegative() }
func (d Days) IsPositive() bool         { return d.Value.IsPositive() }
func (d Days) GreaterThan(o Days) bool  { return d.Value.GreaterThan(o.Value) }
func (d Days) LessThan(o Days) bool     { return d.Value.LessThan(o.Value) }
func (d Days) Equal(o Days) bool        { return d.Value.Equal(o.Value) }
func (d Days) Min(o Days) Days          { if d.LessThan(o) { return d }; return o }
func (d Days) Max(o Days) Days          { if d.GreaterThan(o) { return d }; return o }
func (d Days) Float64() float64         { f, _ := d.Value.Float64(); return f }
func (d Days) String() string           { return d.Value.String() }

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string
type PolicyID string
type RequestID string

// =============================================================================
// REQUEST ENUMERATIONS
// =============================================================================

// RequestStatus is the persisted request state. The stored values are
// restricted to exactly this set.
type RequestStatus string

const (
	StatusDraft     RequestStatus = "DRAFT"
	StatusSubmitted RequestStatus = "SUBMITTED"
	StatusApproved  RequestStatus = "APPROVED"
	StatusRejected  RequestStatus = "REJECTED"
	StatusCancelled RequestStatus = "CANCELLED"
)

// IsTerminal reports whether no further transitions are permitted.
func (s RequestStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusCancelled
}

// RequestType classifies what the time off is for.
type RequestType string

const (
	TypeVacation RequestType = "VACATION"
	TypePersonal RequestType = "PERSONAL"
	TypeOther    RequestType = "OTHER"
)

// AccrualType determines how a policy grants its yearly entitlement.
type AccrualType string

const (
	// AccrualAnnual: the full entitlement is available from January 1st.
	AccrualAnnual AccrualType = "ANNUAL"

	// AccrualMonthly: the entitlement accrues in twelfths over the year.
	AccrualMonthly AccrualType = "MONTHLY"
)

// =============================================================================
// EMPLOYEE - Directory record (external collaborator data)
// =============================================================================

// Employee is the directory view the engine consumes. The engine never
// mutates employees; it only reads name, department, and the active flag.
type Employee struct {
	ID         EmployeeID
	Name       string
	Email      string
	Department string
	Active     bool
	HireDate   time.Time
	CreatedAt  time.Time
}
