/*
validate.go - Request validation

PURPOSE:
  Decides whether a date range is a permissible vacation request for an
  employee. Produces blocking errors and non-blocking warnings as data, not
  Go errors, so callers can render them.

PREVIEW CONTRACT:
  Validate is read-only and callable standalone. The lifecycle's Create and
  Submit paths call this exact method, so a preview and the real thing
  never diverge.

RULES (in order):
  1. start > end                         → error   "Invalid date range"
  2. overlaps SUBMITTED/APPROVED request → error   "Overlapping request"
  3. zero working days in range          → error   "No working days in range"
  4. working days > remaining balance    → error   "Insufficient balance"
  5. range crosses a year boundary       → warning "Spans two fiscal years"
  6. start before today                  → warning "Start date already passed"
*/
package engine

import (
	"context"
	"fmt"
)

// Validation messages. The web layer renders these verbatim.
const (
	MsgInvalidDateRange  = "Invalid date range"
	MsgOverlappingRequest = "Overlapping request"
	MsgNoWorkingDays     = "No working days in range"
	MsgInsufficientDays  = "Insufficient balance"
	MsgSpansTwoYears     = "Spans two fiscal years"
	MsgStartInPast       = "Start date already passed"
)

// ValidationResult is the full verdict for a candidate request.
type ValidationResult struct {
	IsValid       bool
	WorkingDays   Days
	AvailableDays Days
	Errors        []string
	Warnings      []string
}

type Validator struct {
	Requests RequestStore
	Balances BalanceStore
	Calendar HolidayCalendar

	// Today is injectable for tests; defaults to the real clock.
	Today func() Date
}

func NewValidator(requests RequestStore, balances BalanceStore, calendar HolidayCalendar) *Validator {
	return &Validator{Requests: requests, Balances: balances, Calendar: calendar, Today: Today}
}

// Validate checks a candidate range against the rules above. It persists
// nothing. A cross-year range is charged against the start date's year.
func (v *Validator) Validate(ctx context.Context, employeeID EmployeeID, start, end Date) (*ValidationResult, error) {
	result := &ValidationResult{
		WorkingDays:   ZeroDays(),
		AvailableDays: ZeroDays(),
	}

	// Rule 1: a reversed range makes every later rule meaningless.
	if start.After(end) {
		result.Errors = append(result.Errors, MsgInvalidDateRange)
		return result, nil
	}

	// Rule 2: overlap with the employee's active requests.
	overlapping, err := v.Requests.ListActiveOverlapping(ctx, employeeID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to check overlapping requests: %w", err)
	}
	if len(overlapping) > 0 {
		result.Errors = append(result.Errors, MsgOverlappingRequest)
	}

	// Rule 3: the range must cost at least one working day.
	workingDays, err := WorkingDays(start, end, v.Calendar)
	if err != nil {
		return nil, err
	}
	result.WorkingDays = workingDays
	if workingDays.IsZero() {
		result.Errors = append(result.Errors, MsgNoWorkingDays)
	}

	// Rule 4: enough remaining balance in the start date's year.
	// A missing balance counts as zero available days.
	balance, err := v.Balances.GetBalance(ctx, employeeID, start.Year())
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	if balance != nil {
		result.AvailableDays = balance.Remaining()
	}
	if !workingDays.IsZero() && workingDays.GreaterThan(result.AvailableDays) {
		result.Errors = append(result.Errors, MsgInsufficientDays)
	}

	// Rule 5: cross-year ranges reserve entirely against the start year;
	// callers that want per-year accounting split the request themselves.
	if SpansYears(start, end) {
		result.Warnings = append(result.Warnings, MsgSpansTwoYears)
	}

	// Rule 6: backdated start is suspicious but not forbidden.
	today := v.Today
	if today == nil {
		today = Today
	}
	if start.Before(today()) {
		result.Warnings = append(result.Warnings, MsgStartInPast)
	}

	result.IsValid = len(result.Errors) == 0
	return result, nil
}
