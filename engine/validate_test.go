package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/warp/vacation-engine/engine"
	"github.com/warp/vacation-engine/engine/store"
)

// =============================================================================
// VALIDATOR TESTS
// =============================================================================

func newTestValidator(mem *store.Memory) *engine.Validator {
	v := engine.NewValidator(mem, mem, mem)
	// Pin "today" so backdating warnings are deterministic.
	v.Today = func() engine.Date { return engine.NewDate(2025, time.January, 1) }
	return v
}

func seedBalance(t *testing.T, mem *store.Memory, employeeID string, year, allocated, used int) {
	t.Helper()
	err := mem.SaveBalance(context.Background(), engine.Balance{
		EmployeeID: engine.EmployeeID(employeeID),
		Year:       year,
		PolicyID:   "pol",
		Allocated:  engine.DaysFromInt(allocated),
		Used:       engine.DaysFromInt(used),
	})
	if err != nil {
		t.Fatalf("failed to seed balance: %v", err)
	}
}

func hasMessage(msgs []string, want string) bool {
	for _, m := range msgs {
		if m == want {
			return true
		}
	}
	return false
}

func TestValidate_HappyPath(t *testing.T) {
	// GIVEN: 20 days remaining, a clean Mon-Fri week requested
	// WHEN: Validating
	// THEN: Valid, 5 working days, 20 available, no messages

	mem := store.NewMemory()
	v := newTestValidator(mem)
	seedBalance(t, mem, "emp-1", 2025, 22, 2)

	result, err := v.Validate(context.Background(), "emp-1",
		engine.NewDate(2025, time.January, 6), engine.NewDate(2025, time.January, 10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.IsValid {
		t.Errorf("expected valid, got errors %v", result.Errors)
	}
	if !result.WorkingDays.Equal(engine.DaysFromInt(5)) {
		t.Errorf("expected 5 working days, got %v", result.WorkingDays)
	}
	if !result.AvailableDays.Equal(engine.DaysFromInt(20)) {
		t.Errorf("expected 20 available days, got %v", result.AvailableDays)
	}
	if len(result.Errors) != 0 || len(result.Warnings) != 0 {
		t.Errorf("expected no messages, got errors=%v warnings=%v", result.Errors, result.Warnings)
	}
}

func TestValidate_InsufficientBalance(t *testing.T) {
	// GIVEN: Only 3 days remaining
	// WHEN: Requesting a 5-working-day week
	// THEN: Invalid with "Insufficient balance"; counts still reported

	mem := store.NewMemory()
	v := newTestValidator(mem)
	seedBalance(t, mem, "emp-1", 2025, 22, 19)

	result, err := v.Validate(context.Background(), "emp-1",
		engine.NewDate(2025, time.January, 6), engine.NewDate(2025, time.January, 10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.IsValid {
		t.Error("expected invalid")
	}
	if !hasMessage(result.Errors, engine.MsgInsufficientDays) {
		t.Errorf("expected %q, got %v", engine.MsgInsufficientDays, result.Errors)
	}
	if !result.WorkingDays.Equal(engine.DaysFromInt(5)) {
		t.Errorf("expected 5 working days, got %v", result.WorkingDays)
	}
	if !result.AvailableDays.Equal(engine.DaysFromInt(3)) {
		t.Errorf("expected 3 available days, got %v", result.AvailableDays)
	}
}

func TestValidate_ReversedRange_ShortCircuits(t *testing.T) {
	// GIVEN: start after end
	// WHEN: Validating
	// THEN: Only the range error; no other rules evaluated

	mem := store.NewMemory()
	v := newTestValidator(mem)

	result, err := v.Validate(context.Background(), "emp-1",
		engine.NewDate(2025, time.January, 10), engine.NewDate(2025, time.January, 6))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.IsValid {
		t.Error("expected invalid")
	}
	if len(result.Errors) != 1 || result.Errors[0] != engine.MsgInvalidDateRange {
		t.Errorf("expected exactly [%q], got %v", engine.MsgInvalidDateRange, result.Errors)
	}
}

func TestValidate_OverlapWithActiveRequest(t *testing.T) {
	// GIVEN: A SUBMITTED request Jan 8-9
	// WHEN: Validating Jan 9-10 for the same employee
	// THEN: Invalid with "Overlapping request"

	mem := store.NewMemory()
	v := newTestValidator(mem)
	seedBalance(t, mem, "emp-1", 2025, 22, 0)

	err := mem.SaveRequest(context.Background(), engine.Request{
		ID:         "req-1",
		EmployeeID: "emp-1",
		StartDate:  engine.NewDate(2025, time.January, 8),
		EndDate:    engine.NewDate(2025, time.January, 9),
		Status:     engine.StatusSubmitted,
	})
	if err != nil {
		t.Fatalf("failed to seed request: %v", err)
	}

	result, err := v.Validate(context.Background(), "emp-1",
		engine.NewDate(2025, time.January, 9), engine.NewDate(2025, time.January, 10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsValid {
		t.Error("expected invalid")
	}
	if !hasMessage(result.Errors, engine.MsgOverlappingRequest) {
		t.Errorf("expected overlap error, got %v", result.Errors)
	}
}

func TestValidate_TerminalRequestsDoNotBlock(t *testing.T) {
	// GIVEN: A REJECTED and a CANCELLED request on the same dates
	// WHEN: Validating an overlapping range
	// THEN: Valid; only SUBMITTED/APPROVED requests block

	mem := store.NewMemory()
	v := newTestValidator(mem)
	seedBalance(t, mem, "emp-1", 2025, 22, 0)

	for i, status := range []engine.RequestStatus{engine.StatusRejected, engine.StatusCancelled, engine.StatusDraft} {
		err := mem.SaveRequest(context.Background(), engine.Request{
			ID:         engine.RequestID(string(rune('a' + i))),
			EmployeeID: "emp-1",
			StartDate:  engine.NewDate(2025, time.January, 6),
			EndDate:    engine.NewDate(2025, time.January, 10),
			Status:     status,
		})
		if err != nil {
			t.Fatalf("failed to seed request: %v", err)
		}
	}

	result, err := v.Validate(context.Background(), "emp-1",
		engine.NewDate(2025, time.January, 6), engine.NewDate(2025, time.January, 10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsValid {
		t.Errorf("expected valid, got errors %v", result.Errors)
	}
}

func TestValidate_WeekendOnly_NoWorkingDays(t *testing.T) {
	mem := store.NewMemory()
	v := newTestValidator(mem)
	seedBalance(t, mem, "emp-1", 2025, 22, 0)

	result, err := v.Validate(context.Background(), "emp-1",
		engine.NewDate(2025, time.January, 4), engine.NewDate(2025, time.January, 5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsValid {
		t.Error("expected invalid")
	}
	if !hasMessage(result.Errors, engine.MsgNoWorkingDays) {
		t.Errorf("expected no-working-days error, got %v", result.Errors)
	}
	if hasMessage(result.Errors, engine.MsgInsufficientDays) {
		t.Error("a zero-day range must not also fail the balance check")
	}
}

func TestValidate_MissingBalance_ZeroAvailable(t *testing.T) {
	// GIVEN: No balance record at all
	// WHEN: Validating a working-day range
	// THEN: Invalid with "Insufficient balance", available reported as 0

	mem := store.NewMemory()
	v := newTestValidator(mem)

	result, err := v.Validate(context.Background(), "emp-1",
		engine.NewDate(2025, time.January, 6), engine.NewDate(2025, time.January, 10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsValid {
		t.Error("expected invalid")
	}
	if !hasMessage(result.Errors, engine.MsgInsufficientDays) {
		t.Errorf("expected insufficient balance, got %v", result.Errors)
	}
	if !result.AvailableDays.IsZero() {
		t.Errorf("expected 0 available, got %v", result.AvailableDays)
	}
}

func TestValidate_CrossYear_WarnsButValid(t *testing.T) {
	// GIVEN: Plenty of balance in the start year
	// WHEN: Validating Dec 29 2025 - Jan 2 2026
	// THEN: Valid, with a spans-two-years warning

	mem := store.NewMemory()
	v := newTestValidator(mem)
	seedBalance(t, mem, "emp-1", 2025, 22, 0)

	result, err := v.Validate(context.Background(), "emp-1",
		engine.NewDate(2025, time.December, 29), engine.NewDate(2026, time.January, 2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsValid {
		t.Errorf("expected valid, got errors %v", result.Errors)
	}
	if !hasMessage(result.Warnings, engine.MsgSpansTwoYears) {
		t.Errorf("expected cross-year warning, got %v", result.Warnings)
	}
}

func TestValidate_BackdatedStart_WarnsButValid(t *testing.T) {
	mem := store.NewMemory()
	v := newTestValidator(mem)
	v.Today = func() engine.Date { return engine.NewDate(2025, time.January, 8) }
	seedBalance(t, mem, "emp-1", 2025, 22, 0)

	result, err := v.Validate(context.Background(), "emp-1",
		engine.NewDate(2025, time.January, 6), engine.NewDate(2025, time.January, 10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsValid {
		t.Errorf("expected valid, got errors %v", result.Errors)
	}
	if !hasMessage(result.Warnings, engine.MsgStartInPast) {
		t.Errorf("expected backdating warning, got %v", result.Warnings)
	}
}
