/*
errors.go - Centralized error taxonomy for the engine

PURPOSE:
  All error kinds in one place. The HTTP layer maps each kind to a response
  status with errors.Is/As - never by inspecting message text.

ERROR CATEGORIES:
  1. Caller errors - invalid ranges, illegal transitions, missing comments
  2. Consistency errors - insufficient balance, policy in use
  3. Contention - Busy (lock acquisition timed out, safe to retry)

USAGE:
  if errors.Is(err, engine.ErrBusy) {
      // retry with backoff
  }
  var itErr *engine.InvalidTransitionError
  if errors.As(err, &itErr) {
      // itErr.From / itErr.To name the states
  }
*/
package engine

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidRange is returned when a date range has start after end,
	// or a mutation amount is negative.
	ErrInvalidRange = errors.New("invalid date range")

	// ErrInsufficientBalance is returned when a reservation would drive
	// used above allocated.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInvalidTransition is returned on an illegal state machine move.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrValidationFailed is returned when request validation produced
	// blocking errors.
	ErrValidationFailed = errors.New("validation failed")

	// ErrCommentRequired is returned when a rejection carries no comment.
	ErrCommentRequired = errors.New("comment required")

	// ErrNotFound is returned when a referenced entity doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrPolicyInUse is returned when updating or deleting a policy that
	// existing balances reference.
	ErrPolicyInUse = errors.New("policy in use")

	// ErrNotAuthorized is returned when the acting approver has no
	// authority over the employee's department.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrBusy is returned when a per-balance lock could not be acquired in
	// time. The only retryable kind.
	ErrBusy = errors.New("busy: balance is locked, retry")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NotFoundError names the entity kind and key that was missing.
type NotFoundError struct {
	Kind string // "policy", "balance", "request", "employee"
	Key  string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s not found: %s", e.Kind, e.Key) }
func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// InvalidTransitionError names the current and attempted states.
type InvalidTransitionError struct {
	From RequestStatus
	To   RequestStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition: %s -> %s", e.From, e.To)
}
func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

// InsufficientBalanceError provides details about a balance shortage.
type InsufficientBalanceError struct {
	EmployeeID EmployeeID
	Year       int
	Available  Days
	Requested  Days
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance for %s/%d: available %s, requested %s",
		e.EmployeeID, e.Year, e.Available, e.Requested)
}
func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// ValidationFailedError carries the blocking validation messages so callers
// can render them. Warnings never appear here.
type ValidationFailedError struct {
	Errors []string
}

func (e *ValidationFailedError) Error() string {
	return "validation failed: " + strings.Join(e.Errors, "; ")
}
func (e *ValidationFailedError) Unwrap() error { return ErrValidationFailed }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrBusy)
}

// IsClientError returns true if the error is due to invalid caller input
// rather than a system failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidRange) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrValidationFailed) ||
		errors.Is(err, ErrCommentRequired) ||
		errors.Is(err, ErrPolicyInUse)
}

// IsNotFound returns true if the error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
