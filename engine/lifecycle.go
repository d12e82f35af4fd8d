/*
lifecycle.go - Request state machine

PURPOSE:
  Owns a vacation request's status transitions and the ledger side effects
  that keep balances consistent:

    DRAFT ──submit──▶ SUBMITTED ──approve──▶ APPROVED
      │                  │    └────reject──▶ REJECTED  (releases balance)
      └──cancel──▶ CANCELLED ◀──cancel──────┘          (releases if reserved)

  APPROVED, REJECTED, and CANCELLED are terminal. Any transition from a
  terminal or mismatched state fails with InvalidTransitionError naming the
  current and attempted states - a caller error, not a system failure.

BALANCE TIMING:
  The balance is reserved at submit time, not approval time. Approve
  therefore touches no balance; Reject and Cancel (from SUBMITTED) release
  the reservation.

CONCURRENCY:
  Transitions on one request are serialized through a keyed lock held
  across get-check-mutate-update, so racing callers cannot both observe
  the same status and double-apply a ledger side effect: the loser re-reads
  the new status and fails with InvalidTransitionError. Lock acquisition is
  bounded and surfaces ErrBusy. If persisting the transition fails after a
  ledger mutation, the mutation is undone before returning.
*/
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// REQUEST - A vacation request
// =============================================================================

type Request struct {
	ID         RequestID
	EmployeeID EmployeeID
	StartDate  Date
	EndDate    Date // inclusive
	Type       RequestType

	// RequestedDays is computed from the working-day calculator, recomputed
	// at submission time, and never mutated by approval actions.
	RequestedDays Days

	Status          RequestStatus
	ApproverComment string

	SubmittedAt *time.Time
	DecisionAt  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// =============================================================================
// LIFECYCLE - State machine over requests
// =============================================================================

type Lifecycle struct {
	Requests  RequestStore
	Ledger    *Ledger
	Validator *Validator

	// LockTimeout bounds how long a transition waits for its request key.
	LockTimeout time.Duration
	Clock       func() time.Time
	NewID       func() RequestID

	locks *keyedLocks[RequestID]
}

func NewLifecycle(requests RequestStore, ledger *Ledger, validator *Validator) *Lifecycle {
	return &Lifecycle{
		Requests:    requests,
		Ledger:      ledger,
		Validator:   validator,
		LockTimeout: 2 * time.Second,
		Clock:       time.Now,
		NewID:       func() RequestID { return RequestID(uuid.NewString()) },
		locks:       newKeyedLocks[RequestID](),
	}
}

// Create validates the range and stores a DRAFT request with its computed
// day cost. The balance ledger is not touched until submission.
func (lc *Lifecycle) Create(ctx context.Context, employeeID EmployeeID, start, end Date, typ RequestType) (*Request, error) {
	if typ == "" {
		typ = TypeVacation
	}

	result, err := lc.Validator.Validate(ctx, employeeID, start, end)
	if err != nil {
		return nil, err
	}
	if !result.IsValid {
		return nil, &ValidationFailedError{Errors: result.Errors}
	}

	now := lc.Clock().UTC()
	req := Request{
		ID:            lc.NewID(),
		EmployeeID:    employeeID,
		StartDate:     start,
		EndDate:       end,
		Type:          typ,
		RequestedDays: result.WorkingDays,
		Status:        StatusDraft,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := lc.Requests.SaveRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to save request: %w", err)
	}
	return &req, nil
}

// Submit moves DRAFT → SUBMITTED. The range is re-validated (the balance
// may have changed since the draft was created), the day cost recomputed,
// and the days reserved against the start year's balance. The reservation
// itself re-checks under the balance lock, so two concurrent submits for
// the same employee/year cannot both overdraw.
func (lc *Lifecycle) Submit(ctx context.Context, id RequestID) (*Request, error) {
	release, err := lc.locks.acquire(ctx, id, lc.LockTimeout)
	if err != nil {
		return nil, err
	}
	defer release()

	req, err := lc.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status != StatusDraft {
		return nil, &InvalidTransitionError{From: req.Status, To: StatusSubmitted}
	}

	result, err := lc.Validator.Validate(ctx, req.EmployeeID, req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}
	if !result.IsValid {
		return nil, &ValidationFailedError{Errors: result.Errors}
	}
	req.RequestedDays = result.WorkingDays

	if err := lc.Ledger.Reserve(ctx, req.EmployeeID, req.StartDate.Year(), req.RequestedDays); err != nil {
		return nil, err
	}

	now := lc.Clock().UTC()
	req.Status = StatusSubmitted
	req.SubmittedAt = &now
	req.UpdatedAt = now
	if err := lc.Requests.UpdateRequest(ctx, *req); err != nil {
		// The request never left DRAFT; undo the reservation.
		if undoErr := lc.Ledger.Release(ctx, req.EmployeeID, req.StartDate.Year(), req.RequestedDays); undoErr != nil {
			return nil, fmt.Errorf("failed to update request (reservation not undone: %v): %w", undoErr, err)
		}
		return nil, fmt.Errorf("failed to update request: %w", err)
	}
	return req, nil
}

// Approve moves SUBMITTED → APPROVED. The balance was reserved at submit
// time, so there is no further ledger mutation. The comment is optional.
func (lc *Lifecycle) Approve(ctx context.Context, id RequestID, comment string) (*Request, error) {
	release, err := lc.locks.acquire(ctx, id, lc.LockTimeout)
	if err != nil {
		return nil, err
	}
	defer release()

	req, err := lc.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status != StatusSubmitted {
		return nil, &InvalidTransitionError{From: req.Status, To: StatusApproved}
	}

	now := lc.Clock().UTC()
	req.Status = StatusApproved
	req.ApproverComment = comment
	req.DecisionAt = &now
	req.UpdatedAt = now
	if err := lc.Requests.UpdateRequest(ctx, *req); err != nil {
		return nil, fmt.Errorf("failed to update request: %w", err)
	}
	return req, nil
}

// Reject moves SUBMITTED → REJECTED and releases the reserved days. The
// comment is mandatory; an empty or whitespace comment fails with
// ErrCommentRequired.
func (lc *Lifecycle) Reject(ctx context.Context, id RequestID, comment string) (*Request, error) {
	if strings.TrimSpace(comment) == "" {
		return nil, ErrCommentRequired
	}

	release, err := lc.locks.acquire(ctx, id, lc.LockTimeout)
	if err != nil {
		return nil, err
	}
	defer release()

	req, err := lc.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status != StatusSubmitted {
		return nil, &InvalidTransitionError{From: req.Status, To: StatusRejected}
	}

	if err := lc.Ledger.Release(ctx, req.EmployeeID, req.StartDate.Year(), req.RequestedDays); err != nil {
		return nil, err
	}

	now := lc.Clock().UTC()
	req.Status = StatusRejected
	req.ApproverComment = comment
	req.DecisionAt = &now
	req.UpdatedAt = now
	if err := lc.Requests.UpdateRequest(ctx, *req); err != nil {
		// Still SUBMITTED in the store; restore the reservation.
		if undoErr := lc.Ledger.Reserve(ctx, req.EmployeeID, req.StartDate.Year(), req.RequestedDays); undoErr != nil {
			return nil, fmt.Errorf("failed to update request (reservation not restored: %v): %w", undoErr, err)
		}
		return nil, fmt.Errorf("failed to update request: %w", err)
	}
	return req, nil
}

// Cancel moves DRAFT or SUBMITTED → CANCELLED. An employee withdrawing a
// submitted request gets the reservation back.
func (lc *Lifecycle) Cancel(ctx context.Context, id RequestID) (*Request, error) {
	release, err := lc.locks.acquire(ctx, id, lc.LockTimeout)
	if err != nil {
		return nil, err
	}
	defer release()

	req, err := lc.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status != StatusDraft && req.Status != StatusSubmitted {
		return nil, &InvalidTransitionError{From: req.Status, To: StatusCancelled}
	}

	wasSubmitted := req.Status == StatusSubmitted
	if wasSubmitted {
		if err := lc.Ledger.Release(ctx, req.EmployeeID, req.StartDate.Year(), req.RequestedDays); err != nil {
			return nil, err
		}
	}

	now := lc.Clock().UTC()
	req.Status = StatusCancelled
	req.UpdatedAt = now
	if err := lc.Requests.UpdateRequest(ctx, *req); err != nil {
		if wasSubmitted {
			// Still SUBMITTED in the store; restore the reservation.
			if undoErr := lc.Ledger.Reserve(ctx, req.EmployeeID, req.StartDate.Year(), req.RequestedDays); undoErr != nil {
				return nil, fmt.Errorf("failed to update request (reservation not restored: %v): %w", undoErr, err)
			}
		}
		return nil, fmt.Errorf("failed to update request: %w", err)
	}
	return req, nil
}

// Get returns a request or NotFoundError.
func (lc *Lifecycle) Get(ctx context.Context, id RequestID) (*Request, error) {
	return lc.get(ctx, id)
}

func (lc *Lifecycle) get(ctx context.Context, id RequestID) (*Request, error) {
	req, err := lc.Requests.GetRequest(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get request: %w", err)
	}
	if req == nil {
		return nil, &NotFoundError{Kind: "request", Key: string(id)}
	}
	return req, nil
}
