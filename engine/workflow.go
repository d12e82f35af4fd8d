/*
workflow.go - Approval workflow orchestrator

PURPOSE:
  The approver-facing surface over the state machine. Lists the pending
  queue with denormalized employee name/department, ordered oldest-first so
  approvers work FIFO, and guards approve/reject with the injected
  authorization capability check.
*/
package engine

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// PendingRequest is a request with the presentation fields approvers need.
type PendingRequest struct {
	Request
	EmployeeName string
	Department   string
}

type Workflow struct {
	Requests  RequestStore
	Directory EmployeeDirectory
	Lifecycle *Lifecycle
	Auth      Authorizer
}

func NewWorkflow(requests RequestStore, directory EmployeeDirectory, lifecycle *Lifecycle, auth Authorizer) *Workflow {
	return &Workflow{Requests: requests, Directory: directory, Lifecycle: lifecycle, Auth: auth}
}

// ListPending returns requests matching the filter, ordered by SubmittedAt
// ascending. The status filter defaults to SUBMITTED.
func (w *Workflow) ListPending(ctx context.Context, filter PendingFilter) ([]PendingRequest, error) {
	if filter.Status == nil {
		submitted := StatusSubmitted
		filter.Status = &submitted
	}

	requests, err := w.Requests.ListPending(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending requests: %w", err)
	}

	out := make([]PendingRequest, 0, len(requests))
	for _, req := range requests {
		emp, err := w.Directory.GetEmployee(ctx, req.EmployeeID)
		if err != nil {
			return nil, fmt.Errorf("failed to get employee: %w", err)
		}

		pr := PendingRequest{Request: req}
		if emp != nil {
			pr.EmployeeName = emp.Name
			pr.Department = emp.Department
		}
		if filter.Department != nil && pr.Department != *filter.Department {
			continue
		}
		out = append(out, pr)
	}

	// Oldest submission first. Drafts (no SubmittedAt) sort by creation.
	sort.SliceStable(out, func(i, j int) bool {
		return submittedOrCreated(out[i].Request).Before(submittedOrCreated(out[j].Request))
	})
	return out, nil
}

// ListMine returns all of an employee's requests, newest first.
func (w *Workflow) ListMine(ctx context.Context, employeeID EmployeeID) ([]Request, error) {
	requests, err := w.Requests.ListByEmployee(ctx, employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	sort.SliceStable(requests, func(i, j int) bool {
		return requests[i].CreatedAt.After(requests[j].CreatedAt)
	})
	return requests, nil
}

// Approve checks the actor's authority over the employee's department,
// then delegates to the state machine.
func (w *Workflow) Approve(ctx context.Context, actorID EmployeeID, id RequestID, comment string) (*Request, error) {
	if err := w.authorize(ctx, actorID, id); err != nil {
		return nil, err
	}
	return w.Lifecycle.Approve(ctx, id, comment)
}

// Reject checks authority, then delegates. Comment rules live in the
// state machine.
func (w *Workflow) Reject(ctx context.Context, actorID EmployeeID, id RequestID, comment string) (*Request, error) {
	if err := w.authorize(ctx, actorID, id); err != nil {
		return nil, err
	}
	return w.Lifecycle.Reject(ctx, id, comment)
}

func (w *Workflow) authorize(ctx context.Context, actorID EmployeeID, id RequestID) error {
	req, err := w.Lifecycle.Get(ctx, id)
	if err != nil {
		return err
	}
	emp, err := w.Directory.GetEmployee(ctx, req.EmployeeID)
	if err != nil {
		return fmt.Errorf("failed to get employee: %w", err)
	}
	if emp == nil {
		return &NotFoundError{Kind: "employee", Key: string(req.EmployeeID)}
	}

	ok, err := w.Auth.CanDecide(ctx, actorID, emp.Department)
	if err != nil {
		return fmt.Errorf("authorization check failed: %w", err)
	}
	if !ok {
		return fmt.Errorf("%s cannot decide for department %s: %w", actorID, emp.Department, ErrNotAuthorized)
	}
	return nil
}

func submittedOrCreated(r Request) time.Time {
	if r.SubmittedAt != nil {
		return *r.SubmittedAt
	}
	return r.CreatedAt
}
