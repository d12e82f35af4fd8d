/*
policy.go - Vacation policies

PURPOSE:
  A Policy is the contract for one year's entitlement: how many days are
  granted, how they accrue, and how many unused days may carry over into
  the next year.

IMMUTABILITY RULE:
  Once any balance references a policy, Update and Delete fail with
  ErrPolicyInUse. A balance references its policy by id, so retroactive
  edits would silently change historical allocations.
*/
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// POLICY - One year's entitlement rules
// =============================================================================

type Policy struct {
	ID           PolicyID
	Name         string
	Year         int
	Accrual      AccrualType
	DaysPerYear  Days
	CarryOverMax Days
	Version      int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// =============================================================================
// POLICY SERVICE - Administrative CRUD with the in-use guard
// =============================================================================

type PolicyService struct {
	Policies PolicyStore
	Balances BalanceStore
	Clock    func() time.Time
}

func NewPolicyService(policies PolicyStore, balances BalanceStore) *PolicyService {
	return &PolicyService{Policies: policies, Balances: balances, Clock: time.Now}
}

// Create validates and stores a new policy. An empty id is generated.
func (s *PolicyService) Create(ctx context.Context, p Policy) (*Policy, error) {
	if err := validatePolicy(p); err != nil {
		return nil, err
	}
	if p.ID == "" {
		p.ID = PolicyID(uuid.NewString())
	}
	now := s.Clock().UTC()
	p.Version = 1
	p.CreatedAt = now
	p.UpdatedAt = now

	if err := s.Policies.SavePolicy(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to save policy: %w", err)
	}
	return &p, nil
}

// Update replaces a policy. Fails with ErrPolicyInUse once any balance
// references it; historical allocations stay explainable.
func (s *PolicyService) Update(ctx context.Context, p Policy) (*Policy, error) {
	if err := validatePolicy(p); err != nil {
		return nil, err
	}
	existing, err := s.Get(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUnreferenced(ctx, p.ID); err != nil {
		return nil, err
	}

	p.Version = existing.Version + 1
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = s.Clock().UTC()

	if err := s.Policies.UpdatePolicy(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to update policy: %w", err)
	}
	return &p, nil
}

// Get returns a policy or NotFoundError.
func (s *PolicyService) Get(ctx context.Context, id PolicyID) (*Policy, error) {
	p, err := s.Policies.GetPolicy(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get policy: %w", err)
	}
	if p == nil {
		return nil, &NotFoundError{Kind: "policy", Key: string(id)}
	}
	return p, nil
}

// List returns policies for a year; year 0 lists all.
func (s *PolicyService) List(ctx context.Context, year int) ([]Policy, error) {
	return s.Policies.ListPolicies(ctx, year)
}

// Delete removes a policy, subject to the in-use guard.
func (s *PolicyService) Delete(ctx context.Context, id PolicyID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.ensureUnreferenced(ctx, id); err != nil {
		return err
	}
	return s.Policies.DeletePolicy(ctx, id)
}

func (s *PolicyService) ensureUnreferenced(ctx context.Context, id PolicyID) error {
	n, err := s.Balances.CountByPolicy(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to count policy references: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("policy %s has %d balances: %w", id, n, ErrPolicyInUse)
	}
	return nil
}

func validatePolicy(p Policy) error {
	var errs []string
	if p.Name == "" {
		errs = append(errs, "policy name is required")
	}
	if p.Year < 1900 {
		errs = append(errs, fmt.Sprintf("policy year %d is not a valid year", p.Year))
	}
	if p.Accrual != AccrualAnnual && p.Accrual != AccrualMonthly {
		errs = append(errs, fmt.Sprintf("unknown accrual type %q", p.Accrual))
	}
	if p.DaysPerYear.IsNegative() || p.CarryOverMax.IsNegative() {
		errs = append(errs, "policy day amounts must not be negative")
	}
	if len(errs) > 0 {
		return &ValidationFailedError{Errors: errs}
	}
	return nil
}
