/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the engine's domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Handlers parse and validate; DTOs are pure data carriers. Day amounts
  travel as float64 in JSON but are decimal inside the engine.
*/
package api

import (
	"time"

	"github.com/warp/vacation-engine/engine"
)

// =============================================================================
// POLICY TYPES
// =============================================================================

type PolicyDTO struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Year         int     `json:"year"`
	Accrual      string  `json:"accrual"`
	DaysPerYear  float64 `json:"days_per_year"`
	CarryOverMax float64 `json:"carry_over_max"`
	Version      int     `json:"version"`
	CreatedAt    string  `json:"created_at,omitempty"`
	UpdatedAt    string  `json:"updated_at,omitempty"`
}

type SavePolicyRequest struct {
	Name         string  `json:"name"`
	Year         int     `json:"year"`
	Accrual      string  `json:"accrual"`
	DaysPerYear  float64 `json:"days_per_year"`
	CarryOverMax float64 `json:"carry_over_max"`
}

// =============================================================================
// EMPLOYEE TYPES
// =============================================================================

type EmployeeDTO struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	Department string `json:"department"`
	Active     bool   `json:"active"`
	HireDate   string `json:"hire_date"`
	CreatedAt  string `json:"created_at,omitempty"`
}

type SaveEmployeeRequest struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Department string `json:"department"`
	Active     *bool  `json:"active,omitempty"` // defaults to true
	HireDate   string `json:"hire_date"`
}

// =============================================================================
// BALANCE TYPES
// =============================================================================

type BalanceDTO struct {
	EmployeeID string  `json:"employee_id"`
	Year       int     `json:"year"`
	PolicyID   string  `json:"policy_id"`
	Allocated  float64 `json:"allocated"`
	Used       float64 `json:"used"`
	Remaining  float64 `json:"remaining"`
	UpdatedAt  string  `json:"updated_at"`
}

type TeamBalanceDTO struct {
	Employee EmployeeDTO `json:"employee"`
	Balance  *BalanceDTO `json:"balance,omitempty"`
}

type BulkAssignRequest struct {
	PolicyID string `json:"policy_id"`
	Year     int    `json:"year"`
}

type BulkAssignResultDTO struct {
	Created int `json:"created"`
}

// =============================================================================
// REQUEST TYPES
// =============================================================================

type ValidateRequest struct {
	EmployeeID string `json:"employee_id"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
}

type ValidationResultDTO struct {
	IsValid       bool     `json:"is_valid"`
	WorkingDays   float64  `json:"working_days"`
	AvailableDays float64  `json:"available_days"`
	Errors        []string `json:"errors"`
	Warnings      []string `json:"warnings"`
}

type CreateRequestRequest struct {
	EmployeeID string `json:"employee_id"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
	Type       string `json:"type,omitempty"`
}

type DecisionRequest struct {
	ActorID string `json:"actor_id"`
	Comment string `json:"comment"`
}

type RequestDTO struct {
	ID              string  `json:"id"`
	EmployeeID      string  `json:"employee_id"`
	StartDate       string  `json:"start_date"`
	EndDate         string  `json:"end_date"`
	Type            string  `json:"type"`
	RequestedDays   float64 `json:"requested_days"`
	Status          string  `json:"status"`
	ApproverComment string  `json:"approver_comment,omitempty"`
	SubmittedAt     *string `json:"submitted_at,omitempty"`
	DecisionAt      *string `json:"decision_at,omitempty"`
	CreatedAt       string  `json:"created_at"`
}

type PendingRequestDTO struct {
	RequestDTO
	EmployeeName string `json:"employee_name"`
	Department   string `json:"department"`
}

// =============================================================================
// HOLIDAY TYPES
// =============================================================================

type HolidayDTO struct {
	ID   string `json:"id"`
	Date string `json:"date"`
	Name string `json:"name"`
}

type SaveHolidayRequest struct {
	Date string `json:"date"`
	Name string `json:"name"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toPolicyDTO(p engine.Policy) PolicyDTO {
	return PolicyDTO{
		ID:           string(p.ID),
		Name:         p.Name,
		Year:         p.Year,
		Accrual:      string(p.Accrual),
		DaysPerYear:  p.DaysPerYear.Float64(),
		CarryOverMax: p.CarryOverMax.Float64(),
		Version:      p.Version,
		CreatedAt:    p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    p.UpdatedAt.Format(time.RFC3339),
	}
}

func toEmployeeDTO(e engine.Employee) EmployeeDTO {
	return EmployeeDTO{
		ID:         string(e.ID),
		Name:       e.Name,
		Email:      e.Email,
		Department: e.Department,
		Active:     e.Active,
		HireDate:   e.HireDate.Format("2006-01-02"),
		CreatedAt:  e.CreatedAt.Format(time.RFC3339),
	}
}

func toBalanceDTO(b engine.Balance) BalanceDTO {
	return BalanceDTO{
		EmployeeID: string(b.EmployeeID),
		Year:       b.Year,
		PolicyID:   string(b.PolicyID),
		Allocated:  b.Allocated.Float64(),
		Used:       b.Used.Float64(),
		Remaining:  b.Remaining().Float64(),
		UpdatedAt:  b.UpdatedAt.Format(time.RFC3339),
	}
}

func toValidationResultDTO(r engine.ValidationResult) ValidationResultDTO {
	dto := ValidationResultDTO{
		IsValid:       r.IsValid,
		WorkingDays:   r.WorkingDays.Float64(),
		AvailableDays: r.AvailableDays.Float64(),
		Errors:        r.Errors,
		Warnings:      r.Warnings,
	}
	if dto.Errors == nil {
		dto.Errors = []string{}
	}
	if dto.Warnings == nil {
		dto.Warnings = []string{}
	}
	return dto
}

func toRequestDTO(r engine.Request) RequestDTO {
	dto := RequestDTO{
		ID:              string(r.ID),
		EmployeeID:      string(r.EmployeeID),
		StartDate:       r.StartDate.String(),
		EndDate:         r.EndDate.String(),
		Type:            string(r.Type),
		RequestedDays:   r.RequestedDays.Float64(),
		Status:          string(r.Status),
		ApproverComment: r.ApproverComment,
		CreatedAt:       r.CreatedAt.Format(time.RFC3339),
	}
	if r.SubmittedAt != nil {
		s := r.SubmittedAt.Format(time.RFC3339)
		dto.SubmittedAt = &s
	}
	if r.DecisionAt != nil {
		s := r.DecisionAt.Format(time.RFC3339)
		dto.DecisionAt = &s
	}
	return dto
}

func toRequestDTOs(requests []engine.Request) []RequestDTO {
	dtos := make([]RequestDTO, len(requests))
	for i, r := range requests {
		dtos[i] = toRequestDTO(r)
	}
	return dtos
}

func toHolidayDTO(h engine.Holiday) HolidayDTO {
	return HolidayDTO{ID: h.ID, Date: h.Date.String(), Name: h.Name}
}
