/*
handlers.go - HTTP API handlers for the vacation engine

PURPOSE:
  Exposes the engine via REST. Handles HTTP request/response, JSON
  serialization, and delegates to the engine's services.

ENDPOINTS:
  Policies:
    GET    /api/policies                       List (optional ?year=)
    POST   /api/policies                       Create
    GET    /api/policies/{id}                  Get
    PUT    /api/policies/{id}                  Update (fails when in use)
    DELETE /api/policies/{id}                  Delete (fails when in use)

  Employees:
    GET    /api/employees                      List
    POST   /api/employees                      Create/update
    GET    /api/employees/{id}                 Get
    GET    /api/employees/{id}/balance?year=   Balance for a year
    GET    /api/employees/{id}/requests        The employee's requests

  Balances:
    POST   /api/balances/bulk-assign           Create yearly balances
    GET    /api/teams/{department}/balances    Department balances

  Requests:
    POST   /api/requests/validate              Pure preview
    POST   /api/requests                       Create draft
    GET    /api/requests/pending               Approval queue
    GET    /api/requests/{id}                  Get
    POST   /api/requests/{id}/submit           Submit (reserves balance)
    POST   /api/requests/{id}/approve          Approve
    POST   /api/requests/{id}/reject           Reject (comment required)
    POST   /api/requests/{id}/cancel           Cancel

  Holidays:
    GET    /api/holidays?year=                 List
    POST   /api/holidays                       Create
    DELETE /api/holidays/{id}                  Delete

ERROR HANDLING:
  Engine error kinds map to statuses via errors.Is/As, never message text:
  - 400: invalid input, validation failed, comment required
  - 403: not authorized
  - 404: not found
  - 409: insufficient balance, invalid transition, policy in use
  - 503: busy (lock contention; safe to retry with backoff)

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/warp/vacation-engine/engine"
	"github.com/warp/vacation-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     *sqlite.Store
	Policies  *engine.PolicyService
	Ledger    *engine.Ledger
	Validator *engine.Validator
	Lifecycle *engine.Lifecycle
	Workflow  *engine.Workflow
}

// NewHandler wires the engine over the given store. The authorizer is the
// external capability check consumed on approve/reject.
func NewHandler(store *sqlite.Store, auth engine.Authorizer) *Handler {
	if auth == nil {
		auth = engine.AllowAll{}
	}

	ledger := engine.NewLedger(store, store, store)
	validator := engine.NewValidator(store, store, store)
	lifecycle := engine.NewLifecycle(store, ledger, validator)

	return &Handler{
		Store:     store,
		Policies:  engine.NewPolicyService(store, store),
		Ledger:    ledger,
		Validator: validator,
		Lifecycle: lifecycle,
		Workflow:  engine.NewWorkflow(store, store, lifecycle, auth),
	}
}

// =============================================================================
// POLICY HANDLERS
// =============================================================================

func (h *Handler) ListPolicies(w http.ResponseWriter, r *http.Request) {
	year := queryInt(r, "year")
	policies, err := h.Policies.List(r.Context(), year)
	if err != nil {
		writeEngineError(w, "Failed to list policies", err)
		return
	}

	dtos := make([]PolicyDTO, len(policies))
	for i, p := range policies {
		dtos[i] = toPolicyDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreatePolicy(w http.ResponseWriter, r *http.Request) {
	var req SavePolicyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	policy, err := h.Policies.Create(r.Context(), policyFromRequest(req, ""))
	if err != nil {
		writeEngineError(w, "Failed to create policy", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPolicyDTO(*policy))
}

func (h *Handler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	policy, err := h.Policies.Get(r.Context(), engine.PolicyID(chi.URLParam(r, "id")))
	if err != nil {
		writeEngineError(w, "Failed to get policy", err)
		return
	}
	writeJSON(w, http.StatusOK, toPolicyDTO(*policy))
}

func (h *Handler) UpdatePolicy(w http.ResponseWriter, r *http.Request) {
	var req SavePolicyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	policy, err := h.Policies.Update(r.Context(), policyFromRequest(req, chi.URLParam(r, "id")))
	if err != nil {
		writeEngineError(w, "Failed to update policy", err)
		return
	}
	writeJSON(w, http.StatusOK, toPolicyDTO(*policy))
}

func (h *Handler) DeletePolicy(w http.ResponseWriter, r *http.Request) {
	if err := h.Policies.Delete(r.Context(), engine.PolicyID(chi.URLParam(r, "id"))); err != nil {
		writeEngineError(w, "Failed to delete policy", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func policyFromRequest(req SavePolicyRequest, id string) engine.Policy {
	return engine.Policy{
		ID:           engine.PolicyID(id),
		Name:         req.Name,
		Year:         req.Year,
		Accrual:      engine.AccrualType(req.Accrual),
		DaysPerYear:  engine.NewDays(req.DaysPerYear),
		CarryOverMax: engine.NewDays(req.CarryOverMax),
	}
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Store.ListEmployees(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list employees", err)
		return
	}

	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = toEmployeeDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) SaveEmployee(w http.ResponseWriter, r *http.Request) {
	var req SaveEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	hireDate, err := engine.ParseDate(req.HireDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid hire_date format (use YYYY-MM-DD)", err)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}

	emp := engine.Employee{
		ID:         engine.EmployeeID(req.ID),
		Name:       req.Name,
		Email:      req.Email,
		Department: req.Department,
		Active:     active,
		HireDate:   hireDate.Time,
	}
	if err := h.Store.SaveEmployee(r.Context(), emp); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save employee", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeDTO(emp))
}

func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	emp, err := h.Store.GetEmployee(r.Context(), engine.EmployeeID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get employee", err)
		return
	}
	if emp == nil {
		writeError(w, http.StatusNotFound, "Employee not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(*emp))
}

// =============================================================================
// BALANCE HANDLERS
// =============================================================================

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	employeeID := engine.EmployeeID(chi.URLParam(r, "id"))
	year := queryInt(r, "year")
	if year == 0 {
		year = engine.Today().Year()
	}

	balance, err := h.Ledger.Balance(r.Context(), employeeID, year)
	if err != nil {
		writeEngineError(w, "Failed to get balance", err)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceDTO(*balance))
}

func (h *Handler) BulkAssign(w http.ResponseWriter, r *http.Request) {
	var req BulkAssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	created, err := h.Ledger.BulkAssign(r.Context(), engine.PolicyID(req.PolicyID), req.Year)
	if err != nil {
		writeEngineError(w, "Failed to bulk-assign balances", err)
		return
	}
	writeJSON(w, http.StatusOK, BulkAssignResultDTO{Created: created})
}

func (h *Handler) GetTeamBalances(w http.ResponseWriter, r *http.Request) {
	department := chi.URLParam(r, "department")
	year := queryInt(r, "year")
	if year == 0 {
		year = engine.Today().Year()
	}

	teamBalances, err := h.Ledger.TeamBalances(r.Context(), department, year)
	if err != nil {
		writeEngineError(w, "Failed to get team balances", err)
		return
	}

	dtos := make([]TeamBalanceDTO, len(teamBalances))
	for i, tb := range teamBalances {
		dtos[i] = TeamBalanceDTO{Employee: toEmployeeDTO(tb.Employee)}
		if tb.Balance != nil {
			b := toBalanceDTO(*tb.Balance)
			dtos[i].Balance = &b
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// REQUEST HANDLERS
// =============================================================================

// ValidateRequest is the pure preview: same rules as creation, persists
// nothing.
func (h *Handler) ValidateRequest(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	start, end, err := parseRange(req.StartDate, req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	result, err := h.Validator.Validate(r.Context(), engine.EmployeeID(req.EmployeeID), start, end)
	if err != nil {
		writeEngineError(w, "Failed to validate request", err)
		return
	}
	writeJSON(w, http.StatusOK, toValidationResultDTO(*result))
}

func (h *Handler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	var req CreateRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	start, end, err := parseRange(req.StartDate, req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	request, err := h.Lifecycle.Create(r.Context(),
		engine.EmployeeID(req.EmployeeID), start, end, engine.RequestType(req.Type))
	if err != nil {
		writeEngineError(w, "Failed to create request", err)
		return
	}
	writeJSON(w, http.StatusCreated, toRequestDTO(*request))
}

func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	request, err := h.Lifecycle.Get(r.Context(), engine.RequestID(chi.URLParam(r, "id")))
	if err != nil {
		writeEngineError(w, "Failed to get request", err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(*request))
}

func (h *Handler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	request, err := h.Lifecycle.Submit(r.Context(), engine.RequestID(chi.URLParam(r, "id")))
	if err != nil {
		writeEngineError(w, "Failed to submit request", err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(*request))
}

func (h *Handler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, "Failed to approve request", h.Workflow.Approve)
}

func (h *Handler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, "Failed to reject request", h.Workflow.Reject)
}

type decisionFunc func(ctx context.Context, actorID engine.EmployeeID, id engine.RequestID, comment string) (*engine.Request, error)

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, message string, fn decisionFunc) {
	var req DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	request, err := fn(r.Context(),
		engine.EmployeeID(req.ActorID), engine.RequestID(chi.URLParam(r, "id")), req.Comment)
	if err != nil {
		writeEngineError(w, message, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(*request))
}

func (h *Handler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	request, err := h.Lifecycle.Cancel(r.Context(), engine.RequestID(chi.URLParam(r, "id")))
	if err != nil {
		writeEngineError(w, "Failed to cancel request", err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(*request))
}

func (h *Handler) ListMyRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.Workflow.ListMine(r.Context(), engine.EmployeeID(chi.URLParam(r, "id")))
	if err != nil {
		writeEngineError(w, "Failed to list requests", err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTOs(requests))
}

func (h *Handler) ListPendingRequests(w http.ResponseWriter, r *http.Request) {
	filter, err := pendingFilterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid filter", err)
		return
	}

	pending, err := h.Workflow.ListPending(r.Context(), filter)
	if err != nil {
		writeEngineError(w, "Failed to list pending requests", err)
		return
	}

	dtos := make([]PendingRequestDTO, len(pending))
	for i, p := range pending {
		dtos[i] = PendingRequestDTO{
			RequestDTO:   toRequestDTO(p.Request),
			EmployeeName: p.EmployeeName,
			Department:   p.Department,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

func pendingFilterFromQuery(r *http.Request) (engine.PendingFilter, error) {
	var filter engine.PendingFilter

	if v := r.URL.Query().Get("employee_id"); v != "" {
		id := engine.EmployeeID(v)
		filter.EmployeeID = &id
	}
	if v := r.URL.Query().Get("department"); v != "" {
		filter.Department = &v
	}
	if v := r.URL.Query().Get("status"); v != "" {
		status := engine.RequestStatus(v)
		filter.Status = &status
	}
	if v := r.URL.Query().Get("date_from"); v != "" {
		d, err := engine.ParseDate(v)
		if err != nil {
			return filter, err
		}
		filter.DateFrom = &d
	}
	if v := r.URL.Query().Get("date_to"); v != "" {
		d, err := engine.ParseDate(v)
		if err != nil {
			return filter, err
		}
		filter.DateTo = &d
	}
	return filter, nil
}

// =============================================================================
// HOLIDAY HANDLERS
// =============================================================================

func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	holidays, err := h.Store.ListHolidays(r.Context(), queryInt(r, "year"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list holidays", err)
		return
	}

	dtos := make([]HolidayDTO, len(holidays))
	for i, holiday := range holidays {
		dtos[i] = toHolidayDTO(holiday)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	var req SaveHolidayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	date, err := engine.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	holiday := engine.Holiday{ID: uuid.NewString(), Date: date, Name: req.Name}
	if err := h.Store.SaveHoliday(r.Context(), holiday); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save holiday", err)
		return
	}
	writeJSON(w, http.StatusCreated, toHolidayDTO(holiday))
}

func (h *Handler) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteHoliday(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete holiday", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// HELPERS
// =============================================================================

func parseRange(startStr, endStr string) (engine.Date, engine.Date, error) {
	start, err := engine.ParseDate(startStr)
	if err != nil {
		return engine.Date{}, engine.Date{}, err
	}
	end, err := engine.ParseDate(endStr)
	if err != nil {
		return engine.Date{}, engine.Date{}, err
	}
	return start, end, nil
}

func queryInt(r *http.Request, name string) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeEngineError maps engine error kinds to HTTP statuses.
func writeEngineError(w http.ResponseWriter, message string, err error) {
	status := http.StatusInternalServerError
	code := ""

	var vErr *engine.ValidationFailedError
	switch {
	case errors.As(err, &vErr):
		resp := ErrorResponse{Error: message, Code: "validation_failed", Details: vErr.Errors}
		writeJSON(w, http.StatusBadRequest, resp)
		return
	case errors.Is(err, engine.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, engine.ErrBusy):
		status, code = http.StatusServiceUnavailable, "busy"
		w.Header().Set("Retry-After", "1")
	case errors.Is(err, engine.ErrNotAuthorized):
		status, code = http.StatusForbidden, "not_authorized"
	case errors.Is(err, engine.ErrInsufficientBalance):
		status, code = http.StatusConflict, "insufficient_balance"
	case errors.Is(err, engine.ErrInvalidTransition):
		status, code = http.StatusConflict, "invalid_transition"
	case errors.Is(err, engine.ErrPolicyInUse):
		status, code = http.StatusConflict, "policy_in_use"
	case errors.Is(err, engine.ErrCommentRequired):
		status, code = http.StatusBadRequest, "comment_required"
	case errors.Is(err, engine.ErrInvalidRange):
		status, code = http.StatusBadRequest, "invalid_range"
	case engine.IsClientError(err):
		status, code = http.StatusBadRequest, "bad_request"
	}

	resp := ErrorResponse{Error: message, Code: code}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
