package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/vacation-engine/api"
	"github.com/warp/vacation-engine/engine"
	"github.com/warp/vacation-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	handler := api.NewHandler(store, engine.AllowAll{})
	server := httptest.NewServer(api.NewRouter(handler))
	t.Cleanup(server.Close)
	return server
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

// seedWorld creates an employee, a 2025 policy, and assigns balances.
// Returns the policy id.
func seedWorld(t *testing.T, server *httptest.Server) string {
	t.Helper()

	resp := doJSON(t, http.MethodPost, server.URL+"/api/employees", map[string]any{
		"id": "emp-1", "name": "Dana", "department": "eng", "hire_date": "2022-04-04",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, server.URL+"/api/policies", map[string]any{
		"name": "Standard", "year": 2025, "accrual": "ANNUAL",
		"days_per_year": 22, "carry_over_max": 5,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var policy api.PolicyDTO
	decodeBody(t, resp, &policy)

	resp = doJSON(t, http.MethodPost, server.URL+"/api/balances/bulk-assign", map[string]any{
		"policy_id": policy.ID, "year": 2025,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result api.BulkAssignResultDTO
	decodeBody(t, resp, &result)
	require.Equal(t, 1, result.Created)

	return policy.ID
}

func createAndSubmit(t *testing.T, server *httptest.Server, start, end string) api.RequestDTO {
	t.Helper()

	resp := doJSON(t, http.MethodPost, server.URL+"/api/requests", map[string]any{
		"employee_id": "emp-1", "start_date": start, "end_date": end,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var req api.RequestDTO
	decodeBody(t, resp, &req)

	resp = doJSON(t, http.MethodPost, server.URL+"/api/requests/"+req.ID+"/submit", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &req)
	return req
}

// =============================================================================
// POLICY ENDPOINT TESTS
// =============================================================================

func TestAPI_Policy_CRUD(t *testing.T) {
	server := newTestServer(t)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/policies", map[string]any{
		"name": "Standard", "year": 2025, "accrual": "ANNUAL",
		"days_per_year": 22, "carry_over_max": 5,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created api.PolicyDTO
	decodeBody(t, resp, &created)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, 1, created.Version)

	resp = doJSON(t, http.MethodPut, server.URL+"/api/policies/"+created.ID, map[string]any{
		"name": "Standard", "year": 2025, "accrual": "ANNUAL",
		"days_per_year": 25, "carry_over_max": 5,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var updated api.PolicyDTO
	decodeBody(t, resp, &updated)
	assert.Equal(t, 2, updated.Version)
	assert.Equal(t, 25.0, updated.DaysPerYear)

	resp = doJSON(t, http.MethodDelete, server.URL+"/api/policies/"+created.ID, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, server.URL+"/api/policies/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestAPI_Policy_InUse_Conflict(t *testing.T) {
	server := newTestServer(t)
	policyID := seedWorld(t, server)

	resp := doJSON(t, http.MethodDelete, server.URL+"/api/policies/"+policyID, nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	var errResp api.ErrorResponse
	decodeBody(t, resp, &errResp)
	assert.Equal(t, "policy_in_use", errResp.Code)
}

// =============================================================================
// BALANCE ENDPOINT TESTS
// =============================================================================

func TestAPI_Balance_AfterBulkAssign(t *testing.T) {
	server := newTestServer(t)
	seedWorld(t, server)

	resp := doJSON(t, http.MethodGet, server.URL+"/api/employees/emp-1/balance?year=2025", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var balance api.BalanceDTO
	decodeBody(t, resp, &balance)
	assert.Equal(t, 22.0, balance.Allocated)
	assert.Equal(t, 0.0, balance.Used)
	assert.Equal(t, 22.0, balance.Remaining)
}

func TestAPI_Balance_Missing_NotFound(t *testing.T) {
	server := newTestServer(t)
	seedWorld(t, server)

	resp := doJSON(t, http.MethodGet, server.URL+"/api/employees/emp-1/balance?year=2030", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	var errResp api.ErrorResponse
	decodeBody(t, resp, &errResp)
	assert.Equal(t, "not_found", errResp.Code)
}

func TestAPI_TeamBalances(t *testing.T) {
	server := newTestServer(t)
	seedWorld(t, server)

	// A second eng employee hired after assignment has no balance.
	resp := doJSON(t, http.MethodPost, server.URL+"/api/employees", map[string]any{
		"id": "emp-2", "name": "Riley", "department": "eng", "hire_date": "2025-02-01",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, server.URL+"/api/teams/eng/balances?year=2025", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var team []api.TeamBalanceDTO
	decodeBody(t, resp, &team)
	require.Len(t, team, 2)

	byID := map[string]*api.BalanceDTO{}
	for _, tb := range team {
		byID[tb.Employee.ID] = tb.Balance
	}
	require.NotNil(t, byID["emp-1"])
	assert.Equal(t, 22.0, byID["emp-1"].Remaining)
	assert.Nil(t, byID["emp-2"])
}

// =============================================================================
// REQUEST ENDPOINT TESTS
// =============================================================================

func TestAPI_Validate_Preview(t *testing.T) {
	server := newTestServer(t)
	seedWorld(t, server)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/requests/validate", map[string]any{
		"employee_id": "emp-1", "start_date": "2025-03-10", "end_date": "2025-03-14",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result api.ValidationResultDTO
	decodeBody(t, resp, &result)
	assert.True(t, result.IsValid)
	assert.Equal(t, 5.0, result.WorkingDays)
	assert.Equal(t, 22.0, result.AvailableDays)
	assert.NotNil(t, result.Errors, "errors must serialize as [], not null")
	assert.Empty(t, result.Errors)
}

func TestAPI_Validate_WeekendOnly(t *testing.T) {
	server := newTestServer(t)
	seedWorld(t, server)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/requests/validate", map[string]any{
		"employee_id": "emp-1", "start_date": "2025-03-15", "end_date": "2025-03-16",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result api.ValidationResultDTO
	decodeBody(t, resp, &result)
	assert.False(t, result.IsValid)
	assert.Contains(t, result.Errors, "No working days in range")
}

func TestAPI_Request_SubmitApproveFlow(t *testing.T) {
	server := newTestServer(t)
	seedWorld(t, server)

	req := createAndSubmit(t, server, "2025-03-10", "2025-03-14")
	assert.Equal(t, "SUBMITTED", req.Status)
	assert.Equal(t, 5.0, req.RequestedDays)
	require.NotNil(t, req.SubmittedAt)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/requests/"+req.ID+"/approve",
		api.DecisionRequest{ActorID: "mgr-1", Comment: "have fun"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var approved api.RequestDTO
	decodeBody(t, resp, &approved)
	assert.Equal(t, "APPROVED", approved.Status)
	assert.Equal(t, "have fun", approved.ApproverComment)
	require.NotNil(t, approved.DecisionAt)

	// Balance stays reserved after approval.
	resp = doJSON(t, http.MethodGet, server.URL+"/api/employees/emp-1/balance?year=2025", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var balance api.BalanceDTO
	decodeBody(t, resp, &balance)
	assert.Equal(t, 17.0, balance.Remaining)
}

func TestAPI_Request_RejectWithoutComment(t *testing.T) {
	server := newTestServer(t)
	seedWorld(t, server)
	req := createAndSubmit(t, server, "2025-03-10", "2025-03-14")

	resp := doJSON(t, http.MethodPost, server.URL+"/api/requests/"+req.ID+"/reject",
		api.DecisionRequest{ActorID: "mgr-1"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var errResp api.ErrorResponse
	decodeBody(t, resp, &errResp)
	assert.Equal(t, "comment_required", errResp.Code)
}

func TestAPI_Request_RejectRestoresBalance(t *testing.T) {
	server := newTestServer(t)
	seedWorld(t, server)
	req := createAndSubmit(t, server, "2025-03-10", "2025-03-14")

	resp := doJSON(t, http.MethodPost, server.URL+"/api/requests/"+req.ID+"/reject",
		api.DecisionRequest{ActorID: "mgr-1", Comment: "coverage conflict"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rejected api.RequestDTO
	decodeBody(t, resp, &rejected)
	assert.Equal(t, "REJECTED", rejected.Status)

	resp = doJSON(t, http.MethodGet, server.URL+"/api/employees/emp-1/balance?year=2025", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var balance api.BalanceDTO
	decodeBody(t, resp, &balance)
	assert.Equal(t, 22.0, balance.Remaining)
}

func TestAPI_Request_DoubleApprove_Conflict(t *testing.T) {
	server := newTestServer(t)
	seedWorld(t, server)
	req := createAndSubmit(t, server, "2025-03-10", "2025-03-14")

	resp := doJSON(t, http.MethodPost, server.URL+"/api/requests/"+req.ID+"/approve",
		api.DecisionRequest{ActorID: "mgr-1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, server.URL+"/api/requests/"+req.ID+"/approve",
		api.DecisionRequest{ActorID: "mgr-1"})
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	var errResp api.ErrorResponse
	decodeBody(t, resp, &errResp)
	assert.Equal(t, "invalid_transition", errResp.Code)
}

func TestAPI_Request_CreateInvalid_ValidationDetails(t *testing.T) {
	server := newTestServer(t)
	seedWorld(t, server)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/requests", map[string]any{
		"employee_id": "emp-1", "start_date": "2025-03-14", "end_date": "2025-03-10",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var errResp api.ErrorResponse
	decodeBody(t, resp, &errResp)
	assert.Equal(t, "validation_failed", errResp.Code)
	assert.NotNil(t, errResp.Details)
}

func TestAPI_Request_PendingQueue(t *testing.T) {
	server := newTestServer(t)
	seedWorld(t, server)

	first := createAndSubmit(t, server, "2025-03-10", "2025-03-14")
	second := createAndSubmit(t, server, "2025-04-07", "2025-04-11")

	resp := doJSON(t, http.MethodGet, server.URL+"/api/requests/pending", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var pending []api.PendingRequestDTO
	decodeBody(t, resp, &pending)
	require.Len(t, pending, 2)
	assert.Equal(t, first.ID, pending[0].ID)
	assert.Equal(t, second.ID, pending[1].ID)
	assert.Equal(t, "Dana", pending[0].EmployeeName)
	assert.Equal(t, "eng", pending[0].Department)
}

func TestAPI_Request_ListMine(t *testing.T) {
	server := newTestServer(t)
	seedWorld(t, server)
	createAndSubmit(t, server, "2025-03-10", "2025-03-14")

	resp := doJSON(t, http.MethodGet, server.URL+"/api/employees/emp-1/requests", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var mine []api.RequestDTO
	decodeBody(t, resp, &mine)
	require.Len(t, mine, 1)
	assert.Equal(t, "SUBMITTED", mine[0].Status)
}

func TestAPI_Request_Overdraw_Rejected(t *testing.T) {
	// GIVEN: 22 days allocated, four week-long requests already submitted
	// WHEN: Creating a fifth week-long request (only 2 days remain)
	// THEN: Creation fails validation

	server := newTestServer(t)
	seedWorld(t, server)

	mondays := []string{"2025-03-03", "2025-03-17", "2025-04-07", "2025-05-05"}
	fridays := []string{"2025-03-07", "2025-03-21", "2025-04-11", "2025-05-09"}
	for i := range mondays {
		createAndSubmit(t, server, mondays[i], fridays[i])
	}

	resp := doJSON(t, http.MethodPost, server.URL+"/api/requests", map[string]any{
		"employee_id": "emp-1", "start_date": "2025-06-02", "end_date": "2025-06-06",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode, "only 2 days remain")

	var errResp api.ErrorResponse
	decodeBody(t, resp, &errResp)
	assert.Equal(t, "validation_failed", errResp.Code)
}

// =============================================================================
// HOLIDAY ENDPOINT TESTS
// =============================================================================

func TestAPI_Holiday_AffectsWorkingDays(t *testing.T) {
	server := newTestServer(t)
	seedWorld(t, server)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/holidays", map[string]any{
		"date": "2025-03-12", "name": "Company Day",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, server.URL+"/api/requests/validate", map[string]any{
		"employee_id": "emp-1", "start_date": "2025-03-10", "end_date": "2025-03-14",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result api.ValidationResultDTO
	decodeBody(t, resp, &result)
	assert.Equal(t, 4.0, result.WorkingDays, "the holiday Wednesday does not count")
}

func TestAPI_Holiday_ListByYear(t *testing.T) {
	server := newTestServer(t)

	for _, h := range []map[string]any{
		{"date": "2025-12-25", "name": "Christmas"},
		{"date": "2026-01-01", "name": "New Year's Day"},
	} {
		resp := doJSON(t, http.MethodPost, server.URL+"/api/holidays", h)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		resp.Body.Close()
	}

	resp := doJSON(t, http.MethodGet, server.URL+"/api/holidays?year=2025", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var holidays []api.HolidayDTO
	decodeBody(t, resp, &holidays)
	require.Len(t, holidays, 1)
	assert.Equal(t, "Christmas", holidays[0].Name)
}

// =============================================================================
// EMPLOYEE ENDPOINT TESTS
// =============================================================================

func TestAPI_Employee_NotFound(t *testing.T) {
	server := newTestServer(t)

	resp := doJSON(t, http.MethodGet, server.URL+"/api/employees/ghost", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestAPI_Employee_BadHireDate(t *testing.T) {
	server := newTestServer(t)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/employees", map[string]any{
		"id": "emp-1", "name": "Dana", "department": "eng", "hire_date": "04/04/2022",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestAPI_Employee_GeneratedID(t *testing.T) {
	server := newTestServer(t)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/employees", map[string]any{
		"name": "Riley", "department": "sales", "hire_date": "2024-01-15",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var emp api.EmployeeDTO
	decodeBody(t, resp, &emp)
	assert.NotEmpty(t, emp.ID)
	assert.True(t, emp.Active, "active defaults to true")

	resp = doJSON(t, http.MethodGet, fmt.Sprintf("%s/api/employees/%s", server.URL, emp.ID), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}
