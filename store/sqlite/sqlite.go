/*
Package sqlite provides a SQLite-backed implementation of the engine's
storage interfaces.

PURPOSE:
  Implements PolicyStore, BalanceStore, RequestStore, EmployeeDirectory,
  and HolidayCalendar on a single SQLite database. In production the same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  policies:   Policy definitions (versioned)
  employees:  Directory records (name, department, active flag)
  balances:   One row per (employee_id, year) - the uniqueness constraint
              the engine relies on
  requests:   Vacation requests with their status
  holidays:   Company holiday calendar

DATA REPRESENTATION:
  Day amounts are stored as decimal strings, never floats. Dates are
  stored as ISO dates (2006-01-02); timestamps as RFC3339.

CONCURRENCY:
  WAL mode for better read concurrency. Per-balance serialization is the
  engine ledger's job; the balances primary key backstops it.

USAGE:
  st, err := sqlite.New("./vacation.db")
  if err != nil {
      log.Fatal(err)
  }
  defer st.Close()

SEE ALSO:
  - engine/store.go: Interface definitions
  - engine/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/vacation-engine/engine"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
}

// Interface checks
var (
	_ engine.PolicyStore       = (*Store)(nil)
	_ engine.BalanceStore      = (*Store)(nil)
	_ engine.RequestStore      = (*Store)(nil)
	_ engine.EmployeeDirectory = (*Store)(nil)
	_ engine.HolidayCalendar   = (*Store)(nil)
)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS policies (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		year INTEGER NOT NULL,
		accrual TEXT NOT NULL,
		days_per_year TEXT NOT NULL,
		carry_over_max TEXT NOT NULL,
		version INTEGER DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_policies_year ON policies(year);

	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		department TEXT NOT NULL DEFAULT '',
		active BOOLEAN NOT NULL DEFAULT TRUE,
		hire_date TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_employees_department ON employees(department);

	-- One balance per employee per year. The engine depends on this key.
	CREATE TABLE IF NOT EXISTS balances (
		employee_id TEXT NOT NULL,
		year INTEGER NOT NULL,
		policy_id TEXT NOT NULL,
		allocated TEXT NOT NULL,
		used TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (employee_id, year)
	);

	CREATE INDEX IF NOT EXISTS idx_balances_policy ON balances(policy_id);
	CREATE INDEX IF NOT EXISTS idx_balances_year ON balances(year);

	CREATE TABLE IF NOT EXISTS requests (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		type TEXT NOT NULL,
		requested_days TEXT NOT NULL,
		status TEXT NOT NULL,
		approver_comment TEXT,
		submitted_at TEXT,
		decision_at TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_requests_employee ON requests(employee_id);
	CREATE INDEX IF NOT EXISTS idx_requests_status ON requests(status);
	-- Overlap checks: employee + active status + range scan
	CREATE INDEX IF NOT EXISTS idx_requests_employee_status_dates
		ON requests(employee_id, status, start_date, end_date);

	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_holidays_unique ON holidays(date, name);
	CREATE INDEX IF NOT EXISTS idx_holidays_date ON holidays(date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// POLICY STORE (engine.PolicyStore)
// =============================================================================

func (s *Store) SavePolicy(ctx context.Context, p engine.Policy) error {
	query := `
		INSERT INTO policies (id, name, year, accrual, days_per_year, carry_over_max, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		p.ID, p.Name, p.Year, p.Accrual,
		p.DaysPerYear.String(), p.CarryOverMax.String(),
		p.Version,
		p.CreatedAt.UTC().Format(time.RFC3339),
		p.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save policy: %w", err)
	}
	return nil
}

func (s *Store) UpdatePolicy(ctx context.Context, p engine.Policy) error {
	query := `
		UPDATE policies
		SET name = ?, year = ?, accrual = ?, days_per_year = ?, carry_over_max = ?, version = ?, updated_at = ?
		WHERE id = ?
	`
	_, err := s.db.ExecContext(ctx, query,
		p.Name, p.Year, p.Accrual,
		p.DaysPerYear.String(), p.CarryOverMax.String(),
		p.Version,
		p.UpdatedAt.UTC().Format(time.RFC3339),
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update policy: %w", err)
	}
	return nil
}

func (s *Store) GetPolicy(ctx context.Context, id engine.PolicyID) (*engine.Policy, error) {
	query := `
		SELECT id, name, year, accrual, days_per_year, carry_over_max, version, created_at, updated_at
		FROM policies WHERE id = ?
	`
	row := s.db.QueryRowContext(ctx, query, id)
	p, err := scanPolicy(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get policy: %w", err)
	}
	return p, nil
}

func (s *Store) ListPolicies(ctx context.Context, year int) ([]engine.Policy, error) {
	query := `
		SELECT id, name, year, accrual, days_per_year, carry_over_max, version, created_at, updated_at
		FROM policies
	`
	args := []any{}
	if year != 0 {
		query += ` WHERE year = ?`
		args = append(args, year)
	}
	query += ` ORDER BY year, name`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list policies: %w", err)
	}
	defer rows.Close()

	var out []engine.Policy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (s *Store) DeletePolicy(ctx context.Context, id engine.PolicyID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM policies WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete policy: %w", err)
	}
	return nil
}

func scanPolicy(row scanner) (*engine.Policy, error) {
	var p engine.Policy
	var days, carry, createdAt, updatedAt string
	if err := row.Scan(&p.ID, &p.Name, &p.Year, &p.Accrual, &days, &carry, &p.Version, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	p.DaysPerYear = engine.MustParseDays(days)
	p.CarryOverMax = engine.MustParseDays(carry)
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return &p, nil
}

// =============================================================================
// BALANCE STORE (engine.BalanceStore)
// =============================================================================

func (s *Store) GetBalance(ctx context.Context, employeeID engine.EmployeeID, year int) (*engine.Balance, error) {
	query := `
		SELECT employee_id, year, policy_id, allocated, used, updated_at
		FROM balances WHERE employee_id = ? AND year = ?
	`
	row := s.db.QueryRowContext(ctx, query, employeeID, year)
	b, err := scanBalance(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	return b, nil
}

func (s *Store) SaveBalance(ctx context.Context, b engine.Balance) error {
	query := `
		INSERT INTO balances (employee_id, year, policy_id, allocated, used, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		b.EmployeeID, b.Year, b.PolicyID,
		b.Allocated.String(), b.Used.String(),
		b.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save balance: %w", err)
	}
	return nil
}

func (s *Store) UpdateBalance(ctx context.Context, b engine.Balance) error {
	query := `
		UPDATE balances SET policy_id = ?, allocated = ?, used = ?, updated_at = ?
		WHERE employee_id = ? AND year = ?
	`
	_, err := s.db.ExecContext(ctx, query,
		b.PolicyID, b.Allocated.String(), b.Used.String(),
		b.UpdatedAt.UTC().Format(time.RFC3339),
		b.EmployeeID, b.Year,
	)
	if err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}
	return nil
}

func (s *Store) ListBalances(ctx context.Context, year int) ([]engine.Balance, error) {
	query := `
		SELECT employee_id, year, policy_id, allocated, used, updated_at
		FROM balances WHERE year = ? ORDER BY employee_id
	`
	rows, err := s.db.QueryContext(ctx, query, year)
	if err != nil {
		return nil, fmt.Errorf("failed to list balances: %w", err)
	}
	defer rows.Close()

	var out []engine.Balance
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (s *Store) CountByPolicy(ctx context.Context, id engine.PolicyID) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM balances WHERE policy_id = ?`, id).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count balances: %w", err)
	}
	return n, nil
}

func scanBalance(row scanner) (*engine.Balance, error) {
	var b engine.Balance
	var allocated, used, updatedAt string
	if err := row.Scan(&b.EmployeeID, &b.Year, &b.PolicyID, &allocated, &used, &updatedAt); err != nil {
		return nil, err
	}
	b.Allocated = engine.MustParseDays(allocated)
	b.Used = engine.MustParseDays(used)
	b.UpdatedAt = parseTime(updatedAt)
	return &b, nil
}

// =============================================================================
// REQUEST STORE (engine.RequestStore)
// =============================================================================

func (s *Store) SaveRequest(ctx context.Context, r engine.Request) error {
	query := `
		INSERT INTO requests
		(id, employee_id, start_date, end_date, type, requested_days, status,
		 approver_comment, submitted_at, decision_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.EmployeeID,
		r.StartDate.String(), r.EndDate.String(),
		r.Type, r.RequestedDays.String(), r.Status,
		nullString(r.ApproverComment),
		nullTime(r.SubmittedAt), nullTime(r.DecisionAt),
		r.CreatedAt.UTC().Format(time.RFC3339),
		r.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save request: %w", err)
	}
	return nil
}

func (s *Store) UpdateRequest(ctx context.Context, r engine.Request) error {
	query := `
		UPDATE requests
		SET start_date = ?, end_date = ?, type = ?, requested_days = ?, status = ?,
		    approver_comment = ?, submitted_at = ?, decision_at = ?, updated_at = ?
		WHERE id = ?
	`
	_, err := s.db.ExecContext(ctx, query,
		r.StartDate.String(), r.EndDate.String(),
		r.Type, r.RequestedDays.String(), r.Status,
		nullString(r.ApproverComment),
		nullTime(r.SubmittedAt), nullTime(r.DecisionAt),
		r.UpdatedAt.UTC().Format(time.RFC3339),
		r.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update request: %w", err)
	}
	return nil
}

func (s *Store) GetRequest(ctx context.Context, id engine.RequestID) (*engine.Request, error) {
	row := s.db.QueryRowContext(ctx, selectRequest+` WHERE id = ?`, id)
	r, err := scanRequest(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get request: %w", err)
	}
	return r, nil
}

func (s *Store) ListByEmployee(ctx context.Context, employeeID engine.EmployeeID) ([]engine.Request, error) {
	return s.queryRequests(ctx, selectRequest+` WHERE employee_id = ? ORDER BY created_at DESC`, employeeID)
}

func (s *Store) ListActiveOverlapping(ctx context.Context, employeeID engine.EmployeeID, start, end engine.Date) ([]engine.Request, error) {
	query := selectRequest + `
		WHERE employee_id = ?
		  AND status IN (?, ?)
		  AND start_date <= ? AND end_date >= ?
	`
	return s.queryRequests(ctx, query,
		employeeID, engine.StatusSubmitted, engine.StatusApproved,
		end.String(), start.String())
}

func (s *Store) ListPending(ctx context.Context, filter engine.PendingFilter) ([]engine.Request, error) {
	var conds []string
	var args []any

	if filter.Status != nil {
		conds = append(conds, "status = ?")
		args = append(args, *filter.Status)
	}
	if filter.EmployeeID != nil {
		conds = append(conds, "employee_id = ?")
		args = append(args, *filter.EmployeeID)
	}
	if filter.DateFrom != nil {
		conds = append(conds, "end_date >= ?")
		args = append(args, filter.DateFrom.String())
	}
	if filter.DateTo != nil {
		conds = append(conds, "start_date <= ?")
		args = append(args, filter.DateTo.String())
	}

	query := selectRequest
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY submitted_at ASC, created_at ASC`

	return s.queryRequests(ctx, query, args...)
}

const selectRequest = `
	SELECT id, employee_id, start_date, end_date, type, requested_days, status,
	       approver_comment, submitted_at, decision_at, created_at, updated_at
	FROM requests
`

func (s *Store) queryRequests(ctx context.Context, query string, args ...any) ([]engine.Request, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}
	defer rows.Close()

	var out []engine.Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func scanRequest(row scanner) (*engine.Request, error) {
	var r engine.Request
	var startDate, endDate, requestedDays, createdAt, updatedAt string
	var comment, submittedAt, decisionAt sql.NullString

	if err := row.Scan(&r.ID, &r.EmployeeID, &startDate, &endDate, &r.Type, &requestedDays,
		&r.Status, &comment, &submittedAt, &decisionAt, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	r.StartDate, _ = engine.ParseDate(startDate)
	r.EndDate, _ = engine.ParseDate(endDate)
	r.RequestedDays = engine.MustParseDays(requestedDays)
	r.ApproverComment = comment.String
	r.SubmittedAt = parseNullTime(submittedAt)
	r.DecisionAt = parseNullTime(decisionAt)
	r.CreatedAt = parseTime(createdAt)
	r.UpdatedAt = parseTime(updatedAt)
	return &r, nil
}

// =============================================================================
// EMPLOYEE DIRECTORY (engine.EmployeeDirectory + admin CRUD)
// =============================================================================

func (s *Store) SaveEmployee(ctx context.Context, e engine.Employee) error {
	query := `
		INSERT INTO employees (id, name, email, department, active, hire_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, email = excluded.email,
			department = excluded.department, active = excluded.active,
			hire_date = excluded.hire_date
	`
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, query,
		e.ID, e.Name, e.Email, e.Department, e.Active,
		e.HireDate.UTC().Format("2006-01-02"),
		createdAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save employee: %w", err)
	}
	return nil
}

func (s *Store) GetEmployee(ctx context.Context, id engine.EmployeeID) (*engine.Employee, error) {
	row := s.db.QueryRowContext(ctx, selectEmployee+` WHERE id = ?`, id)
	e, err := scanEmployee(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}
	return e, nil
}

func (s *Store) ListEmployees(ctx context.Context) ([]engine.Employee, error) {
	return s.queryEmployees(ctx, selectEmployee+` ORDER BY name`)
}

func (s *Store) ListActive(ctx context.Context) ([]engine.Employee, error) {
	return s.queryEmployees(ctx, selectEmployee+` WHERE active ORDER BY name`)
}

func (s *Store) ListByDepartment(ctx context.Context, department string) ([]engine.Employee, error) {
	return s.queryEmployees(ctx, selectEmployee+` WHERE department = ? ORDER BY name`, department)
}

const selectEmployee = `
	SELECT id, name, email, department, active, hire_date, created_at
	FROM employees
`

func (s *Store) queryEmployees(ctx context.Context, query string, args ...any) ([]engine.Employee, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	defer rows.Close()

	var out []engine.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func scanEmployee(row scanner) (*engine.Employee, error) {
	var e engine.Employee
	var email sql.NullString
	var hireDate, createdAt string
	if err := row.Scan(&e.ID, &e.Name, &email, &e.Department, &e.Active, &hireDate, &createdAt); err != nil {
		return nil, err
	}
	e.Email = email.String
	if d, err := engine.ParseDate(hireDate); err == nil {
		e.HireDate = d.Time
	}
	e.CreatedAt = parseTime(createdAt)
	return &e, nil
}

// =============================================================================
// HOLIDAY CALENDAR (engine.HolidayCalendar + admin CRUD)
// =============================================================================

func (s *Store) SaveHoliday(ctx context.Context, h engine.Holiday) error {
	query := `
		INSERT INTO holidays (id, date, name, created_at)
		VALUES (?, ?, ?, ?)
	`
	createdAt := h.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, query,
		h.ID, h.Date.String(), h.Name, createdAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save holiday: %w", err)
	}
	return nil
}

func (s *Store) DeleteHoliday(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM holidays WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete holiday: %w", err)
	}
	return nil
}

func (s *Store) ListHolidays(ctx context.Context, year int) ([]engine.Holiday, error) {
	query := `SELECT id, date, name, created_at FROM holidays`
	args := []any{}
	if year != 0 {
		query += ` WHERE date >= ? AND date <= ?`
		args = append(args, fmt.Sprintf("%04d-01-01", year), fmt.Sprintf("%04d-12-31", year))
	}
	query += ` ORDER BY date`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list holidays: %w", err)
	}
	defer rows.Close()

	var out []engine.Holiday
	for rows.Next() {
		var h engine.Holiday
		var date, createdAt string
		if err := rows.Scan(&h.ID, &date, &h.Name, &createdAt); err != nil {
			return nil, err
		}
		h.Date, _ = engine.ParseDate(date)
		h.CreatedAt = parseTime(createdAt)
		out = append(out, h)
	}
	return out, rows.Err()
}

// IsHoliday implements engine.HolidayCalendar against the holidays table.
func (s *Store) IsHoliday(date engine.Date) bool {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM holidays WHERE date = ?`, date.String()).Scan(&n)
	return err == nil && n > 0
}

// Holidays implements engine.HolidayCalendar.
func (s *Store) Holidays(year int) []engine.Holiday {
	holidays, err := s.ListHolidays(context.Background(), year)
	if err != nil {
		return nil
	}
	return holidays
}

// =============================================================================
// HELPERS
// =============================================================================

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s.String)
	if err != nil {
		return nil
	}
	return &t
}
