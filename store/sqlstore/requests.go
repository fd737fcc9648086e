package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/warp/leave-engine/calendar"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// LEAVE TYPES AND RULES (read side)
// =============================================================================

const leaveTypeColumns = `id, name, is_unpaid, annual_allowance_days, monthly_allowance_days,
	max_days_per_request, allow_retroactive_application, fallback_leave_type_id`

func (r *repo) GetLeaveType(ctx context.Context, id string) (*leave.LeaveType, error) {
	row := r.queryRow(ctx, `SELECT `+leaveTypeColumns+` FROM leave_types WHERE id = ?`, id)
	lt, err := scanLeaveType(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &leave.NotFoundError{Entity: "leave type", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get leave type %s: %w", id, err)
	}
	return lt, nil
}

func (r *repo) ListLeaveTypes(ctx context.Context) ([]leave.LeaveType, error) {
	rows, err := r.query(ctx, `SELECT `+leaveTypeColumns+` FROM leave_types ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list leave types: %w", err)
	}
	defer rows.Close()

	var out []leave.LeaveType
	for rows.Next() {
		lt, err := scanLeaveType(rows)
		if err != nil {
			return nil, fmt.Errorf("scan leave type: %w", err)
		}
		out = append(out, *lt)
	}
	return out, rows.Err()
}

func (r *repo) GetCompanyRule(ctx context.Context, key string) (*leave.CompanyRule, error) {
	var rule leave.CompanyRule
	err := r.queryRow(ctx,
		`SELECT setting_key, setting_value, description FROM company_rules WHERE setting_key = ?`, key,
	).Scan(&rule.Key, &rule.Value, &rule.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get company rule %s: %w", key, err)
	}
	return &rule, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLeaveType(s scanner) (*leave.LeaveType, error) {
	var (
		lt                       leave.LeaveType
		annual, monthly, maxDays sql.NullInt64
		fallback                 sql.NullString
	)
	if err := s.Scan(&lt.ID, &lt.Name, &lt.IsUnpaid, &annual, &monthly, &maxDays, &lt.AllowRetroactive, &fallback); err != nil {
		return nil, err
	}
	lt.AnnualAllowanceDays = intFromNull(annual)
	lt.MonthlyAllowanceDays = intFromNull(monthly)
	lt.MaxDaysPerRequest = intFromNull(maxDays)
	lt.FallbackLeaveTypeID = stringFromNull(fallback)
	return &lt, nil
}

// =============================================================================
// LEAVE REQUESTS
// =============================================================================

const requestColumns = `id, employee_id, leave_type_id, start_date, end_date, days, reason, status,
	manager_comments, batch_id, source_request_id, portion, created_at, updated_at`

func (r *repo) GetRequest(ctx context.Context, id string) (*leave.LeaveRequest, error) {
	row := r.queryRow(ctx, `SELECT `+requestColumns+` FROM leave_requests WHERE id = ?`, id)
	req, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &leave.NotFoundError{Entity: "leave request", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get leave request %s: %w", id, err)
	}
	return req, nil
}

func (r *repo) HasPendingRequest(ctx context.Context, employeeID string) (bool, error) {
	var n int
	err := r.queryRow(ctx,
		`SELECT COUNT(*) FROM leave_requests WHERE employee_id = ? AND status = ?`,
		employeeID, string(leave.StatusPending),
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check pending requests: %w", err)
	}
	return n > 0, nil
}

func (r *repo) ListActiveRequests(ctx context.Context, employeeID string, window calendar.Window) ([]leave.LeaveRequest, error) {
	rows, err := r.query(ctx, `
		SELECT `+requestColumns+`
		FROM leave_requests
		WHERE employee_id = ? AND status IN (?, ?) AND start_date <= ? AND end_date >= ?
		ORDER BY start_date, id`,
		employeeID, string(leave.StatusPending), string(leave.StatusApproved),
		window.End.ISO(), window.Start.ISO(),
	)
	if err != nil {
		return nil, fmt.Errorf("list active requests: %w", err)
	}
	return collectRequests(rows)
}

func (r *repo) ListRequests(ctx context.Context, filter leave.ListFilter) ([]leave.LeaveRequest, int, error) {
	var (
		conds []string
		args  []any
	)
	if filter.EmployeeID != "" {
		conds = append(conds, "employee_id = ?")
		args = append(args, filter.EmployeeID)
	}
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.LeaveTypeID != "" {
		conds = append(conds, "leave_type_id = ?")
		args = append(args, filter.LeaveTypeID)
	}
	if filter.Window != nil {
		conds = append(conds, "start_date <= ? AND end_date >= ?")
		args = append(args, filter.Window.End.ISO(), filter.Window.Start.ISO())
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.queryRow(ctx, `SELECT COUNT(*) FROM leave_requests`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count leave requests: %w", err)
	}

	query := `SELECT ` + requestColumns + ` FROM leave_requests` + where +
		` ORDER BY created_at DESC, start_date, id`
	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset())
	}
	rows, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list leave requests: %w", err)
	}
	reqs, err := collectRequests(rows)
	if err != nil {
		return nil, 0, err
	}
	return reqs, total, nil
}

// CreateRequests inserts every row inside the caller's transaction, or in a
// transaction of its own when called on the pool.
func (r *repo) CreateRequests(ctx context.Context, reqs []leave.LeaveRequest) error {
	if len(reqs) == 0 {
		return nil
	}
	return r.atomic(ctx, func(r *repo) error {
		return r.insertRequests(ctx, reqs)
	})
}

func (r *repo) insertRequests(ctx context.Context, reqs []leave.LeaveRequest) error {
	for _, req := range reqs {
		_, err := r.exec(ctx, `
			INSERT INTO leave_requests (`+requestColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			req.ID, req.EmployeeID, req.LeaveTypeID, req.StartDate.ISO(), req.EndDate.ISO(),
			req.Days, req.Reason, string(req.Status), nullString(req.ManagerComments),
			nullString(req.BatchID), nullString(req.SourceRequestID), string(req.Portion),
			formatTime(req.CreatedAt), formatTime(req.UpdatedAt),
		)
		if err != nil {
			if name, ok := uniqueViolation(err); ok && isPendingIndex(name) {
				return leave.ErrDuplicatePending
			}
			return fmt.Errorf("insert leave request %s: %w", req.ID, err)
		}
	}
	return nil
}

func (r *repo) UpdateRequest(ctx context.Context, req leave.LeaveRequest) error {
	res, err := r.exec(ctx, `
		UPDATE leave_requests
		SET leave_type_id = ?, start_date = ?, end_date = ?, days = ?, reason = ?, status = ?,
			manager_comments = ?, batch_id = ?, source_request_id = ?, portion = ?, updated_at = ?
		WHERE id = ?`,
		req.LeaveTypeID, req.StartDate.ISO(), req.EndDate.ISO(), req.Days, req.Reason,
		string(req.Status), nullString(req.ManagerComments), nullString(req.BatchID),
		nullString(req.SourceRequestID), string(req.Portion), formatTime(req.UpdatedAt),
		req.ID,
	)
	if err != nil {
		return fmt.Errorf("update leave request %s: %w", req.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return &leave.NotFoundError{Entity: "leave request", ID: req.ID}
	}
	return nil
}

// isPendingIndex matches the one-pending index by constraint name
// (PostgreSQL) or by the indexed column (SQLite message).
func isPendingIndex(name string) bool {
	return strings.Contains(name, "idx_leave_requests_one_pending") ||
		strings.Contains(name, "leave_requests.employee_id")
}

func collectRequests(rows *sql.Rows) ([]leave.LeaveRequest, error) {
	defer rows.Close()
	var out []leave.LeaveRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan leave request: %w", err)
		}
		out = append(out, *req)
	}
	return out, rows.Err()
}

func scanRequest(s scanner) (*leave.LeaveRequest, error) {
	var (
		req                         leave.LeaveRequest
		start, end, status, portion string
		created, updated            string
		comments, batch, source     sql.NullString
	)
	err := s.Scan(&req.ID, &req.EmployeeID, &req.LeaveTypeID, &start, &end, &req.Days, &req.Reason,
		&status, &comments, &batch, &source, &portion, &created, &updated)
	if err != nil {
		return nil, err
	}

	if req.StartDate, err = calendar.ParseISO(start); err != nil {
		return nil, err
	}
	if req.EndDate, err = calendar.ParseISO(end); err != nil {
		return nil, err
	}
	if req.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if req.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	req.Status = leave.Status(status)
	req.Portion = leave.Portion(portion)
	req.ManagerComments = stringFromNull(comments)
	req.BatchID = stringFromNull(batch)
	req.SourceRequestID = stringFromNull(source)
	return &req, nil
}

// Timestamps are stored as fixed-width UTC text so they sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Parse(time.RFC3339Nano, s)
	}
	return t, nil
}
