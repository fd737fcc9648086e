package sqlstore

import (
	"context"
	"fmt"

	"github.com/warp/leave-engine/calendar"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// leave.ConfigStore
// =============================================================================

func (r *repo) SaveLeaveType(ctx context.Context, lt leave.LeaveType) error {
	_, err := r.exec(ctx, `
		INSERT INTO leave_types (`+leaveTypeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			is_unpaid = excluded.is_unpaid,
			annual_allowance_days = excluded.annual_allowance_days,
			monthly_allowance_days = excluded.monthly_allowance_days,
			max_days_per_request = excluded.max_days_per_request,
			allow_retroactive_application = excluded.allow_retroactive_application,
			fallback_leave_type_id = excluded.fallback_leave_type_id`,
		lt.ID, lt.Name, lt.IsUnpaid, nullInt(lt.AnnualAllowanceDays), nullInt(lt.MonthlyAllowanceDays),
		nullInt(lt.MaxDaysPerRequest), lt.AllowRetroactive, nullString(lt.FallbackLeaveTypeID),
	)
	if err != nil {
		return fmt.Errorf("save leave type %s: %w", lt.ID, err)
	}
	return nil
}

func (r *repo) DeleteLeaveType(ctx context.Context, id string) error {
	res, err := r.exec(ctx, `DELETE FROM leave_types WHERE id = ?`, id)
	if foreignKeyViolation(err) {
		return leave.LeaveTypeInUse(id)
	}
	if err != nil {
		return fmt.Errorf("delete leave type %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return &leave.NotFoundError{Entity: "leave type", ID: id}
	}
	return nil
}

func (r *repo) ListCompanyRules(ctx context.Context) ([]leave.CompanyRule, error) {
	rows, err := r.query(ctx, `SELECT setting_key, setting_value, description FROM company_rules ORDER BY setting_key`)
	if err != nil {
		return nil, fmt.Errorf("list company rules: %w", err)
	}
	defer rows.Close()

	var out []leave.CompanyRule
	for rows.Next() {
		var rule leave.CompanyRule
		if err := rows.Scan(&rule.Key, &rule.Value, &rule.Description); err != nil {
			return nil, fmt.Errorf("scan company rule: %w", err)
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}

func (r *repo) SaveCompanyRule(ctx context.Context, rule leave.CompanyRule) error {
	_, err := r.exec(ctx, `
		INSERT INTO company_rules (setting_key, setting_value, description)
		VALUES (?, ?, ?)
		ON CONFLICT (setting_key) DO UPDATE SET
			setting_value = excluded.setting_value,
			description = excluded.description`,
		rule.Key, rule.Value, rule.Description,
	)
	if err != nil {
		return fmt.Errorf("save company rule %s: %w", rule.Key, err)
	}
	return nil
}

// =============================================================================
// HOLIDAYS
// =============================================================================

func (r *repo) ListHolidays(ctx context.Context, window *calendar.Window) ([]calendar.Holiday, error) {
	query := `SELECT id, date, name FROM public_holidays`
	var args []any
	if window != nil {
		query += ` WHERE date >= ? AND date <= ?`
		args = append(args, window.Start.ISO(), window.End.ISO())
	}
	query += ` ORDER BY date`

	rows, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list holidays: %w", err)
	}
	defer rows.Close()

	var out []calendar.Holiday
	for rows.Next() {
		var (
			h    calendar.Holiday
			date string
		)
		if err := rows.Scan(&h.ID, &date, &h.Name); err != nil {
			return nil, fmt.Errorf("scan holiday: %w", err)
		}
		if h.Date, err = calendar.ParseISO(date); err != nil {
			return nil, fmt.Errorf("scan holiday %s: %w", h.ID, err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// SaveHoliday upserts h. Another holiday on the same date is replaced in
// the same transaction.
func (r *repo) SaveHoliday(ctx context.Context, h calendar.Holiday) error {
	return r.atomic(ctx, func(r *repo) error {
		if _, err := r.exec(ctx, `DELETE FROM public_holidays WHERE date = ? AND id <> ?`, h.Date.ISO(), h.ID); err != nil {
			return fmt.Errorf("save holiday %s: %w", h.ID, err)
		}
		_, err := r.exec(ctx, `
			INSERT INTO public_holidays (id, date, name)
			VALUES (?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET date = excluded.date, name = excluded.name`,
			h.ID, h.Date.ISO(), h.Name,
		)
		if err != nil {
			return fmt.Errorf("save holiday %s: %w", h.ID, err)
		}
		return nil
	})
}

func (r *repo) DeleteHoliday(ctx context.Context, id string) error {
	res, err := r.exec(ctx, `DELETE FROM public_holidays WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete holiday %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return &leave.NotFoundError{Entity: "holiday", ID: id}
	}
	return nil
}

// Reset deletes all rows, children first.
func (r *repo) Reset(ctx context.Context) error {
	for _, stmt := range []string{
		`DELETE FROM leave_requests`,
		`DELETE FROM public_holidays`,
		`DELETE FROM company_rules`,
		`UPDATE leave_types SET fallback_leave_type_id = NULL`,
		`DELETE FROM leave_types`,
	} {
		if _, err := r.exec(ctx, stmt); err != nil {
			return fmt.Errorf("reset: %w", err)
		}
	}
	return nil
}
