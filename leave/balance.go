package leave

import (
	"context"

	"github.com/warp/leave-engine/calendar"
)

// TypeBalance is one leave type's consumption for the current year and
// month. Remaining figures are nil for unlimited dimensions.
type TypeBalance struct {
	LeaveType        LeaveType `json:"leave_type"`
	TakenThisYear    int       `json:"taken_this_year"`
	TakenThisMonth   int       `json:"taken_this_month"`
	AnnualRemaining  *int      `json:"annual_remaining"`
	MonthlyRemaining *int      `json:"monthly_remaining"`
}

// CapBalance is the company-wide paid-leave cap usage.
type CapBalance struct {
	Total     *int `json:"total"`
	Used      int  `json:"used"`
	Remaining *int `json:"remaining"`
}

// BalanceSummary is what an employee sees before requesting leave.
type BalanceSummary struct {
	AsOf   calendar.Date `json:"as_of"`
	Types  []TypeBalance `json:"types"`
	Annual CapBalance    `json:"annual_cap"`
}

// Balance summarizes pending and approved consumption for the year and
// month containing today.
func (m *Manager) Balance(ctx context.Context, employeeID string) (*BalanceSummary, error) {
	today := calendar.Today(m.Evaluator.Clock)
	year, month := calendar.YearOf(today), calendar.MonthOf(today)

	types, err := m.Store.ListLeaveTypes(ctx)
	if err != nil {
		return nil, classify("list leave types", err)
	}
	byID := make(map[string]LeaveType, len(types))
	for _, t := range types {
		byID[t.ID] = t
	}
	existing, err := m.Store.ListActiveRequests(ctx, employeeID, year)
	if err != nil {
		return nil, classify("list active requests", err)
	}
	annualCap, err := loadAnnualCap(ctx, m.Store)
	if err != nil {
		return nil, err
	}

	policy := m.Policy()
	summary := &BalanceSummary{AsOf: today, Types: make([]TypeBalance, 0, len(types))}
	for _, lt := range types {
		own := Select(existing, OfType(lt.ID))
		tb := TypeBalance{
			LeaveType:      lt,
			TakenThisYear:  DaysConsumedInWindow(own, year, policy),
			TakenThisMonth: DaysConsumedInWindow(own, month, policy),
		}
		if lt.AnnualAllowanceDays != nil {
			tb.AnnualRemaining = intPtr(max(0, *lt.AnnualAllowanceDays-tb.TakenThisYear))
		}
		if lt.MonthlyAllowanceDays != nil {
			tb.MonthlyRemaining = intPtr(max(0, *lt.MonthlyAllowanceDays-tb.TakenThisMonth))
		}
		summary.Types = append(summary.Types, tb)
	}

	summary.Annual.Used = DaysConsumedInWindow(Select(existing, PaidOnly(byID)), year, policy)
	if annualCap != nil {
		summary.Annual.Total = annualCap
		summary.Annual.Remaining = intPtr(max(0, *annualCap-summary.Annual.Used))
	}
	return summary, nil
}
