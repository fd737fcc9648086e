package leave

import (
	"strings"

	"github.com/warp/leave-engine/calendar"
)

// =============================================================================
// CONSTRAINT EVALUATORS
// =============================================================================

// LimitingFactor names the quota dimension that bound a decision.
type LimitingFactor string

const (
	FactorMonthlyAllowance LimitingFactor = "monthly_allowance"
	FactorAnnualCap        LimitingFactor = "annual_cap"
	FactorAnnualAllowance  LimitingFactor = "annual_allowance"
)

// Describe renders the factor for messages ("monthly allowance").
func (f LimitingFactor) Describe() string {
	return strings.ReplaceAll(string(f), "_", " ")
}

// Evaluation is everything a constraint may look at. Existing holds the
// employee's pending and approved requests for the candidate's start year;
// the candidate itself is never in it.
type Evaluation struct {
	Candidate     Candidate
	LeaveType     LeaveType
	RequestedDays int
	Existing      []LeaveRequest
	LeaveTypes    map[string]LeaveType

	// AnnualCap is the company-wide paid-leave cap, nil when not configured.
	AnnualCap *int

	Policy calendar.Policy
}

// Constraint is one independent quota dimension. Remaining returns false
// when the dimension does not apply, which is treated as unbounded.
type Constraint interface {
	Label() LimitingFactor
	Remaining(ev *Evaluation) (int, bool)
}

// MonthlyAllowance bounds days of the candidate's type within the calendar
// month of its start date. Requests spanning several months are evaluated
// against the start month only.
type MonthlyAllowance struct{}

func (MonthlyAllowance) Label() LimitingFactor { return FactorMonthlyAllowance }

func (MonthlyAllowance) Remaining(ev *Evaluation) (int, bool) {
	if ev.LeaveType.MonthlyAllowanceDays == nil {
		return 0, false
	}
	month := calendar.MonthOf(ev.Candidate.StartDate)
	used := DaysConsumedInWindow(Select(ev.Existing, OfType(ev.LeaveType.ID)), month, ev.Policy)
	return *ev.LeaveType.MonthlyAllowanceDays - used, true
}

// CompanyAnnualCap bounds paid days across all non-unpaid types within the
// calendar year of the candidate's start date. Unpaid types are exempt.
type CompanyAnnualCap struct{}

func (CompanyAnnualCap) Label() LimitingFactor { return FactorAnnualCap }

func (CompanyAnnualCap) Remaining(ev *Evaluation) (int, bool) {
	if ev.LeaveType.IsUnpaid || ev.AnnualCap == nil {
		return 0, false
	}
	year := calendar.YearOf(ev.Candidate.StartDate)
	used := DaysConsumedInWindow(Select(ev.Existing, PaidOnly(ev.LeaveTypes)), year, ev.Policy)
	return *ev.AnnualCap - used, true
}

// TypeAnnualAllowance bounds days of the candidate's own type per calendar
// year. When it binds, the excess is redirected to the fallback type.
type TypeAnnualAllowance struct{}

func (TypeAnnualAllowance) Label() LimitingFactor { return FactorAnnualAllowance }

func (TypeAnnualAllowance) Remaining(ev *Evaluation) (int, bool) {
	if ev.LeaveType.AnnualAllowanceDays == nil {
		return 0, false
	}
	year := calendar.YearOf(ev.Candidate.StartDate)
	used := DaysConsumedInWindow(Select(ev.Existing, OfType(ev.LeaveType.ID)), year, ev.Policy)
	return *ev.LeaveType.AnnualAllowanceDays - used, true
}

// DefaultConstraints returns the evaluation order. Ties between equal
// remaining figures go to the earlier entry.
func DefaultConstraints() []Constraint {
	return []Constraint{MonthlyAllowance{}, CompanyAnnualCap{}, TypeAnnualAllowance{}}
}

// Binding is the result of reducing a constraint list with min.
type Binding struct {
	Remaining int
	Label     LimitingFactor
	Bounded   bool
}

// Admits reports whether days fit under the binding constraint.
func (b Binding) Admits(days int) bool {
	return !b.Bounded || days <= b.Remaining
}

// Reduce returns the most restrictive applicable constraint.
func Reduce(ev *Evaluation, constraints []Constraint) Binding {
	var b Binding
	for _, c := range constraints {
		remaining, ok := c.Remaining(ev)
		if !ok {
			continue
		}
		if !b.Bounded || remaining < b.Remaining {
			b = Binding{Remaining: remaining, Label: c.Label(), Bounded: true}
		}
	}
	return b
}
