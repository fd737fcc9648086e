package leave

import (
	"context"
	"fmt"

	"github.com/warp/leave-engine/calendar"
)

// =============================================================================
// QUOTA POLICY EVALUATOR
// =============================================================================

// Evaluator decides whether a candidate request fits. It never writes.
type Evaluator struct {
	Policy      calendar.Policy
	Clock       calendar.Clock
	Constraints []Constraint
}

// NewEvaluator uses DefaultConstraints. A nil clock reads the wall clock.
func NewEvaluator(policy calendar.Policy, clock calendar.Clock) *Evaluator {
	if clock == nil {
		clock = calendar.SystemClock{}
	}
	return &Evaluator{Policy: policy, Clock: clock, Constraints: DefaultConstraints()}
}

// Evaluate runs the admission checks in order and then reduces the quota
// constraints. Hard rejections are returned as errors; a candidate that
// exceeds its balance yields a split proposal.
//
// Order:
//  1. required fields and date ordering
//  2. leave type exists
//  3. max_days_per_request
//  4. no other pending request for the employee
//  5. retroactive start date
//  6. min over constraints (monthly, company cap, per-type annual)
func (e *Evaluator) Evaluate(ctx context.Context, s Store, employeeID string, c Candidate) (*Decision, error) {
	if employeeID == "" {
		return nil, validationf("employee_id", "is required")
	}
	if c.LeaveTypeID == "" || c.StartDate.IsZero() || c.EndDate.IsZero() {
		return nil, &ValidationError{Message: "Missing required fields for validation."}
	}
	if c.StartDate.After(c.EndDate) {
		return nil, &ValidationError{Field: "start_date", Message: "Start date cannot be after end date."}
	}

	lt, err := s.GetLeaveType(ctx, c.LeaveTypeID)
	if err != nil {
		return nil, classify("load leave type", err)
	}

	requested := e.Policy.DayCount(c.StartDate, c.EndDate)
	if requested == 0 {
		return nil, &ValidationError{Message: "The selected range contains no countable leave days."}
	}

	if err := maxDaysCheck(*lt, requested); err != nil {
		return nil, err
	}

	pending, err := s.HasPendingRequest(ctx, employeeID)
	if err != nil {
		return nil, classify("check pending requests", err)
	}
	if pending {
		return nil, pendingExists()
	}

	if err := retroactiveCheck(*lt, c.StartDate, calendar.Today(e.Clock)); err != nil {
		return nil, err
	}

	ev, err := e.prepare(ctx, s, employeeID, c, *lt, requested)
	if err != nil {
		return nil, err
	}
	return e.decide(ev)
}

func maxDaysCheck(lt LeaveType, requested int) error {
	if lt.MaxDaysPerRequest != nil && requested > *lt.MaxDaysPerRequest {
		return &PolicyViolationError{
			Code: CodeMaxDaysExceeded,
			Message: fmt.Sprintf("Request for %d days failed. You cannot request more than %d days for this leave type at once.",
				requested, *lt.MaxDaysPerRequest),
		}
	}
	return nil
}

func retroactiveCheck(lt LeaveType, start, today calendar.Date) error {
	if !lt.AllowRetroactive && start.Before(today) {
		return &PolicyViolationError{
			Code:    CodeRetroactiveNotAllowed,
			Message: "Start date cannot be before today.",
		}
	}
	return nil
}

// prepare loads everything the constraints read.
func (e *Evaluator) prepare(ctx context.Context, s Store, employeeID string, c Candidate, lt LeaveType, requested int) (*Evaluation, error) {
	types, err := s.ListLeaveTypes(ctx)
	if err != nil {
		return nil, classify("list leave types", err)
	}
	byID := make(map[string]LeaveType, len(types))
	for _, t := range types {
		byID[t.ID] = t
	}
	byID[lt.ID] = lt

	existing, err := s.ListActiveRequests(ctx, employeeID, calendar.YearOf(c.StartDate))
	if err != nil {
		return nil, classify("list active requests", err)
	}

	annualCap, err := loadAnnualCap(ctx, s)
	if err != nil {
		return nil, err
	}

	return &Evaluation{
		Candidate:     c,
		LeaveType:     lt,
		RequestedDays: requested,
		Existing:      existing,
		LeaveTypes:    byID,
		AnnualCap:     annualCap,
		Policy:        e.Policy,
	}, nil
}

func (e *Evaluator) decide(ev *Evaluation) (*Decision, error) {
	b := Reduce(ev, e.Constraints)
	if b.Admits(ev.RequestedDays) {
		d := &Decision{Status: DecisionOK, RequestedDays: ev.RequestedDays}
		if b.Bounded {
			d.AvailableDays = intPtr(b.Remaining)
		}
		return d, nil
	}

	secondary := ev.LeaveType
	if b.Label == FactorAnnualAllowance {
		fallback, ok := resolveFallback(ev)
		if !ok {
			remaining := max(0, b.Remaining)
			return nil, &PolicyViolationError{
				Code: CodeAllowanceExhausted,
				Message: fmt.Sprintf("You only have %d days remaining for %s and no alternative is available.",
					remaining, ev.LeaveType.Name),
				Remaining: intPtr(remaining),
			}
		}
		secondary = fallback
	}

	return Propose(SplitInput{
		Start:         ev.Candidate.StartDate,
		End:           ev.Candidate.EndDate,
		RequestedDays: ev.RequestedDays,
		Available:     b.Remaining,
		Primary:       ev.LeaveType,
		Secondary:     secondary,
		Factor:        b.Label,
		Policy:        ev.Policy,
	}), nil
}

// resolveFallback follows the fallback link exactly one hop.
func resolveFallback(ev *Evaluation) (LeaveType, bool) {
	id := ev.LeaveType.FallbackLeaveTypeID
	if id == nil || *id == ev.LeaveType.ID {
		return LeaveType{}, false
	}
	fb, ok := ev.LeaveTypes[*id]
	return fb, ok
}

func loadAnnualCap(ctx context.Context, s Store) (*int, error) {
	rule, err := s.GetCompanyRule(ctx, RuleTotalAnnualLeaveCap)
	if err != nil {
		return nil, classify("load company rule", err)
	}
	if rule == nil {
		return nil, nil
	}
	days, err := rule.WholeDays()
	if err != nil {
		return nil, &PersistenceError{Op: "parse company rule", Err: err}
	}
	return &days, nil
}
