package leave_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/calendar"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// SCENARIOS
// =============================================================================

func TestValidate_ScenarioA_FitsEveryConstraint(t *testing.T) {
	// GIVEN: No prior leave, cap 20, monthly allowance 5
	f := newFixture(t)

	// WHEN: Requesting 3 days within the month
	dec, err := f.validate("emp-1", "annual", "2025-03-10", "2025-03-12")

	// THEN: The request is valid without a split
	require.NoError(t, err)
	assert.Equal(t, leave.DecisionOK, dec.Status)
	assert.Equal(t, 3, dec.RequestedDays)
	assert.Nil(t, dec.Proposal)
}

func TestValidate_ScenarioB_MonthlyAllowanceSplit(t *testing.T) {
	// GIVEN: 4 days of annual leave already approved this month
	f := newFixture(t)
	f.seed("prior", "emp-1", "annual", "2025-03-03", "2025-03-06", leave.StatusApproved)

	// WHEN: Requesting 3 more days (7 > 5)
	dec, err := f.validate("emp-1", "annual", "2025-03-10", "2025-03-12")

	// THEN: 1 day fits, 2 days are the remainder
	require.NoError(t, err)
	require.Equal(t, leave.DecisionSplitProposal, dec.Status)
	assert.Equal(t, leave.FactorMonthlyAllowance, dec.LimitingFactor)
	require.NotNil(t, dec.Proposal.Primary)
	assert.Equal(t, 1, dec.Proposal.Primary.Days)
	assert.Equal(t, d("2025-03-10"), dec.Proposal.Primary.StartDate)
	assert.Equal(t, d("2025-03-10"), dec.Proposal.Primary.EndDate)
	assert.Equal(t, 2, dec.Proposal.Secondary.Days)
	assert.Equal(t, d("2025-03-11"), dec.Proposal.Secondary.StartDate)
	assert.Equal(t, d("2025-03-12"), dec.Proposal.Secondary.EndDate)
	assert.Equal(t, "annual", dec.Proposal.Secondary.LeaveTypeID)
	assert.Equal(t,
		"Your request for 3 days exceeds your available balance of 1 days (based on your monthly allowance) for Annual Leave.",
		dec.Message)
}

func TestValidate_ScenarioC_PendingRequestBlocks(t *testing.T) {
	// GIVEN: A pending request of another type
	f := newFixture(t)
	f.seed("pending", "emp-1", "unpaid", "2025-05-01", "2025-05-02", leave.StatusPending)

	// WHEN: Validating anything, even a request that fits easily
	_, err := f.validate("emp-1", "annual", "2025-03-10", "2025-03-10")

	// THEN: Policy violation regardless of quota
	require.Error(t, err)
	assert.True(t, errors.Is(err, leave.ErrPolicyViolation))
	var pv *leave.PolicyViolationError
	require.True(t, errors.As(err, &pv))
	assert.Equal(t, leave.CodePendingRequestExists, pv.Code)
}

func TestValidate_ScenarioE_UnpaidSkipsCompanyCap(t *testing.T) {
	// GIVEN: A cap of zero that would block any paid leave
	f := newFixture(t)
	f.setCap("0")

	// WHEN: Requesting unpaid leave
	dec, err := f.validate("emp-1", "unpaid", "2025-03-10", "2025-03-24")

	// THEN: The cap is not consulted
	require.NoError(t, err)
	assert.Equal(t, leave.DecisionOK, dec.Status)
	assert.Nil(t, dec.AvailableDays)

	// AND: The same range on a paid type is bounded by the cap
	dec, err = f.validate("emp-1", "annual", "2025-03-10", "2025-03-11")
	require.NoError(t, err)
	assert.Equal(t, leave.FactorAnnualCap, dec.LimitingFactor)
	assert.Nil(t, dec.Proposal.Primary)
	assert.Equal(t, 2, dec.Proposal.Secondary.Days)
}

// =============================================================================
// ADMISSION CHECKS
// =============================================================================

func TestValidate_MaxDaysPerRequest(t *testing.T) {
	f := newFixture(t)
	capped := leave.LeaveType{ID: "short", Name: "Short Leave", MaxDaysPerRequest: ptr(2)}
	require.NoError(t, f.store.SaveLeaveType(f.ctx, capped))

	_, err := f.validate("emp-1", "short", "2025-03-10", "2025-03-12")

	var pv *leave.PolicyViolationError
	require.True(t, errors.As(err, &pv))
	assert.Equal(t, leave.CodeMaxDaysExceeded, pv.Code)
}

func TestValidate_MaxDaysCheckedBeforePendingGate(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.SaveLeaveType(f.ctx, leave.LeaveType{ID: "short", Name: "Short", MaxDaysPerRequest: ptr(1)}))
	f.seed("pending", "emp-1", "annual", "2025-05-01", "2025-05-01", leave.StatusPending)

	_, err := f.validate("emp-1", "short", "2025-03-10", "2025-03-12")

	var pv *leave.PolicyViolationError
	require.True(t, errors.As(err, &pv))
	assert.Equal(t, leave.CodeMaxDaysExceeded, pv.Code)
}

func TestValidate_Retroactive(t *testing.T) {
	f := newFixture(t)

	// Start before the fixed "today" of 2025-03-01
	_, err := f.validate("emp-1", "annual", "2025-02-27", "2025-03-02")
	var pv *leave.PolicyViolationError
	require.True(t, errors.As(err, &pv))
	assert.Equal(t, leave.CodeRetroactiveNotAllowed, pv.Code)

	// Types that allow retroactive application accept it
	require.NoError(t, f.store.SaveLeaveType(f.ctx, leave.LeaveType{ID: "medical", Name: "Medical", AllowRetroactive: true}))
	dec, err := f.validate("emp-1", "medical", "2025-02-27", "2025-03-02")
	require.NoError(t, err)
	assert.Equal(t, leave.DecisionOK, dec.Status)

	// Today itself is not in the past
	dec, err = f.validate("emp-1", "annual", "2025-03-01", "2025-03-01")
	require.NoError(t, err)
	assert.Equal(t, leave.DecisionOK, dec.Status)
}

func TestValidate_InputErrors(t *testing.T) {
	f := newFixture(t)

	_, err := f.validate("emp-1", "annual", "2025-03-12", "2025-03-10")
	assert.True(t, errors.Is(err, leave.ErrValidation))

	_, err = f.manager.Validate(f.ctx, "emp-1", leave.Candidate{LeaveTypeID: "annual"})
	assert.True(t, errors.Is(err, leave.ErrValidation))

	_, err = f.validate("emp-1", "no-such-type", "2025-03-10", "2025-03-10")
	assert.True(t, leave.IsNotFound(err))
}

func TestValidate_WorkingDayRangeWithNoCountableDays(t *testing.T) {
	f := newFixture(t)
	f.manager.Evaluator.Policy = calendar.WorkingDays(time.Sunday, nil)

	// 2025-03-09 is a Sunday
	_, err := f.validate("emp-1", "annual", "2025-03-09", "2025-03-09")
	assert.True(t, errors.Is(err, leave.ErrValidation))
}

// =============================================================================
// CONSTRAINT REDUCTION
// =============================================================================

func TestValidate_AnnualCapBinds(t *testing.T) {
	// GIVEN: Cap 10 with 8 paid days already used in January across types
	f := newFixture(t)
	f.setCap("10")
	f.seed("jan-1", "emp-1", "sick", "2025-01-06", "2025-01-07", leave.StatusApproved)
	f.seed("jan-2", "emp-1", "annual", "2025-01-13", "2025-01-18", leave.StatusApproved)
	// Unpaid leave does not count toward the cap
	f.seed("jan-3", "emp-1", "unpaid", "2025-01-20", "2025-01-31", leave.StatusApproved)

	// WHEN: Requesting 4 annual days in March (monthly remaining 5)
	dec, err := f.validate("emp-1", "annual", "2025-03-10", "2025-03-13")

	// THEN: Cap leaves 2 days
	require.NoError(t, err)
	assert.Equal(t, leave.FactorAnnualCap, dec.LimitingFactor)
	assert.Equal(t, 2, dec.Proposal.Primary.Days)
	assert.Equal(t, 2, dec.Proposal.Secondary.Days)
}

func TestValidate_PreviousYearDoesNotCount(t *testing.T) {
	f := newFixture(t)
	f.setCap("5")
	f.seed("old", "emp-1", "annual", "2024-12-20", "2024-12-31", leave.StatusApproved)

	dec, err := f.validate("emp-1", "annual", "2025-03-10", "2025-03-14")
	require.NoError(t, err)
	assert.Equal(t, leave.DecisionOK, dec.Status)
}

func TestValidate_TiePrefersMonthly(t *testing.T) {
	// GIVEN: Monthly remaining 5 and cap remaining 5
	f := newFixture(t)
	f.setCap("5")

	// WHEN: Requesting 6 days
	dec, err := f.validate("emp-1", "annual", "2025-03-10", "2025-03-15")

	// THEN: The monthly allowance is reported as binding
	require.NoError(t, err)
	assert.Equal(t, leave.FactorMonthlyAllowance, dec.LimitingFactor)
	assert.Equal(t, 5, dec.Proposal.Primary.Days)
}

func TestValidate_AnnualAllowanceRedirectsToFallback(t *testing.T) {
	// GIVEN: Sick leave allows 3 days a year, 2 already taken, fallback is unpaid
	f := newFixture(t)
	f.seed("jan", "emp-1", "sick", "2025-01-06", "2025-01-07", leave.StatusApproved)

	// WHEN: Requesting 4 sick days
	dec, err := f.validate("emp-1", "sick", "2025-03-10", "2025-03-13")

	// THEN: 1 sick day, 3 days redirected to unpaid leave
	require.NoError(t, err)
	assert.Equal(t, leave.FactorAnnualAllowance, dec.LimitingFactor)
	require.NotNil(t, dec.Proposal.Primary)
	assert.Equal(t, "sick", dec.Proposal.Primary.LeaveTypeID)
	assert.Equal(t, 1, dec.Proposal.Primary.Days)
	assert.Equal(t, "unpaid", dec.Proposal.Secondary.LeaveTypeID)
	assert.Equal(t, "Unpaid Leave", dec.Proposal.Secondary.LeaveTypeName)
	assert.Equal(t, 3, dec.Proposal.Secondary.Days)
	assert.Equal(t, d("2025-03-11"), dec.Proposal.Secondary.StartDate)
}

func TestValidate_AnnualAllowanceWithoutFallbackRejects(t *testing.T) {
	// GIVEN: Study leave allows 3 days, 2 already taken, no fallback
	f := newFixture(t)
	f.seed("jan", "emp-1", "study", "2025-01-06", "2025-01-07", leave.StatusApproved)

	// WHEN: Requesting 2 more
	_, err := f.validate("emp-1", "study", "2025-03-10", "2025-03-11")

	// THEN: Hard rejection carrying the remaining figure
	var pv *leave.PolicyViolationError
	require.True(t, errors.As(err, &pv))
	assert.Equal(t, leave.CodeAllowanceExhausted, pv.Code)
	require.NotNil(t, pv.Remaining)
	assert.Equal(t, 1, *pv.Remaining)
	assert.Nil(t, pv.Decision)
}

func TestValidate_MissingCapRuleIsUnbounded(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Reset(f.ctx))
	require.NoError(t, f.store.SaveLeaveType(f.ctx, leave.LeaveType{ID: "annual", Name: "Annual Leave"}))

	dec, err := f.validate("emp-1", "annual", "2025-03-01", "2025-06-30")
	require.NoError(t, err)
	assert.Equal(t, leave.DecisionOK, dec.Status)
	assert.Nil(t, dec.AvailableDays)
}

func TestReduce_Monotonic(t *testing.T) {
	// Raising the monthly allowance or the cap never lowers availability
	existing := []leave.LeaveRequest{
		{ID: "a", LeaveTypeID: "annual", StartDate: d("2025-03-03"), EndDate: d("2025-03-04"), Status: leave.StatusApproved},
		{ID: "b", LeaveTypeID: "annual", StartDate: d("2025-01-10"), EndDate: d("2025-01-14"), Status: leave.StatusApproved},
	}
	eval := func(monthly, annualCap int) leave.Binding {
		lt := leave.LeaveType{ID: "annual", Name: "Annual", MonthlyAllowanceDays: ptr(monthly)}
		return leave.Reduce(&leave.Evaluation{
			Candidate:     leave.Candidate{LeaveTypeID: "annual", StartDate: d("2025-03-10"), EndDate: d("2025-03-12")},
			LeaveType:     lt,
			RequestedDays: 3,
			Existing:      existing,
			LeaveTypes:    map[string]leave.LeaveType{"annual": lt},
			AnnualCap:     ptr(annualCap),
			Policy:        calendar.CalendarDays(),
		}, leave.DefaultConstraints())
	}

	for c := 0; c <= 30; c++ {
		prev := eval(0, c).Remaining
		for m := 1; m <= 30; m++ {
			cur := eval(m, c).Remaining
			require.GreaterOrEqual(t, cur, prev, "monthly=%d cap=%d", m, c)
			require.GreaterOrEqual(t, eval(m, c+1).Remaining, cur, "monthly=%d cap=%d", m, c)
			prev = cur
		}
	}
}

func TestReduce_NoApplicableConstraint(t *testing.T) {
	b := leave.Reduce(&leave.Evaluation{LeaveType: leave.LeaveType{ID: "x", IsUnpaid: true}}, leave.DefaultConstraints())
	assert.False(t, b.Bounded)
	assert.True(t, b.Admits(1000))
}
