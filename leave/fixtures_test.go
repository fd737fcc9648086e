package leave_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/calendar"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/memory"
	"go.uber.org/zap"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var today = calendar.MustParseISO("2025-03-01")

func d(s string) calendar.Date { return calendar.MustParseISO(s) }

func ptr[T any](v T) *T { return &v }

func seqIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

var (
	annualLeave = leave.LeaveType{ID: "annual", Name: "Annual Leave", MonthlyAllowanceDays: ptr(5)}
	unpaidLeave = leave.LeaveType{ID: "unpaid", Name: "Unpaid Leave", IsUnpaid: true}
	sickLeave   = leave.LeaveType{ID: "sick", Name: "Sick Leave", AnnualAllowanceDays: ptr(3), FallbackLeaveTypeID: ptr("unpaid")}
	studyLeave  = leave.LeaveType{ID: "study", Name: "Study Leave", AnnualAllowanceDays: ptr(3)}
)

type fixture struct {
	t       *testing.T
	ctx     context.Context
	store   *memory.Memory
	manager *leave.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	m := leave.NewManager(store, calendar.CalendarDays(), calendar.FixedAt(today), zap.NewNop())
	m.NewID = seqIDs("req")

	f := &fixture{t: t, ctx: context.Background(), store: store, manager: m}
	for _, lt := range []leave.LeaveType{annualLeave, unpaidLeave, sickLeave, studyLeave} {
		require.NoError(t, store.SaveLeaveType(f.ctx, lt))
	}
	f.setCap("20")
	return f
}

func (f *fixture) setCap(v string) {
	f.t.Helper()
	require.NoError(f.t, f.store.SaveCompanyRule(f.ctx, leave.CompanyRule{Key: leave.RuleTotalAnnualLeaveCap, Value: v}))
}

func (f *fixture) seed(id, employee, leaveType, start, end string, status leave.Status) leave.LeaveRequest {
	f.t.Helper()
	r := leave.LeaveRequest{
		ID:          id,
		EmployeeID:  employee,
		LeaveTypeID: leaveType,
		StartDate:   d(start),
		EndDate:     d(end),
		Days:        calendar.CalendarDays().DayCount(d(start), d(end)),
		Status:      status,
	}
	require.NoError(f.t, f.store.CreateRequests(f.ctx, []leave.LeaveRequest{r}))
	return r
}

func (f *fixture) validate(employee, leaveType, start, end string) (*leave.Decision, error) {
	return f.manager.Validate(f.ctx, employee, leave.Candidate{
		LeaveTypeID: leaveType,
		StartDate:   d(start),
		EndDate:     d(end),
	})
}

func (f *fixture) all(employee string) []leave.LeaveRequest {
	f.t.Helper()
	reqs, _, err := f.store.ListRequests(f.ctx, leave.ListFilter{EmployeeID: employee})
	require.NoError(f.t, err)
	return reqs
}
