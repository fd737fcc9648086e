package sqlstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/calendar"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/sqlstore"
	"go.uber.org/zap"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func ptr[T any](v T) *T { return &v }

func d(s string) calendar.Date { return calendar.MustParseISO(s) }

func newStore(t *testing.T) *sqlstore.Store {
	t.Helper()
	store, err := sqlstore.NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	for _, lt := range []leave.LeaveType{
		{ID: "annual", Name: "Annual Leave", MonthlyAllowanceDays: ptr(5)},
		{ID: "unpaid", Name: "Unpaid Leave", IsUnpaid: true},
		{ID: "sick", Name: "Sick Leave", AnnualAllowanceDays: ptr(3), FallbackLeaveTypeID: ptr("unpaid")},
	} {
		require.NoError(t, store.SaveLeaveType(ctx, lt))
	}
	require.NoError(t, store.SaveCompanyRule(ctx, leave.CompanyRule{Key: leave.RuleTotalAnnualLeaveCap, Value: "20"}))
	return store
}

func request(id, employee, leaveType, start, end string, status leave.Status) leave.LeaveRequest {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	return leave.LeaveRequest{
		ID:          id,
		EmployeeID:  employee,
		LeaveTypeID: leaveType,
		StartDate:   d(start),
		EndDate:     d(end),
		Days:        calendar.CalendarDays().DayCount(d(start), d(end)),
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// =============================================================================
// LEAVE TYPES AND RULES
// =============================================================================

func TestLeaveTypes_RoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	sick, err := store.GetLeaveType(ctx, "sick")
	require.NoError(t, err)
	assert.Equal(t, "Sick Leave", sick.Name)
	require.NotNil(t, sick.AnnualAllowanceDays)
	assert.Equal(t, 3, *sick.AnnualAllowanceDays)
	assert.Nil(t, sick.MonthlyAllowanceDays)
	require.NotNil(t, sick.FallbackLeaveTypeID)
	assert.Equal(t, "unpaid", *sick.FallbackLeaveTypeID)

	unpaid, err := store.GetLeaveType(ctx, "unpaid")
	require.NoError(t, err)
	assert.True(t, unpaid.IsUnpaid)

	all, err := store.ListLeaveTypes(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Annual Leave", all[0].Name, "sorted by name")
}

func TestLeaveTypes_MissingIsNotFound(t *testing.T) {
	store := newStore(t)

	_, err := store.GetLeaveType(context.Background(), "nope")
	assert.True(t, leave.IsNotFound(err))

	err = store.DeleteLeaveType(context.Background(), "nope")
	assert.True(t, leave.IsNotFound(err))
}

func TestLeaveTypes_DeleteInUseIsConflict(t *testing.T) {
	// GIVEN: A request that references the annual type
	store := newStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateRequests(ctx, []leave.LeaveRequest{
		request("r1", "alice", "annual", "2025-03-10", "2025-03-12", leave.StatusApproved),
	}))

	// WHEN: The type is deleted
	err := store.DeleteLeaveType(ctx, "annual")

	// THEN: The delete is refused as a state conflict and the type survives
	var conflict *leave.StateConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, leave.ConflictInUse, conflict.Code)
	_, err = store.GetLeaveType(ctx, "annual")
	assert.NoError(t, err)

	// AND: An unused type can still be deleted, clearing fallbacks to it
	require.NoError(t, store.DeleteLeaveType(ctx, "unpaid"))
	sick, err := store.GetLeaveType(ctx, "sick")
	require.NoError(t, err)
	assert.Nil(t, sick.FallbackLeaveTypeID)
}

func TestLeaveTypes_SaveUpdatesInPlace(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveLeaveType(ctx, leave.LeaveType{ID: "annual", Name: "Vacation", MaxDaysPerRequest: ptr(10)}))

	lt, err := store.GetLeaveType(ctx, "annual")
	require.NoError(t, err)
	assert.Equal(t, "Vacation", lt.Name)
	assert.Nil(t, lt.MonthlyAllowanceDays)
	require.NotNil(t, lt.MaxDaysPerRequest)
	assert.Equal(t, 10, *lt.MaxDaysPerRequest)
}

func TestCompanyRules(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	rule, err := store.GetCompanyRule(ctx, leave.RuleTotalAnnualLeaveCap)
	require.NoError(t, err)
	require.NotNil(t, rule)
	assert.Equal(t, "20", rule.Value)

	missing, err := store.GetCompanyRule(ctx, "unknown")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, store.SaveCompanyRule(ctx, leave.CompanyRule{Key: leave.RuleTotalAnnualLeaveCap, Value: "25", Description: "raised"}))
	rules, err := store.ListCompanyRules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "25", rules[0].Value)
	assert.Equal(t, "raised", rules[0].Description)
}

// =============================================================================
// LEAVE REQUESTS
// =============================================================================

func TestRequests_CreateAndGet(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	r := request("r1", "alice", "annual", "2025-03-10", "2025-03-12", leave.StatusPending)
	r.Reason = "trip"
	require.NoError(t, store.CreateRequests(ctx, []leave.LeaveRequest{r}))

	got, err := store.GetRequest(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, r.StartDate, got.StartDate)
	assert.Equal(t, r.EndDate, got.EndDate)
	assert.Equal(t, 3, got.Days)
	assert.Equal(t, "trip", got.Reason)
	assert.Equal(t, leave.StatusPending, got.Status)
	assert.Nil(t, got.BatchID)
	assert.Nil(t, got.ManagerComments)
	assert.True(t, r.CreatedAt.Equal(got.CreatedAt))

	_, err = store.GetRequest(ctx, "missing")
	assert.True(t, leave.IsNotFound(err))
}

func TestRequests_OnePendingPerEmployee(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateRequests(ctx, []leave.LeaveRequest{
		request("r1", "alice", "annual", "2025-03-10", "2025-03-12", leave.StatusPending),
	}))

	// WHEN: A second unbatched pending row is inserted for the same employee
	err := store.CreateRequests(ctx, []leave.LeaveRequest{
		request("r2", "alice", "annual", "2025-04-10", "2025-04-12", leave.StatusPending),
	})

	// THEN: The unique index rejects it
	assert.ErrorIs(t, err, leave.ErrDuplicatePending)

	// Other employees and decided rows are unaffected
	require.NoError(t, store.CreateRequests(ctx, []leave.LeaveRequest{
		request("r3", "bob", "annual", "2025-04-10", "2025-04-12", leave.StatusPending),
		request("r4", "alice", "annual", "2025-01-10", "2025-01-12", leave.StatusApproved),
	}))
}

func TestRequests_BatchRowsShareThePendingSlot(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	a := request("a", "alice", "annual", "2025-03-10", "2025-03-14", leave.StatusPending)
	b := request("b", "alice", "unpaid", "2025-03-15", "2025-03-16", leave.StatusPending)
	a.BatchID, b.BatchID = ptr("batch-1"), ptr("batch-1")

	require.NoError(t, store.CreateRequests(ctx, []leave.LeaveRequest{a, b}))

	pending, err := store.HasPendingRequest(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, pending)

	got, err := store.GetRequest(ctx, "b")
	require.NoError(t, err)
	require.NotNil(t, got.BatchID)
	assert.Equal(t, "batch-1", *got.BatchID)
}

func TestRequests_CreateIsAllOrNothing(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	err := store.CreateRequests(ctx, []leave.LeaveRequest{
		request("ok", "alice", "annual", "2025-03-10", "2025-03-12", leave.StatusApproved),
		request("bad", "alice", "no-such-type", "2025-03-13", "2025-03-14", leave.StatusApproved),
	})
	require.Error(t, err)

	_, err = store.GetRequest(ctx, "ok")
	assert.True(t, leave.IsNotFound(err), "first row must be rolled back")
}

func TestRequests_ListActiveIntersectsWindow(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateRequests(ctx, []leave.LeaveRequest{
		request("feb-mar", "alice", "annual", "2025-02-27", "2025-03-02", leave.StatusApproved),
		request("mar", "alice", "annual", "2025-03-20", "2025-03-21", leave.StatusPending),
		request("rejected", "alice", "annual", "2025-03-05", "2025-03-06", leave.StatusRejected),
		request("apr", "alice", "annual", "2025-04-01", "2025-04-02", leave.StatusApproved),
		request("bob", "bob", "annual", "2025-03-05", "2025-03-06", leave.StatusApproved),
	}))

	got, err := store.ListActiveRequests(ctx, "alice", calendar.MonthOf(d("2025-03-15")))
	require.NoError(t, err)

	ids := make([]string, 0, len(got))
	for _, r := range got {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"feb-mar", "mar"}, ids)
}

func TestRequests_ListFiltersAndPaginates(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"r1", "r2", "r3"} {
		r := request(id, "alice", "annual", "2025-01-10", "2025-01-10", leave.StatusApproved)
		r.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, store.CreateRequests(ctx, []leave.LeaveRequest{r}))
	}
	require.NoError(t, store.CreateRequests(ctx, []leave.LeaveRequest{
		request("other", "bob", "unpaid", "2025-01-10", "2025-01-10", leave.StatusRejected),
	}))

	page, total, err := store.ListRequests(ctx, leave.ListFilter{EmployeeID: "alice", Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, page, 2)
	assert.Equal(t, "r3", page[0].ID, "newest first")
	assert.Equal(t, "r2", page[1].ID)

	page, _, err = store.ListRequests(ctx, leave.ListFilter{EmployeeID: "alice", Page: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "r1", page[0].ID)

	page, total, err = store.ListRequests(ctx, leave.ListFilter{Status: leave.StatusRejected, LeaveTypeID: "unpaid"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "other", page[0].ID)
}

func TestRequests_Update(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	r := request("r1", "alice", "annual", "2025-03-10", "2025-03-12", leave.StatusPending)
	require.NoError(t, store.CreateRequests(ctx, []leave.LeaveRequest{r}))

	r.Status = leave.StatusApproved
	r.ManagerComments = ptr("enjoy")
	r.StartDate = d("2025-03-11")
	r.Days = 2
	require.NoError(t, store.UpdateRequest(ctx, r))

	got, err := store.GetRequest(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, leave.StatusApproved, got.Status)
	assert.Equal(t, d("2025-03-11"), got.StartDate)
	assert.Equal(t, 2, got.Days)
	require.NotNil(t, got.ManagerComments)
	assert.Equal(t, "enjoy", *got.ManagerComments)

	err = store.UpdateRequest(ctx, request("ghost", "alice", "annual", "2025-03-10", "2025-03-12", leave.StatusApproved))
	assert.True(t, leave.IsNotFound(err))
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func TestWithTx_RollsBackOnError(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.WithTx(ctx, func(tx leave.Store) error {
		require.NoError(t, tx.LockEmployee(ctx, "alice"))
		require.NoError(t, tx.CreateRequests(ctx, []leave.LeaveRequest{
			request("r1", "alice", "annual", "2025-03-10", "2025-03-12", leave.StatusPending),
		}))
		pending, err := tx.HasPendingRequest(ctx, "alice")
		require.NoError(t, err)
		assert.True(t, pending, "writes are visible inside the transaction")
		return boom
	})
	assert.ErrorIs(t, err, boom)

	pending, err := store.HasPendingRequest(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, pending)
}

func TestWithTx_Commits(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	err := store.WithTx(ctx, func(tx leave.Store) error {
		return tx.CreateRequests(ctx, []leave.LeaveRequest{
			request("r1", "alice", "annual", "2025-03-10", "2025-03-12", leave.StatusPending),
		})
	})
	require.NoError(t, err)

	_, err = store.GetRequest(ctx, "r1")
	assert.NoError(t, err)
}

// =============================================================================
// HOLIDAYS AND RESET
// =============================================================================

func TestHolidays(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveHoliday(ctx, calendar.Holiday{ID: "h1", Date: d("2025-12-25"), Name: "Christmas"}))
	require.NoError(t, store.SaveHoliday(ctx, calendar.Holiday{ID: "h2", Date: d("2025-01-01"), Name: "New Year"}))
	require.NoError(t, store.SaveHoliday(ctx, calendar.Holiday{ID: "h3", Date: d("2025-12-25"), Name: "Xmas"}))

	all, err := store.ListHolidays(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 2, "same date replaces the earlier holiday")
	assert.Equal(t, "New Year", all[0].Name)
	assert.Equal(t, "Xmas", all[1].Name)

	jan := calendar.MonthOf(d("2025-01-01"))
	inJan, err := store.ListHolidays(ctx, &jan)
	require.NoError(t, err)
	require.Len(t, inJan, 1)

	require.NoError(t, store.DeleteHoliday(ctx, "h2"))
	assert.True(t, leave.IsNotFound(store.DeleteHoliday(ctx, "h2")))
}

func TestReset(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateRequests(ctx, []leave.LeaveRequest{
		request("r1", "alice", "sick", "2025-03-10", "2025-03-12", leave.StatusPending),
	}))
	require.NoError(t, store.SaveHoliday(ctx, calendar.Holiday{ID: "h1", Date: d("2025-12-25"), Name: "Christmas"}))

	require.NoError(t, store.Reset(ctx))

	types, err := store.ListLeaveTypes(ctx)
	require.NoError(t, err)
	assert.Empty(t, types)
	rules, err := store.ListCompanyRules(ctx)
	require.NoError(t, err)
	assert.Empty(t, rules)
	_, err = store.GetRequest(ctx, "r1")
	assert.True(t, leave.IsNotFound(err))
}

// =============================================================================
// ENGINE ON SQL
// =============================================================================

func TestManager_PartialApprovalOnSQLite(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	m := leave.NewManager(store, calendar.CalendarDays(), calendar.FixedAt(d("2025-03-01")), zap.NewNop())

	// GIVEN: A pending 5-day request
	req, err := m.CreateSingle(ctx, "alice", leave.Candidate{
		LeaveTypeID: "annual", StartDate: d("2025-03-10"), EndDate: d("2025-03-14"),
	}, "")
	require.NoError(t, err)

	// AND: A second submission is blocked while it is pending
	_, err = m.CreateSingle(ctx, "alice", leave.Candidate{
		LeaveTypeID: "unpaid", StartDate: d("2025-04-10"), EndDate: d("2025-04-10"),
	}, "")
	var pv *leave.PolicyViolationError
	require.ErrorAs(t, err, &pv)
	assert.Equal(t, leave.CodePendingRequestExists, pv.Code)

	// WHEN: The manager approves only the middle three days
	out, err := m.Approve(ctx, req.ID, ptr("ok"), ptr(d("2025-03-11")), ptr(d("2025-03-13")), leave.Principal{EmployeeID: "boss"})
	require.NoError(t, err)

	// THEN: The original row is approved and two rejected portions exist
	assert.Equal(t, 3, out.Request.Days)
	require.Len(t, out.Rejected, 2)

	approved, total, err := store.ListRequests(ctx, leave.ListFilter{EmployeeID: "alice", Status: leave.StatusApproved})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, req.ID, approved[0].ID)

	_, total, err = store.ListRequests(ctx, leave.ListFilter{EmployeeID: "alice", Status: leave.StatusRejected})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}
