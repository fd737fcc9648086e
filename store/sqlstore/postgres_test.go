package sqlstore_test

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/calendar"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/sqlstore"
)

// These tests drive the PostgreSQL dialect through sqlmock.

func newPostgresMock(t *testing.T) (*sqlstore.Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close()
	})
	return sqlstore.FromDB(db, sqlstore.DialectPostgres, nil), mock
}

func expectTx(t *testing.T, mock sqlmock.Sqlmock, commit bool) {
	t.Helper()
	mock.ExpectBegin()
	if commit {
		mock.ExpectCommit()
	} else {
		mock.ExpectRollback()
	}
}

func TestPostgres_RebindsPlaceholders(t *testing.T) {
	store, mock := newPostgresMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM leave_types WHERE id = $1`)).
		WithArgs("annual").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "is_unpaid", "annual_allowance_days", "monthly_allowance_days",
			"max_days_per_request", "allow_retroactive_application", "fallback_leave_type_id",
		}).AddRow("annual", "Annual Leave", false, nil, int64(5), nil, false, nil))

	lt, err := store.GetLeaveType(context.Background(), "annual")
	require.NoError(t, err)
	require.NotNil(t, lt.MonthlyAllowanceDays)
	assert.Equal(t, 5, *lt.MonthlyAllowanceDays)
	assert.Nil(t, lt.FallbackLeaveTypeID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_LockEmployeeTakesAdvisoryLock(t *testing.T) {
	store, mock := newPostgresMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`SELECT pg_advisory_xact_lock(hashtext($1))`)).
		WithArgs("alice").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := store.WithTx(context.Background(), func(tx leave.Store) error {
		return tx.LockEmployee(context.Background(), "alice")
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_LockEmployeeOutsideTxIsNoop(t *testing.T) {
	store, mock := newPostgresMock(t)

	require.NoError(t, store.LockEmployee(context.Background(), "alice"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_WithTxRollsBackOnError(t *testing.T) {
	store, mock := newPostgresMock(t)
	boom := errors.New("boom")

	expectTx(t, mock, false)

	err := store.WithTx(context.Background(), func(leave.Store) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_PendingIndexViolationMapsToDuplicatePending(t *testing.T) {
	store, mock := newPostgresMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO leave_requests`)).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "idx_leave_requests_one_pending"})
	mock.ExpectRollback()

	err := store.CreateRequests(context.Background(), []leave.LeaveRequest{
		request("r1", "alice", "annual", "2025-03-10", "2025-03-12", leave.StatusPending),
	})
	assert.ErrorIs(t, err, leave.ErrDuplicatePending)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_OtherUniqueViolationIsPlainError(t *testing.T) {
	store, mock := newPostgresMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO leave_requests`)).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "leave_requests_pkey"})
	mock.ExpectRollback()

	err := store.CreateRequests(context.Background(), []leave.LeaveRequest{
		request("r1", "alice", "annual", "2025-03-10", "2025-03-12", leave.StatusPending),
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, leave.ErrDuplicatePending)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_InsertFailureRollsBackBatch(t *testing.T) {
	store, mock := newPostgresMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO leave_requests`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO leave_requests`)).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := store.CreateRequests(context.Background(), []leave.LeaveRequest{
		request("a", "alice", "annual", "2025-03-10", "2025-03-12", leave.StatusPending),
		request("b", "alice", "unpaid", "2025-03-13", "2025-03-14", leave.StatusPending),
	})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDialectFor(t *testing.T) {
	for driver, want := range map[string]sqlstore.Dialect{
		"sqlite3":  sqlstore.DialectSQLite,
		"pgx":      sqlstore.DialectPostgres,
		"postgres": sqlstore.DialectPostgres,
	} {
		got, err := sqlstore.DialectFor(driver)
		require.NoError(t, err, driver)
		assert.Equal(t, want, got, driver)
	}
	_, err := sqlstore.DialectFor("mysql")
	assert.Error(t, err)
}

func TestPostgres_DeleteReferencedLeaveTypeIsConflict(t *testing.T) {
	store, mock := newPostgresMock(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM leave_types WHERE id = $1`)).
		WithArgs("annual").
		WillReturnError(&pgconn.PgError{Code: "23503", ConstraintName: "leave_requests_leave_type_id_fkey"})

	err := store.DeleteLeaveType(context.Background(), "annual")
	assert.ErrorIs(t, err, leave.ErrStateConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SaveHolidayRollsBackReplacedDate(t *testing.T) {
	// GIVEN: The insert of the new holiday fails after the same-date delete
	store, mock := newPostgresMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM public_holidays WHERE date = $1 AND id <> $2`)).
		WithArgs("2025-12-25", "h2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO public_holidays`)).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	// WHEN: The holiday is saved
	err := store.SaveHoliday(context.Background(), calendar.Holiday{ID: "h2", Date: d("2025-12-25"), Name: "Christmas"})

	// THEN: Both statements ran in one transaction that was rolled back
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
