package leave

import (
	"context"

	"github.com/warp/leave-engine/calendar"
)

// =============================================================================
// STORE INTERFACES
// =============================================================================

//go:generate mockgen -destination=mocks/mock_store.go -package=mocks . TxStore

// Store is the engine's view of persistence. Lookups of missing leave types
// and requests return an error wrapping ErrNotFound.
type Store interface {
	GetLeaveType(ctx context.Context, id string) (*LeaveType, error)
	ListLeaveTypes(ctx context.Context) ([]LeaveType, error)

	// GetCompanyRule returns nil, nil when the rule is not configured.
	GetCompanyRule(ctx context.Context, key string) (*CompanyRule, error)

	GetRequest(ctx context.Context, id string) (*LeaveRequest, error)
	HasPendingRequest(ctx context.Context, employeeID string) (bool, error)

	// ListActiveRequests returns the employee's pending and approved requests
	// whose range intersects window.
	ListActiveRequests(ctx context.Context, employeeID string, window calendar.Window) ([]LeaveRequest, error)

	// ListRequests returns one page of requests and the total match count.
	ListRequests(ctx context.Context, filter ListFilter) ([]LeaveRequest, int, error)

	// CreateRequests inserts all rows or none.
	CreateRequests(ctx context.Context, reqs []LeaveRequest) error
	UpdateRequest(ctx context.Context, req LeaveRequest) error

	// LockEmployee serializes read-check-write sequences for one employee
	// until the surrounding transaction ends. Outside a transaction it is a
	// no-op.
	LockEmployee(ctx context.Context, employeeID string) error
}

// TxStore extends Store with a unit of work. fn's writes are committed when
// it returns nil and rolled back otherwise; its error is returned unchanged.
type TxStore interface {
	Store
	WithTx(ctx context.Context, fn func(Store) error) error
}

// ListFilter selects requests for listing endpoints. Zero values match all.
type ListFilter struct {
	EmployeeID  string
	Status      Status
	LeaveTypeID string
	Window      *calendar.Window
	Page        int // 1-based
	Limit       int // 0 = no limit
}

// Offset returns the row offset for Page and Limit.
func (f ListFilter) Offset() int {
	if f.Page <= 1 || f.Limit <= 0 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}

// Matches applies the filter to one request, ignoring pagination.
func (f ListFilter) Matches(r LeaveRequest) bool {
	if f.EmployeeID != "" && r.EmployeeID != f.EmployeeID {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.LeaveTypeID != "" && r.LeaveTypeID != f.LeaveTypeID {
		return false
	}
	if f.Window != nil {
		if _, _, ok := f.Window.Intersect(r.StartDate, r.EndDate); !ok {
			return false
		}
	}
	return true
}

// ConfigStore holds administrator-managed configuration and holidays.
type ConfigStore interface {
	SaveLeaveType(ctx context.Context, lt LeaveType) error
	DeleteLeaveType(ctx context.Context, id string) error
	ListCompanyRules(ctx context.Context) ([]CompanyRule, error)
	SaveCompanyRule(ctx context.Context, rule CompanyRule) error

	// ListHolidays returns holidays inside window, or all when window is nil.
	ListHolidays(ctx context.Context, window *calendar.Window) ([]calendar.Holiday, error)
	SaveHoliday(ctx context.Context, h calendar.Holiday) error
	DeleteHoliday(ctx context.Context, id string) error

	// Reset deletes all rows. Used by demo scenarios.
	Reset(ctx context.Context) error
}
