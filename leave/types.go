/*
Package leave implements leave-request validation, quota allocation and the
approval lifecycle.

PURPOSE:
  Decides whether a proposed absence fits every active quota dimension,
  proposes a deterministic split when it does not, and owns the
  pending -> approved | rejected state machine including partial approval.

KEY CONCEPTS:
  LeaveType:    configuration (allowances, cap participation, fallback type)
  CompanyRule:  key/value configuration, e.g. total_annual_leave_cap
  LeaveRequest: one persisted absence; days always equals the recomputed count
  Constraint:   one quota dimension returning (remaining, label)
  Decision:     the evaluator's answer, "ok" or "split_proposal"

DATA FLOW:
  Manager -> Evaluator -> Constraints -> DaysConsumedInWindow -> calendar.Policy

SEE ALSO:
  - evaluator.go: admission checks and constraint reduction
  - split.go: proposal generation
  - lifecycle.go: creation, rejection and (partial) approval
*/
package leave

import (
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/leave-engine/calendar"
)

// =============================================================================
// STATUS
// =============================================================================

// Status is the lifecycle state of a request.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func (s Status) Valid() bool {
	return s == StatusPending || s == StatusApproved || s == StatusRejected
}

// Consumes reports whether requests in this state count against quotas.
func (s Status) Consumes() bool {
	return s == StatusPending || s == StatusApproved
}

// Terminal states never change again.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Portion tags a rejected sibling produced by partial approval.
type Portion string

const (
	PortionNone     Portion = ""
	PortionLeading  Portion = "leading"
	PortionTrailing Portion = "trailing"
)

// =============================================================================
// CONFIGURATION ENTITIES
// =============================================================================

// LeaveType is administrator-managed configuration. Nil limits are unlimited.
type LeaveType struct {
	ID                   string  `json:"id"`
	Name                 string  `json:"name"`
	IsUnpaid             bool    `json:"is_unpaid"`
	AnnualAllowanceDays  *int    `json:"annual_allowance_days"`
	MonthlyAllowanceDays *int    `json:"monthly_allowance_days"`
	MaxDaysPerRequest    *int    `json:"max_days_per_request"`
	AllowRetroactive     bool    `json:"allow_retroactive_application"`
	FallbackLeaveTypeID  *string `json:"fallback_leave_type_id"`
}

// RuleTotalAnnualLeaveCap is the company-wide paid-leave ceiling per year.
const RuleTotalAnnualLeaveCap = "total_annual_leave_cap"

// CompanyRule is a key/value setting.
type CompanyRule struct {
	Key         string `json:"setting_key"`
	Value       string `json:"setting_value"`
	Description string `json:"description,omitempty"`
}

// WholeDays parses the value as a non-negative whole number of days.
// "20" and "20.0" are accepted, "20.5" and "-1" are not.
func (r CompanyRule) WholeDays() (int, error) {
	v, err := decimal.NewFromString(r.Value)
	if err != nil {
		return 0, fmt.Errorf("rule %s: %q is not a number", r.Key, r.Value)
	}
	if !v.Equal(v.Truncate(0)) {
		return 0, fmt.Errorf("rule %s: %q is not a whole number of days", r.Key, r.Value)
	}
	if v.IsNegative() {
		return 0, fmt.Errorf("rule %s: %q is negative", r.Key, r.Value)
	}
	return int(v.IntPart()), nil
}

// =============================================================================
// LEAVE REQUEST
// =============================================================================

// LeaveRequest is a persisted absence for one employee.
type LeaveRequest struct {
	ID              string        `json:"id"`
	EmployeeID      string        `json:"employee_id"`
	LeaveTypeID     string        `json:"leave_type_id"`
	StartDate       calendar.Date `json:"start_date"`
	EndDate         calendar.Date `json:"end_date"`
	Days            int           `json:"days"`
	Reason          string        `json:"reason"`
	Status          Status        `json:"status"`
	ManagerComments *string       `json:"manager_comments"`
	BatchID         *string       `json:"batch_id"`

	// SourceRequestID links a rejected portion to the request it was cut from.
	SourceRequestID *string `json:"source_request_id,omitempty"`
	Portion         Portion `json:"portion,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Window returns the request's own date range.
func (r LeaveRequest) Window() calendar.Window {
	return calendar.Window{Start: r.StartDate, End: r.EndDate}
}

// Candidate is a proposed request that has not been persisted.
type Candidate struct {
	LeaveTypeID string
	StartDate   calendar.Date
	EndDate     calendar.Date
}

// =============================================================================
// PRINCIPAL
// =============================================================================

// Principal is the already-authenticated caller. The engine only uses it to
// forbid self-action; authorization happens upstream.
type Principal struct {
	EmployeeID  string   `json:"employee_id"`
	IsMaster    bool     `json:"is_master"`
	Permissions []string `json:"permissions"`
}

// Has reports whether the principal carries perm. Masters carry everything.
func (p Principal) Has(perm string) bool {
	return p.IsMaster || slices.Contains(p.Permissions, perm)
}

// Permission names checked by the HTTP layer.
const (
	PermUpdateRequests = "leave_management:update"
	PermReadAll        = "leave_management:read_all"
	PermManageConfig   = "leave_management:configure"
)

func intPtr(v int) *int       { return &v }
func strPtr(s string) *string { return &s }
