package leave

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/warp/leave-engine/calendar"
	"go.uber.org/zap"
)

// Default texts written onto rejected portions.
const (
	DefaultPortionComment = "This portion was not approved."
	leadingReasonFormat   = "Rejected initial portion of request #%s"
	trailingReasonFormat  = "Rejected final portion of request #%s"
)

// =============================================================================
// LIFECYCLE MANAGER
// =============================================================================

// Manager owns creation and the pending -> approved | rejected transitions.
// Every mutation runs inside one store transaction.
type Manager struct {
	Store     TxStore
	Evaluator *Evaluator

	// NewID generates request and batch ids.
	NewID func() string

	logger *zap.Logger
}

// NewManager wires a manager with a default evaluator.
func NewManager(store TxStore, policy calendar.Policy, clock calendar.Clock, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		Store:     store,
		Evaluator: NewEvaluator(policy, clock),
		NewID:     func() string { return uuid.NewString() },
		logger:    logger.Named("leave.manager"),
	}
}

// Policy is the active day-counting policy.
func (m *Manager) Policy() calendar.Policy { return m.Evaluator.Policy }

func (m *Manager) now() time.Time { return m.Evaluator.Clock.Now().UTC() }

// Validate evaluates a candidate without writing.
func (m *Manager) Validate(ctx context.Context, employeeID string, c Candidate) (*Decision, error) {
	d, err := m.Evaluator.Evaluate(ctx, m.Store, employeeID, c)
	if err != nil {
		return nil, classify("validate", err)
	}
	return d, nil
}

// =============================================================================
// CREATION
// =============================================================================

// CreateSingle re-evaluates the candidate inside the transaction and
// persists one pending request when the verdict is "ok". A candidate that
// needs a split is refused with a PolicyViolationError carrying the proposal.
func (m *Manager) CreateSingle(ctx context.Context, employeeID string, c Candidate, reason string) (*LeaveRequest, error) {
	var created LeaveRequest
	err := m.Store.WithTx(ctx, func(tx Store) error {
		if err := tx.LockEmployee(ctx, employeeID); err != nil {
			return err
		}
		d, err := m.Evaluator.Evaluate(ctx, tx, employeeID, c)
		if err != nil {
			return err
		}
		if d.Status != DecisionOK {
			return &PolicyViolationError{Code: CodeSplitRequired, Message: d.Message, Decision: d}
		}

		now := m.now()
		created = LeaveRequest{
			ID:          m.NewID(),
			EmployeeID:  employeeID,
			LeaveTypeID: c.LeaveTypeID,
			StartDate:   c.StartDate,
			EndDate:     c.EndDate,
			Days:        d.RequestedDays,
			Reason:      reason,
			Status:      StatusPending,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		return tx.CreateRequests(ctx, []LeaveRequest{created})
	})
	if err != nil {
		return nil, classify("create leave request", err)
	}

	m.logger.Info("leave request created",
		zap.String("request_id", created.ID),
		zap.String("employee_id", employeeID),
		zap.String("leave_type_id", created.LeaveTypeID),
		zap.Int("days", created.Days))
	return &created, nil
}

// SplitPart is one segment of a split submission.
type SplitPart struct {
	LeaveTypeID string
	StartDate   calendar.Date
	EndDate     calendar.Date
}

// SplitRequest mirrors a proposal the employee accepted.
type SplitRequest struct {
	Primary   *SplitPart
	Secondary SplitPart
	Reason    string
}

// Batch is the result of CreateSplit.
type Batch struct {
	BatchID  string         `json:"batch_id"`
	Requests []LeaveRequest `json:"requests"`
}

// CreateSplit persists every part as a pending request under one new
// batch id. Either all parts are stored or none.
func (m *Manager) CreateSplit(ctx context.Context, employeeID string, in SplitRequest) (*Batch, error) {
	parts, err := splitParts(employeeID, in)
	if err != nil {
		return nil, err
	}

	batch := &Batch{BatchID: m.NewID()}
	err = m.Store.WithTx(ctx, func(tx Store) error {
		if err := tx.LockEmployee(ctx, employeeID); err != nil {
			return err
		}
		pending, err := tx.HasPendingRequest(ctx, employeeID)
		if err != nil {
			return err
		}
		if pending {
			return pendingExists()
		}

		now := m.now()
		today := calendar.Today(m.Evaluator.Clock)
		reqs := make([]LeaveRequest, 0, len(parts))
		for _, p := range parts {
			lt, err := tx.GetLeaveType(ctx, p.LeaveTypeID)
			if err != nil {
				return err
			}
			days := m.Policy().DayCount(p.StartDate, p.EndDate)
			if days == 0 {
				return &ValidationError{Message: fmt.Sprintf("The range %s to %s contains no countable leave days.", p.StartDate, p.EndDate)}
			}
			if err := maxDaysCheck(*lt, days); err != nil {
				return err
			}
			if err := retroactiveCheck(*lt, p.StartDate, today); err != nil {
				return err
			}
			reqs = append(reqs, LeaveRequest{
				ID:          m.NewID(),
				EmployeeID:  employeeID,
				LeaveTypeID: p.LeaveTypeID,
				StartDate:   p.StartDate,
				EndDate:     p.EndDate,
				Days:        days,
				Reason:      in.Reason,
				Status:      StatusPending,
				BatchID:     strPtr(batch.BatchID),
				CreatedAt:   now,
				UpdatedAt:   now,
			})
		}
		if err := tx.CreateRequests(ctx, reqs); err != nil {
			return err
		}
		batch.Requests = reqs
		return nil
	})
	if err != nil {
		return nil, classify("create split request", err)
	}

	m.logger.Info("split leave request created",
		zap.String("batch_id", batch.BatchID),
		zap.String("employee_id", employeeID),
		zap.Int("parts", len(batch.Requests)))
	return batch, nil
}

func splitParts(employeeID string, in SplitRequest) ([]SplitPart, error) {
	if employeeID == "" {
		return nil, validationf("employee_id", "is required")
	}
	var parts []SplitPart
	if in.Primary != nil {
		parts = append(parts, *in.Primary)
	}
	parts = append(parts, in.Secondary)

	for _, p := range parts {
		if p.LeaveTypeID == "" || p.StartDate.IsZero() || p.EndDate.IsZero() {
			return nil, &ValidationError{Message: "Invalid split request data."}
		}
		if p.StartDate.After(p.EndDate) {
			return nil, &ValidationError{Field: "start_date", Message: "Start date cannot be after end date."}
		}
	}
	if in.Primary != nil && !in.Primary.EndDate.Before(in.Secondary.StartDate) {
		return nil, &ValidationError{Message: "The primary portion must end before the secondary portion starts."}
	}
	return parts, nil
}

// =============================================================================
// TRANSITIONS
// =============================================================================

// StatusUpdate is a manager action on a pending request. NewStart and
// NewEnd are only meaningful for approvals.
type StatusUpdate struct {
	Status   Status
	Comments *string
	NewStart *calendar.Date
	NewEnd   *calendar.Date
}

// Outcome is the set of rows touched by a transition. Rejected holds the
// rejected portions created by a partial approval.
type Outcome struct {
	Request  LeaveRequest   `json:"request"`
	Rejected []LeaveRequest `json:"rejected_portions,omitempty"`
}

// Update dispatches on the target status.
func (m *Manager) Update(ctx context.Context, requestID string, u StatusUpdate, actor Principal) (*Outcome, error) {
	switch u.Status {
	case StatusApproved:
		return m.Approve(ctx, requestID, u.Comments, u.NewStart, u.NewEnd, actor)
	case StatusRejected:
		return m.Reject(ctx, requestID, u.Comments, actor)
	case "":
		return nil, validationf("status", "is required")
	}
	return nil, &ValidationError{Field: "status", Message: "Invalid status provided."}
}

// Reject finalizes a pending request as rejected. Existing comments are
// kept when none are supplied.
func (m *Manager) Reject(ctx context.Context, requestID string, comments *string, actor Principal) (*Outcome, error) {
	var out Outcome
	err := m.Store.WithTx(ctx, func(tx Store) error {
		req, err := loadActionable(ctx, tx, requestID, actor)
		if err != nil {
			return err
		}
		req.Status = StatusRejected
		if comments != nil {
			req.ManagerComments = comments
		}
		req.UpdatedAt = m.now()
		if err := tx.UpdateRequest(ctx, *req); err != nil {
			return err
		}
		out.Request = *req
		return nil
	})
	if err != nil {
		return nil, classify("reject leave request", err)
	}

	m.logger.Info("leave request rejected",
		zap.String("request_id", requestID),
		zap.String("actor", actor.EmployeeID))
	return &out, nil
}

// Approve finalizes a pending request. When newStart or newEnd narrow the
// range, the original row keeps its id and becomes the approved middle while
// the cut-off days are stored as rejected siblings. The company-wide cap is
// re-checked inside the same transaction, without counting the request
// itself.
func (m *Manager) Approve(ctx context.Context, requestID string, comments *string, newStart, newEnd *calendar.Date, actor Principal) (*Outcome, error) {
	var out Outcome
	err := m.Store.WithTx(ctx, func(tx Store) error {
		req, err := loadActionable(ctx, tx, requestID, actor)
		if err != nil {
			return err
		}

		start, end := req.StartDate, req.EndDate
		if newStart != nil && !newStart.IsZero() {
			start = *newStart
		}
		if newEnd != nil && !newEnd.IsZero() {
			end = *newEnd
		}
		if start.Before(req.StartDate) || end.After(req.EndDate) || start.After(end) {
			return &ValidationError{Message: "The approved dates must lie within the original request's range."}
		}

		days := m.Policy().DayCount(start, end)
		if days == 0 {
			return &ValidationError{Message: "The approved range contains no countable leave days."}
		}
		if err := m.recheckAnnualCap(ctx, tx, *req, start, end, days); err != nil {
			return err
		}

		now := m.now()
		var portions []LeaveRequest
		if start.After(req.StartDate) {
			portions = append(portions, m.portion(*req, PortionLeading, req.StartDate, start.AddDays(-1), comments, now))
		}
		if end.Before(req.EndDate) {
			portions = append(portions, m.portion(*req, PortionTrailing, end.AddDays(1), req.EndDate, comments, now))
		}
		if len(portions) > 0 {
			if err := tx.CreateRequests(ctx, portions); err != nil {
				return err
			}
		}

		req.StartDate, req.EndDate, req.Days = start, end, days
		req.Status = StatusApproved
		if comments != nil {
			req.ManagerComments = comments
		}
		req.UpdatedAt = now
		if err := tx.UpdateRequest(ctx, *req); err != nil {
			return err
		}

		out = Outcome{Request: *req, Rejected: portions}
		return nil
	})
	if err != nil {
		return nil, classify("approve leave request", err)
	}

	m.logger.Info("leave request approved",
		zap.String("request_id", requestID),
		zap.String("actor", actor.EmployeeID),
		zap.Int("days", out.Request.Days),
		zap.Int("rejected_portions", len(out.Rejected)))
	return &out, nil
}

func (m *Manager) recheckAnnualCap(ctx context.Context, tx Store, req LeaveRequest, start, end calendar.Date, days int) error {
	lt, err := tx.GetLeaveType(ctx, req.LeaveTypeID)
	if err != nil {
		return err
	}
	if lt.IsUnpaid {
		return nil
	}
	annualCap, err := loadAnnualCap(ctx, tx)
	if err != nil || annualCap == nil {
		return err
	}
	types, err := tx.ListLeaveTypes(ctx)
	if err != nil {
		return err
	}
	byID := make(map[string]LeaveType, len(types))
	for _, t := range types {
		byID[t.ID] = t
	}
	existing, err := tx.ListActiveRequests(ctx, req.EmployeeID, calendar.YearOf(start))
	if err != nil {
		return err
	}

	ev := &Evaluation{
		Candidate:     Candidate{LeaveTypeID: req.LeaveTypeID, StartDate: start, EndDate: end},
		LeaveType:     *lt,
		RequestedDays: days,
		Existing:      Select(existing, Excluding(req.ID)),
		LeaveTypes:    byID,
		AnnualCap:     annualCap,
		Policy:        m.Policy(),
	}
	remaining, bounded := CompanyAnnualCap{}.Remaining(ev)
	if bounded && days > remaining {
		remaining = max(0, remaining)
		return &PolicyViolationError{
			Code: CodeAnnualCapExceeded,
			Message: fmt.Sprintf("Approval failed. This would exceed the employee's total annual paid leave limit. They only have %d days remaining.",
				remaining),
			Remaining: intPtr(remaining),
		}
	}
	return nil
}

func (m *Manager) portion(src LeaveRequest, p Portion, start, end calendar.Date, comments *string, now time.Time) LeaveRequest {
	format := leadingReasonFormat
	if p == PortionTrailing {
		format = trailingReasonFormat
	}
	comment := DefaultPortionComment
	if comments != nil && *comments != "" {
		comment = *comments
	}
	return LeaveRequest{
		ID:              m.NewID(),
		EmployeeID:      src.EmployeeID,
		LeaveTypeID:     src.LeaveTypeID,
		StartDate:       start,
		EndDate:         end,
		Days:            m.Policy().DayCount(start, end),
		Reason:          fmt.Sprintf(format, src.ID),
		Status:          StatusRejected,
		ManagerComments: strPtr(comment),
		SourceRequestID: strPtr(src.ID),
		Portion:         p,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// loadActionable locks the owning employee, then fetches the request and
// enforces the pending-only and no-self-action rules, in that order. The
// second read sees any transition committed while waiting for the lock.
func loadActionable(ctx context.Context, tx Store, requestID string, actor Principal) (*LeaveRequest, error) {
	req, err := tx.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := tx.LockEmployee(ctx, req.EmployeeID); err != nil {
		return nil, err
	}
	if req, err = tx.GetRequest(ctx, requestID); err != nil {
		return nil, err
	}
	if req.Status != StatusPending {
		return nil, &StateConflictError{
			Code:      ConflictFinalized,
			RequestID: requestID,
			Message:   "This request has already been finalized.",
		}
	}
	if req.EmployeeID == actor.EmployeeID && !actor.IsMaster {
		return nil, &StateConflictError{
			Code:      ConflictSelfAction,
			RequestID: requestID,
			Message:   "Forbidden: You cannot update your own leave request.",
		}
	}
	return req, nil
}

// =============================================================================
// QUERIES
// =============================================================================

// Get returns one request.
func (m *Manager) Get(ctx context.Context, requestID string) (*LeaveRequest, error) {
	req, err := m.Store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, classify("get leave request", err)
	}
	return req, nil
}

// List returns one page of requests.
func (m *Manager) List(ctx context.Context, filter ListFilter) ([]LeaveRequest, int, error) {
	reqs, total, err := m.Store.ListRequests(ctx, filter)
	if err != nil {
		return nil, 0, classify("list leave requests", err)
	}
	return reqs, total, nil
}
