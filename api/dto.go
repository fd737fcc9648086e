/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Engine types that are
  already shaped for clients (leave.Decision, leave.LeaveRequest,
  leave.BalanceSummary) are returned as-is; everything else goes through a
  DTO here.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Submission:
    CandidateRequest, CreateSingleRequest, SplitPartRequest, CreateSplitRequest

  Approval:
    UpdateStatusRequest, UpdateStatusResponse

  Queries:
    PageResponse, CalendarEntryDTO, CalendarResponse, ConfigResponse

  Administration:
    HolidayRequest, ScenarioDTO, LoadScenarioRequest

VALIDATION:
  Struct tags are checked with go-playground/validator before the engine
  sees the request. Required-field and date-order rules stay in the engine
  so every entry point reports them the same way.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/leavetype.go: LeaveTypeJSON and CompanyRuleJSON
*/
package api

import (
	"github.com/warp/leave-engine/calendar"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// SUBMISSION
// =============================================================================

// CandidateRequest is the body of POST /api/leave/validate.
type CandidateRequest struct {
	LeaveTypeID string        `json:"leave_type_id" validate:"max=64"`
	StartDate   calendar.Date `json:"start_date"`
	EndDate     calendar.Date `json:"end_date"`
}

func (c CandidateRequest) toCandidate() leave.Candidate {
	return leave.Candidate{LeaveTypeID: c.LeaveTypeID, StartDate: c.StartDate, EndDate: c.EndDate}
}

// CreateSingleRequest is the body of POST /api/leave/create-single.
type CreateSingleRequest struct {
	CandidateRequest
	Reason string `json:"reason" validate:"max=1000"`
}

// SplitPartRequest mirrors one part of a split proposal.
type SplitPartRequest struct {
	LeaveTypeID string        `json:"leave_type_id" validate:"max=64"`
	StartDate   calendar.Date `json:"start_date"`
	EndDate     calendar.Date `json:"end_date"`
}

func (p *SplitPartRequest) toPart() *leave.SplitPart {
	if p == nil {
		return nil
	}
	return &leave.SplitPart{LeaveTypeID: p.LeaveTypeID, StartDate: p.StartDate, EndDate: p.EndDate}
}

// CreateSplitRequest is the body of POST /api/leave/create-split.
type CreateSplitRequest struct {
	Primary   *SplitPartRequest `json:"primary"`
	Secondary *SplitPartRequest `json:"secondary"`
	Reason    string            `json:"reason" validate:"max=1000"`
}

func (c CreateSplitRequest) toSplit() leave.SplitRequest {
	in := leave.SplitRequest{Primary: c.Primary.toPart(), Reason: c.Reason}
	if s := c.Secondary.toPart(); s != nil {
		in.Secondary = *s
	}
	return in
}

// CreateSplitResponse is returned after a split batch is stored.
type CreateSplitResponse struct {
	Message  string               `json:"message"`
	BatchID  string               `json:"batch_id"`
	Requests []leave.LeaveRequest `json:"requests"`
}

// =============================================================================
// APPROVAL
// =============================================================================

// UpdateStatusRequest is the body of PUT /api/leave/{id}.
type UpdateStatusRequest struct {
	Status          string         `json:"status"`
	ManagerComments *string        `json:"manager_comments" validate:"omitempty,max=1000"`
	NewStartDate    *calendar.Date `json:"new_start_date"`
	NewEndDate      *calendar.Date `json:"new_end_date"`
}

func (u UpdateStatusRequest) toUpdate() leave.StatusUpdate {
	return leave.StatusUpdate{
		Status:   leave.Status(u.Status),
		Comments: u.ManagerComments,
		NewStart: u.NewStartDate,
		NewEnd:   u.NewEndDate,
	}
}

// UpdateStatusResponse reports the finalized request and any rejected
// portions created by a partial approval.
type UpdateStatusResponse struct {
	Message          string               `json:"message"`
	Request          leave.LeaveRequest   `json:"request"`
	RejectedPortions []leave.LeaveRequest `json:"rejected_portions"`
}

// =============================================================================
// QUERIES
// =============================================================================

// PageResponse wraps one page of requests.
type PageResponse struct {
	Data       []leave.LeaveRequest `json:"data"`
	Page       int                  `json:"page"`
	Limit      int                  `json:"limit"`
	PageCount  int                  `json:"pageCount"`
	TotalItems int                  `json:"totalItems"`
}

// CalendarEntryDTO is one pending or approved range on the calendar.
type CalendarEntryDTO struct {
	ID            string        `json:"id"`
	LeaveTypeID   string        `json:"leave_type_id"`
	LeaveTypeName string        `json:"leave_type_name"`
	StartDate     calendar.Date `json:"start_date"`
	EndDate       calendar.Date `json:"end_date"`
	Days          int           `json:"days"`
	Status        leave.Status  `json:"status"`
	Reason        string        `json:"reason,omitempty"`
}

// CalendarResponse is returned by GET /api/leave/calendar.
type CalendarResponse struct {
	From           calendar.Date      `json:"from"`
	To             calendar.Date      `json:"to"`
	ExistingLeaves []CalendarEntryDTO `json:"existingLeaves"`
	Holidays       []calendar.Holiday `json:"holidays"`
	CountingPolicy string             `json:"counting_policy"`
}

// ConfigResponse is returned by GET /api/leave/config.
type ConfigResponse struct {
	LeaveTypes []leave.LeaveType     `json:"leaveTypes"`
	Balance    *leave.BalanceSummary `json:"balance"`
}

// =============================================================================
// ADMINISTRATION
// =============================================================================

// HolidayRequest is the body of POST /api/holidays.
type HolidayRequest struct {
	Date calendar.Date `json:"date"`
	Name string        `json:"name" validate:"required,max=128"`
}

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}
