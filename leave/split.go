package leave

import (
	"fmt"

	"github.com/warp/leave-engine/calendar"
)

// =============================================================================
// SPLIT PROPOSALS
// =============================================================================

// DecisionStatus is the evaluator's verdict on an admissible candidate.
type DecisionStatus string

const (
	DecisionOK            DecisionStatus = "ok"
	DecisionSplitProposal DecisionStatus = "split_proposal"
)

// Decision is returned by validation. Hard rejections are errors instead.
type Decision struct {
	Status         DecisionStatus `json:"status"`
	Message        string         `json:"message,omitempty"`
	LimitingFactor LimitingFactor `json:"limitingFactor,omitempty"`
	Proposal       *Proposal      `json:"proposal,omitempty"`
	RequestedDays  int            `json:"requestedDays"`

	// AvailableDays is nil when no constraint applies.
	AvailableDays *int `json:"availableDays,omitempty"`
}

// Proposal divides one requested range into a primary part that fits and a
// secondary part carrying the excess. It is never persisted.
type Proposal struct {
	Primary   *ProposalPart `json:"primary"`
	Secondary ProposalPart  `json:"secondary"`
}

// ProposalPart is one contiguous segment of a proposal.
type ProposalPart struct {
	LeaveTypeID   string        `json:"leave_type_id"`
	LeaveTypeName string        `json:"leave_type_name"`
	Days          int           `json:"days"`
	StartDate     calendar.Date `json:"start_date"`
	EndDate       calendar.Date `json:"end_date"`
}

// SplitInput is what the generator needs. Secondary is the requested type
// itself for monthly and cap exhaustion, or the fallback type.
type SplitInput struct {
	Start         calendar.Date
	End           calendar.Date
	RequestedDays int
	Available     int
	Primary       LeaveType
	Secondary     LeaveType
	Factor        LimitingFactor
	Policy        calendar.Policy
}

// Propose partitions [Start, End] so that the primary part holds
// max(0, Available) counted days and the secondary part holds the rest.
// The primary part is omitted when it would be empty.
func Propose(in SplitInput) *Decision {
	primaryDays := max(0, in.Available)
	if primaryDays > in.RequestedDays {
		primaryDays = in.RequestedDays
	}
	secondaryDays := in.RequestedDays - primaryDays

	proposal := &Proposal{}
	secondaryStart := in.Start
	if primaryDays > 0 {
		primaryEnd := in.Policy.Advance(in.Start, in.End, primaryDays)
		proposal.Primary = &ProposalPart{
			LeaveTypeID:   in.Primary.ID,
			LeaveTypeName: in.Primary.Name,
			Days:          primaryDays,
			StartDate:     in.Start,
			EndDate:       primaryEnd,
		}
		secondaryStart = primaryEnd.AddDays(1)
	}
	proposal.Secondary = ProposalPart{
		LeaveTypeID:   in.Secondary.ID,
		LeaveTypeName: in.Secondary.Name,
		Days:          secondaryDays,
		StartDate:     secondaryStart,
		EndDate:       in.End,
	}

	return &Decision{
		Status:         DecisionSplitProposal,
		Message:        splitMessage(in, primaryDays),
		LimitingFactor: in.Factor,
		Proposal:       proposal,
		RequestedDays:  in.RequestedDays,
		AvailableDays:  intPtr(primaryDays),
	}
}

func splitMessage(in SplitInput, available int) string {
	if in.Secondary.ID != in.Primary.ID {
		return fmt.Sprintf(
			"Your request for %d days exceeds your remaining %s balance of %d days. The remaining %d days can be taken as %s.",
			in.RequestedDays, in.Primary.Name, available, in.RequestedDays-available, in.Secondary.Name)
	}
	return fmt.Sprintf(
		"Your request for %d days exceeds your available balance of %d days (based on your %s) for %s.",
		in.RequestedDays, available, in.Factor.Describe(), in.Primary.Name)
}
