package leave

import "github.com/warp/leave-engine/calendar"

// =============================================================================
// OVERLAP ACCUMULATOR
// =============================================================================

// DaysConsumedInWindow sums the counted days of every pending or approved
// request that falls inside window. Requests straddling a window edge only
// contribute their overlap. Callers pre-filter by employee and leave type.
func DaysConsumedInWindow(requests []LeaveRequest, window calendar.Window, policy calendar.Policy) int {
	total := 0
	for _, r := range requests {
		if !r.Status.Consumes() {
			continue
		}
		from, to, ok := window.Intersect(r.StartDate, r.EndDate)
		if !ok {
			continue
		}
		total += policy.DayCount(from, to)
	}
	return total
}

// Predicate selects requests.
type Predicate func(LeaveRequest) bool

// Select returns the requests matching every predicate.
func Select(requests []LeaveRequest, preds ...Predicate) []LeaveRequest {
	var out []LeaveRequest
next:
	for _, r := range requests {
		for _, p := range preds {
			if !p(r) {
				continue next
			}
		}
		out = append(out, r)
	}
	return out
}

// OfType matches requests of one leave type.
func OfType(leaveTypeID string) Predicate {
	return func(r LeaveRequest) bool { return r.LeaveTypeID == leaveTypeID }
}

// Excluding drops one request by id.
func Excluding(requestID string) Predicate {
	return func(r LeaveRequest) bool { return r.ID != requestID }
}

// PaidOnly matches requests whose leave type is not unpaid. Requests of an
// unknown type are treated as paid.
func PaidOnly(types map[string]LeaveType) Predicate {
	return func(r LeaveRequest) bool {
		lt, ok := types[r.LeaveTypeID]
		return !ok || !lt.IsUnpaid
	}
}
