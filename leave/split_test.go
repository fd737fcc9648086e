package leave_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/calendar"
	"github.com/warp/leave-engine/leave"
)

func TestPropose_PartitionsExactly(t *testing.T) {
	policies := map[string]calendar.Policy{
		"calendar": calendar.CalendarDays(),
		"working":  calendar.WorkingDays(time.Sunday, calendar.NewHolidaySet(calendar.Holiday{Date: d("2025-03-12")})),
	}
	ranges := [][2]string{
		{"2025-03-10", "2025-03-10"},
		{"2025-03-10", "2025-03-16"},
		{"2025-03-08", "2025-03-31"},
		{"2025-12-29", "2026-01-04"},
	}

	for name, p := range policies {
		for _, rg := range ranges {
			start, end := d(rg[0]), d(rg[1])
			requested := p.DayCount(start, end)
			for available := -2; available < requested; available++ {
				t.Run(fmt.Sprintf("%s/%s..%s/avail=%d", name, rg[0], rg[1], available), func(t *testing.T) {
					dec := leave.Propose(leave.SplitInput{
						Start: start, End: end,
						RequestedDays: requested,
						Available:     available,
						Primary:       annualLeave,
						Secondary:     annualLeave,
						Factor:        leave.FactorMonthlyAllowance,
						Policy:        p,
					})

					require.Equal(t, leave.DecisionSplitProposal, dec.Status)
					prop := dec.Proposal
					sec := prop.Secondary
					primaryDays := 0
					if prop.Primary != nil {
						primaryDays = prop.Primary.Days
						assert.Equal(t, start, prop.Primary.StartDate)
						assert.Equal(t, prop.Primary.EndDate.AddDays(1), sec.StartDate)
						assert.Equal(t, prop.Primary.Days, p.DayCount(prop.Primary.StartDate, prop.Primary.EndDate))
					} else {
						assert.Equal(t, start, sec.StartDate)
					}
					assert.Equal(t, max(0, available), primaryDays)
					assert.Equal(t, requested, primaryDays+sec.Days)
					assert.Equal(t, end, sec.EndDate)
					assert.Equal(t, sec.Days, p.DayCount(sec.StartDate, sec.EndDate))
				})
			}
		}
	}
}

func TestPropose_Deterministic(t *testing.T) {
	in := leave.SplitInput{
		Start: d("2025-03-10"), End: d("2025-03-19"),
		RequestedDays: 10, Available: 4,
		Primary: sickLeave, Secondary: unpaidLeave,
		Factor: leave.FactorAnnualAllowance,
		Policy: calendar.CalendarDays(),
	}
	assert.Equal(t, leave.Propose(in), leave.Propose(in))
}

func TestPropose_FallbackMessage(t *testing.T) {
	dec := leave.Propose(leave.SplitInput{
		Start: d("2025-03-10"), End: d("2025-03-13"),
		RequestedDays: 4, Available: 1,
		Primary: sickLeave, Secondary: unpaidLeave,
		Factor: leave.FactorAnnualAllowance,
		Policy: calendar.CalendarDays(),
	})
	assert.Equal(t,
		"Your request for 4 days exceeds your remaining Sick Leave balance of 1 days. The remaining 3 days can be taken as Unpaid Leave.",
		dec.Message)
}
