package calendar

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// COUNTING POLICY
// =============================================================================

// Mode selects how days inside a range are counted.
type Mode string

const (
	ModeCalendar   Mode = "calendar"    // every date counts
	ModeWorkingDay Mode = "working_day" // weekly off-day and holidays are skipped
)

// ParseMode parses a counting mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeCalendar, "":
		return ModeCalendar, nil
	case ModeWorkingDay, "working-day", "working":
		return ModeWorkingDay, nil
	}
	return "", fmt.Errorf("unknown counting mode %q", s)
}

// ParseWeekday parses an English weekday name ("sunday", "Sun").
func ParseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		name := strings.ToLower(wd.String())
		if s == name || s == name[:3] {
			return wd, nil
		}
	}
	return time.Sunday, fmt.Errorf("unknown weekday %q", s)
}

// Policy turns a date range into a day count.
type Policy struct {
	Mode Mode

	// OffDay is the weekly day that never counts under ModeWorkingDay.
	OffDay time.Weekday

	// Holidays are skipped under ModeWorkingDay. Nil means no holidays.
	Holidays HolidayCalendar
}

// CalendarDays counts every date.
func CalendarDays() Policy {
	return Policy{Mode: ModeCalendar}
}

// WorkingDays skips offDay and any date in holidays.
func WorkingDays(offDay time.Weekday, holidays HolidayCalendar) Policy {
	return Policy{Mode: ModeWorkingDay, OffDay: offDay, Holidays: holidays}
}

// Counts reports whether d contributes to a day count.
func (p Policy) Counts(d Date) bool {
	if p.Mode != ModeWorkingDay {
		return true
	}
	if d.Weekday() == p.OffDay {
		return false
	}
	if p.Holidays != nil && p.Holidays.IsHoliday(d) {
		return false
	}
	return true
}

// DayCount counts the days in [start, end], inclusive of both endpoints.
// It returns 0 when either date is zero or start is after end.
func (p Policy) DayCount(start, end Date) int {
	if start.IsZero() || end.IsZero() || start.After(end) {
		return 0
	}
	if p.Mode != ModeWorkingDay {
		return int(end.Time().Sub(start.Time()).Hours()/24) + 1
	}
	n := 0
	for d := start; !d.After(end); d = d.AddDays(1) {
		if p.Counts(d) {
			n++
		}
	}
	return n
}

// Advance returns the date on which the n-th counted day from start falls,
// never going past end. For n <= 0 it returns the day before start. Under
// ModeCalendar this is start.AddDays(n-1).
func (p Policy) Advance(start, end Date, n int) Date {
	if n <= 0 {
		return start.AddDays(-1)
	}
	if p.Mode != ModeWorkingDay {
		return Min(start.AddDays(n-1), end)
	}
	seen := 0
	d := start
	for ; !d.After(end); d = d.AddDays(1) {
		if p.Counts(d) {
			seen++
			if seen == n {
				return d
			}
		}
	}
	return end
}

func (p Policy) String() string {
	if p.Mode == ModeWorkingDay {
		return fmt.Sprintf("%s(off=%s)", p.Mode, p.OffDay)
	}
	return string(ModeCalendar)
}
