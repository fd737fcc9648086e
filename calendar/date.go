/*
Package calendar provides the date arithmetic used by the leave engine.

PURPOSE:
  Every comparison in the engine happens on normalized dates: a Date is a
  UTC-midnight instant with no time-of-day component. Converting at the edges
  (parsing, Normalize) removes timezone drift between the HTTP layer, the
  store and the clock.

KEY TYPES:
  Date:   a calendar date, serialized as YYYY-MM-DD
  Policy: how a date range is turned into a day count (calendar or working days)
  Window: an inclusive date window (a calendar month or year)
  Clock:  injectable source of "today"

SEE ALSO:
  - counting.go: DayCount and Advance
  - holidays.go: HolidayCalendar implementations
*/
package calendar

import (
	"encoding/json"
	"fmt"
	"time"
)

// ISOLayout is the wire format for all dates.
const ISOLayout = "2006-01-02"

// =============================================================================
// DATE
// =============================================================================

// Date is a calendar date anchored at UTC midnight.
type Date struct {
	t time.Time
}

// New builds a Date from its components. Out-of-range values roll over the
// same way time.Date does.
func New(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// Normalize strips the time-of-day from t. The calendar date is taken in t's
// own location, then re-anchored at UTC midnight.
func Normalize(t time.Time) Date {
	if t.IsZero() {
		return Date{}
	}
	return New(t.Year(), t.Month(), t.Day())
}

// ParseISO parses a YYYY-MM-DD string.
func ParseISO(s string) (Date, error) {
	t, err := time.ParseInLocation(ISOLayout, s, time.UTC)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", s, err)
	}
	return Date{t: t}, nil
}

// MustParseISO is ParseISO for constants and tests.
func MustParseISO(s string) Date {
	d, err := ParseISO(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) Time() time.Time       { return d.t }
func (d Date) IsZero() bool          { return d.t.IsZero() }
func (d Date) Year() int             { return d.t.Year() }
func (d Date) Month() time.Month     { return d.t.Month() }
func (d Date) Day() int              { return d.t.Day() }
func (d Date) Weekday() time.Weekday { return d.t.Weekday() }

// AddDays returns the date n days later (n may be negative).
func (d Date) AddDays(n int) Date { return Date{t: d.t.AddDate(0, 0, n)} }

// ISO serializes the date as YYYY-MM-DD. The zero Date serializes as "".
func (d Date) ISO() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(ISOLayout)
}

func (d Date) String() string { return d.ISO() }

// Comparison
func (d Date) Before(o Date) bool        { return d.t.Before(o.t) }
func (d Date) After(o Date) bool         { return d.t.After(o.t) }
func (d Date) Equal(o Date) bool         { return d.t.Equal(o.t) }
func (d Date) BeforeOrEqual(o Date) bool { return !d.After(o) }
func (d Date) AfterOrEqual(o Date) bool  { return !d.Before(o) }

// Min returns the earlier of a and b.
func Min(a, b Date) Date {
	if a.Before(b) {
		return a
	}
	return b
}

// Max returns the later of a and b.
func Max(a, b Date) Date {
	if a.After(b) {
		return a
	}
	return b
}

// MarshalJSON encodes the date as "YYYY-MM-DD", or null for the zero Date.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.ISO())
}

// UnmarshalJSON accepts "YYYY-MM-DD", "" or null.
func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseISO(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// =============================================================================
// WINDOW
// =============================================================================

// Window is an inclusive date range [Start, End].
type Window struct {
	Start Date
	End   Date
}

// MonthOf returns the calendar month containing d.
func MonthOf(d Date) Window {
	start := New(d.Year(), d.Month(), 1)
	return Window{Start: start, End: New(d.Year(), d.Month()+1, 1).AddDays(-1)}
}

// YearOf returns the calendar year containing d.
func YearOf(d Date) Window {
	return Window{Start: New(d.Year(), time.January, 1), End: New(d.Year(), time.December, 31)}
}

// Contains reports whether d lies inside the window.
func (w Window) Contains(d Date) bool {
	return d.AfterOrEqual(w.Start) && d.BeforeOrEqual(w.End)
}

// Intersect clips [start, end] to the window. ok is false when the ranges do
// not overlap.
func (w Window) Intersect(start, end Date) (from, to Date, ok bool) {
	from = Max(start, w.Start)
	to = Min(end, w.End)
	if from.After(to) {
		return Date{}, Date{}, false
	}
	return from, to, true
}

func (w Window) String() string {
	return "[" + w.Start.ISO() + ", " + w.End.ISO() + "]"
}
