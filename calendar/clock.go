package calendar

import "time"

// Clock is the source of the current instant. "Today" is always derived in
// UTC so that retroactive checks do not depend on server locale.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns the same instant.
type FixedClock struct {
	At time.Time
}

func (c FixedClock) Now() time.Time { return c.At }

// FixedAt returns a clock pinned to midnight UTC of d.
func FixedAt(d Date) FixedClock { return FixedClock{At: d.Time()} }

// Today returns the current UTC date according to clock. A nil clock reads
// the wall clock.
func Today(clock Clock) Date {
	if clock == nil {
		clock = SystemClock{}
	}
	return Normalize(clock.Now().UTC())
}
