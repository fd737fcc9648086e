package calendar

import "sync"

// =============================================================================
// HOLIDAY CALENDAR
// =============================================================================

// Holiday is a public holiday that does not count under the working-day policy.
type Holiday struct {
	ID   string `json:"id"`
	Date Date   `json:"date"`
	Name string `json:"name"`
}

// HolidayCalendar answers holiday lookups for day counting.
type HolidayCalendar interface {
	IsHoliday(d Date) bool
}

// HolidaySet is an in-memory HolidayCalendar keyed by ISO date.
type HolidaySet map[string]string

// NewHolidaySet indexes holidays by date.
func NewHolidaySet(holidays ...Holiday) HolidaySet {
	s := make(HolidaySet, len(holidays))
	for _, h := range holidays {
		s[h.Date.ISO()] = h.Name
	}
	return s
}

func (s HolidaySet) IsHoliday(d Date) bool {
	_, ok := s[d.ISO()]
	return ok
}

type noHolidays struct{}

func (noHolidays) IsHoliday(Date) bool { return false }

// NoHolidays is used when holiday exclusion is disabled.
var NoHolidays HolidayCalendar = noHolidays{}

// HolidayCache is a HolidayCalendar that can be replaced while policies
// holding it are in use.
type HolidayCache struct {
	mu  sync.RWMutex
	set HolidaySet
}

// NewHolidayCache returns a cache seeded with holidays.
func NewHolidayCache(holidays ...Holiday) *HolidayCache {
	return &HolidayCache{set: NewHolidaySet(holidays...)}
}

func (c *HolidayCache) IsHoliday(d Date) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.set.IsHoliday(d)
}

// Replace swaps the cached holidays.
func (c *HolidayCache) Replace(holidays []Holiday) {
	set := NewHolidaySet(holidays...)
	c.mu.Lock()
	c.set = set
	c.mu.Unlock()
}
