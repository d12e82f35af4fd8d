package engine

import (
	"time"
)

// =============================================================================
// DATE - Day-granularity time point (vacation is booked in whole dates)
// =============================================================================

// Date is a calendar date normalized to UTC midnight. Requests and holidays
// are keyed by Date, never by wall-clock time.
type Date struct {
	Time time.Time
}

// Constructors
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

func Today() Date {
	return DateOf(time.Now().UTC())
}

// ParseDate parses an ISO date (2006-01-02).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

// Comparison
func (d Date) Before(o Date) bool        { return d.normalize().Before(o.normalize()) }
func (d Date) After(o Date) bool         { return d.normalize().After(o.normalize()) }
func (d Date) Equal(o Date) bool         { return d.normalize().Equal(o.normalize()) }
func (d Date) BeforeOrEqual(o Date) bool { return d.Before(o) || d.Equal(o) }
func (d Date) AfterOrEqual(o Date) bool  { return d.After(o) || d.Equal(o) }

func (d Date) normalize() time.Time {
	return time.Date(d.Time.Year(), d.Time.Month(), d.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Arithmetic
func (d Date) AddDays(n int) Date { return Date{Time: d.Time.AddDate(0, 0, n)} }

// Properties
func (d Date) Year() int             { return d.Time.Year() }
func (d Date) Month() time.Month     { return d.Time.Month() }
func (d Date) Day() int              { return d.Time.Day() }
func (d Date) Weekday() time.Weekday { return d.Time.Weekday() }
func (d Date) IsZero() bool          { return d.Time.IsZero() }

func (d Date) IsWeekend() bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func (d Date) String() string { return d.Time.Format("2006-01-02") }

// =============================================================================
// HOLIDAY CALENDAR - Injected, never hard-coded
// =============================================================================

// Holiday is a company holiday that does not count against vacation.
type Holiday struct {
	ID        string
	Date      Date
	Name      string
	CreatedAt time.Time
}

// HolidayCalendar provides holiday lookups for the working-day calculator.
type HolidayCalendar interface {
	// IsHoliday checks if a date is a company holiday.
	IsHoliday(date Date) bool

	// Holidays returns all holidays in a given year.
	Holidays(year int) []Holiday
}

// HolidaySet is a map-backed HolidayCalendar, handy for tests and for
// snapshotting a store's holidays before a date-range loop.
type HolidaySet struct {
	byDate map[string]Holiday
}

func NewHolidaySet(holidays ...Holiday) *HolidaySet {
	set := &HolidaySet{byDate: make(map[string]Holiday, len(holidays))}
	for _, h := range holidays {
		set.byDate[h.Date.String()] = h
	}
	return set
}

func (s *HolidaySet) IsHoliday(date Date) bool {
	_, ok := s.byDate[date.String()]
	return ok
}

func (s *HolidaySet) Holidays(year int) []Holiday {
	var out []Holiday
	for _, h := range s.byDate {
		if h.Date.Year() == year {
			out = append(out, h)
		}
	}
	return out
}

// NoHolidays is a no-op calendar for when no holiday data is configured.
type NoHolidays struct{}

func (NoHolidays) IsHoliday(Date) bool      { return false }
func (NoHolidays) Holidays(int) []Holiday   { return nil }
