/*
workdays.go - Working-day calculator

PURPOSE:
  Counts business days in an inclusive date range, excluding weekends and
  any date in the injected holiday calendar. Pure and deterministic for a
  given calendar; a vacation request's day cost is always computed here,
  never supplied by the caller.
*/
package engine

// WorkingDays counts the working days in [start, end] inclusive.
// Saturdays, Sundays, and calendar holidays are excluded. Returns
// ErrInvalidRange when start is after end.
func WorkingDays(start, end Date, calendar HolidayCalendar) (Days, error) {
	if start.After(end) {
		return ZeroDays(), ErrInvalidRange
	}
	if calendar == nil {
		calendar = NoHolidays{}
	}

	count := 0
	for d := start; d.BeforeOrEqual(end); d = d.AddDays(1) {
		if d.IsWeekend() {
			continue
		}
		if calendar.IsHoliday(d) {
			continue
		}
		count++
	}
	return DaysFromInt(count), nil
}

// SpansYears reports whether the range crosses a calendar-year boundary.
func SpansYears(start, end Date) bool {
	return start.Year() != end.Year()
}
