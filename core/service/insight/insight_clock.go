package insight

import "time"

// =============================================================================
// Business-Hours Clock
// =============================================================================

const (
	businessOpenHour  = 9
	businessCloseHour = 17
)

// BusinessHours measures elapsed time counting only Monday-Friday
// [09:00, 17:00) in Location.
type BusinessHours struct {
	Location *time.Location
}

// NewBusinessHours returns a clock for loc; nil means time.Local.
func NewBusinessHours(loc *time.Location) *BusinessHours {
	if loc == nil {
		loc = time.Local
	}
	return &BusinessHours{Location: loc}
}

// Elapsed returns the minutes between start and end. With useBusinessHours
// the result is a whole number of working minutes, otherwise the raw
// (fractional) difference. end before start yields 0.
func (b *BusinessHours) Elapsed(start, end time.Time, useBusinessHours bool) float64 {
	if !end.After(start) {
		return 0
	}
	if !useBusinessHours {
		return end.Sub(start).Minutes()
	}
	return float64(b.Minutes(start, end))
}

// Minutes counts the minute ticks start, start+1m, ... before end that fall
// inside business hours. Once a tick leaves a window the walk resumes at the
// next opening time, so ticks inside later windows are aligned to 09:00.
// Whole windows are counted at once instead of walking each minute.
func (b *BusinessHours) Minutes(start, end time.Time) int {
	loc := b.location()
	cur := start.In(loc)
	end = end.In(loc)

	total := 0
	for cur.Before(end) {
		if !isWorkday(cur.Weekday()) || cur.Hour() >= businessCloseHour {
			cur = nextOpening(cur, loc)
			continue
		}
		if cur.Hour() < businessOpenHour {
			cur = atHour(cur, businessOpenHour, loc)
			continue
		}

		closing := atHour(cur, businessCloseHour, loc)
		stop := closing
		if end.Before(stop) {
			stop = end
		}
		total += int((stop.Sub(cur) + time.Minute - 1) / time.Minute)
		cur = closing
	}
	return total
}

func (b *BusinessHours) location() *time.Location {
	if b == nil || b.Location == nil {
		return time.Local
	}
	return b.Location
}

func isWorkday(d time.Weekday) bool {
	return d >= time.Monday && d <= time.Friday
}

func atHour(t time.Time, hour int, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, hour, 0, 0, 0, loc)
}

// nextOpening returns 09:00 of the first workday after t's date.
func nextOpening(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	next := time.Date(y, m, d+1, businessOpenHour, 0, 0, 0, loc)
	for !isWorkday(next.Weekday()) {
		y, m, d = next.Date()
		next = time.Date(y, m, d+1, businessOpenHour, 0, 0, 0, loc)
	}
	return next
}
