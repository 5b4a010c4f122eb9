package booking

import (
	"fmt"
	"time"
)

// TimeSlots are the bookable times of day offered by the scheduler.
var TimeSlots = []string{
	"10:30 AM", "11:30 AM", "02:30 PM", "03:00 PM",
	"03:30 PM", "04:30 PM", "05:00 PM", "05:30 PM",
}

// Date is a calendar date with no time-of-day component.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf truncates t to its calendar date.
func DateOf(t time.Time) Date {
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// appointmentTimes combines a calendar date and a "hh:mm AM" slot into two
// ISO-8601 instants in loc: the start, and one hour later. Conversion
// failure is reported, never panicked.
func appointmentTimes(d Date, slot string, loc *time.Location) (string, string, error) {
	t, err := time.Parse("03:04 PM", slot)
	if err != nil {
		return "", "", fmt.Errorf("booking: parse time slot %q: %w", slot, err)
	}
	start := time.Date(d.Year, d.Month, d.Day, t.Hour(), t.Minute(), 0, 0, loc)
	// time.Date normalizes out-of-range components; a changed date means
	// the input was not a real calendar date.
	if start.Year() != d.Year || start.Month() != d.Month || start.Day() != d.Day {
		return "", "", fmt.Errorf("booking: invalid calendar date %04d-%02d-%02d", d.Year, d.Month, d.Day)
	}
	end := start.Add(time.Hour)
	return start.Format(time.RFC3339), end.Format(time.RFC3339), nil
}
