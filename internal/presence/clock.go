package presence

import (
	"fmt"
	"time"
)

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04:05"
)

// ClockTime is a wall-clock time of day without date or timezone.
type ClockTime struct {
	Hour   int
	Minute int
	Second int
}

// ParseClockTime parses an exact HH:MM:SS value.
func ParseClockTime(s string) (ClockTime, error) {
	t, err := time.Parse(clockLayout, s)
	if err != nil {
		return ClockTime{}, err
	}
	return ClockTime{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}, nil
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", c.Hour, c.Minute, c.Second)
}

// SecondsSinceMidnight returns the offset of t from 00:00:00 in seconds.
func SecondsSinceMidnight(t ClockTime) int {
	return t.Hour*3600 + t.Minute*60 + t.Second
}

// Interval returns the number of seconds from start to end. The result is
// zero or negative when end is not after start; it is never clamped.
func Interval(start, end ClockTime) int {
	return SecondsSinceMidnight(end) - SecondsSinceMidnight(start)
}

// Date is a calendar date usable as a map key.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses an exact YYYY-MM-DD value.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Time returns midnight of d in loc.
func (d Date) Time(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// Weekday returns the day of week with Monday=0 through Sunday=6.
func (d Date) Weekday() int {
	return (int(d.Time(time.UTC).Weekday()) + 6) % 7
}

// Before reports whether d is earlier than other.
func (d Date) Before(other Date) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}
