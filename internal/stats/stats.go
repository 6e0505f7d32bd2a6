// Package stats reduces one user's presence history into weekday and
// monthly figures. All functions are pure and safe for concurrent use.
package stats

import (
	"slices"
	"time"

	"presenceanalyzer/internal/presence"
)

// Number is any numeric type the reductions accept.
type Number interface {
	~int | ~int64 | ~float64
}

// WeekdayBucket holds one slot per weekday, Monday=0 through Sunday=6.
type WeekdayBucket [7][]int

// Window is the mean start and end of presence, in seconds since midnight.
type Window struct {
	Start float64
	End   float64
}

// MonthHours is the total presence of one month.
type MonthHours struct {
	Month string
	Hours float64
}

// YearHours holds all twelve months of one year in calendar order.
type YearHours struct {
	Year   int
	Months [12]MonthHours
}

// Mean returns the arithmetic mean of items, or 0 when items is empty.
func Mean[T Number](items []T) float64 {
	if len(items) == 0 {
		return 0
	}
	return float64(Sum(items)) / float64(len(items))
}

// Sum returns the total of items, or 0 when items is empty.
func Sum[T Number](items []T) T {
	var total T
	for _, v := range items {
		total += v
	}
	return total
}

// GroupByWeekday collects the duration of every date into its weekday slot,
// in ascending date order. Slots without data are empty, never nil.
func GroupByWeekday(p presence.UserPresence) WeekdayBucket {
	var out WeekdayBucket
	for i := range out {
		out[i] = []int{}
	}
	for _, d := range p.Dates() {
		rec := p[d]
		wd := d.Weekday()
		out[wd] = append(out[wd], presence.Interval(rec.Start, rec.End))
	}
	return out
}

// UsualPresenceTime returns, for each weekday, the mean start and the mean
// end in seconds since midnight. Weekdays without data are {0, 0}.
func UsualPresenceTime(p presence.UserPresence) [7]Window {
	var starts, ends [7][]int
	for _, d := range p.Dates() {
		rec := p[d]
		wd := d.Weekday()
		starts[wd] = append(starts[wd], presence.SecondsSinceMidnight(rec.Start))
		ends[wd] = append(ends[wd], presence.SecondsSinceMidnight(rec.End))
	}

	var out [7]Window
	for wd := range out {
		out[wd] = Window{Start: Mean(starts[wd]), End: Mean(ends[wd])}
	}
	return out
}

// GroupByMonth sums durations per calendar month and converts them to hours.
// Every year present in p gets all twelve months; years are ascending.
func GroupByMonth(p presence.UserPresence) []YearHours {
	totals := make(map[int]*[12]int)
	for _, d := range p.Dates() {
		rec := p[d]
		year, ok := totals[d.Year]
		if !ok {
			year = new([12]int)
			totals[d.Year] = year
		}
		year[d.Month-1] += presence.Interval(rec.Start, rec.End)
	}

	years := make([]int, 0, len(totals))
	for y := range totals {
		years = append(years, y)
	}
	slices.Sort(years)

	out := make([]YearHours, 0, len(years))
	for _, y := range years {
		yh := YearHours{Year: y}
		for m, secs := range totals[y] {
			yh.Months[m] = MonthHours{
				Month: MonthAbbr(time.Month(m + 1)),
				Hours: float64(secs) / 3600,
			}
		}
		out = append(out, yh)
	}
	return out
}

var weekdayAbbr = [7]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// WeekdayAbbr returns the English abbreviation for a Monday=0 weekday index.
func WeekdayAbbr(wd int) string {
	return weekdayAbbr[wd]
}

// MonthAbbr returns the English three-letter abbreviation of m.
func MonthAbbr(m time.Month) string {
	return m.String()[:3]
}
