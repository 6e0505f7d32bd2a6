// Package calendar renders a user's usual weekly presence window as an
// iCalendar feed: one weekly recurring event per weekday with data.
package calendar

import (
	"errors"
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	appLog "presenceanalyzer/internal/log"
	"presenceanalyzer/internal/stats"
)

const (
	productID = "-//presence-analyzer//usual presence//EN"

	icalLocalLayout = "20060102T150405"
	icalUTCLayout   = "20060102T150405Z"
)

// rruleWeekdays maps Monday=0 weekday indexes to RRULE BYDAY values.
var rruleWeekdays = [7]rrule.Weekday{rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA, rrule.SU}

// Feed describes the calendar to build.
type Feed struct {
	UserID int
	// Name is the display name used in the calendar and event summaries.
	Name string
	// Windows is the usual arrival/departure per weekday, in seconds since midnight.
	Windows [7]stats.Window
	// Anchor is the moment from which the first occurrence is searched; it
	// also stamps DTSTAMP so the output is reproducible.
	Anchor time.Time
	// Location is the timezone the seconds-since-midnight values refer to.
	// If nil, time.Local is used.
	Location *time.Location
}

// WeeklyPresence builds the calendar for f. Weekdays whose window is empty
// or inverted (end not after start) get no event.
func WeeklyPresence(f Feed) (*ical.Calendar, error) {
	if f.Anchor.IsZero() {
		return nil, errors.New("calendar: anchor time is required")
	}
	loc := f.Location
	if loc == nil {
		loc = time.Local
	}
	name := f.Name
	if name == "" {
		name = fmt.Sprintf("User %d", f.UserID)
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	cal.SetXWRCalName(name + " - usual presence")

	if tzid := zoneID(loc); tzid != "" {
		cal.SetXWRTimezone(tzid)
	}

	anchor := f.Anchor.In(loc)
	midnight := time.Date(anchor.Year(), anchor.Month(), anchor.Day(), 0, 0, 0, 0, loc)

	for wd, w := range f.Windows {
		if w.End <= w.Start {
			if w.Start != 0 || w.End != 0 {
				appLog.Debug("calendar: skipping inverted window", "user_id", f.UserID, "weekday", stats.WeekdayAbbr(wd))
			}
			continue
		}

		first, err := firstOnOrAfter(midnight, wd)
		if err != nil {
			return nil, err
		}
		start := time.Date(first.Year(), first.Month(), first.Day(), 0, 0, int(w.Start), 0, loc)
		end := time.Date(first.Year(), first.Month(), first.Day(), 0, 0, int(w.End), 0, loc)

		weekly := rrule.ROption{
			Freq:      rrule.WEEKLY,
			Byweekday: []rrule.Weekday{rruleWeekdays[wd]},
		}

		ev := cal.AddEvent(fmt.Sprintf("presence-%d-%s@presence-analyzer", f.UserID, stats.WeekdayAbbr(wd)))
		ev.SetDtStampTime(f.Anchor.UTC())
		setWallTime(ev, ical.ComponentPropertyDtStart, start)
		setWallTime(ev, ical.ComponentPropertyDtEnd, end)
		ev.SetSummary(fmt.Sprintf("%s usually present", name))
		ev.SetDescription(fmt.Sprintf("Mean arrival %s, mean departure %s on %s.",
			clockString(w.Start), clockString(w.End), stats.WeekdayAbbr(wd)))
		ev.SetProperty(ical.ComponentPropertyRrule, weekly.RRuleString())
	}

	return cal, nil
}

// setWallTime writes t as a local wall-clock time so the weekly rule keeps the
// same hour across DST changes. Named zones carry a TZID; time.Local has no
// portable name and is written as floating time.
func setWallTime(ev *ical.VEvent, prop ical.ComponentProperty, t time.Time) {
	switch loc := t.Location(); {
	case loc == time.UTC:
		ev.SetProperty(prop, t.Format(icalUTCLayout))
	case zoneID(loc) != "":
		ev.SetProperty(prop, t.Format(icalLocalLayout), ical.WithTZID(zoneID(loc)))
	default:
		ev.SetProperty(prop, t.Format(icalLocalLayout))
	}
}

// zoneID returns the IANA name of loc, or "" for UTC and time.Local.
func zoneID(loc *time.Location) string {
	if loc == nil || loc == time.UTC || loc == time.Local {
		return ""
	}
	switch name := loc.String(); name {
	case "", "UTC", "Local":
		return ""
	default:
		return name
	}
}

// firstOnOrAfter returns the first date at or after from that falls on the
// Monday=0 weekday wd.
func firstOnOrAfter(from time.Time, wd int) (time.Time, error) {
	r, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Byweekday: []rrule.Weekday{rruleWeekdays[wd]},
		Dtstart:   from,
		Count:     1,
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("calendar: build rule: %w", err)
	}
	all := r.All()
	if len(all) == 0 {
		return time.Time{}, fmt.Errorf("calendar: no occurrence for weekday %d", wd)
	}
	return all[0], nil
}

func clockString(secs float64) string {
	s := int(secs)
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, s%3600/60, s%60)
}
