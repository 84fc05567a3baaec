// Package format renders the display strings shown next to itineraries, stays and
// activities.
package format

import (
	"fmt"
	"time"
)

const (
	monthDay    = "Jan 2"
	clock       = "3:04 PM"
	weekdayDate = "Mon, Jan 2"
	dayLayout   = "2006-01-02"
)

// TripDuration counts both ends of the range: "1 day", "3 days".
func TripDuration(from, to time.Time) string {
	days := DaysBetween(from, to) + 1
	if days > 1 {
		return fmt.Sprintf("%d days", days)
	}
	return fmt.Sprintf("%d day", days)
}

// DateRange renders "Apr 1 - Apr 5". Used for itineraries and accommodation stays.
func DateRange(from, to time.Time) string {
	return from.Format(monthDay) + " - " + to.Format(monthDay)
}

func ActivityTime(t time.Time) string {
	return t.Format(clock)
}

func ActivityTimes(from, to time.Time) string {
	return ActivityTime(from) + " - " + ActivityTime(to)
}

// ActivityDuration is the whole number of hours, truncated: 9:00 to 13:30 is "4h".
func ActivityDuration(from, to time.Time) string {
	return fmt.Sprintf("%dh", int64(to.Sub(from)/time.Hour))
}

func ActivityDate(t time.Time) string {
	return t.Format(weekdayDate)
}

// CheckTime turns a stored "15:04" wall-clock time into "3:04 PM". Unparseable input
// is returned unchanged.
func CheckTime(hhmm string) string {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return hhmm
	}
	return t.Format(clock)
}

// Day truncates t to its calendar date, keeping its location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DayKey is the "2006-01-02" key of t's calendar date.
func DayKey(t time.Time) string {
	return t.Format(dayLayout)
}

// DaysBetween counts calendar days from from to to, ignoring the time of day.
func DaysBetween(from, to time.Time) int {
	f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(t.Sub(f).Hours() / 24)
}
