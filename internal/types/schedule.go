package types

import "time"

// DaySchedule is one calendar day of the itinerary view. NothingPlanned days are still
// emitted so that the range has no gaps.
type DaySchedule struct {
	Date           time.Time  `json:"date"`
	Label          string     `json:"label"`
	Activities     []Activity `json:"activities"`
	NothingPlanned bool       `json:"nothing_planned"`
}
