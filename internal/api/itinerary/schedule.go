package itinerary

import (
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/FACorreiaa/go-trekly-itineraries/internal/api/format"
	"github.com/FACorreiaa/go-trekly-itineraries/internal/types"
)

// sortActivities orders activities by start time, breaking ties by id.
func sortActivities(activities []types.Activity) {
	sort.SliceStable(activities, func(i, j int) bool {
		a, b := activities[i], activities[j]
		if a.FromTime.Equal(b.FromTime) {
			return a.ID < b.ID
		}
		return a.FromTime.Before(b.FromTime)
	})
}

// GroupByDate buckets activities by the calendar date of their start time. Each bucket
// is ordered by start time.
func GroupByDate(activities []types.Activity) map[string][]types.Activity {
	sorted := append([]types.Activity(nil), activities...)
	sortActivities(sorted)
	return lo.GroupBy(sorted, func(a types.Activity) string {
		return format.DayKey(a.FromTime)
	})
}

// BuildSchedule lays out one DaySchedule per date from `from` through the later of
// `to` and the last activity date. Days without activities are marked NothingPlanned.
func BuildSchedule(from, to time.Time, activities []types.Activity) []types.DaySchedule {
	groups := GroupByDate(activities)

	start := format.Day(from)
	end := format.Day(to)
	for key := range groups {
		day, err := time.ParseInLocation(types.DateLayout, key, end.Location())
		if err == nil && day.After(end) {
			end = day
		}
	}

	days := make([]types.DaySchedule, 0, format.DaysBetween(start, end)+1)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		bucket := groups[format.DayKey(d)]
		days = append(days, types.DaySchedule{
			Date:           d,
			Label:          format.ActivityDate(d),
			Activities:     lo.Ternary(bucket == nil, []types.Activity{}, bucket),
			NothingPlanned: len(bucket) == 0,
		})
	}
	return days
}
