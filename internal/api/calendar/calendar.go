package calendar

import (
	"fmt"
	"log/slog"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/ringsaturn/tzf"

	"github.com/FACorreiaa/go-trekly-itineraries/internal/api/format"
	"github.com/FACorreiaa/go-trekly-itineraries/internal/types"
)

const (
	productID       = "-//trekly//itineraries//EN"
	localTimeLayout = "20060102T150405"
)

// ZoneFinder resolves an IANA time zone name from coordinates. tzf.F satisfies it.
type ZoneFinder interface {
	GetTimezoneName(lng float64, lat float64) string
}

var _ ZoneFinder = (tzf.F)(nil)

// NewZoneFinder loads the bundled time zone polygons.
func NewZoneFinder() (ZoneFinder, error) {
	f, err := tzf.NewDefaultFinder()
	if err != nil {
		return nil, fmt.Errorf("failed to load time zone data: %w", err)
	}
	return f, nil
}

type Exporter struct {
	logger *slog.Logger
	zones  ZoneFinder
	now    func() time.Time
}

func NewExporter(zones ZoneFinder, logger *slog.Logger) *Exporter {
	return &Exporter{logger: logger, zones: zones, now: time.Now}
}

// Zone returns the time zone of the first activity place with coordinates, or UTC.
// Activity times are wall-clock times at the destination.
func (e *Exporter) Zone(activities []types.Activity) string {
	if e.zones == nil {
		return "UTC"
	}
	for _, a := range activities {
		if a.Place == nil || (a.Place.Lat == 0 && a.Place.Lng == 0) {
			continue
		}
		if name := e.zones.GetTimezoneName(a.Place.Lng, a.Place.Lat); name != "" {
			return name
		}
		break
	}
	return "UTC"
}

// Export renders the itinerary as an iCalendar document: one event per activity and an
// all-day event per accommodation stay.
func (e *Exporter) Export(it *types.Itinerary, activities []types.Activity, accommodations []types.Accommodation) string {
	zone := e.Zone(activities)
	stamp := e.now().UTC()

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(productID)
	cal.SetXWRCalName(it.Name)
	cal.SetXWRTimezone(zone)

	for _, a := range activities {
		ev := cal.AddEvent(fmt.Sprintf("activity-%d@itinerary-%d", a.ID, it.ID))
		ev.SetDtStampTime(stamp)
		name := placeName(a.Place, "Activity")
		ev.SetSummary(name)
		ev.SetLocation(name)
		if a.Notes != "" {
			ev.SetDescription(a.Notes)
		}
		if zone == "UTC" {
			ev.SetStartAt(a.FromTime)
			ev.SetEndAt(a.ToTime)
			continue
		}
		tzid := &ics.KeyValues{Key: string(ics.ParameterTzid), Value: []string{zone}}
		ev.SetProperty(ics.ComponentPropertyDtStart, a.FromTime.Format(localTimeLayout), tzid)
		ev.SetProperty(ics.ComponentPropertyDtEnd, a.ToTime.Format(localTimeLayout), tzid)
	}

	for _, a := range accommodations {
		ev := cal.AddEvent(fmt.Sprintf("accommodation-%d@itinerary-%d", a.ID, it.ID))
		ev.SetDtStampTime(stamp)
		name := placeName(a.Place, "Accommodation")
		ev.SetSummary(name)
		ev.SetLocation(name)
		if a.Notes != "" {
			ev.SetDescription(a.Notes)
		}
		// DTEND of an all-day event is exclusive.
		ev.SetAllDayStartAt(format.Day(a.FromDate))
		ev.SetAllDayEndAt(format.Day(a.ToDate).AddDate(0, 0, 1))
	}

	e.logger.Debug("Calendar exported",
		slog.Int64("itinerary_id", it.ID),
		slog.String("zone", zone),
		slog.Int("events", len(activities)+len(accommodations)))
	return cal.Serialize()
}

// placeName falls back to kind for events whose place is missing or unnamed.
func placeName(p *types.Place, kind string) string {
	if p == nil || p.Name == "" {
		return kind
	}
	return p.Name
}
