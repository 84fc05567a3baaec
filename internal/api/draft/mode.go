package draft

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/FACorreiaa/go-trekly-itineraries/internal/types"
)

// routeModes keys travel modes by the upper-cased transportation type.
var routeModes = map[string]types.TravelMode{
	"DRIVE":       types.TravelModeDriving,
	"WALK":        types.TravelModeWalking,
	"BICYCLE":     types.TravelModeBicycling,
	"TRANSIT":     types.TravelModeTransit,
	"TWO_WHEELER": types.TravelModeTwoWheeler,
}

// TravelModeFor maps the itinerary's transportation type to a route travel mode.
// Undecided has no mode and no routes are computed for it.
func TravelModeFor(t types.TransportationType) (types.TravelMode, bool) {
	// A Caser is stateful, so each call gets its own.
	mode, ok := routeModes[cases.Upper(language.Und).String(string(t))]
	return mode, ok
}
