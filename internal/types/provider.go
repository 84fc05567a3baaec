package types

// LatLng is a WGS84 coordinate.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// PlaceFields selects how much of a place the provider fetches.
type PlaceFields int

const (
	// PlaceFieldsBasic fetches id and coordinates.
	PlaceFieldsBasic PlaceFields = iota
	// PlaceFieldsFull adds name, address, rating and the first photo.
	PlaceFieldsFull
)

type PlaceDetails struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Location LatLng   `json:"location"`
	Address  string   `json:"address,omitempty"`
	Rating   *float64 `json:"rating,omitempty"`
	// PhotoName is the provider resource name of the first photo, when any.
	PhotoName string `json:"photo_name,omitempty"`
	Photo     []byte `json:"-"`
}

type Prediction struct {
	PlaceID       string `json:"place_id"`
	PrimaryText   string `json:"primary_text"`
	SecondaryText string `json:"secondary_text"`
	FullText      string `json:"full_text"`
}

type TravelMode string

const (
	TravelModeDriving    TravelMode = "DRIVING"
	TravelModeWalking    TravelMode = "WALKING"
	TravelModeBicycling  TravelMode = "BICYCLING"
	TravelModeTransit    TravelMode = "TRANSIT"
	TravelModeTwoWheeler TravelMode = "TWO_WHEELER"
)

type Vehicle struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type TransitLine struct {
	Name      string   `json:"name"`
	ShortName string   `json:"short_name,omitempty"`
	Vehicle   *Vehicle `json:"vehicle,omitempty"`
}

// TransitStep is one transit ride within a TRANSIT route leg.
type TransitStep struct {
	Mode     string       `json:"mode"`
	Headsign string       `json:"headsign"`
	Line     *TransitLine `json:"line,omitempty"`
	Distance string       `json:"distance"`
	Duration string       `json:"duration"`
}

type RouteInfo struct {
	Polyline     []LatLng      `json:"polyline"`
	Distance     string        `json:"distance"`
	Duration     string        `json:"duration"`
	TransitSteps []TransitStep `json:"transit_steps,omitempty"`
}

// RouteLeg is a computed route between stops FromIndex and ToIndex of the input list.
type RouteLeg struct {
	FromIndex int       `json:"from_index"`
	ToIndex   int       `json:"to_index"`
	Route     RouteInfo `json:"route"`
}

// MapStop is a resolved place on the itinerary map, in activity start order.
type MapStop struct {
	GoogleMapsPlaceID string `json:"google_maps_place_id"`
	Name              string `json:"name"`
	Notes             string `json:"notes"`
	Location          LatLng `json:"location"`
}
