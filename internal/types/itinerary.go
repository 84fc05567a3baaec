package types

import (
	"time"

	"github.com/google/uuid"
)

// DateLayout is the wire layout for calendar dates (from_date, to_date).
const DateLayout = "2006-01-02"

// Itinerary is a user's trip. FromDate and ToDate are an inclusive calendar range
// stored at midnight UTC.
type Itinerary struct {
	ID          int64      `json:"id"`
	CreatedAt   time.Time  `json:"created_at"`
	Name        string     `json:"name"`
	Destination string     `json:"destination"`
	FromDate    time.Time  `json:"from_date"`
	ToDate      time.Time  `json:"to_date"`
	ShareCode   *string    `json:"share_code,omitempty"`
	Owner       *uuid.UUID `json:"owner,omitempty"`
	IsPublic    bool       `json:"is_public"`
	Thumbnail   *string    `json:"thumbnail,omitempty"`
}

// Place is a geocoded point of interest. Address is never persisted; it is filled in
// after the fact from the place provider.
type Place struct {
	ID                int64     `json:"id"`
	CreatedAt         time.Time `json:"created_at"`
	Name              string    `json:"name"`
	Lat               float64   `json:"lat"`
	Lng               float64   `json:"lng"`
	GoogleMapsPlaceID string    `json:"google_maps_place_id"`
	Address           *string   `json:"address,omitempty"`
}

// Activity is a scheduled visit to a Place within an Itinerary.
type Activity struct {
	ID          int64     `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	ItineraryID int64     `json:"itinerary_id"`
	FromTime    time.Time `json:"from_time"`
	ToTime      time.Time `json:"to_time"`
	PlaceID     int64     `json:"place_id"`
	Notes       string    `json:"notes"`
	Place       *Place    `json:"place,omitempty"`
}

// Accommodation is a stay. CheckIn and CheckOut are wall-clock times formatted "15:04".
type Accommodation struct {
	ID          int64     `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	ItineraryID int64     `json:"itinerary_id"`
	FromDate    time.Time `json:"from_date"`
	ToDate      time.Time `json:"to_date"`
	CheckIn     string    `json:"check_in"`
	CheckOut    string    `json:"check_out"`
	PlaceID     int64     `json:"place_id"`
	Notes       string    `json:"notes"`
	Place       *Place    `json:"place,omitempty"`
}

type TransportationType string

const (
	TransportationDrive      TransportationType = "Drive"
	TransportationBicycle    TransportationType = "Bicycle"
	TransportationWalk       TransportationType = "Walk"
	TransportationTwoWheeler TransportationType = "Two_wheeler"
	TransportationTransit    TransportationType = "Transit"
	TransportationUndecided  TransportationType = "Undecided"
)

func (t TransportationType) Valid() bool {
	switch t {
	case TransportationDrive, TransportationBicycle, TransportationWalk,
		TransportationTwoWheeler, TransportationTransit, TransportationUndecided:
		return true
	}
	return false
}

// Transportation is a leg between two points of the trip, optionally linked to the
// activities it connects.
type Transportation struct {
	ID               int64              `json:"id"`
	CreatedAt        time.Time          `json:"created_at"`
	ItineraryID      int64              `json:"itinerary_id"`
	Time             time.Time          `json:"time"`
	BookingReference *string            `json:"booking_reference,omitempty"`
	Number           *string            `json:"number,omitempty"`
	Type             TransportationType `json:"type"`
	Notes            string             `json:"notes"`
	FromActivityID   *int64             `json:"from_activity_id,omitempty"`
	ToActivityID     *int64             `json:"to_activity_id,omitempty"`
	Duration         *string            `json:"duration,omitempty"`
	Distance         *string            `json:"distance,omitempty"`
}

// ItineraryPlace is one row of get_places_from_itinerary, in activity start order.
type ItineraryPlace struct {
	GoogleMapsPlaceID string `json:"google_maps_place_id"`
	Name              string `json:"name"`
	Notes             string `json:"notes"`
}

type UpdateItineraryParams struct {
	Name        *string    `json:"name,omitempty"`
	Destination *string    `json:"destination,omitempty"`
	FromDate    *time.Time `json:"from_date,omitempty"`
	ToDate      *time.Time `json:"to_date,omitempty"`
	IsPublic    *bool      `json:"is_public,omitempty"`
	Thumbnail   *string    `json:"thumbnail,omitempty"`
}

type UpdatePlaceParams struct {
	Name              *string  `json:"name,omitempty"`
	Lat               *float64 `json:"lat,omitempty"`
	Lng               *float64 `json:"lng,omitempty"`
	GoogleMapsPlaceID *string  `json:"google_maps_place_id,omitempty"`
}

type UpdateActivityParams struct {
	FromTime *time.Time `json:"from_time,omitempty"`
	ToTime   *time.Time `json:"to_time,omitempty"`
	Notes    *string    `json:"notes,omitempty"`
}

type UpdateAccommodationParams struct {
	FromDate *time.Time `json:"from_date,omitempty"`
	ToDate   *time.Time `json:"to_date,omitempty"`
	CheckIn  *string    `json:"check_in,omitempty"`
	CheckOut *string    `json:"check_out,omitempty"`
	Notes    *string    `json:"notes,omitempty"`
}

type UpdateTransportationParams struct {
	Time             *time.Time          `json:"time,omitempty"`
	Number           *string             `json:"number,omitempty"`
	BookingReference *string             `json:"booking_reference,omitempty"`
	Type             *TransportationType `json:"type,omitempty"`
	Notes            *string             `json:"notes,omitempty"`
}

// Profile holds a traveller's stated preferences, keyed by the auth user id.
type Profile struct {
	ID               uuid.UUID `json:"id"`
	FirstName        *string   `json:"first_name,omitempty"`
	LastName         *string   `json:"last_name,omitempty"`
	TravelPace       *string   `json:"travel_pace,omitempty"`
	LanguagesSpoken  *string   `json:"languages_spoken,omitempty"`
	CountriesToVisit *string   `json:"countries_to_visit,omitempty"`
	TravelBudget     *string   `json:"travel_budget,omitempty"`
}
