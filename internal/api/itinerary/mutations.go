package itinerary

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-trekly-itineraries/internal/types"
)

// NewActivity describes an activity to add at a provider place.
type NewActivity struct {
	GoogleMapsPlaceID string    `json:"google_maps_place_id"`
	Name              string    `json:"name"`
	FromTime          time.Time `json:"from_time"`
	ToTime            time.Time `json:"to_time"`
	Notes             string    `json:"notes"`
}

// ActivityChanges is a partial activity update. A new GoogleMapsPlaceID re-binds the
// activity's place in place.
type ActivityChanges struct {
	GoogleMapsPlaceID *string    `json:"google_maps_place_id,omitempty"`
	Name              *string    `json:"name,omitempty"`
	FromTime          *time.Time `json:"from_time,omitempty"`
	ToTime            *time.Time `json:"to_time,omitempty"`
	Notes             *string    `json:"notes,omitempty"`
}

// NewAccommodation describes a stay at a provider place.
type NewAccommodation struct {
	GoogleMapsPlaceID string    `json:"google_maps_place_id"`
	Name              string    `json:"name"`
	FromDate          time.Time `json:"from_date"`
	ToDate            time.Time `json:"to_date"`
	CheckIn           string    `json:"check_in"`
	CheckOut          string    `json:"check_out"`
	Notes             string    `json:"notes"`
}

func (s *Session) span(ctx context.Context, method string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.Int64("itinerary.id", s.itineraryID))
	return otel.Tracer("ItinerarySession").Start(ctx, method, trace.WithAttributes(attrs...))
}

func fail(span trace.Span, err error, msg string) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
	return err
}

// placeFor resolves a provider place id with full fields and falls back to fallbackName
// when the provider has no display name. A place the provider cannot resolve is kept
// under fallbackName at 0,0 with its provider id, so the activity is still created;
// without a name there is nothing to store.
func (s *Session) placeFor(ctx context.Context, googleMapsPlaceID, fallbackName string) (types.Place, error) {
	details := s.places.ResolvePlaceByID(ctx, googleMapsPlaceID, types.PlaceFieldsFull)
	if details == nil {
		if strings.TrimSpace(fallbackName) == "" {
			return types.Place{}, fmt.Errorf("place %q has no name: %w", googleMapsPlaceID, types.ErrPlaceNotResolved)
		}
		s.logger.WarnContext(ctx, "Place not resolved, storing it at 0,0",
			slog.String("place_id", googleMapsPlaceID), slog.String("place_name", fallbackName))
		return types.Place{Name: fallbackName, GoogleMapsPlaceID: googleMapsPlaceID}, nil
	}
	name := details.Name
	if name == "" {
		name = fallbackName
	}
	p := types.Place{
		Name:              name,
		Lat:               details.Location.Lat,
		Lng:               details.Location.Lng,
		GoogleMapsPlaceID: details.ID,
	}
	if details.Address != "" {
		address := details.Address
		p.Address = &address
	}
	return p, nil
}

func (s *Session) AddActivity(ctx context.Context, in NewActivity) (activity types.Activity, err error) {
	ctx, span := s.span(ctx, "AddActivity", attribute.String("place.id", in.GoogleMapsPlaceID))
	defer span.End()
	l := s.logger.With(slog.String("method", "AddActivity"))

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.activities.IsSuccess() {
		return types.Activity{}, fail(span, types.ErrCollectionNotLoaded, "activities not loaded")
	}

	place, err := s.placeFor(ctx, in.GoogleMapsPlaceID, in.Name)
	if err != nil {
		l.WarnContext(ctx, "Could not resolve activity place", slog.Any("error", err))
		return types.Activity{}, fail(span, err, "place not resolved")
	}
	if place.ID, err = s.repo.InsertPlace(ctx, place); err != nil {
		l.ErrorContext(ctx, "Failed to insert place", slog.Any("error", err))
		return types.Activity{}, fail(span, err, "insert place failed")
	}

	activity = types.Activity{
		ItineraryID: s.itineraryID,
		FromTime:    in.FromTime,
		ToTime:      in.ToTime,
		PlaceID:     place.ID,
		Notes:       in.Notes,
	}
	if activity.ID, err = s.repo.InsertActivity(ctx, activity); err != nil {
		l.ErrorContext(ctx, "Failed to insert activity", slog.Any("error", err))
		return types.Activity{}, fail(span, err, "insert activity failed")
	}
	activity.Place = &place

	list := append(s.activities.Data, activity)
	sortActivities(list)
	s.activities = types.Success(list)

	if photo := s.places.FetchPhoto(ctx, place.GoogleMapsPlaceID, thumbnailSize, thumbnailSize); photo != nil {
		s.photos[activity.ID] = photo
	}
	s.markDirty()

	l.InfoContext(ctx, "Activity added", slog.Int64("activity_id", activity.ID))
	span.SetStatus(codes.Ok, "")
	return activity, nil
}

// UpdateActivity applies changes locally, then remotely, and reverts the local copy
// when the remote write fails.
func (s *Session) UpdateActivity(ctx context.Context, id int64, ch ActivityChanges) error {
	ctx, span := s.span(ctx, "UpdateActivity", attribute.Int64("activity.id", id))
	defer span.End()
	l := s.logger.With(slog.String("method", "UpdateActivity"), slog.Int64("activity_id", id))

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.activities.IsSuccess() {
		return fail(span, types.ErrCollectionNotLoaded, "activities not loaded")
	}
	idx := slices.IndexFunc(s.activities.Data, func(a types.Activity) bool { return a.ID == id })
	if idx < 0 {
		return fail(span, fmt.Errorf("activity %d: %w", id, types.ErrNotFound), "not found")
	}

	previous := slices.Clone(s.activities.Data)
	updated := previous[idx]

	if ch.GoogleMapsPlaceID != nil && (updated.Place == nil || updated.Place.GoogleMapsPlaceID != *ch.GoogleMapsPlaceID) {
		fallback := ""
		if ch.Name != nil {
			fallback = *ch.Name
		} else if updated.Place != nil {
			fallback = updated.Place.Name
		}
		place, err := s.placeFor(ctx, *ch.GoogleMapsPlaceID, fallback)
		if err != nil {
			l.WarnContext(ctx, "Could not resolve new activity place", slog.Any("error", err))
			return fail(span, err, "place not resolved")
		}
		place.ID = updated.PlaceID
		if err := s.repo.UpdatePlace(ctx, updated.PlaceID, types.UpdatePlaceParams{
			Name:              &place.Name,
			Lat:               &place.Lat,
			Lng:               &place.Lng,
			GoogleMapsPlaceID: &place.GoogleMapsPlaceID,
		}); err != nil {
			l.ErrorContext(ctx, "Failed to update activity place", slog.Any("error", err))
			return fail(span, err, "update place failed")
		}
		updated.Place = &place
		if photo := s.places.FetchPhoto(ctx, place.GoogleMapsPlaceID, thumbnailSize, thumbnailSize); photo != nil {
			s.photos[id] = photo
		} else {
			delete(s.photos, id)
		}
	}

	params := types.UpdateActivityParams{FromTime: ch.FromTime, ToTime: ch.ToTime, Notes: ch.Notes}
	if ch.FromTime != nil {
		updated.FromTime = *ch.FromTime
	}
	if ch.ToTime != nil {
		updated.ToTime = *ch.ToTime
	}
	if ch.Notes != nil {
		updated.Notes = *ch.Notes
	}

	list := slices.Clone(previous)
	list[idx] = updated
	sortActivities(list)
	s.activities = types.Success(list)
	s.markDirty()

	if err := s.repo.UpdateActivity(ctx, id, params); err != nil {
		l.ErrorContext(ctx, "Failed to update activity, reverting", slog.Any("error", err))
		// The place row, when re-bound above, is already written and stays.
		previous[idx].Place = updated.Place
		s.activities = types.Success(previous)
		return fail(span, err, "update activity failed")
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// DeleteActivity is idempotent: an id the session does not hold is a no-op and never
// reaches the store.
func (s *Session) DeleteActivity(ctx context.Context, id int64) error {
	ctx, span := s.span(ctx, "DeleteActivity", attribute.Int64("activity.id", id))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.activities.IsSuccess() {
		return fail(span, types.ErrCollectionNotLoaded, "activities not loaded")
	}
	previous := s.activities.Data
	if !slices.ContainsFunc(previous, func(a types.Activity) bool { return a.ID == id }) {
		span.SetAttributes(attribute.Bool("held", false))
		span.SetStatus(codes.Ok, "")
		return nil
	}
	s.activities = types.Success(slices.DeleteFunc(slices.Clone(previous), func(a types.Activity) bool { return a.ID == id }))

	if err := s.repo.DeleteActivity(ctx, s.itineraryID, id); err != nil {
		s.logger.ErrorContext(ctx, "Failed to delete activity, reverting",
			slog.String("method", "DeleteActivity"), slog.Int64("activity_id", id), slog.Any("error", err))
		s.activities = types.Success(previous)
		return fail(span, err, "delete activity failed")
	}
	delete(s.photos, id)
	s.markDirty()
	span.SetStatus(codes.Ok, "")
	return nil
}

func (s *Session) AddAccommodation(ctx context.Context, in NewAccommodation) (accommodation types.Accommodation, err error) {
	ctx, span := s.span(ctx, "AddAccommodation", attribute.String("place.id", in.GoogleMapsPlaceID))
	defer span.End()
	l := s.logger.With(slog.String("method", "AddAccommodation"))

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.accommodations.IsSuccess() {
		return types.Accommodation{}, fail(span, types.ErrCollectionNotLoaded, "accommodations not loaded")
	}

	place, err := s.placeFor(ctx, in.GoogleMapsPlaceID, in.Name)
	if err != nil {
		l.WarnContext(ctx, "Could not resolve accommodation place", slog.Any("error", err))
		return types.Accommodation{}, fail(span, err, "place not resolved")
	}
	if place.ID, err = s.repo.InsertPlace(ctx, place); err != nil {
		l.ErrorContext(ctx, "Failed to insert place", slog.Any("error", err))
		return types.Accommodation{}, fail(span, err, "insert place failed")
	}

	accommodation = types.Accommodation{
		ItineraryID: s.itineraryID,
		FromDate:    in.FromDate,
		ToDate:      in.ToDate,
		CheckIn:     in.CheckIn,
		CheckOut:    in.CheckOut,
		PlaceID:     place.ID,
		Notes:       in.Notes,
	}
	if accommodation.ID, err = s.repo.InsertAccommodation(ctx, accommodation); err != nil {
		l.ErrorContext(ctx, "Failed to insert accommodation", slog.Any("error", err))
		return types.Accommodation{}, fail(span, err, "insert accommodation failed")
	}
	if place.Address == nil {
		place.Address = s.places.FetchAddress(ctx, place.GoogleMapsPlaceID)
	}
	accommodation.Place = &place
	s.accommodations = types.Success(append(s.accommodations.Data, accommodation))

	span.SetStatus(codes.Ok, "")
	return accommodation, nil
}

func (s *Session) UpdateAccommodation(ctx context.Context, id int64, params types.UpdateAccommodationParams) error {
	ctx, span := s.span(ctx, "UpdateAccommodation", attribute.Int64("accommodation.id", id))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.accommodations.IsSuccess() {
		return fail(span, types.ErrCollectionNotLoaded, "accommodations not loaded")
	}
	idx := slices.IndexFunc(s.accommodations.Data, func(a types.Accommodation) bool { return a.ID == id })
	if idx < 0 {
		return fail(span, fmt.Errorf("accommodation %d: %w", id, types.ErrNotFound), "not found")
	}

	previous := s.accommodations.Data
	list := slices.Clone(previous)
	a := &list[idx]
	if params.FromDate != nil {
		a.FromDate = *params.FromDate
	}
	if params.ToDate != nil {
		a.ToDate = *params.ToDate
	}
	if params.CheckIn != nil {
		a.CheckIn = *params.CheckIn
	}
	if params.CheckOut != nil {
		a.CheckOut = *params.CheckOut
	}
	if params.Notes != nil {
		a.Notes = *params.Notes
	}
	s.accommodations = types.Success(list)

	if err := s.repo.UpdateAccommodation(ctx, id, params); err != nil {
		s.logger.ErrorContext(ctx, "Failed to update accommodation, reverting",
			slog.String("method", "UpdateAccommodation"), slog.Int64("accommodation_id", id), slog.Any("error", err))
		s.accommodations = types.Success(previous)
		return fail(span, err, "update accommodation failed")
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

func (s *Session) DeleteAccommodation(ctx context.Context, id int64) error {
	ctx, span := s.span(ctx, "DeleteAccommodation", attribute.Int64("accommodation.id", id))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.accommodations.IsSuccess() {
		return fail(span, types.ErrCollectionNotLoaded, "accommodations not loaded")
	}
	previous := s.accommodations.Data
	if !slices.ContainsFunc(previous, func(a types.Accommodation) bool { return a.ID == id }) {
		span.SetAttributes(attribute.Bool("held", false))
		span.SetStatus(codes.Ok, "")
		return nil
	}
	s.accommodations = types.Success(slices.DeleteFunc(slices.Clone(previous), func(a types.Accommodation) bool { return a.ID == id }))

	if err := s.repo.DeleteAccommodation(ctx, s.itineraryID, id); err != nil {
		s.logger.ErrorContext(ctx, "Failed to delete accommodation, reverting",
			slog.String("method", "DeleteAccommodation"), slog.Int64("accommodation_id", id), slog.Any("error", err))
		s.accommodations = types.Success(previous)
		return fail(span, err, "delete accommodation failed")
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

func (s *Session) UpdateTransportation(ctx context.Context, id int64, params types.UpdateTransportationParams) error {
	ctx, span := s.span(ctx, "UpdateTransportation", attribute.Int64("transportation.id", id))
	defer span.End()

	if params.Type != nil && !params.Type.Valid() {
		return fail(span, fmt.Errorf("transportation type %q: %w", *params.Type, types.ErrInvalidInput), "invalid type")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.transportation.IsSuccess() {
		return fail(span, types.ErrCollectionNotLoaded, "transportation not loaded")
	}
	idx := slices.IndexFunc(s.transportation.Data, func(t types.Transportation) bool { return t.ID == id })
	if idx < 0 {
		return fail(span, fmt.Errorf("transportation %d: %w", id, types.ErrNotFound), "not found")
	}

	previous := s.transportation.Data
	list := slices.Clone(previous)
	t := &list[idx]
	if params.Time != nil {
		t.Time = *params.Time
	}
	if params.Number != nil {
		t.Number = params.Number
	}
	if params.BookingReference != nil {
		t.BookingReference = params.BookingReference
	}
	if params.Type != nil {
		t.Type = *params.Type
	}
	if params.Notes != nil {
		t.Notes = *params.Notes
	}
	s.transportation = types.Success(list)

	if err := s.repo.UpdateTransportation(ctx, id, params); err != nil {
		s.logger.ErrorContext(ctx, "Failed to update transportation, reverting",
			slog.String("method", "UpdateTransportation"), slog.Int64("transportation_id", id), slog.Any("error", err))
		s.transportation = types.Success(previous)
		return fail(span, err, "update transportation failed")
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

func (s *Session) DeleteTransportation(ctx context.Context, id int64) error {
	ctx, span := s.span(ctx, "DeleteTransportation", attribute.Int64("transportation.id", id))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.transportation.IsSuccess() {
		return fail(span, types.ErrCollectionNotLoaded, "transportation not loaded")
	}
	previous := s.transportation.Data
	if !slices.ContainsFunc(previous, func(t types.Transportation) bool { return t.ID == id }) {
		span.SetAttributes(attribute.Bool("held", false))
		span.SetStatus(codes.Ok, "")
		return nil
	}
	s.transportation = types.Success(slices.DeleteFunc(slices.Clone(previous), func(t types.Transportation) bool { return t.ID == id }))

	if err := s.repo.DeleteTransportation(ctx, s.itineraryID, id); err != nil {
		s.logger.ErrorContext(ctx, "Failed to delete transportation, reverting",
			slog.String("method", "DeleteTransportation"), slog.Int64("transportation_id", id), slog.Any("error", err))
		s.transportation = types.Success(previous)
		return fail(span, err, "delete transportation failed")
	}
	span.SetStatus(codes.Ok, "")
	return nil
}
