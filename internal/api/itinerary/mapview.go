package itinerary

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/go-trekly-itineraries/internal/types"
)

// RefreshMap rebuilds the ordered place list from the store, resolves each place's
// coordinates and recomputes every leg. Places without a provider id, or that the
// provider cannot resolve, are left off the map. It is the only operation that clears
// the dirty flag, and it leaves the flag set when a mutation lands while it runs.
func (s *Session) RefreshMap(ctx context.Context) (MapView, error) {
	ctx, span := s.span(ctx, "RefreshMap")
	defer span.End()
	l := s.logger.With(slog.String("method", "RefreshMap"))

	s.mu.Lock()
	seen := s.mutations
	s.mu.Unlock()

	rows, err := s.repo.ListPlacesForItinerary(ctx, s.itineraryID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to list itinerary places", slog.Any("error", err))
		return MapView{}, fail(span, fmt.Errorf("failed to list itinerary places: %w", err), "list places failed")
	}

	resolved := make([]*types.MapStop, len(rows))
	var g errgroup.Group
	g.SetLimit(enrichmentLimit)
	for i, row := range rows {
		if row.GoogleMapsPlaceID == "" {
			// draft places the provider never matched sit at 0,0
			l.InfoContext(ctx, "Leaving place without provider id off the map", slog.String("place_name", row.Name))
			continue
		}
		g.Go(func() error {
			details := s.places.ResolvePlaceByID(ctx, row.GoogleMapsPlaceID, types.PlaceFieldsBasic)
			if details == nil {
				l.InfoContext(ctx, "Leaving unresolved place off the map", slog.String("place_id", row.GoogleMapsPlaceID))
				return nil
			}
			resolved[i] = &types.MapStop{
				GoogleMapsPlaceID: row.GoogleMapsPlaceID,
				Name:              lo.Ternary(details.Name != "", details.Name, row.Name),
				Notes:             row.Notes,
				Location:          details.Location,
			}
			return nil
		})
	}
	_ = g.Wait()

	stops := make([]types.MapStop, 0, len(rows))
	for _, stop := range resolved {
		if stop != nil {
			stops = append(stops, *stop)
		}
	}
	legs := s.engine.Assemble(ctx, lo.Map(stops, func(stop types.MapStop, _ int) types.LatLng {
		return stop.Location
	}), mapTravelMode)

	s.mu.Lock()
	s.mapStops = stops
	s.legs = legs
	raced := s.mutations != seen
	if !raced {
		s.dirty = false
	}
	s.mu.Unlock()

	if raced {
		l.InfoContext(ctx, "Itinerary changed during refresh, map stays dirty")
	}
	span.SetAttributes(attribute.Int("stops.count", len(stops)), attribute.Int("legs.count", len(legs)), attribute.Bool("raced", raced))
	span.SetStatus(codes.Ok, "")
	return MapView{Stops: stops, Legs: legs, Dirty: raced}, nil
}

// AddNearbyPlace adds an activity at a place picked from a nearby search, appends it to
// the map and reloads the activity list from the store.
func (s *Session) AddNearbyPlace(ctx context.Context, details types.PlaceDetails, from, to time.Time, notes string) (activity types.Activity, err error) {
	ctx, span := s.span(ctx, "AddNearbyPlace", attribute.String("place.id", details.ID))
	defer span.End()
	l := s.logger.With(slog.String("method", "AddNearbyPlace"), slog.String("place_id", details.ID))

	if details.ID == "" || details.Name == "" {
		return types.Activity{}, fail(span, fmt.Errorf("nearby place needs id and name: %w", types.ErrInvalidInput), "invalid place")
	}

	place := types.Place{
		Name:              details.Name,
		Lat:               details.Location.Lat,
		Lng:               details.Location.Lng,
		GoogleMapsPlaceID: details.ID,
	}
	if place.ID, err = s.repo.InsertPlace(ctx, place); err != nil {
		l.ErrorContext(ctx, "Failed to insert place", slog.Any("error", err))
		return types.Activity{}, fail(span, err, "insert place failed")
	}
	activity = types.Activity{
		ItineraryID: s.itineraryID,
		FromTime:    from,
		ToTime:      to,
		PlaceID:     place.ID,
		Notes:       notes,
	}
	if activity.ID, err = s.repo.InsertActivity(ctx, activity); err != nil {
		l.ErrorContext(ctx, "Failed to insert activity", slog.Any("error", err))
		return types.Activity{}, fail(span, err, "insert activity failed")
	}
	activity.Place = &place

	photo := details.Photo
	if photo == nil {
		photo = s.places.FetchPhoto(ctx, details.ID, thumbnailSize, thumbnailSize)
	}

	list, selectErr := s.repo.SelectActivities(ctx, s.itineraryID, true)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.mapStops = append(s.mapStops, types.MapStop{
		GoogleMapsPlaceID: details.ID,
		Name:              details.Name,
		Notes:             notes,
		Location:          details.Location,
	})
	if photo != nil {
		s.photos[activity.ID] = photo
	}
	switch {
	case selectErr == nil:
		sortActivities(list)
		s.activities = types.Success(list)
	case s.activities.IsSuccess():
		l.WarnContext(ctx, "Failed to reload activities, keeping local copy", slog.Any("error", selectErr))
		local := append(s.activities.Data, activity)
		sortActivities(local)
		s.activities = types.Success(local)
	default:
		s.activities = types.Failure[[]types.Activity](selectErr)
	}
	s.markDirty()

	span.SetStatus(codes.Ok, "")
	return activity, nil
}

func (s *Session) SearchNearby(ctx context.Context, query string, center types.LatLng, radiusMeters float64) []types.PlaceDetails {
	return s.places.SearchNearby(ctx, query, center, radiusMeters)
}

func (s *Session) Autocomplete(ctx context.Context, query string, origin *types.LatLng, radiusMeters float64) []types.Prediction {
	return s.places.Autocomplete(ctx, query, origin, radiusMeters)
}
