package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/FACorreiaa/go-trekly-itineraries/internal/types"
)

type ActivityRepository interface {
	InsertActivity(ctx context.Context, activity types.Activity) (int64, error)
	UpdateActivity(ctx context.Context, id int64, params types.UpdateActivityParams) error
	DeleteActivity(ctx context.Context, itineraryID, id int64) error
	// SelectActivities returns the itinerary's activities ordered by from_time.
	SelectActivities(ctx context.Context, itineraryID int64, joinPlace bool) ([]types.Activity, error)
	// ListPlacesForItinerary calls get_places_from_itinerary, the source of truth for
	// which places the map shows and in what order.
	ListPlacesForItinerary(ctx context.Context, itineraryID int64) ([]types.ItineraryPlace, error)
}

func (r *RepositoryImpl) InsertActivity(ctx context.Context, activity types.Activity) (id int64, err error) {
	ctx, span := r.startSpan(ctx, "ActivityRepository", "InsertActivity", "INSERT", "activity",
		attribute.Int64("itinerary.id", activity.ItineraryID))
	defer span.End()
	defer func(start time.Time) { finish(ctx, span, "activity", start, err) }(time.Now())

	err = r.db.QueryRow(ctx, `
		INSERT INTO activity (itinerary_id, from_time, to_time, place_id, notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		activity.ItineraryID, activity.FromTime, activity.ToTime, activity.PlaceID, activity.Notes,
	).Scan(&id)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert activity",
			slog.Int64("itinerary_id", activity.ItineraryID), slog.Any("error", err))
		return 0, fmt.Errorf("failed to insert activity: %w", err)
	}
	return id, nil
}

func (r *RepositoryImpl) UpdateActivity(ctx context.Context, id int64, params types.UpdateActivityParams) (err error) {
	ctx, span := r.startSpan(ctx, "ActivityRepository", "UpdateActivity", "UPDATE", "activity",
		attribute.Int64("activity.id", id))
	defer span.End()
	defer func(start time.Time) { finish(ctx, span, "activity", start, err) }(time.Now())

	b := &setBuilder{}
	if params.FromTime != nil {
		b.add("from_time", *params.FromTime)
	}
	if params.ToTime != nil {
		b.add("to_time", *params.ToTime)
	}
	if params.Notes != nil {
		b.add("notes", *params.Notes)
	}
	return r.execUpdate(ctx, r.logger.With(slog.String("method", "UpdateActivity"), slog.Int64("id", id)), "activity", id, b)
}

// DeleteActivity only removes the row when it belongs to itineraryID.
func (r *RepositoryImpl) DeleteActivity(ctx context.Context, itineraryID, id int64) (err error) {
	ctx, span := r.startSpan(ctx, "ActivityRepository", "DeleteActivity", "DELETE", "activity",
		attribute.Int64("activity.id", id), attribute.Int64("itinerary.id", itineraryID))
	defer span.End()
	defer func(start time.Time) { finish(ctx, span, "activity", start, err) }(time.Now())

	return r.execChildDelete(ctx, r.logger.With(slog.String("method", "DeleteActivity")), "activity", itineraryID, id)
}

func (r *RepositoryImpl) SelectActivities(ctx context.Context, itineraryID int64, joinPlace bool) (list []types.Activity, err error) {
	ctx, span := r.startSpan(ctx, "ActivityRepository", "SelectActivities", "SELECT", "activity, place",
		attribute.Int64("itinerary.id", itineraryID), attribute.Bool("join_place", joinPlace))
	defer span.End()
	defer func(start time.Time) { finish(ctx, span, "activity", start, err) }(time.Now())

	l := r.logger.With(slog.String("method", "SelectActivities"), slog.Int64("itinerary_id", itineraryID))

	query := `
		SELECT a.id, a.created_at, a.itinerary_id, a.from_time, a.to_time, COALESCE(a.place_id, 0), a.notes
		FROM activity a
		WHERE a.itinerary_id = $1
		ORDER BY a.from_time, a.id`
	// LEFT JOIN keeps activities whose place row is gone
	if joinPlace {
		query = `
		SELECT a.id, a.created_at, a.itinerary_id, a.from_time, a.to_time, COALESCE(a.place_id, 0), a.notes,
		       ` + placeJoinColumns + `
		FROM activity a
		LEFT JOIN place p ON p.id = a.place_id
		WHERE a.itinerary_id = $1
		ORDER BY a.from_time, a.id`
	}

	rows, err := r.db.Query(ctx, query, itineraryID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to query activities", slog.Any("error", err))
		return nil, fmt.Errorf("failed to query activities: %w", err)
	}
	defer rows.Close()

	list = []types.Activity{}
	for rows.Next() {
		var a types.Activity
		targets := []any{&a.ID, &a.CreatedAt, &a.ItineraryID, &a.FromTime, &a.ToTime, &a.PlaceID, &a.Notes}
		var p nullablePlace
		if joinPlace {
			targets = append(targets, p.targets()...)
		}
		if err := rows.Scan(targets...); err != nil {
			l.ErrorContext(ctx, "Failed to scan activity", slog.Any("error", err))
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		if joinPlace {
			a.Place = p.place()
		}
		list = append(list, a)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading activities: %w", err)
	}

	l.DebugContext(ctx, "Fetched activities", slog.Int("count", len(list)))
	return list, nil
}

func (r *RepositoryImpl) ListPlacesForItinerary(ctx context.Context, itineraryID int64) (list []types.ItineraryPlace, err error) {
	ctx, span := r.startSpan(ctx, "ActivityRepository", "ListPlacesForItinerary", "SELECT", "get_places_from_itinerary",
		attribute.Int64("itinerary.id", itineraryID))
	defer span.End()
	defer func(start time.Time) { finish(ctx, span, "activity", start, err) }(time.Now())

	rows, err := r.db.Query(ctx, "SELECT placeid, name, notes FROM get_places_from_itinerary($1)", itineraryID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to call get_places_from_itinerary", slog.Any("error", err))
		return nil, fmt.Errorf("failed to list places for itinerary: %w", err)
	}
	defer rows.Close()

	list = []types.ItineraryPlace{}
	for rows.Next() {
		// placeid is '' for draft places the provider never matched
		var p types.ItineraryPlace
		var notes *string
		if err := rows.Scan(&p.GoogleMapsPlaceID, &p.Name, &notes); err != nil {
			return nil, fmt.Errorf("failed to scan itinerary place: %w", err)
		}
		if notes != nil {
			p.Notes = *notes
		}
		list = append(list, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading itinerary places: %w", err)
	}
	return list, nil
}
