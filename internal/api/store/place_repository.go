package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"

	"github.com/FACorreiaa/go-trekly-itineraries/internal/types"
)

// PlaceRepository manages place rows. Places are created once and updated in place
// when an activity is re-pointed at a different provider place.
type PlaceRepository interface {
	InsertPlace(ctx context.Context, place types.Place) (int64, error)
	GetPlace(ctx context.Context, id int64) (*types.Place, error)
	UpdatePlace(ctx context.Context, id int64, params types.UpdatePlaceParams) error
}

func (r *RepositoryImpl) InsertPlace(ctx context.Context, place types.Place) (id int64, err error) {
	ctx, span := r.startSpan(ctx, "PlaceRepository", "InsertPlace", "INSERT", "place",
		attribute.String("place.google_maps_place_id", place.GoogleMapsPlaceID))
	defer span.End()
	defer func(start time.Time) { finish(ctx, span, "place", start, err) }(time.Now())

	err = r.db.QueryRow(ctx, `
		INSERT INTO place (name, lat, lng, google_maps_place_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		place.Name, place.Lat, place.Lng, place.GoogleMapsPlaceID,
	).Scan(&id)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert place", slog.String("name", place.Name), slog.Any("error", err))
		return 0, fmt.Errorf("failed to insert place: %w", err)
	}
	return id, nil
}

func (r *RepositoryImpl) GetPlace(ctx context.Context, id int64) (p *types.Place, err error) {
	ctx, span := r.startSpan(ctx, "PlaceRepository", "GetPlace", "SELECT", "place",
		attribute.Int64("place.id", id))
	defer span.End()
	defer func(start time.Time) { finish(ctx, span, "place", start, err) }(time.Now())

	var place types.Place
	err = r.db.QueryRow(ctx,
		"SELECT id, created_at, name, lat, lng, google_maps_place_id FROM place WHERE id = $1", id,
	).Scan(&place.ID, &place.CreatedAt, &place.Name, &place.Lat, &place.Lng, &place.GoogleMapsPlaceID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("place %d: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch place: %w", err)
	}
	return &place, nil
}

func (r *RepositoryImpl) UpdatePlace(ctx context.Context, id int64, params types.UpdatePlaceParams) (err error) {
	ctx, span := r.startSpan(ctx, "PlaceRepository", "UpdatePlace", "UPDATE", "place",
		attribute.Int64("place.id", id))
	defer span.End()
	defer func(start time.Time) { finish(ctx, span, "place", start, err) }(time.Now())

	b := &setBuilder{}
	if params.Name != nil {
		b.add("name", *params.Name)
	}
	if params.Lat != nil {
		b.add("lat", *params.Lat)
	}
	if params.Lng != nil {
		b.add("lng", *params.Lng)
	}
	if params.GoogleMapsPlaceID != nil {
		b.add("google_maps_place_id", *params.GoogleMapsPlaceID)
	}
	return r.execUpdate(ctx, r.logger.With(slog.String("method", "UpdatePlace"), slog.Int64("id", id)), "place", id, b)
}
