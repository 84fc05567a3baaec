package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"

	"github.com/FACorreiaa/go-trekly-itineraries/internal/types"
)

type ItineraryRepository interface {
	InsertItinerary(ctx context.Context, itinerary types.Itinerary) (int64, error)
	GetItinerary(ctx context.Context, id int64) (*types.Itinerary, error)
	GetItineraryByShareCode(ctx context.Context, shareCode string) (*types.Itinerary, error)
	// ListItinerariesByOwner returns the owner's itineraries, newest first.
	ListItinerariesByOwner(ctx context.Context, owner uuid.UUID) ([]types.Itinerary, error)
	UpdateItinerary(ctx context.Context, id int64, params types.UpdateItineraryParams) error
	DeleteItinerary(ctx context.Context, id int64) error
}

const itineraryColumns = "id, created_at, name, destination, from_date, to_date, share_code, owner, is_public, thumbnail"

func scanItinerary(row pgx.Row) (*types.Itinerary, error) {
	var it types.Itinerary
	err := row.Scan(&it.ID, &it.CreatedAt, &it.Name, &it.Destination, &it.FromDate, &it.ToDate,
		&it.ShareCode, &it.Owner, &it.IsPublic, &it.Thumbnail)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func (r *RepositoryImpl) InsertItinerary(ctx context.Context, itinerary types.Itinerary) (id int64, err error) {
	ctx, span := r.startSpan(ctx, "ItineraryRepository", "InsertItinerary", "INSERT", "itinerary")
	defer span.End()
	defer func(start time.Time) { finish(ctx, span, "itinerary", start, err) }(time.Now())

	l := r.logger.With(slog.String("method", "InsertItinerary"))

	query := `
		INSERT INTO itinerary (name, destination, from_date, to_date, share_code, owner, is_public, thumbnail)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	err = r.db.QueryRow(ctx, query,
		itinerary.Name, itinerary.Destination, itinerary.FromDate, itinerary.ToDate,
		itinerary.ShareCode, itinerary.Owner, itinerary.IsPublic, itinerary.Thumbnail,
	).Scan(&id)
	if err != nil {
		l.ErrorContext(ctx, "Failed to insert itinerary", slog.Any("error", err))
		return 0, fmt.Errorf("failed to insert itinerary: %w", err)
	}

	span.SetAttributes(attribute.Int64("itinerary.id", id))
	l.DebugContext(ctx, "Inserted itinerary", slog.Int64("id", id))
	return id, nil
}

func (r *RepositoryImpl) GetItinerary(ctx context.Context, id int64) (it *types.Itinerary, err error) {
	ctx, span := r.startSpan(ctx, "ItineraryRepository", "GetItinerary", "SELECT", "itinerary",
		attribute.Int64("itinerary.id", id))
	defer span.End()
	defer func(start time.Time) { finish(ctx, span, "itinerary", start, err) }(time.Now())

	it, err = scanItinerary(r.db.QueryRow(ctx, "SELECT "+itineraryColumns+" FROM itinerary WHERE id = $1", id))
	// handlers map ErrNotFound to 404
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("itinerary %d: %w", id, types.ErrNotFound)
	}
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to fetch itinerary", slog.Int64("id", id), slog.Any("error", err))
		return nil, fmt.Errorf("failed to fetch itinerary: %w", err)
	}
	return it, nil
}

func (r *RepositoryImpl) GetItineraryByShareCode(ctx context.Context, shareCode string) (it *types.Itinerary, err error) {
	ctx, span := r.startSpan(ctx, "ItineraryRepository", "GetItineraryByShareCode", "SELECT", "itinerary")
	defer span.End()
	defer func(start time.Time) { finish(ctx, span, "itinerary", start, err) }(time.Now())

	it, err = scanItinerary(r.db.QueryRow(ctx, "SELECT "+itineraryColumns+" FROM itinerary WHERE share_code = $1", shareCode))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("share code %q: %w", shareCode, types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch itinerary by share code: %w", err)
	}
	return it, nil
}

func (r *RepositoryImpl) ListItinerariesByOwner(ctx context.Context, owner uuid.UUID) (list []types.Itinerary, err error) {
	ctx, span := r.startSpan(ctx, "ItineraryRepository", "ListItinerariesByOwner", "SELECT", "itinerary",
		attribute.String("itinerary.owner", owner.String()))
	defer span.End()
	defer func(start time.Time) { finish(ctx, span, "itinerary", start, err) }(time.Now())

	l := r.logger.With(slog.String("method", "ListItinerariesByOwner"), slog.String("owner", owner.String()))

	rows, err := r.db.Query(ctx, "SELECT "+itineraryColumns+" FROM itinerary WHERE owner = $1 ORDER BY created_at DESC", owner)
	if err != nil {
		l.ErrorContext(ctx, "Failed to query itineraries", slog.Any("error", err))
		return nil, fmt.Errorf("failed to query itineraries: %w", err)
	}
	defer rows.Close()

	// never nil, so an owner without itineraries encodes as []
	list = []types.Itinerary{}
	for rows.Next() {
		it, err := scanItinerary(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan itinerary: %w", err)
		}
		list = append(list, *it)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading itineraries: %w", err)
	}

	l.DebugContext(ctx, "Fetched itineraries", slog.Int("count", len(list)))
	return list, nil
}

func (r *RepositoryImpl) UpdateItinerary(ctx context.Context, id int64, params types.UpdateItineraryParams) (err error) {
	ctx, span := r.startSpan(ctx, "ItineraryRepository", "UpdateItinerary", "UPDATE", "itinerary",
		attribute.Int64("itinerary.id", id))
	defer span.End()
	defer func(start time.Time) { finish(ctx, span, "itinerary", start, err) }(time.Now())

	l := r.logger.With(slog.String("method", "UpdateItinerary"), slog.Int64("id", id))

	b := &setBuilder{}
	if params.Name != nil {
		b.add("name", *params.Name)
	}
	if params.Destination != nil {
		b.add("destination", *params.Destination)
	}
	if params.FromDate != nil {
		b.add("from_date", *params.FromDate)
	}
	if params.ToDate != nil {
		b.add("to_date", *params.ToDate)
	}
	if params.IsPublic != nil {
		b.add("is_public", *params.IsPublic)
	}
	if params.Thumbnail != nil {
		b.add("thumbnail", *params.Thumbnail)
	}
	return r.execUpdate(ctx, l, "itinerary", id, b)
}

func (r *RepositoryImpl) DeleteItinerary(ctx context.Context, id int64) (err error) {
	ctx, span := r.startSpan(ctx, "ItineraryRepository", "DeleteItinerary", "DELETE", "itinerary",
		attribute.Int64("itinerary.id", id))
	defer span.End()
	defer func(start time.Time) { finish(ctx, span, "itinerary", start, err) }(time.Now())

	// activity, accommodation and transportation rows cascade
	return r.execDelete(ctx, r.logger.With(slog.String("method", "DeleteItinerary")), "itinerary", id)
}
