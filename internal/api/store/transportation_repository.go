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

type TransportationRepository interface {
	// InsertTransportation ignores duplicates of the same (itinerary, from, to) leg and
	// returns the id of the row already present.
	InsertTransportation(ctx context.Context, transportation types.Transportation) (int64, error)
	UpdateTransportation(ctx context.Context, id int64, params types.UpdateTransportationParams) error
	DeleteTransportation(ctx context.Context, itineraryID, id int64) error
	SelectTransportations(ctx context.Context, itineraryID int64) ([]types.Transportation, error)
}

func (r *RepositoryImpl) InsertTransportation(ctx context.Context, t types.Transportation) (id int64, err error) {
	ctx, span := r.startSpan(ctx, "TransportationRepository", "InsertTransportation", "INSERT", "transportation",
		attribute.Int64("itinerary.id", t.ItineraryID), attribute.String("transportation.type", string(t.Type)))
	defer span.End()
	defer func(start time.Time) { finish(ctx, span, "transportation", start, err) }(time.Now())

	l := r.logger.With(slog.String("method", "InsertTransportation"), slog.Int64("itinerary_id", t.ItineraryID))

	err = r.db.QueryRow(ctx, `
		INSERT INTO transportation (itinerary_id, time, booking_reference, number, type, notes,
		                            from_activity_id, to_activity_id, duration, distance)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (itinerary_id, from_activity_id, to_activity_id) DO NOTHING
		RETURNING id`,
		t.ItineraryID, t.Time, t.BookingReference, t.Number, string(t.Type), t.Notes,
		t.FromActivityID, t.ToActivityID, t.Duration, t.Distance,
	).Scan(&id)
	// DO NOTHING returns no row, so look the existing leg up
	if errors.Is(err, pgx.ErrNoRows) {
		l.DebugContext(ctx, "Transportation leg already exists")
		err = r.db.QueryRow(ctx, `
			SELECT id FROM transportation
			WHERE itinerary_id = $1 AND from_activity_id = $2 AND to_activity_id = $3`,
			t.ItineraryID, t.FromActivityID, t.ToActivityID,
		).Scan(&id)
	}
	if err != nil {
		l.ErrorContext(ctx, "Failed to insert transportation", slog.Any("error", err))
		return 0, fmt.Errorf("failed to insert transportation: %w", err)
	}
	return id, nil
}

func (r *RepositoryImpl) UpdateTransportation(ctx context.Context, id int64, params types.UpdateTransportationParams) (err error) {
	ctx, span := r.startSpan(ctx, "TransportationRepository", "UpdateTransportation", "UPDATE", "transportation",
		attribute.Int64("transportation.id", id))
	defer span.End()
	defer func(start time.Time) { finish(ctx, span, "transportation", start, err) }(time.Now())

	b := &setBuilder{}
	if params.Time != nil {
		b.add("time", *params.Time)
	}
	if params.Number != nil {
		b.add("number", *params.Number)
	}
	if params.BookingReference != nil {
		b.add("booking_reference", *params.BookingReference)
	}
	if params.Type != nil {
		b.add("type", string(*params.Type))
	}
	if params.Notes != nil {
		b.add("notes", *params.Notes)
	}
	return r.execUpdate(ctx, r.logger.With(slog.String("method", "UpdateTransportation"), slog.Int64("id", id)), "transportation", id, b)
}

// DeleteTransportation only removes the row when it belongs to itineraryID.
func (r *RepositoryImpl) DeleteTransportation(ctx context.Context, itineraryID, id int64) (err error) {
	ctx, span := r.startSpan(ctx, "TransportationRepository", "DeleteTransportation", "DELETE", "transportation",
		attribute.Int64("transportation.id", id), attribute.Int64("itinerary.id", itineraryID))
	defer span.End()
	defer func(start time.Time) { finish(ctx, span, "transportation", start, err) }(time.Now())

	return r.execChildDelete(ctx, r.logger.With(slog.String("method", "DeleteTransportation")), "transportation", itineraryID, id)
}

func (r *RepositoryImpl) SelectTransportations(ctx context.Context, itineraryID int64) (list []types.Transportation, err error) {
	ctx, span := r.startSpan(ctx, "TransportationRepository", "SelectTransportations", "SELECT", "transportation",
		attribute.Int64("itinerary.id", itineraryID))
	defer span.End()
	defer func(start time.Time) { finish(ctx, span, "transportation", start, err) }(time.Now())

	rows, err := r.db.Query(ctx, `
		SELECT id, created_at, itinerary_id, time, booking_reference, number, type, notes,
		       from_activity_id, to_activity_id, duration, distance
		FROM transportation
		WHERE itinerary_id = $1
		ORDER BY time, id`, itineraryID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query transportation", slog.Int64("itinerary_id", itineraryID), slog.Any("error", err))
		return nil, fmt.Errorf("failed to query transportation: %w", err)
	}
	defer rows.Close()

	list = []types.Transportation{}
	for rows.Next() {
		var t types.Transportation
		var kind string
		if err := rows.Scan(&t.ID, &t.CreatedAt, &t.ItineraryID, &t.Time, &t.BookingReference, &t.Number,
			&kind, &t.Notes, &t.FromActivityID, &t.ToActivityID, &t.Duration, &t.Distance); err != nil {
			return nil, fmt.Errorf("failed to scan transportation: %w", err)
		}
		t.Type = types.TransportationType(kind)
		list = append(list, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading transportation: %w", err)
	}
	return list, nil
}
