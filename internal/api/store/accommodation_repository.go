package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/FACorreiaa/go-trekly-itineraries/internal/types"
)

type AccommodationRepository interface {
	InsertAccommodation(ctx context.Context, accommodation types.Accommodation) (int64, error)
	UpdateAccommodation(ctx context.Context, id int64, params types.UpdateAccommodationParams) error
	DeleteAccommodation(ctx context.Context, itineraryID, id int64) error
	SelectAccommodations(ctx context.Context, itineraryID int64, joinPlace bool) ([]types.Accommodation, error)
}

func (r *RepositoryImpl) InsertAccommodation(ctx context.Context, accommodation types.Accommodation) (id int64, err error) {
	ctx, span := r.startSpan(ctx, "AccommodationRepository", "InsertAccommodation", "INSERT", "accommodation",
		attribute.Int64("itinerary.id", accommodation.ItineraryID))
	defer span.End()
	defer func(start time.Time) { finish(ctx, span, "accommodation", start, err) }(time.Now())

	err = r.db.QueryRow(ctx, `
		INSERT INTO accommodation (itinerary_id, from_date, to_date, check_in, check_out, place_id, notes)
		VALUES ($1, $2, $3, $4::time, $5::time, $6, $7)
		RETURNING id`,
		accommodation.ItineraryID, accommodation.FromDate, accommodation.ToDate,
		accommodation.CheckIn, accommodation.CheckOut, accommodation.PlaceID, accommodation.Notes,
	).Scan(&id)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert accommodation", slog.Any("error", err))
		return 0, fmt.Errorf("failed to insert accommodation: %w", err)
	}
	return id, nil
}

func (r *RepositoryImpl) UpdateAccommodation(ctx context.Context, id int64, params types.UpdateAccommodationParams) (err error) {
	ctx, span := r.startSpan(ctx, "AccommodationRepository", "UpdateAccommodation", "UPDATE", "accommodation",
		attribute.Int64("accommodation.id", id))
	defer span.End()
	defer func(start time.Time) { finish(ctx, span, "accommodation", start, err) }(time.Now())

	b := &setBuilder{}
	if params.FromDate != nil {
		b.add("from_date", *params.FromDate)
	}
	if params.ToDate != nil {
		b.add("to_date", *params.ToDate)
	}
	if params.CheckIn != nil {
		b.addCast("check_in", *params.CheckIn, "time")
	}
	if params.CheckOut != nil {
		b.addCast("check_out", *params.CheckOut, "time")
	}
	if params.Notes != nil {
		b.add("notes", *params.Notes)
	}
	return r.execUpdate(ctx, r.logger.With(slog.String("method", "UpdateAccommodation"), slog.Int64("id", id)), "accommodation", id, b)
}

// DeleteAccommodation only removes the row when it belongs to itineraryID.
func (r *RepositoryImpl) DeleteAccommodation(ctx context.Context, itineraryID, id int64) (err error) {
	ctx, span := r.startSpan(ctx, "AccommodationRepository", "DeleteAccommodation", "DELETE", "accommodation",
		attribute.Int64("accommodation.id", id), attribute.Int64("itinerary.id", itineraryID))
	defer span.End()
	defer func(start time.Time) { finish(ctx, span, "accommodation", start, err) }(time.Now())

	return r.execChildDelete(ctx, r.logger.With(slog.String("method", "DeleteAccommodation")), "accommodation", itineraryID, id)
}

func (r *RepositoryImpl) SelectAccommodations(ctx context.Context, itineraryID int64, joinPlace bool) (list []types.Accommodation, err error) {
	ctx, span := r.startSpan(ctx, "AccommodationRepository", "SelectAccommodations", "SELECT", "accommodation, place",
		attribute.Int64("itinerary.id", itineraryID), attribute.Bool("join_place", joinPlace))
	defer span.End()
	defer func(start time.Time) { finish(ctx, span, "accommodation", start, err) }(time.Now())

	l := r.logger.With(slog.String("method", "SelectAccommodations"), slog.Int64("itinerary_id", itineraryID))

	columns := `ac.id, ac.created_at, ac.itinerary_id, ac.from_date, ac.to_date,
		       to_char(ac.check_in, 'HH24:MI'), to_char(ac.check_out, 'HH24:MI'), COALESCE(ac.place_id, 0), ac.notes`
	query := "SELECT " + columns + " FROM accommodation ac WHERE ac.itinerary_id = $1 ORDER BY ac.from_date, ac.id"
	if joinPlace {
		query = "SELECT " + columns + ", " + placeJoinColumns + `
		FROM accommodation ac
		LEFT JOIN place p ON p.id = ac.place_id
		WHERE ac.itinerary_id = $1
		ORDER BY ac.from_date, ac.id`
	}

	rows, err := r.db.Query(ctx, query, itineraryID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to query accommodations", slog.Any("error", err))
		return nil, fmt.Errorf("failed to query accommodations: %w", err)
	}
	defer rows.Close()

	list = []types.Accommodation{}
	for rows.Next() {
		var a types.Accommodation
		targets := []any{&a.ID, &a.CreatedAt, &a.ItineraryID, &a.FromDate, &a.ToDate, &a.CheckIn, &a.CheckOut, &a.PlaceID, &a.Notes}
		var p nullablePlace
		if joinPlace {
			targets = append(targets, p.targets()...)
		}
		if err := rows.Scan(targets...); err != nil {
			l.ErrorContext(ctx, "Failed to scan accommodation", slog.Any("error", err))
			return nil, fmt.Errorf("failed to scan accommodation: %w", err)
		}
		if joinPlace {
			a.Place = p.place()
		}
		list = append(list, a)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading accommodations: %w", err)
	}
	return list, nil
}
