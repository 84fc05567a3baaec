package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-trekly-itineraries/app/observability/metrics"
	"github.com/FACorreiaa/go-trekly-itineraries/internal/types"
)

// DB is satisfied by *pgxpool.Pool, pgx.Tx and pgxmock pools.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ Repository = (*RepositoryImpl)(nil)

// Repository is the remote store gateway: typed CRUD for the trip entities plus the
// ordered place listing used by the map view. It does not cache and does not retry.
type Repository interface {
	ItineraryRepository
	PlaceRepository
	ActivityRepository
	AccommodationRepository
	TransportationRepository
	ProfileRepository
}

type RepositoryImpl struct {
	logger *slog.Logger
	db     DB
}

func NewRepository(db DB, logger *slog.Logger) *RepositoryImpl {
	return &RepositoryImpl{
		logger: logger,
		db:     db,
	}
}

func (r *RepositoryImpl) startSpan(ctx context.Context, tracer, method, operation, table string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs,
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", operation),
		attribute.String("db.sql.table", table),
	)
	return otel.Tracer(tracer).Start(ctx, method, trace.WithAttributes(attrs...))
}

// finish records latency, error counters and the span status for one gateway call.
func finish(ctx context.Context, span trace.Span, table string, start time.Time, err error) {
	m := metrics.Get()
	attrs := metric.WithAttributes(attribute.String("table", table))
	m.DbQueryDurationSeconds.Record(ctx, time.Since(start).Seconds(), attrs)
	if err != nil && !errors.Is(err, types.ErrNotFound) {
		m.DbQueryErrorsTotal.Add(ctx, 1, attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, "")
}

// setBuilder accumulates "column = $n" clauses for partial updates.
type setBuilder struct {
	clauses []string
	args    []any
}

func (b *setBuilder) add(column string, value any) {
	b.args = append(b.args, value)
	b.clauses = append(b.clauses, fmt.Sprintf("%s = $%d", column, len(b.args)))
}

func (b *setBuilder) addCast(column string, value any, cast string) {
	b.args = append(b.args, value)
	b.clauses = append(b.clauses, fmt.Sprintf("%s = $%d::%s", column, len(b.args), cast))
}

func (b *setBuilder) empty() bool { return len(b.clauses) == 0 }

func (b *setBuilder) build(table string, id int64) (string, []any) {
	args := append(b.args, id)
	return fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d", table, strings.Join(b.clauses, ", "), len(args)), args
}

// execUpdate runs a partial update; zero affected rows means the id does not exist.
func (r *RepositoryImpl) execUpdate(ctx context.Context, l *slog.Logger, table string, id int64, b *setBuilder) error {
	if b.empty() {
		l.DebugContext(ctx, "No fields to update")
		return nil
	}
	query, args := b.build(table, id)
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		l.ErrorContext(ctx, "Failed to update row", slog.Any("error", err))
		return fmt.Errorf("failed to update %s %d: %w", table, id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s %d: %w", table, id, types.ErrNotFound)
	}
	return nil
}

// execDelete is idempotent: deleting a missing id is not an error.
func (r *RepositoryImpl) execDelete(ctx context.Context, l *slog.Logger, table string, id int64) error {
	tag, err := r.db.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", table), id)
	if err != nil {
		l.ErrorContext(ctx, "Failed to delete row", slog.Any("error", err))
		return fmt.Errorf("failed to delete %s %d: %w", table, id, err)
	}
	l.DebugContext(ctx, "Deleted row", slog.Int64("rows_affected", tag.RowsAffected()))
	return nil
}

// execChildDelete deletes a row of one of an itinerary's collections. A row of another
// itinerary is left alone and, like a missing id, is not an error.
func (r *RepositoryImpl) execChildDelete(ctx context.Context, l *slog.Logger, table string, itineraryID, id int64) error {
	tag, err := r.db.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1 AND itinerary_id = $2", table), id, itineraryID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to delete row", slog.Any("error", err))
		return fmt.Errorf("failed to delete %s %d: %w", table, id, err)
	}
	// zero rows: already gone, or owned by another itinerary
	l.DebugContext(ctx, "Deleted row", slog.Int64("itinerary_id", itineraryID), slog.Int64("rows_affected", tag.RowsAffected()))
	return nil
}

// nullablePlace is the LEFT JOIN side of a place join.
type nullablePlace struct {
	ID                *int64
	CreatedAt         *time.Time
	Name              *string
	Lat               *float64
	Lng               *float64
	GoogleMapsPlaceID *string
}

func (p *nullablePlace) targets() []any {
	return []any{&p.ID, &p.CreatedAt, &p.Name, &p.Lat, &p.Lng, &p.GoogleMapsPlaceID}
}

func (p *nullablePlace) place() *types.Place {
	if p.ID == nil {
		return nil
	}
	place := &types.Place{ID: *p.ID}
	if p.CreatedAt != nil {
		place.CreatedAt = *p.CreatedAt
	}
	if p.Name != nil {
		place.Name = *p.Name
	}
	if p.Lat != nil {
		place.Lat = *p.Lat
	}
	if p.Lng != nil {
		place.Lng = *p.Lng
	}
	if p.GoogleMapsPlaceID != nil {
		place.GoogleMapsPlaceID = *p.GoogleMapsPlaceID
	}
	return place
}

const placeJoinColumns = "p.id, p.created_at, p.name, p.lat, p.lng, p.google_maps_place_id"
