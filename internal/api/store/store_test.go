package store

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-trekly-itineraries/internal/types"
)

func ptr[T any](v T) *T { return &v }

func setupRepositoryTest(t *testing.T) (*RepositoryImpl, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
	return NewRepository(mock, logger), mock
}

func TestRepositoryImpl_InsertItinerary(t *testing.T) {
	repo, mock := setupRepositoryTest(t)
	ctx := context.Background()
	owner := uuid.New()
	from := time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2023, 4, 3, 0, 0, 0, 0, time.UTC)
	code := ptr("aB3dE")
	it := types.Itinerary{
		Name: "Spring in Tokyo", Destination: "Tokyo, Japan",
		FromDate: from, ToDate: to, ShareCode: code, Owner: &owner, IsPublic: true,
	}

	t.Run("returns the server-assigned id", func(t *testing.T) {
		mock.ExpectQuery("INSERT INTO itinerary").
			WithArgs("Spring in Tokyo", "Tokyo, Japan", from, to, code, &owner, true, pgxmock.AnyArg()).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(42)))

		id, err := repo.InsertItinerary(ctx, it)
		require.NoError(t, err)
		assert.Equal(t, int64(42), id)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("wraps database errors", func(t *testing.T) {
		dbErr := errors.New("connection reset")
		mock.ExpectQuery("INSERT INTO itinerary").WillReturnError(dbErr)

		_, err := repo.InsertItinerary(ctx, it)
		require.Error(t, err)
		assert.ErrorIs(t, err, dbErr)
		assert.Contains(t, err.Error(), "failed to insert itinerary")
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepositoryImpl_GetItinerary(t *testing.T) {
	repo, mock := setupRepositoryTest(t)
	ctx := context.Background()
	owner := uuid.New()
	created := time.Date(2023, 3, 1, 10, 0, 0, 0, time.UTC)
	from := time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2023, 4, 3, 0, 0, 0, 0, time.UTC)

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("FROM itinerary WHERE id = $1")).
			WithArgs(int64(7)).
			WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "name", "destination", "from_date", "to_date", "share_code", "owner", "is_public", "thumbnail"}).
				AddRow(int64(7), created, "Spring in Tokyo", "Tokyo, Japan", from, to, ptr("aB3dE"), &owner, false, nil))

		it, err := repo.GetItinerary(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, int64(7), it.ID)
		assert.Equal(t, "Spring in Tokyo", it.Name)
		assert.Equal(t, from, it.FromDate)
		require.NotNil(t, it.ShareCode)
		assert.Equal(t, "aB3dE", *it.ShareCode)
		assert.Equal(t, owner, *it.Owner)
		assert.Nil(t, it.Thumbnail)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no rows maps to ErrNotFound", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("FROM itinerary WHERE id = $1")).
			WithArgs(int64(8)).
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.GetItinerary(ctx, 8)
		assert.ErrorIs(t, err, types.ErrNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepositoryImpl_UpdateActivity(t *testing.T) {
	repo, mock := setupRepositoryTest(t)
	ctx := context.Background()
	from := time.Date(2023, 4, 1, 9, 0, 0, 0, time.UTC)

	t.Run("builds a partial update", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("UPDATE activity SET from_time = $1, notes = $2 WHERE id = $3")).
			WithArgs(from, "bring cash", int64(5)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.UpdateActivity(ctx, 5, types.UpdateActivityParams{FromTime: &from, Notes: ptr("bring cash")})
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no fields is a no-op", func(t *testing.T) {
		err := repo.UpdateActivity(ctx, 5, types.UpdateActivityParams{})
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing row maps to ErrNotFound", func(t *testing.T) {
		mock.ExpectExec("UPDATE activity SET").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.UpdateActivity(ctx, 99, types.UpdateActivityParams{Notes: ptr("x")})
		assert.ErrorIs(t, err, types.ErrNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepositoryImpl_UpdateAccommodation_CastsTimes(t *testing.T) {
	repo, mock := setupRepositoryTest(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE accommodation SET check_in = $1::time, notes = $2 WHERE id = $3")).
		WithArgs("15:00", "late arrival", int64(3)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.UpdateAccommodation(context.Background(), 3, types.UpdateAccommodationParams{
		CheckIn: ptr("15:00"),
		Notes:   ptr("late arrival"),
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryImpl_DeleteIsIdempotent(t *testing.T) {
	repo, mock := setupRepositoryTest(t)
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM transportation WHERE id = $1 AND itinerary_id = $2")).
		WithArgs(int64(4), int64(1)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM transportation WHERE id = $1 AND itinerary_id = $2")).
		WithArgs(int64(4), int64(1)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.NoError(t, repo.DeleteTransportation(ctx, 1, 4))
	require.NoError(t, repo.DeleteTransportation(ctx, 1, 4))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryImpl_ChildDeletesAreScopedToTheItinerary(t *testing.T) {
	tests := []struct {
		name   string
		table  string
		delete func(r *RepositoryImpl, ctx context.Context) error
	}{
		{"activity", "activity", func(r *RepositoryImpl, ctx context.Context) error { return r.DeleteActivity(ctx, 1, 999) }},
		{"accommodation", "accommodation", func(r *RepositoryImpl, ctx context.Context) error { return r.DeleteAccommodation(ctx, 1, 999) }},
		{"transportation", "transportation", func(r *RepositoryImpl, ctx context.Context) error { return r.DeleteTransportation(ctx, 1, 999) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := setupRepositoryTest(t)
			// 999 belongs to another itinerary, so nothing matches.
			mock.ExpectExec(regexp.QuoteMeta("DELETE FROM " + tt.table + " WHERE id = $1 AND itinerary_id = $2")).
				WithArgs(int64(999), int64(1)).
				WillReturnResult(pgxmock.NewResult("DELETE", 0))

			require.NoError(t, tt.delete(repo, context.Background()))
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRepositoryImpl_SelectActivities(t *testing.T) {
	repo, mock := setupRepositoryTest(t)
	ctx := context.Background()
	created := time.Date(2023, 3, 1, 10, 0, 0, 0, time.UTC)
	first := time.Date(2023, 4, 1, 9, 0, 0, 0, time.UTC)
	second := time.Date(2023, 4, 1, 11, 0, 0, 0, time.UTC)

	t.Run("joined place, nil when the join misses", func(t *testing.T) {
		cols := []string{"id", "created_at", "itinerary_id", "from_time", "to_time", "place_id", "notes",
			"p_id", "p_created_at", "p_name", "p_lat", "p_lng", "p_gid"}
		mock.ExpectQuery("LEFT JOIN place p ON p.id = a.place_id").
			WithArgs(int64(1)).
			WillReturnRows(pgxmock.NewRows(cols).
				AddRow(int64(10), created, int64(1), first, first.Add(time.Hour), int64(3), "sushi",
					ptr(int64(3)), &created, ptr("Tsukiji"), ptr(35.66), ptr(139.77), ptr("gid-1")).
				AddRow(int64(11), created, int64(1), second, second.Add(time.Hour), int64(0), "",
					nil, nil, nil, nil, nil, nil))

		list, err := repo.SelectActivities(ctx, 1, true)
		require.NoError(t, err)
		require.Len(t, list, 2)
		require.NotNil(t, list[0].Place)
		assert.Equal(t, "Tsukiji", list[0].Place.Name)
		assert.Equal(t, "gid-1", list[0].Place.GoogleMapsPlaceID)
		assert.InDelta(t, 35.66, list[0].Place.Lat, 1e-9)
		assert.Nil(t, list[1].Place)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("without join", func(t *testing.T) {
		cols := []string{"id", "created_at", "itinerary_id", "from_time", "to_time", "place_id", "notes"}
		mock.ExpectQuery("FROM activity a").
			WithArgs(int64(1)).
			WillReturnRows(pgxmock.NewRows(cols).
				AddRow(int64(10), created, int64(1), first, first.Add(time.Hour), int64(3), "sushi"))

		list, err := repo.SelectActivities(ctx, 1, false)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Nil(t, list[0].Place)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepositoryImpl_ListPlacesForItinerary(t *testing.T) {
	repo, mock := setupRepositoryTest(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM get_places_from_itinerary($1)")).
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"placeid", "name", "notes"}).
			AddRow("gid-1", "Tsukiji", ptr("breakfast")).
			AddRow("gid-2", "Shibuya Crossing", nil))

	list, err := repo.ListPlacesForItinerary(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []types.ItineraryPlace{
		{GoogleMapsPlaceID: "gid-1", Name: "Tsukiji", Notes: "breakfast"},
		{GoogleMapsPlaceID: "gid-2", Name: "Shibuya Crossing", Notes: ""},
	}, list)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryImpl_InsertTransportation_IgnoresDuplicates(t *testing.T) {
	repo, mock := setupRepositoryTest(t)
	at := time.Date(2023, 4, 1, 11, 0, 0, 0, time.UTC)
	leg := types.Transportation{
		ItineraryID: 1, Time: at, Type: types.TransportationTransit, Notes: "Direct route",
		FromActivityID: ptr(int64(10)), ToActivityID: ptr(int64(11)),
	}

	mock.ExpectQuery("ON CONFLICT").WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("SELECT id FROM transportation").
		WithArgs(int64(1), ptr(int64(10)), ptr(int64(11))).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(77)))

	id, err := repo.InsertTransportation(context.Background(), leg)
	require.NoError(t, err)
	assert.Equal(t, int64(77), id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryImpl_GetProfile(t *testing.T) {
	repo, mock := setupRepositoryTest(t)
	userID := uuid.New()

	mock.ExpectQuery("FROM profiles WHERE id = \\$1").
		WithArgs(userID).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetProfile(context.Background(), userID)
	assert.ErrorIs(t, err, types.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
