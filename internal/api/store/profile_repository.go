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

type ProfileRepository interface {
	// UpsertProfile creates the profile or overwrites the non-nil fields of an existing one.
	UpsertProfile(ctx context.Context, profile types.Profile) error
	GetProfile(ctx context.Context, userID uuid.UUID) (*types.Profile, error)
}

func (r *RepositoryImpl) UpsertProfile(ctx context.Context, p types.Profile) (err error) {
	ctx, span := r.startSpan(ctx, "ProfileRepository", "UpsertProfile", "UPSERT", "profiles",
		attribute.String("user.id", p.ID.String()))
	defer span.End()
	defer func(start time.Time) { finish(ctx, span, "profiles", start, err) }(time.Now())

	_, err = r.db.Exec(ctx, `
		INSERT INTO profiles (id, first_name, last_name, travel_pace, languages_spoken, countries_to_visit, travel_budget)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			first_name         = COALESCE(EXCLUDED.first_name, profiles.first_name),
			last_name          = COALESCE(EXCLUDED.last_name, profiles.last_name),
			travel_pace        = COALESCE(EXCLUDED.travel_pace, profiles.travel_pace),
			languages_spoken   = COALESCE(EXCLUDED.languages_spoken, profiles.languages_spoken),
			countries_to_visit = COALESCE(EXCLUDED.countries_to_visit, profiles.countries_to_visit),
			travel_budget      = COALESCE(EXCLUDED.travel_budget, profiles.travel_budget)`,
		p.ID, p.FirstName, p.LastName, p.TravelPace, p.LanguagesSpoken, p.CountriesToVisit, p.TravelBudget)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to upsert profile", slog.String("user_id", p.ID.String()), slog.Any("error", err))
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}

func (r *RepositoryImpl) GetProfile(ctx context.Context, userID uuid.UUID) (p *types.Profile, err error) {
	ctx, span := r.startSpan(ctx, "ProfileRepository", "GetProfile", "SELECT", "profiles",
		attribute.String("user.id", userID.String()))
	defer span.End()
	defer func(start time.Time) { finish(ctx, span, "profiles", start, err) }(time.Now())

	var profile types.Profile
	err = r.db.QueryRow(ctx, `
		SELECT id, first_name, last_name, travel_pace, languages_spoken, countries_to_visit, travel_budget
		FROM profiles WHERE id = $1`, userID,
	).Scan(&profile.ID, &profile.FirstName, &profile.LastName, &profile.TravelPace,
		&profile.LanguagesSpoken, &profile.CountriesToVisit, &profile.TravelBudget)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("profile %s: %w", userID, types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}
	return &profile, nil
}
