package profile

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-trekly-itineraries/internal/api/store"
	"github.com/FACorreiaa/go-trekly-itineraries/internal/types"
)

// Preferences are the travel preferences a user can save. Nil fields keep their stored value.
type Preferences struct {
	FirstName        *string `json:"first_name,omitempty"`
	LastName         *string `json:"last_name,omitempty"`
	TravelPace       *string `json:"travel_pace,omitempty" example:"relaxed"`
	LanguagesSpoken  *string `json:"languages_spoken,omitempty" example:"English, Portuguese"`
	CountriesToVisit *string `json:"countries_to_visit,omitempty" example:"Japan, Peru"`
	TravelBudget     *string `json:"travel_budget,omitempty" example:"moderate"`
}

type Service interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*types.Profile, error)
	SavePreferences(ctx context.Context, userID uuid.UUID, prefs Preferences) (*types.Profile, error)
}

var _ Service = (*ServiceImpl)(nil)

type ServiceImpl struct {
	logger *slog.Logger
	repo   store.ProfileRepository
}

func NewService(repo store.ProfileRepository, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger: logger,
		repo:   repo,
	}
}

func (s *ServiceImpl) GetProfile(ctx context.Context, userID uuid.UUID) (*types.Profile, error) {
	ctx, span := otel.Tracer("ProfileService").Start(ctx, "GetProfile", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	p, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get profile")
		return nil, err
	}
	span.SetStatus(codes.Ok, "")
	return p, nil
}

// SavePreferences upserts the caller's profile and returns the stored row.
func (s *ServiceImpl) SavePreferences(ctx context.Context, userID uuid.UUID, prefs Preferences) (*types.Profile, error) {
	ctx, span := otel.Tracer("ProfileService").Start(ctx, "SavePreferences", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "SavePreferences"), slog.String("user_id", userID.String()))

	p := types.Profile{
		ID:               userID,
		FirstName:        trimmed(prefs.FirstName),
		LastName:         trimmed(prefs.LastName),
		TravelPace:       trimmed(prefs.TravelPace),
		LanguagesSpoken:  trimmed(prefs.LanguagesSpoken),
		CountriesToVisit: trimmed(prefs.CountriesToVisit),
		TravelBudget:     trimmed(prefs.TravelBudget),
	}
	if err := s.repo.UpsertProfile(ctx, p); err != nil {
		l.ErrorContext(ctx, "Failed to save preferences", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "upsert failed")
		return nil, fmt.Errorf("failed to save preferences: %w", err)
	}

	saved, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reload failed")
		return nil, err
	}
	l.InfoContext(ctx, "Preferences saved")
	span.SetStatus(codes.Ok, "")
	return saved, nil
}

// trimmed drops surrounding whitespace; a blank value counts as not given.
func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}
