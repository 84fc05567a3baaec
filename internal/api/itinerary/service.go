package itinerary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/FACorreiaa/go-trekly-itineraries/internal/api/imagesearch"
	"github.com/FACorreiaa/go-trekly-itineraries/internal/api/provider"
	"github.com/FACorreiaa/go-trekly-itineraries/internal/api/routing"
	"github.com/FACorreiaa/go-trekly-itineraries/internal/api/share"
	"github.com/FACorreiaa/go-trekly-itineraries/internal/api/store"
	"github.com/FACorreiaa/go-trekly-itineraries/internal/types"
)

// CreateItineraryParams are the user-supplied fields of a new itinerary.
type CreateItineraryParams struct {
	Name        string    `json:"name" example:"Lisbon long weekend"`
	Destination string    `json:"destination" example:"Lisbon, Portugal"`
	FromDate    time.Time `json:"from_date" example:"2025-05-01T00:00:00Z"`
	ToDate      time.Time `json:"to_date" example:"2025-05-04T00:00:00Z"`
	IsPublic    bool      `json:"is_public"`
}

// Validate checks the required fields and the date order.
func (p CreateItineraryParams) Validate() error {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return fmt.Errorf("name is required: %w", types.ErrInvalidInput)
	case strings.TrimSpace(p.Destination) == "":
		return fmt.Errorf("destination is required: %w", types.ErrInvalidInput)
	case p.FromDate.IsZero() || p.ToDate.IsZero():
		return fmt.Errorf("from_date and to_date are required: %w", types.ErrInvalidInput)
	case p.ToDate.Before(p.FromDate):
		return fmt.Errorf("from_date must not be after to_date: %w", types.ErrInvalidInput)
	}
	return nil
}

// Creator creates itineraries. The draft generator creates its itinerary through it.
type Creator interface {
	CreateItinerary(ctx context.Context, owner uuid.UUID, params CreateItineraryParams) (*types.Itinerary, error)
}

type Service interface {
	Creator
	ListMyItineraries(ctx context.Context, owner uuid.UUID) ([]types.Itinerary, error)
	GetItinerary(ctx context.Context, userID uuid.UUID, id int64) (*types.Itinerary, error)
	// GetItineraryByShareCode only returns public itineraries or ones owned by userID.
	GetItineraryByShareCode(ctx context.Context, userID uuid.UUID, code string) (*types.Itinerary, error)
	UpdateItinerary(ctx context.Context, userID uuid.UUID, id int64, params types.UpdateItineraryParams) error
	DeleteItinerary(ctx context.Context, userID uuid.UUID, id int64) error
	ShareQRCode(ctx context.Context, userID uuid.UUID, id int64) ([]byte, error)

	// OpenSession returns the cached session for reading, loading it on first use.
	OpenSession(ctx context.Context, userID uuid.UUID, id int64) (*Session, error)
	// EditSession is OpenSession restricted to the owner.
	EditSession(ctx context.Context, userID uuid.UUID, id int64) (*Session, error)
	// Reload discards the cached session and loads a fresh one.
	Reload(ctx context.Context, userID uuid.UUID, id int64) (*Session, error)

	Autocomplete(ctx context.Context, query string, origin *types.LatLng, radiusMeters float64) []types.Prediction
	SearchNearby(ctx context.Context, query string, center types.LatLng, radiusMeters float64) []types.PlaceDetails
}

var _ Service = (*ServiceImpl)(nil)

type ServiceImpl struct {
	logger        *slog.Logger
	repo          store.Repository
	places        provider.PlaceProvider
	engine        *routing.Engine
	images        imagesearch.Searcher
	sessions      *cache.Cache
	loads         singleflight.Group
	publicBaseURL string
}

func NewService(
	repo store.Repository,
	places provider.PlaceProvider,
	engine *routing.Engine,
	images imagesearch.Searcher,
	sessionTTL time.Duration,
	publicBaseURL string,
	logger *slog.Logger,
) *ServiceImpl {
	if sessionTTL <= 0 {
		sessionTTL = 15 * time.Minute
	}
	return &ServiceImpl{
		logger:        logger,
		repo:          repo,
		places:        places,
		engine:        engine,
		images:        images,
		sessions:      cache.New(sessionTTL, 2*sessionTTL),
		publicBaseURL: publicBaseURL,
	}
}

func (s *ServiceImpl) CreateItinerary(ctx context.Context, owner uuid.UUID, params CreateItineraryParams) (*types.Itinerary, error) {
	ctx, span := otel.Tracer("ItineraryService").Start(ctx, "CreateItinerary", trace.WithAttributes(
		attribute.String("user.id", owner.String()),
		attribute.String("itinerary.destination", params.Destination),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "CreateItinerary"), slog.String("user_id", owner.String()))

	if err := params.Validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid input")
		return nil, err
	}

	code, err := share.GenerateCode(share.CodeLength)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "share code failed")
		return nil, err
	}

	it := types.Itinerary{
		Name:        strings.TrimSpace(params.Name),
		Destination: strings.TrimSpace(params.Destination),
		FromDate:    params.FromDate,
		ToDate:      params.ToDate,
		ShareCode:   &code,
		Owner:       &owner,
		IsPublic:    params.IsPublic,
		Thumbnail:   s.images.CoverImageURL(ctx, imagesearch.CoverQuery(params.Destination)),
	}

	if it.ID, err = s.repo.InsertItinerary(ctx, it); err != nil {
		l.ErrorContext(ctx, "Failed to create itinerary", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return nil, fmt.Errorf("failed to create itinerary: %w", err)
	}

	l.InfoContext(ctx, "Itinerary created", slog.Int64("itinerary_id", it.ID))
	span.SetAttributes(attribute.Int64("itinerary.id", it.ID))
	span.SetStatus(codes.Ok, "")
	return &it, nil
}

func (s *ServiceImpl) ListMyItineraries(ctx context.Context, owner uuid.UUID) ([]types.Itinerary, error) {
	ctx, span := otel.Tracer("ItineraryService").Start(ctx, "ListMyItineraries", trace.WithAttributes(
		attribute.String("user.id", owner.String()),
	))
	defer span.End()

	list, err := s.repo.ListItinerariesByOwner(ctx, owner)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list itineraries",
			slog.String("method", "ListMyItineraries"), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "list failed")
		return nil, err
	}
	span.SetStatus(codes.Ok, "")
	return list, nil
}

func ownedBy(it *types.Itinerary, userID uuid.UUID) bool {
	return it.Owner != nil && *it.Owner == userID
}

// authorize loads the itinerary and checks that userID may read it, or own it when
// write is set. Itineraries the caller may not read are reported as not found.
func (s *ServiceImpl) authorize(ctx context.Context, userID uuid.UUID, id int64, write bool) (*types.Itinerary, error) {
	it, err := s.repo.GetItinerary(ctx, id)
	if err != nil {
		return nil, err
	}
	owner := ownedBy(it, userID)
	if !owner && !it.IsPublic {
		return nil, fmt.Errorf("itinerary %d: %w", id, types.ErrNotFound)
	}
	if write && !owner {
		return nil, fmt.Errorf("itinerary %d is read-only for this user: %w", id, types.ErrForbidden)
	}
	return it, nil
}

func (s *ServiceImpl) GetItinerary(ctx context.Context, userID uuid.UUID, id int64) (*types.Itinerary, error) {
	ctx, span := otel.Tracer("ItineraryService").Start(ctx, "GetItinerary", trace.WithAttributes(
		attribute.Int64("itinerary.id", id),
	))
	defer span.End()

	it, err := s.authorize(ctx, userID, id, false)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "get failed")
		return nil, err
	}
	span.SetStatus(codes.Ok, "")
	return it, nil
}

func (s *ServiceImpl) GetItineraryByShareCode(ctx context.Context, userID uuid.UUID, code string) (*types.Itinerary, error) {
	ctx, span := otel.Tracer("ItineraryService").Start(ctx, "GetItineraryByShareCode")
	defer span.End()

	it, err := s.repo.GetItineraryByShareCode(ctx, code)
	if err == nil && !it.IsPublic && !ownedBy(it, userID) {
		err = fmt.Errorf("share code %q: %w", code, types.ErrNotFound)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lookup failed")
		return nil, err
	}
	span.SetStatus(codes.Ok, "")
	return it, nil
}

func (s *ServiceImpl) UpdateItinerary(ctx context.Context, userID uuid.UUID, id int64, params types.UpdateItineraryParams) error {
	ctx, span := otel.Tracer("ItineraryService").Start(ctx, "UpdateItinerary", trace.WithAttributes(
		attribute.Int64("itinerary.id", id),
	))
	defer span.End()

	it, err := s.authorize(ctx, userID, id, true)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "unauthorized")
		return err
	}

	from, to := it.FromDate, it.ToDate
	if params.FromDate != nil {
		from = *params.FromDate
	}
	if params.ToDate != nil {
		to = *params.ToDate
	}
	if to.Before(from) {
		err = fmt.Errorf("from_date must not be after to_date: %w", types.ErrInvalidInput)
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid range")
		return err
	}

	if err = s.repo.UpdateItinerary(ctx, id, params); err != nil {
		s.logger.ErrorContext(ctx, "Failed to update itinerary",
			slog.String("method", "UpdateItinerary"), slog.Int64("itinerary_id", id), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return err
	}
	s.sessions.Delete(sessionKey(userID, id))
	span.SetStatus(codes.Ok, "")
	return nil
}

func (s *ServiceImpl) DeleteItinerary(ctx context.Context, userID uuid.UUID, id int64) error {
	ctx, span := otel.Tracer("ItineraryService").Start(ctx, "DeleteItinerary", trace.WithAttributes(
		attribute.Int64("itinerary.id", id),
	))
	defer span.End()

	if _, err := s.authorize(ctx, userID, id, true); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "unauthorized")
		return err
	}
	if err := s.repo.DeleteItinerary(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "Failed to delete itinerary",
			slog.String("method", "DeleteItinerary"), slog.Int64("itinerary_id", id), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
		return err
	}
	s.sessions.Delete(sessionKey(userID, id))
	span.SetStatus(codes.Ok, "")
	return nil
}

func (s *ServiceImpl) ShareQRCode(ctx context.Context, userID uuid.UUID, id int64) ([]byte, error) {
	ctx, span := otel.Tracer("ItineraryService").Start(ctx, "ShareQRCode", trace.WithAttributes(
		attribute.Int64("itinerary.id", id),
	))
	defer span.End()

	it, err := s.authorize(ctx, userID, id, false)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "unauthorized")
		return nil, err
	}
	if it.ShareCode == nil || *it.ShareCode == "" {
		err = fmt.Errorf("itinerary %d has no share code: %w", id, types.ErrNotFound)
		span.RecordError(err)
		span.SetStatus(codes.Error, "no share code")
		return nil, err
	}
	png, err := share.QRCode(s.publicBaseURL, *it.ShareCode)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "qr failed")
		return nil, err
	}
	span.SetStatus(codes.Ok, "")
	return png, nil
}

func sessionKey(userID uuid.UUID, id int64) string {
	return fmt.Sprintf("%s:%d", userID, id)
}

func (s *ServiceImpl) OpenSession(ctx context.Context, userID uuid.UUID, id int64) (*Session, error) {
	return s.session(ctx, userID, id, false, false)
}

func (s *ServiceImpl) EditSession(ctx context.Context, userID uuid.UUID, id int64) (*Session, error) {
	return s.session(ctx, userID, id, true, false)
}

func (s *ServiceImpl) Reload(ctx context.Context, userID uuid.UUID, id int64) (*Session, error) {
	return s.session(ctx, userID, id, false, true)
}

func (s *ServiceImpl) session(ctx context.Context, userID uuid.UUID, id int64, write, fresh bool) (*Session, error) {
	ctx, span := otel.Tracer("ItineraryService").Start(ctx, "Session", trace.WithAttributes(
		attribute.Int64("itinerary.id", id),
		attribute.Bool("write", write),
		attribute.Bool("fresh", fresh),
	))
	defer span.End()

	if _, err := s.authorize(ctx, userID, id, write); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "unauthorized")
		return nil, err
	}

	key := sessionKey(userID, id)
	if !fresh {
		if cached, ok := s.sessions.Get(key); ok {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			span.SetStatus(codes.Ok, "")
			return cached.(*Session), nil
		}
	}

	// Concurrent misses for the same key wait for one load and share its session.
	v, err, shared := s.loads.Do(key, func() (any, error) {
		if !fresh {
			if cached, ok := s.sessions.Get(key); ok {
				return cached, nil
			}
		}
		sess := NewSession(id, s.repo, s.places, s.engine, s.logger)
		sess.Load(ctx)
		if _, err := sess.Itinerary(); err != nil && errors.Is(err, types.ErrNotFound) {
			return nil, err
		}
		s.sessions.Set(key, sess, cache.DefaultExpiration)
		return sess, nil
	})
	span.SetAttributes(attribute.Bool("load.shared", shared))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "itinerary vanished")
		return nil, err
	}
	span.SetStatus(codes.Ok, "")
	return v.(*Session), nil
}

func (s *ServiceImpl) Autocomplete(ctx context.Context, query string, origin *types.LatLng, radiusMeters float64) []types.Prediction {
	return s.places.Autocomplete(ctx, query, origin, radiusMeters)
}

func (s *ServiceImpl) SearchNearby(ctx context.Context, query string, center types.LatLng, radiusMeters float64) []types.PlaceDetails {
	return s.places.SearchNearby(ctx, query, center, radiusMeters)
}
