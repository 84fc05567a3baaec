package draft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/go-trekly-itineraries/app/observability/metrics"
	"github.com/FACorreiaa/go-trekly-itineraries/internal/api/itinerary"
	"github.com/FACorreiaa/go-trekly-itineraries/internal/api/provider"
	"github.com/FACorreiaa/go-trekly-itineraries/internal/api/routing"
	"github.com/FACorreiaa/go-trekly-itineraries/internal/api/store"
	"github.com/FACorreiaa/go-trekly-itineraries/internal/types"
)

const (
	defaultConcurrency = 4
	directRoute        = "Direct route"
)

// activityTimeLayouts are the local date-time layouts accepted for from_time/to_time.
var activityTimeLayouts = []string{"2006-01-02T15:04:05", "2006-01-02T15:04"}

// Request is a draft request: the new itinerary's fields plus the traveller's free text.
type Request struct {
	Name           string                   `json:"name" example:"Tokyo in spring"`
	Destination    string                   `json:"destination" example:"Tokyo, Japan"`
	FromDate       time.Time                `json:"from_date" example:"2025-04-01T00:00:00Z"`
	ToDate         time.Time                `json:"to_date" example:"2025-04-03T00:00:00Z"`
	Transportation types.TransportationType `json:"transportation" example:"Transit"`
	Preferences    string                   `json:"preferences" example:"Temples, ramen and a day for anime shops"`
}

// Recommendation is one element of the model's JSON answer.
type Recommendation struct {
	DayNumber   int    `json:"day_number"`
	PlaceName   string `json:"place_name"`
	Description string `json:"description"`
	FromTime    string `json:"from_time"`
	ToTime      string `json:"to_time"`
}

// Result describes what a draft persisted.
type Result struct {
	Itinerary        *types.Itinerary `json:"itinerary"`
	Activities       int              `json:"activities"`
	Transportation   int              `json:"transportation"`
	UnresolvedPlaces []string         `json:"unresolved_places,omitempty"`
	Skipped          int              `json:"skipped"`
}

type Service interface {
	Generate(ctx context.Context, owner uuid.UUID, req Request) (*Result, error)
}

var _ Service = (*ServiceImpl)(nil)

type ServiceImpl struct {
	logger      *slog.Logger
	completer   Completer
	itineraries itinerary.Creator
	repo        store.Repository
	places      provider.PlaceProvider
	engine      *routing.Engine
	concurrency int
}

func NewService(
	completer Completer,
	itineraries itinerary.Creator,
	repo store.Repository,
	places provider.PlaceProvider,
	engine *routing.Engine,
	concurrency int,
	logger *slog.Logger,
) *ServiceImpl {
	if concurrency < 1 {
		concurrency = defaultConcurrency
	}
	return &ServiceImpl{
		logger:      logger,
		completer:   completer,
		itineraries: itineraries,
		repo:        repo,
		places:      places,
		engine:      engine,
		concurrency: concurrency,
	}
}

// stop is an activity inserted by the draft, kept for route computation.
type stop struct {
	activityID int64
	location   types.LatLng
	toTime     time.Time
}

// Generate asks the completion service for an itinerary and persists it. The answer is
// parsed in full before anything is written, so a malformed answer never leaves an
// empty itinerary behind. Activities are inserted concurrently and are not rolled back
// when a sibling fails.
func (s *ServiceImpl) Generate(ctx context.Context, owner uuid.UUID, req Request) (*Result, error) {
	ctx, span := otel.Tracer("DraftService").Start(ctx, "Generate", trace.WithAttributes(
		attribute.String("user.id", owner.String()),
		attribute.String("itinerary.destination", req.Destination),
		attribute.String("transportation", string(req.Transportation)),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "Generate"), slog.String("user_id", owner.String()))

	params := itinerary.CreateItineraryParams{
		Name:        req.Name,
		Destination: req.Destination,
		FromDate:    req.FromDate,
		ToDate:      req.ToDate,
	}
	if err := params.Validate(); err != nil {
		return nil, s.abort(ctx, span, "invalid_input", err)
	}
	if !req.Transportation.Valid() {
		return nil, s.abort(ctx, span, "invalid_input",
			fmt.Errorf("transportation type %q: %w", req.Transportation, types.ErrInvalidInput))
	}
	if strings.TrimSpace(req.Preferences) == "" {
		l.InfoContext(ctx, "No preferences given")
		return nil, s.abort(ctx, span, "no_recommendations", types.ErrNoRecommendations)
	}

	answer, err := s.completer.Complete(ctx, SystemPrompt(req), req.Preferences)
	if err != nil {
		l.ErrorContext(ctx, "Completion failed", slog.Any("error", err))
		return nil, s.abort(ctx, span, "no_recommendations", fmt.Errorf("%w: %w", types.ErrNoRecommendations, err))
	}

	recommendations, err := parseRecommendations(answer)
	if err != nil {
		l.WarnContext(ctx, "Unusable completion", slog.Any("error", err), slog.Int("answer.length", len(answer)))
		outcome := lo.Ternary(errors.Is(err, types.ErrNoRecommendations), "no_recommendations", "unparseable")
		return nil, s.abort(ctx, span, outcome, err)
	}
	span.SetAttributes(attribute.Int("recommendations.count", len(recommendations)))

	it, err := s.itineraries.CreateItinerary(ctx, owner, params)
	if err != nil {
		l.ErrorContext(ctx, "Failed to create draft itinerary", slog.Any("error", err))
		return nil, s.abort(ctx, span, "create_failed", err)
	}
	l = l.With(slog.Int64("itinerary_id", it.ID))

	result := &Result{Itinerary: it}
	stops, unresolved := s.insertActivities(ctx, l, it.ID, recommendations)
	placed := lo.Filter(stops, func(st *stop, _ int) bool { return st != nil })
	result.Activities = len(placed)
	result.Skipped = len(recommendations) - len(placed)
	result.UnresolvedPlaces = unresolved

	if mode, ok := TravelModeFor(req.Transportation); ok {
		result.Transportation = s.insertTransportation(ctx, l, it.ID, req.Transportation, mode, placed)
	}

	metrics.Get().DraftsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "ok")))
	l.InfoContext(ctx, "Draft itinerary created",
		slog.Int("activities", result.Activities),
		slog.Int("transportation", result.Transportation),
		slog.Int("skipped", result.Skipped))
	span.SetAttributes(attribute.Int64("itinerary.id", it.ID))
	span.SetStatus(codes.Ok, "")
	return result, nil
}

func (s *ServiceImpl) abort(ctx context.Context, span trace.Span, outcome string, err error) error {
	metrics.Get().DraftsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	span.RecordError(err)
	span.SetStatus(codes.Error, outcome)
	return err
}

// parseRecommendations requires a JSON array. Anything that does not start with '[' is
// not an answer at all; an array that does not decode is unparseable.
func parseRecommendations(answer string) ([]Recommendation, error) {
	cleaned := cleanCompletion(answer)
	if cleaned == "" || cleaned[0] != '[' {
		return nil, types.ErrNoRecommendations
	}
	var recs []Recommendation
	if err := json.Unmarshal([]byte(cleaned), &recs); err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrUnparseableRecommendations, err)
	}
	if len(recs) == 0 {
		return nil, types.ErrNoRecommendations
	}
	return recs, nil
}

func parseActivityTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range activityTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised activity time %q", raw)
}

// insertActivities writes a place and an activity per recommendation. The returned slice
// is in recommendation order with nil for elements that could not be written.
func (s *ServiceImpl) insertActivities(ctx context.Context, l *slog.Logger, itineraryID int64, recs []Recommendation) ([]*stop, []string) {
	stops := make([]*stop, len(recs))
	unresolved := make([]bool, len(recs))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, rec := range recs {
		g.Go(func() error {
			el := l.With(slog.Int("element", i), slog.String("place_name", rec.PlaceName))
			name := strings.TrimSpace(rec.PlaceName)
			from, fromErr := parseActivityTime(rec.FromTime)
			to, toErr := parseActivityTime(rec.ToTime)
			if name == "" || fromErr != nil || toErr != nil {
				el.WarnContext(ctx, "Skipping malformed recommendation",
					slog.Any("from_error", fromErr), slog.Any("to_error", toErr))
				return nil
			}

			place := types.Place{Name: name}
			if details := s.places.ResolvePlaceByName(ctx, name); details != nil {
				place.Lat, place.Lng = details.Location.Lat, details.Location.Lng
				place.GoogleMapsPlaceID = details.ID
			} else {
				unresolved[i] = true
			}

			placeID, err := s.repo.InsertPlace(ctx, place)
			if err != nil {
				el.ErrorContext(ctx, "Failed to insert place", slog.Any("error", err))
				return nil
			}
			activityID, err := s.repo.InsertActivity(ctx, types.Activity{
				ItineraryID: itineraryID,
				FromTime:    from,
				ToTime:      to,
				PlaceID:     placeID,
				Notes:       rec.Description,
			})
			if err != nil {
				el.ErrorContext(ctx, "Failed to insert activity", slog.Any("error", err))
				return nil
			}
			stops[i] = &stop{
				activityID: activityID,
				location:   types.LatLng{Lat: place.Lat, Lng: place.Lng},
				toTime:     to,
			}
			return nil
		})
	}
	_ = g.Wait()

	var names []string
	for i, missing := range unresolved {
		if missing && stops[i] != nil {
			names = append(names, recs[i].PlaceName)
		}
	}
	return stops, names
}

// insertTransportation routes consecutive activities in recommendation order and records
// a transportation row per computed leg. Legs without a route are skipped.
func (s *ServiceImpl) insertTransportation(ctx context.Context, l *slog.Logger, itineraryID int64, kind types.TransportationType, mode types.TravelMode, stops []*stop) int {
	legs := s.engine.Assemble(ctx, lo.Map(stops, func(st *stop, _ int) types.LatLng { return st.location }), mode)

	inserted := 0
	for _, leg := range legs {
		from, to := stops[leg.FromIndex], stops[leg.ToIndex]
		distance, duration := leg.Route.Distance, leg.Route.Duration
		_, err := s.repo.InsertTransportation(ctx, types.Transportation{
			ItineraryID:    itineraryID,
			Time:           from.toTime,
			Type:           kind,
			Notes:          TransitSummary(leg.Route.TransitSteps),
			FromActivityID: &from.activityID,
			ToActivityID:   &to.activityID,
			Distance:       &distance,
			Duration:       &duration,
		})
		if err != nil {
			l.ErrorContext(ctx, "Failed to insert transportation",
				slog.Int64("from_activity_id", from.activityID), slog.Any("error", err))
			continue
		}
		inserted++
	}
	return inserted
}

// TransitSummary flattens transit rides into one line, or "Direct route" when there are none.
func TransitSummary(steps []types.TransitStep) string {
	if len(steps) == 0 {
		return directRoute
	}
	return strings.Join(lo.Map(steps, func(st types.TransitStep, _ int) string {
		line := ""
		if st.Line != nil {
			line = st.Line.Name
		}
		return fmt.Sprintf("%s towards %s on %s for %s (%s)", st.Mode, st.Headsign, line, st.Distance, st.Duration)
	}), ", ")
}
