package itinerary

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/go-trekly-itineraries/internal/api/format"
	"github.com/FACorreiaa/go-trekly-itineraries/internal/api/provider"
	"github.com/FACorreiaa/go-trekly-itineraries/internal/api/routing"
	"github.com/FACorreiaa/go-trekly-itineraries/internal/api/store"
	"github.com/FACorreiaa/go-trekly-itineraries/internal/types"
)

const (
	thumbnailSize   = 200
	enrichmentLimit = 8
	mapTravelMode   = types.TravelModeDriving
)

// Session holds the in-memory view of one itinerary and applies mutations to it and
// to the store. The store stays authoritative: a mutation whose remote write fails is
// reverted locally.
type Session struct {
	logger      *slog.Logger
	repo        store.Repository
	places      provider.PlaceProvider
	engine      *routing.Engine
	itineraryID int64

	mu             sync.Mutex
	itinerary      types.State[*types.Itinerary]
	accommodations types.State[[]types.Accommodation]
	transportation types.State[[]types.Transportation]
	activities     types.State[[]types.Activity]
	photos         map[int64][]byte
	mapStops       []types.MapStop
	legs           []types.RouteLeg
	dirty          bool
	// mutations counts markDirty calls so a refresh can tell whether it raced one.
	mutations uint64
}

// markDirty flags the map as stale. Callers hold s.mu.
func (s *Session) markDirty() {
	s.dirty = true
	s.mutations++
}

func NewSession(itineraryID int64, repo store.Repository, places provider.PlaceProvider, engine *routing.Engine, logger *slog.Logger) *Session {
	return &Session{
		logger:         logger.With(slog.Int64("itinerary_id", itineraryID)),
		repo:           repo,
		places:         places,
		engine:         engine,
		itineraryID:    itineraryID,
		itinerary:      types.Loading[*types.Itinerary](),
		accommodations: types.Loading[[]types.Accommodation](),
		transportation: types.Loading[[]types.Transportation](),
		activities:     types.Loading[[]types.Activity](),
		photos:         map[int64][]byte{},
		mapStops:       []types.MapStop{},
		legs:           []types.RouteLeg{},
	}
}

// Load fetches the itinerary and its three child collections concurrently. Each lands
// in its own State, so one failing collection does not hide the others.
func (s *Session) Load(ctx context.Context) {
	ctx, span := otel.Tracer("ItinerarySession").Start(ctx, "Load", trace.WithAttributes(
		attribute.Int64("itinerary.id", s.itineraryID),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "Load"))

	var g errgroup.Group
	g.Go(func() error {
		it, err := s.repo.GetItinerary(ctx, s.itineraryID)
		s.mu.Lock()
		defer s.mu.Unlock()
		if err != nil {
			l.ErrorContext(ctx, "Failed to load itinerary", slog.Any("error", err))
			s.itinerary = types.Failure[*types.Itinerary](err)
			return nil
		}
		s.itinerary = types.Success(it)
		return nil
	})
	g.Go(func() error {
		list, err := s.repo.SelectAccommodations(ctx, s.itineraryID, true)
		if err != nil {
			l.ErrorContext(ctx, "Failed to load accommodations", slog.Any("error", err))
			s.mu.Lock()
			s.accommodations = types.Failure[[]types.Accommodation](err)
			s.mu.Unlock()
			return nil
		}
		s.attachAddresses(ctx, list)
		s.mu.Lock()
		s.accommodations = types.Success(list)
		s.mu.Unlock()
		return nil
	})
	g.Go(func() error {
		list, err := s.repo.SelectTransportations(ctx, s.itineraryID)
		s.mu.Lock()
		defer s.mu.Unlock()
		if err != nil {
			l.ErrorContext(ctx, "Failed to load transportation", slog.Any("error", err))
			s.transportation = types.Failure[[]types.Transportation](err)
			return nil
		}
		s.transportation = types.Success(list)
		return nil
	})
	g.Go(func() error {
		list, err := s.repo.SelectActivities(ctx, s.itineraryID, true)
		if err != nil {
			l.ErrorContext(ctx, "Failed to load activities", slog.Any("error", err))
			s.mu.Lock()
			s.activities = types.Failure[[]types.Activity](err)
			s.mu.Unlock()
			return nil
		}
		sortActivities(list)
		photos := s.fetchPhotos(ctx, list)
		s.mu.Lock()
		s.activities = types.Success(list)
		s.photos = photos
		s.mu.Unlock()
		return nil
	})
	_ = g.Wait()

	s.mu.Lock()
	failed := !s.itinerary.IsSuccess() || !s.accommodations.IsSuccess() ||
		!s.transportation.IsSuccess() || !s.activities.IsSuccess()
	s.mu.Unlock()
	if failed {
		span.SetStatus(codes.Error, "partial load")
		return
	}
	span.SetStatus(codes.Ok, "")
}

// attachAddresses fills Place.Address of every joined place. Missing addresses are left nil.
func (s *Session) attachAddresses(ctx context.Context, list []types.Accommodation) {
	var g errgroup.Group
	g.SetLimit(enrichmentLimit)
	for i := range list {
		p := list[i].Place
		if p == nil || p.GoogleMapsPlaceID == "" {
			continue
		}
		g.Go(func() error {
			p.Address = s.places.FetchAddress(ctx, p.GoogleMapsPlaceID)
			return nil
		})
	}
	_ = g.Wait()
}

// fetchPhotos returns thumbnails keyed by activity id. Activities without a photo are absent.
func (s *Session) fetchPhotos(ctx context.Context, list []types.Activity) map[int64][]byte {
	var mu sync.Mutex
	photos := make(map[int64][]byte, len(list))

	var g errgroup.Group
	g.SetLimit(enrichmentLimit)
	for _, a := range list {
		if a.Place == nil || a.Place.GoogleMapsPlaceID == "" {
			continue
		}
		g.Go(func() error {
			if photo := s.places.FetchPhoto(ctx, a.Place.GoogleMapsPlaceID, thumbnailSize, thumbnailSize); photo != nil {
				mu.Lock()
				photos[a.ID] = photo
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return photos
}

// Photo returns the cached thumbnail of an activity.
func (s *Session) Photo(activityID int64) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	photo, ok := s.photos[activityID]
	return photo, ok
}

// Itinerary returns the loaded itinerary, or the load error.
func (s *Session) Itinerary() (*types.Itinerary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.itinerary.IsSuccess() {
		return nil, stateErr(s.itinerary.Err)
	}
	it := *s.itinerary.Data
	return &it, nil
}

// Activities returns a copy of the loaded activities in start order.
func (s *Session) Activities() ([]types.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.activities.IsSuccess() {
		return nil, stateErr(s.activities.Err)
	}
	return append([]types.Activity{}, s.activities.Data...), nil
}

func (s *Session) Accommodations() ([]types.Accommodation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.accommodations.IsSuccess() {
		return nil, stateErr(s.accommodations.Err)
	}
	return append([]types.Accommodation{}, s.accommodations.Data...), nil
}

func stateErr(err error) error {
	if err != nil {
		return err
	}
	return types.ErrCollectionNotLoaded
}

// ItineraryView is the itinerary with its display strings.
type ItineraryView struct {
	*types.Itinerary
	Duration string `json:"duration"`
	Dates    string `json:"dates"`
}

type AccommodationView struct {
	types.Accommodation
	Dates         string `json:"dates"`
	CheckInLabel  string `json:"check_in_label"`
	CheckOutLabel string `json:"check_out_label"`
}

type ActivityView struct {
	types.Activity
	Time     string `json:"time"`
	Duration string `json:"duration"`
	HasPhoto bool   `json:"has_photo"`
}

type DayView struct {
	Date           string         `json:"date"`
	Label          string         `json:"label"`
	NothingPlanned bool           `json:"nothing_planned"`
	Activities     []ActivityView `json:"activities"`
}

// View is a point-in-time copy of the session, one State per collection.
type View struct {
	Itinerary      types.State[*ItineraryView]         `json:"itinerary"`
	Accommodations types.State[[]AccommodationView]    `json:"accommodations"`
	Transportation types.State[[]types.Transportation] `json:"transportation"`
	Schedule       types.State[[]DayView]              `json:"schedule"`
	Dirty          bool                                `json:"dirty"`
}

// MapView is the ordered place list with the legs computed between them.
type MapView struct {
	Stops []types.MapStop  `json:"stops"`
	Legs  []types.RouteLeg `json:"legs"`
	Dirty bool             `json:"dirty"`
}

func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		Itinerary: types.MapState(s.itinerary, func(it *types.Itinerary) *ItineraryView {
			cp := *it
			return &ItineraryView{
				Itinerary: &cp,
				Duration:  format.TripDuration(it.FromDate, it.ToDate),
				Dates:     format.DateRange(it.FromDate, it.ToDate),
			}
		}),
		Accommodations: types.MapState(s.accommodations, func(list []types.Accommodation) []AccommodationView {
			out := make([]AccommodationView, 0, len(list))
			for _, a := range list {
				out = append(out, AccommodationView{
					Accommodation: a,
					Dates:         format.DateRange(a.FromDate, a.ToDate),
					CheckInLabel:  format.CheckTime(a.CheckIn),
					CheckOutLabel: format.CheckTime(a.CheckOut),
				})
			}
			return out
		}),
		Transportation: types.MapState(s.transportation, func(list []types.Transportation) []types.Transportation {
			return append([]types.Transportation{}, list...)
		}),
		Dirty: s.dirty,
	}

	switch {
	case !s.activities.IsSuccess():
		v.Schedule = types.MapState(s.activities, func([]types.Activity) []DayView { return nil })
	case !s.itinerary.IsSuccess():
		// The day range needs the trip dates.
		v.Schedule = types.MapState(s.itinerary, func(*types.Itinerary) []DayView { return nil })
	default:
		it := s.itinerary.Data
		days := BuildSchedule(it.FromDate, it.ToDate, s.activities.Data)
		out := make([]DayView, 0, len(days))
		for _, d := range days {
			activities := make([]ActivityView, 0, len(d.Activities))
			for _, a := range d.Activities {
				_, hasPhoto := s.photos[a.ID]
				activities = append(activities, ActivityView{
					Activity: a,
					Time:     format.ActivityTimes(a.FromTime, a.ToTime),
					Duration: format.ActivityDuration(a.FromTime, a.ToTime),
					HasPhoto: hasPhoto,
				})
			}
			out = append(out, DayView{
				Date:           format.DayKey(d.Date),
				Label:          d.Label,
				NothingPlanned: d.NothingPlanned,
				Activities:     activities,
			})
		}
		v.Schedule = types.Success(out)
	}
	return v
}

func (s *Session) Map() MapView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return MapView{
		Stops: append([]types.MapStop{}, s.mapStops...),
		Legs:  append([]types.RouteLeg{}, s.legs...),
		Dirty: s.dirty,
	}
}

// Dirty reports whether activities changed since the map was last refreshed.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}
