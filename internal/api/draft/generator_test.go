package draft

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-trekly-itineraries/internal/api/itinerary"
	"github.com/FACorreiaa/go-trekly-itineraries/internal/api/provider/providermock"
	"github.com/FACorreiaa/go-trekly-itineraries/internal/api/routing"
	"github.com/FACorreiaa/go-trekly-itineraries/internal/api/store/storemock"
	"github.com/FACorreiaa/go-trekly-itineraries/internal/types"
)

type MockCompleter struct {
	mock.Mock
}

func (m *MockCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	args := m.Called(ctx, system, user)
	return args.String(0), args.Error(1)
}

type MockCreator struct {
	mock.Mock
}

func (m *MockCreator) CreateItinerary(ctx context.Context, owner uuid.UUID, params itinerary.CreateItineraryParams) (*types.Itinerary, error) {
	args := m.Called(ctx, owner, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Itinerary), args.Error(1)
}

type draftMocks struct {
	completer *MockCompleter
	creator   *MockCreator
	repo      *storemock.MockRepository
	places    *providermock.MockProvider
}

func setupGeneratorTest() (*ServiceImpl, draftMocks) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	m := draftMocks{
		completer: new(MockCompleter),
		creator:   new(MockCreator),
		repo:      new(storemock.MockRepository),
		places:    new(providermock.MockProvider),
	}
	engine := routing.NewEngine(m.places, 2, logger)
	return NewService(m.completer, m.creator, m.repo, m.places, engine, 2, logger), m
}

func validRequest(transport types.TransportationType) Request {
	return Request{
		Name:           "Lisbon long weekend",
		Destination:    "Lisbon, Portugal",
		FromDate:       time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		ToDate:         time.Date(2025, 5, 3, 0, 0, 0, 0, time.UTC),
		Transportation: transport,
		Preferences:    "Pastries, viewpoints and tiles",
	}
}

const threeStops = "```json\n" + `[
  {"day_number": 1, "place_name": "Pasteis de Belem, Lisbon", "description": "Custard tarts", "from_time": "2025-05-01T09:00:00", "to_time": "2025-05-01T10:00:00", "estimated_cost": 5},
  {"day_number": 1, "place_name": "Secret Viewpoint, Lisbon", "description": "Sunset", "from_time": "2025-05-01T18:00", "to_time": "2025-05-01T19:30"},
  {"day_number": 2, "place_name": "Museu do Azulejo, Lisbon", "description": "Tiles", "from_time": "2025-05-02T10:00:00", "to_time": "2025-05-02T12:00:00"}
]` + "\n```"

func placeNamed(name string) any {
	return mock.MatchedBy(func(p types.Place) bool { return p.Name == name })
}

func activityWithNotes(notes string) any {
	return mock.MatchedBy(func(a types.Activity) bool { return a.Notes == notes })
}

func TestGenerate_RejectsBeforeCallingTheModel(t *testing.T) {
	owner := uuid.New()

	t.Run("inverted dates", func(t *testing.T) {
		svc, m := setupGeneratorTest()
		req := validRequest(types.TransportationWalk)
		req.ToDate = req.FromDate.AddDate(0, 0, -1)

		_, err := svc.Generate(context.Background(), owner, req)

		assert.ErrorIs(t, err, types.ErrInvalidInput)
		m.completer.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown transportation", func(t *testing.T) {
		svc, m := setupGeneratorTest()
		_, err := svc.Generate(context.Background(), owner, validRequest("Teleport"))

		assert.ErrorIs(t, err, types.ErrInvalidInput)
		m.completer.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("blank preferences", func(t *testing.T) {
		svc, m := setupGeneratorTest()
		req := validRequest(types.TransportationWalk)
		req.Preferences = "   "

		_, err := svc.Generate(context.Background(), owner, req)

		assert.ErrorIs(t, err, types.ErrNoRecommendations)
		m.completer.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestGenerate_UnusableAnswerCreatesNothing(t *testing.T) {
	owner := uuid.New()
	tests := []struct {
		name    string
		answer  string
		callErr error
		wantErr error
	}{
		{name: "completion error", callErr: errors.New("quota exceeded"), wantErr: types.ErrNoRecommendations},
		{name: "empty answer", answer: "", wantErr: types.ErrNoRecommendations},
		{name: "prose answer", answer: "Sorry, I cannot help with that.", wantErr: types.ErrNoRecommendations},
		{name: "empty array", answer: "[]", wantErr: types.ErrNoRecommendations},
		{name: "broken array", answer: `[{"place_name": "Alfama"`, wantErr: types.ErrUnparseableRecommendations},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := setupGeneratorTest()
			m.completer.On("Complete", mock.Anything, mock.Anything, "Pastries, viewpoints and tiles").
				Return(tt.answer, tt.callErr).Once()

			result, err := svc.Generate(context.Background(), owner, validRequest(types.TransportationWalk))

			assert.Nil(t, result)
			assert.ErrorIs(t, err, tt.wantErr)
			m.creator.AssertNotCalled(t, "CreateItinerary", mock.Anything, mock.Anything, mock.Anything)
			m.repo.AssertNotCalled(t, "InsertPlace", mock.Anything, mock.Anything)
		})
	}
}

func TestGenerate_PersistsActivitiesAndRoutes(t *testing.T) {
	owner := uuid.New()
	svc, m := setupGeneratorTest()
	req := validRequest(types.TransportationTransit)

	m.completer.On("Complete", mock.Anything, mock.MatchedBy(func(system string) bool {
		return system == SystemPrompt(req)
	}), req.Preferences).Return(threeStops, nil).Once()

	it := &types.Itinerary{ID: 9, Name: req.Name, Owner: &owner}
	m.creator.On("CreateItinerary", mock.Anything, owner, mock.MatchedBy(func(p itinerary.CreateItineraryParams) bool {
		return p.Name == req.Name && !p.IsPublic
	})).Return(it, nil).Once()

	belem := types.LatLng{Lat: 38.697, Lng: -9.203}
	azulejo := types.LatLng{Lat: 38.724, Lng: -9.113}
	m.places.On("ResolvePlaceByName", mock.Anything, "Pasteis de Belem, Lisbon").
		Return(&types.PlaceDetails{ID: "gm-belem", Location: belem}).Once()
	m.places.On("ResolvePlaceByName", mock.Anything, "Secret Viewpoint, Lisbon").Return(nil).Once()
	m.places.On("ResolvePlaceByName", mock.Anything, "Museu do Azulejo, Lisbon").
		Return(&types.PlaceDetails{ID: "gm-azulejo", Location: azulejo}).Once()

	m.repo.On("InsertPlace", mock.Anything, mock.MatchedBy(func(p types.Place) bool {
		return p.Name == "Pasteis de Belem, Lisbon" && p.GoogleMapsPlaceID == "gm-belem" && p.Lat == belem.Lat
	})).Return(int64(11), nil).Once()
	m.repo.On("InsertPlace", mock.Anything, mock.MatchedBy(func(p types.Place) bool {
		return p.Name == "Secret Viewpoint, Lisbon" && p.GoogleMapsPlaceID == "" && p.Lat == 0 && p.Lng == 0
	})).Return(int64(12), nil).Once()
	m.repo.On("InsertPlace", mock.Anything, placeNamed("Museu do Azulejo, Lisbon")).Return(int64(13), nil).Once()

	m.repo.On("InsertActivity", mock.Anything, mock.MatchedBy(func(a types.Activity) bool {
		return a.Notes == "Custard tarts" && a.PlaceID == 11 && a.ItineraryID == 9 &&
			a.FromTime.Equal(time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC))
	})).Return(int64(21), nil).Once()
	m.repo.On("InsertActivity", mock.Anything, mock.MatchedBy(func(a types.Activity) bool {
		return a.Notes == "Sunset" && a.ToTime.Equal(time.Date(2025, 5, 1, 19, 30, 0, 0, time.UTC))
	})).Return(int64(22), nil).Once()
	m.repo.On("InsertActivity", mock.Anything, activityWithNotes("Tiles")).Return(int64(23), nil).Once()

	m.places.On("ComputeRoute", mock.Anything, belem, types.LatLng{}, types.TravelModeTransit).
		Return(&types.RouteInfo{
			Distance: "6.1 km",
			Duration: "24 mins",
			TransitSteps: []types.TransitStep{
				{Mode: "TRANSIT", Headsign: "Cais do Sodre", Line: &types.TransitLine{Name: "15E"}, Distance: "5.0 km", Duration: "18 mins"},
			},
		}).Once()
	m.places.On("ComputeRoute", mock.Anything, types.LatLng{}, azulejo, types.TravelModeTransit).Return(nil).Once()

	m.repo.On("InsertTransportation", mock.Anything, mock.MatchedBy(func(tr types.Transportation) bool {
		return tr.ItineraryID == 9 &&
			tr.Type == types.TransportationTransit &&
			*tr.FromActivityID == 21 && *tr.ToActivityID == 22 &&
			tr.Time.Equal(time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)) &&
			tr.Notes == "TRANSIT towards Cais do Sodre on 15E for 5.0 km (18 mins)" &&
			*tr.Distance == "6.1 km" && *tr.Duration == "24 mins"
	})).Return(int64(31), nil).Once()

	result, err := svc.Generate(context.Background(), owner, req)

	require.NoError(t, err)
	assert.Same(t, it, result.Itinerary)
	assert.Equal(t, 3, result.Activities)
	assert.Equal(t, 1, result.Transportation)
	assert.Equal(t, 0, result.Skipped)
	assert.Equal(t, []string{"Secret Viewpoint, Lisbon"}, result.UnresolvedPlaces)
	m.repo.AssertExpectations(t)
	m.places.AssertExpectations(t)
}

func TestGenerate_UndecidedSkipsRoutes(t *testing.T) {
	owner := uuid.New()
	svc, m := setupGeneratorTest()
	req := validRequest(types.TransportationUndecided)

	m.completer.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return(threeStops, nil).Once()
	m.creator.On("CreateItinerary", mock.Anything, owner, mock.Anything).Return(&types.Itinerary{ID: 5}, nil).Once()
	m.places.On("ResolvePlaceByName", mock.Anything, mock.Anything).Return(&types.PlaceDetails{ID: "gm"})
	m.repo.On("InsertPlace", mock.Anything, mock.Anything).Return(int64(1), nil)
	m.repo.On("InsertActivity", mock.Anything, mock.Anything).Return(int64(2), nil)

	result, err := svc.Generate(context.Background(), owner, req)

	require.NoError(t, err)
	assert.Equal(t, 3, result.Activities)
	assert.Zero(t, result.Transportation)
	m.places.AssertNotCalled(t, "ComputeRoute", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	m.repo.AssertNotCalled(t, "InsertTransportation", mock.Anything, mock.Anything)
}

func TestGenerate_FailedElementsDoNotStopSiblings(t *testing.T) {
	owner := uuid.New()
	svc, m := setupGeneratorTest()
	answer := `[
	  {"day_number": 1, "place_name": "", "description": "nameless", "from_time": "2025-05-01T09:00:00", "to_time": "2025-05-01T10:00:00"},
	  {"day_number": 1, "place_name": "Alfama, Lisbon", "description": "bad time", "from_time": "morning", "to_time": "2025-05-01T10:00:00"},
	  {"day_number": 1, "place_name": "LX Factory, Lisbon", "description": "store fails", "from_time": "2025-05-01T11:00:00", "to_time": "2025-05-01T12:00:00"},
	  {"day_number": 2, "place_name": "Time Out Market, Lisbon", "description": "Lunch", "from_time": "2025-05-02T12:00:00", "to_time": "2025-05-02T13:00:00"}
	]`

	m.completer.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return(answer, nil).Once()
	m.creator.On("CreateItinerary", mock.Anything, owner, mock.Anything).Return(&types.Itinerary{ID: 7}, nil).Once()
	m.places.On("ResolvePlaceByName", mock.Anything, mock.Anything).Return(nil)
	m.repo.On("InsertPlace", mock.Anything, mock.Anything).Return(int64(3), nil)
	m.repo.On("InsertActivity", mock.Anything, activityWithNotes("store fails")).Return(int64(0), errors.New("connection reset")).Once()
	m.repo.On("InsertActivity", mock.Anything, activityWithNotes("Lunch")).Return(int64(44), nil).Once()

	result, err := svc.Generate(context.Background(), owner, validRequest(types.TransportationWalk))

	require.NoError(t, err)
	assert.Equal(t, 1, result.Activities)
	assert.Equal(t, 3, result.Skipped)
	assert.Equal(t, []string{"Time Out Market, Lisbon"}, result.UnresolvedPlaces)
	assert.Zero(t, result.Transportation)
}

func TestTransitSummary(t *testing.T) {
	assert.Equal(t, "Direct route", TransitSummary(nil))

	steps := []types.TransitStep{
		{Mode: "TRANSIT", Headsign: "Oriente", Line: &types.TransitLine{Name: "Red"}, Distance: "3 km", Duration: "6 mins"},
		{Mode: "TRANSIT", Headsign: "Belem", Distance: "4 km", Duration: "12 mins"},
	}
	assert.Equal(t,
		"TRANSIT towards Oriente on Red for 3 km (6 mins), TRANSIT towards Belem on  for 4 km (12 mins)",
		TransitSummary(steps))
}

func TestTravelModeFor(t *testing.T) {
	tests := map[types.TransportationType]types.TravelMode{
		types.TransportationDrive:      types.TravelModeDriving,
		types.TransportationWalk:       types.TravelModeWalking,
		types.TransportationBicycle:    types.TravelModeBicycling,
		types.TransportationTransit:    types.TravelModeTransit,
		types.TransportationTwoWheeler: types.TravelModeTwoWheeler,
	}
	for in, want := range tests {
		got, ok := TravelModeFor(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	_, ok := TravelModeFor(types.TransportationUndecided)
	assert.False(t, ok)
}

func TestCleanCompletion(t *testing.T) {
	assert.Equal(t, `[{"a":1}]`, cleanCompletion("```json\n[{\"a\":1}]\n```"))
	assert.Equal(t, `[]`, cleanCompletion("```[]```"))
	assert.Equal(t, `[1]`, cleanCompletion("  [1] \n"))
}

func TestSystemPrompt(t *testing.T) {
	prompt := SystemPrompt(validRequest(types.TransportationTwoWheeler))
	assert.Contains(t, prompt, `"Lisbon, Portugal"`)
	assert.Contains(t, prompt, "2025-05-01 to 2025-05-03")
	assert.Contains(t, prompt, "gets around by two wheeler")
	assert.Contains(t, prompt, "teamLab Planets")
}
