// Package storemock provides a testify mock of store.Repository.
package storemock

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/FACorreiaa/go-trekly-itineraries/internal/api/store"
	"github.com/FACorreiaa/go-trekly-itineraries/internal/types"
)

var _ store.Repository = (*MockRepository)(nil)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) InsertItinerary(ctx context.Context, itinerary types.Itinerary) (int64, error) {
	args := m.Called(ctx, itinerary)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) GetItinerary(ctx context.Context, id int64) (*types.Itinerary, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Itinerary), args.Error(1)
}

func (m *MockRepository) GetItineraryByShareCode(ctx context.Context, shareCode string) (*types.Itinerary, error) {
	args := m.Called(ctx, shareCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Itinerary), args.Error(1)
}

func (m *MockRepository) ListItinerariesByOwner(ctx context.Context, owner uuid.UUID) ([]types.Itinerary, error) {
	args := m.Called(ctx, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Itinerary), args.Error(1)
}

func (m *MockRepository) UpdateItinerary(ctx context.Context, id int64, params types.UpdateItineraryParams) error {
	args := m.Called(ctx, id, params)
	return args.Error(0)
}

func (m *MockRepository) DeleteItinerary(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRepository) InsertPlace(ctx context.Context, place types.Place) (int64, error) {
	args := m.Called(ctx, place)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) GetPlace(ctx context.Context, id int64) (*types.Place, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Place), args.Error(1)
}

func (m *MockRepository) UpdatePlace(ctx context.Context, id int64, params types.UpdatePlaceParams) error {
	args := m.Called(ctx, id, params)
	return args.Error(0)
}

func (m *MockRepository) InsertActivity(ctx context.Context, activity types.Activity) (int64, error) {
	args := m.Called(ctx, activity)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) UpdateActivity(ctx context.Context, id int64, params types.UpdateActivityParams) error {
	args := m.Called(ctx, id, params)
	return args.Error(0)
}

func (m *MockRepository) DeleteActivity(ctx context.Context, itineraryID, id int64) error {
	args := m.Called(ctx, itineraryID, id)
	return args.Error(0)
}

func (m *MockRepository) SelectActivities(ctx context.Context, itineraryID int64, joinPlace bool) ([]types.Activity, error) {
	args := m.Called(ctx, itineraryID, joinPlace)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Activity), args.Error(1)
}

func (m *MockRepository) ListPlacesForItinerary(ctx context.Context, itineraryID int64) ([]types.ItineraryPlace, error) {
	args := m.Called(ctx, itineraryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.ItineraryPlace), args.Error(1)
}

func (m *MockRepository) InsertAccommodation(ctx context.Context, accommodation types.Accommodation) (int64, error) {
	args := m.Called(ctx, accommodation)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) UpdateAccommodation(ctx context.Context, id int64, params types.UpdateAccommodationParams) error {
	args := m.Called(ctx, id, params)
	return args.Error(0)
}

func (m *MockRepository) DeleteAccommodation(ctx context.Context, itineraryID, id int64) error {
	args := m.Called(ctx, itineraryID, id)
	return args.Error(0)
}

func (m *MockRepository) SelectAccommodations(ctx context.Context, itineraryID int64, joinPlace bool) ([]types.Accommodation, error) {
	args := m.Called(ctx, itineraryID, joinPlace)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Accommodation), args.Error(1)
}

func (m *MockRepository) InsertTransportation(ctx context.Context, transportation types.Transportation) (int64, error) {
	args := m.Called(ctx, transportation)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) UpdateTransportation(ctx context.Context, id int64, params types.UpdateTransportationParams) error {
	args := m.Called(ctx, id, params)
	return args.Error(0)
}

func (m *MockRepository) DeleteTransportation(ctx context.Context, itineraryID, id int64) error {
	args := m.Called(ctx, itineraryID, id)
	return args.Error(0)
}

func (m *MockRepository) SelectTransportations(ctx context.Context, itineraryID int64) ([]types.Transportation, error) {
	args := m.Called(ctx, itineraryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Transportation), args.Error(1)
}

func (m *MockRepository) UpsertProfile(ctx context.Context, profile types.Profile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

func (m *MockRepository) GetProfile(ctx context.Context, userID uuid.UUID) (*types.Profile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Profile), args.Error(1)
}
