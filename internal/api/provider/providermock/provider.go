// Package providermock provides a testify mock of provider.Provider.
package providermock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/FACorreiaa/go-trekly-itineraries/internal/api/provider"
	"github.com/FACorreiaa/go-trekly-itineraries/internal/types"
)

var _ provider.Provider = (*MockProvider)(nil)

type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) ResolvePlaceByName(ctx context.Context, name string) *types.PlaceDetails {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*types.PlaceDetails)
}

func (m *MockProvider) ResolvePlaceByID(ctx context.Context, placeID string, fields types.PlaceFields) *types.PlaceDetails {
	args := m.Called(ctx, placeID, fields)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*types.PlaceDetails)
}

func (m *MockProvider) Autocomplete(ctx context.Context, query string, origin *types.LatLng, radiusMeters float64) []types.Prediction {
	args := m.Called(ctx, query, origin, radiusMeters)
	if args.Get(0) == nil {
		return []types.Prediction{}
	}
	return args.Get(0).([]types.Prediction)
}

func (m *MockProvider) SearchNearby(ctx context.Context, query string, center types.LatLng, radiusMeters float64) []types.PlaceDetails {
	args := m.Called(ctx, query, center, radiusMeters)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]types.PlaceDetails)
}

func (m *MockProvider) FetchPhoto(ctx context.Context, placeID string, maxWidth, maxHeight int) []byte {
	args := m.Called(ctx, placeID, maxWidth, maxHeight)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]byte)
}

func (m *MockProvider) FetchAddress(ctx context.Context, placeID string) *string {
	args := m.Called(ctx, placeID)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*string)
}

func (m *MockProvider) ComputeRoute(ctx context.Context, origin, destination types.LatLng, mode types.TravelMode) *types.RouteInfo {
	args := m.Called(ctx, origin, destination, mode)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*types.RouteInfo)
}
