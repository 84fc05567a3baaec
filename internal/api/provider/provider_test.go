package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-trekly-itineraries/config"
	"github.com/FACorreiaa/go-trekly-itineraries/internal/types"
)

// Google's reference polyline: (38.5,-120.2) (40.7,-120.95) (43.252,-126.453).
const samplePolyline = "_p~iF~ps|U_ulLnnqC_mqNvxq`@"

func setupProviderTest(t *testing.T, handler http.HandlerFunc) *ClientImpl {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return NewClient(config.GoogleMapsConfig{
		APIKey:        "test-key",
		PlacesBaseURL: srv.URL,
		RoutesBaseURL: srv.URL,
		CacheTTL:      time.Minute,
		Timeout:       5 * time.Second,
	}, logger)
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, x%h, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestComputeRoute(t *testing.T) {
	t.Run("decodes polyline and localized values", func(t *testing.T) {
		var gotBody map[string]any
		client := setupProviderTest(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/directions/v2:computeRoutes", r.URL.Path)
			assert.Equal(t, "test-key", r.Header.Get("X-Goog-Api-Key"))
			assert.Equal(t, routesFieldMask, r.Header.Get("X-Goog-FieldMask"))
			raw, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(raw, &gotBody)
			_, _ = w.Write([]byte(`{"routes":[{"localizedValues":{"distance":{"text":"12 km"},"duration":{"text":"18 mins"}},"polyline":{"encodedPolyline":"` + samplePolyline + `"}}]}`))
		})

		info := client.ComputeRoute(context.Background(), types.LatLng{Lat: 38.5, Lng: -120.2}, types.LatLng{Lat: 43.252, Lng: -126.453}, types.TravelModeWalking)
		require.NotNil(t, info)
		assert.Equal(t, "12 km", info.Distance)
		assert.Equal(t, "18 mins", info.Duration)
		require.Len(t, info.Polyline, 3)
		assert.InDelta(t, 38.5, info.Polyline[0].Lat, 1e-6)
		assert.InDelta(t, -120.2, info.Polyline[0].Lng, 1e-6)
		assert.InDelta(t, -126.453, info.Polyline[2].Lng, 1e-6)
		assert.Empty(t, info.TransitSteps)

		assert.Equal(t, "WALK", gotBody["travelMode"])
		assert.Equal(t, "OVERVIEW", gotBody["polylineQuality"])
		assert.Equal(t, "METRIC", gotBody["units"])
		assert.Equal(t, "en-US", gotBody["languageCode"])
	})

	t.Run("transit keeps only ride steps in order", func(t *testing.T) {
		client := setupProviderTest(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, routesTransitFieldMask, r.Header.Get("X-Goog-FieldMask"))
			_, _ = w.Write([]byte(`{"routes":[{
				"localizedValues":{"distance":{"text":"5 km"},"duration":{"text":"25 mins"}},
				"polyline":{"encodedPolyline":"` + samplePolyline + `"},
				"legs":[{"steps":[
					{"travelMode":"TRANSIT","localizedValues":{"distance":{"text":"3 km"},"staticDuration":{"text":"10 mins"}},
					 "transitDetails":{"headsign":"Airport","transitLine":{"name":"Red Line","nameShort":"R","vehicle":{"name":{"text":"Subway"},"type":"SUBWAY"}}}},
					{"travelMode":"WALK","localizedValues":{"distance":{"text":"200 m"},"staticDuration":{"text":"3 mins"}}},
					{"travelMode":"TRANSIT","localizedValues":{"distance":{"text":"2 km"},"staticDuration":{"text":"8 mins"}},
					 "transitDetails":{"headsign":"Harbour","transitLine":{"name":"Bus 42"}}}
				]}]
			}]}`))
		})

		info := client.ComputeRoute(context.Background(), types.LatLng{}, types.LatLng{Lat: 1, Lng: 1}, types.TravelModeTransit)
		require.NotNil(t, info)
		require.Len(t, info.TransitSteps, 2)

		first := info.TransitSteps[0]
		assert.Equal(t, "Airport", first.Headsign)
		assert.Equal(t, "3 km", first.Distance)
		assert.Equal(t, "10 mins", first.Duration)
		require.NotNil(t, first.Line)
		assert.Equal(t, "R", first.Line.ShortName)
		require.NotNil(t, first.Line.Vehicle)
		assert.Equal(t, "Subway", first.Line.Vehicle.Name)

		second := info.TransitSteps[1]
		assert.Equal(t, "Harbour", second.Headsign)
		assert.Equal(t, "Bus 42", second.Line.Name)
		assert.Nil(t, second.Line.Vehicle)
	})

	t.Run("absent on non-2xx", func(t *testing.T) {
		client := setupProviderTest(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"denied"}`, http.StatusForbidden)
		})
		assert.Nil(t, client.ComputeRoute(context.Background(), types.LatLng{}, types.LatLng{}, types.TravelModeDriving))
	})

	t.Run("absent when no routes", func(t *testing.T) {
		client := setupProviderTest(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{}`))
		})
		assert.Nil(t, client.ComputeRoute(context.Background(), types.LatLng{}, types.LatLng{}, types.TravelModeDriving))
	})

	t.Run("absent when polyline missing", func(t *testing.T) {
		client := setupProviderTest(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"routes":[{"localizedValues":{"distance":{"text":"1 km"}}}]}`))
		})
		assert.Nil(t, client.ComputeRoute(context.Background(), types.LatLng{}, types.LatLng{}, types.TravelModeDriving))
	})
}

func TestAutocomplete(t *testing.T) {
	t.Run("maps predictions and sends rectangle bias", func(t *testing.T) {
		var gotBody map[string]any
		client := setupProviderTest(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/places:autocomplete", r.URL.Path)
			raw, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(raw, &gotBody)
			_, _ = w.Write([]byte(`{"suggestions":[
				{"placePrediction":{"placeId":"p1","text":{"text":"Louvre, Paris, France"},
				 "structuredFormat":{"mainText":{"text":"Louvre"},"secondaryText":{"text":"Paris, France"}}}},
				{"queryPrediction":{"text":{"text":"louvre tickets"}}}
			]}`))
		})

		origin := types.LatLng{Lat: 48.86, Lng: 2.34}
		preds := client.Autocomplete(context.Background(), "Louvre", &origin, 1000)
		require.Len(t, preds, 1)
		assert.Equal(t, types.Prediction{
			PlaceID:       "p1",
			PrimaryText:   "Louvre",
			SecondaryText: "Paris, France",
			FullText:      "Louvre, Paris, France",
		}, preds[0])

		rect := gotBody["locationBias"].(map[string]any)["rectangle"].(map[string]any)
		low := rect["low"].(map[string]any)
		high := rect["high"].(map[string]any)
		assert.Less(t, low["latitude"].(float64), origin.Lat)
		assert.Less(t, low["longitude"].(float64), origin.Lng)
		assert.Greater(t, high["latitude"].(float64), origin.Lat)
		assert.Greater(t, high["longitude"].(float64), origin.Lng)
		// 1000m north of the origin is ~0.009 degrees of latitude.
		assert.InDelta(t, 0.009, high["latitude"].(float64)-origin.Lat, 0.001)
	})

	t.Run("empty on error", func(t *testing.T) {
		client := setupProviderTest(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})
		preds := client.Autocomplete(context.Background(), "x", nil, 0)
		assert.NotNil(t, preds)
		assert.Empty(t, preds)
	})
}

func TestResolvePlaceByName(t *testing.T) {
	t.Run("first prediction wins", func(t *testing.T) {
		client := setupProviderTest(t, func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/places:autocomplete":
				_, _ = w.Write([]byte(`{"suggestions":[
					{"placePrediction":{"placeId":"first","structuredFormat":{"mainText":{"text":"Tower"}}}},
					{"placePrediction":{"placeId":"second","structuredFormat":{"mainText":{"text":"Tower 2"}}}}]}`))
			case "/places/first":
				assert.Equal(t, fieldMaskBasic, r.Header.Get("X-Goog-FieldMask"))
				_, _ = w.Write([]byte(`{"id":"first","location":{"latitude":51.5,"longitude":-0.07}}`))
			default:
				t.Errorf("unexpected path %s", r.URL.Path)
				w.WriteHeader(http.StatusNotFound)
			}
		})

		place := client.ResolvePlaceByName(context.Background(), "Tower of London")
		require.NotNil(t, place)
		assert.Equal(t, "first", place.ID)
		assert.Equal(t, "Tower", place.Name)
		assert.Equal(t, types.LatLng{Lat: 51.5, Lng: -0.07}, place.Location)
	})

	t.Run("absent when nothing matches", func(t *testing.T) {
		client := setupProviderTest(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{}`))
		})
		assert.Nil(t, client.ResolvePlaceByName(context.Background(), "nowhere"))
	})
}

func TestResolvePlaceByIDCachesResult(t *testing.T) {
	var calls atomic.Int32
	client := setupProviderTest(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"id":"abc","location":{"latitude":1,"longitude":2}}`))
	})

	first := client.ResolvePlaceByID(context.Background(), "abc", types.PlaceFieldsBasic)
	second := client.ResolvePlaceByID(context.Background(), "abc", types.PlaceFieldsBasic)
	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.Equal(t, *first, *second)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchAddress(t *testing.T) {
	t.Run("returns formatted address", func(t *testing.T) {
		client := setupProviderTest(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, fieldMaskAddress, r.Header.Get("X-Goog-FieldMask"))
			_, _ = w.Write([]byte(`{"formattedAddress":"1 Main St"}`))
		})
		address := client.FetchAddress(context.Background(), "abc")
		require.NotNil(t, address)
		assert.Equal(t, "1 Main St", *address)
	})

	t.Run("absent when not found", func(t *testing.T) {
		client := setupProviderTest(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
		assert.Nil(t, client.FetchAddress(context.Background(), "missing"))
	})
}

func TestFetchPhotoBoundsImage(t *testing.T) {
	raw := pngBytes(t, 400, 300)
	client := setupProviderTest(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/places/abc":
			_, _ = w.Write([]byte(`{"photos":[{"name":"places/abc/photos/ph1"}]}`))
		case strings.HasSuffix(r.URL.Path, "/photos/ph1/media"):
			assert.Equal(t, "200", r.URL.Query().Get("maxWidthPx"))
			_, _ = w.Write(raw)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	photo := client.FetchPhoto(context.Background(), "abc", 200, 200)
	require.NotNil(t, photo)
	img, _, err := image.Decode(bytes.NewReader(photo))
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())
	assert.Equal(t, 150, img.Bounds().Dy())
}

func TestSearchNearby(t *testing.T) {
	t.Run("returns results even when photos fail", func(t *testing.T) {
		var gotBody map[string]any
		client := setupProviderTest(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/places:searchText" {
				raw, _ := io.ReadAll(r.Body)
				_ = json.Unmarshal(raw, &gotBody)
				_, _ = w.Write([]byte(`{"places":[
					{"id":"a","displayName":{"text":"Cafe A"},"location":{"latitude":1,"longitude":1},"rating":4.5,"photos":[{"name":"places/a/photos/x"}]},
					{"id":"b","displayName":{"text":"Cafe B"},"location":{"latitude":1.1,"longitude":1.1}}]}`))
				return
			}
			w.WriteHeader(http.StatusInternalServerError)
		})

		results := client.SearchNearby(context.Background(), "coffee", types.LatLng{Lat: 1, Lng: 1}, 500)
		require.Len(t, results, 2)
		assert.Equal(t, "Cafe A", results[0].Name)
		require.NotNil(t, results[0].Rating)
		assert.Equal(t, 4.5, *results[0].Rating)
		assert.Nil(t, results[0].Photo)
		assert.Equal(t, "DISTANCE", gotBody["rankPreference"])
		assert.Equal(t, float64(10), gotBody["maxResultCount"])
	})

	t.Run("absent on failure", func(t *testing.T) {
		client := setupProviderTest(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})
		assert.Nil(t, client.SearchNearby(context.Background(), "coffee", types.LatLng{}, 500))
	})
}
