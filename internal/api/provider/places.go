package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-trekly-itineraries/internal/types"
)

const (
	fieldMaskBasic   = "id,location"
	fieldMaskFull    = "id,displayName,formattedAddress,location,rating,photos"
	fieldMaskAddress = "formattedAddress"
	fieldMaskPhotos  = "photos"
	fieldMaskSearch  = "places.id,places.displayName,places.formattedAddress,places.location,places.rating,places.photos"

	detailPhotoSize = 1000
	nearbyPhotoSize = 200
	nearbyMaxResult = 10
)

type latLngJSON struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type placeJSON struct {
	ID          string `json:"id"`
	DisplayName *struct {
		Text string `json:"text"`
	} `json:"displayName"`
	FormattedAddress string      `json:"formattedAddress"`
	Location         *latLngJSON `json:"location"`
	Rating           *float64    `json:"rating"`
	Photos           []struct {
		Name string `json:"name"`
	} `json:"photos"`
}

func (p placeJSON) details() types.PlaceDetails {
	d := types.PlaceDetails{
		ID:      p.ID,
		Address: p.FormattedAddress,
		Rating:  p.Rating,
	}
	if p.DisplayName != nil {
		d.Name = p.DisplayName.Text
	}
	if p.Location != nil {
		d.Location = types.LatLng{Lat: p.Location.Latitude, Lng: p.Location.Longitude}
	}
	if len(p.Photos) > 0 {
		d.PhotoName = p.Photos[0].Name
	}
	return d
}

type textJSON struct {
	Text string `json:"text"`
}

type autocompleteResponse struct {
	Suggestions []struct {
		PlacePrediction *struct {
			PlaceID          string   `json:"placeId"`
			Text             textJSON `json:"text"`
			StructuredFormat struct {
				MainText      textJSON `json:"mainText"`
				SecondaryText textJSON `json:"secondaryText"`
			} `json:"structuredFormat"`
		} `json:"placePrediction"`
	} `json:"suggestions"`
}

// rectangleBias is the square whose corners lie radius*sqrt(2) from origin towards
// the south-west and north-east.
func rectangleBias(origin types.LatLng, radiusMeters float64) map[string]any {
	center := orb.Point{origin.Lng, origin.Lat}
	diagonal := radiusMeters * math.Sqrt2
	sw := geo.PointAtBearingAndDistance(center, 225, diagonal)
	ne := geo.PointAtBearingAndDistance(center, 45, diagonal)
	return map[string]any{
		"rectangle": map[string]any{
			"low":  latLngJSON{Latitude: sw.Lat(), Longitude: sw.Lon()},
			"high": latLngJSON{Latitude: ne.Lat(), Longitude: ne.Lon()},
		},
	}
}

func (c *ClientImpl) Autocomplete(ctx context.Context, query string, origin *types.LatLng, radiusMeters float64) []types.Prediction {
	ctx, span := otel.Tracer("PlaceProvider").Start(ctx, "Autocomplete", trace.WithAttributes(
		attribute.String("query", query),
		attribute.Bool("biased", origin != nil),
	))
	defer span.End()

	l := c.logger.With(slog.String("method", "Autocomplete"))
	start := time.Now()

	predictions, err := c.autocomplete(ctx, query, origin, radiusMeters)
	c.record(ctx, "autocomplete", start, outcomeOf(err))
	if err != nil {
		l.WarnContext(ctx, "Autocomplete failed", slog.String("query", query), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "autocomplete failed")
		return []types.Prediction{}
	}
	span.SetAttributes(attribute.Int("predictions.count", len(predictions)))
	span.SetStatus(codes.Ok, "")
	return predictions
}

func (c *ClientImpl) autocomplete(ctx context.Context, query string, origin *types.LatLng, radiusMeters float64) ([]types.Prediction, error) {
	payload := map[string]any{"input": query}
	if origin != nil && radiusMeters > 0 {
		payload["locationBias"] = rectangleBias(*origin, radiusMeters)
	}

	body, err := c.do(ctx, http.MethodPost, c.placesURL+"/places:autocomplete", "", payload)
	if err != nil {
		return nil, err
	}

	var resp autocompleteResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &callError{outcome: outcomeDecodeError, err: err}
	}

	predictions := []types.Prediction{}
	for _, s := range resp.Suggestions {
		p := s.PlacePrediction
		if p == nil || p.PlaceID == "" {
			continue
		}
		predictions = append(predictions, types.Prediction{
			PlaceID:       p.PlaceID,
			PrimaryText:   p.StructuredFormat.MainText.Text,
			SecondaryText: p.StructuredFormat.SecondaryText.Text,
			FullText:      p.Text.Text,
		})
	}
	return predictions, nil
}

func (c *ClientImpl) ResolvePlaceByName(ctx context.Context, name string) *types.PlaceDetails {
	ctx, span := otel.Tracer("PlaceProvider").Start(ctx, "ResolvePlaceByName", trace.WithAttributes(
		attribute.String("place.name", name),
	))
	defer span.End()

	l := c.logger.With(slog.String("method", "ResolvePlaceByName"), slog.String("name", name))
	start := time.Now()

	predictions, err := c.autocomplete(ctx, name, nil, 0)
	if err != nil {
		c.record(ctx, "resolve_by_name", start, outcomeOf(err))
		l.WarnContext(ctx, "Autocomplete failed while resolving place", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "autocomplete failed")
		return nil
	}
	if len(predictions) == 0 {
		c.record(ctx, "resolve_by_name", start, outcomeEmpty)
		l.InfoContext(ctx, "No place matched name")
		span.SetStatus(codes.Error, "no match")
		return nil
	}

	first := predictions[0]
	details, err := c.placeDetails(ctx, first.PlaceID, fieldMaskBasic)
	c.record(ctx, "resolve_by_name", start, outcomeOf(err))
	if err != nil {
		l.WarnContext(ctx, "Failed to fetch place coordinates", slog.String("place_id", first.PlaceID), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "details failed")
		return nil
	}
	if details.Name == "" {
		details.Name = first.PrimaryText
	}

	span.SetAttributes(attribute.String("place.id", details.ID))
	span.SetStatus(codes.Ok, "")
	return details
}

func (c *ClientImpl) ResolvePlaceByID(ctx context.Context, placeID string, fields types.PlaceFields) *types.PlaceDetails {
	ctx, span := otel.Tracer("PlaceProvider").Start(ctx, "ResolvePlaceByID", trace.WithAttributes(
		attribute.String("place.id", placeID),
		attribute.Bool("full", fields == types.PlaceFieldsFull),
	))
	defer span.End()

	l := c.logger.With(slog.String("method", "ResolvePlaceByID"), slog.String("place_id", placeID))

	mask := fieldMaskBasic
	if fields == types.PlaceFieldsFull {
		mask = fieldMaskFull
	}
	cacheKey := "details:" + mask + ":" + placeID
	if cached, ok := c.cache.Get(cacheKey); ok {
		d := cached.(types.PlaceDetails)
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return &d
	}

	start := time.Now()
	details, err := c.placeDetails(ctx, placeID, mask)
	c.record(ctx, "resolve_by_id", start, outcomeOf(err))
	if err != nil {
		l.WarnContext(ctx, "Failed to resolve place", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "details failed")
		return nil
	}

	if fields == types.PlaceFieldsFull && details.PhotoName != "" {
		details.Photo = c.photoByName(ctx, details.PhotoName, detailPhotoSize, detailPhotoSize)
	}

	c.cache.Set(cacheKey, *details, cache.DefaultExpiration)
	span.SetStatus(codes.Ok, "")
	return details
}

func (c *ClientImpl) placeDetails(ctx context.Context, placeID, mask string) (*types.PlaceDetails, error) {
	body, err := c.do(ctx, http.MethodGet, c.placesURL+"/places/"+url.PathEscape(placeID), mask, nil)
	if err != nil {
		return nil, err
	}
	var p placeJSON
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, &callError{outcome: outcomeDecodeError, err: err}
	}
	d := p.details()
	if d.ID == "" {
		d.ID = placeID
	}
	return &d, nil
}

func (c *ClientImpl) FetchAddress(ctx context.Context, placeID string) *string {
	ctx, span := otel.Tracer("PlaceProvider").Start(ctx, "FetchAddress", trace.WithAttributes(
		attribute.String("place.id", placeID),
	))
	defer span.End()

	cacheKey := "address:" + placeID
	if cached, ok := c.cache.Get(cacheKey); ok {
		address := cached.(string)
		return &address
	}

	start := time.Now()
	details, err := c.placeDetails(ctx, placeID, fieldMaskAddress)
	if err == nil && details.Address == "" {
		err = &callError{outcome: outcomeEmpty, err: fmt.Errorf("place %s has no address", placeID)}
	}
	c.record(ctx, "fetch_address", start, outcomeOf(err))
	if err != nil {
		c.logger.WarnContext(ctx, "Failed to fetch address",
			slog.String("method", "FetchAddress"), slog.String("place_id", placeID), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "address failed")
		return nil
	}

	c.cache.Set(cacheKey, details.Address, cache.DefaultExpiration)
	span.SetStatus(codes.Ok, "")
	return &details.Address
}

type searchTextResponse struct {
	Places []placeJSON `json:"places"`
}

func (c *ClientImpl) SearchNearby(ctx context.Context, query string, center types.LatLng, radiusMeters float64) []types.PlaceDetails {
	ctx, span := otel.Tracer("PlaceProvider").Start(ctx, "SearchNearby", trace.WithAttributes(
		attribute.String("query", query),
		attribute.Float64("radius_m", radiusMeters),
	))
	defer span.End()

	l := c.logger.With(slog.String("method", "SearchNearby"), slog.String("query", query))
	start := time.Now()

	payload := map[string]any{
		"textQuery":      query,
		"maxResultCount": nearbyMaxResult,
		"rankPreference": "DISTANCE",
		"locationBias": map[string]any{
			"circle": map[string]any{
				"center": latLngJSON{Latitude: center.Lat, Longitude: center.Lng},
				"radius": radiusMeters,
			},
		},
	}

	body, err := c.do(ctx, http.MethodPost, c.placesURL+"/places:searchText", fieldMaskSearch, payload)
	var resp searchTextResponse
	if err == nil {
		if uerr := json.Unmarshal(body, &resp); uerr != nil {
			err = &callError{outcome: outcomeDecodeError, err: uerr}
		}
	}
	c.record(ctx, "search_nearby", start, outcomeOf(err))
	if err != nil {
		l.WarnContext(ctx, "Nearby search failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "search failed")
		return nil
	}

	results := make([]types.PlaceDetails, 0, len(resp.Places))
	for _, p := range resp.Places {
		results = append(results, p.details())
	}

	// Photos are optional; a result without one is still returned.
	var wg sync.WaitGroup
	for i := range results {
		if results[i].PhotoName == "" {
			continue
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i].Photo = c.photoByName(ctx, results[i].PhotoName, nearbyPhotoSize, nearbyPhotoSize)
		}(i)
	}
	wg.Wait()

	span.SetAttributes(attribute.Int("results.count", len(results)))
	span.SetStatus(codes.Ok, "")
	return results
}
