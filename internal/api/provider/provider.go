package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/time/rate"

	"github.com/FACorreiaa/go-trekly-itineraries/app/observability/metrics"
	"github.com/FACorreiaa/go-trekly-itineraries/config"
	"github.com/FACorreiaa/go-trekly-itineraries/internal/types"
)

// PlaceProvider resolves, searches and enriches places. Every lookup collapses
// failures to an absent (nil) or empty result; causes are logged and counted only.
type PlaceProvider interface {
	// ResolvePlaceByName takes the first autocomplete match and fetches its id and
	// coordinates. No ranking or disambiguation is attempted.
	ResolvePlaceByName(ctx context.Context, name string) *types.PlaceDetails
	ResolvePlaceByID(ctx context.Context, placeID string, fields types.PlaceFields) *types.PlaceDetails
	// Autocomplete returns an empty slice both on error and on no match.
	Autocomplete(ctx context.Context, query string, origin *types.LatLng, radiusMeters float64) []types.Prediction
	// SearchNearby returns nil on failure. Results are ranked by distance, capped at
	// 10, and carry a best-effort photo.
	SearchNearby(ctx context.Context, query string, center types.LatLng, radiusMeters float64) []types.PlaceDetails
	FetchPhoto(ctx context.Context, placeID string, maxWidth, maxHeight int) []byte
	FetchAddress(ctx context.Context, placeID string) *string
}

// RouteProvider computes point-to-point routes.
type RouteProvider interface {
	// ComputeRoute returns nil on transport failure, non-2xx status, or a missing or
	// empty route or polyline.
	ComputeRoute(ctx context.Context, origin, destination types.LatLng, mode types.TravelMode) *types.RouteInfo
}

type Provider interface {
	PlaceProvider
	RouteProvider
}

var _ Provider = (*ClientImpl)(nil)

const (
	defaultPlacesBaseURL = "https://places.googleapis.com/v1"
	defaultRoutesBaseURL = "https://routes.googleapis.com"

	outcomeOK             = "ok"
	outcomeEmpty          = "empty"
	outcomeHTTPError      = "http_error"
	outcomeTransportError = "transport_error"
	outcomeDecodeError    = "decode_error"
)

// ClientImpl talks to the Google Places API (New) and Routes API.
type ClientImpl struct {
	logger     *slog.Logger
	httpClient *http.Client
	apiKey     string
	placesURL  string
	routesURL  string
	limiter    *rate.Limiter
	cache      *cache.Cache
}

func NewClient(cfg config.GoogleMapsConfig, logger *slog.Logger) *ClientImpl {
	placesURL := strings.TrimRight(cfg.PlacesBaseURL, "/")
	if placesURL == "" {
		placesURL = defaultPlacesBaseURL
	}
	routesURL := strings.TrimRight(cfg.RoutesBaseURL, "/")
	if routesURL == "" {
		routesURL = defaultRoutesBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	return &ClientImpl{
		logger:     logger,
		httpClient: &http.Client{Timeout: timeout},
		apiKey:     cfg.APIKey,
		placesURL:  placesURL,
		routesURL:  routesURL,
		limiter:    rate.NewLimiter(limit, burst),
		cache:      cache.New(ttl, 2*ttl),
	}
}

// callError carries the metrics outcome of a failed call.
type callError struct {
	outcome string
	err     error
}

func (e *callError) Error() string { return fmt.Sprintf("%s: %v", e.outcome, e.err) }
func (e *callError) Unwrap() error { return e.err }

func outcomeOf(err error) string {
	var ce *callError
	if errors.As(err, &ce) {
		return ce.outcome
	}
	if err == nil {
		return outcomeOK
	}
	return outcomeTransportError
}

func (c *ClientImpl) record(ctx context.Context, operation string, start time.Time, outcome string) {
	m := metrics.Get()
	m.ProviderCallsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", "google_maps"),
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
	m.ProviderCallDurationSeconds.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
		attribute.String("provider", "google_maps"),
		attribute.String("operation", operation),
	))
}

// do sends one throttled request and returns the body of a 2xx response.
func (c *ClientImpl) do(ctx context.Context, method, url, fieldMask string, payload any) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &callError{outcome: outcomeTransportError, err: err}
	}

	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return nil, &callError{outcome: outcomeDecodeError, err: err}
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, &callError{outcome: outcomeTransportError, err: err}
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	if fieldMask != "" {
		req.Header.Set("X-Goog-FieldMask", fieldMask)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &callError{outcome: outcomeTransportError, err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, &callError{outcome: outcomeTransportError, err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &callError{
			outcome: outcomeHTTPError,
			err:     fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(data), 200)),
		}
	}
	return data, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
