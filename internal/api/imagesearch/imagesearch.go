package imagesearch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-trekly-itineraries/app/observability/metrics"
)

const (
	defaultBaseURL = "https://api.unsplash.com"
	perPage        = 10
)

// Searcher finds a cover image for a destination.
type Searcher interface {
	// CoverImageURL returns the URL of a random landscape photo matching query, or nil
	// when the search fails or matches nothing.
	CoverImageURL(ctx context.Context, query string) *string
}

var _ Searcher = (*UnsplashClient)(nil)

type UnsplashClient struct {
	logger     *slog.Logger
	httpClient *http.Client
	baseURL    string
	accessKey  string
	pick       func(n int) int
}

func NewUnsplashClient(baseURL, accessKey string, logger *slog.Logger) *UnsplashClient {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &UnsplashClient{
		logger:     logger,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		accessKey:  accessKey,
		pick:       rand.IntN,
	}
}

// CoverQuery is the part of a destination before the first comma ("Paris, France" -> "Paris").
func CoverQuery(destination string) string {
	head, _, _ := strings.Cut(destination, ",")
	return strings.TrimSpace(head)
}

func (c *UnsplashClient) CoverImageURL(ctx context.Context, query string) *string {
	ctx, span := otel.Tracer("ImageSearch").Start(ctx, "CoverImageURL", trace.WithAttributes(
		attribute.String("query", query),
	))
	defer span.End()

	l := c.logger.With(slog.String("method", "CoverImageURL"), slog.String("query", query))
	start := time.Now()

	imageURL, outcome, err := c.search(ctx, query)
	m := metrics.Get()
	m.ProviderCallsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", "unsplash"),
		attribute.String("operation", "search_photos"),
		attribute.String("outcome", outcome),
	))
	m.ProviderCallDurationSeconds.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
		attribute.String("provider", "unsplash"),
		attribute.String("operation", "search_photos"),
	))

	if err != nil {
		l.WarnContext(ctx, "Image search failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "image search failed")
		return nil
	}
	if imageURL == "" {
		l.InfoContext(ctx, "No cover image found")
		span.SetStatus(codes.Ok, "no results")
		return nil
	}
	span.SetStatus(codes.Ok, "")
	return &imageURL
}

func (c *UnsplashClient) search(ctx context.Context, query string) (string, string, error) {
	q := url.Values{}
	q.Set("page", "1")
	q.Set("query", query)
	q.Set("per_page", fmt.Sprint(perPage))
	q.Set("orientation", "landscape")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search/photos?"+q.Encode(), nil)
	if err != nil {
		return "", "transport_error", err
	}
	req.Header.Set("Authorization", "Client-ID "+c.accessKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", "transport_error", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 5<<20))
	if err != nil {
		return "", "transport_error", err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", "http_error", fmt.Errorf("unsplash returned status %d", resp.StatusCode)
	}
	if !gjson.ValidBytes(body) {
		return "", "decode_error", fmt.Errorf("unsplash returned invalid JSON")
	}

	urls := gjson.GetBytes(body, "results.#.urls.small").Array()
	if len(urls) == 0 {
		return "", "empty", nil
	}
	return urls[c.pick(len(urls))].String(), "ok", nil
}
