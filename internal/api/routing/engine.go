package routing

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/go-trekly-itineraries/app/observability/metrics"
	"github.com/FACorreiaa/go-trekly-itineraries/internal/api/provider"
	"github.com/FACorreiaa/go-trekly-itineraries/internal/types"
)

const defaultConcurrency = 4

// Engine computes the route legs between consecutive stops.
type Engine struct {
	logger      *slog.Logger
	routes      provider.RouteProvider
	concurrency int
}

func NewEngine(routes provider.RouteProvider, concurrency int, logger *slog.Logger) *Engine {
	if concurrency < 1 {
		concurrency = defaultConcurrency
	}
	return &Engine{
		logger:      logger,
		routes:      routes,
		concurrency: concurrency,
	}
}

// Assemble requests a route for every pair (i, i+1) of stops. Legs whose route could
// not be computed are dropped without retry, so the result may hold fewer than
// len(stops)-1 legs; each leg keeps the indices of the stops it joins.
func (e *Engine) Assemble(ctx context.Context, stops []types.LatLng, mode types.TravelMode) []types.RouteLeg {
	ctx, span := otel.Tracer("RouteEngine").Start(ctx, "Assemble", trace.WithAttributes(
		attribute.Int("stops.count", len(stops)),
		attribute.String("travel_mode", string(mode)),
	))
	defer span.End()

	l := e.logger.With(slog.String("method", "Assemble"), slog.String("travel_mode", string(mode)))

	if len(stops) < 2 {
		span.SetStatus(codes.Ok, "nothing to route")
		return []types.RouteLeg{}
	}

	results := make([]*types.RouteInfo, len(stops)-1)
	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i := 0; i < len(stops)-1; i++ {
		g.Go(func() error {
			results[i] = e.routes.ComputeRoute(ctx, stops[i], stops[i+1], mode)
			return nil
		})
	}
	_ = g.Wait()

	m := metrics.Get()
	legs := make([]types.RouteLeg, 0, len(results))
	for i, route := range results {
		if route == nil {
			m.RouteLegsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "dropped")))
			l.InfoContext(ctx, "Dropping leg without route", slog.Int("from", i), slog.Int("to", i+1))
			continue
		}
		m.RouteLegsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "ok")))
		legs = append(legs, types.RouteLeg{FromIndex: i, ToIndex: i + 1, Route: *route})
	}

	span.SetAttributes(attribute.Int("legs.count", len(legs)))
	span.SetStatus(codes.Ok, "")
	return legs
}
