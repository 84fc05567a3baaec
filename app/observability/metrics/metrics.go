package metrics

import (
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	ProviderCallsTotal          metric.Int64Counter
	ProviderCallDurationSeconds metric.Float64Histogram
	RouteLegsTotal              metric.Int64Counter
	DraftsTotal                 metric.Int64Counter
	DbQueryDurationSeconds      metric.Float64Histogram
	DbQueryErrorsTotal          metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics creates the instruments from the global meter provider once.
func InitAppMetrics(serviceName string) error {
	var initErr error
	once.Do(func() {
		m, err := newAppMetrics(otel.GetMeterProvider().Meter(serviceName))
		if err != nil {
			initErr = err
			return
		}
		appMetrics = m
	})
	return initErr
}

// Get returns the initialized instruments, or no-op instruments when InitAppMetrics
// was never called (unit tests).
func Get() *AppMetrics {
	if appMetrics == nil {
		m, _ := newAppMetrics(noop.NewMeterProvider().Meter("noop"))
		return m
	}
	return appMetrics
}

func newAppMetrics(meter metric.Meter) (*AppMetrics, error) {
	var err error
	m := &AppMetrics{}

	if m.ProviderCallsTotal, err = meter.Int64Counter(
		"provider_calls_total",
		metric.WithDescription("External place/route/image/completion calls by provider, operation and outcome"),
		metric.WithUnit("{call}"),
	); err != nil {
		return nil, fmt.Errorf("provider_calls_total: %w", err)
	}

	if m.ProviderCallDurationSeconds, err = meter.Float64Histogram(
		"provider_call_duration_seconds",
		metric.WithDescription("Latency of external provider calls"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("provider_call_duration_seconds: %w", err)
	}

	if m.RouteLegsTotal, err = meter.Int64Counter(
		"route_legs_total",
		metric.WithDescription("Route legs computed, by outcome"),
		metric.WithUnit("{leg}"),
	); err != nil {
		return nil, fmt.Errorf("route_legs_total: %w", err)
	}

	if m.DraftsTotal, err = meter.Int64Counter(
		"itinerary_drafts_total",
		metric.WithDescription("Itinerary drafts requested, by outcome"),
		metric.WithUnit("{draft}"),
	); err != nil {
		return nil, fmt.Errorf("itinerary_drafts_total: %w", err)
	}

	if m.DbQueryDurationSeconds, err = meter.Float64Histogram(
		"db_query_duration_seconds",
		metric.WithDescription("Duration of database queries in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("db_query_duration_seconds: %w", err)
	}

	if m.DbQueryErrorsTotal, err = meter.Int64Counter(
		"db_query_errors_total",
		metric.WithDescription("Total number of database query errors"),
		metric.WithUnit("{error}"),
	); err != nil {
		return nil, fmt.Errorf("db_query_errors_total: %w", err)
	}

	return m, nil
}
