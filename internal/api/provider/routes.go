package provider

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
	"github.com/twpayne/go-polyline"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-trekly-itineraries/internal/types"
)

const (
	routesFieldMask        = "routes.localizedValues.distance.text,routes.localizedValues.duration.text,routes.polyline.encodedPolyline"
	routesTransitFieldMask = routesFieldMask + ",routes.legs"
)

var errNoRoute = errors.New("response has no route polyline")

// wireTravelMode maps a TravelMode to the Routes API enum.
func wireTravelMode(mode types.TravelMode) string {
	switch mode {
	case types.TravelModeWalking:
		return "WALK"
	case types.TravelModeBicycling:
		return "BICYCLE"
	case types.TravelModeTransit:
		return "TRANSIT"
	case types.TravelModeTwoWheeler:
		return "TWO_WHEELER"
	default:
		return "DRIVE"
	}
}

func waypoint(p types.LatLng) map[string]any {
	return map[string]any{
		"location": map[string]any{
			"latLng": latLngJSON{Latitude: p.Lat, Longitude: p.Lng},
		},
	}
}

func (c *ClientImpl) ComputeRoute(ctx context.Context, origin, destination types.LatLng, mode types.TravelMode) *types.RouteInfo {
	ctx, span := otel.Tracer("RouteProvider").Start(ctx, "ComputeRoute", trace.WithAttributes(
		attribute.String("travel_mode", string(mode)),
		attribute.Float64("origin.lat", origin.Lat),
		attribute.Float64("origin.lng", origin.Lng),
		attribute.Float64("destination.lat", destination.Lat),
		attribute.Float64("destination.lng", destination.Lng),
	))
	defer span.End()

	l := c.logger.With(slog.String("method", "ComputeRoute"), slog.String("travel_mode", string(mode)))
	start := time.Now()

	payload := map[string]any{
		"origin":                   waypoint(origin),
		"destination":              waypoint(destination),
		"travelMode":               wireTravelMode(mode),
		"polylineQuality":          "OVERVIEW",
		"computeAlternativeRoutes": false,
		"routeModifiers": map[string]bool{
			"avoidTolls":    false,
			"avoidHighways": false,
			"avoidFerries":  false,
		},
		"languageCode": "en-US",
		"units":        "METRIC",
	}
	mask := routesFieldMask
	if mode == types.TravelModeTransit {
		mask = routesTransitFieldMask
	}

	body, err := c.do(ctx, http.MethodPost, c.routesURL+"/directions/v2:computeRoutes", mask, payload)
	var info *types.RouteInfo
	if err == nil {
		info, err = parseRoute(body, mode == types.TravelModeTransit)
	}
	c.record(ctx, "compute_route", start, outcomeOf(err))
	if err != nil {
		l.WarnContext(ctx, "Route computation failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "route failed")
		return nil
	}

	span.SetAttributes(
		attribute.Int("polyline.points", len(info.Polyline)),
		attribute.Int("transit.steps", len(info.TransitSteps)),
	)
	span.SetStatus(codes.Ok, "")
	return info
}

// parseRoute reads the first route of a computeRoutes response.
func parseRoute(body []byte, transit bool) (*types.RouteInfo, error) {
	if !gjson.ValidBytes(body) {
		return nil, &callError{outcome: outcomeDecodeError, err: errors.New("invalid JSON")}
	}
	route := gjson.GetBytes(body, "routes.0")
	encoded := route.Get("polyline.encodedPolyline").String()
	if !route.Exists() || encoded == "" {
		return nil, &callError{outcome: outcomeEmpty, err: errNoRoute}
	}

	coords, _, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, &callError{outcome: outcomeDecodeError, err: err}
	}
	points := make([]types.LatLng, 0, len(coords))
	for _, c := range coords {
		points = append(points, types.LatLng{Lat: c[0], Lng: c[1]})
	}
	if len(points) == 0 {
		return nil, &callError{outcome: outcomeEmpty, err: errNoRoute}
	}

	info := &types.RouteInfo{
		Polyline: points,
		Distance: route.Get("localizedValues.distance.text").String(),
		Duration: route.Get("localizedValues.duration.text").String(),
	}
	if transit {
		if steps := route.Get("legs.0.steps"); steps.Exists() {
			info.TransitSteps = transitSteps(steps)
		}
	}
	return info, nil
}

// transitSteps keeps only ride steps, dropping walking transfers and steps without
// transit details, in response order.
func transitSteps(steps gjson.Result) []types.TransitStep {
	out := []types.TransitStep{}
	steps.ForEach(func(_, s gjson.Result) bool {
		details := s.Get("transitDetails")
		if s.Get("travelMode").String() != "TRANSIT" || !details.IsObject() {
			return true
		}
		step := types.TransitStep{
			Mode:     "TRANSIT",
			Headsign: details.Get("headsign").String(),
			Distance: s.Get("localizedValues.distance.text").String(),
			Duration: s.Get("localizedValues.staticDuration.text").String(),
		}
		if step.Duration == "" {
			step.Duration = s.Get("localizedValues.duration.text").String()
		}
		if line := details.Get("transitLine"); line.IsObject() {
			step.Line = &types.TransitLine{
				Name:      line.Get("name").String(),
				ShortName: line.Get("nameShort").String(),
			}
			if v := line.Get("vehicle"); v.IsObject() {
				step.Line.Vehicle = &types.Vehicle{
					Name: v.Get("name.text").String(),
					Type: v.Get("type").String(),
				}
			}
		}
		out = append(out, step)
		return true
	})
	return out
}
