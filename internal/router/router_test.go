package router

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	appMiddleware "github.com/FACorreiaa/go-trekly-itineraries/app/middleware"
	"github.com/FACorreiaa/go-trekly-itineraries/internal/api/draft"
	"github.com/FACorreiaa/go-trekly-itineraries/internal/api/itinerary"
	"github.com/FACorreiaa/go-trekly-itineraries/internal/api/profile"
)

func testRouter() http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	limiter := appMiddleware.NewUserRateLimiter(60, 1, 0)
	return SetupRouter(&Config{
		ItineraryHandler:       itinerary.NewHandler(nil, nil, logger),
		DraftHandler:           draft.NewHandler(nil, logger),
		ProfileHandler:         profile.NewHandler(nil, logger),
		AuthenticateMiddleware: appMiddleware.Authenticate([]byte("secret"), "trekly", logger),
		DraftLimiter:           limiter.Limit,
	})
}

func TestPing(t *testing.T) {
	rr := httptest.NewRecorder()
	testRouter().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "pong", rr.Body.String())
}

func TestAPIRequiresToken(t *testing.T) {
	h := testRouter()
	for _, target := range []string{"/api/v1/itineraries", "/api/v1/profile", "/api/v1/places/nearby"} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusUnauthorized, rr.Code, target)
	}
}

func TestSwaggerDocIsServed(t *testing.T) {
	rr := httptest.NewRecorder()
	testRouter().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "/itineraries/{id}/calendar.ics")
}
