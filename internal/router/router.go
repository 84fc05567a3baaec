package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/FACorreiaa/go-trekly-itineraries/internal/api/docs"
	"github.com/FACorreiaa/go-trekly-itineraries/internal/api/draft"
	"github.com/FACorreiaa/go-trekly-itineraries/internal/api/itinerary"
	"github.com/FACorreiaa/go-trekly-itineraries/internal/api/profile"
)

// Config contains the handlers and middleware the route table needs.
type Config struct {
	ItineraryHandler       *itinerary.Handler
	DraftHandler           *draft.Handler
	ProfileHandler         *profile.Handler
	AuthenticateMiddleware func(http.Handler) http.Handler
	DraftLimiter           func(http.Handler) http.Handler
	AllowedOrigins         []string
}

// SetupRouter builds the API router. Server-wide middleware (request id, logging,
// recoverer) is applied by the caller before mounting it.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("pong"))
	})
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(cfg.AuthenticateMiddleware)

		r.Route("/itineraries", func(r chi.Router) {
			h := cfg.ItineraryHandler
			r.Post("/", h.CreateItinerary)
			r.Get("/", h.ListItineraries)
			r.Get("/shared/{code}", h.GetSharedItinerary)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetItinerary)
				r.Patch("/", h.UpdateItinerary)
				r.Delete("/", h.DeleteItinerary)
				r.Get("/share/qr", h.ShareQRCode)
				r.Get("/calendar.ics", h.ExportCalendar)

				r.Get("/view", h.GetView)
				r.Post("/view/reload", h.ReloadView)

				r.Post("/accommodations", h.AddAccommodation)
				r.Patch("/accommodations/{accommodationId}", h.UpdateAccommodation)
				r.Delete("/accommodations/{accommodationId}", h.DeleteAccommodation)

				r.Post("/activities", h.AddActivity)
				r.Post("/activities/nearby", h.AddNearbyPlace)
				r.Patch("/activities/{activityId}", h.UpdateActivity)
				r.Delete("/activities/{activityId}", h.DeleteActivity)
				r.Get("/activities/{activityId}/photo", h.ActivityPhoto)

				r.Patch("/transportation/{transportationId}", h.UpdateTransportation)
				r.Delete("/transportation/{transportationId}", h.DeleteTransportation)

				r.Get("/map", h.GetMap)
				r.Post("/map/refresh", h.RefreshMap)
			})
		})

		r.Get("/places/autocomplete", cfg.ItineraryHandler.Autocomplete)
		r.Get("/places/nearby", cfg.ItineraryHandler.SearchNearby)

		r.With(cfg.DraftLimiter).Post("/drafts", cfg.DraftHandler.CreateDraft)

		r.Get("/profile", cfg.ProfileHandler.GetProfile)
		r.Put("/profile/preferences", cfg.ProfileHandler.SavePreferences)
	})

	return r
}
