package container

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	database "github.com/FACorreiaa/go-trekly-itineraries/app/db"
	appMiddleware "github.com/FACorreiaa/go-trekly-itineraries/app/middleware"
	"github.com/FACorreiaa/go-trekly-itineraries/config"
	"github.com/FACorreiaa/go-trekly-itineraries/internal/api/calendar"
	"github.com/FACorreiaa/go-trekly-itineraries/internal/api/draft"
	"github.com/FACorreiaa/go-trekly-itineraries/internal/api/imagesearch"
	"github.com/FACorreiaa/go-trekly-itineraries/internal/api/itinerary"
	"github.com/FACorreiaa/go-trekly-itineraries/internal/api/profile"
	"github.com/FACorreiaa/go-trekly-itineraries/internal/api/provider"
	"github.com/FACorreiaa/go-trekly-itineraries/internal/api/routing"
	"github.com/FACorreiaa/go-trekly-itineraries/internal/api/store"
	"github.com/FACorreiaa/go-trekly-itineraries/internal/router"
)

const draftLimiterIdleTTL = 30 * time.Minute

// Container holds all application dependencies
type Container struct {
	Config           *config.Config
	Logger           *slog.Logger
	Pool             *pgxpool.Pool
	ItineraryHandler *itinerary.Handler
	DraftHandler     *draft.Handler
	ProfileHandler   *profile.Handler
	DraftLimiter     *appMiddleware.UserRateLimiter
}

// NewContainer wires the store, providers, services and handlers on top of pool.
func NewContainer(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, logger *slog.Logger) (*Container, error) {
	repo := store.NewRepository(pool, logger)
	places := provider.NewClient(cfg.Providers.GoogleMaps, logger)
	images := imagesearch.NewUnsplashClient(cfg.Providers.Unsplash.BaseURL, cfg.Providers.Unsplash.AccessKey, logger)
	engine := routing.NewEngine(places, cfg.Draft.Concurrency, logger)

	itineraryService := itinerary.NewService(repo, places, engine, images,
		cfg.Aggregator.SessionTTL, cfg.Server.PublicBaseURL, logger)

	zones, err := calendar.NewZoneFinder()
	if err != nil {
		// Calendar export still works in UTC.
		logger.WarnContext(ctx, "Time zone finder unavailable", slog.Any("error", err))
	}
	exporter := calendar.NewExporter(zones, logger)

	completer, err := draft.NewCompleter(ctx, cfg.Providers.Completion, logger)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to create completion backend", slog.Any("error", err))
		return nil, fmt.Errorf("failed to create completion backend: %w", err)
	}
	draftService := draft.NewService(completer, itineraryService, repo, places, engine, cfg.Draft.Concurrency, logger)

	perMinute := cfg.Draft.RequestsPerMinute
	if perMinute <= 0 {
		perMinute = 6
	}

	return &Container{
		Config:           cfg,
		Logger:           logger,
		Pool:             pool,
		ItineraryHandler: itinerary.NewHandler(itineraryService, exporter, logger),
		DraftHandler:     draft.NewHandler(draftService, logger),
		ProfileHandler:   profile.NewHandler(profile.NewService(repo, logger), logger),
		DraftLimiter:     appMiddleware.NewUserRateLimiter(perMinute, 1, draftLimiterIdleTTL),
	}, nil
}

// RouterConfig exposes the handlers to the route table.
func (c *Container) RouterConfig() *router.Config {
	return &router.Config{
		ItineraryHandler:       c.ItineraryHandler,
		DraftHandler:           c.DraftHandler,
		ProfileHandler:         c.ProfileHandler,
		AuthenticateMiddleware: appMiddleware.Authenticate([]byte(c.Config.Auth.JWTSecret), c.Config.Auth.Issuer, c.Logger),
		DraftLimiter:           c.DraftLimiter.Limit,
	}
}

// Close releases all resources held by the container
func (c *Container) Close() {
	if c.Pool != nil {
		c.Pool.Close()
	}
}

// WaitForDB waits for the database to be ready
func (c *Container) WaitForDB(ctx context.Context) bool {
	return database.WaitForDB(ctx, c.Pool, c.Logger)
}
