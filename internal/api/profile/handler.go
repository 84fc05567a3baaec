package profile

import (
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-trekly-itineraries/internal/api"
)

type Handler struct {
	service Service
	logger  *slog.Logger
}

func NewHandler(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// GetProfile godoc
// @Summary      Get profile
// @Description  Returns the caller's traveller profile
// @Tags         Profile
// @Produce      json
// @Success      200 {object} types.Profile
// @Failure      401 {object} api.Response "Unauthorized"
// @Failure      404 {object} api.Response "Profile not found"
// @Security     BearerAuth
// @Router       /profile [get]
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ProfileHandler").Start(r.Context(), "GetProfile", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/profile"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "GetProfile"))
	userID, ok := api.CurrentUser(w, r)
	if !ok {
		l.WarnContext(ctx, "User ID not found in context")
		return
	}

	p, err := h.service.GetProfile(ctx, userID)
	if err != nil {
		l.WarnContext(ctx, "Failed to get profile", slog.String("user_id", userID.String()), slog.Any("error", err))
		span.RecordError(err)
		api.FailWith(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, p)
}

// SavePreferences godoc
// @Summary      Save travel preferences
// @Description  Creates the caller's profile or updates the fields present in the body
// @Tags         Profile
// @Accept       json
// @Produce      json
// @Param        preferences body Preferences true "Preferences"
// @Success      200 {object} types.Profile
// @Failure      400 {object} api.Response "Bad Request"
// @Failure      401 {object} api.Response "Unauthorized"
// @Failure      500 {object} api.Response "Internal Server Error"
// @Security     BearerAuth
// @Router       /profile/preferences [put]
func (h *Handler) SavePreferences(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ProfileHandler").Start(r.Context(), "SavePreferences", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/profile/preferences"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "SavePreferences"))
	userID, ok := api.CurrentUser(w, r)
	if !ok {
		l.WarnContext(ctx, "User ID not found in context")
		return
	}

	var prefs Preferences
	if err := api.DecodeJSONBody(w, r, &prefs); err != nil {
		l.WarnContext(ctx, "Invalid request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	p, err := h.service.SavePreferences(ctx, userID, prefs)
	if err != nil {
		span.RecordError(err)
		api.FailWith(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, p)
}
