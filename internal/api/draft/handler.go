package draft

import (
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
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

// CreateDraft godoc
// @Summary      Draft an itinerary
// @Description  Asks the completion service for activities matching the traveller's preferences and stores them as a new private itinerary with routes between consecutive activities
// @Tags         Drafts
// @Accept       json
// @Produce      json
// @Param        draft body Request true "Draft request"
// @Success      201 {object} Result
// @Failure      400 {object} api.Response "Bad Request"
// @Failure      401 {object} api.Response "Unauthorized"
// @Failure      422 {object} api.Response "Unparseable recommendations"
// @Failure      429 {object} api.Response "Too Many Requests"
// @Failure      502 {object} api.Response "No recommendations"
// @Security     BearerAuth
// @Router       /drafts [post]
func (h *Handler) CreateDraft(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("DraftHandler").Start(r.Context(), "CreateDraft", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/drafts"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "CreateDraft"))
	l.DebugContext(ctx, "Handler invoked")

	userID, ok := api.CurrentUser(w, r)
	if !ok {
		l.WarnContext(ctx, "User ID not found in context")
		span.SetStatus(codes.Error, "unauthenticated")
		return
	}
	span.SetAttributes(semconv.EnduserIDKey.String(userID.String()))
	l = l.With(slog.String("user_id", userID.String()))

	var req Request
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Invalid request body", slog.Any("error", err))
		span.RecordError(err)
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.Generate(ctx, userID, req)
	if err != nil {
		if api.StatusFor(err) >= http.StatusInternalServerError {
			l.ErrorContext(ctx, "Failed to draft itinerary", slog.Any("error", err))
		} else {
			l.WarnContext(ctx, "Draft rejected", slog.Any("error", err))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "draft failed")
		api.FailWith(w, r, err)
		return
	}

	span.SetAttributes(
		attribute.Int64("itinerary.id", result.Itinerary.ID),
		attribute.Int("activities.count", result.Activities),
	)
	span.SetStatus(codes.Ok, "")
	api.WriteJSONResponse(w, r, http.StatusCreated, result)
}
