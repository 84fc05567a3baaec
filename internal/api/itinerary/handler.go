package itinerary

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-trekly-itineraries/internal/api"
	"github.com/FACorreiaa/go-trekly-itineraries/internal/api/calendar"
	"github.com/FACorreiaa/go-trekly-itineraries/internal/types"
)

const defaultSearchRadius = 5000

type Handler struct {
	service  Service
	calendar *calendar.Exporter
	logger   *slog.Logger
}

func NewHandler(service Service, exporter *calendar.Exporter, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		calendar: exporter,
		logger:   logger,
	}
}

// request is the per-handler context: span, logger and the authenticated user.
type request struct {
	ctx    context.Context
	span   trace.Span
	l      *slog.Logger
	userID uuid.UUID
}

func (h *Handler) begin(w http.ResponseWriter, r *http.Request, name, route string) (*request, bool) {
	ctx, span := otel.Tracer("ItineraryHandler").Start(r.Context(), name, trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String(route),
	))
	l := h.logger.With(slog.String("handler", name))
	l.DebugContext(ctx, "Handler invoked")

	userID, ok := api.CurrentUser(w, r)
	if !ok {
		l.WarnContext(ctx, "User ID not found in context")
		span.End()
		return nil, false
	}
	span.SetAttributes(semconv.EnduserIDKey.String(userID.String()))
	return &request{ctx: ctx, span: span, l: l.With(slog.String("user_id", userID.String())), userID: userID}, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, rq *request, msg string, err error) {
	status := api.StatusFor(err)
	if status >= http.StatusInternalServerError {
		rq.l.ErrorContext(rq.ctx, msg, slog.Any("error", err))
	} else {
		rq.l.WarnContext(rq.ctx, msg, slog.Any("error", err))
	}
	rq.span.RecordError(err)
	api.FailWith(w, r, err)
}

func (h *Handler) badRequest(w http.ResponseWriter, r *http.Request, rq *request, err error) {
	h.fail(w, r, rq, "Invalid request", fmt.Errorf("%s: %w", err.Error(), types.ErrInvalidInput))
}

// params reads the named int64 path parameters in order.
func (h *Handler) params(w http.ResponseWriter, r *http.Request, rq *request, names ...string) ([]int64, bool) {
	ids := make([]int64, 0, len(names))
	for _, name := range names {
		id, err := api.Int64Param(r, name)
		if err != nil {
			h.fail(w, r, rq, "Invalid path parameter", err)
			return nil, false
		}
		rq.span.SetAttributes(attribute.Int64(name, id))
		ids = append(ids, id)
	}
	return ids, true
}

// editSession resolves {id} and returns the owner's session.
func (h *Handler) editSession(w http.ResponseWriter, r *http.Request, rq *request, names ...string) (*Session, []int64, bool) {
	ids, ok := h.params(w, r, rq, append([]string{"id"}, names...)...)
	if !ok {
		return nil, nil, false
	}
	sess, err := h.service.EditSession(rq.ctx, rq.userID, ids[0])
	if err != nil {
		h.fail(w, r, rq, "Failed to open itinerary", err)
		return nil, nil, false
	}
	return sess, ids[1:], true
}

// CreateItinerary godoc
// @Summary      Create itinerary
// @Description  Creates an empty itinerary owned by the caller with a share code and cover image
// @Tags         Itineraries
// @Accept       json
// @Produce      json
// @Param        itinerary body CreateItineraryParams true "Itinerary"
// @Success      201 {object} types.Itinerary
// @Failure      400 {object} api.Response "Bad Request"
// @Failure      401 {object} api.Response "Unauthorized"
// @Failure      500 {object} api.Response "Internal Server Error"
// @Security     BearerAuth
// @Router       /itineraries [post]
func (h *Handler) CreateItinerary(w http.ResponseWriter, r *http.Request) {
	rq, ok := h.begin(w, r, "CreateItinerary", "/itineraries")
	if !ok {
		return
	}
	defer rq.span.End()

	var params CreateItineraryParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		h.badRequest(w, r, rq, err)
		return
	}
	// share code, cover image and owner are set by the service
	it, err := h.service.CreateItinerary(rq.ctx, rq.userID, params)
	if err != nil {
		h.fail(w, r, rq, "Failed to create itinerary", err)
		return
	}
	rq.l.InfoContext(rq.ctx, "Itinerary created", slog.Int64("itinerary_id", it.ID))
	api.WriteJSONResponse(w, r, http.StatusCreated, it)
}

// ListItineraries godoc
// @Summary      List my itineraries
// @Tags         Itineraries
// @Produce      json
// @Success      200 {array} types.Itinerary
// @Failure      401 {object} api.Response "Unauthorized"
// @Failure      500 {object} api.Response "Internal Server Error"
// @Security     BearerAuth
// @Router       /itineraries [get]
func (h *Handler) ListItineraries(w http.ResponseWriter, r *http.Request) {
	rq, ok := h.begin(w, r, "ListItineraries", "/itineraries")
	if !ok {
		return
	}
	defer rq.span.End()

	list, err := h.service.ListMyItineraries(rq.ctx, rq.userID)
	if err != nil {
		h.fail(w, r, rq, "Failed to list itineraries", err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, list)
}

// GetItinerary godoc
// @Summary      Get itinerary
// @Tags         Itineraries
// @Produce      json
// @Param        id path int true "Itinerary ID"
// @Success      200 {object} types.Itinerary
// @Failure      404 {object} api.Response "Not Found"
// @Security     BearerAuth
// @Router       /itineraries/{id} [get]
func (h *Handler) GetItinerary(w http.ResponseWriter, r *http.Request) {
	rq, ok := h.begin(w, r, "GetItinerary", "/itineraries/{id}")
	if !ok {
		return
	}
	defer rq.span.End()

	ids, ok := h.params(w, r, rq, "id")
	if !ok {
		return
	}
	it, err := h.service.GetItinerary(rq.ctx, rq.userID, ids[0])
	if err != nil {
		h.fail(w, r, rq, "Failed to get itinerary", err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, it)
}

// UpdateItinerary godoc
// @Summary      Update itinerary
// @Tags         Itineraries
// @Accept       json
// @Param        id path int true "Itinerary ID"
// @Param        changes body types.UpdateItineraryParams true "Changed fields"
// @Success      204
// @Failure      400 {object} api.Response "Bad Request"
// @Failure      403 {object} api.Response "Forbidden"
// @Failure      404 {object} api.Response "Not Found"
// @Security     BearerAuth
// @Router       /itineraries/{id} [patch]
func (h *Handler) UpdateItinerary(w http.ResponseWriter, r *http.Request) {
	rq, ok := h.begin(w, r, "UpdateItinerary", "/itineraries/{id}")
	if !ok {
		return
	}
	defer rq.span.End()

	ids, ok := h.params(w, r, rq, "id")
	if !ok {
		return
	}
	var params types.UpdateItineraryParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		h.badRequest(w, r, rq, err)
		return
	}
	if err := h.service.UpdateItinerary(rq.ctx, rq.userID, ids[0], params); err != nil {
		h.fail(w, r, rq, "Failed to update itinerary", err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusNoContent, nil)
}

// DeleteItinerary godoc
// @Summary      Delete itinerary
// @Tags         Itineraries
// @Param        id path int true "Itinerary ID"
// @Success      204
// @Failure      403 {object} api.Response "Forbidden"
// @Failure      404 {object} api.Response "Not Found"
// @Security     BearerAuth
// @Router       /itineraries/{id} [delete]
func (h *Handler) DeleteItinerary(w http.ResponseWriter, r *http.Request) {
	rq, ok := h.begin(w, r, "DeleteItinerary", "/itineraries/{id}")
	if !ok {
		return
	}
	defer rq.span.End()

	ids, ok := h.params(w, r, rq, "id")
	if !ok {
		return
	}
	// children cascade in the store and the cached session is evicted
	if err := h.service.DeleteItinerary(rq.ctx, rq.userID, ids[0]); err != nil {
		h.fail(w, r, rq, "Failed to delete itinerary", err)
		return
	}
	rq.l.InfoContext(rq.ctx, "Itinerary deleted", slog.Int64("itinerary_id", ids[0]))
	api.WriteJSONResponse(w, r, http.StatusNoContent, nil)
}

// GetSharedItinerary godoc
// @Summary      Get itinerary by share code
// @Tags         Itineraries
// @Produce      json
// @Param        code path string true "Share code"
// @Success      200 {object} types.Itinerary
// @Failure      404 {object} api.Response "Not Found"
// @Security     BearerAuth
// @Router       /itineraries/shared/{code} [get]
func (h *Handler) GetSharedItinerary(w http.ResponseWriter, r *http.Request) {
	rq, ok := h.begin(w, r, "GetSharedItinerary", "/itineraries/shared/{code}")
	if !ok {
		return
	}
	defer rq.span.End()

	code := strings.TrimSpace(chi.URLParam(r, "code"))
	if code == "" {
		h.badRequest(w, r, rq, fmt.Errorf("share code is required"))
		return
	}
	// private itineraries of other users come back as not found
	it, err := h.service.GetItineraryByShareCode(rq.ctx, rq.userID, code)
	if err != nil {
		h.fail(w, r, rq, "Failed to resolve share code", err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, it)
}

// ShareQRCode godoc
// @Summary      Share link QR code
// @Tags         Itineraries
// @Produce      png
// @Param        id path int true "Itinerary ID"
// @Success      200 {file} binary
// @Failure      404 {object} api.Response "Not Found"
// @Security     BearerAuth
// @Router       /itineraries/{id}/share/qr [get]
func (h *Handler) ShareQRCode(w http.ResponseWriter, r *http.Request) {
	rq, ok := h.begin(w, r, "ShareQRCode", "/itineraries/{id}/share/qr")
	if !ok {
		return
	}
	defer rq.span.End()

	ids, ok := h.params(w, r, rq, "id")
	if !ok {
		return
	}
	png, err := h.service.ShareQRCode(rq.ctx, rq.userID, ids[0])
	if err != nil {
		h.fail(w, r, rq, "Failed to render QR code", err)
		return
	}
	writeBytes(w, rq, "image/png", png)
}

// ExportCalendar godoc
// @Summary      Export itinerary as iCalendar
// @Tags         Itineraries
// @Produce      text/calendar
// @Param        id path int true "Itinerary ID"
// @Success      200 {string} string "VCALENDAR document"
// @Failure      404 {object} api.Response "Not Found"
// @Failure      422 {object} api.Response "Collection not loaded"
// @Security     BearerAuth
// @Router       /itineraries/{id}/calendar.ics [get]
func (h *Handler) ExportCalendar(w http.ResponseWriter, r *http.Request) {
	rq, ok := h.begin(w, r, "ExportCalendar", "/itineraries/{id}/calendar.ics")
	if !ok {
		return
	}
	defer rq.span.End()

	ids, ok := h.params(w, r, rq, "id")
	if !ok {
		return
	}
	sess, err := h.service.OpenSession(rq.ctx, rq.userID, ids[0])
	if err != nil {
		h.fail(w, r, rq, "Failed to open itinerary", err)
		return
	}
	// Export needs all three collections in Success
	it, err := sess.Itinerary()
	if err != nil {
		h.fail(w, r, rq, "Itinerary not loaded", err)
		return
	}
	activities, err := sess.Activities()
	if err != nil {
		h.fail(w, r, rq, "Activities not loaded", err)
		return
	}
	accommodations, err := sess.Accommodations()
	if err != nil {
		h.fail(w, r, rq, "Accommodations not loaded", err)
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="itinerary-%d.ics"`, it.ID))
	writeBytes(w, rq, "text/calendar; charset=utf-8", []byte(h.calendar.Export(it, activities, accommodations)))
}

// GetView godoc
// @Summary      Itinerary view
// @Description  Per-collection load state, day-by-day schedule and the map dirty flag
// @Tags         Itinerary View
// @Produce      json
// @Param        id path int true "Itinerary ID"
// @Success      200 {object} View
// @Failure      404 {object} api.Response "Not Found"
// @Security     BearerAuth
// @Router       /itineraries/{id}/view [get]
func (h *Handler) GetView(w http.ResponseWriter, r *http.Request) {
	rq, ok := h.begin(w, r, "GetView", "/itineraries/{id}/view")
	if !ok {
		return
	}
	defer rq.span.End()

	ids, ok := h.params(w, r, rq, "id")
	if !ok {
		return
	}
	sess, err := h.service.OpenSession(rq.ctx, rq.userID, ids[0])
	if err != nil {
		h.fail(w, r, rq, "Failed to open itinerary", err)
		return
	}
	// collections that failed to load are reported per collection, not as an error
	api.WriteJSONResponse(w, r, http.StatusOK, sess.Snapshot())
}

// ReloadView godoc
// @Summary      Reload itinerary view
// @Tags         Itinerary View
// @Produce      json
// @Param        id path int true "Itinerary ID"
// @Success      200 {object} View
// @Failure      404 {object} api.Response "Not Found"
// @Security     BearerAuth
// @Router       /itineraries/{id}/view/reload [post]
func (h *Handler) ReloadView(w http.ResponseWriter, r *http.Request) {
	rq, ok := h.begin(w, r, "ReloadView", "/itineraries/{id}/view/reload")
	if !ok {
		return
	}
	defer rq.span.End()

	ids, ok := h.params(w, r, rq, "id")
	if !ok {
		return
	}
	sess, err := h.service.Reload(rq.ctx, rq.userID, ids[0])
	if err != nil {
		h.fail(w, r, rq, "Failed to reload itinerary", err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, sess.Snapshot())
}

// AddAccommodation godoc
// @Summary      Add accommodation
// @Tags         Itinerary View
// @Accept       json
// @Produce      json
// @Param        id path int true "Itinerary ID"
// @Param        accommodation body NewAccommodation true "Accommodation"
// @Success      201 {object} types.Accommodation
// @Failure      400 {object} api.Response "Bad Request"
// @Failure      502 {object} api.Response "Place not resolved"
// @Security     BearerAuth
// @Router       /itineraries/{id}/accommodations [post]
func (h *Handler) AddAccommodation(w http.ResponseWriter, r *http.Request) {
	rq, ok := h.begin(w, r, "AddAccommodation", "/itineraries/{id}/accommodations")
	if !ok {
		return
	}
	defer rq.span.End()

	sess, _, ok := h.editSession(w, r, rq)
	if !ok {
		return
	}
	var in NewAccommodation
	if err := api.DecodeJSONBody(w, r, &in); err != nil {
		h.badRequest(w, r, rq, err)
		return
	}
	accommodation, err := sess.AddAccommodation(rq.ctx, in)
	if err != nil {
		h.fail(w, r, rq, "Failed to add accommodation", err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusCreated, accommodation)
}

// UpdateAccommodation godoc
// @Summary      Update accommodation
// @Tags         Itinerary View
// @Accept       json
// @Param        id path int true "Itinerary ID"
// @Param        accommodationId path int true "Accommodation ID"
// @Param        changes body types.UpdateAccommodationParams true "Changed fields"
// @Success      204
// @Failure      404 {object} api.Response "Not Found"
// @Security     BearerAuth
// @Router       /itineraries/{id}/accommodations/{accommodationId} [patch]
func (h *Handler) UpdateAccommodation(w http.ResponseWriter, r *http.Request) {
	rq, ok := h.begin(w, r, "UpdateAccommodation", "/itineraries/{id}/accommodations/{accommodationId}")
	if !ok {
		return
	}
	defer rq.span.End()

	sess, ids, ok := h.editSession(w, r, rq, "accommodationId")
	if !ok {
		return
	}
	var params types.UpdateAccommodationParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		h.badRequest(w, r, rq, err)
		return
	}
	if err := sess.UpdateAccommodation(rq.ctx, ids[0], params); err != nil {
		h.fail(w, r, rq, "Failed to update accommodation", err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusNoContent, nil)
}

// DeleteAccommodation godoc
// @Summary      Delete accommodation
// @Tags         Itinerary View
// @Param        id path int true "Itinerary ID"
// @Param        accommodationId path int true "Accommodation ID"
// @Success      204
// @Security     BearerAuth
// @Router       /itineraries/{id}/accommodations/{accommodationId} [delete]
func (h *Handler) DeleteAccommodation(w http.ResponseWriter, r *http.Request) {
	rq, ok := h.begin(w, r, "DeleteAccommodation", "/itineraries/{id}/accommodations/{accommodationId}")
	if !ok {
		return
	}
	defer rq.span.End()

	sess, ids, ok := h.editSession(w, r, rq, "accommodationId")
	if !ok {
		return
	}
	if err := sess.DeleteAccommodation(rq.ctx, ids[0]); err != nil {
		h.fail(w, r, rq, "Failed to delete accommodation", err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusNoContent, nil)
}

// AddActivity godoc
// @Summary      Add activity
// @Tags         Itinerary View
// @Accept       json
// @Produce      json
// @Param        id path int true "Itinerary ID"
// @Param        activity body NewActivity true "Activity"
// @Success      201 {object} types.Activity
// @Failure      400 {object} api.Response "Bad Request"
// @Failure      502 {object} api.Response "Place not resolved"
// @Security     BearerAuth
// @Router       /itineraries/{id}/activities [post]
func (h *Handler) AddActivity(w http.ResponseWriter, r *http.Request) {
	rq, ok := h.begin(w, r, "AddActivity", "/itineraries/{id}/activities")
	if !ok {
		return
	}
	defer rq.span.End()

	sess, _, ok := h.editSession(w, r, rq)
	if !ok {
		return
	}
	var in NewActivity
	if err := api.DecodeJSONBody(w, r, &in); err != nil {
		h.badRequest(w, r, rq, err)
		return
	}
	activity, err := sess.AddActivity(rq.ctx, in)
	if err != nil {
		h.fail(w, r, rq, "Failed to add activity", err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusCreated, activity)
}

// UpdateActivity godoc
// @Summary      Update activity
// @Tags         Itinerary View
// @Accept       json
// @Param        id path int true "Itinerary ID"
// @Param        activityId path int true "Activity ID"
// @Param        changes body ActivityChanges true "Changed fields"
// @Success      204
// @Failure      404 {object} api.Response "Not Found"
// @Security     BearerAuth
// @Router       /itineraries/{id}/activities/{activityId} [patch]
func (h *Handler) UpdateActivity(w http.ResponseWriter, r *http.Request) {
	rq, ok := h.begin(w, r, "UpdateActivity", "/itineraries/{id}/activities/{activityId}")
	if !ok {
		return
	}
	defer rq.span.End()

	sess, ids, ok := h.editSession(w, r, rq, "activityId")
	if !ok {
		return
	}
	var ch ActivityChanges
	if err := api.DecodeJSONBody(w, r, &ch); err != nil {
		h.badRequest(w, r, rq, err)
		return
	}
	if err := sess.UpdateActivity(rq.ctx, ids[0], ch); err != nil {
		h.fail(w, r, rq, "Failed to update activity", err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusNoContent, nil)
}

// DeleteActivity godoc
// @Summary      Delete activity
// @Tags         Itinerary View
// @Param        id path int true "Itinerary ID"
// @Param        activityId path int true "Activity ID"
// @Success      204
// @Security     BearerAuth
// @Router       /itineraries/{id}/activities/{activityId} [delete]
func (h *Handler) DeleteActivity(w http.ResponseWriter, r *http.Request) {
	rq, ok := h.begin(w, r, "DeleteActivity", "/itineraries/{id}/activities/{activityId}")
	if !ok {
		return
	}
	defer rq.span.End()

	sess, ids, ok := h.editSession(w, r, rq, "activityId")
	if !ok {
		return
	}
	// ids outside this itinerary are a no-op
	if err := sess.DeleteActivity(rq.ctx, ids[0]); err != nil {
		h.fail(w, r, rq, "Failed to delete activity", err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusNoContent, nil)
}

// ActivityPhoto godoc
// @Summary      Activity thumbnail
// @Tags         Itinerary View
// @Produce      jpeg
// @Param        id path int true "Itinerary ID"
// @Param        activityId path int true "Activity ID"
// @Success      200 {file} binary
// @Failure      404 {object} api.Response "Not Found"
// @Security     BearerAuth
// @Router       /itineraries/{id}/activities/{activityId}/photo [get]
func (h *Handler) ActivityPhoto(w http.ResponseWriter, r *http.Request) {
	rq, ok := h.begin(w, r, "ActivityPhoto", "/itineraries/{id}/activities/{activityId}/photo")
	if !ok {
		return
	}
	defer rq.span.End()

	ids, ok := h.params(w, r, rq, "id", "activityId")
	if !ok {
		return
	}
	sess, err := h.service.OpenSession(rq.ctx, rq.userID, ids[0])
	if err != nil {
		h.fail(w, r, rq, "Failed to open itinerary", err)
		return
	}
	// photos are fetched when the session loads, never on demand
	photo, found := sess.Photo(ids[1])
	if !found {
		h.fail(w, r, rq, "No photo for activity", fmt.Errorf("photo for activity %d: %w", ids[1], types.ErrNotFound))
		return
	}
	w.Header().Set("Cache-Control", "private, max-age=3600")
	writeBytes(w, rq, "image/jpeg", photo)
}

// NearbyPlaceRequest adds an activity at a place picked from a nearby search.
type NearbyPlaceRequest struct {
	Place    types.PlaceDetails `json:"place"`
	FromTime time.Time          `json:"from_time"`
	ToTime   time.Time          `json:"to_time"`
	Notes    string             `json:"notes"`
}

// AddNearbyPlace godoc
// @Summary      Add nearby place as activity
// @Tags         Itinerary Map
// @Accept       json
// @Produce      json
// @Param        id path int true "Itinerary ID"
// @Param        place body NearbyPlaceRequest true "Picked place"
// @Success      201 {object} types.Activity
// @Failure      400 {object} api.Response "Bad Request"
// @Security     BearerAuth
// @Router       /itineraries/{id}/activities/nearby [post]
func (h *Handler) AddNearbyPlace(w http.ResponseWriter, r *http.Request) {
	rq, ok := h.begin(w, r, "AddNearbyPlace", "/itineraries/{id}/activities/nearby")
	if !ok {
		return
	}
	defer rq.span.End()

	sess, _, ok := h.editSession(w, r, rq)
	if !ok {
		return
	}
	var in NearbyPlaceRequest
	if err := api.DecodeJSONBody(w, r, &in); err != nil {
		h.badRequest(w, r, rq, err)
		return
	}
	activity, err := sess.AddNearbyPlace(rq.ctx, in.Place, in.FromTime, in.ToTime, in.Notes)
	if err != nil {
		h.fail(w, r, rq, "Failed to add nearby place", err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusCreated, activity)
}

// UpdateTransportation godoc
// @Summary      Update transportation
// @Tags         Itinerary View
// @Accept       json
// @Param        id path int true "Itinerary ID"
// @Param        transportationId path int true "Transportation ID"
// @Param        changes body types.UpdateTransportationParams true "Changed fields"
// @Success      204
// @Failure      400 {object} api.Response "Bad Request"
// @Security     BearerAuth
// @Router       /itineraries/{id}/transportation/{transportationId} [patch]
func (h *Handler) UpdateTransportation(w http.ResponseWriter, r *http.Request) {
	rq, ok := h.begin(w, r, "UpdateTransportation", "/itineraries/{id}/transportation/{transportationId}")
	if !ok {
		return
	}
	defer rq.span.End()

	sess, ids, ok := h.editSession(w, r, rq, "transportationId")
	if !ok {
		return
	}
	var params types.UpdateTransportationParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		h.badRequest(w, r, rq, err)
		return
	}
	if err := sess.UpdateTransportation(rq.ctx, ids[0], params); err != nil {
		h.fail(w, r, rq, "Failed to update transportation", err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusNoContent, nil)
}

// DeleteTransportation godoc
// @Summary      Delete transportation
// @Tags         Itinerary View
// @Param        id path int true "Itinerary ID"
// @Param        transportationId path int true "Transportation ID"
// @Success      204
// @Security     BearerAuth
// @Router       /itineraries/{id}/transportation/{transportationId} [delete]
func (h *Handler) DeleteTransportation(w http.ResponseWriter, r *http.Request) {
	rq, ok := h.begin(w, r, "DeleteTransportation", "/itineraries/{id}/transportation/{transportationId}")
	if !ok {
		return
	}
	defer rq.span.End()

	sess, ids, ok := h.editSession(w, r, rq, "transportationId")
	if !ok {
		return
	}
	if err := sess.DeleteTransportation(rq.ctx, ids[0]); err != nil {
		h.fail(w, r, rq, "Failed to delete transportation", err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusNoContent, nil)
}

// RefreshMap godoc
// @Summary      Refresh itinerary map
// @Description  Resolves every itinerary place and recomputes the driving legs between consecutive stops
// @Tags         Itinerary Map
// @Produce      json
// @Param        id path int true "Itinerary ID"
// @Success      200 {object} MapView
// @Failure      404 {object} api.Response "Not Found"
// @Security     BearerAuth
// @Router       /itineraries/{id}/map/refresh [post]
func (h *Handler) RefreshMap(w http.ResponseWriter, r *http.Request) {
	rq, ok := h.begin(w, r, "RefreshMap", "/itineraries/{id}/map/refresh")
	if !ok {
		return
	}
	defer rq.span.End()

	ids, ok := h.params(w, r, rq, "id")
	if !ok {
		return
	}
	sess, err := h.service.OpenSession(rq.ctx, rq.userID, ids[0])
	if err != nil {
		h.fail(w, r, rq, "Failed to open itinerary", err)
		return
	}
	// Read access is enough: the map is derived, nothing is written
	view, err := sess.RefreshMap(rq.ctx)
	if err != nil {
		h.fail(w, r, rq, "Failed to refresh map", err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, view)
}

// GetMap godoc
// @Summary      Itinerary map
// @Tags         Itinerary Map
// @Produce      json
// @Param        id path int true "Itinerary ID"
// @Success      200 {object} MapView
// @Security     BearerAuth
// @Router       /itineraries/{id}/map [get]
func (h *Handler) GetMap(w http.ResponseWriter, r *http.Request) {
	rq, ok := h.begin(w, r, "GetMap", "/itineraries/{id}/map")
	if !ok {
		return
	}
	defer rq.span.End()

	ids, ok := h.params(w, r, rq, "id")
	if !ok {
		return
	}
	sess, err := h.service.OpenSession(rq.ctx, rq.userID, ids[0])
	if err != nil {
		h.fail(w, r, rq, "Failed to open itinerary", err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, sess.Map())
}

// Autocomplete godoc
// @Summary      Place autocomplete
// @Tags         Places
// @Produce      json
// @Param        q query string true "Search text"
// @Param        lat query number false "Bias latitude"
// @Param        lng query number false "Bias longitude"
// @Param        radius query number false "Bias radius in meters"
// @Success      200 {array} types.Prediction
// @Security     BearerAuth
// @Router       /places/autocomplete [get]
func (h *Handler) Autocomplete(w http.ResponseWriter, r *http.Request) {
	rq, ok := h.begin(w, r, "Autocomplete", "/places/autocomplete")
	if !ok {
		return
	}
	defer rq.span.End()

	q := strings.TrimSpace(r.URL.Query().Get("q"))
	origin, radius, err := locationQuery(r)
	if err != nil {
		h.badRequest(w, r, rq, err)
		return
	}
	// Empty query, empty list. No provider call.
	if q == "" {
		api.WriteJSONResponse(w, r, http.StatusOK, []types.Prediction{})
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, h.service.Autocomplete(rq.ctx, q, origin, radius))
}

// SearchNearby godoc
// @Summary      Nearby places
// @Tags         Places
// @Produce      json
// @Param        q query string true "Search text"
// @Param        lat query number true "Center latitude"
// @Param        lng query number true "Center longitude"
// @Param        radius query number false "Radius in meters"
// @Success      200 {array} types.PlaceDetails
// @Failure      400 {object} api.Response "Bad Request"
// @Security     BearerAuth
// @Router       /places/nearby [get]
func (h *Handler) SearchNearby(w http.ResponseWriter, r *http.Request) {
	rq, ok := h.begin(w, r, "SearchNearby", "/places/nearby")
	if !ok {
		return
	}
	defer rq.span.End()

	q := strings.TrimSpace(r.URL.Query().Get("q"))
	center, radius, err := locationQuery(r)
	if err == nil && (q == "" || center == nil) {
		err = fmt.Errorf("q, lat and lng are required")
	}
	if err != nil {
		h.badRequest(w, r, rq, err)
		return
	}
	results := h.service.SearchNearby(rq.ctx, q, *center, radius)
	// provider failures collapse to nil; clients always get an array
	if results == nil {
		results = []types.PlaceDetails{}
	}
	api.WriteJSONResponse(w, r, http.StatusOK, results)
}

// locationQuery reads the optional lat/lng/radius query parameters.
func locationQuery(r *http.Request) (*types.LatLng, float64, error) {
	q := r.URL.Query()
	radius := float64(defaultSearchRadius)
	if raw := q.Get("radius"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v <= 0 {
			return nil, 0, fmt.Errorf("invalid radius %q", raw)
		}
		radius = v
	}
	rawLat, rawLng := q.Get("lat"), q.Get("lng")
	if rawLat == "" && rawLng == "" {
		return nil, radius, nil
	}
	lat, err := strconv.ParseFloat(rawLat, 64)
	if err != nil || lat < -90 || lat > 90 {
		return nil, 0, fmt.Errorf("invalid lat %q", rawLat)
	}
	lng, err := strconv.ParseFloat(rawLng, 64)
	if err != nil || lng < -180 || lng > 180 {
		return nil, 0, fmt.Errorf("invalid lng %q", rawLng)
	}
	return &types.LatLng{Lat: lat, Lng: lng}, radius, nil
}

func writeBytes(w http.ResponseWriter, rq *request, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		rq.l.ErrorContext(rq.ctx, "Failed to write response body", slog.Any("error", err))
	}
}
