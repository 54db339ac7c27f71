package booking

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"fixify-backend/internal/apperr"
	"fixify-backend/internal/httpx"
	"fixify-backend/internal/middleware"
	"fixify-backend/internal/transport"
	"fixify-backend/internal/validation"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	service *Service
	val     *validation.Validator
	log     *slog.Logger
}

func NewHandler(service *Service, val *validation.Validator, log *slog.Logger) *Handler {
	return &Handler{
		service: service,
		val:     val,
		log:     log,
	}
}

type StatusUpdateRequest struct {
	Status string `json:"status" validate:"required,oneof=pending confirmed completed cancelled"`
}

type CancelRequest struct {
	BookingID string `json:"bookingId" validate:"required"`
	OrderID   string `json:"orderId" validate:"required"`
	Reason    string `json:"reason" validate:"required"`
}

type RescheduleRequest struct {
	BookingID string `json:"bookingId" validate:"required"`
	OrderID   string `json:"orderId" validate:"required"`
	NewDate   string `json:"newDate" validate:"required,date"`
	NewTime   string `json:"newTime" validate:"required,clock"`
}

type RateRequest struct {
	Rating   int    `json:"rating" validate:"required,gte=1,lte=5"`
	Feedback string `json:"feedback"`
}

func actorFromRequest(r *http.Request) Actor {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		return Actor{}
	}
	return Actor{UserID: claims.UserID, Email: claims.Email, Role: claims.Role}
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		log.Warn("booking status: missing id")
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	var req StatusUpdateRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("booking status: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		log.Warn("booking status: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	updated, err := h.service.UpdateStatus(ctx, id, req.Status, actorFromRequest(r))
	if err != nil {
		h.writeServiceError(log, w, "booking status", err)
		return
	}

	log.Info("booking status: ok", slog.String("booking_id", updated.ID), slog.String("status", updated.Status))
	transport.WriteSuccess(w, http.StatusOK, "status updated", map[string]interface{}{"booking": updated})
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	var req CancelRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("booking cancel: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		log.Warn("booking cancel: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	updated, err := h.service.Cancel(ctx, req.BookingID, req.OrderID, req.Reason, actorFromRequest(r))
	if err != nil {
		h.writeServiceError(log, w, "booking cancel", err)
		return
	}

	log.Info("booking cancel: ok", slog.String("booking_id", updated.ID))
	transport.WriteSuccess(w, http.StatusOK, "booking cancelled", map[string]interface{}{"booking": updated})
}

func (h *Handler) Reschedule(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	var req RescheduleRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("booking reschedule: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		log.Warn("booking reschedule: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	updated, err := h.service.Reschedule(ctx, req.BookingID, req.OrderID, req.NewDate, req.NewTime, actorFromRequest(r))
	if err != nil {
		h.writeServiceError(log, w, "booking reschedule", err)
		return
	}

	log.Info("booking reschedule: ok",
		slog.String("booking_id", updated.ID),
		slog.String("date", updated.ScheduledDate),
		slog.String("time", updated.BookingTime),
	)
	transport.WriteSuccess(w, http.StatusOK, "booking rescheduled", map[string]interface{}{"booking": updated})
}

func (h *Handler) Rate(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		log.Warn("booking rate: missing id")
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	var req RateRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("booking rate: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		log.Warn("booking rate: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	updated, err := h.service.Rate(ctx, id, req.Rating, req.Feedback, actorFromRequest(r))
	if err != nil {
		h.writeServiceError(log, w, "booking rate", err)
		return
	}

	log.Info("booking rate: ok", slog.String("booking_id", updated.ID), slog.Int("rating", req.Rating))
	transport.WriteSuccess(w, http.StatusOK, "rating saved", map[string]interface{}{"booking": updated})
}

func (h *Handler) ListOwn(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	limit, offset, err := httpx.ParseLimitOffset(r.URL.Query(), 20, 100)
	if err != nil {
		log.Warn("booking list: invalid query", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	items, total, err := h.service.ListOwn(ctx, actorFromRequest(r), limit, offset)
	if err != nil {
		h.writeServiceError(log, w, "booking list", err)
		return
	}

	log.Info("booking list: ok", slog.Int("count", len(items)))
	transport.WriteSuccess(w, http.StatusOK, "", map[string]interface{}{
		"bookings": items,
		"limit":    limit,
		"offset":   offset,
		"total":    total,
	})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		log.Warn("booking get: missing id")
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	b, err := h.service.Get(ctx, id, actorFromRequest(r))
	if err != nil {
		h.writeServiceError(log, w, "booking get", err)
		return
	}

	log.Info("booking get: ok", slog.String("booking_id", b.ID))
	transport.WriteSuccess(w, http.StatusOK, "", map[string]interface{}{"booking": b})
}

func (h *Handler) writeServiceError(log *slog.Logger, w http.ResponseWriter, op string, err error) {
	if status := apperr.HTTPStatus(err); status >= http.StatusInternalServerError {
		log.Error(op+": internal error", slog.String("error", err.Error()))
	} else {
		log.Warn(op + ": " + err.Error())
	}
	transport.WriteAppError(w, err)
}

func (h *Handler) logWithRequest(r *http.Request) *slog.Logger {
	if r == nil {
		return h.log
	}
	if id := middleware.RequestIDFromContext(r.Context()); id != "" {
		return h.log.With(slog.String("request_id", id))
	}
	return h.log
}
