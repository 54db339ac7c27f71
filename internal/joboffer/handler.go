package joboffer

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"fixify-backend/internal/apperr"
	"fixify-backend/internal/httpx"
	"fixify-backend/internal/middleware"
	"fixify-backend/internal/models"
	"fixify-backend/internal/transport"
	"fixify-backend/internal/validation"
)

// TechnicianResolver maps auth claims onto a technician record.
type TechnicianResolver interface {
	Resolve(ctx context.Context, userID, email string) (models.Technician, error)
}

type Handler struct {
	service     *Service
	technicians TechnicianResolver
	val         *validation.Validator
	log         *slog.Logger
}

func NewHandler(service *Service, technicians TechnicianResolver, val *validation.Validator, log *slog.Logger) *Handler {
	return &Handler{
		service:     service,
		technicians: technicians,
		val:         val,
		log:         log,
	}
}

type DispatchRequest struct {
	BookingID    string  `json:"bookingId" validate:"required"`
	TechnicianID string  `json:"technicianId" validate:"required"`
	TTLMinutes   int     `json:"ttlMinutes" validate:"omitempty,gte=1,lte=1440"`
	Distance     float64 `json:"distance" validate:"omitempty,gte=0"`
}

type RespondRequest struct {
	BookingID string `json:"bookingId" validate:"required"`
	Response  string `json:"response" validate:"required,oneof=accept reject"`
	Reason    string `json:"reason"`
}

// AdminDispatch creates an offer; dispatch is admin-triggered, there
// is no automated matching engine.
func (h *Handler) AdminDispatch(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	var req DispatchRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("offer dispatch: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		log.Warn("offer dispatch: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	offer, err := h.service.CreateOffer(ctx, req.BookingID, req.TechnicianID, req.TTLMinutes, req.Distance)
	if err != nil {
		h.writeServiceError(log, w, "offer dispatch", err)
		return
	}

	log.Info("offer dispatch: ok",
		slog.String("booking_id", offer.BookingID),
		slog.String("technician_id", offer.TechnicianID),
		slog.Time("expires_at", offer.ExpiresAt),
	)
	transport.WriteSuccess(w, http.StatusCreated, "offer created", map[string]interface{}{"offer": offer})
}

func (h *Handler) ListOffers(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	tech, ok := h.resolveTechnician(log, w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	offers, err := h.service.ListActive(ctx, tech.ID)
	if err != nil {
		h.writeServiceError(log, w, "offer list", err)
		return
	}

	log.Info("offer list: ok", slog.String("technician_id", tech.ID), slog.Int("count", len(offers)))
	transport.WriteSuccess(w, http.StatusOK, "", map[string]interface{}{"offers": offers})
}

func (h *Handler) Respond(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	tech, ok := h.resolveTechnician(log, w, r)
	if !ok {
		return
	}

	var req RespondRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("offer respond: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		log.Warn("offer respond: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	updated, err := h.service.Respond(ctx, req.BookingID, tech.ID, req.Response, req.Reason)
	if err != nil {
		h.writeServiceError(log, w, "offer respond", err)
		return
	}

	log.Info("offer respond: ok",
		slog.String("booking_id", updated.ID),
		slog.String("technician_id", tech.ID),
		slog.String("response", req.Response),
	)
	transport.WriteSuccess(w, http.StatusOK, "response recorded", map[string]interface{}{"booking": updated})
}

func (h *Handler) resolveTechnician(log *slog.Logger, w http.ResponseWriter, r *http.Request) (models.Technician, bool) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		transport.WriteError(w, http.StatusUnauthorized, "unauthorized", nil)
		return models.Technician{}, false
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	tech, err := h.technicians.Resolve(ctx, claims.UserID, claims.Email)
	if err != nil {
		h.writeServiceError(log, w, "technician resolve", err)
		return models.Technician{}, false
	}
	return tech, true
}

func (h *Handler) writeServiceError(log *slog.Logger, w http.ResponseWriter, op string, err error) {
	if apperr.HTTPStatus(err) >= http.StatusInternalServerError {
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
