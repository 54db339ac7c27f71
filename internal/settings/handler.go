package settings

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"fixify-backend/internal/apperr"
	"fixify-backend/internal/httpx"
	"fixify-backend/internal/middleware"
	"fixify-backend/internal/transport"
	"fixify-backend/internal/validation"
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

type CommissionUpdateRequest struct {
	Rate float64 `json:"rate" validate:"gte=0,lte=100"`
}

func (h *Handler) GetCommission(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	rate, err := h.service.CommissionRate(ctx)
	if err != nil {
		log.Error("settings get: database error", slog.String("error", err.Error()))
		transport.WriteAppError(w, err)
		return
	}

	transport.WriteSuccess(w, http.StatusOK, "", map[string]interface{}{"rate": rate})
}

func (h *Handler) UpdateCommission(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	var req CommissionUpdateRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("settings update: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		log.Warn("settings update: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	actor := ""
	if claims := middleware.ClaimsFromContext(r.Context()); claims != nil {
		actor = claims.Email
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	setting, err := h.service.SetCommissionRate(ctx, req.Rate, actor)
	if err != nil {
		if apperr.HTTPStatus(err) >= http.StatusInternalServerError {
			log.Error("settings update: database error", slog.String("error", err.Error()))
		} else {
			log.Warn("settings update: " + err.Error())
		}
		transport.WriteAppError(w, err)
		return
	}

	log.Info("settings update: ok", slog.Float64("rate", setting.Value), slog.String("actor", actor))
	transport.WriteSuccess(w, http.StatusOK, "commission updated", map[string]interface{}{"setting": setting})
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
