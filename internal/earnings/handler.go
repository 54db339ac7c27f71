package earnings

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"fixify-backend/internal/apperr"
	"fixify-backend/internal/httpx"
	"fixify-backend/internal/middleware"
	"fixify-backend/internal/models"
	"fixify-backend/internal/transport"
)

type TechnicianResolver interface {
	Resolve(ctx context.Context, userID, email string) (models.Technician, error)
}

type Handler struct {
	service     *Service
	technicians TechnicianResolver
	log         *slog.Logger
}

func NewHandler(service *Service, technicians TechnicianResolver, log *slog.Logger) *Handler {
	return &Handler{
		service:     service,
		technicians: technicians,
		log:         log,
	}
}

// Earnings summarizes the authenticated technician's completed jobs.
func (h *Handler) Earnings(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	tech, ok := h.resolveTechnician(log, w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	sum, err := h.service.Summary(ctx, tech.ID)
	if err != nil {
		h.writeServiceError(log, w, "earnings", err)
		return
	}

	log.Info("earnings: ok", slog.String("technician_id", tech.ID), slog.Int("jobs", sum.CompletedJobs))
	transport.WriteSuccess(w, http.StatusOK, "", map[string]interface{}{
		"commissionRate":  sum.CommissionRate,
		"totalEarnings":   sum.TotalEarnings,
		"paidEarnings":    sum.PaidEarnings,
		"pendingEarnings": sum.PendingEarnings,
		"completedJobs":   sum.CompletedJobs,
	})
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	tech, ok := h.resolveTechnician(log, w, r)
	if !ok {
		return
	}

	limit, offset, err := httpx.ParseLimitOffset(r.URL.Query(), 20, 100)
	if err != nil {
		log.Warn("job history: invalid query", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	status := strings.TrimSpace(r.URL.Query().Get("status"))

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	page, err := h.service.JobHistory(ctx, tech.ID, status, limit, offset)
	if err != nil {
		h.writeServiceError(log, w, "job history", err)
		return
	}

	log.Info("job history: ok", slog.String("technician_id", tech.ID), slog.Int("count", len(page.Jobs)))
	transport.WriteSuccess(w, http.StatusOK, "", map[string]interface{}{
		"jobs":   page.Jobs,
		"total":  page.Total,
		"limit":  limit,
		"offset": offset,
	})
}

func (h *Handler) AdminReport(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	from, to, err := parseDateRange(r.URL.Query().Get("startDate"), r.URL.Query().Get("endDate"))
	if err != nil {
		log.Warn("admin report: invalid range", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	report, err := h.service.AdminReport(ctx, from, to)
	if err != nil {
		h.writeServiceError(log, w, "admin report", err)
		return
	}

	log.Info("admin report: ok", slog.Int("bookings", report.TotalBookings))
	transport.WriteSuccess(w, http.StatusOK, "", map[string]interface{}{"report": report})
}

// parseDateRange defaults to the trailing 30 days when the range is
// absent. The end date is inclusive through end of day.
func parseDateRange(start, end string) (time.Time, time.Time, error) {
	now := time.Now()
	from := now.AddDate(0, 0, -30)
	to := now

	if start != "" {
		parsed, err := time.Parse("2006-01-02", start)
		if err != nil {
			return time.Time{}, time.Time{}, apperr.Validation("invalid startDate")
		}
		from = parsed
	}
	if end != "" {
		parsed, err := time.Parse("2006-01-02", end)
		if err != nil {
			return time.Time{}, time.Time{}, apperr.Validation("invalid endDate")
		}
		to = parsed.Add(24*time.Hour - time.Second)
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, apperr.Validation("endDate before startDate")
	}
	return from, to, nil
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
