package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"fixify-backend/internal/auth"
	"fixify-backend/internal/httpx"
	"fixify-backend/internal/models"
	"fixify-backend/internal/transport"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type CreateBookingRequest struct {
	Service       string `json:"service" validate:"required"`
	CustomerName  string `json:"customerName" validate:"required"`
	CustomerEmail string `json:"customerEmail" validate:"required,email"`
	CustomerPhone string `json:"customerPhone" validate:"omitempty,phone"`
	Address       string `json:"address" validate:"required"`
	Amount        int    `json:"amount" validate:"gte=0"`
	Urgency       string `json:"urgency" validate:"omitempty,oneof=normal high emergency"`
	Notes         string `json:"notes"`
	ScheduledDate string `json:"scheduledDate" validate:"omitempty,date"`
	BookingTime   string `json:"bookingTime" validate:"omitempty,clock"`
}

// newBookingID builds the human-readable reference customers see in
// emails and support tickets.
func newBookingID() string {
	return "BK-" + strings.ToUpper(uuid.NewString()[:8])
}

// CreateBooking is the contact/checkout intake. Anonymous submissions
// are allowed; an authenticated session attaches the userId.
func (s *Server) CreateBooking(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	var req CreateBookingRequest
	if err := decodeJSON(r, &req); err != nil {
		log.Warn("bookings create: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := s.Val.Struct(req); err != nil {
		log.Warn("bookings create: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", validationDetails(s.Val.ValidationErrors(err)))
		return
	}

	urgency := req.Urgency
	if urgency == "" {
		urgency = models.UrgencyNormal
	}

	// Intake is public, but a logged-in caller still gets the booking
	// attached to their account.
	userID := ""
	if token, err := auth.TokenFromRequest(r); err == nil && s.JWT != nil {
		if claims, err := s.JWT.Parse(token); err == nil {
			userID = claims.UserID
		}
	}

	now := time.Now()
	booking := models.Booking{
		ID:            primitive.NewObjectID().Hex(),
		BookingID:     newBookingID(),
		UserID:        userID,
		Service:       strings.TrimSpace(req.Service),
		Status:        models.BookingStatusPending,
		PaymentStatus: models.PaymentStatusPending,
		Amount:        req.Amount,
		CustomerName:  strings.TrimSpace(req.CustomerName),
		CustomerEmail: strings.ToLower(strings.TrimSpace(req.CustomerEmail)),
		CustomerPhone: strings.TrimSpace(req.CustomerPhone),
		Address:       strings.TrimSpace(req.Address),
		Urgency:       urgency,
		Notes:         strings.TrimSpace(req.Notes),
		ScheduledDate: req.ScheduledDate,
		BookingTime:   req.BookingTime,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	if _, err := s.Cols.Bookings.InsertOne(ctx, booking); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// bookingId collision, vanishingly rare; client can retry.
			log.Warn("bookings create: duplicate bookingId", slog.String("booking_id", booking.BookingID))
			transport.WriteError(w, http.StatusConflict, "please retry", nil)
			return
		}
		log.Error("bookings create: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("bookings create: ok",
		slog.String("booking_id", booking.ID),
		slog.String("reference", booking.BookingID),
		slog.String("service", booking.Service),
	)
	transport.WriteSuccess(w, http.StatusCreated, "booking received", map[string]interface{}{"booking": booking})
}

// AdminListBookings lists all bookings, optionally filtered by status,
// newest first.
func (s *Server) AdminListBookings(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	limit, offset, err := httpx.ParseLimitOffset(r.URL.Query(), 20, 100)
	if err != nil {
		transport.WriteError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	filter := bson.M{}
	if status := strings.TrimSpace(r.URL.Query().Get("status")); status != "" {
		if !models.IsKnownBookingStatus(status) {
			transport.WriteError(w, http.StatusBadRequest, "invalid status", nil)
			return
		}
		filter["status"] = status
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(limit).
		SetSkip(offset)
	cursor, err := s.Cols.Bookings.Find(ctx, filter, opts)
	if err != nil {
		log.Error("admin bookings list: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	defer cursor.Close(ctx)

	items := []models.Booking{}
	for cursor.Next(ctx) {
		var b models.Booking
		if err := cursor.Decode(&b); err != nil {
			continue
		}
		items = append(items, b)
	}
	if err := cursor.Err(); err != nil {
		log.Error("admin bookings list: cursor error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "cursor error", nil)
		return
	}

	total, err := s.Cols.Bookings.CountDocuments(ctx, filter)
	if err != nil {
		log.Error("admin bookings list: count error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	transport.WriteSuccess(w, http.StatusOK, "", map[string]interface{}{
		"bookings": items,
		"limit":    limit,
		"offset":   offset,
		"total":    total,
	})
}
