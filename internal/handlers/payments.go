package handlers

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"time"

	"fixify-backend/internal/models"
	"fixify-backend/internal/notifications"
	"fixify-backend/internal/transport"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type PaymentWebhookRequest struct {
	BookingID string `json:"bookingId" validate:"required"`
	PaymentID string `json:"paymentId"`
	Status    string `json:"status" validate:"required,oneof=paid failed pending"`
	Amount    int    `json:"amount" validate:"gte=0"`
	Gateway   string `json:"gateway"`
}

// PaymentWebhook is the only writer of paymentStatus=paid. The gateway
// retries deliveries, so repeated notifications for the same booking
// must converge on the same document state.
func (s *Server) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)

	if s.Cfg.WebhookSecret != "" {
		got := r.Header.Get("X-Webhook-Secret")
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.Cfg.WebhookSecret)) != 1 {
			log.Warn("payment webhook: bad secret")
			transport.WriteError(w, http.StatusUnauthorized, "unauthorized", nil)
			return
		}
	}

	var req PaymentWebhookRequest
	if err := decodeJSON(r, &req); err != nil {
		log.Warn("payment webhook: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := s.Val.Struct(req); err != nil {
		log.Warn("payment webhook: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", validationDetails(s.Val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	filter := bson.M{"$or": []bson.M{
		{"_id": req.BookingID},
		{"bookingId": req.BookingID},
	}}
	var booking models.Booking
	if err := s.Cols.Bookings.FindOne(ctx, filter).Decode(&booking); err != nil {
		if err == mongo.ErrNoDocuments {
			log.Warn("payment webhook: booking not found", slog.String("booking_id", req.BookingID))
			transport.WriteError(w, http.StatusNotFound, "booking not found", nil)
			return
		}
		log.Error("payment webhook: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	set := bson.M{
		"paymentStatus": req.Status,
		"updatedAt":     time.Now(),
	}
	if req.PaymentID != "" {
		set["paymentId"] = req.PaymentID
	}
	if _, err := s.Cols.Bookings.UpdateOne(ctx, bson.M{"_id": booking.ID}, bson.M{"$set": set}); err != nil {
		log.Error("payment webhook: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	amount := req.Amount
	if amount == 0 {
		amount = booking.Amount
	}
	payment := models.Payment{
		ID:        primitive.NewObjectID().Hex(),
		BookingID: booking.ID,
		Gateway:   req.Gateway,
		Status:    req.Status,
		Amount:    amount,
		CreatedAt: time.Now(),
	}
	if _, err := s.Cols.Payments.InsertOne(ctx, payment); err != nil {
		// The booking is already updated; a failed ledger insert is
		// logged and left for the next delivery attempt.
		log.Error("payment webhook: payment insert failed", slog.String("error", err.Error()))
	}

	if booking.UserID != "" && req.Status == models.PaymentStatusPaid && booking.PaymentStatus != models.PaymentStatusPaid {
		go func() {
			nctx, ncancel := context.WithTimeout(context.Background(), 8*time.Second)
			defer ncancel()
			if err := s.Notifications.Notify(nctx, notifications.Message{
				RecipientID:   booking.UserID,
				RecipientType: notifications.RecipientUser,
				Title:         "Payment received",
				Body:          "Payment for booking " + booking.BookingID + " was received.",
				Type:          "payment",
				ReferenceID:   booking.ID,
			}); err != nil {
				s.Log.Warn("payment webhook: notification failed", slog.String("error", err.Error()))
			}
		}()
	}

	log.Info("payment webhook: ok",
		slog.String("booking_id", booking.ID),
		slog.String("status", req.Status),
	)
	transport.WriteSuccess(w, http.StatusOK, "payment recorded", nil)
}
