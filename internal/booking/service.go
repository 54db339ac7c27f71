package booking

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"time"

	"fixify-backend/internal/apperr"
	"fixify-backend/internal/models"
	"fixify-backend/internal/notifications"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Actor is the authenticated identity attempting an operation.
type Actor struct {
	UserID string
	Email  string
	Role   string
}

func (a Actor) isAdmin() bool { return a.Role == models.RoleAdmin }

// owns reports whether the actor is the booking's customer. Legacy
// bookings created before accounts existed carry no userId; for those
// the customer email is the fallback identity.
func (a Actor) owns(b models.Booking) bool {
	if b.UserID != "" {
		return b.UserID == a.UserID
	}
	return b.CustomerEmail != "" && strings.EqualFold(b.CustomerEmail, a.Email)
}

type Notifier interface {
	Notify(ctx context.Context, msg notifications.Message) error
}

type Mailer interface {
	SendBookingUpdate(ctx context.Context, booking models.Booking) (string, error)
	SendBookingCancellation(ctx context.Context, booking models.Booking) (string, error)
	SendBookingReschedule(ctx context.Context, booking models.Booking) (string, error)
}

// Service owns booking state transitions. Every mutation is a guarded
// single-document update; notifications and emails are fire-and-forget
// and never roll back the primary write.
type Service struct {
	repo     Repository
	notifier Notifier
	mailer   Mailer
	log      *slog.Logger
}

func NewService(repo Repository, notifier Notifier, mailer Mailer, log *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		notifier: notifier,
		mailer:   mailer,
		log:      log,
	}
}

// UpdateStatus moves a booking to newStatus. Repeating a terminal
// status is a no-op success: the $set semantics of the store make the
// second write indistinguishable from the first, and callers (webhook
// retries, double-submitted admin clicks) depend on that.
func (s *Service) UpdateStatus(ctx context.Context, id, newStatus string, actor Actor) (models.Booking, error) {
	newStatus = strings.ToLower(strings.TrimSpace(newStatus))
	if !models.IsValidBookingStatus(newStatus) {
		return models.Booking{}, apperr.Validation("invalid status")
	}

	b, err := s.repo.Resolve(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Booking{}, apperr.NotFound("booking not found")
		}
		return models.Booking{}, apperr.Internal(err)
	}

	if !actor.isAdmin() && !actor.owns(b) {
		return models.Booking{}, apperr.Forbidden("not your booking")
	}

	now := time.Now()
	updated, err := s.repo.SetStatus(ctx, b.ID, newStatus, now)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Booking{}, apperr.NotFound("booking not found")
		}
		return models.Booking{}, apperr.Internal(err)
	}

	if models.IsTerminalBookingStatus(newStatus) && updated.TechnicianID != "" {
		s.reconcileTechnician(ctx, updated.TechnicianID, newStatus, now)
	}

	go s.notifyStatusChange(updated)
	return updated, nil
}

// Cancel terminates a booking and its linked order. Both identifiers
// are required; lookups accept bookingId, paymentId or orderId.
func (s *Service) Cancel(ctx context.Context, bookingID, orderID, reason string, actor Actor) (models.Booking, error) {
	bookingID = strings.TrimSpace(bookingID)
	orderID = strings.TrimSpace(orderID)
	if bookingID == "" || orderID == "" {
		return models.Booking{}, apperr.Validation("bookingId and orderId are required")
	}

	b, err := s.repo.Resolve(ctx, bookingID, orderID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Booking{}, apperr.NotFound("booking not found")
		}
		return models.Booking{}, apperr.Internal(err)
	}

	if !actor.isAdmin() && !actor.owns(b) {
		return models.Booking{}, apperr.Forbidden("not your booking")
	}
	if b.Status == models.BookingStatusCancelled {
		return models.Booking{}, apperr.Validation("booking is already cancelled")
	}
	if b.Status == models.BookingStatusCompleted {
		return models.Booking{}, apperr.Validation("completed booking cannot be cancelled")
	}

	now := time.Now()
	updated, err := s.repo.MarkCancelled(ctx, b.ID, reason, now)
	if err != nil {
		return models.Booking{}, apperr.Internal(err)
	}

	if updated.OrderID != "" {
		if err := s.repo.CancelOrder(ctx, updated.OrderID, reason, now); err != nil {
			s.log.Warn("booking cancel: order update failed",
				slog.String("booking_id", updated.ID),
				slog.String("order_id", updated.OrderID),
				slog.String("error", err.Error()),
			)
		}
	}

	if updated.TechnicianID != "" {
		s.reconcileTechnician(ctx, updated.TechnicianID, models.BookingStatusCancelled, now)
	}

	go s.notifyCancellation(updated)
	return updated, nil
}

// Reschedule moves the visit to a new date/time without losing the
// booking. Terminal bookings cannot be rescheduled.
func (s *Service) Reschedule(ctx context.Context, bookingID, orderID, newDate, newTime string, actor Actor) (models.Booking, error) {
	bookingID = strings.TrimSpace(bookingID)
	orderID = strings.TrimSpace(orderID)
	if bookingID == "" || orderID == "" || newDate == "" || newTime == "" {
		return models.Booking{}, apperr.Validation("bookingId, orderId, newDate and newTime are required")
	}
	if _, err := time.Parse("2006-01-02", newDate); err != nil {
		return models.Booking{}, apperr.Validation("invalid date")
	}
	if _, err := time.Parse("15:04", newTime); err != nil {
		return models.Booking{}, apperr.Validation("invalid time")
	}

	b, err := s.repo.Resolve(ctx, bookingID, orderID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Booking{}, apperr.NotFound("booking not found")
		}
		return models.Booking{}, apperr.Internal(err)
	}

	if !actor.isAdmin() && !actor.owns(b) {
		return models.Booking{}, apperr.Forbidden("not your booking")
	}
	if models.IsTerminalBookingStatus(b.Status) {
		return models.Booking{}, apperr.Validation("booking can no longer be rescheduled")
	}

	now := time.Now()
	updated, err := s.repo.MarkRescheduled(ctx, b.ID, newDate, newTime, now)
	if err != nil {
		return models.Booking{}, apperr.Internal(err)
	}

	if updated.OrderID != "" {
		if err := s.repo.UpdateOrderSchedule(ctx, updated.OrderID, newDate, newTime, now); err != nil {
			s.log.Warn("booking reschedule: order update failed",
				slog.String("booking_id", updated.ID),
				slog.String("order_id", updated.OrderID),
				slog.String("error", err.Error()),
			)
		}
	}

	go s.notifyReschedule(updated)
	return updated, nil
}

// Rate attaches a one-time rating to a completed booking and folds it
// into the technician's rolling average.
func (s *Service) Rate(ctx context.Context, bookingID string, rating int, feedback string, actor Actor) (models.Booking, error) {
	if rating < 1 || rating > 5 {
		return models.Booking{}, apperr.Validation("rating must be between 1 and 5")
	}

	b, err := s.repo.Resolve(ctx, bookingID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Booking{}, apperr.NotFound("booking not found")
		}
		return models.Booking{}, apperr.Internal(err)
	}

	if !actor.owns(b) && !actor.isAdmin() {
		return models.Booking{}, apperr.Forbidden("not your booking")
	}
	if b.Status != models.BookingStatusCompleted {
		return models.Booking{}, apperr.Validation("only completed bookings can be rated")
	}
	if b.Rating != 0 {
		return models.Booking{}, apperr.Validation("booking already rated")
	}

	now := time.Now()
	updated, err := s.repo.AttachRating(ctx, b.ID, rating, feedback, now)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// Guard matched nothing: a concurrent rating won the race.
			return models.Booking{}, apperr.Validation("booking already rated")
		}
		return models.Booking{}, apperr.Internal(err)
	}

	if updated.TechnicianID != "" {
		tech, err := s.repo.Technician(ctx, updated.TechnicianID)
		if err != nil {
			s.log.Warn("booking rate: technician lookup failed",
				slog.String("booking_id", updated.ID),
				slog.String("technician_id", updated.TechnicianID),
				slog.String("error", err.Error()),
			)
			return updated, nil
		}

		newAvg := RollingAverage(tech.Rating, tech.TotalRatings, rating)
		if err := s.repo.UpdateTechnicianRating(ctx, tech.ID, newAvg, tech.TotalRatings+1, now); err != nil {
			s.log.Warn("booking rate: technician rating update failed",
				slog.String("technician_id", tech.ID),
				slog.String("error", err.Error()),
			)
		}

		review := models.Review{
			ID:           primitive.NewObjectID().Hex(),
			BookingID:    updated.ID,
			TechnicianID: tech.ID,
			UserID:       actor.UserID,
			Rating:       rating,
			Feedback:     feedback,
			CreatedAt:    now,
		}
		if err := s.repo.AppendReview(ctx, review); err != nil {
			s.log.Warn("booking rate: review insert failed",
				slog.String("booking_id", updated.ID),
				slog.String("error", err.Error()),
			)
		}

		go s.notifyTechnicianRated(updated, tech, rating)
	}

	return updated, nil
}

func (s *Service) ListOwn(ctx context.Context, actor Actor, limit, offset int64) ([]models.Booking, int64, error) {
	items, total, err := s.repo.ListByUser(ctx, actor.UserID, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	return items, total, nil
}

func (s *Service) Get(ctx context.Context, id string, actor Actor) (models.Booking, error) {
	b, err := s.repo.Resolve(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Booking{}, apperr.NotFound("booking not found")
		}
		return models.Booking{}, apperr.Internal(err)
	}
	if !actor.isAdmin() && !actor.owns(b) {
		return models.Booking{}, apperr.Forbidden("not your booking")
	}
	return b, nil
}

// RollingAverage folds one new rating into an existing average,
// rounded to one decimal.
func RollingAverage(oldAvg float64, oldCount, newRating int) float64 {
	total := oldAvg*float64(oldCount) + float64(newRating)
	avg := total / float64(oldCount+1)
	return math.Round(avg*10) / 10
}

// reconcileTechnician frees a technician when their booking reaches a
// terminal state.
func (s *Service) reconcileTechnician(ctx context.Context, technicianID, newStatus string, now time.Time) {
	if err := s.repo.SetTechnicianStatus(ctx, technicianID, models.TechnicianStatusActive, now); err != nil {
		s.log.Warn("booking status: technician release failed",
			slog.String("technician_id", technicianID),
			slog.String("error", err.Error()),
		)
	}
	if newStatus == models.BookingStatusCompleted {
		if err := s.repo.IncrementTechnicianCompleted(ctx, technicianID, now); err != nil {
			s.log.Warn("booking status: technician counter failed",
				slog.String("technician_id", technicianID),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (s *Service) sideEffectContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 8*time.Second)
}

func (s *Service) notifyStatusChange(b models.Booking) {
	ctx, cancel := s.sideEffectContext()
	defer cancel()

	if s.notifier != nil && b.UserID != "" {
		err := s.notifier.Notify(ctx, notifications.Message{
			RecipientID:   b.UserID,
			RecipientType: notifications.RecipientUser,
			Title:         "Booking update",
			Body:          "Your booking " + b.BookingID + " is now " + b.Status + ".",
			Type:          "booking_status",
			ReferenceID:   b.ID,
		})
		if err != nil {
			s.log.Warn("booking notify: status notification failed",
				slog.String("booking_id", b.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	if s.mailer != nil {
		if _, err := s.mailer.SendBookingUpdate(ctx, b); err != nil {
			s.log.Warn("booking email: status email failed",
				slog.String("booking_id", b.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (s *Service) notifyCancellation(b models.Booking) {
	ctx, cancel := s.sideEffectContext()
	defer cancel()

	if s.mailer != nil {
		if _, err := s.mailer.SendBookingCancellation(ctx, b); err != nil {
			s.log.Warn("booking email: cancellation email failed",
				slog.String("booking_id", b.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	if s.notifier != nil {
		err := s.notifier.Notify(ctx, notifications.Message{
			RecipientType: notifications.RecipientAdmin,
			Title:         "Booking cancelled",
			Body:          "Booking " + b.BookingID + " was cancelled. Reason: " + b.CancellationReason,
			Type:          "booking_cancelled",
			ReferenceID:   b.ID,
			IsImportant:   true,
		})
		if err != nil {
			s.log.Warn("booking notify: admin cancellation notification failed",
				slog.String("booking_id", b.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (s *Service) notifyReschedule(b models.Booking) {
	ctx, cancel := s.sideEffectContext()
	defer cancel()

	if s.mailer == nil {
		return
	}
	if _, err := s.mailer.SendBookingReschedule(ctx, b); err != nil {
		s.log.Warn("booking email: reschedule email failed",
			slog.String("booking_id", b.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Service) notifyTechnicianRated(b models.Booking, tech models.Technician, rating int) {
	ctx, cancel := s.sideEffectContext()
	defer cancel()

	if s.notifier == nil {
		return
	}
	err := s.notifier.Notify(ctx, notifications.Message{
		RecipientID:   tech.ID,
		RecipientType: notifications.RecipientTechnician,
		Title:         "New rating received",
		Body:          "You received a " + ratingStars(rating) + " rating for booking " + b.BookingID + ".",
		Type:          "rating",
		ReferenceID:   b.ID,
	})
	if err != nil {
		s.log.Warn("booking notify: technician rating notification failed",
			slog.String("booking_id", b.ID),
			slog.String("technician_id", tech.ID),
			slog.String("error", err.Error()),
		)
	}
}

func ratingStars(rating int) string {
	switch rating {
	case 1:
		return "1-star"
	case 2:
		return "2-star"
	case 3:
		return "3-star"
	case 4:
		return "4-star"
	default:
		return "5-star"
	}
}
