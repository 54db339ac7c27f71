package joboffer

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"fixify-backend/internal/apperr"
	"fixify-backend/internal/models"
	"fixify-backend/internal/notifications"

	"go.mongodb.org/mongo-driver/mongo"
)

const (
	DecisionAccept = "accept"
	DecisionReject = "reject"

	DefaultTTLMinutes = 30
)

type Notifier interface {
	Notify(ctx context.Context, msg notifications.Message) error
}

// ActiveOffer is a pending offer joined with its booking for the
// technician's offer feed.
type ActiveOffer struct {
	Offer           models.JobOffer `json:"offer"`
	CustomerName    string          `json:"customerName"`
	Service         string          `json:"service"`
	Address         string          `json:"address,omitempty"`
	Urgency         string          `json:"urgency,omitempty"`
	Amount          int             `json:"amount"`
	TimeLeftSeconds int64           `json:"timeLeftSeconds"`
}

// Service dispatches time-boxed offers and reconciles technician
// decisions. Offer expiry is soft: expired rows are excluded from
// active queries rather than transitioned, so resolution writes a
// terminal status while expiry never does.
type Service struct {
	repo     Repository
	notifier Notifier
	log      *slog.Logger
	ttl      time.Duration
	now      func() time.Time
}

func NewService(repo Repository, notifier Notifier, log *slog.Logger, ttlMinutes int) *Service {
	if ttlMinutes <= 0 {
		ttlMinutes = DefaultTTLMinutes
	}
	return &Service{
		repo:     repo,
		notifier: notifier,
		log:      log,
		ttl:      time.Duration(ttlMinutes) * time.Minute,
		now:      time.Now,
	}
}

// CreateOffer proposes a booking to a technician. The booking is
// stamped as assigned so only this technician can respond; a pending
// offer for the same pair just gets its expiry refreshed.
func (s *Service) CreateOffer(ctx context.Context, bookingID, technicianID string, ttlMinutes int, distance float64) (models.JobOffer, error) {
	bookingID = strings.TrimSpace(bookingID)
	technicianID = strings.TrimSpace(technicianID)
	if bookingID == "" || technicianID == "" {
		return models.JobOffer{}, apperr.Validation("bookingId and technicianId are required")
	}

	b, err := s.repo.Booking(ctx, bookingID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.JobOffer{}, apperr.NotFound("booking not found")
		}
		return models.JobOffer{}, apperr.Internal(err)
	}
	if models.IsTerminalBookingStatus(b.Status) {
		return models.JobOffer{}, apperr.Validation("booking is no longer open")
	}

	tech, err := s.repo.Technician(ctx, technicianID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.JobOffer{}, apperr.NotFound("technician not found")
		}
		return models.JobOffer{}, apperr.Internal(err)
	}

	ttl := s.ttl
	if ttlMinutes > 0 {
		ttl = time.Duration(ttlMinutes) * time.Minute
	}

	now := s.now()
	offer := models.JobOffer{
		BookingID:    b.ID,
		TechnicianID: tech.ID,
		Status:       models.OfferStatusPending,
		Amount:       b.Amount,
		Distance:     distance,
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
	}

	created, err := s.repo.Upsert(ctx, offer)
	if err != nil {
		return models.JobOffer{}, apperr.Internal(err)
	}

	if _, err := s.repo.AssignBooking(ctx, b.ID, tech.ID, now); err != nil {
		s.log.Warn("offer create: booking assignment failed",
			slog.String("booking_id", b.ID),
			slog.String("technician_id", tech.ID),
			slog.String("error", err.Error()),
		)
	}

	go s.notifyOffer(created, tech)
	return created, nil
}

// ListActive returns unexpired pending offers for a technician, each
// joined with its booking. Offers whose booking has vanished are
// dropped, not reported.
func (s *Service) ListActive(ctx context.Context, technicianID string) ([]ActiveOffer, error) {
	now := s.now()
	offers, err := s.repo.ListPending(ctx, technicianID, now)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	active := make([]ActiveOffer, 0, len(offers))
	for _, offer := range offers {
		b, err := s.repo.Booking(ctx, offer.BookingID)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				continue
			}
			return nil, apperr.Internal(err)
		}

		timeLeft := offer.ExpiresAt.Sub(now) / time.Second
		if timeLeft < 0 {
			timeLeft = 0
		}
		active = append(active, ActiveOffer{
			Offer:           offer,
			CustomerName:    b.CustomerName,
			Service:         b.Service,
			Address:         b.Address,
			Urgency:         b.Urgency,
			Amount:          b.Amount,
			TimeLeftSeconds: int64(timeLeft),
		})
	}
	return active, nil
}

// Respond reconciles a technician's decision. Accept confirms the
// booking and marks the technician busy; reject returns the booking
// to the unassigned pool and tells the admins. Either way the offer
// row is written with a terminal status so resolved offers stop
// masquerading as pending.
func (s *Service) Respond(ctx context.Context, bookingID, technicianID, decision, reason string) (models.Booking, error) {
	decision = strings.ToLower(strings.TrimSpace(decision))
	if decision != DecisionAccept && decision != DecisionReject {
		return models.Booking{}, apperr.Validation("response must be accept or reject")
	}

	b, err := s.repo.AssignedBooking(ctx, bookingID, technicianID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Booking{}, apperr.NotFound("no assigned booking for this technician")
		}
		return models.Booking{}, apperr.Internal(err)
	}

	now := s.now()

	if decision == DecisionAccept {
		updated, err := s.repo.AcceptBooking(ctx, b.ID, now)
		if err != nil {
			return models.Booking{}, apperr.Internal(err)
		}
		if err := s.repo.SetTechnicianStatus(ctx, technicianID, models.TechnicianStatusBusy, now); err != nil {
			s.log.Warn("offer respond: technician busy flag failed",
				slog.String("technician_id", technicianID),
				slog.String("error", err.Error()),
			)
		}
		s.resolveOffer(ctx, b.ID, technicianID, models.OfferStatusAccepted, now)
		go s.notifyAccepted(updated)
		return updated, nil
	}

	updated, err := s.repo.ReleaseBooking(ctx, b.ID, reason, now)
	if err != nil {
		return models.Booking{}, apperr.Internal(err)
	}
	s.resolveOffer(ctx, b.ID, technicianID, models.OfferStatusRejected, now)
	go s.notifyRejected(updated, technicianID, reason)
	return updated, nil
}

func (s *Service) resolveOffer(ctx context.Context, bookingID, technicianID, status string, now time.Time) {
	if err := s.repo.ResolveOffer(ctx, bookingID, technicianID, status, now); err != nil {
		s.log.Warn("offer respond: offer resolution failed",
			slog.String("booking_id", bookingID),
			slog.String("technician_id", technicianID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Service) notifyOffer(offer models.JobOffer, tech models.Technician) {
	if s.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer cancel()

	err := s.notifier.Notify(ctx, notifications.Message{
		RecipientID:   tech.ID,
		RecipientType: notifications.RecipientTechnician,
		Title:         "New job offer",
		Body:          "You have a new job offer. Respond before it expires.",
		Type:          "job_offer",
		ReferenceID:   offer.BookingID,
	})
	if err != nil {
		s.log.Warn("offer create: technician notification failed",
			slog.String("technician_id", tech.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Service) notifyAccepted(b models.Booking) {
	if s.notifier == nil || b.UserID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer cancel()

	err := s.notifier.Notify(ctx, notifications.Message{
		RecipientID:   b.UserID,
		RecipientType: notifications.RecipientUser,
		Title:         "Technician confirmed",
		Body:          "A technician has accepted your booking " + b.BookingID + ".",
		Type:          "booking_status",
		ReferenceID:   b.ID,
	})
	if err != nil {
		s.log.Warn("offer respond: customer notification failed",
			slog.String("booking_id", b.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Service) notifyRejected(b models.Booking, technicianID, reason string) {
	if s.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer cancel()

	body := "Technician " + technicianID + " rejected booking " + b.BookingID + "."
	if reason != "" {
		body += " Reason: " + reason
	}
	err := s.notifier.Notify(ctx, notifications.Message{
		RecipientType: notifications.RecipientAdmin,
		Title:         "Job offer rejected",
		Body:          body,
		Type:          "job_offer",
		ReferenceID:   b.ID,
	})
	if err != nil {
		s.log.Warn("offer respond: admin notification failed",
			slog.String("booking_id", b.ID),
			slog.String("error", err.Error()),
		)
	}
}
