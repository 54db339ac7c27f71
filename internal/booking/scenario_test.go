package booking

import (
	"context"
	"log/slog"
	"strconv"
	"testing"
	"time"

	"fixify-backend/internal/apperr"
	"fixify-backend/internal/joboffer"
	"fixify-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
)

// platformFake backs the booking and offer services with one shared
// state so cross-service effects (busy on accept, release on
// completion) are observable end to end.
type platformFake struct {
	*fakeRepo
	offers      []models.JobOffer
	nextOfferID int
}

func (f *platformFake) Upsert(ctx context.Context, offer models.JobOffer) (models.JobOffer, error) {
	for i, existing := range f.offers {
		if existing.BookingID == offer.BookingID &&
			existing.TechnicianID == offer.TechnicianID &&
			existing.Status == models.OfferStatusPending {
			f.offers[i].ExpiresAt = offer.ExpiresAt
			return f.offers[i], nil
		}
	}
	f.nextOfferID++
	offer.ID = "offer-" + strconv.Itoa(f.nextOfferID)
	f.offers = append(f.offers, offer)
	return offer, nil
}

func (f *platformFake) ListPending(ctx context.Context, technicianID string, now time.Time) ([]models.JobOffer, error) {
	items := []models.JobOffer{}
	for _, o := range f.offers {
		if o.TechnicianID == technicianID && o.Status == models.OfferStatusPending && o.ExpiresAt.After(now) {
			items = append(items, o)
		}
	}
	return items, nil
}

func (f *platformFake) ResolveOffer(ctx context.Context, bookingID, technicianID, status string, now time.Time) error {
	for i, o := range f.offers {
		if o.BookingID == bookingID && o.TechnicianID == technicianID && o.Status == models.OfferStatusPending {
			f.offers[i].Status = status
		}
	}
	return nil
}

func (f *platformFake) Booking(ctx context.Context, id string) (models.Booking, error) {
	b, ok := f.bookings[id]
	if !ok {
		return models.Booking{}, mongo.ErrNoDocuments
	}
	return b, nil
}

func (f *platformFake) AssignedBooking(ctx context.Context, bookingID, technicianID string) (models.Booking, error) {
	b, ok := f.bookings[bookingID]
	if !ok || b.TechnicianID != technicianID {
		return models.Booking{}, mongo.ErrNoDocuments
	}
	return b, nil
}

func (f *platformFake) AcceptBooking(ctx context.Context, bookingID string, now time.Time) (models.Booking, error) {
	b, ok := f.bookings[bookingID]
	if !ok {
		return models.Booking{}, mongo.ErrNoDocuments
	}
	b.Status = models.BookingStatusConfirmed
	b.AcceptedAt = &now
	f.bookings[bookingID] = b
	return b, nil
}

func (f *platformFake) ReleaseBooking(ctx context.Context, bookingID, reason string, now time.Time) (models.Booking, error) {
	b, ok := f.bookings[bookingID]
	if !ok {
		return models.Booking{}, mongo.ErrNoDocuments
	}
	b.Status = models.BookingStatusPending
	b.TechnicianID = ""
	b.RejectedAt = &now
	b.RejectionReason = reason
	f.bookings[bookingID] = b
	return b, nil
}

func (f *platformFake) AssignBooking(ctx context.Context, bookingID, technicianID string, now time.Time) (models.Booking, error) {
	b, ok := f.bookings[bookingID]
	if !ok {
		return models.Booking{}, mongo.ErrNoDocuments
	}
	b.TechnicianID = technicianID
	b.Status = models.BookingStatusAssigned
	f.bookings[bookingID] = b
	return b, nil
}

func TestBookingOfferLifecycleEndToEnd(t *testing.T) {
	ctx := context.Background()
	state := &platformFake{fakeRepo: newFakeRepo()}
	seedBooking(state.fakeRepo, models.BookingStatusPending)
	state.technicians["t1"] = models.Technician{
		ID:          "t1",
		Name:        "Ravi",
		Status:      models.TechnicianStatusActive,
		IsAvailable: true,
	}

	bookings := NewService(state, nil, nil, slog.Default())
	offers := joboffer.NewService(state, nil, slog.Default(), 0)

	// Dispatch: the booking is stamped assigned to the technician.
	offer, err := offers.CreateOffer(ctx, "b1", "t1", 0, 2.5)
	require.NoError(t, err)
	assert.Equal(t, models.OfferStatusPending, offer.Status)
	assert.Equal(t, models.BookingStatusAssigned, state.bookings["b1"].Status)
	assert.Equal(t, "t1", state.bookings["b1"].TechnicianID)

	// Accept: booking confirmed, technician busy, offer terminal.
	confirmed, err := offers.Respond(ctx, "b1", "t1", "accept", "")
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusConfirmed, confirmed.Status)
	assert.Equal(t, models.TechnicianStatusBusy, state.technicians["t1"].Status)
	assert.Equal(t, models.OfferStatusAccepted, state.offers[0].Status)

	active, err := offers.ListActive(ctx, "t1")
	require.NoError(t, err)
	assert.Empty(t, active)

	// Complete: technician released and credited.
	admin := Actor{UserID: "admin-1", Role: models.RoleAdmin}
	done, err := bookings.UpdateStatus(ctx, "b1", models.BookingStatusCompleted, admin)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCompleted, done.Status)
	assert.Equal(t, models.TechnicianStatusActive, state.technicians["t1"].Status)
	assert.Equal(t, 1, state.technicians["t1"].CompletedJobs)

	// Rate once, then never again.
	rated, err := bookings.Rate(ctx, "b1", 5, "fixed fast", ownerActor())
	require.NoError(t, err)
	assert.Equal(t, 5, rated.Rating)
	assert.Equal(t, 5.0, state.technicians["t1"].Rating)
	assert.Equal(t, 1, state.technicians["t1"].TotalRatings)

	_, err = bookings.Rate(ctx, "b1", 4, "second thoughts", ownerActor())
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}
