package joboffer

import (
	"context"
	"log/slog"
	"strconv"
	"testing"
	"time"

	"fixify-backend/internal/apperr"
	"fixify-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
)

type fakeRepo struct {
	offers      []models.JobOffer
	bookings    map[string]models.Booking
	technicians map[string]models.Technician
	nextID      int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		bookings:    map[string]models.Booking{},
		technicians: map[string]models.Technician{},
	}
}

func (f *fakeRepo) Upsert(ctx context.Context, offer models.JobOffer) (models.JobOffer, error) {
	for i, existing := range f.offers {
		if existing.BookingID == offer.BookingID &&
			existing.TechnicianID == offer.TechnicianID &&
			existing.Status == models.OfferStatusPending {
			f.offers[i].ExpiresAt = offer.ExpiresAt
			return f.offers[i], nil
		}
	}
	f.nextID++
	offer.ID = "offer-" + strconv.Itoa(f.nextID)
	f.offers = append(f.offers, offer)
	return offer, nil
}

func (f *fakeRepo) ListPending(ctx context.Context, technicianID string, now time.Time) ([]models.JobOffer, error) {
	items := []models.JobOffer{}
	for _, o := range f.offers {
		if o.TechnicianID == technicianID && o.Status == models.OfferStatusPending && o.ExpiresAt.After(now) {
			items = append(items, o)
		}
	}
	return items, nil
}

func (f *fakeRepo) ResolveOffer(ctx context.Context, bookingID, technicianID, status string, now time.Time) error {
	for i, o := range f.offers {
		if o.BookingID == bookingID && o.TechnicianID == technicianID && o.Status == models.OfferStatusPending {
			f.offers[i].Status = status
		}
	}
	return nil
}

func (f *fakeRepo) Booking(ctx context.Context, id string) (models.Booking, error) {
	b, ok := f.bookings[id]
	if !ok {
		return models.Booking{}, mongo.ErrNoDocuments
	}
	return b, nil
}

func (f *fakeRepo) AssignedBooking(ctx context.Context, bookingID, technicianID string) (models.Booking, error) {
	b, ok := f.bookings[bookingID]
	if !ok || b.TechnicianID != technicianID {
		return models.Booking{}, mongo.ErrNoDocuments
	}
	return b, nil
}

func (f *fakeRepo) AcceptBooking(ctx context.Context, bookingID string, now time.Time) (models.Booking, error) {
	b, ok := f.bookings[bookingID]
	if !ok {
		return models.Booking{}, mongo.ErrNoDocuments
	}
	b.Status = models.BookingStatusConfirmed
	b.AcceptedAt = &now
	f.bookings[bookingID] = b
	return b, nil
}

func (f *fakeRepo) ReleaseBooking(ctx context.Context, bookingID, reason string, now time.Time) (models.Booking, error) {
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

func (f *fakeRepo) AssignBooking(ctx context.Context, bookingID, technicianID string, now time.Time) (models.Booking, error) {
	b, ok := f.bookings[bookingID]
	if !ok {
		return models.Booking{}, mongo.ErrNoDocuments
	}
	b.TechnicianID = technicianID
	b.Status = models.BookingStatusAssigned
	f.bookings[bookingID] = b
	return b, nil
}

func (f *fakeRepo) Technician(ctx context.Context, id string) (models.Technician, error) {
	t, ok := f.technicians[id]
	if !ok {
		return models.Technician{}, mongo.ErrNoDocuments
	}
	return t, nil
}

func (f *fakeRepo) SetTechnicianStatus(ctx context.Context, id, status string, now time.Time) error {
	t := f.technicians[id]
	t.Status = status
	f.technicians[id] = t
	return nil
}

func newTestService(repo Repository, now time.Time) *Service {
	svc := NewService(repo, nil, slog.Default(), 0)
	svc.now = func() time.Time { return now }
	return svc
}

func seedFixtures(repo *fakeRepo) {
	repo.bookings["b1"] = models.Booking{
		ID:           "b1",
		BookingID:    "BK-OFFER001",
		UserID:       "user-1",
		Service:      "Refrigerator Repair",
		Status:       models.BookingStatusPending,
		Amount:       1200,
		CustomerName: "Meera",
		Address:      "12 MG Road",
		Urgency:      models.UrgencyHigh,
	}
	repo.technicians["t1"] = models.Technician{ID: "t1", Name: "Ravi", Status: models.TechnicianStatusActive}
}

func TestCreateOfferAssignsBooking(t *testing.T) {
	repo := newFakeRepo()
	seedFixtures(repo)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc := newTestService(repo, now)

	offer, err := svc.CreateOffer(context.Background(), "b1", "t1", 0, 3.5)
	require.NoError(t, err)
	assert.Equal(t, models.OfferStatusPending, offer.Status)
	assert.Equal(t, now.Add(30*time.Minute), offer.ExpiresAt)
	assert.Equal(t, 1200, offer.Amount)
	assert.Equal(t, "t1", repo.bookings["b1"].TechnicianID)
	assert.Equal(t, models.BookingStatusAssigned, repo.bookings["b1"].Status)
}

func TestCreateOfferRefreshesExistingPending(t *testing.T) {
	repo := newFakeRepo()
	seedFixtures(repo)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc := newTestService(repo, now)

	first, err := svc.CreateOffer(context.Background(), "b1", "t1", 10, 0)
	require.NoError(t, err)

	svc.now = func() time.Time { return now.Add(5 * time.Minute) }
	second, err := svc.CreateOffer(context.Background(), "b1", "t1", 10, 0)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, now.Add(15*time.Minute), second.ExpiresAt)
	assert.Len(t, repo.offers, 1)
}

func TestCreateOfferRejectsClosedBooking(t *testing.T) {
	repo := newFakeRepo()
	seedFixtures(repo)
	b := repo.bookings["b1"]
	b.Status = models.BookingStatusCancelled
	repo.bookings["b1"] = b
	svc := newTestService(repo, time.Now())

	_, err := svc.CreateOffer(context.Background(), "b1", "t1", 0, 0)
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestCreateOfferUnknownTechnician(t *testing.T) {
	repo := newFakeRepo()
	seedFixtures(repo)
	svc := newTestService(repo, time.Now())

	_, err := svc.CreateOffer(context.Background(), "b1", "t9", 0, 0)
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestListActiveExcludesExpiredOffers(t *testing.T) {
	repo := newFakeRepo()
	seedFixtures(repo)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc := newTestService(repo, now)

	_, err := svc.CreateOffer(context.Background(), "b1", "t1", 30, 0)
	require.NoError(t, err)

	svc.now = func() time.Time { return now.Add(10 * time.Minute) }
	active, err := svc.ListActive(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Meera", active[0].CustomerName)
	assert.Equal(t, "Refrigerator Repair", active[0].Service)
	assert.Equal(t, int64(20*60), active[0].TimeLeftSeconds)

	// Past the deadline the offer disappears from the feed without any
	// status write.
	svc.now = func() time.Time { return now.Add(31 * time.Minute) }
	active, err = svc.ListActive(context.Background(), "t1")
	require.NoError(t, err)
	assert.Empty(t, active)
	assert.Equal(t, models.OfferStatusPending, repo.offers[0].Status)
}

func TestListActiveDropsOrphanedOffers(t *testing.T) {
	repo := newFakeRepo()
	seedFixtures(repo)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc := newTestService(repo, now)

	_, err := svc.CreateOffer(context.Background(), "b1", "t1", 30, 0)
	require.NoError(t, err)
	delete(repo.bookings, "b1")

	active, err := svc.ListActive(context.Background(), "t1")
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestRespondAcceptConfirmsBookingAndMarksBusy(t *testing.T) {
	repo := newFakeRepo()
	seedFixtures(repo)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc := newTestService(repo, now)

	_, err := svc.CreateOffer(context.Background(), "b1", "t1", 30, 0)
	require.NoError(t, err)

	updated, err := svc.Respond(context.Background(), "b1", "t1", DecisionAccept, "")
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusConfirmed, updated.Status)
	require.NotNil(t, updated.AcceptedAt)
	assert.Equal(t, models.TechnicianStatusBusy, repo.technicians["t1"].Status)
	assert.Equal(t, models.OfferStatusAccepted, repo.offers[0].Status)
}

func TestRespondRejectReleasesBooking(t *testing.T) {
	repo := newFakeRepo()
	seedFixtures(repo)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc := newTestService(repo, now)

	_, err := svc.CreateOffer(context.Background(), "b1", "t1", 30, 0)
	require.NoError(t, err)

	updated, err := svc.Respond(context.Background(), "b1", "t1", DecisionReject, "too far")
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusPending, updated.Status)
	assert.Empty(t, updated.TechnicianID)
	assert.Equal(t, "too far", updated.RejectionReason)
	assert.Equal(t, models.OfferStatusRejected, repo.offers[0].Status)
}

func TestRespondRejectsUnknownDecision(t *testing.T) {
	repo := newFakeRepo()
	seedFixtures(repo)
	svc := newTestService(repo, time.Now())

	_, err := svc.Respond(context.Background(), "b1", "t1", "maybe", "")
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestRespondRequiresAssignment(t *testing.T) {
	repo := newFakeRepo()
	seedFixtures(repo)
	svc := newTestService(repo, time.Now())

	_, err := svc.Respond(context.Background(), "b1", "t1", DecisionAccept, "")
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}
