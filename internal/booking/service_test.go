package booking

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"fixify-backend/internal/apperr"
	"fixify-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
)

type fakeRepo struct {
	bookings    map[string]models.Booking
	technicians map[string]models.Technician
	orders      map[string]models.Order
	reviews     []models.Review
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		bookings:    map[string]models.Booking{},
		technicians: map[string]models.Technician{},
		orders:      map[string]models.Order{},
	}
}

func (f *fakeRepo) Resolve(ctx context.Context, candidates ...string) (models.Booking, error) {
	for _, field := range resolveFields {
		for _, candidate := range candidates {
			if candidate == "" {
				continue
			}
			for _, b := range f.bookings {
				var v string
				switch field {
				case "_id":
					v = b.ID
				case "bookingId":
					v = b.BookingID
				case "paymentId":
					v = b.PaymentID
				case "orderId":
					v = b.OrderID
				}
				if v == candidate {
					return b, nil
				}
			}
		}
	}
	return models.Booking{}, mongo.ErrNoDocuments
}

func (f *fakeRepo) SetStatus(ctx context.Context, id, status string, now time.Time) (models.Booking, error) {
	b, ok := f.bookings[id]
	if !ok {
		return models.Booking{}, mongo.ErrNoDocuments
	}
	b.Status = status
	b.UpdatedAt = now
	f.bookings[id] = b
	return b, nil
}

func (f *fakeRepo) MarkCancelled(ctx context.Context, id, reason string, now time.Time) (models.Booking, error) {
	b, ok := f.bookings[id]
	if !ok {
		return models.Booking{}, mongo.ErrNoDocuments
	}
	b.Status = models.BookingStatusCancelled
	b.CancellationReason = reason
	b.CancelledAt = &now
	b.UpdatedAt = now
	f.bookings[id] = b
	return b, nil
}

func (f *fakeRepo) MarkRescheduled(ctx context.Context, id, date, clock string, now time.Time) (models.Booking, error) {
	b, ok := f.bookings[id]
	if !ok {
		return models.Booking{}, mongo.ErrNoDocuments
	}
	b.Status = models.BookingStatusRescheduled
	b.ScheduledDate = date
	b.BookingTime = clock
	b.UpdatedAt = now
	f.bookings[id] = b
	return b, nil
}

func (f *fakeRepo) AttachRating(ctx context.Context, id string, rating int, feedback string, now time.Time) (models.Booking, error) {
	b, ok := f.bookings[id]
	if !ok || b.Status != models.BookingStatusCompleted || b.Rating != 0 {
		return models.Booking{}, mongo.ErrNoDocuments
	}
	b.Rating = rating
	b.Feedback = feedback
	b.UpdatedAt = now
	f.bookings[id] = b
	return b, nil
}

func (f *fakeRepo) ListByUser(ctx context.Context, userID string, limit, offset int64) ([]models.Booking, int64, error) {
	items := []models.Booking{}
	for _, b := range f.bookings {
		if b.UserID == userID {
			items = append(items, b)
		}
	}
	return items, int64(len(items)), nil
}

func (f *fakeRepo) Technician(ctx context.Context, id string) (models.Technician, error) {
	t, ok := f.technicians[id]
	if !ok {
		return models.Technician{}, mongo.ErrNoDocuments
	}
	return t, nil
}

func (f *fakeRepo) UpdateTechnicianRating(ctx context.Context, id string, avg float64, count int, now time.Time) error {
	t := f.technicians[id]
	t.Rating = avg
	t.TotalRatings = count
	f.technicians[id] = t
	return nil
}

func (f *fakeRepo) SetTechnicianStatus(ctx context.Context, id, status string, now time.Time) error {
	t := f.technicians[id]
	t.Status = status
	f.technicians[id] = t
	return nil
}

func (f *fakeRepo) IncrementTechnicianCompleted(ctx context.Context, id string, now time.Time) error {
	t := f.technicians[id]
	t.CompletedJobs++
	f.technicians[id] = t
	return nil
}

func (f *fakeRepo) CancelOrder(ctx context.Context, orderID, reason string, now time.Time) error {
	o := f.orders[orderID]
	o.Status = models.BookingStatusCancelled
	o.Notes = "cancelled: " + reason
	f.orders[orderID] = o
	return nil
}

func (f *fakeRepo) UpdateOrderSchedule(ctx context.Context, orderID, date, clock string, now time.Time) error {
	o := f.orders[orderID]
	o.Notes = "rescheduled to " + date + " " + clock
	f.orders[orderID] = o
	return nil
}

func (f *fakeRepo) AppendReview(ctx context.Context, review models.Review) error {
	f.reviews = append(f.reviews, review)
	return nil
}

func newTestService(repo Repository) *Service {
	return NewService(repo, nil, nil, slog.Default())
}

func ownerActor() Actor {
	return Actor{UserID: "user-1", Email: "owner@example.com", Role: models.RoleUser}
}

func seedBooking(repo *fakeRepo, status string) models.Booking {
	b := models.Booking{
		ID:            "b1",
		BookingID:     "BK-TEST0001",
		UserID:        "user-1",
		OrderID:       "o1",
		PaymentID:     "p1",
		Service:       "AC Service & Repair",
		Status:        status,
		PaymentStatus: models.PaymentStatusPaid,
		Amount:        1000,
		CustomerEmail: "owner@example.com",
	}
	repo.bookings[b.ID] = b
	return b
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	repo := newFakeRepo()
	seedBooking(repo, models.BookingStatusPending)
	svc := newTestService(repo)

	_, err := svc.UpdateStatus(context.Background(), "b1", "archived", ownerActor())
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestUpdateStatusForeignBookingForbidden(t *testing.T) {
	repo := newFakeRepo()
	seedBooking(repo, models.BookingStatusPending)
	svc := newTestService(repo)

	stranger := Actor{UserID: "user-2", Email: "other@example.com", Role: models.RoleUser}
	_, err := svc.UpdateStatus(context.Background(), "b1", models.BookingStatusConfirmed, stranger)
	require.Error(t, err)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestUpdateStatusResolvesByAnyIdentifier(t *testing.T) {
	repo := newFakeRepo()
	seedBooking(repo, models.BookingStatusPending)
	svc := newTestService(repo)

	for _, id := range []string{"b1", "BK-TEST0001", "p1", "o1"} {
		updated, err := svc.UpdateStatus(context.Background(), id, models.BookingStatusConfirmed, ownerActor())
		require.NoError(t, err, "identifier %s", id)
		assert.Equal(t, "b1", updated.ID)
	}
}

func TestUpdateStatusCompletedReleasesTechnician(t *testing.T) {
	repo := newFakeRepo()
	b := seedBooking(repo, models.BookingStatusConfirmed)
	b.TechnicianID = "t1"
	repo.bookings[b.ID] = b
	repo.technicians["t1"] = models.Technician{ID: "t1", Status: models.TechnicianStatusBusy}
	svc := newTestService(repo)

	updated, err := svc.UpdateStatus(context.Background(), "b1", models.BookingStatusCompleted, Actor{Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCompleted, updated.Status)
	assert.Equal(t, models.TechnicianStatusActive, repo.technicians["t1"].Status)
	assert.Equal(t, 1, repo.technicians["t1"].CompletedJobs)
}

func TestUpdateStatusRepeatedTerminalIsIdempotent(t *testing.T) {
	repo := newFakeRepo()
	seedBooking(repo, models.BookingStatusConfirmed)
	svc := newTestService(repo)

	admin := Actor{Role: models.RoleAdmin}
	first, err := svc.UpdateStatus(context.Background(), "b1", models.BookingStatusCompleted, admin)
	require.NoError(t, err)

	second, err := svc.UpdateStatus(context.Background(), "b1", models.BookingStatusCompleted, admin)
	require.NoError(t, err)
	assert.Equal(t, first.Status, second.Status)
}

func TestCancelRequiresBothIdentifiers(t *testing.T) {
	repo := newFakeRepo()
	seedBooking(repo, models.BookingStatusPending)
	svc := newTestService(repo)

	_, err := svc.Cancel(context.Background(), "b1", "", "changed my mind", ownerActor())
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestCancelCompletedBookingRejected(t *testing.T) {
	repo := newFakeRepo()
	seedBooking(repo, models.BookingStatusCompleted)
	svc := newTestService(repo)

	_, err := svc.Cancel(context.Background(), "b1", "o1", "too late", ownerActor())
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestCancelAlreadyCancelledRejected(t *testing.T) {
	repo := newFakeRepo()
	seedBooking(repo, models.BookingStatusConfirmed)
	svc := newTestService(repo)

	_, err := svc.Cancel(context.Background(), "b1", "o1", "changed my mind", ownerActor())
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), "b1", "o1", "second thoughts", ownerActor())
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	// The original cancellation record stays intact.
	assert.Equal(t, "changed my mind", repo.bookings["b1"].CancellationReason)
}

func TestCancelPropagatesToOrder(t *testing.T) {
	repo := newFakeRepo()
	seedBooking(repo, models.BookingStatusConfirmed)
	repo.orders["o1"] = models.Order{ID: "o1", Status: models.BookingStatusConfirmed}
	svc := newTestService(repo)

	updated, err := svc.Cancel(context.Background(), "b1", "o1", "changed my mind", ownerActor())
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, updated.Status)
	assert.Equal(t, "changed my mind", updated.CancellationReason)
	assert.Equal(t, models.BookingStatusCancelled, repo.orders["o1"].Status)
}

func TestCancelUnknownBookingNotFound(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	_, err := svc.Cancel(context.Background(), "missing", "o9", "reason", ownerActor())
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestRescheduleValidatesDateAndTime(t *testing.T) {
	repo := newFakeRepo()
	seedBooking(repo, models.BookingStatusConfirmed)
	svc := newTestService(repo)

	_, err := svc.Reschedule(context.Background(), "b1", "o1", "02-03-2026", "10:00", ownerActor())
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = svc.Reschedule(context.Background(), "b1", "o1", "2026-03-02", "ten am", ownerActor())
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestRescheduleTerminalBookingRejected(t *testing.T) {
	repo := newFakeRepo()
	seedBooking(repo, models.BookingStatusCancelled)
	svc := newTestService(repo)

	_, err := svc.Reschedule(context.Background(), "b1", "o1", "2026-03-02", "10:00", ownerActor())
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestRescheduleUpdatesBookingAndOrder(t *testing.T) {
	repo := newFakeRepo()
	seedBooking(repo, models.BookingStatusConfirmed)
	repo.orders["o1"] = models.Order{ID: "o1"}
	svc := newTestService(repo)

	updated, err := svc.Reschedule(context.Background(), "b1", "o1", "2026-03-02", "10:00", ownerActor())
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusRescheduled, updated.Status)
	assert.Equal(t, "2026-03-02", updated.ScheduledDate)
	assert.Equal(t, "10:00", updated.BookingTime)
	assert.Contains(t, repo.orders["o1"].Notes, "2026-03-02")
}

func TestRateRequiresCompletedBooking(t *testing.T) {
	repo := newFakeRepo()
	seedBooking(repo, models.BookingStatusConfirmed)
	svc := newTestService(repo)

	_, err := svc.Rate(context.Background(), "b1", 5, "great", ownerActor())
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestRateRejectsOutOfRangeRating(t *testing.T) {
	repo := newFakeRepo()
	seedBooking(repo, models.BookingStatusCompleted)
	svc := newTestService(repo)

	for _, rating := range []int{0, 6, -1} {
		_, err := svc.Rate(context.Background(), "b1", rating, "", ownerActor())
		require.Error(t, err)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	}
}

func TestRateOnlyOnce(t *testing.T) {
	repo := newFakeRepo()
	seedBooking(repo, models.BookingStatusCompleted)
	svc := newTestService(repo)

	_, err := svc.Rate(context.Background(), "b1", 4, "good", ownerActor())
	require.NoError(t, err)

	_, err = svc.Rate(context.Background(), "b1", 5, "even better", ownerActor())
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestRateFoldsIntoTechnicianAverage(t *testing.T) {
	repo := newFakeRepo()
	b := seedBooking(repo, models.BookingStatusCompleted)
	b.TechnicianID = "t1"
	repo.bookings[b.ID] = b
	repo.technicians["t1"] = models.Technician{ID: "t1", Rating: 4.0, TotalRatings: 2}
	svc := newTestService(repo)

	updated, err := svc.Rate(context.Background(), "b1", 5, "excellent", ownerActor())
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Rating)

	tech := repo.technicians["t1"]
	assert.Equal(t, 4.3, tech.Rating)
	assert.Equal(t, 3, tech.TotalRatings)
	require.Len(t, repo.reviews, 1)
	assert.Equal(t, "b1", repo.reviews[0].BookingID)
	assert.Equal(t, 5, repo.reviews[0].Rating)
}

func TestRollingAverage(t *testing.T) {
	cases := []struct {
		oldAvg    float64
		oldCount  int
		newRating int
		want      float64
	}{
		{0, 0, 5, 5},
		{4.0, 2, 5, 4.3},
		{4.5, 1, 4, 4.3},
		{3.33, 3, 3, 3.2},
		{5.0, 9, 5, 5.0},
	}
	for _, tc := range cases {
		got := RollingAverage(tc.oldAvg, tc.oldCount, tc.newRating)
		assert.Equal(t, tc.want, got, "avg=%v count=%d new=%d", tc.oldAvg, tc.oldCount, tc.newRating)
	}
}

func TestGetEnforcesOwnership(t *testing.T) {
	repo := newFakeRepo()
	seedBooking(repo, models.BookingStatusPending)
	svc := newTestService(repo)

	_, err := svc.Get(context.Background(), "b1", Actor{UserID: "user-9", Role: models.RoleUser})
	require.Error(t, err)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	b, err := svc.Get(context.Background(), "BK-TEST0001", ownerActor())
	require.NoError(t, err)
	assert.Equal(t, "b1", b.ID)
}
