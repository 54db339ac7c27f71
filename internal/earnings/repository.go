package earnings

import (
	"context"
	"time"

	"fixify-backend/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Repository interface {
	// CommissionRate returns the stored percentage, or ok=false when
	// the settings document is absent.
	CommissionRate(ctx context.Context) (float64, bool, error)
	TechnicianBookings(ctx context.Context, technicianID, status string, limit, offset int64) ([]models.Booking, int64, error)
	// CompletedBookings returns every completed booking for the
	// technician, without pagination.
	CompletedBookings(ctx context.Context, technicianID string) ([]models.Booking, error)
	PayoutsForTechnician(ctx context.Context, technicianID string) ([]models.Payout, error)
	BookingsInRange(ctx context.Context, from, to time.Time) ([]models.Booking, error)
}

type MongoRepository struct {
	bookings *mongo.Collection
	payouts  *mongo.Collection
	settings *mongo.Collection
}

func NewRepository(bookings, payouts, settings *mongo.Collection) *MongoRepository {
	return &MongoRepository{
		bookings: bookings,
		payouts:  payouts,
		settings: settings,
	}
}

func (r *MongoRepository) CommissionRate(ctx context.Context) (float64, bool, error) {
	var setting models.Setting
	err := r.settings.FindOne(ctx, bson.M{"_id": "commission"}).Decode(&setting)
	if err == mongo.ErrNoDocuments {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return setting.Value, true, nil
}

func (r *MongoRepository) TechnicianBookings(ctx context.Context, technicianID, status string, limit, offset int64) ([]models.Booking, int64, error) {
	filter := bson.M{"technicianId": technicianID}
	if status != "" {
		filter["status"] = status
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(limit).
		SetSkip(offset)

	cursor, err := r.bookings.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	items := make([]models.Booking, 0)
	for cursor.Next(ctx) {
		var b models.Booking
		if err := cursor.Decode(&b); err != nil {
			return nil, 0, err
		}
		items = append(items, b)
	}
	if err := cursor.Err(); err != nil {
		return nil, 0, err
	}

	total, err := r.bookings.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *MongoRepository) CompletedBookings(ctx context.Context, technicianID string) ([]models.Booking, error) {
	filter := bson.M{
		"technicianId": technicianID,
		"status":       models.BookingStatusCompleted,
	}
	cursor, err := r.bookings.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	items := make([]models.Booking, 0)
	for cursor.Next(ctx) {
		var b models.Booking
		if err := cursor.Decode(&b); err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	return items, cursor.Err()
}

func (r *MongoRepository) PayoutsForTechnician(ctx context.Context, technicianID string) ([]models.Payout, error) {
	cursor, err := r.payouts.Find(ctx, bson.M{"technicianId": technicianID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	items := make([]models.Payout, 0)
	for cursor.Next(ctx) {
		var p models.Payout
		if err := cursor.Decode(&p); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, cursor.Err()
}

func (r *MongoRepository) BookingsInRange(ctx context.Context, from, to time.Time) ([]models.Booking, error) {
	filter := bson.M{
		"createdAt": bson.M{"$gte": from, "$lte": to},
	}
	cursor, err := r.bookings.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	items := make([]models.Booking, 0)
	for cursor.Next(ctx) {
		var b models.Booking
		if err := cursor.Decode(&b); err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	return items, cursor.Err()
}
