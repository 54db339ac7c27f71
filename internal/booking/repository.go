package booking

import (
	"context"
	"time"

	"fixify-backend/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Repository is everything the lifecycle service touches. Bookings,
// the assigned technician, the linked order and the review trail all
// live in separate collections; each write here is a single-document
// conditional update, which is the only atomicity the store gives us.
type Repository interface {
	Resolve(ctx context.Context, candidates ...string) (models.Booking, error)
	SetStatus(ctx context.Context, id, status string, now time.Time) (models.Booking, error)
	MarkCancelled(ctx context.Context, id, reason string, now time.Time) (models.Booking, error)
	MarkRescheduled(ctx context.Context, id, date, clock string, now time.Time) (models.Booking, error)
	AttachRating(ctx context.Context, id string, rating int, feedback string, now time.Time) (models.Booking, error)
	ListByUser(ctx context.Context, userID string, limit, offset int64) ([]models.Booking, int64, error)

	Technician(ctx context.Context, id string) (models.Technician, error)
	UpdateTechnicianRating(ctx context.Context, id string, avg float64, count int, now time.Time) error
	SetTechnicianStatus(ctx context.Context, id, status string, now time.Time) error
	IncrementTechnicianCompleted(ctx context.Context, id string, now time.Time) error

	CancelOrder(ctx context.Context, orderID, reason string, now time.Time) error
	UpdateOrderSchedule(ctx context.Context, orderID, date, clock string, now time.Time) error

	AppendReview(ctx context.Context, review models.Review) error
}

type MongoRepository struct {
	bookings    *mongo.Collection
	technicians *mongo.Collection
	orders      *mongo.Collection
	reviews     *mongo.Collection
}

func NewRepository(bookings, technicians, orders, reviews *mongo.Collection) *MongoRepository {
	return &MongoRepository{
		bookings:    bookings,
		technicians: technicians,
		orders:      orders,
		reviews:     reviews,
	}
}

// resolveFields is the fixed priority order for identity lookups.
// Clients send whichever identifier they hold: the store id, the
// human-readable bookingId, or a payment/order reference.
var resolveFields = []string{"_id", "bookingId", "paymentId", "orderId"}

func (r *MongoRepository) Resolve(ctx context.Context, candidates ...string) (models.Booking, error) {
	for _, field := range resolveFields {
		for _, candidate := range candidates {
			if candidate == "" {
				continue
			}
			var b models.Booking
			err := r.bookings.FindOne(ctx, bson.M{field: candidate}).Decode(&b)
			if err == nil {
				return b, nil
			}
			if err != mongo.ErrNoDocuments {
				return models.Booking{}, err
			}
		}
	}
	return models.Booking{}, mongo.ErrNoDocuments
}

func (r *MongoRepository) findOneAndUpdate(ctx context.Context, filter, update bson.M) (models.Booking, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.Booking
	if err := r.bookings.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated); err != nil {
		return models.Booking{}, err
	}
	return updated, nil
}

func (r *MongoRepository) SetStatus(ctx context.Context, id, status string, now time.Time) (models.Booking, error) {
	return r.findOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"status":    status,
			"updatedAt": now,
		},
	})
}

func (r *MongoRepository) MarkCancelled(ctx context.Context, id, reason string, now time.Time) (models.Booking, error) {
	return r.findOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"status":             models.BookingStatusCancelled,
			"cancellationReason": reason,
			"cancelledAt":        now,
			"updatedAt":          now,
		},
	})
}

func (r *MongoRepository) MarkRescheduled(ctx context.Context, id, date, clock string, now time.Time) (models.Booking, error) {
	return r.findOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"status":        models.BookingStatusRescheduled,
			"scheduledDate": date,
			"bookingTime":   clock,
			"updatedAt":     now,
		},
	})
}

// AttachRating is guarded: only a completed, not-yet-rated booking
// matches. A no-match is indistinguishable from a missing booking at
// this level; the service sorts that out.
func (r *MongoRepository) AttachRating(ctx context.Context, id string, rating int, feedback string, now time.Time) (models.Booking, error) {
	return r.findOneAndUpdate(ctx, bson.M{
		"_id":    id,
		"status": models.BookingStatusCompleted,
		"rating": bson.M{"$exists": false},
	}, bson.M{
		"$set": bson.M{
			"rating":    rating,
			"feedback":  feedback,
			"updatedAt": now,
		},
	})
}

func (r *MongoRepository) ListByUser(ctx context.Context, userID string, limit, offset int64) ([]models.Booking, int64, error) {
	filter := bson.M{"userId": userID}
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

func (r *MongoRepository) Technician(ctx context.Context, id string) (models.Technician, error) {
	var t models.Technician
	if err := r.technicians.FindOne(ctx, bson.M{"_id": id}).Decode(&t); err != nil {
		return models.Technician{}, err
	}
	return t, nil
}

func (r *MongoRepository) UpdateTechnicianRating(ctx context.Context, id string, avg float64, count int, now time.Time) error {
	_, err := r.technicians.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"rating":       avg,
			"totalRatings": count,
			"updatedAt":    now,
		},
	})
	return err
}

func (r *MongoRepository) SetTechnicianStatus(ctx context.Context, id, status string, now time.Time) error {
	_, err := r.technicians.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"status":    status,
			"updatedAt": now,
		},
	})
	return err
}

func (r *MongoRepository) IncrementTechnicianCompleted(ctx context.Context, id string, now time.Time) error {
	_, err := r.technicians.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$inc": bson.M{"completedBookings": 1},
		"$set": bson.M{"updatedAt": now},
	})
	return err
}

func (r *MongoRepository) CancelOrder(ctx context.Context, orderID, reason string, now time.Time) error {
	_, err := r.orders.UpdateOne(ctx, bson.M{"_id": orderID}, bson.M{
		"$set": bson.M{
			"status":    models.BookingStatusCancelled,
			"notes":     "cancelled: " + reason,
			"updatedAt": now,
		},
	})
	return err
}

func (r *MongoRepository) UpdateOrderSchedule(ctx context.Context, orderID, date, clock string, now time.Time) error {
	_, err := r.orders.UpdateOne(ctx, bson.M{"_id": orderID}, bson.M{
		"$set": bson.M{
			"notes":     "rescheduled to " + date + " " + clock,
			"updatedAt": now,
		},
	})
	return err
}

func (r *MongoRepository) AppendReview(ctx context.Context, review models.Review) error {
	_, err := r.reviews.InsertOne(ctx, review)
	return err
}
