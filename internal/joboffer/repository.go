package joboffer

import (
	"context"
	"time"

	"fixify-backend/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Repository interface {
	// Upsert refreshes an existing pending offer for the pair instead
	// of inserting a duplicate.
	Upsert(ctx context.Context, offer models.JobOffer) (models.JobOffer, error)
	ListPending(ctx context.Context, technicianID string, now time.Time) ([]models.JobOffer, error)
	ResolveOffer(ctx context.Context, bookingID, technicianID, status string, now time.Time) error

	Booking(ctx context.Context, id string) (models.Booking, error)
	// AssignedBooking finds the booking only if it is currently
	// assigned to the given technician.
	AssignedBooking(ctx context.Context, bookingID, technicianID string) (models.Booking, error)
	AcceptBooking(ctx context.Context, bookingID string, now time.Time) (models.Booking, error)
	ReleaseBooking(ctx context.Context, bookingID, reason string, now time.Time) (models.Booking, error)
	AssignBooking(ctx context.Context, bookingID, technicianID string, now time.Time) (models.Booking, error)

	Technician(ctx context.Context, id string) (models.Technician, error)
	SetTechnicianStatus(ctx context.Context, id, status string, now time.Time) error
}

type MongoRepository struct {
	offers      *mongo.Collection
	bookings    *mongo.Collection
	technicians *mongo.Collection
}

func NewRepository(offers, bookings, technicians *mongo.Collection) *MongoRepository {
	return &MongoRepository{
		offers:      offers,
		bookings:    bookings,
		technicians: technicians,
	}
}

func (r *MongoRepository) Upsert(ctx context.Context, offer models.JobOffer) (models.JobOffer, error) {
	filter := bson.M{
		"bookingId":    offer.BookingID,
		"technicianId": offer.TechnicianID,
		"status":       models.OfferStatusPending,
	}

	var existing models.JobOffer
	err := r.offers.FindOne(ctx, filter).Decode(&existing)
	if err == nil {
		opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
		update := bson.M{"$set": bson.M{"expiresAt": offer.ExpiresAt}}
		var refreshed models.JobOffer
		if err := r.offers.FindOneAndUpdate(ctx, bson.M{"_id": existing.ID}, update, opts).Decode(&refreshed); err != nil {
			return models.JobOffer{}, err
		}
		return refreshed, nil
	}
	if err != mongo.ErrNoDocuments {
		return models.JobOffer{}, err
	}

	offer.ID = primitive.NewObjectID().Hex()
	if _, err := r.offers.InsertOne(ctx, offer); err != nil {
		return models.JobOffer{}, err
	}
	return offer, nil
}

func (r *MongoRepository) ListPending(ctx context.Context, technicianID string, now time.Time) ([]models.JobOffer, error) {
	filter := bson.M{
		"technicianId": technicianID,
		"status":       models.OfferStatusPending,
		"expiresAt":    bson.M{"$gt": now},
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.offers.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	items := make([]models.JobOffer, 0)
	for cursor.Next(ctx) {
		var offer models.JobOffer
		if err := cursor.Decode(&offer); err != nil {
			return nil, err
		}
		items = append(items, offer)
	}
	return items, cursor.Err()
}

func (r *MongoRepository) ResolveOffer(ctx context.Context, bookingID, technicianID, status string, now time.Time) error {
	_, err := r.offers.UpdateMany(ctx, bson.M{
		"bookingId":    bookingID,
		"technicianId": technicianID,
		"status":       models.OfferStatusPending,
	}, bson.M{
		"$set": bson.M{"status": status, "resolvedAt": now},
	})
	return err
}

func (r *MongoRepository) Booking(ctx context.Context, id string) (models.Booking, error) {
	var b models.Booking
	if err := r.bookings.FindOne(ctx, bson.M{"_id": id}).Decode(&b); err != nil {
		return models.Booking{}, err
	}
	return b, nil
}

func (r *MongoRepository) AssignedBooking(ctx context.Context, bookingID, technicianID string) (models.Booking, error) {
	var b models.Booking
	filter := bson.M{"_id": bookingID, "technicianId": technicianID}
	if err := r.bookings.FindOne(ctx, filter).Decode(&b); err != nil {
		return models.Booking{}, err
	}
	return b, nil
}

func (r *MongoRepository) AcceptBooking(ctx context.Context, bookingID string, now time.Time) (models.Booking, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := bson.M{
		"$set": bson.M{
			"status":               models.BookingStatusConfirmed,
			"technicianAcceptedAt": now,
			"updatedAt":            now,
		},
	}
	var updated models.Booking
	if err := r.bookings.FindOneAndUpdate(ctx, bson.M{"_id": bookingID}, update, opts).Decode(&updated); err != nil {
		return models.Booking{}, err
	}
	return updated, nil
}

// ReleaseBooking returns a rejected booking to the unassigned pool.
func (r *MongoRepository) ReleaseBooking(ctx context.Context, bookingID, reason string, now time.Time) (models.Booking, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := bson.M{
		"$set": bson.M{
			"status":                    models.BookingStatusPending,
			"technicianRejectedAt":      now,
			"technicianRejectionReason": reason,
			"updatedAt":                 now,
		},
		"$unset": bson.M{
			"technicianId": "",
			"technician":   "",
		},
	}
	var updated models.Booking
	if err := r.bookings.FindOneAndUpdate(ctx, bson.M{"_id": bookingID}, update, opts).Decode(&updated); err != nil {
		return models.Booking{}, err
	}
	return updated, nil
}

func (r *MongoRepository) AssignBooking(ctx context.Context, bookingID, technicianID string, now time.Time) (models.Booking, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := bson.M{
		"$set": bson.M{
			"technicianId": technicianID,
			"status":       models.BookingStatusAssigned,
			"updatedAt":    now,
		},
	}
	var updated models.Booking
	if err := r.bookings.FindOneAndUpdate(ctx, bson.M{"_id": bookingID}, update, opts).Decode(&updated); err != nil {
		return models.Booking{}, err
	}
	return updated, nil
}

func (r *MongoRepository) Technician(ctx context.Context, id string) (models.Technician, error) {
	var t models.Technician
	if err := r.technicians.FindOne(ctx, bson.M{"_id": id}).Decode(&t); err != nil {
		return models.Technician{}, err
	}
	return t, nil
}

func (r *MongoRepository) SetTechnicianStatus(ctx context.Context, id, status string, now time.Time) error {
	_, err := r.technicians.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"status": status, "updatedAt": now},
	})
	return err
}
