package technician

import (
	"context"
	"strings"
	"time"

	"fixify-backend/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Repository interface {
	Create(ctx context.Context, tech models.Technician) error
	List(ctx context.Context, limit, offset int64) ([]models.Technician, int64, error)
	GetByID(ctx context.Context, id string) (models.Technician, error)
	ResolveByUser(ctx context.Context, userID, email string) (models.Technician, error)
	UpdateStatus(ctx context.Context, id, status string, available bool, now time.Time) (models.Technician, error)
}

type MongoRepository struct {
	col *mongo.Collection
}

func NewRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Create(ctx context.Context, tech models.Technician) error {
	_, err := r.col.InsertOne(ctx, tech)
	return err
}

func (r *MongoRepository) List(ctx context.Context, limit, offset int64) ([]models.Technician, int64, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(limit).
		SetSkip(offset)

	cursor, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	items := make([]models.Technician, 0)
	for cursor.Next(ctx) {
		var t models.Technician
		if err := cursor.Decode(&t); err != nil {
			return nil, 0, err
		}
		items = append(items, t)
	}
	if err := cursor.Err(); err != nil {
		return nil, 0, err
	}

	total, err := r.col.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *MongoRepository) GetByID(ctx context.Context, id string) (models.Technician, error) {
	var t models.Technician
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&t); err != nil {
		return models.Technician{}, err
	}
	return t, nil
}

// ResolveByUser finds the technician record behind an auth identity.
// Records created by admins before the technician ever logged in have
// no userId; the first successful email match back-fills it.
func (r *MongoRepository) ResolveByUser(ctx context.Context, userID, email string) (models.Technician, error) {
	var t models.Technician
	err := r.col.FindOne(ctx, bson.M{"userId": userID}).Decode(&t)
	if err == nil {
		return t, nil
	}
	if err != mongo.ErrNoDocuments {
		return models.Technician{}, err
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return models.Technician{}, mongo.ErrNoDocuments
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := bson.M{"$set": bson.M{"userId": userID, "updatedAt": time.Now()}}
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"email": email}, update, opts).Decode(&t); err != nil {
		return models.Technician{}, err
	}
	return t, nil
}

func (r *MongoRepository) UpdateStatus(ctx context.Context, id, status string, available bool, now time.Time) (models.Technician, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := bson.M{
		"$set": bson.M{
			"status":      status,
			"isAvailable": available,
			"updatedAt":   now,
		},
	}
	var updated models.Technician
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&updated); err != nil {
		return models.Technician{}, err
	}
	return updated, nil
}

// NewID mirrors the store's id generation for callers building
// technician documents.
func NewID() string {
	return primitive.NewObjectID().Hex()
}
