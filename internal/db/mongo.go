package db

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Collections struct {
	Users              *mongo.Collection
	Technicians        *mongo.Collection
	Bookings           *mongo.Collection
	JobOffers          *mongo.Collection
	Payments           *mongo.Collection
	Orders             *mongo.Collection
	Notifications      *mongo.Collection
	AdminNotifications *mongo.Collection
	Reviews            *mongo.Collection
	Payouts            *mongo.Collection
	Settings           *mongo.Collection
	ActivityLog        *mongo.Collection
	Services           *mongo.Collection
}

func Connect(ctx context.Context, uri, dbName string) (*mongo.Client, *Collections, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, err
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, nil, err
	}

	db := client.Database(dbName)

	cols := &Collections{
		Users:              db.Collection("users"),
		Technicians:        db.Collection("technicians"),
		Bookings:           db.Collection("bookings"),
		JobOffers:          db.Collection("jobOffers"),
		Payments:           db.Collection("payments"),
		Orders:             db.Collection("orders"),
		Notifications:      db.Collection("notifications"),
		AdminNotifications: db.Collection("adminNotifications"),
		Reviews:            db.Collection("reviews"),
		Payouts:            db.Collection("payouts"),
		Settings:           db.Collection("settings"),
		ActivityLog:        db.Collection("activityLog"),
		Services:           db.Collection("services"),
	}

	return client, cols, nil
}

func EnsureIndexes(ctx context.Context, cols *Collections) error {
	indexTimeout, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := cols.Users.Indexes().CreateMany(indexTimeout, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
	if err != nil {
		return err
	}

	_, err = cols.Bookings.Indexes().CreateMany(indexTimeout, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "bookingId", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
		{
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "technicianId", Value: 1}, {Key: "createdAt", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "status", Value: 1}},
		},
	})
	if err != nil {
		return err
	}

	_, err = cols.JobOffers.Indexes().CreateMany(indexTimeout, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "technicianId", Value: 1}, {Key: "status", Value: 1}, {Key: "expiresAt", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "bookingId", Value: 1}, {Key: "technicianId", Value: 1}},
		},
	})
	if err != nil {
		return err
	}

	_, err = cols.Technicians.Indexes().CreateMany(indexTimeout, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	})
	if err != nil {
		return err
	}

	_, err = cols.Notifications.Indexes().CreateMany(indexTimeout, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "recipientId", Value: 1}, {Key: "createdAt", Value: -1}},
		},
	})
	if err != nil {
		return err
	}

	_, err = cols.Payouts.Indexes().CreateMany(indexTimeout, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "technicianId", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "bookingIds", Value: 1}},
		},
	})
	if err != nil {
		return err
	}

	_, err = cols.Services.Indexes().CreateMany(indexTimeout, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "slug", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
	return err
}
