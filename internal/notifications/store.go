package notifications

import (
	"context"
	"time"

	"fixify-backend/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	RecipientUser       = "user"
	RecipientTechnician = "technician"
	RecipientAdmin      = "admin"
)

// Store persists in-app notifications. Callers treat Notify as
// fire-and-forget: a failed insert is logged by the caller, never
// propagated into the primary operation.
type Store struct {
	users *mongo.Collection
	admin *mongo.Collection
}

func NewStore(users, admin *mongo.Collection) *Store {
	return &Store{users: users, admin: admin}
}

type Message struct {
	RecipientID   string
	RecipientType string
	Title         string
	Body          string
	Type          string
	ReferenceID   string
	IsImportant   bool
}

func (s *Store) Notify(ctx context.Context, msg Message) error {
	doc := models.Notification{
		ID:            primitive.NewObjectID().Hex(),
		RecipientID:   msg.RecipientID,
		RecipientType: msg.RecipientType,
		Title:         msg.Title,
		Message:       msg.Body,
		Type:          msg.Type,
		ReferenceID:   msg.ReferenceID,
		IsImportant:   msg.IsImportant,
		CreatedAt:     time.Now(),
	}

	col := s.users
	if msg.RecipientType == RecipientAdmin {
		col = s.admin
	}
	_, err := col.InsertOne(ctx, doc)
	return err
}
