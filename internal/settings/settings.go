// Package settings manages the commission rate singleton. The current
// rate applies to every earnings computation, past bookings included;
// the activity log is the only history kept.
package settings

import (
	"context"
	"fmt"
	"time"

	"fixify-backend/internal/apperr"
	"fixify-backend/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CommissionKey            = "commission"
	DefaultCommissionPercent = 30
)

type Service struct {
	settings    *mongo.Collection
	activityLog *mongo.Collection
}

func NewService(settings, activityLog *mongo.Collection) *Service {
	return &Service{
		settings:    settings,
		activityLog: activityLog,
	}
}

func (s *Service) CommissionRate(ctx context.Context) (float64, error) {
	var setting models.Setting
	err := s.settings.FindOne(ctx, bson.M{"_id": CommissionKey}).Decode(&setting)
	if err == mongo.ErrNoDocuments {
		return DefaultCommissionPercent, nil
	}
	if err != nil {
		return 0, apperr.Internal(err)
	}
	return setting.Value, nil
}

// SetCommissionRate updates the global rate and records who changed
// it. The log append is best-effort relative to the rate write.
func (s *Service) SetCommissionRate(ctx context.Context, rate float64, actor string) (models.Setting, error) {
	if rate < 0 || rate > 100 {
		return models.Setting{}, apperr.Validation("commission rate must be between 0 and 100")
	}

	now := time.Now()
	setting := models.Setting{
		Key:       CommissionKey,
		Value:     rate,
		UpdatedAt: now,
		UpdatedBy: actor,
	}

	opts := options.Replace().SetUpsert(true)
	if _, err := s.settings.ReplaceOne(ctx, bson.M{"_id": CommissionKey}, setting, opts); err != nil {
		return models.Setting{}, apperr.Internal(err)
	}

	entry := models.ActivityLog{
		ID:        primitive.NewObjectID().Hex(),
		Actor:     actor,
		Action:    "commission_rate_changed",
		Detail:    fmt.Sprintf("rate set to %.1f%%", rate),
		CreatedAt: now,
	}
	_, _ = s.activityLog.InsertOne(ctx, entry)

	return setting, nil
}
