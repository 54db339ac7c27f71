package technician

import (
	"context"
	"errors"
	"strings"
	"time"

	"fixify-backend/internal/apperr"
	"fixify-backend/internal/models"

	"go.mongodb.org/mongo-driver/mongo"
)

var validStatuses = map[string]struct{}{
	models.TechnicianStatusActive:   {},
	models.TechnicianStatusInactive: {},
	models.TechnicianStatusBusy:     {},
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type CreateRequest struct {
	Name            string   `json:"name" validate:"required"`
	Email           string   `json:"email" validate:"required,email"`
	Phone           string   `json:"phone" validate:"omitempty,phone"`
	Specializations []string `json:"specializations" validate:"omitempty,dive,required"`
	Location        string   `json:"location"`
}

type StatusUpdateRequest struct {
	Status      string `json:"status" validate:"required,oneof=active inactive busy"`
	IsAvailable *bool  `json:"isAvailable"`
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (models.Technician, error) {
	now := time.Now()
	tech := models.Technician{
		ID:              NewID(),
		Name:            strings.TrimSpace(req.Name),
		Email:           strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:           strings.TrimSpace(req.Phone),
		Specializations: req.Specializations,
		Status:          models.TechnicianStatusActive,
		IsAvailable:     true,
		Location:        strings.TrimSpace(req.Location),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.Create(ctx, tech); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.Technician{}, apperr.Conflict("technician email already exists")
		}
		return models.Technician{}, apperr.Internal(err)
	}
	return tech, nil
}

func (s *Service) List(ctx context.Context, limit, offset int64) ([]models.Technician, int64, error) {
	items, total, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	return items, total, nil
}

func (s *Service) UpdateStatus(ctx context.Context, id, status string, available *bool) (models.Technician, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if _, ok := validStatuses[status]; !ok {
		return models.Technician{}, apperr.Validation("invalid status")
	}

	isAvailable := status == models.TechnicianStatusActive
	if available != nil {
		isAvailable = *available
	}

	updated, err := s.repo.UpdateStatus(ctx, strings.TrimSpace(id), status, isAvailable, time.Now())
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Technician{}, apperr.NotFound("technician not found")
		}
		return models.Technician{}, apperr.Internal(err)
	}
	return updated, nil
}

// Resolve maps an authenticated technician identity onto their record.
func (s *Service) Resolve(ctx context.Context, userID, email string) (models.Technician, error) {
	tech, err := s.repo.ResolveByUser(ctx, userID, email)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Technician{}, apperr.NotFound("technician profile not found")
		}
		return models.Technician{}, apperr.Internal(err)
	}
	return tech, nil
}
