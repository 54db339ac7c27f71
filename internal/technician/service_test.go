package technician

import (
	"context"
	"testing"
	"time"

	"fixify-backend/internal/apperr"
	"fixify-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
)

type fakeRepo struct {
	byID    map[string]models.Technician
	byEmail map[string]string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byID: map[string]models.Technician{}, byEmail: map[string]string{}}
}

func (f *fakeRepo) Create(ctx context.Context, tech models.Technician) error {
	if _, ok := f.byEmail[tech.Email]; ok {
		return mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000}}}
	}
	f.byID[tech.ID] = tech
	f.byEmail[tech.Email] = tech.ID
	return nil
}

func (f *fakeRepo) List(ctx context.Context, limit, offset int64) ([]models.Technician, int64, error) {
	items := []models.Technician{}
	for _, t := range f.byID {
		items = append(items, t)
	}
	return items, int64(len(items)), nil
}

func (f *fakeRepo) GetByID(ctx context.Context, id string) (models.Technician, error) {
	t, ok := f.byID[id]
	if !ok {
		return models.Technician{}, mongo.ErrNoDocuments
	}
	return t, nil
}

func (f *fakeRepo) ResolveByUser(ctx context.Context, userID, email string) (models.Technician, error) {
	for _, t := range f.byID {
		if t.UserID == userID {
			return t, nil
		}
	}
	if id, ok := f.byEmail[email]; ok {
		t := f.byID[id]
		t.UserID = userID
		f.byID[id] = t
		return t, nil
	}
	return models.Technician{}, mongo.ErrNoDocuments
}

func (f *fakeRepo) UpdateStatus(ctx context.Context, id, status string, available bool, now time.Time) (models.Technician, error) {
	t, ok := f.byID[id]
	if !ok {
		return models.Technician{}, mongo.ErrNoDocuments
	}
	t.Status = status
	t.IsAvailable = available
	f.byID[id] = t
	return t, nil
}

func TestCreateNormalizesAndDefaults(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)

	tech, err := svc.Create(context.Background(), CreateRequest{
		Name:  "  Ravi Kumar ",
		Email: " Ravi.Kumar@Fixify.example ",
	})
	require.NoError(t, err)
	assert.Equal(t, "Ravi Kumar", tech.Name)
	assert.Equal(t, "ravi.kumar@fixify.example", tech.Email)
	assert.Equal(t, models.TechnicianStatusActive, tech.Status)
	assert.True(t, tech.IsAvailable)
	assert.NotEmpty(t, tech.ID)
}

func TestCreateDuplicateEmailConflict(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)

	_, err := svc.Create(context.Background(), CreateRequest{Name: "A", Email: "a@fixify.example"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateRequest{Name: "B", Email: "a@fixify.example"})
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestUpdateStatusValidation(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)

	_, err := svc.UpdateStatus(context.Background(), "t1", "on-holiday", nil)
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestUpdateStatusDerivesAvailability(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	created, err := svc.Create(context.Background(), CreateRequest{Name: "A", Email: "a@fixify.example"})
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(context.Background(), created.ID, models.TechnicianStatusBusy, nil)
	require.NoError(t, err)
	assert.False(t, updated.IsAvailable)

	updated, err = svc.UpdateStatus(context.Background(), created.ID, models.TechnicianStatusActive, nil)
	require.NoError(t, err)
	assert.True(t, updated.IsAvailable)

	force := true
	updated, err = svc.UpdateStatus(context.Background(), created.ID, models.TechnicianStatusInactive, &force)
	require.NoError(t, err)
	assert.True(t, updated.IsAvailable)
}

func TestUpdateStatusUnknownTechnician(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)

	_, err := svc.UpdateStatus(context.Background(), "missing", models.TechnicianStatusActive, nil)
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestResolveBacksFillsUserID(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	created, err := svc.Create(context.Background(), CreateRequest{Name: "A", Email: "a@fixify.example"})
	require.NoError(t, err)

	tech, err := svc.Resolve(context.Background(), "user-7", "a@fixify.example")
	require.NoError(t, err)
	assert.Equal(t, created.ID, tech.ID)
	assert.Equal(t, "user-7", tech.UserID)

	_, err = svc.Resolve(context.Background(), "user-8", "nobody@fixify.example")
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}
