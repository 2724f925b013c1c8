package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campushq/timetable-api/internal/models"
	"github.com/campushq/timetable-api/internal/repository"
)

type mockTeacherRepo struct {
	items      map[string]*models.Teacher
	listResult []models.Teacher
	listTotal  int
	listErr    error
	deleted    []string
}

func (m *mockTeacherRepo) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error) {
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	return m.listResult, m.listTotal, nil
}

func (m *mockTeacherRepo) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	if teacher, ok := m.items[id]; ok {
		cp := *teacher
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockTeacherRepo) Create(ctx context.Context, teacher *models.Teacher) error {
	if m.items == nil {
		m.items = make(map[string]*models.Teacher)
	}
	if _, ok := m.items[teacher.ID]; ok {
		return repository.ErrDuplicate
	}
	now := time.Now()
	teacher.CreatedAt = now
	teacher.UpdatedAt = now
	cp := *teacher
	m.items[teacher.ID] = &cp
	return nil
}

func (m *mockTeacherRepo) Update(ctx context.Context, teacher *models.Teacher) error {
	if m.items == nil {
		m.items = make(map[string]*models.Teacher)
	}
	cp := *teacher
	m.items[teacher.ID] = &cp
	return nil
}

func (m *mockTeacherRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	delete(m.items, id)
	return nil
}

func TestTeacherServiceCreate(t *testing.T) {
	repo := &mockTeacherRepo{}
	service := NewTeacherService(repo, validator.New(), zap.NewNop())

	teacher, err := service.Create(context.Background(), CreateTeacherRequest{
		ID:        "T100",
		FirstName: "Alice",
		LastName:  "Nwosu",
		Availability: models.Availability{
			"Monday": {"Morning", "Afternoon"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "T100", teacher.ID)
	assert.Equal(t, "Alice Nwosu", teacher.DisplayName())
	assert.Len(t, repo.items, 1)
}

func TestTeacherServiceCreateDuplicateID(t *testing.T) {
	repo := &mockTeacherRepo{items: map[string]*models.Teacher{
		"T100": {ID: "T100", FirstName: "Alice", LastName: "Nwosu"},
	}}
	service := NewTeacherService(repo, validator.New(), zap.NewNop())

	_, err := service.Create(context.Background(), CreateTeacherRequest{
		ID:        "T100",
		FirstName: "Another",
		LastName:  "Person",
	})
	require.Error(t, err)
	assert.Equal(t, "CONFLICT", rejectionCode(t, err))
}

func TestTeacherServiceRejectsUnknownAvailability(t *testing.T) {
	service := NewTeacherService(&mockTeacherRepo{}, validator.New(), zap.NewNop())

	_, err := service.Create(context.Background(), CreateTeacherRequest{
		ID:        "T100",
		FirstName: "Alice",
		LastName:  "Nwosu",
		Availability: models.Availability{
			"Sunday": {"Morning"},
		},
	})
	require.Error(t, err)

	_, err = service.Create(context.Background(), CreateTeacherRequest{
		ID:        "T100",
		FirstName: "Alice",
		LastName:  "Nwosu",
		Availability: models.Availability{
			"Monday": {"Night"},
		},
	})
	require.Error(t, err)
}

func TestTeacherServiceUpdateKeepsID(t *testing.T) {
	repo := &mockTeacherRepo{items: map[string]*models.Teacher{
		"T100": {ID: "T100", FirstName: "Alice", LastName: "Nwosu"},
	}}
	service := NewTeacherService(repo, validator.New(), zap.NewNop())

	updated, err := service.Update(context.Background(), "T100", UpdateTeacherRequest{
		FirstName: "Alicia",
		LastName:  "Nwosu-Okafor",
	})
	require.NoError(t, err)
	assert.Equal(t, "T100", updated.ID)
	assert.Equal(t, "Alicia Nwosu-Okafor", updated.DisplayName())
}

func TestTeacherServiceUpdateDropsEmptyAvailabilityDays(t *testing.T) {
	repo := &mockTeacherRepo{items: map[string]*models.Teacher{
		"T100": {ID: "T100", FirstName: "Alice", LastName: "Nwosu"},
	}}
	service := NewTeacherService(repo, validator.New(), zap.NewNop())

	updated, err := service.Update(context.Background(), "T100", UpdateTeacherRequest{
		FirstName: "Alice",
		LastName:  "Nwosu",
		Availability: models.Availability{
			"Monday":  {"Morning"},
			"Tuesday": {},
		},
	})
	require.NoError(t, err)
	assert.Contains(t, updated.Availability, "Monday")
	assert.NotContains(t, updated.Availability, "Tuesday")
}

func TestTeacherServiceDelete(t *testing.T) {
	repo := &mockTeacherRepo{items: map[string]*models.Teacher{
		"T100": {ID: "T100", FirstName: "Alice", LastName: "Nwosu"},
	}}
	service := NewTeacherService(repo, validator.New(), zap.NewNop())

	require.NoError(t, service.Delete(context.Background(), "T100"))
	assert.Equal(t, []string{"T100"}, repo.deleted)

	err := service.Delete(context.Background(), "T100")
	require.Error(t, err)
}
