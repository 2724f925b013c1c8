package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campushq/timetable-api/internal/models"
	"github.com/campushq/timetable-api/internal/service"
	"github.com/campushq/timetable-api/pkg/response"
)

type fakeSessionStore struct {
	items map[string]*models.ClassSession
}

func (f *fakeSessionStore) List(ctx context.Context, filter models.SessionFilter) ([]models.ClassSessionDetail, int, error) {
	out := make([]models.ClassSessionDetail, 0, len(f.items))
	for _, s := range f.items {
		out = append(out, models.ClassSessionDetail{ClassSession: *s})
	}
	return out, len(out), nil
}

func (f *fakeSessionStore) ListByDate(ctx context.Context, date string) ([]models.ClassSession, error) {
	var out []models.ClassSession
	for _, s := range f.items {
		if s.Date == date {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeSessionStore) ListByTeacher(ctx context.Context, teacherID string) ([]models.ClassSession, error) {
	var out []models.ClassSession
	for _, s := range f.items {
		if s.TeacherID == teacherID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeSessionStore) FindByID(ctx context.Context, id string) (*models.ClassSession, error) {
	if s, ok := f.items[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeSessionStore) Create(ctx context.Context, session *models.ClassSession) error {
	if f.items == nil {
		f.items = make(map[string]*models.ClassSession)
	}
	if session.ID == "" {
		session.ID = "new-session"
	}
	cp := *session
	f.items[session.ID] = &cp
	return nil
}

func (f *fakeSessionStore) Update(ctx context.Context, session *models.ClassSession) error {
	cp := *session
	f.items[session.ID] = &cp
	return nil
}

func (f *fakeSessionStore) Delete(ctx context.Context, id string) error {
	delete(f.items, id)
	return nil
}

type fakeTeacherDir struct{ items map[string]*models.Teacher }

func (f *fakeTeacherDir) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	if t, ok := f.items[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

type fakeSubjectCatalog struct{ items map[string]*models.Subject }

func (f *fakeSubjectCatalog) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	if s, ok := f.items[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

type fakeClassroomDir struct{ items map[string]*models.Classroom }

func (f *fakeClassroomDir) FindByKey(ctx context.Context, number, block string) (*models.Classroom, error) {
	if c, ok := f.items[models.ClassroomKey(number, block)]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func newSessionRouter(store *fakeSessionStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	teachers := &fakeTeacherDir{items: map[string]*models.Teacher{
		"T100": {ID: "T100", FirstName: "Alice", LastName: "Nwosu"},
	}}
	subjects := &fakeSubjectCatalog{items: map[string]*models.Subject{
		"MATH1": {ID: "MATH1", Name: "Calculus", DurationHours: 2, Shift: models.ShiftDay},
	}}
	classrooms := &fakeClassroomDir{items: map[string]*models.Classroom{
		"101-A": {Number: "101", Block: "A", Capacity: 30},
	}}
	svc := service.NewSessionService(store, teachers, subjects, classrooms, nil, nil, zap.NewNop(), time.Sunday)
	handler := NewSessionHandler(svc, nil)

	r := gin.New()
	r.GET("/sessions", handler.List)
	r.POST("/sessions", handler.Schedule)
	r.PUT("/sessions/:id", handler.Reschedule)
	r.DELETE("/sessions/:id", handler.Delete)
	r.GET("/sessions/conflicts/teacher", handler.TeacherConflict)
	return r
}

func futureMonday() string {
	d := time.Now().AddDate(0, 0, 7)
	for d.Weekday() != time.Monday {
		d = d.AddDate(0, 0, 1)
	}
	return d.Format(models.DateLayout)
}

func TestSessionHandlerSchedule(t *testing.T) {
	store := &fakeSessionStore{}
	router := newSessionRouter(store)

	body := `{"subject_id":"MATH1","teacher_id":"T100","classroom_key":"101-A","date":"` + futureMonday() + `","start_time":"08:00"}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	data, ok := envelope.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "10:00", data["end_time"])
	assert.Len(t, store.items, 1)
}

func TestSessionHandlerScheduleConflict(t *testing.T) {
	date := futureMonday()
	store := &fakeSessionStore{items: map[string]*models.ClassSession{
		"s1": {ID: "s1", Date: date, StartTime: "09:00", EndTime: "11:00", SubjectID: "MATH1", TeacherID: "T100", ClassroomKey: "101-A"},
	}}
	router := newSessionRouter(store)

	body := `{"subject_id":"MATH1","teacher_id":"T100","classroom_key":"101-A","date":"` + date + `","start_time":"08:00"}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "TEACHER_CONFLICT")
	assert.Len(t, store.items, 1)
}

func TestSessionHandlerScheduleBadPayload(t *testing.T) {
	router := newSessionRouter(&fakeSessionStore{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionHandlerTeacherConflictQuery(t *testing.T) {
	date := futureMonday()
	store := &fakeSessionStore{items: map[string]*models.ClassSession{
		"s1": {ID: "s1", Date: date, StartTime: "08:00", EndTime: "10:00", SubjectID: "MATH1", TeacherID: "T100", ClassroomKey: "101-A"},
	}}
	router := newSessionRouter(store)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/sessions/conflicts/teacher?teacher_id=T100&date="+date+"&start=09:00&end=11:00", nil)
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"conflict":true`)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/sessions/conflicts/teacher?teacher_id=T100&date="+date+"&start=10:00&end=12:00", nil)
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"conflict":false`)
}

func TestSessionHandlerDelete(t *testing.T) {
	date := futureMonday()
	store := &fakeSessionStore{items: map[string]*models.ClassSession{
		"s1": {ID: "s1", Date: date, StartTime: "08:00", EndTime: "10:00", SubjectID: "MATH1", TeacherID: "T100", ClassroomKey: "101-A"},
	}}
	router := newSessionRouter(store)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/sessions/s1", nil)
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, store.items)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodDelete, "/sessions/s1", nil)
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
