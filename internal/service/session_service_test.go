package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campushq/timetable-api/internal/models"
	"github.com/campushq/timetable-api/internal/repository"
	appErrors "github.com/campushq/timetable-api/pkg/errors"
)

type mockSessionRepo struct {
	items     map[string]*models.ClassSession
	createErr error
	updateErr error
	nextID    int
}

func (m *mockSessionRepo) List(ctx context.Context, filter models.SessionFilter) ([]models.ClassSessionDetail, int, error) {
	details := make([]models.ClassSessionDetail, 0, len(m.items))
	for _, s := range m.items {
		details = append(details, models.ClassSessionDetail{ClassSession: *s})
	}
	return details, len(details), nil
}

func (m *mockSessionRepo) ListByDate(ctx context.Context, date string) ([]models.ClassSession, error) {
	var out []models.ClassSession
	for _, s := range m.items {
		if s.Date == date {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *mockSessionRepo) ListByTeacher(ctx context.Context, teacherID string) ([]models.ClassSession, error) {
	var out []models.ClassSession
	for _, s := range m.items {
		if s.TeacherID == teacherID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*models.ClassSession, error) {
	if s, ok := m.items[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSessionRepo) Create(ctx context.Context, session *models.ClassSession) error {
	if m.createErr != nil {
		return m.createErr
	}
	if m.items == nil {
		m.items = make(map[string]*models.ClassSession)
	}
	if session.ID == "" {
		m.nextID++
		session.ID = fmt.Sprintf("generated-%d", m.nextID)
	}
	cp := *session
	m.items[session.ID] = &cp
	return nil
}

func (m *mockSessionRepo) Update(ctx context.Context, session *models.ClassSession) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.items[session.ID]; !ok {
		return sql.ErrNoRows
	}
	cp := *session
	m.items[session.ID] = &cp
	return nil
}

func (m *mockSessionRepo) Delete(ctx context.Context, id string) error {
	delete(m.items, id)
	return nil
}

type mockTeacherDir struct {
	items map[string]*models.Teacher
}

func (m *mockTeacherDir) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	if t, ok := m.items[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

type mockSubjectCatalog struct {
	items map[string]*models.Subject
}

func (m *mockSubjectCatalog) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	if s, ok := m.items[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

type mockClassroomDir struct {
	items map[string]*models.Classroom
}

func (m *mockClassroomDir) FindByKey(ctx context.Context, number, block string) (*models.Classroom, error) {
	if c, ok := m.items[models.ClassroomKey(number, block)]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

// Fixture calendar: "now" is Thursday 2026-01-15. The following Monday is
// 2026-01-19 and the Sunday before it 2026-01-18.
func newSessionFixture(repo *mockSessionRepo) *SessionService {
	teachers := &mockTeacherDir{items: map[string]*models.Teacher{
		"T100": {ID: "T100", FirstName: "Alice", LastName: "Nwosu"},
		"T200": {ID: "T200", FirstName: "Bruno", LastName: "Costa"},
	}}
	subjects := &mockSubjectCatalog{items: map[string]*models.Subject{
		"MATH1": {ID: "MATH1", Name: "Calculus", DurationHours: 2, Shift: models.ShiftDay},
		"CHEM1": {ID: "CHEM1", Name: "Chemistry Lab", DurationHours: 3, RequiresLab: true, Shift: models.ShiftDay},
		"LATE1": {ID: "LATE1", Name: "Evening Seminar", DurationHours: 4, Shift: models.ShiftEvening},
	}}
	classrooms := &mockClassroomDir{items: map[string]*models.Classroom{
		"101-A": {Number: "101", Block: "A", Capacity: 30},
		"102-A": {Number: "102", Block: "A", Capacity: 30},
		"201-B": {Number: "201", Block: "B", Capacity: 20, IsLab: true},
	}}
	svc := NewSessionService(repo, teachers, subjects, classrooms, nil, validator.New(), zap.NewNop(), time.Sunday)
	svc.now = func() time.Time { return time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC) }
	return svc
}

func validRequest() ScheduleSessionRequest {
	return ScheduleSessionRequest{
		SubjectID:    "MATH1",
		TeacherID:    "T100",
		ClassroomKey: "101-A",
		Date:         "2026-01-19",
		StartTime:    "08:00",
	}
}

func rejectionCode(t *testing.T, err error) string {
	t.Helper()
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	require.NotNil(t, appErr)
	return appErr.Code
}

func TestSessionScheduleDerivesEndFromDuration(t *testing.T) {
	repo := &mockSessionRepo{}
	svc := newSessionFixture(repo)

	session, err := svc.Schedule(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, "10:00", session.EndTime)
	assert.NotEmpty(t, session.ID)
	assert.Len(t, repo.items, 1)
}

func TestSessionScheduleTouchingIntervalsDoNotConflict(t *testing.T) {
	repo := &mockSessionRepo{items: map[string]*models.ClassSession{
		"s1": {ID: "s1", Date: "2026-01-19", StartTime: "08:00", EndTime: "10:00", SubjectID: "MATH1", TeacherID: "T100", ClassroomKey: "101-A"},
	}}
	svc := newSessionFixture(repo)

	req := validRequest()
	req.StartTime = "10:00"
	_, err := svc.Schedule(context.Background(), req)
	require.NoError(t, err)
}

func TestSessionScheduleTeacherConflict(t *testing.T) {
	repo := &mockSessionRepo{items: map[string]*models.ClassSession{
		"s1": {ID: "s1", Date: "2026-01-19", StartTime: "09:00", EndTime: "11:00", SubjectID: "MATH1", TeacherID: "T100", ClassroomKey: "102-A"},
	}}
	svc := newSessionFixture(repo)

	_, err := svc.Schedule(context.Background(), validRequest())
	assert.Equal(t, "TEACHER_CONFLICT", rejectionCode(t, err))

	var conflictErr *models.SessionConflictError
	require.True(t, errors.As(err, &conflictErr))
	assert.Equal(t, "s1", conflictErr.Conflict.SessionID)
	assert.Contains(t, conflictErr.Message, "Alice Nwosu")
}

func TestSessionScheduleClassroomConflict(t *testing.T) {
	repo := &mockSessionRepo{items: map[string]*models.ClassSession{
		"s1": {ID: "s1", Date: "2026-01-19", StartTime: "09:00", EndTime: "11:00", SubjectID: "MATH1", TeacherID: "T200", ClassroomKey: "101-A"},
	}}
	svc := newSessionFixture(repo)

	_, err := svc.Schedule(context.Background(), validRequest())
	assert.Equal(t, "CLASSROOM_CONFLICT", rejectionCode(t, err))
	assert.Len(t, repo.items, 1, "rejected candidate must not be written")
}

func TestSessionScheduleRejectionIsRepeatable(t *testing.T) {
	repo := &mockSessionRepo{items: map[string]*models.ClassSession{
		"s1": {ID: "s1", Date: "2026-01-19", StartTime: "09:00", EndTime: "11:00", SubjectID: "MATH1", TeacherID: "T100", ClassroomKey: "102-A"},
	}}
	svc := newSessionFixture(repo)

	// The same rejected candidate produces the same rejection on every
	// attempt and leaves the store untouched each time.
	for i := 0; i < 3; i++ {
		_, err := svc.Schedule(context.Background(), validRequest())
		assert.Equal(t, "TEACHER_CONFLICT", rejectionCode(t, err))
		assert.Len(t, repo.items, 1)
	}
}

func TestSessionScheduleTeacherCheckedBeforeClassroom(t *testing.T) {
	// Same teacher and same room both collide; the teacher dimension wins.
	repo := &mockSessionRepo{items: map[string]*models.ClassSession{
		"s1": {ID: "s1", Date: "2026-01-19", StartTime: "08:00", EndTime: "10:00", SubjectID: "MATH1", TeacherID: "T100", ClassroomKey: "101-A"},
	}}
	svc := newSessionFixture(repo)

	_, err := svc.Schedule(context.Background(), validRequest())
	assert.Equal(t, "TEACHER_CONFLICT", rejectionCode(t, err))
}

func TestSessionScheduleLabSubjectNeedsLabRoom(t *testing.T) {
	repo := &mockSessionRepo{}
	svc := newSessionFixture(repo)

	req := validRequest()
	req.SubjectID = "CHEM1"
	_, err := svc.Schedule(context.Background(), req)
	assert.Equal(t, "INCOMPATIBLE_ROOM", rejectionCode(t, err))

	req.ClassroomKey = "201-B"
	_, err = svc.Schedule(context.Background(), req)
	require.NoError(t, err)
}

func TestSessionScheduleClosedWeekday(t *testing.T) {
	svc := newSessionFixture(&mockSessionRepo{})

	req := validRequest()
	req.Date = "2026-01-18"
	_, err := svc.Schedule(context.Background(), req)
	assert.Equal(t, "INVALID_DATE", rejectionCode(t, err))
}

func TestSessionScheduleTypedPastDate(t *testing.T) {
	svc := newSessionFixture(&mockSessionRepo{})

	req := validRequest()
	req.Date = "2026-01-10"
	_, err := svc.Schedule(context.Background(), req)
	assert.Equal(t, "INVALID_DATE", rejectionCode(t, err))

	// Picker-chosen dates skip the past-date check.
	req.DateFromPicker = true
	_, err = svc.Schedule(context.Background(), req)
	require.NoError(t, err)
}

func TestSessionScheduleUnknownReferences(t *testing.T) {
	svc := newSessionFixture(&mockSessionRepo{})

	req := validRequest()
	req.SubjectID = "NOPE"
	_, err := svc.Schedule(context.Background(), req)
	assert.Equal(t, "UNKNOWN_REFERENCE", rejectionCode(t, err))

	req = validRequest()
	req.TeacherID = "NOPE"
	_, err = svc.Schedule(context.Background(), req)
	assert.Equal(t, "UNKNOWN_REFERENCE", rejectionCode(t, err))

	req = validRequest()
	req.ClassroomKey = "999-C"
	_, err = svc.Schedule(context.Background(), req)
	assert.Equal(t, "UNKNOWN_REFERENCE", rejectionCode(t, err))
}

func TestSessionScheduleMalformedInput(t *testing.T) {
	svc := newSessionFixture(&mockSessionRepo{})

	req := validRequest()
	req.Date = "19/01/2026"
	_, err := svc.Schedule(context.Background(), req)
	assert.Equal(t, "INVALID_FORMAT", rejectionCode(t, err))

	req = validRequest()
	req.StartTime = "8am"
	_, err = svc.Schedule(context.Background(), req)
	assert.Equal(t, "INVALID_FORMAT", rejectionCode(t, err))
}

func TestSessionScheduleRejectsMidnightCrossing(t *testing.T) {
	svc := newSessionFixture(&mockSessionRepo{})

	req := validRequest()
	req.SubjectID = "LATE1"
	req.StartTime = "21:00"
	_, err := svc.Schedule(context.Background(), req)
	assert.Equal(t, "INVALID_FORMAT", rejectionCode(t, err))
}

func TestSessionScheduleSkipsMalformedStoredRecords(t *testing.T) {
	repo := &mockSessionRepo{items: map[string]*models.ClassSession{
		"bad": {ID: "bad", Date: "2026-01-19", StartTime: "9am", EndTime: "11am", SubjectID: "MATH1", TeacherID: "T100", ClassroomKey: "101-A"},
	}}
	svc := newSessionFixture(repo)

	_, err := svc.Schedule(context.Background(), validRequest())
	require.NoError(t, err)
}

func TestSessionScheduleConcurrentCommitLoss(t *testing.T) {
	repo := &mockSessionRepo{createErr: repository.ErrOverlap}
	svc := newSessionFixture(repo)

	_, err := svc.Schedule(context.Background(), validRequest())
	assert.Equal(t, "CONFLICT", rejectionCode(t, err))
}

func TestSessionScheduleStoreFailure(t *testing.T) {
	repo := &mockSessionRepo{createErr: errors.New("disk full")}
	svc := newSessionFixture(repo)

	_, err := svc.Schedule(context.Background(), validRequest())
	assert.Equal(t, "STORE_FAILURE", rejectionCode(t, err))
}

func TestSessionRescheduleExcludesSelf(t *testing.T) {
	repo := &mockSessionRepo{items: map[string]*models.ClassSession{
		"s1": {ID: "s1", Date: "2026-01-19", StartTime: "08:00", EndTime: "10:00", SubjectID: "MATH1", TeacherID: "T100", ClassroomKey: "101-A"},
	}}
	svc := newSessionFixture(repo)

	// Same slot shifted by an hour still overlaps the stored copy of s1,
	// which must not count against the edit.
	req := validRequest()
	req.StartTime = "09:00"
	session, err := svc.Reschedule(context.Background(), "s1", req)
	require.NoError(t, err)
	assert.Equal(t, "s1", session.ID)
	assert.Equal(t, "11:00", session.EndTime)
}

func TestSessionRescheduleStillConflictsWithOthers(t *testing.T) {
	repo := &mockSessionRepo{items: map[string]*models.ClassSession{
		"s1": {ID: "s1", Date: "2026-01-19", StartTime: "08:00", EndTime: "10:00", SubjectID: "MATH1", TeacherID: "T100", ClassroomKey: "101-A"},
		"s2": {ID: "s2", Date: "2026-01-19", StartTime: "11:00", EndTime: "13:00", SubjectID: "MATH1", TeacherID: "T100", ClassroomKey: "102-A"},
	}}
	svc := newSessionFixture(repo)

	req := validRequest()
	req.StartTime = "12:00"
	_, err := svc.Reschedule(context.Background(), "s1", req)
	assert.Equal(t, "TEACHER_CONFLICT", rejectionCode(t, err))
}

func TestSessionRescheduleNotFound(t *testing.T) {
	svc := newSessionFixture(&mockSessionRepo{})

	_, err := svc.Reschedule(context.Background(), "missing", validRequest())
	assert.Equal(t, "NOT_FOUND", rejectionCode(t, err))
}

func TestSessionDelete(t *testing.T) {
	repo := &mockSessionRepo{items: map[string]*models.ClassSession{
		"s1": {ID: "s1", Date: "2026-01-19", StartTime: "08:00", EndTime: "10:00", SubjectID: "MATH1", TeacherID: "T100", ClassroomKey: "101-A"},
	}}
	svc := newSessionFixture(repo)

	require.NoError(t, svc.Delete(context.Background(), "s1"))
	assert.Empty(t, repo.items)

	err := svc.Delete(context.Background(), "s1")
	assert.Equal(t, "NOT_FOUND", rejectionCode(t, err))
}

func TestHasTeacherConflictPredicate(t *testing.T) {
	repo := &mockSessionRepo{items: map[string]*models.ClassSession{
		"s1": {ID: "s1", Date: "2026-01-19", StartTime: "08:00", EndTime: "10:00", SubjectID: "MATH1", TeacherID: "T100", ClassroomKey: "101-A"},
	}}
	svc := newSessionFixture(repo)
	ctx := context.Background()

	conflict, err := svc.HasTeacherConflict(ctx, "T100", "2026-01-19", "09:00", "11:00", "")
	require.NoError(t, err)
	assert.True(t, conflict)

	// Symmetric: the stored interval against the candidate's slot.
	conflict, err = svc.HasTeacherConflict(ctx, "T100", "2026-01-19", "07:00", "09:00", "")
	require.NoError(t, err)
	assert.True(t, conflict)

	conflict, err = svc.HasTeacherConflict(ctx, "T100", "2026-01-19", "10:00", "12:00", "")
	require.NoError(t, err)
	assert.False(t, conflict)

	conflict, err = svc.HasTeacherConflict(ctx, "T200", "2026-01-19", "09:00", "11:00", "")
	require.NoError(t, err)
	assert.False(t, conflict)

	conflict, err = svc.HasTeacherConflict(ctx, "T100", "2026-01-19", "09:00", "11:00", "s1")
	require.NoError(t, err)
	assert.False(t, conflict)
}

func TestHasClassroomConflictPredicate(t *testing.T) {
	repo := &mockSessionRepo{items: map[string]*models.ClassSession{
		"s1": {ID: "s1", Date: "2026-01-19", StartTime: "08:00", EndTime: "10:00", SubjectID: "MATH1", TeacherID: "T100", ClassroomKey: "101-A"},
	}}
	svc := newSessionFixture(repo)
	ctx := context.Background()

	conflict, err := svc.HasClassroomConflict(ctx, "101-A", "2026-01-19", "09:00", "11:00", "")
	require.NoError(t, err)
	assert.True(t, conflict)

	conflict, err = svc.HasClassroomConflict(ctx, "102-A", "2026-01-19", "09:00", "11:00", "")
	require.NoError(t, err)
	assert.False(t, conflict)

	_, err = svc.HasClassroomConflict(ctx, "101-A", "2026-01-19", "11:00", "09:00", "")
	assert.Equal(t, "INVALID_FORMAT", rejectionCode(t, err))
}

func TestOverlapPredicate(t *testing.T) {
	parse := func(v string) time.Time {
		parsed, err := time.Parse(models.TimeLayout, v)
		require.NoError(t, err)
		return parsed
	}

	cases := []struct {
		name                       string
		aStart, aEnd, bStart, bEnd string
		want                       bool
	}{
		{"identical", "08:00", "10:00", "08:00", "10:00", true},
		{"contained", "08:00", "12:00", "09:00", "10:00", true},
		{"partial", "08:00", "10:00", "09:00", "11:00", true},
		{"touching end", "08:00", "10:00", "10:00", "12:00", false},
		{"touching start", "10:00", "12:00", "08:00", "10:00", false},
		{"disjoint", "08:00", "09:00", "10:00", "11:00", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := overlaps(parse(tc.aStart), parse(tc.aEnd), parse(tc.bStart), parse(tc.bEnd))
			assert.Equal(t, tc.want, got)
			// Overlap is symmetric in its two intervals.
			assert.Equal(t, tc.want, overlaps(parse(tc.bStart), parse(tc.bEnd), parse(tc.aStart), parse(tc.aEnd)))
		})
	}
}
