package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campushq/timetable-api/internal/models"
)

func newExportFixture() (*ExportService, *mockSessionRepo) {
	sessions := &mockSessionRepo{items: map[string]*models.ClassSession{
		"s1": {ID: "s1", Date: "2026-01-19", StartTime: "08:00", EndTime: "10:00", SubjectID: "MATH1", TeacherID: "T100", ClassroomKey: "101-A"},
		"s2": {ID: "s2", Date: "2026-01-20", StartTime: "14:00", EndTime: "17:00", SubjectID: "GONE", TeacherID: "T100", ClassroomKey: "201-B"},
		"s3": {ID: "s3", Date: "2026-01-19", StartTime: "10:00", EndTime: "12:00", SubjectID: "MATH1", TeacherID: "T200", ClassroomKey: "102-A"},
	}}
	teachers := &mockTeacherDir{items: map[string]*models.Teacher{
		"T100": {ID: "T100", FirstName: "Alice", LastName: "Nwosu"},
	}}
	subjects := &mockSubjectCatalog{items: map[string]*models.Subject{
		"MATH1": {ID: "MATH1", Name: "Calculus", DurationHours: 2, Shift: models.ShiftDay},
	}}
	return NewExportService(sessions, teachers, subjects, nil, nil, zap.NewNop()), sessions
}

func TestExportTeacherScheduleCSV(t *testing.T) {
	svc, _ := newExportFixture()

	result, err := svc.TeacherSchedule(context.Background(), "T100", ScheduleFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", result.ContentType)
	assert.True(t, strings.HasSuffix(result.Filename, ".csv"))

	body := string(result.Payload)
	lines := strings.Split(strings.TrimSpace(body), "\n")
	// Header plus the two sessions belonging to T100.
	require.Len(t, lines, 3)
	assert.Equal(t, "Date,Day,Start,End,Subject,Classroom", lines[0])
	assert.Contains(t, body, "2026-01-19,Monday,08:00 am,10:00 am,Calculus,101-A")
	assert.NotContains(t, body, "102-A")
}

func TestExportTeacherScheduleUnknownSubject(t *testing.T) {
	svc, _ := newExportFixture()

	result, err := svc.TeacherSchedule(context.Background(), "T100", ScheduleFormatCSV)
	require.NoError(t, err)
	assert.Contains(t, string(result.Payload), "2026-01-20,Tuesday,02:00 pm,05:00 pm,Unknown,201-B")
}

func TestExportTeacherSchedulePDF(t *testing.T) {
	svc, _ := newExportFixture()

	result, err := svc.TeacherSchedule(context.Background(), "T100", ScheduleFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.True(t, strings.HasPrefix(string(result.Payload), "%PDF"))
}

func TestExportTeacherScheduleUnknownTeacher(t *testing.T) {
	svc, _ := newExportFixture()

	_, err := svc.TeacherSchedule(context.Background(), "NOPE", ScheduleFormatCSV)
	assert.Equal(t, "NOT_FOUND", rejectionCode(t, err))
}

func TestExportTeacherScheduleBadFormat(t *testing.T) {
	svc, _ := newExportFixture()

	_, err := svc.TeacherSchedule(context.Background(), "T100", ScheduleFormat("xlsx"))
	require.Error(t, err)
}
