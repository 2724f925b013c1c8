package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/campushq/timetable-api/internal/models"
	appErrors "github.com/campushq/timetable-api/pkg/errors"
	"github.com/campushq/timetable-api/pkg/export"
)

// ScheduleFormat enumerates supported export encodings.
type ScheduleFormat string

const (
	ScheduleFormatCSV ScheduleFormat = "csv"
	ScheduleFormatPDF ScheduleFormat = "pdf"
)

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ScheduleExport carries a rendered schedule plus download metadata.
type ScheduleExport struct {
	Payload     []byte
	Filename    string
	ContentType string
}

// ExportService renders per-teacher schedules as CSV or PDF.
type ExportService struct {
	sessions sessionRepository
	teachers teacherDirectory
	subjects subjectCatalog
	csv      csvRenderer
	pdf      pdfRenderer
	logger   *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(sessions sessionRepository, teachers teacherDirectory, subjects subjectCatalog, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{sessions: sessions, teachers: teachers, subjects: subjects, csv: csv, pdf: pdf, logger: logger}
}

// TeacherSchedule renders every session assigned to the teacher, ordered
// by date and start time. Sessions whose subject no longer exists are kept
// with the subject shown as Unknown.
func (s *ExportService) TeacherSchedule(ctx context.Context, teacherID string, format ScheduleFormat) (*ScheduleExport, error) {
	teacher, err := s.teachers.FindByID(ctx, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}

	sessions, err := s.sessions.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teacher sessions")
	}

	dataset := s.buildDataset(ctx, sessions)
	title := fmt.Sprintf("Schedule for %s", teacher.DisplayName())

	var payload []byte
	switch format {
	case ScheduleFormatCSV:
		payload, err = s.csv.Render(dataset)
	case ScheduleFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render schedule")
	}

	return &ScheduleExport{
		Payload:     payload,
		Filename:    s.buildFilename(teacher, format),
		ContentType: contentTypeFor(format),
	}, nil
}

func (s *ExportService) buildDataset(ctx context.Context, sessions []models.ClassSession) export.Dataset {
	subjectNames := map[string]string{}
	rows := make([]map[string]string, 0, len(sessions))
	for _, session := range sessions {
		name, ok := subjectNames[session.SubjectID]
		if !ok {
			name = s.subjectName(ctx, session.SubjectID)
			subjectNames[session.SubjectID] = name
		}
		rows = append(rows, map[string]string{
			"Date":      session.Date,
			"Day":       dayName(session.Date),
			"Start":     clockTwelveHour(session.StartTime),
			"End":       clockTwelveHour(session.EndTime),
			"Subject":   name,
			"Classroom": session.ClassroomKey,
		})
	}
	return export.Dataset{
		Headers: []string{"Date", "Day", "Start", "End", "Subject", "Classroom"},
		Rows:    rows,
	}
}

func (s *ExportService) subjectName(ctx context.Context, subjectID string) string {
	subject, err := s.subjects.FindByID(ctx, subjectID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("failed to resolve subject for export", zap.String("subject_id", subjectID), zap.Error(err))
		}
		return "Unknown"
	}
	return subject.Name
}

func (s *ExportService) buildFilename(teacher *models.Teacher, format ScheduleFormat) string {
	slug := strings.ToLower(strings.ReplaceAll(teacher.DisplayName(), " ", "_"))
	timestamp := time.Now().UTC().Format("20060102")
	return fmt.Sprintf("schedule_%s_%s.%s", slug, timestamp, format)
}

func dayName(date string) string {
	parsed, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return ""
	}
	return parsed.Weekday().String()
}

// clockTwelveHour converts a stored HH:MM value to 12-hour am/pm notation.
// Unparsable values pass through unchanged.
func clockTwelveHour(raw string) string {
	parsed, err := time.Parse(models.TimeLayout, raw)
	if err != nil {
		return raw
	}
	return parsed.Format("03:04 pm")
}

func contentTypeFor(format ScheduleFormat) string {
	if format == ScheduleFormatPDF {
		return "application/pdf"
	}
	return "text/csv"
}
