package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campushq/timetable-api/internal/models"
	"github.com/campushq/timetable-api/internal/service"
	appErrors "github.com/campushq/timetable-api/pkg/errors"
	"github.com/campushq/timetable-api/pkg/response"
)

// SessionHandler wires the scheduling core to HTTP routes.
type SessionHandler struct {
	sessions *service.SessionService
	metrics  *service.MetricsService
}

// NewSessionHandler constructs a new SessionHandler.
func NewSessionHandler(sessions *service.SessionService, metrics *service.MetricsService) *SessionHandler {
	return &SessionHandler{sessions: sessions, metrics: metrics}
}

// List godoc
// @Summary List scheduled sessions
// @Tags Sessions
// @Produce json
// @Param date query string false "Filter by date (YYYY-MM-DD)"
// @Param teacher_id query string false "Filter by teacher"
// @Param subject_id query string false "Filter by subject"
// @Param classroom query string false "Filter by classroom key"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /sessions [get]
func (h *SessionHandler) List(c *gin.Context) {
	filter := models.SessionFilter{
		Date:         c.Query("date"),
		TeacherID:    c.Query("teacher_id"),
		SubjectID:    c.Query("subject_id"),
		ClassroomKey: c.Query("classroom"),
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		filter.PageSize = size
	}

	sessions, pagination, err := h.sessions.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, pagination)
}

// Schedule godoc
// @Summary Schedule a class session
// @Description Validates the candidate against calendar policy, teacher and classroom availability and room compatibility before committing.
// @Tags Sessions
// @Accept json
// @Produce json
// @Param payload body service.ScheduleSessionRequest true "Session payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /sessions [post]
func (h *SessionHandler) Schedule(c *gin.Context) {
	var req service.ScheduleSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid session payload"))
		return
	}
	session, err := h.sessions.Schedule(c.Request.Context(), req)
	if err != nil {
		h.recordRejection(err)
		response.Error(c, err)
		return
	}
	response.Created(c, session)
}

// Reschedule godoc
// @Summary Reschedule a class session
// @Description Re-validates the candidate against every session except the one being edited, then overwrites it.
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body service.ScheduleSessionRequest true "Session payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /sessions/{id} [put]
func (h *SessionHandler) Reschedule(c *gin.Context) {
	var req service.ScheduleSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid session payload"))
		return
	}
	session, err := h.sessions.Reschedule(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.recordRejection(err)
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// Delete godoc
// @Summary Delete a class session
// @Tags Sessions
// @Param id path string true "Session ID"
// @Success 204
// @Router /sessions/{id} [delete]
func (h *SessionHandler) Delete(c *gin.Context) {
	if err := h.sessions.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// TeacherConflict godoc
// @Summary Check teacher availability for a slot
// @Description Pure predicate used by live form validation. Reports whether the teacher is already booked during the interval.
// @Tags Sessions
// @Produce json
// @Param teacher_id query string true "Teacher ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Param start query string true "Start time (HH:MM)"
// @Param end query string true "End time (HH:MM)"
// @Param exclude query string false "Session id to skip"
// @Success 200 {object} response.Envelope
// @Router /sessions/conflicts/teacher [get]
func (h *SessionHandler) TeacherConflict(c *gin.Context) {
	conflict, err := h.sessions.HasTeacherConflict(
		c.Request.Context(),
		c.Query("teacher_id"),
		c.Query("date"),
		c.Query("start"),
		c.Query("end"),
		c.Query("exclude"),
	)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"conflict": conflict}, nil)
}

// ClassroomConflict godoc
// @Summary Check classroom availability for a slot
// @Description Pure predicate used by live form validation. Reports whether the classroom is occupied during the interval.
// @Tags Sessions
// @Produce json
// @Param classroom query string true "Classroom key (number-block)"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Param start query string true "Start time (HH:MM)"
// @Param end query string true "End time (HH:MM)"
// @Param exclude query string false "Session id to skip"
// @Success 200 {object} response.Envelope
// @Router /sessions/conflicts/classroom [get]
func (h *SessionHandler) ClassroomConflict(c *gin.Context) {
	conflict, err := h.sessions.HasClassroomConflict(
		c.Request.Context(),
		c.Query("classroom"),
		c.Query("date"),
		c.Query("start"),
		c.Query("end"),
		c.Query("exclude"),
	)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"conflict": conflict}, nil)
}

// recordRejection counts client-side scheduling rejections by code.
func (h *SessionHandler) recordRejection(err error) {
	if h.metrics == nil {
		return
	}
	appErr := appErrors.FromError(err)
	if appErr.Status >= http.StatusBadRequest && appErr.Status < http.StatusInternalServerError {
		h.metrics.RecordRejection(appErr.Code)
	}
}
