package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academy-portal-api/internal/models"
	"github.com/noah-isme/academy-portal-api/internal/service"
	"github.com/noah-isme/academy-portal-api/pkg/response"
)

type attendanceService interface {
	CreateSession(ctx context.Context, actor *models.JWTClaims, req service.CreateAttendanceSessionRequest) (*service.CreatedAttendanceSession, error)
	ListSessions(ctx context.Context, filter models.AttendanceSessionFilter) ([]models.AttendanceSessionSummary, *models.Pagination, error)
	ListPublic(ctx context.Context, course string) ([]models.PublicAttendanceSession, error)
	GetPublic(ctx context.Context, id string) (*models.PublicAttendanceSession, error)
	Submit(ctx context.Context, sessionID string, req service.SubmitAttendanceRequest) (*models.AttendanceSubmissionResult, error)
	ListResponses(ctx context.Context, sessionID string) (*service.AttendanceResponses, error)
	ExportResponses(ctx context.Context, sessionID, format string) (*service.AttendanceExport, error)
	CloseSession(ctx context.Context, actor *models.JWTClaims, sessionID string) (*models.AttendanceSession, error)
}

// AttendanceHandler exposes attendance session endpoints.
type AttendanceHandler struct {
	attendance attendanceService
}

// NewAttendanceHandler constructs AttendanceHandler.
func NewAttendanceHandler(attendance attendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

// CreateSession godoc
// @Summary Open an attendance session
// @Description expirationHours is one of 1, 2, 6, 12, 24 or 48 and defaults to 2.
// @Tags Attendance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.CreateAttendanceSessionRequest true "Session"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /attendance [post]
func (h *AttendanceHandler) CreateSession(c *gin.Context) {
	var req service.CreateAttendanceSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid session payload"))
		return
	}
	created, err := h.attendance.CreateSession(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// ListSessions godoc
// @Summary List attendance sessions
// @Tags Attendance
// @Produce json
// @Security BearerAuth
// @Param course query string false "Course"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /attendance [get]
func (h *AttendanceHandler) ListSessions(c *gin.Context) {
	page, size := pageQuery(c)
	sessions, pagination, err := h.attendance.ListSessions(c.Request.Context(), models.AttendanceSessionFilter{
		Course:   c.Query("course"),
		Page:     page,
		PageSize: size,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, pagination)
}

// ListPublic godoc
// @Summary List open sessions for a course
// @Tags Attendance
// @Produce json
// @Param course query string true "Course"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /attendance/public [get]
func (h *AttendanceHandler) ListPublic(c *gin.Context) {
	sessions, err := h.attendance.ListPublic(c.Request.Context(), c.Query("course"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, nil)
}

// GetPublic godoc
// @Summary Get a session for answering
// @Tags Attendance
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /attendance/{id} [get]
func (h *AttendanceHandler) GetPublic(c *gin.Context) {
	session, err := h.attendance.GetPublic(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// Submit godoc
// @Summary Submit attendance
// @Tags Attendance
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body service.SubmitAttendanceRequest true "Answer"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 410 {object} response.Envelope
// @Router /attendance/{id} [post]
func (h *AttendanceHandler) Submit(c *gin.Context) {
	var req service.SubmitAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid attendance payload"))
		return
	}
	result, err := h.attendance.Submit(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, result.Message, result)
}

// ListResponses godoc
// @Summary List responses for a session
// @Tags Attendance
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /attendance/{id}/responses [get]
func (h *AttendanceHandler) ListResponses(c *gin.Context) {
	listing, err := h.attendance.ListResponses(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, listing, nil)
}

// ExportResponses godoc
// @Summary Export responses
// @Tags Attendance
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Router /attendance/{id}/responses/export [get]
func (h *AttendanceHandler) ExportResponses(c *gin.Context) {
	export, err := h.attendance.ExportResponses(c.Request.Context(), c.Param("id"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, export.Filename, export.ContentType, export.Content)
}

// CloseSession godoc
// @Summary Close a session early
// @Tags Attendance
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /attendance/{id}/close [post]
func (h *AttendanceHandler) CloseSession(c *gin.Context) {
	session, err := h.attendance.CloseSession(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Attendance session closed", session)
}
