package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academy-portal-api/internal/models"
	"github.com/noah-isme/academy-portal-api/internal/service"
	appErrors "github.com/noah-isme/academy-portal-api/pkg/errors"
	"github.com/noah-isme/academy-portal-api/pkg/response"
)

type enrollmentService interface {
	Apply(ctx context.Context, req service.ApplyEnrollmentRequest) (*models.Enrollment, error)
	List(ctx context.Context, filter models.EnrollmentFilter) (*service.EnrollmentListResult, error)
	Get(ctx context.Context, id string) (*models.Enrollment, error)
	UpdateStatus(ctx context.Context, actor *models.JWTClaims, req service.UpdateEnrollmentStatusRequest) (*models.Enrollment, error)
	SendStatusEmail(ctx context.Context, id string) error
	PublicLookup(ctx context.Context, email string) ([]models.PublicEnrollment, error)
	GenerateOfferLetter(ctx context.Context, actor *models.JWTClaims, id string) (*service.OfferLetter, error)
	DownloadOfferLetter(ctx context.Context, token string) (*service.OfferLetterFile, error)
	Export(ctx context.Context, filter models.EnrollmentFilter) ([]byte, error)
}

// EnrollmentHandler exposes bootcamp enrollment endpoints.
type EnrollmentHandler struct {
	enrollments enrollmentService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments enrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// Apply godoc
// @Summary Submit a bootcamp application
// @Tags Bootcamp
// @Accept json
// @Produce json
// @Param payload body service.ApplyEnrollmentRequest true "Application"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /bootcamp [post]
func (h *EnrollmentHandler) Apply(c *gin.Context) {
	var req service.ApplyEnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid application payload"))
		return
	}
	enrollment, err := h.enrollments.Apply(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// List godoc
// @Summary List bootcamp applications
// @Tags Bootcamp
// @Produce json
// @Security BearerAuth
// @Param status query string false "PENDING, APPROVED, REJECTED or WAITLISTED"
// @Param search query string false "Name, email or phone"
// @Param page query int false "Page"
// @Param limit query int false "Page size (max 100)"
// @Success 200 {object} response.Envelope
// @Router /bootcamp [get]
func (h *EnrollmentHandler) List(c *gin.Context) {
	filter := enrollmentFilter(c)
	result, err := h.enrollments.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, result.Pagination)
}

func enrollmentFilter(c *gin.Context) models.EnrollmentFilter {
	page, size := pageQuery(c)
	return models.EnrollmentFilter{
		Status:   models.EnrollmentStatus(strings.ToUpper(strings.TrimSpace(c.Query("status")))),
		Search:   c.Query("search"),
		Page:     page,
		PageSize: size,
	}
}

// Get godoc
// @Summary Get a bootcamp application
// @Tags Bootcamp
// @Produce json
// @Security BearerAuth
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /bootcamp/{id} [get]
func (h *EnrollmentHandler) Get(c *gin.Context) {
	enrollment, err := h.enrollments.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// UpdateStatus godoc
// @Summary Review a bootcamp application
// @Description Approving an applicant with several courses requires selectedCourse.
// @Tags Bootcamp
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.UpdateEnrollmentStatusRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /bootcamp [patch]
func (h *EnrollmentHandler) UpdateStatus(c *gin.Context) {
	var req service.UpdateEnrollmentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid status payload"))
		return
	}
	enrollment, err := h.enrollments.UpdateStatus(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Enrollment status updated", enrollment)
}

// SendStatusEmail godoc
// @Summary Email the applicant their current status
// @Tags Bootcamp
// @Produce json
// @Security BearerAuth
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /bootcamp/{id}/email [post]
func (h *EnrollmentHandler) SendStatusEmail(c *gin.Context) {
	if err := h.enrollments.SendStatusEmail(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Status email sent", nil)
}

// PublicLookup godoc
// @Summary Look up approved enrollments by email
// @Tags Bootcamp
// @Produce json
// @Param email query string true "Applicant email"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /bootcamp/public [get]
func (h *EnrollmentHandler) PublicLookup(c *gin.Context) {
	rows, err := h.enrollments.PublicLookup(c.Request.Context(), c.Query("email"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// GenerateOfferLetter godoc
// @Summary Generate an offer letter PDF
// @Tags Bootcamp
// @Produce json
// @Security BearerAuth
// @Param id path string true "Enrollment ID"
// @Success 201 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /bootcamp/{id}/offer-letter [post]
func (h *EnrollmentHandler) GenerateOfferLetter(c *gin.Context) {
	letter, err := h.enrollments.GenerateOfferLetter(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, letter)
}

// DownloadOfferLetter godoc
// @Summary Download an offer letter
// @Tags Documents
// @Produce application/pdf
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Failure 401 {object} response.Envelope
// @Router /documents/offer-letters/{token} [get]
func (h *EnrollmentHandler) DownloadOfferLetter(c *gin.Context) {
	token := strings.TrimSpace(c.Param("token"))
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	file, err := h.enrollments.DownloadOfferLetter(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, "application/pdf", file.Content)
}

// Export godoc
// @Summary Export bootcamp applications as CSV
// @Tags Bootcamp
// @Produce text/csv
// @Security BearerAuth
// @Param status query string false "Status filter"
// @Param search query string false "Search"
// @Success 200 {file} file
// @Router /bootcamp/export [get]
func (h *EnrollmentHandler) Export(c *gin.Context) {
	content, err := h.enrollments.Export(c.Request.Context(), enrollmentFilter(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, "bootcamp-enrollments.csv", "text/csv", content)
}
