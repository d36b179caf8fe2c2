package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academy-portal-api/internal/models"
	"github.com/noah-isme/academy-portal-api/internal/service"
	"github.com/noah-isme/academy-portal-api/pkg/response"
)

type volunteerService interface {
	Register(ctx context.Context, req service.VolunteerRegistrationRequest) (*models.Volunteer, error)
	List(ctx context.Context, filter models.VolunteerFilter) ([]models.Volunteer, *models.Pagination, error)
	UpdateStatus(ctx context.Context, id string, req service.UpdateVolunteerStatusRequest) (*models.Volunteer, error)
	Delete(ctx context.Context, id string) error
}

// VolunteerHandler exposes volunteer endpoints.
type VolunteerHandler struct {
	volunteers volunteerService
}

// NewVolunteerHandler constructs VolunteerHandler.
func NewVolunteerHandler(volunteers volunteerService) *VolunteerHandler {
	return &VolunteerHandler{volunteers: volunteers}
}

// Register godoc
// @Summary Register as a volunteer
// @Tags Volunteers
// @Accept json
// @Produce json
// @Param payload body service.VolunteerRegistrationRequest true "Registration"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /volunteers [post]
func (h *VolunteerHandler) Register(c *gin.Context) {
	var req service.VolunteerRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid volunteer payload"))
		return
	}
	volunteer, err := h.volunteers.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, volunteer)
}

// List godoc
// @Summary List volunteers
// @Tags Volunteers
// @Produce json
// @Security BearerAuth
// @Param status query string false "Status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /volunteers [get]
func (h *VolunteerHandler) List(c *gin.Context) {
	page, size := pageQuery(c)
	volunteers, pagination, err := h.volunteers.List(c.Request.Context(), models.VolunteerFilter{
		Status:   models.VolunteerStatus(strings.ToUpper(strings.TrimSpace(c.Query("status")))),
		Page:     page,
		PageSize: size,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, volunteers, pagination)
}

// UpdateStatus godoc
// @Summary Review a volunteer
// @Tags Volunteers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Volunteer ID"
// @Param payload body service.UpdateVolunteerStatusRequest true "Status"
// @Success 200 {object} response.Envelope
// @Router /volunteers/{id} [patch]
func (h *VolunteerHandler) UpdateStatus(c *gin.Context) {
	var req service.UpdateVolunteerStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid status payload"))
		return
	}
	volunteer, err := h.volunteers.UpdateStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, volunteer, nil)
}

// Delete godoc
// @Summary Delete a volunteer
// @Tags Volunteers
// @Security BearerAuth
// @Param id path string true "Volunteer ID"
// @Success 204
// @Router /volunteers/{id} [delete]
func (h *VolunteerHandler) Delete(c *gin.Context) {
	if err := h.volunteers.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
