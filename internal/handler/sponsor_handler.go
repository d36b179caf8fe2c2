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

type sponsorService interface {
	Apply(ctx context.Context, req service.SponsorApplicationRequest) (*models.Sponsor, error)
	List(ctx context.Context, filter models.SponsorFilter) ([]models.Sponsor, *models.Pagination, error)
	UpdateStatus(ctx context.Context, id string, req service.UpdateSponsorStatusRequest) (*models.Sponsor, error)
	Delete(ctx context.Context, id string) error
}

// SponsorHandler exposes sponsorship endpoints.
type SponsorHandler struct {
	sponsors sponsorService
}

// NewSponsorHandler constructs SponsorHandler.
func NewSponsorHandler(sponsors sponsorService) *SponsorHandler {
	return &SponsorHandler{sponsors: sponsors}
}

// Apply godoc
// @Summary Apply to sponsor the academy
// @Tags Sponsors
// @Accept json
// @Produce json
// @Param payload body service.SponsorApplicationRequest true "Application"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /sponsors [post]
func (h *SponsorHandler) Apply(c *gin.Context) {
	var req service.SponsorApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid sponsorship payload"))
		return
	}
	sponsor, err := h.sponsors.Apply(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, sponsor)
}

// List godoc
// @Summary List sponsors
// @Tags Sponsors
// @Produce json
// @Security BearerAuth
// @Param status query string false "Status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /sponsors [get]
func (h *SponsorHandler) List(c *gin.Context) {
	page, size := pageQuery(c)
	sponsors, pagination, err := h.sponsors.List(c.Request.Context(), models.SponsorFilter{
		Status:   models.SponsorStatus(strings.ToUpper(strings.TrimSpace(c.Query("status")))),
		Page:     page,
		PageSize: size,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sponsors, pagination)
}

// UpdateStatus godoc
// @Summary Review a sponsor
// @Tags Sponsors
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Sponsor ID"
// @Param payload body service.UpdateSponsorStatusRequest true "Status"
// @Success 200 {object} response.Envelope
// @Router /sponsors/{id} [patch]
func (h *SponsorHandler) UpdateStatus(c *gin.Context) {
	var req service.UpdateSponsorStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid status payload"))
		return
	}
	sponsor, err := h.sponsors.UpdateStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sponsor, nil)
}

// Delete godoc
// @Summary Delete a sponsor
// @Tags Sponsors
// @Security BearerAuth
// @Param id path string true "Sponsor ID"
// @Success 204
// @Router /sponsors/{id} [delete]
func (h *SponsorHandler) Delete(c *gin.Context) {
	if err := h.sponsors.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
