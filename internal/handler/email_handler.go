package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academy-portal-api/internal/models"
	"github.com/noah-isme/academy-portal-api/internal/service"
	"github.com/noah-isme/academy-portal-api/pkg/response"
)

type campaignService interface {
	Send(ctx context.Context, actor *models.JWTClaims, req service.SendCampaignRequest) (*service.CampaignResult, error)
	Preview(subject, content string) (*service.CampaignPreview, error)
	ListAudience(ctx context.Context, source string) ([]string, error)
}

// EmailHandler exposes marketing email endpoints.
type EmailHandler struct {
	campaigns campaignService
}

// NewEmailHandler constructs EmailHandler.
func NewEmailHandler(campaigns campaignService) *EmailHandler {
	return &EmailHandler{campaigns: campaigns}
}

// SendMarketing godoc
// @Summary Send a marketing email
// @Description recipients is either an array of addresses or one string separated by commas, semicolons or newlines.
// @Tags Emails
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.SendCampaignRequest true "Campaign"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /emails/send-marketing [post]
func (h *EmailHandler) SendMarketing(c *gin.Context) {
	var req service.SendCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid campaign payload"))
		return
	}
	result, err := h.campaigns.Send(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

type previewRequest struct {
	Subject string `json:"subject"`
	Content string `json:"content"`
}

// Preview godoc
// @Summary Preview a marketing email
// @Tags Emails
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body previewRequest true "Content"
// @Success 200 {object} response.Envelope
// @Router /emails/preview [post]
func (h *EmailHandler) Preview(c *gin.Context) {
	var req previewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid preview payload"))
		return
	}
	preview, err := h.campaigns.Preview(req.Subject, req.Content)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, preview, nil)
}

// Audience godoc
// @Summary Suggest recipients
// @Tags Emails
// @Produce json
// @Security BearerAuth
// @Param source query string false "enrollments (default), volunteers or sponsors"
// @Success 200 {object} response.Envelope
// @Router /emails/audience [get]
func (h *EmailHandler) Audience(c *gin.Context) {
	emails, err := h.campaigns.ListAudience(c.Request.Context(), c.Query("source"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, emails, nil)
}
