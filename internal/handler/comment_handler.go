package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academy-portal-api/internal/models"
	"github.com/noah-isme/academy-portal-api/internal/service"
	appErrors "github.com/noah-isme/academy-portal-api/pkg/errors"
	"github.com/noah-isme/academy-portal-api/pkg/response"
)

type commentService interface {
	Create(ctx context.Context, req service.CreateCommentRequest) (*models.Comment, error)
	ListApproved(ctx context.Context, slug string) ([]models.Comment, error)
	List(ctx context.Context, filter models.CommentFilter) ([]models.Comment, *models.Pagination, error)
	Approve(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// CommentHandler exposes blog comment endpoints.
type CommentHandler struct {
	comments commentService
}

// NewCommentHandler constructs CommentHandler.
func NewCommentHandler(comments commentService) *CommentHandler {
	return &CommentHandler{comments: comments}
}

// Create godoc
// @Summary Post a comment
// @Description Comments stay hidden until a moderator approves them.
// @Tags Comments
// @Accept json
// @Produce json
// @Param payload body service.CreateCommentRequest true "Comment"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /comments [post]
func (h *CommentHandler) Create(c *gin.Context) {
	var req service.CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid comment payload"))
		return
	}
	comment, err := h.comments.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusCreated, "Comment submitted for moderation", comment)
}

// ListApproved godoc
// @Summary List approved comments for a post
// @Tags Comments
// @Produce json
// @Param slug query string true "Post slug"
// @Success 200 {object} response.Envelope
// @Router /comments [get]
func (h *CommentHandler) ListApproved(c *gin.Context) {
	comments, err := h.comments.ListApproved(c.Request.Context(), c.Query("slug"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, comments, nil)
}

// List godoc
// @Summary List comments for moderation
// @Tags Comments
// @Produce json
// @Security BearerAuth
// @Param slug query string false "Post slug"
// @Param approved query bool false "Approval state"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/comments [get]
func (h *CommentHandler) List(c *gin.Context) {
	page, size := pageQuery(c)
	filter := models.CommentFilter{PostSlug: c.Query("slug"), Page: page, PageSize: size}
	if raw := c.Query("approved"); raw != "" {
		approved, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "approved must be true or false"))
			return
		}
		filter.Approved = &approved
	}
	comments, pagination, err := h.comments.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, comments, pagination)
}

// Approve godoc
// @Summary Approve a comment
// @Tags Comments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Comment ID"
// @Success 200 {object} response.Envelope
// @Router /admin/comments/{id}/approve [post]
func (h *CommentHandler) Approve(c *gin.Context) {
	if err := h.comments.Approve(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Comment approved", nil)
}

// Delete godoc
// @Summary Delete a comment
// @Tags Comments
// @Security BearerAuth
// @Param id path string true "Comment ID"
// @Success 204
// @Router /admin/comments/{id} [delete]
func (h *CommentHandler) Delete(c *gin.Context) {
	if err := h.comments.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
