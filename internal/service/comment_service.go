package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-portal-api/internal/models"
	appErrors "github.com/noah-isme/academy-portal-api/pkg/errors"
)

type commentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	List(ctx context.Context, filter models.CommentFilter) ([]models.Comment, int, error)
	Approve(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// CreateCommentRequest is a reader comment submission.
type CreateCommentRequest struct {
	PostSlug    string `json:"postSlug" validate:"required,max=200"`
	AuthorName  string `json:"authorName" validate:"required,max=120"`
	AuthorEmail string `json:"authorEmail" validate:"required,email"`
	Content     string `json:"content" validate:"required,max=2000"`
}

// CommentService moderates blog comments.
type CommentService struct {
	repo      commentRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCommentService constructs the service.
func NewCommentService(repo commentRepository, validate *validator.Validate, logger *zap.Logger) *CommentService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommentService{repo: repo, validator: validate, logger: logger}
}

// Create stores a comment awaiting approval.
func (s *CommentService) Create(ctx context.Context, req CreateCommentRequest) (*models.Comment, error) {
	req.PostSlug = strings.TrimSpace(req.PostSlug)
	req.AuthorName = strings.TrimSpace(req.AuthorName)
	req.AuthorEmail = strings.ToLower(strings.TrimSpace(req.AuthorEmail))
	req.Content = strings.TrimSpace(req.Content)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid comment")
	}
	comment := &models.Comment{
		PostSlug:    req.PostSlug,
		AuthorName:  req.AuthorName,
		AuthorEmail: req.AuthorEmail,
		Content:     req.Content,
	}
	if err := s.repo.Create(ctx, comment); err != nil {
		return nil, internalError(err, "failed to save comment")
	}
	return comment, nil
}

// ListApproved returns published comments for a post.
func (s *CommentService) ListApproved(ctx context.Context, slug string) ([]models.Comment, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "slug is required")
	}
	approved := true
	comments, _, err := s.repo.List(ctx, models.CommentFilter{PostSlug: slug, Approved: &approved, PageSize: 100})
	if err != nil {
		return nil, internalError(err, "failed to list comments")
	}
	if comments == nil {
		comments = []models.Comment{}
	}
	return comments, nil
}

// List returns comments for moderation.
func (s *CommentService) List(ctx context.Context, filter models.CommentFilter) ([]models.Comment, *models.Pagination, error) {
	page, size, _ := models.PageBounds(filter.Page, filter.PageSize, 50)
	filter.Page, filter.PageSize = page, size
	comments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list comments")
	}
	if comments == nil {
		comments = []models.Comment{}
	}
	return comments, models.NewPagination(page, size, total), nil
}

// Approve publishes a comment.
func (s *CommentService) Approve(ctx context.Context, id string) error {
	if !validID(id) {
		return appErrors.Clone(appErrors.ErrNotFound, "comment not found")
	}
	if err := s.repo.Approve(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "comment not found")
		}
		return internalError(err, "failed to approve comment")
	}
	return nil
}

// Delete removes a comment.
func (s *CommentService) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return appErrors.Clone(appErrors.ErrNotFound, "comment not found")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "comment not found")
		}
		return internalError(err, "failed to delete comment")
	}
	return nil
}
