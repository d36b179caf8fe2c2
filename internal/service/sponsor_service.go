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

type sponsorRepository interface {
	Create(ctx context.Context, sponsor *models.Sponsor) error
	FindByID(ctx context.Context, id string) (*models.Sponsor, error)
	List(ctx context.Context, filter models.SponsorFilter) ([]models.Sponsor, int, error)
	UpdateStatus(ctx context.Context, id string, status models.SponsorStatus) error
	Delete(ctx context.Context, id string) error
}

// SponsorApplicationRequest is the public sponsorship form.
type SponsorApplicationRequest struct {
	CompanyName string  `json:"companyName" validate:"required,max=200"`
	ContactName string  `json:"contactName" validate:"required,max=120"`
	Email       string  `json:"email" validate:"required,email"`
	Phone       *string `json:"phone" validate:"omitempty,max=32"`
	Website     *string `json:"website" validate:"omitempty,url"`
	Tier        string  `json:"tier" validate:"required,oneof=BRONZE SILVER GOLD PLATINUM"`
	Message     string  `json:"message" validate:"max=4000"`
}

// UpdateSponsorStatusRequest changes a sponsor's review state.
type UpdateSponsorStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=PENDING APPROVED REJECTED"`
}

// SponsorService manages sponsorship applications.
type SponsorService struct {
	repo      sponsorRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSponsorService constructs the service.
func NewSponsorService(repo sponsorRepository, validate *validator.Validate, logger *zap.Logger) *SponsorService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SponsorService{repo: repo, validator: validate, logger: logger}
}

// Apply records a sponsorship application.
func (s *SponsorService) Apply(ctx context.Context, req SponsorApplicationRequest) (*models.Sponsor, error) {
	req.Tier = strings.ToUpper(strings.TrimSpace(req.Tier))
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid sponsorship application")
	}
	sponsor := &models.Sponsor{
		CompanyName: strings.TrimSpace(req.CompanyName),
		ContactName: strings.TrimSpace(req.ContactName),
		Email:       req.Email,
		Phone:       req.Phone,
		Website:     req.Website,
		Tier:        models.SponsorTier(req.Tier),
		Message:     strings.TrimSpace(req.Message),
		Status:      models.SponsorStatusPending,
	}
	if err := s.repo.Create(ctx, sponsor); err != nil {
		return nil, internalError(err, "failed to save sponsorship application")
	}
	return sponsor, nil
}

// List returns sponsors with pagination.
func (s *SponsorService) List(ctx context.Context, filter models.SponsorFilter) ([]models.Sponsor, *models.Pagination, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "invalid status filter")
	}
	page, size, _ := models.PageBounds(filter.Page, filter.PageSize, 20)
	filter.Page, filter.PageSize = page, size
	sponsors, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list sponsors")
	}
	if sponsors == nil {
		sponsors = []models.Sponsor{}
	}
	return sponsors, models.NewPagination(page, size, total), nil
}

// UpdateStatus changes the review state and returns the updated sponsor.
func (s *SponsorService) UpdateStatus(ctx context.Context, id string, req UpdateSponsorStatusRequest) (*models.Sponsor, error) {
	req.Status = strings.ToUpper(strings.TrimSpace(req.Status))
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid status")
	}
	if !validID(id) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "sponsor not found")
	}
	if err := s.repo.UpdateStatus(ctx, id, models.SponsorStatus(req.Status)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "sponsor not found")
		}
		return nil, internalError(err, "failed to update sponsor")
	}
	sponsor, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, internalError(err, "failed to load sponsor")
	}
	return sponsor, nil
}

// Delete removes a sponsor.
func (s *SponsorService) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return appErrors.Clone(appErrors.ErrNotFound, "sponsor not found")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "sponsor not found")
		}
		return internalError(err, "failed to delete sponsor")
	}
	return nil
}
