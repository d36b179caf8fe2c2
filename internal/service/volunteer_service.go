package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-portal-api/internal/models"
	appErrors "github.com/noah-isme/academy-portal-api/pkg/errors"
)

type volunteerRepository interface {
	Create(ctx context.Context, volunteer *models.Volunteer) error
	FindByID(ctx context.Context, id string) (*models.Volunteer, error)
	List(ctx context.Context, filter models.VolunteerFilter) ([]models.Volunteer, int, error)
	UpdateStatus(ctx context.Context, id string, status models.VolunteerStatus) error
	Delete(ctx context.Context, id string) error
}

// VolunteerRegistrationRequest is the public volunteer form.
type VolunteerRegistrationRequest struct {
	Name         string   `json:"name" validate:"required,max=120"`
	Email        string   `json:"email" validate:"required,email"`
	Phone        *string  `json:"phone" validate:"omitempty,max=32"`
	Skills       []string `json:"skills" validate:"required,min=1,dive,required"`
	Availability string   `json:"availability" validate:"required"`
	Motivation   string   `json:"motivation" validate:"max=4000"`
}

// UpdateVolunteerStatusRequest changes a volunteer's review state.
type UpdateVolunteerStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=PENDING ACCEPTED DECLINED"`
}

// VolunteerService manages volunteer registrations.
type VolunteerService struct {
	repo      volunteerRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewVolunteerService constructs the service.
func NewVolunteerService(repo volunteerRepository, validate *validator.Validate, logger *zap.Logger) *VolunteerService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VolunteerService{repo: repo, validator: validate, logger: logger}
}

// Register records a volunteer.
func (s *VolunteerService) Register(ctx context.Context, req VolunteerRegistrationRequest) (*models.Volunteer, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Skills = normalizeCourses(req.Skills)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid volunteer registration")
	}
	volunteer := &models.Volunteer{
		Name:         strings.TrimSpace(req.Name),
		Email:        req.Email,
		Phone:        req.Phone,
		Skills:       pq.StringArray(req.Skills),
		Availability: strings.TrimSpace(req.Availability),
		Motivation:   strings.TrimSpace(req.Motivation),
		Status:       models.VolunteerStatusPending,
	}
	if err := s.repo.Create(ctx, volunteer); err != nil {
		return nil, internalError(err, "failed to save volunteer registration")
	}
	return volunteer, nil
}

// List returns volunteers with pagination.
func (s *VolunteerService) List(ctx context.Context, filter models.VolunteerFilter) ([]models.Volunteer, *models.Pagination, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "invalid status filter")
	}
	page, size, _ := models.PageBounds(filter.Page, filter.PageSize, 20)
	filter.Page, filter.PageSize = page, size
	volunteers, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list volunteers")
	}
	if volunteers == nil {
		volunteers = []models.Volunteer{}
	}
	return volunteers, models.NewPagination(page, size, total), nil
}

// UpdateStatus changes the review state and returns the updated volunteer.
func (s *VolunteerService) UpdateStatus(ctx context.Context, id string, req UpdateVolunteerStatusRequest) (*models.Volunteer, error) {
	req.Status = strings.ToUpper(strings.TrimSpace(req.Status))
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid status")
	}
	if !validID(id) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "volunteer not found")
	}
	if err := s.repo.UpdateStatus(ctx, id, models.VolunteerStatus(req.Status)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "volunteer not found")
		}
		return nil, internalError(err, "failed to update volunteer")
	}
	volunteer, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, internalError(err, "failed to load volunteer")
	}
	return volunteer, nil
}

// Delete removes a volunteer.
func (s *VolunteerService) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return appErrors.Clone(appErrors.ErrNotFound, "volunteer not found")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "volunteer not found")
		}
		return internalError(err, "failed to delete volunteer")
	}
	return nil
}
