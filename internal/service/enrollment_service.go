package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-portal-api/internal/models"
	appErrors "github.com/noah-isme/academy-portal-api/pkg/errors"
	"github.com/noah-isme/academy-portal-api/pkg/export"
	"github.com/noah-isme/academy-portal-api/pkg/jobs"
	"github.com/noah-isme/academy-portal-api/pkg/mailer"
)

// JobTypeEnrollmentStatusEmail identifies queued status notification jobs.
const JobTypeEnrollmentStatusEmail = "enrollment.status_email"

type enrollmentRepository interface {
	Create(ctx context.Context, enrollment *models.Enrollment) error
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, int, error)
	ListAll(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, error)
	CountByStatus(ctx context.Context, filter models.EnrollmentFilter) (*models.EnrollmentStatusCounts, error)
	UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus, assignedCourse, notes *string, updatedAt time.Time) error
	SetOfferLetter(ctx context.Context, id, ref string, updatedAt time.Time) error
	ListApprovedByEmail(ctx context.Context, email string) ([]models.PublicEnrollment, error)
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type jobDispatcher interface {
	Enqueue(ctx context.Context, job jobs.Job) error
}

type documentStorage interface {
	Save(relPath string, data []byte) (string, error)
	Read(relPath string) ([]byte, error)
}

type documentSigner interface {
	Generate(documentID, relPath string) (string, time.Time, error)
	Parse(token string) (documentID, relPath string, err error)
}

// ApplyEnrollmentRequest is the public bootcamp application payload.
type ApplyEnrollmentRequest struct {
	Name              string   `json:"name" validate:"required,max=120"`
	Email             string   `json:"email" validate:"required,email"`
	Phone             string   `json:"phone" validate:"required,max=32"`
	Age               int      `json:"age" validate:"required,min=1,max=120"`
	EducationLevel    string   `json:"educationLevel" validate:"required"`
	CoursesInterested []string `json:"coursesInterested" validate:"required,min=1,dive,required"`
	HasLaptop         bool     `json:"hasLaptop"`
	Experience        string   `json:"experience"`
	Motivation        string   `json:"motivation" validate:"required"`
	HeardAbout        string   `json:"heardAbout"`
}

// UpdateEnrollmentStatusRequest is the admin review decision.
type UpdateEnrollmentStatusRequest struct {
	EnrollmentID   string  `json:"enrollmentId" validate:"required"`
	Status         string  `json:"status" validate:"required,oneof=PENDING APPROVED REJECTED WAITLISTED"`
	Notes          *string `json:"notes"`
	SelectedCourse *string `json:"selectedCourse"`
}

// EnrollmentListResult bundles a page of enrollments with per-status counts.
type EnrollmentListResult struct {
	Enrollments []models.Enrollment           `json:"enrollments"`
	Counts      models.EnrollmentStatusCounts `json:"counts"`
	Pagination  *models.Pagination            `json:"-"`
}

// OfferLetter describes a generated offer letter download.
type OfferLetter struct {
	EnrollmentID string    `json:"enrollmentId"`
	Token        string    `json:"token"`
	URL          string    `json:"url"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// OfferLetterFile is a resolved letter ready to stream.
type OfferLetterFile struct {
	Filename string
	Content  []byte
}

// EnrollmentServiceConfig tunes bootcamp review behaviour.
type EnrollmentServiceConfig struct {
	NotifyOnStatusChange bool
	CountsCacheTTL       time.Duration
	Organization         string
	APIPrefix            string
}

// EnrollmentServiceParams groups constructor dependencies.
type EnrollmentServiceParams struct {
	Repo      enrollmentRepository
	Cache     *CacheService
	Sender    mailer.Sender
	Queue     jobDispatcher
	Storage   documentStorage
	Signer    documentSigner
	Audit     auditLogger
	Metrics   *MetricsService
	Validator *validator.Validate
	Logger    *zap.Logger
	Config    EnrollmentServiceConfig
}

// EnrollmentService drives the bootcamp application lifecycle.
type EnrollmentService struct {
	repo      enrollmentRepository
	cache     *CacheService
	sender    mailer.Sender
	queue     jobDispatcher
	storage   documentStorage
	signer    documentSigner
	audit     auditLogger
	metrics   *MetricsService
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	validator *validator.Validate
	logger    *zap.Logger
	cfg       EnrollmentServiceConfig
	now       func() time.Time
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(params EnrollmentServiceParams) *EnrollmentService {
	cfg := params.Config
	if cfg.CountsCacheTTL <= 0 {
		cfg.CountsCacheTTL = time.Minute
	}
	if cfg.Organization == "" {
		cfg.Organization = "Academy"
	}
	validate := params.Validator
	if validate == nil {
		validate = NewValidator()
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		repo:      params.Repo,
		cache:     params.Cache,
		sender:    params.Sender,
		queue:     params.Queue,
		storage:   params.Storage,
		signer:    params.Signer,
		audit:     params.Audit,
		metrics:   params.Metrics,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Apply records a new PENDING application.
func (s *EnrollmentService) Apply(ctx context.Context, req ApplyEnrollmentRequest) (*models.Enrollment, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Phone = strings.TrimSpace(req.Phone)
	req.CoursesInterested = normalizeCourses(req.CoursesInterested)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid application")
	}

	enrollment := &models.Enrollment{
		Name:              req.Name,
		Email:             req.Email,
		Phone:             req.Phone,
		Age:               req.Age,
		EducationLevel:    strings.TrimSpace(req.EducationLevel),
		CoursesInterested: pq.StringArray(req.CoursesInterested),
		HasLaptop:         req.HasLaptop,
		Experience:        strings.TrimSpace(req.Experience),
		Motivation:        strings.TrimSpace(req.Motivation),
		HeardAbout:        strings.TrimSpace(req.HeardAbout),
		Status:            models.EnrollmentStatusPending,
	}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		return nil, internalError(err, "failed to save application")
	}
	s.cache.Invalidate(ctx, cachePrefixEnrollmentCounts+"*")
	s.logger.Info("bootcamp application received", zap.String("enrollment_id", enrollment.ID))
	return enrollment, nil
}

// List returns a page of enrollments with aggregate counts per status.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) (*EnrollmentListResult, error) {
	filter.Normalize()
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid status filter")
	}
	enrollments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, internalError(err, "failed to list enrollments")
	}
	counts, err := s.statusCounts(ctx, filter)
	if err != nil {
		return nil, err
	}
	if enrollments == nil {
		enrollments = []models.Enrollment{}
	}
	return &EnrollmentListResult{
		Enrollments: enrollments,
		Counts:      *counts,
		Pagination:  models.NewPagination(filter.Page, filter.PageSize, total),
	}, nil
}

func (s *EnrollmentService) statusCounts(ctx context.Context, filter models.EnrollmentFilter) (*models.EnrollmentStatusCounts, error) {
	key := enrollmentCountsKey(filter.Search)
	var cached models.EnrollmentStatusCounts
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}
	counts, err := s.repo.CountByStatus(ctx, filter)
	if err != nil {
		return nil, internalError(err, "failed to count enrollments")
	}
	s.cache.Set(ctx, key, counts, s.cfg.CountsCacheTTL)
	return counts, nil
}

// Get returns a single enrollment.
func (s *EnrollmentService) Get(ctx context.Context, id string) (*models.Enrollment, error) {
	if !validID(id) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
	}
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, internalError(err, "failed to load enrollment")
	}
	return enrollment, nil
}

// UpdateStatus applies a review decision. Approving a multi-course applicant requires a selected
// course from their interests; a single-course applicant is assigned that course automatically.
// Any status other than APPROVED clears the assignment.
func (s *EnrollmentService) UpdateStatus(ctx context.Context, actor *models.JWTClaims, req UpdateEnrollmentStatusRequest) (*models.Enrollment, error) {
	req.Status = strings.ToUpper(strings.TrimSpace(req.Status))
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid status update")
	}
	enrollment, err := s.Get(ctx, req.EnrollmentID)
	if err != nil {
		return nil, err
	}

	status := models.EnrollmentStatus(req.Status)
	assigned, err := resolveAssignedCourse(enrollment, status, req.SelectedCourse)
	if err != nil {
		return nil, err
	}

	updatedAt := s.now().UTC()
	if err := s.repo.UpdateStatus(ctx, enrollment.ID, status, assigned, req.Notes, updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, internalError(err, "failed to update enrollment status")
	}

	previous := enrollment.Status
	enrollment.Status = status
	enrollment.AssignedCourse = assigned
	if req.Notes != nil {
		enrollment.Notes = req.Notes
	}
	enrollment.UpdatedAt = updatedAt

	s.cache.Invalidate(ctx, cachePrefixEnrollmentCounts+"*")
	s.recordAudit(ctx, actor, models.AuditActionEnrollmentStatusUpdate, enrollment.ID, fmt.Sprintf(`{"from":%q,"to":%q}`, previous, status))

	if s.cfg.NotifyOnStatusChange && s.queue != nil {
		if err := s.queue.Enqueue(ctx, jobs.Job{Type: JobTypeEnrollmentStatusEmail, Payload: enrollment.ID}); err != nil {
			s.logger.Warn("failed to enqueue status email", zap.String("enrollment_id", enrollment.ID), zap.Error(err))
		}
	}
	return enrollment, nil
}

func resolveAssignedCourse(enrollment *models.Enrollment, status models.EnrollmentStatus, selected *string) (*string, error) {
	if status != models.EnrollmentStatusApproved {
		return nil, nil
	}
	choice := ""
	if selected != nil {
		choice = strings.TrimSpace(*selected)
	}
	switch len(enrollment.CoursesInterested) {
	case 0:
		return nil, appErrors.Clone(appErrors.ErrValidation, "enrollment has no courses to assign")
	case 1:
		course := enrollment.CoursesInterested[0]
		if choice != "" && choice != course {
			return nil, appErrors.Clone(appErrors.ErrValidation, "selectedCourse must be one of the applicant's courses")
		}
		return &course, nil
	default:
		if choice == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "selectedCourse is required when the applicant chose more than one course")
		}
		if !enrollment.HasCourse(choice) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "selectedCourse must be one of the applicant's courses")
		}
		return &choice, nil
	}
}

// SendStatusEmail notifies the applicant of their current status right away.
func (s *EnrollmentService) SendStatusEmail(ctx context.Context, id string) error {
	enrollment, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return s.deliverStatusEmail(ctx, enrollment)
}

// HandleStatusEmailJob delivers a queued status notification.
func (s *EnrollmentService) HandleStatusEmailJob(ctx context.Context, job jobs.Job) error {
	id, ok := job.Payload.(string)
	if !ok || id == "" {
		return fmt.Errorf("status email job %s: missing enrollment id", job.ID)
	}
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("status email job %s: %w", job.ID, err)
	}
	return s.deliverStatusEmail(ctx, enrollment)
}

func (s *EnrollmentService) deliverStatusEmail(ctx context.Context, enrollment *models.Enrollment) error {
	data := statusEmailData{Name: enrollment.Name, Status: string(enrollment.Status)}
	if enrollment.AssignedCourse != nil {
		data.Course = *enrollment.AssignedCourse
	}
	if enrollment.Notes != nil {
		data.Notes = *enrollment.Notes
	}
	subject := statusEmailSubject(enrollment.Status)
	html, err := renderEmail("status", subject, s.cfg.Organization, data)
	if err != nil {
		return internalError(err, "failed to render status email")
	}
	err = s.sender.Send(ctx, mailer.Message{To: enrollment.Email, Subject: subject, HTML: html, Text: statusEmailText(enrollment)})
	if err != nil {
		s.metrics.RecordEmails("status", 0, 1)
		s.logger.Warn("status email failed", zap.String("enrollment_id", enrollment.ID), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrEmailDeliveryFailure.Code, appErrors.ErrEmailDeliveryFailure.Status, "failed to send status email")
	}
	s.metrics.RecordEmails("status", 1, 0)
	return nil
}

// PublicLookup returns the approved applications registered under email.
func (s *EnrollmentService) PublicLookup(ctx context.Context, email string) ([]models.PublicEnrollment, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "email is required")
	}
	if err := s.validator.Var(email, "email"); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "email is invalid")
	}
	rows, err := s.repo.ListApprovedByEmail(ctx, email)
	if err != nil {
		return nil, internalError(err, "failed to look up enrollment")
	}
	if rows == nil {
		rows = []models.PublicEnrollment{}
	}
	return rows, nil
}

// GenerateOfferLetter renders and stores a PDF offer letter for an approved applicant.
func (s *EnrollmentService) GenerateOfferLetter(ctx context.Context, actor *models.JWTClaims, id string) (*OfferLetter, error) {
	enrollment, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if enrollment.Status != models.EnrollmentStatusApproved || enrollment.AssignedCourse == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "offer letters are only issued to approved applicants with an assigned course")
	}

	now := s.now().UTC()
	content, err := s.pdf.RenderLetter(export.Letter{
		Organization: s.cfg.Organization,
		Title:        "Offer of Admission",
		Date:         now.Format("2 January 2006"),
		Recipient:    enrollment.Name,
		Paragraphs: []string{
			fmt.Sprintf("We are pleased to offer you a place in the %s bootcamp track.", *enrollment.AssignedCourse),
			"Please keep this letter for your records and reply to confirm your participation.",
		},
		Signature: s.cfg.Organization + " Admissions",
	})
	if err != nil {
		return nil, internalError(err, "failed to render offer letter")
	}

	relPath := path.Join("offer-letters", enrollment.ID+"-"+strconv.FormatInt(now.Unix(), 10)+".pdf")
	if _, err := s.storage.Save(relPath, content); err != nil {
		return nil, internalError(err, "failed to store offer letter")
	}
	if err := s.repo.SetOfferLetter(ctx, enrollment.ID, relPath, now); err != nil {
		return nil, internalError(err, "failed to record offer letter")
	}
	token, expiresAt, err := s.signer.Generate(enrollment.ID, relPath)
	if err != nil {
		return nil, internalError(err, "failed to sign offer letter")
	}
	s.recordAudit(ctx, actor, models.AuditActionOfferLetterGenerate, enrollment.ID, fmt.Sprintf(`{"path":%q}`, relPath))

	return &OfferLetter{
		EnrollmentID: enrollment.ID,
		Token:        token,
		URL:          strings.TrimRight(s.cfg.APIPrefix, "/") + "/documents/offer-letters/" + token,
		ExpiresAt:    expiresAt,
	}, nil
}

// DownloadOfferLetter resolves a signed token to the stored PDF.
func (s *EnrollmentService) DownloadOfferLetter(ctx context.Context, token string) (*OfferLetterFile, error) {
	id, relPath, err := s.signer.Parse(token)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid or expired download link")
	}
	content, err := s.storage.Read(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "offer letter not found")
	}
	return &OfferLetterFile{Filename: "offer-letter-" + id + ".pdf", Content: content}, nil
}

// Export renders enrollments matching the filter as CSV.
func (s *EnrollmentService) Export(ctx context.Context, filter models.EnrollmentFilter) ([]byte, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid status filter")
	}
	rows, err := s.repo.ListAll(ctx, filter)
	if err != nil {
		return nil, internalError(err, "failed to load enrollments")
	}
	dataset := export.NewDataset("id", "name", "email", "phone", "age", "educationLevel", "coursesInterested", "hasLaptop", "status", "assignedCourse", "createdAt")
	for _, e := range rows {
		assigned := ""
		if e.AssignedCourse != nil {
			assigned = *e.AssignedCourse
		}
		dataset.Append(e.ID, e.Name, e.Email, e.Phone, strconv.Itoa(e.Age), e.EducationLevel,
			strings.Join(e.CoursesInterested, "; "), strconv.FormatBool(e.HasLaptop), string(e.Status), assigned,
			e.CreatedAt.UTC().Format(time.RFC3339))
	}
	out, err := s.csv.Render(*dataset)
	if err != nil {
		return nil, internalError(err, "failed to render export")
	}
	return out, nil
}

func (s *EnrollmentService) recordAudit(ctx context.Context, actor *models.JWTClaims, action, resourceID, values string) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{Action: action, Resource: "bootcamp_enrollments", ResourceID: &resourceID, NewValues: []byte(values)}
	if actor != nil {
		entry.UserID = &actor.UserID
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
	}
}

func normalizeCourses(courses []string) []string {
	seen := make(map[string]struct{}, len(courses))
	out := make([]string, 0, len(courses))
	for _, c := range courses {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
