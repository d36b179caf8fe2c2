package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-portal-api/internal/models"
	appErrors "github.com/noah-isme/academy-portal-api/pkg/errors"
	"github.com/noah-isme/academy-portal-api/pkg/export"
	"github.com/noah-isme/academy-portal-api/pkg/mailer"
)

const (
	defaultExpirationHours = 2
	meetingDateLayout      = "2006-01-02"
	meetingTimeLayout      = "15:04"

	msgAttendanceCorrect   = "Attendance recorded. Your answer is correct."
	msgAttendanceIncorrect = "Attendance submitted, but your answer was incorrect."
)

type attendanceSessionRepository interface {
	Create(ctx context.Context, session *models.AttendanceSession) error
	FindByID(ctx context.Context, id string) (*models.AttendanceSession, error)
	List(ctx context.Context, filter models.AttendanceSessionFilter) ([]models.AttendanceSessionSummary, int, error)
	ListOpenByCourse(ctx context.Context, course string, now time.Time) ([]models.AttendanceSession, error)
	Deactivate(ctx context.Context, id string, updatedAt time.Time) error
}

type attendanceResponseRepository interface {
	Insert(ctx context.Context, response *models.AttendanceResponse) (bool, error)
	ListBySession(ctx context.Context, sessionID string) ([]models.AttendanceResponse, error)
}

type approvedStudentLister interface {
	ListApprovedByCourse(ctx context.Context, course string) ([]models.Enrollment, error)
}

type bulkSender interface {
	SendBulk(ctx context.Context, recipients []string, build func(recipient string) mailer.Message) mailer.Summary
}

// CreateAttendanceSessionRequest is the admin payload for opening a session.
type CreateAttendanceSessionRequest struct {
	Title           string `json:"title" validate:"required"`
	Description     string `json:"description"`
	Course          string `json:"course" validate:"required"`
	Question        string `json:"question" validate:"required"`
	CorrectAnswer   string `json:"correctAnswer" validate:"required"`
	MeetingDate     string `json:"meetingDate" validate:"required"`
	MeetingTime     string `json:"meetingTime"`
	ExpirationHours int    `json:"expirationHours" validate:"omitempty,oneof=1 2 6 12 24 48"`
	SendEmails      bool   `json:"sendEmails"`
}

// SubmitAttendanceRequest is the public student submission.
type SubmitAttendanceRequest struct {
	StudentEmail string `json:"studentEmail" validate:"required,email"`
	StudentName  string `json:"studentName" validate:"required"`
	Answer       string `json:"answer" validate:"required"`
}

// CreatedAttendanceSession returns the stored session and, when invitations were requested, their outcome.
type CreatedAttendanceSession struct {
	Session     *models.AttendanceSession `json:"session"`
	Invitations *mailer.Summary           `json:"invitations,omitempty"`
}

// AttendanceResponses lists the answers for a session with tallies.
type AttendanceResponses struct {
	Session   *models.AttendanceSession        `json:"session"`
	Responses []models.AttendanceResponse      `json:"responses"`
	Summary   models.AttendanceResponseSummary `json:"summary"`
}

// AttendanceExport is a rendered response export.
type AttendanceExport struct {
	Filename    string
	ContentType string
	Content     []byte
}

// AttendanceServiceConfig tunes attendance behaviour.
type AttendanceServiceConfig struct {
	PublicBaseURL  string
	PublicCacheTTL time.Duration
	Organization   string
}

// AttendanceServiceParams groups constructor dependencies.
type AttendanceServiceParams struct {
	Sessions    attendanceSessionRepository
	Responses   attendanceResponseRepository
	Enrollments approvedStudentLister
	Mailer      bulkSender
	Cache       *CacheService
	Audit       auditLogger
	Metrics     *MetricsService
	Validator   *validator.Validate
	Logger      *zap.Logger
	Config      AttendanceServiceConfig
}

// AttendanceService runs attendance sessions and student submissions.
type AttendanceService struct {
	sessions    attendanceSessionRepository
	responses   attendanceResponseRepository
	enrollments approvedStudentLister
	mailer      bulkSender
	cache       *CacheService
	audit       auditLogger
	metrics     *MetricsService
	csv         *export.CSVExporter
	pdf         *export.PDFExporter
	validator   *validator.Validate
	logger      *zap.Logger
	cfg         AttendanceServiceConfig
	now         func() time.Time
}

// NewAttendanceService constructs the attendance service.
func NewAttendanceService(params AttendanceServiceParams) *AttendanceService {
	cfg := params.Config
	if cfg.PublicCacheTTL <= 0 {
		cfg.PublicCacheTTL = 30 * time.Second
	}
	if cfg.Organization == "" {
		cfg.Organization = "Academy"
	}
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	validate := params.Validator
	if validate == nil {
		validate = NewValidator()
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{
		sessions:    params.Sessions,
		responses:   params.Responses,
		enrollments: params.Enrollments,
		mailer:      params.Mailer,
		cache:       params.Cache,
		audit:       params.Audit,
		metrics:     params.Metrics,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		validator:   validate,
		logger:      logger,
		cfg:         cfg,
		now:         time.Now,
	}
}

// CreateSession opens a session expiring expirationHours after the meeting starts and optionally
// invites every approved student assigned to the course.
func (s *AttendanceService) CreateSession(ctx context.Context, actor *models.JWTClaims, req CreateAttendanceSessionRequest) (*CreatedAttendanceSession, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Course = strings.TrimSpace(req.Course)
	req.Question = strings.TrimSpace(req.Question)
	req.CorrectAnswer = strings.TrimSpace(req.CorrectAnswer)
	req.MeetingDate = strings.TrimSpace(req.MeetingDate)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "missing or invalid fields")
	}

	meetingAt, err := combineMeeting(req.MeetingDate, req.MeetingTime)
	if err != nil {
		return nil, err
	}
	hours := req.ExpirationHours
	if hours == 0 {
		hours = defaultExpirationHours
	}

	session := &models.AttendanceSession{
		Title:         req.Title,
		Description:   strings.TrimSpace(req.Description),
		Course:        req.Course,
		Question:      req.Question,
		CorrectAnswer: req.CorrectAnswer,
		MeetingDate:   meetingAt,
		ExpiresAt:     meetingAt.Add(time.Duration(hours) * time.Hour),
		IsActive:      true,
		EmailSent:     req.SendEmails,
	}
	if actor != nil {
		session.CreatedBy = &actor.UserID
	}

	// A failed recipient lookup must not leave a session behind.
	var students []models.Enrollment
	if req.SendEmails {
		students, err = s.enrollments.ListApprovedByCourse(ctx, session.Course)
		if err != nil {
			return nil, internalError(err, "failed to load approved students")
		}
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, internalError(err, "failed to create attendance session")
	}
	s.cache.Delete(ctx, attendancePublicKey(session.Course))
	s.recordAudit(ctx, actor, models.AuditActionAttendanceCreate, session.ID)

	result := &CreatedAttendanceSession{Session: session}
	if req.SendEmails {
		result.Invitations = s.sendInvitations(ctx, session, students)
	}
	return result, nil
}

func combineMeeting(date, clock string) (time.Time, error) {
	day, err := time.ParseInLocation(meetingDateLayout, date, time.UTC)
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "meetingDate must be formatted as YYYY-MM-DD")
	}
	clock = strings.TrimSpace(clock)
	if clock == "" {
		return day, nil
	}
	at, err := time.ParseInLocation(meetingTimeLayout, clock, time.UTC)
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "meetingTime must be formatted as HH:MM")
	}
	return day.Add(time.Duration(at.Hour())*time.Hour + time.Duration(at.Minute())*time.Minute), nil
}

func (s *AttendanceService) sendInvitations(ctx context.Context, session *models.AttendanceSession, students []models.Enrollment) *mailer.Summary {
	names := make(map[string]string, len(students))
	recipients := make([]string, 0, len(students))
	for _, st := range students {
		email := strings.ToLower(strings.TrimSpace(st.Email))
		if _, ok := names[email]; ok || email == "" {
			continue
		}
		names[email] = st.Name
		recipients = append(recipients, email)
	}

	link := s.cfg.PublicBaseURL + "/attendance/" + session.ID
	subject := "Attendance: " + session.Title
	deadline := session.ExpiresAt.UTC().Format("Mon, 2 Jan 2006 15:04 MST")

	summary := s.mailer.SendBulk(ctx, recipients, func(recipient string) mailer.Message {
		html, err := renderEmail("invite", subject, s.cfg.Organization, inviteEmailData{
			Name:        names[recipient],
			Title:       session.Title,
			Course:      session.Course,
			Description: session.Description,
			Deadline:    deadline,
			Link:        link,
		})
		if err != nil {
			s.logger.Error("render invitation", zap.Error(err))
		}
		return mailer.Message{
			To:      recipient,
			Subject: subject,
			HTML:    html,
			Text:    fmt.Sprintf("Attendance is open for %s. Submit before %s at %s", session.Title, deadline, link),
		}
	})
	s.metrics.RecordEmails("attendance_invite", summary.SuccessCount, summary.ErrorCount)
	s.logger.Info("attendance invitations sent",
		zap.String("session_id", session.ID),
		zap.Int("success", summary.SuccessCount),
		zap.Int("failed", summary.ErrorCount))
	return &summary
}

// ListSessions returns sessions with response counts for admins.
func (s *AttendanceService) ListSessions(ctx context.Context, filter models.AttendanceSessionFilter) ([]models.AttendanceSessionSummary, *models.Pagination, error) {
	page, size, _ := models.PageBounds(filter.Page, filter.PageSize, 20)
	filter.Page, filter.PageSize = page, size
	sessions, total, err := s.sessions.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list attendance sessions")
	}
	if sessions == nil {
		sessions = []models.AttendanceSessionSummary{}
	}
	return sessions, models.NewPagination(page, size, total), nil
}

// ListPublic returns open sessions for a course without their answers.
func (s *AttendanceService) ListPublic(ctx context.Context, course string) ([]models.PublicAttendanceSession, error) {
	course = strings.TrimSpace(course)
	if course == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course is required")
	}
	now := s.now()
	key := attendancePublicKey(course)

	var cached []models.PublicAttendanceSession
	if s.cache.Get(ctx, key, &cached) {
		return filterOpen(cached, now), nil
	}

	sessions, err := s.sessions.ListOpenByCourse(ctx, course, now)
	if err != nil {
		return nil, internalError(err, "failed to list attendance sessions")
	}
	public := make([]models.PublicAttendanceSession, 0, len(sessions))
	for i := range sessions {
		public = append(public, sessions[i].Public(now))
	}
	s.cache.Set(ctx, key, public, s.cfg.PublicCacheTTL)
	return public, nil
}

// filterOpen re-applies expiry to cached entries so a stale cache never revives a closed session.
func filterOpen(sessions []models.PublicAttendanceSession, now time.Time) []models.PublicAttendanceSession {
	out := make([]models.PublicAttendanceSession, 0, len(sessions))
	for _, ps := range sessions {
		if now.After(ps.ExpiresAt) {
			continue
		}
		out = append(out, ps)
	}
	return out
}

// GetPublic returns a single session stripped of its answer.
func (s *AttendanceService) GetPublic(ctx context.Context, id string) (*models.PublicAttendanceSession, error) {
	session, err := s.findSession(ctx, id)
	if err != nil {
		return nil, err
	}
	public := session.Public(s.now())
	return &public, nil
}

// Submit records a student's answer. Submissions after expiresAt, to a closed session, or repeated
// for the same email are rejected; an incorrect answer is still a successful submission.
func (s *AttendanceService) Submit(ctx context.Context, sessionID string, req SubmitAttendanceRequest) (*models.AttendanceSubmissionResult, error) {
	session, err := s.findSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	req.StudentEmail = strings.ToLower(strings.TrimSpace(req.StudentEmail))
	req.StudentName = strings.TrimSpace(req.StudentName)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "missing or invalid fields")
	}
	now := s.now()
	if session.IsExpired(now) {
		s.metrics.RecordSubmission(SubmissionExpired)
		return nil, appErrors.Clone(appErrors.ErrAttendanceExpired, "the attendance window for this session has closed")
	}
	if !session.IsActive {
		s.metrics.RecordSubmission(SubmissionExpired)
		return nil, appErrors.Clone(appErrors.ErrAttendanceExpired, "this attendance session has been closed")
	}

	correct := normalizeAnswer(req.Answer) == normalizeAnswer(session.CorrectAnswer)
	inserted, err := s.responses.Insert(ctx, &models.AttendanceResponse{
		SessionID:    session.ID,
		StudentEmail: req.StudentEmail,
		StudentName:  req.StudentName,
		Answer:       req.Answer,
		IsCorrect:    correct,
		SubmittedAt:  now.UTC(),
	})
	if err != nil {
		return nil, internalError(err, "failed to record attendance")
	}
	if !inserted {
		s.metrics.RecordSubmission(SubmissionDuplicate)
		return nil, appErrors.Clone(appErrors.ErrDuplicateSubmission, "you have already submitted attendance for this session")
	}
	s.metrics.RecordSubmission(SubmissionAccepted)

	result := &models.AttendanceSubmissionResult{IsCorrect: correct, Message: msgAttendanceIncorrect}
	if correct {
		result.Message = msgAttendanceCorrect
	}
	return result, nil
}

func normalizeAnswer(answer string) string {
	return strings.ToLower(strings.TrimSpace(answer))
}

// ListResponses returns every response for a session with correct/incorrect tallies.
func (s *AttendanceService) ListResponses(ctx context.Context, sessionID string) (*AttendanceResponses, error) {
	session, err := s.findSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	responses, err := s.responses.ListBySession(ctx, session.ID)
	if err != nil {
		return nil, internalError(err, "failed to list attendance responses")
	}
	if responses == nil {
		responses = []models.AttendanceResponse{}
	}
	summary := models.AttendanceResponseSummary{Total: len(responses)}
	for _, r := range responses {
		if r.IsCorrect {
			summary.Correct++
		}
	}
	summary.Incorrect = summary.Total - summary.Correct
	return &AttendanceResponses{Session: session, Responses: responses, Summary: summary}, nil
}

// ExportResponses renders a session's responses as csv (default) or pdf.
func (s *AttendanceService) ExportResponses(ctx context.Context, sessionID, format string) (*AttendanceExport, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "pdf" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	listing, err := s.ListResponses(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	dataset := export.NewDataset("studentName", "studentEmail", "answer", "isCorrect", "submittedAt")
	for _, r := range listing.Responses {
		dataset.Append(r.StudentName, r.StudentEmail, r.Answer, strconv.FormatBool(r.IsCorrect), r.SubmittedAt.UTC().Format(time.RFC3339))
	}

	base := "attendance-" + listing.Session.ID
	if format == "pdf" {
		title := fmt.Sprintf("%s (%s) - %d responses, %d correct", listing.Session.Title, listing.Session.Course, listing.Summary.Total, listing.Summary.Correct)
		content, err := s.pdf.Render(*dataset, title)
		if err != nil {
			return nil, internalError(err, "failed to render attendance export")
		}
		return &AttendanceExport{Filename: base + ".pdf", ContentType: "application/pdf", Content: content}, nil
	}
	content, err := s.csv.Render(*dataset)
	if err != nil {
		return nil, internalError(err, "failed to render attendance export")
	}
	return &AttendanceExport{Filename: base + ".csv", ContentType: "text/csv", Content: content}, nil
}

// CloseSession stops accepting submissions before the deadline.
func (s *AttendanceService) CloseSession(ctx context.Context, actor *models.JWTClaims, sessionID string) (*models.AttendanceSession, error) {
	session, err := s.findSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	updatedAt := s.now().UTC()
	if err := s.sessions.Deactivate(ctx, session.ID, updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance session not found")
		}
		return nil, internalError(err, "failed to close attendance session")
	}
	session.IsActive = false
	session.UpdatedAt = updatedAt
	s.cache.Delete(ctx, attendancePublicKey(session.Course))
	s.recordAudit(ctx, actor, models.AuditActionAttendanceClose, session.ID)
	return session, nil
}

func (s *AttendanceService) findSession(ctx context.Context, id string) (*models.AttendanceSession, error) {
	if !validID(id) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance session not found")
	}
	session, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance session not found")
		}
		return nil, internalError(err, "failed to load attendance session")
	}
	return session, nil
}

func (s *AttendanceService) recordAudit(ctx context.Context, actor *models.JWTClaims, action, resourceID string) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{Action: action, Resource: "attendance_sessions", ResourceID: &resourceID}
	if actor != nil {
		entry.UserID = &actor.UserID
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
	}
}
