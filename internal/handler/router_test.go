package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-portal-api/internal/middleware"
	"github.com/noah-isme/academy-portal-api/internal/models"
	"github.com/noah-isme/academy-portal-api/internal/service"
	appErrors "github.com/noah-isme/academy-portal-api/pkg/errors"
)

type apiEnvelope struct {
	Success    bool               `json:"success"`
	Data       json.RawMessage    `json:"data"`
	Message    string             `json:"message"`
	Error      *appErrors.Error   `json:"error"`
	Pagination *models.Pagination `json:"pagination"`
}

type testRouter struct {
	engine      *gin.Engine
	enrollments *fakeEnrollments
	attendance  *fakeAttendance
	campaigns   *fakeCampaigns
	sponsors    *fakeSponsors
	comments    *fakeComments
	audit       *recordingAudit
}

func newTestRouter(t *testing.T, limiter *middleware.IPRateLimiter, checks map[string]ReadinessCheck) *testRouter {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tr := &testRouter{
		engine:      gin.New(),
		enrollments: &fakeEnrollments{},
		attendance:  &fakeAttendance{},
		campaigns:   &fakeCampaigns{},
		sponsors:    &fakeSponsors{},
		comments:    &fakeComments{},
		audit:       &recordingAudit{},
	}

	handlers := Handlers{
		Auth:       NewAuthHandler(&fakeAuth{}),
		Enrollment: NewEnrollmentHandler(tr.enrollments),
		Attendance: NewAttendanceHandler(tr.attendance),
		Email:      NewEmailHandler(tr.campaigns),
		Sponsor:    NewSponsorHandler(tr.sponsors),
		Volunteer:  NewVolunteerHandler(&fakeVolunteers{}),
		Comment:    NewCommentHandler(tr.comments),
		Metrics:    NewMetricsHandler(fakeMetrics{}, checks),
	}
	RegisterRoutes(tr.engine.Group("/api"), handlers, RouterOptions{
		Tokens:        tokenTable{},
		Audit:         tr.audit,
		PublicLimiter: limiter,
		Logger:        zap.NewNop(),
	})
	tr.engine.GET("/ready", handlers.Metrics.Ready)
	return tr
}

func (tr *testRouter) do(method, target, token, body string) *httptest.ResponseRecorder {
	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	tr.engine.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) apiEnvelope {
	t.Helper()
	var env apiEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestBootcampRoutes(t *testing.T) {
	tr := newTestRouter(t, nil, nil)

	t.Run("public apply", func(t *testing.T) {
		w := tr.do(http.MethodPost, "/api/bootcamp", "", `{"name":"Ana","email":"ana@example.com"}`)
		require.Equal(t, http.StatusCreated, w.Code)
		assert.True(t, decodeEnvelope(t, w).Success)
	})

	t.Run("list requires a token", func(t *testing.T) {
		w := tr.do(http.MethodGet, "/api/bootcamp", "", "")
		require.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("list rejects editors", func(t *testing.T) {
		w := tr.do(http.MethodGet, "/api/bootcamp", "editor-token", "")
		require.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("list returns pagination", func(t *testing.T) {
		w := tr.do(http.MethodGet, "/api/bootcamp?status=approved&page=2&limit=5", "admin-token", "")
		require.Equal(t, http.StatusOK, w.Code)
		env := decodeEnvelope(t, w)
		require.NotNil(t, env.Pagination)
		assert.Equal(t, 2, env.Pagination.Page)
		assert.Equal(t, models.EnrollmentStatusApproved, tr.enrollments.lastFilter.Status)
		assert.Equal(t, 5, tr.enrollments.lastFilter.PageSize)
	})

	t.Run("public lookup is not shadowed by the id route", func(t *testing.T) {
		w := tr.do(http.MethodGet, "/api/bootcamp/public?email=ana@example.com", "", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ana@example.com", tr.enrollments.lookupEmail)
	})

	t.Run("status update carries the actor", func(t *testing.T) {
		w := tr.do(http.MethodPatch, "/api/bootcamp", "admin-token", `{"enrollmentId":"enr-1","status":"APPROVED"}`)
		require.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, tr.enrollments.lastActor)
		assert.Equal(t, "admin-1", tr.enrollments.lastActor.UserID)
		assert.Equal(t, "Enrollment status updated", decodeEnvelope(t, w).Message)
	})

	t.Run("export streams csv", func(t *testing.T) {
		w := tr.do(http.MethodGet, "/api/bootcamp/export", "admin-token", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
		assert.Contains(t, w.Header().Get("Content-Disposition"), "bootcamp-enrollments.csv")
	})

	t.Run("offer letter requires approval", func(t *testing.T) {
		w := tr.do(http.MethodPost, "/api/bootcamp/pending-1/offer-letter", "admin-token", "")
		require.Equal(t, http.StatusPreconditionFailed, w.Code)
	})

	t.Run("offer letter download is public", func(t *testing.T) {
		w := tr.do(http.MethodGet, "/api/documents/offer-letters/signed-token", "", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	})
}

func TestAttendanceRoutes(t *testing.T) {
	tr := newTestRouter(t, nil, nil)
	body := `{"studentEmail":"a@example.com","studentName":"A","answer":"42"}`

	t.Run("accepted submission", func(t *testing.T) {
		w := tr.do(http.MethodPost, "/api/attendance/open", "", body)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Correct!", decodeEnvelope(t, w).Message)
	})

	t.Run("expired session answers 410", func(t *testing.T) {
		w := tr.do(http.MethodPost, "/api/attendance/expired", "", body)
		require.Equal(t, http.StatusGone, w.Code)
		env := decodeEnvelope(t, w)
		require.NotNil(t, env.Error)
		assert.Equal(t, "ATTENDANCE_EXPIRED", env.Error.Code)
	})

	t.Run("duplicate submission answers 409", func(t *testing.T) {
		w := tr.do(http.MethodPost, "/api/attendance/duplicate", "", body)
		require.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("malformed payload", func(t *testing.T) {
		w := tr.do(http.MethodPost, "/api/attendance/open", "", `{"studentEmail":`)
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("public list and admin list", func(t *testing.T) {
		w := tr.do(http.MethodGet, "/api/attendance/public?course=go", "", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "go", tr.attendance.publicCourse)

		w = tr.do(http.MethodGet, "/api/attendance", "", "")
		require.Equal(t, http.StatusUnauthorized, w.Code)
		w = tr.do(http.MethodGet, "/api/attendance", "admin-token", "")
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("export honours format", func(t *testing.T) {
		w := tr.do(http.MethodGet, "/api/attendance/open/responses/export?format=pdf", "admin-token", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	})
}

func TestMarketingRoleCheckedByService(t *testing.T) {
	tr := newTestRouter(t, nil, nil)

	w := tr.do(http.MethodPost, "/api/emails/send-marketing", "editor-token", `{"subject":"Hi","content":"Hello","recipients":["a@example.com"]}`)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 1, tr.campaigns.sendCalls)

	w = tr.do(http.MethodPost, "/api/emails/send-marketing", "admin-token", `{"subject":"Hi","content":"Hello","recipients":"a@example.com, b@example.com"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, tr.campaigns.sendCalls)
}

func TestPublicWritesAreRateLimited(t *testing.T) {
	tr := newTestRouter(t, middleware.NewIPRateLimiter(1, 1), nil)
	payload := `{"companyName":"Acme"}`

	require.Equal(t, http.StatusCreated, tr.do(http.MethodPost, "/api/sponsors", "", payload).Code)
	w := tr.do(http.MethodPost, "/api/sponsors", "", payload)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))

	// reads are not throttled
	require.Equal(t, http.StatusOK, tr.do(http.MethodGet, "/api/comments?slug=welcome", "", "").Code)
}

func TestModerationIsAudited(t *testing.T) {
	tr := newTestRouter(t, nil, nil)

	w := tr.do(http.MethodPatch, "/api/sponsors/sp-1", "admin-token", `{"status":"APPROVED"}`)
	require.Equal(t, http.StatusOK, w.Code)
	w = tr.do(http.MethodPost, "/api/admin/comments/c-1/approve", "admin-token", "")
	require.Equal(t, http.StatusOK, w.Code)
	w = tr.do(http.MethodDelete, "/api/sponsors/missing", "admin-token", "")
	require.Equal(t, http.StatusNotFound, w.Code)

	logs := tr.audit.entries()
	require.Len(t, logs, 2)
	assert.Equal(t, models.AuditActionModeration, logs[0].Action)
	assert.Equal(t, "sponsors", logs[0].Resource)
	require.NotNil(t, logs[0].ResourceID)
	assert.Equal(t, "sp-1", *logs[0].ResourceID)
	assert.Equal(t, "comments", logs[1].Resource)
	require.NotNil(t, logs[1].UserID)
	assert.Equal(t, "admin-1", *logs[1].UserID)
}

func TestCommentModerationFilter(t *testing.T) {
	tr := newTestRouter(t, nil, nil)

	w := tr.do(http.MethodGet, "/api/admin/comments?approved=maybe", "admin-token", "")
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = tr.do(http.MethodGet, "/api/admin/comments?approved=false", "admin-token", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, tr.comments.lastFilter.Approved)
	assert.False(t, *tr.comments.lastFilter.Approved)
}

func TestAuthRoutes(t *testing.T) {
	tr := newTestRouter(t, nil, nil)

	w := tr.do(http.MethodPost, "/api/auth/login", "", `{"email":"admin@example.com","password":"secret"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = tr.do(http.MethodGet, "/api/auth/me", "admin-token", "")
	require.Equal(t, http.StatusOK, w.Code)
	var info models.UserInfo
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &info))
	assert.Equal(t, "admin-1", info.ID)

	w = tr.do(http.MethodPost, "/api/auth/logout", "admin-token", `{}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	w = tr.do(http.MethodPost, "/api/auth/logout", "admin-token", `{"refreshToken":"rt"}`)
	require.Equal(t, http.StatusNoContent, w.Code)
}

func TestReadinessAndSnapshot(t *testing.T) {
	tr := newTestRouter(t, nil, map[string]ReadinessCheck{
		"postgres": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	})

	w := tr.do(http.MethodGet, "/ready", "", "")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
	assert.Contains(t, w.Body.String(), `"postgres":"ok"`)

	w = tr.do(http.MethodGet, "/api/admin/metrics", "admin-token", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"requestsTotal":7`)
}

// fakes

type tokenTable struct{}

func (tokenTable) ValidateToken(token string) (*models.JWTClaims, error) {
	switch token {
	case "admin-token":
		return &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}, nil
	case "editor-token":
		return &models.JWTClaims{UserID: "editor-1", Role: models.RoleEditor}, nil
	}
	return nil, appErrors.ErrUnauthorized
}

type recordingAudit struct {
	mu   sync.Mutex
	logs []models.AuditLog
}

func (r *recordingAudit) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, *log)
	return nil
}

func (r *recordingAudit) entries() []models.AuditLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.AuditLog(nil), r.logs...)
}

type fakeAuth struct{}

func (fakeAuth) Login(_ context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	return &models.LoginResponse{AccessToken: "at", RefreshToken: "rt", User: models.UserInfo{Email: req.Email}}, nil
}

func (fakeAuth) RefreshToken(context.Context, models.RefreshTokenRequest) (*models.RefreshTokenResponse, error) {
	return &models.RefreshTokenResponse{AccessToken: "at2", RefreshToken: "rt2"}, nil
}

func (fakeAuth) Logout(context.Context, string, string, string, string) error { return nil }

func (fakeAuth) Me(_ context.Context, userID string) (*models.UserInfo, error) {
	return &models.UserInfo{ID: userID, Role: models.RoleAdmin}, nil
}

type fakeEnrollments struct {
	lastFilter  models.EnrollmentFilter
	lastActor   *models.JWTClaims
	lookupEmail string
}

func (f *fakeEnrollments) Apply(_ context.Context, req service.ApplyEnrollmentRequest) (*models.Enrollment, error) {
	return &models.Enrollment{ID: "enr-1", Name: req.Name, Email: req.Email, Status: models.EnrollmentStatusPending}, nil
}

func (f *fakeEnrollments) List(_ context.Context, filter models.EnrollmentFilter) (*service.EnrollmentListResult, error) {
	f.lastFilter = filter
	return &service.EnrollmentListResult{Pagination: models.NewPagination(filter.Page, filter.PageSize, 12)}, nil
}

func (f *fakeEnrollments) Get(_ context.Context, id string) (*models.Enrollment, error) {
	return &models.Enrollment{ID: id}, nil
}

func (f *fakeEnrollments) UpdateStatus(_ context.Context, actor *models.JWTClaims, req service.UpdateEnrollmentStatusRequest) (*models.Enrollment, error) {
	f.lastActor = actor
	return &models.Enrollment{ID: req.EnrollmentID, Status: models.EnrollmentStatus(req.Status)}, nil
}

func (f *fakeEnrollments) SendStatusEmail(context.Context, string) error { return nil }

func (f *fakeEnrollments) PublicLookup(_ context.Context, email string) ([]models.PublicEnrollment, error) {
	f.lookupEmail = email
	return []models.PublicEnrollment{}, nil
}

func (f *fakeEnrollments) GenerateOfferLetter(_ context.Context, _ *models.JWTClaims, id string) (*service.OfferLetter, error) {
	if id == "pending-1" {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "enrollment is not approved")
	}
	return &service.OfferLetter{EnrollmentID: id, Token: "signed-token", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (f *fakeEnrollments) DownloadOfferLetter(context.Context, string) (*service.OfferLetterFile, error) {
	return &service.OfferLetterFile{Filename: "offer.pdf", Content: []byte("%PDF-1.3")}, nil
}

func (f *fakeEnrollments) Export(context.Context, models.EnrollmentFilter) ([]byte, error) {
	return []byte("id,name\n"), nil
}

type fakeAttendance struct {
	publicCourse string
}

func (f *fakeAttendance) CreateSession(context.Context, *models.JWTClaims, service.CreateAttendanceSessionRequest) (*service.CreatedAttendanceSession, error) {
	return &service.CreatedAttendanceSession{Session: &models.AttendanceSession{ID: "sess-1"}}, nil
}

func (f *fakeAttendance) ListSessions(_ context.Context, filter models.AttendanceSessionFilter) ([]models.AttendanceSessionSummary, *models.Pagination, error) {
	return nil, models.NewPagination(filter.Page, filter.PageSize, 0), nil
}

func (f *fakeAttendance) ListPublic(_ context.Context, course string) ([]models.PublicAttendanceSession, error) {
	f.publicCourse = course
	return []models.PublicAttendanceSession{}, nil
}

func (f *fakeAttendance) GetPublic(_ context.Context, id string) (*models.PublicAttendanceSession, error) {
	return &models.PublicAttendanceSession{ID: id}, nil
}

func (f *fakeAttendance) Submit(_ context.Context, sessionID string, _ service.SubmitAttendanceRequest) (*models.AttendanceSubmissionResult, error) {
	switch sessionID {
	case "expired":
		return nil, appErrors.ErrAttendanceExpired
	case "duplicate":
		return nil, appErrors.ErrDuplicateSubmission
	}
	return &models.AttendanceSubmissionResult{IsCorrect: true, Message: "Correct!"}, nil
}

func (f *fakeAttendance) ListResponses(context.Context, string) (*service.AttendanceResponses, error) {
	return &service.AttendanceResponses{}, nil
}

func (f *fakeAttendance) ExportResponses(_ context.Context, _ string, format string) (*service.AttendanceExport, error) {
	if format == "pdf" {
		return &service.AttendanceExport{Filename: "responses.pdf", ContentType: "application/pdf", Content: []byte("%PDF")}, nil
	}
	return &service.AttendanceExport{Filename: "responses.csv", ContentType: "text/csv", Content: []byte("a\n")}, nil
}

func (f *fakeAttendance) CloseSession(_ context.Context, _ *models.JWTClaims, id string) (*models.AttendanceSession, error) {
	return &models.AttendanceSession{ID: id}, nil
}

type fakeCampaigns struct {
	sendCalls int
}

func (f *fakeCampaigns) Send(_ context.Context, actor *models.JWTClaims, _ service.SendCampaignRequest) (*service.CampaignResult, error) {
	f.sendCalls++
	if actor == nil || !actor.Role.IsAdmin() {
		return nil, appErrors.ErrUnauthorized
	}
	return &service.CampaignResult{Recipients: 2}, nil
}

func (f *fakeCampaigns) Preview(_, content string) (*service.CampaignPreview, error) {
	return &service.CampaignPreview{HTML: content}, nil
}

func (f *fakeCampaigns) ListAudience(context.Context, string) ([]string, error) {
	return []string{"a@example.com"}, nil
}

type fakeSponsors struct{}

func (f *fakeSponsors) Apply(_ context.Context, req service.SponsorApplicationRequest) (*models.Sponsor, error) {
	return &models.Sponsor{ID: "sp-1", CompanyName: req.CompanyName}, nil
}

func (f *fakeSponsors) List(_ context.Context, filter models.SponsorFilter) ([]models.Sponsor, *models.Pagination, error) {
	return nil, models.NewPagination(filter.Page, filter.PageSize, 0), nil
}

func (f *fakeSponsors) UpdateStatus(_ context.Context, id string, req service.UpdateSponsorStatusRequest) (*models.Sponsor, error) {
	return &models.Sponsor{ID: id, Status: models.SponsorStatus(req.Status)}, nil
}

func (f *fakeSponsors) Delete(_ context.Context, id string) error {
	if id == "missing" {
		return appErrors.ErrNotFound
	}
	return nil
}

type fakeVolunteers struct{}

func (fakeVolunteers) Register(context.Context, service.VolunteerRegistrationRequest) (*models.Volunteer, error) {
	return &models.Volunteer{ID: "vol-1"}, nil
}

func (fakeVolunteers) List(context.Context, models.VolunteerFilter) ([]models.Volunteer, *models.Pagination, error) {
	return nil, nil, nil
}

func (fakeVolunteers) UpdateStatus(_ context.Context, id string, _ service.UpdateVolunteerStatusRequest) (*models.Volunteer, error) {
	return &models.Volunteer{ID: id}, nil
}

func (fakeVolunteers) Delete(context.Context, string) error { return nil }

type fakeComments struct {
	lastFilter models.CommentFilter
}

func (f *fakeComments) Create(_ context.Context, req service.CreateCommentRequest) (*models.Comment, error) {
	return &models.Comment{ID: "c-1", PostSlug: req.PostSlug}, nil
}

func (f *fakeComments) ListApproved(context.Context, string) ([]models.Comment, error) {
	return []models.Comment{}, nil
}

func (f *fakeComments) List(_ context.Context, filter models.CommentFilter) ([]models.Comment, *models.Pagination, error) {
	f.lastFilter = filter
	return nil, models.NewPagination(filter.Page, filter.PageSize, 0), nil
}

func (f *fakeComments) Approve(context.Context, string) error { return nil }

func (f *fakeComments) Delete(context.Context, string) error { return nil }

type fakeMetrics struct{}

func (fakeMetrics) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
}

func (fakeMetrics) Snapshot() service.MetricsSnapshot {
	return service.MetricsSnapshot{RequestsTotal: 7}
}
