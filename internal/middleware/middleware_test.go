package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-portal-api/internal/models"
	appErrors "github.com/noah-isme/academy-portal-api/pkg/errors"
)

type stubValidator struct {
	claims *models.JWTClaims
}

func (s stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	if token != "good" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return s.claims, nil
}

type observation struct {
	method, path string
	status       int
}

type recordingObserver struct {
	seen []observation
}

func (r *recordingObserver) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	r.seen = append(r.seen, observation{method: method, path: path, status: status})
}

type recordingAudit struct {
	logs []*models.AuditLog
	err  error
}

func (r *recordingAudit) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	r.logs = append(r.logs, log)
	return r.err
}

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(router *gin.Engine, method, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestJWTAndRoles(t *testing.T) {
	validator := stubValidator{claims: &models.JWTClaims{UserID: "u1", Role: models.RoleEditor}}
	router := gin.New()
	router.GET("/editor", JWT(validator), RequireRoles(models.RoleEditor, models.RoleAdmin), func(c *gin.Context) {
		claims, ok := CurrentUser(c)
		require.True(t, ok)
		c.String(http.StatusOK, claims.UserID)
	})
	router.GET("/admin", JWT(validator), RequireRoles(models.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodGet, "/editor", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodGet, "/editor", http.Header{"Authorization": {"Token good"}}).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodGet, "/editor", http.Header{"Authorization": {"Bearer bad"}}).Code)

	rec := serve(router, http.MethodGet, "/editor", http.Header{"Authorization": {"Bearer good"}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", rec.Body.String())

	assert.Equal(t, http.StatusForbidden, serve(router, http.MethodGet, "/admin", http.Header{"Authorization": {"Bearer good"}}).Code)
}

func TestOptionalJWT(t *testing.T) {
	validator := stubValidator{claims: &models.JWTClaims{UserID: "u1", Role: models.RoleAdmin}}
	router := gin.New()
	router.GET("/", OptionalJWT(validator), func(c *gin.Context) {
		if _, ok := CurrentUser(c); ok {
			c.String(http.StatusOK, "user")
			return
		}
		c.String(http.StatusOK, "anonymous")
	})

	assert.Equal(t, "anonymous", serve(router, http.MethodGet, "/", nil).Body.String())
	assert.Equal(t, "anonymous", serve(router, http.MethodGet, "/", http.Header{"Authorization": {"Bearer bad"}}).Body.String())
	assert.Equal(t, "user", serve(router, http.MethodGet, "/", http.Header{"Authorization": {"Bearer good"}}).Body.String())
}

func TestRateLimiterPerIP(t *testing.T) {
	limiter := NewIPRateLimiter(60, 2)
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	assert.True(t, limiter.Allow("1.1.1.1"))
	assert.True(t, limiter.Allow("1.1.1.1"))
	assert.False(t, limiter.Allow("1.1.1.1"))
	assert.True(t, limiter.Allow("2.2.2.2"))

	now = now.Add(time.Second)
	assert.True(t, limiter.Allow("1.1.1.1"))
	assert.False(t, limiter.Allow("1.1.1.1"))
}

func TestRateLimiterMiddleware(t *testing.T) {
	router := gin.New()
	router.POST("/apply", NewIPRateLimiter(1, 1).Middleware(), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	assert.Equal(t, http.StatusCreated, serve(router, http.MethodPost, "/apply", nil).Code)
	rec := serve(router, http.MethodPost, "/apply", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), appErrors.ErrTooManyRequests.Code)
}

func TestRateLimiterDisabled(t *testing.T) {
	limiter := NewIPRateLimiter(0, 0)
	for i := 0; i < 100; i++ {
		require.True(t, limiter.Allow("1.1.1.1"))
	}
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	observer := &recordingObserver{}
	router := gin.New()
	router.Use(Metrics(observer, "/metrics"))
	router.GET("/sessions/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/metrics", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(router, http.MethodGet, "/sessions/abc", nil)
	serve(router, http.MethodGet, "/metrics", nil)
	serve(router, http.MethodGet, "/wp-login.php", nil)

	require.Len(t, observer.seen, 2)
	assert.Equal(t, observation{method: http.MethodGet, path: "/sessions/:id", status: http.StatusOK}, observer.seen[0])
	assert.Equal(t, unmatchedRoute, observer.seen[1].path)
	assert.Equal(t, http.StatusNotFound, observer.seen[1].status)
}

func TestAuditRecordsSuccessfulRequests(t *testing.T) {
	audit := &recordingAudit{err: errors.New("db down")}
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(ContextUserKey, &models.JWTClaims{UserID: "admin-1"})
		c.Next()
	})
	router.PATCH("/sponsors/:id", Audit(audit, nil, models.AuditActionModeration, "sponsors"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	router.DELETE("/sponsors/:id", Audit(audit, nil, models.AuditActionModeration, "sponsors"), func(c *gin.Context) {
		c.Status(http.StatusNotFound)
	})

	serve(router, http.MethodPatch, "/sponsors/sp-1", nil)
	serve(router, http.MethodDelete, "/sponsors/sp-1", nil)

	require.Len(t, audit.logs, 1)
	entry := audit.logs[0]
	assert.Equal(t, models.AuditActionModeration, entry.Action)
	require.NotNil(t, entry.UserID)
	assert.Equal(t, "admin-1", *entry.UserID)
	require.NotNil(t, entry.ResourceID)
	assert.Equal(t, "sp-1", *entry.ResourceID)
}
