package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/academy-portal-api/internal/models"
	appErrors "github.com/noah-isme/academy-portal-api/pkg/errors"
)

type mockAuthRepo struct {
	userByEmail         *models.User
	userByID            *models.User
	findByEmailErr      error
	findByIDErr         error
	refreshTokens       map[string]*models.RefreshToken
	createRefreshErr    error
	revokeRefreshErr    error
	revokeUserTokensErr error
	revokedAll          bool
	auditLogs           []*models.AuditLog
	lastLoginUpdated    bool
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.findByEmailErr != nil {
		return nil, m.findByEmailErr
	}
	if m.userByEmail == nil {
		return nil, sql.ErrNoRows
	}
	return m.userByEmail, nil
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.findByIDErr != nil {
		return nil, m.findByIDErr
	}
	if m.userByID != nil {
		return m.userByID, nil
	}
	if m.userByEmail == nil {
		return nil, sql.ErrNoRows
	}
	return m.userByEmail, nil
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLoginUpdated = true
	return nil
}

func (m *mockAuthRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	m.revokedAll = true
	return m.revokeUserTokensErr
}

func (m *mockAuthRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if m.createRefreshErr != nil {
		return m.createRefreshErr
	}
	if m.refreshTokens == nil {
		m.refreshTokens = make(map[string]*models.RefreshToken)
	}
	m.refreshTokens[token.Token] = token
	return nil
}

func (m *mockAuthRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	rt, ok := m.refreshTokens[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return rt, nil
}

func (m *mockAuthRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	if m.revokeRefreshErr != nil {
		return m.revokeRefreshErr
	}
	for _, token := range m.refreshTokens {
		if token.ID == id {
			token.Revoked = true
			token.RevokedAt = &revokedAt
		}
	}
	return nil
}

func (m *mockAuthRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

func newTestAuthService(repo *mockAuthRepo, cfg AuthConfig) *AuthService {
	if cfg.AccessTokenSecret == "" {
		cfg.AccessTokenSecret = "secret"
	}
	if cfg.AccessTokenExpiry == 0 {
		cfg.AccessTokenExpiry = time.Hour
	}
	if cfg.RefreshTokenExpiry == 0 {
		cfg.RefreshTokenExpiry = 24 * time.Hour
	}
	return NewAuthService(repo, nil, zap.NewNop(), cfg)
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	repo := &mockAuthRepo{userByEmail: &models.User{ID: "123", Email: "admin@example.com", PasswordHash: hashPassword(t, "password"), Active: true, Role: models.RoleAdmin}}
	svc := newTestAuthService(repo, AuthConfig{})

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: " Admin@Example.com ", Password: "password"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.Equal(t, int64(3600), res.ExpiresIn)
	assert.Equal(t, models.RoleAdmin, res.User.Role)
	assert.True(t, repo.lastLoginUpdated)
	assert.Len(t, repo.refreshTokens, 1)
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionLogin, repo.auditLogs[0].Action)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	repo := &mockAuthRepo{userByEmail: &models.User{ID: "123", Email: "admin@example.com", PasswordHash: hashPassword(t, "password"), Active: true}}
	svc := newTestAuthService(repo, AuthConfig{})

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@example.com", Password: "nope"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginUnknownUser(t *testing.T) {
	svc := newTestAuthService(&mockAuthRepo{}, AuthConfig{})

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "ghost@example.com", Password: "password"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginInactive(t *testing.T) {
	repo := &mockAuthRepo{userByEmail: &models.User{ID: "123", Email: "admin@example.com", PasswordHash: hashPassword(t, "password"), Active: false}}
	svc := newTestAuthService(repo, AuthConfig{})

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@example.com", Password: "password"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginSingleSessionRevokesPrevious(t *testing.T) {
	repo := &mockAuthRepo{userByEmail: &models.User{ID: "123", Email: "admin@example.com", PasswordHash: hashPassword(t, "password"), Active: true}}
	svc := newTestAuthService(repo, AuthConfig{SingleSession: true})

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@example.com", Password: "password"})
	require.NoError(t, err)
	assert.True(t, repo.revokedAll)
}

func TestAuthServiceRefreshToken(t *testing.T) {
	repo := &mockAuthRepo{refreshTokens: make(map[string]*models.RefreshToken)}
	user := &models.User{ID: "u1", Email: "admin@example.com", Active: true, Role: models.RoleAdmin}
	repo.userByID = user
	repo.refreshTokens["token"] = &models.RefreshToken{ID: "rt1", UserID: user.ID, Token: "token", ExpiresAt: time.Now().Add(time.Hour)}

	svc := newTestAuthService(repo, AuthConfig{})

	res, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "token"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEqual(t, "token", res.RefreshToken)
	assert.True(t, repo.refreshTokens["token"].Revoked)
}

func TestAuthServiceRefreshTokenExpired(t *testing.T) {
	repo := &mockAuthRepo{refreshTokens: map[string]*models.RefreshToken{
		"token": {ID: "rt1", UserID: "u1", Token: "token", ExpiresAt: time.Now().Add(-time.Minute)},
	}}
	svc := newTestAuthService(repo, AuthConfig{})

	_, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "token"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLogoutRejectsForeignToken(t *testing.T) {
	repo := &mockAuthRepo{refreshTokens: map[string]*models.RefreshToken{
		"token": {ID: "rt1", UserID: "owner", Token: "token", ExpiresAt: time.Now().Add(time.Hour)},
	}}
	svc := newTestAuthService(repo, AuthConfig{})

	err := svc.Logout(context.Background(), "token", "someone-else", "", "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.Logout(context.Background(), "token", "owner", "127.0.0.1", "test"))
	assert.True(t, repo.refreshTokens["token"].Revoked)
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionLogout, repo.auditLogs[0].Action)
}

func TestAuthServiceMe(t *testing.T) {
	repo := &mockAuthRepo{userByID: &models.User{ID: "u1", Email: "admin@example.com", FullName: "Admin", Role: models.RoleEditor}}
	svc := newTestAuthService(repo, AuthConfig{})

	info, err := svc.Me(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "Admin", info.FullName)
	assert.Equal(t, models.RoleEditor, info.Role)
}

func TestValidateToken(t *testing.T) {
	svc := newTestAuthService(&mockAuthRepo{}, AuthConfig{Issuer: "academy-portal"})
	user := &models.User{ID: "u1", Email: "admin@example.com", Role: models.RoleAdmin}
	token, err := svc.generateAccessToken(user)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)

	other := newTestAuthService(&mockAuthRepo{}, AuthConfig{AccessTokenSecret: "different"})
	_, err = other.ValidateToken(token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
