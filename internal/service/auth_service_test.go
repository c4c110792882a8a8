package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/AurelMV/cbt-admin-api/internal/models"
	appErrors "github.com/AurelMV/cbt-admin-api/pkg/errors"
)

type mockAuthUserRepo struct {
	users         map[string]*models.User
	refreshTokens map[string]*models.RefreshToken
	revokedIDs    []string
	revokedUsers  []string
	lastLoginSet  bool
	lastLoginErr  error
}

func newMockAuthUserRepo() *mockAuthUserRepo {
	return &mockAuthUserRepo{
		users:         make(map[string]*models.User),
		refreshTokens: make(map[string]*models.RefreshToken),
	}
}

func (m *mockAuthUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthUserRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	if m.lastLoginErr != nil {
		return m.lastLoginErr
	}
	m.lastLoginSet = true
	return nil
}

func (m *mockAuthUserRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	m.refreshTokens[token.Token] = token
	return nil
}

func (m *mockAuthUserRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if rt, ok := m.refreshTokens[token]; ok {
		return rt, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthUserRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	m.revokedIDs = append(m.revokedIDs, id)
	return nil
}

func (m *mockAuthUserRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	m.revokedUsers = append(m.revokedUsers, userID)
	return nil
}

func authTestConfig() AuthConfig {
	return AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "cbt-admin-api",
	}
}

func seedAuthUser(t *testing.T, repo *mockAuthUserRepo, active bool) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)
	user := &models.User{
		ID:           "user-1",
		Email:        "admin@cbt.edu.pe",
		PasswordHash: string(hash),
		FullName:     "Admin CBT",
		Role:         models.RoleAdmin,
		Active:       active,
	}
	repo.users[user.ID] = user
	return user
}

func TestLoginIssuesTokenPair(t *testing.T) {
	repo := newMockAuthUserRepo()
	seedAuthUser(t, repo, true)
	svc := NewAuthService(repo, nil, nil, authTestConfig())

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@cbt.edu.pe", Password: "secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, int64(900), resp.ExpiresIn)
	assert.Equal(t, models.RoleAdmin, resp.User.Role)
	assert.True(t, repo.lastLoginSet)
	require.Len(t, repo.refreshTokens, 1)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestLoginWrongPassword(t *testing.T) {
	repo := newMockAuthUserRepo()
	seedAuthUser(t, repo, true)
	svc := NewAuthService(repo, nil, nil, authTestConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@cbt.edu.pe", Password: "wrong"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
}

func TestLoginUnknownEmailSameError(t *testing.T) {
	repo := newMockAuthUserRepo()
	svc := NewAuthService(repo, nil, nil, authTestConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "nobody@cbt.edu.pe", Password: "secret123"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
}

func TestLoginInactiveAccount(t *testing.T) {
	repo := newMockAuthUserRepo()
	seedAuthUser(t, repo, false)
	svc := NewAuthService(repo, nil, nil, authTestConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@cbt.edu.pe", Password: "secret123"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErr.Code)
}

func TestLoginSurvivesLastLoginFailure(t *testing.T) {
	repo := newMockAuthUserRepo()
	seedAuthUser(t, repo, true)
	repo.lastLoginErr = sql.ErrConnDone
	svc := NewAuthService(repo, nil, nil, authTestConfig())

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@cbt.edu.pe", Password: "secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
}

func TestRefreshRotatesToken(t *testing.T) {
	repo := newMockAuthUserRepo()
	seedAuthUser(t, repo, true)
	svc := NewAuthService(repo, nil, nil, authTestConfig())

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@cbt.edu.pe", Password: "secret123"})
	require.NoError(t, err)

	oldToken := repo.refreshTokens[login.RefreshToken]
	resp, err := svc.Refresh(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEqual(t, login.RefreshToken, resp.RefreshToken)
	assert.Contains(t, repo.revokedIDs, oldToken.ID)
}

func TestRefreshExpiredToken(t *testing.T) {
	repo := newMockAuthUserRepo()
	user := seedAuthUser(t, repo, true)
	repo.refreshTokens["stale"] = &models.RefreshToken{
		ID:        "rt-1",
		UserID:    user.ID,
		Token:     "stale",
		ExpiresAt: time.Now().UTC().Add(-time.Hour),
	}
	svc := NewAuthService(repo, nil, nil, authTestConfig())

	_, err := svc.Refresh(context.Background(), models.RefreshTokenRequest{RefreshToken: "stale"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}

func TestRefreshUnknownToken(t *testing.T) {
	repo := newMockAuthUserRepo()
	svc := NewAuthService(repo, nil, nil, authTestConfig())

	_, err := svc.Refresh(context.Background(), models.RefreshTokenRequest{RefreshToken: "missing"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}

func TestLogoutRevokesAllUserTokens(t *testing.T) {
	repo := newMockAuthUserRepo()
	svc := NewAuthService(repo, nil, nil, authTestConfig())

	require.NoError(t, svc.Logout(context.Background(), "user-1"))
	assert.Equal(t, []string{"user-1"}, repo.revokedUsers)
}

func TestValidateTokenRejectsTampered(t *testing.T) {
	repo := newMockAuthUserRepo()
	seedAuthUser(t, repo, true)
	svc := NewAuthService(repo, nil, nil, authTestConfig())

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@cbt.edu.pe", Password: "secret123"})
	require.NoError(t, err)

	other := NewAuthService(repo, nil, nil, AuthConfig{AccessTokenSecret: "other-secret", AccessTokenExpiry: time.Minute, RefreshTokenExpiry: time.Hour})
	_, err = other.ValidateToken(login.AccessToken)
	require.Error(t, err)

	_, err = svc.ValidateToken(login.AccessToken + "x")
	assert.Error(t, err)
}
