package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/campus-clearance-api/internal/models"
	"github.com/noah-isme/campus-clearance-api/pkg/config"
	appErrors "github.com/noah-isme/campus-clearance-api/pkg/errors"
)

type userStoreStub struct {
	byEmail map[string]*models.User
	created []*models.User
}

func (s *userStoreStub) Create(ctx context.Context, user *models.User) error {
	user.ID = "user-1"
	s.created = append(s.created, user)
	return nil
}

func (s *userStoreStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if user, ok := s.byEmail[email]; ok {
		cp := *user
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (s *userStoreStub) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	return nil
}

type gateStub struct {
	outcome GateOutcome
}

func (g gateStub) Classify(ctx context.Context, selfie, document []byte) GateOutcome {
	return g.outcome
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Expiration:        15 * time.Minute,
		RefreshExpiration: 24 * time.Hour,
	}
}

func enabledUser(email, password string) *models.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	return &models.User{
		ID:                 "user-1",
		Email:              email,
		PasswordHash:       string(hash),
		FullName:           "Dana Student",
		Role:               models.RoleStudent,
		AccountEnabled:     true,
		VerificationStatus: models.VerificationAutoApproved,
	}
}

func TestSignupCarriesGateOutcome(t *testing.T) {
	store := &userStoreStub{}
	gate := gateStub{outcome: GateOutcome{
		Status:         models.VerificationAutoApproved,
		AccountEnabled: true,
		FaceVerified:   true,
		Similarity:     96.5,
	}}
	svc := NewAuthService(store, gate, &auditLoggerStub{}, nil, testJWTConfig(), nil)

	resp, err := svc.Signup(context.Background(), models.SignupRequest{
		Email:    "Dana@Example.EDU",
		Password: "hunter22",
		FullName: "Dana Student",
	})
	require.NoError(t, err)
	assert.Equal(t, models.VerificationAutoApproved, resp.VerificationStatus)
	assert.True(t, resp.AccountEnabled)
	require.Len(t, store.created, 1)
	assert.Equal(t, "dana@example.edu", store.created[0].Email, "email is stored lowercased")
	assert.Equal(t, models.RoleStudent, store.created[0].Role)
	assert.NotEqual(t, "hunter22", store.created[0].PasswordHash)
}

func TestSignupRejectsDuplicateEmail(t *testing.T) {
	store := &userStoreStub{byEmail: map[string]*models.User{
		"dana@example.edu": enabledUser("dana@example.edu", "hunter22"),
	}}
	svc := NewAuthService(store, gateStub{}, nil, nil, testJWTConfig(), nil)

	_, err := svc.Signup(context.Background(), models.SignupRequest{
		Email:    "dana@example.edu",
		Password: "hunter22",
		FullName: "Dana Student",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	store := &userStoreStub{byEmail: map[string]*models.User{
		"dana@example.edu": enabledUser("dana@example.edu", "hunter22"),
	}}
	audit := &auditLoggerStub{}
	svc := NewAuthService(store, gateStub{}, audit, nil, testJWTConfig(), nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "dana@example.edu", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
	require.Len(t, audit.logs, 1)
	assert.False(t, audit.logs[0].Success)

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "nobody@example.edu", Password: "hunter22"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestLoginRejectsDisabledAccount(t *testing.T) {
	user := enabledUser("dana@example.edu", "hunter22")
	user.AccountEnabled = false
	user.VerificationStatus = models.VerificationPendingReview
	store := &userStoreStub{byEmail: map[string]*models.User{"dana@example.edu": user}}
	svc := NewAuthService(store, gateStub{}, nil, nil, testJWTConfig(), nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "dana@example.edu", Password: "hunter22"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	store := &userStoreStub{byEmail: map[string]*models.User{
		"dana@example.edu": enabledUser("dana@example.edu", "hunter22"),
	}}
	svc := NewAuthService(store, gateStub{}, nil, nil, testJWTConfig(), nil)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "dana@example.edu", Password: "hunter22"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)
	require.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, int64((15 * time.Minute).Seconds()), resp.ExpiresIn)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc := NewAuthService(&userStoreStub{}, gateStub{}, nil, nil, testJWTConfig(), nil)

	_, err := svc.ValidateToken("not.a.token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
