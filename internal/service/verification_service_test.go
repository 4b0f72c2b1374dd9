package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-clearance-api/internal/models"
	appErrors "github.com/noah-isme/campus-clearance-api/pkg/errors"
)

type accountStoreStub struct {
	users   map[string]*models.User
	updates []string
}

func (s *accountStoreStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := s.users[id]; ok {
		cp := *user
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (s *accountStoreStub) ListPendingReview(ctx context.Context) ([]models.User, error) {
	var out []models.User
	for _, u := range s.users {
		if u.VerificationStatus == models.VerificationPendingReview {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (s *accountStoreStub) UpdateVerification(ctx context.Context, id string, status models.VerificationStatus, enabled bool, reason *string) error {
	user, ok := s.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	user.VerificationStatus = status
	user.AccountEnabled = enabled
	user.RejectionReason = reason
	s.updates = append(s.updates, id)
	return nil
}

func reviewerClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "admin-1", Role: models.RoleRegistrarAdmin}
}

func TestEvaluateIdentityThresholdBoundary(t *testing.T) {
	atThreshold := EvaluateIdentity(90.0, true)
	assert.Equal(t, models.VerificationAutoApproved, atThreshold.Status)
	assert.True(t, atThreshold.AccountEnabled)
	assert.True(t, atThreshold.FaceVerified)

	justBelow := EvaluateIdentity(89.99, true)
	assert.Equal(t, models.VerificationPendingReview, justBelow.Status)
	assert.False(t, justBelow.AccountEnabled)
	assert.True(t, justBelow.FaceVerified)
}

func TestEvaluateIdentityNeverAutoRejects(t *testing.T) {
	noFace := EvaluateIdentity(95, false)
	assert.Equal(t, models.VerificationPendingReview, noFace.Status)
	assert.False(t, noFace.FaceVerified)

	outOfRange := EvaluateIdentity(140, true)
	assert.Equal(t, models.VerificationPendingReview, outOfRange.Status)

	negative := EvaluateIdentity(-1, true)
	assert.Equal(t, models.VerificationPendingReview, negative.Status)
}

func TestClassifyRoutesMatcherFailureToReview(t *testing.T) {
	matcher := IdentityMatcherFunc(func(ctx context.Context, selfie, document []byte) (MatchResult, error) {
		return MatchResult{}, fmt.Errorf("provider unavailable")
	})
	svc := NewVerificationService(&accountStoreStub{}, matcher, nil, nil, nil)

	outcome := svc.Classify(context.Background(), []byte("selfie"), []byte("doc"))
	assert.Equal(t, models.VerificationPendingReview, outcome.Status)
	assert.False(t, outcome.AccountEnabled)
}

func TestClassifyAutoApprovesHighSimilarity(t *testing.T) {
	matcher := IdentityMatcherFunc(func(ctx context.Context, selfie, document []byte) (MatchResult, error) {
		return MatchResult{Similarity: 97.3, FaceDetected: true}, nil
	})
	svc := NewVerificationService(&accountStoreStub{}, matcher, nil, nil, nil)

	outcome := svc.Classify(context.Background(), []byte("selfie"), []byte("doc"))
	assert.Equal(t, models.VerificationAutoApproved, outcome.Status)
	assert.True(t, outcome.AccountEnabled)
}

func TestApproveAccountEnablesAndAudits(t *testing.T) {
	store := &accountStoreStub{users: map[string]*models.User{
		"u1": {ID: "u1", VerificationStatus: models.VerificationPendingReview},
	}}
	audit := &auditLoggerStub{}
	svc := NewVerificationService(store, nil, audit, &notifySinkStub{}, nil)

	user, err := svc.ApproveAccount(context.Background(), "u1", reviewerClaims())
	require.NoError(t, err)
	assert.Equal(t, models.VerificationApproved, user.VerificationStatus)
	assert.True(t, user.AccountEnabled)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionAccountApprove, audit.logs[0].Action)
}

func TestApproveAccountIsIdempotent(t *testing.T) {
	store := &accountStoreStub{users: map[string]*models.User{
		"u1": {ID: "u1", VerificationStatus: models.VerificationApproved, AccountEnabled: true},
	}}
	audit := &auditLoggerStub{}
	svc := NewVerificationService(store, nil, audit, &notifySinkStub{}, nil)

	user, err := svc.ApproveAccount(context.Background(), "u1", reviewerClaims())
	require.NoError(t, err)
	assert.Equal(t, models.VerificationApproved, user.VerificationStatus)
	assert.Empty(t, store.updates, "repeat approval must not write")
	assert.Empty(t, audit.logs, "repeat approval must not duplicate the audit trail")
}

func TestRejectAccountRequiresReason(t *testing.T) {
	svc := NewVerificationService(&accountStoreStub{}, nil, nil, nil, nil)

	_, err := svc.RejectAccount(context.Background(), "u1", reviewerClaims(), "  ")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRejectAccountPersistsReason(t *testing.T) {
	store := &accountStoreStub{users: map[string]*models.User{
		"u1": {ID: "u1", VerificationStatus: models.VerificationPendingReview},
	}}
	svc := NewVerificationService(store, nil, &auditLoggerStub{}, &notifySinkStub{}, nil)

	user, err := svc.RejectAccount(context.Background(), "u1", reviewerClaims(), "document mismatch")
	require.NoError(t, err)
	assert.Equal(t, models.VerificationRejected, user.VerificationStatus)
	assert.False(t, user.AccountEnabled)
	require.NotNil(t, user.RejectionReason)
	assert.Equal(t, "document mismatch", *user.RejectionReason)
}

func TestAccountReviewRequiresCapability(t *testing.T) {
	svc := NewVerificationService(&accountStoreStub{}, nil, nil, nil, nil)

	professor := &models.JWTClaims{UserID: "p1", Role: models.RoleProfessor}
	_, err := svc.ApproveAccount(context.Background(), "u1", professor)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
