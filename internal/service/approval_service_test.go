package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-clearance-api/internal/models"
	"github.com/noah-isme/campus-clearance-api/internal/repository"
	appErrors "github.com/noah-isme/campus-clearance-api/pkg/errors"
)

type approvalStoreStub struct {
	reduced models.StageStatus
	err     error
	params  []repository.RecordDecisionParams
}

func (s *approvalStoreStub) RecordDecision(ctx context.Context, params repository.RecordDecisionParams) (models.StageStatus, error) {
	s.params = append(s.params, params)
	if s.err != nil {
		return "", s.err
	}
	return s.reduced, nil
}

func (s *approvalStoreStub) FindPending(ctx context.Context, requestID, professorID string) (*models.ProfessorApproval, error) {
	return nil, sql.ErrNoRows
}

func professorClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "prof-1", Role: models.RoleProfessor}
}

func TestRecordDecisionRequiresProfessorRole(t *testing.T) {
	svc := NewApprovalService(&approvalStoreStub{}, &auditLoggerStub{}, &notifySinkStub{}, nil)

	student := &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent}
	_, err := svc.RecordDecision(context.Background(), "req-1", student, models.StageApproved, "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestRecordDecisionValidatesVerdict(t *testing.T) {
	svc := NewApprovalService(&approvalStoreStub{}, &auditLoggerStub{}, &notifySinkStub{}, nil)

	_, err := svc.RecordDecision(context.Background(), "req-1", professorClaims(), models.StagePending, "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRecordDecisionRejectionNeedsComments(t *testing.T) {
	store := &approvalStoreStub{}
	svc := NewApprovalService(store, &auditLoggerStub{}, &notifySinkStub{}, nil)

	_, err := svc.RecordDecision(context.Background(), "req-1", professorClaims(), models.StageRejected, "  ")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, store.params)
}

func TestRecordDecisionDoubleVoteSurfacesNotFound(t *testing.T) {
	store := &approvalStoreStub{err: repository.ErrAlreadyDecided}
	svc := NewApprovalService(store, &auditLoggerStub{}, &notifySinkStub{}, nil)

	_, err := svc.RecordDecision(context.Background(), "req-1", professorClaims(), models.StageApproved, "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestRecordDecisionUnassignedProfessor(t *testing.T) {
	store := &approvalStoreStub{err: sql.ErrNoRows}
	svc := NewApprovalService(store, &auditLoggerStub{}, &notifySinkStub{}, nil)

	_, err := svc.RecordDecision(context.Background(), "req-1", professorClaims(), models.StageApproved, "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestRecordDecisionNotifiesOnSettledAggregate(t *testing.T) {
	store := &approvalStoreStub{reduced: models.StageApproved}
	audit := &auditLoggerStub{}
	notify := &notifySinkStub{}
	svc := NewApprovalService(store, audit, notify, nil)

	reduced, err := svc.RecordDecision(context.Background(), "req-1", professorClaims(), models.StageApproved, "looks good")
	require.NoError(t, err)
	assert.Equal(t, models.StageApproved, reduced)
	require.Len(t, store.params, 1)
	assert.Equal(t, "prof-1", store.params[0].ProfessorID)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionProfessorDecision, audit.logs[0].Action)
	require.Len(t, notify.events, 1)
	assert.Equal(t, models.StageProfessors, notify.events[0].Stage)
}

func TestRecordDecisionStaysQuietWhilePending(t *testing.T) {
	store := &approvalStoreStub{reduced: models.StagePending}
	notify := &notifySinkStub{}
	svc := NewApprovalService(store, &auditLoggerStub{}, notify, nil)

	reduced, err := svc.RecordDecision(context.Background(), "req-1", professorClaims(), models.StageApproved, "")
	require.NoError(t, err)
	assert.Equal(t, models.StagePending, reduced)
	assert.Empty(t, notify.events)
}
