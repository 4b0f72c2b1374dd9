package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-clearance-api/internal/models"
	"github.com/noah-isme/campus-clearance-api/internal/repository"
	appErrors "github.com/noah-isme/campus-clearance-api/pkg/errors"
)

type approvalStore interface {
	RecordDecision(ctx context.Context, params repository.RecordDecisionParams) (models.StageStatus, error)
	FindPending(ctx context.Context, requestID, professorID string) (*models.ProfessorApproval, error)
}

// ApprovalService reduces the independent professor sign-offs for a request
// into the single professors stage verdict. The rule is strict AND/OR: any
// single rejection blocks the stage, and approval requires every assigned
// professor. No quorum or majority semantics.
type ApprovalService struct {
	repo   approvalStore
	audit  auditLogger
	notify notificationSink
	logger *zap.Logger
}

// NewApprovalService constructs the service.
func NewApprovalService(repo approvalStore, audit auditLogger, notify notificationSink, logger *zap.Logger) *ApprovalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ApprovalService{repo: repo, audit: audit, notify: notify, logger: logger}
}

// RecordDecision stores one professor's verdict and returns the recomputed
// stage aggregate. Voting twice or voting on a request the professor is not
// assigned to both surface as not-found: there is no pending row to decide.
func (s *ApprovalService) RecordDecision(ctx context.Context, requestID string, actor *models.JWTClaims, decision models.StageStatus, comments string) (models.StageStatus, error) {
	if actor == nil {
		return "", appErrors.ErrUnauthorized
	}
	if !models.RoleHas(actor.Role, models.CapDecideProfessor) {
		return "", appErrors.ErrForbidden
	}
	if decision != models.StageApproved && decision != models.StageRejected {
		return "", appErrors.Clone(appErrors.ErrValidation, "decision must be APPROVED or REJECTED")
	}
	if decision == models.StageRejected && strings.TrimSpace(comments) == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, "comments are required when rejecting")
	}

	reduced, err := s.repo.RecordDecision(ctx, repository.RecordDecisionParams{
		RequestID:   requestID,
		ProfessorID: actor.UserID,
		Status:      decision,
		Comments:    optionalString(comments),
		DecidedAt:   time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", appErrors.Clone(appErrors.ErrNotFound, "no pending approval found for this professor on this request")
		}
		if errors.Is(err, repository.ErrAlreadyDecided) {
			return "", appErrors.Clone(appErrors.ErrNotFound, "no pending approval found; this professor's decision is already recorded")
		}
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record professor decision")
	}

	s.emitDecisionAudit(ctx, actor, requestID, decision, reduced, comments)

	if reduced != models.StagePending && s.notify != nil {
		s.notify.Dispatch(NotificationEvent{
			Type:      NotificationStageDecided,
			RequestID: requestID,
			Stage:     models.StageProfessors,
			Outcome:   string(reduced),
			Reason:    comments,
		})
	}
	return reduced, nil
}

func (s *ApprovalService) emitDecisionAudit(ctx context.Context, actor *models.JWTClaims, requestID string, decision, reduced models.StageStatus, comments string) {
	if s.audit == nil {
		return
	}
	metadata := map[string]interface{}{
		"decision":  decision,
		"aggregate": reduced,
	}
	if comments != "" {
		metadata["comments"] = comments
	}
	log := &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionProfessorDecision,
		Resource:   "clearance_request",
		ResourceID: &requestID,
		Success:    true,
		Metadata:   auditMetadata(metadata),
		IPAddress:  "system",
		UserAgent:  "approval-service",
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}
