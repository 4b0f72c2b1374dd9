package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-clearance-api/internal/dto"
	"github.com/noah-isme/campus-clearance-api/internal/models"
	appErrors "github.com/noah-isme/campus-clearance-api/pkg/errors"
)

// AutoApproveThreshold is the similarity score at or above which a freshly
// created account is trusted without human review. It is the sole automatic
// trust boundary in the system and deliberately not configurable.
const AutoApproveThreshold = 90.0

// MatchResult is what the external identity-matching collaborator returns.
type MatchResult struct {
	Similarity   float64
	FaceDetected bool
}

// IdentityMatcher compares a selfie against an identity document. The
// embedding comparison itself is out of scope; only the score matters here.
type IdentityMatcher interface {
	Match(ctx context.Context, selfie, document []byte) (MatchResult, error)
}

// IdentityMatcherFunc allows using plain functions as matchers.
type IdentityMatcherFunc func(ctx context.Context, selfie, document []byte) (MatchResult, error)

// Match implements IdentityMatcher.
func (f IdentityMatcherFunc) Match(ctx context.Context, selfie, document []byte) (MatchResult, error) {
	return f(ctx, selfie, document)
}

// GateOutcome is the verification gate's classification of a new account.
type GateOutcome struct {
	Status         models.VerificationStatus
	AccountEnabled bool
	FaceVerified   bool
	Similarity     float64
}

// EvaluateIdentity classifies a similarity score. Scores at or above the
// threshold auto-approve. A missing face or a score outside [0,100] never
// silently rejects; it falls back to human review.
func EvaluateIdentity(similarity float64, faceDetected bool) GateOutcome {
	if !faceDetected || similarity < 0 || similarity > 100 {
		return GateOutcome{
			Status:     models.VerificationPendingReview,
			Similarity: similarity,
		}
	}
	if similarity >= AutoApproveThreshold {
		return GateOutcome{
			Status:         models.VerificationAutoApproved,
			AccountEnabled: true,
			FaceVerified:   true,
			Similarity:     similarity,
		}
	}
	return GateOutcome{
		Status:       models.VerificationPendingReview,
		FaceVerified: true,
		Similarity:   similarity,
	}
}

type accountStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	ListPendingReview(ctx context.Context) ([]models.User, error)
	UpdateVerification(ctx context.Context, id string, status models.VerificationStatus, enabled bool, reason *string) error
}

// VerificationService owns the account verification gate: the signup-time
// classification and the administrative overrides.
type VerificationService struct {
	repo    accountStore
	matcher IdentityMatcher
	audit   auditLogger
	notify  notificationSink
	logger  *zap.Logger
}

// NewVerificationService constructs the service.
func NewVerificationService(repo accountStore, matcher IdentityMatcher, audit auditLogger, notify notificationSink, logger *zap.Logger) *VerificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VerificationService{repo: repo, matcher: matcher, audit: audit, notify: notify, logger: logger}
}

// Classify runs the external matcher and evaluates the gate. A matcher
// failure routes to pending review rather than rejecting.
func (s *VerificationService) Classify(ctx context.Context, selfie, document []byte) GateOutcome {
	if s.matcher == nil || len(selfie) == 0 || len(document) == 0 {
		return EvaluateIdentity(0, false)
	}
	result, err := s.matcher.Match(ctx, selfie, document)
	if err != nil {
		s.logger.Warn("identity match failed, routing to manual review", zap.Error(err))
		return EvaluateIdentity(0, false)
	}
	return EvaluateIdentity(result.Similarity, result.FaceDetected)
}

// ListPendingAccounts returns accounts awaiting manual review.
func (s *VerificationService) ListPendingAccounts(ctx context.Context) ([]dto.PendingAccountItem, error) {
	users, err := s.repo.ListPendingReview(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending accounts")
	}
	items := make([]dto.PendingAccountItem, 0, len(users))
	for _, u := range users {
		items = append(items, dto.PendingAccountFromUser(u))
	}
	return items, nil
}

// ApproveAccount applies an administrative approval. This is a state
// assignment, not an event append: repeating it on an already-approved
// account is a no-op success and does not duplicate the audit trail.
func (s *VerificationService) ApproveAccount(ctx context.Context, userID string, actor *models.JWTClaims) (*models.User, error) {
	user, err := s.loadForReview(ctx, userID, actor)
	if err != nil {
		return nil, err
	}
	if user.VerificationStatus == models.VerificationApproved {
		return user, nil
	}

	if err := s.repo.UpdateVerification(ctx, userID, models.VerificationApproved, true, nil); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve account")
	}

	user.VerificationStatus = models.VerificationApproved
	user.AccountEnabled = true
	user.RejectionReason = nil

	s.emitAccountAudit(ctx, actor, models.AuditActionAccountApprove, userID, "")
	s.dispatchAccountEvent(userID, models.VerificationApproved, "")
	return user, nil
}

// RejectAccount applies an administrative rejection. The reason is mandatory
// and persisted on the account, not just logged.
func (s *VerificationService) RejectAccount(ctx context.Context, userID string, actor *models.JWTClaims, reason string) (*models.User, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a reason is required when rejecting an account")
	}
	user, err := s.loadForReview(ctx, userID, actor)
	if err != nil {
		return nil, err
	}
	if user.VerificationStatus == models.VerificationRejected {
		return user, nil
	}

	if err := s.repo.UpdateVerification(ctx, userID, models.VerificationRejected, false, &reason); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject account")
	}

	user.VerificationStatus = models.VerificationRejected
	user.AccountEnabled = false
	user.RejectionReason = &reason

	s.emitAccountAudit(ctx, actor, models.AuditActionAccountReject, userID, reason)
	s.dispatchAccountEvent(userID, models.VerificationRejected, reason)
	return user, nil
}

func (s *VerificationService) loadForReview(ctx context.Context, userID string, actor *models.JWTClaims) (*models.User, error) {
	if actor == nil || actor.UserID == "" {
		return nil, appErrors.ErrUnauthorized
	}
	if !models.RoleHas(actor.Role, models.CapReviewAccounts) {
		return nil, appErrors.ErrForbidden
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load account")
	}
	return user, nil
}

func (s *VerificationService) emitAccountAudit(ctx context.Context, actor *models.JWTClaims, action, userID, reason string) {
	if s.audit == nil {
		return
	}
	metadata := map[string]interface{}{"admin_role": actor.Role}
	if reason != "" {
		metadata["reason"] = reason
	}
	log := &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     action,
		Resource:   "user",
		ResourceID: &userID,
		Success:    true,
		Metadata:   auditMetadata(metadata),
		IPAddress:  "system",
		UserAgent:  "verification-service",
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}

func (s *VerificationService) dispatchAccountEvent(userID string, status models.VerificationStatus, reason string) {
	if s.notify == nil {
		return
	}
	s.notify.Dispatch(NotificationEvent{
		Type:    NotificationAccountDecided,
		UserID:  userID,
		Outcome: string(status),
		Reason:  reason,
	})
}
