package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-clearance-api/internal/dto"
	"github.com/noah-isme/campus-clearance-api/internal/models"
	appErrors "github.com/noah-isme/campus-clearance-api/pkg/errors"
)

type clearanceStore interface {
	Create(ctx context.Context, request *models.ClearanceRequest, professorIDs []string) error
	GetByID(ctx context.Context, id string) (*models.ClearanceRequest, error)
	GetActiveByStudent(ctx context.Context, studentID string) (*models.ClearanceRequest, error)
	GetLatestByStudent(ctx context.Context, studentID string) (*models.ClearanceRequest, error)
	SetStageStatus(ctx context.Context, id string, stage models.Stage, status models.StageStatus, comment *string) error
	ResetRejectedStages(ctx context.Context, id string) error
	Delete(ctx context.Context, id, studentID string) error
	ListApprovals(ctx context.Context, requestID string) ([]models.ProfessorApproval, error)
}

type professorDirectory interface {
	ListIDsByRole(ctx context.Context, role models.UserRole) ([]string, error)
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type certificateIssuer interface {
	Issue(ctx context.Context, request *models.ClearanceRequest) (string, time.Time, error)
}

type notificationSink interface {
	Dispatch(event NotificationEvent)
}

type stageMetrics interface {
	RecordStageDecision(stage, outcome string)
}

// ClearanceService owns the clearance request state machine: stage
// sequencing, approval and rejection semantics, resubmission, cancellation,
// and certificate issuance on the terminal transition.
type ClearanceService struct {
	repo       clearanceStore
	professors professorDirectory
	certs      certificateIssuer
	audit      auditLogger
	notify     notificationSink
	metrics    stageMetrics
	logger     *zap.Logger
}

// NewClearanceService constructs the service.
func NewClearanceService(repo clearanceStore, professors professorDirectory, certs certificateIssuer, audit auditLogger, notify notificationSink, metrics stageMetrics, logger *zap.Logger) *ClearanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClearanceService{
		repo:       repo,
		professors: professors,
		certs:      certs,
		audit:      audit,
		notify:     notify,
		metrics:    metrics,
		logger:     logger,
	}
}

// Apply opens a clearance request for the student with all stages pending and
// one approval row per currently assigned professor. The professor set is
// frozen at this point; later role changes only affect future requests.
func (s *ClearanceService) Apply(ctx context.Context, studentID string) (*dto.ClearanceStatusResponse, error) {
	if strings.TrimSpace(studentID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id is required")
	}

	if _, err := s.repo.GetActiveByStudent(ctx, studentID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "an active clearance request already exists for this student")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing requests")
	}

	professorIDs, err := s.professors.ListIDsByRole(ctx, models.RoleProfessor)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assigned professors")
	}
	if len(professorIDs) == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "no professors are assigned to review clearance requests")
	}

	request := &models.ClearanceRequest{StudentID: studentID}
	if err := s.repo.Create(ctx, request, professorIDs); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create clearance request")
	}

	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &studentID,
		Action:     models.AuditActionClearanceApply,
		Resource:   "clearance_request",
		ResourceID: &request.ID,
		Success:    true,
		Metadata:   auditMetadata(map[string]interface{}{"professors": len(professorIDs)}),
	})

	approvals, err := s.repo.ListApprovals(ctx, request.ID)
	if err != nil {
		s.logger.Warn("failed to list approvals after apply", zap.Error(err))
	}
	return &dto.ClearanceStatusResponse{
		Request:      request,
		CurrentStage: request.CurrentStage(),
		Approvals:    approvals,
	}, nil
}

// ApproveStage advances a non-professor stage. The write is conditioned on
// the stage still being pending and the prior stage approved, so concurrent
// reviewers race on the database, not on stale reads. Approving the registrar
// stage issues the certificate and completes the request.
func (s *ClearanceService) ApproveStage(ctx context.Context, requestID string, stage models.Stage, actor *models.JWTClaims, comments string) (*models.ClearanceRequest, error) {
	request, err := s.validateStageAction(ctx, requestID, stage, actor)
	if err != nil {
		return nil, err
	}

	if err := s.repo.SetStageStatus(ctx, requestID, stage, models.StageApproved, optionalString(comments)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.emitStageAudit(ctx, actor, models.AuditActionStageApprove, request.ID, stage, false, comments)
			return nil, appErrors.Clone(appErrors.ErrConflict, "stage status changed concurrently; reload and retry")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve stage")
	}

	if stage == models.StageRegistrar {
		if _, _, err := s.certs.Issue(ctx, request); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue clearance certificate")
		}
	}

	s.emitStageAudit(ctx, actor, models.AuditActionStageApprove, request.ID, stage, true, comments)
	s.recordDecision(stage, models.StageApproved)

	updated, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload request")
	}
	s.dispatch(NotificationEvent{
		Type:      NotificationStageDecided,
		RequestID: updated.ID,
		StudentID: updated.StudentID,
		Stage:     stage,
		Outcome:   string(models.StageApproved),
	})
	return updated, nil
}

// RejectStage marks a stage rejected. A human-readable reason is mandatory
// and is persisted on the stage, not just logged. The current stage pointer
// is left unchanged; the student must resubmit.
func (s *ClearanceService) RejectStage(ctx context.Context, requestID string, stage models.Stage, actor *models.JWTClaims, comments string) (*models.ClearanceRequest, error) {
	if strings.TrimSpace(comments) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "comments are required when rejecting a stage")
	}
	request, err := s.validateStageAction(ctx, requestID, stage, actor)
	if err != nil {
		return nil, err
	}

	if err := s.repo.SetStageStatus(ctx, requestID, stage, models.StageRejected, optionalString(comments)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.emitStageAudit(ctx, actor, models.AuditActionStageReject, request.ID, stage, false, comments)
			return nil, appErrors.Clone(appErrors.ErrConflict, "stage status changed concurrently; reload and retry")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject stage")
	}

	s.emitStageAudit(ctx, actor, models.AuditActionStageReject, request.ID, stage, true, comments)
	s.recordDecision(stage, models.StageRejected)

	updated, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload request")
	}
	s.dispatch(NotificationEvent{
		Type:      NotificationStageDecided,
		RequestID: updated.ID,
		StudentID: updated.StudentID,
		Stage:     stage,
		Outcome:   string(models.StageRejected),
		Reason:    comments,
	})
	return updated, nil
}

// Resubmit returns every rejected stage to pending so review can restart.
func (s *ClearanceService) Resubmit(ctx context.Context, requestID, studentID string) (*models.ClearanceRequest, error) {
	request, err := s.loadOwned(ctx, requestID, studentID)
	if err != nil {
		return nil, err
	}
	if request.IsCompleted {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "completed requests cannot be resubmitted")
	}
	if !request.HasRejectedStage() {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "no rejected stage to resubmit")
	}

	if err := s.repo.ResetRejectedStages(ctx, requestID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "request changed concurrently; reload and retry")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resubmit request")
	}

	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &studentID,
		Action:     models.AuditActionClearanceResubmit,
		Resource:   "clearance_request",
		ResourceID: &requestID,
		Success:    true,
	})

	updated, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload request")
	}
	return updated, nil
}

// Cancel discards a non-completed request owned by the student.
func (s *ClearanceService) Cancel(ctx context.Context, requestID, studentID string) error {
	request, err := s.loadOwned(ctx, requestID, studentID)
	if err != nil {
		return err
	}
	if request.IsCompleted {
		return appErrors.Clone(appErrors.ErrInvalidTransition, "completed requests cannot be cancelled")
	}

	if err := s.repo.Delete(ctx, requestID, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrConflict, "request changed concurrently; reload and retry")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel request")
	}

	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &studentID,
		Action:     models.AuditActionClearanceCancel,
		Resource:   "clearance_request",
		ResourceID: &requestID,
		Success:    true,
	})
	return nil
}

// Status returns the student's most recent request with its approval rows
// and the derived current stage.
func (s *ClearanceService) Status(ctx context.Context, studentID string) (*dto.ClearanceStatusResponse, error) {
	request, err := s.repo.GetLatestByStudent(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no clearance request found for this student")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	approvals, err := s.repo.ListApprovals(ctx, request.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load professor approvals")
	}
	return &dto.ClearanceStatusResponse{
		Request:      request,
		CurrentStage: request.CurrentStage(),
		Approvals:    approvals,
	}, nil
}

// Get returns one request by id, restricted to its owner or non-student roles.
func (s *ClearanceService) Get(ctx context.Context, requestID string, actor *models.JWTClaims) (*models.ClearanceRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	request, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	if actor.Role == models.RoleStudent && request.StudentID != actor.UserID {
		return nil, appErrors.ErrForbidden
	}
	return request, nil
}

// validateStageAction runs the shared checks for approve and reject: caller
// capability, stage validity, and strict sequence order. Out-of-order
// attempts are rejected deterministically here, not left to the UI.
func (s *ClearanceService) validateStageAction(ctx context.Context, requestID string, stage models.Stage, actor *models.JWTClaims) (*models.ClearanceRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !models.ValidStage(stage) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown stage %q", stage))
	}
	if stage == models.StageProfessors {
		return nil, appErrors.Clone(appErrors.ErrValidation, "professor stage decisions are recorded per professor, not as a stage action")
	}
	if !models.RoleHas(actor.Role, models.StageCapability(stage)) {
		return nil, appErrors.ErrForbidden
	}

	request, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	if request.IsCompleted {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "request already completed")
	}
	if prior, hasPrior := models.PriorStage(stage); hasPrior {
		if request.StageStatusOf(prior) != models.StageApproved {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
				fmt.Sprintf("%s stage must be approved before %s", strings.ToLower(string(prior)), strings.ToLower(string(stage))))
		}
	}
	switch request.StageStatusOf(stage) {
	case models.StageApproved:
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "stage already approved")
	case models.StageRejected:
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "stage was rejected; the student must resubmit first")
	}
	return request, nil
}

func (s *ClearanceService) loadOwned(ctx context.Context, requestID, studentID string) (*models.ClearanceRequest, error) {
	request, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	if request.StudentID != studentID {
		return nil, appErrors.ErrForbidden
	}
	return request, nil
}

func (s *ClearanceService) emitStageAudit(ctx context.Context, actor *models.JWTClaims, action, requestID string, stage models.Stage, success bool, comments string) {
	var userID *string
	if actor != nil {
		userID = &actor.UserID
	}
	metadata := map[string]interface{}{"stage": stage}
	if comments != "" {
		metadata["comments"] = comments
	}
	if actor != nil {
		metadata["role"] = actor.Role
	}
	s.emitAudit(ctx, &models.AuditLog{
		UserID:     userID,
		Action:     action,
		Resource:   "clearance_request",
		ResourceID: &requestID,
		Success:    success,
		Metadata:   auditMetadata(metadata),
	})
}

func (s *ClearanceService) emitAudit(ctx context.Context, log *models.AuditLog) {
	if s.audit == nil || log == nil {
		return
	}
	log.IPAddress = "system"
	log.UserAgent = "clearance-service"
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}

func (s *ClearanceService) recordDecision(stage models.Stage, outcome models.StageStatus) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordStageDecision(string(stage), string(outcome))
}

func (s *ClearanceService) dispatch(event NotificationEvent) {
	if s.notify == nil {
		return
	}
	s.notify.Dispatch(event)
}

func auditMetadata(values map[string]interface{}) []byte {
	if len(values) == 0 {
		return nil
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return nil
	}
	return raw
}

func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
