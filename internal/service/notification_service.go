package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-clearance-api/internal/models"
	"github.com/noah-isme/campus-clearance-api/pkg/jobs"
)

// Notification event types.
const (
	NotificationStageDecided   = "stage.decided"
	NotificationAccountDecided = "account.decided"
)

// NotificationEvent describes something a student or reviewer should hear
// about. Delivery is best-effort and never blocks the originating request.
type NotificationEvent struct {
	Type      string       `json:"type"`
	RequestID string       `json:"request_id,omitempty"`
	StudentID string       `json:"student_id,omitempty"`
	UserID    string       `json:"user_id,omitempty"`
	Stage     models.Stage `json:"stage,omitempty"`
	Outcome   string       `json:"outcome,omitempty"`
	Reason    string       `json:"reason,omitempty"`
}

// NotificationService fans events out through a background worker queue.
// Actual channel delivery (email, push) is pluggable; today it only logs.
type NotificationService struct {
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewNotificationService builds the service and its backing queue.
func NewNotificationService(cfg jobs.QueueConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{logger: logger}
	cfg.Logger = logger
	s.queue = jobs.NewQueue("notifications", s.deliver, cfg)
	return s
}

// Start launches the delivery workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// Dispatch enqueues an event. Failures are logged, not propagated; a full
// queue must never fail a clearance decision.
func (s *NotificationService) Dispatch(event NotificationEvent) {
	err := s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    event.Type,
		Payload: event,
	})
	if err != nil {
		s.logger.Warn("failed to enqueue notification",
			zap.String("type", event.Type),
			zap.String("request_id", event.RequestID),
			zap.Error(err))
	}
}

func (s *NotificationService) deliver(ctx context.Context, job jobs.Job) error {
	event, ok := job.Payload.(NotificationEvent)
	if !ok {
		s.logger.Warn("dropping notification with unexpected payload", zap.String("job_id", job.ID))
		return nil
	}

	// Email delivery is not configured in this deployment; record the event
	// so operators can trace what would have been sent.
	s.logger.Info("notification dispatched",
		zap.String("type", event.Type),
		zap.String("request_id", event.RequestID),
		zap.String("student_id", event.StudentID),
		zap.String("user_id", event.UserID),
		zap.String("stage", string(event.Stage)),
		zap.String("outcome", event.Outcome))
	return nil
}
