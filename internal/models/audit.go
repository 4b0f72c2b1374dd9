package models

import "time"

// AuditAction constants represent actions to be logged.
const (
	AuditActionLogin             = "LOGIN"
	AuditActionSignup            = "SIGNUP"
	AuditActionClearanceApply    = "CLEARANCE_APPLY"
	AuditActionStageApprove      = "STAGE_APPROVE"
	AuditActionStageReject       = "STAGE_REJECT"
	AuditActionProfessorDecision = "PROFESSOR_DECISION"
	AuditActionClearanceResubmit = "CLEARANCE_RESUBMIT"
	AuditActionClearanceCancel   = "CLEARANCE_CANCEL"
	AuditActionCertificateIssue  = "CERTIFICATE_ISSUE"
	AuditActionAccountApprove    = "ACCOUNT_APPROVE"
	AuditActionAccountReject     = "ACCOUNT_REJECT"
	AuditActionGateEvaluate      = "VERIFICATION_GATE"
)

// AuditLog represents an append-only audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	Success    bool      `db:"success" json:"success"`
	Metadata   []byte    `db:"metadata" json:"metadata,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// AuditLogFilter constrains audit trail listing.
type AuditLogFilter struct {
	UserID   string
	Action   string
	Resource string
	Limit    int
	Offset   int
}
