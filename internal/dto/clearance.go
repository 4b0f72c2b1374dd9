package dto

import (
	"time"

	"github.com/noah-isme/campus-clearance-api/internal/models"
)

// ApplyRequest opens a clearance request for the authenticated student.
type ApplyRequest struct {
	StudentID string `json:"student_id"`
}

// StageActionRequest approves or rejects one clearance stage. Comments are
// optional on approval and mandatory on rejection.
type StageActionRequest struct {
	RequestID string `json:"request_id" validate:"required"`
	Comments  string `json:"comments"`
}

// ClearanceStatusResponse bundles a request with its derived stage pointer
// and the professor sign-off rows.
type ClearanceStatusResponse struct {
	Request      *models.ClearanceRequest   `json:"request"`
	CurrentStage models.Stage               `json:"current_stage"`
	Approvals    []models.ProfessorApproval `json:"professor_approvals"`
}

// CertificateResponse exposes the issued certificate and a signed download link.
type CertificateResponse struct {
	CertificateNumber string    `json:"certificate_number"`
	GeneratedAt       time.Time `json:"generated_at"`
	DownloadURL       string    `json:"download_url"`
	ExpiresAt         time.Time `json:"expires_at"`
}
