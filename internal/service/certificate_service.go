package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-clearance-api/internal/models"
	appErrors "github.com/noah-isme/campus-clearance-api/pkg/errors"
	"github.com/noah-isme/campus-clearance-api/pkg/export"
)

type certificateStore interface {
	GetByID(ctx context.Context, id string) (*models.ClearanceRequest, error)
	MarkCertificateIssued(ctx context.Context, id, certificateNumber string, issuedAt time.Time) error
}

type studentDirectory interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type certificateRenderer interface {
	Render(data export.CertificateData) ([]byte, error)
}

type certificateFiles interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
}

type urlSigner interface {
	Generate(certificateID, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (certificateID, relPath string, expiresAt time.Time, err error)
}

type issueMetrics interface {
	RecordCertificateIssued()
}

// CertificateService issues clearance certificates exactly once per request
// and serves signed download links for them. The serial number in the
// database is the source of truth; the PDF on disk is derived output.
type CertificateService struct {
	repo        certificateStore
	students    studentDirectory
	renderer    certificateRenderer
	files       certificateFiles
	signer      urlSigner
	audit       auditLogger
	metrics     issueMetrics
	institution string
	logger      *zap.Logger
	now         func() time.Time
}

// NewCertificateService constructs the service.
func NewCertificateService(repo certificateStore, students studentDirectory, renderer certificateRenderer, files certificateFiles, signer urlSigner, audit auditLogger, metrics issueMetrics, institution string, logger *zap.Logger) *CertificateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CertificateService{
		repo:        repo,
		students:    students,
		renderer:    renderer,
		files:       files,
		signer:      signer,
		audit:       audit,
		metrics:     metrics,
		institution: institution,
		logger:      logger,
		now:         time.Now,
	}
}

// Issue assigns a certificate serial to a request. Idempotent: a request that
// already carries a certificate gets the stored serial back, and when two
// issuers race the compare-and-set decides a single winner whose serial both
// callers observe. Only the first issuance is audited.
func (s *CertificateService) Issue(ctx context.Context, request *models.ClearanceRequest) (string, time.Time, error) {
	if request == nil {
		return "", time.Time{}, appErrors.Clone(appErrors.ErrValidation, "request is required")
	}
	if request.CertificateGenerated && request.CertificateNumber != nil {
		return *request.CertificateNumber, issuedAtOf(request), nil
	}

	serial := s.newSerial()
	issuedAt := s.now().UTC()

	if err := s.repo.MarkCertificateIssued(ctx, request.ID, serial, issuedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			winner, loadErr := s.repo.GetByID(ctx, request.ID)
			if loadErr != nil {
				return "", time.Time{}, appErrors.Wrap(loadErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load issued certificate")
			}
			if winner.CertificateNumber == nil {
				return "", time.Time{}, appErrors.Clone(appErrors.ErrConflict, "certificate issuance raced and no serial was recorded")
			}
			return *winner.CertificateNumber, issuedAtOf(winner), nil
		}
		return "", time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record certificate")
	}

	// The serial is committed; rendering is best effort. A failed render can
	// be repaired by re-rendering from the stored serial later.
	s.renderAndStore(ctx, request, serial, issuedAt)

	s.emitIssueAudit(ctx, request, serial)
	if s.metrics != nil {
		s.metrics.RecordCertificateIssued()
	}
	return serial, issuedAt, nil
}

// DownloadURL returns a signed, expiring token for the request's certificate.
// Students may only fetch their own.
func (s *CertificateService) DownloadURL(ctx context.Context, requestID string, actor *models.JWTClaims) (string, time.Time, error) {
	if actor == nil {
		return "", time.Time{}, appErrors.ErrUnauthorized
	}
	request, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", time.Time{}, appErrors.ErrNotFound
		}
		return "", time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	if actor.Role == models.RoleStudent && request.StudentID != actor.UserID {
		return "", time.Time{}, appErrors.ErrForbidden
	}
	if !request.CertificateGenerated || request.CertificateNumber == nil {
		return "", time.Time{}, appErrors.Clone(appErrors.ErrNotFound, "no certificate has been issued for this request")
	}

	serial := *request.CertificateNumber
	token, expiresAt, err := s.signer.Generate(serial, certificateFilename(serial))
	if err != nil {
		return "", time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download url")
	}
	return token, expiresAt, nil
}

// OpenByToken validates a download token and opens the referenced file.
func (s *CertificateService) OpenByToken(token string) (*os.File, string, error) {
	serial, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	file, err := s.files.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "certificate file not found")
	}
	return file, serial, nil
}

// newSerial builds serials like CLR-2026-9F3A01BC.
func (s *CertificateService) newSerial() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
	return fmt.Sprintf("CLR-%d-%s", s.now().UTC().Year(), suffix)
}

func (s *CertificateService) renderAndStore(ctx context.Context, request *models.ClearanceRequest, serial string, issuedAt time.Time) {
	if s.renderer == nil || s.files == nil {
		return
	}
	data := export.CertificateData{
		Institution:       s.institution,
		StudentID:         request.StudentID,
		CertificateNumber: serial,
		IssuedAt:          issuedAt,
	}
	if s.students != nil {
		if student, err := s.students.FindByID(ctx, request.StudentID); err == nil {
			data.StudentName = student.FullName
		}
	}

	pdf, err := s.renderer.Render(data)
	if err != nil {
		s.logger.Error("failed to render certificate pdf",
			zap.String("request_id", request.ID),
			zap.String("certificate_number", serial),
			zap.Error(err))
		return
	}
	if _, err := s.files.Save(certificateFilename(serial), pdf); err != nil {
		s.logger.Error("failed to store certificate pdf",
			zap.String("certificate_number", serial),
			zap.Error(err))
	}
}

func (s *CertificateService) emitIssueAudit(ctx context.Context, request *models.ClearanceRequest, serial string) {
	if s.audit == nil {
		return
	}
	log := &models.AuditLog{
		UserID:     &request.StudentID,
		Action:     models.AuditActionCertificateIssue,
		Resource:   "clearance_request",
		ResourceID: &request.ID,
		Success:    true,
		Metadata:   auditMetadata(map[string]interface{}{"certificate_number": serial}),
		IPAddress:  "system",
		UserAgent:  "certificate-service",
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}

func certificateFilename(serial string) string {
	return serial + ".pdf"
}

func issuedAtOf(request *models.ClearanceRequest) time.Time {
	if request.CertificateGeneratedAt != nil {
		return *request.CertificateGeneratedAt
	}
	return time.Time{}
}
