package service

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-clearance-api/internal/models"
	appErrors "github.com/noah-isme/campus-clearance-api/pkg/errors"
	"github.com/noah-isme/campus-clearance-api/pkg/export"
)

type certStoreStub struct {
	request      *models.ClearanceRequest
	markErr      error
	markedSerial string
}

func (s *certStoreStub) GetByID(ctx context.Context, id string) (*models.ClearanceRequest, error) {
	if s.request == nil || s.request.ID != id {
		return nil, sql.ErrNoRows
	}
	cp := *s.request
	return &cp, nil
}

func (s *certStoreStub) MarkCertificateIssued(ctx context.Context, id, certificateNumber string, issuedAt time.Time) error {
	if s.markErr != nil {
		return s.markErr
	}
	s.markedSerial = certificateNumber
	s.request.CertificateGenerated = true
	s.request.CertificateNumber = &certificateNumber
	s.request.CertificateGeneratedAt = &issuedAt
	return nil
}

type rendererStub struct {
	err     error
	renders int
}

func (r *rendererStub) Render(data export.CertificateData) ([]byte, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.renders++
	return []byte("%PDF-1.4"), nil
}

type filesStub struct {
	saved map[string][]byte
}

func (f *filesStub) Save(filename string, data []byte) (string, error) {
	if f.saved == nil {
		f.saved = map[string][]byte{}
	}
	f.saved[filename] = data
	return filename, nil
}

func (f *filesStub) Open(filename string) (*os.File, error) {
	return nil, os.ErrNotExist
}

type signerStub struct{}

func (signerStub) Generate(certificateID, relPath string) (string, time.Time, error) {
	return "tok-" + certificateID, time.Now().Add(15 * time.Minute), nil
}

func (signerStub) Parse(token string, allowExpired bool) (string, string, time.Time, error) {
	return "", "", time.Time{}, fmt.Errorf("not implemented")
}

type issueMetricsStub struct {
	issued int
}

func (m *issueMetricsStub) RecordCertificateIssued() { m.issued = m.issued + 1 }

var serialPattern = regexp.MustCompile(`^CLR-\d{4}-[0-9A-F]{8}$`)

func completedRequest(id string) *models.ClearanceRequest {
	req := pendingRequest(id)
	req.ProfessorsStatus = models.StageApproved
	req.LibraryStatus = models.StageApproved
	req.CashierStatus = models.StageApproved
	req.RegistrarStatus = models.StageApproved
	return req
}

func TestIssueAssignsSerialAndAuditsOnce(t *testing.T) {
	store := &certStoreStub{request: completedRequest("req-1")}
	renderer := &rendererStub{}
	files := &filesStub{}
	audit := &auditLoggerStub{}
	metrics := &issueMetricsStub{}
	svc := NewCertificateService(store, nil, renderer, files, signerStub{}, audit, metrics, "Test University", nil)

	serial, issuedAt, err := svc.Issue(context.Background(), store.request)
	require.NoError(t, err)
	assert.Regexp(t, serialPattern, serial)
	assert.Equal(t, serial, store.markedSerial)
	assert.False(t, issuedAt.IsZero())
	assert.Equal(t, 1, renderer.renders)
	assert.Contains(t, files.saved, serial+".pdf")
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionCertificateIssue, audit.logs[0].Action)
	assert.Equal(t, 1, metrics.issued)
}

func TestIssueIsIdempotent(t *testing.T) {
	existing := "CLR-2025-AB12CD34"
	generatedAt := time.Date(2025, 11, 2, 9, 0, 0, 0, time.UTC)
	req := completedRequest("req-1")
	req.CertificateGenerated = true
	req.CertificateNumber = &existing
	req.CertificateGeneratedAt = &generatedAt

	store := &certStoreStub{request: req}
	audit := &auditLoggerStub{}
	metrics := &issueMetricsStub{}
	svc := NewCertificateService(store, nil, nil, nil, signerStub{}, audit, metrics, "Test University", nil)

	serial, issuedAt, err := svc.Issue(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, existing, serial)
	assert.Equal(t, generatedAt, issuedAt)
	assert.Empty(t, store.markedSerial, "repeat issuance must not write")
	assert.Empty(t, audit.logs, "repeat issuance must not duplicate the audit trail")
	assert.Zero(t, metrics.issued)
}

func TestIssueRaceLoserAdoptsWinnerSerial(t *testing.T) {
	winner := "CLR-2026-00FF00FF"
	issuedAt := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	req := completedRequest("req-1")

	stored := *req
	stored.CertificateGenerated = true
	stored.CertificateNumber = &winner
	stored.CertificateGeneratedAt = &issuedAt
	store := &certStoreStub{request: &stored, markErr: sql.ErrNoRows}
	audit := &auditLoggerStub{}
	svc := NewCertificateService(store, nil, nil, nil, signerStub{}, audit, nil, "Test University", nil)

	serial, at, err := svc.Issue(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, winner, serial)
	assert.Equal(t, issuedAt, at)
	assert.Empty(t, audit.logs, "the losing issuer must not audit")
}

func TestIssueSurvivesRenderFailure(t *testing.T) {
	store := &certStoreStub{request: completedRequest("req-1")}
	renderer := &rendererStub{err: fmt.Errorf("font missing")}
	svc := NewCertificateService(store, nil, renderer, &filesStub{}, signerStub{}, &auditLoggerStub{}, nil, "Test University", nil)

	serial, _, err := svc.Issue(context.Background(), store.request)
	require.NoError(t, err)
	assert.Regexp(t, serialPattern, serial)
	assert.Equal(t, serial, store.markedSerial)
}

func TestDownloadURLEnforcesOwnership(t *testing.T) {
	serial := "CLR-2026-12345678"
	req := completedRequest("req-1")
	req.CertificateGenerated = true
	req.CertificateNumber = &serial
	store := &certStoreStub{request: req}
	svc := NewCertificateService(store, nil, nil, nil, signerStub{}, nil, nil, "Test University", nil)

	other := &models.JWTClaims{UserID: "stu-2", Role: models.RoleStudent}
	_, _, err := svc.DownloadURL(context.Background(), "req-1", other)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	owner := &models.JWTClaims{UserID: req.StudentID, Role: models.RoleStudent}
	token, expiresAt, err := svc.DownloadURL(context.Background(), "req-1", owner)
	require.NoError(t, err)
	assert.Equal(t, "tok-"+serial, token)
	assert.True(t, expiresAt.After(time.Now()))
}

func TestDownloadURLWithoutCertificate(t *testing.T) {
	store := &certStoreStub{request: completedRequest("req-1")}
	svc := NewCertificateService(store, nil, nil, nil, signerStub{}, nil, nil, "Test University", nil)

	registrar := &models.JWTClaims{UserID: "reg-1", Role: models.RoleRegistrarAdmin}
	_, _, err := svc.DownloadURL(context.Background(), "req-1", registrar)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
