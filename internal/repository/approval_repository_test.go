package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-clearance-api/internal/models"
)

func approvalRows(statuses ...string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "request_id", "professor_id", "status", "comments", "approved_at", "created_at"})
	for i, status := range statuses {
		rows.AddRow(string(rune('a'+i)), "req-1", "prof-"+string(rune('1'+i)), status, nil, nil, time.Now())
	}
	return rows
}

func TestApprovalRepositoryRecordDecisionReducesAggregate(t *testing.T) {
	db, mock, cleanup := newClearanceRepoMock(t)
	defer cleanup()

	repo := NewApprovalRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM clearance_requests WHERE id = $1 FOR UPDATE")).
		WithArgs("req-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("req-1"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE professor_approvals")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM professor_approvals WHERE request_id = $1 ORDER BY created_at")).
		WithArgs("req-1").
		WillReturnRows(approvalRows("APPROVED", "APPROVED"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE clearance_requests SET professors_status")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	reduced, err := repo.RecordDecision(context.Background(), RecordDecisionParams{
		RequestID:   "req-1",
		ProfessorID: "prof-1",
		Status:      models.StageApproved,
		DecidedAt:   time.Now().UTC(),
	})
	require.NoError(t, err)
	require.Equal(t, models.StageApproved, reduced)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApprovalRepositoryRecordDecisionStaysPending(t *testing.T) {
	db, mock, cleanup := newClearanceRepoMock(t)
	defer cleanup()

	repo := NewApprovalRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("req-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("req-1"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE professor_approvals")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM professor_approvals")).
		WithArgs("req-1").
		WillReturnRows(approvalRows("APPROVED", "PENDING"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE clearance_requests SET professors_status")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	reduced, err := repo.RecordDecision(context.Background(), RecordDecisionParams{
		RequestID:   "req-1",
		ProfessorID: "prof-1",
		Status:      models.StageApproved,
		DecidedAt:   time.Now().UTC(),
	})
	require.NoError(t, err)
	require.Equal(t, models.StagePending, reduced)
}

func TestApprovalRepositoryDoubleVote(t *testing.T) {
	db, mock, cleanup := newClearanceRepoMock(t)
	defer cleanup()

	repo := NewApprovalRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("req-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("req-1"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE professor_approvals")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM professor_approvals WHERE request_id = $1 AND professor_id = $2")).
		WithArgs("req-1", "prof-1").
		WillReturnRows(approvalRows("APPROVED"))
	mock.ExpectRollback()

	_, err := repo.RecordDecision(context.Background(), RecordDecisionParams{
		RequestID:   "req-1",
		ProfessorID: "prof-1",
		Status:      models.StageApproved,
		DecidedAt:   time.Now().UTC(),
	})
	require.ErrorIs(t, err, ErrAlreadyDecided)
}

func TestApprovalRepositoryUnassignedProfessor(t *testing.T) {
	db, mock, cleanup := newClearanceRepoMock(t)
	defer cleanup()

	repo := NewApprovalRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("req-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("req-1"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE professor_approvals")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM professor_approvals WHERE request_id = $1 AND professor_id = $2")).
		WithArgs("req-1", "prof-9").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.RecordDecision(context.Background(), RecordDecisionParams{
		RequestID:   "req-1",
		ProfessorID: "prof-9",
		Status:      models.StageApproved,
		DecidedAt:   time.Now().UTC(),
	})
	require.ErrorIs(t, err, sql.ErrNoRows)
}

func TestApprovalRepositoryUnknownRequest(t *testing.T) {
	db, mock, cleanup := newClearanceRepoMock(t)
	defer cleanup()

	repo := NewApprovalRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.RecordDecision(context.Background(), RecordDecisionParams{
		RequestID:   "missing",
		ProfessorID: "prof-1",
		Status:      models.StageApproved,
		DecidedAt:   time.Now().UTC(),
	})
	require.ErrorIs(t, err, sql.ErrNoRows)
}
