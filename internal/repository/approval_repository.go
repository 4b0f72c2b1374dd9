package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-clearance-api/internal/models"
)

// ErrAlreadyDecided signals a professor attempting to vote twice on the same
// request.
var ErrAlreadyDecided = errors.New("approval already decided")

// ApprovalRepository records professor decisions and keeps the aggregate
// professors_status column consistent with the approval rows.
type ApprovalRepository struct {
	db *sqlx.DB
}

// NewApprovalRepository constructs the repository.
func NewApprovalRepository(db *sqlx.DB) *ApprovalRepository {
	return &ApprovalRepository{db: db}
}

// RecordDecisionParams groups the columns written by a professor decision.
type RecordDecisionParams struct {
	RequestID   string
	ProfessorID string
	Status      models.StageStatus
	Comments    *string
	DecidedAt   time.Time
}

// RecordDecision writes one professor's verdict and recomputes the stage
// aggregate inside a single transaction. The parent request row is locked
// first so two concurrent "last approvals" cannot both miss each other.
// Returns the reduced stage status after the write.
func (r *ApprovalRepository) RecordDecision(ctx context.Context, params RecordDecisionParams) (models.StageStatus, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin record decision: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var requestID string
	if err := tx.GetContext(ctx, &requestID, `SELECT id FROM clearance_requests WHERE id = $1 FOR UPDATE`, params.RequestID); err != nil {
		return "", err
	}

	const decide = `UPDATE professor_approvals
	SET status = $1, comments = $2, approved_at = $3
	WHERE request_id = $4 AND professor_id = $5 AND status = $6`
	result, err := tx.ExecContext(ctx, decide,
		params.Status, params.Comments, params.DecidedAt,
		params.RequestID, params.ProfessorID, models.StagePending,
	)
	if err != nil {
		return "", fmt.Errorf("record professor decision: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("check decision rows: %w", err)
	}
	if rows == 0 {
		var existing models.ProfessorApproval
		const lookup = `SELECT id, request_id, professor_id, status, comments, approved_at, created_at
		FROM professor_approvals WHERE request_id = $1 AND professor_id = $2`
		if err := tx.GetContext(ctx, &existing, lookup, params.RequestID, params.ProfessorID); err != nil {
			return "", err
		}
		return "", ErrAlreadyDecided
	}

	const siblings = `SELECT id, request_id, professor_id, status, comments, approved_at, created_at
	FROM professor_approvals WHERE request_id = $1 ORDER BY created_at ASC`
	var approvals []models.ProfessorApproval
	if err := tx.SelectContext(ctx, &approvals, siblings, params.RequestID); err != nil {
		return "", fmt.Errorf("read sibling approvals: %w", err)
	}

	reduced := models.ReduceApprovals(approvals)
	const aggregate = `UPDATE clearance_requests SET professors_status = $1, updated_at = $2 WHERE id = $3`
	if _, err := tx.ExecContext(ctx, aggregate, reduced, time.Now().UTC(), params.RequestID); err != nil {
		return "", fmt.Errorf("write professors aggregate: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit record decision: %w", err)
	}
	return reduced, nil
}

// FindPending returns the professor's undecided row for a request.
func (r *ApprovalRepository) FindPending(ctx context.Context, requestID, professorID string) (*models.ProfessorApproval, error) {
	const query = `SELECT id, request_id, professor_id, status, comments, approved_at, created_at
	FROM professor_approvals WHERE request_id = $1 AND professor_id = $2 AND status = $3`
	var approval models.ProfessorApproval
	if err := r.db.GetContext(ctx, &approval, query, requestID, professorID, models.StagePending); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find pending approval: %w", err)
	}
	return &approval, nil
}
