package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-clearance-api/internal/models"
)

const clearanceColumns = `id, student_id, professors_status, library_status, cashier_status, registrar_status,
       professors_comment, library_comment, cashier_comment, registrar_comment,
       is_completed, certificate_generated, certificate_number, certificate_generated_at, created_at, updated_at`

// stageColumns maps a stage to its column prefix. Only values from this map
// are ever interpolated into SQL.
var stageColumns = map[models.Stage]string{
	models.StageProfessors: "professors",
	models.StageLibrary:    "library",
	models.StageCashier:    "cashier",
	models.StageRegistrar:  "registrar",
}

// ClearanceRepository persists clearance requests and their professor
// approval rows.
type ClearanceRepository struct {
	db *sqlx.DB
}

// NewClearanceRepository constructs the repository.
func NewClearanceRepository(db *sqlx.DB) *ClearanceRepository {
	return &ClearanceRepository{db: db}
}

// Create inserts a request with all stages pending plus one approval row per
// assigned professor, in a single transaction.
func (r *ClearanceRepository) Create(ctx context.Context, request *models.ClearanceRequest, professorIDs []string) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if request.CreatedAt.IsZero() {
		request.CreatedAt = now
	}
	request.UpdatedAt = now
	request.ProfessorsStatus = models.StagePending
	request.LibraryStatus = models.StagePending
	request.CashierStatus = models.StagePending
	request.RegistrarStatus = models.StagePending

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create clearance request: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const insertRequest = `INSERT INTO clearance_requests
	(id, student_id, professors_status, library_status, cashier_status, registrar_status, is_completed, certificate_generated, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, false, false, $7, $8)`
	if _, err := tx.ExecContext(ctx, insertRequest,
		request.ID, request.StudentID,
		request.ProfessorsStatus, request.LibraryStatus, request.CashierStatus, request.RegistrarStatus,
		request.CreatedAt, request.UpdatedAt,
	); err != nil {
		return fmt.Errorf("insert clearance request: %w", err)
	}

	const insertApproval = `INSERT INTO professor_approvals (id, request_id, professor_id, status, created_at)
	VALUES ($1, $2, $3, $4, $5)`
	for _, professorID := range professorIDs {
		if _, err := tx.ExecContext(ctx, insertApproval,
			uuid.NewString(), request.ID, professorID, models.StagePending, now,
		); err != nil {
			return fmt.Errorf("insert professor approval: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create clearance request: %w", err)
	}
	return nil
}

// GetByID fetches a request by identifier.
func (r *ClearanceRepository) GetByID(ctx context.Context, id string) (*models.ClearanceRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM clearance_requests WHERE id = $1`, clearanceColumns)
	var request models.ClearanceRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}
	return &request, nil
}

// GetActiveByStudent returns the student's open (non-completed) request.
func (r *ClearanceRepository) GetActiveByStudent(ctx context.Context, studentID string) (*models.ClearanceRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM clearance_requests WHERE student_id = $1 AND is_completed = false
	ORDER BY created_at DESC LIMIT 1`, clearanceColumns)
	var request models.ClearanceRequest
	if err := r.db.GetContext(ctx, &request, query, studentID); err != nil {
		return nil, err
	}
	return &request, nil
}

// GetLatestByStudent returns the student's most recent request, completed or not.
func (r *ClearanceRepository) GetLatestByStudent(ctx context.Context, studentID string) (*models.ClearanceRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM clearance_requests WHERE student_id = $1
	ORDER BY created_at DESC LIMIT 1`, clearanceColumns)
	var request models.ClearanceRequest
	if err := r.db.GetContext(ctx, &request, query, studentID); err != nil {
		return nil, err
	}
	return &request, nil
}

// SetStageStatus flips one stage with compare-and-set semantics: the write
// only lands if the stage is still pending and the prior stage is approved.
// Returns sql.ErrNoRows when the condition no longer holds.
func (r *ClearanceRepository) SetStageStatus(ctx context.Context, id string, stage models.Stage, status models.StageStatus, comment *string) error {
	col, ok := stageColumns[stage]
	if !ok {
		return fmt.Errorf("unknown stage %q", stage)
	}
	query := fmt.Sprintf(`UPDATE clearance_requests
	SET %s_status = $1, %s_comment = $2, updated_at = $3
	WHERE id = $4 AND %s_status = '%s'`, col, col, col, models.StagePending)
	if prior, hasPrior := models.PriorStage(stage); hasPrior {
		query += fmt.Sprintf(" AND %s_status = '%s'", stageColumns[prior], models.StageApproved)
	}

	result, err := r.db.ExecContext(ctx, query, status, comment, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set %s stage status: %w", col, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check %s stage update rows: %w", col, err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ResetRejectedStages returns every rejected stage (and rejected professor
// approval rows) to pending so the student can be re-reviewed. The parent row
// is locked for the duration so concurrent decisions cannot interleave.
func (r *ClearanceRepository) ResetRejectedStages(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin resubmit: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	query := fmt.Sprintf(`SELECT %s FROM clearance_requests WHERE id = $1 FOR UPDATE`, clearanceColumns)
	var request models.ClearanceRequest
	if err := tx.GetContext(ctx, &request, query, id); err != nil {
		return err
	}
	if !request.HasRejectedStage() {
		return sql.ErrNoRows
	}

	now := time.Now().UTC()
	for _, stage := range models.StageOrder {
		if request.StageStatusOf(stage) != models.StageRejected {
			continue
		}
		col := stageColumns[stage]
		reset := fmt.Sprintf(`UPDATE clearance_requests SET %s_status = $1, %s_comment = NULL, updated_at = $2 WHERE id = $3`, col, col)
		if _, err := tx.ExecContext(ctx, reset, models.StagePending, now, id); err != nil {
			return fmt.Errorf("reset %s stage: %w", col, err)
		}
	}

	if request.ProfessorsStatus == models.StageRejected {
		const resetApprovals = `UPDATE professor_approvals
		SET status = $1, comments = NULL, approved_at = NULL
		WHERE request_id = $2 AND status = $3`
		if _, err := tx.ExecContext(ctx, resetApprovals, models.StagePending, id, models.StageRejected); err != nil {
			return fmt.Errorf("reset rejected approvals: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit resubmit: %w", err)
	}
	return nil
}

// MarkCertificateIssued records the issued certificate and completes the
// request. Guarded by certificate_generated so issuance happens exactly once;
// sql.ErrNoRows signals a concurrent issuer already won.
func (r *ClearanceRepository) MarkCertificateIssued(ctx context.Context, id, certificateNumber string, issuedAt time.Time) error {
	const query = `UPDATE clearance_requests
	SET certificate_generated = true, certificate_number = $2, certificate_generated_at = $3, is_completed = true, updated_at = $3
	WHERE id = $1 AND certificate_generated = false`
	result, err := r.db.ExecContext(ctx, query, id, certificateNumber, issuedAt)
	if err != nil {
		return fmt.Errorf("mark certificate issued: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check certificate update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a non-completed request owned by the student. Approval rows
// and comments cascade at the schema level.
func (r *ClearanceRepository) Delete(ctx context.Context, id, studentID string) error {
	const query = `DELETE FROM clearance_requests WHERE id = $1 AND student_id = $2 AND is_completed = false`
	result, err := r.db.ExecContext(ctx, query, id, studentID)
	if err != nil {
		return fmt.Errorf("delete clearance request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check delete rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListApprovals returns the professor sign-off rows for a request in
// creation order.
func (r *ClearanceRepository) ListApprovals(ctx context.Context, requestID string) ([]models.ProfessorApproval, error) {
	const query = `SELECT id, request_id, professor_id, status, comments, approved_at, created_at
	FROM professor_approvals WHERE request_id = $1 ORDER BY created_at ASC`
	var approvals []models.ProfessorApproval
	if err := r.db.SelectContext(ctx, &approvals, query, requestID); err != nil {
		return nil, fmt.Errorf("list professor approvals: %w", err)
	}
	return approvals, nil
}
