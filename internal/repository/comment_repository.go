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

const commentColumns = `id, request_id, commenter_id, commenter_role, comment_text, visibility, is_resolved, resolved_at, created_at`

// CommentRepository persists clearance discussion threads.
type CommentRepository struct {
	db *sqlx.DB
}

// NewCommentRepository constructs the repository.
func NewCommentRepository(db *sqlx.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

// Create inserts a new comment.
func (r *CommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO clearance_comments
	(id, request_id, commenter_id, commenter_role, comment_text, visibility, is_resolved, created_at)
	VALUES (:id, :request_id, :commenter_id, :commenter_role, :comment_text, :visibility, :is_resolved, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, comment); err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}

// GetByID fetches a comment by identifier.
func (r *CommentRepository) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	query := fmt.Sprintf(`SELECT %s FROM clearance_comments WHERE id = $1`, commentColumns)
	var comment models.Comment
	if err := r.db.GetContext(ctx, &comment, query, id); err != nil {
		return nil, err
	}
	return &comment, nil
}

// ListByRequest returns a request's comments in creation order, optionally
// only those created after the given cursor.
func (r *CommentRepository) ListByRequest(ctx context.Context, requestID string, since *time.Time) ([]models.Comment, error) {
	query := fmt.Sprintf(`SELECT %s FROM clearance_comments WHERE request_id = $1`, commentColumns)
	args := []interface{}{requestID}
	if since != nil {
		query += " AND created_at > $2"
		args = append(args, *since)
	}
	query += " ORDER BY created_at ASC"

	var comments []models.Comment
	if err := r.db.SelectContext(ctx, &comments, query, args...); err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return comments, nil
}

// SetResolved toggles the resolved flag.
func (r *CommentRepository) SetResolved(ctx context.Context, id string, resolved bool, resolvedAt *time.Time) error {
	const query = `UPDATE clearance_comments SET is_resolved = $2, resolved_at = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, resolved, resolvedAt)
	if err != nil {
		return fmt.Errorf("set comment resolved: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check resolve rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a comment.
func (r *CommentRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM clearance_comments WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
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
