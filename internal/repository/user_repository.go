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

const userColumns = `id, email, password_hash, full_name, role, account_enabled, verification_status,
       face_verified, face_similarity, rejection_reason, last_login, created_at, updated_at`

// UserRepository provides database access for accounts.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new account row.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	const query = `INSERT INTO users
	(id, email, password_hash, full_name, role, account_enabled, verification_status, face_verified, face_similarity, rejection_reason, created_at, updated_at)
	VALUES (:id, :email, :password_hash, :full_name, :role, :account_enabled, :verification_status, :face_verified, :face_similarity, :rejection_reason, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// FindByEmail returns a user by email address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE email = $1 LIMIT 1`, userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &user, nil
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1 LIMIT 1`, userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// UpdateLastLogin updates the last_login timestamp for a user.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	const query = `UPDATE users SET last_login = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, ts, ts); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

// ListIDsByRole returns the IDs of users holding the role, oldest first.
// Used to freeze the professor approval set at request creation.
func (r *UserRepository) ListIDsByRole(ctx context.Context, role models.UserRole) ([]string, error) {
	const query = `SELECT id FROM users WHERE role = $1 AND account_enabled = true ORDER BY created_at ASC`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, role); err != nil {
		return nil, fmt.Errorf("list user ids by role: %w", err)
	}
	return ids, nil
}

// ListPendingReview returns accounts waiting for manual identity review.
func (r *UserRepository) ListPendingReview(ctx context.Context) ([]models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE verification_status = $1 ORDER BY created_at ASC`, userColumns)
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query, models.VerificationPendingReview); err != nil {
		return nil, fmt.Errorf("list pending accounts: %w", err)
	}
	return users, nil
}

// UpdateVerification assigns the account's verification outcome.
func (r *UserRepository) UpdateVerification(ctx context.Context, id string, status models.VerificationStatus, enabled bool, reason *string) error {
	const query = `UPDATE users
	SET verification_status = $2, account_enabled = $3, rejection_reason = $4, updated_at = $5
	WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, status, enabled, reason, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update verification: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check verification rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
