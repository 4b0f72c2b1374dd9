package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleSuperAdmin     UserRole = "SUPERADMIN"
	RoleRegistrarAdmin UserRole = "REGISTRAR_ADMIN"
	RoleLibraryAdmin   UserRole = "LIBRARY_ADMIN"
	RoleCashierAdmin   UserRole = "CASHIER_ADMIN"
	RoleProfessor      UserRole = "PROFESSOR"
	RoleDepartmentHead UserRole = "DEPARTMENT_HEAD"
	RoleStudent        UserRole = "STUDENT"
)

// IsAdmin reports whether the role counts as an administrative role for
// comment visibility scoping.
func (r UserRole) IsAdmin() bool {
	switch r {
	case RoleSuperAdmin, RoleRegistrarAdmin, RoleLibraryAdmin, RoleCashierAdmin:
		return true
	}
	return false
}

// VerificationStatus captures the identity-verification tier of an account.
type VerificationStatus string

const (
	VerificationAutoApproved  VerificationStatus = "AUTO_APPROVED"
	VerificationPendingReview VerificationStatus = "PENDING_REVIEW"
	VerificationApproved      VerificationStatus = "APPROVED"
	VerificationRejected      VerificationStatus = "REJECTED"
)

// User represents an application user stored in the users table.
type User struct {
	ID                 string             `db:"id" json:"id"`
	Email              string             `db:"email" json:"email"`
	PasswordHash       string             `db:"password_hash" json:"-"`
	FullName           string             `db:"full_name" json:"full_name"`
	Role               UserRole           `db:"role" json:"role"`
	AccountEnabled     bool               `db:"account_enabled" json:"account_enabled"`
	VerificationStatus VerificationStatus `db:"verification_status" json:"verification_status"`
	FaceVerified       bool               `db:"face_verified" json:"face_verified"`
	FaceSimilarity     float64            `db:"face_similarity" json:"face_similarity"`
	RejectionReason    *string            `db:"rejection_reason" json:"rejection_reason,omitempty"`
	LastLogin          *time.Time         `db:"last_login" json:"last_login,omitempty"`
	CreatedAt          time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time          `db:"updated_at" json:"updated_at"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
