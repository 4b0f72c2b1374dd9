package models

import "time"

// CommentVisibility scopes who may read a clearance comment.
type CommentVisibility string

const (
	VisibilityAll            CommentVisibility = "ALL"
	VisibilityAdminsOnly     CommentVisibility = "ADMINS_ONLY"
	VisibilityProfessorsOnly CommentVisibility = "PROFESSORS_ONLY"
)

// ValidVisibility reports whether v is one of the enumerated scopes.
func ValidVisibility(v CommentVisibility) bool {
	switch v {
	case VisibilityAll, VisibilityAdminsOnly, VisibilityProfessorsOnly:
		return true
	}
	return false
}

// Comment is one entry in a clearance request's discussion thread.
type Comment struct {
	ID            string            `db:"id" json:"id"`
	RequestID     string            `db:"request_id" json:"request_id"`
	CommenterID   string            `db:"commenter_id" json:"commenter_id"`
	CommenterRole UserRole          `db:"commenter_role" json:"commenter_role"`
	CommentText   string            `db:"comment_text" json:"comment_text"`
	Visibility    CommentVisibility `db:"visibility" json:"visibility"`
	IsResolved    bool              `db:"is_resolved" json:"is_resolved"`
	ResolvedAt    *time.Time        `db:"resolved_at" json:"resolved_at,omitempty"`
	CreatedAt     time.Time         `db:"created_at" json:"created_at"`
}

// VisibleTo applies the visibility rule: everyone sees ALL, admin roles see
// ADMINS_ONLY, and professors/department heads see PROFESSORS_ONLY.
func (c *Comment) VisibleTo(role UserRole) bool {
	switch c.Visibility {
	case VisibilityAll:
		return true
	case VisibilityAdminsOnly:
		return role.IsAdmin()
	case VisibilityProfessorsOnly:
		return role == RoleProfessor || role == RoleDepartmentHead
	}
	return false
}
