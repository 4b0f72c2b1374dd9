package dto

import (
	"time"

	"github.com/noah-isme/campus-clearance-api/internal/models"
)

// CreateCommentRequest posts a new comment on a clearance request thread.
type CreateCommentRequest struct {
	RequestID  string                   `json:"request_id" validate:"required"`
	Text       string                   `json:"text" validate:"required"`
	Visibility models.CommentVisibility `json:"visibility"`
}

// CommentQuery filters the thread listing. Since is a creation-time cursor so
// polling clients only fetch what they have not seen yet.
type CommentQuery struct {
	RequestID string
	Since     *time.Time
}
