package dto

import (
	"time"

	"github.com/noah-isme/campus-clearance-api/internal/models"
)

// AccountDecisionRequest overrides the verification gate for one account.
// Reason is mandatory when rejecting.
type AccountDecisionRequest struct {
	UserID string `json:"user_id" validate:"required"`
	Reason string `json:"reason"`
}

// PendingAccountItem lists an account awaiting manual identity review.
type PendingAccountItem struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	FullName       string    `json:"full_name"`
	FaceVerified   bool      `json:"face_verified"`
	FaceSimilarity float64   `json:"face_similarity"`
	CreatedAt      time.Time `json:"created_at"`
}

// PendingAccountFromUser projects the review-relevant subset of a user.
func PendingAccountFromUser(u models.User) PendingAccountItem {
	return PendingAccountItem{
		ID:             u.ID,
		Email:          u.Email,
		FullName:       u.FullName,
		FaceVerified:   u.FaceVerified,
		FaceSimilarity: u.FaceSimilarity,
		CreatedAt:      u.CreatedAt,
	}
}
