package models

import "time"

// StageStatus is the outcome of a single clearance stage.
type StageStatus string

const (
	StagePending  StageStatus = "PENDING"
	StageApproved StageStatus = "APPROVED"
	StageRejected StageStatus = "REJECTED"
)

// Stage identifies one clearance sign-off stage.
type Stage string

const (
	StageProfessors Stage = "PROFESSORS"
	StageLibrary    Stage = "LIBRARY"
	StageCashier    Stage = "CASHIER"
	StageRegistrar  Stage = "REGISTRAR"
)

// StageCompleted is the derived terminal pseudo-stage once every real stage
// is approved.
const StageCompleted Stage = "COMPLETED"

// StageOrder fixes the sequence stages must be cleared in.
var StageOrder = []Stage{StageProfessors, StageLibrary, StageCashier, StageRegistrar}

// PriorStage returns the stage immediately before the given one.
// ok is false for the first stage or an unknown stage.
func PriorStage(stage Stage) (Stage, bool) {
	for i, s := range StageOrder {
		if s == stage {
			if i == 0 {
				return "", false
			}
			return StageOrder[i-1], true
		}
	}
	return "", false
}

// ValidStage reports whether the stage is one of the four real stages.
func ValidStage(stage Stage) bool {
	for _, s := range StageOrder {
		if s == stage {
			return true
		}
	}
	return false
}

// ClearanceRequest is a student's end-to-end clearance application.
type ClearanceRequest struct {
	ID                     string      `db:"id" json:"id"`
	StudentID              string      `db:"student_id" json:"student_id"`
	ProfessorsStatus       StageStatus `db:"professors_status" json:"professors_status"`
	LibraryStatus          StageStatus `db:"library_status" json:"library_status"`
	CashierStatus          StageStatus `db:"cashier_status" json:"cashier_status"`
	RegistrarStatus        StageStatus `db:"registrar_status" json:"registrar_status"`
	ProfessorsComment      *string     `db:"professors_comment" json:"professors_comment,omitempty"`
	LibraryComment         *string     `db:"library_comment" json:"library_comment,omitempty"`
	CashierComment         *string     `db:"cashier_comment" json:"cashier_comment,omitempty"`
	RegistrarComment       *string     `db:"registrar_comment" json:"registrar_comment,omitempty"`
	IsCompleted            bool        `db:"is_completed" json:"is_completed"`
	CertificateGenerated   bool        `db:"certificate_generated" json:"certificate_generated"`
	CertificateNumber      *string     `db:"certificate_number" json:"certificate_number,omitempty"`
	CertificateGeneratedAt *time.Time  `db:"certificate_generated_at" json:"certificate_generated_at,omitempty"`
	CreatedAt              time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt              time.Time   `db:"updated_at" json:"updated_at"`
}

// StageStatusOf returns the stored status for the given stage.
func (r *ClearanceRequest) StageStatusOf(stage Stage) StageStatus {
	switch stage {
	case StageProfessors:
		return r.ProfessorsStatus
	case StageLibrary:
		return r.LibraryStatus
	case StageCashier:
		return r.CashierStatus
	case StageRegistrar:
		return r.RegistrarStatus
	}
	return ""
}

// CurrentStage derives the first non-approved stage in sequence order.
// It is never stored; the four status columns are the single source of truth.
func (r *ClearanceRequest) CurrentStage() Stage {
	for _, stage := range StageOrder {
		if r.StageStatusOf(stage) != StageApproved {
			return stage
		}
	}
	return StageCompleted
}

// HasRejectedStage reports whether any stage is currently rejected.
func (r *ClearanceRequest) HasRejectedStage() bool {
	for _, stage := range StageOrder {
		if r.StageStatusOf(stage) == StageRejected {
			return true
		}
	}
	return false
}

// ProfessorApproval is one professor's sign-off row for a clearance request.
// The set of rows is frozen when the request is created.
type ProfessorApproval struct {
	ID          string      `db:"id" json:"id"`
	RequestID   string      `db:"request_id" json:"request_id"`
	ProfessorID string      `db:"professor_id" json:"professor_id"`
	Status      StageStatus `db:"status" json:"status"`
	Comments    *string     `db:"comments" json:"comments,omitempty"`
	ApprovedAt  *time.Time  `db:"approved_at" json:"approved_at,omitempty"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
}

// ReduceApprovals folds the professor sign-off rows into the stage verdict:
// any rejection rejects the stage, the stage approves only when every row is
// approved, and anything else stays pending. No quorum semantics.
func ReduceApprovals(approvals []ProfessorApproval) StageStatus {
	if len(approvals) == 0 {
		return StagePending
	}
	allApproved := true
	for _, a := range approvals {
		switch a.Status {
		case StageRejected:
			return StageRejected
		case StageApproved:
		default:
			allApproved = false
		}
	}
	if allApproved {
		return StageApproved
	}
	return StagePending
}
