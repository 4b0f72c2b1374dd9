package models

// Capability names a single authorisable operation. Each operation declares
// its capability once; the role table below is the only place permissions
// live.
type Capability string

const (
	CapApplyClearance    Capability = "clearance:apply"
	CapCancelClearance   Capability = "clearance:cancel"
	CapResubmitClearance Capability = "clearance:resubmit"
	CapDecideProfessor   Capability = "clearance:professor_decide"
	CapApproveLibrary    Capability = "clearance:library_approve"
	CapApproveCashier    Capability = "clearance:cashier_approve"
	CapApproveRegistrar  Capability = "clearance:registrar_approve"
	CapReviewAccounts    Capability = "accounts:review"
	CapViewAuditLog      Capability = "audit:view"
	CapPostComment       Capability = "comments:post"
)

var capabilityRoles = map[Capability][]UserRole{
	CapApplyClearance:    {RoleStudent},
	CapCancelClearance:   {RoleStudent},
	CapResubmitClearance: {RoleStudent},
	CapDecideProfessor:   {RoleProfessor, RoleDepartmentHead},
	CapApproveLibrary:    {RoleLibraryAdmin},
	CapApproveCashier:    {RoleCashierAdmin},
	CapApproveRegistrar:  {RoleRegistrarAdmin},
	CapReviewAccounts:    {RoleSuperAdmin, RoleRegistrarAdmin},
	CapViewAuditLog:      {RoleSuperAdmin},
	CapPostComment: {
		RoleSuperAdmin, RoleRegistrarAdmin, RoleLibraryAdmin,
		RoleCashierAdmin, RoleProfessor, RoleDepartmentHead,
	},
}

// RoleHas reports whether the role carries the capability.
func RoleHas(role UserRole, cap Capability) bool {
	for _, r := range capabilityRoles[cap] {
		if r == role {
			return true
		}
	}
	return false
}

// RolesFor returns the roles granted the capability.
func RolesFor(cap Capability) []UserRole {
	roles := capabilityRoles[cap]
	out := make([]UserRole, len(roles))
	copy(out, roles)
	return out
}

// StageCapability maps a clearance stage to the capability its reviewer
// needs. The professors stage routes through the approval aggregator.
func StageCapability(stage Stage) Capability {
	switch stage {
	case StageProfessors:
		return CapDecideProfessor
	case StageLibrary:
		return CapApproveLibrary
	case StageCashier:
		return CapApproveCashier
	case StageRegistrar:
		return CapApproveRegistrar
	}
	return ""
}
