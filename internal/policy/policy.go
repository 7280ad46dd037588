// Package policy is the single place where role and approval rules are
// decided. Handlers, middleware and services ask it for a Decision instead of
// comparing roles themselves.
package policy

import "nanum/internal/model"

// Reason explains why access was denied.
type Reason string

const (
	ReasonNone             Reason = ""
	ReasonAuthRequired     Reason = "AuthRequired"
	ReasonApprovalPending  Reason = "ApprovalPending"
	ReasonRoleNotPermitted Reason = "RoleNotPermitted"
	ReasonAdminRequired    Reason = "AdminRequired"
)

// Decision is the outcome of a policy check.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  Reason `json:"reason,omitempty"`
}

// Allow is the positive decision.
func Allow() Decision { return Decision{Allowed: true} }

// Deny builds a negative decision with the given reason.
func Deny(r Reason) Decision { return Decision{Allowed: false, Reason: r} }

// Resource describes what a protected target requires.
type Resource struct {
	RequiresAuth     bool
	RequiresApproval bool
	AllowedRoles     model.RoleSet
}

// CanAccess decides whether user may access res. A nil user is anonymous and
// is otherwise evaluated as an unapproved visitor.
func CanAccess(user *model.User, res Resource) Decision {
	if user == nil && res.RequiresAuth {
		return Deny(ReasonAuthRequired)
	}

	role, approved := model.RoleVisitor, false
	if user != nil {
		role, approved = user.Role, user.IsApproved
	}

	if role == model.RoleAdmin {
		return Allow()
	}
	if res.RequiresApproval && !approved {
		return Deny(ReasonApprovalPending)
	}
	if allowed := res.AllowedRoles.Normalize(); len(allowed) > 0 && !allowed.Contains(role) {
		return Deny(ReasonRoleNotPermitted)
	}
	return Allow()
}

// IsAdmin reports whether user holds the admin role.
func IsAdmin(user *model.User) bool {
	return user != nil && user.Role == model.RoleAdmin
}

// CanAdminister gates administrative operations.
func CanAdminister(user *model.User) Decision {
	if user == nil {
		return Deny(ReasonAuthRequired)
	}
	if !IsAdmin(user) {
		return Deny(ReasonAdminRequired)
	}
	return Allow()
}

// ForRead builds the resource guarding reads of a board category.
func ForRead(c *model.BoardCategory) Resource {
	return Resource{
		RequiresAuth:     c.RequiresAuth,
		RequiresApproval: c.RequiresApproval,
	}
}

// ForWrite builds the resource guarding posts and comments in a board
// category. Writing always requires a signed-in user.
func ForWrite(c *model.BoardCategory) Resource {
	return Resource{
		RequiresAuth:     true,
		RequiresApproval: c.RequiresApproval,
		AllowedRoles:     c.AllowedRoles,
	}
}
