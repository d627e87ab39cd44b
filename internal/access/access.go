// Package access decides, for a given (actor, record) pair, what the
// actor may see and which mutations it may trigger. The decision table
// lives here in one place; everything is a pure function so the rules
// stay auditable.
package access

import "github.com/huseinhashi/academic-record/internal/model"

type Visibility int

const (
	Deny Visibility = iota
	MetadataOnly
	WithDocument
)

// Evaluate applies the read-visibility rules in order:
// admin, owning student, issuing institution, verified company on a
// verified record, everyone else denied.
func Evaluate(actor model.Actor, record *model.AcademicRecord) Visibility {
	switch actor.Role {
	case model.RoleAdmin:
		return WithDocument
	case model.RoleStudent:
		if actor.ID == record.OwnerID {
			return WithDocument
		}
	case model.RoleInstitution:
		// Issuers see their own pending submissions to review them.
		if actor.ID == record.IssuerID {
			return WithDocument
		}
	case model.RoleCompany:
		if actor.Verified && record.Status == model.StatusVerified {
			return WithDocument
		}
	}
	return Deny
}

// CanDecide reports whether the actor may verify or reject the record.
// Only the issuing institution qualifies; the role match is required on
// top of the id match.
func CanDecide(actor model.Actor, record *model.AcademicRecord) bool {
	return actor.Role == model.RoleInstitution && actor.ID == record.IssuerID
}

// CanResubmit reports whether the actor may replace the record's
// document. Only the owning student qualifies; the rejected-status
// precondition is enforced separately by the conditional update.
func CanResubmit(actor model.Actor, record *model.AcademicRecord) bool {
	return actor.Role == model.RoleStudent && actor.ID == record.OwnerID
}

// CanDelete reports whether the actor may delete the record: admins at
// any status, the owning student only while it is still pending.
func CanDelete(actor model.Actor, record *model.AcademicRecord) bool {
	if actor.Role == model.RoleAdmin {
		return true
	}
	return actor.Role == model.RoleStudent &&
		actor.ID == record.OwnerID &&
		record.Status == model.StatusPending
}
