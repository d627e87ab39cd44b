package model

type Role string

const (
	RoleStudent     Role = "student"
	RoleInstitution Role = "institution"
	RoleCompany     Role = "company"
	RoleAdmin       Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleInstitution, RoleCompany, RoleAdmin:
		return true
	}
	return false
}

// Actor is the authenticated caller, delivered by the upstream auth
// collaborator via JWT. Not persisted by this subsystem.
// Verified matters only for companies: an unverified company sees nothing.
type Actor struct {
	ID       string
	Role     Role
	Verified bool
}
