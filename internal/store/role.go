package store

import "fmt"

const (
	// Viewer reads workflows, events and checks.
	Viewer Role = 10
	// Admin additionally manages workflows, secrets and webhook keys.
	Admin Role = 1_000
	// Superuser additionally manages users.
	Superuser Role = 10_000
)

type Role int64

func (r Role) String() string {
	switch r {
	case Superuser:
		return "superuser"
	case Admin:
		return "admin"
	default:
		return "viewer"
	}
}

// ParseRole maps an API role name to its Role. Superusers are created
// through the bootstrap command only.
func ParseRole(s string) (Role, error) {
	switch s {
	case "viewer":
		return Viewer, nil
	case "admin":
		return Admin, nil
	}
	return 0, fmt.Errorf("unknown role %q", s)
}

func ListNewUserRoles() []Role {
	return []Role{
		Viewer,
		Admin,
	}
}
