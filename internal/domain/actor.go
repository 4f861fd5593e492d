package domain

// Role is the team a principal acts for.
type Role string

const (
	RoleSupport   Role = "SUPPORT"
	RoleWarehouse Role = "WAREHOUSE"
	RoleInvoicing Role = "INVOICING"
	RoleAdmin     Role = "ADMIN"
)

// ValidRole reports whether the role is a known value.
func ValidRole(role Role) bool {
	switch role {
	case RoleSupport, RoleWarehouse, RoleInvoicing, RoleAdmin:
		return true
	}
	return false
}

// Actor identifies who triggers a transition. It is threaded explicitly into
// every engine call; there is no ambient current-user state.
type Actor struct {
	UserID string
	Role   Role
}
