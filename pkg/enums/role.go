package enums

import "fmt"

// UserRole represents an operator's permission level.
type UserRole string

const (
	UserRoleAdmin   UserRole = "admin"
	UserRoleManager UserRole = "manager"
	UserRoleViewer  UserRole = "viewer"
)

var validUserRoles = []UserRole{
	UserRoleAdmin,
	UserRoleManager,
	UserRoleViewer,
}

// String implements fmt.Stringer.
func (r UserRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known UserRole.
func (r UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

var userRoleRank = map[UserRole]int{
	UserRoleViewer:  1,
	UserRoleManager: 2,
	UserRoleAdmin:   3,
}

// Meets reports whether the role satisfies the required level. Roles form a
// strict hierarchy: viewer < manager < admin.
func (r UserRole) Meets(required UserRole) bool {
	return userRoleRank[r] >= userRoleRank[required]
}

// ParseUserRole converts raw input into a UserRole.
func ParseUserRole(value string) (UserRole, error) {
	for _, candidate := range validUserRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user role %q", value)
}
