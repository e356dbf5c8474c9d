package aclkit

// User role names. Guests can authenticate but never appear in share
// candidate lists and cannot be granted permissions.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
	RoleGuest = "guest"
)

// IsValidRoleName reports whether name is one of the defined role names.
func IsValidRoleName(name string) bool {
	switch name {
	case RoleAdmin, RoleUser, RoleGuest:
		return true
	}
	return false
}
