package auth

// IsValid checks if the role is one of the predefined valid roles
func (r UserRole) IsValid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleUser:
		return true
	default:
		return false
	}
}

// GetAllRoles returns every role the system accepts.
func GetAllRoles() []UserRole {
	return []UserRole{RoleAdmin, RoleManager, RoleUser}
}

// ParseRole safely parses a string into a UserRole type
func ParseRole(roleStr string) (UserRole, bool) {
	role := UserRole(roleStr)
	return role, role.IsValid()
}

// IsValid checks if the status is one of the predefined lifecycle states
func (s UserStatus) IsValid() bool {
	switch s {
	case UserStatusActive, UserStatusInactive, UserStatusSuspended:
		return true
	default:
		return false
	}
}

// GetAllStatuses returns every lifecycle state the system accepts.
func GetAllStatuses() []UserStatus {
	return []UserStatus{UserStatusActive, UserStatusInactive, UserStatusSuspended}
}

// ParseStatus safely parses a string into a UserStatus type
func ParseStatus(statusStr string) (UserStatus, bool) {
	status := UserStatus(statusStr)
	return status, status.IsValid()
}

// statusAuthError maps a non-active lifecycle state to the auth error a login
// or token resolution should surface. Active (or unknown-but-defaulted)
// states return nil.
func statusAuthError(status UserStatus) error {
	switch status {
	case UserStatusInactive:
		return ErrUserInactive
	case UserStatusSuspended:
		return ErrUserSuspended
	default:
		return nil
	}
}
