package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRole is a closed set of roles the point-of-sale system understands.
// Role checks are exhaustive; unknown strings never satisfy any capability.
type UserRole string

const (
	// RoleAdmin may manage users in addition to operating the register.
	RoleAdmin UserRole = "ADMIN"
	// RoleManager may run managerial reports and overrides.
	RoleManager UserRole = "MANAGER"
	// RoleUser is a regular cashier account.
	RoleUser UserRole = "USER"
)

// UserStatus is the lifecycle state of an account.
type UserStatus string

const (
	UserStatusActive    UserStatus = "ACTIVE"
	UserStatusInactive  UserStatus = "INACTIVE"
	UserStatusSuspended UserStatus = "SUSPENDED"
)

// User is the user model
type User struct {
	bun.BaseModel  `bun:"table:users,alias:usr"`
	ID             uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Role           UserRole   `bun:"user_role,notnull" json:"user_role,omitempty"`
	Status         UserStatus `bun:"status,notnull" json:"status,omitempty"`
	Email          string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash   string     `bun:"password_hash" json:"-"`
	LoginAttempts  int        `bun:"login_attempts" json:"login_attempts,omitempty"`
	LoginAttemptAt *time.Time `bun:"login_attempt_at" json:"login_attempt_at,omitempty"`
	LoggedInAt     *time.Time `bun:"loggedin_at" json:"loggedin_at,omitempty"`
	SuspendedAt    *time.Time `bun:"suspended_at,nullzero" json:"suspended_at,omitempty"`
	CreatedAt      *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt      *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// EnsureStatus defaults legacy records with no status to active.
func (u *User) EnsureStatus() {
	if u == nil {
		return
	}
	if u.Status == "" {
		u.Status = UserStatusActive
	}
}

// Projection returns the externally visible view of the record. The password
// hash never leaves the package through this path.
func (u *User) Projection() UserProjection {
	return UserProjection{
		ID:        u.ID.String(),
		Email:     u.Email,
		Role:      u.Role,
		Status:    u.Status,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// UserProjection is what list/create/reset operations return to callers.
type UserProjection struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Role      UserRole   `json:"role"`
	Status    UserStatus `json:"status"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}
