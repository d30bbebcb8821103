package domain

import (
	"time"

	"github.com/google/uuid"
)

// UserStatus represents the provisioning state of a user account.
type UserStatus string

const (
	UserStatusActive   UserStatus = "ACTIVE"
	UserStatusDisabled UserStatus = "DISABLED"
)

// User owns wallets. Accounts are provisioned externally; the ledger core
// only references them.
type User struct {
	ID        uuid.UUID  `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Status    UserStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
}

// IsActive reports whether the user may own active wallets.
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}
