package model

import "time"

// Credential holds the master password hash and the failed-attempt
// state used for progressive lockout.
type Credential struct {
	PasswordHash   string     `json:"passwordHash"`
	FailedAttempts int        `json:"failedAttempts"`
	LockedUntil    *time.Time `json:"lockedUntil,omitempty"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// IsLocked reports whether verification is currently locked out.
func (c *Credential) IsLocked() bool {
	if c.LockedUntil == nil {
		return false
	}
	return time.Now().Before(*c.LockedUntil)
}
