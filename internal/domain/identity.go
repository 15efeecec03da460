package domain

import "time"

// Role represents the capability level of an authenticated user
type Role string

const (
	RoleUser       Role = "USER"
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

// Identity is what the session provider yields for an authenticated request.
type Identity struct {
	UserID string
	Role   Role
}

// IsAdmin reports whether the identity may perform approval and listing
// operations.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin || i.Role == RoleSuperAdmin
}

// UserSession is a minted session token bound to a user and role. Only the
// token's hash is stored.
type UserSession struct {
	ID        string
	UserID    string
	Role      Role
	TokenHash string
	CreatedAt time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
}

// IsExpired reports whether the session has passed its expiry.
func (s *UserSession) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// IsRevoked reports whether the session was explicitly revoked.
func (s *UserSession) IsRevoked() bool {
	return s.RevokedAt != nil
}
