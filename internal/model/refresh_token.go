package model

import "time"

// RefreshToken mirrors the 'refresh_tokens' table. Rows are never hard-deleted;
// revocation flips IsRevoked and stamps RevokedAt so the table doubles as an
// append-only session audit trail. At most one row per user is valid at a time
// under the single-session login policy.
type RefreshToken struct {
	ID        uint64
	UserID    uint64
	Token     string
	ExpiresAt time.Time
	IsRevoked bool
	RevokedAt *time.Time
	CreatedAt time.Time
}
