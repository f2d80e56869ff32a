// file: model/token.go

package model

import "time"

// BlacklistedToken is a revoked access or refresh token. It can be purged once
// ExpiresAt has passed since the token would be rejected on expiry anyway.
type BlacklistedToken struct {
	ID            int       `json:"id"`
	Token         string    `json:"-"`
	BlacklistedAt time.Time `json:"blacklisted_at"`
	ExpiresAt     time.Time `json:"expires_at"`
}
