// Package session adapts the identity provider's cookie-carried session into
// get/sign-in/sign-up/exchange operations. Every operation is exactly-once
// per call; there is no internal retry layer.
package session

import (
	"time"
)

// User is the identity snapshot the provider attaches to a session. The
// durable account record lives in the identity package; this is only what
// the token carries.
type User struct {
	ID       string            `json:"id"`
	Email    string            `json:"email,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Session is the provider-issued proof of authentication: an opaque token
// pair plus the user snapshot, held in a cookie.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         *User     `json:"user,omitempty"`
}

// Expired reports whether the session has passed its expiry.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}
