package identity

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// User is the identity provider's view of the authenticated subject.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session holds the token material issued by the identity provider. It is
// independent of tenant selection: one sign-in is usable across tenants.
type Session struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

// Expired reports whether the access token lifetime has elapsed. A zero
// ExpiresAt means the provider issued no expiry and the session is kept.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// tokenExpiry reads the exp claim from the access token without verifying the
// signature; the provider is the authority, the client only schedules around it.
func tokenExpiry(accessToken string, fallback time.Time) time.Time {
	if accessToken == "" {
		return time.Time{}
	}

	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, &claims); err != nil {
		return fallback
	}
	if claims.ExpiresAt == nil {
		return fallback
	}
	return claims.ExpiresAt.Time
}
