package credential

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims holds the fields of interest when the bearer token is a JWT.
type Claims struct {
	Subject   string
	Username  string
	ExpiresAt time.Time
}

type tokenClaims struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	jwt.RegisteredClaims
}

// Inspect decodes JWT claims without verifying the signature; the API is the
// only party able to verify it. ok is false for opaque tokens.
func Inspect(token string) (Claims, bool) {
	if token == "" {
		return Claims{}, false
	}
	var parsed tokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &parsed); err != nil {
		return Claims{}, false
	}
	claims := Claims{Subject: parsed.Subject, Username: parsed.Username}
	if claims.Username == "" {
		claims.Username = parsed.Name
	}
	if parsed.ExpiresAt != nil {
		claims.ExpiresAt = parsed.ExpiresAt.Time
	}
	return claims, true
}

// Expired reports whether the token carries an exp claim in the past.
func Expired(token string, now time.Time) bool {
	claims, ok := Inspect(token)
	if !ok || claims.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(claims.ExpiresAt)
}
