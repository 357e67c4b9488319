package utils // package utils provides helper functions for token creation and hashing

import (
	"time" // time utilities for generating expirations

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// AccessToken represents a signed JWT along with its expiry. The Token
// field contains the JWT string; Exp stores the expiration timestamp.
// The token is the only credential the API issues: clients hold it for
// its full lifetime and log in again when it expires.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// NewAccessToken builds and signs an HS256 JWT for a user. It takes the
// signing secret, the user's ID, role and email, and a TTL in days. The
// JWT carries the subject (sub), role, email, expiration (exp) and
// issued-at (iat) claims.
func NewAccessToken(secret string, userID uint64, role, email string, ttlDays int) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlDays) * 24 * time.Hour)
	claims := jwt.MapClaims{
		"sub":   userID,
		"role":  role,
		"email": email,
		"exp":   exp.Unix(),
		"iat":   now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}
