package session

import (
	"strings"
	"time"

	"gopkg.in/square/go-jose.v2/jwt"
)

// TokenExpiry returns the exp claim of a JWT.
// ok is false for opaque tokens and JWTs without exp.
// The signature is not verified; the server remains the authority.
func TokenExpiry(token string) (exp time.Time, ok bool) {
	token = strings.TrimSpace(token)
	if strings.Count(token, ".") != 2 {
		return time.Time{}, false
	}
	parsed, err := jwt.ParseSigned(token)
	if err != nil {
		return time.Time{}, false
	}
	var claims jwt.Claims
	if err := parsed.UnsafeClaimsWithoutVerification(&claims); err != nil || claims.Expiry == nil {
		return time.Time{}, false
	}
	return claims.Expiry.Time(), true
}

// TokenExpired reports whether token is a JWT whose exp lies before now.
// Tokens without a readable expiry never expire client side.
func TokenExpired(token string, now time.Time) bool {
	exp, ok := TokenExpiry(token)
	if !ok {
		return false
	}
	return now.After(exp)
}
