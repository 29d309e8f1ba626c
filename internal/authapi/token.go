package authapi

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenExpiry reads the exp claim of an access token without verifying its
// signature. The portal cannot verify upstream tokens (it does not hold the
// key); the expiry is only used to stop treating the browser as logged in
// once the upstream would reject the token anyway. Opaque tokens yield the
// zero time.
func tokenExpiry(token string) time.Time {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

// TokenExpired reports whether a bearer token's exp claim is in the past.
// Tokens without a readable expiry never expire from the portal's side.
func TokenExpired(token string, now time.Time) bool {
	exp := tokenExpiry(token)
	return !exp.IsZero() && !now.Before(exp)
}
