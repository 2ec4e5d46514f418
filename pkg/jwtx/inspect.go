// Package jwtx reads claims out of bearer tokens for diagnostics.
//
// The storefront treats its access token as opaque: the API is the only party
// that verifies it. Inspect therefore parses WITHOUT verifying the signature
// and must never be used to make an authorization decision.
package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrOpaqueToken is returned when the token is not a parseable JWT.
var ErrOpaqueToken = errors.New("jwtx: token is not a JWT")

// Claims are the fields the storefront API puts in its access tokens.
type Claims struct {
	jwt.RegisteredClaims

	UserID string `json:"id,omitempty"`
	Role   string `json:"role,omitempty"`
}

// TokenInfo is the safe-to-log view of a token.
type TokenInfo struct {
	Subject   string
	Role      string
	IssuedAt  time.Time
	ExpiresAt time.Time // zero when the token carries no exp
}

// Inspect extracts TokenInfo from a JWT without verifying it.
func Inspect(token string) (TokenInfo, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return TokenInfo{}, fmt.Errorf("%w: %v", ErrOpaqueToken, err)
	}

	info := TokenInfo{
		Subject: claims.Subject,
		Role:    claims.Role,
	}
	if info.Subject == "" {
		info.Subject = claims.UserID
	}
	if claims.IssuedAt != nil {
		info.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}

	return info, nil
}

// Expired reports whether the token has an exp claim in the past at now.
// Tokens without exp never expire from the client's point of view.
func (i TokenInfo) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && now.After(i.ExpiresAt)
}

// ExpiresIn returns the time left until exp, or 0 without an exp claim.
func (i TokenInfo) ExpiresIn(now time.Time) time.Duration {
	if i.ExpiresAt.IsZero() {
		return 0
	}
	return i.ExpiresAt.Sub(now)
}
