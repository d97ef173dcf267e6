// Package token decodes the bearer credential issued by the backend.
//
// The client never verifies the signature; the backend is the enforcer.
// Decoding only extracts the identity claims and the expiry so mutations can
// be gated locally before any network call is made.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMalformed is returned when the credential cannot be decoded
	ErrMalformed = errors.New("malformed credential")
	// ErrExpired is returned when the credential expiry has passed
	ErrExpired = errors.New("credential expired")
)

// Claims holds the identity claims carried inside the bearer credential.
type Claims struct {
	UserID    string
	Role      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Decode extracts claims from a bearer credential without verifying its
// signature. It fails closed: any decode problem, a missing subject, a
// missing expiry, or a passed expiry yields an error and no claims.
func Decode(tokenString string, now time.Time) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrMalformed
	}

	mapClaims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, mapClaims); err != nil {
		return nil, ErrMalformed
	}

	userID, ok := mapClaims["id"].(string)
	if !ok || userID == "" {
		return nil, ErrMalformed
	}

	exp, err := mapClaims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, ErrMalformed
	}
	if now.After(exp.Time) {
		return nil, ErrExpired
	}

	claims := &Claims{
		UserID:    userID,
		ExpiresAt: exp.Time,
	}
	if role, ok := mapClaims["role"].(string); ok {
		claims.Role = role
	}
	if iat, err := mapClaims.GetIssuedAt(); err == nil && iat != nil {
		claims.IssuedAt = iat.Time
	}

	return claims, nil
}
