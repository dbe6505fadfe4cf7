// Package auth issues and checks session tokens and manages dashboard users.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token failures. Callers map all of them to 401.
var (
	ErrMissingToken   = errors.New("missing token")
	ErrBadSignature   = errors.New("invalid token signature")
	ErrMalformedToken = errors.New("malformed token")
	ErrExpiredToken   = errors.New("token expired")
)

// Issue signs an HS256 token for email and returns it with its expiry.
func (g *Gate) Issue(email string) (string, time.Time, error) {
	now := g.now()
	exp := now.Add(g.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   email,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	signed, err := token.SignedString(g.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Validate checks the signature and expiry of token and returns its subject.
func (g *Gate) Validate(token string) (string, error) {
	if token == "" {
		return "", ErrMissingToken
	}
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return g.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(g.now),
	)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return "", ErrExpiredToken
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return "", ErrBadSignature
	default:
		return "", ErrMalformedToken
	}
	if claims.Subject == "" {
		return "", ErrMalformedToken
	}
	return claims.Subject, nil
}
