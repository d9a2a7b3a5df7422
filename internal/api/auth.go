package api

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// defaultTokenTTL is used by IssueToken when no TTL is given.
const defaultTokenTTL = 24 * time.Hour

// ErrTokenInvalid is returned when a bearer token fails validation.
var ErrTokenInvalid = errors.New("api: invalid token")

// IssueToken creates a signed HS256 token for subject.
//
// Parameters:
//   - subject: Who the token identifies (e.g. "dashboard")
//   - secret: The configured security.jwt.secret
//   - ttl: Lifetime; zero or negative uses 24 hours
//
// Returns:
//   - string: The signed token
//   - error: If subject or secret is empty, or signing fails
func IssueToken(subject, secret string, ttl time.Duration) (string, error) {
	if subject == "" || secret == "" {
		return "", fmt.Errorf("subject and secret are required")
	}
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        uuid.NewString(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// parseToken validates signature, algorithm and expiry, and returns the
// token's subject.
func parseToken(tokenString, secret string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return "", ErrTokenInvalid
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}
	return claims.Subject, nil
}
