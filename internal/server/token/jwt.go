// Package token signs and verifies the session cookie value.
package token

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophgram/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the credential identifier in addition to the registered
// claims.
type Claims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
}

// GenerateToken signs sessionID with HS256. A zero validity produces a token
// without expiry.
func GenerateToken(sessionID string, secretKey []byte, validity time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{IssuedAt: jwt.NewNumericDate(now)},
		SessionID:        sessionID,
	}
	if validity != 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(validity))
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secretKey)
}

// GetSessionIDFromToken verifies tokenString and returns the session id.
// Every failure is common.ErrForbidden.
func GetSessionIDFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrForbidden, err)
	}
	if !token.Valid || claims.SessionID == "" {
		return "", common.ErrForbidden
	}

	return claims.SessionID, nil
}
