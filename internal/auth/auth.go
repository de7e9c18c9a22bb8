// Package auth issues and verifies the bearer tokens spec.md §6 and §7
// require on every authenticated endpoint, and hashes/verifies account
// passwords. Grounded on bobmcallan-vire's internal/server/handlers_auth.go
// (HS256 jwt.MapClaims signing) and handlers_user.go (bcrypt at cost 10).
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/kisuya/reasoncard/internal/apperr"
)

// Tokens issues and parses the service's own bearer tokens (spec.md §7).
type Tokens struct {
	secret []byte
	ttl    time.Duration
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl}
}

// Issue mints an HS256 JWT carrying the user id as its subject.
func (t *Tokens) Issue(userID string, now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub": userID,
		"iss": "reasoncard",
		"iat": now.Unix(),
		"exp": now.Add(t.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("reasoncard: sign token: %w", err)
	}
	return signed, nil
}

// Verify parses tokenString and returns the subject user id.
func (t *Tokens) Verify(tokenString string) (string, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		return "", apperr.New(apperr.CodeInvalidToken, "invalid or expired token")
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", apperr.New(apperr.CodeInvalidToken, "token missing subject")
	}
	return sub, nil
}

// HashPassword bcrypt-hashes a plaintext password at the same cost
// factor bobmcallan-vire uses (10).
func HashPassword(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), 10)
	if err != nil {
		return "", fmt.Errorf("reasoncard: hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether plaintext matches hash.
func VerifyPassword(hash, plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
