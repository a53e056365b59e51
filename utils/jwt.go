package utils

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// SessionClaims is what a session token carries about its owner.
type SessionClaims struct {
	ID    uint
	Email string
	Name  string
	Role  string
}

// GenerateToken signs a HS256 session token valid for ttl.
func GenerateToken(secret string, ttl time.Duration, s SessionClaims) (string, error) {
	claims := jwt.MapClaims{
		"id":    s.ID,
		"email": s.Email,
		"name":  s.Name,
		"role":  s.Role,
		"exp":   time.Now().Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
