// Package auth guards the admin dashboard.
package auth

import (
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// DefaultAdminCode is used when no admin code is configured.
const DefaultAdminCode = "changeme-admin"

// AdminGate checks the code presented to the stats endpoint. The configured
// secret is either the plain code or a bcrypt hash of it.
type AdminGate struct {
	secret string
	hashed bool
}

// NewAdminGate builds a gate for the configured secret.
func NewAdminGate(secret string) *AdminGate {
	if secret == "" {
		secret = DefaultAdminCode
	}
	return &AdminGate{secret: secret, hashed: isBcrypt(secret)}
}

// IsDefault reports whether the server is still running with the shipped code.
func (g *AdminGate) IsDefault() bool {
	return !g.hashed && g.secret == DefaultAdminCode
}

// Verify reports whether code matches. An empty code never matches.
func (g *AdminGate) Verify(code string) bool {
	if code == "" {
		return false
	}
	if g.hashed {
		return bcrypt.CompareHashAndPassword([]byte(g.secret), []byte(code)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(g.secret), []byte(code)) == 1
}

// HashAdminCode returns a bcrypt hash suitable for the admin-code setting.
func HashAdminCode(code string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func isBcrypt(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}
