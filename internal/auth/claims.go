// Package auth extracts session identity from the bearer token handed to the
// client at launch. Authentication itself is the server's concern — the token
// is opaque credential material here — but its claims carry the student
// identity every local storage key must be scoped by.
package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims are the token claims the client engine cares about.
type SessionClaims struct {
	StudentID string `json:"student_id"`
	Name      string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

var ErrNoStudentID = errors.New("token carries no student identity")

// ParseSessionClaims decodes the JWT payload without verifying the signature.
// The client never trusts these claims for authorization — the server
// verifies the token on every request — it only needs the student identity
// for store namespacing, so an unverified parse is sufficient and avoids
// shipping the signing secret to student machines.
func ParseSessionClaims(token string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	if claims.StudentID == "" {
		// Fall back to the standard subject claim.
		if claims.Subject == "" {
			return nil, ErrNoStudentID
		}
		claims.StudentID = claims.Subject
	}

	return claims, nil
}
