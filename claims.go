package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RoleClaims is the signed payload issued at login. Field names follow the
// wire format already in use by the school clients.
type RoleClaims struct {
	jwt.RegisteredClaims
	SubjectID   string `json:"ID_Usuario"`
	DisplayName string `json:"Nombre_Usuario"`
	Role        Role   `json:"Rol"`
}

// Expires returns the expiration time
func (c *RoleClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *RoleClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// complete reports whether the claims carry every field the
// authenticator relies on.
func (c *RoleClaims) complete() bool {
	return c.SubjectID != "" && c.Role != "" && c.RegisteredClaims.ExpiresAt != nil
}
