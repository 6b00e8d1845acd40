package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenRequest describes a token to be minted for a role.
type TokenRequest struct {
	SubjectID   string
	DisplayName string
	// IssuedAt overrides the issuance time. Zero uses the codec clock.
	IssuedAt time.Time
	// TTL overrides the role TTL when positive.
	TTL time.Duration
}

// MintRoleToken signs a claims set for role using the role's secret and TTL
// as configured in the table.
func MintRoleToken(codec ClaimsCodec, table *RoleTable, role Role, req TokenRequest) (string, time.Time, error) {
	if codec == nil {
		return "", time.Time{}, errors.New("claims codec is required")
	}
	if table == nil {
		return "", time.Time{}, errors.New("role table is required")
	}
	if req.SubjectID == "" {
		return "", time.Time{}, errors.New("subject id is required")
	}

	desc, ok := table.Lookup(role)
	if !ok {
		return "", time.Time{}, errors.New("unknown role: " + string(role))
	}

	issuedAt := req.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = time.Now()
		if jc, ok := codec.(*JWTCodec); ok {
			issuedAt = jc.now()
		}
	}

	ttl := desc.TokenTTL
	if req.TTL > 0 {
		ttl = req.TTL
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	expiresAt := issuedAt.Add(ttl)

	claims := &RoleClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   req.SubjectID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		SubjectID:   req.SubjectID,
		DisplayName: req.DisplayName,
		Role:        role,
	}

	token, err := codec.Sign(claims, desc.SigningSecret)
	if err != nil {
		return "", time.Time{}, err
	}

	return token, expiresAt, nil
}

func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims == nil || claims.ID != "" {
		return
	}
	claims.ID = uuid.NewString()
}
