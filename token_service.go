package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ClaimsCodec decodes and encodes signed role claims.
//
// Peek decodes a token without checking its signature and must only be used
// to pick the secret to verify against. Verify is the trust boundary.
type ClaimsCodec interface {
	Peek(raw string) (*RoleClaims, bool)
	Verify(raw string, secret []byte) (*RoleClaims, error)
	Sign(claims *RoleClaims, secret []byte) (string, error)
}

// JWTCodec implements ClaimsCodec on top of HS256 JWTs
type JWTCodec struct {
	now    func() time.Time
	logger Logger
}

// CodecOption configures a JWTCodec
type CodecOption func(*JWTCodec)

// WithCodecClock overrides the clock used for expiry checks
func WithCodecClock(now func() time.Time) CodecOption {
	return func(c *JWTCodec) {
		if now != nil {
			c.now = now
		}
	}
}

// WithCodecLogger sets the codec logger
func WithCodecLogger(logger Logger) CodecOption {
	return func(c *JWTCodec) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClaimsCodec creates a new JWT backed ClaimsCodec
func NewClaimsCodec(opts ...CodecOption) *JWTCodec {
	c := &JWTCodec{
		now:    time.Now,
		logger: defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

var _ ClaimsCodec = (*JWTCodec)(nil)

// Peek decodes the payload without verifying the signature. It returns
// false when the token cannot be decoded at all.
func (c *JWTCodec) Peek(raw string) (*RoleClaims, bool) {
	if raw == "" {
		return nil, false
	}

	claims := &RoleClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		c.logger.Debug("ClaimsCodec peek could not decode token", "error", err)
		return nil, false
	}

	return claims, true
}

// Verify decodes the token, checks its signature against secret and checks
// that it has not expired.
func (c *JWTCodec) Verify(raw string, secret []byte) (*RoleClaims, error) {
	claims := &RoleClaims{}

	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)

	if err != nil {
		return nil, c.classify(token, claims, err)
	}

	if !token.Valid || !claims.complete() {
		return nil, &TokenError{Kind: ErrTokenMalformed, Cause: errors.New("missing required claims")}
	}

	return claims, nil
}

// Sign encodes the claims as an HS256 JWT signed with secret
func (c *JWTCodec) Sign(claims *RoleClaims, secret []byte) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil")
	}

	ensureTokenID(&claims.RegisteredClaims)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign JWT: %w", err)
	}

	return signed, nil
}

func (c *JWTCodec) classify(token *jwt.Token, claims *RoleClaims, err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return &TokenError{Kind: ErrTokenExpired, ExpiredAt: claims.Expires(), Cause: err}

	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		if token == nil || token.Method != jwt.SigningMethodHS256 {
			return &TokenError{Kind: ErrTokenMalformed, Cause: err}
		}
		// an expired token reports expiry whether or not the signature holds
		if exp := claims.Expires(); !exp.IsZero() && !c.now().Before(exp) {
			return &TokenError{Kind: ErrTokenExpired, ExpiredAt: exp, Cause: err}
		}
		return &TokenError{Kind: ErrTokenBadSignature, Cause: err}

	default:
		return &TokenError{Kind: ErrTokenMalformed, Cause: err}
	}
}
