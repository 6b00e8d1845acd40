package auth

import (
	"errors"
	"time"
)

// ErrTokenExpired is returned by Verify when the token expiry has passed
var ErrTokenExpired = errors.New("token is expired")

// ErrTokenBadSignature is returned by Verify when the signature does not
// match the secret
var ErrTokenBadSignature = errors.New("token signature is invalid")

// ErrTokenMalformed is returned by Verify for any other structural problem
var ErrTokenMalformed = errors.New("token is malformed")

// ErrDuplicateRole is returned when a role table gets two descriptors for
// the same role
var ErrDuplicateRole = errors.New("duplicate role descriptor")

// ErrMissingRole is returned when a role table lacks a descriptor
var ErrMissingRole = errors.New("missing role descriptor")

// ErrMismatchedHashAndPassword is returned when a password does not match
var ErrMismatchedHashAndPassword = errors.New("password does not match hash")

// ErrNoEmptyString is returned when hashing an empty password
var ErrNoEmptyString = errors.New("password must not be empty")

// TokenError carries the classification of a failed Verify call.
type TokenError struct {
	Kind      error
	ExpiredAt time.Time
	Cause     error
}

func (e *TokenError) Error() string {
	if e.Cause != nil {
		return e.Kind.Error() + ": " + e.Cause.Error()
	}
	return e.Kind.Error()
}

// Unwrap exposes both the classification and the underlying parser error
func (e *TokenError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	return errors.Is(err, ErrTokenExpired)
}

// IsMalformedError will check for malformed tokens
func IsMalformedError(err error) bool {
	return errors.Is(err, ErrTokenMalformed)
}
