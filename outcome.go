package auth

import "net/http"

// ErrorKind is the closed set of authentication failures
type ErrorKind string

const (
	KindTokenMissing            ErrorKind = "TOKEN_MISSING"
	KindTokenInvalidFormat      ErrorKind = "TOKEN_INVALID_FORMAT"
	KindTokenMalformed          ErrorKind = "TOKEN_MALFORMED"
	KindTokenWrongRole          ErrorKind = "TOKEN_WRONG_ROLE"
	KindTokenExpired            ErrorKind = "TOKEN_EXPIRED"
	KindTokenInvalidSignature   ErrorKind = "TOKEN_INVALID_SIGNATURE"
	KindRoleLocked              ErrorKind = "ROLE_LOCKED"
	KindUserInactiveOrUnknown   ErrorKind = "USER_INACTIVE_OR_UNKNOWN"
	KindInsufficientPermissions ErrorKind = "INSUFFICIENT_PERMISSIONS"
	KindSystemError             ErrorKind = "SYSTEM_ERROR"
)

var kindStatus = map[ErrorKind]int{
	KindTokenMissing:            http.StatusUnauthorized,
	KindTokenInvalidFormat:      http.StatusUnauthorized,
	KindTokenMalformed:          http.StatusUnauthorized,
	KindTokenWrongRole:          http.StatusForbidden,
	KindTokenExpired:            http.StatusUnauthorized,
	KindTokenInvalidSignature:   http.StatusUnauthorized,
	KindRoleLocked:              http.StatusForbidden,
	KindUserInactiveOrUnknown:   http.StatusForbidden,
	KindInsufficientPermissions: http.StatusForbidden,
	KindSystemError:             http.StatusInternalServerError,
}

// AllErrorKinds returns every ErrorKind
func AllErrorKinds() []ErrorKind {
	return []ErrorKind{
		KindTokenMissing,
		KindTokenInvalidFormat,
		KindTokenMalformed,
		KindTokenWrongRole,
		KindTokenExpired,
		KindTokenInvalidSignature,
		KindRoleLocked,
		KindUserInactiveOrUnknown,
		KindInsufficientPermissions,
		KindSystemError,
	}
}

// Status returns the HTTP status code for the kind. Unknown kinds map to 500.
func (k ErrorKind) Status() int {
	if s, ok := kindStatus[k]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// AuthError is a classified authentication failure
type AuthError struct {
	Kind    ErrorKind      `json:"errorType"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *AuthError) Error() string {
	return string(e.Kind) + ": " + e.Message
}

func newAuthError(kind ErrorKind, message string, details map[string]any) *AuthError {
	return &AuthError{Kind: kind, Message: message, Details: details}
}

// Principal is the identity attached to an authenticated request
type Principal struct {
	Role                Role     `json:"role"`
	ID                  string   `json:"id"`
	DisplayName         string   `json:"displayName"`
	AssignedClassroomID string   `json:"assignedClassroomId,omitempty"`
	ClassroomIDs        []string `json:"classroomIds,omitempty"`
}

// AuthOutcome is the terminal result of resolving a request. Exactly one of
// Principal or Err is set.
type AuthOutcome struct {
	Principal *Principal
	Err       *AuthError
	// Role is the candidate role when one was determined
	Role Role
}

// Authenticated reports whether the outcome carries a principal
func (o AuthOutcome) Authenticated() bool {
	return o.Principal != nil && o.Err == nil
}

func authenticated(p *Principal) AuthOutcome {
	return AuthOutcome{Principal: p, Role: p.Role}
}

func rejected(role Role, err *AuthError) AuthOutcome {
	return AuthOutcome{Err: err, Role: role}
}
