package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// ResolveRequest is the authentication relevant part of an inbound request
type ResolveRequest struct {
	// Authorization is the raw Authorization header value
	Authorization string
	// RoleHint is the optional `Rol` query value
	RoleHint string
	// AllowedRoles restricts the roles a route accepts. Empty allows all.
	AllowedRoles []Role
}

// RoleAuthenticator turns a bearer token and an optional role hint into a
// single terminal AuthOutcome. Only the secret of the token's own role is
// ever tried.
type RoleAuthenticator struct {
	table        *RoleTable
	codec        ClaimsCodec
	gate         *LockoutGate
	logger       Logger
	activitySink ActivitySink
	observer     OutcomeObserver
	now          func() time.Time
}

// NewRoleAuthenticator returns a new RoleAuthenticator
func NewRoleAuthenticator(table *RoleTable, codec ClaimsCodec, gate *LockoutGate) *RoleAuthenticator {
	if codec == nil {
		codec = NewClaimsCodec()
	}
	if gate == nil {
		gate = NewLockoutGate(nil)
	}
	return &RoleAuthenticator{
		table:        table,
		codec:        codec,
		gate:         gate,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
		observer:     noopObserver{},
		now:          time.Now,
	}
}

func (a *RoleAuthenticator) WithLogger(logger Logger) *RoleAuthenticator {
	if logger != nil {
		a.logger = logger
	}
	return a
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (a *RoleAuthenticator) WithActivitySink(sink ActivitySink) *RoleAuthenticator {
	a.activitySink = normalizeActivitySink(sink)
	return a
}

// WithObserver configures an OutcomeObserver, e.g. Prometheus metrics.
func (a *RoleAuthenticator) WithObserver(observer OutcomeObserver) *RoleAuthenticator {
	if observer == nil {
		observer = noopObserver{}
	}
	a.observer = observer
	return a
}

// Table returns the role table used by the authenticator
func (a *RoleAuthenticator) Table() *RoleTable {
	return a.table
}

// Codec returns the claims codec used by the authenticator
func (a *RoleAuthenticator) Codec() ClaimsCodec {
	return a.codec
}

// Gate returns the lockout gate used by the authenticator
func (a *RoleAuthenticator) Gate() *LockoutGate {
	return a.gate
}

// Resolve runs the authentication steps in order and returns the first
// terminal outcome.
func (a *RoleAuthenticator) Resolve(ctx context.Context, req ResolveRequest) (outcome AuthOutcome) {
	start := a.now()

	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("Resolve recovered from panic", "panic", r)
			outcome = rejected(outcome.Role, newAuthError(KindSystemError, "Error desconocido en el proceso de autenticación", nil))
		}
		a.report(ctx, outcome, a.now().Sub(start))
	}()

	return a.resolve(ctx, req)
}

func (a *RoleAuthenticator) resolve(ctx context.Context, req ResolveRequest) AuthOutcome {
	if req.Authorization == "" {
		return rejected("", newAuthError(KindTokenMissing, "No se ha proporcionado un token de autenticación", nil))
	}

	parts := strings.Split(req.Authorization, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return rejected("", newAuthError(KindTokenInvalidFormat, "Formato de token no válido", nil))
	}
	raw := parts[1]

	candidate, failure := a.discoverRole(raw, req.RoleHint)
	if failure != nil {
		return rejected(candidate, failure)
	}

	if len(req.AllowedRoles) > 0 && !slices.Contains(req.AllowedRoles, candidate) {
		return rejected(candidate, wrongRole(candidate))
	}

	desc, ok := a.table.Lookup(candidate)
	if !ok {
		return rejected(candidate, wrongRole(candidate))
	}

	claims, err := a.codec.Verify(raw, desc.SigningSecret)
	if err != nil {
		return rejected(candidate, a.verifyFailure(candidate, err))
	}

	if claims.Role != candidate {
		return rejected(candidate, wrongRole(candidate))
	}

	if status := a.gate.Check(ctx, candidate); status.Locked() {
		return rejected(candidate, lockedError(candidate, status))
	}

	record, err := desc.Store.FindActive(ctx, claims.SubjectID)
	if err != nil {
		a.logger.Error("principal lookup failed", "role", candidate, "subject", claims.SubjectID, "error", err)
		return rejected(candidate, newAuthError(KindSystemError, "Error al verificar el estado del usuario o rol", nil))
	}

	if record == nil || !desc.active(record) {
		msg := fmt.Sprintf("La cuenta de %s está inactiva o no existe", candidate.Text().Singular)
		return rejected(candidate, newAuthError(KindUserInactiveOrUnknown, msg, nil))
	}

	if !desc.satisfiesStructure(record) {
		msg := desc.StructuralMessage
		if msg == "" {
			msg = "No tiene permisos suficientes para acceder a este recurso"
		}
		return rejected(candidate, newAuthError(KindInsufficientPermissions, msg, nil))
	}

	principal := &Principal{
		Role:         candidate,
		ID:           claims.SubjectID,
		DisplayName:  claims.DisplayName,
		ClassroomIDs: slices.Clone(record.ClassroomIDs),
	}
	if len(principal.ClassroomIDs) > 0 {
		principal.AssignedClassroomID = principal.ClassroomIDs[0]
	}

	return authenticated(principal)
}

// discoverRole picks the candidate role from the unverified payload. The
// peeked role only selects a secret, it never authorizes anything.
func (a *RoleAuthenticator) discoverRole(raw, hint string) (Role, *AuthError) {
	peeked, ok := a.codec.Peek(raw)

	if hint != "" {
		// unknown hints are reported without a role so request input never
		// becomes a metric label or audit value
		role, valid := ParseRole(hint)
		if !valid {
			return "", wrongRole("")
		}
		if !ok || peeked.Role != role {
			return role, wrongRole(role)
		}
		return role, nil
	}

	if !ok {
		return "", newAuthError(KindTokenMalformed, "El token tiene un formato incorrecto", nil)
	}

	role, valid := ParseRole(string(peeked.Role))
	if !valid {
		return "", newAuthError(KindTokenMalformed, "El token tiene un formato incorrecto", nil)
	}

	return role, nil
}

func (a *RoleAuthenticator) verifyFailure(role Role, err error) *AuthError {
	var tokenErr *TokenError
	errors.As(err, &tokenErr)

	switch {
	case errors.Is(err, ErrTokenExpired):
		details := map[string]any{}
		if tokenErr != nil && !tokenErr.ExpiredAt.IsZero() {
			details["expiredAt"] = tokenErr.ExpiredAt.UTC()
		}
		return newAuthError(KindTokenExpired, "El token ha expirado", details)
	case errors.Is(err, ErrTokenBadSignature):
		msg := fmt.Sprintf("La firma del token es inválida para %s", role.Text().Singular)
		return newAuthError(KindTokenInvalidSignature, msg, nil)
	case errors.Is(err, ErrTokenMalformed):
		return newAuthError(KindTokenMalformed, "El token tiene un formato incorrecto", nil)
	default:
		a.logger.Error("token verification failed", "role", role, "error", err)
		return newAuthError(KindSystemError, "Error desconocido al verificar el token", nil)
	}
}

func (a *RoleAuthenticator) report(ctx context.Context, outcome AuthOutcome, elapsed time.Duration) {
	if outcome.Authenticated() {
		a.observer.ObserveOutcome(outcome.Role, "", elapsed)
		emitActivity(ctx, a.activitySink, a.logger, ActivityEvent{
			EventType: ActivityEventResolveSuccess,
			Role:      outcome.Role,
			SubjectID: outcome.Principal.ID,
		})
		return
	}

	kind := KindSystemError
	if outcome.Err != nil {
		kind = outcome.Err.Kind
	}

	a.observer.ObserveOutcome(outcome.Role, kind, elapsed)
	a.logger.Info("authentication rejected", "role", outcome.Role, "kind", kind)
	emitActivity(ctx, a.activitySink, a.logger, ActivityEvent{
		EventType: ActivityEventResolveFailure,
		Role:      outcome.Role,
		Kind:      kind,
	})
}

func wrongRole(role Role) *AuthError {
	msg := "El token no corresponde al rol solicitado"
	if role.IsValid() {
		msg = fmt.Sprintf("El token no corresponde a un usuario %s", role.Text().Singular)
	}
	return newAuthError(KindTokenWrongRole, msg, nil)
}

func lockedError(role Role, status LockoutStatus) *AuthError {
	msg := fmt.Sprintf("El acceso para %s está temporalmente bloqueado", role.Text().Plural)
	if status.Permanent() {
		msg = fmt.Sprintf("El acceso para %s está permanentemente bloqueado", role.Text().Plural)
	}
	return newAuthError(KindRoleLocked, msg, status.Details())
}
