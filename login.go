package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
)

// LoginPayload is the body of a login request
type LoginPayload struct {
	Username string `json:"Nombre_Usuario" form:"Nombre_Usuario"`
	Password string `json:"Contraseña" form:"Contraseña"`
}

// Validate will validate the payload
func (p LoginPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Username, validation.Required, validation.Length(1, 100)),
		validation.Field(&p.Password, validation.Required, validation.Length(1, 200)),
	)
}

// LoginResult is returned by a successful login
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Account   *Account
}

// LoginError is a login failure carrying the HTTP status to reply with
type LoginError struct {
	Status  int
	Message string
	Details map[string]any
	Cause   error
}

func (e *LoginError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *LoginError) Unwrap() error {
	return e.Cause
}

const errInvalidCredentials = "Credenciales inválidas"

// LoginService checks credentials for a role and issues a token signed
// with that role's secret.
type LoginService struct {
	table        *RoleTable
	codec        ClaimsCodec
	gate         *LockoutGate
	passwords    PasswordAuthenticator
	logger       Logger
	activitySink ActivitySink
}

// NewLoginService creates a login service sharing the authenticator's role
// table, codec and lockout gate.
func NewLoginService(a *RoleAuthenticator, passwords PasswordAuthenticator) *LoginService {
	if passwords == nil {
		passwords = BcryptPasswords{}
	}
	return &LoginService{
		table:        a.Table(),
		codec:        a.Codec(),
		gate:         a.Gate(),
		passwords:    passwords,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
	}
}

func (s *LoginService) WithLogger(logger Logger) *LoginService {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithActivitySink configures an ActivitySink for emitting login events.
func (s *LoginService) WithActivitySink(sink ActivitySink) *LoginService {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// Login authenticates username/password for role
func (s *LoginService) Login(ctx context.Context, role Role, payload LoginPayload) (*LoginResult, error) {
	result, err := s.login(ctx, role, payload)
	if err != nil {
		s.logger.Info("login rejected", "role", role, "error", err)
		emitActivity(ctx, s.activitySink, s.logger, ActivityEvent{
			EventType: ActivityEventLoginFailure,
			Role:      role,
			Metadata: map[string]any{
				"identifier": payload.Username,
				"error":      err.Error(),
			},
		})
		return nil, err
	}

	emitActivity(ctx, s.activitySink, s.logger, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		Role:      role,
		SubjectID: result.Account.SubjectID,
		Metadata: map[string]any{
			"identifier": payload.Username,
		},
	})
	return result, nil
}

func (s *LoginService) login(ctx context.Context, role Role, payload LoginPayload) (*LoginResult, error) {
	if err := payload.Validate(); err != nil {
		return nil, &LoginError{
			Status:  http.StatusBadRequest,
			Message: "El nombre de usuario y la contraseña son obligatorios",
			Cause:   err,
		}
	}

	desc, ok := s.table.Lookup(role)
	if !ok {
		return nil, &LoginError{Status: http.StatusNotFound, Message: "Rol no soportado"}
	}

	if status := s.gate.Check(ctx, role); status.Locked() {
		locked := lockedError(role, status)
		return nil, &LoginError{
			Status:  http.StatusForbidden,
			Message: locked.Message,
			Details: locked.Details,
		}
	}

	account, err := desc.Store.FindByUsername(ctx, payload.Username)
	if err != nil {
		s.logger.Error("login account lookup failed", "role", role, "error", err)
		return nil, &LoginError{
			Status:  http.StatusInternalServerError,
			Message: "Error en el servidor, por favor intente más tarde",
			Cause:   err,
		}
	}

	if account == nil {
		return nil, &LoginError{Status: http.StatusUnauthorized, Message: errInvalidCredentials}
	}

	record := &ActiveRecord{
		ID:           account.SubjectID,
		DisplayName:  account.DisplayName(),
		Active:       account.Active,
		ClassroomIDs: account.ClassroomIDs,
	}

	if !desc.active(record) {
		return nil, &LoginError{
			Status:  http.StatusForbidden,
			Message: "Tu cuenta está inactiva. Contacta al administrador.",
		}
	}

	if err := s.passwords.ComparePasswordAndHash(payload.Password, account.PasswordHash); err != nil {
		if !errors.Is(err, ErrMismatchedHashAndPassword) {
			s.logger.Warn("login password compare failed", "role", role, "error", err)
		}
		return nil, &LoginError{Status: http.StatusUnauthorized, Message: errInvalidCredentials}
	}

	if !desc.satisfiesStructure(record) {
		return nil, &LoginError{Status: http.StatusForbidden, Message: desc.StructuralMessage}
	}

	token, expiresAt, err := MintRoleToken(s.codec, s.table, role, TokenRequest{
		SubjectID:   account.SubjectID,
		DisplayName: account.Username,
	})
	if err != nil {
		s.logger.Error("login token signing failed", "role", role, "error", err)
		return nil, &LoginError{
			Status:  http.StatusInternalServerError,
			Message: "Error en el servidor, por favor intente más tarde",
			Cause:   err,
		}
	}

	return &LoginResult{Token: token, ExpiresAt: expiresAt, Account: account}, nil
}
