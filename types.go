package auth

import (
	"context"
	"fmt"
)

// Logger takes a message followed by alternating key/value pairs
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// ActiveRecord is what a PrincipalStore knows about a subject
type ActiveRecord struct {
	ID           string
	DisplayName  string
	Active       bool
	ClassroomIDs []string
}

// PrincipalStore answers whether a subject exists and is active for a
// single role. A missing subject is reported as (nil, nil).
type PrincipalStore interface {
	FindActive(ctx context.Context, subjectID string) (*ActiveRecord, error)
}

// Account holds the credential and profile data of a subject
type Account struct {
	Role         Role     `json:"Rol"`
	SubjectID    string   `json:"Id"`
	Username     string   `json:"Nombre_Usuario"`
	PasswordHash string   `json:"-"`
	FirstName    string   `json:"Nombres"`
	LastName     string   `json:"Apellidos"`
	Gender       string   `json:"Genero,omitempty"`
	Email        string   `json:"Correo_Electronico,omitempty"`
	Phone        string   `json:"Celular,omitempty"`
	PhotoID      string   `json:"Google_Drive_Foto_ID,omitempty"`
	Active       bool     `json:"Estado"`
	ClassroomIDs []string `json:"Aulas,omitempty"`
}

// DisplayName returns the name shown to other users
func (a *Account) DisplayName() string {
	if a.FirstName == "" && a.LastName == "" {
		return a.Username
	}
	if a.LastName == "" {
		return a.FirstName
	}
	return a.FirstName + " " + a.LastName
}

// AccountStore is a PrincipalStore that can also look up credentials and
// profiles for the login and profile routes.
type AccountStore interface {
	PrincipalStore
	FindByUsername(ctx context.Context, username string) (*Account, error)
	FindByID(ctx context.Context, subjectID string) (*Account, error)
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

type defLogger struct{}

func (d defLogger) Error(msg string, args ...any) {
	fmt.Print("[ERR] AUTH " + newline(formatLog(msg, args...)))
}

func (d defLogger) Warn(msg string, args ...any) {
	fmt.Print("[WRN] AUTH " + newline(formatLog(msg, args...)))
}

func (d defLogger) Info(msg string, args ...any) {
	fmt.Print("[INF] AUTH " + newline(formatLog(msg, args...)))
}

func (d defLogger) Debug(msg string, args ...any) {
	fmt.Print("[DBG] AUTH " + newline(formatLog(msg, args...)))
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
