package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	auth "github.com/goliatone/go-role-auth"
	"github.com/uptrace/bun"
)

// Classroom columns pointing at teachers
const (
	PrimaryTeacherColumn   = "primary_teacher_dni"
	SecondaryTeacherColumn = "secondary_teacher_dni"
)

// Manager groups the account store of every role and the lockout store
type Manager struct {
	db       *bun.DB
	accounts map[auth.Role]auth.AccountStore
	lockouts *LockoutRepository
}

// NewRepositoryManager wires one account repository per role on db
func NewRepositoryManager(db *bun.DB) *Manager {
	return &Manager{
		db: db,
		accounts: map[auth.Role]auth.AccountStore{
			auth.RoleDirectivo: NewAccountRepository[Directivo](db, auth.RoleDirectivo, "id",
				WithNumericKey()),
			auth.RoleProfesorPrimaria: NewAccountRepository[ProfesorPrimaria](db, auth.RoleProfesorPrimaria, "dni",
				WithClassroomColumn(PrimaryTeacherColumn)),
			auth.RoleProfesorSecundaria: NewAccountRepository[ProfesorSecundaria](db, auth.RoleProfesorSecundaria, "dni"),
			auth.RoleTutor: NewAccountRepository[ProfesorSecundaria](db, auth.RoleTutor, "dni",
				WithClassroomColumn(SecondaryTeacherColumn)),
			auth.RoleAuxiliar:               NewAccountRepository[Auxiliar](db, auth.RoleAuxiliar, "dni"),
			auth.RolePersonalAdministrativo: NewAccountRepository[PersonalAdministrativo](db, auth.RolePersonalAdministrativo, "dni"),
			auth.RoleResponsable:            NewAccountRepository[Responsable](db, auth.RoleResponsable, "dni"),
		},
		lockouts: NewLockoutRepository(db),
	}
}

func (m *Manager) Validate() error {
	for _, role := range auth.AllRoles() {
		if m.accounts[role] == nil {
			return fmt.Errorf("repository for %s should be initialized", role)
		}
	}

	if m.lockouts == nil {
		return errors.New("repository lockouts should be initialized")
	}

	return nil
}

func (m *Manager) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

// RunInTx runs f inside a transaction, f's error rolls it back
func (m *Manager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

// Accounts returns the account store of role
func (m *Manager) Accounts(role auth.Role) auth.AccountStore {
	return m.accounts[role]
}

func (m *Manager) Lockouts() *LockoutRepository {
	return m.lockouts
}

// Descriptors returns the default descriptor of every role using secrets
// and ttls keyed by role. A missing ttl uses auth.DefaultTokenTTL.
func (m *Manager) Descriptors(secrets map[auth.Role][]byte, ttls map[auth.Role]time.Duration) []auth.RoleDescriptor {
	out := make([]auth.RoleDescriptor, 0, len(auth.AllRoles()))
	for _, role := range auth.AllRoles() {
		out = append(out, auth.DefaultDescriptor(role, secrets[role], ttls[role], m.accounts[role]))
	}
	return out
}
