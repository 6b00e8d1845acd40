package repository

import (
	"strconv"
	"time"

	"github.com/uptrace/bun"
)

// Person holds the columns shared by every account table
type Person struct {
	Username     string `bun:"username,notnull,unique"`
	PasswordHash string `bun:"password_hash,notnull"`
	FirstName    string `bun:"first_name,notnull"`
	LastName     string `bun:"last_name,notnull"`
	Gender       string `bun:"gender"`
	Email        string `bun:"email"`
	Phone        string `bun:"phone"`
	PhotoID      string `bun:"photo_id"`
}

func (p *Person) person() *Person {
	return p
}

type accountModel interface {
	person() *Person
	subjectID() string
	isActive() bool
}

// Directivo is a school director. Directors are keyed by a numeric id and
// have no status column.
type Directivo struct {
	bun.BaseModel `bun:"table:directivos,alias:dir"`

	ID int64 `bun:"id,pk,autoincrement"`
	Person
}

func (m *Directivo) subjectID() string { return strconv.FormatInt(m.ID, 10) }
func (m *Directivo) isActive() bool    { return true }

// ProfesorPrimaria is a primary school teacher
type ProfesorPrimaria struct {
	bun.BaseModel `bun:"table:profesores_primaria,alias:pp"`

	DNI string `bun:"dni,pk"`
	Person
	Active bool `bun:"active,notnull"`
}

func (m *ProfesorPrimaria) subjectID() string { return m.DNI }
func (m *ProfesorPrimaria) isActive() bool    { return m.Active }

// ProfesorSecundaria is a secondary school teacher. Tutors are secondary
// teachers assigned to a classroom.
type ProfesorSecundaria struct {
	bun.BaseModel `bun:"table:profesores_secundaria,alias:ps"`

	DNI string `bun:"dni,pk"`
	Person
	Active bool `bun:"active,notnull"`
}

func (m *ProfesorSecundaria) subjectID() string { return m.DNI }
func (m *ProfesorSecundaria) isActive() bool    { return m.Active }

type Auxiliar struct {
	bun.BaseModel `bun:"table:auxiliares,alias:aux"`

	DNI string `bun:"dni,pk"`
	Person
	Active bool `bun:"active,notnull"`
}

func (m *Auxiliar) subjectID() string { return m.DNI }
func (m *Auxiliar) isActive() bool    { return m.Active }

type PersonalAdministrativo struct {
	bun.BaseModel `bun:"table:personal_administrativo,alias:pa"`

	DNI string `bun:"dni,pk"`
	Person
	Position  string `bun:"position"`
	WorkHours string `bun:"work_hours"`
	Active    bool   `bun:"active,notnull"`
}

func (m *PersonalAdministrativo) subjectID() string { return m.DNI }
func (m *PersonalAdministrativo) isActive() bool    { return m.Active }

// Responsable is a student's guardian. Guardians have no status column.
type Responsable struct {
	bun.BaseModel `bun:"table:responsables,alias:res"`

	DNI string `bun:"dni,pk"`
	Person
}

func (m *Responsable) subjectID() string { return m.DNI }
func (m *Responsable) isActive() bool    { return true }

// Aula is a classroom with its primary teacher or secondary tutor
type Aula struct {
	bun.BaseModel `bun:"table:aulas,alias:aul"`

	ID                  int64  `bun:"id,pk,autoincrement"`
	Level               string `bun:"level,notnull"`
	Grade               string `bun:"grade,notnull"`
	Section             string `bun:"section,notnull"`
	Color               string `bun:"color"`
	PrimaryTeacherDNI   string `bun:"primary_teacher_dni,nullzero"`
	SecondaryTeacherDNI string `bun:"secondary_teacher_dni,nullzero"`
}

// RoleLockout is the persisted form of auth.LockoutRecord
type RoleLockout struct {
	bun.BaseModel `bun:"table:role_lockouts,alias:rl"`

	Role       string    `bun:"role,pk"`
	TotalBlock bool      `bun:"total_block,notnull"`
	UnblockAt  int64     `bun:"unblock_at,notnull"`
	UpdatedAt  time.Time `bun:"updated_at,notnull"`
}

// Models lists every table created by Migrate
func Models() []any {
	return []any{
		(*Directivo)(nil),
		(*ProfesorPrimaria)(nil),
		(*ProfesorSecundaria)(nil),
		(*Auxiliar)(nil),
		(*PersonalAdministrativo)(nil),
		(*Responsable)(nil),
		(*Aula)(nil),
		(*RoleLockout)(nil),
	}
}
