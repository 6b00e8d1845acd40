package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	auth "github.com/goliatone/go-role-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func setupDB(t *testing.T) *bun.DB {
	t.Helper()

	db, err := Open(DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, Migrate(context.Background(), db))
	return db
}

func person(username string) Person {
	return Person{
		Username:     username,
		PasswordHash: "$2a$04$hash",
		FirstName:    "Rosa",
		LastName:     "Huamán",
		Gender:       "F",
		Email:        username + "@colegio.edu.pe",
		PhotoID:      "drive-" + username,
	}
}

func seed(t *testing.T, db *bun.DB, models ...any) {
	t.Helper()
	for _, m := range models {
		_, err := db.NewInsert().Model(m).Exec(context.Background())
		require.NoError(t, err, "%T", m)
	}
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open("mysql", "")
	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestMigrate_Idempotent(t *testing.T) {
	db := setupDB(t)
	assert.NoError(t, Migrate(context.Background(), db))
}

func TestAccountRepository_FindByID(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	seed(t, db,
		&Auxiliar{DNI: "40000001", Person: person("raux"), Active: true},
		&Auxiliar{DNI: "40000002", Person: person("iaux"), Active: false},
	)

	repo := NewAccountRepository[Auxiliar](db, auth.RoleAuxiliar, "dni")
	assert.Equal(t, auth.RoleAuxiliar, repo.Role())

	account, err := repo.FindByID(ctx, "40000001")
	require.NoError(t, err)
	require.NotNil(t, account)
	assert.Equal(t, auth.RoleAuxiliar, account.Role)
	assert.Equal(t, "40000001", account.SubjectID)
	assert.Equal(t, "raux", account.Username)
	assert.Equal(t, "Rosa Huamán", account.DisplayName())
	assert.True(t, account.Active)
	assert.Empty(t, account.ClassroomIDs)

	inactive, err := repo.FindActive(ctx, "40000002")
	require.NoError(t, err)
	require.NotNil(t, inactive)
	assert.False(t, inactive.Active)

	missing, err := repo.FindActive(ctx, "99999999")
	assert.NoError(t, err)
	assert.Nil(t, missing)

	empty, err := repo.FindByID(ctx, "")
	assert.NoError(t, err)
	assert.Nil(t, empty)
}

func TestAccountRepository_FindByUsername(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	seed(t, db, &Responsable{DNI: "60000001", Person: person("padre1")})
	repo := NewAccountRepository[Responsable](db, auth.RoleResponsable, "dni")

	account, err := repo.FindByUsername(ctx, "padre1")
	require.NoError(t, err)
	require.NotNil(t, account)
	assert.Equal(t, "60000001", account.SubjectID)
	assert.Equal(t, "$2a$04$hash", account.PasswordHash)
	assert.True(t, account.Active, "guardians have no status column")

	missing, err := repo.FindByUsername(ctx, "nadie")
	assert.NoError(t, err)
	assert.Nil(t, missing)

	missing, err = repo.FindByUsername(ctx, "")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestAccountRepository_NumericKey(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	repo := NewAccountRepository[Directivo](db, auth.RoleDirectivo, "id", WithNumericKey())
	require.NoError(t, repo.Create(ctx, &Directivo{ID: 7, Person: person("director")}))

	account, err := repo.FindByID(ctx, "7")
	require.NoError(t, err)
	require.NotNil(t, account)
	assert.Equal(t, "7", account.SubjectID)
	assert.True(t, account.Active)

	account, err = repo.FindByID(ctx, "44556677-x")
	assert.NoError(t, err)
	assert.Nil(t, account, "non numeric subjects are never found")

	err = repo.Create(ctx, &Directivo{ID: 8, Person: person("director")})
	assert.Error(t, err, "usernames are unique")
}

func TestAccountRepository_Classrooms(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	seed(t, db,
		&ProfesorSecundaria{DNI: "20000001", Person: person("tutor1"), Active: true},
		&ProfesorSecundaria{DNI: "20000002", Person: person("docente2"), Active: true},
		&ProfesorPrimaria{DNI: "10000001", Person: person("primaria1"), Active: true},
		&Aula{ID: 3, Level: "Secundaria", Grade: "2", Section: "A", SecondaryTeacherDNI: "20000001"},
		&Aula{ID: 5, Level: "Secundaria", Grade: "3", Section: "B", SecondaryTeacherDNI: "20000001"},
		&Aula{ID: 9, Level: "Primaria", Grade: "1", Section: "A", PrimaryTeacherDNI: "10000001"},
	)

	m := NewRepositoryManager(db)
	m.MustValidate()

	tutor, err := m.Accounts(auth.RoleTutor).FindActive(ctx, "20000001")
	require.NoError(t, err)
	require.NotNil(t, tutor)
	assert.Equal(t, []string{"3", "5"}, tutor.ClassroomIDs)

	noClassroom, err := m.Accounts(auth.RoleTutor).FindActive(ctx, "20000002")
	require.NoError(t, err)
	require.NotNil(t, noClassroom)
	assert.Empty(t, noClassroom.ClassroomIDs)

	secondary, err := m.Accounts(auth.RoleProfesorSecundaria).FindActive(ctx, "20000001")
	require.NoError(t, err)
	assert.Empty(t, secondary.ClassroomIDs, "secondary teachers do not load classrooms")

	primary, err := m.Accounts(auth.RoleProfesorPrimaria).FindActive(ctx, "10000001")
	require.NoError(t, err)
	assert.Equal(t, []string{"9"}, primary.ClassroomIDs)
}

func TestManager_Descriptors(t *testing.T) {
	db := setupDB(t)
	m := NewRepositoryManager(db)

	secrets := map[auth.Role][]byte{}
	for _, role := range auth.AllRoles() {
		secrets[role] = []byte("secret-" + role.Slug())
	}

	table, err := auth.NewRoleTable(m.Descriptors(secrets, map[auth.Role]time.Duration{
		auth.RoleResponsable: time.Hour,
	})...)
	require.NoError(t, err)

	d, ok := table.Lookup(auth.RoleResponsable)
	require.True(t, ok)
	assert.Equal(t, time.Hour, d.TokenTTL)

	d, ok = table.Lookup(auth.RoleAuxiliar)
	require.True(t, ok)
	assert.Equal(t, auth.DefaultTokenTTL, d.TokenTTL)
	assert.Same(t, m.Accounts(auth.RoleAuxiliar), d.Store)
}

func TestManager_RunInTx(t *testing.T) {
	db := setupDB(t)
	m := NewRepositoryManager(db)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)

	err = m.RunInTx(context.Background(), nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().Model(&Auxiliar{DNI: "1", Person: person("tx"), Active: true}).Exec(ctx)
		return err
	})
	require.NoError(t, err)

	account, err := m.Accounts(auth.RoleAuxiliar).FindByID(context.Background(), "1")
	require.NoError(t, err)
	assert.NotNil(t, account)
}

func TestLockoutRepository_WithTx(t *testing.T) {
	db := setupDB(t)
	m := NewRepositoryManager(db)
	ctx := context.Background()
	boom := errors.New("cache down")

	err := m.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		require.NoError(t, m.Lockouts().WithTx(tx).SetLockout(ctx, auth.LockoutRecord{Role: auth.RoleTutor, TotalBlock: true}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	record, err := m.Lockouts().FindLockout(ctx, auth.RoleTutor)
	require.NoError(t, err)
	assert.Nil(t, record, "a failed transaction leaves no lockout behind")

	err = m.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return m.Lockouts().WithTx(tx).SetLockout(ctx, auth.LockoutRecord{Role: auth.RoleTutor, TotalBlock: true})
	})
	require.NoError(t, err)

	record, err = m.Lockouts().FindLockout(ctx, auth.RoleTutor)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.True(t, record.TotalBlock)
}

func TestLockoutRepository(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	repo := NewLockoutRepository(db)
	repo.now = func() time.Time { return time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC) }

	record, err := repo.FindLockout(ctx, auth.RoleDirectivo)
	require.NoError(t, err)
	assert.Nil(t, record)

	require.NoError(t, repo.SetLockout(ctx, auth.LockoutRecord{
		Role:          auth.RoleDirectivo,
		TotalBlock:    true,
		UnblockAtUnix: 1772449200,
	}))

	record, err = repo.FindLockout(ctx, auth.RoleDirectivo)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.True(t, record.TotalBlock)
	assert.Equal(t, int64(1772449200), record.UnblockAtUnix)

	require.NoError(t, repo.SetLockout(ctx, auth.LockoutRecord{Role: auth.RoleDirectivo, TotalBlock: false}))
	record, err = repo.FindLockout(ctx, auth.RoleDirectivo)
	require.NoError(t, err)
	assert.False(t, record.TotalBlock, "set replaces the existing row")
	assert.Zero(t, record.UnblockAtUnix)

	other, err := repo.FindLockout(ctx, auth.RoleTutor)
	require.NoError(t, err)
	assert.Nil(t, other)

	require.NoError(t, repo.ClearLockout(ctx, auth.RoleDirectivo))
	record, err = repo.FindLockout(ctx, auth.RoleDirectivo)
	require.NoError(t, err)
	assert.Nil(t, record)

	assert.Error(t, repo.SetLockout(ctx, auth.LockoutRecord{Role: "Conserje"}))
}

func TestLockoutRepository_GatesLogins(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	repo := NewLockoutRepository(db)
	require.NoError(t, repo.SetLockout(ctx, auth.LockoutRecord{
		Role:          auth.RoleTutor,
		TotalBlock:    true,
		UnblockAtUnix: now.Add(90 * time.Minute).Unix(),
	}))

	gate := auth.NewLockoutGate(repo).WithClock(func() time.Time { return now })

	status := gate.Check(ctx, auth.RoleTutor)
	assert.True(t, status.Locked())
	assert.Equal(t, "1h 30m", status.RemainingText())

	assert.False(t, gate.Check(ctx, auth.RoleAuxiliar).Locked())
}

func TestEnableQueryLog(t *testing.T) {
	db := setupDB(t)
	EnableQueryLog(db, false)

	record, err := NewLockoutRepository(db).FindLockout(context.Background(), auth.RoleTutor)
	assert.NoError(t, err)
	assert.Nil(t, record)
}
