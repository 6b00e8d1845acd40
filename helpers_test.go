package auth_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-role-auth"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var testNow = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

var errStoreDown = errors.New("store unavailable")

// memoryStore is an in-memory auth.AccountStore
type memoryStore struct {
	mu       sync.Mutex
	accounts map[string]*auth.Account
	err      error
	lookups  int
}

func newMemoryStore(accounts ...*auth.Account) *memoryStore {
	s := &memoryStore{accounts: map[string]*auth.Account{}}
	for _, a := range accounts {
		s.accounts[a.SubjectID] = a
	}
	return s
}

func (s *memoryStore) FindActive(ctx context.Context, subjectID string) (*auth.ActiveRecord, error) {
	account, err := s.FindByID(ctx, subjectID)
	if err != nil || account == nil {
		return nil, err
	}
	return &auth.ActiveRecord{
		ID:           account.SubjectID,
		DisplayName:  account.DisplayName(),
		Active:       account.Active,
		ClassroomIDs: account.ClassroomIDs,
	}, nil
}

func (s *memoryStore) FindByID(_ context.Context, subjectID string) (*auth.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups++
	if s.err != nil {
		return nil, s.err
	}
	a, ok := s.accounts[subjectID]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (s *memoryStore) FindByUsername(_ context.Context, username string) (*auth.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	for _, a := range s.accounts {
		if a.Username == username {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memoryStore) Lookups() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookups
}

// MockLockoutStore mocks auth.LockoutStore
type MockLockoutStore struct {
	mock.Mock
}

func (m *MockLockoutStore) FindLockout(ctx context.Context, role auth.Role) (*auth.LockoutRecord, error) {
	args := m.Called(ctx, role)
	record, _ := args.Get(0).(*auth.LockoutRecord)
	return record, args.Error(1)
}

// spyCodec records the secrets Verify was called with
type spyCodec struct {
	auth.ClaimsCodec
	mu      sync.Mutex
	secrets []string
}

func (s *spyCodec) Verify(raw string, secret []byte) (*auth.RoleClaims, error) {
	s.mu.Lock()
	s.secrets = append(s.secrets, string(secret))
	s.mu.Unlock()
	return s.ClaimsCodec.Verify(raw, secret)
}

func (s *spyCodec) VerifyCalls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.secrets...)
}

func secretFor(role auth.Role) []byte {
	return []byte("secret-" + string(role) + "-0123456789abcdef")
}

// subjectFor returns a subject id shaped like the real ones: a numeric id
// for directors and a DNI for everybody else.
func subjectFor(role auth.Role) string {
	switch role {
	case auth.RoleDirectivo:
		return "7"
	case auth.RoleProfesorPrimaria:
		return "10000001"
	case auth.RoleProfesorSecundaria:
		return "10000002"
	case auth.RoleTutor:
		return "10000003"
	case auth.RoleAuxiliar:
		return "10000004"
	case auth.RolePersonalAdministrativo:
		return "10000005"
	default:
		return "10000006"
	}
}

const testPassword = "Clave-Segura-2026"

var testPasswordHash = func() string {
	h, err := auth.HashPasswordWithCost(testPassword, bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return h
}()

func accountFor(role auth.Role) *auth.Account {
	a := &auth.Account{
		Role:         role,
		SubjectID:    subjectFor(role),
		Username:     "user-" + role.Slug(),
		PasswordHash: testPasswordHash,
		FirstName:    "Ana",
		LastName:     "Quispe",
		Gender:       "F",
		PhotoID:      "drive-" + role.Slug(),
		Active:       true,
	}
	if role == auth.RoleTutor || role == auth.RoleProfesorPrimaria {
		a.ClassroomIDs = []string{"3"}
	}
	return a
}

type fixture struct {
	table   *auth.RoleTable
	codec   *spyCodec
	stores  map[auth.Role]*memoryStore
	lockout *MockLockoutStore
	authn   *auth.RoleAuthenticator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		stores:  map[auth.Role]*memoryStore{},
		lockout: new(MockLockoutStore),
		codec:   &spyCodec{ClaimsCodec: auth.NewClaimsCodec(auth.WithCodecClock(fixedClock))},
	}

	var descs []auth.RoleDescriptor
	for _, role := range auth.AllRoles() {
		store := newMemoryStore(accountFor(role))
		f.stores[role] = store
		descs = append(descs, auth.DefaultDescriptor(role, secretFor(role), 0, store))
	}

	table, err := auth.NewRoleTable(descs...)
	require.NoError(t, err)
	f.table = table

	gate := auth.NewLockoutGate(f.lockout).WithClock(fixedClock)
	f.authn = auth.NewRoleAuthenticator(table, f.codec, gate)

	return f
}

// unlocked makes the lockout store answer "no record" for every role
func (f *fixture) unlocked() *fixture {
	f.lockout.On("FindLockout", mock.Anything, mock.Anything).Return(nil, nil)
	return f
}

func (f *fixture) mint(t *testing.T, role auth.Role) string {
	t.Helper()
	token, _, err := auth.MintRoleToken(f.codec, f.table, role, auth.TokenRequest{
		SubjectID:   subjectFor(role),
		DisplayName: "user-" + role.Slug(),
		IssuedAt:    testNow,
	})
	require.NoError(t, err)
	return token
}

func bearer(token string) string {
	return "Bearer " + token
}
