package auth_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/goliatone/go-role-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorKind_Status(t *testing.T) {
	want := map[auth.ErrorKind]int{
		auth.KindTokenMissing:            http.StatusUnauthorized,
		auth.KindTokenInvalidFormat:      http.StatusUnauthorized,
		auth.KindTokenMalformed:          http.StatusUnauthorized,
		auth.KindTokenExpired:            http.StatusUnauthorized,
		auth.KindTokenInvalidSignature:   http.StatusUnauthorized,
		auth.KindTokenWrongRole:          http.StatusForbidden,
		auth.KindRoleLocked:              http.StatusForbidden,
		auth.KindUserInactiveOrUnknown:   http.StatusForbidden,
		auth.KindInsufficientPermissions: http.StatusForbidden,
		auth.KindSystemError:             http.StatusInternalServerError,
	}

	assert.Len(t, auth.AllErrorKinds(), len(want))
	for _, kind := range auth.AllErrorKinds() {
		assert.Equal(t, want[kind], kind.Status(), kind)
	}

	assert.Equal(t, http.StatusInternalServerError, auth.ErrorKind("SOMETHING_ELSE").Status())
}

func TestFinalize_Authenticated(t *testing.T) {
	p := &auth.Principal{Role: auth.RoleAuxiliar, ID: "10000004"}

	d := auth.Finalize(auth.AuthOutcome{Principal: p, Role: p.Role})

	assert.True(t, d.Continue())
	assert.Equal(t, http.StatusOK, d.Status)
	assert.Same(t, p, d.Principal)
	assert.Nil(t, d.Body)
}

func TestFinalize_Rejected(t *testing.T) {
	f := newFixture(t).unlocked()

	outcome := f.authn.Resolve(context.Background(), auth.ResolveRequest{
		Authorization: bearer(f.mint(t, auth.RoleTutor)),
		RoleHint:      string(auth.RoleDirectivo),
	})

	d := auth.Finalize(outcome)
	assert.False(t, d.Continue())
	assert.Nil(t, d.Principal)
	assert.Equal(t, http.StatusForbidden, d.Status)
	require.NotNil(t, d.Body)
	assert.False(t, d.Body.Success)
	assert.Equal(t, auth.KindTokenWrongRole, d.Body.ErrorType)
	assert.Equal(t, "El token no corresponde a un usuario directivo", d.Body.Message)
}

func TestFinalize_ExpiredCarriesDetails(t *testing.T) {
	f := newFixture(t).unlocked()
	token := signRaw(t, auth.RoleResponsable, secretFor(auth.RoleResponsable), testNow.Add(-time.Minute))

	d := auth.Finalize(f.authn.Resolve(context.Background(), auth.ResolveRequest{Authorization: bearer(token)}))

	assert.Equal(t, http.StatusUnauthorized, d.Status)
	require.NotNil(t, d.Body)
	assert.Equal(t, auth.KindTokenExpired, d.Body.ErrorType)
	assert.Contains(t, d.Body.Details, "expiredAt")
}

func TestFinalize_MissingError(t *testing.T) {
	d := auth.Finalize(auth.AuthOutcome{})

	assert.False(t, d.Continue())
	assert.Equal(t, http.StatusInternalServerError, d.Status)
	require.NotNil(t, d.Body)
	assert.Equal(t, auth.KindSystemError, d.Body.ErrorType)
	assert.NotEmpty(t, d.Body.Message)
}

func TestFinalize_UnknownKind(t *testing.T) {
	d := auth.Finalize(auth.AuthOutcome{Err: &auth.AuthError{Kind: "NEW_KIND", Message: "x"}})
	assert.Equal(t, http.StatusInternalServerError, d.Status)
	assert.Equal(t, auth.ErrorKind("NEW_KIND"), d.Body.ErrorType)
}
