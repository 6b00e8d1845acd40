package auth_test

import (
	"context"
	"testing"

	"github.com/goliatone/go-role-auth"
	"github.com/stretchr/testify/assert"
)

func TestPrincipalContext(t *testing.T) {
	ctx := context.Background()

	_, ok := auth.PrincipalFromContext(ctx)
	assert.False(t, ok)
	assert.False(t, auth.HasRole(ctx, auth.RoleTutor))

	p := &auth.Principal{Role: auth.RoleTutor, ID: "10000003", AssignedClassroomID: "3"}
	ctx = auth.WithPrincipal(ctx, p)

	got, ok := auth.PrincipalFromContext(ctx)
	assert.True(t, ok)
	assert.Same(t, p, got)

	assert.True(t, auth.HasRole(ctx, auth.RoleTutor))
	assert.True(t, auth.HasRole(ctx, auth.RoleDirectivo, auth.RoleTutor))
	assert.False(t, auth.HasRole(ctx, auth.RoleDirectivo))
	assert.False(t, auth.HasRole(ctx))
}

func TestPrincipalContext_Nil(t *testing.T) {
	ctx := auth.WithPrincipal(context.Background(), nil)
	_, ok := auth.PrincipalFromContext(ctx)
	assert.False(t, ok)

	//nolint:staticcheck
	_, ok = auth.PrincipalFromContext(nil)
	assert.False(t, ok)
}
