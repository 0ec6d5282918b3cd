package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/storage/memory"
)

func newUserService() *UserService {
	return NewUserService(memory.New(core.DefaultCategories), log.Discard())
}

func TestUserService_Register(t *testing.T) {
	ctx := context.Background()
	svc := newUserService()

	u, err := svc.Register(ctx, "  alice ", "password123")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, core.RoleStandard, u.Role)
	assert.NotEqual(t, "password123", u.PasswordHash)

	_, err = svc.Register(ctx, "alice", "password456")
	assert.ErrorIs(t, err, core.ErrConflict)

	tests := []struct {
		name     string
		username string
		password string
		field    string
	}{
		{"short username", "al", "password123", "username"},
		{"whitespace in username", "al ice", "password123", "username"},
		{"short password", "bob", "short", "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.username, tt.password)
			var ve *core.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestUserService_Authenticate(t *testing.T) {
	ctx := context.Background()
	svc := newUserService()
	registered, err := svc.Register(ctx, "alice", "password123")
	require.NoError(t, err)

	u, err := svc.Authenticate(ctx, "alice", "password123")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, u.ID)

	_, err = svc.Authenticate(ctx, "alice", "wrong-password")
	assert.ErrorIs(t, err, core.ErrUnauthorized)

	_, err = svc.Authenticate(ctx, "nobody", "password123")
	assert.ErrorIs(t, err, core.ErrUnauthorized, "unknown users look like bad passwords")
}

func TestUserService_EnsureAdmin(t *testing.T) {
	ctx := context.Background()
	svc := newUserService()

	admin, err := svc.EnsureAdmin(ctx, "root", "password123")
	require.NoError(t, err)
	assert.Equal(t, core.RolePrivileged, admin.Role)

	again, err := svc.EnsureAdmin(ctx, "root", "other-password")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, again.ID)

	_, err = svc.Authenticate(ctx, "root", "password123")
	assert.NoError(t, err, "existing admin keeps its password")
}

func TestUserService_CreateUser(t *testing.T) {
	ctx := context.Background()
	svc := newUserService()

	u, err := svc.CreateUser(ctx, "ops", "password123", core.RolePrivileged)
	require.NoError(t, err)
	assert.True(t, core.Principal{UserID: u.ID, Role: u.Role}.IsPrivileged())

	_, err = svc.CreateUser(ctx, "ops2", "password123", core.Role("root"))
	assert.True(t, core.IsValidation(err))

	got, err := svc.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "ops", got.Username)
}
