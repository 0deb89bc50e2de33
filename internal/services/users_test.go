package services

import (
	"context"
	"testing"

	"digitalstore/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLogin(t *testing.T) {
	store := newMemStore(fixedNow)
	svc := newTestService(store, nil)
	ctx := context.Background()

	user, err := svc.Register(ctx, "Ana", "ana@example.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, models.RoleFree, user.Role)
	assert.NotEqual(t, "correct-horse", user.PasswordHash)

	loggedIn, err := svc.Login(ctx, "ana@example.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)
}

func TestRegister_Validation(t *testing.T) {
	store := newMemStore(fixedNow)
	svc := newTestService(store, nil)
	ctx := context.Background()

	_, err := svc.Register(ctx, "", "ana@example.com", "correct-horse")
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = svc.Register(ctx, "Ana", "ana@example.com", "short")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	store := newMemStore(fixedNow)
	svc := newTestService(store, nil)
	ctx := context.Background()

	_, err := svc.Register(ctx, "Ana", "ana@example.com", "correct-horse")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "Other", "ana@example.com", "different-pass")
	assert.ErrorIs(t, err, ErrEmailAlreadyExists)
}

func TestLogin_WrongPassword(t *testing.T) {
	store := newMemStore(fixedNow)
	svc := newTestService(store, nil)
	ctx := context.Background()

	_, err := svc.Register(ctx, "Ana", "ana@example.com", "correct-horse")
	require.NoError(t, err)

	_, err = svc.Login(ctx, "ana@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody@example.com", "correct-horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUpdateUserRole_Whitelist(t *testing.T) {
	store := newMemStore(fixedNow)
	svc := newTestService(store, nil)
	store.users["u1"] = models.User{ID: "u1", Role: models.RoleFree}
	ctx := context.Background()

	require.NoError(t, svc.UpdateUserRole(ctx, "u1", models.RoleAdmin))
	user, _ := store.GetUserByID(ctx, "u1")
	assert.Equal(t, models.RoleAdmin, user.Role)

	err := svc.UpdateUserRole(ctx, "u1", "SUPERUSER")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}
