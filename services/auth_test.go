package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pithakchhorn/portfolio-api/models"
	"github.com/pithakchhorn/portfolio-api/utils"
)

func TestAuthService_Authenticate(t *testing.T) {
	db := newTestDB(t)
	tokens := utils.NewTokenService("secret", time.Hour)
	svc := NewAuthService(db, tokens)
	ctx := context.Background()

	created, err := svc.EnsureAdmin(ctx, "admin", "admin123")
	require.NoError(t, err)
	assert.True(t, created)

	res, err := svc.Authenticate(ctx, "admin", "admin123")
	require.NoError(t, err)
	assert.Equal(t, "admin", res.User.Username)

	claims, err := tokens.Verify(res.Token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Subject)
	assert.Equal(t, res.User.ID, claims.UserID)
}

func TestAuthService_InvalidCredentialsAreIndistinguishable(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuthService(db, utils.NewTokenService("secret", time.Hour))
	ctx := context.Background()
	_, err := svc.CreateUser(ctx, "admin", "admin123")
	require.NoError(t, err)

	_, errWrongPass := svc.Authenticate(ctx, "admin", "nope")
	_, errUnknown := svc.Authenticate(ctx, "ghost", "admin123")

	assert.ErrorIs(t, errWrongPass, ErrInvalidCredentials)
	assert.ErrorIs(t, errUnknown, ErrInvalidCredentials)
	assert.Equal(t, errWrongPass.Error(), errUnknown.Error())
}

func TestAuthService_InactiveUserRejected(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuthService(db, utils.NewTokenService("secret", time.Hour))
	ctx := context.Background()
	u, err := svc.CreateUser(ctx, "admin", "admin123")
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", u.ID).Update("is_active", false).Error)

	_, err = svc.Authenticate(ctx, "admin", "admin123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_PasswordStoredHashed(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuthService(db, utils.NewTokenService("secret", time.Hour))
	_, err := svc.CreateUser(context.Background(), "admin", "admin123")
	require.NoError(t, err)

	var u models.User
	require.NoError(t, db.First(&u, "username = ?", "admin").Error)
	assert.NotEqual(t, "admin123", u.PasswordHash)
	assert.True(t, utils.CheckPassword(u.PasswordHash, "admin123"))
}

func TestAuthService_EnsureAdminKeepsExisting(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuthService(db, utils.NewTokenService("secret", time.Hour))
	ctx := context.Background()

	_, err := svc.EnsureAdmin(ctx, "admin", "first")
	require.NoError(t, err)
	created, err := svc.EnsureAdmin(ctx, "admin", "second")
	require.NoError(t, err)
	assert.False(t, created)

	_, err = svc.Authenticate(ctx, "admin", "first")
	assert.NoError(t, err)
}

func TestAuthService_CreateUserConflictAndValidation(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuthService(db, utils.NewTokenService("secret", time.Hour))
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, "admin", "pw")
	require.NoError(t, err)
	_, err = svc.CreateUser(ctx, "admin", "pw")
	assert.ErrorIs(t, err, ErrConflict)

	_, err = svc.CreateUser(ctx, " ", "pw")
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "username", ve.Field)
}

func TestAuthService_SetPassword(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuthService(db, utils.NewTokenService("secret", time.Hour))
	ctx := context.Background()
	_, err := svc.CreateUser(ctx, "admin", "old-password")
	require.NoError(t, err)

	require.NoError(t, svc.SetPassword(ctx, "admin", "new-password"))
	_, err = svc.Authenticate(ctx, "admin", "old-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "admin", "new-password")
	assert.NoError(t, err)

	assert.ErrorIs(t, svc.SetPassword(ctx, "ghost", "x"), ErrNotFound)
}
