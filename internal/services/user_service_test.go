package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homzy/server/internal/config"
	"homzy/server/internal/utils"
)

// These tests need a live MongoDB instance; they skip when MONGO_URI is
// unset.

func TestRegisterAndAuthenticate(t *testing.T) {
	db := utils.SetupTestDB(t, "homzy_test", usersCollection)
	svc := NewUserService(db, &config.Config{}, nil)
	ctx := context.Background()

	user, err := svc.Register(ctx, "Ravi Kumar", "ravi@example.com", "9998887776", "secret1")
	require.NoError(t, err)
	require.False(t, user.ID.IsZero())
	assert.NotEqual(t, "secret1", user.PasswordHash)

	got, err := svc.Authenticate(ctx, "ravi@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = svc.Authenticate(ctx, "ravi@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticate_UnknownEmail(t *testing.T) {
	db := utils.SetupTestDB(t, "homzy_test", usersCollection)
	svc := NewUserService(db, &config.Config{}, nil)

	_, err := svc.Authenticate(context.Background(), "nobody@example.com", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUpdateProfile_PartialFields(t *testing.T) {
	db := utils.SetupTestDB(t, "homzy_test", usersCollection)
	svc := NewUserService(db, &config.Config{}, nil)
	ctx := context.Background()

	user, err := svc.Register(ctx, "Ravi Kumar", "ravi2@example.com", "9998887776", "secret1")
	require.NoError(t, err)

	updated, err := svc.UpdateProfile(ctx, user.ID, "", "1112223334")
	require.NoError(t, err)
	assert.Equal(t, "Ravi Kumar", updated.FullName)
	assert.Equal(t, "1112223334", updated.Phone)
}
