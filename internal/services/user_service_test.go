package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shorif2005/projectflow/internal/models"
	apperrors "github.com/shorif2005/projectflow/pkg/errors"
)

func TestUserServiceCreateStartsInactive(t *testing.T) {
	db := openServiceTestDB(t)
	svc, err := NewUserService(db)
	require.NoError(t, err)

	user, err := svc.Create(context.Background(), CreateUserInput{
		Username: "shorif",
		Email:    "Shorif@Example.com",
		Password: "Str0ngPassw0rd!",
	})
	require.NoError(t, err)
	require.Equal(t, "shorif@example.com", user.Email)
	require.False(t, user.IsActive)
	require.NotEqual(t, "Str0ngPassw0rd!", user.Password)

	// A profile row is created alongside the account.
	var profile models.Profile
	require.NoError(t, db.First(&profile, "user_id = ?", user.ID).Error)
}

func TestUserServiceCreateRejectsDuplicates(t *testing.T) {
	db := openServiceTestDB(t)
	svc, err := NewUserService(db)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateUserInput{
		Username: "first",
		Email:    "taken@example.com",
		Password: "Str0ngPassw0rd!",
	})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateUserInput{
		Username: "second",
		Email:    "taken@example.com",
		Password: "Str0ngPassw0rd!",
	})
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 400, appErr.StatusCode)
}

func TestUserServiceAuthenticate(t *testing.T) {
	db := openServiceTestDB(t)
	svc, err := NewUserService(db)
	require.NoError(t, err)

	user, err := svc.Create(context.Background(), CreateUserInput{
		Username: "member",
		Email:    "member@example.com",
		Password: "Str0ngPassw0rd!",
	})
	require.NoError(t, err)

	// Unverified accounts cannot sign in.
	_, err = svc.Authenticate(context.Background(), "member@example.com", "Str0ngPassw0rd!")
	require.ErrorIs(t, err, apperrors.ErrAccountNotVerified)

	require.NoError(t, svc.Activate(context.Background(), user.ID))

	authed, err := svc.Authenticate(context.Background(), "Member@Example.com", "Str0ngPassw0rd!")
	require.NoError(t, err)
	require.Equal(t, user.ID, authed.ID)

	_, err = svc.Authenticate(context.Background(), "member@example.com", "wrong")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, err = svc.Authenticate(context.Background(), "nobody@example.com", "whatever")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestUserServiceLookups(t *testing.T) {
	db := openServiceTestDB(t)
	svc, err := NewUserService(db)
	require.NoError(t, err)

	user := seedUser(t, db, "lookup")

	byID, err := svc.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, user.Username, byID.Username)

	byEmail, err := svc.GetByEmail(context.Background(), "Lookup@Example.com")
	require.NoError(t, err)
	require.Equal(t, user.ID, byEmail.ID)

	byName, err := svc.GetByUsername(context.Background(), "lookup")
	require.NoError(t, err)
	require.Equal(t, user.ID, byName.ID)

	_, err = svc.GetByEmail(context.Background(), "missing@example.com")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserServiceUpdatePassword(t *testing.T) {
	db := openServiceTestDB(t)
	svc, err := NewUserService(db)
	require.NoError(t, err)

	user := seedUser(t, db, "rotating")

	require.NoError(t, svc.UpdatePassword(context.Background(), user.ID, "N3wPassw0rd!"))

	_, err = svc.Authenticate(context.Background(), user.Email, "Sup3rSecret!")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	authed, err := svc.Authenticate(context.Background(), user.Email, "N3wPassw0rd!")
	require.NoError(t, err)
	require.Equal(t, user.ID, authed.ID)
}

func TestUserServiceProfileRoundTrip(t *testing.T) {
	db := openServiceTestDB(t)
	svc, err := NewUserService(db)
	require.NoError(t, err)

	user := seedUser(t, db, "profiled")

	// GetProfile creates the row on demand for accounts seeded without one.
	profile, err := svc.GetProfile(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, user.ID, profile.UserID)

	github := "https://github.com/profiled"
	occupation := "Backend Engineer"
	updated, err := svc.UpdateProfile(context.Background(), user.ID, UpdateProfileInput{
		GitHubURL:  &github,
		Occupation: &occupation,
	})
	require.NoError(t, err)
	require.Equal(t, github, updated.GitHubURL)
	require.Equal(t, occupation, updated.Occupation)

	// Untouched fields survive partial updates.
	address := "1 Main Street"
	updated, err = svc.UpdateProfile(context.Background(), user.ID, UpdateProfileInput{
		Address: &address,
	})
	require.NoError(t, err)
	require.Equal(t, github, updated.GitHubURL)
	require.Equal(t, address, updated.Address)
}
