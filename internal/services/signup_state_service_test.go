package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shorif2005/projectflow/internal/cache"
)

func TestSignupStateRoundTrip(t *testing.T) {
	db := openServiceTestDB(t)
	store := cache.NewDatabaseStore(db)

	svc, err := NewSignupStateService(store)
	require.NoError(t, err)

	token, err := svc.Stash(context.Background(), "Invited@Example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	email, ok, err := svc.Peek(context.Background(), token)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "invited@example.com", email)

	// Peek does not consume the state.
	_, ok, err = svc.Peek(context.Background(), token)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, svc.Clear(context.Background(), token))

	_, ok, err = svc.Peek(context.Background(), token)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSignupStateUnknownToken(t *testing.T) {
	db := openServiceTestDB(t)
	store := cache.NewDatabaseStore(db)

	svc, err := NewSignupStateService(store)
	require.NoError(t, err)

	_, ok, err := svc.Peek(context.Background(), "never-issued")
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, err = svc.Peek(context.Background(), "")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, svc.Clear(context.Background(), "never-issued"))
}

func TestSignupStateExpires(t *testing.T) {
	db := openServiceTestDB(t)
	store := cache.NewDatabaseStore(db)

	svc, err := NewSignupStateService(store, WithSignupStateTTL(time.Millisecond))
	require.NoError(t, err)

	token, err := svc.Stash(context.Background(), "fleeting@example.com")
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	_, ok, err := svc.Peek(context.Background(), token)
	require.NoError(t, err)
	require.False(t, ok)
}
