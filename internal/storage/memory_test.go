package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreGetAbsent(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.GetAccount(context.Background(), "unknown")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestMemoryStoreUpsertAndGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	expiry := time.Now().Add(time.Hour)
	err := store.UpsertAccount(ctx, &Account{
		Subject:      "u1",
		Email:        "a@b.com",
		AccessToken:  "enc-access",
		RefreshToken: "enc-refresh",
		Expiry:       &expiry,
		Scopes:       "gmail calendar",
		LastSyncedAt: time.Now(),
	})
	require.NoError(t, err)

	account, err := store.GetAccount(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", account.Email)
	assert.Equal(t, "enc-access", account.AccessToken)
	assert.Equal(t, "enc-refresh", account.RefreshToken)
	require.NotNil(t, account.Expiry)
	assert.WithinDuration(t, expiry, *account.Expiry, time.Second)
}

func TestMemoryStoreMergePreservesRefreshToken(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.UpsertAccount(ctx, &Account{
		Subject:      "u1",
		Email:        "a@b.com",
		AccessToken:  "enc-T1",
		RefreshToken: "enc-R1",
		Scopes:       "gmail",
	}))

	// Refresh event without a new refresh token
	require.NoError(t, store.UpsertAccount(ctx, &Account{
		Subject:     "u1",
		AccessToken: "enc-T2",
	}))

	account, err := store.GetAccount(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "enc-T2", account.AccessToken)
	assert.Equal(t, "enc-R1", account.RefreshToken, "refresh token must survive a tokenless refresh")
	assert.Equal(t, "a@b.com", account.Email, "email is preserved when omitted")
	assert.Equal(t, "gmail", account.Scopes, "scopes are preserved when omitted")
}

func TestMemoryStoreMergeOverwritesRefreshTokenWhenSupplied(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.UpsertAccount(ctx, &Account{
		Subject:      "u1",
		AccessToken:  "enc-T1",
		RefreshToken: "enc-R1",
	}))
	require.NoError(t, store.UpsertAccount(ctx, &Account{
		Subject:      "u1",
		AccessToken:  "enc-T2",
		RefreshToken: "enc-R2",
	}))

	account, err := store.GetAccount(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "enc-R2", account.RefreshToken)
}

func TestMemoryStoreMergeClearsExpiryWhenUnknown(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	expiry := time.Now().Add(time.Hour)
	require.NoError(t, store.UpsertAccount(ctx, &Account{
		Subject:     "u1",
		AccessToken: "enc-T1",
		Expiry:      &expiry,
	}))

	// A new access token with unknown expiry must not inherit the old expiry
	require.NoError(t, store.UpsertAccount(ctx, &Account{
		Subject:     "u1",
		AccessToken: "enc-T2",
	}))

	account, err := store.GetAccount(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, account.Expiry)
}

func TestMemoryStoreGetReturnsCopy(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.UpsertAccount(ctx, &Account{
		Subject:     "u1",
		AccessToken: "enc-T1",
	}))

	first, err := store.GetAccount(ctx, "u1")
	require.NoError(t, err)
	first.AccessToken = "mutated"

	second, err := store.GetAccount(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "enc-T1", second.AccessToken)
}
