package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssuerIssuesSessionWithConfiguredTTL(t *testing.T) {
	store := newStoreForTest(t)
	repo := NewRepository(store)
	issuer := NewIssuer(repo, 24*time.Hour)
	ctx := context.Background()

	s, err := issuer.Issue(ctx, 7)
	require.NoError(t, err)

	assert.Equal(t, int64(7), s.UserID)
	assert.Len(t, s.Token, 32, "token is 16 random bytes hex-encoded")
	assert.Equal(t, 24*time.Hour, s.ExpiresAt.Sub(s.CreatedAt))
	assert.True(t, s.ExpiresAt.After(s.CreatedAt))

	got, err := repo.Get(ctx, s.Token)
	require.NoError(t, err)
	assert.Equal(t, s.Token, got.Token)
}

func TestIssuerAllowsConcurrentSessionsPerUser(t *testing.T) {
	store := newStoreForTest(t)
	repo := NewRepository(store)
	issuer := NewIssuer(repo, time.Hour)
	ctx := context.Background()

	first, err := issuer.Issue(ctx, 7)
	require.NoError(t, err)
	second, err := issuer.Issue(ctx, 7)
	require.NoError(t, err)

	assert.NotEqual(t, first.Token, second.Token)

	sessions, err := repo.ListByUser(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, sessions, 2)
}

func TestIssuerTokensAreUnique(t *testing.T) {
	store := newStoreForTest(t)
	issuer := NewIssuer(NewRepository(store), time.Hour)
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		s, err := issuer.Issue(ctx, int64(i))
		require.NoError(t, err)
		require.False(t, seen[s.Token], "token reused")
		seen[s.Token] = true
	}
}

func TestIssuerDefaultsZeroTTL(t *testing.T) {
	store := newStoreForTest(t)
	issuer := NewIssuer(NewRepository(store), 0)

	s, err := issuer.Issue(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, DefaultSessionTTL, s.ExpiresAt.Sub(s.CreatedAt))
}
