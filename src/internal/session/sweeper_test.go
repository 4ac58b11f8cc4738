package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweeperRemovesExpiredSessions(t *testing.T) {
	store := newStoreForTest(t)
	current := time.Now()
	repo := NewRepositoryWithNow(store, func() time.Time { return current })
	ctx := context.Background()

	require.NoError(t, repo.Put(ctx, &Session{
		Token:     "stale",
		UserID:    1,
		CreatedAt: current.Add(-25 * time.Hour),
		ExpiresAt: current.Add(-time.Hour),
	}))

	sweepCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	StartSweeper(sweepCtx, repo, 5*time.Millisecond)

	assert.Eventually(t, func() bool {
		_, err := store.Get(ctx, Key("stale"))
		return err != nil
	}, time.Second, 10*time.Millisecond, "expired session not swept")
}

func TestSweeperStopsOnCancel(t *testing.T) {
	store := newStoreForTest(t)
	current := time.Now()
	repo := NewRepositoryWithNow(store, func() time.Time { return current })
	ctx := context.Background()

	sweepCtx, cancel := context.WithCancel(ctx)
	StartSweeper(sweepCtx, repo, 5*time.Millisecond)
	cancel()

	// Give the goroutine time to observe the cancellation, then verify a new
	// expired session is left alone.
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, repo.Put(ctx, &Session{
		Token:     "stale",
		UserID:    1,
		CreatedAt: current.Add(-25 * time.Hour),
		ExpiresAt: current.Add(-time.Hour),
	}))

	time.Sleep(50 * time.Millisecond)
	_, err := store.Get(ctx, Key("stale"))
	assert.NoError(t, err, "sweeper kept running after cancellation")
}
