package storage

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"konung-miniapp-svc/src/internal/models"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStoreForTest(t *testing.T) Store {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		server.Close()
	})
	return NewRedisStore(client)
}

func TestRedisStoreGetSetDelete(t *testing.T) {
	store := newStoreForTest(t)
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	require.ErrorIs(t, err, models.ErrKeyNotFound)

	require.NoError(t, store.Set(ctx, "k1", []byte("v1")))

	data, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), data)

	require.NoError(t, store.Delete(ctx, "k1"))
	_, err = store.Get(ctx, "k1")
	require.ErrorIs(t, err, models.ErrKeyNotFound)

	// Deleting an absent key is not an error.
	require.NoError(t, store.Delete(ctx, "k1"))
}

func TestRedisStoreListByPrefix(t *testing.T) {
	store := newStoreForTest(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "sessions:a", []byte("1")))
	require.NoError(t, store.Set(ctx, "sessions:b", []byte("2")))
	require.NoError(t, store.Set(ctx, "users:1", []byte("3")))

	entries, err := store.List(ctx, "sessions:")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	keys := map[string]bool{}
	for _, entry := range entries {
		keys[entry.Key] = true
	}
	assert.True(t, keys["sessions:a"])
	assert.True(t, keys["sessions:b"])
}

func TestRedisStoreUpdateMergesConcurrently(t *testing.T) {
	store := newStoreForTest(t)
	ctx := context.Background()

	type counter struct {
		N int `json:"n"`
	}

	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.Update(ctx, "counter", func(current []byte) ([]byte, error) {
				var c counter
				if current != nil {
					if err := json.Unmarshal(current, &c); err != nil {
						return nil, err
					}
				}
				c.N++
				return json.Marshal(c)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	data, err := store.Get(ctx, "counter")
	require.NoError(t, err)

	var c counter
	require.NoError(t, json.Unmarshal(data, &c))
	assert.Equal(t, workers, c.N, "no update may be lost")
}
