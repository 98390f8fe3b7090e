package state

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/subscribepro/internal/lib/apperr"
)

func newRedisLockouts(t *testing.T) (*RedisLockouts, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLockouts(client), mr
}

func TestLockoutStores(t *testing.T) {
	redisStore, _ := newRedisLockouts(t)
	stores := map[string]LockoutStore{
		"memory": NewMemoryLockouts(),
		"redis":  redisStore,
	}
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			const email = "a@x.com"

			a, err := store.Get(ctx, email)
			require.NoError(t, err)
			assert.Equal(t, 0, a.Attempts)
			assert.Nil(t, a.LockedUntil)

			for i := 1; i <= 4; i++ {
				a, err = store.RecordFailure(ctx, email, now, 5, 15*time.Minute)
				require.NoError(t, err)
				assert.Equal(t, i, a.Attempts)
				assert.Nil(t, a.LockedUntil)
			}

			a, err = store.RecordFailure(ctx, email, now, 5, 15*time.Minute)
			require.NoError(t, err)
			assert.Equal(t, 5, a.Attempts)
			require.NotNil(t, a.LockedUntil)
			assert.True(t, a.LockedUntil.Equal(now.Add(15*time.Minute)))

			a, err = store.Get(ctx, email)
			require.NoError(t, err)
			assert.Equal(t, 5, a.Attempts)
			require.NotNil(t, a.LockedUntil)
			assert.True(t, a.LockedAt(now))
			assert.False(t, a.LockedAt(now.Add(15*time.Minute)))

			require.NoError(t, store.Clear(ctx, email))
			a, err = store.Get(ctx, email)
			require.NoError(t, err)
			assert.Equal(t, 0, a.Attempts)
			assert.Nil(t, a.LockedUntil)
		})
	}
}

func TestRedisLockouts_StaleRecordsExpire(t *testing.T) {
	store, mr := newRedisLockouts(t)
	ctx := context.Background()

	_, err := store.RecordFailure(ctx, "a@x.com", time.Now(), 5, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, staleAttemptTTL, mr.TTL(lockoutPrefix+"a@x.com"))

	mr.FastForward(staleAttemptTTL + time.Second)
	a, err := store.Get(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, 0, a.Attempts)
}

func TestRedisLockouts_Corrupt(t *testing.T) {
	store, mr := newRedisLockouts(t)
	mr.HSet(lockoutPrefix+"a@x.com", "attempts", "many")

	_, err := store.Get(context.Background(), "a@x.com")
	require.Error(t, err)
	assert.Equal(t, apperr.CorruptState, apperr.KindOf(err))
}
