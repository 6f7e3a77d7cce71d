package cron

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/shopflow-backend/pkg/redis"
)

func newLockStore(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	raw := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = raw.Close() })
	return redis.NewFromRaw(raw), mr
}

func TestRedisLockIsExclusive(t *testing.T) {
	ctx := context.Background()
	store, mr := newLockStore(t)
	first, err := NewRedisLock(store, "cron", time.Minute)
	require.NoError(t, err)
	second, err := NewRedisLock(store, "cron", time.Minute)
	require.NoError(t, err)

	won, err := first.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, won)
	won, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, won, "held lock")
	assert.Equal(t, time.Minute, mr.TTL("cron"))

	require.NoError(t, first.Release(ctx))
	assert.False(t, mr.Exists("cron"))
	require.NoError(t, first.Release(ctx), "second release is a no-op")

	won, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, won)
}

func TestRedisLockReleaseLeavesForeignOwner(t *testing.T) {
	ctx := context.Background()
	store, mr := newLockStore(t)
	stale, _ := NewRedisLock(store, "cron", time.Minute)
	fresh, _ := NewRedisLock(store, "cron", time.Minute)

	won, _ := stale.Acquire(ctx)
	require.True(t, won)
	mr.FastForward(2 * time.Minute)
	won, _ = fresh.Acquire(ctx)
	require.True(t, won, "lease expired")

	require.NoError(t, stale.Release(ctx))
	assert.True(t, mr.Exists("cron"))
}

func TestRedisLockSurfacesStoreErrors(t *testing.T) {
	store, mr := newLockStore(t)
	lock, _ := NewRedisLock(store, "cron", time.Minute)
	mr.Close()

	_, err := lock.Acquire(context.Background())
	assert.ErrorContains(t, err, "cron lock cron")
}

func TestNewRedisLockValidatesInput(t *testing.T) {
	store, _ := newLockStore(t)
	_, err := NewRedisLock(nil, "cron", 0)
	assert.Error(t, err)
	_, err = NewRedisLock(store, "", 0)
	assert.Error(t, err)

	lock, err := NewRedisLock(store, "cron", 0)
	require.NoError(t, err)
	assert.Equal(t, defaultLockTTL, lock.ttl)
}
