package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/adapters/redis"
	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.DistributedLocker = (*redis.Locker)(nil)

func TestRedisLocker_LockUnlock(t *testing.T) {
	mr, client := newClient(t)
	locker := redis.NewLocker(client, "test:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "127.0.0.1:5555", 5*time.Second)
	require.NoError(t, err)
	require.NotNil(t, unlock)
	assert.True(t, mr.Exists("test:lock:127.0.0.1:5555"), "Lock key should be set in Redis")
	assert.Greater(t, mr.TTL("test:lock:127.0.0.1:5555"), time.Duration(0))

	require.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists("test:lock:127.0.0.1:5555"), "Lock key should be removed after unlock")
}

func TestRedisLocker_Contention(t *testing.T) {
	_, client := newClient(t)
	locker1 := redis.NewLocker(client, "test:", redis.WithLockPoll(10*time.Millisecond))
	locker2 := redis.NewLocker(client, "test:", redis.WithLockPoll(10*time.Millisecond))
	ctx := context.Background()

	unlock1, err := locker1.Lock(ctx, "device", 5*time.Second)
	require.NoError(t, err)

	ctxTimeout, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err = locker2.Lock(ctxTimeout, "device", 5*time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond, "Should block until timeout")

	require.NoError(t, unlock1(ctx))

	unlock2, err := locker2.Lock(ctx, "device", 5*time.Second)
	require.NoError(t, err)
	assert.NoError(t, unlock2(ctx))
}

func TestRedisLocker_ExpiredLease(t *testing.T) {
	mr, client := newClient(t)
	locker := redis.NewLocker(client, "test:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "device", time.Second)
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)
	other, err := locker.Lock(ctx, "device", time.Minute)
	require.NoError(t, err, "expired lease can be taken over")

	assert.ErrorIs(t, unlock(ctx), redis.ErrLockNotHeld)
	assert.True(t, mr.Exists("test:lock:device"), "stale unlock must not release the new holder")
	assert.NoError(t, other(ctx))
}
