package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/ports"
	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"
)

var (
	// ErrLockNotHeld is returned by an UnlockFunc when the lease expired or was taken over.
	ErrLockNotHeld = errors.New("distributed lock no longer held")
)

// DefaultLockPoll is how often a blocked Lock retries.
const DefaultLockPoll = 100 * time.Millisecond

// unlockScript deletes the key only if it still holds our token.
var unlockScript = backend.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

// Locker implements ports.DistributedLocker using Redis.
// It leases devices so two processes never drive the same emulator.
type Locker struct {
	client backend.UniversalClient
	prefix string
	poll   time.Duration
}

// LockerOption configures a Locker.
type LockerOption func(*Locker)

// WithLockPoll sets the retry interval of a blocked Lock.
func WithLockPoll(d time.Duration) LockerOption {
	return func(l *Locker) {
		l.poll = d
	}
}

// NewLocker creates a new Redis locker.
func NewLocker(client backend.UniversalClient, prefix string, opts ...LockerOption) *Locker {
	l := &Locker{
		client: client,
		prefix: prefix,
		poll:   DefaultLockPoll,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Lock acquires a distributed lock for the given key using Redis SET NX PX,
// polling until it is free or ctx is done.
func (l *Locker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	lockKey := l.prefix + "lock:" + key
	token := uuid.NewString()

	ticker := time.NewTicker(l.poll)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, lockKey, token, ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("redis error acquiring lock: %w", err)
		}
		if ok {
			return func(ctx context.Context) error {
				n, err := unlockScript.Run(ctx, l.client, []string{lockKey}, token).Int()
				if err != nil {
					return fmt.Errorf("redis error releasing lock: %w", err)
				}
				if n == 0 {
					return fmt.Errorf("%w: %s", ErrLockNotHeld, key)
				}
				return nil
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
