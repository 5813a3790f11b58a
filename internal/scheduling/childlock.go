package scheduling

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/kidsvax/clinic-platform/pkg/logging"
)

const (
	lockTTL           = 30 * time.Second
	lockRetryInterval = 50 * time.Millisecond
)

// ChildLocker serializes scheduling attempts per child so two concurrent
// requests cannot both race past the conflict guard before either commits.
// With a redis client the lease spans instances; without one it degrades to an
// in-process keyed mutex.
type ChildLocker struct {
	redis  *redis.Client
	logger *logging.Logger

	mu    sync.Mutex
	local map[uuid.UUID]*childLock
}

type childLock struct {
	sync.Mutex
	refs int
}

// NewChildLocker creates a locker. redisClient may be nil.
func NewChildLocker(redisClient *redis.Client, logger *logging.Logger) *ChildLocker {
	if logger == nil {
		logger = logging.Default()
	}
	return &ChildLocker{
		redis:  redisClient,
		logger: logger,
		local:  make(map[uuid.UUID]*childLock),
	}
}

// Acquire blocks until the child's lock is held or ctx is done. The returned
// release func must be called exactly once.
func (l *ChildLocker) Acquire(ctx context.Context, childID uuid.UUID) (func(), error) {
	if l.redis != nil {
		return l.acquireRedis(ctx, childID)
	}
	return l.acquireLocal(ctx, childID)
}

func (l *ChildLocker) acquireRedis(ctx context.Context, childID uuid.UUID) (func(), error) {
	key := "schedlock:" + childID.String()
	token := uuid.NewString()

	for {
		ok, err := l.redis.SetNX(ctx, key, token, lockTTL).Result()
		if err != nil {
			// Redis down: fall back to in-process serialization rather
			// than letting the race window reopen.
			l.logger.Error("child lock redis unavailable, using local lock", "error", err, "child_id", childID)
			return l.acquireLocal(ctx, childID)
		}
		if ok {
			return func() {
				// Only delete the lease if we still own it.
				const script = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`
				if err := l.redis.Eval(context.Background(), script, []string{key}, token).Err(); err != nil && err != redis.Nil {
					l.logger.Warn("child lock release failed", "error", err, "child_id", childID)
				}
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetryInterval):
		}
	}
}

func (l *ChildLocker) acquireLocal(ctx context.Context, childID uuid.UUID) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	lock, ok := l.local[childID]
	if !ok {
		lock = &childLock{}
		l.local[childID] = lock
	}
	lock.refs++
	l.mu.Unlock()

	lock.Lock()
	return func() {
		lock.Unlock()
		l.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(l.local, childID)
		}
		l.mu.Unlock()
	}, nil
}
