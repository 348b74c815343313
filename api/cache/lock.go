package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrLockTimeout = errors.New("timed out waiting for lock")

const lockRetryInterval = 25 * time.Millisecond

// Only the holder's token may release a Redis lock.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Lock blocks until key is held or ctx is done, and returns the release
// function. With Redis configured the lock is shared across instances
// (SET NX PX, expiring after ttl); otherwise it is an in-process keyed mutex.
func Lock(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	if Client == nil {
		return localLock(ctx, key)
	}

	redisKey := "lock:" + key
	token := uuid.NewString()
	for {
		ok, err := Client.SetNX(ctx, redisKey, token, ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
			}
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			return func() {
				_ = releaseScript.Run(context.Background(), Client, []string{redisKey}, token).Err()
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
		case <-time.After(lockRetryInterval):
		}
	}
}

type keyedLock struct {
	ch   chan struct{}
	refs int
}

var (
	localLocksMu sync.Mutex
	localLocks   = make(map[string]*keyedLock)
)

func localLock(ctx context.Context, key string) (func(), error) {
	localLocksMu.Lock()
	l, ok := localLocks[key]
	if !ok {
		l = &keyedLock{ch: make(chan struct{}, 1)}
		localLocks[key] = l
	}
	l.refs++
	localLocksMu.Unlock()

	select {
	case l.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-l.ch
				dropLocalLock(key, l)
			})
		}, nil
	case <-ctx.Done():
		dropLocalLock(key, l)
		return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
	}
}

func dropLocalLock(key string, l *keyedLock) {
	localLocksMu.Lock()
	defer localLocksMu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(localLocks, key)
	}
}
