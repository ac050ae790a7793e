package redisx

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// extendScript pushes the expiry out only while the lock still holds our
// token.
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// Locker is a fail-fast mutual exclusion over redis keys, shared by every
// instance of the service.
type Locker struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewLocker(rdb *redis.Client, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = TTLLock
	}
	return &Locker{rdb: rdb, ttl: ttl}
}

// Acquire takes the lock for resource without waiting. ok is false when
// another holder has it.
func (l *Locker) Acquire(ctx context.Context, resource string) (release func(), ok bool, err error) {
	key := fmt.Sprintf(KeyLock, resource)
	token := uuid.NewString()

	ok, err = l.rdb.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}

	stop := make(chan struct{})
	go l.keepAlive(key, token, stop)

	var once sync.Once
	release = func() {
		once.Do(func() {
			close(stop)
			rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(rctx, l.rdb, []string{key}, token).Err(); err != nil {
				log.Printf("[WARN] Locker: release %s: %v", key, err)
			}
		})
	}
	return release, true, nil
}

// keepAlive renews the key every third of the TTL until stop is closed, so
// a holder running longer than the TTL keeps its lock. The TTL only
// bounds how long a crashed holder blocks others.
func (l *Locker) keepAlive(key, token string, stop <-chan struct{}) {
	t := time.NewTicker(l.ttl / 3)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			ctx, cancel := context.WithTimeout(context.Background(), l.ttl/3)
			n, err := extendScript.Run(ctx, l.rdb, []string{key}, token, l.ttl.Milliseconds()).Int()
			cancel()
			if err != nil {
				log.Printf("[WARN] Locker: extend %s: %v", key, err)
				continue
			}
			if n == 0 {
				log.Printf("[WARN] Locker: lost %s before release", key)
				return
			}
		}
	}
}
