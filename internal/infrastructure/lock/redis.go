package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// unlockScript deletes the lock key only if it still holds our token, so a
// holder whose lock expired mid-operation cannot delete a lock that has
// since been granted to someone else. The check and delete must be one
// atomic step, hence Lua.
const unlockScript = `
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`

// RedisManager implements per-account exclusive locks across service
// instances with SET NX plus an expiry. The expiry bounds how long a crashed
// holder can block an account; the version guard on balance writes catches
// the rare case where a holder outlives its expired lock.
type RedisManager struct {
	client        *redis.Client
	expiration    time.Duration
	retryInterval time.Duration
	maxRetries    int
}

func NewRedisManager(client *redis.Client, expiration, wait time.Duration) *RedisManager {
	retryInterval := 100 * time.Millisecond
	maxRetries := int(wait / retryInterval)
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &RedisManager{
		client:        client,
		expiration:    expiration,
		retryInterval: retryInterval,
		maxRetries:    maxRetries,
	}
}

func (m *RedisManager) Acquire(ctx context.Context, accountID string) (func(), error) {
	key := fmt.Sprintf("wallet:lock:account:%s", accountID)
	token := uuid.NewString()

	for i := 0; i < m.maxRetries; i++ {
		ok, err := m.client.SetNX(ctx, key, token, m.expiration).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			var once sync.Once
			return func() {
				once.Do(func() {
					unlockCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
					defer cancel()
					m.client.Eval(unlockCtx, unlockScript, []string{key}, token)
				})
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.retryInterval):
		}
	}
	return nil, ErrLockTimeout
}
