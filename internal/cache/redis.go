package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/oggyb/talenthub/internal/config"
)

// countTTL is how long a cached talent like count lives without access.
const countTTL = time.Hour

type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Del(ctx context.Context, key string) error {
	return c.Client.Del(ctx, key).Err()
}

// --- locks ---

// releaseScript deletes the lock only if it still holds our token,
// so an expired lock re-acquired by someone else is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// KeyForConversationLock generates the lock key for a participant-set fingerprint.
func (c *RedisCache) KeyForConversationLock(fingerprint string) string {
	return fmt.Sprintf("lock:conversation:%s", fingerprint)
}

// TryLock attempts SET NX on key. ok is false when someone else holds it.
func (c *RedisCache) TryLock(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error) {
	token = uuid.NewString()
	ok, err = c.Client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

// Lock retries TryLock until it succeeds, ctx ends, or wait elapses.
func (c *RedisCache) Lock(ctx context.Context, key string, ttl, wait time.Duration) (string, error) {
	deadline := time.Now().Add(wait)
	backoff := 10 * time.Millisecond
	for {
		token, ok, err := c.TryLock(ctx, key, ttl)
		if err != nil {
			return "", err
		}
		if ok {
			return token, nil
		}
		if time.Now().After(deadline) {
			return "", ErrLockTimeout
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < 100*time.Millisecond {
			backoff *= 2
		}
	}
}

// Unlock releases key if token still owns it.
func (c *RedisCache) Unlock(ctx context.Context, key, token string) error {
	return releaseScript.Run(ctx, c.Client, []string{key}, token).Err()
}

// ErrLockTimeout is returned by Lock when the wait budget is exhausted.
var ErrLockTimeout = errors.New("cache: lock wait timed out")

// --- talent like counters ---

// KeyForTalentLikes generates Redis key for a talent's like count
func (c *RedisCache) KeyForTalentLikes(talentID string) string {
	return fmt.Sprintf("talent:likes:count:%s", talentID)
}

// GetCount returns a cached counter. hit is false on cache miss.
func (c *RedisCache) GetCount(ctx context.Context, key string) (n int64, hit bool, err error) {
	val, err := c.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil // cache miss
	} else if err != nil {
		return 0, false, err
	}
	n, err = strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, nil
	}
	// refresh TTL on access
	_ = c.Client.Expire(ctx, key, countTTL).Err()
	return n, true, nil
}

// SetCount stores a counter with the standard TTL.
func (c *RedisCache) SetCount(ctx context.Context, key string, n int64) error {
	return c.Client.Set(ctx, key, n, countTTL).Err()
}

// --- queues ---

// Push appends payload to a list consumed by an external worker.
func (c *RedisCache) Push(ctx context.Context, queue string, payload []byte) error {
	return c.Client.LPush(ctx, queue, payload).Err()
}
