package storage

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when a key is not present in the shared store.
var ErrNotFound = errors.New("key not found in shared store")

// compareAndDelete removes a key only while it still holds the expected
// value. Used for the fast-path release of warm-up leader locks so a slow
// replica can never delete a lock a newer round owns.
var compareAndDelete = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisStore implements the shared cache store on top of Redis. It is the
// only cross-replica mutable state in the coherence protocol; all of its
// atomicity comes from Redis itself.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{client: client}, nil
}

// Get retrieves a value from Redis.
func (rs *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := rs.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return val, nil
}

// Set stores a value in Redis with an optional expiry. ttl <= 0 means the
// entry does not expire.
func (rs *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return rs.client.Set(ctx, key, value, ttl).Err()
}

// SetNX atomically stores a value only if the key is absent, with a mandatory
// expiry. This is the set-if-absent-with-expiry primitive the leader election
// gate is built on.
func (rs *RedisStore) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	return rs.client.SetNX(ctx, key, value, ttl).Result()
}

// CompareAndDelete deletes key only if it currently holds value.
func (rs *RedisStore) CompareAndDelete(ctx context.Context, key string, value []byte) error {
	return compareAndDelete.Run(ctx, rs.client, []string{key}, string(value)).Err()
}

// Delete removes a value from Redis.
func (rs *RedisStore) Delete(ctx context.Context, key string) error {
	return rs.client.Del(ctx, key).Err()
}

// Keys returns every key starting with prefix, via SCAN so large keyspaces
// are not blocked.
func (rs *RedisStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := rs.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

// DeleteByPrefix removes every key starting with prefix.
func (rs *RedisStore) DeleteByPrefix(ctx context.Context, prefix string) error {
	keys, err := rs.Keys(ctx, prefix)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return rs.client.Del(ctx, keys...).Err()
}

// Close closes the Redis connection.
func (rs *RedisStore) Close() error {
	return rs.client.Close()
}

// GetClient returns the underlying Redis client, used to share the
// connection with the pub/sub synchronizer.
func (rs *RedisStore) GetClient() *redis.Client {
	return rs.client
}
