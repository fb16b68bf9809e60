package redis

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// storeIfNotOlder writes a versioned entry unless the key already holds a
// newer version. An empty payload is a tombstone: it records the version of
// a write that invalidated the view, so fills read before that write are
// refused.
var storeIfNotOlder = goredis.NewScript(`
local cur = redis.call("HGET", KEYS[1], "v")
if cur and tonumber(cur) > tonumber(ARGV[1]) then
	return 0
end
redis.call("HSET", KEYS[1], "v", ARGV[1], "d", ARGV[2])
if tonumber(ARGV[3]) > 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[3])
end
return 1
`)

// ViewCache is a generic JSON-backed Redis cache for read model projections.
// Every entry carries a version (typically the row's last-modified time in
// microseconds) and a write never replaces a newer version.
//
// A nil *ViewCache is a valid, permanently cold cache.
type ViewCache[T any] struct {
	client *goredis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewViewCache creates a ViewCache backed by the provided Redis client.
// Pass a zero ttl for entries that should not expire.
func NewViewCache[T any](client *goredis.Client, ttl time.Duration, logger *slog.Logger) *ViewCache[T] {
	return &ViewCache[T]{client: client, ttl: ttl, logger: logger}
}

// Get retrieves and unmarshals a value from Redis.
// Returns (nil, false) on a miss, a tombstone or a deserialisation error.
func (c *ViewCache[T]) Get(ctx context.Context, key string) (*T, bool) {
	if c == nil {
		return nil, false
	}
	data, err := c.client.HGet(ctx, key, "d").Bytes()
	if err != nil || len(data) == 0 {
		return nil, false
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, false
	}
	return &v, true
}

// Set stores value under key at version and reports whether it was written.
// Errors are logged rather than returned; a cache write miss is non-fatal.
func (c *ViewCache[T]) Set(ctx context.Context, key string, value *T, version int64) bool {
	if c == nil {
		return false
	}
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("view cache marshal failed", "key", key, "error", err)
		return false
	}
	return c.store(ctx, key, data, version)
}

// Invalidate drops the cached view and refuses later fills older than version.
func (c *ViewCache[T]) Invalidate(ctx context.Context, key string, version int64) {
	if c == nil {
		return
	}
	c.store(ctx, key, nil, version)
}

func (c *ViewCache[T]) store(ctx context.Context, key string, data []byte, version int64) bool {
	stored, err := storeIfNotOlder.Run(ctx, c.client, []string{key}, version, data, c.ttl.Milliseconds()).Int()
	if err != nil {
		c.logger.Warn("view cache write failed", "key", key, "error", err)
		return false
	}
	return stored == 1
}
