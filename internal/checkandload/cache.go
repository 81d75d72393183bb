package checkandload

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is the read-through Redis layer SPEC_FULL.md §2 (C8) adds in
// front of the Content Store's fast path, grounded on the teacher's
// redis.LoadFeedMetaTOCache (Set with a TTL, JSON-encoded value). Only
// `ready` results are cached: a blog's questions never change once
// generated, so the cached entry never needs an explicit invalidation
// path, just a bounded TTL as a safety net against a stale cache
// outliving a future delete_blog.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewCache wires a Cache to an already-connected Redis client
// (internal/platform.NewRedisClient). ttl <= 0 defaults to one hour.
func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{rdb: rdb, ttl: ttl}
}

func cacheKey(url string) string { return "checkandload:ready:" + url }

// Get returns the cached Result for url, if present and still a `ready`
// response.
func (c *Cache) Get(ctx context.Context, url string) (*Result, bool) {
	if c == nil || c.rdb == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, cacheKey(url)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warnf("checkandload: cache get failed for %s: %v", url, err)
		}
		return nil, false
	}

	var result Result
	if err := json.Unmarshal(raw, &result); err != nil {
		log.Warnf("checkandload: cache decode failed for %s: %v", url, err)
		return nil, false
	}
	return &result, true
}

// Set stores result under url's cache key, best-effort: a failed cache
// write never fails the request since the Content Store already has the
// authoritative answer.
func (c *Cache) Set(ctx context.Context, url string, result *Result) {
	if c == nil || c.rdb == nil {
		return
	}
	raw, err := json.Marshal(result)
	if err != nil {
		log.Warnf("checkandload: cache encode failed for %s: %v", url, err)
		return
	}
	if err := c.rdb.Set(ctx, cacheKey(url), raw, c.ttl).Err(); err != nil {
		log.Warnf("checkandload: cache set failed for %s: %v", url, err)
	}
}
