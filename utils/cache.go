package utils

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

const defaultCacheTTL = time.Hour

// CacheKey joins parts into a namespaced key, e.g. CacheKey("feed", "forums", "cursor=") = "cache:feed:forums:cursor=".
func CacheKey(parts ...string) string {
	return "cache:" + strings.Join(parts, ":")
}

// CacheGet returns the cached bytes for key. Misses and Redis errors both report false.
func CacheGet(ctx context.Context, key string) ([]byte, bool) {
	rc := GetRedis()
	if rc == nil {
		return nil, false
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	b, err := rc.Get(ctx, key).Bytes()
	if err != nil {
		Sugar.Debugf("cache get miss key=%s err=%v", key, err)
		return nil, false
	}
	return b, true
}

// CacheSetJSON marshals v and stores it with ttl, or the default TTL when ttl <= 0.
func CacheSetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) {
	rc := GetRedis()
	if rc == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rc.Set(ctx, key, b, ttl).Err(); err != nil {
		Sugar.Warnf("cache set failed key=%s err=%v", key, err)
	}
}

// InvalidateByPrefix deletes keys that match the given prefix using SCAN.
func InvalidateByPrefix(prefix string) {
	rc := GetRedis()
	if rc == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	var cursor uint64
	for i := 0; i < 10; i++ { // limit rounds to avoid long loops
		keys, cur, err := rc.Scan(ctx, cursor, prefix+"*", 1000).Result()
		if err != nil {
			Sugar.Warnf("cache invalidate scan failed prefix=%s err=%v", prefix, err)
			return
		}
		cursor = cur
		if len(keys) > 0 {
			_ = rc.Del(ctx, keys...).Err()
		}
		if cursor == 0 {
			return
		}
	}
}
