package outdoor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/paulmach/orb"
	"github.com/redis/go-redis/v9"

	"campus-nav/internal/logger"
)

// Cache：步行路线缓存；读写失败只影响命中率
type Cache interface {
	Get(ctx context.Context, key string) (orb.LineString, bool)
	Set(ctx context.Context, key string, ls orb.LineString)
}

// cacheKey：端点坐标保留 6 位小数（约 10cm）
func cacheKey(from, to orb.Point) string {
	return fmt.Sprintf("%.6f,%.6f;%.6f,%.6f", from[0], from[1], to[0], to[1])
}

// RedisCache：以 JSON 存储折线
type RedisCache struct {
	rc     *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedisCache(rc *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rc: rc, ttl: ttl, prefix: "walk:"}
}

func (c *RedisCache) Get(ctx context.Context, key string) (orb.LineString, bool) {
	s, err := c.rc.Get(ctx, c.prefix+key).Result()
	if err != nil {
		if err != redis.Nil {
			logger.Component("outdoor").Warn("route_cache_get_error", "err", err)
		}
		return nil, false
	}
	var ls orb.LineString
	if err := json.Unmarshal([]byte(s), &ls); err != nil || len(ls) == 0 {
		return nil, false
	}
	return ls, true
}

func (c *RedisCache) Set(ctx context.Context, key string, ls orb.LineString) {
	b, err := json.Marshal(ls)
	if err != nil {
		return
	}
	if err := c.rc.Set(ctx, c.prefix+key, b, c.ttl).Err(); err != nil {
		logger.Component("outdoor").Warn("route_cache_set_error", "err", err)
	}
}
