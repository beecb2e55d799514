package utils

import (
	"os"
	"strings"

	"github.com/redis/go-redis/v9"

	"campus-nav/internal/logger"
)

// RedisEnabled：REDIS_ENABLE=true 时启用步行路线缓存
func RedisEnabled() bool {
	return strings.EqualFold(os.Getenv("REDIS_ENABLE"), "true")
}

// OpenRedisFromEnv：REDIS_HOST / REDIS_PORT / REDIS_PASS / REDIS_DB
// 约束：未启用时返回 nil；REDIS_DB 非法时回退为 0
func OpenRedisFromEnv() *redis.Client {
	if !RedisEnabled() {
		return nil
	}
	addr := env("REDIS_HOST", "127.0.0.1") + ":" + env("REDIS_PORT", "6379")
	db := envInt("REDIS_DB", 0)
	if db < 0 {
		db = 0
	}
	logger.L().Debug("redis_env", "addr", addr, "db", db)
	return redis.NewClient(&redis.Options{Addr: addr, Password: os.Getenv("REDIS_PASS"), DB: db})
}
