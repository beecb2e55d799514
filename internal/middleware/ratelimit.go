package middleware

import (
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"campus-nav/internal/logger"
)

// 文档注释：令牌桶限流中间件（每秒）
// 约束：不做排队，超额请求直接返回 429；每个自然秒重置令牌
type TokenBucket struct {
	capacity int
	tokens   int
	lastSec  int64
	mu       sync.Mutex
	now      func() time.Time
}

func NewTokenBucket(qps int) *TokenBucket {
	return &TokenBucket{capacity: qps, tokens: qps, lastSec: time.Now().Unix(), now: time.Now}
}

func (tb *TokenBucket) allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	nowSec := tb.now().Unix()
	if tb.lastSec != nowSec {
		tb.lastSec = nowSec
		tb.tokens = tb.capacity
	}
	if tb.tokens > 0 {
		tb.tokens--
		return true
	}
	return false
}

func (tb *TokenBucket) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !tb.allow() {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Wrap：按环境变量组合管理入口白名单与全局限流
// RATE_LIMIT_ENABLED=true  开启限流
// RATE_LIMIT_QPS=200       每秒放行请求数
// 白名单仅作用于 guarded 前缀（如 /api/admin、/api/metrics）
func Wrap(next http.Handler, guarded ...string) http.Handler {
	h := NewAllowlistFromEnv(logger.L()).Guard(guarded...)(next)
	if os.Getenv("RATE_LIMIT_ENABLED") == "true" {
		qps := 200
		if s := strings.TrimSpace(os.Getenv("RATE_LIMIT_QPS")); s != "" {
			if n, e := strconv.Atoi(s); e == nil && n > 0 {
				qps = n
			}
		}
		logger.L().Info("rate_limit_enabled", "qps", qps)
		return NewTokenBucket(qps).Middleware(h)
	}
	return h
}
