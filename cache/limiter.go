package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"TuneBox/config"
	"TuneBox/logger"

	"github.com/go-redis/redis/v8"
	"golang.org/x/time/rate"
)

const signInKeyPrefix = "tunebox:signin:"

// maxLocalKeys bounds the in-process limiter table; it is reset when full.
const maxLocalKeys = 10000

// Limiter 按 key 限制尝试次数
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RedisLimiter is a fixed-window counter shared by every server instance.
type RedisLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, limit: int64(limit), window: window}
}

func signInKey(key string) string {
	return signInKeyPrefix + key
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := signInKey(key)

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("failed to count attempt for %s: %w", key, err)
	}
	// 窗口内第一次计数时设置过期
	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, l.window).Err(); err != nil {
			return false, fmt.Errorf("failed to set window for %s: %w", key, err)
		}
	}
	return count <= l.limit, nil
}

// LocalLimiter keeps a token bucket per key in process memory.
type LocalLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	every    rate.Limit
	burst    int
}

// NewLocalLimiter allows limit attempts per window, refilled evenly.
func NewLocalLimiter(limit int, window time.Duration) *LocalLimiter {
	return &LocalLimiter{
		limiters: make(map[string]*rate.Limiter),
		every:    rate.Every(window / time.Duration(limit)),
		burst:    limit,
	}
}

func (l *LocalLimiter) Allow(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limiters[key]
	if !ok {
		if len(l.limiters) >= maxLocalKeys {
			l.limiters = make(map[string]*rate.Limiter)
		}
		lim = rate.NewLimiter(l.every, l.burst)
		l.limiters[key] = lim
	}
	return lim.Allow(), nil
}

// NewSignInLimiter picks the limiter for sign-in attempts. It returns nil when
// throttling is disabled. client may be nil.
func NewSignInLimiter(cfg *config.Config, client *redis.Client) Limiter {
	if cfg.SignInRateLimit <= 0 || cfg.SignInRateWindow <= 0 {
		logger.Info("[SignIn] 登录限流已关闭")
		return nil
	}
	if client != nil {
		logger.Info("[SignIn] 使用 Redis 登录限流",
			logger.Int("limit", cfg.SignInRateLimit),
			logger.Duration("window", cfg.SignInRateWindow))
		return NewRedisLimiter(client, cfg.SignInRateLimit, cfg.SignInRateWindow)
	}
	logger.Info("[SignIn] 使用进程内登录限流",
		logger.Int("limit", cfg.SignInRateLimit),
		logger.Duration("window", cfg.SignInRateWindow))
	return NewLocalLimiter(cfg.SignInRateLimit, cfg.SignInRateWindow)
}
