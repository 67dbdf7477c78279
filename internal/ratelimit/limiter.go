package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"portfolio/backend/internal/domain"
)

const (
	DefaultLimit  = 5
	DefaultWindow = 60 * time.Second

	// UnknownCaller 无法识别来源的请求共用的键
	UnknownCaller = "unknown"

	// 写入与自增之间条目恰好过期时的重试上限
	maxAttempts = 3
)

// Limiter 固定窗口限流器
//
// 窗口起点由调用方在窗口内的第一个请求决定，不与全局时钟对齐。
// 窗口边界处最多可能放行 2×limit 个请求。
type Limiter struct {
	store  Store
	limit  int
	window time.Duration
	now    func() time.Time
}

// Option 配置 Limiter
type Option func(*Limiter)

// WithClock 替换时间源，测试使用
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// NewLimiter 创建限流器
//
// 参数:
//   - store: 计数表
//   - limit: 每个窗口允许的请求数
//   - window: 窗口长度
func NewLimiter(store Store, limit int, window time.Duration, opts ...Option) (*Limiter, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if limit <= 0 || window <= 0 {
		return nil, fmt.Errorf("limit and window must be positive")
	}

	l := &Limiter{
		store:  store,
		limit:  limit,
		window: window,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Allow 判定 key 对应的调用方本次请求是否放行
//
//   - 条目不存在或已过期：重置为 count=1，窗口 now+window，放行
//   - count >= limit：拒绝，不自增
//   - count < limit：自增，放行
func (l *Limiter) Allow(ctx context.Context, key string) (domain.RateLimitDecision, error) {
	key = normalizeKey(key)

	for attempt := 0; attempt < maxAttempts; attempt++ {
		now := l.now()
		fresh := domain.RateLimitEntry{Count: 1, WindowResetAt: now.Add(l.window)}

		created, err := l.store.SetIfAbsentOrExpired(ctx, key, fresh, now)
		if err != nil {
			return domain.RateLimitDecision{}, fmt.Errorf("reset window: %w", err)
		}
		if created {
			return l.decision(true, fresh), nil
		}

		entry, allowed, err := l.store.IncrementIfUnder(ctx, key, l.limit, now)
		if errors.Is(err, ErrEntryExpired) {
			continue
		}
		if err != nil {
			return domain.RateLimitDecision{}, fmt.Errorf("increment: %w", err)
		}
		return l.decision(allowed, entry), nil
	}

	return domain.RateLimitDecision{}, fmt.Errorf("rate limit entry for %q kept expiring", key)
}

func (l *Limiter) decision(allowed bool, entry domain.RateLimitEntry) domain.RateLimitDecision {
	return domain.RateLimitDecision{
		Allowed: allowed,
		Count:   entry.Count,
		Limit:   l.limit,
		ResetAt: entry.WindowResetAt,
	}
}

func normalizeKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return UnknownCaller
	}
	return key
}
