// Package ratelimit 实现按调用方划分的固定窗口限流。
//
// 计数表通过 Store 注入，内存实现只在单进程内有效；多实例部署时每个实例
// 各有一张表，限流只是建议性的。需要跨实例共享时使用 RedisStore。
package ratelimit

import (
	"context"
	"errors"
	"time"

	"portfolio/backend/internal/domain"
)

var (
	// ErrEntryExpired IncrementIfUnder 时条目不存在或窗口已过期
	ErrEntryExpired = errors.New("rate limit entry absent or expired")
)

// Store 定义限流计数表的存取操作。
//
// SetIfAbsentOrExpired 与 IncrementIfUnder 必须各自是原子的：
// 同一调用方的并发请求不能同时看到 "count < limit" 而都被放行。
type Store interface {
	// Get 读取条目，不修改状态
	Get(ctx context.Context, key string) (domain.RateLimitEntry, bool, error)

	// SetIfAbsentOrExpired 条目不存在或已过期时写入 entry 并返回 true
	SetIfAbsentOrExpired(ctx context.Context, key string, entry domain.RateLimitEntry, now time.Time) (bool, error)

	// IncrementIfUnder 条目未过期且 count < limit 时自增并返回 true；
	// count >= limit 时返回 false 且不自增；条目不存在或已过期返回 ErrEntryExpired
	IncrementIfUnder(ctx context.Context, key string, limit int, now time.Time) (domain.RateLimitEntry, bool, error)
}
