package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"portfolio/backend/internal/domain"
)

const redisKeyPrefix = "ratelimit:contact:"

// 条目不存在或 reset < now 时写入新窗口，键在窗口结束后自动过期
var setIfAbsentOrExpiredScript = goredis.NewScript(`
local reset = redis.call('HGET', KEYS[1], 'reset')
if reset and tonumber(reset) >= tonumber(ARGV[1]) then
	return 0
end
redis.call('HSET', KEYS[1], 'count', ARGV[2], 'reset', ARGV[3])
redis.call('PEXPIREAT', KEYS[1], tonumber(ARGV[3]) + 1)
return 1
`)

// 返回 {status, count, reset}：status 1 已自增，0 已达上限，-1 条目不存在或已过期
var incrementIfUnderScript = goredis.NewScript(`
local vals = redis.call('HMGET', KEYS[1], 'count', 'reset')
if not vals[1] or not vals[2] then
	return {-1, 0, 0}
end
local count = tonumber(vals[1])
local reset = tonumber(vals[2])
if tonumber(ARGV[1]) > reset then
	return {-1, count, reset}
end
if count >= tonumber(ARGV[2]) then
	return {0, count, reset}
end
count = redis.call('HINCRBY', KEYS[1], 'count', 1)
return {1, count, reset}
`)

// RedisStore 基于 Redis 的计数表，多个实例可共享同一张表
//
// 每个操作由一段 Lua 脚本在服务端原子执行。
type RedisStore struct {
	client *goredis.Client
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore 使用已连接的客户端创建计数表
func NewRedisStore(client *goredis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// DialRedis 创建 Redis 客户端并测试连接
func DialRedis(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

// Get 读取条目
func (s *RedisStore) Get(ctx context.Context, key string) (domain.RateLimitEntry, bool, error) {
	vals, err := s.client.HMGet(ctx, redisKey(key), "count", "reset").Result()
	if err != nil {
		return domain.RateLimitEntry{}, false, err
	}
	if len(vals) != 2 || vals[0] == nil || vals[1] == nil {
		return domain.RateLimitEntry{}, false, nil
	}

	count, err := strconv.Atoi(fmt.Sprint(vals[0]))
	if err != nil {
		return domain.RateLimitEntry{}, false, fmt.Errorf("parse count: %w", err)
	}
	reset, err := strconv.ParseInt(fmt.Sprint(vals[1]), 10, 64)
	if err != nil {
		return domain.RateLimitEntry{}, false, fmt.Errorf("parse reset: %w", err)
	}

	return domain.RateLimitEntry{Count: count, WindowResetAt: time.UnixMilli(reset)}, true, nil
}

// SetIfAbsentOrExpired 条目不存在或已过期时写入
func (s *RedisStore) SetIfAbsentOrExpired(ctx context.Context, key string, entry domain.RateLimitEntry, now time.Time) (bool, error) {
	set, err := setIfAbsentOrExpiredScript.Run(ctx, s.client,
		[]string{redisKey(key)},
		now.UnixMilli(), int64(entry.Count), entry.WindowResetAt.UnixMilli(),
	).Int64()
	if err != nil {
		return false, err
	}
	return set == 1, nil
}

// IncrementIfUnder 条目未过期且 count < limit 时自增
func (s *RedisStore) IncrementIfUnder(ctx context.Context, key string, limit int, now time.Time) (domain.RateLimitEntry, bool, error) {
	res, err := incrementIfUnderScript.Run(ctx, s.client,
		[]string{redisKey(key)},
		now.UnixMilli(), int64(limit),
	).Int64Slice()
	if err != nil {
		return domain.RateLimitEntry{}, false, err
	}
	if len(res) != 3 {
		return domain.RateLimitEntry{}, false, fmt.Errorf("unexpected script reply %v", res)
	}
	if res[0] < 0 {
		return domain.RateLimitEntry{}, false, ErrEntryExpired
	}

	entry := domain.RateLimitEntry{Count: int(res[1]), WindowResetAt: time.UnixMilli(res[2])}
	return entry, res[0] == 1, nil
}

// Ping 健康检查使用
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close 关闭底层连接
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func redisKey(key string) string {
	return redisKeyPrefix + key
}
