package ratelimit

import (
	"context"
	"sync"
	"time"

	"portfolio/backend/internal/domain"
)

// MemoryStore 进程内计数表
//
// 条目在进程生命周期内累积，Sweep 可删除已过期的条目；
// 对算法而言过期条目与不存在等价。
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]domain.RateLimitEntry
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore 创建空的内存计数表
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]domain.RateLimitEntry),
	}
}

// Get 读取条目
func (s *MemoryStore) Get(_ context.Context, key string) (domain.RateLimitEntry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	return entry, ok, nil
}

// SetIfAbsentOrExpired 条目不存在或已过期时写入
func (s *MemoryStore) SetIfAbsentOrExpired(_ context.Context, key string, entry domain.RateLimitEntry, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if current, ok := s.entries[key]; ok && !current.Expired(now) {
		return false, nil
	}

	s.entries[key] = entry
	return true, nil
}

// IncrementIfUnder 在锁内完成检查与自增
func (s *MemoryStore) IncrementIfUnder(_ context.Context, key string, limit int, now time.Time) (domain.RateLimitEntry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok || entry.Expired(now) {
		return domain.RateLimitEntry{}, false, ErrEntryExpired
	}

	if entry.Count >= limit {
		return entry, false, nil
	}

	entry.Count++
	s.entries[key] = entry
	return entry, true, nil
}

// Sweep 删除所有已过期的条目，返回删除数量
func (s *MemoryStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, entry := range s.entries {
		if entry.Expired(now) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// Len 当前条目数
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// StartSweeper 按 interval 定期调用 Sweep，ctx 取消后退出
func (s *MemoryStore) StartSweeper(ctx context.Context, interval time.Duration, onSweep func(removed int)) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				removed := s.Sweep(now)
				if onSweep != nil {
					onSweep(removed)
				}
			}
		}
	}()
}
