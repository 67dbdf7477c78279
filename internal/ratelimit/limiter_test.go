package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio/backend/internal/domain"
)

// fakeClock 可手动推进的时间源
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLimiter(t *testing.T, clock *fakeClock) (*Limiter, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	limiter, err := NewLimiter(store, DefaultLimit, DefaultWindow, WithClock(clock.Now))
	require.NoError(t, err)
	return limiter, store
}

func TestNewLimiter_RejectsInvalidArguments(t *testing.T) {
	_, err := NewLimiter(nil, 5, time.Minute)
	assert.Error(t, err)

	_, err = NewLimiter(NewMemoryStore(), 0, time.Minute)
	assert.Error(t, err)

	_, err = NewLimiter(NewMemoryStore(), 5, 0)
	assert.Error(t, err)
}

func TestLimiter_AllowsFiveThenThrottles(t *testing.T) {
	clock := newFakeClock()
	limiter, _ := newTestLimiter(t, clock)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		decision, err := limiter.Allow(ctx, "203.0.113.7")
		require.NoError(t, err)
		assert.True(t, decision.Allowed, "request %d should be allowed", i)
		assert.Equal(t, i, decision.Count)
		clock.Advance(time.Second)
	}

	decision, err := limiter.Allow(ctx, "203.0.113.7")
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, 5, decision.Count, "rejections must not increment")
	assert.Equal(t, 5, decision.Limit)
}

func TestLimiter_ResetsAfterWindow(t *testing.T) {
	clock := newFakeClock()
	limiter, _ := newTestLimiter(t, clock)
	ctx := context.Background()
	start := clock.Now()

	for i := 0; i < 6; i++ {
		_, err := limiter.Allow(ctx, "203.0.113.7")
		require.NoError(t, err)
	}

	// 恰好在 windowResetAt 时仍属于旧窗口
	clock.Advance(DefaultWindow)
	decision, err := limiter.Allow(ctx, "203.0.113.7")
	require.NoError(t, err)
	assert.False(t, decision.Allowed)

	clock.Advance(time.Millisecond)
	decision, err = limiter.Allow(ctx, "203.0.113.7")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, 1, decision.Count)
	assert.Equal(t, start.Add(2*DefaultWindow+time.Millisecond).UnixMilli(), decision.ResetAt.UnixMilli())
}

func TestLimiter_WindowStartsAtFirstRequest(t *testing.T) {
	clock := newFakeClock()
	limiter, _ := newTestLimiter(t, clock)
	ctx := context.Background()

	first, err := limiter.Allow(ctx, "a")
	require.NoError(t, err)

	clock.Advance(30 * time.Second)
	second, err := limiter.Allow(ctx, "b")
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, second.ResetAt.Sub(first.ResetAt))
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	clock := newFakeClock()
	limiter, store := newTestLimiter(t, clock)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := limiter.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
	}

	decision, err := limiter.Allow(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, 2, store.Len())
}

func TestLimiter_BlankKeyUsesUnknownBucket(t *testing.T) {
	clock := newFakeClock()
	limiter, store := newTestLimiter(t, clock)
	ctx := context.Background()

	_, err := limiter.Allow(ctx, "")
	require.NoError(t, err)
	_, err = limiter.Allow(ctx, "  ")
	require.NoError(t, err)

	entry, ok, err := store.Get(ctx, UnknownCaller)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, entry.Count)
}

func TestLimiter_ConcurrentRequestsAdmitExactlyLimit(t *testing.T) {
	clock := newFakeClock()
	limiter, _ := newTestLimiter(t, clock)
	ctx := context.Background()

	var admitted int64
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			decision, err := limiter.Allow(ctx, "198.51.100.1")
			if err == nil && decision.Allowed {
				atomic.AddInt64(&admitted, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(DefaultLimit), atomic.LoadInt64(&admitted))
}

// expiringStore 第一次自增时报告条目已过期，模拟窗口在两步之间结束
type expiringStore struct {
	*MemoryStore
	expiredOnce bool
}

func (s *expiringStore) IncrementIfUnder(ctx context.Context, key string, limit int, now time.Time) (domain.RateLimitEntry, bool, error) {
	if !s.expiredOnce {
		s.expiredOnce = true
		return domain.RateLimitEntry{}, false, ErrEntryExpired
	}
	return s.MemoryStore.IncrementIfUnder(ctx, key, limit, now)
}

func TestLimiter_RetriesWhenEntryExpiresBetweenSteps(t *testing.T) {
	clock := newFakeClock()
	store := &expiringStore{MemoryStore: NewMemoryStore()}
	limiter, err := NewLimiter(store, 5, time.Minute, WithClock(clock.Now))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = limiter.Allow(ctx, "k")
	require.NoError(t, err)

	decision, err := limiter.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, 2, decision.Count)
	assert.True(t, store.expiredOnce)
}
