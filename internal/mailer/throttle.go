package mailer

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"portfolio/backend/internal/domain"
)

// Throttled 限制对下游服务的投递速率
//
// 超出速率时等待令牌而不是失败；ctx 取消时返回错误。
type Throttled struct {
	next    Sender
	limiter *rate.Limiter
}

// NewThrottled 创建限速投递器
//
// 参数:
//   - next: 实际投递器
//   - perSecond: 每秒允许的投递次数
//   - burst: 突发容量，<= 0 时取 1
func NewThrottled(next Sender, perSecond float64, burst int) *Throttled {
	if burst <= 0 {
		burst = 1
	}
	return &Throttled{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

// Send 等待令牌后投递
func (t *Throttled) Send(ctx context.Context, msg domain.OutboundMessage) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait for send slot: %w", err)
	}
	return t.next.Send(ctx, msg)
}

// Unwrap 返回被限速的投递器
func (t *Throttled) Unwrap() Sender {
	return t.next
}
