// Package mailer 负责把 OutboundMessage 交给外部邮件服务投递。
//
// 所有实现都只尝试一次，失败直接返回给调用方，不做重试。
package mailer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"portfolio/backend/internal/config"
	"portfolio/backend/internal/domain"
)

var (
	ErrMissingAPIKey   = errors.New("mail provider API key not configured")
	ErrMissingSMTPAddr = errors.New("smtp address not configured")
	ErrRejected        = errors.New("mail provider rejected the message")
)

// Sender 邮件投递协作者
type Sender interface {
	Send(ctx context.Context, msg domain.OutboundMessage) error
}

// SenderFunc 让普通函数满足 Sender
type SenderFunc func(ctx context.Context, msg domain.OutboundMessage) error

func (f SenderFunc) Send(ctx context.Context, msg domain.OutboundMessage) error {
	return f(ctx, msg)
}

// New 根据配置创建投递器
//
// mail.send_rate > 0 时外层包一层 Throttled。
func New(cfg config.MailConfig, smtpCfg config.SMTPConfig, log *zap.Logger) (Sender, error) {
	var sender Sender

	switch cfg.Provider {
	case "resend", "":
		sender = NewResendSender(ResendConfig{
			APIKey:  cfg.ResendAPIKey,
			BaseURL: cfg.ResendBaseURL,
			Timeout: cfg.Timeout,
		})
	case "smtp":
		sender = NewSMTPSender(SMTPConfig{
			Addr:     smtpCfg.Addr,
			Username: smtpCfg.Username,
			Password: smtpCfg.Password,
		})
	case "log":
		sender = NewLogSender(log)
	default:
		return nil, fmt.Errorf("unsupported mail provider %q", cfg.Provider)
	}

	if cfg.SendRate > 0 {
		sender = NewThrottled(sender, cfg.SendRate, cfg.SendBurst)
	}

	return sender, nil
}

func timeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return 10 * time.Second
	}
	return d
}

// ReadinessCheck 返回投递器自带的就绪检查，沿 Unwrap 链查找
//
// 只有带熔断器的投递器（ResendSender）提供检查，其余返回 false。
func ReadinessCheck(s Sender) (func() error, bool) {
	for s != nil {
		if r, ok := s.(interface{ Ready() error }); ok {
			return r.Ready, true
		}
		u, ok := s.(interface{ Unwrap() Sender })
		if !ok {
			return nil, false
		}
		s = u.Unwrap()
	}
	return nil, false
}
