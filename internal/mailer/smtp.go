package mailer

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/emersion/go-sasl"
	gosmtp "github.com/emersion/go-smtp"

	"portfolio/backend/internal/domain"
)

// SMTPConfig SMTP 中继配置
type SMTPConfig struct {
	Addr     string // "host:port"
	Username string // 为空时不认证
	Password string
}

// SMTPSender 通过 SMTP 中继投递邮件
//
// 服务器支持 STARTTLS 时自动升级。
type SMTPSender struct {
	cfg SMTPConfig
	now func() time.Time
}

// NewSMTPSender 创建 SMTP 投递器
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg, now: time.Now}
}

// Send 渲染邮件并通过中继发送
func (s *SMTPSender) Send(ctx context.Context, msg domain.OutboundMessage) error {
	if s.cfg.Addr == "" {
		return ErrMissingSMTPAddr
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	from, err := envelopeAddress(msg.From)
	if err != nil {
		return err
	}
	to, err := envelopeAddress(msg.To)
	if err != nil {
		return err
	}

	raw, err := renderMessage(msg, s.now())
	if err != nil {
		return err
	}

	var auth sasl.Client
	if s.cfg.Username != "" {
		auth = sasl.NewPlainClient("", s.cfg.Username, s.cfg.Password)
	}

	if err := gosmtp.SendMail(s.cfg.Addr, auth, from, []string{to}, bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
