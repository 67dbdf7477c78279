package mailer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"portfolio/backend/internal/config"
	"portfolio/backend/internal/domain"
)

func TestThrottled_ForwardsToNext(t *testing.T) {
	var sent []domain.OutboundMessage
	next := SenderFunc(func(_ context.Context, msg domain.OutboundMessage) error {
		sent = append(sent, msg)
		return nil
	})

	throttled := NewThrottled(next, 1000, 2)
	for i := 0; i < 3; i++ {
		require.NoError(t, throttled.Send(context.Background(), testMessage))
	}
	assert.Len(t, sent, 3)
}

func TestThrottled_CancelledContextSkipsSend(t *testing.T) {
	called := false
	next := SenderFunc(func(context.Context, domain.OutboundMessage) error {
		called = true
		return nil
	})

	throttled := NewThrottled(next, 0.001, 1)
	require.NoError(t, throttled.Send(context.Background(), testMessage))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called = false
	assert.Error(t, throttled.Send(ctx, testMessage))
	assert.False(t, called)
}

func TestNew(t *testing.T) {
	log := zap.NewNop()

	t.Run("默认使用 Resend 并限速", func(t *testing.T) {
		sender, err := New(config.MailConfig{Provider: "resend", SendRate: 2, SendBurst: 2}, config.SMTPConfig{}, log)
		require.NoError(t, err)
		throttled, ok := sender.(*Throttled)
		require.True(t, ok)
		assert.IsType(t, &ResendSender{}, throttled.next)
	})

	t.Run("SMTP 不限速", func(t *testing.T) {
		sender, err := New(config.MailConfig{Provider: "smtp"}, config.SMTPConfig{Addr: "localhost:25"}, log)
		require.NoError(t, err)
		assert.IsType(t, &SMTPSender{}, sender)
	})

	t.Run("日志投递器", func(t *testing.T) {
		sender, err := New(config.MailConfig{Provider: "log"}, config.SMTPConfig{}, log)
		require.NoError(t, err)
		assert.NoError(t, sender.Send(context.Background(), testMessage))
	})

	t.Run("未知服务商", func(t *testing.T) {
		_, err := New(config.MailConfig{Provider: "fax"}, config.SMTPConfig{}, log)
		assert.Error(t, err)
	})
}

func TestReadinessCheck(t *testing.T) {
	t.Run("穿过限速层找到 Resend 熔断检查", func(t *testing.T) {
		sender, err := New(config.MailConfig{Provider: "resend", SendRate: 2}, config.SMTPConfig{}, zap.NewNop())
		require.NoError(t, err)

		check, ok := ReadinessCheck(sender)
		require.True(t, ok)
		assert.NoError(t, check())
	})

	t.Run("SMTP 没有就绪检查", func(t *testing.T) {
		_, ok := ReadinessCheck(NewSMTPSender(SMTPConfig{Addr: "localhost:25"}))
		assert.False(t, ok)
	})
}
