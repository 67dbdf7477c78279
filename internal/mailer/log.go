package mailer

import (
	"context"

	"go.uber.org/zap"

	"portfolio/backend/internal/domain"
)

// LogSender 开发环境使用，只把邮件写入日志
type LogSender struct {
	log *zap.Logger
}

// NewLogSender 创建日志投递器
func NewLogSender(log *zap.Logger) *LogSender {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogSender{log: log.Named("mailer")}
}

func (s *LogSender) Send(_ context.Context, msg domain.OutboundMessage) error {
	s.log.Info("outbound message",
		zap.String("from", msg.From),
		zap.String("to", msg.To),
		zap.String("reply_to", msg.ReplyTo),
		zap.String("subject", msg.Subject),
		zap.Int("body_length", len(msg.Body)),
	)
	return nil
}
