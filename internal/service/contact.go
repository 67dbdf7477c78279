package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"portfolio/backend/internal/domain"
	"portfolio/backend/internal/mailer"
)

// RateLimiter 限流器接口，由 ratelimit.Limiter 实现
type RateLimiter interface {
	Allow(ctx context.Context, key string) (domain.RateLimitDecision, error)
}

// Recorder 记录业务指标，由 monitoring.Metrics 实现
type Recorder interface {
	RecordOutcome(kind domain.OutcomeKind)
	RecordMailSend(kind string, err error, duration time.Duration)
}

// ContactConfig 联系表单投递配置
type ContactConfig struct {
	To          string // 站长地址
	From        string // 发件人身份
	Acknowledge bool   // 是否给提交者发送确认邮件
}

// ContactService 联系表单网关
//
// 处理顺序：限流 → 蜜罐 → 必填字段 → 邮箱格式 → 配置检查 → 投递。
// 投递失败立即返回 OutcomeDispatchFailed，不重试。
type ContactService struct {
	limiter  RateLimiter
	sender   mailer.Sender
	cfg      ContactConfig
	log      *zap.Logger
	recorder Recorder
}

// NewContactService 创建联系表单网关
func NewContactService(limiter RateLimiter, sender mailer.Sender, cfg ContactConfig, log *zap.Logger) *ContactService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ContactService{
		limiter: limiter,
		sender:  sender,
		cfg:     cfg,
		log:     log.Named("contact"),
	}
}

// SetRecorder 设置指标记录器
func (s *ContactService) SetRecorder(recorder Recorder) {
	s.recorder = recorder
}

// Submit 处理一次完整的提交
func (s *ContactService) Submit(ctx context.Context, callerKey string, sub domain.Submission) domain.Outcome {
	if outcome, ok := s.CheckRateLimit(ctx, callerKey); !ok {
		return outcome
	}
	return s.Process(ctx, sub)
}

// CheckRateLimit 消耗调用方的一次额度
//
// 返回 false 时 outcome 为 OutcomeThrottled。限流器自身出错时记录日志并放行，
// 限流只是尽力而为。
func (s *ContactService) CheckRateLimit(ctx context.Context, callerKey string) (domain.Outcome, bool) {
	decision, err := s.limiter.Allow(ctx, callerKey)
	if err != nil {
		s.log.Warn("rate limiter unavailable, admitting request",
			zap.String("caller", callerKey),
			zap.Error(err),
		)
		return domain.Admitted(), true
	}

	if !decision.Allowed {
		outcome := domain.Throttled()
		outcome.RateLimit = decision
		s.record(outcome)
		s.log.Info("contact submission throttled",
			zap.String("caller", callerKey),
			zap.Int("count", decision.Count),
			zap.Time("reset_at", decision.ResetAt),
		)
		return outcome, false
	}

	outcome := domain.Admitted()
	outcome.RateLimit = decision
	return outcome, true
}

// Process 在限流之后执行蜜罐、校验、配置检查与投递
func (s *ContactService) Process(ctx context.Context, sub domain.Submission) domain.Outcome {
	outcome := s.process(ctx, sub)
	s.record(outcome)
	return outcome
}

func (s *ContactService) process(ctx context.Context, sub domain.Submission) domain.Outcome {
	if sub.IsSpam() {
		return s.spamFiltered()
	}

	if err := domain.ValidateSubmission(sub); err != nil {
		return domain.Invalid(domain.InvalidReasonFor(err))
	}

	if s.cfg.To == "" || s.cfg.From == "" {
		s.log.Error("email configuration missing",
			zap.Bool("to_configured", s.cfg.To != ""),
			zap.Bool("from_configured", s.cfg.From != ""),
		)
		return domain.ConfigMissing()
	}

	data := templateData{
		Name:    strings.TrimSpace(sub.Name),
		Email:   strings.TrimSpace(sub.Email),
		Message: strings.TrimSpace(sub.Message),
	}

	notification, err := s.buildMessage(notificationTemplate, s.cfg.To, data.Email, data)
	if err != nil {
		return s.dispatchFailed("notification", err)
	}
	if err := s.send(ctx, "notification", notification); err != nil {
		return s.dispatchFailed("notification", err)
	}

	if s.cfg.Acknowledge {
		ack, err := s.buildMessage(acknowledgmentTemplate(sub.Locale()), data.Email, "", data)
		if err != nil {
			return s.dispatchFailed("acknowledgment", err)
		}
		if err := s.send(ctx, "acknowledgment", ack); err != nil {
			return s.dispatchFailed("acknowledgment", err)
		}
	}

	return domain.Admitted()
}

// FilterSpam 请求体无法按类型解析、但蜜罐字段已填写时调用
func (s *ContactService) FilterSpam() domain.Outcome {
	outcome := s.spamFiltered()
	s.record(outcome)
	return outcome
}

func (s *ContactService) spamFiltered() domain.Outcome {
	s.log.Info("honeypot triggered, dropping submission silently")
	return domain.SpamFiltered()
}

// Malformed 请求体无法解析时按意外错误处理，细节只写日志
func (s *ContactService) Malformed(err error) domain.Outcome {
	outcome := s.dispatchFailed("request", fmt.Errorf("decode body: %w", err))
	s.record(outcome)
	return outcome
}

func (s *ContactService) buildMessage(tmpl messageTemplate, to, replyTo string, data templateData) (domain.OutboundMessage, error) {
	subject, body, err := tmpl.render(data)
	if err != nil {
		return domain.OutboundMessage{}, err
	}
	return domain.OutboundMessage{
		From:    s.cfg.From,
		To:      to,
		Subject: subject,
		Body:    body,
		ReplyTo: replyTo,
	}, nil
}

func (s *ContactService) send(ctx context.Context, kind string, msg domain.OutboundMessage) error {
	start := time.Now()
	err := s.sender.Send(ctx, msg)
	if s.recorder != nil {
		s.recorder.RecordMailSend(kind, err, time.Since(start))
	}
	if err != nil {
		return fmt.Errorf("send %s: %w", kind, err)
	}
	return nil
}

func (s *ContactService) dispatchFailed(kind string, err error) domain.Outcome {
	s.log.Error("contact form error",
		zap.String("message_kind", kind),
		zap.Error(err),
	)
	return domain.DispatchFailed(err)
}

func (s *ContactService) record(outcome domain.Outcome) {
	if s.recorder != nil {
		s.recorder.RecordOutcome(outcome.Kind)
	}
}
