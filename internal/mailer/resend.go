package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"github.com/valyala/fasthttp"

	"portfolio/backend/internal/domain"
)

const defaultResendBaseURL = "https://api.resend.com"

// ResendConfig Resend HTTP API 配置
type ResendConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration

	// 连续失败次数达到阈值后熔断，BreakerTimeout 后半开
	MaxFailures    uint32
	BreakerTimeout time.Duration
}

// ResendSender 通过 Resend API 投递邮件
type ResendSender struct {
	apiKey  string
	baseURL string
	timeout time.Duration
	client  *fasthttp.Client
	breaker *gobreaker.CircuitBreaker
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
	ReplyTo string   `json:"reply_to,omitempty"`
}

type resendError struct {
	StatusCode int    `json:"statusCode"`
	Name       string `json:"name"`
	Message    string `json:"message"`
}

// NewResendSender 创建 Resend 投递器
//
// APIKey 为空不会在这里报错，而是在每次 Send 时返回 ErrMissingAPIKey。
func NewResendSender(cfg ResendConfig) *ResendSender {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultResendBaseURL
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = 30 * time.Second
	}

	maxFailures := cfg.MaxFailures
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "resend",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: countsAsHealthy,
	})

	return &ResendSender{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		timeout: timeoutOrDefault(cfg.Timeout),
		client: &fasthttp.Client{
			Name:                "portfolio-contact",
			MaxConnsPerHost:     16,
			MaxIdleConnDuration: 30 * time.Second,
			ReadTimeout:         timeoutOrDefault(cfg.Timeout),
			WriteTimeout:        timeoutOrDefault(cfg.Timeout),
		},
		breaker: breaker,
	}
}

// Send 调用 POST /emails
func (s *ResendSender) Send(ctx context.Context, msg domain.OutboundMessage) error {
	if s.apiKey == "" {
		return ErrMissingAPIKey
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(resendRequest{
		From:    msg.From,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Text:    msg.Body,
		ReplyTo: msg.ReplyTo,
	})
	if err != nil {
		return fmt.Errorf("encode resend request: %w", err)
	}

	_, err = s.breaker.Execute(func() (interface{}, error) {
		return nil, s.post(ctx, payload)
	})
	if err != nil {
		return fmt.Errorf("resend: %w", err)
	}
	return nil
}

func (s *ResendSender) post(ctx context.Context, payload []byte) error {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(s.baseURL + "/emails")
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Idempotency-Key", uuid.NewString())
	req.SetBody(payload)

	var err error
	if deadline, ok := ctx.Deadline(); ok {
		err = s.client.DoDeadline(req, resp, deadline)
	} else {
		err = s.client.DoTimeout(req, resp, s.timeout)
	}
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}

	status := resp.StatusCode()
	if status >= 200 && status < 300 {
		return nil
	}

	rejected := &RejectedError{StatusCode: status}
	var apiErr resendError
	if jsonErr := json.Unmarshal(resp.Body(), &apiErr); jsonErr == nil {
		rejected.Message = apiErr.Message
	}
	return rejected
}

// State 熔断器当前状态
func (s *ResendSender) State() gobreaker.State {
	return s.breaker.State()
}

// Ready 熔断器打开时返回错误，用于就绪检查
//
// State 会在熔断超时后切换到半开，所以探针本身就能让实例恢复就绪。
func (s *ResendSender) Ready() error {
	if s.State() == gobreaker.StateOpen {
		return fmt.Errorf("resend circuit breaker is open")
	}
	return nil
}

// RejectedError 服务商返回了非 2xx 状态码
type RejectedError struct {
	StatusCode int
	Message    string
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: status %d", ErrRejected, e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", ErrRejected, e.StatusCode, e.Message)
}

func (e *RejectedError) Unwrap() error { return ErrRejected }

// countsAsHealthy 决定一次调用是否计入熔断失败
//
// 4xx（429 除外）只说明这封邮件有问题，例如收件人地址无效，不计入失败。
func countsAsHealthy(err error) bool {
	if err == nil {
		return true
	}
	var rejected *RejectedError
	if !errors.As(err, &rejected) {
		return false
	}
	return rejected.StatusCode >= 400 &&
		rejected.StatusCode < 500 &&
		rejected.StatusCode != http.StatusTooManyRequests
}
