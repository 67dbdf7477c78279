package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"portfolio/backend/internal/domain"
)

const namespace = "contact"

// Metrics 监控指标
type Metrics struct {
	registry *prometheus.Registry

	// HTTP 请求指标
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequestSize     *prometheus.HistogramVec

	// 联系表单指标
	SubmissionsTotal *prometheus.CounterVec
	RateLimitBlocks  prometheus.Counter

	// 邮件投递指标
	MailSendsTotal   *prometheus.CounterVec
	MailSendDuration *prometheus.HistogramVec

	// 错误指标
	PanicsTotal prometheus.Counter
}

// NewMetrics 创建监控指标，每个实例使用独立的注册表
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		HTTPRequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_size_bytes",
				Help:      "HTTP request size in bytes",
				Buckets:   prometheus.ExponentialBuckets(64, 4, 6),
			},
			[]string{"method", "endpoint"},
		),

		SubmissionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "submissions_total",
				Help:      "Contact submissions by outcome",
			},
			[]string{"outcome"},
		),

		RateLimitBlocks: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_blocks_total",
				Help:      "Total number of submissions rejected by the rate limiter",
			},
		),

		MailSendsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "mail_sends_total",
				Help:      "Outbound mail sends by message kind and result",
			},
			[]string{"kind", "result"},
		),

		MailSendDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "mail_send_duration_seconds",
				Help:      "Outbound mail send latency in seconds",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"kind"},
		),

		PanicsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "panics_total",
				Help:      "Total number of recovered panics",
			},
		),
	}
}

// RecordHTTPRequest 记录 HTTP 请求指标
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration, requestSize int64) {
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	m.HTTPRequestSize.WithLabelValues(method, endpoint).Observe(float64(requestSize))
}

// RecordOutcome 记录一次提交的处理结果
func (m *Metrics) RecordOutcome(kind domain.OutcomeKind) {
	m.SubmissionsTotal.WithLabelValues(kind.String()).Inc()
	if kind == domain.OutcomeThrottled {
		m.RateLimitBlocks.Inc()
	}
}

// RecordMailSend 记录一次邮件投递
func (m *Metrics) RecordMailSend(kind string, err error, duration time.Duration) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.MailSendsTotal.WithLabelValues(kind, result).Inc()
	m.MailSendDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordPanic 记录 panic
func (m *Metrics) RecordPanic() {
	m.PanicsTotal.Inc()
}

// Registry 返回底层注册表
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// HTTPHandler 返回 Prometheus HTTP 处理器
func (m *Metrics) HTTPHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
