package health

import (
	"context"
	"net/http"
	"time"

	"github.com/heptiolabs/healthcheck"
	"go.uber.org/zap"
)

// MaxGoroutines 存活检查允许的最大 goroutine 数
const MaxGoroutines = 10000

// Pinger 可探测连通性的依赖，例如 Redis 限流存储
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker 健康检查器
type HealthChecker struct {
	health healthcheck.Handler
	logger *zap.Logger
}

// NewHealthChecker 创建健康检查器
func NewHealthChecker(logger *zap.Logger) *HealthChecker {
	hc := &HealthChecker{
		health: healthcheck.NewHandler(),
		logger: logger,
	}

	hc.health.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(MaxGoroutines))

	return hc
}

// AddReadinessPinger 注册一个就绪检查，超时后视为未就绪
func (hc *HealthChecker) AddReadinessPinger(name string, p Pinger, timeout time.Duration) {
	hc.health.AddReadinessCheck(name, healthcheck.Timeout(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := p.Ping(ctx); err != nil {
			hc.logger.Warn("readiness check failed", zap.String("check", name), zap.Error(err))
			return err
		}
		return nil
	}, timeout))
}

// AddReadinessCheck 注册一个无需上下文的就绪检查
func (hc *HealthChecker) AddReadinessCheck(name string, check func() error) {
	hc.health.AddReadinessCheck(name, healthcheck.Check(check))
}

// Handler 返回健康检查处理器，路径 /live 与 /ready 由调用方挂载
func (hc *HealthChecker) Handler() healthcheck.Handler {
	return hc.health
}

// LiveHandler 存活检查
func (hc *HealthChecker) LiveHandler() http.HandlerFunc {
	return hc.health.LiveEndpoint
}

// ReadyHandler 就绪检查
func (hc *HealthChecker) ReadyHandler() http.HandlerFunc {
	return hc.health.ReadyEndpoint
}
