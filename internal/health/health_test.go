package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func serve(h http.HandlerFunc) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	return rec
}

func TestHealthChecker(t *testing.T) {
	t.Run("默认存活且就绪", func(t *testing.T) {
		hc := NewHealthChecker(zap.NewNop())

		assert.Equal(t, http.StatusOK, serve(hc.LiveHandler()).Code)
		assert.Equal(t, http.StatusOK, serve(hc.ReadyHandler()).Code)
	})

	t.Run("依赖不可用时未就绪", func(t *testing.T) {
		hc := NewHealthChecker(zap.NewNop())
		hc.AddReadinessPinger("redis", pingerFunc(func(context.Context) error {
			return errors.New("connection refused")
		}), time.Second)

		assert.Equal(t, http.StatusServiceUnavailable, serve(hc.ReadyHandler()).Code)
		// 就绪检查失败不影响存活
		assert.Equal(t, http.StatusOK, serve(hc.LiveHandler()).Code)
	})

	t.Run("自定义检查失败时未就绪", func(t *testing.T) {
		hc := NewHealthChecker(zap.NewNop())
		hc.AddReadinessCheck("mail-provider", func() error { return errors.New("circuit breaker is open") })

		assert.Equal(t, http.StatusServiceUnavailable, serve(hc.ReadyHandler()).Code)
	})

	t.Run("依赖可用时就绪", func(t *testing.T) {
		hc := NewHealthChecker(zap.NewNop())
		hc.AddReadinessPinger("redis", pingerFunc(func(context.Context) error { return nil }), time.Second)

		assert.Equal(t, http.StatusOK, serve(hc.ReadyHandler()).Code)
	})
}
