package monitoring

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio/backend/internal/domain"
)

func TestMetrics_RecordOutcome(t *testing.T) {
	m := NewMetrics()

	m.RecordOutcome(domain.OutcomeAdmitted)
	m.RecordOutcome(domain.OutcomeAdmitted)
	m.RecordOutcome(domain.OutcomeThrottled)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SubmissionsTotal.WithLabelValues("admitted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SubmissionsTotal.WithLabelValues("throttled")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLimitBlocks))
}

func TestMetrics_RecordMailSend(t *testing.T) {
	m := NewMetrics()

	m.RecordMailSend("notification", nil, 20*time.Millisecond)
	m.RecordMailSend("acknowledgment", errors.New("boom"), time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.MailSendsTotal.WithLabelValues("notification", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MailSendsTotal.WithLabelValues("acknowledgment", "failure")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.MailSendDuration))
}

func TestMetrics_HTTPHandler(t *testing.T) {
	m := NewMetrics()
	m.RecordHTTPRequest("POST", "/api/contact", "200", 10*time.Millisecond, 120)

	rec := httptest.NewRecorder()
	m.HTTPHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `contact_http_requests_total{endpoint="/api/contact",method="POST",status_code="200"} 1`)
	assert.Contains(t, body, "go_goroutines")
}

func TestNewMetrics_Independent(t *testing.T) {
	// 两个实例可以同时存在，不会重复注册
	a := NewMetrics()
	b := NewMetrics()
	a.RecordPanic()

	assert.Equal(t, 1.0, testutil.ToFloat64(a.PanicsTotal))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.PanicsTotal))
}
