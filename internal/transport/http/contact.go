package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"portfolio/backend/internal/domain"
	"portfolio/backend/internal/ratelimit"
)

// ContactGateway 联系表单网关，由 service.ContactService 实现
type ContactGateway interface {
	CheckRateLimit(ctx context.Context, callerKey string) (domain.Outcome, bool)
	Process(ctx context.Context, sub domain.Submission) domain.Outcome
	FilterSpam() domain.Outcome
	Malformed(err error) domain.Outcome
}

// ContactHandler 联系表单处理器
type ContactHandler struct {
	gateway ContactGateway
	now     func() time.Time
}

// NewContactHandler 创建联系表单处理器
func NewContactHandler(gateway ContactGateway) *ContactHandler {
	return &ContactHandler{gateway: gateway, now: time.Now}
}

// Submit 处理 POST /api/contact
//
// 先消耗限流额度再读取请求体，超限的请求即使格式错误或过大也返回 429。
func (h *ContactHandler) Submit(c *gin.Context) {
	ctx := c.Request.Context()

	limited, ok := h.gateway.CheckRateLimit(ctx, CallerKey(c.Request))
	h.writeRateLimitHeaders(c, limited.RateLimit)
	if !ok {
		TooManyRequests(c)
		return
	}

	raw, err := c.GetRawData()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			PayloadTooLarge(c)
			return
		}
		h.gateway.Malformed(err)
		InternalError(c, MsgInternalError)
		return
	}

	var sub domain.Submission
	if err := binding.JSON.BindBody(raw, &sub); err != nil {
		// 字段类型不对时蜜罐仍然生效，返回与正常成功相同的响应
		if honeypotFilled(raw) {
			h.gateway.FilterSpam()
			Success(c)
			return
		}
		h.gateway.Malformed(err)
		InternalError(c, MsgInternalError)
		return
	}

	status, msg := StatusFor(h.gateway.Process(ctx, sub))
	switch {
	case msg == "":
		Success(c)
	case status == http.StatusBadRequest:
		BadRequest(c, msg)
	default:
		Error(c, status, msg)
	}
}

// honeypotFilled 宽松解析请求体，company 为非空字符串或任何非 null 值时返回 true
func honeypotFilled(raw []byte) bool {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return false
	}

	switch v := fields["company"].(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(v) != ""
	default:
		return true
	}
}

// writeRateLimitHeaders 写入 X-RateLimit-* 响应头，超限时附带 Retry-After
func (h *ContactHandler) writeRateLimitHeaders(c *gin.Context, d domain.RateLimitDecision) {
	if d.Limit == 0 {
		// 限流器不可用时没有判定结果
		return
	}

	remaining := d.Limit - d.Count
	if remaining < 0 || !d.Allowed {
		remaining = 0
	}

	c.Header("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))

	if !d.Allowed {
		wait := math.Ceil(d.ResetAt.Sub(h.now()).Seconds())
		if wait < 1 {
			wait = 1
		}
		c.Header("Retry-After", strconv.Itoa(int(wait)))
	}
}

// CallerKey 从转发头中提取调用方标识
//
// 依次取 X-Forwarded-For 的第一项、X-Real-IP，都没有时为 "unknown"。
// 这些头由客户端提供，可被伪造。
func CallerKey(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	return ratelimit.UnknownCaller
}
