package domain

import (
	"errors"
	"fmt"
	"time"
)

// OutcomeKind 网关处理结果的类别
type OutcomeKind int

const (
	OutcomeAdmitted OutcomeKind = iota
	OutcomeThrottled
	OutcomeSpamFiltered
	OutcomeInvalid
	OutcomeConfigMissing
	OutcomeDispatchFailed
)

var outcomeNames = map[OutcomeKind]string{
	OutcomeAdmitted:       "admitted",
	OutcomeThrottled:      "throttled",
	OutcomeSpamFiltered:   "spam_filtered",
	OutcomeInvalid:        "invalid",
	OutcomeConfigMissing:  "config_missing",
	OutcomeDispatchFailed: "dispatch_failed",
}

func (k OutcomeKind) String() string {
	if name, ok := outcomeNames[k]; ok {
		return name
	}
	return fmt.Sprintf("outcome(%d)", int(k))
}

// InvalidReason 客户端输入错误的具体原因
type InvalidReason string

const (
	ReasonMissingFields InvalidReason = "missing_fields"
	ReasonInvalidEmail  InvalidReason = "invalid_email"
)

// Outcome 网关核心决策函数的返回值，与 HTTP 状态码映射解耦。
type Outcome struct {
	Kind   OutcomeKind
	Reason InvalidReason // 仅 OutcomeInvalid 时有效
	Err    error         // 仅 OutcomeDispatchFailed 时有效，只用于服务端日志

	// 限流信息，供传输层设置 Retry-After 等响应头
	RateLimit RateLimitDecision
}

// RateLimitDecision 限流器对单次请求的判定
type RateLimitDecision struct {
	Allowed bool
	Count   int
	Limit   int
	ResetAt time.Time
}

func Admitted() Outcome      { return Outcome{Kind: OutcomeAdmitted} }
func Throttled() Outcome     { return Outcome{Kind: OutcomeThrottled} }
func SpamFiltered() Outcome  { return Outcome{Kind: OutcomeSpamFiltered} }
func ConfigMissing() Outcome { return Outcome{Kind: OutcomeConfigMissing} }

func Invalid(reason InvalidReason) Outcome {
	return Outcome{Kind: OutcomeInvalid, Reason: reason}
}

func DispatchFailed(err error) Outcome {
	return Outcome{Kind: OutcomeDispatchFailed, Err: err}
}

// InvalidReasonFor 将校验错误映射为 InvalidReason
func InvalidReasonFor(err error) InvalidReason {
	if errors.Is(err, ErrInvalidEmail) {
		return ReasonInvalidEmail
	}
	return ReasonMissingFields
}
