package httptransport

import (
	"net/http"

	"portfolio/backend/internal/domain"
)

// 面向客户端的错误文案，前端按原文展示
const (
	MsgMissingFields   = "Missing required fields"
	MsgInvalidEmail    = "Invalid email address"
	MsgTooManyRequests = "Too many requests. Please try again later."
	MsgConfigMissing   = "Email configuration missing"
	MsgInternalError   = "Internal server error"
	MsgBodyTooLarge    = "Request body too large"
)

// invalidMessages 校验失败原因 -> 文案
var invalidMessages = map[domain.InvalidReason]string{
	domain.ReasonMissingFields: MsgMissingFields,
	domain.ReasonInvalidEmail:  MsgInvalidEmail,
}

// StatusFor 把处理结果映射为 HTTP 状态码与错误文案，成功时文案为空
func StatusFor(outcome domain.Outcome) (int, string) {
	switch outcome.Kind {
	case domain.OutcomeAdmitted, domain.OutcomeSpamFiltered:
		return http.StatusOK, ""
	case domain.OutcomeThrottled:
		return http.StatusTooManyRequests, MsgTooManyRequests
	case domain.OutcomeInvalid:
		if msg, ok := invalidMessages[outcome.Reason]; ok {
			return http.StatusBadRequest, msg
		}
		return http.StatusBadRequest, MsgMissingFields
	case domain.OutcomeConfigMissing:
		return http.StatusInternalServerError, MsgConfigMissing
	default:
		return http.StatusInternalServerError, MsgInternalError
	}
}
