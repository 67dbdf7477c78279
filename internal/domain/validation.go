package domain

import (
	"errors"
	"strings"
)

// 验证相关的错误定义
var (
	ErrMissingFields = errors.New("missing required fields")
	ErrInvalidEmail  = errors.New("invalid email address")
)

// ValidateSubmission 校验联系表单的必填字段和邮箱格式
//
// 校验顺序：
//  1. name、email、message 任一为空（去除空白后）返回 ErrMissingFields
//  2. email 不包含 "@" 返回 ErrInvalidEmail
//
// 邮箱只做最小的语法检查，不做完整的 RFC 5322 校验。
func ValidateSubmission(s Submission) error {
	if isBlank(s.Name) || isBlank(s.Email) || isBlank(s.Message) {
		return ErrMissingFields
	}

	if !strings.Contains(s.Email, "@") {
		return ErrInvalidEmail
	}

	return nil
}

func isBlank(value string) bool {
	return strings.TrimSpace(value) == ""
}
