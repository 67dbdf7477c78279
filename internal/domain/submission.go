package domain

import "strings"

// Locale 确认邮件使用的语言
type Locale string

const (
	LocaleItalian Locale = "it" // 主语言，缺省值
	LocaleEnglish Locale = "en"
)

// DefaultLocale lang 缺失或无法识别时使用的语言
const DefaultLocale = LocaleItalian

// ParseLocale 将请求中的 lang 字段解析为 Locale，未知值回退到 DefaultLocale
func ParseLocale(value string) Locale {
	switch Locale(strings.ToLower(strings.TrimSpace(value))) {
	case LocaleEnglish:
		return LocaleEnglish
	case LocaleItalian:
		return LocaleItalian
	default:
		return DefaultLocale
	}
}

// Submission 表示一次联系表单提交，生命周期仅限单个请求。
type Submission struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
	Company string `json:"company,omitempty"` // 蜜罐字段，正常用户不会填写
	Lang    string `json:"lang,omitempty"`
}

// Locale 返回确认邮件应使用的语言
func (s Submission) Locale() Locale {
	return ParseLocale(s.Lang)
}

// IsSpam 蜜罐字段去除空白后非空即视为机器人提交
func (s Submission) IsSpam() bool {
	return strings.TrimSpace(s.Company) != ""
}
