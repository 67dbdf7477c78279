package domain

import "time"

// RateLimitEntry 单个调用方在当前固定窗口内的计数
type RateLimitEntry struct {
	Count         int       `json:"count"`
	WindowResetAt time.Time `json:"windowResetAt"`
}

// Expired 当前时间严格晚于 WindowResetAt 时窗口失效
func (e RateLimitEntry) Expired(now time.Time) bool {
	return now.After(e.WindowResetAt)
}
