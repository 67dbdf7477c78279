package httptransport

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SuccessResponse 成功响应
type SuccessResponse struct {
	OK bool `json:"ok"`
}

// ErrorResponse 错误响应，error 字段为面向用户的固定文案
type ErrorResponse struct {
	Error string `json:"error"`
}

// Success 成功响应（200）
func Success(c *gin.Context) {
	c.JSON(http.StatusOK, SuccessResponse{OK: true})
}

// BadRequest 请求参数错误（400）
func BadRequest(c *gin.Context, msg string) {
	Error(c, http.StatusBadRequest, msg)
}

// TooManyRequests 请求过多（429）
func TooManyRequests(c *gin.Context) {
	Error(c, http.StatusTooManyRequests, MsgTooManyRequests)
}

// PayloadTooLarge 请求体过大（413）
func PayloadTooLarge(c *gin.Context) {
	Error(c, http.StatusRequestEntityTooLarge, MsgBodyTooLarge)
}

// InternalError 服务器内部错误（500）
func InternalError(c *gin.Context, msg string) {
	Error(c, http.StatusInternalServerError, msg)
}

// Error 通用错误响应
func Error(c *gin.Context, httpCode int, msg string) {
	c.JSON(httpCode, ErrorResponse{Error: msg})
}
