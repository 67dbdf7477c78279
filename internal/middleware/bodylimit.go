package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// ContactBodyLimit 联系表单请求体上限
const ContactBodyLimit = 64 * 1024

// BodySizeLimit 限制请求体大小的中间件
//
// 不在这里拒绝请求：MaxBytesReader 在读取超限时返回 *http.MaxBytesError，
// 由处理器在限流检查之后决定响应。
func BodySizeLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Header("X-Max-Body-Size", strconv.FormatInt(maxBytes, 10))

		c.Next()
	}
}
