package middleware

import (
	"github.com/anoixa/eatinator/api/common"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

// RequestID 透传或生成请求 ID
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set(common.RequestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}
