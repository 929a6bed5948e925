package common

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// RequestIDKey 请求 ID 在 gin.Context 中的键
	RequestIDKey = "request_id"

	// VerificationHeader 验证令牌也可以通过请求头传递
	VerificationHeader = "X-Verification-Token"
)

// ClientIP 客户端真实 IP，依次取 CF-Connecting-IP、X-Forwarded-For 第一项、X-Real-IP
func ClientIP(c *gin.Context) string {
	if ip := strings.TrimSpace(c.GetHeader("CF-Connecting-IP")); ip != "" {
		return ip
	}
	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		if first := strings.TrimSpace(strings.Split(xff, ",")[0]); first != "" {
			return first
		}
	}
	if ip := strings.TrimSpace(c.GetHeader("X-Real-IP")); ip != "" {
		return ip
	}
	return c.ClientIP()
}

// VerificationToken 取第一个非空的令牌，最后回退到请求头
func VerificationToken(c *gin.Context, candidates ...string) string {
	for _, token := range candidates {
		if token = strings.TrimSpace(token); token != "" {
			return token
		}
	}
	return strings.TrimSpace(c.GetHeader(VerificationHeader))
}
