package common

import (
	"github.com/anoixa/eatinator/internal/services/verify"
	"github.com/gin-gonic/gin"
)

// CheckVerification 校验人机验证令牌，失败时已写入响应并返回 false
func CheckVerification(c *gin.Context, v verify.Verifier, candidates ...string) bool {
	if v == nil || !v.Enabled() {
		return true
	}
	if err := v.Verify(c.Request.Context(), VerificationToken(c, candidates...), ClientIP(c)); err != nil {
		RespondAppError(c, err)
		return false
	}
	return true
}
