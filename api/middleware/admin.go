package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/anoixa/eatinator/api/common"
	"github.com/gin-gonic/gin"
)

const adminTokenHeader = "X-Admin-Token"

// AdminToken 校验管理令牌，也接受 Authorization: Bearer
func AdminToken(expected string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader(adminTokenHeader)
		if token == "" {
			token = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		}

		if expected == "" || token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
			common.RespondErrorAbort(c, http.StatusUnauthorized, "Invalid admin token")
			return
		}
		c.Next()
	}
}
