// Package common HTTP 响应与请求辅助函数
package common

import (
	"net/http"

	"github.com/anoixa/eatinator/internal/apperr"
	"github.com/anoixa/eatinator/utils/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RespondSuccess 返回 {success:true, ...fields}
func RespondSuccess(c *gin.Context, fields gin.H) {
	body := gin.H{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

// RespondError 返回 {success:false, error}
func RespondError(c *gin.Context, httpStatus int, message string) {
	c.JSON(httpStatus, gin.H{
		"success": false,
		"error":   message,
	})
}

// RespondErrorAbort 返回错误并中止后续处理
func RespondErrorAbort(c *gin.Context, httpStatus int, message string) {
	c.AbortWithStatusJSON(httpStatus, gin.H{
		"success": false,
		"error":   message,
	})
}

// RespondAppError 按错误类别映射状态码，存储错误只记录日志不外泄
func RespondAppError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error("[API] Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", c.GetString(RequestIDKey)),
			zap.Error(err))
	}
	RespondError(c, status, apperr.PublicMessage(err))
}
