// Package apperr 定义服务层与 HTTP 层共享的错误类别
package apperr

import (
	"errors"
	"net/http"
)

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrForbidden           = errors.New("verification failed")
	ErrAlreadyVoted        = errors.New("already voted for this item")
	ErrQuotaExceeded       = errors.New("vote limit reached")
	ErrTooLarge            = errors.New("file too large")
	ErrUnsupportedType     = errors.New("unsupported image type")
	ErrInvalidImageContent = errors.New("invalid image content")
	ErrNotFound            = errors.New("not found")
	ErrRelayTimeout        = errors.New("ai service timed out")
	ErrRelayUnreachable    = errors.New("ai service unavailable")
	ErrStorageFailure      = errors.New("storage failure")
)

// HTTPStatus 错误类别对应的 HTTP 状态码
// AI 中继错误以 200 返回，由调用方在响应体中标记 success=false
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrAlreadyVoted),
		errors.Is(err, ErrQuotaExceeded),
		errors.Is(err, ErrTooLarge),
		errors.Is(err, ErrUnsupportedType),
		errors.Is(err, ErrInvalidImageContent):
		return http.StatusBadRequest
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrRelayTimeout), errors.Is(err, ErrRelayUnreachable):
		return http.StatusOK
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage 返回可以暴露给客户端的错误信息
// 存储错误与未知错误只返回通用文案
func PublicMessage(err error) string {
	if HTTPStatus(err) == http.StatusInternalServerError {
		return "Internal server error"
	}
	return err.Error()
}

// IsRelayError 是否为 AI 中继错误
func IsRelayError(err error) bool {
	return errors.Is(err, ErrRelayTimeout) || errors.Is(err, ErrRelayUnreachable)
}
