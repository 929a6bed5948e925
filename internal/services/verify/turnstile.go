// Package verify 人机验证（Cloudflare Turnstile 兼容接口）
package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/anoixa/eatinator/internal/apperr"
	"github.com/anoixa/eatinator/utils/logger"
	"go.uber.org/zap"
)

// Verifier 校验客户端提交的验证令牌
type Verifier interface {
	Verify(ctx context.Context, token, remoteIP string) error
	Enabled() bool
}

// Turnstile siteverify 客户端，secret 为空时放行所有请求
type Turnstile struct {
	secret string
	url    string
	client *http.Client
}

// NewTurnstile 创建验证器
func NewTurnstile(secret, verifyURL string, timeout time.Duration) *Turnstile {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Turnstile{
		secret: secret,
		url:    verifyURL,
		client: &http.Client{Timeout: timeout},
	}
}

type siteverifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// Enabled 是否启用校验
func (t *Turnstile) Enabled() bool {
	return t.secret != ""
}

// Verify 令牌无效、缺失或验证服务不可达时返回 apperr.ErrForbidden
func (t *Turnstile) Verify(ctx context.Context, token, remoteIP string) error {
	if !t.Enabled() {
		return nil
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("%w: missing verification token", apperr.ErrForbidden)
	}

	form := url.Values{}
	form.Set("secret", t.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrForbidden, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		logger.Warn("[Verify] siteverify request failed", zap.Error(err))
		return fmt.Errorf("%w: verification service unavailable", apperr.ErrForbidden)
	}
	defer resp.Body.Close()

	var result siteverifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		logger.Warn("[Verify] invalid siteverify response", zap.Int("status", resp.StatusCode), zap.Error(err))
		return fmt.Errorf("%w: invalid verification response", apperr.ErrForbidden)
	}
	if !result.Success {
		logger.Debug("[Verify] token rejected", zap.Strings("codes", result.ErrorCodes))
		return apperr.ErrForbidden
	}
	return nil
}
