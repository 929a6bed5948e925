// Package ai 菜单问答中继，对接 Ollama 兼容的 generate 接口
package ai

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/anoixa/eatinator/cache"
	"github.com/anoixa/eatinator/internal/apperr"
	"github.com/anoixa/eatinator/internal/metrics"
	"github.com/anoixa/eatinator/utils"
	"github.com/anoixa/eatinator/utils/logger"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/singleflight"
)

// MaxMessageLength 单条提问上限
const MaxMessageLength = 2000

// Options 中继参数
type Options struct {
	Endpoint      string
	Model         string
	Timeout       time.Duration
	HealthTimeout time.Duration
	MaxTokens     int
	Temperature   float64
	CacheTTL      time.Duration
}

// Relay AI 中继
type Relay struct {
	opts    Options
	client  *http.Client
	cache   cache.Provider
	metrics *metrics.Metrics
	group   singleflight.Group
}

// NewRelay 创建中继，cacheProvider 为空或 CacheTTL 为 0 时不缓存
func NewRelay(opts Options, cacheProvider cache.Provider, m *metrics.Metrics) *Relay {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.HealthTimeout <= 0 {
		opts.HealthTimeout = 5 * time.Second
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 300
	}
	return &Relay{
		opts: opts,
		// 超时由每个请求的 context 控制，流式响应不能用全局超时
		client:  &http.Client{Transport: http.DefaultTransport},
		cache:   cacheProvider,
		metrics: m,
	}
}

// Model 当前模型名
func (r *Relay) Model() string {
	return r.opts.Model
}

type generateOptions struct {
	NumPredict  int     `json:"num_predict"`
	Temperature float64 `json:"temperature"`
}

type generateRequest struct {
	Model   string          `json:"model"`
	System  string          `json:"system,omitempty"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// ValidateMessage 校验提问内容
func ValidateMessage(message string) error {
	if strings.TrimSpace(message) == "" {
		return fmt.Errorf("%w: message is required", apperr.ErrInvalidInput)
	}
	if len([]rune(message)) > MaxMessageLength {
		return fmt.Errorf("%w: message too long", apperr.ErrInvalidInput)
	}
	return nil
}

// Ask 一次性获取完整回答
func (r *Relay) Ask(ctx context.Context, message string, cc ChatContext) (string, error) {
	if err := ValidateMessage(message); err != nil {
		return "", err
	}

	key := cacheKey(message, cc)
	if answer, ok := r.cached(ctx, key); ok {
		r.metrics.AIRequest("buffered", "cache_hit")
		return answer, nil
	}

	// 共享调用不跟随单个请求取消，每个调用方只在自己的 ctx 上等待
	ch := r.group.DoChan(key, func() (interface{}, error) {
		shared := context.WithoutCancel(ctx)
		answer, err := r.generate(shared, message, cc, r.opts.MaxTokens, r.opts.Timeout)
		if err != nil {
			return "", err
		}
		r.store(shared, key, answer)
		return answer, nil
	})

	select {
	case <-ctx.Done():
		r.metrics.AIRequest("buffered", "canceled")
		return "", fmt.Errorf("%w: %v", apperr.ErrRelayUnreachable, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			r.metrics.AIRequest("buffered", "error")
			return "", res.Err
		}
		r.metrics.AIRequest("buffered", "ok")
		return res.Val.(string), nil
	}
}

// PublicMessage 中继错误对客户端展示的文案，不包含上游地址
func PublicMessage(err error) string {
	if errors.Is(err, apperr.ErrRelayTimeout) {
		return "AI service timed out, please try again"
	}
	return "AI service is currently unavailable"
}

func (r *Relay) generate(ctx context.Context, message string, cc ChatContext, maxTokens int, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := r.post(ctx, generateRequest{
		Model:  r.opts.Model,
		System: SystemInstruction(cc),
		Prompt: message,
		Stream: false,
		Options: generateOptions{
			NumPredict:  maxTokens,
			Temperature: r.opts.Temperature,
		},
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", relayError(ctx, err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("%w: %s", apperr.ErrRelayUnreachable, out.Error)
	}

	answer := strings.TrimSpace(out.Response)
	if answer == "" {
		return "", fmt.Errorf("%w: empty response", apperr.ErrRelayUnreachable)
	}
	return answer, nil
}

// post 发送请求，仅在 2xx 时返回响应
func (r *Relay) post(ctx context.Context, body generateRequest) (*http.Response, error) {
	if r.opts.Endpoint == "" {
		return nil, fmt.Errorf("%w: endpoint not configured", apperr.ErrRelayUnreachable)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.opts.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrRelayUnreachable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if body.Stream {
		req.Header.Set("Accept", "application/x-ndjson")
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, relayError(ctx, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		logger.Warn("[AI] Upstream returned error status",
			zap.Int("status", resp.StatusCode),
			zap.String("body", utils.TruncateForLog(string(snippet), 200)))
		return nil, fmt.Errorf("%w: upstream status %d", apperr.ErrRelayUnreachable, resp.StatusCode)
	}
	return resp, nil
}

// relayError 区分超时与不可达
func relayError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || utils.IsTimeout(err) {
		return fmt.Errorf("%w: %v", apperr.ErrRelayTimeout, err)
	}
	return fmt.Errorf("%w: %v", apperr.ErrRelayUnreachable, err)
}

func cacheKey(message string, cc ChatContext) string {
	h, _ := blake2b.New256(nil)
	for _, part := range []string{cc.Language, cc.Restaurant, cc.Date, cc.Category, strings.Join(cc.itemNames(), "\x1f"), strings.TrimSpace(message)} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return "ai:" + hex.EncodeToString(h.Sum(nil))
}

func (r *Relay) cached(ctx context.Context, key string) (string, bool) {
	if r.cache == nil || r.opts.CacheTTL <= 0 {
		return "", false
	}
	var answer string
	if err := r.cache.Get(ctx, key, &answer); err != nil {
		if !cache.IsCacheMiss(err) {
			logger.Debug("[AI] Cache read failed", zap.Error(err))
		}
		return "", false
	}
	return answer, answer != ""
}

func (r *Relay) store(ctx context.Context, key, answer string) {
	if r.cache == nil || r.opts.CacheTTL <= 0 {
		return
	}
	if err := r.cache.Set(ctx, key, answer, r.opts.CacheTTL); err != nil {
		logger.Debug("[AI] Cache write failed", zap.Error(err))
	}
}

// HealthStatus 健康检查结果
type HealthStatus struct {
	Status    string `json:"status"`
	AIService string `json:"ai_service"`
	Model     string `json:"model"`
	Error     string `json:"error,omitempty"`
}

// Health 发送最小请求探测上游，不返回错误
func (r *Relay) Health(ctx context.Context) HealthStatus {
	probe := ChatContext{
		Language:   LangEnglish,
		Restaurant: "Test Restaurant",
		Date:       "today",
		Category:   "test",
	}
	_, err := r.generate(ctx, "Hello", probe, 10, r.opts.HealthTimeout)
	if err != nil {
		logger.Warn("[AI] Health check failed", zap.Error(err))
		return HealthStatus{
			Status:    "degraded",
			AIService: "unavailable",
			Model:     r.opts.Model,
			Error:     PublicMessage(err),
		}
	}
	return HealthStatus{
		Status:    "healthy",
		AIService: "available",
		Model:     r.opts.Model,
	}
}
