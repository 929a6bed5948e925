// Package ai 菜单问答接口，支持一次性与 SSE 流式两种响应
package ai

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/anoixa/eatinator/api/common"
	"github.com/anoixa/eatinator/internal/apperr"
	aiSvc "github.com/anoixa/eatinator/internal/services/ai"
	"github.com/anoixa/eatinator/internal/services/verify"
	"github.com/anoixa/eatinator/utils/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler AI 处理器
type Handler struct {
	relay           *aiSvc.Relay
	verifier        verify.Verifier
	fallbackEnabled bool
}

// NewHandler AI 处理器
func NewHandler(relay *aiSvc.Relay, verifier verify.Verifier, fallbackEnabled bool) *Handler {
	return &Handler{relay: relay, verifier: verifier, fallbackEnabled: fallbackEnabled}
}

type chatRequest struct {
	Message           string                 `json:"message"`
	Context           map[string]interface{} `json:"context"`
	Stream            bool                   `json:"stream"`
	VerificationToken string                 `json:"verificationToken"`
	TurnstileToken    string                 `json:"turnstileToken"`
}

// Chat POST /api/ai
func (h *Handler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondError(c, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if err := aiSvc.ValidateMessage(req.Message); err != nil {
		common.RespondAppError(c, err)
		return
	}

	if !common.CheckVerification(c, h.verifier, req.VerificationToken, req.TurnstileToken) {
		return
	}

	cc := aiSvc.DecodeContext(req.Context)
	if req.Stream || wantsEventStream(c) {
		h.stream(c, req.Message, cc)
		return
	}
	h.buffered(c, req.Message, cc)
}

func (h *Handler) buffered(c *gin.Context, message string, cc aiSvc.ChatContext) {
	answer, err := h.relay.Ask(c.Request.Context(), message, cc)
	if err == nil {
		common.RespondSuccess(c, gin.H{"response": answer})
		return
	}

	if !apperr.IsRelayError(err) {
		common.RespondAppError(c, err)
		return
	}

	logger.Warn("[AI] Relay failed", zap.Error(err))
	if h.fallbackEnabled {
		common.RespondSuccess(c, gin.H{
			"response": aiSvc.FallbackMessage(cc.Language),
			"fallback": true,
		})
		return
	}
	common.RespondError(c, http.StatusOK, aiSvc.PublicMessage(err))
}

func (h *Handler) stream(c *gin.Context, message string, cc aiSvc.ChatContext) {
	events, err := h.relay.AskStream(c.Request.Context(), message, cc)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	// 请求取消时 relay 会关闭 events
	for ev := range events {
		switch ev.Type {
		case aiSvc.EventChunk:
			writeEvent(c.Writer, gin.H{"chunk": ev.Text})
		case aiSvc.EventError:
			logger.Warn("[AI] Stream failed", zap.Error(ev.Err))
			writeEvent(c.Writer, gin.H{"error": aiSvc.PublicMessage(ev.Err)})
		case aiSvc.EventDone:
			writeEvent(c.Writer, gin.H{"done": true})
		}
		c.Writer.Flush()
	}
}

// Health GET /api/ai/health
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, h.relay.Health(c.Request.Context()))
}

func writeEvent(w io.Writer, payload gin.H) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
}

func wantsEventStream(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "text/event-stream")
}

