// Package stats 投票与图片统计接口
package stats

import (
	"strconv"
	"time"

	"github.com/anoixa/eatinator/api/common"
	imageSvc "github.com/anoixa/eatinator/internal/services/image"
	"github.com/anoixa/eatinator/internal/services/vote"
	"github.com/gin-gonic/gin"
)

const (
	recentVoteWindow = 7 * 24 * time.Hour
	defaultTopLimit  = 10
	maxTopLimit      = 100
)

// Handler 统计处理器
type Handler struct {
	votes  *vote.Service
	images *imageSvc.Service
}

// NewHandler 统计处理器
func NewHandler(votes *vote.Service, images *imageSvc.Service) *Handler {
	return &Handler{votes: votes, images: images}
}

// VoteStats GET /api/stats/votes?limit=
func (h *Handler) VoteStats(c *gin.Context) {
	limit := defaultTopLimit
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = min(n, maxTopLimit)
		}
	}

	stats, err := h.votes.Stats(c.Request.Context(), recentVoteWindow, limit)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	common.RespondSuccess(c, gin.H{"stats": stats})
}

// ImageStats GET /api/stats/images
func (h *Handler) ImageStats(c *gin.Context) {
	stats, err := h.images.Stats(c.Request.Context())
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	common.RespondSuccess(c, gin.H{"stats": stats})
}
