// Package admin 运维接口，需要管理令牌
package admin

import (
	"time"

	"github.com/anoixa/eatinator/api/common"
	"github.com/anoixa/eatinator/config"
	imageSvc "github.com/anoixa/eatinator/internal/services/image"
	"github.com/anoixa/eatinator/internal/services/vote"
	"github.com/gin-gonic/gin"
)

// Info 服务运行信息
type Info struct {
	Service        string `json:"service"`
	Version        string `json:"version"`
	Commit         string `json:"commit"`
	Uptime         string `json:"uptime"`
	Database       string `json:"database"`
	Storage        string `json:"storage"`
	Cache          string `json:"cache"`
	VoteQuota      int    `json:"voteQuota"`
	ImageRetention string `json:"imageRetention"`
	UploadMaxBytes int64  `json:"uploadMaxBytes"`
	Verification   bool   `json:"verification"`
	AIModel        string `json:"aiModel"`
}

// Handler 管理处理器
type Handler struct {
	images    *imageSvc.Service
	votes     *vote.Service
	info      Info
	startTime time.Time
}

// NewHandler 管理处理器，info 中的静态字段在启动时确定
func NewHandler(images *imageSvc.Service, votes *vote.Service, info Info) *Handler {
	info.Service = config.ServiceName
	info.Version = config.Version
	info.Commit = config.CommitHash
	info.VoteQuota = votes.Quota()
	info.ImageRetention = images.Retention().String()
	info.UploadMaxBytes = images.MaxBytes()
	return &Handler{images: images, votes: votes, info: info, startTime: time.Now()}
}

// Cleanup POST /api/admin/cleanup?dryRun=true
func (h *Handler) Cleanup(c *gin.Context) {
	sweep := h.images.Sweep
	dryRun := c.Query("dryRun") == "true"
	if dryRun {
		sweep = h.images.Expired
	}

	result, err := sweep(c.Request.Context())
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	common.RespondSuccess(c, gin.H{"dryRun": dryRun, "result": result})
}

// Info GET /api/admin/info
func (h *Handler) Info(c *gin.Context) {
	info := h.info
	info.Uptime = time.Since(h.startTime).Round(time.Second).String()
	common.RespondSuccess(c, gin.H{"info": info})
}
