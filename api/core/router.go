package core

import (
	"github.com/anoixa/eatinator/api/common"
	"github.com/anoixa/eatinator/api/handler/admin"
	handlerAI "github.com/anoixa/eatinator/api/handler/ai"
	handlerImages "github.com/anoixa/eatinator/api/handler/images"
	"github.com/anoixa/eatinator/api/handler/stats"
	handlerVotes "github.com/anoixa/eatinator/api/handler/votes"
	"github.com/anoixa/eatinator/api/middleware"
	"github.com/anoixa/eatinator/config"
	"github.com/anoixa/eatinator/database"
	aiSvc "github.com/anoixa/eatinator/internal/services/ai"
	imageSvc "github.com/anoixa/eatinator/internal/services/image"
	"github.com/anoixa/eatinator/internal/services/verify"
	"github.com/anoixa/eatinator/internal/services/vote"
	"github.com/anoixa/eatinator/storage"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterDependencies 路由注册依赖
type RouterDependencies struct {
	Config    *config.Config
	DB        database.Provider
	Storage   storage.Provider
	Votes     *vote.Service
	Images    *imageSvc.Service
	Relay     *aiSvc.Relay
	Verifier  verify.Verifier
	Registry  *prometheus.Registry
	CacheName string
}

// rateLimiters 各类接口的限流器
type rateLimiters struct {
	api   *middleware.IPRateLimiter
	vote  *middleware.IPRateLimiter
	ai    *middleware.IPRateLimiter
	image *middleware.IPRateLimiter
}

func newRateLimiters(cfg *config.Config) *rateLimiters {
	return &rateLimiters{
		api:   middleware.NewIPRateLimiter(cfg.RateLimitApiRPS, cfg.RateLimitApiBurst, cfg.RateLimitExpireTime),
		vote:  middleware.NewHourlyRateLimiter(cfg.RateLimitVotePerHour, cfg.RateLimitExpireTime, "Rate limit exceeded. Please try again later."),
		ai:    middleware.NewHourlyRateLimiter(cfg.RateLimitAIPerHour, cfg.RateLimitExpireTime, "AI rate limit exceeded. Please try again later."),
		image: middleware.NewHourlyRateLimiter(cfg.RateLimitImagePerHour, cfg.RateLimitExpireTime, "Upload rate limit exceeded. Please try again later."),
	}
}

func (r *rateLimiters) stop() {
	r.api.StopCleanup()
	r.vote.StopCleanup()
	r.ai.StopCleanup()
	r.image.StopCleanup()
}

// RegisterRoutes 注册所有路由，返回的函数用于停止限流器的清理 goroutine
func RegisterRoutes(router *gin.Engine, deps *RouterDependencies) func() {
	limiters := newRateLimiters(deps.Config)

	// 基础路由
	registerBasicRoutes(router, deps)

	// API 路由
	registerAPIRoutes(router, deps, limiters)

	return limiters.stop
}

// registerBasicRoutes 注册基础路由
func registerBasicRoutes(router *gin.Engine, deps *RouterDependencies) {
	healthHandler := NewHealthHandler(deps.DB, deps.Storage)
	router.GET("/health", healthHandler.Handle)
	router.GET("/api/health", healthHandler.Handle)

	router.GET("/version", func(context *gin.Context) {
		common.RespondSuccess(context, gin.H{
			"version": config.Version,
			"commit":  config.CommitHash,
		})
	})

	if deps.Registry != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})))
	}
}

// registerAPIRoutes 注册 API 路由，REST 与 .php 两种形式共用处理器
func registerAPIRoutes(router *gin.Engine, deps *RouterDependencies, limiters *rateLimiters) {
	cfg := deps.Config

	voteHandler := handlerVotes.NewHandler(deps.Votes, deps.Verifier)
	imageHandler := handlerImages.NewHandler(deps.Images, deps.Verifier)
	aiHandler := handlerAI.NewHandler(deps.Relay, deps.Verifier, cfg.AIFallbackEnabled)
	statsHandler := stats.NewHandler(deps.Votes, deps.Images)

	apiGroup := router.Group("/api")
	apiGroup.Use(middleware.NoStore())
	apiGroup.Use(limiters.api.Middleware())
	{
		// Votes
		voteLimit := limiters.vote.MiddlewareFor("POST")
		apiGroup.GET("/votes/:key", voteHandler.GetVotes)
		apiGroup.POST("/votes", voteLimit, voteHandler.CastVote)
		apiGroup.GET("/votes.php", voteHandler.GetVotes)
		apiGroup.POST("/votes.php", voteLimit, voteHandler.LegacyCastVote)

		// Images
		imageLimit := limiters.image.MiddlewareFor("POST")
		apiGroup.GET("/images/:dishKey", imageHandler.ListImages)
		apiGroup.GET("/images/:dishKey/:filename", imageHandler.ViewImage)
		apiGroup.POST("/images", imageLimit, imageHandler.UploadImage)
		apiGroup.POST("/images/:dishKey", imageLimit, imageHandler.UploadImage)
		apiGroup.GET("/images.php", imageHandler.LegacyGet)
		apiGroup.POST("/images.php", imageLimit, imageHandler.UploadImage)

		// AI
		apiGroup.POST("/ai", limiters.ai.Middleware(), aiHandler.Chat)
		apiGroup.GET("/ai/health", aiHandler.Health)

		// Stats
		statsGroup := apiGroup.Group("/stats")
		{
			statsGroup.GET("/votes", statsHandler.VoteStats)
			statsGroup.GET("/images", statsHandler.ImageStats)
		}

		// Admin
		if cfg.AdminToken != "" {
			registerAdminRoutes(apiGroup, deps)
		}
	}
}

// registerAdminRoutes 注册管理员路由
func registerAdminRoutes(apiGroup *gin.RouterGroup, deps *RouterDependencies) {
	cfg := deps.Config
	adminHandler := admin.NewHandler(deps.Images, deps.Votes, admin.Info{
		Database:     cfg.DBType,
		Storage:      providerName(deps.Storage),
		Cache:        deps.CacheName,
		Verification: deps.Verifier != nil && deps.Verifier.Enabled(),
		AIModel:      deps.Relay.Model(),
	})

	adminGroup := apiGroup.Group("/admin")
	adminGroup.Use(middleware.AdminToken(cfg.AdminToken))
	{
		adminGroup.POST("/cleanup", adminHandler.Cleanup)
		adminGroup.GET("/info", adminHandler.Info)
	}
}

func providerName(p storage.Provider) string {
	if p == nil {
		return ""
	}
	return p.Name()
}

// defaultBodyLimit 请求体上限比单图上限多留 1MB 给表单字段
func defaultBodyLimit(cfg *config.Config) int64 {
	return cfg.UploadMaxBytes() + 1<<20
}

