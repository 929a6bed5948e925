package core

import (
	"net/http"
	"time"

	"github.com/anoixa/eatinator/api/middleware"
	"github.com/anoixa/eatinator/config"
	"github.com/anoixa/eatinator/utils/logger"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter 创建 gin 引擎并注册全部中间件与路由
func NewRouter(deps *RouterDependencies) (*gin.Engine, func(), error) {
	cfg := deps.Config
	router := gin.New()

	// 仅在开发版本或 debug 时启用 gin 日志
	if cfg.LogDebug || config.IsDevelopment() {
		router.Use(gin.Logger())
	}
	router.Use(gin.Recovery())
	router.Use(cors.New(corsConfig(cfg)))

	if err := router.SetTrustedProxies(nil); err != nil {
		return nil, nil, err
	}

	// 限制上传文件大小
	router.MaxMultipartMemory = cfg.UploadMaxBytes()

	// 并发限制，避免内存过载
	concurrencyLimiter := middleware.NewConcurrencyLimiter(cfg.MaxConcurrency)
	router.Use(concurrencyLimiter.Middleware())

	router.Use(middleware.MaxBytesReader(defaultBodyLimit(cfg)))

	// 请求ID追踪
	router.Use(middleware.RequestID())

	if deps.Registry != nil {
		httpMetrics, err := middleware.NewHTTPMetrics(deps.Registry)
		if err != nil {
			return nil, nil, err
		}
		router.Use(httpMetrics.Middleware())
	}

	cleanup := RegisterRoutes(router, deps)
	return router, cleanup, nil
}

func corsConfig(cfg *config.Config) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Length", "Content-Type", "Accept", "X-Verification-Token", "X-Admin-Token", "X-Request-ID"},
		ExposeHeaders: []string{"X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}

	origins := cfg.AllowOrigins()
	for _, o := range origins {
		if o == "*" {
			c.AllowAllOrigins = true
			return c
		}
	}
	c.AllowOrigins = origins
	c.AllowCredentials = true
	return c
}

// NewServer 创建 http.Server
func NewServer(deps *RouterDependencies) (*http.Server, func(), error) {
	cfg := deps.Config
	if !cfg.LogDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	router, cleanup, err := NewRouter(deps)
	if err != nil {
		return nil, nil, err
	}

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  cfg.ServerIdleTimeout,
		ErrorLog:     logger.StdLog(),
	}

	logger.Info("[Server] Configured",
		zap.String("addr", srv.Addr),
		zap.Strings("cors_origins", cfg.AllowOrigins()),
		zap.Bool("verification", cfg.VerificationEnabled()),
		zap.Bool("admin", cfg.AdminToken != ""))

	return srv, cleanup, nil
}
