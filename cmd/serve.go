package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anoixa/eatinator/api/core"
	"github.com/anoixa/eatinator/config"
	"github.com/anoixa/eatinator/internal/app"
	imageSvc "github.com/anoixa/eatinator/internal/services/image"
	"github.com/anoixa/eatinator/utils/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start API server",
	Run: func(cmd *cobra.Command, args []string) {
		RunServer()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// initRuntime 加载配置并初始化日志
func initRuntime() *config.Config {
	config.InitConfig()
	cfg := config.Get()
	if err := logger.Initialize(cfg.LogLevel, cfg.LogDebug); err != nil {
		// 日志未就绪，只能写 stderr
		_, _ = os.Stderr.WriteString("failed to initialize logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	return cfg
}

func RunServer() {
	cfg := initRuntime()
	defer logger.Sync()

	logger.Info("Starting service",
		zap.String("service", config.ServiceName),
		zap.String("version", config.Version),
		zap.String("commit", config.CommitHash))

	container := app.NewContainer(cfg)
	if err := container.Init(); err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}

	// 过期图片定时清理
	sweeper := imageSvc.NewSweeper(container.Images, cfg.ImageSweepInterval)
	sweeper.Start()

	// 启动gin
	server, cleanup, err := core.NewServer(container.RouterDependencies())
	if err != nil {
		logger.Fatal("Failed to configure server", zap.Error(err))
	}
	go func() {
		logger.Info("Server started", zap.String("addr", cfg.Addr()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// 处理退出signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	if cleanup != nil {
		cleanup()
	}

	// 停止定时清理
	sweeper.Stop()

	// 关闭 DI 容器
	if err := container.Close(); err != nil {
		logger.Error("Error closing container", zap.Error(err))
	}

	logger.Info("Server exited successfully")
}
