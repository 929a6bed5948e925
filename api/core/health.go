package core

import (
	"context"
	"net/http"
	"time"

	"github.com/anoixa/eatinator/config"
	"github.com/anoixa/eatinator/database"
	"github.com/anoixa/eatinator/storage"
	"github.com/gin-gonic/gin"
)

const healthCheckTimeout = 3 * time.Second

// HealthHandler 健康检查
type HealthHandler struct {
	db        database.Provider
	storage   storage.Provider
	startTime time.Time
}

// NewHealthHandler 健康检查处理器
func NewHealthHandler(db database.Provider, provider storage.Provider) *HealthHandler {
	return &HealthHandler{db: db, storage: provider, startTime: time.Now()}
}

// Handle GET /health 与 /api/health，任一依赖异常时返回 503
func (h *HealthHandler) Handle(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	checks := gin.H{
		"database": checkDatabaseHealth(ctx, h.db),
		"storage":  checkStorageHealth(ctx, h.storage),
	}

	status, httpStatus := "healthy", http.StatusOK
	for _, result := range checks {
		if result != "ok" {
			status, httpStatus = "degraded", http.StatusServiceUnavailable
			break
		}
	}

	c.JSON(httpStatus, gin.H{
		"status":  status,
		"service": config.ServiceName,
		"version": config.Version,
		"uptime":  time.Since(h.startTime).Round(time.Second).String(),
		"checks":  checks,
	})
}

func checkDatabaseHealth(ctx context.Context, provider database.Provider) string {
	if provider == nil {
		return "not initialized"
	}
	if err := provider.Ping(ctx); err != nil {
		return "unavailable: " + err.Error()
	}
	return "ok"
}

func checkStorageHealth(ctx context.Context, provider storage.Provider) string {
	if provider == nil {
		return "not initialized"
	}
	if err := provider.Health(ctx); err != nil {
		return "error: " + err.Error()
	}
	return "ok"
}
