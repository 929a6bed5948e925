// Package cache 缓存提供者，目前只用于 AI 回答缓存
package cache

import (
	"fmt"

	"github.com/anoixa/eatinator/cache/memory"
	"github.com/anoixa/eatinator/cache/redis"
	"github.com/anoixa/eatinator/cache/types"
	"github.com/anoixa/eatinator/config"
	"github.com/anoixa/eatinator/utils/logger"
	"go.uber.org/zap"
)

// Provider 缓存提供者
type Provider = types.Provider

// ErrCacheMiss 缓存未命中错误
var ErrCacheMiss = types.ErrCacheMiss

// IsCacheMiss 判断是否为缓存未命中错误
func IsCacheMiss(err error) bool {
	return types.IsCacheMiss(err)
}

// NewProvider 根据 cache_type 创建缓存
func NewProvider(cfg *config.Config) (Provider, error) {
	var (
		provider Provider
		err      error
	)

	switch cfg.CacheType {
	case "memory", "":
		provider, err = memory.NewMemory(memory.DefaultConfig())
	case "redis":
		provider, err = redis.NewRedis(cfg.CacheRedisAddr, cfg.CacheRedisPassword, cfg.CacheRedisDB)
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.CacheType)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s cache: %w", cfg.CacheType, err)
	}

	logger.Info("[Cache] Provider initialized", zap.String("provider", provider.Name()))
	return provider, nil
}
