// Package app 依赖注入容器，按配置组装全部组件
package app

import (
	"errors"
	"fmt"

	"github.com/anoixa/eatinator/api/core"
	"github.com/anoixa/eatinator/cache"
	"github.com/anoixa/eatinator/config"
	"github.com/anoixa/eatinator/database"
	"github.com/anoixa/eatinator/database/repo/images"
	"github.com/anoixa/eatinator/database/repo/votes"
	"github.com/anoixa/eatinator/internal/metrics"
	"github.com/anoixa/eatinator/internal/services/ai"
	imageSvc "github.com/anoixa/eatinator/internal/services/image"
	"github.com/anoixa/eatinator/internal/services/verify"
	"github.com/anoixa/eatinator/internal/services/vote"
	"github.com/anoixa/eatinator/storage"
	"github.com/anoixa/eatinator/utils/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Container 依赖注入容器 - 管理所有服务的生命周期
type Container struct {
	config          *config.Config
	databaseFactory *database.Factory
	storage         storage.Provider
	cache           cache.Provider
	registry        *prometheus.Registry
	metrics         *metrics.Metrics

	VotesRepo  *votes.Repository
	ImagesRepo *images.Repository

	Verifier verify.Verifier
	Votes    *vote.Service
	Images   *imageSvc.Service
	Relay    *ai.Relay
}

// NewContainer 创建新的依赖注入容器
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config: cfg,
	}
}

// Init 初始化数据库、存储、缓存和服务
func (c *Container) Init() error {
	if err := c.InitDatabase(); err != nil {
		return err
	}
	if err := c.InitServices(); err != nil {
		return err
	}
	return nil
}

// InitDatabase 只初始化数据库与仓库，供 CLI 子命令使用
func (c *Container) InitDatabase() error {
	logger.Debug("Initializing DI container...")

	factory, err := database.NewFactory(c.config)
	if err != nil {
		return fmt.Errorf("failed to initialize database factory: %w", err)
	}
	c.databaseFactory = factory

	if err := factory.AutoMigrate(); err != nil {
		return err
	}

	db := factory.GetProvider()
	c.VotesRepo = votes.NewRepository(db)
	c.ImagesRepo = images.NewRepository(db)
	logger.Debug("Repositories initialized")
	return nil
}

// InitServices 初始化存储、缓存、指标与业务服务
func (c *Container) InitServices() error {
	if c.databaseFactory == nil {
		return errors.New("database not initialized")
	}
	cfg := c.config

	provider, err := storage.NewProvider(cfg)
	if err != nil {
		return err
	}
	c.storage = provider

	cacheProvider, err := cache.NewProvider(cfg)
	if err != nil {
		return err
	}
	c.cache = cacheProvider

	c.registry = prometheus.NewRegistry()
	c.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(c.registry)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}
	c.metrics = m

	c.Verifier = verify.NewTurnstile(cfg.VerificationSecret, cfg.VerificationURL, cfg.VerificationTimeout)
	c.Votes = vote.NewService(c.VotesRepo, cfg.VoteQuota, m)
	c.Images = imageSvc.NewService(c.ImagesRepo, provider, m, imageSvc.Options{
		MaxBytes:    cfg.UploadMaxBytes(),
		Retention:   cfg.ImageRetention,
		SweepOnRead: true,
	})
	c.Relay = ai.NewRelay(ai.Options{
		Endpoint:      cfg.AIEndpoint,
		Model:         cfg.AIModel,
		Timeout:       cfg.AITimeout,
		HealthTimeout: cfg.AIHealthTimeout,
		MaxTokens:     cfg.AIMaxTokens,
		Temperature:   cfg.AITemperature,
		CacheTTL:      cfg.CacheAITTL,
	}, cacheProvider, m)

	logger.Debug("DI container initialized successfully")
	return nil
}

// ImageService 只需要清理能力时使用，不注册指标
func (c *Container) ImageService() (*imageSvc.Service, error) {
	if c.Images != nil {
		return c.Images, nil
	}
	if c.ImagesRepo == nil {
		return nil, errors.New("database not initialized")
	}
	if c.storage == nil {
		provider, err := storage.NewProvider(c.config)
		if err != nil {
			return nil, err
		}
		c.storage = provider
	}
	c.Images = imageSvc.NewService(c.ImagesRepo, c.storage, nil, imageSvc.Options{
		MaxBytes:  c.config.UploadMaxBytes(),
		Retention: c.config.ImageRetention,
	})
	return c.Images, nil
}

// RouterDependencies 路由所需依赖
func (c *Container) RouterDependencies() *core.RouterDependencies {
	deps := &core.RouterDependencies{
		Config:   c.config,
		DB:       c.GetDatabaseProvider(),
		Storage:  c.storage,
		Votes:    c.Votes,
		Images:   c.Images,
		Relay:    c.Relay,
		Verifier: c.Verifier,
		Registry: c.registry,
	}
	if c.cache != nil {
		deps.CacheName = c.cache.Name()
	}
	return deps
}

// GetDatabaseProvider 获取数据库提供者
func (c *Container) GetDatabaseProvider() database.Provider {
	if c.databaseFactory == nil {
		return nil
	}
	return c.databaseFactory.GetProvider()
}

// Close 关闭缓存与数据库
func (c *Container) Close() error {
	var errs []error
	if c.cache != nil {
		if err := c.cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("cache: %w", err))
		}
	}
	if c.databaseFactory != nil {
		if err := c.databaseFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("database: %w", err))
		}
	}
	return errors.Join(errs...)
}
