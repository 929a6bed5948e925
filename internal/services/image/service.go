// Package image 菜品图片的上传、查询与过期清理
package image

import (
	"net/url"
	"sync/atomic"
	"time"

	"github.com/anoixa/eatinator/database/repo/images"
	"github.com/anoixa/eatinator/internal/metrics"
	"github.com/anoixa/eatinator/storage"
)

const (
	// DefaultMaxBytes 单张图片上限 15MB
	DefaultMaxBytes int64 = 15 << 20
	// DefaultRetention 图片保留 24 小时
	DefaultRetention = 24 * time.Hour

	// 读路径触发清理的最小间隔
	readSweepInterval = time.Minute
	timestampLayout   = "2006-01-02 15:04:05"
)

// Options 服务参数
type Options struct {
	MaxBytes  int64
	Retention time.Duration
	// SweepOnRead 为 true 时 ListImages 会在后台触发过期清理
	SweepOnRead bool
	Now         func() time.Time
}

// Service 图片生命周期服务
type Service struct {
	repo    *images.Repository
	storage storage.Provider
	metrics *metrics.Metrics

	maxBytes    int64
	retention   time.Duration
	sweepOnRead bool
	now         func() time.Time

	lastReadSweep atomic.Int64
	sweeping      atomic.Bool
}

// NewService 创建图片服务
func NewService(repo *images.Repository, provider storage.Provider, m *metrics.Metrics, opts Options) *Service {
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	if opts.Retention <= 0 {
		opts.Retention = DefaultRetention
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		repo:        repo,
		storage:     provider,
		metrics:     m,
		maxBytes:    opts.MaxBytes,
		retention:   opts.Retention,
		sweepOnRead: opts.SweepOnRead,
		now:         opts.Now,
	}
}

// MaxBytes 单张图片上限
func (s *Service) MaxBytes() int64 {
	return s.maxBytes
}

// Retention 保留时长
func (s *Service) Retention() time.Duration {
	return s.retention
}

// cutoff 早于该时间戳的记录视为过期
func (s *Service) cutoff() int64 {
	return s.now().Add(-s.retention).Unix()
}

// ImageURL 图片访问路径
func ImageURL(dishKey, filename string) string {
	return "/api/images/" + url.PathEscape(dishKey) + "/" + url.PathEscape(filename)
}
