package image

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/anoixa/eatinator/utils/logger"
	"go.uber.org/zap"
)

// Sweeper 定时清理过期图片
type Sweeper struct {
	service  *Service
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
	once     sync.Once
	started  atomic.Bool
}

// NewSweeper 创建定时清理器
func NewSweeper(service *Service, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{
		service:  service,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start 启动后立即执行一次，之后按间隔执行
func (w *Sweeper) Start() {
	if !w.started.CompareAndSwap(false, true) {
		return
	}
	logger.Info("[Sweeper] Starting", zap.Duration("interval", w.interval), zap.Duration("retention", w.service.Retention()))

	go func() {
		defer close(w.doneCh)
		w.runOnce()

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				w.runOnce()
			case <-w.stopCh:
				logger.Info("[Sweeper] Stopped")
				return
			}
		}
	}()
}

// Stop 停止并等待当前一轮结束
func (w *Sweeper) Stop() {
	w.once.Do(func() {
		close(w.stopCh)
	})
	if w.started.Load() {
		<-w.doneCh
	}
}

func (w *Sweeper) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	go func() {
		select {
		case <-w.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	if _, err := w.service.Sweep(ctx); err != nil {
		logger.Warn("[Sweeper] Sweep failed", zap.Error(err))
	}
}
