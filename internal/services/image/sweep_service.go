package image

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/anoixa/eatinator/database/models"
	"github.com/anoixa/eatinator/storage"
	"github.com/anoixa/eatinator/utils"
	"github.com/anoixa/eatinator/utils/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	sweepConcurrency = 4
	sweepTimeout     = 5 * time.Minute
)

// SweepResult 清理结果
type SweepResult struct {
	Scanned int `json:"scanned"`
	Removed int `json:"removed"`
	Failed  int `json:"failed"`
}

// Sweep 删除所有过期图片
// 先删文件再删记录，文件删除失败的记录保留到下一轮
func (s *Service) Sweep(ctx context.Context) (SweepResult, error) {
	return s.sweep(ctx, false)
}

// Expired 只统计过期图片，不做删除
func (s *Service) Expired(ctx context.Context) (SweepResult, error) {
	return s.sweep(ctx, true)
}

func (s *Service) sweep(ctx context.Context, dryRun bool) (SweepResult, error) {
	var result SweepResult

	expired, err := s.repo.ListExpired(ctx, s.cutoff(), 0)
	if err != nil {
		return result, fmt.Errorf("failed to list expired images: %w", err)
	}
	result.Scanned = len(expired)
	if dryRun || len(expired) == 0 {
		return result, nil
	}

	var removed, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sweepConcurrency)

	for i := range expired {
		record := expired[i]
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			if err := s.removeImage(gctx, &record); err != nil {
				failed.Add(1)
				logger.Warn("[Sweep] Failed to remove image",
					zap.Uint("id", record.ID),
					zap.String("path", record.FilePath),
					zap.Error(err))
				return nil
			}
			removed.Add(1)
			return nil
		})
	}

	waitErr := g.Wait()
	result.Removed = int(removed.Load())
	result.Failed = int(failed.Load())
	s.metrics.SweepRemoved(result.Removed)

	if result.Removed > 0 || result.Failed > 0 {
		logger.Info("[Sweep] Completed",
			zap.Int("scanned", result.Scanned),
			zap.Int("removed", result.Removed),
			zap.Int("failed", result.Failed))
	}
	return result, waitErr
}

func (s *Service) removeImage(ctx context.Context, record *models.Image) error {
	if err := s.storage.DeleteWithContext(ctx, record.FilePath); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	return s.repo.DeleteByID(ctx, record.ID)
}

// triggerReadSweep 读路径上的后台清理，每分钟最多一次
func (s *Service) triggerReadSweep() {
	if !s.sweepOnRead {
		return
	}
	now := s.now().UnixNano()
	last := s.lastReadSweep.Load()
	if now-last < int64(readSweepInterval) {
		return
	}
	if !s.lastReadSweep.CompareAndSwap(last, now) {
		return
	}
	s.runBackgroundSweep()
}

func (s *Service) runBackgroundSweep() {
	if !s.sweeping.CompareAndSwap(false, true) {
		return
	}
	utils.SafeGo(func() {
		defer s.sweeping.Store(false)
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()
		if _, err := s.Sweep(ctx); err != nil {
			logger.Warn("[Sweep] Background sweep failed", zap.Error(err))
		}
	})
}
