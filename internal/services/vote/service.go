// Package vote 投票账本：每用户每键一票，每用户总票数有上限
package vote

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/anoixa/eatinator/database/models"
	"github.com/anoixa/eatinator/database/repo/votes"
	"github.com/anoixa/eatinator/internal/apperr"
	"github.com/anoixa/eatinator/internal/metrics"
	"github.com/anoixa/eatinator/utils"
	"github.com/anoixa/eatinator/utils/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	// DefaultQuota 每个用户的默认投票上限
	DefaultQuota = 10

	// MaxUserIDLength 与 user_votes.user_id 列宽一致
	MaxUserIDLength = 128
)

// Tally 对外返回的票数
type Tally struct {
	Good    int64 `json:"good"`
	Neutral int64 `json:"neutral"`
	Bad     int64 `json:"bad"`
}

func toTally(t *models.VoteTally) Tally {
	return Tally{Good: t.Good, Neutral: t.Neutral, Bad: t.Bad}
}

// Service 投票服务
type Service struct {
	repo    *votes.Repository
	quota   int
	locks   *stripedLock
	metrics *metrics.Metrics
}

// NewService 创建投票服务，quota <= 0 时使用 DefaultQuota
func NewService(repo *votes.Repository, quota int, m *metrics.Metrics) *Service {
	if quota <= 0 {
		quota = DefaultQuota
	}
	return &Service{
		repo:    repo,
		quota:   quota,
		locks:   newStripedLock(256),
		metrics: m,
	}
}

func validateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("%w: key is required", apperr.ErrInvalidInput)
	}
	if utf8.RuneCountInString(key) > utils.MaxKeyLength {
		return fmt.Errorf("%w: key too long", apperr.ErrInvalidInput)
	}
	return nil
}

// GetVotes 读取票数，未知键返回全零
func (s *Service) GetVotes(ctx context.Context, key string) (Tally, error) {
	if err := validateKey(key); err != nil {
		return Tally{}, err
	}

	tally, err := s.repo.GetTally(ctx, key)
	if err != nil {
		logger.Error("[Vote] Failed to read tally", zap.String("key", utils.TruncateForLog(key, 64)), zap.Error(err))
		return Tally{}, fmt.Errorf("%w: %v", apperr.ErrStorageFailure, err)
	}
	return toTally(tally), nil
}

// CastVote 投票，返回投票后的票数
// 已投过返回 ErrAlreadyVoted，超过上限返回 ErrQuotaExceeded，两者都不修改任何数据
func (s *Service) CastVote(ctx context.Context, key, voteType, userID string) (Tally, error) {
	if err := validateKey(key); err != nil {
		return Tally{}, err
	}
	if strings.TrimSpace(voteType) == "" || strings.TrimSpace(userID) == "" {
		return Tally{}, fmt.Errorf("%w: key, voteType and userId are required", apperr.ErrInvalidInput)
	}
	if utf8.RuneCountInString(userID) > MaxUserIDLength {
		return Tally{}, fmt.Errorf("%w: userId too long", apperr.ErrInvalidInput)
	}
	if !models.IsValidVoteType(voteType) {
		return Tally{}, fmt.Errorf("%w: voteType must be good, neutral or bad", apperr.ErrInvalidInput)
	}

	unlock := s.locks.lock(userID)
	defer unlock()

	var result *models.VoteTally
	err := s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		voted, err := s.repo.HasVotedTx(tx, userID, key)
		if err != nil {
			return err
		}
		if voted {
			return apperr.ErrAlreadyVoted
		}

		count, err := s.repo.CountUserVotesTx(tx, userID)
		if err != nil {
			return err
		}
		if count >= int64(s.quota) {
			return fmt.Errorf("%w: maximum %d votes", apperr.ErrQuotaExceeded, s.quota)
		}

		if err := s.repo.EnsureTallyTx(tx, key); err != nil {
			return err
		}
		if err := s.repo.IncrementTx(tx, key, voteType); err != nil {
			return err
		}
		err = s.repo.InsertUserVoteTx(tx, &models.UserVote{
			UserID:    userID,
			VoteKey:   key,
			VoteType:  voteType,
			CreatedAt: time.Now(),
		})
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.ErrAlreadyVoted
		}
		if err != nil {
			return err
		}

		result, err = s.repo.GetTallyTx(tx, key)
		return err
	})

	switch {
	case err == nil:
		s.metrics.VoteCast("ok")
		return toTally(result), nil
	case errors.Is(err, apperr.ErrAlreadyVoted):
		s.metrics.VoteCast("already_voted")
		return Tally{}, err
	case errors.Is(err, apperr.ErrQuotaExceeded):
		s.metrics.VoteCast("quota_exceeded")
		return Tally{}, err
	default:
		s.metrics.VoteCast("error")
		logger.Error("[Vote] Cast failed",
			zap.String("key", utils.TruncateForLog(key, 64)),
			zap.String("type", voteType),
			zap.Error(err))
		return Tally{}, fmt.Errorf("%w: %v", apperr.ErrStorageFailure, err)
	}
}

// Stats 汇总统计，recentWindow 内的投票计入 recentVotes
func (s *Service) Stats(ctx context.Context, recentWindow time.Duration, top int) (*votes.Stats, error) {
	stats, err := s.repo.GetStats(ctx, time.Now().Add(-recentWindow), top)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrStorageFailure, err)
	}
	return stats, nil
}

// Quota 每用户投票上限
func (s *Service) Quota() int {
	return s.quota
}
