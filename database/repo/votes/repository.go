package votes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anoixa/eatinator/database"
	"github.com/anoixa/eatinator/database/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// voteColumns 投票类型到列名，列名只来自这里
var voteColumns = map[string]string{
	models.VoteGood:    "good",
	models.VoteNeutral: "neutral",
	models.VoteBad:     "bad",
}

// Repository 投票仓库
type Repository struct {
	db database.Provider
}

// NewRepository 创建投票仓库
func NewRepository(db database.Provider) *Repository {
	return &Repository{db: db}
}

// Transaction 在单个事务中执行
func (r *Repository) Transaction(ctx context.Context, fn database.TxFunc) error {
	return r.db.TransactionWithContext(ctx, fn)
}

// GetTally 获取计数，键不存在时返回全零
func (r *Repository) GetTally(ctx context.Context, key string) (*models.VoteTally, error) {
	return r.GetTallyTx(r.db.WithContext(ctx), key)
}

// GetTallyTx 在事务中获取计数
func (r *Repository) GetTallyTx(tx *gorm.DB, key string) (*models.VoteTally, error) {
	var tally models.VoteTally
	err := tx.Where("vote_key = ?", key).First(&tally).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.VoteTally{VoteKey: key}, nil
	}
	if err != nil {
		return nil, err
	}
	return &tally, nil
}

// HasVotedTx 用户是否已对该键投票
func (r *Repository) HasVotedTx(tx *gorm.DB, userID, key string) (bool, error) {
	var count int64
	err := tx.Model(&models.UserVote{}).
		Where("user_id = ? AND vote_key = ?", userID, key).
		Count(&count).Error
	return count > 0, err
}

// CountUserVotesTx 用户投票总数
func (r *Repository) CountUserVotesTx(tx *gorm.DB, userID string) (int64, error) {
	var count int64
	err := tx.Model(&models.UserVote{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// EnsureTallyTx 计数行不存在时插入全零行
func (r *Repository) EnsureTallyTx(tx *gorm.DB, key string) error {
	return tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.VoteTally{VoteKey: key}).Error
}

// IncrementTx 对应列加一
func (r *Repository) IncrementTx(tx *gorm.DB, key, voteType string) error {
	col, ok := voteColumns[voteType]
	if !ok {
		return fmt.Errorf("unknown vote type: %s", voteType)
	}

	result := tx.Model(&models.VoteTally{}).
		Where("vote_key = ?", key).
		Updates(map[string]interface{}{
			col:          gorm.Expr(col + " + ?", 1),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected != 1 {
		return fmt.Errorf("tally row for %q not updated", key)
	}
	return nil
}

// InsertUserVoteTx 写入投票记录，重复时返回 gorm.ErrDuplicatedKey
func (r *Repository) InsertUserVoteTx(tx *gorm.DB, vote *models.UserVote) error {
	return tx.Create(vote).Error
}

// KeyCount 键与票数
type KeyCount struct {
	VoteKey string `json:"key"`
	Good    int64  `json:"good"`
	Neutral int64  `json:"neutral"`
	Bad     int64  `json:"bad"`
	Total   int64  `json:"total"`
}

// Stats 汇总统计
type Stats struct {
	TotalGood    int64      `json:"good"`
	TotalNeutral int64      `json:"neutral"`
	TotalBad     int64      `json:"bad"`
	Keys         int64      `json:"keys"`
	RecentVotes  int64      `json:"recentVotes"`
	Top          []KeyCount `json:"top"`
}

// GetStats 汇总全部计数，recent 统计 since 之后的投票记录
func (r *Repository) GetStats(ctx context.Context, since time.Time, limit int) (*Stats, error) {
	db := r.db.WithContext(ctx)
	stats := &Stats{}

	row := db.Model(&models.VoteTally{}).
		Select("COALESCE(SUM(good),0), COALESCE(SUM(neutral),0), COALESCE(SUM(bad),0), COUNT(*)").
		Row()
	if err := row.Scan(&stats.TotalGood, &stats.TotalNeutral, &stats.TotalBad, &stats.Keys); err != nil {
		return nil, fmt.Errorf("failed to aggregate tallies: %w", err)
	}

	if err := db.Model(&models.UserVote{}).Where("created_at >= ?", since).Count(&stats.RecentVotes).Error; err != nil {
		return nil, fmt.Errorf("failed to count recent votes: %w", err)
	}

	if limit > 0 {
		err := db.Model(&models.VoteTally{}).
			Select("vote_key, good, neutral, bad, (good + neutral + bad) AS total").
			Order("total DESC, vote_key ASC").
			Limit(limit).
			Scan(&stats.Top).Error
		if err != nil {
			return nil, fmt.Errorf("failed to query top keys: %w", err)
		}
	}
	return stats, nil
}
