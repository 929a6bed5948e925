package models

import "time"

// 投票类型
const (
	VoteGood    = "good"
	VoteNeutral = "neutral"
	VoteBad     = "bad"
)

// IsValidVoteType 是否为合法的投票类型
func IsValidVoteType(t string) bool {
	switch t {
	case VoteGood, VoteNeutral, VoteBad:
		return true
	}
	return false
}

// VoteTally 单个投票键的计数，首次投票时创建，之后只增不删
type VoteTally struct {
	VoteKey   string    `gorm:"primaryKey;size:200" json:"-"`
	Good      int64     `gorm:"not null;default:0" json:"good"`
	Neutral   int64     `gorm:"not null;default:0" json:"neutral"`
	Bad       int64     `gorm:"not null;default:0" json:"bad"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

func (VoteTally) TableName() string {
	return "votes"
}

// Total 票数合计
func (t VoteTally) Total() int64 {
	return t.Good + t.Neutral + t.Bad
}

// UserVote 用户对某个键的投票记录，(user_id, vote_key) 唯一
type UserVote struct {
	UserID    string    `gorm:"primaryKey;size:128"`
	VoteKey   string    `gorm:"primaryKey;size:200;index"`
	VoteType  string    `gorm:"size:16;not null"`
	CreatedAt time.Time `gorm:"index"`
}

func (UserVote) TableName() string {
	return "user_votes"
}
