package models

// All 需要迁移的模型
func All() []interface{} {
	return []interface{}{
		&VoteTally{},
		&UserVote{},
		&Image{},
	}
}
