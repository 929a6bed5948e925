// Package dbtest 为测试提供临时 sqlite 数据库
package dbtest

import (
	"path/filepath"
	"testing"

	"github.com/anoixa/eatinator/config"
	"github.com/anoixa/eatinator/database"
	"github.com/stretchr/testify/require"
)

// New 在 t.TempDir() 下创建已迁移的 sqlite 数据库，测试结束时关闭
func New(t testing.TB) database.Provider {
	t.Helper()

	cfg := &config.Config{
		DBType:     "sqlite",
		DBFilePath: filepath.Join(t.TempDir(), "test.db"),
	}
	provider, err := database.NewGormProvider(cfg)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(provider))

	t.Cleanup(func() { _ = provider.Close() })
	return provider
}
