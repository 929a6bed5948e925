package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound 文件不存在
var ErrNotFound = errors.New("file not found")

// Provider 存储提供者接口 - 依赖倒置的核心抽象
// identifier 为相对图片根目录的存储路径，如 2024-01-15_lunch_Pasta/1705312800_a1b2c3d4.jpg
type Provider interface {
	// SaveWithContext 保存文件到存储，返回前内容必须已完整写入
	SaveWithContext(ctx context.Context, identifier string, file io.Reader) error

	// GetWithContext 从存储获取文件，不存在时返回 ErrNotFound
	GetWithContext(ctx context.Context, identifier string) (io.ReadSeekCloser, error)

	// DeleteWithContext 从存储删除文件，不存在时返回 ErrNotFound
	DeleteWithContext(ctx context.Context, identifier string) error

	// Exists 检查文件是否存在
	Exists(ctx context.Context, identifier string) (bool, error)

	// Health 检查存储健康状态
	Health(ctx context.Context) error

	// Name 返回存储名称
	Name() string
}

type nopSeekCloser struct {
	io.ReadSeeker
}

func (nopSeekCloser) Close() error { return nil }
