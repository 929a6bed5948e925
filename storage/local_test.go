package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLocalStorage_PathTraversal_Prevention 测试路径遍历防护
func TestLocalStorage_PathTraversal_Prevention(t *testing.T) {
	storage, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()

	traversalAttempts := []string{
		"../../../etc/passwd",
		"..\\..\\..\\windows\\system32\\config\\sam",
		"../../.env",
		"..",
		".",
		"",
		"/etc/passwd",
		"pasta/../../../etc/passwd",
	}

	for _, attempt := range traversalAttempts {
		t.Run("save_"+attempt, func(t *testing.T) {
			err := storage.SaveWithContext(ctx, attempt, strings.NewReader("x"))
			assert.Error(t, err, "Path traversal attempt should be rejected: %s", attempt)
			assert.Contains(t, err.Error(), "invalid")
		})
	}

	_, err = storage.GetWithContext(ctx, "../../../etc/passwd")
	assert.ErrorContains(t, err, "invalid")
	assert.ErrorContains(t, storage.DeleteWithContext(ctx, "../x"), "invalid")
}

// TestLocalStorage_RoundTrip 保存、读取、删除
func TestLocalStorage_RoundTrip(t *testing.T) {
	base := t.TempDir()
	storage, err := NewLocalStorage(base)
	require.NoError(t, err)
	ctx := context.Background()

	id := "2024-01-15_lunch_Pasta/1705312800_a1b2c3d4.jpg"
	require.NoError(t, storage.SaveWithContext(ctx, id, strings.NewReader("jpeg bytes")))

	exists, err := storage.Exists(ctx, id)
	require.NoError(t, err)
	assert.True(t, exists)

	f, err := storage.GetWithContext(ctx, id)
	require.NoError(t, err)
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.Equal(t, "jpeg bytes", string(data))

	// 不应遗留临时文件
	entries, err := os.ReadDir(filepath.Join(base, "2024-01-15_lunch_Pasta"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	require.NoError(t, storage.DeleteWithContext(ctx, id))
	exists, err = storage.Exists(ctx, id)
	require.NoError(t, err)
	assert.False(t, exists)

	// 菜品目录保留
	info, err := os.Stat(filepath.Join(base, "2024-01-15_lunch_Pasta"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

// TestLocalStorage_ConcurrentSaveAndDelete 删除最后一个文件不影响同目录的并发写入
func TestLocalStorage_ConcurrentSaveAndDelete(t *testing.T) {
	storage, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	const rounds = 200
	var wg sync.WaitGroup
	errs := make(chan error, 2*rounds)

	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			id := fmt.Sprintf("pasta/del_%d.jpg", i)
			if err := storage.SaveWithContext(ctx, id, strings.NewReader("x")); err != nil {
				errs <- err
				continue
			}
			if err := storage.DeleteWithContext(ctx, id); err != nil {
				errs <- err
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			if err := storage.SaveWithContext(ctx, fmt.Sprintf("pasta/up_%d.jpg", i), strings.NewReader("y")); err != nil {
				errs <- err
			}
		}
	}()
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("unexpected storage error: %v", err)
	}
	for i := 0; i < rounds; i++ {
		exists, err := storage.Exists(ctx, fmt.Sprintf("pasta/up_%d.jpg", i))
		require.NoError(t, err)
		assert.True(t, exists)
	}
}

// TestLocalStorage_NotFound 缺失文件返回 ErrNotFound
func TestLocalStorage_NotFound(t *testing.T) {
	storage, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = storage.GetWithContext(ctx, "pasta/missing.jpg")
	assert.True(t, errors.Is(err, ErrNotFound))

	err = storage.DeleteWithContext(ctx, "pasta/missing.jpg")
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, storage.SaveWithContext(ctx, "root.jpg", strings.NewReader("x")))
	require.NoError(t, storage.DeleteWithContext(ctx, "root.jpg"))
	assert.NoError(t, storage.Health(ctx))
}

// TestLocalStorage_CanceledSave 取消的上下文不留下目标文件
func TestLocalStorage_CanceledSave(t *testing.T) {
	storage, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = storage.SaveWithContext(ctx, "pasta/a.jpg", strings.NewReader("x"))
	assert.Error(t, err)

	exists, err := storage.Exists(context.Background(), "pasta/a.jpg")
	require.NoError(t, err)
	assert.False(t, exists)
}

// TestIsValidStoragePath 测试存储路径校验
func TestIsValidStoragePath(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		wantValid bool
	}{
		{"simple", "file.jpg", true},
		{"nested", "dish_key/1700000000_deadbeef.webp", true},
		{"empty", "", false},
		{"dotdot", "..", false},
		{"absolute_unix", "/etc/passwd", false},
		{"absolute_windows", "C:\\file.txt", false},
		{"traversal", "../file.txt", false},
		{"null_byte", "file\x00.txt", false},
		{"newline", "file\n.txt", false},
		{"space", "my file.jpg", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantValid, IsValidStoragePath(tt.path), "path: %q", tt.path)
		})
	}
}
