package image

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/anoixa/eatinator/database/repo/images"
	"github.com/anoixa/eatinator/internal/apperr"
	"github.com/anoixa/eatinator/storage"
	"github.com/anoixa/eatinator/utils"
	"github.com/anoixa/eatinator/utils/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ImageInfo 列表中的单张图片
type ImageInfo struct {
	Filename     string `json:"filename"`
	OriginalName string `json:"originalName"`
	UploadTime   int64  `json:"uploadTime"`
	Timestamp    string `json:"timestamp"`
	URL          string `json:"url"`
}

// ImageFile 图片文件流，调用方负责关闭 Reader
type ImageFile struct {
	Reader      io.ReadSeekCloser
	ContentType string
	Size        int64
	Modified    time.Time
}

// ListImages 列出未过期且文件仍存在的图片，按上传时间倒序
func (s *Service) ListImages(ctx context.Context, dishKey string) ([]ImageInfo, error) {
	if strings.TrimSpace(dishKey) == "" {
		return nil, fmt.Errorf("%w: dish key is required", apperr.ErrInvalidInput)
	}

	records, err := s.repo.ListByDish(ctx, dishKey, s.cutoff())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrStorageFailure, err)
	}

	result := make([]ImageInfo, 0, len(records))
	for _, record := range records {
		exists, err := s.storage.Exists(ctx, record.FilePath)
		if err != nil {
			logger.Warn("[Image] Failed to check file", zap.String("path", record.FilePath), zap.Error(err))
			continue
		}
		if !exists {
			continue
		}
		result = append(result, ImageInfo{
			Filename:     record.Filename,
			OriginalName: record.OriginalName,
			UploadTime:   record.UploadTime,
			Timestamp:    record.Uploaded().Format(timestampLayout),
			URL:          ImageURL(record.DishKey, record.Filename),
		})
	}

	s.triggerReadSweep()
	return result, nil
}

// GetImageFile 获取图片内容
func (s *Service) GetImageFile(ctx context.Context, dishKey, filename string) (*ImageFile, error) {
	if strings.TrimSpace(dishKey) == "" || strings.TrimSpace(filename) == "" {
		return nil, fmt.Errorf("%w: key and file are required", apperr.ErrInvalidInput)
	}
	if !storage.IsValidStoragePath(filename) || strings.ContainsAny(filename, "/\\") {
		return nil, fmt.Errorf("%w: image not found", apperr.ErrNotFound)
	}

	record, err := s.repo.GetByDishAndFilename(ctx, dishKey, filename)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: image not found", apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("%w: %v", apperr.ErrStorageFailure, err)
	}

	reader, err := s.storage.GetWithContext(ctx, record.FilePath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: image not found", apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("%w: %v", apperr.ErrStorageFailure, err)
	}

	contentType := record.ContentType
	if contentType == "" {
		if sniffed, err := utils.SniffContentType(reader); err == nil && sniffed != "" {
			contentType = sniffed
		} else {
			contentType = utils.MimeFromFilename(record.Filename)
		}
	}

	return &ImageFile{
		Reader:      reader,
		ContentType: contentType,
		Size:        record.FileSize,
		Modified:    record.Uploaded(),
	}, nil
}

// Stats 图片统计，recent 窗口为保留时长
func (s *Service) Stats(ctx context.Context) (*images.Stats, error) {
	stats, err := s.repo.GetStats(ctx, s.cutoff())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrStorageFailure, err)
	}
	return stats, nil
}
