package image

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/anoixa/eatinator/database/models"
	"github.com/anoixa/eatinator/internal/apperr"
	"github.com/anoixa/eatinator/utils"
	"github.com/anoixa/eatinator/utils/logger"
	"github.com/anoixa/eatinator/utils/validator"
	"go.uber.org/zap"
)

// UploadResult 上传结果
type UploadResult struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

// maxNameAttempts 文件名冲突时的重试次数
const maxNameAttempts = 3

// UploadImage 校验并保存图片
// 校验顺序：大小、声明类型、内容解码与类型一致性，任一失败都不会写入文件或记录
func (s *Service) UploadImage(ctx context.Context, dishKey, originalName string, data []byte, declaredType string) (*UploadResult, error) {
	if strings.TrimSpace(dishKey) == "" {
		return nil, fmt.Errorf("%w: dish key is required", apperr.ErrInvalidInput)
	}
	if utf8.RuneCountInString(dishKey) > utils.MaxKeyLength {
		return nil, fmt.Errorf("%w: dish key too long", apperr.ErrInvalidInput)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: image file is required", apperr.ErrInvalidInput)
	}

	if int64(len(data)) > s.maxBytes {
		s.metrics.ImageUpload("too_large")
		return nil, fmt.Errorf("%w: maximum %dMB", apperr.ErrTooLarge, s.maxBytes>>20)
	}

	mimeType := utils.NormalizeMime(declaredType)
	if !validator.IsAllowedMime(mimeType) {
		s.metrics.ImageUpload("unsupported_type")
		return nil, fmt.Errorf("%w: only JPEG, PNG and WebP are allowed", apperr.ErrUnsupportedType)
	}

	if _, err := validator.ValidateImage(data, mimeType); err != nil {
		s.metrics.ImageUpload("invalid_content")
		logger.Debug("[Image] Rejected upload content", zap.String("declared", mimeType), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidImageContent, err)
	}

	uploadTime := s.now().Unix()
	ext := utils.GetSafeExtension(mimeType)

	filename, path, err := s.allocateName(ctx, dishKey, uploadTime, ext)
	if err != nil {
		s.metrics.ImageUpload("error")
		return nil, err
	}

	if err := s.storage.SaveWithContext(ctx, path, bytes.NewReader(data)); err != nil {
		s.metrics.ImageUpload("error")
		logger.Error("[Image] Failed to save file", zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", apperr.ErrStorageFailure, err)
	}

	record := &models.Image{
		DishKey:      dishKey,
		Filename:     filename,
		OriginalName: cleanOriginalName(originalName),
		FilePath:     path,
		ContentType:  mimeType,
		FileSize:     int64(len(data)),
		UploadTime:   uploadTime,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		// 记录写入失败，删除已落盘的文件
		if delErr := s.storage.DeleteWithContext(context.WithoutCancel(ctx), path); delErr != nil {
			logger.Warn("[Image] Failed to remove file after insert failure", zap.String("path", path), zap.Error(delErr))
		}
		s.metrics.ImageUpload("error")
		logger.Error("[Image] Failed to insert record", zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", apperr.ErrStorageFailure, err)
	}

	s.metrics.ImageUpload("ok")
	logger.Info("[Image] Uploaded",
		zap.String("dish", utils.TruncateForLog(dishKey, 64)),
		zap.String("filename", filename),
		zap.Int("size", len(data)))

	return &UploadResult{
		Filename: filename,
		URL:      ImageURL(dishKey, filename),
	}, nil
}

func (s *Service) allocateName(ctx context.Context, dishKey string, uploadTime int64, ext string) (string, string, error) {
	for i := 0; i < maxNameAttempts; i++ {
		filename := generateFilename(dishKey, uploadTime, ext)
		path := storagePath(dishKey, filename)
		exists, err := s.storage.Exists(ctx, path)
		if err != nil {
			return "", "", fmt.Errorf("%w: %v", apperr.ErrStorageFailure, err)
		}
		if !exists {
			return filename, path, nil
		}
	}
	return "", "", fmt.Errorf("%w: %v", apperr.ErrStorageFailure, errors.New("could not allocate unique filename"))
}

// cleanOriginalName 只保留文件名部分
func cleanOriginalName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" {
		return ""
	}
	return utils.TruncateForLog(name, 200)
}
