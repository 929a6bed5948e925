package utils

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// mimeToExtMap 允许上传的 MIME 类型到扩展名
var mimeToExtMap = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

var extToMimeMap = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// NormalizeMime 去掉参数并转小写
func NormalizeMime(mimeType string) string {
	mimeType = strings.Split(mimeType, ";")[0]
	return strings.ToLower(strings.TrimSpace(mimeType))
}

// GetSafeExtension 根据MIME类型返回安全的文件扩展名
// 如果MIME类型不被允许，返回空字符串
func GetSafeExtension(mimeType string) string {
	if ext, ok := mimeToExtMap[NormalizeMime(mimeType)]; ok {
		return ext
	}
	return ""
}

// MimeFromFilename 根据扩展名推断 MIME，未知返回 application/octet-stream
func MimeFromFilename(filename string) string {
	if m, ok := extToMimeMap[strings.ToLower(filepath.Ext(filename))]; ok {
		return m
	}
	return "application/octet-stream"
}

// SniffContentType 嗅探内容类型后把流位置恢复到开头
func SniffContentType(stream io.ReadSeeker) (string, error) {
	mtype, err := mimetype.DetectReader(stream)
	if err != nil {
		return "", fmt.Errorf("failed to read stream for mime sniffing: %w", err)
	}

	if _, err := stream.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("failed to seek stream back to start after sniffing: %w", err)
	}

	return NormalizeMime(mtype.String()), nil
}
