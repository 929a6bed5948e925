package validator

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// allowedImageMimeTypes 声明类型到解码器格式名
var allowedImageMimeTypes = map[string]string{
	"image/jpeg": "jpeg",
	"image/png":  "png",
	"image/webp": "webp",
}

var (
	ErrUnsupportedMime = errors.New("unsupported image type")
	ErrUndecodable     = errors.New("content is not a decodable image")
	ErrMimeMismatch    = errors.New("content does not match declared type")
)

// IsAllowedMime 是否允许的声明类型（需已规范化）
func IsAllowedMime(mimeType string) bool {
	_, ok := allowedImageMimeTypes[mimeType]
	return ok
}

// ValidateImage 解码图片头部并核对声明类型，返回检测到的格式
func ValidateImage(data []byte, declaredMime string) (string, error) {
	want, ok := allowedImageMimeTypes[declaredMime]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedMime, declaredMime)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return "", fmt.Errorf("%w: zero dimensions", ErrUndecodable)
	}
	if format != want {
		return format, fmt.Errorf("%w: declared %s, detected %s", ErrMimeMismatch, declaredMime, format)
	}

	return format, nil
}
