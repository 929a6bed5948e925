// Package images 菜品图片接口
package images

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/anoixa/eatinator/api/common"
	"github.com/anoixa/eatinator/internal/apperr"
	imageSvc "github.com/anoixa/eatinator/internal/services/image"
	"github.com/anoixa/eatinator/internal/services/verify"
	"github.com/anoixa/eatinator/utils/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler 图片处理器
type Handler struct {
	images   *imageSvc.Service
	verifier verify.Verifier
}

// NewHandler 图片处理器
func NewHandler(images *imageSvc.Service, verifier verify.Verifier) *Handler {
	return &Handler{images: images, verifier: verifier}
}

// ListImages GET /api/images/:dishKey
func (h *Handler) ListImages(c *gin.Context) {
	key := c.Param("dishKey")
	if key == "" {
		key = c.Query("key")
	}

	list, err := h.images.ListImages(c.Request.Context(), key)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	common.RespondSuccess(c, gin.H{"images": list})
}

// ViewImage GET /api/images/:dishKey/:filename
func (h *Handler) ViewImage(c *gin.Context) {
	key, file := c.Param("dishKey"), c.Param("filename")
	if key == "" && file == "" {
		key, file = c.Query("key"), c.Query("file")
	}

	image, err := h.images.GetImageFile(c.Request.Context(), key, file)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	defer image.Reader.Close()

	c.Header("Content-Type", image.ContentType)
	c.Header("Cache-Control", "public, max-age=3600")
	c.Header("X-Content-Type-Options", "nosniff")
	http.ServeContent(c.Writer, c.Request, file, image.Modified, image.Reader)
}

// LegacyGet GET /api/images.php，action=view 时返回图片内容
func (h *Handler) LegacyGet(c *gin.Context) {
	if c.Query("action") == "view" {
		if c.Query("key") == "" || c.Query("file") == "" {
			common.RespondError(c, http.StatusBadRequest, "Key and filename are required")
			return
		}
		h.ViewImage(c)
		return
	}
	h.ListImages(c)
}

// UploadImage POST /api/images 与 /api/images.php
func (h *Handler) UploadImage(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		if isBodyTooLarge(err) {
			common.RespondAppError(c, fmt.Errorf("%w: maximum %dMB", apperr.ErrTooLarge, h.images.MaxBytes()>>20))
			return
		}
		common.RespondError(c, http.StatusBadRequest, "Invalid form data")
		return
	}

	key := firstValue(form, "key")
	if key == "" {
		key = c.Param("dishKey")
	}

	if !common.CheckVerification(c, h.verifier, firstValue(form, "verificationToken"), firstValue(form, "turnstileToken")) {
		return
	}

	files := form.File["image"]
	if len(files) == 0 {
		files = form.File["file"]
	}
	if len(files) == 0 {
		common.RespondError(c, http.StatusBadRequest, "No file provided")
		return
	}
	fileHeader := files[0]

	if fileHeader.Size > h.images.MaxBytes() {
		common.RespondAppError(c, fmt.Errorf("%w: maximum %dMB", apperr.ErrTooLarge, h.images.MaxBytes()>>20))
		return
	}

	data, err := readPart(fileHeader, h.images.MaxBytes())
	if err != nil {
		logger.Warn("[Images] Failed to read upload", zap.Error(err))
		common.RespondError(c, http.StatusBadRequest, "Failed to read uploaded file")
		return
	}

	result, err := h.images.UploadImage(c.Request.Context(), key, fileHeader.Filename, data, fileHeader.Header.Get("Content-Type"))
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	common.RespondSuccess(c, gin.H{
		"message":  "Image uploaded successfully",
		"filename": result.Filename,
		"url":      result.URL,
	})
}

// readPart 最多读取 limit+1 字节，超出部分交给服务层判定
func readPart(fh *multipart.FileHeader, limit int64) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, limit+1))
}

func firstValue(form *multipart.Form, name string) string {
	if values := form.Value[name]; len(values) > 0 {
		return values[0]
	}
	return ""
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
