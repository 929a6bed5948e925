package image

import (
	"encoding/hex"
	"fmt"
	"path"

	"github.com/anoixa/eatinator/utils"
	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// generateFilename 生成 {uploadTime}_{8位hex}{ext}
func generateFilename(dishKey string, uploadTime int64, ext string) string {
	sum := blake2b.Sum256([]byte(fmt.Sprintf("%s_%d_%s", dishKey, uploadTime, uuid.NewString())))
	return fmt.Sprintf("%d_%s%s", uploadTime, hex.EncodeToString(sum[:4]), ext)
}

// storagePath 菜品目录已清洗，只含 [A-Za-z0-9_-]
func storagePath(dishKey, filename string) string {
	return path.Join(utils.SanitizeKey(dishKey), filename)
}
