package images

import (
	"context"
	"fmt"

	"github.com/anoixa/eatinator/database"
	"github.com/anoixa/eatinator/database/models"
)

// Repository 图片仓库 - 封装所有图片相关的数据库操作
type Repository struct {
	db database.Provider
}

// NewRepository 创建新的图片仓库
func NewRepository(db database.Provider) *Repository {
	return &Repository{db: db}
}

// Create 写入图片记录
func (r *Repository) Create(ctx context.Context, image *models.Image) error {
	return r.db.WithContext(ctx).Create(image).Error
}

// ListByDish 按上传时间倒序列出菜品图片，只包含 uploadTime >= since 的记录
func (r *Repository) ListByDish(ctx context.Context, dishKey string, since int64) ([]models.Image, error) {
	var list []models.Image
	err := r.db.WithContext(ctx).
		Where("dish_key = ? AND upload_time >= ?", dishKey, since).
		Order("upload_time DESC, id DESC").
		Find(&list).Error
	return list, err
}

// GetByDishAndFilename 查找单张图片，未找到时返回 gorm.ErrRecordNotFound
func (r *Repository) GetByDishAndFilename(ctx context.Context, dishKey, filename string) (*models.Image, error) {
	var image models.Image
	err := r.db.WithContext(ctx).
		Where("dish_key = ? AND filename = ?", dishKey, filename).
		Order("id DESC").
		First(&image).Error
	if err != nil {
		return nil, err
	}
	return &image, nil
}

// ListExpired 查询 uploadTime < cutoff 的记录
func (r *Repository) ListExpired(ctx context.Context, cutoff int64, limit int) ([]models.Image, error) {
	var list []models.Image
	query := r.db.WithContext(ctx).
		Where("upload_time < ?", cutoff).
		Order("upload_time ASC, id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&list).Error
	return list, err
}

// DeleteByID 删除记录
func (r *Repository) DeleteByID(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Image{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete image %d: %w", id, result.Error)
	}
	return nil
}

// Stats 图片统计
type Stats struct {
	TotalImages   int64 `json:"totalImages"`
	TotalSize     int64 `json:"totalSize"`
	UniqueDishes  int64 `json:"uniqueDishes"`
	RecentUploads int64 `json:"recentUploads"`
}

// GetStats 统计全部图片，recent 为 since 之后的上传数
func (r *Repository) GetStats(ctx context.Context, since int64) (*Stats, error) {
	db := r.db.WithContext(ctx)
	stats := &Stats{}

	row := db.Model(&models.Image{}).
		Select("COUNT(*), COALESCE(SUM(file_size),0), COUNT(DISTINCT dish_key)").
		Row()
	if err := row.Scan(&stats.TotalImages, &stats.TotalSize, &stats.UniqueDishes); err != nil {
		return nil, fmt.Errorf("failed to aggregate images: %w", err)
	}

	if err := db.Model(&models.Image{}).Where("upload_time >= ?", since).Count(&stats.RecentUploads).Error; err != nil {
		return nil, fmt.Errorf("failed to count recent uploads: %w", err)
	}
	return stats, nil
}
