package models

import "time"

// Image 菜品图片记录，FilePath 为相对图片根目录的存储路径
type Image struct {
	ID           uint   `gorm:"primaryKey"`
	DishKey      string `gorm:"size:200;not null;index:idx_images_dish_filename,priority:1"`
	Filename     string `gorm:"size:128;not null;index:idx_images_dish_filename,priority:2"`
	OriginalName string `gorm:"size:255"`
	FilePath     string `gorm:"size:512;not null"`
	ContentType  string `gorm:"size:64"`
	FileSize     int64
	UploadTime   int64 `gorm:"not null;index"`
	CreatedAt    time.Time
}

func (Image) TableName() string {
	return "images"
}

// Uploaded 上传时间
func (i *Image) Uploaded() time.Time {
	return time.Unix(i.UploadTime, 0)
}
