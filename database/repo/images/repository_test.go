package images

import (
	"context"
	"errors"
	"testing"

	"github.com/anoixa/eatinator/database/dbtest"
	"github.com/anoixa/eatinator/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seed(t *testing.T, repo *Repository, dish, filename string, uploadTime, size int64) *models.Image {
	t.Helper()
	img := &models.Image{
		DishKey:    dish,
		Filename:   filename,
		FilePath:   dish + "/" + filename,
		FileSize:   size,
		UploadTime: uploadTime,
	}
	require.NoError(t, repo.Create(context.Background(), img))
	return img
}

func TestRepository_ListByDish(t *testing.T) {
	repo := NewRepository(dbtest.New(t))
	ctx := context.Background()

	seed(t, repo, "pasta", "100_a.jpg", 100, 1)
	seed(t, repo, "pasta", "300_c.jpg", 300, 1)
	seed(t, repo, "pasta", "200_b.jpg", 200, 1)
	seed(t, repo, "soup", "250_d.jpg", 250, 1)

	list, err := repo.ListByDish(ctx, "pasta", 150)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "300_c.jpg", list[0].Filename)
	assert.Equal(t, "200_b.jpg", list[1].Filename)
}

func TestRepository_GetByDishAndFilename(t *testing.T) {
	repo := NewRepository(dbtest.New(t))
	ctx := context.Background()
	seed(t, repo, "pasta", "100_a.jpg", 100, 1)

	img, err := repo.GetByDishAndFilename(ctx, "pasta", "100_a.jpg")
	require.NoError(t, err)
	assert.Equal(t, "pasta/100_a.jpg", img.FilePath)

	_, err = repo.GetByDishAndFilename(ctx, "soup", "100_a.jpg")
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestRepository_ExpiredAndDelete(t *testing.T) {
	repo := NewRepository(dbtest.New(t))
	ctx := context.Background()
	old := seed(t, repo, "pasta", "100_a.jpg", 100, 1)
	seed(t, repo, "pasta", "900_b.jpg", 900, 1)

	expired, err := repo.ListExpired(ctx, 500, 0)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, old.ID, expired[0].ID)

	require.NoError(t, repo.DeleteByID(ctx, old.ID))
	expired, err = repo.ListExpired(ctx, 500, 0)
	require.NoError(t, err)
	assert.Empty(t, expired)
}

func TestRepository_GetStats(t *testing.T) {
	repo := NewRepository(dbtest.New(t))
	seed(t, repo, "pasta", "100_a.jpg", 100, 10)
	seed(t, repo, "pasta", "900_b.jpg", 900, 20)
	seed(t, repo, "soup", "950_c.jpg", 950, 5)

	stats, err := repo.GetStats(context.Background(), 500)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalImages)
	assert.Equal(t, int64(35), stats.TotalSize)
	assert.Equal(t, int64(2), stats.UniqueDishes)
	assert.Equal(t, int64(2), stats.RecentUploads)
}
