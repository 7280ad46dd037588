package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"nanum/internal/model"
)

// CategoryRepository reads board categories. Upsert is used by the seeder.
type CategoryRepository interface {
	List(ctx context.Context) ([]model.BoardCategory, error)
	FindBySlug(ctx context.Context, slug string) (*model.BoardCategory, error)
	Upsert(ctx context.Context, c *model.BoardCategory) error
}

type categoryRepository struct {
	db *gorm.DB
}

// NewCategoryRepository creates a new category repository.
func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) List(ctx context.Context) ([]model.BoardCategory, error) {
	categories := []model.BoardCategory{}
	if err := r.db.WithContext(ctx).Order("sort_order ASC, slug ASC").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *categoryRepository) FindBySlug(ctx context.Context, slug string) (*model.BoardCategory, error) {
	var c model.BoardCategory
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&c).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (r *categoryRepository) Upsert(ctx context.Context, c *model.BoardCategory) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slug"}},
		UpdateAll: true,
	}).Create(c).Error
}
