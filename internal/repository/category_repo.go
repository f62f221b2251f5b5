package repository

import (
	"go-rental-store/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CategoryRepository interface {
	FindAll() ([]model.Category, error)
	FindByID(id uuid.UUID) (*model.Category, error)
	Create(category *model.Category) error
	Update(category *model.Category) error
	Delete(id uuid.UUID) error
	CountChildren(id uuid.UUID) (int64, error)
}

type categoryRepo struct {
	db *gorm.DB
}

func NewCategoryRepo(db *gorm.DB) CategoryRepository {
	return &categoryRepo{db}
}

func (r *categoryRepo) selectWithParent() *gorm.DB {
	return r.db.Model(&model.Category{}).
		Select("categories.*, p.name AS parent_name").
		Joins("LEFT JOIN categories p ON p.id = categories.parent_id")
}

func (r *categoryRepo) FindAll() ([]model.Category, error) {
	var categories []model.Category
	err := r.selectWithParent().Order("categories.name ASC").Find(&categories).Error
	return categories, err
}

func (r *categoryRepo) FindByID(id uuid.UUID) (*model.Category, error) {
	var category model.Category
	if err := r.selectWithParent().Where("categories.id = ?", id).First(&category).Error; err != nil {
		return nil, translate(err)
	}
	return &category, nil
}

func (r *categoryRepo) Create(category *model.Category) error {
	return r.db.Omit("Parent").Create(category).Error
}

func (r *categoryRepo) Update(category *model.Category) error {
	return r.db.Model(&model.Category{}).Where("id = ?", category.ID).
		Updates(map[string]interface{}{
			"name":        category.Name,
			"description": category.Description,
			"parent_id":   category.ParentID,
		}).Error
}

// Delete fails with gorm.ErrForeignKeyViolated while products or children reference the row
func (r *categoryRepo) Delete(id uuid.UUID) error {
	res := r.db.Delete(&model.Category{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *categoryRepo) CountChildren(id uuid.UUID) (int64, error) {
	var n int64
	err := r.db.Model(&model.Category{}).Where("parent_id = ?", id).Count(&n).Error
	return n, err
}
