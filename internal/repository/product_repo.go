package repository

import (
	"go-rental-store/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductFilter narrows the product listing. A nil StoreID lists every store.
type ProductFilter struct {
	StoreID    *uuid.UUID
	CategoryID *uuid.UUID
	Status     string
	IsFeatured *bool
	Search     string
	Page       Page
}

type ProductRepository interface {
	FindAll(filter ProductFilter) ([]model.ProductSummary, error)
	FindByID(tx *gorm.DB, id uuid.UUID) (*model.Product, error)
	FindByIDForUpdate(tx *gorm.DB, id uuid.UUID) (*model.Product, error)
	Create(tx *gorm.DB, product *model.Product) error
	Update(tx *gorm.DB, product *model.Product) error
	Delete(tx *gorm.DB, id uuid.UUID) error
	AddImages(tx *gorm.DB, images []model.ProductImage) error
	// CompareAndSetStatus moves the product to `to` only while its status is one of `from`.
	// It reports whether a row changed.
	CompareAndSetStatus(tx *gorm.DB, id uuid.UUID, from []string, to string) (bool, error)
	// MoveToStore reassigns the owning store and status under the same guard.
	MoveToStore(tx *gorm.DB, id, storeID uuid.UUID, from, to string) (bool, error)
}

type productRepo struct {
	db *gorm.DB
}

func NewProductRepo(db *gorm.DB) ProductRepository {
	return &productRepo{db}
}

func (r *productRepo) FindAll(filter ProductFilter) ([]model.ProductSummary, error) {
	var rows []model.ProductSummary
	q := r.db.Table("products p").
		Select(`p.id, p.store_id, s.name AS store_name, p.category_id, c.name AS category_name,
			p.code, p.name, p.size, p.color, p.rental_price, p.status, p.is_featured,
			(SELECT url_thumb FROM product_images WHERE product_id = p.id ORDER BY is_main DESC, position ASC LIMIT 1) AS main_image`).
		Joins("JOIN stores s ON s.id = p.store_id").
		Joins("LEFT JOIN categories c ON c.id = p.category_id")

	if filter.StoreID != nil {
		q = q.Where("p.store_id = ?", *filter.StoreID)
	}
	if filter.CategoryID != nil {
		q = q.Where("p.category_id = ?", *filter.CategoryID)
	}
	if filter.Status != "" {
		q = q.Where("p.status = ?", filter.Status)
	}
	if filter.IsFeatured != nil {
		q = q.Where("p.is_featured = ?", *filter.IsFeatured)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		q = q.Where("(p.name ILIKE ? OR p.code ILIKE ?)", like, like)
	}

	err := filter.Page.apply(q.Order("p.created_at DESC"), 200).Scan(&rows).Error
	return rows, err
}

func (r *productRepo) FindByID(tx *gorm.DB, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	err := conn(r.db, tx).
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("is_main DESC, position ASC") }).
		Preload("Category").
		Preload("Store").
		First(&product, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &product, nil
}

func (r *productRepo) FindByIDForUpdate(tx *gorm.DB, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	if err := forUpdate(conn(r.db, tx)).First(&product, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &product, nil
}

func (r *productRepo) Create(tx *gorm.DB, product *model.Product) error {
	return conn(r.db, tx).Omit("Store", "Category").Create(product).Error
}

func (r *productRepo) Update(tx *gorm.DB, product *model.Product) error {
	return conn(r.db, tx).Omit("Store", "Category", "Images").Save(product).Error
}

// Delete fails with gorm.ErrForeignKeyViolated when rental history references the product
func (r *productRepo) Delete(tx *gorm.DB, id uuid.UUID) error {
	res := conn(r.db, tx).Delete(&model.Product{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *productRepo) AddImages(tx *gorm.DB, images []model.ProductImage) error {
	if len(images) == 0 {
		return nil
	}
	return conn(r.db, tx).Create(&images).Error
}

func (r *productRepo) CompareAndSetStatus(tx *gorm.DB, id uuid.UUID, from []string, to string) (bool, error) {
	res := conn(r.db, tx).Model(&model.Product{}).
		Where("id = ? AND status IN ?", id, from).
		Update("status", to)
	return res.RowsAffected == 1, res.Error
}

func (r *productRepo) MoveToStore(tx *gorm.DB, id, storeID uuid.UUID, from, to string) (bool, error) {
	res := conn(r.db, tx).Model(&model.Product{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"store_id": storeID,
			"status":   to,
		})
	return res.RowsAffected == 1, res.Error
}
