package service

import (
	"context"
	"errors"
	"strings"

	"go-rental-store/internal/apperror"
	"go-rental-store/internal/model"
	"go-rental-store/internal/repository"
	"go-rental-store/internal/storage"
	"go-rental-store/pkg/database"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrProductCodeExists   = apperror.Conflict("a product with this code already exists in the store")
	ErrProductBusy         = apperror.Conflict("product is reserved, rented or in transfer")
	ErrProductStatusChange = apperror.Validation("status can only be changed manually between available and laundry")
	ErrProductInUse        = apperror.Validation("product has rental history and cannot be deleted")
)

type ProductService interface {
	ListProducts(ctx context.Context, caller Caller, filter ProductListFilter) ([]model.ProductSummary, error)
	GetProduct(ctx context.Context, caller Caller, id uuid.UUID) (*model.Product, error)
	CreateProduct(ctx context.Context, caller Caller, req *CreateProductRequest, photos []Upload) (*model.Product, error)
	UpdateProduct(ctx context.Context, caller Caller, id uuid.UUID, req *UpdateProductRequest, photos []Upload) (*model.Product, error)
	DeleteProduct(ctx context.Context, caller Caller, id uuid.UUID) error
}

// ProductListFilter mirrors the listing query string.
// GlobalSearch lets store-scoped callers look at every store's catalogue.
type ProductListFilter struct {
	StoreID      *uuid.UUID
	CategoryID   *uuid.UUID
	Status       string
	IsFeatured   *bool
	Search       string
	GlobalSearch bool
	Page         repository.Page
}

type CreateProductRequest struct {
	StoreID       *uuid.UUID      `json:"store_id"`
	CategoryID    *uuid.UUID      `json:"category_id"`
	Code          string          `json:"code" validate:"required,max=50"`
	Name          string          `json:"name" validate:"required,max=255"`
	Description   string          `json:"description"`
	Size          string          `json:"size" validate:"max=20"`
	Color         string          `json:"color" validate:"max=50"`
	Brand         string          `json:"brand" validate:"max=100"`
	PurchasePrice decimal.Decimal `json:"purchase_price" validate:"gte=0"`
	RentalPrice   decimal.Decimal `json:"rental_price" validate:"gt=0"`
	IsFeatured    bool            `json:"is_featured"`
}

type UpdateProductRequest struct {
	CategoryID    *uuid.UUID       `json:"category_id"`
	Code          *string          `json:"code" validate:"omitempty,min=1,max=50"`
	Name          *string          `json:"name" validate:"omitempty,min=1,max=255"`
	Description   *string          `json:"description"`
	Size          *string          `json:"size" validate:"omitempty,max=20"`
	Color         *string          `json:"color" validate:"omitempty,max=50"`
	Brand         *string          `json:"brand" validate:"omitempty,max=100"`
	PurchasePrice *decimal.Decimal `json:"purchase_price"`
	RentalPrice   *decimal.Decimal `json:"rental_price"`
	Status        *string          `json:"status"`
	IsFeatured    *bool            `json:"is_featured"`
}

type productService struct {
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
	storeRepo    repository.StoreRepository
	files        storage.Storage
	db           *gorm.DB
	notifier     Notifier
}

func NewProductService(
	productRepo repository.ProductRepository,
	categoryRepo repository.CategoryRepository,
	storeRepo repository.StoreRepository,
	files storage.Storage,
	db *gorm.DB,
	notifier Notifier,
) ProductService {
	return &productService{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		storeRepo:    storeRepo,
		files:        files,
		db:           db,
		notifier:     notifierOrNoop(notifier),
	}
}

func (s *productService) ListProducts(ctx context.Context, caller Caller, filter ProductListFilter) ([]model.ProductSummary, error) {
	if filter.Status != "" && !model.ValidProductStatus(filter.Status) {
		return nil, apperror.Validation("invalid status filter")
	}
	storeID := filter.StoreID
	if !filter.GlobalSearch {
		storeID = scopeFilter(caller, filter.StoreID)
	}
	return s.productRepo.FindAll(repository.ProductFilter{
		StoreID:    storeID,
		CategoryID: filter.CategoryID,
		Status:     filter.Status,
		IsFeatured: filter.IsFeatured,
		Search:     strings.TrimSpace(filter.Search),
		Page:       filter.Page,
	})
}

func (s *productService) GetProduct(ctx context.Context, caller Caller, id uuid.UUID) (*model.Product, error) {
	product, err := s.productRepo.FindByID(nil, id)
	if err != nil {
		return nil, notFound(err, ErrProductNotFound.Message)
	}
	if err := AuthorizeStore(caller, product.StoreID); err != nil {
		return nil, err
	}
	return product, nil
}

func (s *productService) CreateProduct(ctx context.Context, caller Caller, req *CreateProductRequest, photos []Upload) (*model.Product, error) {
	// 1. Validate request
	if err := validate(req); err != nil {
		return nil, err
	}
	storeID, err := resolveStore(caller, req.StoreID)
	if err != nil {
		return nil, err
	}
	if _, err := s.storeRepo.FindByID(nil, storeID); err != nil {
		return nil, notFound(err, ErrStoreNotFound.Message)
	}
	if err := s.checkCategory(req.CategoryID); err != nil {
		return nil, err
	}

	product := &model.Product{
		StoreID:       storeID,
		CategoryID:    req.CategoryID,
		Code:          strings.TrimSpace(req.Code),
		Name:          strings.TrimSpace(req.Name),
		Description:   req.Description,
		Size:          req.Size,
		Color:         req.Color,
		Brand:         req.Brand,
		PurchasePrice: req.PurchasePrice,
		RentalPrice:   req.RentalPrice,
		Status:        model.ProductAvailable,
		IsFeatured:    req.IsFeatured,
	}
	product.ID = uuid.New()

	// 2. Photos go to storage first so the row never points at a missing object
	images, keys, err := s.uploadPhotos(ctx, product.ID, photos, 0, true)
	if err != nil {
		return nil, err
	}

	// 3. Product and images in one transaction
	err = database.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		if err := s.productRepo.Create(tx, product); err != nil {
			return err
		}
		return s.productRepo.AddImages(tx, images)
	})
	if err != nil {
		s.discard(ctx, keys)
		return nil, dbError(err, ErrProductCodeExists.Message, "category or store does not exist")
	}

	created, err := s.productRepo.FindByID(nil, product.ID)
	if err != nil {
		return nil, err
	}
	s.notifier.Publish("product.created", []uuid.UUID{storeID}, productEvent(created))
	return created, nil
}

func (s *productService) UpdateProduct(ctx context.Context, caller Caller, id uuid.UUID, req *UpdateProductRequest, photos []Upload) (*model.Product, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	if req.RentalPrice != nil && !req.RentalPrice.IsPositive() {
		return nil, apperror.Validation("rental_price must be greater than zero")
	}
	if req.PurchasePrice != nil && req.PurchasePrice.IsNegative() {
		return nil, apperror.Validation("purchase_price cannot be negative")
	}
	if err := s.checkCategory(req.CategoryID); err != nil {
		return nil, err
	}

	current, err := s.productRepo.FindByID(nil, id)
	if err != nil {
		return nil, notFound(err, ErrProductNotFound.Message)
	}
	if err := AuthorizeStore(caller, current.StoreID); err != nil {
		return nil, err
	}

	images, keys, err := s.uploadPhotos(ctx, id, photos, len(current.Images), !hasMainImage(current.Images))
	if err != nil {
		return nil, err
	}

	err = database.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		// locked so a concurrent rental or transfer cannot be overwritten
		product, err := s.productRepo.FindByIDForUpdate(tx, id)
		if err != nil {
			return notFound(err, ErrProductNotFound.Message)
		}
		if req.Status != nil && *req.Status != product.Status {
			if !manualStatus(product.Status) || !manualStatus(*req.Status) {
				return ErrProductStatusChange
			}
			product.Status = *req.Status
		}
		applyProductChanges(product, req)
		if err := s.productRepo.Update(tx, product); err != nil {
			return err
		}
		return s.productRepo.AddImages(tx, images)
	})
	if err != nil {
		s.discard(ctx, keys)
		return nil, dbError(err, ErrProductCodeExists.Message, "category does not exist")
	}

	updated, err := s.productRepo.FindByID(nil, id)
	if err != nil {
		return nil, err
	}
	s.notifier.Publish("product.updated", []uuid.UUID{updated.StoreID}, productEvent(updated))
	return updated, nil
}

func applyProductChanges(p *model.Product, req *UpdateProductRequest) {
	if req.CategoryID != nil {
		p.CategoryID = req.CategoryID
	}
	if req.Code != nil {
		p.Code = strings.TrimSpace(*req.Code)
	}
	if req.Name != nil {
		p.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.Size != nil {
		p.Size = *req.Size
	}
	if req.Color != nil {
		p.Color = *req.Color
	}
	if req.Brand != nil {
		p.Brand = *req.Brand
	}
	if req.PurchasePrice != nil {
		p.PurchasePrice = *req.PurchasePrice
	}
	if req.RentalPrice != nil {
		p.RentalPrice = *req.RentalPrice
	}
	if req.IsFeatured != nil {
		p.IsFeatured = *req.IsFeatured
	}
}

// manualStatus lists the statuses staff may set by hand; the rest belong to workflows
func manualStatus(status string) bool {
	return status == model.ProductAvailable || status == model.ProductLaundry
}

func (s *productService) DeleteProduct(ctx context.Context, caller Caller, id uuid.UUID) error {
	var storeID uuid.UUID
	err := database.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		product, err := s.productRepo.FindByIDForUpdate(tx, id)
		if err != nil {
			return notFound(err, ErrProductNotFound.Message)
		}
		if err := AuthorizeStore(caller, product.StoreID); err != nil {
			return err
		}
		if !manualStatus(product.Status) {
			return ErrProductBusy
		}
		storeID = product.StoreID
		return s.productRepo.Delete(tx, id)
	})
	if err != nil {
		return dbError(notFound(err, ErrProductNotFound.Message), "", ErrProductInUse.Message)
	}

	s.notifier.Publish("product.deleted", []uuid.UUID{storeID}, map[string]interface{}{"id": id})
	return nil
}

func (s *productService) checkCategory(id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	if _, err := s.categoryRepo.FindByID(*id); err != nil {
		return notFound(err, ErrCategoryNotFound.Message)
	}
	return nil
}

// uploadPhotos stores every photo and returns the image rows to insert along with their keys.
// With markMain set the first photo becomes the main image.
func (s *productService) uploadPhotos(ctx context.Context, productID uuid.UUID, photos []Upload, offset int, markMain bool) ([]model.ProductImage, []string, error) {
	if len(photos) == 0 {
		return nil, nil, nil
	}
	if s.files == nil {
		return nil, nil, ErrStorageMissing
	}

	// validate all before writing any
	keys := make([]string, len(photos))
	for i, photo := range photos {
		if photo.Size > storage.MaxImageSize {
			return nil, nil, ErrInvalidUpload
		}
		key, err := storage.ImageKey("products/"+productID.String(), photo.ContentType)
		if err != nil {
			if errors.Is(err, storage.ErrUnsupportedType) {
				return nil, nil, ErrInvalidUpload
			}
			return nil, nil, err
		}
		keys[i] = key
	}

	images := make([]model.ProductImage, 0, len(photos))
	for i, photo := range photos {
		url, err := s.files.Put(ctx, keys[i], photo.ContentType, photo.Body, photo.Size)
		if err != nil {
			s.discard(ctx, keys[:i])
			return nil, nil, apperror.Internal(err, "failed to store product photo")
		}
		images = append(images, model.ProductImage{
			ProductID: productID,
			URLThumb:  url,
			URLFull:   url,
			IsMain:    markMain && i == 0,
			Position:  offset + i,
		})
	}
	return images, keys, nil
}

func (s *productService) discard(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := s.files.Delete(ctx, key); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("failed to remove orphaned upload")
		}
	}
}

func hasMainImage(images []model.ProductImage) bool {
	for _, img := range images {
		if img.IsMain {
			return true
		}
	}
	return false
}

func productEvent(p *model.Product) map[string]interface{} {
	return map[string]interface{}{
		"id":       p.ID,
		"store_id": p.StoreID,
		"code":     p.Code,
		"name":     p.Name,
		"status":   p.Status,
	}
}
